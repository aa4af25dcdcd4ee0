package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/SkillsGen/trainers/auth"
	mw "github.com/SkillsGen/trainers/middleware"
	"github.com/SkillsGen/trainers/query"
	"github.com/SkillsGen/trainers/schedule"
)

// Pinger reports whether the store is reachable. *bun.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps are the collaborators a Handler is built from. Schedule and Auth
// default to services over Runner when nil.
type Deps struct {
	Runner   query.Runner
	Store    Pinger
	Sessions *mw.Sessions
	Schedule *schedule.Service
	Auth     *auth.Authenticator
	JWTKey   []byte
	Location *time.Location
	Logger   *zap.Logger
}

// Handler holds shared dependencies used by all route handlers.
type Handler struct {
	schedule *schedule.Service
	auth     *auth.Authenticator
	sessions *mw.Sessions
	store    Pinger
	jwtKey   []byte
	renderer *Renderer
	logger   *zap.Logger
}

// New creates a Handler from d.
func New(d Deps) *Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Location == nil {
		d.Location = time.UTC
	}
	if d.Schedule == nil {
		d.Schedule = schedule.New(d.Runner, schedule.WithLocation(d.Location))
	}
	if d.Auth == nil {
		d.Auth = auth.New(d.Runner, nil, d.Logger)
	}
	return &Handler{
		schedule: d.Schedule,
		auth:     d.Auth,
		sessions: d.Sessions,
		store:    d.Store,
		jwtKey:   d.JWTKey,
		renderer: NewRenderer(d.Location),
		logger:   d.Logger,
	}
}

// Register installs the renderer and every route on e. Session loading and
// CSRF protection are installed by the caller with e.Use.
func (h *Handler) Register(e *echo.Echo) {
	e.Renderer = h.renderer

	e.GET("/login", h.LoginForm)
	e.POST("/login", h.Login)
	e.GET("/logout", h.Logout)
	e.Match([]string{http.MethodGet, http.MethodPost}, "/", h.Index, mw.Guard(mw.RedirectOnly))
	e.GET("/pcq", h.PCQ, mw.Guard(mw.ForwardThenRedirect))
	e.GET("/healthz", h.Health)

	// Public
	e.POST("/api/signin", h.Signin)

	// Protected – require valid JWT in Authorization header
	api := e.Group("/api", mw.JWT(h.jwtKey))
	api.GET("/schedule", h.APISchedule)
	api.GET("/pcq", h.APIPCQ)
}

// Health pings the store.
func (h *Handler) Health(c echo.Context) error {
	if h.store == nil {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	}
	if err := h.store.PingContext(c.Request().Context()); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// internal hides err from the client; the request logger still sees it.
func internal(err error) error {
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error").SetInternal(err)
}
