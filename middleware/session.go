package middleware

import (
	"context"
	"errors"
	"io/fs"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	sessionName  = "trainers_session"
	trainerIDKey = "trainer_id"
)

type identityKey struct{}

// WithIdentity returns a context carrying the authenticated trainer id.
func WithIdentity(ctx context.Context, trainerID int64) context.Context {
	return context.WithValue(ctx, identityKey{}, trainerID)
}

// IdentityFrom returns the authenticated trainer id, if any.
func IdentityFrom(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(identityKey{}).(int64)
	return id, ok
}

// Sessions keeps the trainer id in a gorilla session.
type Sessions struct {
	store  sessions.Store
	logger *zap.Logger
}

// NewSessions wraps store.
func NewSessions(store sessions.Store, logger *zap.Logger) *Sessions {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sessions{store: store, logger: logger}
}

// NewFilesystemSessions keeps session data in files under dir, so it outlives
// the process and is shared by every worker on the host. The cookie only
// carries the signed session id.
func NewFilesystemSessions(dir string, maxAge int, secure bool, logger *zap.Logger, keyPairs ...[]byte) *Sessions {
	store := sessions.NewFilesystemStore(dir, keyPairs...)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	store.MaxAge(maxAge)
	return NewSessions(store, logger)
}

// Load puts the session identity, when there is one, into the request context.
// It never rejects a request; see Guard.
func (s *Sessions) Load() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sess, err := s.store.Get(c.Request(), sessionName)
			if err != nil {
				// Expired file, rotated keys or a forged cookie: treat as anonymous.
				s.logger.Debug("session load", zap.Error(err))
				return next(c)
			}
			if id, ok := sess.Values[trainerIDKey].(int64); ok {
				c.SetRequest(c.Request().WithContext(WithIdentity(c.Request().Context(), id)))
			}
			return next(c)
		}
	}
}

// SetIdentity records trainerID as the session identity under a fresh session id.
func (s *Sessions) SetIdentity(c echo.Context, trainerID int64) error {
	sess, err := s.store.Get(c.Request(), sessionName)
	if err != nil {
		s.logger.Debug("session load", zap.Error(err))
	}
	sess.ID = ""
	sess.Values = map[interface{}]interface{}{trainerIDKey: trainerID}
	return sess.Save(c.Request(), c.Response())
}

// Clear removes the session identity. It succeeds whether or not one was set.
func (s *Sessions) Clear(c echo.Context) error {
	sess, err := s.store.Get(c.Request(), sessionName)
	if err != nil {
		s.logger.Debug("session load", zap.Error(err))
	}
	sess.Values = map[interface{}]interface{}{}

	opts := *sess.Options
	opts.MaxAge = -1
	if sess.IsNew {
		http.SetCookie(c.Response(), sessions.NewCookie(sess.Name(), "", &opts))
		return nil
	}
	sess.Options = &opts
	if err := sess.Save(c.Request(), c.Response()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
