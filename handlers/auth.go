package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/SkillsGen/trainers/auth"
	mw "github.com/SkillsGen/trainers/middleware"
)

type credentials struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// LoginForm renders the login page.
func (h *Handler) LoginForm(c echo.Context) error {
	return c.Render(http.StatusOK, "login.html", h.pageData(c, page{
		Title: "Log in",
		Next:  c.QueryParam("next"),
	}))
}

// Login checks the posted credentials. On success the session carries the
// trainer id and the browser goes to next, when local, or to the schedule.
func (h *Handler) Login(c echo.Context) error {
	next := c.FormValue("next")

	id, err := h.auth.Login(c.Request().Context(), c.FormValue("username"), c.FormValue("password"))
	if err != nil {
		if msg := auth.Message(err); msg != "" {
			return c.Render(http.StatusOK, "login.html", h.pageData(c, page{
				Title:   "Log in",
				Message: msg,
				Next:    next,
			}))
		}
		return internal(err)
	}

	if err := h.sessions.SetIdentity(c, id); err != nil {
		return internal(err)
	}
	return c.Redirect(http.StatusFound, mw.SafeNext(next, "/"))
}

// Logout clears the session, whether or not there was one, and returns to the login page.
func (h *Handler) Logout(c echo.Context) error {
	if err := h.sessions.Clear(c); err != nil {
		return internal(err)
	}
	return c.Redirect(http.StatusFound, mw.LoginPath)
}

// Signin validates credentials and returns a JWT token valid for 30 days.
func (h *Handler) Signin(c echo.Context) error {
	var creds credentials
	if err := c.Bind(&creds); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	id, err := h.auth.Login(c.Request().Context(), creds.Username, creds.Password)
	if err != nil {
		if msg := auth.Message(err); msg != "" {
			return echo.NewHTTPError(http.StatusUnauthorized, msg)
		}
		return internal(err)
	}

	token, err := mw.IssueToken(id, strings.TrimSpace(creds.Username), h.jwtKey, time.Now())
	if err != nil {
		return internal(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"token": token})
}
