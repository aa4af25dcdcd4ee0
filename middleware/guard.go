package middleware

import (
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
)

// LoginPath is where unauthenticated requests are sent.
const LoginPath = "/login"

// Policy decides where a request without a session identity is redirected.
type Policy int

const (
	// ForwardThenRedirect sends the user to the login page carrying the
	// requested URL in ?next= so login can return them there.
	ForwardThenRedirect Policy = iota
	// RedirectOnly sends the user to the bare login page.
	RedirectOnly
)

// Redirect returns the login URL for a request to requestURI under p.
func (p Policy) Redirect(requestURI string) string {
	if p == ForwardThenRedirect && requestURI != "" {
		return LoginPath + "?" + url.Values{"next": {requestURI}}.Encode()
	}
	return LoginPath
}

// Guard lets requests carrying a session identity through untouched and
// redirects the rest according to p.
func Guard(p Policy) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := IdentityFrom(c.Request().Context()); ok {
				return next(c)
			}
			return c.Redirect(http.StatusFound, p.Redirect(c.Request().RequestURI))
		}
	}
}

// SafeNext returns next when it is a path on this site, otherwise fallback.
func SafeNext(next, fallback string) string {
	if next == "" {
		return fallback
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" || u.User != nil {
		return fallback
	}
	if len(next) < 1 || next[0] != '/' || (len(next) > 1 && (next[1] == '/' || next[1] == '\\')) {
		return fallback
	}
	return next
}
