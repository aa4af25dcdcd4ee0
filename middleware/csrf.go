package middleware

import (
	"net/http"
	"strings"

	"github.com/gorilla/csrf"
	"github.com/labstack/echo/v4"
)

// CSRF protects form posts with gorilla/csrf. Requests under /api/ carry a
// bearer token instead of a cookie and are exempt. When plaintext is set the
// origin checks accept plain-HTTP requests (local development).
func CSRF(authKey []byte, plaintext bool) echo.MiddlewareFunc {
	protect := csrf.Protect(
		authKey,
		csrf.Secure(!plaintext),
		csrf.Path("/"),
		csrf.SameSite(csrf.SameSiteLaxMode),
	)

	return echo.WrapMiddleware(func(next http.Handler) http.Handler {
		protected := protect(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/api/") {
				next.ServeHTTP(w, r)
				return
			}
			if plaintext {
				r = csrf.PlaintextHTTPRequest(r)
			}
			protected.ServeHTTP(w, r)
		})
	})
}
