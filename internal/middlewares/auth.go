package middlewares

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/jalvirtual/acars-dispatch/pkg/response"
)

const (
	APIKeyHeader = "x-acars-auth-key"
	bearerPrefix = "Bearer "
)

func secureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// requestKey reads the dashboard key from x-acars-auth-key, falling back to
// an Authorization bearer token.
func requestKey(r *http.Request) string {
	if key := r.Header.Get(APIKeyHeader); key != "" {
		return key
	}
	if auth := r.Header.Get(echo.HeaderAuthorization); strings.HasPrefix(auth, bearerPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(auth, bearerPrefix))
	}
	return ""
}

// APIKeyAuth guards the dispatch API. CORS preflight requests pass through
// so the dashboard can discover the allowed headers.
func APIKeyAuth(apiKey string) echo.MiddlewareFunc {
	if apiKey == "" {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				return response.InternalServerError(
					c,
					fmt.Errorf("API key is not configured for the dispatch API"),
				)
			}
		}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Method == http.MethodOptions {
				return next(c)
			}

			token := requestKey(c.Request())
			if token == "" || !secureCompare(token, apiKey) {
				return response.Unauthorized(c)
			}

			return next(c)
		}
	}
}
