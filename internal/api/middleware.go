package api

import (
	"crypto/subtle"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
)

// sameOriginCORS allows CORS requests only from the same host the server is
// accessed on, so a dev-server UI on a different port can still call the
// API while cross-host requests are blocked. Adapted verbatim from the
// teacher's api/middleware.SameOriginCORS.
func sameOriginCORS() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			origin := c.Request().Header.Get("Origin")
			if origin == "" {
				return next(c)
			}

			originURL, err := url.Parse(origin)
			if err != nil {
				return next(c)
			}

			requestHost := c.Request().Host
			requestHostname := requestHost
			if idx := strings.LastIndex(requestHost, ":"); idx != -1 {
				requestHostname = requestHost[:idx]
			}

			if originURL.Hostname() == requestHostname {
				h := c.Response().Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
				h.Set("Access-Control-Allow-Credentials", "true")

				if c.Request().Method == http.MethodOptions {
					return c.NoContent(http.StatusNoContent)
				}
			}

			return next(c)
		}
	}
}

// securityHeaders sets standard hardening headers on every response.
// Adapted verbatim from the teacher's api/middleware.SecurityHeaders.
func securityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "SAMEORIGIN")
			h.Set("X-XSS-Protection", "1; mode=block")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Content-Security-Policy", "frame-ancestors 'self'")
			if strings.HasPrefix(c.Request().URL.Path, "/api") {
				h.Set("Cache-Control", "no-store, no-cache, must-revalidate, private")
				h.Set("Pragma", "no-cache")
			}
			return next(c)
		}
	}
}

// bearerAuth rejects any request whose Authorization header does not carry
// the configured API key as a Bearer token (§6). Constant-time compare
// avoids leaking the key length/prefix through response timing.
func bearerAuth(apiKey string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := extractBearerToken(c)
			if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing or invalid api key")
			}
			return next(c)
		}
	}
}

// queryKeyAuth is bearerAuth's counterpart for the websocket upgrade route,
// which browsers cannot attach an Authorization header to.
func queryKeyAuth(apiKey string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := c.QueryParam("token")
			if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing or invalid api key")
			}
			return next(c)
		}
	}
}

func extractBearerToken(c echo.Context) string {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}
