package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/helpdeck/helpdeck/internal/shared/config"
	"github.com/helpdeck/helpdeck/internal/shared/constants"
)

// CORS returns a Gin middleware for handling Cross-Origin Resource Sharing.
// The allowed origin is echoed back only when it matches the allowlist
// exactly; a wildcard is never emitted.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get(constants.HeaderOrigin)

		// Cross-origin responses carry no CORS headers at all unless the
		// origin is on the allowlist.
		if allowed := getAllowedOrigin(origin, allowedOrigins); allowed != "" {
			c.Header("Access-Control-Allow-Origin", allowed)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Accept, Origin, Cache-Control, X-Requested-With, X-Request-ID, X-Session-ID, X-Token-ID, X-2FA-Token")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, PATCH, OPTIONS")
			c.Header("Access-Control-Expose-Headers", "Content-Length, X-Request-ID")
			c.Header("Access-Control-Max-Age", "86400")
		}

		// Handle preflight requests
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// getAllowedOrigin returns the allowed origin based on the request origin
func getAllowedOrigin(origin string, allowedOrigins []string) string {
	for _, allowedOrigin := range allowedOrigins {
		if origin == allowedOrigin {
			return origin
		}
	}

	// Origin not in whitelist, return empty string to reject the request
	return ""
}

// SecurityHeaders returns a middleware that stamps the security header set
// on every response, denials and errors included.
func SecurityHeaders(cfg *config.SecurityConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", cfg.ContentSecurityPolicy)
		c.Header("Strict-Transport-Security", cfg.StrictTransportSecurity)
		c.Header("Permissions-Policy", cfg.PermissionsPolicy)

		c.Next()
	}
}
