package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cwbutler6/greekdash/internal/auth"
	"github.com/cwbutler6/greekdash/pkg/response"
)

// JWT returns a middleware that validates the bearer token and stores claims
// in the gin context. Missing or invalid sessions get a 401 with a login
// redirect hint; no request proceeds unauthenticated.
func JWT(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.UnauthorizedRedirect(c, "missing authorization header", "/login")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.UnauthorizedRedirect(c, "invalid authorization header", "/login")
			c.Abort()
			return
		}
		claims, err := jwtService.Validate(parts[1])
		if err != nil {
			response.UnauthorizedRedirect(c, "invalid or expired token", "/login")
			c.Abort()
			return
		}
		c.Set(auth.ContextClaims, claims)
		c.Next()
	}
}
