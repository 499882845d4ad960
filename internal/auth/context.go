package auth

import (
	"github.com/gin-gonic/gin"
)

// ContextClaims is the gin context key holding the validated *Claims.
const ContextClaims = "auth_claims"

// MustClaims returns the claims set by the JWT middleware. Panics if called
// on a route outside the authenticated group.
func MustClaims(c *gin.Context) *Claims {
	return c.MustGet(ContextClaims).(*Claims)
}

// ClaimsFrom returns the claims if present.
func ClaimsFrom(c *gin.Context) (*Claims, bool) {
	v, ok := c.Get(ContextClaims)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*Claims)
	return claims, ok
}
