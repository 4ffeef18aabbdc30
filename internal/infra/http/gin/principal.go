package ginserver

import (
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"
)

const principalContextKey = "staybook.principal"

// principal identifies the authenticated caller. Authentication itself
// happens upstream; the fronting proxy injects identity headers and this
// service trusts them.
type principal struct {
	ID   string
	Role string
}

func (p principal) IsAdmin() bool {
	return strings.EqualFold(p.Role, "admin")
}

// PrincipalMiddleware lifts the proxy identity headers into the request.
func PrincipalMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader("X-User-ID"))
		if id != "" {
			setPrincipal(c, principal{
				ID:   id,
				Role: strings.ToLower(strings.TrimSpace(c.GetHeader("X-User-Role"))),
			})
		}
		c.Next()
	}
}

func setPrincipal(c *gin.Context, p principal) {
	c.Set(principalContextKey, p)
}

func currentPrincipal(c *gin.Context) (principal, bool) {
	val, exists := c.Get(principalContextKey)
	if !exists {
		return principal{}, false
	}
	p, ok := val.(principal)
	return p, ok
}

func requirePrincipal(c *gin.Context) (principal, bool) {
	p, ok := currentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "auth required"})
		return principal{}, false
	}
	return p, true
}
