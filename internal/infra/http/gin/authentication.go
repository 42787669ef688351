package ginserver

import (
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"weekrent/internal/app/middleware"
)

const (
	principalContextKey = "weekrent.principal"
	userIDHeader        = "X-User-ID"
	userRolesHeader     = "X-User-Roles"
)

// HeaderAuthentication trusts the identity headers set by the gateway in front of the API.
// Anonymous requests still carry an empty principal so the command pipeline does not
// mistake them for internal callers.
type HeaderAuthentication struct{}

func (HeaderAuthentication) Handle(c *gin.Context) {
	p := middleware.Principal{ID: strings.TrimSpace(c.GetHeader(userIDHeader))}
	if p.ID != "" {
		for _, role := range strings.Split(c.GetHeader(userRolesHeader), ",") {
			if role = strings.ToLower(strings.TrimSpace(role)); role != "" {
				p.Roles = append(p.Roles, role)
			}
		}
		c.Set(principalContextKey, p)
	}
	c.Request = c.Request.WithContext(middleware.ContextWithPrincipal(c.Request.Context(), p))
	c.Next()
}

func currentPrincipal(c *gin.Context) (middleware.Principal, bool) {
	val, exists := c.Get(principalContextKey)
	if !exists {
		return middleware.Principal{}, false
	}
	p, ok := val.(middleware.Principal)
	return p, ok
}

func requireRole(c *gin.Context, role string) (middleware.Principal, bool) {
	p, ok := currentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "auth required"})
		return middleware.Principal{}, false
	}
	if role != "" && !p.HasRole(role) {
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
		return middleware.Principal{}, false
	}
	return p, true
}
