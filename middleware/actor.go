package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ridelink/models"
)

const (
	ActorIDKey   = "actorID"
	ActorRoleKey = "actorRole"
)

// ActorMiddleware reads the caller identity the API gateway stamps on every
// request. Authentication itself happens upstream; these headers are trusted.
func ActorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Actor-ID")
		role := models.ActorRole(c.GetHeader("X-Actor-Role"))
		if id == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing X-Actor-ID header"})
			return
		}
		switch role {
		case models.RoleCustomer, models.RoleProvider, models.RoleSystem:
		default:
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid X-Actor-Role header"})
			return
		}
		c.Set(ActorIDKey, id)
		c.Set(ActorRoleKey, role)
		c.Next()
	}
}

// Actor returns the request's actor identity set by ActorMiddleware.
func Actor(c *gin.Context) (string, models.ActorRole) {
	id := c.GetString(ActorIDKey)
	role, _ := c.Get(ActorRoleKey)
	r, _ := role.(models.ActorRole)
	return id, r
}

// RequireRole rejects callers whose role is not in the allowed set.
func RequireRole(roles ...models.ActorRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, role := Actor(c)
		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "role not permitted for this operation"})
	}
}
