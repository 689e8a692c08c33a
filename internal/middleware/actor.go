package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/hzzxn/app-stock/internal/model"
)

const (
	// ActorKey is the gin context key holding the acting username.
	ActorKey = "actor"
	// ActorRoleKey is the gin context key holding the actor's role.
	ActorRoleKey = "actor_role"
)

// Actor resolves who is performing the request from the X-Actor and
// X-Actor-Role headers set by the front desk client. Unknown or missing
// roles fall back to operator, the restricted one.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := c.GetHeader("X-Actor")
		if actor == "" {
			actor = "anonymous"
		}
		role := model.RoleOperator
		if model.Role(c.GetHeader("X-Actor-Role")) == model.RoleAdmin {
			role = model.RoleAdmin
		}
		c.Set(ActorKey, actor)
		c.Set(ActorRoleKey, role)
		c.Next()
	}
}

// GetActor returns the acting username for the request.
func GetActor(c *gin.Context) string {
	return c.GetString(ActorKey)
}

// GetRole returns the actor's role for the request.
func GetRole(c *gin.Context) model.Role {
	if r, ok := c.Get(ActorRoleKey); ok {
		if role, ok := r.(model.Role); ok {
			return role
		}
	}
	return model.RoleOperator
}
