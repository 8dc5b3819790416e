package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	ActorHeader = "X-Actor"
	actorKey    = "actor"
	defaultUser = "anonymous"
)

// Actor records who performed a request for the audit trail. Authentication
// happens upstream; the gateway forwards the operator name in X-Actor.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := strings.TrimSpace(c.GetHeader(ActorHeader))
		if actor == "" {
			actor = defaultUser
		}
		if len(actor) > 100 {
			actor = actor[:100]
		}
		c.Set(actorKey, actor)
		c.Next()
	}
}

// GetActor returns the actor stored by Actor.
func GetActor(c *gin.Context) string {
	if actor := c.GetString(actorKey); actor != "" {
		return actor
	}
	return defaultUser
}
