package middleware

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireRole n'autorise que les rôles listés. À chaîner après
// AuthRequired, qui a déjà placé le rôle vérifié dans le contexte.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString("role")
		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}

		log.Printf("🚫 Rôle refusé: %s pour %s %s", role, c.Request.Method, c.FullPath())
		c.JSON(http.StatusForbidden, gin.H{
			"error":          "Rôle insuffisant",
			"required_roles": roles,
		})
		c.Abort()
	}
}
