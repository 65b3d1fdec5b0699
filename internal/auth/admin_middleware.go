package auth

import (
	"net/http"

	"squadup/backend/internal/database"
	"squadup/backend/internal/engine"
	"squadup/backend/internal/models"

	"github.com/gin-gonic/gin"
)

// AdminMiddleware gates a route group to admin accounts. It must run
// after AuthMiddleware, which puts the userID in the context.
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID")
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			return
		}

		var user models.User
		if err := database.DB.First(&user, userID.(uint)).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authenticated user not found"})
			return
		}

		if user.Role != models.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": string(engine.ErrNotAdmin)})
			return
		}

		c.Next()
	}
}
