package routes

import (
	"net/http"

	"taskdeck/taskdeck/services"

	"github.com/gin-gonic/gin"
)

// RegisterEventRoutes exposes the live event stream. Websocket clients
// pass their token as a query parameter, so auth happens in the handler
// instead of the bearer-header middleware.
func RegisterEventRoutes(router *gin.Engine, authService services.AuthServiceInterface, eventStream services.EventStreamServiceInterface) {
	router.GET("/api/v1/events", func(c *gin.Context) {
		tokenString := c.Query("token")
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		claims, err := authService.ValidateToken(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		eventStream.HandleConnection(c, claims.UserID)
	})
}
