package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"realtime-chess/internal/session"
)

// HealthzHandler reports process liveness.
func HealthzHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ListGamesHandler returns the lobby snapshot as JSON, same shape as the
// gamesList websocket event.
func ListGamesHandler(reg *session.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, reg.List())
	}
}
