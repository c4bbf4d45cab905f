package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"realtime-chess/internal/api/ws"
	"realtime-chess/internal/session"
)

func NewRouter(reg *session.Registry, hub *ws.Hub) *gin.Engine {
	r := gin.Default()

	// Realtime protocol
	r.GET("/ws", hub.HandleWS)

	// REST surface
	r.GET("/healthz", HealthzHandler)
	r.GET("/games", ListGamesHandler(reg))

	// Operational
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}
