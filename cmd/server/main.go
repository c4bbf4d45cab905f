package main

import (
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	httpapi "realtime-chess/internal/api/http"
	"realtime-chess/internal/api/ws"
	"realtime-chess/internal/config"
	"realtime-chess/internal/game"
	"realtime-chess/internal/session"
	"realtime-chess/internal/store"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	mem := store.NewMemoryStore()
	reg := session.NewRegistry(mem)
	coord := game.NewCoordinator(reg, cfg.GracePeriod)
	hub := ws.NewHub(cfg.AllowedOrigin)
	hub.SetCoordinator(coord)
	coord.SetBroadcaster(hub)

	r := httpapi.NewRouter(reg, hub)

	log.Info().Str("addr", cfg.HTTPAddr).Dur("grace_period", cfg.GracePeriod).Msg("listening")
	if err := r.Run(cfg.HTTPAddr); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
