package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/typeduel/typeduel-backend/internal/config"
	"github.com/typeduel/typeduel-backend/internal/game"
	"github.com/typeduel/typeduel-backend/internal/store"
)

type Server struct {
	cfg      *config.Config
	registry *game.Registry
	store    *store.Store // nil when persistence is disabled
	log      zerolog.Logger
}

func New(cfg *config.Config, registry *game.Registry, st *store.Store, log zerolog.Logger) *Server {
	return &Server{
		cfg:      cfg,
		registry: registry,
		store:    st,
		log:      log,
	}
}

// HTTPServer builds the http.Server with the full route set mounted.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%s", s.cfg.Port),
		Handler:      s.RegisterRoutes(),
		ReadTimeout:  10 * time.Second,
		IdleTimeout:  time.Minute,
		WriteTimeout: 30 * time.Second,
	}
}
