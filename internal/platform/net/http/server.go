package http

import (
	"context"
	"errors"
	stdhttp "net/http"
	"time"

	"nexuscalc/internal/platform/config"
	"nexuscalc/internal/platform/logger"

	"github.com/go-chi/chi/v5"
)

// Server owns the root chi mux and the listener
type Server struct {
	addr string
	mux  *chi.Mux
	srv  *stdhttp.Server
}

// NewServer reads API_PORT (default :4000) from cfg
func NewServer(cfg config.Conf) *Server {
	addr := cfg.MayString("API_PORT", ":4000")
	m := chi.NewRouter()
	return &Server{
		addr: addr,
		mux:  m,
		srv: &stdhttp.Server{
			Addr:              addr,
			Handler:           m,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Router returns the mount surface over the root mux
func (s *Server) Router() Router { return AdaptChi(s.mux) }

// Handler is the root handler, for tests and embedding
func (s *Server) Handler() stdhttp.Handler { return s.mux }

// Addr is the listen address
func (s *Server) Addr() string { return s.addr }

// Run serves until Shutdown; a clean shutdown returns nil
func (s *Server) Run(context.Context) error {
	logger.Named("http").Info().Str("addr", s.addr).Msg("http listening")
	if err := s.srv.ListenAndServe(); !errors.Is(err, stdhttp.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in flight requests until ctx ends
func (s *Server) Shutdown(ctx context.Context) error { return s.srv.Shutdown(ctx) }
