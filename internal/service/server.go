package service

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Server runs the irrad-data HTTP API.
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
}

func NewServer(addr string, handler http.Handler, logger *zap.Logger) *Server {
	s := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		// xlsx reports and attachment downloads stream larger bodies
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  time.Minute,
	}
	return &Server{httpServer: s, logger: logger}
}

func (s *Server) Addr() string { return s.httpServer.Addr }

func (s *Server) Start() error {
	s.logger.Info("Starting irrad-data HTTP server", zap.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping irrad-data HTTP server")
	return s.httpServer.Shutdown(ctx)
}
