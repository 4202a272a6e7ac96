// Package server exposes the genre classifier over HTTP.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"GenreFM/config"
	"GenreFM/logger"

	"github.com/gorilla/mux"
)

// NewRouter registers every route on a gorilla/mux router. CORS and request
// logging wrap the router so preflight requests never reach route matching.
func NewRouter(h *APIHandler, webAppDir string) http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/predict", h.PredictHandler).Methods(http.MethodPost)
	router.HandleFunc("/healthz", h.HealthHandler).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/genres", h.GenresHandler).Methods(http.MethodGet)
	api.HandleFunc("/model", h.ModelHandler).Methods(http.MethodGet)
	api.HandleFunc("/classifications", h.ClassificationsHandler).Methods(http.MethodGet)
	api.HandleFunc("/classifications/stats", h.ClassificationStatsHandler).Methods(http.MethodGet)
	api.HandleFunc("/classifications/{id}", h.ClassificationHandler).Methods(http.MethodGet)
	api.HandleFunc("/classifications/{id}/audio", h.ArchiveHandler).Methods(http.MethodGet)

	// Upload page
	router.PathPrefix("/").Handler(http.FileServer(http.Dir(webAppDir))).Methods(http.MethodGet, http.MethodHead)

	return loggingMiddleware(corsMiddleware(router))
}

// Server is the HTTP front end.
type Server struct {
	cfg  *config.Config
	http *http.Server
}

// New creates a server for h listening on cfg.ServerAddr.
func New(cfg *config.Config, h *APIHandler) *Server {
	return &Server{
		cfg: cfg,
		http: &http.Server{
			Addr:         cfg.ServerAddr,
			Handler:      NewRouter(h, cfg.WebAppDir),
			ReadTimeout:  60 * time.Second,
			WriteTimeout: 5 * time.Minute, // decoding and extraction of long files
			IdleTimeout:  120 * time.Second,
		},
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully within
// cfg.ShutdownTimeout.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", logger.String("addr", ln.Addr().String()))
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
