// Package web serves the tappie status page: an HTML overview for people
// and JSON for scripts on the host.
package web

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sweeney/tappie/internal/status"
)

// Server serves read-only views of the status tracker.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
}

// New creates a Server on addr. Nothing listens until ListenAndServe is
// called.
func New(addr string, tracker *status.Tracker) *Server {
	s := &Server{tracker: tracker}
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.routes(),
	}
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /index.html", s.handleIndex)
	mux.HandleFunc("GET /index.json", s.jsonHandler(status.FormatJSON))
	mux.HandleFunc("GET /history.json", s.jsonHandler(status.FormatHistoryJSON))
	return mux
}

// ListenAndServe blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := renderHTML(w, snap); err != nil {
		slog.Warn("render status page failed", "error", err)
	}
}

// jsonHandler serves one JSON view of the current snapshot. Every request
// reads a fresh snapshot; position changes every poll.
func (s *Server) jsonHandler(format func(status.Snapshot) []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		w.Write(format(s.tracker.Snapshot()))
	}
}
