// Package server is the HTTP front end: thin glue translating requests
// into calls against the session registry, upload coordinator, and
// blob store, plus the HTML listing page.
package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dropzone/internal/blobstore"
	"dropzone/internal/session"
	"dropzone/internal/sweep"
	"dropzone/internal/upload"
)

// Config wires the server's collaborators.
type Config struct {
	Addr        string
	Registry    *session.Registry
	Manager     session.Manager
	Coordinator *upload.Coordinator
	Blobs       blobstore.Store
	Sweeper     *sweep.Sweeper
	TTL         time.Duration
	// MaxUploadBytes bounds how much of each multipart file part is
	// read; the coordinator enforces the same ceiling per file.
	MaxUploadBytes int64
}

type Server struct {
	cfg        Config
	httpServer *http.Server
}

func New(cfg Config) *Server {
	s := &Server{cfg: cfg}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.rootHandler)
	mux.HandleFunc("GET /s/{sid}", s.sessionPageHandler)
	mux.HandleFunc("POST /s/{sid}/files", s.uploadHandler)
	mux.HandleFunc("GET /s/{sid}/f/{id}", s.downloadHandler)
	mux.HandleFunc("POST /admin/sweep", s.sweepHandler)
	mux.HandleFunc("GET /healthz", s.healthHandler)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Wrap middleware: requestID -> logging -> security headers -> mux
	var handler http.Handler = mux
	handler = securityHeadersMiddleware(handler)
	handler = loggingMiddleware(handler)
	handler = requestIDMiddleware(handler)

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler exposes the fully wrapped handler for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.httpServer.Serve(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
