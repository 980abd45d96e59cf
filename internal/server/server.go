// Package server exposes scans over HTTP.
//
//	GET  /healthz
//	GET  /engines
//	GET  /databases
//	POST /databases/{name}/scan[?export=true]
//	GET  /databases/{name}/snapshots
//	GET  /databases/{name}/snapshots/latest
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/koustreak/tablescan/internal/discovery"
	"github.com/koustreak/tablescan/internal/errs"
	"github.com/koustreak/tablescan/internal/filestore"
	"github.com/koustreak/tablescan/internal/logger"
	"github.com/koustreak/tablescan/internal/scanner"
)

const shutdownTimeout = 15 * time.Second

// Server serves the HTTP API on top of a Scanner.
type Server struct {
	scanner *scanner.Scanner
	log     *logger.Logger
}

// New returns a Server.
func New(sc *scanner.Scanner, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	return &Server{scanner: sc, log: log}
}

// Routes returns the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.health)
	r.Get("/engines", s.engines)
	r.Route("/databases", func(r chi.Router) {
		r.Get("/", s.databases)
		r.Route("/{name}", func(r chi.Router) {
			r.Post("/scan", s.scan)
			r.Get("/snapshots", s.snapshots)
			r.Get("/snapshots/latest", s.latest)
		})
	})
	return r
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.InfoWith("server listening", map[string]interface{}{"addr": addr})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) respond(r *http.Request, w http.ResponseWriter, status int, data interface{}) {
	if err := writeJSON(w, status, data); err != nil {
		logger.FromContext(r.Context()).WarnWith("encode response failed", err, nil)
	}
}

func (s *Server) fail(r *http.Request, w http.ResponseWriter, err error) {
	logger.FromContext(r.Context()).WarnWith("request failed", err, map[string]interface{}{
		"path": r.URL.Path,
	})
	if err := writeError(w, err); err != nil {
		logger.FromContext(r.Context()).WarnWith("encode error response failed", err, nil)
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.respond(r, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) engines(w http.ResponseWriter, r *http.Request) {
	s.respond(r, w, http.StatusOK, discovery.Engines())
}

func (s *Server) databases(w http.ResponseWriter, r *http.Request) {
	s.respond(r, w, http.StatusOK, s.scanner.Databases())
}

type scanResponse struct {
	Database string                `json:"database"`
	Engine   string                `json:"engine"`
	ScanID   string                `json:"scan_id"`
	Count    int                   `json:"count"`
	Tables   *discovery.Inventory  `json:"tables"`
	Object   *filestore.ObjectInfo `json:"object,omitempty"`
}

func (s *Server) scan(w http.ResponseWriter, r *http.Request) {
	export := false
	if v := r.URL.Query().Get("export"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			s.fail(r, w, errs.Wrap(errs.ErrKindInvalidInput, "invalid export parameter", err))
			return
		}
		export = b
	}

	res, err := s.scanner.Scan(r.Context(), chi.URLParam(r, "name"), export)
	if err != nil {
		s.fail(r, w, err)
		return
	}

	snap := res.Snapshot
	s.respond(r, w, http.StatusOK, scanResponse{
		Database: snap.Database,
		Engine:   snap.Engine,
		ScanID:   snap.ScanID,
		Count:    snap.Count,
		Tables:   snap.Tables,
		Object:   res.Object,
	})
}

func (s *Server) snapshots(w http.ResponseWriter, r *http.Request) {
	pub := s.scanner.Publisher()
	if pub == nil {
		s.fail(r, w, errs.New(errs.ErrKindNotFound, "export is not configured"))
		return
	}
	objs, err := pub.List(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.fail(r, w, err)
		return
	}
	if objs == nil {
		objs = []filestore.ObjectInfo{}
	}
	s.respond(r, w, http.StatusOK, objs)
}

func (s *Server) latest(w http.ResponseWriter, r *http.Request) {
	pub := s.scanner.Publisher()
	if pub == nil {
		s.fail(r, w, errs.New(errs.ErrKindNotFound, "export is not configured"))
		return
	}
	snap, err := pub.Latest(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.fail(r, w, err)
		return
	}
	s.respond(r, w, http.StatusOK, snap)
}
