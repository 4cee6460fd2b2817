package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/st3fan/kickoff/pkg/core"
	"github.com/st3fan/kickoff/pkg/registry"
)

// Server exposes an index directory over HTTP for Client
type Server struct {
	reg    *registry.Registry
	logger *log.Logger
	router *mux.Router
}

// NewServer creates a server for the index in reg
func NewServer(reg *registry.Registry, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	s := &Server{reg: reg, logger: logger}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.health).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/packages", s.listPackages).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/packages/{name}", s.getEntry).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/packages/{name}/{version}", s.getRelease).Methods(http.MethodGet)
	r.HandleFunc("/files/{name}/{file}", s.getFile).Methods(http.MethodGet, http.MethodHead)
	s.router = r

	return s
}

// Handler returns the HTTP handler of the server
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Printf("Serving index %s on %s", s.reg.Name(), addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to listen and serve: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) listPackages(w http.ResponseWriter, r *http.Request) {
	names, err := s.reg.Names()
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	s.respondJSON(w, names)
}

func (s *Server) getEntry(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.loadEntry(w, r)
	if !ok {
		return
	}
	s.respondJSON(w, entry)
}

func (s *Server) getRelease(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.loadEntry(w, r)
	if !ok {
		return
	}

	version, err := url.PathUnescape(mux.Vars(r)["version"])
	if err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Errorf("failed to unescape 'version' parameter: %w", err))
		return
	}

	rel, found := entry.Release(version)
	if !found {
		s.respondError(w, http.StatusNotFound, fmt.Errorf("release %s of %s not found", version, entry.Name))
		return
	}
	s.respondJSON(w, rel)
}

func (s *Server) getFile(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	name, err := url.PathUnescape(vars["name"])
	if err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Errorf("failed to unescape 'name' parameter: %w", err))
		return
	}
	file, err := url.PathUnescape(vars["file"])
	if err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Errorf("failed to unescape 'file' parameter: %w", err))
		return
	}
	if file == "." || file == ".." || file == registry.EntryFile || strings.ContainsAny(file, `/\`) {
		s.respondError(w, http.StatusNotFound, fmt.Errorf("file %q not found", file))
		return
	}

	dir, err := s.reg.EntryDir(name)
	if err != nil {
		s.respondError(w, statusFor(err), err)
		return
	}

	path := filepath.Join(dir, file)
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		s.respondError(w, http.StatusNotFound, fmt.Errorf("file %s of %s not found", file, name))
		return
	}

	http.ServeFile(w, r, path)
}

func (s *Server) loadEntry(w http.ResponseWriter, r *http.Request) (*registry.Entry, bool) {
	name, err := url.PathUnescape(mux.Vars(r)["name"])
	if err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Errorf("failed to unescape 'name' parameter: %w", err))
		return nil, false
	}

	entry, err := s.reg.Load(name)
	if err != nil {
		s.respondError(w, statusFor(err), err)
		return nil, false
	}
	return entry, true
}

func (s *Server) respondJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Printf("Error writing response: %v", err)
	}
}

// respondError logs the error and writes it with the given status code
func (s *Server) respondError(w http.ResponseWriter, statusCode int, err error) {
	s.logger.Println(err)
	http.Error(w, fmt.Sprintf("ERROR: %s", err.Error()), statusCode)
}

func statusFor(err error) int {
	if errors.Is(err, core.ErrDependencyUnavailable) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
