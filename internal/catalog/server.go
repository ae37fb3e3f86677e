// Package catalog serves built skill archives and their metadata over HTTP.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"agileskills/internal/logging"
	"agileskills/internal/packager"
	"agileskills/internal/skill"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Server exposes a dist directory.
type Server struct {
	// DistDir holds manifest.json and the archives.
	DistDir string
	// SkillsDir, when set, is used to attach front-matter to skill entries.
	SkillsDir       string
	ShutdownTimeout time.Duration
	Logger          *zap.Logger
}

// SkillList is the response for the skill listing.
type SkillList struct {
	BuildID string             `json:"build_id"`
	Version string             `json:"version"`
	Skills  []packager.Archive `json:"skills"`
}

// SkillEntry is the response for a single skill.
type SkillEntry struct {
	packager.Archive
	Version     string         `json:"version"`
	Description string         `json:"description,omitempty"`
	Model       string         `json:"model,omitempty"`
	Extra       map[string]any `json:"extra,omitempty"`
}

func (s *Server) logger() *zap.Logger {
	return logging.Named(s.Logger, logging.CategoryServe)
}

// Router returns the HTTP routes.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/skills", s.handleList).Methods(http.MethodGet)
	r.HandleFunc("/api/skills/{name}", s.handleSkill).Methods(http.MethodGet)
	r.HandleFunc("/download/{name:[a-z0-9-]+}.zip", s.handleDownload).Methods(http.MethodGet)
	r.Use(s.logRequests)
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger().Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(start)))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	m, err := packager.ReadManifest(s.DistDir)
	if err != nil {
		s.logger().Error("failed to load manifest", zap.Error(err))
		http.Error(w, "manifest unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, SkillList{BuildID: m.BuildID, Version: m.Version, Skills: m.SkillArchives()})
}

func (s *Server) handleSkill(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	m, err := packager.ReadManifest(s.DistDir)
	if err != nil {
		http.Error(w, "manifest unavailable", http.StatusServiceUnavailable)
		return
	}
	a, ok := m.FindSkill(name)
	if !ok {
		http.Error(w, fmt.Sprintf("skill %q not found", name), http.StatusNotFound)
		return
	}

	entry := SkillEntry{Archive: a, Version: m.Version}
	if s.SkillsDir != "" {
		if sk, err := skill.Parse(filepath.Join(s.SkillsDir, name, skill.FileName)); err == nil {
			entry.Description = sk.Description
			entry.Model = sk.Model
			entry.Extra = sk.Extra
		}
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	path := filepath.Join(s.DistDir, "skills", name+".zip")
	if _, err := os.Stat(path); err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+".zip"))
	http.ServeFile(w, r, path)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves on an existing listener.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger().Info("catalog listening", zap.String("addr", ln.Addr().String()), zap.String("dist", s.DistDir))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := s.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	<-errCh
	s.logger().Info("catalog stopped")
	return nil
}
