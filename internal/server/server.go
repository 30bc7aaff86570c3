package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Host string
	Port int

	// Mount is the URL prefix the artifact directory is served under.
	Mount string
	Dir   string
	Logf  func(format string, args ...any)
}

func (c Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port out of range: %d", c.Port)
	}
	st, err := os.Stat(c.Dir)
	if err != nil {
		return fmt.Errorf("stat out dir: %w", err)
	}
	if !st.IsDir() {
		return fmt.Errorf("out dir %s is not a directory", c.Dir)
	}
	return nil
}

// Server exposes the artifact directory read-only and pushes reload
// notifications to websocket clients.
type Server struct {
	cfg   Config
	mount string
	hub   *Hub
	logf  func(format string, args ...any)
}

func New(cfg Config) *Server {
	logf := cfg.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &Server{
		cfg:   cfg,
		mount: cleanMount(cfg.Mount),
		hub:   NewHub(logf),
		logf:  logf,
	}
}

func cleanMount(m string) string {
	m = path.Clean("/" + strings.TrimSpace(m))
	if m == "/" {
		return m
	}
	return m + "/"
}

func (s *Server) Addr() string {
	return net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	files := http.StripPrefix(strings.TrimSuffix(s.mount, "/"), http.FileServer(http.Dir(s.cfg.Dir)))
	mux.Handle(s.mount, cors(readOnly(noCache(files))))
	mux.Handle("/ws", s.hub)
	return mux
}

// Notify tells connected clients which artifacts changed, as URLs under the
// mount.
func (s *Server) Notify(artifacts []string) {
	urls := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		urls = append(urls, s.artifactURL(a))
	}
	s.hub.Broadcast(Message{Type: "reload", Artifacts: urls})
}

func (s *Server) artifactURL(p string) string {
	rel, err := filepath.Rel(s.cfg.Dir, p)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = filepath.Base(p)
	}
	return path.Join(s.mount, filepath.ToSlash(rel))
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logf("serving %s at http://%s%s", s.cfg.Dir, s.Addr(), s.mount)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "*")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func readOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD, OPTIONS")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Artifacts are rewritten in place on rebuild.
func noCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		next.ServeHTTP(w, r)
	})
}
