// Package server serves the interactive page together with a small JSON API
// that runs the same click handlers server-side, so scripts and the terminal
// viewer's users can drive a shared session.
//
//	GET  /                    interactive page
//	GET  /api/elements        graph elements (visible only with ?visible=1)
//	GET  /api/state           session state
//	POST /api/click/{id}      run the click handlers on a node
//	GET  /api/tooltip/{id}    hover text of a node
//	POST /api/reset           show everything and clear the highlight
//	GET  /healthz             liveness
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/supplyviz/pkg/config"
	"github.com/vanderheijden86/supplyviz/pkg/debug"
	"github.com/vanderheijden86/supplyviz/pkg/elements"
	"github.com/vanderheijden86/supplyviz/pkg/export"
	"github.com/vanderheijden86/supplyviz/pkg/interact"
)

// ShutdownTimeout bounds how long in-flight requests may run after the
// context passed to Serve is cancelled.
const ShutdownTimeout = 5 * time.Second

// Options configure a Server.
type Options struct {
	Config config.Config
	Title  string
}

// Server holds one session and the page rendered for it.
type Server struct {
	opts Options

	mu      sync.RWMutex
	session *interact.Session
	page    string
	loaded  time.Time
}

// New renders the page for e and starts a fresh session.
func New(e elements.Elements, opts Options) (*Server, error) {
	s := &Server{opts: opts}
	if err := s.Reload(e); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload swaps in new elements. Session state is carried over for the ids
// that still exist.
func (s *Server) Reload(e elements.Elements) error {
	sess, err := interact.NewSession(e, interactOptions(s.opts.Config))
	if err != nil {
		return err
	}
	page, err := export.RenderInteractiveHTML(export.InteractiveGraphOptions{
		Elements: e,
		Config:   s.opts.Config,
		Title:    s.opts.Title,
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != nil {
		if dropped, err := sess.Restore(s.session.Snapshot()); err != nil {
			sess.Reset()
		} else {
			debug.LogIf(len(dropped) > 0, "server: reload dropped %d stale ids", len(dropped))
		}
	}
	s.session, s.page, s.loaded = sess, page, time.Now()
	return nil
}

func interactOptions(cfg config.Config) interact.Options {
	if len(cfg.Interaction.ToggleClasses) == 0 && len(cfg.Interaction.TooltipClasses) == 0 {
		return interact.DefaultOptions()
	}
	return interact.Options{
		ToggleClasses:  cfg.Interaction.ToggleClasses,
		TooltipClasses: cfg.Interaction.TooltipClasses,
	}
}

// Session returns the current session.
func (s *Server) Session() *interact.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// Handler returns the routes with request logging applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handlePage)
	mux.HandleFunc("GET /api/elements", s.handleElements)
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("POST /api/click/{id}", s.handleClick)
	mux.HandleFunc("GET /api/tooltip/{id}", s.handleTooltip)
	mux.HandleFunc("POST /api/reset", s.handleReset)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return logRequests(mux)
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
// ready, when non-nil, receives the bound address once listening.
func (s *Server) Serve(ctx context.Context, addr string, ready func(net.Addr)) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if ready != nil {
		ready(ln.Addr())
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) handlePage(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	page, loaded := s.page, s.loaded
	s.mu.RUnlock()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Last-Modified", loaded.UTC().Format(http.TimeFormat))
	_, _ = w.Write([]byte(page))
}

func (s *Server) handleElements(w http.ResponseWriter, r *http.Request) {
	sess := s.Session()
	e := sess.Index().Elements()
	if r.URL.Query().Get("visible") == "1" {
		e = sess.Visible()
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Session().Snapshot())
}

// clickResponse pairs what changed with the resulting state, so a client can
// repaint without a second request.
type clickResponse struct {
	Result interact.ClickResult `json:"result"`
	State  interact.State       `json:"state"`
}

func (s *Server) handleClick(w http.ResponseWriter, r *http.Request) {
	sess := s.Session()
	res, err := sess.Click(r.PathValue("id"))
	if err != nil {
		writeError(w, r, statusFor(err), "click failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, clickResponse{Result: res, State: sess.Snapshot()})
}

func (s *Server) handleTooltip(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sess := s.Session()
	if !sess.Index().IsNode(id) {
		writeError(w, r, http.StatusNotFound, "unknown element", id)
		return
	}
	text, ok := sess.Tooltip(id)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "tooltip": text})
}

func (s *Server) handleReset(w http.ResponseWriter, _ *http.Request) {
	sess := s.Session()
	sess.Reset()
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func statusFor(err error) int {
	if errors.Is(err, interact.ErrUnknownElement) {
		return http.StatusNotFound
	}
	return http.StatusBadRequest
}

// problem is an RFC 7807 error body.
type problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(problem{
		Type:     "about:blank",
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: r.URL.Path,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		debug.Log("server: encode response: %v", err)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !debug.Enabled() {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		debug.Log("server: %s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Microsecond))
	})
}
