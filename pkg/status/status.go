// Package status serves a JSON snapshot of a running enumeration over HTTP.
//
// A Server implements observability.EnumerationHooks, so it is registered
// alongside any other hooks and updated by the controller as the BFS
// advances:
//
//	srv := status.New(runID)
//	opts.Hooks = observability.MultiEnumerationHooks{srv, observability.Enumeration()}
//	go srv.ListenAndServe(ctx, ":8080")
//
// Routes:
//
//	GET /status   current counters
//	GET /healthz  liveness probe
package status

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sugawarayuuta/sonnet"

	"github.com/matzehuels/triangs/pkg/observability"
)

// Snapshot is the body of GET /status.
type Snapshot struct {
	observability.Progress

	Frontier       int     `json:"frontier"`
	Elapsed        string  `json:"elapsed"`
	StepSeconds    float64 `json:"step_seconds"`
	LastCheckpoint string  `json:"last_checkpoint,omitempty"`
	CheckpointErr  string  `json:"checkpoint_error,omitempty"`
}

// Server tracks the progress of one run. It is safe for concurrent use.
type Server struct {
	mu      sync.RWMutex
	snap    Snapshot
	started time.Time
	now     func() time.Time
	router  chi.Router
}

// New returns a server for the run with the given ID.
func New(runID string) *Server {
	s := &Server{now: time.Now}
	s.started = s.now()
	s.snap.RunID = runID

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/status", s.handleStatus)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	s.router = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Snapshot returns the current state.
func (s *Server) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := s.snap
	snap.Elapsed = s.now().Sub(s.started).Round(time.Millisecond).String()
	return snap
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	body, err := sonnet.Marshal(s.Snapshot())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{Handler: s.router, ReadHeaderTimeout: 5 * time.Second}
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	err := srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		<-done
		return nil
	}
	return err
}

func (s *Server) OnStepStart(_ context.Context, step, frontier int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Frontier = frontier
}

func (s *Server) OnStepComplete(_ context.Context, p observability.Progress, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	runID := s.snap.RunID
	s.snap.Progress = p
	if p.RunID == "" {
		s.snap.RunID = runID
	}
	s.snap.Frontier = p.Stored
	s.snap.StepSeconds = d.Seconds()
}

func (s *Server) OnClass(_ context.Context, _ int, orbit int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.SymCount++
	s.snap.TotalCount += uint64(orbit)
}

func (s *Server) OnCheckpoint(_ context.Context, path string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.snap.CheckpointErr = err.Error()
		return
	}
	s.snap.LastCheckpoint = path
	s.snap.CheckpointErr = ""
}

var _ observability.EnumerationHooks = (*Server)(nil)
