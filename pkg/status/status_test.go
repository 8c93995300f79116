package status

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sugawarayuuta/sonnet"

	"github.com/matzehuels/triangs/pkg/observability"
)

func getSnapshot(t *testing.T, h http.Handler) Snapshot {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var snap Snapshot
	if err := sonnet.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return snap
}

func TestStatusTracksHooks(t *testing.T) {
	ctx := context.Background()
	s := New("run-42")

	s.OnStepStart(ctx, 1, 1)
	s.OnClass(ctx, 0, 6)
	s.OnClass(ctx, 1, 2)
	snap := getSnapshot(t, s.Handler())
	if snap.RunID != "run-42" || snap.SymCount != 2 || snap.TotalCount != 8 || snap.Frontier != 1 {
		t.Errorf("after classes: %+v", snap)
	}

	s.OnStepComplete(ctx, observability.Progress{Step: 1, SymCount: 3, TotalCount: 14, Stored: 5}, 1500*time.Millisecond)
	snap = getSnapshot(t, s.Handler())
	if snap.Step != 1 || snap.TotalCount != 14 || snap.Frontier != 5 || snap.StepSeconds != 1.5 {
		t.Errorf("after step: %+v", snap)
	}
	if snap.RunID != "run-42" {
		t.Errorf("run id lost: %q", snap.RunID)
	}
}

func TestStatusCheckpoint(t *testing.T) {
	ctx := context.Background()
	s := New("r")
	s.OnCheckpoint(ctx, "", errors.New("disk full"))
	if snap := s.Snapshot(); snap.CheckpointErr != "disk full" {
		t.Errorf("checkpoint error not recorded: %+v", snap)
	}
	s.OnCheckpoint(ctx, "/tmp/checkpoint.0.dat", nil)
	snap := s.Snapshot()
	if snap.LastCheckpoint != "/tmp/checkpoint.0.dat" || snap.CheckpointErr != "" {
		t.Errorf("checkpoint not recorded: %+v", snap)
	}
}

func TestElapsed(t *testing.T) {
	s := New("r")
	base := s.started
	s.now = func() time.Time { return base.Add(90 * time.Second) }
	if got := s.Snapshot().Elapsed; got != "1m30s" {
		t.Errorf("Elapsed = %q", got)
	}
}

func TestRoutes(t *testing.T) {
	h := New("r").Handler()
	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/status", http.StatusOK},
		{http.MethodGet, "/missing", http.StatusNotFound},
		{http.MethodPost, "/status", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
		if rec.Code != tt.want {
			t.Errorf("%s %s = %d, want %d", tt.method, tt.path, rec.Code, tt.want)
		}
	}
}

func TestServeShutsDownWithContext(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("cannot listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := New("r")
	errc := make(chan error, 1)
	go func() { errc <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("Serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
