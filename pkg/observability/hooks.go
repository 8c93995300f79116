// Package observability provides hooks for metrics, status reporting, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about problem loading, BFS progress, and cache operations.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// Hooks are registered by main, not by libraries, which avoids import cycles
// and keeps the enumeration packages free of backend dependencies.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetEnumerationHooks(statusServer)
//	    observability.SetCacheHooks(&myCacheHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Enumeration().OnStepStart(ctx, step, frontier)
//	// ... drain the frontier ...
//	observability.Enumeration().OnStepComplete(ctx, progress, duration)
package observability

import (
	"context"
	"sync"
	"time"
)

// Progress is a snapshot of enumeration counters.
type Progress struct {
	RunID       string `json:"runid"`
	Step        int    `json:"step"`
	SymCount    uint64 `json:"symcount"`
	TotalCount  uint64 `json:"totalcount"`
	ReportCount uint64 `json:"reportcount"`
	Stored      int    `json:"stored"`
	Flips       uint64 `json:"flips"`
}

// =============================================================================
// Pipeline Hooks
// =============================================================================

// PipelineHooks receives events from the load/enumerate pipeline.
type PipelineHooks interface {
	// Load events
	OnLoadStart(ctx context.Context, path string)
	OnLoadComplete(ctx context.Context, path string, no, rank, groupOrder int, duration time.Duration, err error)

	// Enumerate events
	OnEnumerateStart(ctx context.Context, runID string)
	OnEnumerateComplete(ctx context.Context, p Progress, duration time.Duration, err error)
}

// =============================================================================
// Enumeration Hooks
// =============================================================================

// EnumerationHooks receives events from the BFS driver.
type EnumerationHooks interface {
	// OnStepStart is called before a layer of frontier nodes is drained.
	OnStepStart(ctx context.Context, step, frontier int)

	// OnStepComplete is called after the layer has been drained.
	OnStepComplete(ctx context.Context, p Progress, duration time.Duration)

	// OnClass is called once per newly discovered symmetry class.
	OnClass(ctx context.Context, id int, orbit int)

	// OnCheckpoint is called after a checkpoint write attempt.
	OnCheckpoint(ctx context.Context, path string, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnLoadStart(context.Context, string) {}
func (NoopPipelineHooks) OnLoadComplete(context.Context, string, int, int, int, time.Duration, error) {
}
func (NoopPipelineHooks) OnEnumerateStart(context.Context, string)                              {}
func (NoopPipelineHooks) OnEnumerateComplete(context.Context, Progress, time.Duration, error) {}

// NoopEnumerationHooks is a no-op implementation of EnumerationHooks.
type NoopEnumerationHooks struct{}

func (NoopEnumerationHooks) OnStepStart(context.Context, int, int)                    {}
func (NoopEnumerationHooks) OnStepComplete(context.Context, Progress, time.Duration) {}
func (NoopEnumerationHooks) OnClass(context.Context, int, int)                        {}
func (NoopEnumerationHooks) OnCheckpoint(context.Context, string, error)              {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// =============================================================================
// Fan-out
// =============================================================================

// MultiEnumerationHooks forwards every event to each of its members in order.
type MultiEnumerationHooks []EnumerationHooks

func (m MultiEnumerationHooks) OnStepStart(ctx context.Context, step, frontier int) {
	for _, h := range m {
		h.OnStepStart(ctx, step, frontier)
	}
}

func (m MultiEnumerationHooks) OnStepComplete(ctx context.Context, p Progress, d time.Duration) {
	for _, h := range m {
		h.OnStepComplete(ctx, p, d)
	}
}

func (m MultiEnumerationHooks) OnClass(ctx context.Context, id int, orbit int) {
	for _, h := range m {
		h.OnClass(ctx, id, orbit)
	}
}

func (m MultiEnumerationHooks) OnCheckpoint(ctx context.Context, path string, err error) {
	for _, h := range m {
		h.OnCheckpoint(ctx, path, err)
	}
}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	pipelineHooks    PipelineHooks    = NoopPipelineHooks{}
	enumerationHooks EnumerationHooks = NoopEnumerationHooks{}
	cacheHooks       CacheHooks       = NoopCacheHooks{}
	hooksMu          sync.RWMutex
)

// SetPipelineHooks registers custom pipeline hooks.
// This should be called once at application startup before any pipeline operations.
func SetPipelineHooks(h PipelineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		pipelineHooks = h
	}
}

// SetEnumerationHooks registers custom enumeration hooks.
// This should be called once at application startup before any enumeration.
func SetEnumerationHooks(h EnumerationHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		enumerationHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return pipelineHooks
}

// Enumeration returns the registered enumeration hooks.
func Enumeration() EnumerationHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return enumerationHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	pipelineHooks = NoopPipelineHooks{}
	enumerationHooks = NoopEnumerationHooks{}
	cacheHooks = NoopCacheHooks{}
}
