package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// ErrTooManyImports is returned when no import slot frees up within the
// limiter's wait time.
var ErrTooManyImports = errors.New("too many concurrent imports, please try again later")

const (
	DefaultMaxConcurrentImports = 5
	DefaultMaxWaitTime          = 30 * time.Second
)

// RunningImport describes an import that holds a slot.
type RunningImport struct {
	ID        string    `json:"import_id"`
	Model     string    `json:"model"`
	StartedAt time.Time `json:"started_at"`
}

// ImportLimiter bounds how many imports write to the store at once and keeps
// track of which ones are in flight.
type ImportLimiter struct {
	slots   chan struct{}
	maxWait time.Duration

	mu      sync.Mutex
	running map[string]RunningImport
	idle    chan struct{} // closed while nothing is running
}

// NewImportLimiter creates a limiter with maxConcurrent slots. Callers wait
// up to maxWait for a slot. Non-positive values fall back to the defaults.
func NewImportLimiter(maxConcurrent int, maxWait time.Duration) *ImportLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentImports
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}
	idle := make(chan struct{})
	close(idle)
	return &ImportLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
		running: make(map[string]RunningImport),
		idle:    idle,
	}
}

// Acquire claims a slot for import id on model. The returned release frees
// the slot and may be called more than once.
//
// It fails with ctx.Err() when ctx ends first and with ErrTooManyImports
// when maxWait passes without a free slot.
func (l *ImportLimiter) Acquire(ctx context.Context, id, model string) (release func(), err error) {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, ErrTooManyImports
	}

	l.mu.Lock()
	if len(l.running) == 0 {
		l.idle = make(chan struct{})
	}
	l.running[id] = RunningImport{ID: id, Model: model, StartedAt: time.Now()}
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { l.release(id) })
	}, nil
}

func (l *ImportLimiter) release(id string) {
	l.mu.Lock()
	delete(l.running, id)
	if len(l.running) == 0 {
		close(l.idle)
	}
	l.mu.Unlock()
	<-l.slots
}

// Running lists in-flight imports, oldest first.
func (l *ImportLimiter) Running() []RunningImport {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]RunningImport, 0, len(l.running))
	for _, r := range l.running {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}

// WaitForDrain blocks until no import holds a slot. If ctx ends first the
// error names the imports still running and wraps ctx.Err().
func (l *ImportLimiter) WaitForDrain(ctx context.Context) error {
	l.mu.Lock()
	idle := l.idle
	l.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
	}

	running := l.Running()
	if len(running) == 0 {
		return nil
	}
	names := make([]string, len(running))
	for i, r := range running {
		names[i] = r.ID + " (" + r.Model + ")"
	}
	return fmt.Errorf("%d import(s) still running: %s: %w", len(running), strings.Join(names, ", "), ctx.Err())
}

// ImportLimiterStatus is the limiter's state as reported by /api/status.
type ImportLimiterStatus struct {
	Active        int             `json:"active"`
	Available     int             `json:"available"`
	MaxConcurrent int             `json:"max_concurrent"`
	Running       []RunningImport `json:"running"`
}

// Status returns a snapshot of slot usage.
func (l *ImportLimiter) Status() ImportLimiterStatus {
	running := l.Running()
	capacity := cap(l.slots)
	return ImportLimiterStatus{
		Active:        len(running),
		Available:     capacity - len(running),
		MaxConcurrent: capacity,
		Running:       running,
	}
}
