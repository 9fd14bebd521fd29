// Package analysis schedules per-clip feature extraction. The coordinator
// guarantees that one physical clip is never analyzed twice concurrently:
// submissions are deduplicated on the clip's identity key while a task for
// that key is in flight.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tempocut/tempocut-agent/internal/video"
)

// ErrAlreadyInProgress signals that a task for the same clip key is in
// flight. It is a caller-level signal, not a failure: the caller may wait
// and resubmit once the running task completes.
var ErrAlreadyInProgress = errors.New("analysis already in progress")

// Key identifies a physical clip: same name, modification time and size
// means same clip.
type Key struct {
	Name  string
	MTime int64 // unix seconds
	Size  int64
}

func (k Key) String() string {
	return fmt.Sprintf("%s@%d:%d", k.Name, k.MTime, k.Size)
}

// Request describes one clip to analyze.
type Request struct {
	Key      Key
	Path     string
	Duration float64
}

// Task is the future for one submitted extraction. Dropping a Task abandons
// interest in the result; the underlying work still runs to completion.
type Task struct {
	key  Key
	done chan struct{}

	analysis *video.Analysis
	err      error
}

// Done is closed when the task has completed, successfully or not.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task completes or ctx is cancelled. Cancelling the
// wait does not cancel the task.
func (t *Task) Wait(ctx context.Context) (*video.Analysis, error) {
	select {
	case <-t.done:
		return t.analysis, t.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Extractor is the per-clip analysis the coordinator supervises.
type Extractor interface {
	Extract(ctx context.Context, path string, duration float64) (*video.Analysis, error)
}

// Coordinator owns the in-flight task registry. The registry is the only
// shared mutable state; check-then-insert happens under one lock so a
// submit/submit race can never double-start a task for the same key.
type Coordinator struct {
	extractor Extractor
	logger    *slog.Logger

	mu       sync.Mutex
	inflight map[Key]*Task
}

func NewCoordinator(extractor Extractor, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		extractor: extractor,
		logger:    logger,
		inflight:  make(map[Key]*Task),
	}
}

// Submit starts extraction for the clip unless a task for the same key is
// already in flight, in which case it returns ErrAlreadyInProgress. On
// completion the in-flight entry is removed, so a later resubmission (e.g.
// a retry after failure) starts fresh.
func (c *Coordinator) Submit(ctx context.Context, req Request) (*Task, error) {
	task := &Task{key: req.Key, done: make(chan struct{})}

	c.mu.Lock()
	if _, exists := c.inflight[req.Key]; exists {
		c.mu.Unlock()
		return nil, fmt.Errorf("clip %s: %w", req.Key, ErrAlreadyInProgress)
	}
	c.inflight[req.Key] = task
	c.mu.Unlock()

	if c.logger != nil {
		c.logger.Info("analysis task started", "key", req.Key.String(), "path", req.Path)
	}

	// Started work is not preemptible: detach from the caller's
	// cancellation while keeping its values.
	runCtx := context.WithoutCancel(ctx)

	go func() {
		analysis, err := c.extractor.Extract(runCtx, req.Path, req.Duration)

		task.analysis = analysis
		task.err = err

		c.mu.Lock()
		delete(c.inflight, req.Key)
		c.mu.Unlock()

		close(task.done)

		if c.logger != nil {
			if err != nil {
				c.logger.Warn("analysis task failed", "key", req.Key.String(), "error", err)
			} else {
				c.logger.Info("analysis task completed", "key", req.Key.String())
			}
		}
	}()

	return task, nil
}

// InFlight returns the number of tasks currently running.
func (c *Coordinator) InFlight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inflight)
}
