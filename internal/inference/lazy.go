package inference

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/tempocut/tempocut-agent/internal/media"
)

// LazyBackend defers backend construction until first use and then shares
// the single instance across all callers. The load outcome, success or
// failure, is decided exactly once: a backend that was unavailable at
// startup stays unavailable, matching the load-once-reuse contract.
type LazyBackend struct {
	factory func(ctx context.Context) (Backend, error)

	once    sync.Once
	ready   atomic.Bool
	backend Backend
	loadErr error
}

func NewLazyBackend(factory func(ctx context.Context) (Backend, error)) *LazyBackend {
	return &LazyBackend{factory: factory}
}

func (l *LazyBackend) get(ctx context.Context) (Backend, error) {
	l.once.Do(func() {
		l.backend, l.loadErr = l.factory(ctx)
		if l.loadErr == nil && l.backend != nil {
			l.ready.Store(true)
		}
	})
	return l.backend, l.loadErr
}

// Ready reports whether the backend loaded successfully. It returns false
// both before the first use and after a failed load. Safe to call while a
// load is in progress, which is exactly how the status endpoint uses it.
func (l *LazyBackend) Ready() bool {
	return l.ready.Load()
}

func (l *LazyBackend) DetectObjects(ctx context.Context, frame *media.Frame) ([]Detection, error) {
	b, err := l.get(ctx)
	if err != nil {
		return nil, err
	}
	return b.DetectObjects(ctx, frame)
}

func (l *LazyBackend) DetectFaces(ctx context.Context, frame *media.Frame) (int, error) {
	b, err := l.get(ctx)
	if err != nil {
		return 0, err
	}
	return b.DetectFaces(ctx, frame)
}
