package catalog

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/tempocut/tempocut-agent/internal/analysis"
	"github.com/tempocut/tempocut-agent/internal/inference"
)

// Runner drains the pending-clip backlog in the background. One clip per
// tick keeps the machine responsive; the tray can pause it entirely.
type Runner struct {
	service      *Service
	repo         Repository
	logger       *slog.Logger
	pollInterval time.Duration
	running      atomic.Bool
	paused       atomic.Bool
}

func NewRunner(service *Service, repo Repository, logger *slog.Logger) *Runner {
	return &Runner{
		service:      service,
		repo:         repo,
		logger:       logger,
		pollInterval: 5 * time.Second,
	}
}

func (r *Runner) Start(ctx context.Context) {
	if r.running.Swap(true) {
		return
	}

	r.logger.Info("analysis runner started")

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("analysis runner stopping")
			r.running.Store(false)
			return
		case <-ticker.C:
			if !r.paused.Load() {
				r.processNextClip(ctx)
			}
		}
	}
}

func (r *Runner) Pause() {
	r.paused.Store(true)
	r.logger.Info("analysis runner paused")
}

func (r *Runner) Resume() {
	r.paused.Store(false)
	r.logger.Info("analysis runner resumed")
}

func (r *Runner) IsPaused() bool {
	return r.paused.Load()
}

func (r *Runner) IsRunning() bool {
	return r.running.Load()
}

func (r *Runner) processNextClip(ctx context.Context) {
	clips, err := r.repo.ListClipsByStatus(ctx, ClipStatusPending)
	if err != nil {
		r.logger.Error("failed to list pending clips", "error", err)
		return
	}

	if len(clips) == 0 {
		return
	}

	clip := clips[0]
	r.logger.Info("analyzing clip", "clip_id", clip.ID, "name", clip.Name)

	if _, err := r.service.AnalyzeClip(ctx, clip.ID); err != nil {
		// Someone else already has this clip in flight; it will settle on
		// its own and the next tick moves on.
		if errors.Is(err, analysis.ErrAlreadyInProgress) {
			return
		}
		// The clip stayed pending; it gets picked up again once the
		// detector is back.
		if inference.IsUnavailable(err) {
			r.logger.Warn("detector unavailable, clip deferred", "clip_id", clip.ID, "error", err)
			return
		}
		r.logger.Error("clip analysis failed", "clip_id", clip.ID, "error", err)
	}
}

// BacklogSize reports how many clips still await analysis.
func (r *Runner) BacklogSize(ctx context.Context) int {
	clips, err := r.repo.ListClipsByStatus(ctx, ClipStatusPending)
	if err != nil {
		return 0
	}
	return len(clips)
}
