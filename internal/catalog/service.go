package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tempocut/tempocut-agent/internal/analysis"
	"github.com/tempocut/tempocut-agent/internal/audio"
	"github.com/tempocut/tempocut-agent/internal/inference"
	"github.com/tempocut/tempocut-agent/internal/media"
	"github.com/tempocut/tempocut-agent/internal/sequence"
)

// Submitter schedules clip extractions. Satisfied by analysis.Coordinator.
type Submitter interface {
	Submit(ctx context.Context, req analysis.Request) (*analysis.Task, error)
}

// ScanResult summarizes one folder scan.
type ScanResult struct {
	Found      int `json:"found"`
	Registered int `json:"registered"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
}

type Service struct {
	repo      Repository
	decoder   media.Decoder
	analyzer  *audio.Analyzer
	submitter Submitter
	oracle    sequence.Oracle
	thumbDir  string
	logger    *slog.Logger
}

func NewService(repo Repository, decoder media.Decoder, analyzer *audio.Analyzer, submitter Submitter, oracle sequence.Oracle, thumbDir string, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		decoder:   decoder,
		analyzer:  analyzer,
		submitter: submitter,
		oracle:    oracle,
		thumbDir:  thumbDir,
		logger:    logger,
	}
}

// ScanFolder walks a directory tree and registers every video file that is
// not already in the catalog. Files that fail probing are registered as
// failed so they show up in the catalog instead of silently disappearing.
func (s *Service) ScanFolder(ctx context.Context, path string) (*ScanResult, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("path does not exist: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory")
	}

	var files []string
	err = filepath.WalkDir(absPath, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if !d.IsDir() && IsVideoFile(d.Name()) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &ScanResult{Found: len(files)}
	for _, filePath := range files {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		registered, err := s.registerClip(ctx, filePath)
		switch {
		case err != nil:
			result.Failed++
			if s.logger != nil {
				s.logger.Warn("failed to register clip", "path", filePath, "error", err)
			}
		case registered:
			result.Registered++
		default:
			result.Skipped++
		}
	}

	if s.logger != nil {
		s.logger.Info("folder scan complete", "path", absPath,
			"found", result.Found, "registered", result.Registered,
			"skipped", result.Skipped, "failed", result.Failed)
	}
	return result, nil
}

// registerClip stats and probes one file and upserts it as a pending clip.
// Returns false when the clip identity is already known.
func (s *Service) registerClip(ctx context.Context, path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}

	name := filepath.Base(path)
	mtime := info.ModTime().Unix()
	size := info.Size()

	existing, err := s.repo.GetClipByIdentity(ctx, name, mtime, size)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}

	now := time.Now()
	clip := &Clip{
		ID:        NewID(),
		Name:      name,
		Path:      path,
		MTime:     mtime,
		Size:      size,
		Status:    ClipStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	probe, err := s.decoder.Probe(ctx, path)
	if err != nil {
		clip.Status = ClipStatusFailed
		clip.Error = err.Error()
		if upsertErr := s.repo.UpsertClip(ctx, clip); upsertErr != nil {
			return false, upsertErr
		}
		return true, nil
	}

	clip.Duration = probe.Duration
	clip.Width = probe.Width
	clip.Height = probe.Height
	clip.FrameRate = probe.FrameRate

	if err := s.repo.UpsertClip(ctx, clip); err != nil {
		return false, err
	}

	s.generateThumbnail(ctx, clip)
	return true, nil
}

// generateThumbnail is best effort: a clip without a thumbnail is still a
// valid clip.
func (s *Service) generateThumbnail(ctx context.Context, clip *Clip) {
	if s.thumbDir == "" {
		return
	}
	out := filepath.Join(s.thumbDir, clip.ID+".jpg")
	offset := clip.Duration / 2
	if err := s.decoder.GenerateThumbnail(ctx, clip.Path, out, offset); err != nil {
		if s.logger != nil {
			s.logger.Warn("thumbnail generation failed", "clip_id", clip.ID, "error", err)
		}
		return
	}
	if err := s.repo.UpdateClipThumbnail(ctx, clip.ID, out); err != nil && s.logger != nil {
		s.logger.Warn("failed to record thumbnail", "clip_id", clip.ID, "error", err)
	}
}

func (s *Service) Clips(ctx context.Context) ([]*Clip, error) {
	return s.repo.ListClips(ctx)
}

func (s *Service) Clip(ctx context.Context, id string) (*Clip, error) {
	return s.repo.GetClip(ctx, id)
}

func (s *Service) CountClips(ctx context.Context) (int, error) {
	return s.repo.CountClips(ctx)
}

// AnalyzeClip runs visual feature extraction for one clip and stores the
// result. A concurrent submission for the same clip identity surfaces as
// analysis.ErrAlreadyInProgress; the clip record is left untouched in that
// case because the running task owns it. A detector outage is not the clip's
// fault: the clip goes back to pending with no analysis stored, ready for a
// retry once the detector is back.
func (s *Service) AnalyzeClip(ctx context.Context, id string) (*Clip, error) {
	clip, err := s.repo.GetClip(ctx, id)
	if err != nil {
		return nil, err
	}
	if clip == nil {
		return nil, fmt.Errorf("clip not found")
	}

	task, err := s.submitter.Submit(ctx, analysis.Request{
		Key:      clip.Key(),
		Path:     clip.Path,
		Duration: clip.Duration,
	})
	if err != nil {
		if errors.Is(err, analysis.ErrAlreadyInProgress) {
			return nil, err
		}
		return nil, fmt.Errorf("submit analysis: %w", err)
	}

	if err := s.repo.UpdateClipStatus(ctx, id, ClipStatusAnalyzing, ""); err != nil {
		return nil, err
	}

	result, err := task.Wait(ctx)
	if err != nil {
		status := ClipStatusFailed
		errorMsg := err.Error()
		if inference.IsUnavailable(err) {
			status = ClipStatusPending
			errorMsg = ""
		}
		if statusErr := s.repo.UpdateClipStatus(ctx, id, status, errorMsg); statusErr != nil && s.logger != nil {
			s.logger.Error("failed to record analysis failure", "clip_id", id, "error", statusErr)
		}
		return nil, err
	}

	if err := s.repo.UpdateClipAnalysis(ctx, id, result); err != nil {
		return nil, err
	}
	return s.repo.GetClip(ctx, id)
}

// CreateSession decodes and analyzes an audio track and stores the session.
func (s *Service) CreateSession(ctx context.Context, trackPath, mood string) (*Session, error) {
	absPath, err := filepath.Abs(trackPath)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	if _, err := os.Stat(absPath); err != nil {
		return nil, fmt.Errorf("track does not exist: %w", err)
	}

	now := time.Now()
	session := &Session{
		ID:        NewID(),
		Mood:      mood,
		TrackPath: absPath,
		Status:    SessionStatusCreated,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	buf, err := s.decoder.DecodeAudio(ctx, absPath)
	if err != nil {
		if statusErr := s.repo.UpdateSessionStatus(ctx, session.ID, SessionStatusFailed, err.Error()); statusErr != nil && s.logger != nil {
			s.logger.Error("failed to record session failure", "session_id", session.ID, "error", statusErr)
		}
		return nil, err
	}

	trackAnalysis := s.analyzer.Analyze(buf)
	if err := s.repo.UpdateSessionAudio(ctx, session.ID, trackAnalysis); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateSessionStatus(ctx, session.ID, SessionStatusReady, ""); err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("session created", "session_id", session.ID,
			"track", absPath, "bpm", trackAnalysis.BPM, "duration", trackAnalysis.Duration)
	}
	return s.repo.GetSession(ctx, session.ID)
}

func (s *Service) Session(ctx context.Context, id string) (*Session, error) {
	return s.repo.GetSession(ctx, id)
}

func (s *Service) Sessions(ctx context.Context, limit int) ([]*Session, error) {
	return s.repo.ListSessions(ctx, limit)
}

// GenerateSequence asks the oracle for a cut list over all analyzed clips
// and stores the repaired result on the session. The clip order in the
// prompt is the catalog listing order; decision indexes refer to it.
func (s *Service) GenerateSequence(ctx context.Context, sessionID string) (*Session, error) {
	session, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("session not found")
	}
	if session.Audio == nil {
		return nil, fmt.Errorf("session has no audio analysis")
	}

	clips, err := s.sequenceableClips(ctx)
	if err != nil {
		return nil, err
	}
	if len(clips) == 0 {
		return nil, fmt.Errorf("no analyzed clips to sequence")
	}

	req := sequence.PromptRequest{
		Mood:  session.Mood,
		Audio: session.Audio,
		Clips: make([]sequence.ClipSummary, len(clips)),
	}
	for i, clip := range clips {
		req.Clips[i] = clipSummary(i, clip)
	}

	decisions, err := sequence.Generate(ctx, s.oracle, req)
	if err != nil {
		if statusErr := s.repo.UpdateSessionStatus(ctx, sessionID, SessionStatusFailed, err.Error()); statusErr != nil && s.logger != nil {
			s.logger.Error("failed to record sequence failure", "session_id", sessionID, "error", statusErr)
		}
		return nil, err
	}

	if err := s.repo.UpdateSessionDecisions(ctx, sessionID, decisions); err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("sequence generated", "session_id", sessionID,
			"decisions", len(decisions), "total_duration", decisions.TotalDuration())
	}
	return s.repo.GetSession(ctx, sessionID)
}

// SequenceableClips returns the analyzed clips in prompt order. The same
// ordering backs GenerateSequence, so decision indexes resolve against it.
func (s *Service) SequenceableClips(ctx context.Context) ([]*Clip, error) {
	return s.sequenceableClips(ctx)
}

func (s *Service) sequenceableClips(ctx context.Context) ([]*Clip, error) {
	return s.repo.ListClipsByStatus(ctx, ClipStatusAnalyzed)
}

func clipSummary(index int, clip *Clip) sequence.ClipSummary {
	summary := sequence.ClipSummary{
		Index:    index,
		Duration: clip.Duration,
	}
	if a := clip.Analysis; a != nil {
		summary.Category = a.DominantCategory
		summary.Motion = a.MotionLevel
		summary.Brightness = a.AvgBrightness
		summary.Complexity = a.VisualComplexity
		summary.HasFaces = a.HasFaces
	}
	if clip.ThumbnailPath != "" {
		if data, err := os.ReadFile(clip.ThumbnailPath); err == nil {
			summary.Thumbnail = data
		}
	}
	return summary
}
