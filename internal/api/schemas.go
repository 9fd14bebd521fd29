package api

import (
	"time"

	"github.com/tempocut/tempocut-agent/internal/audio"
	"github.com/tempocut/tempocut-agent/internal/catalog"
	"github.com/tempocut/tempocut-agent/internal/sequence"
	"github.com/tempocut/tempocut-agent/internal/video"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
}

type StatusResponse struct {
	State         string `json:"state"`
	LastError     string `json:"last_error,omitempty"`
	ClipsTotal    int    `json:"clips_total"`
	ClipsPending  int    `json:"clips_pending"`
	ClipsAnalyzed int    `json:"clips_analyzed"`
	ClipsFailed   int    `json:"clips_failed"`
	RunnerPaused  bool   `json:"runner_paused"`
	DetectorReady bool   `json:"detector_ready"`
}

type ScanRequest struct {
	Path string `json:"path"`
}

type ClipResponse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Path      string          `json:"path"`
	Duration  float64         `json:"duration"`
	Width     int             `json:"width"`
	Height    int             `json:"height"`
	FrameRate float64         `json:"frame_rate"`
	Status    string          `json:"status"`
	Error     string          `json:"error,omitempty"`
	Analysis  *video.Analysis `json:"analysis,omitempty"`
	CreatedAt string          `json:"created_at"`
	UpdatedAt string          `json:"updated_at"`
}

type ClipsResponse struct {
	Clips []ClipResponse `json:"clips"`
}

type CreateSessionRequest struct {
	TrackPath string `json:"track_path"`
	Mood      string `json:"mood,omitempty"`
}

type SessionResponse struct {
	ID            string                `json:"id"`
	Mood          string                `json:"mood"`
	TrackPath     string                `json:"track_path"`
	TrackDuration float64               `json:"track_duration"`
	Status        string                `json:"status"`
	Audio         *audio.Analysis       `json:"audio,omitempty"`
	Decisions     sequence.DecisionList `json:"decisions,omitempty"`
	Error         string                `json:"error,omitempty"`
	CreatedAt     string                `json:"created_at"`
	UpdatedAt     string                `json:"updated_at"`
}

type SessionsResponse struct {
	Sessions []SessionResponse `json:"sessions"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func ClipToResponse(c *catalog.Clip) ClipResponse {
	return ClipResponse{
		ID:        c.ID,
		Name:      c.Name,
		Path:      c.Path,
		Duration:  c.Duration,
		Width:     c.Width,
		Height:    c.Height,
		FrameRate: c.FrameRate,
		Status:    c.Status,
		Error:     c.Error,
		Analysis:  c.Analysis,
		CreatedAt: c.CreatedAt.Format(time.RFC3339),
		UpdatedAt: c.UpdatedAt.Format(time.RFC3339),
	}
}

func SessionToResponse(s *catalog.Session) SessionResponse {
	return SessionResponse{
		ID:            s.ID,
		Mood:          s.Mood,
		TrackPath:     s.TrackPath,
		TrackDuration: s.TrackDuration,
		Status:        s.Status,
		Audio:         s.Audio,
		Decisions:     s.Decisions,
		Error:         s.Error,
		CreatedAt:     s.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     s.UpdatedAt.Format(time.RFC3339),
	}
}
