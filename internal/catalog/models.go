package catalog

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tempocut/tempocut-agent/internal/analysis"
	"github.com/tempocut/tempocut-agent/internal/audio"
	"github.com/tempocut/tempocut-agent/internal/sequence"
	"github.com/tempocut/tempocut-agent/internal/video"
)

const (
	ClipStatusPending   = "pending"
	ClipStatusAnalyzing = "analyzing"
	ClipStatusAnalyzed  = "analyzed"
	ClipStatusFailed    = "failed"

	SessionStatusCreated   = "created"
	SessionStatusReady     = "ready"
	SessionStatusSequenced = "sequenced"
	SessionStatusFailed    = "failed"
)

// Clip is one registered video file. Name, MTime and Size together are the
// clip's identity: a re-exported file with the same name is a new clip.
type Clip struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Path          string          `json:"path"`
	MTime         int64           `json:"mtime"`
	Size          int64           `json:"size"`
	Duration      float64         `json:"duration"`
	Width         int             `json:"width"`
	Height        int             `json:"height"`
	FrameRate     float64         `json:"frame_rate"`
	ThumbnailPath string          `json:"thumbnail_path,omitempty"`
	Status        string          `json:"status"`
	Error         string          `json:"error,omitempty"`
	Analysis      *video.Analysis `json:"analysis,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Key returns the clip's identity key for analysis deduplication.
func (c *Clip) Key() analysis.Key {
	return analysis.Key{Name: c.Name, MTime: c.MTime, Size: c.Size}
}

// Session is one editing run: an audio track, a mood, the track's analysis
// and eventually the generated cut list.
type Session struct {
	ID            string                `json:"id"`
	Mood          string                `json:"mood"`
	TrackPath     string                `json:"track_path"`
	TrackDuration float64               `json:"track_duration"`
	Status        string                `json:"status"`
	Audio         *audio.Analysis       `json:"audio,omitempty"`
	Decisions     sequence.DecisionList `json:"decisions,omitempty"`
	Error         string                `json:"error,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

type ConfigEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

var VideoExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".mkv":  true,
	".webm": true,
}

var AudioExtensions = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".flac": true,
	".m4a":  true,
	".ogg":  true,
}

func NewID() string {
	return uuid.NewString()
}

func IsVideoFile(filename string) bool {
	return VideoExtensions[strings.ToLower(filepath.Ext(filename))]
}

func IsAudioFile(filename string) bool {
	return AudioExtensions[strings.ToLower(filepath.Ext(filename))]
}
