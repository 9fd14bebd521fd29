// Package sequence turns untrusted sequencing-oracle output into a
// guaranteed well-formed edit decision list. Everything upstream (the
// oracle) is advisory; everything downstream (rendering, export) relies on
// the invariants enforced here holding unconditionally.
package sequence

import (
	"github.com/tempocut/tempocut-agent/internal/audio"
	"github.com/tempocut/tempocut-agent/internal/video"
)

// Decision is one validated cut: which clip, for how long, and the oracle's
// rationale. Invariants: 0 <= ClipIndex < clip count, Duration > 0,
// Description non-empty.
type Decision struct {
	ClipIndex   int     `json:"clipIndex"`
	Duration    float64 `json:"duration"`
	Description string  `json:"description"`
}

// DecisionList is an ordered, non-empty sequence of validated decisions.
type DecisionList []Decision

// TotalDuration sums the decision durations. Matching the audio track's
// length is a prompt-level objective for the oracle, never enforced here.
func (l DecisionList) TotalDuration() float64 {
	var total float64
	for _, d := range l {
		total += d.Duration
	}
	return total
}

// ClipSummary is the per-clip digest handed to the oracle. Thumbnail bytes
// are JPEG data and marshal to base64 in JSON.
type ClipSummary struct {
	Index      int               `json:"index"`
	Duration   float64           `json:"duration"`
	Category   video.Category    `json:"category,omitempty"`
	Motion     video.MotionLevel `json:"motion,omitempty"`
	Brightness float64           `json:"brightness,omitempty"`
	Complexity float64           `json:"complexity,omitempty"`
	HasFaces   bool              `json:"has_faces,omitempty"`
	Thumbnail  []byte            `json:"thumbnail,omitempty"`
}

// PromptRequest is everything the oracle sees: the track's mood description,
// its analysis, and the clip digests.
type PromptRequest struct {
	Mood  string          `json:"mood"`
	Audio *audio.Analysis `json:"audio"`
	Clips []ClipSummary   `json:"clips"`
}
