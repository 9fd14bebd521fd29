// Package video extracts visual feature descriptors from a clip: brightness,
// motion, structural complexity and a coarse content category derived from
// object detection.
package video

import "github.com/tempocut/tempocut-agent/internal/inference"

// MotionLevel classifies inter-frame change across the sampled span.
type MotionLevel string

const (
	MotionStatic MotionLevel = "static"
	MotionLow    MotionLevel = "low"
	MotionMedium MotionLevel = "medium"
	MotionHigh   MotionLevel = "high"
)

// Category is the coarse content class of a clip.
type Category string

const (
	CategoryPeople Category = "people"
	CategoryNature Category = "nature"
	CategoryUrban  Category = "urban"
	CategoryAction Category = "action"
	CategoryOther  Category = "other"
)

// Analysis is the immutable per-clip feature descriptor. It is produced at
// most once per clip and never mutated after being attached.
type Analysis struct {
	HasFaces         bool                  `json:"has_faces"`
	DetectedObjects  []inference.Detection `json:"detected_objects"`
	DominantCategory Category              `json:"dominant_category"`
	MotionLevel      MotionLevel           `json:"motion_level"`
	AvgBrightness    float64               `json:"avg_brightness"`
	VisualComplexity float64               `json:"visual_complexity"`
}
