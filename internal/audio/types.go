// Package audio computes beat, tempo and energy descriptors for a decoded
// audio track. The two sub-analyses (energy segmentation and beat detection)
// are independent and run in parallel; an Analysis is only returned once both
// have completed.
package audio

// Intensity classifies the loudness of an energy segment.
type Intensity string

const (
	IntensityLow    Intensity = "low"
	IntensityMedium Intensity = "medium"
	IntensityHigh   Intensity = "high"
)

// Beat is a detected low-frequency transient.
type Beat struct {
	Timestamp  float64 `json:"timestamp"`
	Confidence float64 `json:"confidence"`
}

// EnergySegment is a contiguous run of windows sharing one intensity class.
// Segments partition [0, duration]: each segment's EndTime equals the next
// segment's StartTime.
type EnergySegment struct {
	StartTime float64   `json:"start_time"`
	EndTime   float64   `json:"end_time"`
	Intensity Intensity `json:"intensity"`
}

// Analysis is the immutable result of analyzing one audio track. It is never
// mutated after creation; re-analysis replaces it wholesale.
type Analysis struct {
	Duration       float64         `json:"duration"`
	BPM            int             `json:"bpm"`
	Beats          []Beat          `json:"beats"`
	EnergySegments []EnergySegment `json:"energy_segments"`
}
