package audio

import (
	"math"
	"testing"

	"github.com/tempocut/tempocut-agent/internal/media"
)

const testSampleRate = 22050

// sineBuffer fills one-second windows with 440 Hz sines of the given
// amplitudes, one amplitude per window.
func sineBuffer(amplitudes []float64) []float32 {
	samples := make([]float32, len(amplitudes)*testSampleRate)
	for w, amp := range amplitudes {
		for i := 0; i < testSampleRate; i++ {
			idx := w*testSampleRate + i
			samples[idx] = float32(amp * math.Sin(2*math.Pi*440*float64(i)/testSampleRate))
		}
	}
	return samples
}

func TestSegmentEnergy_PartitionsDuration(t *testing.T) {
	amps := []float64{0.1, 0.1, 0.3, 0.3, 0.5, 0.5, 0.7, 0.7, 0.9, 0.9}
	samples := sineBuffer(amps)
	duration := float64(len(samples)) / testSampleRate

	segments := segmentEnergy(samples, testSampleRate, duration)
	if len(segments) == 0 {
		t.Fatal("no segments produced")
	}

	const tol = 1e-9
	if math.Abs(segments[0].StartTime) > tol {
		t.Errorf("first segment starts at %v, want 0", segments[0].StartTime)
	}
	if math.Abs(segments[len(segments)-1].EndTime-duration) > tol {
		t.Errorf("last segment ends at %v, want %v", segments[len(segments)-1].EndTime, duration)
	}
	for i := 1; i < len(segments); i++ {
		if math.Abs(segments[i].StartTime-segments[i-1].EndTime) > tol {
			t.Errorf("gap between segment %d end (%v) and segment %d start (%v)",
				i-1, segments[i-1].EndTime, i, segments[i].StartTime)
		}
	}
}

func TestSegmentEnergy_AdjacentSegmentsMerged(t *testing.T) {
	amps := []float64{0.1, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9}
	samples := sineBuffer(amps)
	duration := float64(len(samples)) / testSampleRate

	segments := segmentEnergy(samples, testSampleRate, duration)
	for i := 1; i < len(segments); i++ {
		if segments[i].Intensity == segments[i-1].Intensity {
			t.Errorf("segments %d and %d both %s, should have been merged", i-1, i, segments[i].Intensity)
		}
	}
}

func TestSegmentEnergy_ClassOrdering(t *testing.T) {
	// Monotonically rising loudness: classes must appear low -> medium -> high.
	amps := []float64{0.05, 0.1, 0.15, 0.3, 0.35, 0.4, 0.7, 0.75, 0.8, 0.85}
	samples := sineBuffer(amps)
	duration := float64(len(samples)) / testSampleRate

	segments := segmentEnergy(samples, testSampleRate, duration)

	rank := map[Intensity]int{IntensityLow: 0, IntensityMedium: 1, IntensityHigh: 2}
	for i := 1; i < len(segments); i++ {
		if rank[segments[i].Intensity] < rank[segments[i-1].Intensity] {
			t.Errorf("intensity dropped from %s to %s on rising loudness", segments[i-1].Intensity, segments[i].Intensity)
		}
	}
	if segments[0].Intensity != IntensityLow {
		t.Errorf("first segment = %s, want low", segments[0].Intensity)
	}
	if segments[len(segments)-1].Intensity != IntensityHigh {
		t.Errorf("last segment = %s, want high", segments[len(segments)-1].Intensity)
	}
}

func TestSegmentEnergy_EmptyAudio(t *testing.T) {
	if segments := segmentEnergy(nil, testSampleRate, 0); segments != nil {
		t.Errorf("empty audio produced %d segments, want none", len(segments))
	}
}

func TestDetectBeats_FallbackBelowTwoPeaks(t *testing.T) {
	// Pure silence: no peaks at all.
	silence := make([]float32, 5*testSampleRate)

	beats, bpm := detectBeats(silence, testSampleRate)
	if bpm != DefaultBPM {
		t.Errorf("bpm = %d, want default %d", bpm, DefaultBPM)
	}
	if len(beats) != 0 {
		t.Errorf("got %d beats, want none", len(beats))
	}
}

// burstAt writes a 50ms full-scale burst starting at the given time. A burst
// (rather than a single-sample impulse) survives the 150 Hz low-pass.
func burstAt(samples []float32, at float64) {
	start := int(at * testSampleRate)
	for i := 0; i < testSampleRate/20 && start+i < len(samples); i++ {
		samples[start+i] = 1.0
	}
}

func TestDetectBeats_TwoTransientsHalfSecondApart(t *testing.T) {
	samples := make([]float32, 10*testSampleRate)
	burstAt(samples, 4.0)
	burstAt(samples, 4.5)

	beats, bpm := detectBeats(samples, testSampleRate)

	if len(beats) != 2 {
		t.Fatalf("got %d beats, want 2", len(beats))
	}
	interval := beats[1].Timestamp - beats[0].Timestamp
	if math.Abs(interval-0.5) > 0.01 {
		t.Errorf("beat interval = %v, want ~0.5", interval)
	}
	if bpm != 120 {
		t.Errorf("bpm = %d, want 120", bpm)
	}
	for _, b := range beats {
		if b.Confidence != 1.0 {
			t.Errorf("confidence = %v, want 1.0", b.Confidence)
		}
	}
}

func TestDetectBeats_TimestampsStrictlyIncreasing(t *testing.T) {
	samples := make([]float32, 10*testSampleRate)
	for _, at := range []float64{1.0, 1.5, 2.0, 2.5, 3.0} {
		burstAt(samples, at)
	}

	beats, _ := detectBeats(samples, testSampleRate)
	for i := 1; i < len(beats); i++ {
		if beats[i].Timestamp <= beats[i-1].Timestamp {
			t.Fatalf("timestamps not strictly increasing: %v then %v", beats[i-1].Timestamp, beats[i].Timestamp)
		}
	}
}

func TestAnalyze_JoinsBothSubAnalyses(t *testing.T) {
	samples := make([]float32, 10*testSampleRate)
	burstAt(samples, 2.0)
	burstAt(samples, 2.5)
	buf := &media.AudioBuffer{Samples: samples, SampleRate: testSampleRate}

	analysis := NewAnalyzer(nil).Analyze(buf)

	if analysis.Duration != 10.0 {
		t.Errorf("Duration = %v, want 10.0", analysis.Duration)
	}
	if analysis.BPM != 120 {
		t.Errorf("BPM = %d, want 120", analysis.BPM)
	}
	if len(analysis.Beats) != 2 {
		t.Errorf("beats = %d, want 2", len(analysis.Beats))
	}
	if len(analysis.EnergySegments) == 0 {
		t.Error("no energy segments in joined analysis")
	}
	last := analysis.EnergySegments[len(analysis.EnergySegments)-1]
	if math.Abs(last.EndTime-analysis.Duration) > 1e-9 {
		t.Errorf("segments end at %v, want duration %v", last.EndTime, analysis.Duration)
	}
}
