package audio

import (
	"log/slog"
	"math"
	"sort"
	"sync"

	"github.com/tempocut/tempocut-agent/internal/media"
)

const (
	// Energy segmentation window length in seconds.
	energyWindowSec = 1.0

	// Percentile ranks used as the low/high intensity thresholds.
	lowPercentile  = 0.33
	highPercentile = 0.66

	// Beat detection constants: low-pass cutoff emphasising kick-drum
	// transients, the normalized amplitude a filtered sample must exceed to
	// count as a peak, and the refractory window that suppresses
	// re-triggering on the same transient.
	lowPassCutoffHz   = 150.0
	lowPassResonanceQ = 1.0
	peakThreshold     = 0.6
	peakSkipSec       = 0.1

	// DefaultBPM is reported when fewer than two peaks are found.
	DefaultBPM = 120
)

// Analyzer runs the audio feature extraction.
type Analyzer struct {
	logger *slog.Logger
}

func NewAnalyzer(logger *slog.Logger) *Analyzer {
	return &Analyzer{logger: logger}
}

// Analyze computes energy segments and the beat/tempo estimate for a decoded
// buffer. The sub-analyses run in parallel over the same (read-only) samples
// and both complete before the Analysis is returned.
func (a *Analyzer) Analyze(buf *media.AudioBuffer) *Analysis {
	duration := buf.Duration()

	var segments []EnergySegment
	var beats []Beat
	var bpm int

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		segments = segmentEnergy(buf.Samples, buf.SampleRate, duration)
	}()

	go func() {
		defer wg.Done()
		beats, bpm = detectBeats(buf.Samples, buf.SampleRate)
	}()

	wg.Wait()

	if a.logger != nil {
		a.logger.Info("audio analysis complete",
			"duration_s", duration,
			"bpm", bpm,
			"beats", len(beats),
			"energy_segments", len(segments),
		)
	}

	return &Analysis{
		Duration:       duration,
		BPM:            bpm,
		Beats:          beats,
		EnergySegments: segments,
	}
}

// segmentEnergy partitions the samples into fixed one-second windows (the
// final window may be shorter), classifies each window's RMS against the
// 33rd/66th percentile thresholds, and merges consecutive windows with the
// same class. The returned segments span [0, duration] exactly.
func segmentEnergy(samples []float32, sampleRate int, duration float64) []EnergySegment {
	if len(samples) == 0 || sampleRate <= 0 {
		return nil
	}

	windowLen := int(energyWindowSec * float64(sampleRate))
	numWindows := (len(samples) + windowLen - 1) / windowLen
	if numWindows == 0 {
		return nil
	}

	rms := make([]float64, numWindows)
	for i := 0; i < numWindows; i++ {
		start := i * windowLen
		end := start + windowLen
		if end > len(samples) {
			end = len(samples)
		}
		rms[i] = windowRMS(samples[start:end])
	}

	sorted := make([]float64, len(rms))
	copy(sorted, rms)
	sort.Float64s(sorted)

	lowThreshold := sorted[percentileIndex(len(sorted), lowPercentile)]
	highThreshold := sorted[percentileIndex(len(sorted), highPercentile)]

	var segments []EnergySegment
	for i, v := range rms {
		intensity := classifyIntensity(v, lowThreshold, highThreshold)
		start := float64(i) * energyWindowSec
		end := start + energyWindowSec
		if i == numWindows-1 || end > duration {
			end = duration
		}

		if n := len(segments); n > 0 && segments[n-1].Intensity == intensity {
			segments[n-1].EndTime = end
			continue
		}
		segments = append(segments, EnergySegment{StartTime: start, EndTime: end, Intensity: intensity})
	}

	return segments
}

func windowRMS(window []float32) float64 {
	if len(window) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range window {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(window)))
}

func percentileIndex(n int, rank float64) int {
	idx := int(float64(n) * rank)
	if idx >= n {
		idx = n - 1
	}
	return idx
}

func classifyIntensity(v, low, high float64) Intensity {
	switch {
	case v >= high:
		return IntensityHigh
	case v >= low:
		return IntensityMedium
	default:
		return IntensityLow
	}
}

// detectBeats low-pass filters the signal to emphasise kick-drum energy, then
// scans for threshold crossings with a refractory skip. Fewer than two peaks
// is not a failure: the defined fallback is DefaultBPM with no beats.
func detectBeats(samples []float32, sampleRate int) ([]Beat, int) {
	if len(samples) == 0 || sampleRate <= 0 {
		return nil, DefaultBPM
	}

	filtered := lowPassFilter(samples, sampleRate, lowPassCutoffHz, lowPassResonanceQ)
	skip := int(peakSkipSec * float64(sampleRate))

	var peaks []int
	for i := 0; i < len(filtered); i++ {
		if math.Abs(filtered[i]) > peakThreshold {
			peaks = append(peaks, i)
			i += skip
		}
	}

	if len(peaks) < 2 {
		return nil, DefaultBPM
	}

	beats := make([]Beat, len(peaks))
	for i, p := range peaks {
		beats[i] = Beat{
			Timestamp: float64(p) / float64(sampleRate),
			// The detector does not model confidence distinctly.
			Confidence: 1.0,
		}
	}

	intervalSum := 0.0
	for i := 1; i < len(peaks); i++ {
		intervalSum += float64(peaks[i]-peaks[i-1]) / float64(sampleRate)
	}
	avgInterval := intervalSum / float64(len(peaks)-1)

	bpm := int(math.Round(60.0 / avgInterval))
	return beats, bpm
}

// lowPassFilter applies a biquad low-pass (RBJ cookbook coefficients) and
// returns the filtered signal as float64.
func lowPassFilter(samples []float32, sampleRate int, cutoffHz, q float64) []float64 {
	omega := 2 * math.Pi * cutoffHz / float64(sampleRate)
	sinW := math.Sin(omega)
	cosW := math.Cos(omega)
	alpha := sinW / (2 * q)

	a0 := 1 + alpha
	b0 := (1 - cosW) / 2 / a0
	b1 := (1 - cosW) / a0
	b2 := (1 - cosW) / 2 / a0
	a1 := -2 * cosW / a0
	a2 := (1 - alpha) / a0

	out := make([]float64, len(samples))
	var x1, x2, y1, y2 float64
	for i, s := range samples {
		x := float64(s)
		y := b0*x + b1*x1 + b2*x2 - a1*y1 - a2*y2
		out[i] = y
		x2, x1 = x1, x
		y2, y1 = y1, y
	}
	return out
}
