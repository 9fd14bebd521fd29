package video

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/tempocut/tempocut-agent/internal/inference"
	"github.com/tempocut/tempocut-agent/internal/media"
)

const (
	// Sample points as fractions of clip duration.
	samplePointEarly  = 0.2
	samplePointCenter = 0.5
	samplePointLate   = 0.8

	// Sample points this close to either clip edge are discarded.
	edgeMarginSec = 0.1

	// Sobel gradient magnitude a pixel must exceed to count as an edge.
	sobelEdgeThreshold = 128.0

	// Motion score breakpoints, highest first.
	motionHighBreak   = 0.10
	motionMediumBreak = 0.03
	motionLowBreak    = 0.005
)

// Extractor computes the visual feature descriptor for one clip. Frame
// sampling, metric computation and inference run sequentially within one
// extraction; concurrency across clips is the coordinator's concern.
type Extractor struct {
	decoder media.Decoder
	backend inference.Backend
	logger  *slog.Logger
}

func NewExtractor(decoder media.Decoder, backend inference.Backend, logger *slog.Logger) *Extractor {
	return &Extractor{decoder: decoder, backend: backend, logger: logger}
}

// Extract samples frames at 20/50/80% of the clip's duration and computes
// all metrics. Frame decode failures surface as media.DecodeError; detector
// failures surface as inference.UnavailableError. The two are distinct on
// purpose: a decode failure condemns the clip, a detector failure does not,
// and the caller decides whether to keep the clip without an analysis.
func (e *Extractor) Extract(ctx context.Context, path string, duration float64) (*Analysis, error) {
	points := samplePoints(duration)

	frames := make([]*media.Frame, 0, len(points))
	for _, ts := range points {
		frame, err := e.decoder.ExtractFrame(ctx, path, ts)
		if err != nil {
			return nil, fmt.Errorf("sample frame at %.3fs: %w", ts, err)
		}
		frames = append(frames, frame)
	}

	center := frames[len(frames)/2]

	analysis := &Analysis{
		MotionLevel:      motionLevel(frames),
		AvgBrightness:    avgBrightness(frames),
		VisualComplexity: visualComplexity(center),
		DominantCategory: CategoryOther,
	}

	objects, err := e.backend.DetectObjects(ctx, center)
	if err != nil {
		return nil, wrapInferenceErr(err)
	}
	faces, err := e.backend.DetectFaces(ctx, center)
	if err != nil {
		return nil, wrapInferenceErr(err)
	}
	analysis.HasFaces = faces > 0
	analysis.DetectedObjects = objects
	analysis.DominantCategory = dominantCategory(objects)

	if e.logger != nil {
		e.logger.Info("video analysis complete",
			"path", path,
			"frames_sampled", len(frames),
			"category", analysis.DominantCategory,
			"motion", analysis.MotionLevel,
			"brightness", analysis.AvgBrightness,
			"complexity", analysis.VisualComplexity,
			"objects", len(objects),
			"has_faces", analysis.HasFaces,
		)
	}
	return analysis, nil
}

// wrapInferenceErr normalizes backend failures to UnavailableError: for the
// caller, a detector that crashed mid-run and one that never loaded both
// mean "no deep analysis for this clip", never "the clip is bad".
func wrapInferenceErr(err error) error {
	if inference.IsUnavailable(err) {
		return err
	}
	return &inference.UnavailableError{Cause: err}
}

// samplePoints returns the timestamps to decode, dropping points within
// edgeMarginSec of either edge. If that leaves nothing (very short clips),
// it falls back to a single midpoint sample.
func samplePoints(duration float64) []float64 {
	candidates := []float64{
		duration * samplePointEarly,
		duration * samplePointCenter,
		duration * samplePointLate,
	}

	points := candidates[:0]
	for _, ts := range candidates {
		if ts < edgeMarginSec || ts > duration-edgeMarginSec {
			continue
		}
		points = append(points, ts)
	}

	if len(points) == 0 {
		return []float64{duration / 2}
	}
	return points
}

// avgBrightness is the mean over all sampled frames of the per-pixel RGB
// average, normalized to [0, 1].
func avgBrightness(frames []*media.Frame) float64 {
	var sum float64
	var count int
	for _, f := range frames {
		for i := 0; i+2 < len(f.Pix); i += 3 {
			sum += (float64(f.Pix[i]) + float64(f.Pix[i+1]) + float64(f.Pix[i+2])) / 3.0
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count) / 255.0
}

// visualComplexity applies a 3x3 Sobel operator to the luminance of the
// center frame and returns the fraction of pixels whose gradient magnitude
// exceeds the edge threshold.
func visualComplexity(frame *media.Frame) float64 {
	w, h := frame.Width, frame.Height
	if w < 3 || h < 3 {
		return 0
	}

	lum := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b := frame.RGBAt(x, y)
			lum[y*w+x] = 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
		}
	}

	edges := 0
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			gx := -lum[(y-1)*w+x-1] + lum[(y-1)*w+x+1] +
				-2*lum[y*w+x-1] + 2*lum[y*w+x+1] +
				-lum[(y+1)*w+x-1] + lum[(y+1)*w+x+1]
			gy := -lum[(y-1)*w+x-1] - 2*lum[(y-1)*w+x] - lum[(y-1)*w+x+1] +
				lum[(y+1)*w+x-1] + 2*lum[(y+1)*w+x] + lum[(y+1)*w+x+1]

			if math.Sqrt(gx*gx+gy*gy) > sobelEdgeThreshold {
				edges++
			}
		}
	}

	interior := (w - 2) * (h - 2)
	return float64(edges) / float64(interior)
}

// motionLevel compares the first and last sampled frames pixel-wise. A
// single sampled frame is Static by definition: there is nothing to compare.
func motionLevel(frames []*media.Frame) MotionLevel {
	if len(frames) < 2 {
		return MotionStatic
	}

	first, last := frames[0], frames[len(frames)-1]
	n := len(first.Pix)
	if len(last.Pix) < n {
		n = len(last.Pix)
	}
	if n == 0 {
		return MotionStatic
	}

	var diff float64
	for i := 0; i < n; i++ {
		d := int(first.Pix[i]) - int(last.Pix[i])
		if d < 0 {
			d = -d
		}
		diff += float64(d)
	}
	score := diff / (float64(n) * 255.0)

	switch {
	case score > motionHighBreak:
		return MotionHigh
	case score > motionMediumBreak:
		return MotionMedium
	case score > motionLowBreak:
		return MotionLow
	default:
		return MotionStatic
	}
}

// Label sets for category derivation. Precedence is fixed: people, then
// urban, then action, then nature; order matters and is preserved exactly.
var categoryRules = []struct {
	category Category
	labels   map[string]bool
}{
	{CategoryPeople, labelSet("person", "man", "woman", "boy", "girl", "people")},
	{CategoryUrban, labelSet("car", "truck", "bus", "motorcycle", "bicycle", "train", "traffic light", "stop sign", "parking meter")},
	{CategoryAction, labelSet("sports ball", "skateboard", "surfboard", "snowboard", "skis", "tennis racket", "baseball bat", "frisbee", "kite")},
	{CategoryNature, labelSet("dog", "cat", "bird", "horse", "sheep", "cow", "elephant", "bear", "zebra", "giraffe", "potted plant", "tree", "flower")},
}

func labelSet(labels ...string) map[string]bool {
	m := make(map[string]bool, len(labels))
	for _, l := range labels {
		m[l] = true
	}
	return m
}

// dominantCategory maps detected object labels to a coarse category by the
// first matching precedence rule.
func dominantCategory(objects []inference.Detection) Category {
	for _, rule := range categoryRules {
		for _, obj := range objects {
			if rule.labels[strings.ToLower(obj.Label)] {
				return rule.category
			}
		}
	}
	return CategoryOther
}
