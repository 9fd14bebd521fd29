// Package inference provides the pluggable object/face detection capability
// consumed by the video feature extractor. The production implementation
// shells into a Python detector module; failure to load the backend is
// distinguishable from failure to run it, so callers can fall back to
// shallow analysis instead of rejecting a clip.
package inference

import (
	"context"
	"errors"
	"fmt"

	"github.com/tempocut/tempocut-agent/internal/media"
)

// UnavailableError indicates the inference backend could not be loaded
// (missing interpreter, missing model weights) or failed while running.
// Either way the clip itself is fine: callers may keep it and skip deep
// visual analysis, unlike a decode error which condemns the file.
type UnavailableError struct {
	Cause error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("inference backend unavailable: %v", e.Cause)
}

func (e *UnavailableError) Unwrap() error {
	return e.Cause
}

// IsUnavailable reports whether err is (or wraps) an UnavailableError.
func IsUnavailable(err error) bool {
	var ue *UnavailableError
	return errors.As(err, &ue)
}

// Detection is one labeled object with its confidence score.
type Detection struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Backend is the inference capability. Implementations must be safe for
// concurrent use; each call is independent.
type Backend interface {
	// DetectObjects runs object detection on a decoded frame.
	DetectObjects(ctx context.Context, frame *media.Frame) ([]Detection, error)

	// DetectFaces returns the number of faces found in a decoded frame.
	DetectFaces(ctx context.Context, frame *media.Frame) (int, error)
}
