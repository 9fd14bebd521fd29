// Package media provides the media decode capability used by the audio and
// video feature extractors: probing container metadata, decoding audio sample
// buffers, and extracting single decoded frames at a timestamp.
package media

import (
	"context"
	"errors"
	"fmt"
)

// DecodeError indicates a file could not be decoded (corrupt or unsupported
// container). It is unrecoverable for that file: re-decoding the same bytes
// will not succeed, so callers must not retry.
type DecodeError struct {
	Path  string
	Cause error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("media decode failed for %s: %v", e.Path, e.Cause)
}

func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// IsDecodeError reports whether err is (or wraps) a DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

// ProbeResult holds container metadata for a media file.
type ProbeResult struct {
	Duration    float64
	Width       int
	Height      int
	Codec       string
	FrameRate   float64
	AudioCodec  string
	AudioSample int
}

// AudioBuffer is a decoded mono sample buffer. Samples are the first channel
// of the source, normalized to [-1, 1].
type AudioBuffer struct {
	Samples    []float32
	SampleRate int
}

// Duration returns the buffer length in seconds.
func (b *AudioBuffer) Duration() float64 {
	if b.SampleRate <= 0 {
		return 0
	}
	return float64(len(b.Samples)) / float64(b.SampleRate)
}

// Frame is a decoded video frame in packed RGB24 order.
type Frame struct {
	Width  int
	Height int
	Pix    []byte // len = Width*Height*3
}

// RGBAt returns the red, green and blue components of the pixel at (x, y).
func (f *Frame) RGBAt(x, y int) (r, g, b uint8) {
	i := (y*f.Width + x) * 3
	return f.Pix[i], f.Pix[i+1], f.Pix[i+2]
}

// Decoder is the media decode capability. Implementations must be safe for
// concurrent use; every call spawns independent work.
type Decoder interface {
	// Probe reads container metadata without decoding media data.
	Probe(ctx context.Context, path string) (*ProbeResult, error)

	// DecodeAudio decodes the full audio track to a mono sample buffer.
	DecodeAudio(ctx context.Context, path string) (*AudioBuffer, error)

	// ExtractFrame decodes the single frame nearest to the given timestamp.
	ExtractFrame(ctx context.Context, path string, timestamp float64) (*Frame, error)

	// GenerateThumbnail writes a JPEG thumbnail for the frame at the offset.
	GenerateThumbnail(ctx context.Context, path, outputPath string, timeOffset float64) error
}
