package media

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestParseProbeOutput(t *testing.T) {
	raw := `{
		"format": {"duration": "12.480000"},
		"streams": [
			{"codec_type": "video", "codec_name": "h264", "width": 1920, "height": 1080, "avg_frame_rate": "30000/1001"},
			{"codec_type": "audio", "codec_name": "aac", "sample_rate": "48000"}
		]
	}`

	var po probeOutput
	if err := json.Unmarshal([]byte(raw), &po); err != nil {
		t.Fatalf("unmarshal fixture: %v", err)
	}

	result, err := parseProbeOutput(&po)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Duration != 12.48 {
		t.Errorf("Duration = %v, want 12.48", result.Duration)
	}
	if result.Width != 1920 || result.Height != 1080 {
		t.Errorf("resolution = %dx%d, want 1920x1080", result.Width, result.Height)
	}
	if result.Codec != "h264" {
		t.Errorf("Codec = %q, want h264", result.Codec)
	}
	if result.AudioCodec != "aac" || result.AudioSample != 48000 {
		t.Errorf("audio = %q/%d, want aac/48000", result.AudioCodec, result.AudioSample)
	}
	if result.FrameRate < 29.96 || result.FrameRate > 29.98 {
		t.Errorf("FrameRate = %v, want ~29.97", result.FrameRate)
	}
}

func TestParseProbeOutput_NoDuration(t *testing.T) {
	var po probeOutput
	if _, err := parseProbeOutput(&po); err == nil {
		t.Fatal("expected error for missing duration, got nil")
	}
}

func TestParseFrameRate(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"30/1", 30},
		{"25", 25},
		{"0/0", 0},
		{"", 0},
	}
	for _, c := range cases {
		if got := parseFrameRate(c.in); got != c.want {
			t.Errorf("parseFrameRate(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestDecodeError_Is(t *testing.T) {
	cause := fmt.Errorf("moov atom not found")
	err := fmt.Errorf("analysis failed: %w", &DecodeError{Path: "/clips/bad.mp4", Cause: cause})

	if !IsDecodeError(err) {
		t.Error("IsDecodeError = false for wrapped DecodeError")
	}
	if IsDecodeError(errors.New("plain")) {
		t.Error("IsDecodeError = true for unrelated error")
	}
	if !strings.Contains(err.Error(), "bad.mp4") {
		t.Errorf("error message missing path: %q", err.Error())
	}
}

func TestAudioBufferDuration(t *testing.T) {
	buf := &AudioBuffer{Samples: make([]float32, 44100), SampleRate: 22050}
	if buf.Duration() != 2.0 {
		t.Errorf("Duration = %v, want 2.0", buf.Duration())
	}

	empty := &AudioBuffer{}
	if empty.Duration() != 0 {
		t.Errorf("empty buffer Duration = %v, want 0", empty.Duration())
	}
}

func TestFrameRGBAt(t *testing.T) {
	f := &Frame{Width: 2, Height: 1, Pix: []byte{1, 2, 3, 4, 5, 6}}
	r, g, b := f.RGBAt(1, 0)
	if r != 4 || g != 5 || b != 6 {
		t.Errorf("RGBAt(1,0) = (%d,%d,%d), want (4,5,6)", r, g, b)
	}
}

func TestLimitedWriterKeepsTail(t *testing.T) {
	var buf bytes.Buffer
	lw := newLimitedWriter(&buf, 4)

	lw.Write([]byte("abcdefgh"))
	if buf.String() != "efgh" {
		t.Errorf("limited writer kept %q, want %q", buf.String(), "efgh")
	}
}
