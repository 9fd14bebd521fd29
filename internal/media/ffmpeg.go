package media

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	// Audio is decoded to mono at this rate; enough for energy and
	// low-frequency beat analysis while keeping buffers small.
	decodeSampleRate = 22050

	maxStderrBytes = 8 * 1024 // tail of stderr kept for diagnostics
)

// FFmpegDecoder implements Decoder by shelling out to ffmpeg/ffprobe.
type FFmpegDecoder struct {
	ffmpeg  string
	ffprobe string
	timeout time.Duration
	logger  *slog.Logger
}

// NewFFmpegDecoder resolves the ffmpeg and ffprobe binaries and returns a
// ready decoder. Empty paths mean auto-detect on PATH.
func NewFFmpegDecoder(ffmpegPath, ffprobePath string, timeout time.Duration, logger *slog.Logger) (*FFmpegDecoder, error) {
	ffmpeg, err := resolveBinary(ffmpegPath, "ffmpeg")
	if err != nil {
		return nil, err
	}
	ffprobe, err := resolveBinary(ffprobePath, "ffprobe")
	if err != nil {
		return nil, err
	}

	logger.Info("media decoder initialised", "ffmpeg", ffmpeg, "ffprobe", ffprobe)
	return &FFmpegDecoder{ffmpeg: ffmpeg, ffprobe: ffprobe, timeout: timeout, logger: logger}, nil
}

func resolveBinary(preferred, name string) (string, error) {
	if preferred != "" {
		if p, err := exec.LookPath(preferred); err == nil {
			return p, nil
		}
		return "", fmt.Errorf("configured %s %q not found", name, preferred)
	}
	p, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("no %s binary found on PATH", name)
	}
	return p, nil
}

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []probeStream `json:"streams"`
}

type probeStream struct {
	CodecType    string `json:"codec_type"`
	CodecName    string `json:"codec_name"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	AvgFrameRate string `json:"avg_frame_rate"`
	SampleRate   string `json:"sample_rate"`
}

func (d *FFmpegDecoder) Probe(ctx context.Context, path string) (*ProbeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, d.ffprobe,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	var stderr bytes.Buffer
	cmd.Stderr = newLimitedWriter(&stderr, maxStderrBytes)

	out, err := cmd.Output()
	if err != nil {
		return nil, &DecodeError{Path: path, Cause: fmt.Errorf("ffprobe: %v: %s", err, stderr.String())}
	}

	var po probeOutput
	if err := json.Unmarshal(out, &po); err != nil {
		return nil, &DecodeError{Path: path, Cause: fmt.Errorf("parse ffprobe output: %w", err)}
	}

	result, err := parseProbeOutput(&po)
	if err != nil {
		return nil, &DecodeError{Path: path, Cause: err}
	}
	return result, nil
}

func parseProbeOutput(po *probeOutput) (*ProbeResult, error) {
	result := &ProbeResult{}

	if po.Format.Duration != "" {
		dur, err := strconv.ParseFloat(po.Format.Duration, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid duration %q", po.Format.Duration)
		}
		result.Duration = dur
	}

	for _, s := range po.Streams {
		switch s.CodecType {
		case "video":
			if result.Width == 0 {
				result.Width = s.Width
				result.Height = s.Height
				result.Codec = s.CodecName
				result.FrameRate = parseFrameRate(s.AvgFrameRate)
			}
		case "audio":
			if result.AudioCodec == "" {
				result.AudioCodec = s.CodecName
				result.AudioSample, _ = strconv.Atoi(s.SampleRate)
			}
		}
	}

	if result.Duration <= 0 {
		return nil, fmt.Errorf("no usable duration in container")
	}
	return result, nil
}

// parseFrameRate converts ffprobe's rational "30000/1001" form to a float.
func parseFrameRate(s string) float64 {
	num, den, ok := strings.Cut(s, "/")
	if !ok {
		f, _ := strconv.ParseFloat(s, 64)
		return f
	}
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 {
		return 0
	}
	return n / d
}

func (d *FFmpegDecoder) DecodeAudio(ctx context.Context, path string) (*AudioBuffer, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(ctx, d.ffmpeg,
		"-v", "error",
		"-i", path,
		"-map", "0:a:0",
		"-f", "f32le",
		"-acodec", "pcm_f32le",
		"-ac", "1",
		"-ar", strconv.Itoa(decodeSampleRate),
		"-",
	)

	var stderr bytes.Buffer
	cmd.Stderr = newLimitedWriter(&stderr, maxStderrBytes)

	data, err := cmd.Output()
	if err != nil {
		return nil, &DecodeError{Path: path, Cause: fmt.Errorf("ffmpeg audio decode: %v: %s", err, stderr.String())}
	}

	numSamples := len(data) / 4
	if numSamples == 0 {
		return nil, &DecodeError{Path: path, Cause: fmt.Errorf("no audio data decoded: %s", stderr.String())}
	}

	samples := make([]float32, numSamples)
	for i := 0; i < numSamples; i++ {
		bits := binary.LittleEndian.Uint32(data[i*4 : i*4+4])
		samples[i] = math.Float32frombits(bits)
	}

	d.logger.Debug("audio decoded",
		"samples", numSamples,
		"sample_rate", decodeSampleRate,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return &AudioBuffer{Samples: samples, SampleRate: decodeSampleRate}, nil
}

func (d *FFmpegDecoder) ExtractFrame(ctx context.Context, path string, timestamp float64) (*Frame, error) {
	probe, err := d.Probe(ctx, path)
	if err != nil {
		return nil, err
	}
	if probe.Width <= 0 || probe.Height <= 0 {
		return nil, &DecodeError{Path: path, Cause: fmt.Errorf("no video stream")}
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, d.ffmpeg,
		"-v", "error",
		"-ss", strconv.FormatFloat(timestamp, 'f', 3, 64),
		"-i", path,
		"-frames:v", "1",
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"-",
	)

	var stderr bytes.Buffer
	cmd.Stderr = newLimitedWriter(&stderr, maxStderrBytes)

	data, err := cmd.Output()
	if err != nil {
		return nil, &DecodeError{Path: path, Cause: fmt.Errorf("ffmpeg frame extract at %.3fs: %v: %s", timestamp, err, stderr.String())}
	}

	want := probe.Width * probe.Height * 3
	if len(data) < want {
		return nil, &DecodeError{Path: path, Cause: fmt.Errorf("short frame read at %.3fs: got %d bytes, want %d", timestamp, len(data), want)}
	}

	return &Frame{Width: probe.Width, Height: probe.Height, Pix: data[:want]}, nil
}

func (d *FFmpegDecoder) GenerateThumbnail(ctx context.Context, path, outputPath string, timeOffset float64) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("cannot create thumbnail dir: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, d.ffmpeg,
		"-v", "error",
		"-ss", strconv.FormatFloat(timeOffset, 'f', 3, 64),
		"-i", path,
		"-frames:v", "1",
		"-vf", "scale=320:-1",
		"-y",
		outputPath,
	)

	var stderr bytes.Buffer
	cmd.Stderr = newLimitedWriter(&stderr, maxStderrBytes)

	if err := cmd.Run(); err != nil {
		return &DecodeError{Path: path, Cause: fmt.Errorf("ffmpeg thumbnail: %v: %s", err, stderr.String())}
	}
	return nil
}

// limitedWriter keeps only the last `limit` bytes written.
type limitedWriter struct {
	w     *bytes.Buffer
	limit int
}

func newLimitedWriter(w *bytes.Buffer, limit int) *limitedWriter {
	return &limitedWriter{w: w, limit: limit}
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	lw.w.Write(p)
	if lw.w.Len() > lw.limit {
		b := lw.w.Bytes()
		lw.w.Reset()
		lw.w.Write(b[len(b)-lw.limit:])
	}
	return n, nil
}
