package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"time"

	"github.com/tempocut/tempocut-agent/internal/media"
)

const maxStderrBytes = 8 * 1024

// Config holds the subprocess backend's configuration.
type Config struct {
	PythonPath    string        // path to python binary; empty = auto-detect
	ModuleName    string        // default "tempocut_detector"
	ProbeTimeout  time.Duration // timeout for the probe command
	DetectTimeout time.Duration // timeout for a single detection call
	Logger        *slog.Logger
}

// Capabilities reports what the installed detector module can do, as
// returned by its `probe --json` command.
type Capabilities struct {
	ModelVersion string    `json:"model_version"`
	HasObjects   bool      `json:"has_objects"`
	HasFaces     bool      `json:"has_faces"`
	ProbedAt     time.Time `json:"-"`
}

// SubprocessBackend runs the Python detector module as a subprocess per
// call. Frames are streamed on stdin as a "width height\n" header followed
// by packed RGB24 bytes; results come back as JSON on stdout.
type SubprocessBackend struct {
	cfg    Config
	python string
}

// NewSubprocessBackend resolves the Python binary and probes the detector
// module once. Any failure here is an UnavailableError: the backend never became
// available, as opposed to a detection that failed at runtime.
func NewSubprocessBackend(ctx context.Context, cfg Config) (*SubprocessBackend, error) {
	python, err := resolvePython(cfg.PythonPath)
	if err != nil {
		return nil, &UnavailableError{Cause: err}
	}

	b := &SubprocessBackend{cfg: cfg, python: python}

	caps, err := b.Probe(ctx)
	if err != nil {
		return nil, &UnavailableError{Cause: err}
	}

	cfg.Logger.Info("inference backend initialised",
		"python", python,
		"module", cfg.ModuleName,
		"model_version", caps.ModelVersion,
		"objects", caps.HasObjects,
		"faces", caps.HasFaces,
	)
	return b, nil
}

// Probe asks the detector module to report its capabilities.
func (b *SubprocessBackend) Probe(ctx context.Context) (*Capabilities, error) {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.ProbeTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, b.python, "-m", b.cfg.ModuleName, "probe", "--json")

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("detector probe failed: %v: %s", err, tail(stderr.Bytes(), maxStderrBytes))
	}

	var caps Capabilities
	if err := json.Unmarshal(out, &caps); err != nil {
		return nil, fmt.Errorf("cannot parse probe JSON: %w", err)
	}
	caps.ProbedAt = time.Now()
	return &caps, nil
}

type detectResponse struct {
	Objects []Detection `json:"objects"`
	Faces   int         `json:"faces"`
}

func (b *SubprocessBackend) DetectObjects(ctx context.Context, frame *media.Frame) ([]Detection, error) {
	resp, err := b.detect(ctx, frame, "objects")
	if err != nil {
		return nil, err
	}
	return resp.Objects, nil
}

func (b *SubprocessBackend) DetectFaces(ctx context.Context, frame *media.Frame) (int, error) {
	resp, err := b.detect(ctx, frame, "faces")
	if err != nil {
		return 0, err
	}
	return resp.Faces, nil
}

func (b *SubprocessBackend) detect(ctx context.Context, frame *media.Frame, mode string) (*detectResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.DetectTimeout)
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(ctx, b.python, "-m", b.cfg.ModuleName, "detect", "--mode", mode)

	var stdin bytes.Buffer
	stdin.WriteString(strconv.Itoa(frame.Width))
	stdin.WriteByte(' ')
	stdin.WriteString(strconv.Itoa(frame.Height))
	stdin.WriteByte('\n')
	stdin.Write(frame.Pix)
	cmd.Stdin = &stdin

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("detector %s failed: %v: %s", mode, err, tail(stderr.Bytes(), maxStderrBytes))
	}

	var resp detectResponse
	if err := json.Unmarshal(out, &resp); err != nil {
		return nil, fmt.Errorf("cannot parse detector output: %w", err)
	}

	b.cfg.Logger.Debug("detection complete",
		"mode", mode,
		"objects", len(resp.Objects),
		"faces", resp.Faces,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return &resp, nil
}

// resolvePython finds a usable python binary.
func resolvePython(preferred string) (string, error) {
	if preferred != "" {
		if p, err := exec.LookPath(preferred); err == nil {
			return p, nil
		}
		return "", fmt.Errorf("configured python %q not found", preferred)
	}
	for _, name := range []string{"python3", "python"} {
		if p, err := exec.LookPath(name); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("no python binary found on PATH (tried python3, python)")
}

func tail(b []byte, maxLen int) []byte {
	if len(b) <= maxLen {
		return b
	}
	return b[len(b)-maxLen:]
}
