// Package config provides configuration management for the Tempocut Agent.
// Configuration is loaded from environment variables with sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	// Default values
	DefaultPort     = 8878
	DefaultLogLevel = "info"
	DefaultDataDir  = ".tempocut"

	// Environment variable names
	EnvPort     = "TEMPOCUT_PORT"
	EnvLogLevel = "TEMPOCUT_LOG_LEVEL"
	EnvDataDir  = "TEMPOCUT_DATA_DIR"
	EnvHeadless = "TEMPOCUT_HEADLESS"

	// Media decode environment variable names
	EnvFFmpeg  = "TEMPOCUT_FFMPEG"
	EnvFFprobe = "TEMPOCUT_FFPROBE"

	// Detector (inference backend) environment variable names
	EnvDetectorPython = "TEMPOCUT_DETECTOR_PYTHON"
	EnvDetectorModule = "TEMPOCUT_DETECTOR_MODULE"

	// Sequencing oracle environment variable names
	EnvOracleURL   = "TEMPOCUT_ORACLE_URL"
	EnvOracleToken = "TEMPOCUT_ORACLE_TOKEN"

	// Database filename
	DBFilename = "tempocut.db"

	// Detector defaults
	DefaultDetectorModule        = "tempocut_detector"
	DefaultDetectorTimeoutProbe  = 30  // seconds
	DefaultDetectorTimeoutDetect = 120 // seconds

	// Decode defaults
	DefaultDecodeTimeout = 300 // seconds

	// Oracle defaults
	DefaultOracleTimeout = 120 // seconds
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	ThumbnailDir() string
	Headless() bool
	FFmpegPath() string
	FFprobePath() string
	DecodeTimeout() time.Duration
	DetectorPython() string
	DetectorModule() string
	DetectorTimeoutProbe() time.Duration
	DetectorTimeoutDetect() time.Duration
	OracleURL() string
	OracleToken() string
	OracleTimeout() time.Duration
}

// EnvConfig reads configuration from environment variables
type EnvConfig struct {
	port     int
	logLevel string
	dataDir  string
	headless bool

	ffmpegPath  string
	ffprobePath string

	detectorPython string
	detectorModule string

	oracleURL   string
	oracleToken string
}

// New creates a new EnvConfig with defaults and environment variable overrides
func New() (*EnvConfig, error) {
	cfg := &EnvConfig{
		port:     DefaultPort,
		logLevel: DefaultLogLevel,
		dataDir:  defaultDataDir(),
	}

	// Override port from environment
	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}

	// Override log level from environment
	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}

	// Override data directory from environment
	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}

	if h := os.Getenv(EnvHeadless); h != "" {
		headless, err := strconv.ParseBool(h)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvHeadless, err)
		}
		cfg.headless = headless
	}

	cfg.ffmpegPath = os.Getenv(EnvFFmpeg)
	cfg.ffprobePath = os.Getenv(EnvFFprobe)
	cfg.detectorPython = os.Getenv(EnvDetectorPython)

	if dm := os.Getenv(EnvDetectorModule); dm != "" {
		cfg.detectorModule = dm
	}

	cfg.oracleURL = os.Getenv(EnvOracleURL)
	cfg.oracleToken = os.Getenv(EnvOracleToken)

	return cfg, nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// ThumbnailDir returns the directory clip thumbnails are written to
func (c *EnvConfig) ThumbnailDir() string {
	return filepath.Join(c.dataDir, "thumbnails")
}

// Headless reports whether the system tray should be skipped
func (c *EnvConfig) Headless() bool {
	return c.headless
}

// FFmpegPath returns the configured ffmpeg binary path, empty for auto-detect
func (c *EnvConfig) FFmpegPath() string {
	return c.ffmpegPath
}

// FFprobePath returns the configured ffprobe binary path, empty for auto-detect
func (c *EnvConfig) FFprobePath() string {
	return c.ffprobePath
}

func (c *EnvConfig) DecodeTimeout() time.Duration {
	return time.Duration(DefaultDecodeTimeout) * time.Second
}

func (c *EnvConfig) DetectorPython() string {
	return c.detectorPython
}

func (c *EnvConfig) DetectorModule() string {
	if c.detectorModule != "" {
		return c.detectorModule
	}
	return DefaultDetectorModule
}

func (c *EnvConfig) DetectorTimeoutProbe() time.Duration {
	return time.Duration(DefaultDetectorTimeoutProbe) * time.Second
}

func (c *EnvConfig) DetectorTimeoutDetect() time.Duration {
	return time.Duration(DefaultDetectorTimeoutDetect) * time.Second
}

func (c *EnvConfig) OracleURL() string {
	return c.oracleURL
}

func (c *EnvConfig) OracleToken() string {
	return c.oracleToken
}

func (c *EnvConfig) OracleTimeout() time.Duration {
	return time.Duration(DefaultOracleTimeout) * time.Second
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
