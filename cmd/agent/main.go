package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tempocut/tempocut-agent/internal/analysis"
	"github.com/tempocut/tempocut-agent/internal/api"
	"github.com/tempocut/tempocut-agent/internal/audio"
	"github.com/tempocut/tempocut-agent/internal/catalog"
	"github.com/tempocut/tempocut-agent/internal/config"
	"github.com/tempocut/tempocut-agent/internal/db"
	"github.com/tempocut/tempocut-agent/internal/inference"
	"github.com/tempocut/tempocut-agent/internal/logging"
	"github.com/tempocut/tempocut-agent/internal/media"
	"github.com/tempocut/tempocut-agent/internal/playback"
	"github.com/tempocut/tempocut-agent/internal/sequence"
	"github.com/tempocut/tempocut-agent/internal/ui"
	"github.com/tempocut/tempocut-agent/internal/video"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	startTime := time.Now()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	if err := os.MkdirAll(cfg.ThumbnailDir(), 0755); err != nil {
		return fmt.Errorf("failed to create thumbnail dir: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting tempocut agent", "version", config.Version, "data_dir", cfg.DataDir())

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	repo := catalog.NewRepository(database.Conn())

	authToken, err := ensureAuthToken(repo)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}

	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════╗")
	fmt.Println("║                   TEMPOCUT AGENT v0.1.0                   ║")
	fmt.Println("╠═══════════════════════════════════════════════════════════╣")
	fmt.Printf("║  API URL:    http://127.0.0.1:%-27d ║\n", cfg.Port())
	fmt.Printf("║  Auth Token: %-45s ║\n", authToken)
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()

	decoder, err := media.NewFFmpegDecoder(cfg.FFmpegPath(), cfg.FFprobePath(), cfg.DecodeTimeout(), logger)
	if err != nil {
		return fmt.Errorf("media decoder unavailable: %w", err)
	}

	// The detector subprocess is expensive to probe, so it only spins up on
	// the first clip that actually needs deep analysis.
	detector := inference.NewLazyBackend(func(ctx context.Context) (inference.Backend, error) {
		return inference.NewSubprocessBackend(ctx, inference.Config{
			PythonPath:    cfg.DetectorPython(),
			ModuleName:    cfg.DetectorModule(),
			ProbeTimeout:  cfg.DetectorTimeoutProbe(),
			DetectTimeout: cfg.DetectorTimeoutDetect(),
			Logger:        logger,
		})
	})

	extractor := video.NewExtractor(decoder, detector, logger)
	coordinator := analysis.NewCoordinator(extractor, logger)

	var oracle sequence.Oracle
	if cfg.OracleURL() != "" {
		oracle = sequence.NewHTTPOracle(cfg.OracleURL(), cfg.OracleToken(), logger)
		logger.Info("sequence oracle configured", "base_url", cfg.OracleURL())
	} else {
		oracle = sequence.NewStubOracle(logger)
		logger.Info("no sequence oracle configured, using beat-grid stub")
	}

	service := catalog.NewService(repo, decoder, audio.NewAnalyzer(logger), coordinator, oracle, cfg.ThumbnailDir(), logger)
	playbackSvc := playback.NewServer(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := catalog.NewRunner(service, repo, logger)
	go runner.Start(ctx)

	apiServer := api.NewServer(api.ServerConfig{
		Port:           cfg.Port(),
		Service:        service,
		Repository:     repo,
		Runner:         runner,
		PlaybackServer: playbackSvc,
		Detector:       detector,
		Logger:         logger,
		StartTime:      startTime,
		Version:        config.Version,
	})

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	quitCh := make(chan struct{})

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			close(quitCh)
		case <-quitCh:
		}
	}()

	if cfg.Headless() {
		logger.Info("running in headless mode (no system tray)")
	} else {
		tray := ui.NewTray(ui.TrayConfig{
			Runner: runner,
			Logger: logger,
			OnQuit: func() {
				close(quitCh)
			},
		})
		go refreshTray(ctx, tray, service, runner)
		go tray.Run()
	}

	<-quitCh

	logger.Info("initiating graceful shutdown")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// refreshTray keeps the tray's status line and clip count roughly current.
func refreshTray(ctx context.Context, tray *ui.Tray, service *catalog.Service, runner *catalog.Runner) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if count, err := service.CountClips(ctx); err == nil {
				tray.UpdateClipCount(count)
			}
			if backlog := runner.BacklogSize(ctx); backlog > 0 {
				tray.UpdateStatus(fmt.Sprintf("Analyzing (%d queued)", backlog))
			} else {
				tray.UpdateStatus("Idle")
			}
		}
	}
}

func ensureAuthToken(repo catalog.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, "auth_token")
	if err == nil && existing != "" {
		return existing, nil
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	if err := repo.SetConfig(ctx, "auth_token", token); err != nil {
		return "", err
	}

	return token, nil
}
