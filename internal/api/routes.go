package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tempocut/tempocut-agent/internal/analysis"
	"github.com/tempocut/tempocut-agent/internal/catalog"
	"github.com/tempocut/tempocut-agent/internal/inference"
	"github.com/tempocut/tempocut-agent/internal/media"
	"github.com/tempocut/tempocut-agent/internal/sequence"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Repository, cfg.Logger))

		r.Get("/status", statusHandler(cfg))

		r.Post("/scan", scanHandler(cfg))
		r.Get("/clips", listClipsHandler(cfg))
		r.Get("/clips/{id}", getClipHandler(cfg))
		r.Post("/clips/{id}/analyze", analyzeClipHandler(cfg))

		r.Post("/sessions", createSessionHandler(cfg))
		r.Get("/sessions", listSessionsHandler(cfg))
		r.Get("/sessions/{id}", getSessionHandler(cfg))
		r.Post("/sessions/{id}/sequence", generateSequenceHandler(cfg))

		r.Post("/export", exportHandler(cfg))

		r.Get("/playback/clip", playbackHandler(cfg))
		r.Get("/thumbnails/{id}", thumbnailHandler(cfg))

		r.Post("/runner/pause", runnerPauseHandler(cfg))
		r.Post("/runner/resume", runnerResumeHandler(cfg))
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: cfg.Version,
			UptimeS: uptime,
		})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		clips, err := cfg.Service.Clips(ctx)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list clips", "INTERNAL_ERROR")
			return
		}

		resp := StatusResponse{State: "idle", ClipsTotal: len(clips)}
		for _, c := range clips {
			switch c.Status {
			case catalog.ClipStatusPending, catalog.ClipStatusAnalyzing:
				resp.ClipsPending++
			case catalog.ClipStatusAnalyzed:
				resp.ClipsAnalyzed++
			case catalog.ClipStatusFailed:
				resp.ClipsFailed++
				if resp.LastError == "" {
					resp.LastError = c.Error
				}
			}
		}

		if resp.ClipsPending > 0 {
			resp.State = "analyzing"
		}
		if cfg.Runner != nil && cfg.Runner.IsPaused() {
			resp.State = "paused"
			resp.RunnerPaused = true
		}
		if cfg.Detector != nil {
			resp.DetectorReady = cfg.Detector.Ready()
		}

		WriteJSON(w, http.StatusOK, resp)
	}
}

func scanHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ScanRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.Path == "" {
			WriteError(w, http.StatusBadRequest, "path is required", "BAD_REQUEST")
			return
		}

		result, err := cfg.Service.ScanFolder(r.Context(), req.Path)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		WriteJSON(w, http.StatusOK, result)
	}
}

func listClipsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clips, err := cfg.Service.Clips(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list clips", "INTERNAL_ERROR")
			return
		}

		resp := ClipsResponse{Clips: make([]ClipResponse, len(clips))}
		for i, c := range clips {
			resp.Clips[i] = ClipToResponse(c)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func getClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		clip, err := cfg.Service.Clip(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if clip == nil {
			WriteError(w, http.StatusNotFound, "clip not found", "NOT_FOUND")
			return
		}

		WriteJSON(w, http.StatusOK, ClipToResponse(clip))
	}
}

func analyzeClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		clip, err := cfg.Service.AnalyzeClip(r.Context(), id)
		if err != nil {
			switch {
			case errors.Is(err, analysis.ErrAlreadyInProgress):
				WriteError(w, http.StatusConflict, "analysis already in progress", "ALREADY_IN_PROGRESS")
			case media.IsDecodeError(err):
				WriteError(w, http.StatusUnprocessableEntity, err.Error(), "UNDECODABLE")
			case inference.IsUnavailable(err):
				WriteError(w, http.StatusServiceUnavailable, err.Error(), "DETECTOR_UNAVAILABLE")
			case err.Error() == "clip not found":
				WriteError(w, http.StatusNotFound, "clip not found", "NOT_FOUND")
			default:
				WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			}
			return
		}

		WriteJSON(w, http.StatusOK, ClipToResponse(clip))
	}
}

func createSessionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.TrackPath == "" {
			WriteError(w, http.StatusBadRequest, "track_path is required", "BAD_REQUEST")
			return
		}

		session, err := cfg.Service.CreateSession(r.Context(), req.TrackPath, req.Mood)
		if err != nil {
			if media.IsDecodeError(err) {
				WriteError(w, http.StatusUnprocessableEntity, err.Error(), "UNDECODABLE")
				return
			}
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		WriteJSON(w, http.StatusCreated, SessionToResponse(session))
	}
}

func listSessionsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessions, err := cfg.Service.Sessions(r.Context(), 50)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list sessions", "INTERNAL_ERROR")
			return
		}

		resp := SessionsResponse{Sessions: make([]SessionResponse, len(sessions))}
		for i, s := range sessions {
			resp.Sessions[i] = SessionToResponse(s)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func getSessionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		session, err := cfg.Service.Session(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if session == nil {
			WriteError(w, http.StatusNotFound, "session not found", "NOT_FOUND")
			return
		}

		WriteJSON(w, http.StatusOK, SessionToResponse(session))
	}
}

func generateSequenceHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		session, err := cfg.Service.GenerateSequence(r.Context(), id)
		if err != nil {
			switch {
			case errors.Is(err, sequence.ErrNoUsableDecisions):
				WriteError(w, http.StatusUnprocessableEntity, err.Error(), "NO_USABLE_DECISIONS")
			case err.Error() == "session not found":
				WriteError(w, http.StatusNotFound, "session not found", "NOT_FOUND")
			default:
				WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			}
			return
		}

		WriteJSON(w, http.StatusOK, SessionToResponse(session))
	}
}

func playbackHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clipID := r.URL.Query().Get("clip_id")
		if clipID == "" {
			WriteError(w, http.StatusBadRequest, "clip_id is required", "BAD_REQUEST")
			return
		}

		clip, err := cfg.Service.Clip(r.Context(), clipID)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if clip == nil {
			WriteError(w, http.StatusNotFound, "clip not found", "NOT_FOUND")
			return
		}

		if err := cfg.PlaybackServer.ServeFile(w, r, clip.Path); err != nil {
			cfg.Logger.Error("playback error", "error", err, "clip_id", clipID)
		}
	}
}

func thumbnailHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		clip, err := cfg.Service.Clip(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if clip == nil || clip.ThumbnailPath == "" {
			WriteError(w, http.StatusNotFound, "thumbnail not found", "NOT_FOUND")
			return
		}

		if err := cfg.PlaybackServer.ServeThumbnail(w, r, clip.ThumbnailPath); err != nil {
			cfg.Logger.Error("thumbnail error", "error", err, "clip_id", id)
		}
	}
}

func runnerPauseHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Runner == nil {
			WriteError(w, http.StatusServiceUnavailable, "runner not available", "UNAVAILABLE")
			return
		}
		cfg.Runner.Pause()
		w.WriteHeader(http.StatusNoContent)
	}
}

func runnerResumeHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Runner == nil {
			WriteError(w, http.StatusServiceUnavailable, "runner not available", "UNAVAILABLE")
			return
		}
		cfg.Runner.Resume()
		w.WriteHeader(http.StatusNoContent)
	}
}
