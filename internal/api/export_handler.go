package api

import (
	"encoding/json"
	"net/http"

	"github.com/tempocut/tempocut-agent/internal/export"
)

// exportHandler writes a session's repaired cut list as a CMX 3600 EDL.
// Decision indexes resolve against the same analyzed-clip ordering the
// prompt used.
func exportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req export.ExportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		if req.SessionID == "" {
			WriteError(w, http.StatusBadRequest, "session_id is required", "BAD_REQUEST")
			return
		}
		if err := export.ValidateOutputDir(req.OutputDir); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		session, err := cfg.Service.Session(r.Context(), req.SessionID)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if session == nil {
			WriteError(w, http.StatusNotFound, "session not found", "NOT_FOUND")
			return
		}
		if len(session.Decisions) == 0 {
			WriteError(w, http.StatusUnprocessableEntity, "session has no sequence to export", "NO_SEQUENCE")
			return
		}

		clips, err := cfg.Service.SequenceableClips(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}

		cuts, err := export.ResolveCuts(session.Decisions, clips)
		if err != nil {
			WriteError(w, http.StatusUnprocessableEntity, err.Error(), "UNRESOLVABLE_CUTS")
			return
		}

		projectName := req.ProjectName
		if projectName == "" {
			projectName = "tempocut_" + session.ID[:8]
		}
		frameRate := req.FrameRate
		if frameRate <= 0 {
			frameRate = 30.0
		}

		outputPath, err := export.WriteEDL(cuts, projectName, req.OutputDir, frameRate)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to write export file", "INTERNAL_ERROR")
			return
		}

		durationMs := 0
		for _, c := range cuts {
			durationMs += c.SourceOutMs - c.SourceInMs
		}

		WriteJSON(w, http.StatusOK, export.ExportResponse{
			Status:     "ok",
			OutputPath: outputPath,
			CutCount:   len(cuts),
			DurationMs: durationMs,
		})
	}
}
