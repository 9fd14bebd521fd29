package api

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/tempocut/tempocut-agent/internal/audio"
	"github.com/tempocut/tempocut-agent/internal/catalog"
	"github.com/tempocut/tempocut-agent/internal/export"
	"github.com/tempocut/tempocut-agent/internal/sequence"
)

func seedSession(t *testing.T, repo catalog.Repository, decisions sequence.DecisionList) *catalog.Session {
	t.Helper()
	ctx := context.Background()

	now := time.Now()
	session := &catalog.Session{
		ID:        catalog.NewID(),
		Mood:      "energetic",
		TrackPath: "/tracks/track.mp3",
		Status:    catalog.SessionStatusCreated,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.CreateSession(ctx, session); err != nil {
		t.Fatalf("seed session: %v", err)
	}
	if err := repo.UpdateSessionAudio(ctx, session.ID, &audio.Analysis{Duration: 10, BPM: 120}); err != nil {
		t.Fatalf("seed audio: %v", err)
	}
	if decisions != nil {
		if err := repo.UpdateSessionDecisions(ctx, session.ID, decisions); err != nil {
			t.Fatalf("seed decisions: %v", err)
		}
	}
	return session
}

func TestExportHandler_WritesEDL(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	seedAnalyzedClip(t, env.repo, "a.mp4")
	seedAnalyzedClip(t, env.repo, "b.mp4")
	session := seedSession(t, env.repo, sequence.DecisionList{
		{ClipIndex: 0, Duration: 1.5, Description: "wide shot"},
		{ClipIndex: 1, Duration: 2},
	})

	outDir := t.TempDir()
	rr := env.do(http.MethodPost, "/export", export.ExportRequest{
		SessionID:   session.ID,
		ProjectName: "My Edit",
		OutputDir:   outDir,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	var resp export.ExportResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status field = %s, want ok", resp.Status)
	}
	if resp.CutCount != 2 {
		t.Errorf("cut_count = %d, want 2", resp.CutCount)
	}
	if resp.DurationMs != 3500 {
		t.Errorf("duration_ms = %d, want 3500", resp.DurationMs)
	}

	content, err := os.ReadFile(resp.OutputPath)
	if err != nil {
		t.Fatalf("read exported file: %v", err)
	}
	if !strings.Contains(string(content), "TITLE: My Edit") {
		t.Errorf("exported EDL missing title, got:\n%s", content)
	}
	if !strings.Contains(string(content), "* COMMENT:  wide shot") {
		t.Errorf("exported EDL missing cut description, got:\n%s", content)
	}
}

func TestExportHandler_DefaultProjectName(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	seedAnalyzedClip(t, env.repo, "a.mp4")
	session := seedSession(t, env.repo, sequence.DecisionList{
		{ClipIndex: 0, Duration: 1},
	})

	rr := env.do(http.MethodPost, "/export", export.ExportRequest{
		SessionID: session.ID,
		OutputDir: t.TempDir(),
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	var resp export.ExportResponse
	json.Unmarshal(rr.Body.Bytes(), &resp)
	want := "tempocut_" + session.ID[:8] + ".edl"
	if !strings.HasSuffix(resp.OutputPath, want) {
		t.Errorf("output path = %s, want suffix %s", resp.OutputPath, want)
	}
}

func TestExportHandler_MissingSessionID(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	rr := env.do(http.MethodPost, "/export", export.ExportRequest{OutputDir: t.TempDir()})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestExportHandler_BadOutputDir(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	rr := env.do(http.MethodPost, "/export", export.ExportRequest{
		SessionID: "some-id",
		OutputDir: "/nonexistent/dir",
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestExportHandler_SessionNotFound(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	rr := env.do(http.MethodPost, "/export", export.ExportRequest{
		SessionID: "no-such-id",
		OutputDir: t.TempDir(),
	})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestExportHandler_NoSequence(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	session := seedSession(t, env.repo, nil)

	rr := env.do(http.MethodPost, "/export", export.ExportRequest{
		SessionID: session.ID,
		OutputDir: t.TempDir(),
	})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusUnprocessableEntity)
	}

	body := decodeJSONBody(t, rr)
	if body["code"] != "NO_SEQUENCE" {
		t.Errorf("error code = %v, want NO_SEQUENCE", body["code"])
	}
}

func TestExportHandler_UnresolvableCuts(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	seedAnalyzedClip(t, env.repo, "only.mp4")
	session := seedSession(t, env.repo, sequence.DecisionList{
		{ClipIndex: 5, Duration: 1},
	})

	rr := env.do(http.MethodPost, "/export", export.ExportRequest{
		SessionID: session.ID,
		OutputDir: t.TempDir(),
	})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d: %s", rr.Code, http.StatusUnprocessableEntity, rr.Body.String())
	}

	body := decodeJSONBody(t, rr)
	if body["code"] != "UNRESOLVABLE_CUTS" {
		t.Errorf("error code = %v, want UNRESOLVABLE_CUTS", body["code"])
	}
}
