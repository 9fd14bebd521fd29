package sequence

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// OracleError represents a failed response from the sequencing endpoint.
type OracleError struct {
	StatusCode int
	Body       string
}

func (e *OracleError) Error() string {
	return fmt.Sprintf("sequence request failed: HTTP %d: %s", e.StatusCode, e.Body)
}

// IsRetryable returns true for server errors (5xx) and network errors.
// Client errors (4xx) are considered permanent.
func (e *OracleError) IsRetryable() bool {
	return e.StatusCode >= 500
}

// Oracle proposes a cut list for a track and clip set. Its output is raw
// bytes because nothing about it is trusted; Repair turns it into a
// DecisionList or fails.
type Oracle interface {
	Propose(ctx context.Context, req PromptRequest) ([]byte, error)
}

// HTTPOracle talks to a remote sequencing service. The service receives the
// full PromptRequest as JSON and answers with whatever its model produced.
type HTTPOracle struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewHTTPOracle(baseURL, token string, logger *slog.Logger) *HTTPOracle {
	return &HTTPOracle{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}
}

func (o *HTTPOracle) Propose(ctx context.Context, promptReq PromptRequest) ([]byte, error) {
	body, err := json.Marshal(promptReq)
	if err != nil {
		return nil, fmt.Errorf("marshal prompt request: %w", err)
	}

	url := fmt.Sprintf("%s/api/sequence", o.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if o.token != "" {
		req.Header.Set("Authorization", "Bearer "+o.token)
	}
	req.Header.Set("X-Tempocut-Request-Id", generateRequestID())

	o.logger.Info("requesting sequence from oracle",
		"url", url,
		"mood", promptReq.Mood,
		"clip_count", len(promptReq.Clips),
		"body_bytes", len(body),
	)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		o.logger.Info("oracle responded", "body_bytes", len(respBody))
		return respBody, nil
	}

	return nil, &OracleError{StatusCode: resp.StatusCode, Body: string(respBody)}
}

// StubOracle produces a deterministic round-robin cut list locally. Used
// when no oracle URL is configured, so the rest of the pipeline stays
// exercisable offline.
type StubOracle struct {
	logger *slog.Logger
}

func NewStubOracle(logger *slog.Logger) *StubOracle {
	return &StubOracle{logger: logger}
}

func (o *StubOracle) Propose(_ context.Context, promptReq PromptRequest) ([]byte, error) {
	if len(promptReq.Clips) == 0 {
		return nil, fmt.Errorf("stub oracle: no clips to sequence")
	}

	// Cut on the half-beat when tempo is known, otherwise every two seconds.
	cutLen := 2.0
	var trackLen float64
	if promptReq.Audio != nil {
		trackLen = promptReq.Audio.Duration
		if promptReq.Audio.BPM > 0 {
			cutLen = 2 * 60.0 / float64(promptReq.Audio.BPM)
		}
	}
	if trackLen <= 0 {
		trackLen = cutLen * float64(len(promptReq.Clips))
	}

	var decisions DecisionList
	for elapsed := 0.0; elapsed < trackLen; elapsed += cutLen {
		d := cutLen
		if remaining := trackLen - elapsed; remaining < d {
			d = remaining
		}
		decisions = append(decisions, Decision{
			ClipIndex:   len(decisions) % len(promptReq.Clips),
			Duration:    d,
			Description: "round-robin cut",
		})
	}

	o.logger.Info("stub oracle produced sequence", "decisions", len(decisions))
	return json.Marshal(decisions)
}

// Generate asks the oracle for a cut list and repairs whatever comes back.
func Generate(ctx context.Context, oracle Oracle, req PromptRequest) (DecisionList, error) {
	raw, err := oracle.Propose(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("oracle: %w", err)
	}
	return Repair(raw, len(req.Clips))
}

func generateRequestID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:])
}
