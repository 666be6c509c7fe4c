// Package moderation calls the external text-moderation collaborator. It is
// best-effort: any transport or decode failure fails open (content unflagged)
// so a moderation outage never blocks posting.
package moderation

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"readloom/internal/logger"

	"go.uber.org/zap"
)

type Moderator interface {
	Check(ctx context.Context, text string) bool
}

type HTTPModerator struct {
	url    string
	client *http.Client
}

func NewHTTPModerator(url string) *HTTPModerator {
	return &HTTPModerator{
		url:    url,
		client: &http.Client{Timeout: 3 * time.Second},
	}
}

func (m *HTTPModerator) Check(ctx context.Context, text string) bool {
	if m.url == "" {
		return false
	}
	body, _ := json.Marshal(map[string]string{"text": text})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url, bytes.NewReader(body))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := m.client.Do(req)
	if err != nil {
		logger.Log.Warn("moderation check failed, failing open", zap.Error(err))
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		logger.Log.Warn("moderation check failed, failing open", zap.Int("status", resp.StatusCode))
		return false
	}
	var result struct {
		Flagged bool `json:"flagged"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false
	}
	return result.Flagged
}
