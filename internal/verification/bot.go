package verification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	sendCodePath   = "/send-verification-code"
	verifyCodePath = "/verify-code"
)

// Reply is the body returned by the bot service.
type Reply struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Bot is the external service that owns the one-time code lifecycle.
//
// A non-nil error means the exchange itself failed (network error, non-JSON
// body, non-2xx status without a readable reply). Otherwise Reply reports the
// service's own verdict.
type Bot interface {
	SendCode(ctx context.Context, handle string) (Reply, error)
	VerifyCode(ctx context.Context, handle, code string) (Reply, error)
}

// HTTPBot talks to the bot service over JSON/HTTP.
type HTTPBot struct {
	baseURL string
	http    *http.Client
}

// NewHTTPBot builds a client for the bot service at baseURL. A zero timeout
// leaves the transport default in place.
func NewHTTPBot(baseURL string, timeout time.Duration) *HTTPBot {
	return &HTTPBot{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

type sendCodeRequest struct {
	Telegram string `json:"telegram"`
}

type verifyCodeRequest struct {
	Telegram string `json:"telegram"`
	Code     string `json:"code"`
}

// SendCode asks the bot to deliver a fresh code to handle.
func (b *HTTPBot) SendCode(ctx context.Context, handle string) (Reply, error) {
	return b.post(ctx, sendCodePath, sendCodeRequest{Telegram: handle})
}

// VerifyCode asks the bot whether code is the pending code for handle.
func (b *HTTPBot) VerifyCode(ctx context.Context, handle, code string) (Reply, error) {
	return b.post(ctx, verifyCodePath, verifyCodeRequest{Telegram: handle, Code: code})
}

func (b *HTTPBot) post(ctx context.Context, path string, payload any) (Reply, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Reply{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return Reply{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.http.Do(req)
	if err != nil {
		return Reply{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Reply{}, fmt.Errorf("read bot response: %w", err)
	}

	var reply Reply
	decodeErr := json.Unmarshal(raw, &reply)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if decodeErr == nil {
			// A readable reply on a failed status is still a refusal.
			reply.Success = false
			return reply, nil
		}
		return Reply{}, fmt.Errorf("bot http error (%d): %s", resp.StatusCode, truncate(raw, 200))
	}
	if decodeErr != nil {
		return Reply{}, fmt.Errorf("decode bot response: %w", decodeErr)
	}
	return reply, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
