package verification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/student-portal/student_portal/internal/logging"
)

// fakeBot is a scripted bot service.
type fakeBot struct {
	mu       sync.Mutex
	status   int
	body     string
	requests []map[string]any
	paths    []string
}

func (f *fakeBot) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	_ = json.NewDecoder(r.Body).Decode(&payload)
	f.mu.Lock()
	f.requests = append(f.requests, payload)
	f.paths = append(f.paths, r.URL.Path)
	status, body := f.status, f.body
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func (f *fakeBot) seen() ([]string, []map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.paths...), append([]map[string]any(nil), f.requests...)
}

func newCoordinator(t *testing.T, bot *fakeBot) *Coordinator {
	t.Helper()
	srv := httptest.NewServer(bot)
	t.Cleanup(srv.Close)
	return NewCoordinator(NewHTTPBot(srv.URL, 0), logging.Discard())
}

func requireKind(t *testing.T, err error, kind error, message string) {
	t.Helper()
	require.ErrorIs(t, err, kind)
	var verr *Error
	require.ErrorAs(t, err, &verr)
	require.Equal(t, message, verr.Message)
}

func TestRequestCodeSuccess(t *testing.T) {
	bot := &fakeBot{status: http.StatusOK, body: `{"success":true}`}
	c := newCoordinator(t, bot)

	require.NoError(t, c.RequestCode(context.Background(), "@ali"))
	paths, requests := bot.seen()
	require.Equal(t, []string{sendCodePath}, paths)
	require.Equal(t, map[string]any{"telegram": "@ali"}, requests[0])
}

func TestRequestCodeMissingHandle(t *testing.T) {
	bot := &fakeBot{status: http.StatusOK, body: `{"success":true}`}
	c := newCoordinator(t, bot)

	require.ErrorIs(t, c.RequestCode(context.Background(), ""), ErrMissingHandle)
	require.ErrorIs(t, c.RequestCode(context.Background(), "   "), ErrMissingHandle)
	paths, _ := bot.seen()
	require.Empty(t, paths)
}

func TestRequestCodeFailures(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"explicit refusal with message", http.StatusOK, `{"success":false,"error":"user not found"}`, "user not found"},
		{"explicit refusal without message", http.StatusOK, `{"success":false}`, msgSendFailed},
		{"missing success flag", http.StatusOK, `{}`, msgSendFailed},
		{"non-2xx with reply", http.StatusBadRequest, `{"success":false,"error":"chat not started"}`, "chat not started"},
		{"non-2xx claiming success", http.StatusInternalServerError, `{"success":true}`, msgSendFailed},
		{"non-2xx without json", http.StatusBadGateway, `bad gateway`, msgSendFailed},
		{"malformed body", http.StatusOK, `<html>`, msgSendFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newCoordinator(t, &fakeBot{status: tc.status, body: tc.body})
			requireKind(t, c.RequestCode(context.Background(), "@ali"), ErrDeliveryFailed, tc.message)
		})
	}
}

func TestRequestCodeNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewCoordinator(NewHTTPBot(url, 0), logging.Discard())
	err := c.RequestCode(context.Background(), "@ali")
	requireKind(t, err, ErrDeliveryFailed, msgSendFailed)

	var verr *Error
	require.ErrorAs(t, err, &verr)
	require.Error(t, verr.Cause)
}

func TestVerifyCodeSuccess(t *testing.T) {
	bot := &fakeBot{status: http.StatusOK, body: `{"success":true}`}
	c := newCoordinator(t, bot)

	require.NoError(t, c.VerifyCode(context.Background(), "@ali", "123456"))
	paths, requests := bot.seen()
	require.Equal(t, []string{verifyCodePath}, paths)
	require.Equal(t, map[string]any{"telegram": "@ali", "code": "123456"}, requests[0])
}

func TestVerifyCodeMissingInput(t *testing.T) {
	bot := &fakeBot{status: http.StatusOK, body: `{"success":true}`}
	c := newCoordinator(t, bot)

	require.ErrorIs(t, c.VerifyCode(context.Background(), "", "123"), ErrMissingInput)
	require.ErrorIs(t, c.VerifyCode(context.Background(), "@ali", ""), ErrMissingInput)
	paths, _ := bot.seen()
	require.Empty(t, paths)
}

func TestVerifyCodeRejections(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		kind    error
		message string
	}{
		{"rejected with message", http.StatusOK, `{"success":false,"error":"code expired"}`, ErrInvalidCode, "code expired"},
		{"rejected without message", http.StatusOK, `{"success":false}`, ErrInvalidCode, msgInvalidCode},
		{"non-2xx reply", http.StatusBadRequest, `{"success":false,"error":"wrong code"}`, ErrInvalidCode, "wrong code"},
		{"non-2xx without json", http.StatusServiceUnavailable, `down`, ErrDeliveryFailed, msgVerifyFailed},
		{"malformed body", http.StatusOK, `ok`, ErrDeliveryFailed, msgVerifyFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newCoordinator(t, &fakeBot{status: tc.status, body: tc.body})
			requireKind(t, c.VerifyCode(context.Background(), "@ali", "000000"), tc.kind, tc.message)
		})
	}
}
