package github

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thumbcode/internal/credentials"
	"thumbcode/internal/logging"
)

// scriptedTokenServer returns each response in order, repeating the last one.
type scriptedTokenServer struct {
	mu        sync.Mutex
	responses []map[string]any
	calls     int
}

func (s *scriptedTokenServer) handler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	idx := s.calls
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	resp := s.responses[idx]
	s.calls++
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *scriptedTokenServer) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type recordingStore struct {
	mu     sync.Mutex
	stores int
	secret string
}

func (r *recordingStore) Store(ctx context.Context, credType credentials.CredentialType, secret string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stores++
	r.secret = secret
	return nil
}

func (r *recordingStore) Retrieve(ctx context.Context, credType credentials.CredentialType) (string, error) {
	return r.secret, nil
}

func (r *recordingStore) Delete(ctx context.Context, credType credentials.CredentialType) error {
	return nil
}

func (r *recordingStore) List(ctx context.Context) ([]credentials.Credential, error) {
	return nil, nil
}

func newTestPoller(t *testing.T, responses []map[string]any) (*Poller, *scriptedTokenServer, *recordingStore) {
	t.Helper()
	script := &scriptedTokenServer{responses: responses}
	srv := httptest.NewServer(http.HandlerFunc(script.handler))
	t.Cleanup(srv.Close)

	client := NewClient(ClientConfig{
		ClientID: "Iv1.test",
		TokenURL: srv.URL,
	}, logging.Nop())
	store := &recordingStore{}
	poller := NewPoller(client, store, PollerConfig{
		Interval:          5 * time.Millisecond,
		MaxAttempts:       20,
		SlowDownIncrement: 25 * time.Millisecond,
	}, logging.Nop())
	return poller, script, store
}

func testDeviceCode() *DeviceCode {
	// Interval 0 keeps the poller on its configured (fast) test interval.
	return &DeviceCode{DeviceCode: "dc_123", UserCode: "ABCD-1234"}
}

func TestPollPendingThenSuccess(t *testing.T) {
	poller, script, store := newTestPoller(t, []map[string]any{
		{"error": "authorization_pending"},
		{"error": "authorization_pending"},
		{"access_token": "gho_token", "token_type": "bearer", "scope": "repo read:user"},
	})

	result := poller.Poll(context.Background(), testDeviceCode())

	assert.True(t, result.Authorized)
	assert.Equal(t, []string{"repo", "read:user"}, result.Scopes)
	assert.Equal(t, StateSuccess, poller.State())
	assert.Equal(t, 3, script.callCount())
	assert.Equal(t, 1, store.stores, "token must be stored exactly once")
	assert.Equal(t, "gho_token", store.secret)
}

func TestPollExpiredToken(t *testing.T) {
	var gotMessage, gotCode string
	poller, _, store := newTestPoller(t, []map[string]any{
		{"error": "expired_token"},
	})
	poller.onError = func(message, code string) {
		gotMessage, gotCode = message, code
	}

	result := poller.Poll(context.Background(), testDeviceCode())

	assert.False(t, result.Authorized)
	assert.False(t, result.ShouldContinue)
	assert.Equal(t, "expired_token", result.ErrorCode)
	assert.Equal(t, StateError, poller.State())
	assert.Equal(t, "expired_token", gotCode)
	assert.NotEmpty(t, gotMessage)
	assert.Zero(t, store.stores)
}

func TestPollAccessDenied(t *testing.T) {
	poller, _, _ := newTestPoller(t, []map[string]any{
		{"error": "access_denied"},
	})

	result := poller.Poll(context.Background(), testDeviceCode())

	assert.False(t, result.Authorized)
	assert.Equal(t, "access_denied", result.ErrorCode)
}

func TestPollUnknownProviderError(t *testing.T) {
	poller, _, _ := newTestPoller(t, []map[string]any{
		{"error": "incorrect_device_code", "error_description": "The device code is wrong."},
	})

	result := poller.Poll(context.Background(), testDeviceCode())

	assert.False(t, result.Authorized)
	assert.Equal(t, "incorrect_device_code", result.ErrorCode)
	assert.Equal(t, "The device code is wrong.", result.Error)
}

func TestPollSlowDownExtendsInterval(t *testing.T) {
	poller, script, _ := newTestPoller(t, []map[string]any{
		{"error": "slow_down"},
		{"access_token": "gho_token", "scope": "repo"},
	})

	start := time.Now()
	result := poller.Poll(context.Background(), testDeviceCode())

	assert.True(t, result.Authorized)
	assert.Equal(t, 2, script.callCount())
	// 5ms base + 25ms slow_down increment before the second tick.
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestPollMaxAttempts(t *testing.T) {
	poller, script, _ := newTestPoller(t, []map[string]any{
		{"error": "authorization_pending"},
	})

	result := poller.Poll(context.Background(), testDeviceCode())

	assert.False(t, result.Authorized)
	assert.Equal(t, "expired_token", result.ErrorCode)
	assert.Equal(t, 20, script.callCount())
}

func TestPollConsecutiveNetworkErrors(t *testing.T) {
	// Point the client at a closed server so every request fails.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := NewClient(ClientConfig{ClientID: "Iv1.test", TokenURL: url}, logging.Nop())
	poller := NewPoller(client, &recordingStore{}, PollerConfig{
		Interval:    time.Millisecond,
		MaxAttempts: 20,
	}, logging.Nop())

	result := poller.Poll(context.Background(), testDeviceCode())

	assert.False(t, result.Authorized)
	assert.Equal(t, "network_error", result.ErrorCode)
	assert.True(t, result.ShouldContinue)
}

func TestPollCancel(t *testing.T) {
	poller, _, _ := newTestPoller(t, []map[string]any{
		{"error": "authorization_pending"},
	})

	done := make(chan PollResult, 1)
	go func() {
		done <- poller.Poll(context.Background(), testDeviceCode())
	}()

	time.Sleep(20 * time.Millisecond)
	poller.Cancel()

	select {
	case result := <-done:
		assert.True(t, result.Cancelled)
		assert.False(t, result.Authorized)
	case <-time.After(2 * time.Second):
		t.Fatal("poll did not resolve after cancel")
	}
}

func TestPollerReusableAfterAttempt(t *testing.T) {
	poller, _, _ := newTestPoller(t, []map[string]any{
		{"error": "expired_token"},
	})

	first := poller.Poll(context.Background(), testDeviceCode())
	require.Equal(t, "expired_token", first.ErrorCode)

	// Counters and cancellation are reset, so a second attempt works.
	second := poller.Poll(context.Background(), testDeviceCode())
	assert.Equal(t, "expired_token", second.ErrorCode)
}

func TestRequestDeviceCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "Iv1.test", r.Form.Get("client_id"))
		assert.Equal(t, "repo read:user", r.Form.Get("scope"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"device_code":      "dc_123",
			"user_code":        "ABCD-1234",
			"verification_uri": "https://github.com/login/device",
			"expires_in":       900,
			"interval":         5,
		})
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{
		ClientID:      "Iv1.test",
		Scopes:        []string{"repo", "read:user"},
		DeviceCodeURL: srv.URL,
	}, logging.Nop())

	code, err := client.RequestDeviceCode(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "dc_123", code.DeviceCode)
	assert.Equal(t, "ABCD-1234", code.UserCode)
	assert.Equal(t, 5, code.Interval)
}

func TestRequestDeviceCodeMissingClientID(t *testing.T) {
	client := NewClient(ClientConfig{}, logging.Nop())
	_, err := client.RequestDeviceCode(context.Background())
	require.Error(t, err)
}

func TestParseScopes(t *testing.T) {
	assert.Equal(t, []string{"repo", "read:user"}, ParseScopes("repo read:user"))
	assert.Equal(t, []string{"repo", "gist"}, ParseScopes("repo,gist"))
	assert.Empty(t, ParseScopes("  "))
}
