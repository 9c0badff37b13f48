// Package github implements the GitHub OAuth 2.0 Device Flow: the client
// requests a device/user code pair, the user authorizes in a browser, and the
// client polls the token endpoint until it succeeds or fails terminally.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"thumbcode/internal/httpclient"
	"thumbcode/internal/logging"
)

const (
	defaultDeviceCodeURL = "https://github.com/login/device/code"
	defaultTokenURL      = "https://github.com/login/oauth/access_token"

	maxResponseBytes = 1 << 20
)

// ClientConfig configures the Device Flow client.
type ClientConfig struct {
	ClientID      string
	Scopes        []string
	DeviceCodeURL string
	TokenURL      string
	HTTPTimeout   time.Duration
}

// Client talks to GitHub's device authorization endpoints.
type Client struct {
	config ClientConfig
	http   *http.Client
	logger logging.Logger
}

// NewClient builds a Device Flow client with a breaker-guarded HTTP client.
func NewClient(config ClientConfig, logger logging.Logger) *Client {
	logger = logging.OrNop(logger)
	if config.DeviceCodeURL == "" {
		config.DeviceCodeURL = defaultDeviceCodeURL
	}
	if config.TokenURL == "" {
		config.TokenURL = defaultTokenURL
	}
	if config.HTTPTimeout <= 0 {
		config.HTTPTimeout = 15 * time.Second
	}
	return &Client{
		config: config,
		http:   httpclient.NewWithCircuitBreaker(config.HTTPTimeout, logger, "github-device-flow"),
		logger: logger,
	}
}

// DeviceCode is the response from the device code endpoint.
type DeviceCode struct {
	DeviceCode      string `json:"device_code"`
	UserCode        string `json:"user_code"`
	VerificationURI string `json:"verification_uri"`
	ExpiresIn       int    `json:"expires_in"`
	Interval        int    `json:"interval"`
}

// RequestDeviceCode starts a Device Flow attempt.
func (c *Client) RequestDeviceCode(ctx context.Context) (*DeviceCode, error) {
	if strings.TrimSpace(c.config.ClientID) == "" {
		return nil, fmt.Errorf("github client_id is not configured")
	}

	form := url.Values{}
	form.Set("client_id", c.config.ClientID)
	if len(c.config.Scopes) > 0 {
		form.Set("scope", strings.Join(c.config.Scopes, " "))
	}

	var payload DeviceCode
	if err := c.postForm(ctx, c.config.DeviceCodeURL, form, &payload); err != nil {
		return nil, fmt.Errorf("request device code: %w", err)
	}
	if payload.DeviceCode == "" || payload.UserCode == "" {
		return nil, fmt.Errorf("request device code: provider returned an empty code")
	}
	if payload.Interval <= 0 {
		payload.Interval = 5
	}
	return &payload, nil
}

// tokenResponse is the wire format of the token endpoint. GitHub returns 200
// for both success and OAuth errors; the error field disambiguates.
type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	TokenType        string `json:"token_type"`
	Scope            string `json:"scope"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (c *Client) requestToken(ctx context.Context, deviceCode string) (*tokenResponse, error) {
	form := url.Values{}
	form.Set("client_id", c.config.ClientID)
	form.Set("device_code", deviceCode)
	form.Set("grant_type", "urn:ietf:params:oauth:grant-type:device_code")

	var payload tokenResponse
	if err := c.postForm(ctx, c.config.TokenURL, form, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (c *Client) postForm(ctx context.Context, endpoint string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := httpclient.ReadAllWithLimit(resp.Body, maxResponseBytes)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// ParseScopes splits the provider's space-delimited scope string. GitHub also
// uses commas in some responses, so both separators are accepted.
func ParseScopes(scope string) []string {
	fields := strings.FieldsFunc(scope, func(r rune) bool {
		return r == ' ' || r == ','
	})
	scopes := make([]string, 0, len(fields))
	for _, field := range fields {
		if trimmed := strings.TrimSpace(field); trimmed != "" {
			scopes = append(scopes, trimmed)
		}
	}
	return scopes
}
