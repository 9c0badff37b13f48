package credentials

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"thumbcode/internal/httpclient"
	"thumbcode/internal/logging"
)

// Validator checks whether a secret is currently accepted by its provider.
type Validator struct {
	client *http.Client
	logger logging.Logger

	// Endpoints are overridable for tests.
	GitHubUserURL      string
	AnthropicModelsURL string
	OpenAIModelsURL    string
}

// NewValidator builds a validator with a breaker-guarded HTTP client.
func NewValidator(logger logging.Logger) *Validator {
	logger = logging.OrNop(logger)
	return &Validator{
		client:             httpclient.NewWithCircuitBreaker(15*time.Second, logger, "credential-validator"),
		logger:             logger,
		GitHubUserURL:      "https://api.github.com/user",
		AnthropicModelsURL: "https://api.anthropic.com/v1/models",
		OpenAIModelsURL:    "https://api.openai.com/v1/models",
	}
}

// ValidateCredential performs a cheap authenticated request against the
// provider. A false result with nil error means the provider rejected the
// secret; a non-nil error means validity could not be determined.
func (v *Validator) ValidateCredential(ctx context.Context, credType CredentialType, secret string) (bool, error) {
	if secret == "" {
		return false, nil
	}

	var req *http.Request
	var err error
	switch credType {
	case TypeGitHub:
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, v.GitHubUserURL, nil)
		if err == nil {
			req.Header.Set("Authorization", "Bearer "+secret)
			req.Header.Set("Accept", "application/vnd.github+json")
		}
	case TypeAnthropic:
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, v.AnthropicModelsURL, nil)
		if err == nil {
			req.Header.Set("x-api-key", secret)
			req.Header.Set("anthropic-version", "2023-06-01")
		}
	case TypeOpenAI:
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, v.OpenAIModelsURL, nil)
		if err == nil {
			req.Header.Set("Authorization", "Bearer "+secret)
		}
	default:
		return false, fmt.Errorf("unknown credential type: %s", credType)
	}
	if err != nil {
		return false, fmt.Errorf("build validation request: %w", err)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("validate %s credential: %w", credType, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return true, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		v.logger.Debug("%s credential rejected with status %d", credType, resp.StatusCode)
		return false, nil
	default:
		return false, fmt.Errorf("validate %s credential: unexpected status %d", credType, resp.StatusCode)
	}
}
