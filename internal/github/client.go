// Package github is a minimal REST client for the pieces of the GitHub API
// the app needs: identifying the signed-in user and browsing their repos.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	apperrors "thumbcode/internal/errors"
	"thumbcode/internal/httpclient"
	"thumbcode/internal/logging"
)

const defaultAPIBaseURL = "https://api.github.com"

// TokenSource supplies the access token for each request, so a token
// refreshed through a new device-flow login is picked up without rebuilding
// the client.
type TokenSource func(ctx context.Context) (string, error)

// StaticToken adapts a fixed token to the TokenSource interface.
func StaticToken(token string) TokenSource {
	return func(context.Context) (string, error) { return token, nil }
}

// User is the authenticated GitHub account.
type User struct {
	Login     string `json:"login"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
	HTMLURL   string `json:"html_url"`
}

// Repository is one repo visible to the authenticated user.
type Repository struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	FullName      string    `json:"full_name"`
	Description   string    `json:"description"`
	Private       bool      `json:"private"`
	DefaultBranch string    `json:"default_branch"`
	Language      string    `json:"language"`
	HTMLURL       string    `json:"html_url"`
	PushedAt      time.Time `json:"pushed_at"`
}

// Client talks to the GitHub REST API v3.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	logger     logging.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API host, used by tests and
// GitHub Enterprise installs.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

// NewClient builds a GitHub API client.
func NewClient(tokens TokenSource, logger logging.Logger, opts ...Option) *Client {
	logger = logging.OrNop(logger)
	c := &Client{
		baseURL:    defaultAPIBaseURL,
		tokens:     tokens,
		httpClient: httpclient.NewWithCircuitBreaker(30*time.Second, logger, "github-api"),
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CurrentUser fetches the authenticated account.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	var user User
	if err := c.get(ctx, "/user", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListRepositoriesOptions filters ListRepositories.
type ListRepositoriesOptions struct {
	// Sort is one of created, updated, pushed, full_name.
	Sort    string
	PerPage int
	Page    int
}

// ListRepositories returns repos visible to the authenticated user.
func (c *Client) ListRepositories(ctx context.Context, opts ListRepositoriesOptions) ([]Repository, error) {
	query := url.Values{}
	if opts.Sort != "" {
		query.Set("sort", opts.Sort)
	}
	if opts.PerPage > 0 {
		query.Set("per_page", strconv.Itoa(opts.PerPage))
	}
	if opts.Page > 0 {
		query.Set("page", strconv.Itoa(opts.Page))
	}

	var repos []Repository
	if err := c.get(ctx, "/user/repos", query, &repos); err != nil {
		return nil, err
	}
	return repos, nil
}

// GetRepository fetches a single repo by owner and name.
func (c *Client) GetRepository(ctx context.Context, owner, name string) (*Repository, error) {
	owner = strings.TrimSpace(owner)
	name = strings.TrimSpace(name)
	if owner == "" || name == "" {
		return nil, fmt.Errorf("owner and repository name are required")
	}

	var repo Repository
	path := fmt.Sprintf("/repos/%s/%s", url.PathEscape(owner), url.PathEscape(name))
	if err := c.get(ctx, path, nil, &repo); err != nil {
		return nil, err
	}
	return &repo, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	token, err := c.tokens(ctx)
	if err != nil {
		return fmt.Errorf("resolve token: %w", err)
	}
	if strings.TrimSpace(token) == "" {
		return &apperrors.PermanentError{
			Err:     fmt.Errorf("github: no access token"),
			Code:    "unauthenticated",
			Message: "no GitHub token found, run 'thumbcode auth login' first",
		}
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")

	c.logger.Debug("GET %s", endpoint)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("github request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := httpclient.ReadAllWithLimit(resp.Body, 4<<20)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return classifyAPIError(resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

type apiError struct {
	Message string `json:"message"`
}

func classifyAPIError(status int, body []byte) error {
	var payload apiError
	_ = json.Unmarshal(body, &payload)
	message := payload.Message
	if message == "" {
		message = strings.TrimSpace(string(body))
	}

	err := fmt.Errorf("github: %s (status %d)", message, status)
	if status == http.StatusTooManyRequests || status >= 500 {
		return &apperrors.TransientError{
			Err:        err,
			StatusCode: status,
			Message:    "GitHub is temporarily unavailable",
		}
	}
	permanent := &apperrors.PermanentError{
		Err:        err,
		StatusCode: status,
		Message:    "GitHub rejected the request",
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		permanent.Code = "unauthorized"
		permanent.Message = "the GitHub token is invalid or expired, run 'thumbcode auth login' to sign in again"
	}
	return permanent
}
