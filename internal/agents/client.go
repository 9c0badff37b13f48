// Package agents contains the LLM provider clients, role prompts, and the
// task executor that turns orchestrator tasks into model calls.
package agents

import (
	"context"
	"time"
)

// Message is one turn of a conversation sent to a provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Request is a provider-neutral completion request.
type Request struct {
	System      string
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

// Usage reports provider token accounting for one completion.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Response is the provider-neutral completion result.
type Response struct {
	Content    string
	Model      string
	StopReason string
	Usage      Usage
}

// Client is implemented by each provider backend.
type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
	Provider() string
}

// ClientConfig carries provider connection settings.
type ClientConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

const defaultMaxTokens = 4096
