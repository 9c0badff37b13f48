package github

import (
	"context"
	"errors"
	"sync"
	"time"

	"thumbcode/internal/credentials"
	tcerrors "thumbcode/internal/errors"
	"thumbcode/internal/logging"
)

// PollerState is the lifecycle state of a single polling attempt.
type PollerState string

const (
	StateIdle    PollerState = "idle"
	StatePolling PollerState = "polling"
	StateSuccess PollerState = "success"
	StateError   PollerState = "error"
)

// OAuth error codes returned by the token endpoint during Device Flow.
const (
	errAuthorizationPending = "authorization_pending"
	errSlowDown             = "slow_down"
	errExpiredToken         = "expired_token"
	errAccessDenied         = "access_denied"
)

// defaultSlowDownIncrement is the fixed amount added to the polling interval
// when the provider answers slow_down.
const defaultSlowDownIncrement = 5 * time.Second

// maxConsecutiveErrors bounds transient network failures before the attempt
// is abandoned.
const maxConsecutiveErrors = 3

// PollResult is how a polling attempt resolves. Provider-terminal outcomes
// are reported through the fields rather than as errors.
type PollResult struct {
	Authorized     bool     `json:"authorized"`
	ShouldContinue bool     `json:"should_continue"`
	Cancelled      bool     `json:"cancelled,omitempty"`
	ErrorCode      string   `json:"error_code,omitempty"`
	Error          string   `json:"error,omitempty"`
	Scopes         []string `json:"scopes,omitempty"`
}

// PollerConfig tunes a polling attempt.
type PollerConfig struct {
	Interval          time.Duration // base polling interval (default: 5s)
	MaxAttempts       int           // ticks before the attempt expires (default: 180)
	SlowDownIncrement time.Duration // added to the interval on slow_down (default: 5s)
}

// Poller drives the polling phase of a Device Flow attempt to completion,
// success, or terminal failure. A Poller owns its state exclusively; it is
// reusable across attempts but runs at most one attempt at a time.
type Poller struct {
	client *Client
	store  credentials.Store
	config PollerConfig
	logger logging.Logger

	onError func(message, code string)
	onState func(state PollerState)

	mu                sync.Mutex
	state             PollerState
	attempt           int
	consecutiveErrors int
	cancelCh          chan struct{}
	cancelOnce        *sync.Once
}

// PollerOption customizes a Poller.
type PollerOption func(*Poller)

// WithOnError registers a callback invoked on terminal errors with a message
// and an optional machine-readable code.
func WithOnError(fn func(message, code string)) PollerOption {
	return func(p *Poller) { p.onError = fn }
}

// WithOnState registers a callback invoked on every state transition.
func WithOnState(fn func(state PollerState)) PollerOption {
	return func(p *Poller) { p.onState = fn }
}

// NewPoller builds a Poller in the idle state.
func NewPoller(client *Client, store credentials.Store, config PollerConfig, logger logging.Logger, opts ...PollerOption) *Poller {
	if config.Interval <= 0 {
		config.Interval = 5 * time.Second
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 180
	}
	if config.SlowDownIncrement <= 0 {
		config.SlowDownIncrement = defaultSlowDownIncrement
	}
	p := &Poller{
		client:     client,
		store:      store,
		config:     config,
		logger:     logging.OrNop(logger),
		state:      StateIdle,
		cancelCh:   make(chan struct{}),
		cancelOnce: &sync.Once{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State returns the current lifecycle state.
func (p *Poller) State() PollerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Cancel requests cooperative cancellation. The in-flight attempt resolves
// with a cancellation result at its next decision point.
func (p *Poller) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelOnce.Do(func() { close(p.cancelCh) })
}

// Poll runs the polling loop until a terminal outcome. It blocks the calling
// goroutine; wrap in a goroutine for asynchronous use. The result is always
// returned, never an error: callers read Authorized/ShouldContinue/ErrorCode.
func (p *Poller) Poll(ctx context.Context, deviceCode *DeviceCode) PollResult {
	interval := p.config.Interval
	if deviceCode.Interval > 0 {
		interval = time.Duration(deviceCode.Interval) * time.Second
	}

	p.enterPolling()
	defer p.cleanup()

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		if cancelled := p.checkCancelled(ctx); cancelled != nil {
			return *cancelled
		}

		if p.nextAttempt() > p.config.MaxAttempts {
			return p.fail(errExpiredToken, "Device code expired before authorization completed. Start a new sign-in attempt.")
		}

		resp, err := p.client.requestToken(ctx, deviceCode.DeviceCode)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return p.cancelResult()
			}
			if outcome := p.recordTransientError(err); outcome != nil {
				return *outcome
			}
		} else {
			switch resp.Error {
			case "":
				if resp.AccessToken != "" {
					return p.succeed(ctx, resp)
				}
				// A 200 with neither token nor error is a provider bug.
				return p.fail("invalid_response", "Provider returned neither a token nor an error.")
			case errAuthorizationPending:
				p.resetConsecutiveErrors()
			case errSlowDown:
				interval += p.config.SlowDownIncrement
				p.logger.Debug("Provider requested slow_down, interval now %v", interval)
				p.resetConsecutiveErrors()
			case errExpiredToken:
				return p.fail(errExpiredToken, "Device code expired before authorization completed. Start a new sign-in attempt.")
			case errAccessDenied:
				return p.fail(errAccessDenied, "Authorization was denied by the user.")
			default:
				message := resp.ErrorDescription
				if message == "" {
					message = "Provider returned error: " + resp.Error
				}
				return p.fail(resp.Error, message)
			}
		}

		if timer == nil {
			timer = time.NewTimer(interval)
		} else {
			timer.Reset(interval)
		}
		select {
		case <-timer.C:
		case <-p.cancelCh:
			return p.cancelResult()
		case <-ctx.Done():
			return p.cancelResult()
		}
	}
}

func (p *Poller) enterPolling() {
	p.mu.Lock()
	p.attempt = 0
	p.consecutiveErrors = 0
	p.setStateLocked(StatePolling)
	p.mu.Unlock()
}

// cleanup resets counters and re-arms cancellation so the poller does not
// leak state across attempts.
func (p *Poller) cleanup() {
	p.mu.Lock()
	p.attempt = 0
	p.consecutiveErrors = 0
	p.cancelCh = make(chan struct{})
	p.cancelOnce = &sync.Once{}
	p.mu.Unlock()
}

func (p *Poller) nextAttempt() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attempt++
	return p.attempt
}

func (p *Poller) resetConsecutiveErrors() {
	p.mu.Lock()
	p.consecutiveErrors = 0
	p.mu.Unlock()
}

// recordTransientError counts a network failure. Returns a terminal result
// once the consecutive-error budget is exhausted, nil to keep polling.
func (p *Poller) recordTransientError(err error) *PollResult {
	p.mu.Lock()
	p.consecutiveErrors++
	count := p.consecutiveErrors
	p.mu.Unlock()

	p.logger.Warn("Token poll failed (%d consecutive): %v", count, err)
	if count < maxConsecutiveErrors {
		return nil
	}

	message := tcerrors.FormatForUser(err)
	result := p.fail("network_error", message)
	// Retrying with the same device code is reasonable after a network outage.
	result.ShouldContinue = true
	return &result
}

func (p *Poller) checkCancelled(ctx context.Context) *PollResult {
	select {
	case <-p.cancelCh:
		result := p.cancelResult()
		return &result
	case <-ctx.Done():
		result := p.cancelResult()
		return &result
	default:
		return nil
	}
}

func (p *Poller) cancelResult() PollResult {
	p.mu.Lock()
	p.setStateLocked(StateIdle)
	p.mu.Unlock()
	p.logger.Debug("Polling cancelled")
	return PollResult{Authorized: false, ShouldContinue: false, Cancelled: true}
}

func (p *Poller) succeed(ctx context.Context, resp *tokenResponse) PollResult {
	if err := p.store.Store(ctx, credentials.TypeGitHub, resp.AccessToken); err != nil {
		return p.fail("storage_error", "Authorized, but the token could not be saved: "+err.Error())
	}

	p.mu.Lock()
	p.setStateLocked(StateSuccess)
	p.mu.Unlock()

	p.logger.Info("Device Flow authorization succeeded")
	return PollResult{
		Authorized:     true,
		ShouldContinue: false,
		Scopes:         ParseScopes(resp.Scope),
	}
}

func (p *Poller) fail(code, message string) PollResult {
	p.mu.Lock()
	p.setStateLocked(StateError)
	p.mu.Unlock()

	p.logger.Warn("Device Flow failed: %s (%s)", message, code)
	if p.onError != nil {
		p.onError(message, code)
	}
	return PollResult{
		Authorized:     false,
		ShouldContinue: false,
		ErrorCode:      code,
		Error:          message,
	}
}

func (p *Poller) setStateLocked(state PollerState) {
	if p.state == state {
		return
	}
	p.state = state
	if p.onState != nil {
		p.onState(state)
	}
}
