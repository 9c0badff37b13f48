package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"

	authgh "thumbcode/internal/auth/github"
	"thumbcode/internal/credentials"
	gh "thumbcode/internal/github"
	"thumbcode/internal/logging"
)

// deviceFlowController runs one Device Flow attempt at a time on behalf of
// the mobile client. The client starts an attempt, shows the user code, and
// then watches /status until the poller resolves.
type deviceFlowController struct {
	client       *authgh.Client
	store        credentials.Store
	pollerConfig authgh.PollerConfig
	logger       logging.Logger

	mu      sync.Mutex
	poller  *authgh.Poller
	code    *authgh.DeviceCode
	result  *authgh.PollResult
	running bool
}

func newDeviceFlowController(client *authgh.Client, store credentials.Store, pollerConfig authgh.PollerConfig, logger logging.Logger) *deviceFlowController {
	return &deviceFlowController{
		client:       client,
		store:        store,
		pollerConfig: pollerConfig,
		logger:       logging.OrNop(logger),
	}
}

type deviceFlowStartResponse struct {
	UserCode        string `json:"user_code"`
	VerificationURI string `json:"verification_uri"`
	ExpiresIn       int    `json:"expires_in"`
	Interval        int    `json:"interval"`
}

// start requests a device code and launches the poller in the background.
// The device_code itself never leaves the server.
func (d *deviceFlowController) start(ctx context.Context) (*deviceFlowStartResponse, error) {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return nil, fmt.Errorf("a sign-in attempt is already in progress")
	}
	d.running = true
	d.result = nil
	d.mu.Unlock()

	code, err := d.client.RequestDeviceCode(ctx)
	if err != nil {
		d.mu.Lock()
		d.running = false
		d.mu.Unlock()
		return nil, err
	}

	poller := authgh.NewPoller(d.client, d.store, d.pollerConfig, d.logger)
	d.mu.Lock()
	d.poller = poller
	d.code = code
	d.mu.Unlock()

	// The poll loop outlives the start request on purpose; it is bounded
	// by the attempt's max ticks.
	go func() {
		result := poller.Poll(context.Background(), code)
		d.mu.Lock()
		d.result = &result
		d.running = false
		d.mu.Unlock()
	}()

	return &deviceFlowStartResponse{
		UserCode:        code.UserCode,
		VerificationURI: code.VerificationURI,
		ExpiresIn:       code.ExpiresIn,
		Interval:        code.Interval,
	}, nil
}

type deviceFlowStatusResponse struct {
	State  authgh.PollerState `json:"state"`
	Result *authgh.PollResult `json:"result,omitempty"`
}

func (d *deviceFlowController) status() deviceFlowStatusResponse {
	d.mu.Lock()
	defer d.mu.Unlock()

	resp := deviceFlowStatusResponse{State: authgh.StateIdle, Result: d.result}
	if d.poller != nil {
		resp.State = d.poller.State()
	}
	return resp
}

func (d *deviceFlowController) cancel() bool {
	d.mu.Lock()
	poller := d.poller
	running := d.running
	d.mu.Unlock()

	if poller == nil || !running {
		return false
	}
	poller.Cancel()
	return true
}

func (s *Server) startDeviceFlow(c *gin.Context) {
	if s.deviceFlow == nil {
		respondError(c, http.StatusServiceUnavailable, fmt.Errorf("device flow is not configured, set github.client_id"))
		return
	}

	resp, err := s.deviceFlow.start(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusBadGateway, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) deviceFlowStatus(c *gin.Context) {
	if s.deviceFlow == nil {
		respondError(c, http.StatusServiceUnavailable, fmt.Errorf("device flow is not configured"))
		return
	}
	c.JSON(http.StatusOK, s.deviceFlow.status())
}

func (s *Server) cancelDeviceFlow(c *gin.Context) {
	if s.deviceFlow == nil {
		respondError(c, http.StatusServiceUnavailable, fmt.Errorf("device flow is not configured"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": s.deviceFlow.cancel()})
}

func (s *Server) logout(c *gin.Context) {
	if s.creds == nil {
		respondError(c, http.StatusServiceUnavailable, fmt.Errorf("credential store is not configured"))
		return
	}
	if err := s.creds.Delete(c.Request.Context(), credentials.TypeGitHub); err != nil {
		respondError(c, http.StatusNotFound, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logged_out": true})
}

func (s *Server) currentUser(c *gin.Context) {
	if s.github == nil {
		respondError(c, http.StatusServiceUnavailable, fmt.Errorf("github client is not configured"))
		return
	}
	user, err := s.github.CurrentUser(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusBadGateway, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func githubListOptions(c *gin.Context) gh.ListRepositoriesOptions {
	opts := gh.ListRepositoriesOptions{Sort: c.Query("sort")}
	if perPage, err := strconv.Atoi(c.Query("per_page")); err == nil {
		opts.PerPage = perPage
	}
	if page, err := strconv.Atoi(c.Query("page")); err == nil {
		opts.Page = page
	}
	return opts
}

func (s *Server) listRepos(c *gin.Context) {
	if s.github == nil {
		respondError(c, http.StatusServiceUnavailable, fmt.Errorf("github client is not configured"))
		return
	}
	repos, err := s.github.ListRepositories(c.Request.Context(), githubListOptions(c))
	if err != nil {
		respondError(c, http.StatusBadGateway, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"repositories": repos})
}
