// Package server exposes the HTTP and WebSocket API consumed by the mobile
// client: task management, device-flow auth, repo browsing, and the preview
// sandbox endpoint.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authgh "thumbcode/internal/auth/github"
	"thumbcode/internal/config"
	"thumbcode/internal/credentials"
	gh "thumbcode/internal/github"
	"thumbcode/internal/logging"
	"thumbcode/internal/orchestrator"
)

// Deps carries the collaborators the server exposes over HTTP.
type Deps struct {
	Manager      *orchestrator.Manager
	Planner      Planner
	DeviceClient *authgh.Client
	Credentials  credentials.Store
	GitHub       *gh.Client
	Logger       logging.Logger
}

// Planner is satisfied by agents.Planner. The indirection keeps the server
// testable without a live model client.
type Planner interface {
	Plan(ctx context.Context, manager *orchestrator.Manager, goal string) ([]*orchestrator.AgentTask, error)
}

// Server is the HTTP/WebSocket API server.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server

	manager    *orchestrator.Manager
	planner    Planner
	deviceFlow *deviceFlowController
	github     *gh.Client
	creds      credentials.Store
	preview    *previewHandler
	hub        *Hub
	logger     logging.Logger
}

// New builds the server and its route table.
func New(cfg config.ServerConfig, deps Deps, pollerConfig authgh.PollerConfig) (*Server, error) {
	if deps.Manager == nil {
		return nil, fmt.Errorf("server: task manager is required")
	}
	logger := logging.OrNop(deps.Logger)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(logger))

	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	corsConfig.AllowWebSockets = true
	engine.Use(cors.New(corsConfig))

	preview, err := newPreviewHandler(logger)
	if err != nil {
		return nil, err
	}

	s := &Server{
		engine:  engine,
		manager: deps.Manager,
		planner: deps.Planner,
		github:  deps.GitHub,
		creds:   deps.Credentials,
		preview: preview,
		hub:     NewHub(logger),
		logger:  logger,
	}
	if deps.DeviceClient != nil && deps.Credentials != nil {
		s.deviceFlow = newDeviceFlowController(deps.DeviceClient, deps.Credentials, pollerConfig, logger)
	}

	readTimeout := cfg.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 30 * time.Second
	}
	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 30 * time.Second
	}
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, cfg.Port),
		Handler:      engine,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	s.routes()
	s.hub.Attach(deps.Manager)
	return s, nil
}

func (s *Server) routes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.engine.GET("/ws", s.hub.HandleConnection)

	api := s.engine.Group("/api")
	{
		api.GET("/tasks", s.listTasks)
		api.POST("/tasks", s.createTask)
		api.GET("/tasks/:id", s.getTask)
		api.PATCH("/tasks/:id", s.updateTask)
		api.POST("/tasks/:id/cancel", s.cancelTask)
		api.GET("/plan", s.executionPlan)
		api.POST("/plan", s.createPlan)
		api.GET("/stats", s.stats)

		api.POST("/preview", s.preview.render)

		auth := api.Group("/auth/github")
		{
			auth.POST("/device", s.startDeviceFlow)
			auth.GET("/status", s.deviceFlowStatus)
			auth.POST("/cancel", s.cancelDeviceFlow)
			auth.DELETE("", s.logout)
		}

		api.GET("/github/user", s.currentUser)
		api.GET("/github/repos", s.listRepos)
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.hub.Close()
	return s.httpServer.Shutdown(shutdownCtx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func requestLogger(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start).Round(time.Millisecond))
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func respondError(c *gin.Context, status int, err error) {
	c.JSON(status, errorResponse{Error: err.Error()})
}
