package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/martijn/harvestd/internal/api/handler"
	"github.com/martijn/harvestd/internal/api/middleware"
	"github.com/martijn/harvestd/internal/core/service"
	"github.com/martijn/harvestd/pkg/config"
	"go.uber.org/zap"
)

type Server struct {
	router *gin.Engine
	srv    *http.Server
	config *config.Config
	log    *zap.SugaredLogger
}

// NewServer creates a new API server. tokenService may be nil, which leaves
// the API unauthenticated.
func NewServer(
	cfg *config.Config,
	runService *service.RunService,
	scheduleService *service.ScheduleService,
	configService *service.ConfigService,
	tokenService *service.TokenService,
	log *zap.SugaredLogger,
) *Server {
	// Set Gin mode
	if !cfg.IsDevMode() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandlerMiddleware(log))
	origins := middleware.NewOriginPolicy(cfg.CORSOrigins)
	router.Use(middleware.CORSMiddleware(origins))

	// Initialize handlers
	runHandler := handler.NewRunHandler(runService)
	scheduleHandler := handler.NewScheduleHandler(scheduleService)
	configHandler := handler.NewConfigHandler(configService)
	streamHandler := handler.NewStreamHandler(runService, cfg.Stream.Interval, origins, log.Named("stream"))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Protected routes (auth required when a signing key is configured)
	protected := router.Group("")
	protected.Use(middleware.AuthMiddleware(tokenService))
	{
		protected.POST("/run", runHandler.StartRun)
		protected.POST("/stop", runHandler.StopRun)
		protected.GET("/status", runHandler.Status)
		protected.GET("/ws", streamHandler.Stream)

		protected.GET("/runs", runHandler.ListRuns)
		protected.GET("/runs/:id", runHandler.GetRun)
		protected.GET("/runs/:id/log", runHandler.GetRunLog)
		protected.GET("/runs/:id/artifact", runHandler.GetRunArtifact)

		protected.GET("/schedule", scheduleHandler.GetSchedule)
		protected.PUT("/schedule", scheduleHandler.UpdateSchedule)
		protected.GET("/next_run", scheduleHandler.NextRun)

		protected.GET("/config", configHandler.GetConfig)
		protected.PUT("/config", configHandler.UpdateConfig)
		protected.GET("/keywords", configHandler.GetKeywords)
		protected.PUT("/keywords", configHandler.UpdateKeywords)
	}

	addr := net.JoinHostPort(cfg.APIHost, fmt.Sprint(cfg.APIPort))
	server := &Server{
		router: router,
		config: cfg,
		log:    log,
		// WebSocket observers hold their connection open, so there is no write timeout
		srv: &http.Server{
			Addr:           addr,
			Handler:        router,
			ReadTimeout:    15 * time.Second,
			IdleTimeout:    60 * time.Second,
			MaxHeaderBytes: 1 << 20, // 1 MB
		},
	}

	return server
}

// Handler exposes the router, e.g. for httptest
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server and blocks until it stops. A server closed by
// Shutdown returns nil.
func (s *Server) Start() error {
	addr := s.srv.Addr

	var err error
	// Start with or without SSL
	if s.config.SSLCert != "" && s.config.SSLKey != "" {
		s.log.Infow("Starting HTTPS server", "addr", addr)
		err = s.srv.ListenAndServeTLS(s.config.SSLCert, s.config.SSLKey)
	} else {
		s.log.Infow("Starting HTTP server", "addr", addr)
		err = s.srv.ListenAndServe()
	}
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
