package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/clinical-dss-server/internal/domain"
	"github.com/clinical-dss-server/internal/feedback"
	"github.com/clinical-dss-server/internal/knowledge"
	"github.com/clinical-dss-server/internal/middleware"
	"github.com/clinical-dss-server/internal/service"
)

// Server represents the HTTP server
type Server struct {
	config   *domain.Config
	logger   *logrus.Logger
	router   *gin.Engine
	server   *http.Server
	limiter  *middleware.RateLimiter
	base     *knowledge.Base
	matcher  *service.Matcher
	validate *service.Validator
	risk     *service.RiskScorer
	coding   *service.CodingEngine
	deid     *service.Deidentifier
	labs     *service.LabService
	store    feedback.Store
}

// NewServer creates a new HTTP server instance
func NewServer(
	config *domain.Config,
	logger *logrus.Logger,
	base *knowledge.Base,
	matcher *service.Matcher,
	validator *service.Validator,
	risk *service.RiskScorer,
	coding *service.CodingEngine,
	deid *service.Deidentifier,
	labs *service.LabService,
	store feedback.Store,
) *Server {
	// Set Gin mode based on environment
	if config.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.AuditLogger())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CorrelationID())
	router.Use(corsMiddleware())

	limiter := middleware.NewRateLimiter(config.Server.RateLimit, config.Server.RateBurst)
	router.Use(limiter.Middleware())

	server := &Server{
		config:   config,
		logger:   logger,
		router:   router,
		limiter:  limiter,
		base:     base,
		matcher:  matcher,
		validate: validator,
		risk:     risk,
		coding:   coding,
		deid:     deid,
		labs:     labs,
		store:    store,
	}

	server.setupRoutes()

	return server
}

// Start starts the HTTP server and blocks until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	cfg := s.config.Server
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	defer s.limiter.Close()

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	s.logger.WithField("addr", addr).Info("HTTP server started")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// Close releases server resources without serving. Start performs its
// own cleanup; call Close only when the server was never started.
func (s *Server) Close() {
	s.limiter.Close()
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/match", s.handleMatch)
		v1.POST("/validate", s.handleValidate)
		v1.POST("/risk", s.handleRisk)
		v1.POST("/billing", s.handleBilling)
		v1.POST("/deidentify", s.handleDeidentify)
		v1.POST("/recommend-tests", s.handleRecommendTests)
		v1.POST("/assess", s.handleAssess)
		v1.GET("/diseases/:name", s.handleGetDisease)
		v1.GET("/lab-tests", s.handleLabTestCatalog)
		v1.POST("/feedback", s.handleSaveFeedback)
		v1.GET("/feedback", s.handleListFeedback)
	}
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"diseases":  len(s.base.Diseases()),
	})
}

// corsMiddleware adds CORS headers to responses
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, X-API-Key")
		c.Header("Access-Control-Expose-Headers", "Content-Length")
		c.Header("Access-Control-Allow-Credentials", "true")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
