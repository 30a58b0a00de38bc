// Package http provides the HTTP adapter for the application layer.
// It translates requests into application service and workflow engine
// calls; no workflow rules live here.
package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/septentria/land-office/internal/application/service"
	engine "github.com/septentria/land-office/internal/application/workflow"
	"github.com/septentria/land-office/internal/domain/workflow"
	"github.com/septentria/land-office/internal/metrics"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// Server is the HTTP server adapter
type Server struct {
	config         ServerConfig
	httpServer     *http.Server
	router         *gin.Engine
	txnService     service.TransactionService
	controlService service.ControlService
	engine         engine.Engine
	metrics        *metrics.Metrics
	logger         Logger
}

// NewServer creates a new HTTP server wired to the office services
func NewServer(
	config ServerConfig,
	txnService service.TransactionService,
	controlService service.ControlService,
	wfEngine engine.Engine,
	m *metrics.Metrics,
	logger Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	server := &Server{
		config:         config,
		router:         router,
		txnService:     txnService,
		controlService: controlService,
		engine:         wfEngine,
		metrics:        m,
		logger:         logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", status,
			"latency", latency.String(),
			"client_ip", c.ClientIP(),
		)
		s.metrics.ObserveRequest(c.FullPath(), strconv.Itoa(status), latency)
	}
}

// principalMiddleware resolves the calling clerk from the gateway-set
// identity headers. The office gateway authenticates upstream; this
// layer only needs to know who is acting.
func (s *Server) principalMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader("X-User-ID"))
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   "missing X-User-ID header",
			})
			return
		}

		var roles []string
		for _, role := range strings.Split(c.GetHeader("X-User-Roles"), ",") {
			if role = strings.TrimSpace(role); role != "" {
				roles = append(roles, strings.ToUpper(role))
			}
		}

		c.Set(principalKey, workflow.Principal{UserID: userID, Roles: roles})
		c.Next()
	}
}

const principalKey = "principal"

func principalFrom(c *gin.Context) workflow.Principal {
	if v, ok := c.Get(principalKey); ok {
		if p, ok := v.(workflow.Principal); ok {
			return p
		}
	}
	return workflow.Principal{}
}

func (s *Server) setupRoutes() {
	handlers := NewHandlers(s.txnService, s.controlService, s.engine, s.logger)

	s.router.GET("/health", handlers.HealthCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.router.Group("/api", s.principalMiddleware())
	{
		api.POST("/transactions", handlers.CreateTransaction)
		api.GET("/transactions", handlers.ListTransactions)
		api.GET("/transactions/:id", handlers.GetTransaction)
		api.GET("/transactions/code/:code", handlers.GetTransactionByCode)
		api.GET("/transactions/:id/status", handlers.GetStatus)
		api.GET("/transactions/:id/control-data", handlers.GetControlData)

		api.POST("/transactions/:id/receive", handlers.Receive)
		api.POST("/transactions/:id/take", handlers.Take)
		api.POST("/transactions/:id/next-status", handlers.SetNextStatus)
		api.POST("/transactions/:id/reentry", handlers.Reentry)
		api.POST("/transactions/:id/return-to-me", handlers.ReturnToMe)
		api.DELETE("/transactions/:id", handlers.DeleteTransaction)
		api.POST("/transactions/:id/undelete", handlers.UndeleteTransaction)

		api.GET("/transactions/:id/items", handlers.ListItems)
		api.POST("/transactions/:id/items", handlers.AddItem)
		api.DELETE("/transactions/:id/items/:itemID", handlers.RemoveItem)

		api.GET("/transactions/:id/payments", handlers.ListPayments)
		api.POST("/transactions/:id/payments", handlers.RegisterPayment)
		api.POST("/transactions/:id/payment-order", handlers.GeneratePaymentOrder)
		api.DELETE("/transactions/:id/payment-order", handlers.CancelPaymentOrder)
	}
}

// Start starts the HTTP server and blocks until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Stopping HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
