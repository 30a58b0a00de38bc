// Package container wires the application's dependencies in order and
// tears them down in reverse.
package container

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/septentria/land-office/internal/application/port"
	"github.com/septentria/land-office/internal/application/service"
	engine "github.com/septentria/land-office/internal/application/workflow"
	"github.com/septentria/land-office/internal/config"
	"github.com/septentria/land-office/internal/infrastructure/persistence/repository"
	"github.com/septentria/land-office/internal/infrastructure/persistence/sqlite"
	httpapi "github.com/septentria/land-office/internal/interfaces/http"
	"github.com/septentria/land-office/internal/metrics"
	"github.com/septentria/land-office/pkg/database"
)

// Container manages all application dependencies and lifecycle
type Container struct {
	config *config.Config
	logger *zap.Logger

	// Infrastructure
	db        *database.DB
	txManager *sqlite.DB
	repos     *RepositoryBundle

	// Application
	engine   engine.Engine
	services *ServiceBundle
	metrics  *metrics.Metrics

	// Interface
	server *httpapi.Server

	mu     sync.Mutex
	ready  atomic.Bool
	closed atomic.Bool
}

// RepositoryBundle groups all repositories for convenient access
type RepositoryBundle struct {
	Transaction port.TransactionRepository
	Task        port.TaskRepository
	Payment     port.PaymentRepository
	Item        port.ItemRepository
	Instrument  port.InstrumentGateway
	Codes       port.CodeGenerator
}

// ServiceBundle groups all application services
type ServiceBundle struct {
	Transaction service.TransactionService
	Control     service.ControlService
}

// New creates a container from configuration. Components are not
// initialized until Start.
func New(cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes every component in dependency order and blocks
// serving HTTP until ctx is cancelled
func (c *Container) Start(ctx context.Context) error {
	if err := c.init(); err != nil {
		return err
	}
	return c.server.Start(ctx)
}

func (c *Container) init() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ready.Load() {
		return nil
	}

	db, err := database.New(database.Config{
		Path:            c.config.Database.Path,
		MaxOpenConns:    c.config.Database.MaxOpenConns,
		MaxIdleConns:    c.config.Database.MaxIdleConns,
		ConnMaxLifetime: c.config.Database.ConnMaxLifetime,
	}, c.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.db = db

	migrator := database.NewMigrator(db, c.logger)
	if err := migrator.RunMigrations(c.config.Database.MigrationsDir); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	c.txManager = sqlite.NewDB(db.DB, c.logger)

	c.repos = &RepositoryBundle{
		Transaction: repository.NewTransactionRepository(db.DB, c.logger),
		Task:        repository.NewTaskRepository(db.DB, c.logger),
		Payment:     repository.NewPaymentRepository(db.DB, c.logger),
		Item:        repository.NewItemRepository(db.DB, c.logger),
		Instrument:  repository.NewInstrumentRepository(db.DB, c.logger),
		Codes:       repository.NewCodeGenerator(db.DB, c.config.Office.CodePrefix, c.logger),
	}

	c.metrics = metrics.New()
	appLogger := &zapLoggerAdapter{logger: c.logger}

	c.engine = engine.NewEngine(
		c.repos.Transaction,
		c.repos.Task,
		c.repos.Payment,
		c.repos.Instrument,
		c.txManager,
		appLogger,
		engine.WithMetrics(c.metrics),
	)

	txnService, err := service.NewTransactionService(
		c.repos.Transaction,
		c.repos.Item,
		c.repos.Payment,
		c.repos.Codes,
		c.txManager,
		c.engine,
		c.config.Office.Jurisdiction,
		appLogger,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize transaction service: %w", err)
	}

	c.services = &ServiceBundle{
		Transaction: txnService,
		Control: service.NewControlService(
			c.repos.Transaction,
			c.repos.Task,
			c.repos.Payment,
			c.repos.Instrument,
		),
	}

	c.server = httpapi.NewServer(
		httpapi.ServerConfig{
			Host:         c.config.Server.Host,
			Port:         c.config.Server.Port,
			ReadTimeout:  c.config.Server.ReadTimeout,
			WriteTimeout: c.config.Server.WriteTimeout,
		},
		c.services.Transaction,
		c.services.Control,
		c.engine,
		c.metrics,
		appLogger,
	)

	c.ready.Store(true)
	c.logger.Info("Container initialized",
		zap.String("jurisdiction", c.config.Office.Jurisdiction),
		zap.String("code_prefix", c.config.Office.CodePrefix))
	return nil
}

// Stop tears components down in reverse initialization order
func (c *Container) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Swap(true) {
		return nil
	}

	var firstErr error
	if c.server != nil {
		if err := c.server.Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if c.db != nil {
		if err := c.db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	c.ready.Store(false)
	c.logger.Info("Container stopped")
	return firstErr
}

// Services exposes the service bundle (for tests and tooling)
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// zapLoggerAdapter bridges zap to the narrow logger interfaces the
// application layer declares
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func (a *zapLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Info(msg, convertToZapFields(keysAndValues...)...)
}

func (a *zapLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Error(msg, convertToZapFields(keysAndValues...)...)
}

func convertToZapFields(keysAndValues ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", keysAndValues[i])
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
