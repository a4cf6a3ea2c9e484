package container

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/tpoisot/IntroScientificComputing/adapters/postgres"
	"github.com/tpoisot/IntroScientificComputing/adapters/rng"
	"github.com/tpoisot/IntroScientificComputing/app"
	"github.com/tpoisot/IntroScientificComputing/internal"
	"github.com/tpoisot/IntroScientificComputing/internal/api"
	"github.com/tpoisot/IntroScientificComputing/internal/config"
	"github.com/tpoisot/IntroScientificComputing/internal/testkit"
	"github.com/tpoisot/IntroScientificComputing/ports"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Infrastructure
	DB *sqlx.DB

	// Ports
	RNG  ports.RNGPort
	Runs ports.RunRepository

	// Services
	Estimator *app.Estimator
	Handler   *api.Handler
}

// New creates a new dependency injection container
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	logger := cfg.Logger()
	pcg := rng.NewPCGAdapter()

	return &Container{
		Config:    cfg,
		Logger:    logger,
		RNG:       pcg,
		Estimator: app.NewEstimator(pcg, logger),
	}, nil
}

// InitWithDatabase stores runs in Postgres, creating the tables if needed
func (c *Container) InitWithDatabase(ctx context.Context, db *sqlx.DB) error {
	if db == nil {
		return fmt.Errorf("database connection cannot be nil")
	}
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	repo := postgres.NewRunRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return err
	}

	c.DB = db
	c.Runs = repo
	c.initHandler()
	c.Logger.Info("runs are stored in Postgres")
	return nil
}

// InitInMemory keeps runs in process memory; they are lost on exit
func (c *Container) InitInMemory() {
	c.Runs = testkit.NewInMemoryRunRepository()
	c.initHandler()
	c.Logger.Warn("DATABASE_URL not set, runs are kept in memory")
}

func (c *Container) initHandler() {
	c.Handler = api.NewHandler(c.Estimator, c.RNG, c.Runs, c.Config.Estimator, c.Logger)
}

// Shutdown gracefully shuts down all components
func (c *Container) Shutdown(ctx context.Context) error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
