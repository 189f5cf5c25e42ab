// Package server initializes and runs the credential and session authority.
// It opens the database, runs migrations, connects the event bus, and starts
// the event consumer and the housekeeping scheduler, with graceful shutdown
// on OS signals.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"github.com/dmitrijs2005/authkeeper/internal/server/events"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authkeeper/internal/server/scheduler"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	bus         *events.RedisBus
	authService *services.AuthService
	reconciler  *services.Reconciler
	housekeeper *services.Housekeeper
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	logger := logging.NewJSONLogger(os.Stdout)

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	client, err := events.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		return nil, fmt.Errorf("redis init error: %w", err)
	}
	bus := events.NewRedisBus(client, logger)

	return &App{
		config:      cfg,
		logger:      logger,
		db:          db,
		bus:         bus,
		authService: services.NewAuthService(db, rm, bus, logger, cfg),
		reconciler:  services.NewReconciler(db, rm, bus, logger),
		housekeeper: services.NewHousekeeper(db, rm, bus, logger, cfg),
	}, nil
}

// AuthService exposes the synchronous request surface to embedders.
func (app *App) AuthService() *services.AuthService {
	return app.authService
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startConsumer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.bus.Consume(ctx, app.reconciler.Handlers()); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startScheduler(ctx context.Context) {
	s := scheduler.New(app.logger)
	s.Add("cleanup_expired", app.config.CleanupInterval, app.housekeeper.CleanupExpired)
	s.Add("generate_statistics", app.config.StatisticsInterval, app.housekeeper.GenerateStatistics)
	s.Add("check_password_expiry", app.config.PasswordExpiryCheckInterval, app.housekeeper.CheckPasswordExpiry)
	s.Run(ctx)
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startConsumer(ctx, cancelFunc)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startScheduler(ctx)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err.Error())
	}
}
