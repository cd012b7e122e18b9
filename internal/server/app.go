// Package server initializes and runs the auth service.
// It wires the database, Redis, signing keys, and SMTP together,
// handles graceful shutdown, and starts the HTTP endpoint.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/basketlog/auth-service/internal/keys"
	"github.com/basketlog/auth-service/internal/logging"
	"github.com/basketlog/auth-service/internal/server/config"
	"github.com/basketlog/auth-service/internal/server/guard"
	"github.com/basketlog/auth-service/internal/server/httpapi"
	"github.com/basketlog/auth-service/internal/server/repositories/repomanager"
	"github.com/basketlog/auth-service/internal/server/repositories/verificationcodes"
	"github.com/basketlog/auth-service/internal/server/services"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	redisClient *redis.Client
	repomanager repomanager.RepositoryManager
	httpServer  *httpapi.HTTPServer
}

func NewApp(cfg *config.Config) (*App, error) {

	slogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(slogger)

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})

	ks, err := keys.Load(cfg.KeysFile)
	if err != nil {
		return nil, fmt.Errorf("key store init error: %w", err)
	}

	m := repomanager.NewPostgresRepositoryManager()

	tokenService := services.NewTokenService(db, m, ks, cfg)
	authService := services.NewAuthService(db, m)
	emailService := services.NewEmailService(
		verificationcodes.NewRedisRepository(redisClient),
		services.NewSMTPSender(cfg),
		logger,
		cfg,
	)

	g := guard.New(ks, tokenService, authService)

	httpServer := httpapi.NewHTTPServer(
		cfg.EndpointAddrHTTP,
		logger,
		authService,
		tokenService,
		emailService,
		g,
		ks,
		cfg.RefreshTokenValidityDuration,
	)

	return &App{
		config:      cfg,
		logger:      logger,
		db:          db,
		redisClient: redisClient,
		repomanager: m,
		httpServer:  httpServer,
	}, nil
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

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.httpServer.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	if err := app.repomanager.RunMigrations(ctx, app.db); err != nil {
		app.logger.Error(ctx, err.Error())
		return
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.redisClient.Close(); err != nil {
		app.logger.Error(ctx, err.Error())
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, err.Error())
	}
}
