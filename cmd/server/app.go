package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/cleohq/cleo-api/internal/config"
	"github.com/cleohq/cleo-api/internal/platform/gemini"
	"github.com/cleohq/cleo-api/internal/platform/kafka"
	"github.com/cleohq/cleo-api/internal/platform/postgres"
	"github.com/cleohq/cleo-api/internal/platform/vault"
	"github.com/cleohq/cleo-api/internal/provider"
	"github.com/cleohq/cleo-api/internal/queue"
	"github.com/cleohq/cleo-api/internal/service"
	"github.com/cleohq/cleo-api/internal/service/auth"
	"github.com/cleohq/cleo-api/internal/store"
	"github.com/cleohq/cleo-api/internal/task"
)

// application holds the shared dependencies so wiring and cleanup live
// in one place.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	userStore         store.UserStore
	workspaceStore    store.WorkspaceStore
	taskStore         store.TaskStore
	credentialStore   store.CredentialStore
	refreshTokenStore store.RefreshTokenStore
	submissionStore   store.SubmissionStore

	jwtService   auth.JWTService
	authService  *service.AuthService
	oauthService *service.OAuthService
	aiService    *service.AIService

	taskQueue  queue.Queue
	taskRunner *task.Runner
}

// newApplication creates the application with all dependencies wired.
// Construction is fail-fast: a missing API key, a bad encryption key, or
// an unreachable broker surfaces here rather than on the first request.
func newApplication(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	db *sql.DB,
) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}

	app.userStore = postgres.NewPostgresUserStore(db, bcrypt.DefaultCost)
	app.workspaceStore = postgres.NewPostgresWorkspaceStore(db)
	app.taskStore = postgres.NewPostgresTaskStore(db)
	app.credentialStore = postgres.NewPostgresCredentialStore(db)
	app.refreshTokenStore = postgres.NewPostgresRefreshTokenStore(db)
	app.submissionStore = postgres.NewPostgresSubmissionStore(db)

	tokenVault, err := vault.New(cfg.Encryption.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token vault: %w", err)
	}

	app.taskQueue, err = setupQueue(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize task queue: %w", err)
	}

	registry := provider.NewRegistry(
		provider.NewGmailProvider(cfg.Providers.MaxItems),
		provider.NewNotionProvider(),
	)

	invoker, err := gemini.NewInvoker(ctx, logger.With("component", "model_invoker"), cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize model invoker: %w", err)
	}

	app.authService = service.NewAuthService(
		app.userStore,
		app.refreshTokenStore,
		app.jwtService,
		auth.NewBcryptVerifier(),
		logger,
	)

	app.oauthService = service.NewOAuthService(
		app.credentialStore,
		app.workspaceStore,
		tokenVault,
		cfg.OAuth,
		logger,
	)

	app.aiService = service.NewAIService(
		app.taskStore,
		app.workspaceStore,
		app.credentialStore,
		app.taskQueue,
		tokenVault,
		registry,
		invoker,
		logger,
	)

	app.taskRunner, err = task.NewRunner(
		app.taskStore,
		app.taskQueue,
		app.aiService,
		task.RunnerConfig{
			WorkerCount:   cfg.Task.WorkerCount,
			StuckTaskAge:  time.Duration(cfg.Task.StuckTaskAgeMinutes) * time.Minute,
			SweepInterval: time.Duration(cfg.Task.SweepIntervalMinutes) * time.Minute,
		},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create task runner: %w", err)
	}

	logger.Info("application initialized")
	return app, nil
}

// setupQueue selects the queue implementation from configuration. The
// in-memory queue loses messages on restart; the startup recovery pass
// requeues them from the task table, so it stays correct for
// single-node deployments. Kafka makes the trigger itself durable.
func setupQueue(cfg *config.Config, logger *slog.Logger) (queue.Queue, error) {
	switch cfg.Queue.Driver {
	case "kafka":
		return kafka.New(kafka.Config{
			Brokers: cfg.Queue.KafkaBrokers,
			Topic:   cfg.Queue.KafkaTopic,
			GroupID: cfg.Queue.KafkaGroupID,
		}, logger)
	case "memory":
		return queue.NewMemoryQueue(cfg.Task.QueueSize, logger), nil
	default:
		return nil, fmt.Errorf("unknown queue driver %q", cfg.Queue.Driver)
	}
}

// Run starts the task runner and the HTTP server, blocking until
// shutdown completes.
func (app *application) Run(ctx context.Context) error {
	if err := app.taskRunner.Start(); err != nil {
		return fmt.Errorf("failed to start task runner: %w", err)
	}

	router := app.setupRouter()
	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup releases application resources in reverse dependency order.
func (app *application) cleanup() {
	if app.taskRunner != nil {
		app.taskRunner.Stop()
	}

	if app.taskQueue != nil {
		if err := app.taskQueue.Close(); err != nil {
			app.logger.Error("failed to close task queue", "error", err)
		}
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("failed to close database connection", "error", err)
		}
	}

	app.logger.Info("application shutdown completed")
}
