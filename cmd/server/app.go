package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/teamtasks-api/internal/config"
	"github.com/phrazzld/teamtasks-api/internal/events"
	"github.com/phrazzld/teamtasks-api/internal/job"
	"github.com/phrazzld/teamtasks-api/internal/platform/mail"
	"github.com/phrazzld/teamtasks-api/internal/platform/postgres"
	"github.com/phrazzld/teamtasks-api/internal/redact"
	"github.com/phrazzld/teamtasks-api/internal/service"
	"github.com/phrazzld/teamtasks-api/internal/service/auth"
	"github.com/phrazzld/teamtasks-api/internal/service/dispatch"
	"github.com/phrazzld/teamtasks-api/internal/store"
)

// application holds the shared dependencies of the server so they can be
// wired once and released together on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sqlx.DB

	userStore         store.UserStore
	taskStore         store.TaskStore
	notificationStore store.NotificationStore
	transactor        store.Transactor

	jwtService     auth.JWTService
	passwordHasher auth.PasswordHasher

	userService         service.UserService
	taskService         service.TaskService
	notificationService service.NotificationService

	eventEmitter *events.InMemoryEventEmitter
	engine       *dispatch.Engine
	reminder     *dispatch.Reminder
	mailer       mail.Sender
	jobRunner    *job.Runner

	background sync.WaitGroup
}

// newApplication wires stores, services and the notification pipeline on top of db.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sqlx.DB) (*application, error) {
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
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)
	app.passwordHasher = auth.NewBcryptHasher(cfg.Auth.BCryptCost)

	app.userStore = postgres.NewUserStore(db, logger)
	app.taskStore = postgres.NewTaskStore(db, logger)
	app.notificationStore = postgres.NewNotificationStore(db, logger)
	app.transactor = postgres.NewTransactor(db, app.taskStore, app.notificationStore, app.userStore)

	app.mailer, err = mail.New(cfg.Mail, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize mailer: %w", err)
	}

	app.jobRunner = job.NewRunner(postgres.NewJobStore(db, logger), jobRunnerConfig(cfg.Jobs), logger)
	app.jobRunner.SetErrorHandler(emailFailureHandler(logger))
	app.jobRunner.Register(dispatch.EmailJobType,
		dispatch.EmailJobFactory(app.mailer, app.notificationStore, logger))

	app.eventEmitter = events.NewInMemoryEventEmitter(logger)
	app.eventEmitter.Subscribe(events.TypeEmailRequested,
		dispatch.NewEmailHandler(app.jobRunner, app.mailer, app.notificationStore, logger))

	app.engine = dispatch.NewEngine(app.eventEmitter, logger)
	app.reminder = dispatch.NewReminder(app.taskStore, app.transactor, app.engine, cfg.Reminders.Window(), logger)

	app.userService = service.NewUserService(app.userStore, app.jwtService, app.passwordHasher, logger)
	app.taskService = service.NewTaskService(app.taskStore, app.transactor, app.engine, logger)
	app.notificationService = service.NewNotificationService(app.notificationStore, app.userStore, logger)

	if err := app.jobRunner.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start job runner: %w", err)
	}

	logger.Info("Application initialized successfully")
	return app, nil
}

// jobRunnerConfig overlays the configured sizes on the runner defaults.
func jobRunnerConfig(cfg config.JobsConfig) job.RunnerConfig {
	rc := job.DefaultRunnerConfig()
	if cfg.WorkerCount > 0 {
		rc.WorkerCount = cfg.WorkerCount
	}
	if cfg.QueueSize > 0 {
		rc.QueueSize = cfg.QueueSize
	}
	if age := cfg.StuckJobAge(); age > 0 {
		rc.StuckJobAge = age
	}
	return rc
}

// emailFailureHandler logs jobs that failed for good. The notification itself
// stays stored, only its email copy is lost.
func emailFailureHandler(logger *slog.Logger) func(job.Job, error) {
	log := logger.With("component", "notification_email")
	return func(j job.Job, err error) {
		attrs := []any{
			"job_id", j.ID(),
			"job_type", j.Type(),
			"error", redact.Error(err),
		}
		if ej, ok := j.(*dispatch.EmailJob); ok {
			attrs = append(attrs, "notification_id", ej.Request().NotificationID)
		}
		log.Error("notification email not delivered", attrs...)
	}
}

// Run starts the reminder loop and serves HTTP until ctx is canceled.
func (app *application) Run(ctx context.Context) error {
	defer app.cleanup()

	bgCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if app.config.Reminders.Enabled {
		app.background.Add(1)
		go func() {
			defer app.background.Done()
			app.reminder.Run(bgCtx, app.config.Reminders.Interval())
		}()
		app.logger.Info("Due date reminders enabled",
			"interval", app.config.Reminders.Interval().String(),
			"window", app.config.Reminders.Window().String())
	}

	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup stops background work, then closes the database.
func (app *application) cleanup() {
	app.background.Wait()

	if app.jobRunner != nil {
		app.jobRunner.Stop()
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
