package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-print"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	approvals "github.com/goliatone/go-approvals"
	"github.com/goliatone/go-approvals/config"
	"github.com/goliatone/go-approvals/logging"
)

type App struct {
	config      *config.Config
	logger      *logging.Provider
	bunDB       *bun.DB
	repo        approvals.RepositoryManager
	hasher      approvals.PasswordAuthenticator
	tokens      *approvals.TokenServiceImpl
	broadcaster *approvals.Broadcaster
	srv         *fiber.App
}

func (a *App) GetLogger(name string) approvals.Logger {
	return a.logger.GetLogger(name)
}

func main() {
	cfg, err := config.Load(config.LoadOptions{Args: os.Args[1:]})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	lgr, err := logging.New(logging.Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAge,
		Compress:   cfg.Logging.Compress,
		SystemName: "approvals",
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	app := &App{config: cfg, logger: lgr}
	app.GetLogger("config").Debug("resolved config %s", print.MaybePrettyJSON(cfg))
	if cfg.UsingDevelopmentKey() {
		app.GetLogger("config").Warn("using the development signing key, set JWT_SECRET or APPROVALS_AUTH__SIGNING_KEY")
	}

	ctx := context.Background()

	if err := WithPersistence(ctx, app); err != nil {
		app.GetLogger("app").Error("persistence setup failed: %v", err)
		os.Exit(1)
	}

	if err := WithSeed(ctx, app); err != nil {
		app.GetLogger("app").Error("seeding failed: %v", err)
		os.Exit(1)
	}

	if err := WithHTTPServer(ctx, app); err != nil {
		app.GetLogger("app").Error("http setup failed: %v", err)
		os.Exit(1)
	}

	go func() {
		app.GetLogger("app").Info("listening on %s", cfg.Server.Address)
		if err := app.srv.Listen(cfg.Server.Address); err != nil {
			app.GetLogger("app").Error("server stopped: %v", err)
		}
	}()

	sig := WaitExitSignal()
	app.GetLogger("app").Info("received %s, shutting down", sig)
	Shutdown(app)
}

func WithPersistence(ctx context.Context, app *App) error {
	app.hasher = approvals.NewBcryptHasher(app.config.GetBcryptCost())

	switch app.config.Persistence.Driver {
	case "sqlite":
		sqldb, err := sql.Open(sqliteshim.ShimName, app.config.Persistence.DSN)
		if err != nil {
			return err
		}
		sqldb.SetMaxOpenConns(1)

		app.bunDB = bun.NewDB(sqldb, sqlitedialect.New())
		if err := approvals.CreateSchema(ctx, app.bunDB); err != nil {
			return err
		}
		app.repo = approvals.NewRepositoryManager(app.bunDB)
	default:
		app.repo = approvals.NewMemoryRepositoryManager()
	}

	app.repo.MustValidate()
	app.GetLogger("persistence").Info("using %s repositories", app.config.Persistence.Driver)
	return nil
}

func WithSeed(ctx context.Context, app *App) error {
	if !app.config.Seed.Enabled {
		return nil
	}
	seeder := approvals.NewSeeder(app.repo, app.hasher, app.GetLogger("seed"))
	return seeder.Seed(ctx, app.config.Seed.SampleTasks)
}

func WithHTTPServer(_ context.Context, app *App) error {
	activity := approvals.LoggerActivitySink(app.GetLogger("activity"))

	opts := []approvals.BroadcasterOption{
		approvals.WithSubscriberBuffer(app.config.Events.Buffer),
		approvals.WithBroadcasterLogger(app.GetLogger("events")),
	}
	if app.config.Events.Scoped {
		opts = append(opts, approvals.WithEventFilter(approvals.ScopedEventFilter))
	}
	app.broadcaster = approvals.NewBroadcaster(opts...)

	app.tokens = approvals.NewTokenServiceFromConfig(app.config, app.GetLogger("auth:tokens"))

	auther := approvals.NewAuthenticator(
		approvals.NewRequesterProvider(app.repo.Requesters(), app.hasher),
		approvals.NewAdminProvider(app.repo.AdminUsers(), app.hasher),
		app.tokens,
	).
		WithLogger(app.GetLogger("auth")).
		WithActivitySink(activity)

	tasks := approvals.NewTaskService(app.repo.Tasks(),
		approvals.WithTaskPublisher(app.broadcaster),
		approvals.WithTaskLogger(app.GetLogger("tasks")),
		approvals.WithTaskActivitySink(activity),
		approvals.WithTaskStrictTerminalStates(app.config.Tasks.StrictTerminal),
	)

	directory := approvals.NewAdminDirectory(app.repo.AdminUsers(), app.hasher,
		approvals.WithDirectoryPublisher(app.broadcaster),
		approvals.WithDirectoryLogger(app.GetLogger("directory")),
		approvals.WithDirectoryActivitySink(activity),
	)

	app.srv = approvals.NewFiberApp(approvals.ServerOptions{
		AllowedOrigins: app.config.Server.AllowedOrigins,
		Logger:         app.GetLogger("http"),
		AccessLogger:   app.GetLogger("http:access"),
	})

	controller := approvals.NewController(
		auther,
		approvals.NewHTTPAuthenticator(app.tokens, app.GetLogger("auth:http")),
		tasks,
		directory,
		approvals.WithControllerLogger(app.GetLogger("http:ctrl")),
		approvals.WithEventStream(approvals.NewEventStream(app.broadcaster, app.GetLogger("events:ws"))),
	)
	controller.RegisterRoutes(app.srv)

	return nil
}

func Shutdown(app *App) {
	if app.broadcaster != nil {
		app.broadcaster.Close()
	}
	if app.srv != nil {
		if err := app.srv.ShutdownWithTimeout(10 * time.Second); err != nil {
			app.GetLogger("app").Error("shutdown error: %v", err)
		}
	}
	if app.bunDB != nil {
		_ = app.bunDB.Close()
	}
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
