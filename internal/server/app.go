// Package server assembles the GophAuth application: configuration, storage,
// mail delivery, attempt limiting and the HTTP API, plus graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/cryptox"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/httpapi"
	"github.com/dmitrijs2005/gophauth/internal/server/mail"
	"github.com/dmitrijs2005/gophauth/internal/server/metrics"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/redis/go-redis/v9"
)

const mailDrainTimeout = 10 * time.Second

type App struct {
	config     *config.Config
	logger     logging.Logger
	db         *sql.DB
	redis      *redis.Client
	dispatcher *mail.Dispatcher
	server     *httpapi.HTTPServer
}

// NewApp connects storage, applies migrations and builds the services and
// the HTTP server. Resources opened before a failure are released.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, logging.ParseLevel(c.LogLevel))

	db, err := repomanager.OpenDB(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	app := &App{config: c, logger: logger, db: db}

	m := metrics.New()

	mailer, err := newMailer(c, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	app.dispatcher = mail.NewDispatcher(mailer, logger, c.MailWorkers, c.MailQueueSize,
		mail.WithResultHook(m.RecordMail))

	hasher := cryptox.NewBcryptHasher(c.BcryptCost)
	tokens := auth.NewTokenManager(c.SecretKey)
	codes := services.NewCodeService(db, rm, c)
	as := services.NewAuthService(db, rm, c, hasher, tokens, codes, app.dispatcher, logger)
	us := services.NewUserService(db, rm, hasher)

	opts := []httpapi.Option{httpapi.WithMetrics(m)}
	if c.RedisAddr != "" {
		app.redis = redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		limiter := httpapi.NewRedisAttemptLimiter(app.redis, "")
		opts = append(opts, httpapi.WithAttemptLimit(limiter, c.AttemptLimit, c.AttemptWindow))
	}

	app.server = httpapi.NewHTTPServer(c.EndpointAddrHTTP, logger, as, us, tokens, opts...)
	return app, nil
}

// newMailer sends over SMTP when a host is configured and only logs
// otherwise.
func newMailer(c *config.Config, l logging.Logger) (mail.Mailer, error) {
	renderer, err := mail.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("mail templates: %w", err)
	}
	if c.SMTPHost == "" {
		return mail.NewLogMailer(l, renderer), nil
	}
	m, err := mail.NewSMTPMailer(c.SMTPHost, c.SMTPUser, c.SMTPPassword, c.MailFrom, c.MailFromName, renderer)
	if err != nil {
		return nil, err
	}
	return m, nil
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
	if err := app.server.Run(ctx); err != nil {
		logging.LogError(ctx, app.logger, "http server stopped", err)
		cancelFunc()
	}
}

// Run serves until a termination signal arrives or the server fails, then
// drains queued mail and closes storage.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "address", app.config.EndpointAddrHTTP)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.shutdown()
}

func (app *App) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), mailDrainTimeout)
	defer cancel()

	if err := app.dispatcher.Close(ctx); err != nil {
		app.logger.Warn(ctx, "mail queue not drained", "error", err)
	}
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Warn(ctx, "redis close failed", "error", err)
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Warn(ctx, "db close failed", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
