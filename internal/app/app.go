package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-contacts-api/internal/auth"
	"go-contacts-api/internal/cache"
	"go-contacts-api/internal/config"
	"go-contacts-api/internal/database"
	"go-contacts-api/internal/handler"
	"go-contacts-api/internal/mailer"
	"go-contacts-api/internal/middleware"
	"go-contacts-api/internal/model"
	"go-contacts-api/internal/repository"
	"go-contacts-api/internal/router"
	"go-contacts-api/internal/service"
)

const cacheJanitorInterval = time.Minute

type App struct {
	server       *http.Server
	cleanupFuncs []func()
}

type stores struct {
	db       *database.DB
	users    service.UserStore
	contacts service.ContactStore
}

// openStores connects to PostgreSQL when DATABASE_URL is set and falls back
// to the in-memory repositories otherwise.
func openStores(ctx context.Context, cfg *config.Config) (stores, error) {
	if cfg.DatabaseURL == "" {
		slog.Warn("DATABASE_URL not set, using in-memory storage")
		return stores{
			users:    repository.NewMemoryUserRepository(),
			contacts: repository.NewMemoryContactRepository(),
		}, nil
	}

	slog.Info("connecting to PostgreSQL")
	db, err := database.New(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return stores{}, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return stores{}, fmt.Errorf("failed to ensure database schema: %w", err)
	}
	slog.Info("database ready")

	return stores{
		db:       db,
		users:    repository.NewUserRepository(db.Pool),
		contacts: repository.NewContactRepository(db.Pool),
	}, nil
}

func (s stores) close() {
	if s.db != nil {
		s.db.Close()
	}
}

func (s stores) health() interface {
	Health(ctx context.Context) error
} {
	if s.db == nil {
		return nil
	}
	return s.db
}

func newAuthService(cfg *config.Config, users service.UserStore, store cache.Store, queue mailer.Queue) (*service.AuthService, error) {
	codec, err := auth.NewTokenCodec(cfg.JWTSecret)
	if err != nil {
		return nil, err
	}

	return service.NewAuthService(users, auth.NewPasswordHasher(cfg.BcryptCost), codec, store, queue, service.AuthConfig{
		AccessTTL:      cfg.JWTAccessTTL,
		RefreshTTL:     cfg.JWTRefreshTTL,
		EmailActionTTL: cfg.EmailTokenTTL,
		UserCacheTTL:   cfg.UserCacheTTL,
	}), nil
}

func newUserCache(ctx context.Context, cfg *config.Config) (cache.Store, func(), error) {
	if cfg.CacheBackend == config.CacheBackendRedis {
		store, err := cache.NewRedisStore(ctx, cfg.RedisURL, "contacts:")
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		slog.Info("user cache ready", "backend", "redis")
		return store, func() { _ = store.Close() }, nil
	}

	store := cache.NewMemoryStore()
	janitorCtx, cancel := context.WithCancel(context.Background())
	go store.StartJanitor(janitorCtx, cacheJanitorInterval)
	slog.Info("user cache ready", "backend", "memory")
	return store, cancel, nil
}

func newMailQueue(cfg *config.Config) (mailer.Queue, func(), error) {
	var sender mailer.Sender = mailer.LogSender{}
	if cfg.SMTPHost != "" {
		sender = mailer.NewSMTPSender(mailer.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
			Timeout:  cfg.SMTPTimeout,
		})
	} else {
		slog.Warn("SMTP_HOST not set, emails will only be logged")
	}

	ctx, cancel := context.WithCancel(context.Background())

	if cfg.MailQueue == config.MailQueueRabbitMQ {
		queue, err := mailer.NewRabbitMQQueue(mailer.RabbitMQConfig{
			URL:           cfg.RabbitMQURL,
			Queue:         cfg.MailQueueName,
			PrefetchCount: cfg.RabbitMQPrefetch,
			SendTimeout:   cfg.MailSendTimeout,
		})
		if err != nil {
			cancel()
			return nil, nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
		}

		go func() {
			if err := queue.Consume(ctx, sender); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("mail consumer stopped", "error", err)
			}
		}()

		slog.Info("mail queue ready", "backend", "rabbitmq", "queue", cfg.MailQueueName, "prefetch", cfg.RabbitMQPrefetch)
		return queue, func() {
			cancel()
			_ = queue.Close()
		}, nil
	}

	dispatcher := mailer.NewDispatcher(sender, cfg.MailQueueSize, cfg.MailWorkers, cfg.MailSendTimeout)
	dispatcher.Start(ctx)
	slog.Info("mail queue ready", "backend", "memory", "workers", cfg.MailWorkers)
	return dispatcher, func() {
		dispatcher.Close()
		cancel()
	}, nil
}

func New(cfg *config.Config) (*App, error) {
	ctx := context.Background()
	var cleanups []func()
	fail := func(err error) (*App, error) {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
		return nil, err
	}

	st, err := openStores(ctx, cfg)
	if err != nil {
		return nil, err
	}
	cleanups = append(cleanups, st.close)

	userCache, closeCache, err := newUserCache(ctx, cfg)
	if err != nil {
		return fail(err)
	}
	cleanups = append(cleanups, closeCache)

	queue, closeQueue, err := newMailQueue(cfg)
	if err != nil {
		return fail(err)
	}
	cleanups = append(cleanups, closeQueue)

	authService, err := newAuthService(cfg, st.users, userCache, queue)
	if err != nil {
		return fail(fmt.Errorf("failed to initialize auth service: %w", err))
	}
	authMiddleware := middleware.NewAuthMiddleware(authService)
	contactService := service.NewContactService(st.contacts)

	appRouter := router.New(cfg, authMiddleware, router.Handlers{
		Auth:    handler.NewAuthHandler(authService, cfg.PublicBaseURL),
		Contact: handler.NewContactHandler(contactService),
		Search:  handler.NewSearchHandler(contactService),
		Health:  handler.NewHealthHandler(st.health()),
		Docs:    handler.NewDocsHandler(),
	})

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return &App{server: server, cleanupFuncs: cleanups}, nil
}

func (a *App) Run() error {
	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err, ok := <-serveErr:
		if ok {
			a.cleanup()
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-stop:
		slog.Info("shutdown signal received", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	shutdownErr := a.server.Shutdown(ctx)
	a.cleanup()
	if shutdownErr != nil {
		return fmt.Errorf("graceful shutdown failed: %w", shutdownErr)
	}

	slog.Info("server stopped")
	return nil
}

// cleanup releases resources in reverse acquisition order.
func (a *App) cleanup() {
	for i := len(a.cleanupFuncs) - 1; i >= 0; i-- {
		a.cleanupFuncs[i]()
	}
}

// CreateUser provisions an account directly against the configured storage,
// bypassing signup and email confirmation.
func CreateUser(ctx context.Context, cfg *config.Config, username string, email string, password string, role string) error {
	parsed, ok := model.ParseRole(role)
	if !ok {
		return fmt.Errorf("unknown role %q", role)
	}
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required to create users")
	}

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	authService, err := newAuthService(cfg, st.users, cache.Noop{}, nil)
	if err != nil {
		return err
	}

	user, err := authService.CreateUser(ctx, username, email, password, parsed, true)
	if err != nil {
		return err
	}

	slog.Info("user created", "id", user.ID, "email", user.Email, "role", user.Role)
	return nil
}
