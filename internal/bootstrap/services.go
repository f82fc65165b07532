package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/miniblog/miniblog/config"
	"github.com/miniblog/miniblog/internal/adapters/dispatcher"
	"github.com/miniblog/miniblog/internal/data"
	"github.com/miniblog/miniblog/internal/notify"
	"github.com/miniblog/miniblog/internal/notify/webhook"
	"github.com/miniblog/miniblog/internal/service"
)

const shutdownWaitTimeout = 15 * time.Second

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Posts         *service.PostService
	Notifications *service.NotificationService
	Jobs          *service.JobService
	Stats         *service.StatsService
	Reaper        *service.ReaperService
	AlertSink     notify.Sink
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// serviceRepositories groups data adapters backing service ports.
type serviceRepositories struct {
	PostRepo         *data.PostRepo
	NotificationRepo *data.NotificationRepo
	JobRepo          *data.JobRepo
	UserRepo         *data.UserRepo
	CacheRepo        *data.RedisCacheRepo
}

// buildRepositories builds repositories backing service ports; no business rules here.
func buildRepositories(deps *ServiceDeps) *serviceRepositories {
	repos := &serviceRepositories{
		PostRepo:         data.NewPostRepo(deps.DB, data.PostRepoConfig{Logger: deps.Logger}),
		NotificationRepo: data.NewNotificationRepo(deps.DB, data.NotificationRepoConfig{Logger: deps.Logger}),
		JobRepo:          data.NewJobRepo(deps.DB, data.JobRepoConfig{Logger: deps.Logger}),
		UserRepo:         data.NewUserRepo(deps.DB),
	}
	if deps.RedisClient != nil {
		repos.CacheRepo = data.NewRedisCacheRepo(deps.RedisClient)
	}
	return repos
}

// buildAlertSink builds the outbound alert sink from config. A missing
// webhook URL disables outbound alerts.
func buildAlertSink(cfg *config.AppConfig, logger *slog.Logger) notify.Sink {
	if cfg == nil || cfg.Alert.WebhookURL == "" {
		if logger != nil {
			logger.Info("no alert webhook configured; outbound alerts disabled")
		}
		return nil
	}

	sink, err := webhook.NewClient(webhook.Config{
		URL:        cfg.Alert.WebhookURL,
		AuthToken:  cfg.Alert.AuthToken,
		Sender:     cfg.Alert.Sender,
		Timeout:    cfg.Dispatcher.AlertTimeout,
		RetryLimit: cfg.Alert.RetryLimit,
	})
	if err != nil {
		if logger != nil {
			logger.Error("failed to build alert webhook client; outbound alerts disabled", "error", err)
		}
		return nil
	}
	return sink
}

// NewServices wires all application services from shared infrastructure.
func NewServices(deps *ServiceDeps) ServiceContainer {
	repos := buildRepositories(deps)
	logger := deps.Logger

	jobs := service.MustNewJobService(service.JobServiceOptions{
		Repo:         repos.JobRepo,
		DefaultLease: deps.Config.Dispatcher.JobLease,
		Logger:       logger,
	})

	posts := service.MustNewPostService(service.PostServiceOptions{
		Repo:     repos.PostRepo,
		Enqueuer: jobs,
		Logger:   logger,
	})

	notificationOpts := service.NotificationServiceOptions{
		Repo:           repos.NotificationRepo,
		UnreadCountTTL: deps.Config.Cache.UnreadCountTTL,
		Logger:         logger,
	}
	if repos.CacheRepo != nil {
		notificationOpts.Cache = repos.CacheRepo
	}
	notifications := service.MustNewNotificationService(notificationOpts)

	stats, err := service.NewStatsService(service.StatsServiceOptions{
		Posts:         repos.PostRepo,
		Notifications: notifications,
		Jobs:          repos.JobRepo,
		Users:         repos.UserRepo,
		Logger:        logger,
	})
	if err != nil && logger != nil {
		logger.Error("stats service unavailable", "error", err)
	}

	reaper := service.MustNewReaperService(service.ReaperServiceOptions{
		Repo:   repos.JobRepo,
		Config: deps.Config.Reaper,
		Logger: logger,
	})

	return ServiceContainer{
		Posts:         posts,
		Notifications: notifications,
		Jobs:          jobs,
		Stats:         stats,
		Reaper:        reaper,
		AlertSink:     buildAlertSink(deps.Config, logger),
	}
}

// ServiceOrchestrationConfig contains configuration for service orchestration.
type ServiceOrchestrationConfig struct {
	Config      *config.AppConfig
	Services    ServiceContainer
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// backgroundServiceHandle tracks a background service for graceful shutdown.
type backgroundServiceHandle struct {
	name string
	done <-chan struct{}
}

// RunServicesWithShutdown starts all enabled services and manages their
// lifecycle until a signal arrives or a service fails.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	if cfg == nil {
		return errors.New("service orchestration config is required")
	}
	if cfg.Config == nil {
		return errors.New("service orchestration config missing AppConfig")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	serviceCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	enabled, err := cfg.Config.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}
	errCh := make(chan error, len(enabled)+1)

	var (
		httpServer  *http.Server
		backgrounds []backgroundServiceHandle
	)

	if enabled[config.ServiceModeHTTP] {
		httpServer = StartHTTPServer(&HTTPServerConfig{
			Config:   cfg.Config,
			Services: cfg.Services,
			Logger:   logger,
		})
	}

	if enabled[config.ServiceModeDispatcher] {
		handle, derr := startDispatcher(serviceCtx, cfg, logger, errCh)
		if derr != nil {
			return derr
		}
		backgrounds = append(backgrounds, handle)
	}

	if enabled[config.ServiceModeReaper] {
		backgrounds = append(backgrounds, startBackground(serviceCtx, "reaper", errCh, cfg.Services.Reaper.Run))
	}

	return waitForShutdown(shutdownConfig{
		ctx:         serviceCtx,
		cancel:      cancel,
		errCh:       errCh,
		httpServer:  httpServer,
		jobService:  cfg.Services.Jobs,
		logger:      logger,
		backgrounds: backgrounds,
	})
}

func startDispatcher(
	ctx context.Context,
	cfg *ServiceOrchestrationConfig,
	logger *slog.Logger,
	errCh chan<- error,
) (backgroundServiceHandle, error) {
	d, err := dispatcher.New(dispatcher.Options{
		DB:            cfg.DB,
		Logger:        logger,
		Lease:         cfg.Config.Dispatcher.JobLease,
		Concurrency:   cfg.Config.Dispatcher.Concurrency,
		AlertTimeout:  cfg.Config.Dispatcher.AlertTimeout,
		Notifications: cfg.Services.Notifications,
		AlertSink:     cfg.Services.AlertSink,
	})
	if err != nil {
		return backgroundServiceHandle{}, fmt.Errorf("build dispatcher: %w", err)
	}
	return startBackground(ctx, "dispatcher", errCh, d.Run), nil
}

// startBackground launches a run-to-completion service and reports its exit.
func startBackground(
	ctx context.Context,
	name string,
	errCh chan<- error,
	run func(context.Context) error,
) backgroundServiceHandle {
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			select {
			case errCh <- fmt.Errorf("%s: %w", name, err):
			default:
			}
		}
	}()
	return backgroundServiceHandle{name: name, done: done}
}

// shutdownConfig contains dependencies for graceful shutdown.
type shutdownConfig struct {
	ctx         context.Context
	cancel      context.CancelFunc
	errCh       <-chan error
	httpServer  *http.Server
	jobService  *service.JobService
	logger      *slog.Logger
	backgrounds []backgroundServiceHandle
}

// waitForShutdown waits for shutdown signal or service error.
func waitForShutdown(cfg shutdownConfig) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
		cfg.logger.Info("shutting down services...")
		cfg.cancel()
		return gracefulStop(cfg)
	case err := <-cfg.errCh:
		cfg.logger.Error("service error", "error", err)
		cfg.cancel()
		if stopErr := gracefulStop(cfg); stopErr != nil {
			cfg.logger.Error("graceful stop failed", "error", stopErr)
		}
		return err
	}
}

// gracefulStop attempts to gracefully stop all services.
func gracefulStop(cfg shutdownConfig) error {
	if cfg.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWaitTimeout)
		defer cancel()

		if err := ShutdownHTTPServer(ShutdownConfig{
			Context:    shutdownCtx,
			Server:     cfg.httpServer,
			JobService: cfg.jobService,
			Logger:     cfg.logger,
		}); err != nil {
			return err
		}
	}

	for _, svc := range cfg.backgrounds {
		waitForService(svc.done, svc.name, cfg.logger)
	}
	return nil
}

// waitForService waits for a service to finish with timeout.
func waitForService(done <-chan struct{}, name string, logger *slog.Logger) {
	if done == nil {
		return
	}
	select {
	case <-done:
		logger.Info(name + " stopped")
	case <-time.After(shutdownWaitTimeout):
		logger.Warn("timeout waiting for " + name + " to stop")
	}
}
