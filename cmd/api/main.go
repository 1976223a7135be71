package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/circlemart/circlemart-backend/api/controllers"
	"github.com/circlemart/circlemart-backend/api/routes"
	"github.com/circlemart/circlemart-backend/internal/auth"
	"github.com/circlemart/circlemart-backend/internal/blogs"
	"github.com/circlemart/circlemart-backend/internal/cart"
	"github.com/circlemart/circlemart-backend/internal/categories"
	"github.com/circlemart/circlemart-backend/internal/groups"
	"github.com/circlemart/circlemart-backend/internal/media"
	"github.com/circlemart/circlemart-backend/internal/notifications"
	"github.com/circlemart/circlemart-backend/internal/products"
	"github.com/circlemart/circlemart-backend/internal/services"
	"github.com/circlemart/circlemart-backend/internal/users"
	"github.com/circlemart/circlemart-backend/pkg/auth/session"
	"github.com/circlemart/circlemart-backend/pkg/config"
	"github.com/circlemart/circlemart-backend/pkg/db"
	"github.com/circlemart/circlemart-backend/pkg/email"
	"github.com/circlemart/circlemart-backend/pkg/instance"
	"github.com/circlemart/circlemart-backend/pkg/logger"
	"github.com/circlemart/circlemart-backend/pkg/metrics"
	"github.com/circlemart/circlemart-backend/pkg/migrate"
	"github.com/circlemart/circlemart-backend/pkg/redis"
	"github.com/circlemart/circlemart-backend/pkg/storage/gcs"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Fields:      map[string]any{"instance": instance.ID("local")},
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, redisClient.Close()) }()

	gcsClient, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
	if err != nil {
		return err
	}
	uploader, err := media.NewService(gcsClient, cfg.GCS.RootFolder, cfg.Media.MaxUploadBytes(), logg)
	if err != nil {
		return err
	}

	var sender email.Sender = email.NopSender{}
	if cfg.Sendgrid.APIKey != "" {
		if sender, err = email.NewSendGridClient(cfg.Sendgrid); err != nil {
			return err
		}
	} else {
		logg.Warn(ctx, "sendgrid api key not set, emails are dropped")
	}
	notifier, err := notifications.NewService(sender, logg, cfg.Sendgrid.SendTimeout)
	if err != nil {
		return err
	}
	defer notifier.Wait()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	deps, err := buildServices(cfg, logg, dbClient, uploader, notifier, sessionManager, metrics.NewCartMetrics(registry))
	if err != nil {
		return err
	}
	deps.Config = cfg
	deps.Logger = logg
	deps.Sessions = sessionManager
	deps.IdempotencyStore = redisClient
	deps.RateLimiter = redisClient
	deps.HTTPMetrics = metrics.NewHTTPMetrics(registry)
	deps.Gatherer = registry
	deps.Readiness = map[string]controllers.Pinger{
		"db":    dbClient,
		"redis": redisClient,
		"gcs":   gcsClient,
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(logCtx, "starting api server")

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func buildServices(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	uploader media.Uploader,
	notifier notifications.Notifier,
	sessionManager *session.Manager,
	cartMetrics *metrics.CartMetrics,
) (routes.Dependencies, error) {
	var deps routes.Dependencies
	var err error

	if deps.Users, err = users.NewService(dbClient, logg); err != nil {
		return deps, err
	}
	if deps.Auth, err = auth.NewService(auth.ServiceParams{
		DB:             dbClient,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		Notifier:       notifier,
		Logger:         logg,
	}); err != nil {
		return deps, err
	}
	if deps.Categories, err = categories.NewService(dbClient, uploader, logg); err != nil {
		return deps, err
	}
	if deps.Services, err = services.NewService(dbClient, uploader, logg); err != nil {
		return deps, err
	}
	if deps.Groups, err = groups.NewService(dbClient, uploader, notifier, cfg.App.PublicBaseURL, logg); err != nil {
		return deps, err
	}
	if deps.Products, err = products.NewService(dbClient, uploader, cfg.Media.MaxGallerySize, logg); err != nil {
		return deps, err
	}
	if deps.Blogs, err = blogs.NewService(dbClient, uploader, deps.Services, cfg.Media.MaxGallerySize, logg); err != nil {
		return deps, err
	}
	if deps.Cart, err = cart.NewService(dbClient, cart.Options{
		DecrementStockOnApproval: cfg.Cart.DecrementStockOnApproval,
	}, cartMetrics, logg); err != nil {
		return deps, err
	}
	return deps, nil
}
