package commands

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/farmfresh/internal/auth"
	"github.com/fjod/farmfresh/internal/cache"
	h "github.com/fjod/farmfresh/internal/http"
	"github.com/fjod/farmfresh/internal/publisher"
	"github.com/fjod/farmfresh/internal/service"
	"github.com/fjod/farmfresh/internal/session"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the storefront HTTP API. When KAFKA_BROKERS is set, the order event
publisher runs alongside it. SIGINT or SIGTERM shuts both down gracefully.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	if err := cfg.RequireSecrets(); err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	// trace ids from upstream proxies end up in the request logs
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDatabase(db)

	redisClient, err := openRedis(ctx, cfg)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	images, err := newImageStore(ctx, cfg)
	if err != nil {
		return err
	}

	repos := newRepositories(db)
	authService := service.NewAuthService(repos.users, session.NewRedisStore(redisClient, cfg.SessionTTL), auth.NewTokenManager(cfg.JWTSecret))

	router := h.NewRouter(h.Services{
		Auth:    authService,
		Account: service.NewAccountService(repos.users),
		Cart:    service.NewCartService(repos.users, repos.products),
		Orders: service.NewOrderService(repos.users, repos.products, repos.orders, repos.outbox, repos.tx,
			service.WithForwardOnlyStatus(cfg.OrderStatusForwardOnly)),
		Reports: service.NewReportService(repos.orders, loc),
		Catalog: service.NewCatalogService(repos.products, repos.categories, cache.NewRedisCache(redisClient), images),
	}, h.RouterConfig{
		RequestTimeout:     cfg.RequestTimeout,
		CORSOrigins:        cfg.CORSOrigins,
		AuthRateLimitRPS:   cfg.AuthRateLimitRPS,
		AuthRateLimitBurst: cfg.AuthRateLimitBurst,
	})

	pollerDone := make(chan struct{})
	if len(cfg.KafkaBrokers) > 0 {
		poller := publisher.NewOutboxPoller(repos.outbox, cfg.KafkaTopic, cfg.KafkaBrokers...)
		go func() {
			defer close(pollerDone)
			poller.Run(ctx)
			if err := poller.Close(); err != nil {
				slog.Error("failed to close kafka writer", "error", err)
			}
		}()
	} else {
		slog.Warn("KAFKA_BROKERS not set, order events stay in the outbox")
		close(pollerDone)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("FarmFresh API starting", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			stop()
			<-pollerDone
			return err
		}
	case <-ctx.Done():
	}

	slog.Info("shutting down server...")
	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	<-pollerDone

	slog.Info("server exited")
	return nil
}

