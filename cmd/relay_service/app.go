package relayservice

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"zoomx/internal/general/config"
	"zoomx/internal/general/jwt"
	"zoomx/internal/general/logger"
	"zoomx/internal/general/postgres"
	"zoomx/internal/general/rabbitmq"
	"zoomx/internal/software/relay"
	"zoomx/internal/software/request/service"
)

// Run wires the relay service and blocks until ctx is cancelled.
//
// The relay shares the request service core (and therefore the store) with
// the HTTP API: websocket mutations commit first and fan out through the
// broker like everything else.
func Run(ctx context.Context, prefetch, maxConcurrent int) error {
	logger := logger.New("relay-service")
	ctx = logger.WithCorrelationID(ctx, "startup-001")

	// load a config from file
	cfg, err := config.LoadFromFile("config/config.yaml")
	if err != nil {
		logger.Error(ctx, "config_load_failed", "Failed to load configuration", err, nil)
		return err
	}

	// set up a Postgres connection pool
	pool, err := postgres.NewPool(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "db_connection_failed", "Failed to initialize Postgres pool", err, nil)
		return err
	}
	defer pool.Close()

	// connect to RabbitMQ
	rmq, err := rabbitmq.ConnectRabbitMQ(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "rabbitmq_connection_failed", "Failed to connect to RabbitMQ", err, nil)
		return err
	}
	defer rmq.Close()

	pub := &rabbitmq.MQPublisher{Client: rmq}
	jwtManager := jwt.NewManager(cfg.JWT.SecretKey, 2*time.Hour)

	// the relay drives the same service core as the HTTP API
	uow := postgres.NewUnitOfWork(pool)
	svc := service.NewRequestService(logger, uow, postgres.NewRequestRepo(), postgres.NewAssignmentRepo(), pub)

	// hub + router + broker consumer
	hub := relay.NewHub(logger, svc)
	go hub.Run(ctx)

	router := relay.NewRouter(logger, svc)
	consumer := relay.NewConsumer(logger, rmq, hub, prefetch)
	consumer.Run(ctx)

	// websocket entry point
	mux := http.NewServeMux()
	wsHandler := relay.NewWSHandler(logger, jwtManager, hub, router)
	wsHandler.RegisterRoutes(mux)

	limitedHandler := withConcurrencyLimit(maxConcurrent, mux)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Services.RelayServicePort),
		Handler:           limitedHandler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	logger.Info(ctx, "service_started",
		fmt.Sprintf("Relay Service started on port %d", cfg.Services.RelayServicePort),
		map[string]any{"port": cfg.Services.RelayServicePort, "max_concurrent": maxConcurrent},
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info(ctx, "shutdown_started", "Starting graceful shutdown", nil)
		if err := srv.Shutdown(shCtx); err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "http_shutdown_failed", "Failed to gracefully shut down HTTP server", err, nil)
		}
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "http_server_error", "HTTP server terminated with error", err, map[string]any{"port": cfg.Services.RelayServicePort})
			return err
		}
		return nil
	}

	return nil
}

// withConcurrencyLimit wraps an http.Handler with a semaphore-based limiter.
func withConcurrencyLimit(n int, next http.Handler) http.Handler {
	if n <= 0 {
		return next
	}
	sem := make(chan struct{}, n)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case sem <- struct{}{}: // acquire
			defer func() { <-sem }() // release
			next.ServeHTTP(w, r)
		case <-r.Context().Done():
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		}
	})
}
