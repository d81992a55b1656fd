package requestservice

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"zoomx/internal/domain/request"
	"zoomx/internal/general/config"
	"zoomx/internal/general/geocode"
	"zoomx/internal/general/jwt"
	"zoomx/internal/general/logger"
	"zoomx/internal/general/postgres"
	"zoomx/internal/general/rabbitmq"
	"zoomx/internal/general/route"
	estimatehandler "zoomx/internal/software/estimate/handler"
	estimateservice "zoomx/internal/software/estimate/service"
	"zoomx/internal/software/request/handler"
	"zoomx/internal/software/request/service"
)

// Run wires the request service and blocks until ctx is cancelled.
func Run(ctx context.Context, maxConcurrent int) error {
	// set up a new logger and context with a static correlation ID for startup logs
	logger := logger.New("request-service")
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

	// set up the RabbitMQ publisher
	pub := &rabbitmq.MQPublisher{Client: rmq}

	// set up the JWT manager
	jwtManager := jwt.NewManager(cfg.JWT.SecretKey, 2*time.Hour)

	// set up the repositories
	uow := postgres.NewUnitOfWork(pool)
	requestRepo := postgres.NewRequestRepo()
	assignmentRepo := postgres.NewAssignmentRepo()

	// set up the request service
	svc := service.NewRequestService(logger, uow, requestRepo, assignmentRepo, pub)

	// set up the estimator with its external collaborators
	geocoder := geocode.NewClient(cfg, logger)
	router := route.NewClient(cfg, logger)
	tariffs, err := tariffTable(cfg)
	if err != nil {
		logger.Error(ctx, "config_load_failed", "Invalid tariff overrides", err, nil)
		return err
	}
	estimator := estimateservice.NewEstimateService(logger, geocoder, router, tariffs)

	// set up the HTTP handlers and their routes
	mux := http.NewServeMux()
	httpHandler := handler.NewRequestHTTPHandler(svc, logger, jwtManager)
	httpHandler.RegisterRoutes(mux)
	estimateHandler := estimatehandler.NewEstimateHTTPHandler(estimator, logger, jwtManager)
	estimateHandler.RegisterRoutes(mux)

	// global concurrency limiter, blocks when capacity is full
	limitedHandler := withConcurrencyLimit(maxConcurrent, mux)

	// set up the server configurations
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Services.RequestServicePort),
		Handler:           limitedHandler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	logger.Info(ctx, "service_started",
		fmt.Sprintf("Request Service started on port %d", cfg.Services.RequestServicePort),
		map[string]any{"port": cfg.Services.RequestServicePort, "max_concurrent": maxConcurrent},
	)

	// start the server in a background goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	// wait for context cancellation or server error
	select {
	case <-ctx.Done():
		// graceful HTTP shutdown on context cancel
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info(ctx, "shutdown_started", "Starting graceful shutdown", nil)
		if err := srv.Shutdown(shCtx); err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "http_shutdown_failed", "Failed to gracefully shut down HTTP server", err, nil)
		}
	case err := <-errCh:
		// server returned a terminal error at startup or during run
		if err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "http_server_error", "HTTP server terminated with error", err, map[string]any{"port": cfg.Services.RequestServicePort})
			return err
		}
		return nil
	}

	return nil
}

// tariffTable merges the estimator config overrides onto the built-in
// coefficient table. Service names in the config are matched case-insensitively
// against the known service types; unknown names are a startup error.
func tariffTable(cfg *config.Config) (map[request.ServiceType]request.Tariff, error) {
	table := request.DefaultTariffs()

	for name, override := range cfg.Estimator.Tariffs {
		serviceType, err := request.ParseServiceType(name)
		if err != nil {
			return nil, fmt.Errorf("estimator.tariffs.%s: %w", name, err)
		}

		tariff := table[serviceType]
		if override.BaseFare != nil {
			tariff.BaseFare = *override.BaseFare
		}
		if override.DayPerKM != nil {
			tariff.DayPerKM = *override.DayPerKM
		}
		if override.NightPerKM != nil {
			tariff.NightPerKM = *override.NightPerKM
		}
		if override.PrepMinutes != nil {
			tariff.PrepMinutes = *override.PrepMinutes
		}
		if override.MinutesPerKM != nil {
			tariff.MinutesPerKM = *override.MinutesPerKM
		}
		table[serviceType] = tariff
	}

	return table, nil
}

// withConcurrencyLimit wraps an http.Handler with a semaphore-based limiter.
// It controls how many HTTP requests can be in-progress at the same time.
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
			// client canceled or server is shutting down
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		}
	})
}
