package portal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/streadway/amqp"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/magabrotheeeer/finportal/internal/audit"
	"github.com/magabrotheeeer/finportal/internal/cache"
	"github.com/magabrotheeeer/finportal/internal/config"
	"github.com/magabrotheeeer/finportal/internal/gate"
	"github.com/magabrotheeeer/finportal/internal/http/handlers/health"
	"github.com/magabrotheeeer/finportal/internal/lib/jwt"
	"github.com/magabrotheeeer/finportal/internal/lib/password"
	"github.com/magabrotheeeer/finportal/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/finportal/internal/lib/sl"
	"github.com/magabrotheeeer/finportal/internal/metrics"
	"github.com/magabrotheeeer/finportal/internal/migrations"
	"github.com/magabrotheeeer/finportal/internal/paymentprovider"
	"github.com/magabrotheeeer/finportal/internal/ratelimit"
	"github.com/magabrotheeeer/finportal/internal/services/auditlog"
	"github.com/magabrotheeeer/finportal/internal/services/auth"
	banksvc "github.com/magabrotheeeer/finportal/internal/services/banking"
	"github.com/magabrotheeeer/finportal/internal/services/billing"
	"github.com/magabrotheeeer/finportal/internal/services/subscription"
	"github.com/magabrotheeeer/finportal/internal/storage/repository"
)

const shutdownTimeout = 15 * time.Second

// App объединяет HTTP-сервер портала и gRPC-сервер проверки здоровья.
type App struct {
	server     *http.Server
	grpcServer *grpc.Server
	healthSrv  *grpchealth.Server
	listener   net.Listener
	logger     *slog.Logger
	db         *repository.Storage
	cache      *cache.Cache
	rabbit     *amqp.Connection
	audit      *audit.Logger
	janitor    func(ctx context.Context)
}

// New собирает приложение: подключается к хранилищам, применяет миграции и регистрирует маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	const op = "app.portal.New"

	app := &App{logger: logger}
	defer func() {
		if err != nil {
			app.closeResources()
		}
	}()

	app.db, err = repository.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = migrations.Run(app.db.DB); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	healthChecks := []health.Check{{Name: "postgres", Pinger: app.db}}

	var subCache subscription.Cache = cache.Noop{}
	if cfg.RedisConnection.Address != "" {
		app.cache, err = cache.InitServer(ctx, cfg.RedisConnection)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		subCache = app.cache
		healthChecks = append(healthChecks, health.Check{Name: "redis", Pinger: app.cache})
	} else {
		logger.Warn("redis is not configured, subscription cache disabled")
	}

	var limiter ratelimit.Limiter
	switch cfg.RateLimit.Backend {
	case config.RateLimitBackendRedis:
		limiter = ratelimit.NewRedis(app.cache.Db, cfg.RateLimit.Requests, cfg.RateLimit.Window)
	default:
		mem := ratelimit.NewMemory(cfg.RateLimit.Requests, cfg.RateLimit.Window)
		app.janitor = func(ctx context.Context) { mem.RunJanitor(ctx, cfg.RateLimit.Window) }
		limiter = mem
	}

	var sink audit.Sink = audit.SinkFunc(app.db.InsertAuditRecords)
	if cfg.Audit.Sink == config.AuditSinkAMQP {
		app.rabbit, err = rabbitmq.Connect(cfg.RabbitMQ.URL, cfg.RabbitMQ.Retries, cfg.RabbitMQ.RetryDelay)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		var ch *amqp.Channel
		ch, err = rabbitmq.SetupChannel(app.rabbit, rabbitmq.Topology{
			Exchange:   cfg.RabbitMQ.Exchange,
			Queue:      cfg.RabbitMQ.Queue,
			RoutingKey: cfg.RabbitMQ.RoutingKey,
		}, 0)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		sink = audit.NewAMQPSink(ch, cfg.RabbitMQ.Exchange, cfg.RabbitMQ.RoutingKey)
	}
	app.audit = audit.New(logger, sink, m, audit.Options{
		BufferSize:    cfg.Audit.BufferSize,
		BatchSize:     cfg.Audit.BatchSize,
		FlushInterval: cfg.Audit.FlushInterval,
	})

	tokens := jwt.NewJWTMaker(cfg.JWTToken.SecretKey, cfg.JWTToken.TokenTTL)
	authService := auth.NewService(app.db, tokens, password.NewHasher(0), logger)
	subService := subscription.NewService(app.db, subCache, cfg.Plans, logger)
	billingService := billing.NewService(
		paymentprovider.NewClient(cfg.Billing.APIURL, cfg.Billing.SecretKey, cfg.Billing.Timeout),
		app.db,
		subService,
		cfg.Plans,
		billing.Options{Currency: cfg.Billing.Currency, AllowForceCreate: cfg.Billing.AllowForceCreate},
		m,
		logger,
	)
	if cfg.Billing.WebhookSecret == "" {
		logger.Warn("billing webhook secret is empty, webhook deliveries will be rejected")
	}

	g := gate.New(gate.Config{
		Tokens:        tokens,
		Subscriptions: subService,
		Limiter:       limiter,
		Audit:         app.audit,
		Bypass:        billingService,
		Metrics:       m,
		Log:           logger,
	})

	router := chi.NewRouter()
	if err = RegisterRoutes(router, logger, Deps{
		Gate:          g,
		Auth:          authService,
		Subscriptions: subService,
		Billing:       billingService,
		Banking:       banksvc.NewService(logger, time.Now),
		AuditLog:      auditlog.NewService(app.db),
		Health:        healthChecks,
		Gatherer:      reg,
		WebhookSecret: cfg.Billing.WebhookSecret,
	}); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	app.server = &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	app.listener, err = net.Listen("tcp", cfg.GRPCHealthAddress)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	app.grpcServer = grpc.NewServer()
	app.healthSrv = grpchealth.NewServer()
	healthpb.RegisterHealthServer(app.grpcServer, app.healthSrv)

	return app, nil
}

// Run обслуживает запросы до отмены ctx, затем останавливает серверы и дописывает журнал аудита.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()
	go func() {
		a.logger.Info("gRPC health server listening on", slog.String("address", a.listener.Addr().String()))
		errCh <- a.grpcServer.Serve(a.listener)
	}()

	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	if a.janitor != nil {
		go a.janitor(janitorCtx)
	}
	a.healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	var runErr error
	select {
	case runErr = <-errCh:
	case <-ctx.Done():
	}

	a.healthSrv.Shutdown()
	timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	a.logger.Info("shutting down HTTP server gracefully")
	if err := a.server.Shutdown(timeoutCtx); err != nil {
		a.logger.Error("failed to shut down HTTP server", sl.Err(err))
	}
	a.grpcServer.GracefulStop()

	if err := a.audit.Close(timeoutCtx); err != nil {
		a.logger.Error("audit log was not drained", sl.Err(err))
	}
	a.closeResources()
	return runErr
}

func (a *App) closeResources() {
	if a.audit != nil {
		_ = a.audit.Close(context.Background())
	}
	if a.rabbit != nil {
		if err := a.rabbit.Close(); err != nil {
			a.logger.Warn("failed to close rabbitmq connection", sl.Err(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Warn("failed to close redis client", sl.Err(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close database", sl.Err(err))
		}
	}
}
