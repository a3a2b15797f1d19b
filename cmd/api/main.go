package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/meditationastro/medinow-sub000/internal/api"
	"github.com/meditationastro/medinow-sub000/internal/auth"
	"github.com/meditationastro/medinow-sub000/internal/catalog"
	"github.com/meditationastro/medinow-sub000/internal/checkout"
	"github.com/meditationastro/medinow-sub000/internal/config"
	"github.com/meditationastro/medinow-sub000/internal/console"
	"github.com/meditationastro/medinow-sub000/internal/email"
	"github.com/meditationastro/medinow-sub000/internal/events"
	"github.com/meditationastro/medinow-sub000/internal/infrastructure/kafka"
	"github.com/meditationastro/medinow-sub000/internal/infrastructure/ratelimit"
	"github.com/meditationastro/medinow-sub000/internal/infrastructure/store"
	"github.com/meditationastro/medinow-sub000/internal/logging"
	"github.com/meditationastro/medinow-sub000/internal/lookup"
	"github.com/meditationastro/medinow-sub000/internal/metrics"
	"github.com/meditationastro/medinow-sub000/internal/notification"
	"github.com/meditationastro/medinow-sub000/internal/payment"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_DIR"))
	if err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Msg("load config")
	}
	logger := logging.New(cfg.LogLevel, cfg.LogPretty)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize PostgreSQL connection
	db, err := store.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer db.Close()
	if cfg.RunMigrations {
		if err := store.Migrate(db); err != nil {
			logger.Fatal().Err(err).Msg("migrate")
		}
	}
	logger.Info().Msg("connected to postgres")

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	orderStore := store.NewPostgresOrderStore(db)
	cat := catalog.NewPostgresCatalog(db)

	var gateway payment.Gateway = payment.Unconfigured{}
	if cfg.PaymentBaseURL != "" {
		gateway = payment.NewHTTPGateway(cfg.PaymentBaseURL, cfg.PaymentAPIKey, &http.Client{Timeout: 10 * time.Second})
	} else {
		logger.Warn().Msg("payment gateway not configured, online checkout disabled")
	}

	mailer := email.NewService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom)
	if cfg.SMTPHost == "" {
		logger.Warn().Msg("smtp not configured, notifications will be skipped")
	}
	dispatcher := notification.NewDispatcher(mailer, cfg.OwnerEmail, logger, notification.WithAsync(), notification.WithMetrics(m))

	// Initialize Kafka producer
	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer producer.Close()
		publisher = producer
		logger.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("publishing order events")
	}
	emitter := events.NewEmitter(publisher, logger, m)

	var limiter ratelimit.Limiter = ratelimit.Unlimited{}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable, limiter will fail open")
		}
		limiter = ratelimit.NewRedisLimiter(rdb, "track", cfg.TrackRateLimit, cfg.TrackRateWindow, logger)
	}

	checkoutSvc := checkout.NewService(orderStore, cat, gateway, dispatcher, emitter, m, logger, checkout.Config{
		Currency:      cfg.Currency,
		SuccessURL:    cfg.PaymentSuccessURL,
		CancelURL:     cfg.PaymentCancelURL,
		WebhookSecret: cfg.PaymentWebhookSecret,
	})
	lookupSvc := lookup.NewService(orderStore, logger)
	con := console.New(orderStore, dispatcher, emitter, m, logger)

	// Access tokens are issued by the site's login flow; this service only verifies them.
	jwtService := auth.NewJWTService(cfg.JWTSecret, 15*time.Minute)

	router := api.NewRouter(api.RouterConfig{
		Handlers:          api.NewHandlers(checkoutSvc, lookupSvc, con, logger),
		Verifier:          jwtService,
		TrackLimiter:      limiter,
		TrustProxyHeaders: cfg.TrustProxyHeaders,
		Metrics:           metrics.Handler(reg),
		AllowedOrigins:    cfg.CORSAllowedOrigins,
		Logger:            logger,
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("server started")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown")
	}

	// Let in-flight notification emails finish before the process exits.
	dispatcher.Wait()
}
