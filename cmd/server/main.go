// Package main wires the credential gateway: the lifecycle authority, the
// public verification endpoint, and the platform services around them.
// Business logic lives in the internal packages.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"attest/internal/audit"
	credhandler "attest/internal/credential/handler"
	credmetrics "attest/internal/credential/metrics"
	"attest/internal/credential/service"
	"attest/internal/credential/store"
	"attest/internal/ledger"
	"attest/internal/ledger/tracer"
	"attest/internal/ledger/txnbuild"
	"attest/internal/pending"
	"attest/internal/platform/config"
	"attest/internal/platform/database"
	"attest/internal/platform/health"
	"attest/internal/platform/httpserver"
	"attest/internal/platform/kafka"
	"attest/internal/platform/kafka/producer"
	"attest/internal/platform/logger"
	"attest/internal/platform/middleware"
	platformredis "attest/internal/platform/redis"
	"attest/internal/signer"
	"attest/internal/token"
	"attest/internal/verify"
	verifyhandler "attest/internal/verify/handler"
	verifymetrics "attest/internal/verify/metrics"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Environment)

	log.Info("initializing attest gateway",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
		"app_id", cfg.AppID,
	)

	if cfg.NodeURL == "" || cfg.AppID == 0 {
		log.Error("LEDGER_NODE_URL and AUTHORITY_APP_ID are required")
		os.Exit(1)
	}

	ledgerClient, err := ledger.NewNodeClient(ledger.NodeConfig{
		NodeURL:      cfg.NodeURL,
		NodeToken:    cfg.NodeToken,
		IndexerURL:   cfg.IndexerURL,
		IndexerToken: cfg.IndexerToken,
		Timeout:      cfg.QueryTimeout,
		Tracer:       tracer.NewOTel(),
	})
	if err != nil {
		log.Error("failed to create ledger client", "error", err)
		os.Exit(1)
	}

	remoteSigner, err := signer.NewRemote(signer.RemoteConfig{
		URL:     cfg.SignerURL,
		Timeout: cfg.SignerTimeout,
	})
	if err != nil {
		log.Error("failed to create signer client", "error", err)
		os.Exit(1)
	}

	healthHandler := health.New(cfg.Environment)
	healthHandler.RegisterCheck("ledger", healthCheck(ledgerClient.Health))
	healthHandler.RegisterCheck("signer", healthCheck(remoteSigner.Healthy))

	// Registry store: postgres when configured, memory otherwise.
	var registry store.Store = store.NewMemory()
	pool, err := poolFromConfig(cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	if pool != nil {
		registry = store.NewPostgres(pool.DB())
		healthHandler.RegisterCheck("database", healthCheck(pool.Health))
		defer pool.Close()
		log.Info("registry store: postgres")
	} else {
		log.Warn("DATABASE_URL not set, registry records are not durable")
	}

	// Pending tracker: redis when configured so multiple instances agree on
	// which credentials have a transaction in flight.
	var tracker pending.Tracker = pending.NewMemory(0)
	redisClient, err := platformredis.New(config.DefaultRedisConfig(cfg.RedisURL))
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		tracker = pending.NewRedis(redisClient.Client, 0)
		healthHandler.RegisterCheck("redis", healthCheck(redisClient.Health))
		defer redisClient.Close()
		go recordRedisStats(redisClient)
		log.Info("pending tracker: redis")
	}

	// Audit trail: kafka when configured, memory otherwise.
	var sink audit.Sink = audit.NewMemorySink()
	if cfg.KafkaBrokers != "" {
		producerCfg := kafka.DefaultProducerConfig()
		producerCfg.Brokers = cfg.KafkaBrokers
		kafkaProducer, err := producer.New(producerCfg, log)
		if err != nil {
			log.Error("failed to create kafka producer", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := kafkaProducer.Close(); err != nil {
				log.Error("failed to close kafka producer", "error", err)
			}
		}()
		sink = audit.NewKafkaSink(kafkaProducer, cfg.AuditTopic)
		log.Info("audit trail: kafka", "topic", cfg.AuditTopic)
	} else {
		log.Warn("KAFKA_BROKERS not set, audit events stay in memory")
	}
	auditor := audit.NewPublisher(sink,
		audit.WithAsyncBuffer(256),
		audit.WithPublisherLogger(log),
	)
	defer auditor.Close()

	builder := txnbuild.NewBuilder(ledgerClient, cfg.AppID)
	log.Info("authority address derived", "address", builder.Authority())

	credentialService := service.NewService(ledgerClient, builder, remoteSigner, registry, cfg.AdminAddress,
		service.WithLogger(log),
		service.WithMetrics(credmetrics.New()),
		service.WithAuditor(auditor),
		service.WithPendingTracker(tracker),
		service.WithConfirmationRounds(cfg.ConfirmationRounds),
	)
	verifyService := verify.NewService(ledgerClient, cfg.AppID,
		verify.WithLogger(log),
		verify.WithMetrics(verifymetrics.New()),
	)

	tokens := token.NewService(cfg.JWTSigningKey, "attest", "attest-operator", cfg.TokenTTL).WithEnv(cfg.Environment)

	router := buildRouter(cfg, log, healthHandler,
		credhandler.New(credentialService, log),
		verifyhandler.New(verifyService, log),
		tokens,
	)

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting http server", "addr", cfg.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown on SIGINT
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	log.Info("shutting down server gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}

func buildRouter(cfg config.Config, log *slog.Logger, healthHandler *health.Handler, credentials *credhandler.Handler, verifier *verifyhandler.Handler, tokens *token.Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(log))
	r.Use(middleware.Timeout(120 * time.Second))

	healthHandler.Register(r)
	r.Handle("/metrics", promhttp.Handler())

	// Public surface: verification and holder opt-in carry their own proofs.
	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		verifier.Register(r)
		credentials.RegisterPublic(r)
	})

	// Operator surface: lifecycle mutations require a bearer token.
	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.RequireOperator(validatorAdapter{tokens}, log))
		credentials.Register(r)
	})

	return r
}

// validatorAdapter narrows the token service to what the auth middleware needs.
type validatorAdapter struct {
	tokens *token.Service
}

func (v validatorAdapter) Validate(tokenString string) (string, error) {
	claims, err := v.tokens.Validate(tokenString)
	if err != nil {
		return "", err
	}
	return claims.Operator, nil
}

// healthCheck adapts a context-taking probe to the health handler's CheckFunc.
func healthCheck(probe func(context.Context) error) health.CheckFunc {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		return probe(ctx)
	}
}

func poolFromConfig(cfg config.Config) (*database.Pool, error) {
	poolCfg := database.DefaultConfig()
	poolCfg.URL = cfg.DatabaseURL
	return database.New(poolCfg)
}

func recordRedisStats(client *platformredis.Client) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		client.RecordPoolStats()
	}
}
