// Command server wires the access gate: configuration, stores, domain
// services, HTTP transport and the audit outbox worker. Business logic lives
// in the internal services packages.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	"vidgate/internal/access"
	accesshandler "vidgate/internal/access/handler"
	"vidgate/internal/access/proof"
	"vidgate/internal/audit"
	"vidgate/internal/catalog"
	"vidgate/internal/enrollment"
	"vidgate/internal/fingerprint"
	"vidgate/internal/platform/config"
	"vidgate/internal/platform/httpserver"
	"vidgate/internal/platform/logger"
	"vidgate/internal/platform/metrics"
	platformpg "vidgate/internal/platform/postgres"
	platformredis "vidgate/internal/platform/redis"
	"vidgate/internal/playback"
	playbackhandler "vidgate/internal/playback/handler"
	httptransport "vidgate/internal/transport/http"
	"vidgate/internal/vault"
	vaulthandler "vidgate/internal/vault/handler"
	"vidgate/internal/vault/provider"
)

func main() {
	log := logger.New()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	fp, err := fingerprint.New(cfg.MasterSecret)
	if err != nil {
		log.Error("failed to build fingerprint generator", "error", err)
		os.Exit(1)
	}

	// Durable stores. Without a Postgres URL everything runs in memory, which
	// is only suitable for local development.
	var (
		pool       *pgxpool.Pool
		vaultStore vault.Store
		quotaStore playback.QuotaStore
		auditStore audit.Store
		cat        catalog.Catalog
		oracle     enrollment.Oracle
		health     = map[string]httptransport.HealthChecker{}
	)
	if cfg.Postgres.URL != "" {
		pool, err = platformpg.New(ctx, cfg.Postgres.URL)
		if err != nil {
			log.Error("failed to open postgres pool", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		if err := platformpg.Migrate(ctx, pool); err != nil {
			log.Error("failed to apply schema", "error", err)
			os.Exit(1)
		}

		vaultStore = vault.NewPostgres(pool)
		quotaStore = playback.NewPostgres(pool)
		auditStore = audit.NewPostgres(pool)
		cat = catalog.NewPostgres(pool)
		oracle = enrollment.NewPostgres(pool)
		health["postgres"] = pingChecker{pool}
	} else {
		log.Warn("no postgres configured, using in-memory stores")
		vaultStore = vault.NewInMemoryStore()
		quotaStore = playback.NewInMemoryQuotaStore()
		auditStore = audit.NewInMemoryStore()
		cat = catalog.NewInMemory()
		oracle = enrollment.NewInMemory()
	}

	auditPub := audit.NewPublisher(auditStore)

	// Delegated-authorization state lives in Redis when available so begun
	// flows survive restarts and spread across instances.
	var stateStore vault.StateStore = vault.NewInMemoryStateStore()
	if cfg.Redis.URL != "" {
		redisClient, err := platformredis.New(cfg.Redis)
		if err != nil {
			log.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		stateStore = vault.NewRedisStateStore(redisClient)
		health["redis"] = redisClient
	}

	providerClient := provider.NewHTTP(cfg.Provider)

	vaultSvc, err := vault.New(vaultStore, providerClient,
		vault.WithLogger(log),
		vault.WithAuditPublisher(auditPub),
		vault.WithMetrics(m),
	)
	if err != nil {
		log.Error("failed to build vault service", "error", err)
		os.Exit(1)
	}
	flow, err := vault.NewFlow(vaultSvc, stateStore, providerClient,
		vault.WithFlowLogger(log),
		vault.WithFlowAuditPublisher(auditPub),
	)
	if err != nil {
		log.Error("failed to build delegated-auth flow", "error", err)
		os.Exit(1)
	}

	signer := proof.NewSigner(cfg.Proof.SigningKey, cfg.Proof.TTL)

	accessSvc, err := access.New(cat, oracle, signer, quotaStore, fp,
		access.WithLogger(log),
		access.WithAuditPublisher(auditPub),
		access.WithMetrics(m),
		access.WithDefaultMaxViews(cfg.Quota.DefaultMaxViews),
	)
	if err != nil {
		log.Error("failed to build access service", "error", err)
		os.Exit(1)
	}

	playbackSvc, err := playback.New(signer, quotaStore, auditStore,
		playback.WithLogger(log),
		playback.WithAuditPublisher(auditPub),
		playback.WithMetrics(m),
		playback.WithEnrollmentOracle(oracle),
	)
	if err != nil {
		log.Error("failed to build playback service", "error", err)
		os.Exit(1)
	}

	// Audit stream: the outbox worker drains durable entries to Kafka. Needs
	// both Postgres (outbox) and brokers; absent either, entries stay local.
	if pool != nil && len(cfg.Audit.KafkaBrokers) > 0 {
		sink, err := audit.NewKafkaSink(ctx, cfg.Audit.KafkaBrokers, cfg.Audit.Topic)
		if err != nil {
			log.Error("failed to connect audit kafka sink", "error", err)
			os.Exit(1)
		}
		defer sink.Close()

		worker := audit.NewWorker(auditStore.(*audit.PostgresStore), sink, log)
		go func() {
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("audit outbox worker stopped", "error", err)
			}
		}()
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Logger: log,
		Handlers: []httptransport.Registrar{
			accesshandler.New(accessSvc, log),
			playbackhandler.New(playbackSvc, log),
			vaulthandler.New(flow, log, "/"),
		},
		Health: health,
	})

	srv := httpserver.New(cfg.Server.Addr, router)

	go func() {
		log.Info("starting vidgate", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}

// pingChecker adapts a pgx pool to the router's health interface.
type pingChecker struct {
	pool *pgxpool.Pool
}

func (p pingChecker) Health(ctx context.Context) error {
	return p.pool.Ping(ctx)
}
