package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"condoflow/internal/audit"
	billingservice "condoflow/internal/billing/service"
	billingstore "condoflow/internal/billing/store"
	casehandler "condoflow/internal/cases/handler"
	casemetrics "condoflow/internal/cases/metrics"
	caseservice "condoflow/internal/cases/service"
	casestore "condoflow/internal/cases/store"
	"condoflow/internal/decision"
	decisionhandler "condoflow/internal/decision/handler"
	decisionmetrics "condoflow/internal/decision/metrics"
	"condoflow/internal/defense"
	defensehandler "condoflow/internal/defense/handler"
	"condoflow/internal/directory"
	"condoflow/internal/evidence"
	evidencehandler "condoflow/internal/evidence/handler"
	"condoflow/internal/jwttoken"
	"condoflow/internal/notification"
	notifhandler "condoflow/internal/notification/handler"
	notifmetrics "condoflow/internal/notification/metrics"
	"condoflow/internal/platform/config"
	"condoflow/internal/platform/httpserver"
	"condoflow/internal/platform/kafka"
	"condoflow/internal/platform/logger"
	"condoflow/internal/platform/postgres"
	platformredis "condoflow/internal/platform/redis"
	"condoflow/internal/quota"
	"condoflow/internal/timeline"
	timelinehandler "condoflow/internal/timeline/handler"
	httptransport "condoflow/internal/transport/http"
	"condoflow/migrations"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Durable stores when Postgres is configured, memory otherwise.
	pg, err := postgres.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.Error("postgres init failed", "error", err)
		os.Exit(1)
	}

	var (
		caseStore    caseStoreSurface
		billingStore billingservice.Store
	)
	if pg != nil {
		if err := migrations.Apply(ctx, pg.Pool); err != nil {
			log.Error("migrations failed", "error", err)
			os.Exit(1)
		}
		caseStore = casestore.NewPostgres(pg.Pool)
		pgBilling := billingstore.NewPostgres(pg.Pool)
		billingStore = pgBilling

		redisClient, err := platformredis.New(cfg.Redis)
		if err != nil {
			log.Error("redis init failed", "error", err)
			os.Exit(1)
		}
		if redisClient != nil {
			billingStore = billingstore.NewCached(pgBilling, redisClient, cfg.SubscriptionCacheTTL, log)
			defer redisClient.Close()
		}
	} else {
		log.Warn("no postgres configured, using in-memory stores")
		caseStore = casestore.NewMemory()
		billingStore = billingstore.NewMemory()
	}

	// Audit pipeline: channel recorder, draining worker, optional Kafka sink.
	auditor := audit.NewRecorder(1024, log)
	var auditSink audit.Sink
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(ctx, cfg.KafkaBrokers, cfg.AuditTopic, log)
		if err != nil {
			log.Error("kafka init failed", "error", err)
			os.Exit(1)
		}
		defer producer.Close()
		auditSink = audit.NewKafkaSink(producer)
	}
	auditWorker := audit.NewWorker(audit.NewMemoryStore(), auditSink, auditor.Inbox(), log)
	go func() {
		if err := auditWorker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("audit worker stopped", "error", err)
		}
	}()

	// Services.
	billingSvc := billingservice.New(billingStore, log)
	quotaSvc, err := quota.New(billingSvc, caseStore, log)
	if err != nil {
		log.Error("quota service init failed", "error", err)
		os.Exit(1)
	}

	caseSvc := caseservice.New(caseStore, quotaSvc, auditor, casemetrics.New(), log)
	evidenceSvc := evidence.New(caseStore, auditor, log)

	var authorityNotifier defense.AuthorityNotifier
	if cfg.AuthorityWebhookURL != "" {
		authorityNotifier = defense.NewWebhookNotifier(cfg.AuthorityWebhookURL)
	}
	defenseSvc := defense.New(caseStore, authorityNotifier, auditor, cfg.DefenseWindowDays, log)

	contacts := directory.NewMemoryResolver()
	notifSvc := notification.New(caseStore, contacts, notification.NewLogDispatcher(log), auditor, notifmetrics.New(), log)
	decisionSvc := decision.New(caseStore, auditor, decisionmetrics.New(), log)
	timelineSvc := timeline.New(caseStore)

	tokens := jwttoken.New(cfg.JWTSigningKey, cfg.JWTIssuer)

	checks := map[string]httptransport.HealthCheck{}
	if pg != nil {
		checks["postgres"] = pg.Health
	}

	router := httptransport.New(httptransport.Deps{
		Logger:    log,
		Validator: tokens,
		Checks:    checks,
		Handlers: []httptransport.Registerer{
			casehandler.New(caseSvc, log),
			evidencehandler.New(evidenceSvc, log),
			defensehandler.New(defenseSvc, log),
			notifhandler.New(notifSvc, log),
			decisionhandler.New(decisionSvc, log),
			timelinehandler.New(timelineSvc, log),
		},
	})

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting condoflow", "addr", cfg.Addr, "defense_window_days", cfg.DefenseWindowDays)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}

// caseStoreSurface is the union of the store interfaces the case-attached
// services consume, satisfied by both the memory and postgres stores.
type caseStoreSurface interface {
	caseservice.Store
	quota.UsageStore
	evidence.Store
	defense.Store
	notification.Store
	timeline.Store
	decision.Store
}

var (
	_ caseStoreSurface = (*casestore.MemoryStore)(nil)
	_ caseStoreSurface = (*casestore.PostgresStore)(nil)
)
