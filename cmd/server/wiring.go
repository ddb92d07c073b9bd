package main

import (
	"log/slog"
	"net/http"
	"os"

	"golang.org/x/crypto/bcrypt"

	"hearth/internal/admin"
	"hearth/internal/audit"
	audithandler "hearth/internal/audit/handler"
	auditoutbox "hearth/internal/audit/outbox"
	auditstore "hearth/internal/audit/store"
	"hearth/internal/guard"
	householdhandler "hearth/internal/household/handler"
	householdmetrics "hearth/internal/household/metrics"
	householdservice "hearth/internal/household/service"
	householdstore "hearth/internal/household/store"
	"hearth/internal/impersonation"
	impersonationhandler "hearth/internal/impersonation/handler"
	impersonationmetrics "hearth/internal/impersonation/metrics"
	impersonationstore "hearth/internal/impersonation/store"
	jwttoken "hearth/internal/jwt_token"
	"hearth/internal/platform/config"
	"hearth/internal/platform/database"
	"hearth/internal/platform/health"
	"hearth/internal/platform/kafka/producer"
	"hearth/internal/platform/redis"
	"hearth/internal/platform/tracer"
	"hearth/internal/quota"
	quotahandler "hearth/internal/quota/handler"
	quotametrics "hearth/internal/quota/metrics"
	quotastore "hearth/internal/quota/store"
	"hearth/internal/seeder"
	httptransport "hearth/internal/transport/http"
	userhandler "hearth/internal/user/handler"
	userservice "hearth/internal/user/service"
	userstore "hearth/internal/user/store"
	"hearth/pkg/platform/middleware/metadata"
	"hearth/pkg/platform/middleware/request"
	"hearth/pkg/platform/middleware/throttle"
	"hearth/pkg/platform/tx"
	"hearth/pkg/secrets"
)

type stores struct {
	households     householdservice.Store
	users          userservice.Store
	audit          audit.Store
	outbox         auditoutbox.Store
	impersonations impersonation.Store
	counts         quota.Counter
	memoryCounts   *quotastore.InMemory
	tx             tx.Runner
	backend        string
}

// newStores picks postgres when a pool is configured and in-memory stores
// otherwise. Redis, when present, holds impersonation sessions.
func newStores(pool *database.Pool, rdb *redis.Client) stores {
	var s stores
	if pool != nil {
		db := pool.DB()
		s = stores{
			households:     householdstore.NewPostgres(db),
			users:          userstore.NewPostgres(db),
			audit:          auditstore.NewPostgres(db),
			outbox:         auditoutbox.NewPostgres(db),
			impersonations: impersonationstore.NewPostgres(db),
			counts:         quotastore.NewPostgres(db),
			tx:             tx.NewPostgres(db),
			backend:        "postgres",
		}
	} else {
		users := userstore.NewInMemory()
		counts := quotastore.NewInMemory(users)
		s = stores{
			households:     householdstore.NewInMemory(),
			users:          users,
			audit:          auditstore.NewInMemory(),
			outbox:         auditoutbox.NewInMemory(),
			impersonations: impersonationstore.NewInMemory(),
			counts:         counts,
			memoryCounts:   counts,
			tx:             tx.NewInMemory(),
			backend:        "memory",
		}
	}
	if rdb != nil {
		s.impersonations = impersonationstore.NewRedis(rdb.Client)
	}
	return s
}

type app struct {
	router   http.Handler
	seeder   *seeder.Seeder
	outbox   *auditoutbox.Worker
	producer *producer.Producer
	tracing  *tracer.Provider
}

func buildApp(cfg config.Config, log *slog.Logger, pool *database.Pool, rdb *redis.Client) (*app, error) {
	st := newStores(pool, rdb)
	log.Info("stores configured", "backend", st.backend, "impersonation_redis", rdb != nil)

	limits, err := quota.LoadPlanTable(cfg.PlanLimitsFile)
	if err != nil {
		return nil, err
	}

	auditOpts := []audit.Option{audit.WithLogger(log), audit.WithMetrics(audit.NewMetrics())}
	var (
		outboxWorker *auditoutbox.Worker
		kafka        *producer.Producer
	)
	if cfg.Kafka.Brokers != "" {
		if kafka, err = producer.New(cfg.Kafka, log); err != nil {
			return nil, err
		}
		auditOpts = append(auditOpts, audit.WithOutbox(auditoutbox.New(st.outbox)))
		outboxWorker = auditoutbox.NewWorker(st.outbox, kafka,
			auditoutbox.WithTopic(cfg.Kafka.AuditTopic),
			auditoutbox.WithPollInterval(cfg.Kafka.PollInterval),
			auditoutbox.WithRetention(cfg.Kafka.Retention),
			auditoutbox.WithMetrics(auditoutbox.NewMetrics()),
			auditoutbox.WithLogger(log),
		)
	}
	trail, err := audit.NewService(st.audit, auditOpts...)
	if err != nil {
		return nil, err
	}
	households, err := householdservice.New(st.households, trail,
		householdservice.WithLogger(log),
		householdservice.WithMetrics(householdmetrics.New()),
		householdservice.WithTx(st.tx),
	)
	if err != nil {
		return nil, err
	}
	users, err := userservice.New(st.users, households, trail,
		userservice.WithLogger(log),
		userservice.WithTx(st.tx),
		userservice.WithHasher(secrets.NewHasher(bcrypt.DefaultCost)),
	)
	if err != nil {
		return nil, err
	}
	resolver, err := quota.New(households, st.counts, limits,
		quota.WithLogger(log),
		quota.WithMetrics(quotametrics.New()),
	)
	if err != nil {
		return nil, err
	}

	tokens := jwttoken.NewJWTService(cfg.JWT.SigningKey, cfg.JWT.Issuer, cfg.JWT.Audience, cfg.JWT.TokenTTL)
	impersonations, err := impersonation.New(st.impersonations, tokens, users, trail,
		impersonation.WithLogger(log),
		impersonation.WithMetrics(impersonationmetrics.New()),
		impersonation.WithTx(st.tx),
	)
	if err != nil {
		return nil, err
	}

	var tr tracer.Tracer = tracer.NewNoop()
	var tracing *tracer.Provider
	if cfg.TracingEnabled {
		tracing, err = tracer.NewProvider(tracer.ProviderConfig{
			ServiceName:    "hearth",
			ServiceVersion: health.Version,
			SampleRatio:    cfg.TracingSampleRatio,
			Output:         os.Stderr,
		})
		if err != nil {
			return nil, err
		}
		tr = tracing.Tracer()
	}
	pipeline, err := guard.New(tokens, households,
		guard.WithLogger(log),
		guard.WithMetrics(guard.NewMetrics()),
		guard.WithTracer(tr),
	)
	if err != nil {
		return nil, err
	}
	guardMW := guard.NewMiddleware(pipeline, impersonations.TrackActions)
	adminThrottle := throttle.New(cfg.AdminRateLimit.RPS, cfg.AdminRateLimit.Burst).Middleware(throttle.ByPrincipal)

	probes := health.New(cfg.Server.Environment)
	if pool != nil {
		probes.RegisterCheck("database", pool.Health)
	}
	if rdb != nil {
		probes.RegisterCheck("redis", rdb.Health)
	}
	if kafka != nil {
		probes.RegisterCheck("kafka", kafka.Health)
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:   log,
		Guard:    guardMW,
		Health:   probes,
		Latency:  request.NewMetrics(),
		Metadata: metadata.NewMiddleware(cfg.Server.TrustedProxies),
		Modules: []httptransport.Registrar{
			householdhandler.New(households, log, adminThrottle),
			userhandler.New(users, log, adminThrottle),
			impersonationhandler.New(impersonations, log, adminThrottle),
			audithandler.New(trail, log),
			quotahandler.New(resolver, log),
			admin.New(admin.NewService(households, resolver, impersonations, trail, admin.WithLogger(log)), log),
		},
	})

	out := &app{router: router, outbox: outboxWorker, producer: kafka, tracing: tracing}
	switch {
	case !cfg.SeedDemoData:
	case st.memoryCounts == nil:
		log.Warn("demo seeding only runs against in-memory stores, skipping")
	default:
		out.seeder = seeder.New(households, users, st.memoryCounts, log)
	}
	return out, nil
}
