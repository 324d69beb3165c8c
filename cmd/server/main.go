package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	childrenhandler "cubby/internal/children/handler"
	childrenservice "cubby/internal/children/service"
	childrenstore "cubby/internal/children/store"
	compliancehandler "cubby/internal/compliance/handler"
	compliancemetrics "cubby/internal/compliance/metrics"
	complianceservice "cubby/internal/compliance/service"
	consenthandler "cubby/internal/consent/handler"
	consentservice "cubby/internal/consent/service"
	consentstore "cubby/internal/consent/store"
	conversationhandler "cubby/internal/conversation/handler"
	conversationservice "cubby/internal/conversation/service"
	conversationstore "cubby/internal/conversation/store"
	parenthandler "cubby/internal/parent/handler"
	parentservice "cubby/internal/parent/service"
	parentstore "cubby/internal/parent/store"
	"cubby/internal/platform/config"
	"cubby/internal/platform/httpserver"
	"cubby/internal/platform/logger"
	pgplatform "cubby/internal/platform/postgres"
	redisplatform "cubby/internal/platform/redis"
	rlmetrics "cubby/internal/ratelimit/metrics"
	rlmiddleware "cubby/internal/ratelimit/middleware"
	"cubby/internal/ratelimit/service/authlockout"
	"cubby/internal/ratelimit/service/quota"
	"cubby/internal/ratelimit/service/requestlimit"
	lockoutstore "cubby/internal/ratelimit/store/authlockout"
	"cubby/internal/ratelimit/store/bucket"
	"cubby/internal/retention"
	"cubby/internal/token"
	httptransport "cubby/internal/transport/http"
	"cubby/migrations"
	id "cubby/pkg/domain"
	"cubby/pkg/platform/audit"
	"cubby/pkg/platform/audit/consumer"
	compliancepub "cubby/pkg/platform/audit/publishers/compliance"
	"cubby/pkg/platform/audit/publishers/ops"
	"cubby/pkg/platform/audit/publishers/security"
	"cubby/pkg/platform/audit/relay"
	auditmem "cubby/pkg/platform/audit/store/memory"
	auditpg "cubby/pkg/platform/audit/store/postgres"
	txcontext "cubby/pkg/platform/tx"
)

const auditTopicPartitions = 3

// main wires storage, the audit pipeline, rate limiting, and the feature
// services, then runs the HTTP server and the background loops until a
// shutdown signal arrives. Business logic lives in the internal packages.
func main() {
	if err := run(); err != nil {
		slog.Error("server exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log := logger.New(cfg.Log)
	slog.SetDefault(log)

	// Storage. Both handles are nil when Postgres is not configured; the
	// in-memory stores then take over for local development.
	db, err := pgplatform.Open(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		if err := migrations.Apply(ctx, db); err != nil {
			return err
		}
	}
	pool, err := pgplatform.OpenPool(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close()
	}
	redisClient, err := redisplatform.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Audit trail. The Postgres store doubles as the relay outbox; without
	// Postgres events stay in memory and the Kafka pipeline is skipped.
	var (
		auditStore audit.Store
		outbox     *auditpg.Store
	)
	if db != nil {
		outbox = auditpg.New(db)
		auditStore = outbox
	} else {
		auditStore = auditmem.New()
	}

	compliancePub := compliancepub.New(auditStore,
		compliancepub.WithLogger(log),
		compliancepub.WithMetrics(compliancepub.NewMetrics()),
	)
	defer compliancePub.Close()

	securityPub := security.New(auditStore, log, cfg.Audit.SecurityBufferSize)
	opsPub := ops.NewPublisher(auditStore, ops.NewSampler(cfg.Audit.OpsSampleRate),
		ops.WithLogger(log),
		ops.WithMetrics(ops.NewMetrics(prometheus.DefaultRegisterer)),
	)

	// Feature stores.
	var (
		parents  parentstore.ParentStore
		children childrenstore.ChildStore
		consents consentstore.ConsentStore
	)
	if db != nil {
		parents = parentstore.NewPostgres(db)
		children = childrenstore.NewPostgres(db)
		consents = consentstore.NewPostgres(db)
	} else {
		parents = parentstore.NewMemoryStore()
		children = childrenstore.NewMemoryStore()
		consents = consentstore.NewMemoryStore()
	}
	var conversations conversationstore.ConversationStore
	if pool != nil {
		conversations = conversationstore.NewPostgres(pool)
	} else {
		conversations = conversationstore.NewMemoryStore()
	}

	// Rate limiting. Redis-backed buckets degrade to in-process counting
	// when Redis is down; without Redis the memory store is authoritative.
	var buckets bucket.Store = bucket.NewMemoryStore()
	if redisClient != nil {
		buckets = bucket.NewFallbackStore(bucket.NewRedisStore(redisClient.Client), log)
	}
	requestLimits := requestlimit.New(buckets,
		requestlimit.WithLogger(log),
		requestlimit.WithSecurityPublisher(securityPub),
		requestlimit.WithMetrics(rlmetrics.New(prometheus.DefaultRegisterer)),
	)
	rateLimit := rlmiddleware.New(requestLimits, log,
		rlmiddleware.WithDisabled(cfg.RateLimit.Disabled),
	)
	lockouts := authlockout.New(lockoutstore.NewMemoryStore(),
		authlockout.WithLogger(log),
		authlockout.WithSecurityPublisher(securityPub),
	)
	messageQuota := quota.New(buckets, cfg.RateLimit.ChildDailyQuota,
		quota.WithLogger(log),
		quota.WithSecurityPublisher(securityPub),
	)

	// Services. The children/conversation edge is circular (profile deletion
	// cascades into transcripts, transcript access checks ownership), so the
	// eraser is bound through a closure resolved after both exist.
	tokens := token.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer, cfg.Auth.Audience, cfg.Auth.AccessTokenTTL)

	parentSvc := parentservice.New(parents, tokens,
		parentservice.WithLogger(log),
		parentservice.WithLockout(lockouts),
		parentservice.WithSecurityPublisher(securityPub),
		parentservice.WithOpsPublisher(opsPub),
	)

	// With Postgres, profile and ledger mutations commit in one transaction
	// with their audit outbox rows.
	var childrenOpts []childrenservice.Option
	var consentOpts []consentservice.Option
	if db != nil {
		storeTx := txcontext.NewSQLRunner(db)
		childrenOpts = append(childrenOpts, childrenservice.WithStoreTx(storeTx))
		consentOpts = append(consentOpts, consentservice.WithStoreTx(storeTx))
	}

	var conversationSvc *conversationservice.Service
	childrenSvc := childrenservice.New(children, compliancePub,
		append(childrenOpts,
			childrenservice.WithLogger(log),
			childrenservice.WithConversationEraser(childrenservice.EraserFunc(
				func(ctx context.Context, childID id.ChildID) (int, error) {
					return conversationSvc.EraseByChild(ctx, childID)
				})),
		)...,
	)

	consentSvc := consentservice.New(consents, childrenSvc, compliancePub,
		append(consentOpts, consentservice.WithLogger(log))...,
	)

	policy, err := cfg.Compliance.PolicyConfig()
	if err != nil {
		return fmt.Errorf("compliance policy: %w", err)
	}
	complianceSvc, err := complianceservice.New(policy, childrenSvc, consentSvc, compliancePub,
		complianceservice.WithLogger(log),
		complianceservice.WithMetrics(compliancemetrics.New(prometheus.DefaultRegisterer)),
		complianceservice.WithOpsPublisher(opsPub),
	)
	if err != nil {
		return fmt.Errorf("compliance service: %w", err)
	}

	conversationSvc = conversationservice.New(conversations, complianceSvc, childrenSvc, compliancePub,
		conversationservice.WithLogger(log),
		conversationservice.WithOpsPublisher(opsPub),
		conversationservice.WithMessageQuota(messageQuota),
	)

	sweeper := retention.New(conversations, compliancePub,
		retention.WithLogger(log),
		retention.WithMetrics(retention.NewMetrics(prometheus.DefaultRegisterer)),
		retention.WithInterval(cfg.Retention.SweepInterval),
		retention.WithBatchSize(cfg.Retention.SweepBatch),
	)

	router := httptransport.NewRouter(httptransport.Config{
		Logger:    log,
		Verifier:  tokens,
		RateLimit: rateLimit,
		Ready:     readiness(db, redisClient),
		Throttle:  cfg.RateLimit.GlobalPerSecond,
	}, httptransport.Handlers{
		Parent:       parenthandler.New(parentSvc, log),
		Children:     childrenhandler.New(childrenSvc, log),
		Consent:      consenthandler.New(consentSvc, log),
		Compliance:   compliancehandler.New(complianceSvc, log),
		Conversation: conversationhandler.New(conversationSvc, log),
	})

	srv := httpserver.New(cfg.Server, router)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := securityPub.Run(gctx)
		_ = securityPub.Close()
		return err
	})

	g.Go(func() error {
		sweeper.Run(gctx)
		return nil
	})

	if outbox != nil && len(cfg.Kafka.Brokers) > 0 {
		if err := runAuditPipeline(gctx, g, cfg.Kafka, outbox, log); err != nil {
			return err
		}
	}

	g.Go(func() error {
		log.InfoContext(gctx, "starting cubby API", slog.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("shutdown complete")
	return nil
}

// runAuditPipeline starts the outbox relay and the materializing consumer.
// Both share the broker list; the consumer gets its own client because it
// carries group state.
func runAuditPipeline(ctx context.Context, g *errgroup.Group, cfg config.KafkaConfig, outbox *auditpg.Store, log *slog.Logger) error {
	producer, err := kgo.NewClient(kgo.SeedBrokers(cfg.Brokers...))
	if err != nil {
		return fmt.Errorf("kafka producer: %w", err)
	}

	auditRelay := relay.New(outbox, producer, cfg.TopicPrefix, relay.WithLogger(log))
	if err := auditRelay.EnsureTopics(ctx, auditTopicPartitions, 1); err != nil {
		producer.Close()
		return err
	}

	router := consumer.NewRouter()
	router.Register(cfg.TopicPrefix+"."+string(audit.CategoryCompliance), consumer.ComplianceHandler(outbox))
	router.Register(cfg.TopicPrefix+"."+string(audit.CategorySecurity), consumer.SecurityHandler(outbox))
	router.Register(cfg.TopicPrefix+"."+string(audit.CategoryOperations), consumer.OpsHandler(outbox))

	groupClient, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.ConsumerGroup),
		kgo.ConsumeTopics(router.Topics()...),
	)
	if err != nil {
		producer.Close()
		return fmt.Errorf("kafka consumer: %w", err)
	}

	g.Go(func() error {
		defer producer.Close()
		return auditRelay.Run(ctx)
	})
	g.Go(func() error {
		defer groupClient.Close()
		return consumer.New(groupClient, router, log).Run(ctx)
	})
	return nil
}

// readiness reports whether the configured backing stores are reachable.
// Unconfigured stores are in-memory and always ready.
func readiness(db *sql.DB, redisClient *redisplatform.Client) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if db != nil {
			if err := db.PingContext(ctx); err != nil {
				return fmt.Errorf("postgres: %w", err)
			}
		}
		if redisClient != nil {
			if err := redisClient.Health(ctx); err != nil {
				return fmt.Errorf("redis: %w", err)
			}
		}
		return nil
	}
}
