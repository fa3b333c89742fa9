// Command server runs the claim validation and consensus engine. All wiring
// happens here; business logic lives in the internal services packages.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"shamba/internal/attestation"
	"shamba/internal/claim"
	"shamba/internal/dispute"
	"shamba/internal/endorsement"
	"shamba/internal/geo"
	"shamba/internal/geoquery"
	jwttoken "shamba/internal/jwt_token"
	"shamba/internal/notify"
	"shamba/internal/platform/config"
	"shamba/internal/platform/httpserver"
	"shamba/internal/platform/logger"
	"shamba/internal/platform/metrics"
	"shamba/internal/platform/postgres"
	"shamba/internal/platform/redis"
	"shamba/internal/trust"
	httptransport "shamba/internal/transport/http"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	db, err := postgres.Open(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	var (
		claimStore   claim.Store
		attStore     attestation.Store
		disputeStore dispute.Store
	)
	if db != nil {
		claimStore = claim.NewPostgresStore(db)
		attStore = attestation.NewPostgresStore(db)
		disputeStore = dispute.NewPostgresStore(db)
		log.Info("using postgres stores")
	} else {
		claimStore = claim.NewInMemoryStore()
		attStore = attestation.NewInMemoryStore()
		disputeStore = dispute.NewInMemoryStore()
		log.Warn("no database configured, state is in-memory only")
	}

	var trustStore trust.Store
	if redisClient != nil {
		trustStore = trust.NewRedisStore(redisClient.Client)
		log.Info("using redis trust ledger")
	} else {
		trustStore = trust.NewInMemoryStore()
	}

	var notifier notify.Notifier = notify.Noop{}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaNotifier, err := notify.NewKafkaNotifier(cfg.KafkaBrokers, cfg.KafkaTopic, log, m.NotifyFailures.Inc)
		if err != nil {
			return err
		}
		defer kafkaNotifier.Close(context.Background())
		notifier = kafkaNotifier
		log.Info("kafka notifier enabled", "topic", cfg.KafkaTopic)
	}

	scheme, err := geo.ParseScheme(cfg.WeightScheme)
	if err != nil {
		return err
	}
	rules := claim.DefaultRules()
	if cfg.MinWitnesses > 0 {
		rules.MinWitnesses = cfg.MinWitnesses
	}

	trustSvc := trust.NewService(trustStore, log)
	claimSvc := claim.NewService(claimStore, attStore, trustSvc, notifier, rules, scheme, log)
	disputeSvc := dispute.NewService(disputeStore, claimSvc, trustSvc, notifier, log)

	router := httptransport.NewRouter(httptransport.Deps{
		Claims:    claimSvc,
		Gate:      endorsement.NewGate(claimSvc, log),
		Disputes:  disputeSvc,
		Geo:       geoquery.NewService(claimSvc, scheme, log),
		Trust:     trustSvc,
		Validator: jwttoken.NewJWTService(cfg.JWTSigningKey, "shamba", "shamba-api"),
		Metrics:   m,
		Logger:    log,
		RateRPS:   cfg.RateRPS,
		RateBurst: cfg.RateBurst,
		Health: func() error {
			if db != nil {
				if err := db.PingContext(ctx); err != nil {
					return err
				}
			}
			if redisClient != nil {
				return redisClient.Health(ctx)
			}
			return nil
		},
	})

	srv := httpserver.New(cfg.Addr, router)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr, "min_witnesses", rules.MinWitnesses, "weight_scheme", string(scheme))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down", "timeout", cfg.ShutdownTimeout.String())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
