package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"attesto/internal/consent"
	"attesto/internal/ledger"
	"attesto/internal/membership"
	"attesto/internal/platform/config"
	"attesto/internal/platform/httpserver"
	"attesto/internal/platform/logger"
	"attesto/internal/platform/metrics"
	"attesto/internal/platform/middleware"
	"attesto/internal/platform/postgres"
	platformredis "attesto/internal/platform/redis"
	"attesto/internal/record"
	"attesto/internal/removal"
	"attesto/internal/subject"
	subjecthandler "attesto/internal/subject/handler"
	"attesto/internal/syncqueue"
)

// main wires the process: stores, ledger coordinator, drain worker, and the
// HTTP surface. Business logic lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(cfg.PostgresDSN)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			return err
		}
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	m := metrics.New()

	// Stores fall back to in-memory when no database is configured, which
	// keeps local development free of infrastructure.
	var (
		records      record.Store
		members      membership.Registry
		consentStore consent.Store
		removalStore removal.Store
		syncStore    syncqueue.Store
		syncOutbox   syncqueue.Outbox
	)
	if db != nil {
		records = record.NewPostgresStore(db)
		members = membership.NewPostgresRegistry(db)
		consentStore = consent.NewPostgresStore(db)
		removalStore = removal.NewPostgresStore(db)
		pgSync := syncqueue.NewPostgresStore(db)
		syncStore = pgSync
		syncOutbox = pgSync
		log.Info("using postgres stores")
	} else {
		records = record.NewInMemoryStore()
		members = membership.NewInMemoryRegistry()
		consentStore = consent.NewInMemoryStore()
		removalStore = removal.NewInMemoryStore()
		syncStore = syncqueue.NewInMemoryStore()
		log.Warn("no postgres dsn configured, using in-memory stores")
	}

	queue := syncqueue.New(syncStore, log)

	var (
		ledgerClient ledger.Client
		directory    ledger.Directory
		provisioner  ledger.Provisioner
	)
	if cfg.Ledger.Endpoint != "" {
		gateway := ledger.NewHTTPGateway(cfg.Ledger.Endpoint, cfg.Ledger.Timeout)
		ledgerClient = gateway
		directory = gateway
		provisioner = gateway
	} else {
		mem := ledger.NewInMemoryDirectory()
		ledgerClient = ledger.NewInMemoryClient()
		directory = mem
		provisioner = mem
		log.Warn("no ledger endpoint configured, using in-memory ledger")
	}
	if redisClient != nil {
		directory = ledger.NewCachedDirectory(directory, redisClient.Client, 5*time.Minute)
	}

	coordinator := ledger.NewCoordinator(ledgerClient, directory, queue, m, log)

	orchestrator := subject.NewOrchestrator(
		records,
		consent.NewService(consentStore, members, log),
		removal.NewService(removalStore, members, log),
		members,
		coordinator,
		directory,
		provisioner,
		m,
		log,
	)
	flows := subject.NewFlowRegistry(orchestrator)

	validator := middleware.NewHMACValidator(cfg.JWTSigningKey)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Device)
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Metrics(m))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if coordinator.Degraded() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"degraded","ledger":"unreachable"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(validator, log))
		r.Use(middleware.ContentTypeJSON)
		subjecthandler.New(orchestrator, flows, log).Register(r)
	})

	srv := httpserver.New(cfg.Addr, r)

	g, gctx := errgroup.WithContext(ctx)

	if len(cfg.Kafka.Brokers) > 0 && syncOutbox != nil {
		broker, err := syncqueue.NewKafkaBroker(ctx, cfg.Kafka.Brokers, cfg.Kafka.FailuresTopic)
		if err != nil {
			return err
		}
		defer broker.Close()

		drainer := syncqueue.NewDrainer(syncOutbox, broker, log, cfg.Kafka.DrainInterval)
		g.Go(func() error {
			return drainer.Run(gctx)
		})
		log.Info("sync failure drain worker started", "topic", cfg.Kafka.FailuresTopic)
	}

	g.Go(func() error {
		log.Info("starting attesto", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
