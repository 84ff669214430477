package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"veridesk/internal/console/engine"
	"veridesk/internal/console/handler"
	"veridesk/internal/console/metrics"
	"veridesk/internal/console/store"
	"veridesk/internal/console/tracer"
	"veridesk/internal/notify"
	"veridesk/internal/platform/config"
	"veridesk/internal/platform/database"
	"veridesk/internal/platform/health"
	"veridesk/internal/platform/httpserver"
	"veridesk/internal/platform/logger"
	"veridesk/internal/presence"
	"veridesk/internal/session"
	httptransport "veridesk/internal/transport/http"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Console semantics live in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	log.Info("initializing veridesk",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	healthHandler := health.New(cfg.Environment)

	collection, cleanup, err := buildCollection(ctx, cfg, log, healthHandler)
	if err != nil {
		log.Error("failed to open submission collection", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	hub := presence.NewHub()
	tracker := presence.NewTracker(hub, presence.WithLogger(log))
	if err := tracker.Start(ctx); err != nil {
		log.Error("failed to start presence tracker", "error", err)
		os.Exit(1)
	}
	defer tracker.Stop()

	cue := notify.NewThrottled(notify.NewLog(log), time.Second)
	eng := engine.New(collection,
		engine.WithLogger(log),
		engine.WithCue(cue),
		engine.WithMetrics(metrics.New()),
		engine.WithTracer(tracer.NewOTel()),
		engine.WithMessageTTL(cfg.MessageTTL),
	)
	defer eng.Stop()

	sessions := session.NewManager(session.Config{
		Username:      cfg.OperatorUsername,
		SecretHash:    cfg.OperatorSecretHash,
		SigningKey:    cfg.JWTSigningKey,
		Issuer:        "veridesk",
		TTL:           cfg.SessionTTL,
		DeviceBinding: cfg.DeviceBinding,
	},
		session.WithLogger(log),
		session.WithChangeFunc(func(ctx context.Context, active bool) {
			// The collection subscription follows operator presence.
			if !active {
				eng.Stop()
				return
			}
			if err := eng.Start(ctx); err != nil {
				log.Error("failed to open collection subscription", "error", err)
			}
		}),
	)

	router := httptransport.NewRouter(httptransport.Deps{
		Console:  handler.New(eng, tracker, log),
		Ingest:   handler.NewIngest(collection, hub, log),
		Sessions: sessions,
		Health:   healthHandler,
		Logger:   log,
	})

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server gracefully")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

// ingestCollection is the collection surface main needs: the engine's
// synchronization contract plus the ingestion path.
type ingestCollection interface {
	store.Collection
	handler.Collection
}

func buildCollection(ctx context.Context, cfg config.Server, log *slog.Logger, h *health.Handler) (ingestCollection, func(), error) {
	if cfg.DatabaseURL == "" {
		log.Info("using in-memory submission collection")
		return store.NewMemory(), func() {}, nil
	}

	dbCfg := database.DefaultConfig()
	dbCfg.URL = cfg.DatabaseURL
	pool, err := database.New(dbCfg)
	if err != nil {
		return nil, nil, err
	}

	collection, err := store.NewPostgres(ctx, pool.DB(),
		store.WithPollInterval(cfg.PollInterval),
		store.WithLogger(log),
	)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}

	h.RegisterCheck("database", func() error {
		checkCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return pool.Health(checkCtx)
	})

	log.Info("using postgres submission collection")
	return collection, func() { _ = pool.Close() }, nil
}
