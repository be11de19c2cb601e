package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/ovaphlow/pitchfork/service-rental-go/internal/audit"
	"github.com/ovaphlow/pitchfork/service-rental-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-rental-go/internal/eligibility"
	"github.com/ovaphlow/pitchfork/service-rental-go/internal/lifecycle"
	"github.com/ovaphlow/pitchfork/service-rental-go/internal/loyalty"
	loyaltyrepo "github.com/ovaphlow/pitchfork/service-rental-go/internal/loyalty/repo"
	"github.com/ovaphlow/pitchfork/service-rental-go/internal/notification"
	"github.com/ovaphlow/pitchfork/service-rental-go/internal/router"
	"github.com/ovaphlow/pitchfork/service-rental-go/internal/store"
	"github.com/ovaphlow/pitchfork/service-rental-go/pkg/config"
	"github.com/ovaphlow/pitchfork/service-rental-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-rental-go/pkg/metrics"
	"github.com/ovaphlow/pitchfork/service-rental-go/pkg/mq"
	"github.com/ovaphlow/pitchfork/service-rental-go/pkg/obs"
	"github.com/ovaphlow/pitchfork/service-rental-go/pkg/utilities"
)

func main() {
	// best effort: a missing .env leaves the real environment as is
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("RENTAL_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	lg, err := utilities.Init(utilities.ConfigFrom(cfg))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Infow("starting", "app", cfg.App.Name, "env", cfg.App.Env)

	if err := utilities.SetSnowflakeNode(cfg.Snowflake.Node); err != nil {
		sugar.Fatalf("snowflake node: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := obs.InitTracer(ctx, cfg.App.Name, cfg.App.Env, cfg.Otel.Endpoint)
	if err != nil {
		sugar.Fatalf("tracer: %v", err)
	}

	verifier, err := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TTL)
	if err != nil {
		sugar.Fatalf("auth: %v", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(reg)
	}

	cache, err := store.OpenBoltCache(cfg.Store.LocalPath)
	if err != nil {
		sugar.Fatalf("local cache: %v", err)
	}
	defer cache.Close()

	var (
		remote    store.Remote
		directory loyalty.Directory
		sqlxDB    *sqlx.DB
	)
	if cfg.Database.URL != "" {
		sqlDB, err := database.Connect(database.ConfigFrom(cfg))
		if err != nil {
			sugar.Fatalf("db connect: %v", err)
		}
		sqlxDB = sqlx.NewDb(sqlDB, "postgres")
		defer sqlxDB.Close()

		if cfg.Database.Migrate {
			if err := database.Migrate(ctx, sqlDB); err != nil {
				sugar.Fatalf("migrate: %v", err)
			}
		}
		docs := store.NewPostgres(sqlxDB)
		if err := docs.EnsureTable(ctx); err != nil {
			sugar.Fatalf("documents table: %v", err)
		}
		users := loyaltyrepo.NewUserRepo(sqlxDB)
		if err := users.EnsureTable(ctx); err != nil {
			sugar.Fatalf("users table: %v", err)
		}
		remote, directory = docs, users
	} else {
		sugar.Warn("no database configured; running with an in-memory remote store")
		remote, directory = store.NewMemoryRemote(), loyalty.NewMemoryDirectory()
	}

	adapter := store.NewAdapter(remote, cache, sugar,
		store.WithTimeout(cfg.Store.RemoteTimeout),
		store.WithMetrics(m),
	)

	var sinks []notification.Sink
	if cfg.Telegram.Token != "" {
		sink, err := notification.NewTelegramSink(cfg.Telegram.Token, cfg.Telegram.AdminChatID)
		if err != nil {
			sugar.Warnw("telegram sink disabled", "err", err)
		} else {
			sinks = append(sinks, sink)
		}
	}
	dispatcher := notification.NewDispatcher(adapter, sugar, m, sinks...)

	tiers, err := tierTable(cfg)
	if err != nil {
		sugar.Fatalf("loyalty tiers: %v", err)
	}
	ledger := loyalty.NewLedger(directory, tiers, sugar, cfg.Store.RemoteTimeout)
	auditLog := audit.NewLog(adapter, sugar)
	gate := eligibility.NewGate(adapter, sugar, m)

	opts := []lifecycle.Option{lifecycle.WithMetrics(m)}
	if cfg.Rabbit.URL != "" {
		pub, err := mq.NewPublisher(cfg.Rabbit.URL, cfg.Rabbit.Exchange)
		if err != nil {
			sugar.Warnw("event publishing disabled", "err", err)
		} else {
			defer pub.Close()
			opts = append(opts, lifecycle.WithPublisher(pub))
		}
	}
	engine := lifecycle.NewEngine(adapter, gate, dispatcher, ledger, auditLog, sugar, opts...)

	handlers := router.Handlers{
		Bookings:      lifecycle.NewHandler(engine, sugar),
		Audit:         audit.NewHandler(auditLog, sugar),
		Notifications: notification.NewHandler(dispatcher, sugar),
		Loyalty:       loyalty.NewHandler(ledger, sugar),
		Verifier:      verifier,
	}
	if cfg.Metrics.Enabled {
		handlers.Gatherer = reg
	}
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router.RegisterRoutes(sugar, handlers),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()
	sugar.Infow("listening", "addr", cfg.HTTP.Addr, "remote_timeout", adapter.Timeout())

	<-ctx.Done()

	sugar.Info("shutting down")

	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}
	if sqlxDB != nil {
		if err := sqlxDB.PingContext(doneCtx); err != nil {
			sugar.Warnf("db ping on shutdown failed: %v", err)
		}
	}
	if err := shutdownTracer(doneCtx); err != nil {
		sugar.Warnf("tracer shutdown failed: %v", err)
	}

	sugar.Info("goodbye")
}

func tierTable(cfg config.Config) (*loyalty.TierTable, error) {
	if len(cfg.Loyalty.Tiers) == 0 {
		return loyalty.DefaultTierTable(), nil
	}
	tiers := make([]loyalty.Tier, 0, len(cfg.Loyalty.Tiers))
	for _, t := range cfg.Loyalty.Tiers {
		tiers = append(tiers, loyalty.Tier{Name: t.Name, MinXP: t.MinXP, Perks: t.Perks})
	}
	return loyalty.NewTierTable(tiers)
}
