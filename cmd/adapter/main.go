package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/vcon-dev/vcon-telephony-adapters/internal/adapter"
	"github.com/vcon-dev/vcon-telephony-adapters/internal/auth"
	"github.com/vcon-dev/vcon-telephony-adapters/internal/builder"
	"github.com/vcon-dev/vcon-telephony-adapters/internal/config"
	"github.com/vcon-dev/vcon-telephony-adapters/internal/poster"
	"github.com/vcon-dev/vcon-telephony-adapters/internal/tracker"
	"github.com/vcon-dev/vcon-telephony-adapters/internal/webhook"
	"github.com/vcon-dev/vcon-telephony-adapters/pkg/logger"
	"github.com/vcon-dev/vcon-telephony-adapters/pkg/utils"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Optional .env for local runs; real deployments set env directly.
	_ = godotenv.Load()

	platformName := strings.TrimSpace(os.Getenv("ADAPTER"))
	if len(os.Args) > 1 {
		platformName = os.Args[1]
	}
	if platformName == "" {
		platformName = "twilio"
	}

	platform, ok := adapter.Lookup(platformName)
	if !ok {
		slog.Error("unknown platform", "platform", platformName, "known", adapter.Names())
		os.Exit(1)
	}

	cfg, err := config.Load(platform.Name)
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env, cfg.App.LogLevel)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	store, closeStore, err := newTracker(rootCtx, cfg)
	if err != nil {
		log.Error("tracker init failed", "err", err)
		os.Exit(1)
	}
	defer closeStore()

	var guard *tracker.ClaimGuard
	if cfg.RedisEnabled() {
		rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
		if err != nil {
			log.Error("redis init failed", "err", err)
			os.Exit(1)
		}
		defer rdb.Close()
		owner := hostnameOwner()
		guard = tracker.NewClaimGuard(rdb, owner, cfg.Redis.ClaimTTL)
		log.Info("cross-replica claim guard enabled", "owner", owner)
	}

	var statusAuth *auth.Manager
	if cfg.Status.JWTSecret != "" {
		statusAuth, err = auth.NewManager(cfg.Status.JWTSecret, cfg.Status.JWTIssuer, cfg.Status.JWTAudience)
		if err != nil {
			log.Error("status auth init failed", "err", err)
			os.Exit(1)
		}
	}

	headers := map[string]string{}
	if cfg.Conserver.APIToken != "" {
		headers[cfg.Conserver.HeaderName] = cfg.Conserver.APIToken
	}

	pipeline := &webhook.Pipeline{
		Platform: platform,
		Auth:     newAuthenticator(cfg, platform.Name),
		Builder: &builder.Builder{
			Source:             platform.Source,
			DownloadRecordings: cfg.App.DownloadRecordings,
			Format:             cfg.App.RecordingFormat,
			Fetcher:            newFetcher(cfg, platform.Name),
		},
		Tracker: store,
		Guard:   guard,
		Poster: &poster.Poster{
			URL:          cfg.Conserver.URL,
			Headers:      headers,
			IngressLists: cfg.App.IngressLists,
		},
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))
	registerRoutes(r, platform.Name, pipeline, statusAuth)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("adapter listening",
			"platform", platform.Name, "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}

func newTracker(ctx context.Context, cfg config.Config) (tracker.Tracker, func(), error) {
	switch cfg.Tracker.Backend {
	case config.TrackerPostgres:
		db, err := utils.OpenPostgres(ctx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
		if err != nil {
			return nil, nil, err
		}
		store, err := tracker.NewPostgresStore(ctx, db)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return store, func() { db.Close() }, nil
	default:
		store, err := tracker.NewFileStore(cfg.Tracker.StateFile)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	}
}

func hostnameOwner() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return uuid.NewString()
	}
	return host + "-" + uuid.NewString()[:8]
}
