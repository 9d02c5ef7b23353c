package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	api "github.com/mind-engage/ledgerquiz/internal/api/http"
	auth "github.com/mind-engage/ledgerquiz/internal/auth/middleware"
	"github.com/mind-engage/ledgerquiz/internal/config"
	"github.com/mind-engage/ledgerquiz/internal/db"
	"github.com/mind-engage/ledgerquiz/internal/logging"
	"github.com/mind-engage/ledgerquiz/internal/metrics"
	"github.com/mind-engage/ledgerquiz/internal/session"
	"github.com/mind-engage/ledgerquiz/internal/storage"
	"github.com/mind-engage/ledgerquiz/internal/store"
	syncx "github.com/mind-engage/ledgerquiz/internal/sync"
)

const (
	sessionMaxAge = 24 * time.Hour
	sweepEvery    = 10 * time.Minute
)

func main() {
	configPath := flag.String("config", "", "optional YAML config file (defaults to $CONFIG_FILE)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, err := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Storage ---
	var (
		st     store.Store
		events api.EventLog
		ready  func(context.Context) error
	)
	if cfg.DBDriver == "memory" {
		st = store.NewMemoryStore()
		log.Warn("using in-memory store; data is lost on restart")
	} else {
		openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		dbh, err := db.Open(openCtx, db.Driver(cfg.DBDriver), cfg.DBDSN)
		cancel()
		if err != nil {
			return fmt.Errorf("db open: %w", err)
		}
		defer dbh.Close()
		st = store.NewSQLStore(dbh)
		events = syncx.NewEventRepo(dbh)
		ready = pinger(dbh)
	}
	if cfg.SeedQuestions {
		seeded, err := store.SeedIfEmpty(ctx, st)
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		if seeded {
			log.Info("seeded starter question bank", zap.Int("questions", len(store.SeedQuestions())))
		}
	}

	blobs, err := storage.New(ctx, storage.Config{
		Driver:         cfg.BlobDriver,
		BasePath:       cfg.BlobBasePath,
		PublicPrefix:   "/assets",
		MinioEndpoint:  cfg.MinioEndpoint,
		MinioAccessKey: cfg.MinioAccessKey,
		MinioSecretKey: cfg.MinioSecretKey,
		MinioBucket:    cfg.MinioBucket,
		MinioUseSSL:    cfg.MinioUseSSL,
	}, log)
	if err != nil {
		return fmt.Errorf("blob store: %w", err)
	}

	// --- Auth ---
	hash, err := adminHash(cfg)
	if err != nil {
		return err
	}
	if len(hash) == 0 {
		log.Warn("no admin password configured; admin endpoints are disabled")
	}
	secret := cfg.HMACSecret
	if secret == "" {
		if cfg.Mode == config.ModeOnline {
			return errors.New("AUTH_HMAC_SECRET is required in online mode")
		}
		secret = randomSecret()
		log.Warn("AUTH_HMAC_SECRET not set; tokens will not survive a restart")
	}
	authSvc := auth.NewAuthService(secret, cfg.AdminUser, hash)
	limiter := auth.NewRateLimiter(cfg.LoginRatePerMin, time.Minute)

	// --- Metrics ---
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	sessions := session.NewRegistry()
	a := &api.API{
		Store:            st,
		Sessions:         sessions,
		Blobs:            blobs,
		Events:           events,
		Metrics:          metrics.New(reg),
		Log:              log,
		Ready:            ready,
		MaxQuizQuestions: cfg.MaxQuizQuestions,
		AllowSeed:        cfg.AllowQuizSeed,
	}
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewRouter(a, authSvc, limiter, cfg.CORSOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go housekeeping(ctx, log, limiter, sessions)

	errc := make(chan error, 1)
	go func() {
		log.Info("listening",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("mode", string(cfg.Mode)),
			zap.String("db", cfg.DBDriver),
			zap.String("blobs", cfg.BlobDriver))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func housekeeping(ctx context.Context, log *zap.Logger, limiter *auth.RateLimiter, sessions *session.Registry) {
	t := time.NewTicker(sweepEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			visitors := limiter.Cleanup(now)
			swept := sessions.Sweep(sessionMaxAge)
			if visitors > 0 || swept > 0 {
				log.Debug("housekeeping", zap.Int("visitors", visitors), zap.Int("sessions", swept))
			}
		}
	}
}

func adminHash(cfg config.Config) ([]byte, error) {
	if cfg.AdminPassHash != "" {
		return []byte(cfg.AdminPassHash), nil
	}
	if cfg.AdminPassword == "" {
		return nil, nil
	}
	h, err := auth.HashPassword(cfg.AdminPassword)
	if err != nil {
		return nil, fmt.Errorf("hash admin password: %w", err)
	}
	return h, nil
}

func pinger(dbh *sql.DB) func(context.Context) error {
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return dbh.PingContext(ctx)
	}
}

func randomSecret() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
