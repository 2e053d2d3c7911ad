package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/mattn/go-sqlite3"
	"github.com/redis/go-redis/v9"

	"github.com/example/chargeback-engine/internal/api"
	"github.com/example/chargeback-engine/internal/config"
	"github.com/example/chargeback-engine/internal/disputes"
	"github.com/example/chargeback-engine/internal/documents"
	"github.com/example/chargeback-engine/internal/refunds"
	"github.com/example/chargeback-engine/internal/security"
	"github.com/example/chargeback-engine/pkg/audit"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	var (
		caseStore disputes.Store
		journal   refunds.Journal
	)
	if cfg.InMemory() {
		logger.Info("running with in-memory stores", "env", cfg.Environment)
		caseStore = disputes.NewMemoryStore()
		journal = refunds.NewMemoryJournal()
	} else {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to create postgres pool", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		pgStore := disputes.NewPostgresStore(pool)
		if err := pgStore.Migrate(ctx); err != nil {
			logger.Error("dispute store migration failed", "error", err)
			os.Exit(1)
		}
		caseStore = pgStore

		pgJournal := refunds.NewPostgresJournal(pool)
		if err := pgJournal.Migrate(ctx); err != nil {
			logger.Error("refund journal migration failed", "error", err)
			os.Exit(1)
		}
		journal = pgJournal
	}

	var docStore documents.Store
	if cfg.DocumentsDB != "" {
		db, err := sql.Open("sqlite3", cfg.DocumentsDB)
		if err != nil {
			logger.Error("failed to open document database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		sqliteStore := documents.NewSQLiteStore(db)
		if err := sqliteStore.Migrate(ctx); err != nil {
			logger.Error("document store migration failed", "error", err)
			os.Exit(1)
		}
		docStore = sqliteStore
	} else {
		docStore = documents.NewMemoryStore()
	}

	cases := disputes.NewService(caseStore, journal, logger)
	registry := documents.NewRegistry(docStore, cases.Log())

	allowlist, err := security.ParseCIDRAllowlist(cfg.IPAllowlist)
	if err != nil {
		logger.Error("invalid API_IP_ALLOWLIST", "error", err)
		os.Exit(1)
	}

	var rateLimiter *security.RedisTokenBucket
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()

		rateLimiter = &security.RedisTokenBucket{
			Redis:      redisClient,
			Prefix:     "disputes-api",
			Capacity:   cfg.RateLimitCapacity,
			RefillRate: cfg.RateLimitPerSec,
		}
	}

	router, err := api.NewRouter(api.Dependencies{
		Logger:       logger,
		Cases:        cases,
		Documents:    registry,
		Auditor:      audit.NewChainLogger(),
		RateLimiter:  rateLimiter,
		IPAllowlist:  allowlist,
		MaxBodyBytes: cfg.MaxBodyBytes,
	})
	if err != nil {
		logger.Error("failed to build router", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if cfg.TLS() {
		tlsCfg, err := security.ServerTLSConfig(cfg.TLSCertFile, cfg.TLSKeyFile)
		if err != nil {
			logger.Error("invalid TLS configuration", "error", err)
			os.Exit(1)
		}
		srv.TLSConfig = tlsCfg
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("dispute api listening", "addr", cfg.ListenAddr, "tls", cfg.TLS())
		if cfg.TLS() {
			errCh <- srv.ListenAndServeTLS("", "")
		} else {
			errCh <- srv.ListenAndServe()
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
		shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
			os.Exit(1)
		}
	}
}
