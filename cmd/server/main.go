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

	redis "github.com/redis/go-redis/v9"

	"kasirharian/backend/internal/cache"
	"kasirharian/backend/internal/config"
	"kasirharian/backend/internal/httpapi"
	"kasirharian/backend/internal/lock"
	"kasirharian/backend/internal/logger"
	"kasirharian/backend/internal/reconcile"
	"kasirharian/backend/internal/service"
	"kasirharian/backend/internal/store"
	"kasirharian/backend/internal/store/memory"
	pgstore "kasirharian/backend/internal/store/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Default().Fatalw("invalid configuration", "error", err)
	}

	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Development: cfg.LogDevelopment})
	if err != nil {
		logger.Default().Fatalw("failed to build logger", "error", err)
	}
	defer func() { _ = log.Sync() }()

	if err := validateSecurityConfig(cfg); err != nil {
		log.Fatalw("invalid security configuration", "error", err)
	}
	location, err := cfg.Location()
	if err != nil {
		log.Fatalw("invalid store timezone", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 2)

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalw("postgres unavailable and DATABASE_URL is set, refusing to start with in-memory fallback", "error", err)
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Fatalw("failed to apply schema", "error", err)
		}
		repo = pg
		closers = append(closers, pg.Close)
		log.Infow("repository ready", "backend", "postgres")
	} else {
		repo = memory.NewSeeded()
		log.Infow("repository ready", "backend", "memory")
	}

	locker, vatCache, closeRedis := buildCoordination(ctx, cfg, log)
	if closeRedis != nil {
		closers = append(closers, closeRedis)
	}

	svc := service.New(repo, service.Options{
		DefaultStoreID: cfg.StoreID,
		Location:       location,
		Locker:         locker,
		VATCache:       vatCache,
		VATCacheTTL:    cfg.VATCacheTTL(),
		OpeningThreshold: reconcile.OpeningThreshold{
			Absolute: cfg.OpeningVarianceAbs,
			Percent:  cfg.OpeningVariancePct,
		},
		Logger: log,
	})
	auth := httpapi.NewAuthManager(cfg.AuthSecret, cfg.AccessTokenTTL(), cfg.ManagerPIN, repo, log)
	api := httpapi.New(svc, auth, cfg.AllowedOrigin, log)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Infow("day operations backend listening", "addr", cfg.Address(), "store_id", cfg.StoreID, "timezone", location.String())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server error", "error", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warnw("shutdown error", "error", err)
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Warnw("close error", "error", err)
		}
	}

	log.Infow("server stopped")
}

// buildCoordination picks the transition lock and VAT cache. With REDIS_ADDR
// set both share one client; an unreachable redis falls back to in-process.
func buildCoordination(ctx context.Context, cfg config.Config, log *logger.Logger) (lock.Locker, cache.VATContextCache, func() error) {
	if cfg.RedisAddr == "" {
		log.Infow("coordination ready", "lock", "local", "vat_cache", "memory")
		return lock.NewLocal(), cache.NewMemoryVATContextCache(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warnw("redis unavailable, using in-process lock and cache", "addr", cfg.RedisAddr, "error", err)
		_ = client.Close()
		return lock.NewLocal(), cache.NewMemoryVATContextCache(), nil
	}

	log.Infow("coordination ready", "lock", "redis", "vat_cache", "redis", "addr", cfg.RedisAddr)
	return lock.NewRedisWithClient(client, cfg.LockTTL()), cache.NewRedisVATContextCacheWithClient(client), client.Close
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if len(cfg.ManagerPIN) < 6 {
		return fmt.Errorf("MANAGER_PIN must be set and at least 6 digits")
	}
	if err := validatePINStrength(cfg.ManagerPIN); err != nil {
		return fmt.Errorf("MANAGER_PIN is too weak: %w", err)
	}
	return nil
}

// validatePINStrength rejects PINs that are all the same digit,
// sequential (ascending or descending), or from a known-weak list.
func validatePINStrength(pin string) error {
	known := map[string]bool{
		"123456": true, "654321": true, "000000": true, "111111": true,
		"121212": true, "112233": true, "123123": true, "147258": true,
	}
	if known[pin] {
		return fmt.Errorf("common PIN not allowed")
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return fmt.Errorf("PIN must contain digits only")
		}
	}

	allSame := true
	for i := 1; i < len(pin); i++ {
		if pin[i] != pin[0] {
			allSame = false
			break
		}
	}
	if allSame {
		return fmt.Errorf("all-same-digit PIN not allowed")
	}

	ascending, descending := true, true
	for i := 1; i < len(pin); i++ {
		diff := int(pin[i]) - int(pin[i-1])
		if diff != 1 {
			ascending = false
		}
		if diff != -1 {
			descending = false
		}
	}
	if ascending || descending {
		return fmt.Errorf("sequential PIN not allowed")
	}
	return nil
}
