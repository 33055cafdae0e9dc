package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fieldline/crm-api/internal/cache"
	"github.com/fieldline/crm-api/internal/client"
	"github.com/fieldline/crm-api/internal/config"
	"github.com/fieldline/crm-api/internal/domain"
	"github.com/fieldline/crm-api/internal/logger"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app holds what every command needs: config, logger, API client and list cache
type app struct {
	cfg    *config.ClientConfig
	logger *zap.Logger
	client *client.Client
	loader *cache.Loader

	closers []func() error
}

func newApp() (*app, error) {
	cfg, err := config.LoadClient(configPath)
	if err != nil {
		return nil, err
	}

	log, err := logger.NewCLILogger(&cfg.Logging, "fieldctl")
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:    cfg,
		logger: log,
		client: client.New(cfg.BaseURL, cfg.TimeoutDuration(), log),
	}

	store, err := a.openStore()
	if err != nil {
		return nil, err
	}
	policy := cache.DefaultPolicy()
	if maxAge := cfg.Cache.MaxAgeDuration(); maxAge > 0 {
		policy.MaxAge = maxAge
	}
	a.loader = cache.NewLoader(store, policy, log)

	if token, err := a.readSession(); err == nil {
		a.client.SetSession(token)
	}
	return a, nil
}

func (a *app) openStore() (cache.Store, error) {
	switch a.cfg.Cache.Mode {
	case "memory":
		return cache.NewMemoryStore(), nil
	case "redis":
		rc := a.cfg.Cache.Redis
		rdb := redis.NewClient(&redis.Options{
			Addr:     rc.Addr,
			Password: rc.Password,
			DB:       rc.DB,
		})
		a.closers = append(a.closers, rdb.Close)
		return cache.NewRedisStore(rdb, rc.Prefix, 0), nil
	case "file", "":
		store, err := cache.NewFileStore(a.cfg.Cache.Dir)
		if err != nil {
			return nil, fmt.Errorf("failed to open cache dir: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown cache mode %q", a.cfg.Cache.Mode)
	}
}

// close lets pending background refreshes land in the cache before exit
func (a *app) close() {
	a.loader.Wait()
	a.loader.Close()
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.logger.Debug("close failed", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

func (a *app) readSession() (string, error) {
	data, err := os.ReadFile(a.cfg.Cache.SessionFile)
	if err != nil {
		return "", err
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", client.ErrNotSignedIn
	}
	return token, nil
}

func (a *app) saveSession(token string) error {
	if err := os.MkdirAll(filepath.Dir(a.cfg.Cache.SessionFile), 0o700); err != nil {
		return fmt.Errorf("failed to create session dir: %w", err)
	}
	return os.WriteFile(a.cfg.Cache.SessionFile, []byte(token), 0o600)
}

func (a *app) clearSession() error {
	if err := os.Remove(a.cfg.Cache.SessionFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// invalidate drops cached lists after a write so the next view fetches
func (a *app) invalidate(ctx context.Context, keys ...string) {
	for _, key := range keys {
		if err := a.loader.Invalidate(ctx, key); err != nil {
			a.logger.Debug("cache invalidate failed", zap.String("key", key), zap.Error(err))
		}
	}
}

// run wraps a command body with app setup and teardown
func run(fn func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()
		return fn(cmd.Context(), a, args)
	}
}

func describeError(err error) string {
	var ve *domain.ValidationError
	var netErr *client.NetworkError
	switch {
	case errors.Is(err, client.ErrNotSignedIn):
		return "not signed in, run `fieldctl signin` first"
	case errors.As(err, &ve):
		return ve.Error()
	case client.IsNotFound(err):
		return err.Error()
	case errors.As(err, &netErr) && netErr.Status == 401:
		return "session expired, run `fieldctl signin` again"
	default:
		return err.Error()
	}
}
