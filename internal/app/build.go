package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bruttobar/pos-client/internal/checkout"
	"github.com/bruttobar/pos-client/internal/client"
	"github.com/bruttobar/pos-client/internal/config"
	"github.com/bruttobar/pos-client/internal/publisher"
	"github.com/bruttobar/pos-client/internal/repository"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// NewFromConfig builds the token store, backend client and order sink named by cfg.
// reg may be nil.
func NewFromConfig(ctx context.Context, cfg *config.Config, reg prometheus.Registerer, logger *slog.Logger) (*App, error) {
	repo, err := NewTokenRepository(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var sub checkout.OrderSubmitter
	var closeSub func() error
	switch cfg.OrderSink {
	case "kafka":
		p := publisher.NewOrderPublisher(cfg.KafkaTopic, logger.With("component", "publisher"), cfg.KafkaBrokers...)
		sub, closeSub = p, p.Close
		logger.Info("orders go to kafka", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	default:
		sub = checkout.NewLogSubmitter(logger.With("component", "submitter"))
	}
	if reg != nil {
		sub = newInstrumentedSubmitter(sub, reg)
	}

	backend := client.New(client.Options{
		BaseURL: cfg.ClientBaseURL(),
		Timeout: cfg.RequestTimeout,
		Logger:  logger.With("component", "client"),
	})

	a := New(Deps{
		Repo:           repo,
		Backend:        backend,
		Submitter:      sub,
		RequestTimeout: cfg.RequestTimeout,
		Logger:         logger,
	})
	a.closers = append(a.closers, repo.Close)
	if closeSub != nil {
		a.closers = append(a.closers, closeSub)
	}
	logger.Info("client configured", "api", cfg.ClientBaseURL(), "token_store", cfg.TokenStore, "order_sink", cfg.OrderSink)
	return a, nil
}

// NewTokenRepository opens the backend selected by TOKEN_STORE.
func NewTokenRepository(ctx context.Context, cfg *config.Config) (repository.TokenRepository, error) {
	switch cfg.TokenStore {
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create data dir: %w", err)
		}
		repo, err := repository.NewSQLiteRepository(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := repo.RunMigrations(); err != nil {
			_ = repo.Close()
			return nil, err
		}
		return repo, nil
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return repository.NewRedisRepository(rdb), nil
	default:
		return repository.NewFileRepository(cfg.TokenPath), nil
	}
}
