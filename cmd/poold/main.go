// Package main implements poold, the GOSP staking pool daemon. It hosts the
// pool ledger, the game approval registry, and the oracle gateway, paced by
// the chain's block feed.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stakeworks/gosp/internal/asset"
	"github.com/stakeworks/gosp/internal/chain"
	"github.com/stakeworks/gosp/internal/config"
	"github.com/stakeworks/gosp/internal/database"
	"github.com/stakeworks/gosp/internal/database/influx"
	"github.com/stakeworks/gosp/internal/database/postgres"
	"github.com/stakeworks/gosp/internal/database/redis"
	"github.com/stakeworks/gosp/internal/games"
	"github.com/stakeworks/gosp/internal/messaging"
	"github.com/stakeworks/gosp/internal/notify"
	"github.com/stakeworks/gosp/internal/oracle"
	"github.com/stakeworks/gosp/internal/pool"
	"github.com/stakeworks/gosp/pkg/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := log.New(cfg.ServiceName, cfg.Version, cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting poold",
		"version", cfg.Version,
		"admin", cfg.AdminAddress,
		"pool", cfg.PoolAddress,
	)

	// Connect databases
	db, err := database.NewManager(&database.Config{
		Postgres: postgres.DefaultConfig(cfg.PostgresURL),
		Redis:    redis.DefaultConfig(cfg.RedisURL),
		Influx: &influx.Config{
			URL:    cfg.InfluxURL,
			Token:  cfg.InfluxToken,
			Org:    cfg.InfluxOrg,
			Bucket: cfg.InfluxBucket,
		},
	})
	if err != nil {
		logger.WithError(err).Error("failed to connect databases")
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.WithError(err).Error("database close failed")
		}
	}()

	// Create Kafka client
	kafkaClient := messaging.NewKafkaClient(cfg.KafkaBrokers, logger.Logger)
	defer func() {
		if err := kafkaClient.Close(); err != nil {
			logger.WithError(err).Error("kafka close failed")
		}
	}()

	// Event fanout: Kafka, journal, metrics
	notifier := notify.NewFanout(logger,
		notify.NewKafkaSink(kafkaClient),
		notify.NewJournalSink(db),
		notify.NewMetricsSink(db),
	)

	dialCtx, dialCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer dialCancel()

	// Chain access: contract verification and block feed
	chainClient, err := chain.NewClient(dialCtx, &cfg.Chain, logger)
	if err != nil {
		logger.WithError(err).Error("failed to connect chain rpc")
		os.Exit(1)
	}
	defer chainClient.Close()

	watcher, err := chain.NewWatcher(cfg.Chain.ZMQAddr, logger)
	if err != nil {
		logger.WithError(err).Error("failed to create block watcher")
		os.Exit(1)
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			logger.WithError(err).Error("watcher close failed")
		}
	}()
	if err := watcher.Connect(); err != nil {
		logger.WithError(err).Error("failed to connect block feed")
		os.Exit(1)
	}

	// Game registry gates prize payouts
	registry := games.NewRegistry(cfg.Admin(), cfg.TimelockDuration, chainClient, notifier, logger)

	// The pool ledger itself. The base asset is accounted in-process; the
	// chain is consulted for contract verification and block pacing only.
	poolSvc := pool.New(pool.Params{
		Admin:                 cfg.Admin(),
		PoolAddress:           cfg.Pool(),
		DistributionThreshold: cfg.Threshold(),
		PayoutBudget:          cfg.Budget(),
	}, asset.NewMemoryLedger(), registry, notifier, logger)

	// Oracle gateway: randomness batching, paced by the block feed
	oracleClient, err := oracle.NewRPCClient(dialCtx, &cfg.Oracle, logger)
	if err != nil {
		logger.WithError(err).Error("failed to connect oracle rpc")
		os.Exit(1)
	}
	defer oracleClient.Close()

	gateway, err := oracle.NewGateway(oracleClient, db.Redis, db.Redis, poolSvc, registry, notifier, cfg.Admin(), cfg.BatchInterval, logger)
	if err != nil {
		logger.WithError(err).Error("failed to create oracle gateway")
		os.Exit(1)
	}

	svc := NewService(cfg, logger, db, poolSvc, gateway, watcher)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	db.StartPeriodicTasks(ctx)

	go func() {
		if err := svc.Start(ctx); err != nil && ctx.Err() == nil {
			logger.WithError(err).Error("service failed")
			cancel()
		}
	}()

	// Wait for shutdown signal
	select {
	case <-sigChan:
		logger.Info("shutdown signal received")
	case <-ctx.Done():
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := svc.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("shutdown failed")
		os.Exit(1)
	}

	logger.Info("poold stopped")
}

// Service ties the block feed to the oracle gateway and publishes periodic
// pool gauges.
type Service struct {
	cfg     *config.Config
	logger  *log.Logger
	db      *database.Manager
	pool    *pool.Pool
	gateway *oracle.Gateway
	watcher *chain.Watcher

	done chan struct{}
}

// NewService creates the poold service.
func NewService(cfg *config.Config, logger *log.Logger, db *database.Manager, poolSvc *pool.Pool, gateway *oracle.Gateway, watcher *chain.Watcher) *Service {
	return &Service{
		cfg:     cfg,
		logger:  logger.WithComponent("poold"),
		db:      db,
		pool:    poolSvc,
		gateway: gateway,
		watcher: watcher,
		done:    make(chan struct{}),
	}
}

// Start runs the service loops until the context ends.
func (s *Service) Start(ctx context.Context) error {
	s.logger.Info("service starting")

	go s.statsLoop(ctx)

	// every new block asks the gateway for the covering randomness request
	// on the admin identity; the gateway batches upstream and drives the
	// payout scheduler
	return s.watcher.Listen(ctx, func(ctx context.Context, height uint64) error {
		_, err := s.gateway.Request(ctx, s.cfg.Admin(), height)
		return err
	})
}

// statsLoop publishes a pool snapshot gauge once a minute.
func (s *Service) statsLoop(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			stats, err := s.pool.Stats(ctx)
			if err != nil {
				s.logger.WithError(err).Warn("failed to snapshot pool stats")
				continue
			}

			s.db.Influx.WritePoolStatsMetric(
				stats.Reserve,
				stats.TotalShares,
				stats.DividendTotal,
				stats.CurrentWeight,
				stats.Entries,
				stats.Cursor,
				stats.StakingActive,
			)

			if err := s.db.Redis.SetPoolStats(ctx, stats, 2*time.Minute); err != nil {
				s.logger.WithError(err).Warn("failed to cache pool stats")
			}
		}
	}
}

// Shutdown gracefully shuts down the service.
func (s *Service) Shutdown(_ context.Context) error {
	s.logger.Info("shutting down service")
	close(s.done)
	s.db.Influx.Flush()
	return nil
}
