package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidityVault/internal/aggregate"
	"liquidityVault/internal/config"
	"liquidityVault/internal/storage/postgres"
)

// runAggregate folds a vault event journal into per-vault window rows
// (share price, TVL, fee shares) stored in Postgres.
func runAggregate(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadAggregate(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Input == "" {
		return errors.New("vault journal path is required (--in)")
	}
	if cfg.PGDSN == "" {
		return errors.New("metrics database dsn is required (--pg-dsn)")
	}
	windowSeconds, err := parseWindow(cfg.Window)
	if err != nil {
		return err
	}
	recomputeFrom, err := config.ParseTimestamp(cfg.RecomputeFrom)
	if err != nil {
		return fmt.Errorf("parse recompute-from: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := postgres.NewStore(ctx, cfg.PGDSN)
	if err != nil {
		return fmt.Errorf("connect metrics database: %w", err)
	}
	defer store.Close()

	agg := aggregate.NewAggregator(aggregate.Config{
		WindowSeconds: windowSeconds,
		BatchSize:     cfg.BatchSize,
		RecomputeFrom: recomputeFrom,
		StateStore:    progressStore(cfg.StateFile, windowSeconds, store),
	}, store, logger)

	logger.Info("vault window aggregation start",
		zap.String("journal", cfg.Input),
		zap.String("metrics_db", redactDSN(cfg.PGDSN)),
		zap.Duration("window", time.Duration(windowSeconds)*time.Second),
		zap.Int("batch_size", cfg.BatchSize),
		zap.Uint64("recompute_from", recomputeFrom),
		zap.Bool("file_progress", cfg.StateFile != ""),
	)

	return agg.Run(ctx, cfg.Input)
}

// parseWindow turns a window such as "1h" into whole seconds.
func parseWindow(raw string) (uint64, error) {
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid window %q: %w", raw, err)
	}
	if d < time.Second {
		return 0, fmt.Errorf("window %q must be at least 1s", raw)
	}
	return uint64(d / time.Second), nil
}

// progressStore keeps aggregation progress in a local file when one is
// given, otherwise in the metrics database keyed by window size.
func progressStore(stateFile string, windowSeconds uint64, store *postgres.Store) aggregate.StateStore {
	if stateFile != "" {
		return &aggregate.FileStateStore{Path: stateFile, WindowSeconds: windowSeconds}
	}
	return &aggregate.DBStateStore{Store: store, Name: aggregate.DBStateName(windowSeconds)}
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
