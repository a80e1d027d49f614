package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidityVault/internal/config"
	"liquidityVault/internal/metrics"
	"liquidityVault/internal/scenario"
	"liquidityVault/internal/storage"
	"liquidityVault/internal/storage/postgres"
)

func runSimulate(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadSimulate(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Scenario == "" {
		return fmt.Errorf("scenario path is required")
	}
	sc, err := scenario.Load(cfg.Scenario)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sinks := storage.Fanout{storage.NewJsonlStorage(cfg.Out, "")}
	var store *postgres.Store
	if cfg.PGDSN != "" {
		store, err = postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		sinks = append(sinks, store)
	}

	var m *metrics.VaultMetrics
	if cfg.MetricsOut != "" {
		m = metrics.Vault()
	}

	logger.Info("simulate start",
		zap.String("scenario", cfg.Scenario),
		zap.String("out", cfg.Out),
		zap.Bool("postgres", store != nil),
		zap.Uint32("rules_version", cfg.Rules.Version),
	)

	res, err := scenario.NewRunner(sinks, m, logger).Run(ctx, sc, cfg.Rules)
	if err != nil {
		return err
	}

	v := res.Vault
	if store != nil {
		if err := store.SaveSnapshot(ctx, v.Export()); err != nil {
			return fmt.Errorf("save snapshot: %w", err)
		}
	}

	decimals0, err := res.Env.Decimals(v.Asset0())
	if err != nil {
		return err
	}
	decimals1, err := res.Env.Decimals(v.Asset1())
	if err != nil {
		return err
	}
	total0, total1, err := v.VaultAllUnderlyingAssets()
	if err != nil {
		return fmt.Errorf("value vault: %w", err)
	}
	value0, err := v.EstimatedValueInToken0()
	if err != nil {
		return fmt.Errorf("value vault: %w", err)
	}
	logger.Info("simulate complete",
		zap.String("vault", v.Address().Hex()),
		zap.Int("steps", len(res.Steps)),
		zap.String("total_supply", humanAmount(v.TotalSupply(), v.Decimals())),
		zap.String("underlying0", humanAmount(total0, decimals0)),
		zap.String("underlying1", humanAmount(total1, decimals1)),
		zap.String("value_in_token0", humanAmount(value0, decimals0)),
		zap.Int("positions", len(v.GetAllPositions())),
	)

	if cfg.MetricsOut != "" {
		if err := writeMetrics(cfg.MetricsOut); err != nil {
			return err
		}
	}
	return nil
}

func writeMetrics(path string) error {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create metrics dir: %w", err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create metrics file: %w", err)
	}
	if err := metrics.WriteText(file, prometheus.DefaultGatherer); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// humanAmount renders base units with the token's decimals.
func humanAmount(amount *uint256.Int, decimals uint8) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount.ToBig(), -int32(decimals)).String()
}
