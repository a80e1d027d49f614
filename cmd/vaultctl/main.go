package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "vaultctl",
		Short:        "Concentrated-liquidity vault tooling",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a vault scenario against the in-memory venue",
		RunE:  runSimulate,
	}

	simulateCmd.Flags().String("scenario", "", "scenario YAML file")
	simulateCmd.Flags().String("out", "./data/events.jsonl", "event journal JSONL path")
	simulateCmd.Flags().String("pg-dsn", "", "optional Postgres DSN for events and the final snapshot")
	simulateCmd.Flags().String("metrics-out", "", "optional path for a prometheus text dump")
	simulateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(simulateCmd)

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Read pool price, range amounts and vault balances over RPC",
		RunE:  runQuote,
	}

	quoteCmd.Flags().String("rpc", "", "RPC URL")
	quoteCmd.Flags().String("query", "", "venue query contract address")
	quoteCmd.Flags().String("base", "0x0000000000000000000000000000000000000000", "base token (zero address for native)")
	quoteCmd.Flags().String("quote", "", "quote token")
	quoteCmd.Flags().Uint64("pool-idx", 420, "pool type index")
	quoteCmd.Flags().Int32("tick-lower", 0, "range lower tick")
	quoteCmd.Flags().Int32("tick-upper", 0, "range upper tick")
	quoteCmd.Flags().String("liquidity", "", "range liquidity to price")
	quoteCmd.Flags().String("vault", "", "optional deployed vault address")
	quoteCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(quoteCmd)

	indexCmd := &cobra.Command{
		Use:   "index",
		Short: "Journal VaultDeployed logs of factories",
		RunE:  runIndex,
	}

	indexCmd.Flags().String("rpc", "", "RPC URL")
	indexCmd.Flags().Uint64("from", 0, "start block (inclusive)")
	indexCmd.Flags().Uint64("to", 0, "end block (inclusive), 0 means latest")
	indexCmd.Flags().StringSlice("factory", nil, "factory addresses (comma-separated)")
	indexCmd.Flags().Uint64("batch-size", 2000, "blocks per batch")
	indexCmd.Flags().String("out", "./data/events.jsonl", "event journal JSONL path")
	indexCmd.Flags().String("errors", "./data/decode_errors.jsonl", "decode errors JSONL")
	indexCmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path")
	indexCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	indexCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	indexCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	indexCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(indexCmd)

	aggregateCmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Fold a vault event journal into per-vault share price and fee windows",
		RunE:  runAggregate,
	}

	aggregateCmd.Flags().String("in", "", "vault event journal (JSONL) written by simulate or index")
	aggregateCmd.Flags().String("window", "1h", "vault metrics window, at least 1s (e.g. 5m, 1h, 24h)")
	aggregateCmd.Flags().String("pg-dsn", "", "Postgres DSN for the vault_window_metrics table")
	aggregateCmd.Flags().Int("batch-size", 1000, "vault windows per database write")
	aggregateCmd.Flags().String("state-file", "", "local file for the last aggregated journal timestamp (default: stored in Postgres)")
	aggregateCmd.Flags().String("recompute-from", "", "rebuild vault windows from this time (unix seconds or RFC3339)")
	aggregateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(aggregateCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
