package config

import (
	"fmt"

	"github.com/spf13/pflag"

	"liquidityVault/internal/vault"
)

// SimulateConfig holds configuration for scenario runs.
type SimulateConfig struct {
	Scenario   string
	Out        string
	PGDSN      string
	MetricsOut string
	LogLevel   string
	// Rules seed the factory unless the scenario file carries its own.
	Rules vault.Rules
}

// LoadSimulate merges config file, environment variables, and flags into SimulateConfig.
func LoadSimulate(cfgFile string, flags *pflag.FlagSet) (SimulateConfig, error) {
	defaults := vault.DefaultRules()
	v, err := load(cfgFile, flags, map[string]interface{}{
		"out":                 "./data/events.jsonl",
		"log-level":           "info",
		"rules.version":       defaults.Version,
		"rules.max-positions": defaults.MaxPositions,
		"rules.jit-window":    defaults.JITWindow,
		"rules.liquidity-lot": defaults.LiquidityLot,
	})
	if err != nil {
		return SimulateConfig{}, err
	}

	cfg := SimulateConfig{
		Scenario:   v.GetString("scenario"),
		Out:        v.GetString("out"),
		PGDSN:      v.GetString("pg-dsn"),
		MetricsOut: v.GetString("metrics-out"),
		LogLevel:   v.GetString("log-level"),
	}
	cfg.Rules = vault.Rules{
		Version:      v.GetUint32("rules.version"),
		MaxPositions: v.GetInt("rules.max-positions"),
		JITWindow:    v.GetUint64("rules.jit-window"),
		LiquidityLot: v.GetUint64("rules.liquidity-lot"),
	}
	if err := cfg.Rules.Validate(); err != nil {
		return SimulateConfig{}, fmt.Errorf("config rules: %w", err)
	}

	return cfg, nil
}
