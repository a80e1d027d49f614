package config

import "github.com/spf13/pflag"

// QuoteConfig holds configuration for read-only venue quotes.
type QuoteConfig struct {
	RPCURL    string
	Query     string
	Base      string
	Quote     string
	PoolIdx   uint64
	TickLower int32
	TickUpper int32
	Liquidity string
	Vault     string
	LogLevel  string
}

// LoadQuote merges config file, environment variables, and flags into QuoteConfig.
func LoadQuote(cfgFile string, flags *pflag.FlagSet) (QuoteConfig, error) {
	v, err := load(cfgFile, flags, map[string]interface{}{
		"pool-idx":  uint64(420),
		"log-level": "info",
	})
	if err != nil {
		return QuoteConfig{}, err
	}

	cfg := QuoteConfig{
		RPCURL:    v.GetString("rpc"),
		Query:     v.GetString("query"),
		Base:      v.GetString("base"),
		Quote:     v.GetString("quote"),
		PoolIdx:   v.GetUint64("pool-idx"),
		TickLower: v.GetInt32("tick-lower"),
		TickUpper: v.GetInt32("tick-upper"),
		Liquidity: v.GetString("liquidity"),
		Vault:     v.GetString("vault"),
		LogLevel:  v.GetString("log-level"),
	}

	return cfg, nil
}
