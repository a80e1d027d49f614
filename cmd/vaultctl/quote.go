package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidityVault/internal/ambient"
	"liquidityVault/internal/chain"
	"liquidityVault/internal/clmath"
	"liquidityVault/internal/config"
)

type quoteReport struct {
	Base      string       `json:"base"`
	Quote     string       `json:"quote"`
	PoolIdx   uint64       `json:"pool_idx"`
	SqrtPrice string       `json:"sqrt_price"`
	Tick      int32        `json:"tick"`
	Price     string       `json:"price"`
	Range     *rangeReport `json:"range,omitempty"`
	Vault     *vaultReport `json:"vault,omitempty"`
}

type rangeReport struct {
	TickLower int32  `json:"tick_lower"`
	TickUpper int32  `json:"tick_upper"`
	Liquidity string `json:"liquidity"`
	Amount0   string `json:"amount0"`
	Amount1   string `json:"amount1"`
}

type vaultReport struct {
	Address        string `json:"address"`
	Idle0          string `json:"idle0"`
	Idle1          string `json:"idle1"`
	RangeLiquidity string `json:"range_liquidity,omitempty"`
	RangeBase      string `json:"range_base,omitempty"`
	RangeQuote     string `json:"range_quote,omitempty"`
}

func runQuote(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadQuote(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	for name, value := range map[string]string{"query": cfg.Query, "base": cfg.Base, "quote": cfg.Quote} {
		if !common.IsHexAddress(value) {
			return fmt.Errorf("invalid %s address: %q", name, value)
		}
	}
	base := common.HexToAddress(cfg.Base)
	quote := common.HexToAddress(cfg.Quote)
	hasRange := cfg.TickLower != 0 || cfg.TickUpper != 0
	if hasRange && cfg.TickLower >= cfg.TickUpper {
		return fmt.Errorf("tick-lower must be below tick-upper")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	query, err := ambient.NewQueryClient(chainClient, common.HexToAddress(cfg.Query))
	if err != nil {
		return err
	}

	metaCache := ambient.NewTokenMetaCache()
	baseMeta, err := metaCache.Lookup(ctx, chainClient, base, logger)
	if err != nil {
		return fmt.Errorf("base metadata: %w", err)
	}
	quoteMeta, err := metaCache.Lookup(ctx, chainClient, quote, logger)
	if err != nil {
		return fmt.Errorf("quote metadata: %w", err)
	}

	sqrtP, err := query.PoolPrice(ctx, base, quote, cfg.PoolIdx)
	if err != nil {
		return fmt.Errorf("pool price: %w", err)
	}
	tick, err := query.CurveTick(ctx, base, quote, cfg.PoolIdx)
	if err != nil {
		return fmt.Errorf("curve tick: %w", err)
	}
	oneBase := clmath.Pow10(baseMeta.Decimals)
	quotePerBase, err := clmath.BaseToQuote(oneBase, sqrtP)
	if err != nil {
		return err
	}

	report := quoteReport{
		Base:      base.Hex(),
		Quote:     quote.Hex(),
		PoolIdx:   cfg.PoolIdx,
		SqrtPrice: sqrtP.ToBig().String(),
		Tick:      tick,
		Price:     humanAmount(quotePerBase, quoteMeta.Decimals),
	}

	if hasRange && cfg.Liquidity != "" {
		liquidity, err := uint256.FromDecimal(cfg.Liquidity)
		if err != nil {
			return fmt.Errorf("invalid liquidity: %w", err)
		}
		sqrtA, err := clmath.SqrtRatioAtTick(cfg.TickLower)
		if err != nil {
			return err
		}
		sqrtB, err := clmath.SqrtRatioAtTick(cfg.TickUpper)
		if err != nil {
			return err
		}
		amount0, amount1, err := clmath.AmountsForLiquidity(sqrtP, sqrtA, sqrtB, liquidity, false)
		if err != nil {
			return err
		}
		report.Range = &rangeReport{
			TickLower: cfg.TickLower,
			TickUpper: cfg.TickUpper,
			Liquidity: liquidity.ToBig().String(),
			Amount0:   humanAmount(amount0, baseMeta.Decimals),
			Amount1:   humanAmount(amount1, quoteMeta.Decimals),
		}
	}

	if cfg.Vault != "" {
		if !common.IsHexAddress(cfg.Vault) {
			return fmt.Errorf("invalid vault address: %q", cfg.Vault)
		}
		vaultAddr := common.HexToAddress(cfg.Vault)
		idle0, err := ambient.FetchBalance(ctx, chainClient, base, vaultAddr, nil)
		if err != nil {
			return fmt.Errorf("vault base balance: %w", err)
		}
		idle1, err := ambient.FetchBalance(ctx, chainClient, quote, vaultAddr, nil)
		if err != nil {
			return fmt.Errorf("vault quote balance: %w", err)
		}
		report.Vault = &vaultReport{
			Address: vaultAddr.Hex(),
			Idle0:   humanAmount(idle0, baseMeta.Decimals),
			Idle1:   humanAmount(idle1, quoteMeta.Decimals),
		}
		if hasRange {
			tokens, err := query.RangeTokens(ctx, vaultAddr, base, quote, cfg.PoolIdx, cfg.TickLower, cfg.TickUpper)
			if err != nil {
				return fmt.Errorf("vault range: %w", err)
			}
			report.Vault.RangeLiquidity = tokens.Liquidity.ToBig().String()
			report.Vault.RangeBase = humanAmount(tokens.Base, baseMeta.Decimals)
			report.Vault.RangeQuote = humanAmount(tokens.Quote, quoteMeta.Decimals)
		}
	}

	logger.Debug("quote complete", zap.String("base", baseMeta.Symbol), zap.String("quote", quoteMeta.Symbol))

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
