package vault

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"liquidityVault/internal/ambient"
	"liquidityVault/internal/chain"
	"liquidityVault/internal/clmath"
)

const (
	// FeeMultiplier is the parts-per-million denominator of every fee rate.
	FeeMultiplier = 1_000_000
	// SecondsPerYear is the management fee period.
	SecondsPerYear = 31_536_000

	MaxEntryFee       = 500_000
	MaxExitFee        = 500_000
	MaxPerformanceFee = 1_000_000
	MaxManagementFee  = 1_000_000
)

// FeeConfig holds the treasury and the fee rates in parts per million.
type FeeConfig struct {
	Treasury       common.Address
	EntryFee       uint32
	ExitFee        uint32
	PerformanceFee uint32
	ManagementFee  uint32
}

// Validate checks every rate against its fixed ceiling and the vault fee cap.
func (c FeeConfig) Validate(feeCap uint32) error {
	if c.EntryFee > MaxEntryFee || c.ExitFee > MaxExitFee ||
		c.PerformanceFee > MaxPerformanceFee || c.ManagementFee > MaxManagementFee {
		return ErrInvalidFeePercentage
	}
	if uint64(c.EntryFee)+uint64(c.ExitFee) > uint64(feeCap) ||
		c.PerformanceFee > feeCap || c.ManagementFee > feeCap {
		return ErrInvalidFeePercentage
	}
	if c.Treasury == (common.Address{}) && !c.zero() {
		return ErrInvalidTreasury
	}
	return nil
}

func (c FeeConfig) zero() bool {
	return c.EntryFee == 0 && c.ExitFee == 0 && c.PerformanceFee == 0 && c.ManagementFee == 0
}

// Venue wires a vault to its AMM.
type Venue struct {
	Dex       common.Address
	Query     ambient.Query
	CallPaths ambient.CallPaths
}

// Config is everything needed to instantiate a vault.
type Config struct {
	Address       common.Address
	Factory       common.Address
	Name          string
	Symbol        string
	DecimalOffset uint8
	Asset0        common.Address
	Asset1        common.Address
	PoolIdx       uint64
	Owner         common.Address
	Manager       common.Address
	FeeCap        uint32
	FeeConfig     FeeConfig
	Venue         Venue
	Rules         Rules
}

func (c Config) validate() error {
	if c.Address == (common.Address{}) {
		return fmt.Errorf("vault address: %w", ErrInvalidAddress)
	}
	if c.Owner == (common.Address{}) {
		return fmt.Errorf("owner: %w", ErrInvalidAddress)
	}
	if c.Manager == (common.Address{}) {
		return fmt.Errorf("manager: %w", ErrInvalidAddress)
	}
	if c.Venue.Dex == (common.Address{}) || c.Venue.Query == nil {
		return fmt.Errorf("venue: %w", ErrInvalidAddress)
	}
	if chain.IsNative(c.Asset1) || c.Asset0.Cmp(c.Asset1) >= 0 {
		return ErrInvalidAssetOrder
	}
	if c.FeeCap > FeeMultiplier {
		return ErrInvalidFeePercentage
	}
	if err := c.FeeConfig.Validate(c.FeeCap); err != nil {
		return err
	}
	if err := c.Venue.CallPaths.Validate(); err != nil {
		return fmt.Errorf("call paths: %w", err)
	}
	return c.Rules.Validate()
}

func ppm(amount *uint256.Int, rate uint32, roundUp bool) (*uint256.Int, error) {
	if rate == 0 || amount.IsZero() {
		return new(uint256.Int), nil
	}
	r := uint256.NewInt(uint64(rate))
	d := uint256.NewInt(FeeMultiplier)
	if roundUp {
		return clmath.MulDivUp(amount, r, d)
	}
	return clmath.MulDiv(amount, r, d)
}
