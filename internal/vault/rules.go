package vault

import (
	"fmt"

	"liquidityVault/internal/ambient"
	"liquidityVault/internal/model"
)

// Rules is the versioned behaviour shared by every vault of one factory.
// Vaults adopt a newer version only through an explicit migration.
type Rules struct {
	Version      uint32 `yaml:"version"`
	MaxPositions int    `yaml:"max_positions"`
	JITWindow    uint64 `yaml:"jit_window"`
	LiquidityLot uint64 `yaml:"liquidity_lot"`
}

// DefaultRules returns version 1: five positions, a five minute JIT window.
func DefaultRules() Rules {
	return Rules{
		Version:      1,
		MaxPositions: 5,
		JITWindow:    300,
		LiquidityLot: ambient.LiquidityLot,
	}
}

func (r Rules) Validate() error {
	if r.Version == 0 {
		return fmt.Errorf("%w: version must be positive", ErrInvalidRules)
	}
	if r.MaxPositions <= 0 {
		return fmt.Errorf("%w: max positions must be positive", ErrInvalidRules)
	}
	if r.LiquidityLot == 0 {
		return fmt.Errorf("%w: liquidity lot must be positive", ErrInvalidRules)
	}
	return nil
}

func (r Rules) snapshot() model.RulesSnapshot {
	return model.RulesSnapshot{
		Version:      r.Version,
		MaxPositions: r.MaxPositions,
		JITWindow:    r.JITWindow,
		LiquidityLot: r.LiquidityLot,
	}
}

// RulesFromSnapshot converts a persisted rule set.
func RulesFromSnapshot(s model.RulesSnapshot) Rules {
	return Rules{
		Version:      s.Version,
		MaxPositions: s.MaxPositions,
		JITWindow:    s.JITWindow,
		LiquidityLot: s.LiquidityLot,
	}
}
