package vault

import (
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"liquidityVault/internal/chain"
	"liquidityVault/internal/model"
)

// Export captures the vault state.
func (v *Vault) Export() model.VaultSnapshot {
	holders := make([]common.Address, 0, len(v.st.balances))
	for holder := range v.st.balances {
		holders = append(holders, holder)
	}
	sort.Slice(holders, func(i, j int) bool { return holders[i].Cmp(holders[j]) < 0 })
	balances := make(map[string]string, len(holders))
	for _, holder := range holders {
		balances[holder.Hex()] = dec(v.st.balances[holder])
	}

	positions := make([]model.Position, 0, v.st.positions.Len())
	for _, p := range v.GetAllPositions() {
		positions = append(positions, p.model())
	}
	fee := v.st.feeConfig
	return model.VaultSnapshot{
		Address:       v.address.Hex(),
		Factory:       v.factory.Hex(),
		Name:          v.name,
		Symbol:        v.symbol,
		Asset0:        v.asset0.Hex(),
		Asset1:        v.asset1.Hex(),
		Decimals:      v.decimals,
		DecimalOffset: v.decimalOffset,
		PoolIdx:       v.poolIdx,
		Owner:         v.st.owner.Hex(),
		Manager:       v.st.manager.Hex(),
		SwapRelayer:   v.st.swapRelayer.Hex(),
		FeeCap:        v.feeCap,
		FeeConfig: model.FeeConfig{
			Treasury:       fee.Treasury.Hex(),
			EntryFee:       fee.EntryFee,
			ExitFee:        fee.ExitFee,
			PerformanceFee: fee.PerformanceFee,
			ManagementFee:  fee.ManagementFee,
		},
		Rules:                    v.st.rules.snapshot(),
		TotalSupply:              dec(v.st.totalSupply),
		Balances:                 balances,
		LastCollectManagementFee: v.st.lastCollectManagementFee,
		Positions:                positions,
		TakenAt:                  v.env.Now(),
	}
}

// Restore rebuilds a vault from a snapshot. The venue wiring is not part of
// the snapshot and must be supplied.
func Restore(env chain.Env, venue Venue, snap model.VaultSnapshot, logger *zap.Logger) (*Vault, error) {
	cfg := Config{
		Address:       common.HexToAddress(snap.Address),
		Factory:       common.HexToAddress(snap.Factory),
		Name:          snap.Name,
		Symbol:        snap.Symbol,
		DecimalOffset: snap.DecimalOffset,
		Asset0:        common.HexToAddress(snap.Asset0),
		Asset1:        common.HexToAddress(snap.Asset1),
		PoolIdx:       snap.PoolIdx,
		Owner:         common.HexToAddress(snap.Owner),
		Manager:       common.HexToAddress(snap.Manager),
		FeeCap:        snap.FeeCap,
		FeeConfig: FeeConfig{
			Treasury:       common.HexToAddress(snap.FeeConfig.Treasury),
			EntryFee:       snap.FeeConfig.EntryFee,
			ExitFee:        snap.FeeConfig.ExitFee,
			PerformanceFee: snap.FeeConfig.PerformanceFee,
			ManagementFee:  snap.FeeConfig.ManagementFee,
		},
		Venue: venue,
		Rules: RulesFromSnapshot(snap.Rules),
	}
	v, err := New(env, cfg, logger)
	if err != nil {
		return nil, err
	}
	if v.decimals != snap.Decimals {
		return nil, fmt.Errorf("snapshot decimals %d, asset says %d", snap.Decimals, v.decimals)
	}

	v.st.swapRelayer = common.HexToAddress(snap.SwapRelayer)
	v.st.lastCollectManagementFee = snap.LastCollectManagementFee
	sum := new(uint256.Int)
	for holder, raw := range snap.Balances {
		bal, err := uint256.FromDecimal(raw)
		if err != nil {
			return nil, fmt.Errorf("balance of %s: %w", holder, err)
		}
		v.st.setBalance(common.HexToAddress(holder), bal)
		if _, overflow := sum.AddOverflow(sum, bal); overflow {
			return nil, fmt.Errorf("balances: %w", ErrArithmeticOverflow)
		}
	}
	supply, err := uint256.FromDecimal(snap.TotalSupply)
	if err != nil {
		return nil, fmt.Errorf("total supply: %w", err)
	}
	if !supply.Eq(sum) {
		return nil, fmt.Errorf("total supply %s does not match balances %s", dec(supply), dec(sum))
	}
	v.st.totalSupply = supply
	if len(snap.Positions) > v.st.rules.MaxPositions {
		return nil, ErrPositionLengthExceedsLimit
	}
	for _, p := range snap.Positions {
		liquidity, err := uint256.FromDecimal(p.Liquidity)
		if err != nil {
			return nil, fmt.Errorf("position %d:%d liquidity: %w", p.TickLower, p.TickUpper, err)
		}
		if _, dup := v.st.positions.Find(p.TickLower, p.TickUpper); dup {
			return nil, fmt.Errorf("%w: duplicate position %d:%d", ErrInvalidTickRange, p.TickLower, p.TickUpper)
		}
		if err := v.st.positions.Add(p.TickLower, p.TickUpper, liquidity, p.CreatedAt, v.st.rules.MaxPositions); err != nil {
			return nil, err
		}
	}
	return v, nil
}
