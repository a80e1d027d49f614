package vault

import (
	"fmt"

	"github.com/holiman/uint256"

	"liquidityVault/internal/clmath"
	"liquidityVault/internal/model"
)

func (v *Vault) sqrtPrice() (*uint256.Int, error) {
	price, err := v.venue.Query.PoolPrice(v.asset0, v.asset1, v.poolIdx)
	if err != nil {
		return nil, fmt.Errorf("pool price: %w", err)
	}
	return price, nil
}

func (v *Vault) idle() (*uint256.Int, *uint256.Int) {
	return v.env.BalanceOf(v.asset0, v.address), v.env.BalanceOf(v.asset1, v.address)
}

// positionAmounts values liquidity in [lower, upper) at sqrtP, rounding down.
func positionAmounts(sqrtP *uint256.Int, lower, upper int32, liquidity *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	sqrtLower, err := clmath.SqrtRatioAtTick(lower)
	if err != nil {
		return nil, nil, err
	}
	sqrtUpper, err := clmath.SqrtRatioAtTick(upper)
	if err != nil {
		return nil, nil, err
	}
	return clmath.AmountsForLiquidity(sqrtP, sqrtLower, sqrtUpper, liquidity, false)
}

func (v *Vault) pendingRewards(p Position) (*uint256.Int, *uint256.Int, error) {
	fee0, fee1, err := v.venue.Query.ConcRewards(v.address, v.asset0, v.asset1, v.poolIdx, p.TickLower, p.TickUpper)
	if err != nil {
		return nil, nil, fmt.Errorf("rewards %d:%d: %w", p.TickLower, p.TickUpper, err)
	}
	return fee0, fee1, nil
}

// underlying is idle balances plus every position and its pending rewards.
func (v *Vault) underlying() (*uint256.Int, *uint256.Int, error) {
	total0, total1 := v.idle()
	if v.st.positions.Len() == 0 {
		return total0, total1, nil
	}
	sqrtP, err := v.sqrtPrice()
	if err != nil {
		return nil, nil, err
	}
	for i := 0; i < v.st.positions.Len(); i++ {
		p, _ := v.st.positions.At(i)
		a0, a1, err := positionAmounts(sqrtP, p.TickLower, p.TickUpper, p.Liquidity)
		if err != nil {
			return nil, nil, err
		}
		f0, f1, err := v.pendingRewards(p)
		if err != nil {
			return nil, nil, err
		}
		for _, add := range [][2]*uint256.Int{{a0, a1}, {f0, f1}} {
			if total0, err = clmath.Add(total0, add[0]); err != nil {
				return nil, nil, err
			}
			if total1, err = clmath.Add(total1, add[1]); err != nil {
				return nil, nil, err
			}
		}
	}
	return total0, total1, nil
}

// VaultAllUnderlyingAssets returns everything the vault owns in asset units.
func (v *Vault) VaultAllUnderlyingAssets() (*uint256.Int, *uint256.Int, error) {
	return v.underlying()
}

// EstimatedValueInToken0 values all holdings in asset0 at the pool price.
func (v *Vault) EstimatedValueInToken0() (*uint256.Int, error) {
	total0, total1, err := v.underlying()
	if err != nil {
		return nil, err
	}
	sqrtP, err := v.sqrtPrice()
	if err != nil {
		return nil, err
	}
	converted, err := clmath.QuoteToBase(total1, sqrtP)
	if err != nil {
		return nil, err
	}
	return clmath.Add(total0, converted)
}

// EstimatedValueInToken1 values all holdings in asset1 at the pool price.
func (v *Vault) EstimatedValueInToken1() (*uint256.Int, error) {
	total0, total1, err := v.underlying()
	if err != nil {
		return nil, err
	}
	sqrtP, err := v.sqrtPrice()
	if err != nil {
		return nil, err
	}
	converted, err := clmath.BaseToQuote(total0, sqrtP)
	if err != nil {
		return nil, err
	}
	return clmath.Add(total1, converted)
}

// Positions returns the position at index.
func (v *Vault) Positions(index int) (Position, error) {
	p, ok := v.st.positions.At(index)
	if !ok {
		return Position{}, ErrPositionDoesNotExist
	}
	return p, nil
}

// GetAllPositions returns a copy of every open position in index order.
func (v *Vault) GetAllPositions() []Position {
	out := make([]Position, 0, v.st.positions.Len())
	for i := 0; i < v.st.positions.Len(); i++ {
		p, _ := v.st.positions.At(i)
		out = append(out, p)
	}
	return out
}

// PositionInfo values the position at index together with its pending rewards.
func (v *Vault) PositionInfo(index int) (model.PositionInfo, error) {
	p, err := v.Positions(index)
	if err != nil {
		return model.PositionInfo{}, err
	}
	sqrtP, err := v.sqrtPrice()
	if err != nil {
		return model.PositionInfo{}, err
	}
	a0, a1, err := positionAmounts(sqrtP, p.TickLower, p.TickUpper, p.Liquidity)
	if err != nil {
		return model.PositionInfo{}, err
	}
	f0, f1, err := v.pendingRewards(p)
	if err != nil {
		return model.PositionInfo{}, err
	}
	return model.PositionInfo{
		Position: p.model(),
		Amount0:  dec(a0),
		Amount1:  dec(a1),
		Fee0:     dec(f0),
		Fee1:     dec(f1),
	}, nil
}

// GetPoolInfo describes the venue pool at its current price.
func (v *Vault) GetPoolInfo() (model.PoolInfo, error) {
	sqrtP, err := v.sqrtPrice()
	if err != nil {
		return model.PoolInfo{}, err
	}
	tick, err := clmath.TickAtSqrtRatio(sqrtP)
	if err != nil {
		return model.PoolInfo{}, err
	}
	tickSize, err := v.venue.Query.TickSize(v.asset0, v.asset1, v.poolIdx)
	if err != nil {
		return model.PoolInfo{}, fmt.Errorf("tick size: %w", err)
	}
	decimals0, err := v.env.Decimals(v.asset0)
	if err != nil {
		return model.PoolInfo{}, err
	}
	decimals1, err := v.env.Decimals(v.asset1)
	if err != nil {
		return model.PoolInfo{}, err
	}
	return model.PoolInfo{
		Asset0:        v.asset0.Hex(),
		Asset1:        v.asset1.Hex(),
		Decimals0:     decimals0,
		Decimals1:     decimals1,
		DecimalOffset: v.decimalOffset,
		PoolIdx:       v.poolIdx,
		TickSize:      tickSize,
		SqrtPrice:     dec(sqrtP),
		Tick:          tick,
	}, nil
}

// GetLiquidityForAmounts returns the largest liquidity in [lower, upper)
// that the given amounts pay for at the current price.
func (v *Vault) GetLiquidityForAmounts(lower, upper int32, amount0, amount1 *uint256.Int) (*uint256.Int, error) {
	sqrtP, err := v.sqrtPrice()
	if err != nil {
		return nil, err
	}
	sqrtLower, err := clmath.SqrtRatioAtTick(lower)
	if err != nil {
		return nil, err
	}
	sqrtUpper, err := clmath.SqrtRatioAtTick(upper)
	if err != nil {
		return nil, err
	}
	return clmath.LiquidityForAmounts(sqrtP, sqrtLower, sqrtUpper, amount0, amount1)
}

// GetAmountsForLiquidity values liquidity in [lower, upper) at the current
// price, rounding down.
func (v *Vault) GetAmountsForLiquidity(lower, upper int32, liquidity *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	sqrtP, err := v.sqrtPrice()
	if err != nil {
		return nil, nil, err
	}
	return positionAmounts(sqrtP, lower, upper, liquidity)
}
