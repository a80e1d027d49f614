package vault

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"liquidityVault/internal/ambient"
	"liquidityVault/internal/chain"
	"liquidityVault/internal/clmath"
	"liquidityVault/internal/model"
)

// AddLiquidity mints liquidity in [lower, upper) from idle balances.
func (v *Vault) AddLiquidity(sender common.Address, lower, upper int32, liquidity, amount0Min, amount1Min *uint256.Int, deadline uint64) (amount0, amount1 *uint256.Int, err error) {
	err = v.execute("add_liquidity", func() error {
		if err := v.onlyManager(sender); err != nil {
			return err
		}
		if v.env.Now() > deadline {
			return ErrTransactionExpired
		}
		if err := v.checkTicks(lower, upper); err != nil {
			return err
		}
		if err := v.checkLots(liquidity); err != nil {
			return err
		}
		if _, ok := v.st.positions.Find(lower, upper); !ok && v.st.positions.Len() >= v.st.rules.MaxPositions {
			return ErrPositionLengthExceedsLimit
		}

		before0, before1 := v.idle()
		if err := v.mint(lower, upper, liquidity); err != nil {
			return err
		}
		after0, after1 := v.idle()
		amount0, amount1 = delta(before0, after0), delta(before1, after1)
		if amount0.Lt(orZero(amount0Min)) || amount1.Lt(orZero(amount1Min)) {
			return ErrInvalidPriceSlippage
		}
		if err := v.st.positions.Add(lower, upper, liquidity, v.env.Now(), v.st.rules.MaxPositions); err != nil {
			return err
		}
		v.emit(model.EventAddLiquidity, model.LiquidityEventData{
			TickLower: lower,
			TickUpper: upper,
			Liquidity: dec(liquidity),
			Amount0:   dec(amount0),
			Amount1:   dec(amount1),
		})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return amount0, amount1, nil
}

// RemoveLiquidity harvests the position's rewards and burns liquidity from it.
func (v *Vault) RemoveLiquidity(sender common.Address, lower, upper int32, liquidity, amount0Min, amount1Min *uint256.Int, deadline uint64) (amount0, amount1 *uint256.Int, err error) {
	err = v.execute("remove_liquidity", func() error {
		if err := v.onlyManager(sender); err != nil {
			return err
		}
		if v.env.Now() > deadline {
			return ErrTransactionExpired
		}
		i, ok := v.st.positions.Find(lower, upper)
		if !ok {
			return ErrPositionDoesNotExist
		}
		if err := v.checkLots(liquidity); err != nil {
			return err
		}
		p, _ := v.st.positions.At(i)
		if p.Liquidity.Lt(liquidity) {
			return ErrInsufficientLiquidity
		}
		if p.locked(v.env.Now(), v.st.rules.JITWindow) {
			return ErrJITProtection
		}
		if _, _, err := v.harvest(lower, upper); err != nil {
			return err
		}
		amount0, amount1, err = v.burn(i, liquidity)
		if err != nil {
			return err
		}
		if amount0.Lt(orZero(amount0Min)) || amount1.Lt(orZero(amount1Min)) {
			return ErrInvalidPriceSlippage
		}
		v.emit(model.EventRemoveLiquidity, model.LiquidityEventData{
			TickLower: lower,
			TickUpper: upper,
			Liquidity: dec(liquidity),
			Amount0:   dec(amount0),
			Amount1:   dec(amount1),
		})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return amount0, amount1, nil
}

// CollectPositionSwapFee harvests the venue rewards of one position.
func (v *Vault) CollectPositionSwapFee(sender common.Address, lower, upper int32) (fee0, fee1 *uint256.Int, err error) {
	err = v.execute("collect_position_swap_fee", func() error {
		if err := v.onlyManager(sender); err != nil {
			return err
		}
		if _, ok := v.st.positions.Find(lower, upper); !ok {
			return ErrPositionDoesNotExist
		}
		fee0, fee1, err = v.harvest(lower, upper)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return fee0, fee1, nil
}

// CollectAllSwapFee harvests every open position.
func (v *Vault) CollectAllSwapFee(sender common.Address) (fee0, fee1 *uint256.Int, err error) {
	err = v.execute("collect_all_swap_fee", func() error {
		if err := v.onlyManager(sender); err != nil {
			return err
		}
		fee0, fee1 = new(uint256.Int), new(uint256.Int)
		for _, p := range v.GetAllPositions() {
			f0, f1, err := v.harvest(p.TickLower, p.TickUpper)
			if err != nil {
				return err
			}
			fee0.Add(fee0, f0)
			fee1.Add(fee1, f1)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return fee0, fee1, nil
}

func (v *Vault) checkTicks(lower, upper int32) error {
	tickSize, err := v.venue.Query.TickSize(v.asset0, v.asset1, v.poolIdx)
	if err != nil {
		return fmt.Errorf("tick size: %w", err)
	}
	if !clmath.ValidTicks(lower, upper, tickSize) {
		return ErrInvalidTickRange
	}
	return nil
}

func (v *Vault) checkLots(liquidity *uint256.Int) error {
	if liquidity == nil || liquidity.IsZero() {
		return ErrInvalidLiquidityAmount
	}
	if !new(uint256.Int).Mod(liquidity, uint256.NewInt(v.st.rules.LiquidityLot)).IsZero() {
		return ErrInvalidLiquidityAmount
	}
	return nil
}

// mint pays for liquidity from idle balances. The venue is approved for the
// rounded-up charge and the approvals are cleared afterwards.
func (v *Vault) mint(lower, upper int32, liquidity *uint256.Int) error {
	sqrtP, err := v.sqrtPrice()
	if err != nil {
		return err
	}
	sqrtLower, err := clmath.SqrtRatioAtTick(lower)
	if err != nil {
		return err
	}
	sqrtUpper, err := clmath.SqrtRatioAtTick(upper)
	if err != nil {
		return err
	}
	charge0, charge1, err := clmath.AmountsForLiquidity(sqrtP, sqrtLower, sqrtUpper, liquidity, true)
	if err != nil {
		return err
	}

	value := new(uint256.Int)
	for _, c := range []struct {
		asset  common.Address
		amount *uint256.Int
	}{{v.asset0, charge0}, {v.asset1, charge1}} {
		if chain.IsNative(c.asset) {
			value = c.amount
			continue
		}
		if err := v.env.Approve(c.asset, v.address, v.venue.Dex, c.amount); err != nil {
			return err
		}
	}
	if err := v.lpCall(v.venue.CallPaths.MintCode, lower, upper, liquidity, value); err != nil {
		return err
	}
	for _, asset := range []common.Address{v.asset0, v.asset1} {
		if chain.IsNative(asset) {
			continue
		}
		if err := v.env.Approve(asset, v.address, v.venue.Dex, nil); err != nil {
			return err
		}
	}
	return nil
}

// burn removes liquidity from the position at index i on the venue and in
// the book, returning the amounts received.
func (v *Vault) burn(i int, liquidity *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	p, ok := v.st.positions.At(i)
	if !ok {
		return nil, nil, ErrPositionDoesNotExist
	}
	before0, before1 := v.idle()
	if err := v.lpCall(v.venue.CallPaths.BurnCode, p.TickLower, p.TickUpper, liquidity, nil); err != nil {
		return nil, nil, err
	}
	after0, after1 := v.idle()
	if err := v.st.positions.Reduce(i, liquidity); err != nil {
		return nil, nil, err
	}
	return delta(after0, before0), delta(after1, before1), nil
}

// harvest collects pending venue rewards of a range into idle balances.
func (v *Vault) harvest(lower, upper int32) (*uint256.Int, *uint256.Int, error) {
	before0, before1 := v.idle()
	if err := v.lpCall(v.venue.CallPaths.HarvestCode, lower, upper, nil, nil); err != nil {
		return nil, nil, err
	}
	after0, after1 := v.idle()
	fee0, fee1 := delta(after0, before0), delta(after1, before1)
	if !fee0.IsZero() || !fee1.IsZero() {
		v.emit(model.EventCollectSwapFees, model.CollectEventData{
			TickLower: lower,
			TickUpper: upper,
			Amount0:   dec(fee0),
			Amount1:   dec(fee1),
		})
	}
	return fee0, fee1, nil
}

func (v *Vault) lpCall(code uint8, lower, upper int32, liquidity, value *uint256.Int) error {
	cmd := ambient.LPCommand{
		Code:        code,
		Base:        v.asset0,
		Quote:       v.asset1,
		PoolIdx:     v.poolIdx,
		BidTick:     lower,
		AskTick:     upper,
		Liquidity:   liquidity,
		LimitLower:  clmath.MinSqrtRatio,
		LimitHigher: clmath.MaxSqrtRatio,
	}
	body, err := cmd.Encode()
	if err != nil {
		return fmt.Errorf("encode lp command: %w", err)
	}
	data, err := ambient.PackUserCmd(v.venue.CallPaths.LPCallPath, body)
	if err != nil {
		return fmt.Errorf("pack userCmd: %w", err)
	}
	if _, err := v.env.Call(v.address, v.venue.Dex, data, value); err != nil {
		return fmt.Errorf("%w: %w", ErrExternalCall, err)
	}
	return nil
}

// delta returns from-to, or zero when the balance grew.
func delta(from, to *uint256.Int) *uint256.Int {
	if !from.Gt(to) {
		return new(uint256.Int)
	}
	return new(uint256.Int).Sub(from, to)
}
