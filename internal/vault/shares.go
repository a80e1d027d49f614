package vault

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"liquidityVault/internal/chain"
	"liquidityVault/internal/clmath"
	"liquidityVault/internal/model"
)

// Deposit mints shares to sender against a proportional slice of every vault
// asset plus the entry fee. value is the native currency sent along; only the
// required part of it is taken.
func (v *Vault) Deposit(sender common.Address, value, shares, amount0Max, amount1Max *uint256.Int) (amount0, amount1 *uint256.Int, err error) {
	err = v.execute("deposit", func() error {
		if shares == nil || shares.IsZero() {
			return ErrInvalidShareAmount
		}
		if sender == (common.Address{}) {
			return ErrInvalidAddress
		}
		if err := v.collectManagementFee(); err != nil {
			return err
		}

		var err error
		if v.st.totalSupply.IsZero() {
			amount0, err = clmath.DivUp(shares, clmath.Pow10(v.decimalOffset))
			if err != nil {
				return err
			}
			amount1 = new(uint256.Int)
		} else {
			total0, total1, err := v.underlying()
			if err != nil {
				return err
			}
			if amount0, err = clmath.MulDivUp(total0, shares, v.st.totalSupply); err != nil {
				return err
			}
			if amount1, err = clmath.MulDivUp(total1, shares, v.st.totalSupply); err != nil {
				return err
			}
		}

		fee0, err := v.entryFee(amount0)
		if err != nil {
			return err
		}
		fee1, err := v.entryFee(amount1)
		if err != nil {
			return err
		}
		pay0, err := clmath.Add(amount0, fee0)
		if err != nil {
			return err
		}
		pay1, err := clmath.Add(amount1, fee1)
		if err != nil {
			return err
		}
		if pay0.Gt(orZero(amount0Max)) || pay1.Gt(orZero(amount1Max)) {
			return ErrInvalidPriceSlippage
		}
		if chain.IsNative(v.asset0) && orZero(value).Lt(pay0) {
			return ErrInsufficientValue
		}

		if err := v.pull(v.asset0, sender, amount0, fee0); err != nil {
			return err
		}
		if err := v.pull(v.asset1, sender, amount1, fee1); err != nil {
			return err
		}
		if err := v.st.mint(sender, shares); err != nil {
			return err
		}
		v.emit(model.EventDeposit, model.DepositEventData{
			Sender:    sender.Hex(),
			Shares:    dec(shares),
			Amount0:   dec(amount0),
			Amount1:   dec(amount1),
			EntryFee0: dec(fee0),
			EntryFee1: dec(fee1),
		})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return amount0, amount1, nil
}

// Withdraw burns shares from sender and pays out the proportional assets.
// The exit fee part of shares goes to the treasury instead of being redeemed.
func (v *Vault) Withdraw(sender common.Address, shares, amount0Min, amount1Min *uint256.Int) (amount0, amount1 *uint256.Int, err error) {
	err = v.execute("withdraw", func() error {
		if shares == nil || shares.IsZero() {
			return ErrInvalidShareAmount
		}
		if err := v.collectManagementFee(); err != nil {
			return err
		}
		if v.st.balanceOf(sender).Lt(shares) {
			return ErrInsufficientShares
		}

		exitShares, err := v.exitFeeShares(shares)
		if err != nil {
			return err
		}
		net := new(uint256.Int).Sub(shares, exitShares)
		supply := v.st.totalSupply.Clone()
		total0, total1, err := v.underlying()
		if err != nil {
			return err
		}
		want0, err := clmath.MulDiv(total0, net, supply)
		if err != nil {
			return err
		}
		want1, err := clmath.MulDiv(total1, net, supply)
		if err != nil {
			return err
		}

		if err := v.st.move(sender, v.st.feeConfig.Treasury, exitShares); err != nil {
			return err
		}
		if err := v.st.burn(sender, net); err != nil {
			return err
		}
		if !exitShares.IsZero() {
			v.afterCommit(func() {
				v.metrics.AddFeeShares(v.address.Hex(), "exit", toFloat(exitShares))
			})
		}

		amount0, amount1, err = v.drawDown(want0, want1)
		if err != nil {
			return err
		}
		if amount0.Lt(orZero(amount0Min)) || amount1.Lt(orZero(amount1Min)) {
			return ErrInvalidPriceSlippage
		}
		if err := v.env.Transfer(v.asset0, v.address, sender, amount0); err != nil {
			return err
		}
		if err := v.env.Transfer(v.asset1, v.address, sender, amount1); err != nil {
			return err
		}
		v.emit(model.EventWithdraw, model.WithdrawEventData{
			Sender:        sender.Hex(),
			Shares:        dec(shares),
			ExitFeeShares: dec(exitShares),
			Amount0:       dec(amount0),
			Amount1:       dec(amount1),
		})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return amount0, amount1, nil
}

// Transfer moves shares between holders.
func (v *Vault) Transfer(from, to common.Address, shares *uint256.Int) error {
	return v.execute("transfer", func() error {
		if to == (common.Address{}) {
			return ErrInvalidAddress
		}
		if shares == nil {
			return ErrInvalidShareAmount
		}
		if err := v.st.move(from, to, shares); err != nil {
			return err
		}
		v.emit(model.EventShareTransfer, model.ShareTransferEventData{
			From:   from.Hex(),
			To:     to.Hex(),
			Shares: dec(shares),
		})
		return nil
	})
}

func (v *Vault) pull(asset, from common.Address, amount, fee *uint256.Int) error {
	treasury := v.st.feeConfig.Treasury
	if chain.IsNative(asset) {
		if err := v.env.Transfer(asset, from, v.address, amount); err != nil {
			return err
		}
		return v.env.Transfer(asset, from, treasury, fee)
	}
	if err := v.env.TransferFrom(asset, v.address, from, v.address, amount); err != nil {
		return err
	}
	return v.env.TransferFrom(asset, v.address, from, treasury, fee)
}

// drawDown makes want0/want1 available as idle balances. Idle funds are used
// first, then positions in index order: each is harvested, then burned by
// just enough liquidity, rounded up to the lot, to cover what is missing.
// Venue rounding can leave a few units short, so the result is clamped to
// what is idle.
func (v *Vault) drawDown(want0, want1 *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	var sqrtP *uint256.Int
	for i := 0; i < v.st.positions.Len(); {
		idle0, idle1 := v.idle()
		if !want0.Gt(idle0) && !want1.Gt(idle1) {
			break
		}
		p, _ := v.st.positions.At(i)
		if _, _, err := v.harvest(p.TickLower, p.TickUpper); err != nil {
			return nil, nil, err
		}
		idle0, idle1 = v.idle()
		short0, short1 := delta(want0, idle0), delta(want1, idle1)
		if short0.IsZero() && short1.IsZero() {
			break
		}
		if sqrtP == nil {
			var err error
			if sqrtP, err = v.sqrtPrice(); err != nil {
				return nil, nil, err
			}
		}
		liquidity, err := v.liquidityToCover(sqrtP, p, short0, short1)
		if err != nil {
			return nil, nil, err
		}
		if liquidity.IsZero() {
			i++
			continue
		}
		got0, got1, err := v.burn(i, liquidity)
		if err != nil {
			return nil, nil, err
		}
		v.emit(model.EventRemoveLiquidity, model.LiquidityEventData{
			TickLower: p.TickLower,
			TickUpper: p.TickUpper,
			Liquidity: dec(liquidity),
			Amount0:   dec(got0),
			Amount1:   dec(got1),
		})
		if liquidity.Eq(p.Liquidity) {
			continue
		}
		i++
	}
	idle0, idle1 := v.idle()
	return clmath.Min(want0, idle0), clmath.Min(want1, idle1), nil
}

func (v *Vault) liquidityToCover(sqrtP *uint256.Int, p Position, short0, short1 *uint256.Int) (*uint256.Int, error) {
	held0, held1, err := positionAmounts(sqrtP, p.TickLower, p.TickUpper, p.Liquidity)
	if err != nil {
		return nil, err
	}
	need := new(uint256.Int)
	for _, side := range [][2]*uint256.Int{{short0, held0}, {short1, held1}} {
		short, held := side[0], side[1]
		if short.IsZero() || held.IsZero() {
			continue
		}
		if !short.Lt(held) {
			return p.Liquidity.Clone(), nil
		}
		n, err := clmath.MulDivUp(p.Liquidity, short, held)
		if err != nil {
			return nil, err
		}
		if n.Gt(need) {
			need = n
		}
	}
	if need.IsZero() {
		return need, nil
	}
	lot := uint256.NewInt(v.st.rules.LiquidityLot)
	lots, err := clmath.DivUp(need, lot)
	if err != nil {
		return nil, err
	}
	need = new(uint256.Int).Mul(lots, lot)
	return clmath.Min(need, p.Liquidity), nil
}
