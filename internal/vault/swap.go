package vault

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"liquidityVault/internal/chain"
	"liquidityVault/internal/model"
)

// ExecuteSwap runs an opaque call to target that is expected to swap up to
// amountIn of one asset for at least amountOutMin of the other. Only the
// vault's own balance changes are trusted.
func (v *Vault) ExecuteSwap(sender common.Address, zeroForOne bool, amountIn, amountOutMin *uint256.Int, target common.Address, callData []byte) (amountOut *uint256.Int, err error) {
	err = v.execute("execute_swap", func() error {
		if err := v.onlyManager(sender); err != nil {
			return err
		}
		if amountIn == nil || amountIn.IsZero() {
			return ErrInvalidSwapAmount
		}
		if err := v.checkSwapTarget(target); err != nil {
			return err
		}
		tokenIn, tokenOut := v.asset0, v.asset1
		if !zeroForOne {
			tokenIn, tokenOut = v.asset1, v.asset0
		}
		inBefore := v.env.BalanceOf(tokenIn, v.address)
		outBefore := v.env.BalanceOf(tokenOut, v.address)
		if inBefore.Lt(amountIn) {
			return ErrInvalidSwapAmount
		}

		if err := v.callSwap(tokenIn, tokenOut, amountIn, target, callData); err != nil {
			return err
		}

		inAfter := v.env.BalanceOf(tokenIn, v.address)
		outAfter := v.env.BalanceOf(tokenOut, v.address)
		consumed := delta(inBefore, inAfter)
		if consumed.Gt(amountIn) || outAfter.Lt(outBefore) {
			return ErrInvalidSwapAmount
		}
		amountOut = new(uint256.Int).Sub(outAfter, outBefore)
		if amountOut.Lt(orZero(amountOutMin)) {
			return ErrInvalidPriceSlippage
		}

		direction := "one_for_zero"
		if zeroForOne {
			direction = "zero_for_one"
		}
		v.emit(model.EventSwap, model.SwapEventData{
			ZeroForOne: zeroForOne,
			Target:     target.Hex(),
			AmountIn:   dec(consumed),
			AmountOut:  dec(amountOut),
		})
		v.afterCommit(func() {
			v.metrics.AddSwapInput(v.address.Hex(), direction, toFloat(consumed))
			v.logger.Debug("manager swap",
				zap.String("vault", v.address.Hex()),
				zap.String("target", target.Hex()),
				zap.String("direction", direction),
				zap.String("amount_in", dec(consumed)),
				zap.String("amount_out", dec(amountOut)),
			)
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return amountOut, nil
}

func (v *Vault) checkSwapTarget(target common.Address) error {
	switch target {
	case common.Address{}, v.asset0, v.asset1, v.address:
		return ErrInvalidSwapTarget
	}
	relayer := v.st.swapRelayer
	if relayer == (common.Address{}) && target == v.venue.Dex {
		return ErrInvalidSwapTarget
	}
	if relayer != (common.Address{}) && target == relayer {
		return ErrInvalidSwapTarget
	}
	return nil
}

// callSwap hands amountIn to the relayer when one is set. Without one the
// target gets a temporary allowance, or the native value directly.
func (v *Vault) callSwap(tokenIn, tokenOut common.Address, amountIn *uint256.Int, target common.Address, callData []byte) error {
	if relayer := v.st.swapRelayer; relayer != (common.Address{}) {
		if err := v.env.Transfer(tokenIn, v.address, relayer, amountIn); err != nil {
			return err
		}
		data, err := chain.PackRelayedSwap(tokenIn, tokenOut, amountIn, target, callData)
		if err != nil {
			return err
		}
		if _, err := v.env.Call(v.address, relayer, data, nil); err != nil {
			return fmt.Errorf("%w: %w", ErrExternalCall, err)
		}
		return nil
	}

	if chain.IsNative(tokenIn) {
		if _, err := v.env.Call(v.address, target, callData, amountIn); err != nil {
			return fmt.Errorf("%w: %w", ErrExternalCall, err)
		}
		return nil
	}
	if err := v.env.Approve(tokenIn, v.address, target, amountIn); err != nil {
		return err
	}
	if _, err := v.env.Call(v.address, target, callData, nil); err != nil {
		return fmt.Errorf("%w: %w", ErrExternalCall, err)
	}
	return v.env.Approve(tokenIn, v.address, target, nil)
}
