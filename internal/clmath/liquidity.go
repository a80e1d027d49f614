package clmath

import "github.com/holiman/uint256"

// AmountsForLiquidity converts liquidity in the range [sqrtA, sqrtB] to the
// base (amount0) and quote (amount1) amounts at the current sqrt price. The
// base side scales with L*sqrtP and the quote side with L/sqrtP. Valuation
// rounds down; charging a mint rounds up.
func AmountsForLiquidity(sqrtP, sqrtA, sqrtB, liquidity *uint256.Int, roundUp bool) (amount0, amount1 *uint256.Int, err error) {
	lo, hi := sqrtA, sqrtB
	if lo.Gt(hi) {
		lo, hi = hi, lo
	}
	if lo.Eq(hi) {
		return nil, nil, ErrInvalidRange
	}

	switch {
	case !sqrtP.Gt(lo):
		amount0 = new(uint256.Int)
		amount1, err = quoteDelta(lo, hi, liquidity, roundUp)
	case !sqrtP.Lt(hi):
		amount0, err = baseDelta(lo, hi, liquidity, roundUp)
		amount1 = new(uint256.Int)
	default:
		amount0, err = baseDelta(lo, sqrtP, liquidity, roundUp)
		if err != nil {
			return nil, nil, err
		}
		amount1, err = quoteDelta(sqrtP, hi, liquidity, roundUp)
	}
	if err != nil {
		return nil, nil, err
	}
	return amount0, amount1, nil
}

// LiquidityForAmounts returns liquidity for the given amount ceilings. Every
// step floors, so the rounded-up charge for the result never exceeds either
// ceiling.
func LiquidityForAmounts(sqrtP, sqrtA, sqrtB, amount0, amount1 *uint256.Int) (*uint256.Int, error) {
	lo, hi := sqrtA, sqrtB
	if lo.Gt(hi) {
		lo, hi = hi, lo
	}
	if lo.Eq(hi) {
		return nil, ErrInvalidRange
	}

	switch {
	case !sqrtP.Gt(lo):
		return liquidityForQuote(lo, hi, amount1)
	case !sqrtP.Lt(hi):
		return liquidityForBase(lo, hi, amount0)
	default:
		l0, err := liquidityForBase(lo, sqrtP, amount0)
		if err != nil {
			return nil, err
		}
		l1, err := liquidityForQuote(sqrtP, hi, amount1)
		if err != nil {
			return nil, err
		}
		return Min(l0, l1), nil
	}
}

// baseDelta is L*(hi-lo)/2^64.
func baseDelta(lo, hi, liquidity *uint256.Int, roundUp bool) (*uint256.Int, error) {
	diff := new(uint256.Int).Sub(hi, lo)
	if roundUp {
		return MulDivUp(liquidity, diff, Q64)
	}
	return MulDiv(liquidity, diff, Q64)
}

// quoteDelta is L*2^64*(hi-lo)/(lo*hi).
func quoteDelta(lo, hi, liquidity *uint256.Int, roundUp bool) (*uint256.Int, error) {
	diff := new(uint256.Int).Sub(hi, lo)
	scaled, err := Mul(liquidity, Q64)
	if err != nil {
		return nil, err
	}
	if roundUp {
		t, err := MulDivUp(scaled, diff, hi)
		if err != nil {
			return nil, err
		}
		return DivUp(t, lo)
	}
	t, err := MulDiv(scaled, diff, hi)
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).Div(t, lo), nil
}

func liquidityForBase(lo, hi, amount0 *uint256.Int) (*uint256.Int, error) {
	diff := new(uint256.Int).Sub(hi, lo)
	return MulDiv(amount0, Q64, diff)
}

func liquidityForQuote(lo, hi, amount1 *uint256.Int) (*uint256.Int, error) {
	diff := new(uint256.Int).Sub(hi, lo)
	prod, err := MulDiv(lo, hi, Q64)
	if err != nil {
		return nil, err
	}
	return MulDiv(amount1, prod, diff)
}
