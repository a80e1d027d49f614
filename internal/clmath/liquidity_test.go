package clmath

import (
	"testing"

	"github.com/holiman/uint256"
)

func ratios(t *testing.T, ticks ...int32) []*uint256.Int {
	t.Helper()
	out := make([]*uint256.Int, 0, len(ticks))
	for _, tick := range ticks {
		r, err := SqrtRatioAtTick(tick)
		if err != nil {
			t.Fatalf("SqrtRatioAtTick(%d): %v", tick, err)
		}
		out = append(out, r)
	}
	return out
}

func absDiff(a, b *uint256.Int) *uint256.Int {
	if a.Gt(b) {
		return new(uint256.Int).Sub(a, b)
	}
	return new(uint256.Int).Sub(b, a)
}

func TestAmountsForLiquidityInRangeSymmetric(t *testing.T) {
	r := ratios(t, -1000, 0, 1000)
	liquidity := uint256.NewInt(1_000_000_000_000_000_000)

	a0, a1, err := AmountsForLiquidity(r[1], r[0], r[2], liquidity, false)
	if err != nil {
		t.Fatalf("AmountsForLiquidity: %v", err)
	}
	if a0.IsZero() || a1.IsZero() {
		t.Fatalf("expected both sides funded, got %s %s", a0, a1)
	}
	if absDiff(a0, a1).Gt(uint256.NewInt(10)) {
		t.Fatalf("expected symmetric amounts at unit price, got %s %s", a0, a1)
	}
}

func TestAmountsForLiquidityOutOfRange(t *testing.T) {
	r := ratios(t, -2000, -1000, 1000, 2000)
	liquidity := uint256.NewInt(1 << 40)

	a0, a1, err := AmountsForLiquidity(r[0], r[1], r[2], liquidity, false)
	if err != nil {
		t.Fatalf("below range: %v", err)
	}
	if !a0.IsZero() || a1.IsZero() {
		t.Fatalf("below range should hold only quote, got %s %s", a0, a1)
	}

	a0, a1, err = AmountsForLiquidity(r[3], r[1], r[2], liquidity, false)
	if err != nil {
		t.Fatalf("above range: %v", err)
	}
	if a0.IsZero() || !a1.IsZero() {
		t.Fatalf("above range should hold only base, got %s %s", a0, a1)
	}
}

func TestAmountsForLiquidityRounding(t *testing.T) {
	r := ratios(t, -887, 13, 1201)
	liquidity := uint256.NewInt(123_456_789_012_345)

	down0, down1, err := AmountsForLiquidity(r[1], r[0], r[2], liquidity, false)
	if err != nil {
		t.Fatalf("round down: %v", err)
	}
	up0, up1, err := AmountsForLiquidity(r[1], r[0], r[2], liquidity, true)
	if err != nil {
		t.Fatalf("round up: %v", err)
	}
	one := uint256.NewInt(1)
	if up0.Lt(down0) || absDiff(up0, down0).Gt(one) {
		t.Fatalf("base rounding off: down %s up %s", down0, up0)
	}
	if up1.Lt(down1) || absDiff(up1, down1).Gt(one) {
		t.Fatalf("quote rounding off: down %s up %s", down1, up1)
	}
}

func TestAmountsForLiquidityRejectsEmptyRange(t *testing.T) {
	r := ratios(t, 0)
	if _, _, err := AmountsForLiquidity(r[0], r[0], r[0], uint256.NewInt(1), false); err != ErrInvalidRange {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
}

func TestLiquidityForAmountsFitsCeilings(t *testing.T) {
	r := ratios(t, -3000, -250, 4100)
	liquidity := uint256.NewInt(987_654_321_000)

	need0, need1, err := AmountsForLiquidity(r[1], r[0], r[2], liquidity, true)
	if err != nil {
		t.Fatalf("AmountsForLiquidity: %v", err)
	}
	got, err := LiquidityForAmounts(r[1], r[0], r[2], need0, need1)
	if err != nil {
		t.Fatalf("LiquidityForAmounts: %v", err)
	}
	if absDiff(got, liquidity).Gt(uint256.NewInt(1_000)) {
		t.Fatalf("liquidity drifted: want ~%s got %s", liquidity, got)
	}

	charge0, charge1, err := AmountsForLiquidity(r[1], r[0], r[2], got, true)
	if err != nil {
		t.Fatalf("recharge: %v", err)
	}
	if charge0.Gt(need0) || charge1.Gt(need1) {
		t.Fatalf("rounded-up charge exceeds ceilings: %s/%s vs %s/%s", charge0, charge1, need0, need1)
	}
}

func TestLiquidityForAmountsSingleSided(t *testing.T) {
	r := ratios(t, -500, 100, 900)
	amount := uint256.NewInt(5_000_000)

	l, err := LiquidityForAmounts(r[0], r[1], r[2], new(uint256.Int), amount)
	if err != nil {
		t.Fatalf("below range: %v", err)
	}
	if l.IsZero() {
		t.Fatalf("expected liquidity from quote amount")
	}
	l, err = LiquidityForAmounts(r[0], r[1], r[2], amount, new(uint256.Int))
	if err != nil {
		t.Fatalf("below range base only: %v", err)
	}
	if !l.IsZero() {
		t.Fatalf("base amount cannot fund a range above price, got %s", l)
	}
}

func TestPriceConversionAtUnitPrice(t *testing.T) {
	amount := uint256.NewInt(42_000_000)
	base, err := QuoteToBase(amount, Q64)
	if err != nil || !base.Eq(amount) {
		t.Fatalf("QuoteToBase at unit price: %v %v", base, err)
	}
	quote, err := BaseToQuote(amount, Q64)
	if err != nil || !quote.Eq(amount) {
		t.Fatalf("BaseToQuote at unit price: %v %v", quote, err)
	}

	double := new(uint256.Int).Lsh(Q64, 1)
	base, err = QuoteToBase(amount, double)
	if err != nil || !base.Eq(uint256.NewInt(168_000_000)) {
		t.Fatalf("QuoteToBase at price 4: %v %v", base, err)
	}
}

func TestMulDivUp(t *testing.T) {
	got, err := MulDivUp(uint256.NewInt(10), uint256.NewInt(3), uint256.NewInt(4))
	if err != nil || !got.Eq(uint256.NewInt(8)) {
		t.Fatalf("MulDivUp(10,3,4) = %v %v", got, err)
	}
	if _, err := MulDiv(uint256.NewInt(1), uint256.NewInt(1), new(uint256.Int)); err != ErrDivisionByZero {
		t.Fatalf("expected ErrDivisionByZero, got %v", err)
	}
	if _, err := Sub(uint256.NewInt(1), uint256.NewInt(2)); err != ErrOverflow {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
}
