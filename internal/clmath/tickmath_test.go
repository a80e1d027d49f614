package clmath

import (
	"testing"

	"github.com/holiman/uint256"
)

func TestSqrtRatioAtTickZero(t *testing.T) {
	got, err := SqrtRatioAtTick(0)
	if err != nil {
		t.Fatalf("SqrtRatioAtTick error: %v", err)
	}
	if !got.Eq(Q64) {
		t.Fatalf("unexpected ratio at tick 0: %s", got.Hex())
	}
}

func TestSqrtRatioAtTickBounds(t *testing.T) {
	if _, err := SqrtRatioAtTick(MinTick - 1); err != ErrTickOutOfRange {
		t.Fatalf("expected ErrTickOutOfRange below MinTick, got %v", err)
	}
	if _, err := SqrtRatioAtTick(MaxTick + 1); err != ErrTickOutOfRange {
		t.Fatalf("expected ErrTickOutOfRange above MaxTick, got %v", err)
	}
	lo, err := SqrtRatioAtTick(MinTick)
	if err != nil {
		t.Fatalf("min tick: %v", err)
	}
	hi, err := SqrtRatioAtTick(MaxTick)
	if err != nil {
		t.Fatalf("max tick: %v", err)
	}
	if lo.IsZero() || !lo.Lt(hi) {
		t.Fatalf("unexpected bounds %s %s", lo.Hex(), hi.Hex())
	}
}

func TestSqrtRatioMonotonic(t *testing.T) {
	ticks := []int32{-665454, -400000, -20000, -61, -1, 0, 1, 60, 20000, 400000, 831818}
	var prev *uint256.Int
	for _, tick := range ticks {
		got, err := SqrtRatioAtTick(tick)
		if err != nil {
			t.Fatalf("tick %d: %v", tick, err)
		}
		if prev != nil && !prev.Lt(got) {
			t.Fatalf("ratio not increasing at tick %d", tick)
		}
		prev = got
	}
}

func TestSqrtRatioReciprocal(t *testing.T) {
	tolerance := new(uint256.Int).Lsh(uint256.NewInt(1), 80)
	for _, tick := range []int32{1, 100, 5000, 100000} {
		up, _ := SqrtRatioAtTick(tick)
		down, _ := SqrtRatioAtTick(-tick)
		prod := new(uint256.Int).Mul(up, down)
		diff := new(uint256.Int)
		if prod.Gt(Q128) {
			diff.Sub(prod, Q128)
		} else {
			diff.Sub(Q128, prod)
		}
		if diff.Gt(tolerance) {
			t.Fatalf("tick %d: product deviates from 2^128 by %s", tick, diff.Hex())
		}
	}
}

func TestTickAtSqrtRatioRoundTrip(t *testing.T) {
	for _, tick := range []int32{-600000, -1000, -1, 0, 1, 1000, 600000} {
		ratio, err := SqrtRatioAtTick(tick)
		if err != nil {
			t.Fatalf("tick %d: %v", tick, err)
		}
		got, err := TickAtSqrtRatio(ratio)
		if err != nil {
			t.Fatalf("TickAtSqrtRatio(%d): %v", tick, err)
		}
		if got != tick {
			t.Fatalf("round trip mismatch: want %d got %d", tick, got)
		}

		next, _ := SqrtRatioAtTick(tick + 1)
		below := new(uint256.Int).SubUint64(next, 1)
		got, err = TickAtSqrtRatio(below)
		if err != nil {
			t.Fatalf("TickAtSqrtRatio below %d: %v", tick+1, err)
		}
		if got != tick {
			t.Fatalf("expected tick %d just below next tick, got %d", tick, got)
		}
	}
}

func TestTickAtSqrtRatioOutOfRange(t *testing.T) {
	if _, err := TickAtSqrtRatio(uint256.NewInt(1)); err != ErrPriceOutOfRange {
		t.Fatalf("expected ErrPriceOutOfRange, got %v", err)
	}
	if _, err := TickAtSqrtRatio(MaxSqrtRatio); err != ErrPriceOutOfRange {
		t.Fatalf("expected ErrPriceOutOfRange at max ratio, got %v", err)
	}
}

func TestValidTicks(t *testing.T) {
	cases := []struct {
		lower, upper int32
		size         uint16
		want         bool
	}{
		{-100, 100, 4, true},
		{-100, 100, 8, false},
		{100, 100, 4, false},
		{200, 100, 4, false},
		{MinTick - 2, 0, 1, false},
		{-3, 5, 0, true},
	}
	for _, tc := range cases {
		if got := ValidTicks(tc.lower, tc.upper, tc.size); got != tc.want {
			t.Fatalf("ValidTicks(%d, %d, %d) = %v, want %v", tc.lower, tc.upper, tc.size, got, tc.want)
		}
	}
}
