package clmath

import (
	"errors"

	"github.com/holiman/uint256"
)

// Tick bounds of the Ambient price grid. Ticks are 1bp apart and the sqrt
// price is a Q64.64 fixed point value.
const (
	MinTick int32 = -665454
	MaxTick int32 = 831818
)

var (
	ErrTickOutOfRange  = errors.New("clmath: tick out of range")
	ErrPriceOutOfRange = errors.New("clmath: sqrt price out of range")
	ErrInvalidRange    = errors.New("clmath: lower sqrt price must be below upper")
)

var (
	// MinSqrtRatio is SqrtRatioAtTick(MinTick).
	MinSqrtRatio = uint256.NewInt(65538)
	// MaxSqrtRatio is SqrtRatioAtTick(MaxTick).
	MaxSqrtRatio = mustDecimal("21267430153580247136652501917186561138")

	Q64  = new(uint256.Int).Lsh(uint256.NewInt(1), 64)
	Q128 = new(uint256.Int).Lsh(uint256.NewInt(1), 128)

	maxUint256 = new(uint256.Int).Not(new(uint256.Int))
	mask64     = new(uint256.Int).SetUint64(^uint64(0))
)

// tickFactors[i] is 2^128 / sqrt(1.0001)^(2^i) for the bit 1<<i of |tick|.
var tickFactors = []*uint256.Int{
	mustHex("0xfffcb933bd6fad37aa2d162d1a594001"),
	mustHex("0xfff97272373d413259a46990580e213a"),
	mustHex("0xfff2e50f5f656932ef12357cf3c7fdcc"),
	mustHex("0xffe5caca7e10e4e61c3624eaa0941cd0"),
	mustHex("0xffcb9843d60f6159c9db58835c926644"),
	mustHex("0xff973b41fa98c081472e6896dfb254c0"),
	mustHex("0xff2ea16466c96a3843ec78b326b52861"),
	mustHex("0xfe5dee046a99a2a811c461f1969c3053"),
	mustHex("0xfcbe86c7900a88aedcffc83b479aa3a4"),
	mustHex("0xf987a7253ac413176f2b074cf7815e54"),
	mustHex("0xf3392b0822b70005940c7a398e4b70f3"),
	mustHex("0xe7159475a2c29b7443b29c7fa6e889d9"),
	mustHex("0xd097f3bdfd2022b8845ad8f792aa5825"),
	mustHex("0xa9f746462d870fdf8a65dc1f90e061e5"),
	mustHex("0x70d869a156d2a1b890bb3df62baf32f7"),
	mustHex("0x31be135f97d08fd981231505542fcfa6"),
	mustHex("0x9aa508b5b7a84e1c677de54f3e99bc9"),
	mustHex("0x5d6af8dedb81196699c329225ee604"),
	mustHex("0x2216e584f5fa1ea926041bedfe98"),
	mustHex("0x48a170391f7dc42444e8fa2"),
}

// SqrtRatioAtTick returns sqrt(1.0001^tick) as a Q64.64 value, rounded up.
func SqrtRatioAtTick(tick int32) (*uint256.Int, error) {
	if tick < MinTick || tick > MaxTick {
		return nil, ErrTickOutOfRange
	}
	abs := uint32(tick)
	if tick < 0 {
		abs = uint32(-tick)
	}

	ratio := new(uint256.Int)
	if abs&1 != 0 {
		ratio.Set(tickFactors[0])
	} else {
		ratio.Set(Q128)
	}
	for i := 1; i < len(tickFactors); i++ {
		if abs&(1<<uint(i)) == 0 {
			continue
		}
		ratio.Mul(ratio, tickFactors[i])
		ratio.Rsh(ratio, 128)
	}
	if tick > 0 {
		ratio.Div(maxUint256, ratio)
	}

	rem := new(uint256.Int).And(ratio, mask64)
	ratio.Rsh(ratio, 64)
	if !rem.IsZero() {
		ratio.AddUint64(ratio, 1)
	}
	return ratio, nil
}

// TickAtSqrtRatio returns the greatest tick whose sqrt ratio does not exceed
// sqrtPrice.
func TickAtSqrtRatio(sqrtPrice *uint256.Int) (int32, error) {
	if sqrtPrice == nil || sqrtPrice.Lt(MinSqrtRatio) || !sqrtPrice.Lt(MaxSqrtRatio) {
		return 0, ErrPriceOutOfRange
	}
	lo, hi := MinTick, MaxTick
	for lo < hi {
		mid := lo + (hi-lo+1)/2
		ratio, err := SqrtRatioAtTick(mid)
		if err != nil {
			return 0, err
		}
		if ratio.Gt(sqrtPrice) {
			hi = mid - 1
		} else {
			lo = mid
		}
	}
	return lo, nil
}

// ValidTicks reports whether [lower, upper) is an ordered range on the grid
// of the given tick size.
func ValidTicks(lower, upper int32, tickSize uint16) bool {
	if lower >= upper || lower < MinTick || upper > MaxTick {
		return false
	}
	if tickSize == 0 {
		return true
	}
	return lower%int32(tickSize) == 0 && upper%int32(tickSize) == 0
}

func mustHex(s string) *uint256.Int {
	v, err := uint256.FromHex(s)
	if err != nil {
		panic(err)
	}
	return v
}

func mustDecimal(s string) *uint256.Int {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		panic(err)
	}
	return v
}
