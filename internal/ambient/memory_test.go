package ambient

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"liquidityVault/internal/chain"
	"liquidityVault/internal/clmath"
)

var (
	testDex   = common.HexToAddress("0x00000000000000000000000000000000000000dd")
	testQuote = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	testUser  = common.HexToAddress("0x0000000000000000000000000000000000000a11")
)

const testPoolIdx uint64 = 420

func newTestVenue(t *testing.T) (*chain.Memory, *MemoryDex) {
	t.Helper()
	env := chain.NewMemory(1_700_000_000)
	env.RegisterToken(testQuote, chain.TokenInfo{Symbol: "USD", Decimals: 6})
	dex := NewMemoryDex(DefaultCallPaths())
	if err := dex.InitPool(chain.NativeAsset, testQuote, testPoolIdx, clmath.Q64, 4, 3000); err != nil {
		t.Fatalf("init pool: %v", err)
	}
	env.Deploy(testDex, dex)
	mustMint(t, env, chain.NativeAsset, testUser, 1_000_000_000)
	mustMint(t, env, testQuote, testUser, 1_000_000_000)
	return env, dex
}

func mustMint(t *testing.T, env *chain.Memory, asset, holder common.Address, amount uint64) {
	t.Helper()
	if err := env.Mint(asset, holder, uint256.NewInt(amount)); err != nil {
		t.Fatalf("mint: %v", err)
	}
}

func lpCall(t *testing.T, code uint8, lower, upper int32, liquidity uint64) []byte {
	t.Helper()
	body, err := LPCommand{
		Code:        code,
		Base:        chain.NativeAsset,
		Quote:       testQuote,
		PoolIdx:     testPoolIdx,
		BidTick:     lower,
		AskTick:     upper,
		Liquidity:   uint256.NewInt(liquidity),
		LimitLower:  clmath.MinSqrtRatio,
		LimitHigher: clmath.MaxSqrtRatio,
	}.Encode()
	if err != nil {
		t.Fatalf("encode lp: %v", err)
	}
	data, err := PackUserCmd(DefaultCallPaths().LPCallPath, body)
	if err != nil {
		t.Fatalf("pack lp: %v", err)
	}
	return data
}

func TestMemoryDexMintBurnHarvest(t *testing.T) {
	env, dex := newTestVenue(t)
	paths := DefaultCallPaths()
	liquidity := uint64(1024 * 1000)

	sqrtLower, _ := clmath.SqrtRatioAtTick(-100)
	sqrtUpper, _ := clmath.SqrtRatioAtTick(100)
	need0, need1, err := clmath.AmountsForLiquidity(clmath.Q64, sqrtLower, sqrtUpper, uint256.NewInt(liquidity), true)
	if err != nil {
		t.Fatalf("amounts: %v", err)
	}
	if err := env.Approve(testQuote, testUser, testDex, need1); err != nil {
		t.Fatalf("approve: %v", err)
	}

	value := new(uint256.Int).AddUint64(need0, 500)
	if _, err := env.Call(testUser, testDex, lpCall(t, paths.MintCode, -100, 100, liquidity), value); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if got := env.BalanceOf(chain.NativeAsset, testDex); !got.Eq(need0) {
		t.Fatalf("venue should keep exactly the base charge, got %s want %s", got, need0)
	}
	if got, _ := dex.RangeLiquidity(testUser, chain.NativeAsset, testQuote, testPoolIdx, -100, 100); !got.Eq(uint256.NewInt(liquidity)) {
		t.Fatalf("range liquidity mismatch: %s", got)
	}

	mustMint(t, env, testQuote, testDex, 700)
	if err := dex.AccrueRewards(testUser, chain.NativeAsset, testQuote, testPoolIdx, -100, 100, new(uint256.Int), uint256.NewInt(700)); err != nil {
		t.Fatalf("accrue: %v", err)
	}
	before := env.BalanceOf(testQuote, testUser)
	if _, err := env.Call(testUser, testDex, lpCall(t, paths.HarvestCode, -100, 100, 0), nil); err != nil {
		t.Fatalf("harvest: %v", err)
	}
	after := env.BalanceOf(testQuote, testUser)
	if got := new(uint256.Int).Sub(after, before); !got.Eq(uint256.NewInt(700)) {
		t.Fatalf("harvest paid %s, want 700", got)
	}

	if _, err := env.Call(testUser, testDex, lpCall(t, paths.BurnCode, -100, 100, liquidity), nil); err != nil {
		t.Fatalf("burn: %v", err)
	}
	if got, _ := dex.RangeLiquidity(testUser, chain.NativeAsset, testQuote, testPoolIdx, -100, 100); !got.IsZero() {
		t.Fatalf("range should be empty, got %s", got)
	}
	if got := env.BalanceOf(chain.NativeAsset, testDex); got.Gt(uint256.NewInt(1)) {
		t.Fatalf("venue should retain at most rounding dust, got %s", got)
	}
}

func TestMemoryDexRejectsOddLotsWithoutSideEffects(t *testing.T) {
	env, dex := newTestVenue(t)
	before := env.BalanceOf(chain.NativeAsset, testUser)

	_, err := env.Call(testUser, testDex, lpCall(t, DefaultCallPaths().MintCode, -100, 100, 1000), uint256.NewInt(1_000_000))
	if !errors.Is(err, ErrOddLots) {
		t.Fatalf("expected ErrOddLots, got %v", err)
	}
	if got := env.BalanceOf(chain.NativeAsset, testUser); !got.Eq(before) {
		t.Fatalf("failed call moved value: %s != %s", got, before)
	}
	if got, _ := dex.RangeLiquidity(testUser, chain.NativeAsset, testQuote, testPoolIdx, -100, 100); !got.IsZero() {
		t.Fatalf("failed call left liquidity: %s", got)
	}

	_, err = env.Call(testUser, testDex, lpCall(t, DefaultCallPaths().MintCode, -101, 100, 1024), uint256.NewInt(1_000_000))
	if !errors.Is(err, ErrBadTicks) {
		t.Fatalf("expected ErrBadTicks off the tick grid, got %v", err)
	}
}

func TestMemoryDexSwap(t *testing.T) {
	env, _ := newTestVenue(t)
	mustMint(t, env, testQuote, testDex, 10_000_000)

	body, err := SwapCommand{
		Base:      chain.NativeAsset,
		Quote:     testQuote,
		PoolIdx:   testPoolIdx,
		IsBuy:     true,
		InBaseQty: true,
		Qty:       uint256.NewInt(1_000_000),
		MinOut:    uint256.NewInt(990_000),
	}.Encode()
	if err != nil {
		t.Fatalf("encode swap: %v", err)
	}
	data, err := PackUserCmd(DefaultCallPaths().SwapCallPath, body)
	if err != nil {
		t.Fatalf("pack swap: %v", err)
	}

	before := env.BalanceOf(testQuote, testUser)
	if _, err := env.Call(testUser, testDex, data, uint256.NewInt(1_000_000)); err != nil {
		t.Fatalf("swap: %v", err)
	}
	received := new(uint256.Int).Sub(env.BalanceOf(testQuote, testUser), before)
	if !received.Eq(uint256.NewInt(997_000)) {
		t.Fatalf("unexpected swap output %s", received)
	}

	body, _ = SwapCommand{
		Base:      chain.NativeAsset,
		Quote:     testQuote,
		PoolIdx:   testPoolIdx,
		IsBuy:     true,
		InBaseQty: true,
		Qty:       uint256.NewInt(1_000_000),
		MinOut:    uint256.NewInt(999_000),
	}.Encode()
	data, _ = PackUserCmd(DefaultCallPaths().SwapCallPath, body)
	if _, err := env.Call(testUser, testDex, data, uint256.NewInt(1_000_000)); !errors.Is(err, ErrSwapSlippage) {
		t.Fatalf("expected ErrSwapSlippage, got %v", err)
	}
}
