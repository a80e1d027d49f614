package vault

import (
	"math"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"liquidityVault/internal/ambient"
	"liquidityVault/internal/chain"
	"liquidityVault/internal/clmath"
	"liquidityVault/internal/metrics"
	"liquidityVault/internal/model"
)

var (
	testQuote    = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	testDex      = common.HexToAddress("0x00000000000000000000000000000000000000dd")
	testVault    = common.HexToAddress("0x000000000000000000000000000000000000a017")
	testFactory  = common.HexToAddress("0x000000000000000000000000000000000000fac7")
	testOwner    = common.HexToAddress("0x0000000000000000000000000000000000000001")
	testManager  = common.HexToAddress("0x0000000000000000000000000000000000000002")
	testTreasury = common.HexToAddress("0x0000000000000000000000000000000000000003")
	testAlice    = common.HexToAddress("0x0000000000000000000000000000000000000a11")
	testBob      = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	testRelayer  = common.HexToAddress("0x00000000000000000000000000000000000000e1")
)

const (
	testPoolIdx uint64 = 420
	testStart   uint64 = 1_700_000_000
	ether       uint64 = 1_000_000_000_000_000_000
)

type recordingSink struct {
	events []model.VaultEvent
}

func (s *recordingSink) PutEvents(events []model.VaultEvent) error {
	s.events = append(s.events, events...)
	return nil
}

func (s *recordingSink) names() []string {
	out := make([]string, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.EventName)
	}
	return out
}

type fixture struct {
	env   *chain.Memory
	dex   *ambient.MemoryDex
	vault *Vault
	sink  *recordingSink
}

func newFixture(t *testing.T, fees FeeConfig) *fixture {
	t.Helper()
	env := chain.NewMemory(testStart)
	env.RegisterToken(testQuote, chain.TokenInfo{Symbol: "USD", Decimals: 18})
	dex := ambient.NewMemoryDex(ambient.DefaultCallPaths())
	require.NoError(t, dex.InitPool(chain.NativeAsset, testQuote, testPoolIdx, clmath.Q64, 4, 3000))
	env.Deploy(testDex, dex)
	env.Deploy(testRelayer, chain.SwapRelayer{})

	funds := new(uint256.Int).Mul(u(100), u(ether))
	for _, holder := range []common.Address{testAlice, testBob} {
		require.NoError(t, env.Mint(chain.NativeAsset, holder, funds))
		require.NoError(t, env.Mint(testQuote, holder, funds))
	}

	v, err := New(env, Config{
		Address:   testVault,
		Factory:   testFactory,
		Name:      "Vault Share",
		Symbol:    "VS",
		Asset0:    chain.NativeAsset,
		Asset1:    testQuote,
		PoolIdx:   testPoolIdx,
		Owner:     testOwner,
		Manager:   testManager,
		FeeCap:    FeeMultiplier,
		FeeConfig: fees,
		Venue: Venue{
			Dex:       testDex,
			Query:     dex,
			CallPaths: ambient.DefaultCallPaths(),
		},
		Rules: DefaultRules(),
	}, zap.NewNop())
	require.NoError(t, err)
	sink := &recordingSink{}
	v.SetEventSink(sink)
	return &fixture{env: env, dex: dex, vault: v, sink: sink}
}

func u(x uint64) *uint256.Int {
	return uint256.NewInt(x)
}

// seed deposits amount of native for alice and donates the same amount of
// the quote token so the vault holds both assets.
func (f *fixture) seed(t *testing.T, amount uint64) {
	t.Helper()
	_, _, err := f.vault.Deposit(testAlice, u(amount), u(amount), u(amount), u(0))
	require.NoError(t, err)
	require.NoError(t, f.env.Mint(testQuote, testVault, u(amount)))
}

func (f *fixture) addRange(t *testing.T, lower, upper int32) *uint256.Int {
	t.Helper()
	liquidity := u(1024 * 1_000_000_000)
	_, _, err := f.vault.AddLiquidity(testManager, lower, upper, liquidity, u(0), u(0), f.env.Now())
	require.NoError(t, err)
	return liquidity
}

// addShare puts up to amount of each asset into [lower, upper).
func (f *fixture) addShare(t *testing.T, lower, upper int32, amount uint64) {
	t.Helper()
	liquidity, err := f.vault.GetLiquidityForAmounts(lower, upper, u(amount), u(amount))
	require.NoError(t, err)
	lot := u(1024)
	liquidity.Mul(new(uint256.Int).Div(liquidity, lot), lot)
	_, _, err = f.vault.AddLiquidity(testManager, lower, upper, liquidity, u(0), u(0), f.env.Now())
	require.NoError(t, err)
}

func TestNewRejectsBadConfig(t *testing.T) {
	f := newFixture(t, FeeConfig{})
	base := Config{
		Address: testVault,
		Asset0:  chain.NativeAsset,
		Asset1:  testQuote,
		PoolIdx: testPoolIdx,
		Owner:   testOwner,
		Manager: testManager,
		FeeCap:  FeeMultiplier,
		Venue:   Venue{Dex: testDex, Query: f.dex, CallPaths: ambient.DefaultCallPaths()},
		Rules:   DefaultRules(),
	}

	swapped := base
	swapped.Asset0, swapped.Asset1 = testQuote, chain.NativeAsset
	_, err := New(f.env, swapped, nil)
	require.ErrorIs(t, err, ErrInvalidAssetOrder)

	noPool := base
	noPool.PoolIdx = 7
	_, err = New(f.env, noPool, nil)
	require.ErrorIs(t, err, ambient.ErrUnknownPool)

	noManager := base
	noManager.Manager = common.Address{}
	_, err = New(f.env, noManager, nil)
	require.ErrorIs(t, err, ErrInvalidAddress)

	badRules := base
	badRules.Rules.MaxPositions = 0
	_, err = New(f.env, badRules, nil)
	require.ErrorIs(t, err, ErrInvalidRules)
}

func TestBootstrapDepositWithdrawNative(t *testing.T) {
	f := newFixture(t, FeeConfig{})
	aliceBefore := f.env.BalanceOf(chain.NativeAsset, testAlice)

	amount0, amount1, err := f.vault.Deposit(testAlice, u(2*ether), u(ether), u(ether), u(0))
	require.NoError(t, err)
	require.Equal(t, u(ether), amount0)
	require.True(t, amount1.IsZero())
	require.Equal(t, u(ether), f.vault.TotalSupply())
	require.Equal(t, u(ether), f.vault.BalanceOf(testAlice))
	require.Equal(t, u(ether), f.env.BalanceOf(chain.NativeAsset, testVault))
	require.Equal(t, uint8(18), f.vault.Decimals())

	amount0, amount1, err = f.vault.Withdraw(testAlice, u(ether), u(ether), u(0))
	require.NoError(t, err)
	require.Equal(t, u(ether), amount0)
	require.True(t, amount1.IsZero())
	require.True(t, f.vault.TotalSupply().IsZero())
	require.True(t, f.env.BalanceOf(chain.NativeAsset, testVault).IsZero())
	require.Equal(t, aliceBefore, f.env.BalanceOf(chain.NativeAsset, testAlice))
	require.Equal(t, []string{model.EventDeposit, model.EventWithdraw}, f.sink.names())
	require.Equal(t, uint64(2), f.sink.events[1].Seq)
}

func TestDepositDecimalOffset(t *testing.T) {
	f := newFixture(t, FeeConfig{})
	f.vault.decimalOffset = 3
	f.vault.decimals = 21

	amount0, _, err := f.vault.Deposit(testAlice, u(ether), u(1001), u(ether), u(0))
	require.NoError(t, err)
	require.Equal(t, u(2), amount0)
}

func TestDepositValidation(t *testing.T) {
	f := newFixture(t, FeeConfig{})

	_, _, err := f.vault.Deposit(testAlice, u(ether), u(0), u(ether), u(0))
	require.ErrorIs(t, err, ErrInvalidShareAmount)

	_, _, err = f.vault.Deposit(testAlice, u(ether-1), u(ether), u(ether), u(0))
	require.ErrorIs(t, err, ErrInsufficientValue)

	_, _, err = f.vault.Deposit(testAlice, u(ether), u(ether), u(ether-1), u(0))
	require.ErrorIs(t, err, ErrInvalidPriceSlippage)

	require.True(t, f.vault.TotalSupply().IsZero())
	require.True(t, f.env.BalanceOf(chain.NativeAsset, testVault).IsZero())
	require.Empty(t, f.sink.events)
}

func TestProportionalDepositPullsBothAssets(t *testing.T) {
	f := newFixture(t, FeeConfig{})
	f.seed(t, ether)

	require.NoError(t, f.env.Approve(testQuote, testBob, testVault, u(ether)))
	amount0, amount1, err := f.vault.Deposit(testBob, u(ether), u(ether/2), u(ether/2), u(ether/2))
	require.NoError(t, err)
	require.Equal(t, u(ether/2), amount0)
	require.Equal(t, u(ether/2), amount1)
	require.Equal(t, u(ether/2), f.vault.BalanceOf(testBob))

	total0, total1, err := f.vault.VaultAllUnderlyingAssets()
	require.NoError(t, err)
	require.Equal(t, u(ether+ether/2), total0)
	require.Equal(t, u(ether+ether/2), total1)

	require.NoError(t, f.env.Approve(testQuote, testBob, testVault, u(0)))
	_, _, err = f.vault.Deposit(testBob, u(ether), u(ether/2), u(ether/2), u(ether/2))
	require.ErrorIs(t, err, chain.ErrInsufficientAllowance)
	require.Equal(t, u(ether/2), f.vault.BalanceOf(testBob))
}

func TestFeesScenario(t *testing.T) {
	fees := FeeConfig{
		Treasury:      testTreasury,
		EntryFee:      1000,
		ExitFee:       2000,
		ManagementFee: 10000,
	}
	f := newFixture(t, fees)
	x := u(ether)
	required := u(ether + ether/1000)

	_, _, err := f.vault.Deposit(testAlice, required, x, new(uint256.Int).SubUint64(required, 1), u(0))
	require.ErrorIs(t, err, ErrInvalidPriceSlippage)

	amount0, _, err := f.vault.Deposit(testAlice, required, x, required, u(0))
	require.NoError(t, err)
	require.Equal(t, x, amount0)
	require.Equal(t, u(ether/1000), f.env.BalanceOf(chain.NativeAsset, testTreasury))
	require.Equal(t, x, f.env.BalanceOf(chain.NativeAsset, testVault))

	const elapsed = 30 * 24 * 3600
	f.env.Advance(elapsed)
	mgmt, err := managementFeeShares(x, fees.ManagementFee, elapsed)
	require.NoError(t, err)
	require.False(t, mgmt.IsZero())
	exitShares := u(ether / FeeMultiplier * 2000)

	amount0, _, err = f.vault.Withdraw(testAlice, x, u(0), u(0))
	require.NoError(t, err)

	require.Equal(t, new(uint256.Int).Add(mgmt, exitShares), f.vault.TotalSupply())
	require.Equal(t, new(uint256.Int).Add(mgmt, exitShares), f.vault.BalanceOf(testTreasury))
	require.True(t, f.vault.BalanceOf(testAlice).IsZero())
	require.Equal(t, testStart+elapsed, f.vault.LastCollectManagementFee())

	net := new(uint256.Int).Sub(x, exitShares)
	want, err := clmath.MulDiv(x, net, new(uint256.Int).Add(x, mgmt))
	require.NoError(t, err)
	require.Equal(t, want, amount0)
}

func TestManagementFeeAccruesOnlyWithTime(t *testing.T) {
	f := newFixture(t, FeeConfig{Treasury: testTreasury, ManagementFee: 20000})
	f.seed(t, ether)

	require.NoError(t, f.vault.CollectManagementFee())
	require.True(t, f.vault.BalanceOf(testTreasury).IsZero())

	f.env.Advance(3600)
	require.NoError(t, f.vault.CollectManagementFee())
	first := f.vault.BalanceOf(testTreasury)
	require.False(t, first.IsZero())

	require.NoError(t, f.vault.CollectManagementFee())
	require.Equal(t, first, f.vault.BalanceOf(testTreasury))
}

func TestSetFeeConfig(t *testing.T) {
	f := newFixture(t, FeeConfig{Treasury: testTreasury, ManagementFee: 10000})
	f.seed(t, ether)
	prev := f.vault.FeeConfig()

	err := f.vault.SetFeeConfig(testAlice, FeeConfig{Treasury: testTreasury})
	require.ErrorIs(t, err, ErrCallerIsNotOwner)

	for _, bad := range []FeeConfig{
		{Treasury: testTreasury, EntryFee: MaxEntryFee + 1},
		{Treasury: testTreasury, ExitFee: MaxExitFee + 1},
		{Treasury: testTreasury, PerformanceFee: MaxPerformanceFee + 1},
		{Treasury: testTreasury, ManagementFee: MaxManagementFee + 1},
	} {
		require.ErrorIs(t, f.vault.SetFeeConfig(testOwner, bad), ErrInvalidFeePercentage)
		require.Equal(t, prev, f.vault.FeeConfig())
	}
	require.ErrorIs(t, f.vault.SetFeeConfig(testOwner, FeeConfig{EntryFee: 1}), ErrInvalidTreasury)

	f.env.Advance(86400)
	next := FeeConfig{Treasury: testTreasury, EntryFee: 500, ExitFee: 500, PerformanceFee: 100000}
	require.NoError(t, f.vault.SetFeeConfig(testOwner, next))
	require.Equal(t, next, f.vault.FeeConfig())
	require.False(t, f.vault.BalanceOf(testTreasury).IsZero(), "old rate settles before the change")
	require.Equal(t, testStart+86400, f.vault.LastCollectManagementFee())
}

func TestFeeCapBoundsCombinedRates(t *testing.T) {
	cfg := FeeConfig{Treasury: testTreasury, EntryFee: 300_000, ExitFee: 300_000}
	require.ErrorIs(t, cfg.Validate(500_000), ErrInvalidFeePercentage)
	cfg.ExitFee = 200_000
	require.NoError(t, cfg.Validate(500_000))
	require.ErrorIs(t, FeeConfig{Treasury: testTreasury, ManagementFee: 600_000}.Validate(500_000), ErrInvalidFeePercentage)
	require.NoError(t, FeeConfig{}.Validate(0))
}

func TestAddRemoveLiquidityWithJITGuard(t *testing.T) {
	f := newFixture(t, FeeConfig{})
	f.seed(t, ether)
	idle0, idle1 := f.vault.idle()

	liquidity := f.addRange(t, -100, 100)
	require.Len(t, f.vault.GetAllPositions(), 1)
	pos, err := f.vault.Positions(0)
	require.NoError(t, err)
	require.Equal(t, liquidity, pos.Liquidity)
	require.Equal(t, testStart, pos.CreatedAt)

	after0, after1 := f.vault.idle()
	require.True(t, after0.Lt(idle0))
	require.True(t, after1.Lt(idle1))

	total0, total1, err := f.vault.VaultAllUnderlyingAssets()
	require.NoError(t, err)
	a0, a1, err := f.vault.GetAmountsForLiquidity(-100, 100, liquidity)
	require.NoError(t, err)
	require.Equal(t, new(uint256.Int).Add(after0, a0), total0)
	require.Equal(t, new(uint256.Int).Add(after1, a1), total1)

	deadline := f.env.Now() + 3600
	_, _, err = f.vault.RemoveLiquidity(testManager, -100, 100, liquidity, u(0), u(0), deadline)
	require.ErrorIs(t, err, ErrJITProtection)

	f.env.Advance(DefaultRules().JITWindow - 1)
	_, _, err = f.vault.RemoveLiquidity(testManager, -100, 100, liquidity, u(0), u(0), deadline)
	require.ErrorIs(t, err, ErrJITProtection)

	f.env.Advance(1)
	_, _, err = f.vault.RemoveLiquidity(testManager, -100, 100, liquidity, a0, new(uint256.Int).AddUint64(a1, 1), deadline)
	require.ErrorIs(t, err, ErrInvalidPriceSlippage)

	got0, got1, err := f.vault.RemoveLiquidity(testManager, -100, 100, liquidity, a0, a1, deadline)
	require.NoError(t, err)
	require.Equal(t, a0, got0)
	require.Equal(t, a1, got1)
	require.Empty(t, f.vault.GetAllPositions())
}

func TestJITGuardHoldsForHugeWindows(t *testing.T) {
	f := newFixture(t, FeeConfig{})
	f.seed(t, ether)
	rules := DefaultRules()
	rules.Version = 2
	rules.JITWindow = math.MaxUint64
	require.NoError(t, f.vault.Migrate(testFactory, rules))

	liquidity := f.addRange(t, -100, 100)
	deadline := f.env.Now() + 3600
	_, _, err := f.vault.RemoveLiquidity(testManager, -100, 100, liquidity, u(0), u(0), deadline)
	require.ErrorIs(t, err, ErrJITProtection)

	f.env.Advance(30 * 24 * 3600)
	_, _, err = f.vault.RemoveLiquidity(testManager, -100, 100, liquidity, u(0), u(0), f.env.Now()+3600)
	require.ErrorIs(t, err, ErrJITProtection)
	require.Len(t, f.vault.GetAllPositions(), 1)
}

func TestLiquidityValidation(t *testing.T) {
	f := newFixture(t, FeeConfig{})
	f.seed(t, ether)
	now := f.env.Now()
	lots := u(1024 * 1000)

	_, _, err := f.vault.AddLiquidity(testAlice, -100, 100, lots, u(0), u(0), now)
	require.ErrorIs(t, err, ErrCallerIsNotManager)

	_, _, err = f.vault.AddLiquidity(testManager, -100, 100, lots, u(0), u(0), now-1)
	require.ErrorIs(t, err, ErrTransactionExpired)

	_, _, err = f.vault.AddLiquidity(testManager, -101, 100, lots, u(0), u(0), now)
	require.ErrorIs(t, err, ErrInvalidTickRange)

	_, _, err = f.vault.AddLiquidity(testManager, 100, -100, lots, u(0), u(0), now)
	require.ErrorIs(t, err, ErrInvalidTickRange)

	_, _, err = f.vault.AddLiquidity(testManager, -100, 100, u(1000), u(0), u(0), now)
	require.ErrorIs(t, err, ErrInvalidLiquidityAmount)

	_, _, err = f.vault.AddLiquidity(testManager, -100, 100, lots, u(ether), u(0), now)
	require.ErrorIs(t, err, ErrInvalidPriceSlippage)

	_, _, err = f.vault.RemoveLiquidity(testManager, -100, 100, lots, u(0), u(0), now)
	require.ErrorIs(t, err, ErrPositionDoesNotExist)

	liquidity := f.addRange(t, -100, 100)
	f.env.Advance(DefaultRules().JITWindow)
	_, _, err = f.vault.RemoveLiquidity(testManager, -100, 100, new(uint256.Int).Add(liquidity, u(1024)), u(0), u(0), f.env.Now())
	require.ErrorIs(t, err, ErrInsufficientLiquidity)
}

func TestPositionBoundLeavesPositionsUntouched(t *testing.T) {
	f := newFixture(t, FeeConfig{})
	f.seed(t, 10*ether)

	for i := int32(0); i < int32(DefaultRules().MaxPositions); i++ {
		f.addRange(t, -100-4*i, 100+4*i)
	}
	before := f.vault.GetAllPositions()
	idle0, idle1 := f.vault.idle()

	_, _, err := f.vault.AddLiquidity(testManager, -400, 400, u(1024*1000), u(0), u(0), f.env.Now())
	require.ErrorIs(t, err, ErrPositionLengthExceedsLimit)
	require.Equal(t, before, f.vault.GetAllPositions())
	after0, after1 := f.vault.idle()
	require.Equal(t, idle0, after0)
	require.Equal(t, idle1, after1)

	// Merging into an existing range is not a new position.
	f.env.Advance(60)
	f.addRange(t, -100, 100)
	merged, err := f.vault.Positions(0)
	require.NoError(t, err)
	require.Equal(t, u(2*1024*1_000_000_000), merged.Liquidity)
	require.Equal(t, testStart, merged.CreatedAt)
}

func TestRemovalCompactsIndexes(t *testing.T) {
	f := newFixture(t, FeeConfig{})
	f.seed(t, 10*ether)
	first := f.addRange(t, -100, 100)
	f.addRange(t, -200, 200)
	f.addRange(t, -300, 300)
	f.env.Advance(DefaultRules().JITWindow)

	_, _, err := f.vault.RemoveLiquidity(testManager, -100, 100, first, u(0), u(0), f.env.Now())
	require.NoError(t, err)
	positions := f.vault.GetAllPositions()
	require.Len(t, positions, 2)
	require.Equal(t, int32(-200), positions[0].TickLower)
	require.Equal(t, int32(-300), positions[1].TickLower)
	_, err = f.vault.Positions(2)
	require.ErrorIs(t, err, ErrPositionDoesNotExist)
}

func TestSwapRewardsAreValuedAndCollected(t *testing.T) {
	f := newFixture(t, FeeConfig{})
	f.seed(t, ether)
	f.addRange(t, -100, 100)

	require.NoError(t, f.env.Mint(chain.NativeAsset, testDex, u(7000)))
	require.NoError(t, f.env.Mint(testQuote, testDex, u(9000)))
	require.NoError(t, f.dex.AccrueRewards(testVault, chain.NativeAsset, testQuote, testPoolIdx, -100, 100, u(7000), u(9000)))

	info, err := f.vault.PositionInfo(0)
	require.NoError(t, err)
	require.Equal(t, "7000", info.Fee0)
	require.Equal(t, "9000", info.Fee1)

	totalBefore0, totalBefore1, err := f.vault.VaultAllUnderlyingAssets()
	require.NoError(t, err)

	_, _, err = f.vault.CollectAllSwapFee(testAlice)
	require.ErrorIs(t, err, ErrCallerIsNotManager)

	fee0, fee1, err := f.vault.CollectAllSwapFee(testManager)
	require.NoError(t, err)
	require.Equal(t, u(7000), fee0)
	require.Equal(t, u(9000), fee1)

	totalAfter0, totalAfter1, err := f.vault.VaultAllUnderlyingAssets()
	require.NoError(t, err)
	require.Equal(t, totalBefore0, totalAfter0)
	require.Equal(t, totalBefore1, totalAfter1)

	fee0, fee1, err = f.vault.CollectPositionSwapFee(testManager, -100, 100)
	require.NoError(t, err)
	require.True(t, fee0.IsZero())
	require.True(t, fee1.IsZero())
	_, _, err = f.vault.CollectPositionSwapFee(testManager, -8, 8)
	require.ErrorIs(t, err, ErrPositionDoesNotExist)
}

func TestEstimatedValueAtParity(t *testing.T) {
	f := newFixture(t, FeeConfig{})
	f.seed(t, ether)

	value0, err := f.vault.EstimatedValueInToken0()
	require.NoError(t, err)
	require.Equal(t, u(2*ether), value0)
	value1, err := f.vault.EstimatedValueInToken1()
	require.NoError(t, err)
	require.Equal(t, u(2*ether), value1)

	// Quadrupling the price makes asset1 worth four units of asset0.
	require.NoError(t, f.dex.SetPrice(chain.NativeAsset, testQuote, testPoolIdx, new(uint256.Int).Lsh(clmath.Q64, 1)))
	value0, err = f.vault.EstimatedValueInToken0()
	require.NoError(t, err)
	require.Equal(t, u(5*ether), value0)
}

func TestWithdrawDrawsDownPositions(t *testing.T) {
	f := newFixture(t, FeeConfig{})
	f.seed(t, ether)
	f.addShare(t, -100, 100, 4*ether/10)
	f.addShare(t, -200, 200, 4*ether/10)

	total0, total1, err := f.vault.VaultAllUnderlyingAssets()
	require.NoError(t, err)
	half := u(ether / 2)
	want0, _ := clmath.MulDiv(total0, half, f.vault.TotalSupply())
	want1, _ := clmath.MulDiv(total1, half, f.vault.TotalSupply())
	idle0, _ := f.vault.idle()
	require.True(t, idle0.Lt(want0), "idle alone must not cover the withdrawal")

	got0, got1, err := f.vault.Withdraw(testAlice, half, u(0), u(0))
	require.NoError(t, err)
	require.False(t, got0.Gt(want0))
	require.False(t, got1.Gt(want1))
	require.True(t, new(uint256.Int).Sub(want0, got0).Lt(u(3)))
	require.True(t, new(uint256.Int).Sub(want1, got1).Lt(u(3)))
	require.Len(t, f.vault.GetAllPositions(), 2)
	first, err := f.vault.Positions(0)
	require.NoError(t, err)
	require.True(t, new(uint256.Int).Mod(first.Liquidity, u(1024)).IsZero())

	got0, got1, err = f.vault.Withdraw(testAlice, half, u(0), u(0))
	require.NoError(t, err)
	require.True(t, f.vault.TotalSupply().IsZero())
	require.Empty(t, f.vault.GetAllPositions())
	require.False(t, got0.IsZero())
	require.False(t, got1.IsZero())
}

func TestWithdrawValidation(t *testing.T) {
	f := newFixture(t, FeeConfig{})
	f.seed(t, ether)

	_, _, err := f.vault.Withdraw(testBob, u(1), u(0), u(0))
	require.ErrorIs(t, err, ErrInsufficientShares)

	_, _, err = f.vault.Withdraw(testAlice, u(ether), u(ether), u(ether+1))
	require.ErrorIs(t, err, ErrInvalidPriceSlippage)
	require.Equal(t, u(ether), f.vault.BalanceOf(testAlice))
}

func TestAbortedOperationsRecordNoFeeMetrics(t *testing.T) {
	fees := FeeConfig{Treasury: testTreasury, ExitFee: 2000, ManagementFee: 10000}
	f := newFixture(t, fees)
	m := metrics.Vault()
	f.vault.SetMetrics(m)
	f.seed(t, ether)
	addr := f.vault.Address().Hex()
	exitBefore := m.FeeShares(addr, "exit")
	mgmtBefore := m.FeeShares(addr, "management")

	f.env.Advance(30 * 24 * 3600)
	_, _, err := f.vault.Withdraw(testAlice, u(ether), u(10*ether), u(0))
	require.ErrorIs(t, err, ErrInvalidPriceSlippage)
	require.True(t, f.vault.BalanceOf(testTreasury).IsZero())
	require.Equal(t, exitBefore, m.FeeShares(addr, "exit"))
	require.Equal(t, mgmtBefore, m.FeeShares(addr, "management"))

	_, _, err = f.vault.Withdraw(testAlice, u(ether), u(0), u(0))
	require.NoError(t, err)
	require.Greater(t, m.FeeShares(addr, "exit"), exitBefore)
	require.Greater(t, m.FeeShares(addr, "management"), mgmtBefore)
}

func TestTransferShares(t *testing.T) {
	f := newFixture(t, FeeConfig{})
	f.seed(t, ether)

	require.NoError(t, f.vault.Transfer(testAlice, testBob, u(ether/4)))
	require.Equal(t, u(ether/4), f.vault.BalanceOf(testBob))
	require.Equal(t, u(ether-ether/4), f.vault.BalanceOf(testAlice))
	require.ErrorIs(t, f.vault.Transfer(testBob, testAlice, u(ether)), ErrInsufficientShares)
	require.ErrorIs(t, f.vault.Transfer(testBob, common.Address{}, u(1)), ErrInvalidAddress)
	require.Equal(t, u(ether), f.vault.TotalSupply())
}

func TestRoles(t *testing.T) {
	f := newFixture(t, FeeConfig{})

	require.ErrorIs(t, f.vault.AssignManager(testManager, testBob), ErrCallerIsNotOwner)
	require.ErrorIs(t, f.vault.AssignManager(testOwner, common.Address{}), ErrInvalidAddress)
	require.NoError(t, f.vault.AssignManager(testOwner, testBob))
	require.Equal(t, testBob, f.vault.Manager())

	require.NoError(t, f.vault.TransferOwnership(testOwner, testAlice))
	require.Equal(t, testAlice, f.vault.Owner())
	require.ErrorIs(t, f.vault.SetSwapRelayer(testOwner, testRelayer), ErrCallerIsNotOwner)
	require.ErrorIs(t, f.vault.SetSwapRelayer(testAlice, testDex), ErrInvalidAddress)
	require.NoError(t, f.vault.SetSwapRelayer(testAlice, testRelayer))
	require.Equal(t, testRelayer, f.vault.SwapRelayer())
}

func TestMigrate(t *testing.T) {
	f := newFixture(t, FeeConfig{})
	f.seed(t, 10*ether)
	f.addRange(t, -100, 100)
	f.addRange(t, -200, 200)

	next := DefaultRules()
	next.Version = 2
	next.JITWindow = 60
	require.ErrorIs(t, f.vault.Migrate(testOwner, next), ErrCallerIsNotFactory)

	same := DefaultRules()
	require.ErrorIs(t, f.vault.Migrate(testFactory, same), ErrInvalidRules)

	tight := next
	tight.MaxPositions = 1
	require.ErrorIs(t, f.vault.Migrate(testFactory, tight), ErrInvalidRules)

	require.NoError(t, f.vault.Migrate(testFactory, next))
	require.Equal(t, next, f.vault.Rules())

	f.env.Advance(60)
	_, _, err := f.vault.RemoveLiquidity(testManager, -100, 100, u(1024*1_000_000_000), u(0), u(0), f.env.Now())
	require.NoError(t, err)
}

func TestExportRestore(t *testing.T) {
	f := newFixture(t, FeeConfig{Treasury: testTreasury, ExitFee: 1000})
	f.seed(t, ether)
	f.addRange(t, -100, 100)
	require.NoError(t, f.vault.Transfer(testAlice, testBob, u(10)))
	require.NoError(t, f.vault.SetSwapRelayer(testOwner, testRelayer))

	snap := f.vault.Export()
	require.Equal(t, "1000000000000000000", snap.TotalSupply)
	require.Len(t, snap.Positions, 1)

	restored, err := Restore(f.env, f.vault.venue, snap, nil)
	require.NoError(t, err)
	require.Equal(t, f.vault.TotalSupply(), restored.TotalSupply())
	require.Equal(t, f.vault.BalanceOf(testBob), restored.BalanceOf(testBob))
	require.Equal(t, f.vault.GetAllPositions(), restored.GetAllPositions())
	require.Equal(t, f.vault.FeeConfig(), restored.FeeConfig())
	require.Equal(t, testRelayer, restored.SwapRelayer())
	require.Equal(t, snap, restored.Export())

	snap.TotalSupply = "1"
	_, err = Restore(f.env, f.vault.venue, snap, nil)
	require.Error(t, err)
}

func TestRestoreRejectsInconsistentSnapshots(t *testing.T) {
	f := newFixture(t, FeeConfig{})
	f.seed(t, ether)
	f.addRange(t, -100, 100)

	max := new(uint256.Int).SetAllOne()
	snap := f.vault.Export()
	snap.Balances = map[string]string{
		testAlice.Hex(): max.Dec(),
		testBob.Hex():   "2",
	}
	// wraps to 1 without the overflow check
	snap.TotalSupply = "1"
	_, err := Restore(f.env, f.vault.venue, snap, nil)
	require.ErrorIs(t, err, ErrArithmeticOverflow)

	snap = f.vault.Export()
	snap.Positions = append(snap.Positions, snap.Positions[0])
	_, err = Restore(f.env, f.vault.venue, snap, nil)
	require.ErrorIs(t, err, ErrInvalidTickRange)
}

func TestGetPoolInfoAndLiquidityForAmounts(t *testing.T) {
	f := newFixture(t, FeeConfig{})
	info, err := f.vault.GetPoolInfo()
	require.NoError(t, err)
	require.Equal(t, int32(0), info.Tick)
	require.Equal(t, uint16(4), info.TickSize)
	require.Equal(t, clmath.Q64.ToBig().String(), info.SqrtPrice)

	liquidity, err := f.vault.GetLiquidityForAmounts(-100, 100, u(ether), u(ether))
	require.NoError(t, err)
	a0, a1, err := f.vault.GetAmountsForLiquidity(-100, 100, liquidity)
	require.NoError(t, err)
	require.False(t, a0.Gt(u(ether)))
	require.False(t, a1.Gt(u(ether)))
}
