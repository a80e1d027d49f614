package ambient

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"liquidityVault/internal/chain"
	"liquidityVault/internal/clmath"
)

const feeDenominator = 1_000_000

var (
	ErrUnknownPool      = errors.New("ambient: pool not initialized")
	ErrUnknownCallPath  = errors.New("ambient: unknown call path")
	ErrUnknownCode      = errors.New("ambient: unknown lp command code")
	ErrOddLots          = errors.New("ambient: liquidity must be a multiple of the lot size")
	ErrBadTicks         = errors.New("ambient: invalid tick range")
	ErrPriceLimit       = errors.New("ambient: price outside limits")
	ErrNoRange          = errors.New("ambient: insufficient range liquidity")
	ErrSwapSlippage     = errors.New("ambient: swap output below minimum")
	ErrExactOutput      = errors.New("ambient: only exact input swaps are supported")
	ErrUnderpaid        = errors.New("ambient: native value below required amount")
	ErrSwapLimitReached = errors.New("ambient: swap would cross limit price")
)

type poolKey struct {
	base    common.Address
	quote   common.Address
	poolIdx uint64
}

type rangeKey struct {
	owner common.Address
	pool  poolKey
	lower int32
	upper int32
}

type memoryPool struct {
	sqrtPrice *uint256.Int
	tickSize  uint16
	feePPM    uint32
}

type memoryRange struct {
	liquidity    *uint256.Int
	rewardsBase  *uint256.Int
	rewardsQuote *uint256.Int
}

type memoryDexState struct {
	pools  map[poolKey]memoryPool
	ranges map[rangeKey]memoryRange
}

// MemoryDex is an in-memory venue speaking the userCmd protocol. Swaps fill
// at the current pool price less the pool fee and do not move the price;
// the price only changes through SetPrice. Rewards accrue only through
// AccrueRewards and must be backed by tokens held at the venue address.
type MemoryDex struct {
	paths  CallPaths
	pools  map[poolKey]*memoryPool
	ranges map[rangeKey]*memoryRange
}

// NewMemoryDex builds an empty venue using paths to route commands.
func NewMemoryDex(paths CallPaths) *MemoryDex {
	return &MemoryDex{
		paths:  paths,
		pools:  make(map[poolKey]*memoryPool),
		ranges: make(map[rangeKey]*memoryRange),
	}
}

// InitPool creates a pool at the given sqrt price.
func (d *MemoryDex) InitPool(base, quote common.Address, poolIdx uint64, sqrtPrice *uint256.Int, tickSize uint16, feePPM uint32) error {
	if sqrtPrice.Lt(clmath.MinSqrtRatio) || !sqrtPrice.Lt(clmath.MaxSqrtRatio) {
		return clmath.ErrPriceOutOfRange
	}
	if feePPM >= feeDenominator {
		return fmt.Errorf("pool fee %d out of range", feePPM)
	}
	d.pools[poolKey{base, quote, poolIdx}] = &memoryPool{
		sqrtPrice: sqrtPrice.Clone(),
		tickSize:  tickSize,
		feePPM:    feePPM,
	}
	return nil
}

// SetPrice moves the pool price.
func (d *MemoryDex) SetPrice(base, quote common.Address, poolIdx uint64, sqrtPrice *uint256.Int) error {
	pool, err := d.pool(base, quote, poolIdx)
	if err != nil {
		return err
	}
	if sqrtPrice.Lt(clmath.MinSqrtRatio) || !sqrtPrice.Lt(clmath.MaxSqrtRatio) {
		return clmath.ErrPriceOutOfRange
	}
	pool.sqrtPrice = sqrtPrice.Clone()
	return nil
}

// AccrueRewards credits harvestable rewards to an existing range.
func (d *MemoryDex) AccrueRewards(owner, base, quote common.Address, poolIdx uint64, lower, upper int32, amountBase, amountQuote *uint256.Int) error {
	r, ok := d.ranges[rangeKey{owner, poolKey{base, quote, poolIdx}, lower, upper}]
	if !ok {
		return ErrNoRange
	}
	r.rewardsBase = new(uint256.Int).Add(r.rewardsBase, amountBase)
	r.rewardsQuote = new(uint256.Int).Add(r.rewardsQuote, amountQuote)
	return nil
}

func (d *MemoryDex) PoolPrice(base, quote common.Address, poolIdx uint64) (*uint256.Int, error) {
	pool, err := d.pool(base, quote, poolIdx)
	if err != nil {
		return nil, err
	}
	return pool.sqrtPrice.Clone(), nil
}

func (d *MemoryDex) TickSize(base, quote common.Address, poolIdx uint64) (uint16, error) {
	pool, err := d.pool(base, quote, poolIdx)
	if err != nil {
		return 0, err
	}
	return pool.tickSize, nil
}

func (d *MemoryDex) RangeLiquidity(owner, base, quote common.Address, poolIdx uint64, lower, upper int32) (*uint256.Int, error) {
	if _, err := d.pool(base, quote, poolIdx); err != nil {
		return nil, err
	}
	if r, ok := d.ranges[rangeKey{owner, poolKey{base, quote, poolIdx}, lower, upper}]; ok {
		return r.liquidity.Clone(), nil
	}
	return new(uint256.Int), nil
}

func (d *MemoryDex) ConcRewards(owner, base, quote common.Address, poolIdx uint64, lower, upper int32) (*uint256.Int, *uint256.Int, error) {
	if _, err := d.pool(base, quote, poolIdx); err != nil {
		return nil, nil, err
	}
	if r, ok := d.ranges[rangeKey{owner, poolKey{base, quote, poolIdx}, lower, upper}]; ok {
		return r.rewardsBase.Clone(), r.rewardsQuote.Clone(), nil
	}
	return new(uint256.Int), new(uint256.Int), nil
}

// Invoke dispatches userCmd calldata. Native value beyond what the command
// consumed is refunded to the caller.
func (d *MemoryDex) Invoke(env chain.Env, self, caller common.Address, data []byte, value *uint256.Int) ([]byte, error) {
	callPath, cmd, err := UnpackUserCmd(data)
	if err != nil {
		return nil, err
	}
	p := &payer{env: env, self: self, caller: caller, value: value.Clone(), spent: new(uint256.Int)}

	switch callPath {
	case d.paths.LPCallPath:
		lp, err := DecodeLPCommand(cmd)
		if err != nil {
			return nil, err
		}
		err = d.runLP(p, lp)
		if err != nil {
			return nil, err
		}
	case d.paths.SwapCallPath:
		swap, err := DecodeSwapCommand(cmd)
		if err != nil {
			return nil, err
		}
		if err := d.runSwap(p, swap); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownCallPath, callPath)
	}
	return nil, p.refund()
}

func (d *MemoryDex) runLP(p *payer, cmd LPCommand) error {
	key := poolKey{cmd.Base, cmd.Quote, cmd.PoolIdx}
	pool, err := d.pool(cmd.Base, cmd.Quote, cmd.PoolIdx)
	if err != nil {
		return err
	}
	if !clmath.ValidTicks(cmd.BidTick, cmd.AskTick, pool.tickSize) {
		return ErrBadTicks
	}
	rk := rangeKey{p.caller, key, cmd.BidTick, cmd.AskTick}

	switch cmd.Code {
	case d.paths.MintCode:
		if err := checkLots(cmd.Liquidity); err != nil {
			return err
		}
		if !withinLimits(pool.sqrtPrice, cmd.LimitLower, cmd.LimitHigher) {
			return ErrPriceLimit
		}
		amountBase, amountQuote, err := rangeAmounts(pool.sqrtPrice, cmd.BidTick, cmd.AskTick, cmd.Liquidity, true)
		if err != nil {
			return err
		}
		if err := p.collect(cmd.Base, amountBase); err != nil {
			return err
		}
		if err := p.collect(cmd.Quote, amountQuote); err != nil {
			return err
		}
		r, ok := d.ranges[rk]
		if !ok {
			r = &memoryRange{liquidity: new(uint256.Int), rewardsBase: new(uint256.Int), rewardsQuote: new(uint256.Int)}
			d.ranges[rk] = r
		}
		r.liquidity = new(uint256.Int).Add(r.liquidity, cmd.Liquidity)
		return nil

	case d.paths.BurnCode:
		if err := checkLots(cmd.Liquidity); err != nil {
			return err
		}
		if !withinLimits(pool.sqrtPrice, cmd.LimitLower, cmd.LimitHigher) {
			return ErrPriceLimit
		}
		r, ok := d.ranges[rk]
		if !ok || r.liquidity.Lt(cmd.Liquidity) {
			return ErrNoRange
		}
		amountBase, amountQuote, err := rangeAmounts(pool.sqrtPrice, cmd.BidTick, cmd.AskTick, cmd.Liquidity, false)
		if err != nil {
			return err
		}
		r.liquidity = new(uint256.Int).Sub(r.liquidity, cmd.Liquidity)
		if r.liquidity.IsZero() && r.rewardsBase.IsZero() && r.rewardsQuote.IsZero() {
			delete(d.ranges, rk)
		}
		if err := p.pay(cmd.Base, amountBase); err != nil {
			return err
		}
		return p.pay(cmd.Quote, amountQuote)

	case d.paths.HarvestCode:
		r, ok := d.ranges[rk]
		if !ok {
			return ErrNoRange
		}
		base, quote := r.rewardsBase, r.rewardsQuote
		r.rewardsBase, r.rewardsQuote = new(uint256.Int), new(uint256.Int)
		if r.liquidity.IsZero() {
			delete(d.ranges, rk)
		}
		if err := p.pay(cmd.Base, base); err != nil {
			return err
		}
		return p.pay(cmd.Quote, quote)

	default:
		return fmt.Errorf("%w: %d", ErrUnknownCode, cmd.Code)
	}
}

func (d *MemoryDex) runSwap(p *payer, cmd SwapCommand) error {
	pool, err := d.pool(cmd.Base, cmd.Quote, cmd.PoolIdx)
	if err != nil {
		return err
	}
	if cmd.IsBuy != cmd.InBaseQty {
		return ErrExactOutput
	}
	if cmd.LimitPrice != nil && !cmd.LimitPrice.IsZero() {
		if cmd.IsBuy && pool.sqrtPrice.Gt(cmd.LimitPrice) {
			return ErrSwapLimitReached
		}
		if !cmd.IsBuy && pool.sqrtPrice.Lt(cmd.LimitPrice) {
			return ErrSwapLimitReached
		}
	}

	var gross *uint256.Int
	tokenIn, tokenOut := cmd.Quote, cmd.Base
	if cmd.IsBuy {
		tokenIn, tokenOut = cmd.Base, cmd.Quote
		gross, err = clmath.BaseToQuote(cmd.Qty, pool.sqrtPrice)
	} else {
		gross, err = clmath.QuoteToBase(cmd.Qty, pool.sqrtPrice)
	}
	if err != nil {
		return err
	}
	out, err := clmath.MulDiv(gross, uint256.NewInt(uint64(feeDenominator-pool.feePPM)), uint256.NewInt(feeDenominator))
	if err != nil {
		return err
	}
	if cmd.MinOut != nil && out.Lt(cmd.MinOut) {
		return ErrSwapSlippage
	}
	if err := p.collect(tokenIn, cmd.Qty); err != nil {
		return err
	}
	return p.pay(tokenOut, out)
}

func (d *MemoryDex) pool(base, quote common.Address, poolIdx uint64) (*memoryPool, error) {
	pool, ok := d.pools[poolKey{base, quote, poolIdx}]
	if !ok {
		return nil, ErrUnknownPool
	}
	return pool, nil
}

// SnapshotState implements chain.Journaled.
func (d *MemoryDex) SnapshotState() interface{} {
	state := memoryDexState{
		pools:  make(map[poolKey]memoryPool, len(d.pools)),
		ranges: make(map[rangeKey]memoryRange, len(d.ranges)),
	}
	for k, v := range d.pools {
		state.pools[k] = memoryPool{sqrtPrice: v.sqrtPrice.Clone(), tickSize: v.tickSize, feePPM: v.feePPM}
	}
	for k, v := range d.ranges {
		state.ranges[k] = memoryRange{
			liquidity:    v.liquidity.Clone(),
			rewardsBase:  v.rewardsBase.Clone(),
			rewardsQuote: v.rewardsQuote.Clone(),
		}
	}
	return state
}

// RestoreState implements chain.Journaled.
func (d *MemoryDex) RestoreState(saved interface{}) {
	state, ok := saved.(memoryDexState)
	if !ok {
		return
	}
	d.pools = make(map[poolKey]*memoryPool, len(state.pools))
	for k, v := range state.pools {
		v := v
		d.pools[k] = &v
	}
	d.ranges = make(map[rangeKey]*memoryRange, len(state.ranges))
	for k, v := range state.ranges {
		v := v
		d.ranges[k] = &v
	}
}

// payer settles token flows between the venue and the caller of one command.
type payer struct {
	env    chain.Env
	self   common.Address
	caller common.Address
	value  *uint256.Int
	spent  *uint256.Int
}

func (p *payer) collect(asset common.Address, amount *uint256.Int) error {
	if amount.IsZero() {
		return nil
	}
	if chain.IsNative(asset) {
		next := new(uint256.Int).Add(p.spent, amount)
		if next.Gt(p.value) {
			return ErrUnderpaid
		}
		p.spent = next
		return nil
	}
	return p.env.TransferFrom(asset, p.self, p.caller, p.self, amount)
}

func (p *payer) pay(asset common.Address, amount *uint256.Int) error {
	if amount.IsZero() {
		return nil
	}
	return p.env.Transfer(asset, p.self, p.caller, amount)
}

func (p *payer) refund() error {
	if !p.value.Gt(p.spent) {
		return nil
	}
	return p.env.Transfer(chain.NativeAsset, p.self, p.caller, new(uint256.Int).Sub(p.value, p.spent))
}

func rangeAmounts(sqrtPrice *uint256.Int, lower, upper int32, liquidity *uint256.Int, roundUp bool) (*uint256.Int, *uint256.Int, error) {
	sqrtLower, err := clmath.SqrtRatioAtTick(lower)
	if err != nil {
		return nil, nil, err
	}
	sqrtUpper, err := clmath.SqrtRatioAtTick(upper)
	if err != nil {
		return nil, nil, err
	}
	return clmath.AmountsForLiquidity(sqrtPrice, sqrtLower, sqrtUpper, liquidity, roundUp)
}

func checkLots(liquidity *uint256.Int) error {
	if liquidity == nil || liquidity.IsZero() {
		return ErrOddLots
	}
	if !new(uint256.Int).Mod(liquidity, uint256.NewInt(LiquidityLot)).IsZero() {
		return ErrOddLots
	}
	return nil
}

func withinLimits(price, lower, higher *uint256.Int) bool {
	if lower != nil && price.Lt(lower) {
		return false
	}
	if higher != nil && !higher.IsZero() && price.Gt(higher) {
		return false
	}
	return true
}
