package vault

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"liquidityVault/internal/chain"
	"liquidityVault/internal/metrics"
	"liquidityVault/internal/model"
)

// EventSink receives the events of every committed operation.
type EventSink interface {
	PutEvents(events []model.VaultEvent) error
}

// Vault is a single-pool liquidity vault. It is not safe for concurrent use;
// the host serializes calls the way a chain serializes transactions.
type Vault struct {
	env     chain.Env
	logger  *zap.Logger
	metrics *metrics.VaultMetrics
	sink    EventSink

	address       common.Address
	factory       common.Address
	name          string
	symbol        string
	decimals      uint8
	decimalOffset uint8
	asset0        common.Address
	asset1        common.Address
	poolIdx       uint64
	feeCap        uint32
	venue         Venue

	st      *state
	entered bool
	pending []model.VaultEvent
	onDone  []func()
	seq     uint64
}

// New instantiates a vault. The pool must already exist on the venue.
func New(env chain.Env, cfg Config, logger *zap.Logger) (*Vault, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	decimals0, err := env.Decimals(cfg.Asset0)
	if err != nil {
		return nil, fmt.Errorf("asset0 decimals: %w", err)
	}
	if _, err := env.Decimals(cfg.Asset1); err != nil {
		return nil, fmt.Errorf("asset1 decimals: %w", err)
	}
	if _, err := cfg.Venue.Query.PoolPrice(cfg.Asset0, cfg.Asset1, cfg.PoolIdx); err != nil {
		return nil, fmt.Errorf("pool %d: %w", cfg.PoolIdx, err)
	}
	if uint16(decimals0)+uint16(cfg.DecimalOffset) > 77 {
		return nil, fmt.Errorf("decimal offset %d: %w", cfg.DecimalOffset, ErrArithmeticOverflow)
	}

	v := &Vault{
		env:           env,
		logger:        logger,
		address:       cfg.Address,
		factory:       cfg.Factory,
		name:          cfg.Name,
		symbol:        cfg.Symbol,
		decimals:      decimals0 + cfg.DecimalOffset,
		decimalOffset: cfg.DecimalOffset,
		asset0:        cfg.Asset0,
		asset1:        cfg.Asset1,
		poolIdx:       cfg.PoolIdx,
		feeCap:        cfg.FeeCap,
		venue:         cfg.Venue,
		st: &state{
			owner:                    cfg.Owner,
			manager:                  cfg.Manager,
			feeConfig:                cfg.FeeConfig,
			rules:                    cfg.Rules,
			totalSupply:              new(uint256.Int),
			balances:                 make(map[common.Address]*uint256.Int),
			lastCollectManagementFee: env.Now(),
			positions:                newPositionBook(),
		},
	}
	return v, nil
}

// SetEventSink routes committed events to sink.
func (v *Vault) SetEventSink(sink EventSink) {
	v.sink = sink
}

// SetMetrics enables prometheus reporting.
func (v *Vault) SetMetrics(m *metrics.VaultMetrics) {
	v.metrics = m
}

// execute runs fn as one all-or-nothing operation. Any error reverts the
// environment and the vault state to where they were before fn ran.
func (v *Vault) execute(op string, fn func() error) error {
	if v.entered {
		return ErrReentrancy
	}
	v.entered = true
	defer func() { v.entered = false }()

	id := v.env.Snapshot()
	saved := v.st.clone()
	if err := fn(); err != nil {
		v.env.RevertToSnapshot(id)
		v.st = saved
		v.pending = nil
		v.onDone = nil
		v.logger.Debug("vault operation aborted",
			zap.String("vault", v.address.Hex()),
			zap.String("op", op),
			zap.Error(err),
		)
		v.metrics.ObserveOperation(v.address.Hex(), op, "aborted")
		return err
	}
	v.env.DiscardSnapshot(id)
	v.flush()

	addr := v.address.Hex()
	v.metrics.ObserveOperation(addr, op, "committed")
	v.metrics.SetTotalSupply(addr, toFloat(v.st.totalSupply))
	v.metrics.SetPositions(addr, v.st.positions.Len())
	v.logger.Debug("vault operation committed",
		zap.String("vault", addr),
		zap.String("op", op),
		zap.String("total_supply", dec(v.st.totalSupply)),
		zap.Int("positions", v.st.positions.Len()),
	)
	return nil
}

func (v *Vault) emit(name string, data interface{}) {
	v.pending = append(v.pending, model.VaultEvent{
		Address:   v.address.Hex(),
		EventName: name,
		Timestamp: v.env.Now(),
		Decoded:   data,
	})
}

// afterCommit defers a side effect outside the vault state (metrics, logs)
// until the running operation commits. It is dropped on abort.
func (v *Vault) afterCommit(fn func()) {
	v.onDone = append(v.onDone, fn)
}

func (v *Vault) flush() {
	hooks := v.onDone
	v.onDone = nil
	for _, fn := range hooks {
		fn()
	}

	events := v.pending
	v.pending = nil
	if len(events) == 0 {
		return
	}
	for i := range events {
		v.seq++
		events[i].Seq = v.seq
	}
	if v.sink == nil {
		return
	}
	if err := v.sink.PutEvents(events); err != nil {
		v.logger.Warn("journal vault events failed",
			zap.String("vault", v.address.Hex()),
			zap.Int("events", len(events)),
			zap.Error(err),
		)
	}
}

func (v *Vault) onlyOwner(sender common.Address) error {
	if sender != v.st.owner {
		return ErrCallerIsNotOwner
	}
	return nil
}

func (v *Vault) onlyManager(sender common.Address) error {
	if sender != v.st.manager {
		return ErrCallerIsNotManager
	}
	return nil
}

func (v *Vault) Address() common.Address { return v.address }
func (v *Vault) Factory() common.Address { return v.factory }
func (v *Vault) Name() string { return v.name }
func (v *Vault) Symbol() string { return v.symbol }
func (v *Vault) Decimals() uint8 { return v.decimals }
func (v *Vault) Asset0() common.Address { return v.asset0 }
func (v *Vault) Asset1() common.Address { return v.asset1 }
func (v *Vault) PoolIdx() uint64 { return v.poolIdx }
func (v *Vault) FeeCap() uint32 { return v.feeCap }
func (v *Vault) Owner() common.Address { return v.st.owner }
func (v *Vault) Manager() common.Address { return v.st.manager }
func (v *Vault) Rules() Rules { return v.st.rules }
func (v *Vault) FeeConfig() FeeConfig { return v.st.feeConfig }

// SwapRelayer returns the relayer used by ExecuteSwap, or the zero address.
func (v *Vault) SwapRelayer() common.Address { return v.st.swapRelayer }

func (v *Vault) LastCollectManagementFee() uint64 {
	return v.st.lastCollectManagementFee
}

func (v *Vault) TotalSupply() *uint256.Int {
	return v.st.totalSupply.Clone()
}

func (v *Vault) BalanceOf(holder common.Address) *uint256.Int {
	return v.st.balanceOf(holder)
}

func dec(x *uint256.Int) string {
	if x == nil {
		return "0"
	}
	return x.ToBig().String()
}

func toFloat(x *uint256.Int) float64 {
	f, _ := new(big.Float).SetInt(x.ToBig()).Float64()
	return f
}

func orZero(x *uint256.Int) *uint256.Int {
	if x == nil {
		return new(uint256.Int)
	}
	return x
}
