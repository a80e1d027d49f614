package scenario

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"liquidityVault/internal/ambient"
	"liquidityVault/internal/chain"
	"liquidityVault/internal/factory"
	"liquidityVault/internal/metrics"
	"liquidityVault/internal/vault"
)

const defaultStart uint64 = 1_700_000_000

// StepResult records how one step ended.
type StepResult struct {
	Index int    `json:"index"`
	Op    string `json:"op"`
	Error string `json:"error,omitempty"`
}

// Result is the world left behind by a scenario run.
type Result struct {
	Env     *chain.Memory
	Dex     *ambient.MemoryDex
	Factory *factory.Factory
	Vault   *vault.Vault
	Steps   []StepResult
}

// Runner executes scenarios.
type Runner struct {
	sink    vault.EventSink
	metrics *metrics.VaultMetrics
	logger  *zap.Logger
}

// NewRunner builds a Runner. sink and m may be nil.
func NewRunner(sink vault.EventSink, m *metrics.VaultMetrics, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{sink: sink, metrics: m, logger: logger}
}

type run struct {
	s       *Scenario
	env     *chain.Memory
	dex     *ambient.MemoryDex
	dexAddr common.Address
	base    common.Address
	quote   common.Address
	factory *factory.Factory
	vault   *vault.Vault
}

// Run deploys the scenario's world and executes its steps in order. rules
// seed the factory unless the scenario sets its own. A step that fails
// without a matching expect_error stops the run.
func (r *Runner) Run(ctx context.Context, s *Scenario, rules vault.Rules) (*Result, error) {
	if s.Factory.Rules != nil {
		rules = *s.Factory.Rules
	}
	w, err := r.deploy(s, rules)
	if err != nil {
		return nil, err
	}
	res := &Result{Env: w.env, Dex: w.dex, Factory: w.factory, Vault: w.vault}

	for i, step := range s.Steps {
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		default:
		}

		stepErr := w.apply(step)
		outcome := StepResult{Index: i, Op: step.Op}
		switch {
		case stepErr != nil && step.ExpectError != "" && strings.Contains(stepErr.Error(), step.ExpectError):
			outcome.Error = stepErr.Error()
		case stepErr != nil:
			return res, fmt.Errorf("step %d (%s): %w", i, step.Op, stepErr)
		case step.ExpectError != "":
			return res, fmt.Errorf("step %d (%s): expected error %q", i, step.Op, step.ExpectError)
		}
		if step.Expect != nil {
			if err := w.check(*step.Expect); err != nil {
				return res, fmt.Errorf("step %d (%s): %w", i, step.Op, err)
			}
		}
		res.Steps = append(res.Steps, outcome)
		r.logger.Debug("scenario step",
			zap.Int("index", i),
			zap.String("op", step.Op),
			zap.String("error", outcome.Error),
		)
	}

	r.logger.Info("scenario complete",
		zap.String("name", s.Name),
		zap.Int("steps", len(res.Steps)),
		zap.String("vault", w.vault.Address().Hex()),
	)
	return res, nil
}

func (r *Runner) deploy(s *Scenario, rules vault.Rules) (*run, error) {
	w := &run{s: s}
	start := s.Start
	if start == 0 {
		start = defaultStart
	}
	w.env = chain.NewMemory(start)

	for _, t := range s.Tokens {
		addr, err := w.addr(t.Address)
		if err != nil {
			return nil, fmt.Errorf("token: %w", err)
		}
		w.env.RegisterToken(addr, chain.TokenInfo{Symbol: t.Symbol, Decimals: t.Decimals})
	}

	var err error
	if w.base, err = w.addr(s.Pool.Base); err != nil {
		return nil, fmt.Errorf("pool base: %w", err)
	}
	if w.quote, err = w.addr(s.Pool.Quote); err != nil {
		return nil, fmt.Errorf("pool quote: %w", err)
	}
	if w.dexAddr, err = w.required(s.Pool.Dex); err != nil {
		return nil, fmt.Errorf("pool dex: %w", err)
	}
	paths := ambient.DefaultCallPaths()
	w.dex = ambient.NewMemoryDex(paths)
	if err := w.dex.InitPool(w.base, w.quote, s.Pool.PoolIdx, s.Pool.SqrtPrice.Int, s.Pool.TickSize, s.Pool.FeePPM); err != nil {
		return nil, fmt.Errorf("init pool: %w", err)
	}
	w.env.Deploy(w.dexAddr, w.dex)
	if s.Pool.Relayer != "" {
		relayer, err := w.addr(s.Pool.Relayer)
		if err != nil {
			return nil, fmt.Errorf("pool relayer: %w", err)
		}
		w.env.Deploy(relayer, chain.SwapRelayer{})
	}

	for _, b := range s.Balances {
		holder, err := w.required(b.Holder)
		if err != nil {
			return nil, fmt.Errorf("balance holder: %w", err)
		}
		asset, err := w.addr(b.Asset)
		if err != nil {
			return nil, fmt.Errorf("balance asset: %w", err)
		}
		if err := w.env.Mint(asset, holder, b.Amount.Or(new(uint256.Int))); err != nil {
			return nil, fmt.Errorf("fund %s: %w", b.Holder, err)
		}
	}

	factoryAddr, err := w.required(s.Factory.Address)
	if err != nil {
		return nil, fmt.Errorf("factory address: %w", err)
	}
	factoryOwner, err := w.required(s.Factory.Owner)
	if err != nil {
		return nil, fmt.Errorf("factory owner: %w", err)
	}
	w.factory, err = factory.New(w.env, factory.Config{
		Address: factoryAddr,
		Owner:   factoryOwner,
		Venue: vault.Venue{
			Dex:       w.dexAddr,
			Query:     w.dex,
			CallPaths: paths,
		},
		Rules: rules,
	}, r.logger)
	if err != nil {
		return nil, err
	}
	if r.sink != nil {
		w.factory.SetEventSink(r.sink)
	}
	w.factory.SetMetrics(r.metrics)

	spec := s.Vault
	owner, err := w.required(spec.Owner)
	if err != nil {
		return nil, fmt.Errorf("vault owner: %w", err)
	}
	manager, err := w.required(spec.Manager)
	if err != nil {
		return nil, fmt.Errorf("vault manager: %w", err)
	}
	fees, err := w.fees(spec.Fees)
	if err != nil {
		return nil, err
	}
	feeCap := spec.FeeCap
	if feeCap == 0 {
		feeCap = vault.FeeMultiplier
	}
	w.vault, err = w.factory.CreateVault(factoryOwner, factory.VaultParams{
		Owner:         owner,
		Name:          spec.Name,
		Symbol:        spec.Symbol,
		DecimalOffset: spec.DecimalOffset,
		Asset0:        w.base,
		Asset1:        w.quote,
		PoolIdx:       s.Pool.PoolIdx,
		Manager:       manager,
		FeeCap:        feeCap,
		FeeConfig:     fees,
	})
	if err != nil {
		return nil, err
	}
	return w, nil
}

func (w *run) apply(step Step) error {
	switch step.Op {
	case "advance":
		w.env.Advance(step.Seconds)
		return nil
	case "set_price":
		if !step.SqrtPrice.Present() {
			return fmt.Errorf("sqrt_price is required")
		}
		return w.dex.SetPrice(w.base, w.quote, w.s.Pool.PoolIdx, step.SqrtPrice.Int)
	case "accrue_rewards":
		return w.dex.AccrueRewards(w.vault.Address(), w.base, w.quote, w.s.Pool.PoolIdx,
			step.Lower, step.Upper, step.Amount0.Or(new(uint256.Int)), step.Amount1.Or(new(uint256.Int)))
	case "mint":
		to, err := w.required(step.To)
		if err != nil {
			return err
		}
		asset, err := w.addr(step.Asset)
		if err != nil {
			return err
		}
		return w.env.Mint(asset, to, step.Value.Or(new(uint256.Int)))
	case "check":
		return nil
	case "collect_management_fee":
		return w.vault.CollectManagementFee()
	}

	sender, err := w.required(step.Sender)
	if err != nil {
		return fmt.Errorf("sender: %w", err)
	}
	zero := new(uint256.Int)
	unlimited := new(uint256.Int).SetAllOne()

	switch step.Op {
	case "deposit":
		if !step.Shares.Present() {
			return fmt.Errorf("shares are required")
		}
		_, _, err = w.vault.Deposit(sender, step.Value.Or(zero), step.Shares.Int, step.Max0.Or(unlimited), step.Max1.Or(unlimited))
	case "withdraw":
		if !step.Shares.Present() {
			return fmt.Errorf("shares are required")
		}
		_, _, err = w.vault.Withdraw(sender, step.Shares.Int, step.Min0.Or(zero), step.Min1.Or(zero))
	case "approve":
		var asset common.Address
		if asset, err = w.addr(step.Asset); err != nil {
			return err
		}
		spender := w.vault.Address()
		if step.To != "" {
			if spender, err = w.addr(step.To); err != nil {
				return err
			}
		}
		err = w.env.Approve(asset, sender, spender, step.Value.Or(unlimited))
	case "transfer":
		var to common.Address
		if to, err = w.required(step.To); err != nil {
			return err
		}
		err = w.vault.Transfer(sender, to, step.Shares.Or(zero))
	case "add_liquidity":
		var liquidity *uint256.Int
		if liquidity, err = w.liquidity(step); err != nil {
			return err
		}
		_, _, err = w.vault.AddLiquidity(sender, step.Lower, step.Upper, liquidity, step.Min0.Or(zero), step.Min1.Or(zero), w.deadline(step))
	case "remove_liquidity":
		liquidity := step.Liquidity.Or(nil)
		if liquidity == nil {
			liquidity = w.heldLiquidity(step.Lower, step.Upper)
		}
		_, _, err = w.vault.RemoveLiquidity(sender, step.Lower, step.Upper, liquidity, step.Min0.Or(zero), step.Min1.Or(zero), w.deadline(step))
	case "collect_position_fees":
		_, _, err = w.vault.CollectPositionSwapFee(sender, step.Lower, step.Upper)
	case "collect_all_fees":
		_, _, err = w.vault.CollectAllSwapFee(sender)
	case "swap":
		err = w.swap(sender, step)
	case "set_fee_config":
		if step.Fees == nil {
			return fmt.Errorf("fees are required")
		}
		var fees vault.FeeConfig
		if fees, err = w.fees(*step.Fees); err != nil {
			return err
		}
		err = w.vault.SetFeeConfig(sender, fees)
	case "assign_manager", "transfer_ownership", "set_swap_relayer":
		var to common.Address
		if to, err = w.addr(step.To); err != nil {
			return err
		}
		switch step.Op {
		case "assign_manager":
			err = w.vault.AssignManager(sender, to)
		case "transfer_ownership":
			err = w.vault.TransferOwnership(sender, to)
		default:
			err = w.vault.SetSwapRelayer(sender, to)
		}
	case "upgrade_rules":
		if step.Rules == nil {
			return fmt.Errorf("rules are required")
		}
		err = w.factory.UpgradeRules(sender, *step.Rules)
	case "migrate":
		err = w.factory.Migrate(sender, w.vault.Address())
	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}
	return err
}

// swap routes an exact-input swap through the venue.
func (w *run) swap(sender common.Address, step Step) error {
	if !step.AmountIn.Present() {
		return fmt.Errorf("amount_in is required")
	}
	body, err := ambient.SwapCommand{
		Base:      w.base,
		Quote:     w.quote,
		PoolIdx:   w.s.Pool.PoolIdx,
		IsBuy:     step.ZeroForOne,
		InBaseQty: step.ZeroForOne,
		Qty:       step.AmountIn.Int,
	}.Encode()
	if err != nil {
		return err
	}
	data, err := ambient.PackUserCmd(ambient.DefaultCallPaths().SwapCallPath, body)
	if err != nil {
		return err
	}
	_, err = w.vault.ExecuteSwap(sender, step.ZeroForOne, step.AmountIn.Int, step.MinOut.Or(new(uint256.Int)), w.dexAddr, data)
	return err
}

// liquidity is the step's explicit liquidity, or the most the amount
// ceilings buy, rounded down to the liquidity lot.
func (w *run) liquidity(step Step) (*uint256.Int, error) {
	if step.Liquidity.Present() {
		return step.Liquidity.Int, nil
	}
	if !step.Amount0.Present() && !step.Amount1.Present() {
		return nil, fmt.Errorf("liquidity or amounts are required")
	}
	liquidity, err := w.vault.GetLiquidityForAmounts(step.Lower, step.Upper,
		step.Amount0.Or(new(uint256.Int)), step.Amount1.Or(new(uint256.Int)))
	if err != nil {
		return nil, err
	}
	lot := uint256.NewInt(w.vault.Rules().LiquidityLot)
	return liquidity.Mul(new(uint256.Int).Div(liquidity, lot), lot), nil
}

func (w *run) heldLiquidity(lower, upper int32) *uint256.Int {
	for _, p := range w.vault.GetAllPositions() {
		if p.TickLower == lower && p.TickUpper == upper {
			return p.Liquidity
		}
	}
	return new(uint256.Int)
}

func (w *run) deadline(step Step) uint64 {
	if step.Deadline != 0 {
		return step.Deadline
	}
	return w.env.Now()
}

func (w *run) check(e Expect) error {
	v := w.vault
	if e.TotalSupply.Present() && !v.TotalSupply().Eq(e.TotalSupply.Int) {
		return fmt.Errorf("total supply %s, want %s", v.TotalSupply().ToBig(), e.TotalSupply.ToBig())
	}
	for name, want := range e.Balances {
		holder, err := w.required(name)
		if err != nil {
			return err
		}
		if got := v.BalanceOf(holder); want.Present() && !got.Eq(want.Int) {
			return fmt.Errorf("shares of %s %s, want %s", name, got.ToBig(), want.ToBig())
		}
	}
	if e.Positions != nil && len(v.GetAllPositions()) != *e.Positions {
		return fmt.Errorf("positions %d, want %d", len(v.GetAllPositions()), *e.Positions)
	}
	idle := []struct {
		asset common.Address
		want  Amount
	}{{v.Asset0(), e.Idle0}, {v.Asset1(), e.Idle1}}
	for i, c := range idle {
		if !c.want.Present() {
			continue
		}
		if got := w.env.BalanceOf(c.asset, v.Address()); !got.Eq(c.want.Int) {
			return fmt.Errorf("idle%d %s, want %s", i, got.ToBig(), c.want.ToBig())
		}
	}
	return nil
}

func (w *run) fees(f Fees) (vault.FeeConfig, error) {
	treasury, err := w.addr(f.Treasury)
	if err != nil {
		return vault.FeeConfig{}, fmt.Errorf("treasury: %w", err)
	}
	return vault.FeeConfig{
		Treasury:       treasury,
		EntryFee:       f.EntryFee,
		ExitFee:        f.ExitFee,
		PerformanceFee: f.PerformanceFee,
		ManagementFee:  f.ManagementFee,
	}, nil
}

// addr resolves an account name, "native", "vault" or a hex address. Empty
// resolves to the zero address.
func (w *run) addr(name string) (common.Address, error) {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return common.Address{}, nil
	case strings.EqualFold(name, "native"):
		return chain.NativeAsset, nil
	case name == "vault" && w.vault != nil:
		return w.vault.Address(), nil
	}
	if hex, ok := w.s.Accounts[name]; ok {
		name = hex
	}
	if !common.IsHexAddress(name) {
		return common.Address{}, fmt.Errorf("unknown account %q", name)
	}
	return common.HexToAddress(name), nil
}

func (w *run) required(name string) (common.Address, error) {
	if strings.TrimSpace(name) == "" {
		return common.Address{}, fmt.Errorf("address is required")
	}
	return w.addr(name)
}
