package factory

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"liquidityVault/internal/chain"
	"liquidityVault/internal/metrics"
	"liquidityVault/internal/model"
	"liquidityVault/internal/vault"
)

var (
	ErrCallerIsNotOwner = errors.New("factory: caller is not the owner")
	ErrUnknownVault     = errors.New("factory: unknown vault")
	ErrStaleRules       = errors.New("factory: rules version must increase")
)

// Config wires a factory.
type Config struct {
	Address common.Address
	Owner   common.Address
	Venue   vault.Venue
	Rules   vault.Rules
}

// VaultParams are the per-vault arguments of CreateVault.
type VaultParams struct {
	Owner         common.Address
	Name          string
	Symbol        string
	DecimalOffset uint8
	Asset0        common.Address
	Asset1        common.Address
	PoolIdx       uint64
	Manager       common.Address
	FeeCap        uint32
	FeeConfig     vault.FeeConfig
}

// Factory creates vaults that share one venue and one versioned rule set.
// Publishing new rules does not touch existing vaults; each one moves to the
// current rules only through Migrate.
type Factory struct {
	env     chain.Env
	logger  *zap.Logger
	sink    vault.EventSink
	metrics *metrics.VaultMetrics

	address common.Address
	owner   common.Address
	venue   vault.Venue
	rules   vault.Rules
	nonce   uint64
	seq     uint64

	vaults []*vault.Vault
	byAddr map[common.Address]*vault.Vault
}

func New(env chain.Env, cfg Config, logger *zap.Logger) (*Factory, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Address == (common.Address{}) || cfg.Owner == (common.Address{}) {
		return nil, fmt.Errorf("factory and owner addresses are required")
	}
	if err := cfg.Rules.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Venue.CallPaths.Validate(); err != nil {
		return nil, fmt.Errorf("call paths: %w", err)
	}
	return &Factory{
		env:     env,
		logger:  logger,
		address: cfg.Address,
		owner:   cfg.Owner,
		venue:   cfg.Venue,
		rules:   cfg.Rules,
		nonce:   1,
		byAddr:  make(map[common.Address]*vault.Vault),
	}, nil
}

// SetEventSink routes factory events and the events of every vault created
// afterwards to sink.
func (f *Factory) SetEventSink(sink vault.EventSink) {
	f.sink = sink
}

func (f *Factory) SetMetrics(m *metrics.VaultMetrics) {
	f.metrics = m
}

func (f *Factory) Address() common.Address { return f.address }
func (f *Factory) Owner() common.Address { return f.owner }
func (f *Factory) Rules() vault.Rules { return f.rules }

// Vaults returns every vault in creation order.
func (f *Factory) Vaults() []*vault.Vault {
	out := make([]*vault.Vault, len(f.vaults))
	copy(out, f.vaults)
	return out
}

func (f *Factory) Vault(address common.Address) (*vault.Vault, bool) {
	v, ok := f.byAddr[address]
	return v, ok
}

// CreateVault deploys a vault at the next CREATE address of the factory.
func (f *Factory) CreateVault(sender common.Address, p VaultParams) (*vault.Vault, error) {
	if sender != f.owner {
		return nil, ErrCallerIsNotOwner
	}
	address := crypto.CreateAddress(f.address, f.nonce)
	v, err := vault.New(f.env, vault.Config{
		Address:       address,
		Factory:       f.address,
		Name:          p.Name,
		Symbol:        p.Symbol,
		DecimalOffset: p.DecimalOffset,
		Asset0:        p.Asset0,
		Asset1:        p.Asset1,
		PoolIdx:       p.PoolIdx,
		Owner:         p.Owner,
		Manager:       p.Manager,
		FeeCap:        p.FeeCap,
		FeeConfig:     p.FeeConfig,
		Venue:         f.venue,
		Rules:         f.rules,
	}, f.logger)
	if err != nil {
		return nil, fmt.Errorf("create vault: %w", err)
	}
	f.nonce++
	if f.sink != nil {
		v.SetEventSink(f.sink)
	}
	v.SetMetrics(f.metrics)
	f.vaults = append(f.vaults, v)
	f.byAddr[address] = v

	f.emit(model.EventVaultDeployed, model.VaultDeployedEventData{
		Vault:   address.Hex(),
		Owner:   p.Owner.Hex(),
		Name:    p.Name,
		Symbol:  p.Symbol,
		Asset0:  p.Asset0.Hex(),
		Asset1:  p.Asset1.Hex(),
		PoolIdx: p.PoolIdx,
	})
	f.logger.Info("vault deployed",
		zap.String("vault", address.Hex()),
		zap.String("name", p.Name),
		zap.Uint64("pool_idx", p.PoolIdx),
		zap.Uint32("rules_version", f.rules.Version),
	)
	return v, nil
}

// UpgradeRules publishes a newer rule set for vaults created or migrated
// from now on.
func (f *Factory) UpgradeRules(sender common.Address, rules vault.Rules) error {
	if sender != f.owner {
		return ErrCallerIsNotOwner
	}
	if err := rules.Validate(); err != nil {
		return err
	}
	if rules.Version <= f.rules.Version {
		return ErrStaleRules
	}
	f.rules = rules
	f.emit(model.EventRulesUpgraded, model.RulesEventData{
		Version:      rules.Version,
		MaxPositions: rules.MaxPositions,
		JITWindow:    rules.JITWindow,
	})
	f.logger.Info("rules upgraded", zap.Uint32("version", rules.Version))
	return nil
}

// Migrate moves a vault to the current rules. The factory owner or the
// vault owner may request it.
func (f *Factory) Migrate(sender, address common.Address) error {
	v, ok := f.byAddr[address]
	if !ok {
		return ErrUnknownVault
	}
	if sender != f.owner && sender != v.Owner() {
		return ErrCallerIsNotOwner
	}
	return v.Migrate(f.address, f.rules)
}

func (f *Factory) emit(name string, data interface{}) {
	if f.sink == nil {
		return
	}
	f.seq++
	event := model.VaultEvent{
		Seq:       f.seq,
		Address:   f.address.Hex(),
		EventName: name,
		Timestamp: f.env.Now(),
		Decoded:   data,
	}
	if err := f.sink.PutEvents([]model.VaultEvent{event}); err != nil {
		f.logger.Warn("journal factory event failed", zap.String("event", name), zap.Error(err))
	}
}
