package vault

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"liquidityVault/internal/model"
)

// SetFeeConfig replaces the fee configuration. The management fee accrued so
// far is settled at the old rate first.
func (v *Vault) SetFeeConfig(sender common.Address, cfg FeeConfig) error {
	return v.execute("set_fee_config", func() error {
		if err := v.onlyOwner(sender); err != nil {
			return err
		}
		if err := cfg.Validate(v.feeCap); err != nil {
			return err
		}
		if err := v.collectManagementFee(); err != nil {
			return err
		}
		v.st.feeConfig = cfg
		v.emit(model.EventFeeConfigChanged, model.FeeConfigEventData{
			Treasury:       cfg.Treasury.Hex(),
			EntryFee:       cfg.EntryFee,
			ExitFee:        cfg.ExitFee,
			PerformanceFee: cfg.PerformanceFee,
			ManagementFee:  cfg.ManagementFee,
		})
		v.afterCommit(func() {
			v.logger.Info("fee config updated",
				zap.String("vault", v.address.Hex()),
				zap.String("treasury", cfg.Treasury.Hex()),
				zap.Uint32("entry_fee", cfg.EntryFee),
				zap.Uint32("exit_fee", cfg.ExitFee),
				zap.Uint32("performance_fee", cfg.PerformanceFee),
				zap.Uint32("management_fee", cfg.ManagementFee),
			)
		})
		return nil
	})
}

// AssignManager hands the manager role to manager.
func (v *Vault) AssignManager(sender, manager common.Address) error {
	return v.execute("assign_manager", func() error {
		if err := v.onlyOwner(sender); err != nil {
			return err
		}
		if manager == (common.Address{}) {
			return ErrInvalidAddress
		}
		prev := v.st.manager
		v.st.manager = manager
		v.roleChanged(model.EventManagerChanged, prev, manager)
		return nil
	})
}

func (v *Vault) TransferOwnership(sender, owner common.Address) error {
	return v.execute("transfer_ownership", func() error {
		if err := v.onlyOwner(sender); err != nil {
			return err
		}
		if owner == (common.Address{}) {
			return ErrInvalidAddress
		}
		prev := v.st.owner
		v.st.owner = owner
		v.roleChanged(model.EventOwnershipChanged, prev, owner)
		return nil
	})
}

// SetSwapRelayer routes manager swaps through relayer. The zero address
// makes the vault call swap targets directly again.
func (v *Vault) SetSwapRelayer(sender, relayer common.Address) error {
	return v.execute("set_swap_relayer", func() error {
		if err := v.onlyOwner(sender); err != nil {
			return err
		}
		switch relayer {
		case v.address, v.venue.Dex:
			return ErrInvalidAddress
		}
		if relayer != (common.Address{}) && (relayer == v.asset0 || relayer == v.asset1) {
			return ErrInvalidAddress
		}
		prev := v.st.swapRelayer
		v.st.swapRelayer = relayer
		v.roleChanged(model.EventSwapRelayerChanged, prev, relayer)
		return nil
	})
}

// Migrate moves the vault to a newer rule set. Only the factory that
// created the vault may call it.
func (v *Vault) Migrate(sender common.Address, rules Rules) error {
	return v.execute("migrate", func() error {
		if sender != v.factory || v.factory == (common.Address{}) {
			return ErrCallerIsNotFactory
		}
		if err := rules.Validate(); err != nil {
			return err
		}
		if rules.Version <= v.st.rules.Version {
			return fmt.Errorf("%w: version %d is not newer than %d", ErrInvalidRules, rules.Version, v.st.rules.Version)
		}
		if rules.MaxPositions < v.st.positions.Len() {
			return fmt.Errorf("%w: %d open positions exceed max %d", ErrInvalidRules, v.st.positions.Len(), rules.MaxPositions)
		}
		if rules.LiquidityLot != v.st.rules.LiquidityLot {
			return fmt.Errorf("%w: liquidity lot cannot change", ErrInvalidRules)
		}
		v.st.rules = rules
		v.emit(model.EventRulesMigrated, model.RulesEventData{
			Version:      rules.Version,
			MaxPositions: rules.MaxPositions,
			JITWindow:    rules.JITWindow,
		})
		v.afterCommit(func() {
			v.logger.Info("vault rules migrated",
				zap.String("vault", v.address.Hex()),
				zap.Uint32("version", rules.Version),
			)
		})
		return nil
	})
}

func (v *Vault) roleChanged(event string, prev, current common.Address) {
	v.emit(event, model.RoleChangedEventData{
		Previous: prev.Hex(),
		Current:  current.Hex(),
	})
	v.afterCommit(func() {
		v.logger.Info("vault role changed",
			zap.String("vault", v.address.Hex()),
			zap.String("event", event),
			zap.String("previous", prev.Hex()),
			zap.String("current", current.Hex()),
		)
	})
}
