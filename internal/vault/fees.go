package vault

import (
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"liquidityVault/internal/clmath"
	"liquidityVault/internal/model"
)

// managementFeeShares returns the shares to mint so the treasury's share of
// supply grows as if rate (ppm per year) had been charged over elapsed
// seconds: ceil(S*rate*dt / (FeeMultiplier*SecondsPerYear - rate*dt)).
func managementFeeShares(supply *uint256.Int, rate uint32, elapsed uint64) (*uint256.Int, error) {
	if supply.IsZero() || rate == 0 || elapsed == 0 {
		return new(uint256.Int), nil
	}
	rateTime, err := clmath.Mul(uint256.NewInt(uint64(rate)), uint256.NewInt(elapsed))
	if err != nil {
		return nil, err
	}
	year := new(uint256.Int).Mul(uint256.NewInt(FeeMultiplier), uint256.NewInt(SecondsPerYear))
	if !rateTime.Lt(year) {
		return nil, ErrInvalidManagementFee
	}
	denominator := new(uint256.Int).Sub(year, rateTime)
	return clmath.MulDivUp(supply, rateTime, denominator)
}

// collectManagementFee mints the accrued management fee to the treasury and
// moves the checkpoint to now.
func (v *Vault) collectManagementFee() error {
	now := v.env.Now()
	last := v.st.lastCollectManagementFee
	if now <= last {
		return nil
	}
	fee := v.st.feeConfig
	minted, err := managementFeeShares(v.st.totalSupply, fee.ManagementFee, now-last)
	if err != nil {
		return err
	}
	v.st.lastCollectManagementFee = now
	if minted.IsZero() {
		return nil
	}
	if err := v.st.mint(fee.Treasury, minted); err != nil {
		return err
	}
	v.emit(model.EventManagementFee, model.ManagementFeeEventData{
		Treasury: fee.Treasury.Hex(),
		Shares:   dec(minted),
		Elapsed:  now - last,
	})
	v.afterCommit(func() {
		v.metrics.AddFeeShares(v.address.Hex(), "management", toFloat(minted))
		v.logger.Debug("management fee collected",
			zap.String("vault", v.address.Hex()),
			zap.String("shares", dec(minted)),
			zap.Uint64("elapsed", now-last),
		)
	})
	return nil
}

// entryFee is the extra input charged on top of amount, rounded up.
func (v *Vault) entryFee(amount *uint256.Int) (*uint256.Int, error) {
	return ppm(amount, v.st.feeConfig.EntryFee, true)
}

// exitFeeShares is the part of shares handed to the treasury, rounded down.
func (v *Vault) exitFeeShares(shares *uint256.Int) (*uint256.Int, error) {
	return ppm(shares, v.st.feeConfig.ExitFee, false)
}

// CollectManagementFee settles the management fee. Anyone may call it.
func (v *Vault) CollectManagementFee() error {
	return v.execute("collect_management_fee", v.collectManagementFee)
}
