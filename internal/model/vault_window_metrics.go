package model

import "time"

// VaultWindowMetrics stores aggregated journal activity for one vault window.
type VaultWindowMetrics struct {
	ChainID            uint64
	VaultAddress       string
	WindowSizeSecs     int64
	WindowStart        time.Time
	WindowEnd          time.Time
	DepositCount       uint64
	WithdrawCount      uint64
	SwapCount          uint64
	SharesMinted       string
	SharesBurned       string
	Deposited0         string
	Deposited1         string
	Withdrawn0         string
	Withdrawn1         string
	EntryFee0          string
	EntryFee1          string
	ExitFeeShares      string
	ManagementFeeShare string
	Collected0         string
	Collected1         string
	SwapIn             string
	SwapOut            string
}
