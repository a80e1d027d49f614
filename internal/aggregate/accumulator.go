package aggregate

import (
	"encoding/json"
	"fmt"
	"math/big"

	"liquidityVault/internal/model"
)

// Accumulator holds aggregate values for a vault window.
type Accumulator struct {
	ChainID       uint64
	VaultAddress  string
	WindowStart   uint64
	WindowEnd     uint64
	DepositCount  uint64
	WithdrawCount uint64
	SwapCount     uint64
	SharesMinted  *big.Int
	SharesBurned  *big.Int
	Deposited0    *big.Int
	Deposited1    *big.Int
	Withdrawn0    *big.Int
	Withdrawn1    *big.Int
	EntryFee0     *big.Int
	EntryFee1     *big.Int
	ExitFeeShares *big.Int
	ManagementFee *big.Int
	Collected0    *big.Int
	Collected1    *big.Int
	SwapIn        *big.Int
	SwapOut       *big.Int
	LastTS        uint64
}

func NewAccumulator(record model.VaultEventRecord, windowStart, windowEnd uint64) *Accumulator {
	return &Accumulator{
		ChainID:       record.ChainID,
		VaultAddress:  record.Address,
		WindowStart:   windowStart,
		WindowEnd:     windowEnd,
		SharesMinted:  big.NewInt(0),
		SharesBurned:  big.NewInt(0),
		Deposited0:    big.NewInt(0),
		Deposited1:    big.NewInt(0),
		Withdrawn0:    big.NewInt(0),
		Withdrawn1:    big.NewInt(0),
		EntryFee0:     big.NewInt(0),
		EntryFee1:     big.NewInt(0),
		ExitFeeShares: big.NewInt(0),
		ManagementFee: big.NewInt(0),
		Collected0:    big.NewInt(0),
		Collected1:    big.NewInt(0),
		SwapIn:        big.NewInt(0),
		SwapOut:       big.NewInt(0),
		LastTS:        record.Timestamp,
	}
}

// AddEvent folds one journal record into the window. Events that carry no
// flow (role and config changes) only advance LastTS.
func (a *Accumulator) AddEvent(record model.VaultEventRecord) error {
	if record.Timestamp >= a.LastTS {
		a.LastTS = record.Timestamp
	}

	switch record.EventName {
	case model.EventDeposit:
		var deposit model.DepositEventData
		if err := json.Unmarshal(record.Decoded, &deposit); err != nil {
			return fmt.Errorf("decode deposit: %w", err)
		}
		if err := addAll(
			pair{a.SharesMinted, deposit.Shares},
			pair{a.Deposited0, deposit.Amount0},
			pair{a.Deposited1, deposit.Amount1},
			pair{a.EntryFee0, deposit.EntryFee0},
			pair{a.EntryFee1, deposit.EntryFee1},
		); err != nil {
			return err
		}
		a.DepositCount++
	case model.EventWithdraw:
		var withdraw model.WithdrawEventData
		if err := json.Unmarshal(record.Decoded, &withdraw); err != nil {
			return fmt.Errorf("decode withdraw: %w", err)
		}
		shares, err := parseBigInt(withdraw.Shares)
		if err != nil {
			return err
		}
		exit, err := parseBigInt(withdraw.ExitFeeShares)
		if err != nil {
			return err
		}
		if err := addAll(
			pair{a.Withdrawn0, withdraw.Amount0},
			pair{a.Withdrawn1, withdraw.Amount1},
		); err != nil {
			return err
		}
		a.SharesBurned.Add(a.SharesBurned, new(big.Int).Sub(shares, exit))
		a.ExitFeeShares.Add(a.ExitFeeShares, exit)
		a.WithdrawCount++
	case model.EventManagementFee:
		var fee model.ManagementFeeEventData
		if err := json.Unmarshal(record.Decoded, &fee); err != nil {
			return fmt.Errorf("decode management fee: %w", err)
		}
		return addAll(pair{a.ManagementFee, fee.Shares})
	case model.EventCollectSwapFees:
		var collect model.CollectEventData
		if err := json.Unmarshal(record.Decoded, &collect); err != nil {
			return fmt.Errorf("decode collect: %w", err)
		}
		return addAll(
			pair{a.Collected0, collect.Amount0},
			pair{a.Collected1, collect.Amount1},
		)
	case model.EventSwap:
		var swap model.SwapEventData
		if err := json.Unmarshal(record.Decoded, &swap); err != nil {
			return fmt.Errorf("decode swap: %w", err)
		}
		if err := addAll(
			pair{a.SwapIn, swap.AmountIn},
			pair{a.SwapOut, swap.AmountOut},
		); err != nil {
			return err
		}
		a.SwapCount++
	}
	return nil
}

// Empty reports whether the window saw no flow.
func (a *Accumulator) Empty() bool {
	return a.DepositCount == 0 && a.WithdrawCount == 0 && a.SwapCount == 0 &&
		a.ManagementFee.Sign() == 0 && a.Collected0.Sign() == 0 && a.Collected1.Sign() == 0
}
