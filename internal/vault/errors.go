package vault

import (
	"errors"

	"liquidityVault/internal/clmath"
)

var (
	ErrCallerIsNotOwner           = errors.New("vault: caller is not the owner")
	ErrCallerIsNotManager         = errors.New("vault: caller is not the manager")
	ErrCallerIsNotFactory         = errors.New("vault: caller is not the factory")
	ErrInvalidFeePercentage       = errors.New("vault: invalid fee percentage")
	ErrInvalidTreasury            = errors.New("vault: fees require a treasury")
	ErrInvalidShareAmount         = errors.New("vault: invalid share amount")
	ErrInsufficientShares         = errors.New("vault: insufficient shares")
	ErrInsufficientValue          = errors.New("vault: insufficient native value")
	ErrInvalidPriceSlippage       = errors.New("vault: invalid price slippage")
	ErrTransactionExpired         = errors.New("vault: transaction expired")
	ErrInvalidTickRange           = errors.New("vault: invalid tick range")
	ErrInvalidLiquidityAmount     = errors.New("vault: invalid liquidity amount")
	ErrPositionLengthExceedsLimit = errors.New("vault: position length exceeds limit")
	ErrPositionDoesNotExist       = errors.New("vault: position does not exist")
	ErrInsufficientLiquidity      = errors.New("vault: insufficient liquidity")
	ErrJITProtection              = errors.New("vault: liquidity is inside the jit protection window")
	ErrInvalidManagementFee       = errors.New("vault: invalid management fee interval")
	ErrInvalidSwapTarget          = errors.New("vault: invalid swap target")
	ErrInvalidSwapAmount          = errors.New("vault: invalid swap amount")
	ErrReentrancy                 = errors.New("vault: reentrant call")
	ErrExternalCall               = errors.New("vault: external call failed")
	ErrInvalidAddress             = errors.New("vault: invalid address")
	ErrInvalidRules               = errors.New("vault: invalid rules")
	ErrInvalidAssetOrder          = errors.New("vault: invalid asset order")
)

// ErrArithmeticOverflow is returned when an amount leaves the 256-bit range.
var ErrArithmeticOverflow = clmath.ErrOverflow
