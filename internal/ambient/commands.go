package ambient

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// LiquidityLot is the granularity of concentrated liquidity on the venue.
// Mint and burn quantities must be multiples of it.
const LiquidityLot uint64 = 1024

// CallPaths selects the venue proxy and the LP command codes a vault uses.
type CallPaths struct {
	SwapCallPath uint16 `mapstructure:"swap-call-path" yaml:"swap_call_path"`
	LPCallPath   uint16 `mapstructure:"lp-call-path" yaml:"lp_call_path"`
	MintCode     uint8  `mapstructure:"mint-code" yaml:"mint_code"`
	BurnCode     uint8  `mapstructure:"burn-code" yaml:"burn_code"`
	HarvestCode  uint8  `mapstructure:"harvest-code" yaml:"harvest_code"`
}

// DefaultCallPaths returns the hot path for swaps and the warm LP path with
// the fixed-liquidity mint and burn codes.
func DefaultCallPaths() CallPaths {
	return CallPaths{
		SwapCallPath: 1,
		LPCallPath:   128,
		MintCode:     1,
		BurnCode:     2,
		HarvestCode:  5,
	}
}

// Validate rejects call paths that cannot be told apart.
func (p CallPaths) Validate() error {
	if p.SwapCallPath == p.LPCallPath {
		return fmt.Errorf("swap and lp call paths must differ")
	}
	if p.MintCode == p.BurnCode || p.MintCode == p.HarvestCode || p.BurnCode == p.HarvestCode {
		return fmt.Errorf("lp command codes must be distinct")
	}
	return nil
}

// LPCommand is a concentrated range mint, burn or harvest.
type LPCommand struct {
	Code         uint8
	Base         common.Address
	Quote        common.Address
	PoolIdx      uint64
	BidTick      int32
	AskTick      int32
	Liquidity    *uint256.Int
	LimitLower   *uint256.Int
	LimitHigher  *uint256.Int
	ReserveFlags uint8
	LPConduit    common.Address
}

// SwapCommand is a hot path swap. IsBuy pays base and receives quote.
type SwapCommand struct {
	Base         common.Address
	Quote        common.Address
	PoolIdx      uint64
	IsBuy        bool
	InBaseQty    bool
	Qty          *uint256.Int
	Tip          uint16
	LimitPrice   *uint256.Int
	MinOut       *uint256.Int
	ReserveFlags uint8
}

var (
	lpArgs      abi.Arguments
	swapArgs    abi.Arguments
	argsOnce    sync.Once
	argsInitErr error
)

func commandArguments() (abi.Arguments, abi.Arguments, error) {
	argsOnce.Do(func() {
		types := make(map[string]abi.Type)
		for _, name := range []string{"uint8", "uint16", "int24", "uint128", "uint256", "address", "bool"} {
			t, err := abi.NewType(name, "", nil)
			if err != nil {
				argsInitErr = fmt.Errorf("abi type %s: %w", name, err)
				return
			}
			types[name] = t
		}
		lpArgs = abi.Arguments{
			{Name: "code", Type: types["uint8"]},
			{Name: "base", Type: types["address"]},
			{Name: "quote", Type: types["address"]},
			{Name: "poolIdx", Type: types["uint256"]},
			{Name: "bidTick", Type: types["int24"]},
			{Name: "askTick", Type: types["int24"]},
			{Name: "qty", Type: types["uint128"]},
			{Name: "limitLower", Type: types["uint128"]},
			{Name: "limitHigher", Type: types["uint128"]},
			{Name: "reserveFlags", Type: types["uint8"]},
			{Name: "lpConduit", Type: types["address"]},
		}
		swapArgs = abi.Arguments{
			{Name: "base", Type: types["address"]},
			{Name: "quote", Type: types["address"]},
			{Name: "poolIdx", Type: types["uint256"]},
			{Name: "isBuy", Type: types["bool"]},
			{Name: "inBaseQty", Type: types["bool"]},
			{Name: "qty", Type: types["uint128"]},
			{Name: "tip", Type: types["uint16"]},
			{Name: "limitPrice", Type: types["uint128"]},
			{Name: "minOut", Type: types["uint128"]},
			{Name: "reserveFlags", Type: types["uint8"]},
		}
	})
	return lpArgs, swapArgs, argsInitErr
}

// Encode ABI-encodes the command body.
func (c LPCommand) Encode() ([]byte, error) {
	args, _, err := commandArguments()
	if err != nil {
		return nil, err
	}
	qty, err := uint128Big(c.Liquidity, "qty")
	if err != nil {
		return nil, err
	}
	lower, err := uint128Big(c.LimitLower, "limitLower")
	if err != nil {
		return nil, err
	}
	higher, err := uint128Big(c.LimitHigher, "limitHigher")
	if err != nil {
		return nil, err
	}
	return args.Pack(
		c.Code,
		c.Base,
		c.Quote,
		new(big.Int).SetUint64(c.PoolIdx),
		big.NewInt(int64(c.BidTick)),
		big.NewInt(int64(c.AskTick)),
		qty,
		lower,
		higher,
		c.ReserveFlags,
		c.LPConduit,
	)
}

// DecodeLPCommand parses an LP command body.
func DecodeLPCommand(data []byte) (LPCommand, error) {
	args, _, err := commandArguments()
	if err != nil {
		return LPCommand{}, err
	}
	values, err := args.Unpack(data)
	if err != nil {
		return LPCommand{}, fmt.Errorf("unpack lp command: %w", err)
	}
	if len(values) != len(args) {
		return LPCommand{}, fmt.Errorf("unexpected lp command values: %d", len(values))
	}

	code, err := asUint8(values[0])
	if err != nil {
		return LPCommand{}, fmt.Errorf("code: %w", err)
	}
	base, err := asAddress(values[1])
	if err != nil {
		return LPCommand{}, fmt.Errorf("base: %w", err)
	}
	quote, err := asAddress(values[2])
	if err != nil {
		return LPCommand{}, fmt.Errorf("quote: %w", err)
	}
	poolIdx, err := asBigInt(values[3])
	if err != nil || !poolIdx.IsUint64() {
		return LPCommand{}, fmt.Errorf("pool index out of range")
	}
	bidBig, err := asBigInt(values[4])
	if err != nil {
		return LPCommand{}, fmt.Errorf("bid tick: %w", err)
	}
	bid, err := int24FromBig(bidBig)
	if err != nil {
		return LPCommand{}, fmt.Errorf("bid tick: %w", err)
	}
	askBig, err := asBigInt(values[5])
	if err != nil {
		return LPCommand{}, fmt.Errorf("ask tick: %w", err)
	}
	ask, err := int24FromBig(askBig)
	if err != nil {
		return LPCommand{}, fmt.Errorf("ask tick: %w", err)
	}
	qty, err := asUint256(values[6])
	if err != nil {
		return LPCommand{}, fmt.Errorf("qty: %w", err)
	}
	lower, err := asUint256(values[7])
	if err != nil {
		return LPCommand{}, fmt.Errorf("limit lower: %w", err)
	}
	higher, err := asUint256(values[8])
	if err != nil {
		return LPCommand{}, fmt.Errorf("limit higher: %w", err)
	}
	flags, err := asUint8(values[9])
	if err != nil {
		return LPCommand{}, fmt.Errorf("reserve flags: %w", err)
	}
	conduit, err := asAddress(values[10])
	if err != nil {
		return LPCommand{}, fmt.Errorf("lp conduit: %w", err)
	}

	return LPCommand{
		Code:         code,
		Base:         base,
		Quote:        quote,
		PoolIdx:      poolIdx.Uint64(),
		BidTick:      bid,
		AskTick:      ask,
		Liquidity:    qty,
		LimitLower:   lower,
		LimitHigher:  higher,
		ReserveFlags: flags,
		LPConduit:    conduit,
	}, nil
}

// Encode ABI-encodes the swap command body.
func (c SwapCommand) Encode() ([]byte, error) {
	_, args, err := commandArguments()
	if err != nil {
		return nil, err
	}
	qty, err := uint128Big(c.Qty, "qty")
	if err != nil {
		return nil, err
	}
	limit, err := uint128Big(c.LimitPrice, "limitPrice")
	if err != nil {
		return nil, err
	}
	minOut, err := uint128Big(c.MinOut, "minOut")
	if err != nil {
		return nil, err
	}
	return args.Pack(
		c.Base,
		c.Quote,
		new(big.Int).SetUint64(c.PoolIdx),
		c.IsBuy,
		c.InBaseQty,
		qty,
		c.Tip,
		limit,
		minOut,
		c.ReserveFlags,
	)
}

// DecodeSwapCommand parses a swap command body.
func DecodeSwapCommand(data []byte) (SwapCommand, error) {
	_, args, err := commandArguments()
	if err != nil {
		return SwapCommand{}, err
	}
	values, err := args.Unpack(data)
	if err != nil {
		return SwapCommand{}, fmt.Errorf("unpack swap command: %w", err)
	}
	if len(values) != len(args) {
		return SwapCommand{}, fmt.Errorf("unexpected swap command values: %d", len(values))
	}

	base, err := asAddress(values[0])
	if err != nil {
		return SwapCommand{}, fmt.Errorf("base: %w", err)
	}
	quote, err := asAddress(values[1])
	if err != nil {
		return SwapCommand{}, fmt.Errorf("quote: %w", err)
	}
	poolIdx, err := asBigInt(values[2])
	if err != nil || !poolIdx.IsUint64() {
		return SwapCommand{}, fmt.Errorf("pool index out of range")
	}
	isBuy, ok := values[3].(bool)
	if !ok {
		return SwapCommand{}, fmt.Errorf("isBuy: unsupported type %T", values[3])
	}
	inBase, ok := values[4].(bool)
	if !ok {
		return SwapCommand{}, fmt.Errorf("inBaseQty: unsupported type %T", values[4])
	}
	qty, err := asUint256(values[5])
	if err != nil {
		return SwapCommand{}, fmt.Errorf("qty: %w", err)
	}
	tip, ok := values[6].(uint16)
	if !ok {
		return SwapCommand{}, fmt.Errorf("tip: unsupported type %T", values[6])
	}
	limit, err := asUint256(values[7])
	if err != nil {
		return SwapCommand{}, fmt.Errorf("limit price: %w", err)
	}
	minOut, err := asUint256(values[8])
	if err != nil {
		return SwapCommand{}, fmt.Errorf("min out: %w", err)
	}
	flags, err := asUint8(values[9])
	if err != nil {
		return SwapCommand{}, fmt.Errorf("reserve flags: %w", err)
	}

	return SwapCommand{
		Base:         base,
		Quote:        quote,
		PoolIdx:      poolIdx.Uint64(),
		IsBuy:        isBuy,
		InBaseQty:    inBase,
		Qty:          qty,
		Tip:          tip,
		LimitPrice:   limit,
		MinOut:       minOut,
		ReserveFlags: flags,
	}, nil
}

// PackUserCmd wraps a command body into userCmd calldata.
func PackUserCmd(callPath uint16, cmd []byte) ([]byte, error) {
	parsed, err := DexABI()
	if err != nil {
		return nil, fmt.Errorf("parse dex abi: %w", err)
	}
	return parsed.Pack("userCmd", callPath, cmd)
}

// UnpackUserCmd splits userCmd calldata into call path and command body.
func UnpackUserCmd(data []byte) (uint16, []byte, error) {
	parsed, err := DexABI()
	if err != nil {
		return 0, nil, fmt.Errorf("parse dex abi: %w", err)
	}
	if len(data) < 4 {
		return 0, nil, fmt.Errorf("short calldata")
	}
	method, err := parsed.MethodById(data[:4])
	if err != nil || method.Name != "userCmd" {
		return 0, nil, fmt.Errorf("unknown selector %x", data[:4])
	}
	values, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return 0, nil, fmt.Errorf("unpack userCmd: %w", err)
	}
	callPath, ok := values[0].(uint16)
	if !ok {
		return 0, nil, fmt.Errorf("callpath: unsupported type %T", values[0])
	}
	cmd, ok := values[1].([]byte)
	if !ok {
		return 0, nil, fmt.Errorf("cmd: unsupported type %T", values[1])
	}
	return callPath, cmd, nil
}

func uint128Big(v *uint256.Int, field string) (*big.Int, error) {
	if v == nil {
		return new(big.Int), nil
	}
	if v.BitLen() > 128 {
		return nil, fmt.Errorf("%s exceeds uint128", field)
	}
	return v.ToBig(), nil
}
