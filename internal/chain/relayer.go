package chain

import (
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

const swapRelayerABIJSON = `[
  {
    "inputs": [
      {"internalType": "address", "name": "src", "type": "address"},
      {"internalType": "address", "name": "dst", "type": "address"},
      {"internalType": "uint256", "name": "amountIn", "type": "uint256"},
      {"internalType": "address", "name": "router", "type": "address"},
      {"internalType": "bytes", "name": "data", "type": "bytes"}
    ],
    "name": "executeSwap",
    "outputs": [],
    "stateMutability": "payable",
    "type": "function"
  }
]`

var (
	swapRelayerABI     abi.ABI
	swapRelayerABIOnce sync.Once
	swapRelayerABIErr  error
)

// SwapRelayerABI returns the parsed relayer ABI.
func SwapRelayerABI() (abi.ABI, error) {
	swapRelayerABIOnce.Do(func() {
		swapRelayerABI, swapRelayerABIErr = abi.JSON(strings.NewReader(swapRelayerABIJSON))
	})
	return swapRelayerABI, swapRelayerABIErr
}

// PackRelayedSwap encodes a relayer executeSwap call.
func PackRelayedSwap(src, dst common.Address, amountIn *uint256.Int, router common.Address, data []byte) ([]byte, error) {
	parsed, err := SwapRelayerABI()
	if err != nil {
		return nil, fmt.Errorf("parse relayer abi: %w", err)
	}
	return parsed.Pack("executeSwap", src, dst, amountIn.ToBig(), router, data)
}

// SwapRelayer runs swaps on behalf of a vault so the vault itself never
// grants allowances to arbitrary routers. It holds the input only for the
// duration of the call and sends every remaining src and dst unit back to
// the caller.
type SwapRelayer struct{}

func (SwapRelayer) Invoke(env Env, self, caller common.Address, data []byte, value *uint256.Int) ([]byte, error) {
	parsed, err := SwapRelayerABI()
	if err != nil {
		return nil, fmt.Errorf("parse relayer abi: %w", err)
	}
	if len(data) < 4 {
		return nil, fmt.Errorf("relayer: short calldata")
	}
	method, err := parsed.MethodById(data[:4])
	if err != nil || method.Name != "executeSwap" {
		return nil, fmt.Errorf("relayer: unknown method")
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, fmt.Errorf("relayer: unpack executeSwap: %w", err)
	}
	src := args[0].(common.Address)
	dst := args[1].(common.Address)
	amountIn, overflow := uint256.FromBig(args[2].(*big.Int))
	if overflow {
		return nil, fmt.Errorf("relayer: amount overflow")
	}
	router := args[3].(common.Address)
	payload := args[4].([]byte)

	if IsNative(src) {
		if _, err := env.Call(self, router, payload, amountIn); err != nil {
			return nil, err
		}
	} else {
		if err := env.Approve(src, self, router, amountIn); err != nil {
			return nil, err
		}
		if _, err := env.Call(self, router, payload, nil); err != nil {
			return nil, err
		}
		if err := env.Approve(src, self, router, nil); err != nil {
			return nil, err
		}
	}

	for _, asset := range []common.Address{src, dst} {
		if err := env.Transfer(asset, self, caller, env.BalanceOf(asset, self)); err != nil {
			return nil, fmt.Errorf("relayer: return %s: %w", asset.Hex(), err)
		}
	}
	return nil, nil
}
