package ambient

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const dexABIJSON = `[
  {
    "inputs": [
      {"internalType": "uint16", "name": "callpath", "type": "uint16"},
      {"internalType": "bytes", "name": "cmd", "type": "bytes"}
    ],
    "name": "userCmd",
    "outputs": [{"internalType": "bytes", "name": "", "type": "bytes"}],
    "stateMutability": "payable",
    "type": "function"
  }
]`

const queryABIJSON = `[
  {
    "inputs": [
      {"internalType": "address", "name": "base", "type": "address"},
      {"internalType": "address", "name": "quote", "type": "address"},
      {"internalType": "uint256", "name": "poolIdx", "type": "uint256"}
    ],
    "name": "queryPrice",
    "outputs": [{"internalType": "uint128", "name": "", "type": "uint128"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "address", "name": "base", "type": "address"},
      {"internalType": "address", "name": "quote", "type": "address"},
      {"internalType": "uint256", "name": "poolIdx", "type": "uint256"}
    ],
    "name": "queryCurveTick",
    "outputs": [{"internalType": "int24", "name": "", "type": "int24"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "address", "name": "owner", "type": "address"},
      {"internalType": "address", "name": "base", "type": "address"},
      {"internalType": "address", "name": "quote", "type": "address"},
      {"internalType": "uint256", "name": "poolIdx", "type": "uint256"},
      {"internalType": "int24", "name": "lowerTick", "type": "int24"},
      {"internalType": "int24", "name": "upperTick", "type": "int24"}
    ],
    "name": "queryRangeTokens",
    "outputs": [
      {"internalType": "uint128", "name": "liq", "type": "uint128"},
      {"internalType": "uint128", "name": "baseQty", "type": "uint128"},
      {"internalType": "uint128", "name": "quoteQty", "type": "uint128"}
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "address", "name": "owner", "type": "address"},
      {"internalType": "address", "name": "base", "type": "address"},
      {"internalType": "address", "name": "quote", "type": "address"},
      {"internalType": "uint256", "name": "poolIdx", "type": "uint256"},
      {"internalType": "int24", "name": "lowerTick", "type": "int24"},
      {"internalType": "int24", "name": "upperTick", "type": "int24"}
    ],
    "name": "queryConcRewards",
    "outputs": [
      {"internalType": "uint128", "name": "liqRewards", "type": "uint128"},
      {"internalType": "uint128", "name": "baseRewards", "type": "uint128"},
      {"internalType": "uint128", "name": "quoteRewards", "type": "uint128"}
    ],
    "stateMutability": "view",
    "type": "function"
  }
]`

const factoryABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "deployedAddress", "type": "address"}
    ],
    "name": "VaultDeployed",
    "type": "event"
  }
]`

// ERC20 views read by the quote tooling.
const erc20ABIJSON = `[
  {"inputs": [], "name": "decimals", "outputs": [{"type": "uint8"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "symbol", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "name", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "account", "type": "address"}], "name": "balanceOf", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"}
]`

// Some older tokens return bytes32 for symbol and name.
const erc20Bytes32ABIJSON = `[
  {"inputs": [], "name": "symbol", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "name", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"}
]`

// lazyABI parses its JSON on first use.
type lazyABI struct {
	json   string
	once   sync.Once
	parsed abi.ABI
	err    error
}

func (l *lazyABI) get() (abi.ABI, error) {
	l.once.Do(func() {
		l.parsed, l.err = abi.JSON(strings.NewReader(l.json))
	})
	return l.parsed, l.err
}

var (
	dexABI          = &lazyABI{json: dexABIJSON}
	queryABI        = &lazyABI{json: queryABIJSON}
	factoryABI      = &lazyABI{json: factoryABIJSON}
	erc20ABI        = &lazyABI{json: erc20ABIJSON}
	erc20Bytes32ABI = &lazyABI{json: erc20Bytes32ABIJSON}
)

// DexABI returns the parsed swap dex ABI (the userCmd entry point).
func DexABI() (abi.ABI, error) { return dexABI.get() }

// QueryABI returns the parsed read-only query contract ABI.
func QueryABI() (abi.ABI, error) { return queryABI.get() }

// FactoryABI returns the parsed vault factory event ABI.
func FactoryABI() (abi.ABI, error) { return factoryABI.get() }
