package chain

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// NativeAsset is the placeholder address for the chain's native currency.
var NativeAsset = common.Address{}

// NativeDecimals is the precision of the native currency.
const NativeDecimals uint8 = 18

var (
	ErrUnknownToken          = errors.New("chain: unknown token")
	ErrInsufficientBalance   = errors.New("chain: insufficient balance")
	ErrInsufficientAllowance = errors.New("chain: insufficient allowance")
	ErrNoContract            = errors.New("chain: no contract at address")
	ErrNativeAllowance       = errors.New("chain: native currency has no allowances")
)

// Env is the execution environment a vault runs in. Every public vault
// operation takes a snapshot before touching state and reverts to it when
// the operation fails, so implementations must make snapshots cover every
// balance, allowance and contract state they hold.
type Env interface {
	Now() uint64
	Decimals(asset common.Address) (uint8, error)
	BalanceOf(asset, holder common.Address) *uint256.Int
	Transfer(asset, from, to common.Address, amount *uint256.Int) error
	TransferFrom(asset, spender, from, to common.Address, amount *uint256.Int) error
	Approve(asset, owner, spender common.Address, amount *uint256.Int) error
	Allowance(asset, owner, spender common.Address) *uint256.Int

	// Call invokes target on behalf of caller, moving value of the native
	// currency first. A failed call leaves no trace.
	Call(caller, target common.Address, data []byte, value *uint256.Int) ([]byte, error)

	Snapshot() int
	RevertToSnapshot(id int)
	DiscardSnapshot(id int)
}

// Contract is code reachable through Env.Call. The value, if any, has already
// been credited to the contract when Invoke runs.
type Contract interface {
	Invoke(env Env, self, caller common.Address, data []byte, value *uint256.Int) ([]byte, error)
}

// Journaled is implemented by contracts that keep state outside the Env
// ledger and must take part in snapshots.
type Journaled interface {
	SnapshotState() interface{}
	RestoreState(state interface{})
}

// IsNative reports whether asset is the native currency placeholder.
func IsNative(asset common.Address) bool {
	return asset == NativeAsset
}
