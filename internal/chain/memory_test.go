package chain

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	tokenA = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	alice  = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob    = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
)

type failingContract struct{}

func (failingContract) Invoke(env Env, self, caller common.Address, data []byte, value *uint256.Int) ([]byte, error) {
	if err := env.Transfer(tokenA, caller, self, uint256.NewInt(1)); err != nil {
		return nil, err
	}
	return nil, errors.New("boom")
}

func newTestMemory(t *testing.T) *Memory {
	t.Helper()
	m := NewMemory(1_000)
	m.RegisterToken(tokenA, TokenInfo{Symbol: "TKA", Decimals: 6})
	if err := m.Mint(tokenA, alice, uint256.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := m.Mint(NativeAsset, alice, uint256.NewInt(50)); err != nil {
		t.Fatalf("mint native: %v", err)
	}
	return m
}

func TestMemoryTransferAndAllowance(t *testing.T) {
	m := newTestMemory(t)

	if err := m.Transfer(tokenA, alice, bob, uint256.NewInt(101)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if err := m.TransferFrom(tokenA, bob, alice, bob, uint256.NewInt(10)); !errors.Is(err, ErrInsufficientAllowance) {
		t.Fatalf("expected ErrInsufficientAllowance, got %v", err)
	}
	if err := m.Approve(tokenA, alice, bob, uint256.NewInt(30)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := m.TransferFrom(tokenA, bob, alice, bob, uint256.NewInt(10)); err != nil {
		t.Fatalf("transferFrom: %v", err)
	}
	if got := m.Allowance(tokenA, alice, bob); !got.Eq(uint256.NewInt(20)) {
		t.Fatalf("allowance not reduced: %s", got)
	}
	if got := m.BalanceOf(tokenA, bob); !got.Eq(uint256.NewInt(10)) {
		t.Fatalf("unexpected bob balance: %s", got)
	}
	if err := m.Approve(NativeAsset, alice, bob, uint256.NewInt(1)); !errors.Is(err, ErrNativeAllowance) {
		t.Fatalf("expected ErrNativeAllowance, got %v", err)
	}
}

func TestMemoryDecimals(t *testing.T) {
	m := newTestMemory(t)
	if d, err := m.Decimals(NativeAsset); err != nil || d != 18 {
		t.Fatalf("native decimals: %d %v", d, err)
	}
	if d, err := m.Decimals(tokenA); err != nil || d != 6 {
		t.Fatalf("token decimals: %d %v", d, err)
	}
	if _, err := m.Decimals(bob); !errors.Is(err, ErrUnknownToken) {
		t.Fatalf("expected ErrUnknownToken, got %v", err)
	}
}

func TestMemorySnapshotRevert(t *testing.T) {
	m := newTestMemory(t)
	id := m.Snapshot()
	if err := m.Transfer(tokenA, alice, bob, uint256.NewInt(40)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	inner := m.Snapshot()
	if err := m.Transfer(tokenA, alice, bob, uint256.NewInt(1)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	m.DiscardSnapshot(inner)
	m.RevertToSnapshot(id)

	if got := m.BalanceOf(tokenA, alice); !got.Eq(uint256.NewInt(100)) {
		t.Fatalf("revert did not restore alice: %s", got)
	}
	if got := m.BalanceOf(tokenA, bob); !got.IsZero() {
		t.Fatalf("revert did not restore bob: %s", got)
	}
}

func TestMemoryCallRevertsOnFailure(t *testing.T) {
	m := newTestMemory(t)
	target := common.HexToAddress("0x0000000000000000000000000000000000000bad")
	m.Deploy(target, failingContract{})

	if _, err := m.Call(alice, target, []byte{1}, uint256.NewInt(5)); err == nil {
		t.Fatalf("expected call failure")
	}
	if got := m.BalanceOf(NativeAsset, alice); !got.Eq(uint256.NewInt(50)) {
		t.Fatalf("native value not refunded: %s", got)
	}
	if got := m.BalanceOf(tokenA, target); !got.IsZero() {
		t.Fatalf("token movement not reverted: %s", got)
	}
	if _, err := m.Call(alice, bob, []byte{1}, nil); !errors.Is(err, ErrNoContract) {
		t.Fatalf("expected ErrNoContract, got %v", err)
	}
	if _, err := m.Call(alice, bob, nil, uint256.NewInt(5)); err != nil {
		t.Fatalf("plain value transfer: %v", err)
	}
	if got := m.BalanceOf(NativeAsset, bob); !got.Eq(uint256.NewInt(5)) {
		t.Fatalf("plain value transfer not credited: %s", got)
	}
}
