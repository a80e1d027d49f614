package chain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// TokenInfo describes an ERC-20 style token registered with Memory.
type TokenInfo struct {
	Symbol   string
	Decimals uint8
}

type allowanceKey struct {
	owner   common.Address
	spender common.Address
}

type memoryState struct {
	balances   map[common.Address]map[common.Address]*uint256.Int
	allowances map[common.Address]map[allowanceKey]*uint256.Int
	contracts  map[common.Address]interface{}
}

// Memory is an in-memory ledger implementing Env. Snapshots are full copies
// of the ledger and of every Journaled contract. It is not safe for
// concurrent use.
type Memory struct {
	now        uint64
	tokens     map[common.Address]TokenInfo
	balances   map[common.Address]map[common.Address]*uint256.Int
	allowances map[common.Address]map[allowanceKey]*uint256.Int
	contracts  map[common.Address]Contract
	snapshots  []memoryState
}

// NewMemory creates an empty ledger starting at the given unix time.
func NewMemory(now uint64) *Memory {
	return &Memory{
		now:        now,
		tokens:     make(map[common.Address]TokenInfo),
		balances:   make(map[common.Address]map[common.Address]*uint256.Int),
		allowances: make(map[common.Address]map[allowanceKey]*uint256.Int),
		contracts:  make(map[common.Address]Contract),
	}
}

// RegisterToken adds an ERC-20 style token.
func (m *Memory) RegisterToken(address common.Address, info TokenInfo) {
	m.tokens[address] = info
}

// Deploy places contract code at address.
func (m *Memory) Deploy(address common.Address, contract Contract) {
	m.contracts[address] = contract
}

// Mint credits amount of asset to holder out of thin air.
func (m *Memory) Mint(asset, holder common.Address, amount *uint256.Int) error {
	if err := m.knownAsset(asset); err != nil {
		return err
	}
	bal := m.balance(asset, holder)
	next, overflow := new(uint256.Int).AddOverflow(bal, amount)
	if overflow {
		return fmt.Errorf("mint %s: balance overflow", asset.Hex())
	}
	m.setBalance(asset, holder, next)
	return nil
}

// Advance moves the clock forward.
func (m *Memory) Advance(seconds uint64) {
	m.now += seconds
}

// SetTime sets the clock.
func (m *Memory) SetTime(now uint64) {
	m.now = now
}

func (m *Memory) Now() uint64 {
	return m.now
}

func (m *Memory) Decimals(asset common.Address) (uint8, error) {
	if IsNative(asset) {
		return NativeDecimals, nil
	}
	info, ok := m.tokens[asset]
	if !ok {
		return 0, fmt.Errorf("decimals %s: %w", asset.Hex(), ErrUnknownToken)
	}
	return info.Decimals, nil
}

// Symbol returns the registered symbol, or the hex address when unknown.
func (m *Memory) Symbol(asset common.Address) string {
	if IsNative(asset) {
		return "NATIVE"
	}
	if info, ok := m.tokens[asset]; ok && info.Symbol != "" {
		return info.Symbol
	}
	return asset.Hex()
}

func (m *Memory) BalanceOf(asset, holder common.Address) *uint256.Int {
	return m.balance(asset, holder).Clone()
}

func (m *Memory) Transfer(asset, from, to common.Address, amount *uint256.Int) error {
	if err := m.knownAsset(asset); err != nil {
		return err
	}
	if amount == nil || amount.IsZero() || from == to {
		return nil
	}
	fromBal := m.balance(asset, from)
	if fromBal.Lt(amount) {
		return fmt.Errorf("transfer %s from %s: %w", asset.Hex(), from.Hex(), ErrInsufficientBalance)
	}
	toBal, overflow := new(uint256.Int).AddOverflow(m.balance(asset, to), amount)
	if overflow {
		return fmt.Errorf("transfer %s to %s: balance overflow", asset.Hex(), to.Hex())
	}
	m.setBalance(asset, from, new(uint256.Int).Sub(fromBal, amount))
	m.setBalance(asset, to, toBal)
	return nil
}

func (m *Memory) TransferFrom(asset, spender, from, to common.Address, amount *uint256.Int) error {
	if IsNative(asset) {
		return ErrNativeAllowance
	}
	if amount == nil || amount.IsZero() {
		return nil
	}
	if spender != from {
		allowed := m.Allowance(asset, from, spender)
		if allowed.Lt(amount) {
			return fmt.Errorf("transfer %s from %s by %s: %w", asset.Hex(), from.Hex(), spender.Hex(), ErrInsufficientAllowance)
		}
		if err := m.Transfer(asset, from, to, amount); err != nil {
			return err
		}
		return m.Approve(asset, from, spender, new(uint256.Int).Sub(allowed, amount))
	}
	return m.Transfer(asset, from, to, amount)
}

func (m *Memory) Approve(asset, owner, spender common.Address, amount *uint256.Int) error {
	if IsNative(asset) {
		return ErrNativeAllowance
	}
	if err := m.knownAsset(asset); err != nil {
		return err
	}
	byKey, ok := m.allowances[asset]
	if !ok {
		byKey = make(map[allowanceKey]*uint256.Int)
		m.allowances[asset] = byKey
	}
	key := allowanceKey{owner: owner, spender: spender}
	if amount == nil || amount.IsZero() {
		delete(byKey, key)
		return nil
	}
	byKey[key] = amount.Clone()
	return nil
}

func (m *Memory) Allowance(asset, owner, spender common.Address) *uint256.Int {
	if byKey, ok := m.allowances[asset]; ok {
		if v, ok := byKey[allowanceKey{owner: owner, spender: spender}]; ok {
			return v.Clone()
		}
	}
	return new(uint256.Int)
}

func (m *Memory) Call(caller, target common.Address, data []byte, value *uint256.Int) ([]byte, error) {
	id := m.Snapshot()
	if value != nil && !value.IsZero() {
		if err := m.Transfer(NativeAsset, caller, target, value); err != nil {
			m.RevertToSnapshot(id)
			return nil, fmt.Errorf("call %s: %w", target.Hex(), err)
		}
	}
	contract, ok := m.contracts[target]
	if !ok {
		if len(data) == 0 {
			m.DiscardSnapshot(id)
			return nil, nil
		}
		m.RevertToSnapshot(id)
		return nil, fmt.Errorf("call %s: %w", target.Hex(), ErrNoContract)
	}
	if value == nil {
		value = new(uint256.Int)
	}
	out, err := contract.Invoke(m, target, caller, data, value)
	if err != nil {
		m.RevertToSnapshot(id)
		return nil, fmt.Errorf("call %s: %w", target.Hex(), err)
	}
	m.DiscardSnapshot(id)
	return out, nil
}

func (m *Memory) Snapshot() int {
	state := memoryState{
		balances:   make(map[common.Address]map[common.Address]*uint256.Int, len(m.balances)),
		allowances: make(map[common.Address]map[allowanceKey]*uint256.Int, len(m.allowances)),
		contracts:  make(map[common.Address]interface{}),
	}
	for asset, holders := range m.balances {
		cp := make(map[common.Address]*uint256.Int, len(holders))
		for holder, bal := range holders {
			cp[holder] = bal.Clone()
		}
		state.balances[asset] = cp
	}
	for asset, byKey := range m.allowances {
		cp := make(map[allowanceKey]*uint256.Int, len(byKey))
		for key, v := range byKey {
			cp[key] = v.Clone()
		}
		state.allowances[asset] = cp
	}
	for address, contract := range m.contracts {
		if j, ok := contract.(Journaled); ok {
			state.contracts[address] = j.SnapshotState()
		}
	}
	m.snapshots = append(m.snapshots, state)
	return len(m.snapshots) - 1
}

func (m *Memory) RevertToSnapshot(id int) {
	if id < 0 || id >= len(m.snapshots) {
		return
	}
	state := m.snapshots[id]
	m.balances = state.balances
	m.allowances = state.allowances
	for address, saved := range state.contracts {
		if j, ok := m.contracts[address].(Journaled); ok {
			j.RestoreState(saved)
		}
	}
	m.snapshots = m.snapshots[:id]
}

func (m *Memory) DiscardSnapshot(id int) {
	if id < 0 || id >= len(m.snapshots) {
		return
	}
	m.snapshots = m.snapshots[:id]
}

func (m *Memory) knownAsset(asset common.Address) error {
	if IsNative(asset) {
		return nil
	}
	if _, ok := m.tokens[asset]; !ok {
		return fmt.Errorf("asset %s: %w", asset.Hex(), ErrUnknownToken)
	}
	return nil
}

func (m *Memory) balance(asset, holder common.Address) *uint256.Int {
	if holders, ok := m.balances[asset]; ok {
		if bal, ok := holders[holder]; ok {
			return bal
		}
	}
	return new(uint256.Int)
}

func (m *Memory) setBalance(asset, holder common.Address, amount *uint256.Int) {
	holders, ok := m.balances[asset]
	if !ok {
		holders = make(map[common.Address]*uint256.Int)
		m.balances[asset] = holders
	}
	if amount.IsZero() {
		delete(holders, holder)
		return
	}
	holders[holder] = amount
}
