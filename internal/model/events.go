package model

// Event names written to the vault journal.
const (
	EventDeposit            = "Deposit"
	EventWithdraw           = "Withdraw"
	EventShareTransfer      = "ShareTransfer"
	EventManagementFee      = "CollectManagementFee"
	EventAddLiquidity       = "AddLiquidity"
	EventRemoveLiquidity    = "RemoveLiquidity"
	EventCollectSwapFees    = "CollectSwapFees"
	EventSwap               = "Swap"
	EventFeeConfigChanged   = "FeeConfigChanged"
	EventManagerChanged     = "ManagerChanged"
	EventOwnershipChanged   = "OwnershipTransferred"
	EventSwapRelayerChanged = "SwapRelayerChanged"
	EventRulesMigrated      = "RulesMigrated"
	EventRulesUpgraded      = "RulesUpgraded"
	EventVaultDeployed      = "VaultDeployed"
)

// DepositEventData is emitted when shares are minted against assets.
type DepositEventData struct {
	Sender    string `json:"sender"`
	Shares    string `json:"shares"`
	Amount0   string `json:"amount0"`
	Amount1   string `json:"amount1"`
	EntryFee0 string `json:"entry_fee0"`
	EntryFee1 string `json:"entry_fee1"`
}

// WithdrawEventData is emitted when shares are redeemed.
type WithdrawEventData struct {
	Sender        string `json:"sender"`
	Shares        string `json:"shares"`
	ExitFeeShares string `json:"exit_fee_shares"`
	Amount0       string `json:"amount0"`
	Amount1       string `json:"amount1"`
}

// ShareTransferEventData records a holder-to-holder share movement.
type ShareTransferEventData struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Shares string `json:"shares"`
}

// ManagementFeeEventData records shares minted to the treasury.
type ManagementFeeEventData struct {
	Treasury string `json:"treasury"`
	Shares   string `json:"shares"`
	Elapsed  uint64 `json:"elapsed"`
}

// LiquidityEventData is the payload of AddLiquidity and RemoveLiquidity.
type LiquidityEventData struct {
	TickLower int32  `json:"tick_lower"`
	TickUpper int32  `json:"tick_upper"`
	Liquidity string `json:"liquidity"`
	Amount0   string `json:"amount0"`
	Amount1   string `json:"amount1"`
}

// CollectEventData records venue rewards harvested for a position.
type CollectEventData struct {
	TickLower int32  `json:"tick_lower"`
	TickUpper int32  `json:"tick_upper"`
	Amount0   string `json:"amount0"`
	Amount1   string `json:"amount1"`
}

// SwapEventData records a manager swap by its observed balance deltas.
type SwapEventData struct {
	ZeroForOne bool   `json:"zero_for_one"`
	Target     string `json:"target"`
	AmountIn   string `json:"amount_in"`
	AmountOut  string `json:"amount_out"`
}

// FeeConfigEventData mirrors a fee configuration write.
type FeeConfigEventData struct {
	Treasury       string `json:"treasury"`
	EntryFee       uint32 `json:"entry_fee"`
	ExitFee        uint32 `json:"exit_fee"`
	PerformanceFee uint32 `json:"performance_fee"`
	ManagementFee  uint32 `json:"management_fee"`
}

// RoleChangedEventData records an owner, manager or relayer change.
type RoleChangedEventData struct {
	Previous string `json:"previous"`
	Current  string `json:"current"`
}

// RulesEventData records a rule set version published or adopted.
type RulesEventData struct {
	Version      uint32 `json:"version"`
	MaxPositions int    `json:"max_positions"`
	JITWindow    uint64 `json:"jit_window"`
}

// VaultDeployedEventData is emitted by the factory for every new vault.
type VaultDeployedEventData struct {
	Vault   string `json:"vault"`
	Owner   string `json:"owner,omitempty"`
	Name    string `json:"name,omitempty"`
	Symbol  string `json:"symbol,omitempty"`
	Asset0  string `json:"asset0,omitempty"`
	Asset1  string `json:"asset1,omitempty"`
	PoolIdx uint64 `json:"pool_idx,omitempty"`
}
