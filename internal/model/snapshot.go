package model

// FeeConfig is the persisted fee configuration of a vault. Rates are in
// parts per million.
type FeeConfig struct {
	Treasury       string `json:"treasury"`
	EntryFee       uint32 `json:"entry_fee"`
	ExitFee        uint32 `json:"exit_fee"`
	PerformanceFee uint32 `json:"performance_fee"`
	ManagementFee  uint32 `json:"management_fee"`
}

// RulesSnapshot is the persisted form of a vault rule set.
type RulesSnapshot struct {
	Version      uint32 `json:"version"`
	MaxPositions int    `json:"max_positions"`
	JITWindow    uint64 `json:"jit_window"`
	LiquidityLot uint64 `json:"liquidity_lot"`
}

// VaultSnapshot is the full persisted state of one vault. Balances of the
// underlying assets live in the execution environment and are not part of it.
type VaultSnapshot struct {
	Address                  string            `json:"address"`
	Factory                  string            `json:"factory"`
	Name                     string            `json:"name"`
	Symbol                   string            `json:"symbol"`
	Asset0                   string            `json:"asset0"`
	Asset1                   string            `json:"asset1"`
	Decimals                 uint8             `json:"decimals"`
	DecimalOffset            uint8             `json:"decimal_offset"`
	PoolIdx                  uint64            `json:"pool_idx"`
	Owner                    string            `json:"owner"`
	Manager                  string            `json:"manager"`
	SwapRelayer              string            `json:"swap_relayer"`
	FeeCap                   uint32            `json:"fee_cap"`
	FeeConfig                FeeConfig         `json:"fee_config"`
	Rules                    RulesSnapshot     `json:"rules"`
	TotalSupply              string            `json:"total_supply"`
	Balances                 map[string]string `json:"balances"`
	LastCollectManagementFee uint64            `json:"last_collect_management_fee"`
	Positions                []Position        `json:"positions"`
	TakenAt                  uint64            `json:"taken_at"`
}
