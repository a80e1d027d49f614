package model

// PoolInfo describes the venue pool a vault is bound to.
type PoolInfo struct {
	Asset0        string `json:"asset0"`
	Asset1        string `json:"asset1"`
	Decimals0     uint8  `json:"decimals0"`
	Decimals1     uint8  `json:"decimals1"`
	DecimalOffset uint8  `json:"decimal_offset"`
	PoolIdx       uint64 `json:"pool_idx"`
	TickSize      uint16 `json:"tick_size"`
	SqrtPrice     string `json:"sqrt_price"`
	Tick          int32  `json:"tick"`
}

// Position is a live liquidity range held by a vault.
type Position struct {
	TickLower int32  `json:"tick_lower"`
	TickUpper int32  `json:"tick_upper"`
	Liquidity string `json:"liquidity"`
	CreatedAt uint64 `json:"created_at"`
}

// PositionInfo values one position at the current pool price.
type PositionInfo struct {
	Position
	Amount0 string `json:"amount0"`
	Amount1 string `json:"amount1"`
	Fee0    string `json:"fee0"`
	Fee1    string `json:"fee1"`
}

// TokenMeta is the ERC20 metadata of a pool asset. The native currency is
// reported with the zero address and Native set.
type TokenMeta struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals uint8  `json:"decimals"`
	Native   bool   `json:"native,omitempty"`
}
