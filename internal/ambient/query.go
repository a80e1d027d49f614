package ambient

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"liquidityVault/internal/chain"
)

// Query is the read-only view of the venue a vault prices against. Calls
// run inside the vault's own invocation, so they take no context.
type Query interface {
	// PoolPrice returns the Q64.64 sqrt price (base per quote).
	PoolPrice(base, quote common.Address, poolIdx uint64) (*uint256.Int, error)
	TickSize(base, quote common.Address, poolIdx uint64) (uint16, error)
	RangeLiquidity(owner, base, quote common.Address, poolIdx uint64, lower, upper int32) (*uint256.Int, error)
	// ConcRewards returns harvestable base and quote rewards of a range.
	ConcRewards(owner, base, quote common.Address, poolIdx uint64, lower, upper int32) (*uint256.Int, *uint256.Int, error)
}

// RangeTokens is a range position as reported by the query contract.
type RangeTokens struct {
	Liquidity *uint256.Int
	Base      *uint256.Int
	Quote     *uint256.Int
}

// QueryClient reads pool and position state from a deployed query contract.
type QueryClient struct {
	chain   *chain.Client
	address common.Address
	abi     abi.ABI
}

// NewQueryClient binds a query contract address.
func NewQueryClient(chainClient *chain.Client, address common.Address) (*QueryClient, error) {
	if chainClient == nil {
		return nil, fmt.Errorf("chain client is nil")
	}
	parsed, err := QueryABI()
	if err != nil {
		return nil, fmt.Errorf("parse query abi: %w", err)
	}
	return &QueryClient{chain: chainClient, address: address, abi: parsed}, nil
}

// PoolPrice returns the current sqrt price of the pool.
func (q *QueryClient) PoolPrice(ctx context.Context, base, quote common.Address, poolIdx uint64) (*uint256.Int, error) {
	values, err := callMethod(ctx, q.chain, q.address, q.abi, "queryPrice", nil, base, quote, new(big.Int).SetUint64(poolIdx))
	if err != nil {
		return nil, err
	}
	return asUint256(values[0])
}

// CurveTick returns the current tick of the pool.
func (q *QueryClient) CurveTick(ctx context.Context, base, quote common.Address, poolIdx uint64) (int32, error) {
	values, err := callMethod(ctx, q.chain, q.address, q.abi, "queryCurveTick", nil, base, quote, new(big.Int).SetUint64(poolIdx))
	if err != nil {
		return 0, err
	}
	tick, err := asBigInt(values[0])
	if err != nil {
		return 0, err
	}
	return int24FromBig(tick)
}

// RangeTokens returns the liquidity and token amounts of owner's range.
func (q *QueryClient) RangeTokens(ctx context.Context, owner, base, quote common.Address, poolIdx uint64, lower, upper int32) (RangeTokens, error) {
	values, err := q.rangeCall(ctx, "queryRangeTokens", owner, base, quote, poolIdx, lower, upper)
	if err != nil {
		return RangeTokens{}, err
	}
	return RangeTokens{Liquidity: values[0], Base: values[1], Quote: values[2]}, nil
}

// ConcRewards returns the harvestable base and quote rewards of owner's range.
func (q *QueryClient) ConcRewards(ctx context.Context, owner, base, quote common.Address, poolIdx uint64, lower, upper int32) (*uint256.Int, *uint256.Int, error) {
	values, err := q.rangeCall(ctx, "queryConcRewards", owner, base, quote, poolIdx, lower, upper)
	if err != nil {
		return nil, nil, err
	}
	return values[1], values[2], nil
}

func (q *QueryClient) rangeCall(ctx context.Context, method string, owner, base, quote common.Address, poolIdx uint64, lower, upper int32) ([]*uint256.Int, error) {
	values, err := callMethod(ctx, q.chain, q.address, q.abi, method, nil,
		owner, base, quote, new(big.Int).SetUint64(poolIdx), big.NewInt(int64(lower)), big.NewInt(int64(upper)))
	if err != nil {
		return nil, err
	}
	if len(values) != 3 {
		return nil, fmt.Errorf("unexpected %s values: %d", method, len(values))
	}
	out := make([]*uint256.Int, 0, 3)
	for _, v := range values {
		n, err := asUint256(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", method, err)
		}
		out = append(out, n)
	}
	return out, nil
}
