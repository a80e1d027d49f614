package chain

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// maxCachedTimestamps bounds the block timestamp cache of a long scan.
const maxCachedTimestamps = 4096

// Client is the RPC view of a live chain used by the read-only tooling
// (quotes and the deployment indexer). Vault execution goes through Env.
type Client struct {
	rpcClient *rpc.Client
	eth       *ethclient.Client

	chainOnce sync.Once
	chainID   *big.Int
	chainErr  error

	mu         sync.Mutex
	timestamps map[uint64]uint64
}

func NewClient(ctx context.Context, rpcURL string) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", rpcURL, err)
	}
	return &Client{
		rpcClient:  rpcClient,
		eth:        ethclient.NewClient(rpcClient),
		timestamps: make(map[uint64]uint64),
	}, nil
}

func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// GetChainID returns the chain ID. It is fetched once per client.
func (c *Client) GetChainID(ctx context.Context) (*big.Int, error) {
	c.chainOnce.Do(func() {
		c.chainID, c.chainErr = c.eth.ChainID(ctx)
	})
	if c.chainErr != nil {
		return nil, c.chainErr
	}
	return new(big.Int).Set(c.chainID), nil
}

func (c *Client) LatestBlockNumber(ctx context.Context) (uint64, error) {
	return c.eth.BlockNumber(ctx)
}

// BlockTimestamp returns the timestamp of a block. Factory deployments are
// sparse, so most lookups hit the same few blocks.
func (c *Client) BlockTimestamp(ctx context.Context, number uint64) (uint64, error) {
	c.mu.Lock()
	ts, ok := c.timestamps[number]
	c.mu.Unlock()
	if ok {
		return ts, nil
	}

	header, err := c.eth.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	if len(c.timestamps) >= maxCachedTimestamps {
		c.timestamps = make(map[uint64]uint64)
	}
	c.timestamps[number] = header.Time
	c.mu.Unlock()
	return header.Time, nil
}

// FilterLogs returns the logs emitted by addresses in [fromBlock, toBlock]
// whose first topic is one of topic0.
func (c *Client) FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: addresses,
	}
	if len(topic0) > 0 {
		query.Topics = [][]common.Hash{topic0}
	}
	return c.eth.FilterLogs(ctx, query)
}

// Call runs an eth_call against contract at block (nil for latest).
func (c *Client) Call(ctx context.Context, contract common.Address, data []byte, block *big.Int) ([]byte, error) {
	return c.eth.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, block)
}

// NativeBalance returns the native currency balance of holder at block
// (nil for latest).
func (c *Client) NativeBalance(ctx context.Context, holder common.Address, block *big.Int) (*big.Int, error) {
	return c.eth.BalanceAt(ctx, holder, block)
}
