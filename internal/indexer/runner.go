package indexer

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"liquidityVault/internal/ambient"
	"liquidityVault/internal/model"
	"liquidityVault/internal/storage"
)

// LogSource is the read-only chain access the indexer needs. chain.Client
// satisfies it.
type LogSource interface {
	GetChainID(ctx context.Context) (*big.Int, error)
	LatestBlockNumber(ctx context.Context) (uint64, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error)
}

// RunConfig holds runtime settings for the indexer.
type RunConfig struct {
	FromBlock         uint64
	ToBlock           uint64
	Factories         []common.Address
	BatchSize         uint64
	CheckpointPath    string
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration
}

// Runner streams VaultDeployed logs from factories into the event journal.
type Runner struct {
	cfg        RunConfig
	chain      LogSource
	decoder    *ambient.DeploymentDecoder
	events     storage.EventSink
	errors     storage.ErrorSink
	logger     *zap.Logger
	retry      retryPolicy
	seen       map[string]struct{}
	checkpoint *checkpointStore
}

// NewRunner builds a Runner with its dependencies. errSink may be nil.
func NewRunner(cfg RunConfig, chainClient LogSource, events storage.EventSink, errSink storage.ErrorSink, logger *zap.Logger) (*Runner, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	decoder, err := ambient.NewDeploymentDecoder()
	if err != nil {
		return nil, fmt.Errorf("build decoder: %w", err)
	}
	return &Runner{
		cfg:        cfg,
		chain:      chainClient,
		decoder:    decoder,
		events:     events,
		errors:     errSink,
		logger:     logger,
		retry:      retryPolicy{maxRetries: cfg.MaxRetries, baseDelay: cfg.RetryBackoff},
		seen:       make(map[string]struct{}),
	}, nil
}

// Run executes the indexing loop.
func (r *Runner) Run(ctx context.Context) error {
	if r.chain == nil {
		return fmt.Errorf("chain client is nil")
	}
	if r.events == nil {
		return fmt.Errorf("event sink is nil")
	}
	if r.cfg.BatchSize == 0 {
		return fmt.Errorf("batch size must be greater than zero")
	}
	if len(r.cfg.Factories) == 0 {
		return fmt.Errorf("at least one factory address is required")
	}

	chainID, err := r.chain.GetChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}
	if !chainID.IsUint64() {
		return fmt.Errorf("chain id does not fit in uint64: %s", chainID)
	}
	chainIDValue := chainID.Uint64()

	from := r.cfg.FromBlock
	to := r.cfg.ToBlock
	if to == 0 {
		latest, err := r.chain.LatestBlockNumber(ctx)
		if err != nil {
			return fmt.Errorf("get latest block: %w", err)
		}
		to = latest
	}

	r.checkpoint = newCheckpointStore(r.cfg.CheckpointPath, r.cfg.CheckpointEnabled, chainIDValue, r.cfg.Factories)
	last, found, stale, err := r.checkpoint.load()
	if err != nil {
		return fmt.Errorf("load checkpoint: %w", err)
	}
	switch {
	case stale:
		r.logger.Warn("ignoring checkpoint of another scan", zap.String("path", r.cfg.CheckpointPath), zap.Uint64("last_processed", last))
	case found && last >= from:
		from = last + 1
		r.logger.Info("resume from checkpoint", zap.Uint64("last_processed", last), zap.Uint64("from", from))
	}

	if from > to {
		r.logger.Info("nothing to sync", zap.Uint64("from", from), zap.Uint64("to", to))
		return nil
	}

	ranges, err := blockBatches(from, to, r.cfg.BatchSize)
	if err != nil {
		return err
	}

	topics := []common.Hash{r.decoder.Topic0()}
	for _, blockRange := range ranges {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		r.logger.Info("fetch logs", zap.Stringer("blocks", blockRange))

		logs, err := r.filterLogsWithRetry(ctx, blockRange.From, blockRange.To, topics)
		if err != nil {
			return fmt.Errorf("filter logs: %w", err)
		}

		records := make([]model.LogRecord, 0, len(logs))
		for _, log := range logs {
			if r.isDuplicate(log) {
				continue
			}

			ts, err := r.blockTimestampWithRetry(ctx, log.BlockNumber)
			if err != nil {
				return fmt.Errorf("block timestamp %d: %w", log.BlockNumber, err)
			}
			records = append(records, buildLogRecord(chainIDValue, log, ts))
		}

		events, failures := decodeRecords(r.decoder, records)
		if err := r.events.PutEvents(events); err != nil {
			return fmt.Errorf("store events: %w", err)
		}
		if len(failures) > 0 {
			r.logger.Warn("decode failures", zap.Int("count", len(failures)))
			if r.errors != nil {
				if err := r.errors.PutDecodeErrors(failures); err != nil {
					return fmt.Errorf("store decode errors: %w", err)
				}
			}
		}

		if err := r.checkpoint.save(blockRange.To); err != nil {
			return fmt.Errorf("save checkpoint: %w", err)
		}

		r.logger.Info("batch complete", zap.Int("vaults", len(events)), zap.Stringer("blocks", blockRange))
	}

	return nil
}

func (r *Runner) filterLogsWithRetry(ctx context.Context, fromBlock, toBlock uint64, topics []common.Hash) ([]types.Log, error) {
	var logs []types.Log
	err := r.retry.do(ctx, r.logger, "filter logs", func(ctx context.Context) error {
		var err error
		logs, err = r.chain.FilterLogs(ctx, fromBlock, toBlock, r.cfg.Factories, topics)
		return err
	})
	return logs, err
}

func (r *Runner) blockTimestampWithRetry(ctx context.Context, blockNumber uint64) (uint64, error) {
	var ts uint64
	err := r.retry.do(ctx, r.logger, fmt.Sprintf("block timestamp %d", blockNumber), func(ctx context.Context) error {
		var err error
		ts, err = r.chain.BlockTimestamp(ctx, blockNumber)
		return err
	})
	return ts, err
}

func (r *Runner) isDuplicate(log types.Log) bool {
	id := fmt.Sprintf("%d:%s:%d", log.BlockNumber, log.TxHash.Hex(), log.Index)
	if _, ok := r.seen[id]; ok {
		return true
	}
	r.seen[id] = struct{}{}
	return false
}
