package aggregate

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"liquidityVault/internal/model"
	"liquidityVault/internal/storage"
)

// MetricsStore receives finished windows. postgres.Store satisfies it.
type MetricsStore interface {
	UpsertWindowMetrics(ctx context.Context, metrics []model.VaultWindowMetrics) error
}

// Config controls aggregation behavior.
type Config struct {
	WindowSeconds uint64
	BatchSize     int
	RecomputeFrom uint64
	StateStore    StateStore
}

// Aggregator folds the vault event journal into per-vault window metrics.
type Aggregator struct {
	cfg          Config
	store        MetricsStore
	logger       *zap.Logger
	accumulators map[string]*Accumulator
}

func NewAggregator(cfg Config, store MetricsStore, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Aggregator{
		cfg:          cfg,
		store:        store,
		logger:       logger,
		accumulators: make(map[string]*Accumulator),
	}
}

// Run executes aggregation over a JSONL event journal.
func (a *Aggregator) Run(ctx context.Context, inputPath string) error {
	if a.store == nil {
		return fmt.Errorf("store is nil")
	}
	if a.cfg.WindowSeconds == 0 {
		return fmt.Errorf("window seconds must be > 0")
	}
	if a.cfg.BatchSize <= 0 {
		a.cfg.BatchSize = 1000
	}

	startTs, err := a.loadStartTimestamp(ctx)
	if err != nil {
		return err
	}

	records, err := storage.ReadEvents(inputPath)
	if err != nil {
		return err
	}
	// Journals from several runs may interleave; windows need time order.
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp < records[j].Timestamp
	})

	batch := make([]model.VaultWindowMetrics, 0, a.cfg.BatchSize)
	maxTs := startTs
	var total, windows, skipped, failed int

	for _, record := range records {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		total++

		if record.Timestamp <= startTs {
			skipped++
			continue
		}

		start := windowStart(record.Timestamp, a.cfg.WindowSeconds)
		end := start + a.cfg.WindowSeconds

		key := vaultKey(record.Address)
		acc := a.accumulators[key]
		if acc == nil {
			acc = NewAccumulator(record, start, end)
			a.accumulators[key] = acc
		} else if acc.WindowStart != start {
			if metrics := a.flushAccumulator(acc); metrics != nil {
				batch = append(batch, *metrics)
				windows++
			}
			acc = NewAccumulator(record, start, end)
			a.accumulators[key] = acc
		}

		if err := acc.AddEvent(record); err != nil {
			failed++
			a.logger.Warn("aggregate event", zap.Error(err), zap.String("vault", record.Address), zap.String("event", record.EventName))
			continue
		}

		if record.Timestamp > maxTs {
			maxTs = record.Timestamp
		}

		if len(batch) >= a.cfg.BatchSize {
			if err := a.store.UpsertWindowMetrics(ctx, batch); err != nil {
				return err
			}
			batch = batch[:0]

			if err := a.saveState(ctx); err != nil {
				return err
			}
		}
	}

	for _, acc := range a.accumulators {
		if metrics := a.flushAccumulator(acc); metrics != nil {
			batch = append(batch, *metrics)
			windows++
		}
	}
	a.accumulators = make(map[string]*Accumulator)

	if len(batch) > 0 {
		if err := a.store.UpsertWindowMetrics(ctx, batch); err != nil {
			return err
		}
	}

	a.cfg.RecomputeFrom = maxTs
	if err := a.saveState(ctx); err != nil {
		return err
	}

	a.logger.Info("aggregate complete",
		zap.Int("total", total),
		zap.Int("windows", windows),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
	)

	return nil
}

func (a *Aggregator) loadStartTimestamp(ctx context.Context) (uint64, error) {
	if a.cfg.RecomputeFrom > 0 {
		return a.cfg.RecomputeFrom - 1, nil
	}
	if a.cfg.StateStore == nil {
		return 0, nil
	}
	last, ok, err := a.cfg.StateStore.Load(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return last, nil
}

func (a *Aggregator) saveState(ctx context.Context) error {
	if a.cfg.StateStore == nil {
		return nil
	}

	if len(a.accumulators) == 0 {
		return a.cfg.StateStore.Save(ctx, a.cfg.RecomputeFrom)
	}

	safeTs := minOpenWindowStart(a.accumulators)
	if safeTs > 0 {
		safeTs = safeTs - 1
	}
	if safeTs == 0 {
		safeTs = a.cfg.RecomputeFrom
	}
	return a.cfg.StateStore.Save(ctx, safeTs)
}

func (a *Aggregator) flushAccumulator(acc *Accumulator) *model.VaultWindowMetrics {
	if acc == nil || acc.Empty() {
		return nil
	}

	return &model.VaultWindowMetrics{
		ChainID:            acc.ChainID,
		VaultAddress:       acc.VaultAddress,
		WindowSizeSecs:     int64(a.cfg.WindowSeconds),
		WindowStart:        time.Unix(int64(acc.WindowStart), 0).UTC(),
		WindowEnd:          time.Unix(int64(acc.WindowEnd), 0).UTC(),
		DepositCount:       acc.DepositCount,
		WithdrawCount:      acc.WithdrawCount,
		SwapCount:          acc.SwapCount,
		SharesMinted:       acc.SharesMinted.String(),
		SharesBurned:       acc.SharesBurned.String(),
		Deposited0:         acc.Deposited0.String(),
		Deposited1:         acc.Deposited1.String(),
		Withdrawn0:         acc.Withdrawn0.String(),
		Withdrawn1:         acc.Withdrawn1.String(),
		EntryFee0:          acc.EntryFee0.String(),
		EntryFee1:          acc.EntryFee1.String(),
		ExitFeeShares:      acc.ExitFeeShares.String(),
		ManagementFeeShare: acc.ManagementFee.String(),
		Collected0:         acc.Collected0.String(),
		Collected1:         acc.Collected1.String(),
		SwapIn:             acc.SwapIn.String(),
		SwapOut:            acc.SwapOut.String(),
	}
}
