package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"liquidityVault/internal/model"
)

// Store provides Postgres persistence for the vault journal, snapshots and
// window metrics.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// PutEvents implements storage.EventSink. Events are keyed by vault address
// and journal sequence, so replays overwrite rather than duplicate.
func (s *Store) PutEvents(events []model.VaultEvent) error {
	return s.InsertEvents(context.Background(), events)
}

// InsertEvents writes journal events in one batch.
func (s *Store) InsertEvents(ctx context.Context, events []model.VaultEvent) error {
	if len(events) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, e := range events {
		payload, err := json.Marshal(e.Decoded)
		if err != nil {
			return fmt.Errorf("marshal %s payload: %w", e.EventName, err)
		}
		batch.Queue(`
			INSERT INTO vault_events (
				vault_address, seq, chain_id, block_number, tx_hash, log_index,
				event_name, event_ts, payload, created_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,now())
			ON CONFLICT (vault_address, seq, tx_hash, log_index)
			DO UPDATE SET
				event_name = EXCLUDED.event_name,
				event_ts = EXCLUDED.event_ts,
				payload = EXCLUDED.payload
		`,
			e.Address,
			int64(e.Seq),
			int64(e.ChainID),
			int64(e.BlockNumber),
			e.TxHash,
			int64(e.LogIndex),
			e.EventName,
			int64(e.Timestamp),
			payload,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range events {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// SaveSnapshot upserts the latest snapshot of a vault.
func (s *Store) SaveSnapshot(ctx context.Context, snap model.VaultSnapshot) error {
	if snap.Address == "" {
		return fmt.Errorf("snapshot address required")
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO vault_snapshots (vault_address, taken_at, snapshot, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (vault_address) DO UPDATE
		SET taken_at = EXCLUDED.taken_at, snapshot = EXCLUDED.snapshot, updated_at = now()
	`, snap.Address, int64(snap.TakenAt), data)
	return err
}

// LoadSnapshot returns the stored snapshot of a vault.
func (s *Store) LoadSnapshot(ctx context.Context, address string) (model.VaultSnapshot, bool, error) {
	var snap model.VaultSnapshot
	var data []byte
	row := s.pool.QueryRow(ctx, `SELECT snapshot FROM vault_snapshots WHERE vault_address=$1`, address)
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return snap, false, nil
		}
		return snap, false, err
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return snap, false, fmt.Errorf("parse snapshot: %w", err)
	}
	return snap, true, nil
}

// UpsertWindowMetrics inserts or updates vault window metrics.
func (s *Store) UpsertWindowMetrics(ctx context.Context, metrics []model.VaultWindowMetrics) error {
	if len(metrics) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, m := range metrics {
		batch.Queue(`
			INSERT INTO vault_window_metrics (
				chain_id, vault_address, window_size_seconds, window_start_ts, window_end_ts,
				deposit_count, withdraw_count, swap_count, shares_minted, shares_burned,
				deposited0, deposited1, withdrawn0, withdrawn1, entry_fee0, entry_fee1,
				exit_fee_shares, management_fee_shares, collected0, collected1, swap_in, swap_out,
				created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,now(),now())
			ON CONFLICT (chain_id, vault_address, window_size_seconds, window_start_ts)
			DO UPDATE SET
				window_end_ts = EXCLUDED.window_end_ts,
				deposit_count = EXCLUDED.deposit_count,
				withdraw_count = EXCLUDED.withdraw_count,
				swap_count = EXCLUDED.swap_count,
				shares_minted = EXCLUDED.shares_minted,
				shares_burned = EXCLUDED.shares_burned,
				deposited0 = EXCLUDED.deposited0,
				deposited1 = EXCLUDED.deposited1,
				withdrawn0 = EXCLUDED.withdrawn0,
				withdrawn1 = EXCLUDED.withdrawn1,
				entry_fee0 = EXCLUDED.entry_fee0,
				entry_fee1 = EXCLUDED.entry_fee1,
				exit_fee_shares = EXCLUDED.exit_fee_shares,
				management_fee_shares = EXCLUDED.management_fee_shares,
				collected0 = EXCLUDED.collected0,
				collected1 = EXCLUDED.collected1,
				swap_in = EXCLUDED.swap_in,
				swap_out = EXCLUDED.swap_out,
				updated_at = now()
		`,
			int64(m.ChainID),
			m.VaultAddress,
			m.WindowSizeSecs,
			m.WindowStart,
			m.WindowEnd,
			int64(m.DepositCount),
			int64(m.WithdrawCount),
			int64(m.SwapCount),
			m.SharesMinted,
			m.SharesBurned,
			m.Deposited0,
			m.Deposited1,
			m.Withdrawn0,
			m.Withdrawn1,
			m.EntryFee0,
			m.EntryFee1,
			m.ExitFeeShares,
			m.ManagementFeeShare,
			m.Collected0,
			m.Collected1,
			m.SwapIn,
			m.SwapOut,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range metrics {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadState returns last_processed for a name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var last int64
	row := s.pool.QueryRow(ctx, `SELECT last_processed FROM indexer_state WHERE name=$1`, name)
	if err := row.Scan(&last); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(last), true, nil
}

// SaveState upserts last_processed for a name.
func (s *Store) SaveState(ctx context.Context, name string, last uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO indexer_state (name, last_processed, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_processed = EXCLUDED.last_processed, updated_at = now()
	`, name, int64(last))
	return err
}
