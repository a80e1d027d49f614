package aggregate

import (
	"context"
	"fmt"
	"time"

	"liquidityVault/internal/storage"
	"liquidityVault/internal/storage/postgres"
)

// StateStore persists the aggregation watermark: every journal event at or
// before it has been folded into a flushed window.
type StateStore interface {
	Load(ctx context.Context) (uint64, bool, error)
	Save(ctx context.Context, ts uint64) error
}

// FileStateStore keeps the watermark in a local JSON file. A watermark is
// only meaningful for the window size it was computed with, so loading one
// written for another size fails.
type FileStateStore struct {
	Path          string
	WindowSeconds uint64
}

type watermark struct {
	LastProcessed uint64 `json:"last_processed_ts"`
	WindowSeconds uint64 `json:"window_seconds,omitempty"`
	UpdatedAt     string `json:"updated_at"`
}

func (s *FileStateStore) Load(ctx context.Context) (uint64, bool, error) {
	if s == nil {
		return 0, false, nil
	}
	var w watermark
	ok, err := storage.ProgressFile{Path: s.Path}.Load(&w)
	if err != nil || !ok {
		return 0, false, err
	}
	if s.WindowSeconds != 0 && w.WindowSeconds != 0 && w.WindowSeconds != s.WindowSeconds {
		return 0, false, fmt.Errorf("state %s tracks %ds windows, not %ds", s.Path, w.WindowSeconds, s.WindowSeconds)
	}
	return w.LastProcessed, true, nil
}

func (s *FileStateStore) Save(ctx context.Context, ts uint64) error {
	if s == nil {
		return nil
	}
	return storage.ProgressFile{Path: s.Path}.Save(watermark{
		LastProcessed: ts,
		WindowSeconds: s.WindowSeconds,
		UpdatedAt:     time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// DBStateStore keeps the watermark in the indexer_state table under Name.
type DBStateStore struct {
	Store *postgres.Store
	Name  string
}

// DBStateName is the indexer_state key of an aggregation run.
func DBStateName(windowSeconds uint64) string {
	return fmt.Sprintf("vault-aggregator:%d", windowSeconds)
}

func (s *DBStateStore) Load(ctx context.Context) (uint64, bool, error) {
	if s == nil || s.Store == nil {
		return 0, false, nil
	}
	return s.Store.LoadState(ctx, s.Name)
}

func (s *DBStateStore) Save(ctx context.Context, ts uint64) error {
	if s == nil || s.Store == nil {
		return nil
	}
	return s.Store.SaveState(ctx, s.Name, ts)
}
