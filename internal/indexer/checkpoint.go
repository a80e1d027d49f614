package indexer

import (
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"liquidityVault/internal/storage"
)

// Checkpoint records how far a deployment scan got. It is only valid for the
// chain and factory set that produced it.
type Checkpoint struct {
	ChainID            uint64   `json:"chain_id"`
	Factories          []string `json:"factories"`
	LastProcessedBlock uint64   `json:"last_processed_block"`
	UpdatedAt          string   `json:"updated_at"`
}

type checkpointStore struct {
	file      storage.ProgressFile
	chainID   uint64
	factories []string
}

func newCheckpointStore(path string, enabled bool, chainID uint64, factories []common.Address) *checkpointStore {
	if !enabled {
		path = ""
	}
	return &checkpointStore{
		file:      storage.ProgressFile{Path: path},
		chainID:   chainID,
		factories: factoryKey(factories),
	}
}

// load returns the last processed block. A checkpoint written for another
// chain or factory set is reported as stale and must not be resumed from.
func (c *checkpointStore) load() (last uint64, found, stale bool, err error) {
	var cp Checkpoint
	found, err = c.file.Load(&cp)
	if err != nil || !found {
		return 0, false, false, err
	}
	if cp.ChainID != c.chainID || strings.Join(cp.Factories, ",") != strings.Join(c.factories, ",") {
		return cp.LastProcessedBlock, true, true, nil
	}
	return cp.LastProcessedBlock, true, false, nil
}

func (c *checkpointStore) save(lastProcessed uint64) error {
	return c.file.Save(Checkpoint{
		ChainID:            c.chainID,
		Factories:          c.factories,
		LastProcessedBlock: lastProcessed,
		UpdatedAt:          time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func factoryKey(factories []common.Address) []string {
	out := make([]string, len(factories))
	for i, f := range factories {
		out[i] = strings.ToLower(f.Hex())
	}
	sort.Strings(out)
	return out
}
