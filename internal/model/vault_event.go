package model

import "encoding/json"

// VaultEvent is one journaled vault or factory event. Chain coordinates are
// set only for events read back from a chain; simulated events carry a
// journal sequence number instead.
type VaultEvent struct {
	Seq         uint64      `json:"seq,omitempty"`
	ChainID     uint64      `json:"chain_id,omitempty"`
	BlockNumber uint64      `json:"block_number,omitempty"`
	TxHash      string      `json:"tx_hash,omitempty"`
	LogIndex    uint64      `json:"log_index,omitempty"`
	Address     string      `json:"address"`
	EventName   string      `json:"event_name"`
	Timestamp   uint64      `json:"timestamp"`
	Decoded     interface{} `json:"decoded"`
}

// VaultEventRecord is the JSON representation used for aggregation.
type VaultEventRecord struct {
	Seq         uint64          `json:"seq,omitempty"`
	ChainID     uint64          `json:"chain_id,omitempty"`
	BlockNumber uint64          `json:"block_number,omitempty"`
	TxHash      string          `json:"tx_hash,omitempty"`
	LogIndex    uint64          `json:"log_index,omitempty"`
	Address     string          `json:"address"`
	EventName   string          `json:"event_name"`
	Timestamp   uint64          `json:"timestamp"`
	Decoded     json.RawMessage `json:"decoded"`
}
