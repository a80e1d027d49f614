package indexer

import (
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"

	"liquidityVault/internal/ambient"
	"liquidityVault/internal/model"
)

func buildLogRecord(chainID uint64, log types.Log, timestamp uint64) model.LogRecord {
	topics := make([]string, 0, len(log.Topics))
	for _, topic := range log.Topics {
		topics = append(topics, topic.Hex())
	}

	return model.LogRecord{
		ChainID:     chainID,
		BlockNumber: log.BlockNumber,
		BlockHash:   log.BlockHash.Hex(),
		TxHash:      log.TxHash.Hex(),
		TxIndex:     uint64(log.TxIndex),
		LogIndex:    uint64(log.Index),
		Address:     log.Address.Hex(),
		Topics:      topics,
		Data:        hexutil.Encode(log.Data),
		Removed:     log.Removed,
		Timestamp:   timestamp,
	}
}

// decodeRecords splits records into decoded events and decode failures.
// Removed logs and unknown topics are skipped.
func decodeRecords(decoder ambient.Decoder, records []model.LogRecord) ([]model.VaultEvent, []model.DecodeError) {
	events := make([]model.VaultEvent, 0, len(records))
	var failures []model.DecodeError
	for _, record := range records {
		if record.Removed || len(record.Topics) == 0 || !decoder.CanDecode(record.Topics[0]) {
			continue
		}
		event, err := decoder.Decode(record)
		if err != nil {
			failures = append(failures, decodeErrorFromRecord(record, err))
			continue
		}
		events = append(events, *event)
	}
	return events, failures
}

func decodeErrorFromRecord(record model.LogRecord, err error) model.DecodeError {
	topic0 := ""
	if len(record.Topics) > 0 {
		topic0 = record.Topics[0]
	}
	return model.DecodeError{
		ChainID:     record.ChainID,
		BlockNumber: record.BlockNumber,
		TxHash:      record.TxHash,
		LogIndex:    record.LogIndex,
		Factory:     record.Address,
		Topic0:      topic0,
		Error:       err.Error(),
	}
}
