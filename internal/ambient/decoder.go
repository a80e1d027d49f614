package ambient

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"liquidityVault/internal/model"
)

// Decoder turns raw logs into journal events.
type Decoder interface {
	CanDecode(topic0 string) bool
	Decode(log model.LogRecord) (*model.VaultEvent, error)
}

// DeploymentDecoder decodes factory VaultDeployed logs.
type DeploymentDecoder struct {
	factoryABI abi.ABI
	topic0     string
}

// NewDeploymentDecoder builds a decoder for factory logs.
func NewDeploymentDecoder() (*DeploymentDecoder, error) {
	parsed, err := FactoryABI()
	if err != nil {
		return nil, err
	}
	return &DeploymentDecoder{
		factoryABI: parsed,
		topic0:     strings.ToLower(parsed.Events[model.EventVaultDeployed].ID.Hex()),
	}, nil
}

// Topic0 returns the VaultDeployed event signature hash.
func (d *DeploymentDecoder) Topic0() common.Hash {
	return common.HexToHash(d.topic0)
}

// CanDecode checks if the topic0 is supported.
func (d *DeploymentDecoder) CanDecode(topic0 string) bool {
	return topic0 != "" && strings.ToLower(topic0) == d.topic0
}

// Decode converts a LogRecord into a VaultDeployed journal event.
func (d *DeploymentDecoder) Decode(log model.LogRecord) (*model.VaultEvent, error) {
	if len(log.Topics) == 0 {
		return nil, fmt.Errorf("missing topics")
	}
	if !d.CanDecode(log.Topics[0]) {
		return nil, fmt.Errorf("unsupported topic0: %s", log.Topics[0])
	}
	if !common.IsHexAddress(log.Address) {
		return nil, fmt.Errorf("invalid factory address: %s", log.Address)
	}

	event := d.factoryABI.Events[model.EventVaultDeployed]
	indexedTopics, err := parseIndexedTopics(event, log.Topics)
	if err != nil {
		return nil, err
	}
	var indexed struct {
		DeployedAddress common.Address
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return nil, fmt.Errorf("parse topics: %w", err)
	}

	return &model.VaultEvent{
		ChainID:     log.ChainID,
		BlockNumber: log.BlockNumber,
		TxHash:      log.TxHash,
		LogIndex:    log.LogIndex,
		Address:     common.HexToAddress(log.Address).Hex(),
		EventName:   model.EventVaultDeployed,
		Timestamp:   log.Timestamp,
		Decoded:     model.VaultDeployedEventData{Vault: indexed.DeployedAddress.Hex()},
	}, nil
}

func parseIndexedTopics(event abi.Event, topics []string) ([]common.Hash, error) {
	indexedCount := len(indexedArguments(event.Inputs))
	if len(topics) != indexedCount+1 {
		return nil, fmt.Errorf("expected %d topics, got %d", indexedCount+1, len(topics))
	}
	return parseTopicHashes(topics[1:])
}

func parseTopicHashes(topics []string) ([]common.Hash, error) {
	out := make([]common.Hash, 0, len(topics))
	for _, topic := range topics {
		data, err := hexutil.Decode(topic)
		if err != nil {
			return nil, fmt.Errorf("invalid topic: %w", err)
		}
		if len(data) > 32 {
			return nil, fmt.Errorf("topic length %d", len(data))
		}
		out = append(out, common.BytesToHash(data))
	}
	return out, nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}
