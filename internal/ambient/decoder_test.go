package ambient

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"liquidityVault/internal/model"
)

func TestDeploymentDecoder(t *testing.T) {
	decoder, err := NewDeploymentDecoder()
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}

	factory := common.HexToAddress("0x1111111111111111111111111111111111111111")
	vault := common.HexToAddress("0x2222222222222222222222222222222222222222")
	log := model.LogRecord{
		ChainID:     1,
		BlockNumber: 19000000,
		TxHash:      "0xabc",
		LogIndex:    4,
		Address:     factory.Hex(),
		Topics:      []string{decoder.Topic0().Hex(), common.BytesToHash(vault.Bytes()).Hex()},
		Data:        "0x",
		Timestamp:   1700000000,
	}

	if !decoder.CanDecode(log.Topics[0]) {
		t.Fatalf("expected topic0 to be decodable")
	}
	event, err := decoder.Decode(log)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if event.EventName != model.EventVaultDeployed || event.Address != factory.Hex() {
		t.Fatalf("envelope mismatch: %+v", event)
	}
	data, ok := event.Decoded.(model.VaultDeployedEventData)
	if !ok {
		t.Fatalf("decoded type mismatch")
	}
	if data.Vault != vault.Hex() {
		t.Fatalf("vault mismatch: %s", data.Vault)
	}
}

func TestDeploymentDecoderRejectsForeignTopics(t *testing.T) {
	decoder, err := NewDeploymentDecoder()
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}
	log := model.LogRecord{
		Address: "0x1111111111111111111111111111111111111111",
		Topics:  []string{"0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef"},
	}
	if decoder.CanDecode(log.Topics[0]) {
		t.Fatalf("transfer topic should not be decodable")
	}
	if _, err := decoder.Decode(log); err == nil {
		t.Fatalf("expected decode error")
	}

	log.Topics = []string{decoder.Topic0().Hex()}
	if _, err := decoder.Decode(log); err == nil {
		t.Fatalf("expected error for missing indexed topic")
	}
}
