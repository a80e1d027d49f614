package model

import (
	"encoding/json"
	"testing"
)

func TestVaultEventDecodesIntoRecord(t *testing.T) {
	event := VaultEvent{
		Seq:       3,
		Address:   "0x1111111111111111111111111111111111111111",
		EventName: EventWithdraw,
		Timestamp: 1700000000,
		Decoded: WithdrawEventData{
			Sender:        "0x2222222222222222222222222222222222222222",
			Shares:        "1000000000000000000",
			ExitFeeShares: "2000000000000000",
			Amount0:       "998000000000000000",
			Amount1:       "0",
		},
	}

	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var record VaultEventRecord
	if err := json.Unmarshal(data, &record); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if record.EventName != EventWithdraw || record.Seq != 3 {
		t.Fatalf("envelope mismatch: %+v", record)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(record.Decoded, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if _, ok := payload["exit_fee_shares"].(string); !ok {
		t.Fatalf("exit_fee_shares should be a string")
	}
	if _, ok := payload["chain_id"]; ok {
		t.Fatalf("payload should not carry envelope fields")
	}
}
