package scenario

import (
	"context"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"liquidityVault/internal/model"
	"liquidityVault/internal/vault"
)

type recordingSink struct {
	events []model.VaultEvent
}

func (s *recordingSink) PutEvents(events []model.VaultEvent) error {
	s.events = append(s.events, events...)
	return nil
}

func (s *recordingSink) count(name string) int {
	n := 0
	for _, e := range s.events {
		if e.EventName == name {
			n++
		}
	}
	return n
}

func TestRunBasicScenario(t *testing.T) {
	s, err := Load("testdata/basic.yaml")
	require.NoError(t, err)

	sink := &recordingSink{}
	res, err := NewRunner(sink, nil, zap.NewNop()).Run(context.Background(), s, vault.DefaultRules())
	require.NoError(t, err)
	require.Len(t, res.Steps, len(s.Steps))

	require.True(t, res.Vault.TotalSupply().IsZero())
	require.Empty(t, res.Vault.GetAllPositions())
	require.Equal(t, uint32(2), res.Vault.Rules().Version)
	require.Equal(t, 3, res.Vault.Rules().MaxPositions)

	var failed []string
	for _, step := range res.Steps {
		if step.Error != "" {
			failed = append(failed, step.Op)
		}
	}
	require.Equal(t, []string{"remove_liquidity", "swap", "set_fee_config"}, failed)

	require.Equal(t, 1, sink.count(model.EventVaultDeployed))
	require.Equal(t, 2, sink.count(model.EventDeposit))
	require.Equal(t, 2, sink.count(model.EventWithdraw))
	require.Equal(t, 1, sink.count(model.EventSwap))
	require.Equal(t, 1, sink.count(model.EventRulesUpgraded))
	require.Equal(t, 1, sink.count(model.EventRulesMigrated))
}

func TestRunStopsOnUnexpectedError(t *testing.T) {
	s, err := Load("testdata/basic.yaml")
	require.NoError(t, err)
	s.Steps = append(s.Steps[:1], Step{Op: "withdraw", Sender: "bob", Shares: Amount{uint256.NewInt(1)}})

	res, err := NewRunner(nil, nil, nil).Run(context.Background(), s, vault.DefaultRules())
	require.ErrorIs(t, err, vault.ErrInsufficientShares)
	require.Len(t, res.Steps, 1)
	require.Equal(t, uint256.NewInt(1_000_000_000_000_000_000), res.Vault.TotalSupply())
}

func TestRunFailsOnMissedExpectation(t *testing.T) {
	s, err := Load("testdata/basic.yaml")
	require.NoError(t, err)
	positions := 2
	s.Steps = []Step{{Op: "check", Expect: &Expect{Positions: &positions}}}

	_, err = NewRunner(nil, nil, nil).Run(context.Background(), s, vault.DefaultRules())
	require.ErrorContains(t, err, "positions 0, want 2")
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte("pool: {sqrt_price: \"1\"}\nsteps:\n  - op: check\n    colour: red\n"))
	require.Error(t, err)

	_, err = Parse([]byte("pool: {sqrt_price: \"1\"}\n"))
	require.ErrorContains(t, err, "no steps")
}

func TestParseAmount(t *testing.T) {
	cases := map[string]uint64{
		"1500":      1500,
		"1_000":     1000,
		"15e2":      1500,
		" 2e0 ":     2,
		"1000000e3": 1_000_000_000,
	}
	for in, want := range cases {
		got, err := ParseAmount(in)
		require.NoError(t, err, in)
		require.Equal(t, uint256.NewInt(want), got, in)
	}
	for _, bad := range []string{"", "abc", "1e99", "-5", "1e"} {
		_, err := ParseAmount(bad)
		require.Error(t, err, bad)
	}
}
