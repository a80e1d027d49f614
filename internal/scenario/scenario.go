package scenario

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/holiman/uint256"
	"gopkg.in/yaml.v3"

	"liquidityVault/internal/vault"
)

// Scenario is a scripted run of one vault over the in-memory chain.
type Scenario struct {
	Name     string            `yaml:"name"`
	Start    uint64            `yaml:"start"`
	Accounts map[string]string `yaml:"accounts"`
	Tokens   []Token           `yaml:"tokens"`
	Balances []Balance         `yaml:"balances"`
	Pool     Pool              `yaml:"pool"`
	Factory  Factory           `yaml:"factory"`
	Vault    VaultSpec         `yaml:"vault"`
	Steps    []Step            `yaml:"steps"`
}

type Token struct {
	Address  string `yaml:"address"`
	Symbol   string `yaml:"symbol"`
	Decimals uint8  `yaml:"decimals"`
}

type Balance struct {
	Holder string `yaml:"holder"`
	Asset  string `yaml:"asset"`
	Amount Amount `yaml:"amount"`
}

// Pool places the in-memory venue and initializes the vault's pool on it.
type Pool struct {
	Dex       string `yaml:"dex"`
	Relayer   string `yaml:"relayer"`
	Base      string `yaml:"base"`
	Quote     string `yaml:"quote"`
	PoolIdx   uint64 `yaml:"pool_idx"`
	SqrtPrice Amount `yaml:"sqrt_price"`
	TickSize  uint16 `yaml:"tick_size"`
	FeePPM    uint32 `yaml:"fee_ppm"`
}

type Factory struct {
	Address string       `yaml:"address"`
	Owner   string       `yaml:"owner"`
	Rules   *vault.Rules `yaml:"rules"`
}

type VaultSpec struct {
	Owner         string `yaml:"owner"`
	Manager       string `yaml:"manager"`
	Name          string `yaml:"name"`
	Symbol        string `yaml:"symbol"`
	DecimalOffset uint8  `yaml:"decimal_offset"`
	FeeCap        uint32 `yaml:"fee_cap"`
	Fees          Fees   `yaml:"fees"`
}

type Fees struct {
	Treasury       string `yaml:"treasury"`
	EntryFee       uint32 `yaml:"entry_fee"`
	ExitFee        uint32 `yaml:"exit_fee"`
	PerformanceFee uint32 `yaml:"performance_fee"`
	ManagementFee  uint32 `yaml:"management_fee"`
}

// Step is one operation. Only the fields the op reads need to be set.
type Step struct {
	Op          string       `yaml:"op"`
	Sender      string       `yaml:"sender"`
	To          string       `yaml:"to"`
	Asset       string       `yaml:"asset"`
	Value       Amount       `yaml:"value"`
	Shares      Amount       `yaml:"shares"`
	Amount0     Amount       `yaml:"amount0"`
	Amount1     Amount       `yaml:"amount1"`
	Min0        Amount       `yaml:"min0"`
	Min1        Amount       `yaml:"min1"`
	Max0        Amount       `yaml:"max0"`
	Max1        Amount       `yaml:"max1"`
	Lower       int32        `yaml:"lower"`
	Upper       int32        `yaml:"upper"`
	Liquidity   Amount       `yaml:"liquidity"`
	Deadline    uint64       `yaml:"deadline"`
	ZeroForOne  bool         `yaml:"zero_for_one"`
	AmountIn    Amount       `yaml:"amount_in"`
	MinOut      Amount       `yaml:"min_out"`
	Seconds     uint64       `yaml:"seconds"`
	SqrtPrice   Amount       `yaml:"sqrt_price"`
	Fees        *Fees        `yaml:"fees"`
	Rules       *vault.Rules `yaml:"rules"`
	Expect      *Expect      `yaml:"expect"`
	ExpectError string       `yaml:"expect_error"`
}

// Expect checks vault state after the step.
type Expect struct {
	TotalSupply Amount            `yaml:"total_supply"`
	Balances    map[string]Amount `yaml:"balances"`
	Positions   *int              `yaml:"positions"`
	Idle0       Amount            `yaml:"idle0"`
	Idle1       Amount            `yaml:"idle1"`
}

// Amount is a uint256 written as a decimal string, or as "<n>e<exp>".
type Amount struct {
	*uint256.Int
}

func (a *Amount) UnmarshalYAML(node *yaml.Node) error {
	v, err := ParseAmount(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	a.Int = v
	return nil
}

// Present reports whether the amount was present in the file.
func (a Amount) Present() bool {
	return a.Int != nil
}

// Or returns the amount, or def when it was not set.
func (a Amount) Or(def *uint256.Int) *uint256.Int {
	if a.Int == nil {
		return def
	}
	return new(uint256.Int).Set(a.Int)
}

// ParseAmount parses "1500", "15e17" or "1_000".
func ParseAmount(input string) (*uint256.Int, error) {
	s := strings.ReplaceAll(strings.TrimSpace(input), "_", "")
	if s == "" {
		return nil, fmt.Errorf("empty amount")
	}
	i := strings.IndexAny(s, "eE")
	if i < 0 {
		v, err := uint256.FromDecimal(s)
		if err != nil {
			return nil, fmt.Errorf("invalid amount %q: %w", input, err)
		}
		return v, nil
	}
	v, err := uint256.FromDecimal(s[:i])
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", input, err)
	}
	exponent := s[i+1:]
	exp, err := strconv.ParseUint(exponent, 10, 8)
	if err != nil || exp > 77 {
		return nil, fmt.Errorf("invalid amount exponent %q", input)
	}
	scale := new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(exp))
	if _, overflow := v.MulOverflow(v, scale); overflow {
		return nil, fmt.Errorf("amount %q overflows", input)
	}
	return v, nil
}

// Load reads a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return Parse(data)
}

// Parse decodes scenario YAML. Unknown keys are rejected.
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if len(s.Steps) == 0 {
		return nil, fmt.Errorf("scenario has no steps")
	}
	if !s.Pool.SqrtPrice.Present() {
		return nil, fmt.Errorf("pool sqrt_price is required")
	}
	return &s, nil
}
