package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// VaultMetrics tracks vault operations and share accounting.
type VaultMetrics struct {
	operations  *prometheus.CounterVec
	totalSupply *prometheus.GaugeVec
	positions   *prometheus.GaugeVec
	feeShares   *prometheus.CounterVec
	swapVolume  *prometheus.CounterVec
}

var (
	vaultOnce     sync.Once
	vaultRegistry *VaultMetrics
)

// Vault returns the process-wide vault metrics, registering them on first use.
func Vault() *VaultMetrics {
	vaultOnce.Do(func() {
		vaultRegistry = &VaultMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "vault_operations_total",
				Help: "Count of vault operations by name and outcome.",
			}, []string{"vault", "operation", "outcome"}),
			totalSupply: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "vault_share_supply",
				Help: "Total share supply in share base units.",
			}, []string{"vault"}),
			positions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "vault_open_positions",
				Help: "Number of open liquidity positions.",
			}, []string{"vault"}),
			feeShares: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "vault_fee_shares_total",
				Help: "Shares paid to the treasury by fee kind.",
			}, []string{"vault", "kind"}),
			swapVolume: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "vault_swap_input_total",
				Help: "Input token units consumed by manager swaps by direction.",
			}, []string{"vault", "direction"}),
		}
		prometheus.MustRegister(
			vaultRegistry.operations,
			vaultRegistry.totalSupply,
			vaultRegistry.positions,
			vaultRegistry.feeShares,
			vaultRegistry.swapVolume,
		)
	})
	return vaultRegistry
}

func (m *VaultMetrics) ObserveOperation(vault, operation, outcome string) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.operations.WithLabelValues(vault, operation, outcome).Inc()
}

func (m *VaultMetrics) SetTotalSupply(vault string, supply float64) {
	if m == nil {
		return
	}
	m.totalSupply.WithLabelValues(vault).Set(supply)
}

func (m *VaultMetrics) SetPositions(vault string, count int) {
	if m == nil {
		return
	}
	m.positions.WithLabelValues(vault).Set(float64(count))
}

func (m *VaultMetrics) AddFeeShares(vault, kind string, shares float64) {
	if m == nil || shares <= 0 {
		return
	}
	m.feeShares.WithLabelValues(vault, kind).Add(shares)
}

func (m *VaultMetrics) AddSwapInput(vault, direction string, amount float64) {
	if m == nil || amount <= 0 {
		return
	}
	m.swapVolume.WithLabelValues(vault, direction).Add(amount)
}

// FeeShares reads the fee shares counted so far for a vault and fee kind.
func (m *VaultMetrics) FeeShares(vault, kind string) float64 {
	if m == nil {
		return 0
	}
	var out dto.Metric
	if err := m.feeShares.WithLabelValues(vault, kind).Write(&out); err != nil {
		return 0
	}
	return out.GetCounter().GetValue()
}
