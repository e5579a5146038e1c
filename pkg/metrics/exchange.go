package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// ExchangeMetrics records lifecycle transition counts for exchanges.
type ExchangeMetrics struct {
	transitions *prometheus.CounterVec
	holdErrors  prometheus.Counter
}

// NewExchangeMetrics registers the exchange metrics on the provided registerer.
func NewExchangeMetrics(reg prometheus.Registerer) *ExchangeMetrics {
	if reg == nil {
		return &ExchangeMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "exchange_transitions_total",
		Help: "Exchange state transitions by action.",
	}, []string{"action"})
	holdErrors := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "exchange_hold_errors_total",
		Help: "Inventory hold writes that failed and were skipped.",
	})
	reg.MustRegister(transitions, holdErrors)
	return &ExchangeMetrics{
		transitions: transitions,
		holdErrors:  holdErrors,
	}
}

// IncTransition increments the counter for the named transition.
func (m *ExchangeMetrics) IncTransition(action string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(action)).Inc()
}

// IncHoldError counts a skipped hold write.
func (m *ExchangeMetrics) IncHoldError() {
	if m == nil || m.holdErrors == nil {
		return
	}
	m.holdErrors.Inc()
}

func normalizeLabel(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return "unknown"
	}
	return strings.ReplaceAll(value, " ", "_")
}
