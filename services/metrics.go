package services

import (
	"bounty-escrow-system/models"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are optional; a nil *Metrics records nothing.
type Metrics struct {
	operations *prometheus.CounterVec
	events     *prometheus.CounterVec
	escrowHeld prometheus.Gauge
	paidOut    prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bounty_ledger",
			Name:      "operations_total",
			Help:      "Mutating ledger operations by outcome.",
		}, []string{"op", "result"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bounty_ledger",
			Name:      "events_total",
			Help:      "Committed ledger events by kind.",
		}, []string{"kind"}),
		escrowHeld: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "bounty_ledger",
			Name:      "escrow_held_amount",
			Help:      "Sum of deposits held for unpaid bounties.",
		}),
		paidOut: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bounty_ledger",
			Name:      "paid_out_amount_total",
			Help:      "Sum of escrow released to accepted submitters.",
		}),
	}
	reg.MustRegister(m.operations, m.events, m.escrowHeld, m.paidOut)
	return m
}

func (m *Metrics) observe(op string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = ErrorKind(err)
	}
	m.operations.WithLabelValues(op, result).Inc()
}

func (m *Metrics) committed(events []models.LedgerEvent) {
	if m == nil {
		return
	}
	for _, ev := range events {
		m.events.WithLabelValues(string(ev.Kind)).Inc()
		switch ev.Kind {
		case models.EventOpen:
			m.escrowHeld.Add(float64(ev.Amount))
		case models.EventPaid:
			m.escrowHeld.Sub(float64(ev.Amount))
			m.paidOut.Add(float64(ev.Amount))
		}
	}
}

func (m *Metrics) setEscrowHeld(amount int64) {
	if m == nil {
		return
	}
	m.escrowHeld.Set(float64(amount))
}
