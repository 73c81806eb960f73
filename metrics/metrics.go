package metrics

import (
	"context"

	"casino/events"
	"casino/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BetsPlaced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "casino_bets_placed_total",
		Help: "Wager sessions opened",
	})

	Settlements = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "casino_settlements_total",
		Help: "Session resolutions by terminal result",
	}, []string{"result"})

	DepositsConfirmed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "casino_deposits_confirmed_total",
		Help: "Deposits confirmed by the payment webhook",
	})

	RoundsCrashed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "casino_rounds_crashed_total",
		Help: "Multiplier rounds that reached their crash point",
	})

	CrashPoints = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "casino_crash_points",
		Help:    "Distribution of round crash points",
		Buckets: []float64{1, 1.2, 1.5, 2, 3, 5, 10, 25, 50, 100},
	})
)

// Attach wires the collectors to the event bus, so every settlement path is
// counted without instrumenting the services directly.
func Attach(bus *events.Bus) {
	bus.Subscribe(events.EventTypeBetPlaced, func(ctx context.Context, e events.Event) {
		BetsPlaced.Inc()
	})

	bus.Subscribe(events.EventTypeSessionResolved, func(ctx context.Context, e events.Event) {
		resolved, ok := e.(events.SessionResolvedEvent)
		if !ok {
			return
		}
		result := "lost"
		if resolved.Status == models.SessionStatusWon {
			result = "won"
		}
		Settlements.WithLabelValues(result).Inc()
	})

	bus.Subscribe(events.EventTypeDepositCompleted, func(ctx context.Context, e events.Event) {
		DepositsConfirmed.Inc()
	})

	bus.Subscribe(events.EventTypeRoundCrashed, func(ctx context.Context, e events.Event) {
		RoundsCrashed.Inc()
		if crashed, ok := e.(events.RoundCrashedEvent); ok {
			CrashPoints.Observe(crashed.CrashPoint)
		}
	})
}
