package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(broadcastSendsTotal, broadcastsTotal, broadcastDuration)
}

var (
	broadcastSendsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_broadcast_sends_total",
			Help: "Per-group broadcast deliveries by outcome.",
		},
		[]string{"outcome"}, // success | failed | skipped
	)

	broadcastsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_broadcasts_total",
			Help: "Broadcast runs by outcome.",
		},
		[]string{"outcome"}, // completed | cancelled | rejected
	)

	broadcastDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gateway_broadcast_duration_seconds",
			Help:    "Wall time of a full broadcast run.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		},
	)
)

func AddBroadcastSends(outcome string, n int) {
	if n <= 0 {
		return
	}
	broadcastSendsTotal.WithLabelValues(norm(outcome)).Add(float64(n))
}

func IncBroadcast(outcome string) {
	broadcastsTotal.WithLabelValues(norm(outcome)).Inc()
}

func ObserveBroadcastDuration(d time.Duration) {
	broadcastDuration.Observe(d.Seconds())
}
