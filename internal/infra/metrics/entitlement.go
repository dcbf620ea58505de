package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(codesIssuedTotal, redemptionsTotal, lazyDeactivationsTotal)
}

var (
	codesIssuedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_codes_issued_total",
			Help: "Activation codes issued.",
		},
	)

	redemptionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_code_redemptions_total",
			Help: "Activation attempts by outcome.",
		},
		[]string{"outcome"}, // success | missing | mismatch | expired | error
	)

	lazyDeactivationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_lazy_deactivations_total",
			Help: "Users deactivated on access after their window ran out.",
		},
	)
)

func IncCodesIssued() { codesIssuedTotal.Inc() }

func IncRedemption(outcome string) {
	redemptionsTotal.WithLabelValues(norm(outcome)).Inc()
}

func IncLazyDeactivation() { lazyDeactivationsTotal.Inc() }
