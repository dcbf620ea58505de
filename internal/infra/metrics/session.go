package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(sessionState, reconnectsTotal, outboundSendsTotal) }

var (
	sessionState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gateway_session_state",
			Help: "1 for the current transport session state, 0 otherwise.",
		},
		[]string{"state"},
	)

	reconnectsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_reconnect_attempts_total",
			Help: "Transport reconnect attempts.",
		},
	)

	outboundSendsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_outbound_messages_total",
			Help: "Messages handed to the transport by outcome.",
		},
		[]string{"outcome"},
	)
)

var sessionStates = []string{"disconnected", "pairing_required", "connected"}

// SetSessionState marks state as current and zeroes the others.
func SetSessionState(state string) {
	cur := norm(state)
	for _, s := range sessionStates {
		v := 0.0
		if s == cur {
			v = 1
		}
		sessionState.WithLabelValues(s).Set(v)
	}
}

func IncReconnect() { reconnectsTotal.Inc() }

func IncOutbound(outcome string) {
	outboundSendsTotal.WithLabelValues(norm(outcome)).Inc()
}
