package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(commandsTotal, rateLimitedTotal)
}

var (
	commandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_commands_total",
			Help: "Inbound commands by name and outcome.",
		},
		[]string{"command", "outcome"}, // ok | rejected | error
	)

	rateLimitedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_rate_limited_total",
			Help: "Inbound messages dropped by the per-sender rate limit.",
		},
	)
)

func IncCommand(command, outcome string) {
	if command == "" {
		command = "none"
	}
	commandsTotal.WithLabelValues(norm(command), norm(outcome)).Inc()
}

func IncRateLimited() { rateLimitedTotal.Inc() }
