package sensorsdr

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	commandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sensorsdr_commands_total",
			Help: "Commands handled, by network function, command and completion code",
		},
		[]string{"netfn", "cmd", "code"},
	)

	backendErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sensorsdr_backend_errors_total",
		Help: "Failed backend enumeration calls",
	})

	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sensorsdr_notifications_total",
			Help: "Backend notifications processed, by kind",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(commandsTotal, backendErrorsTotal, notificationsTotal)
}
