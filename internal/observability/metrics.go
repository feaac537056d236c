package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics - счетчики Prometheus конвейера приема сообщений
type Metrics struct {
	ReportsAccepted    prometheus.Counter
	ReportsRejected    *prometheus.CounterVec // label: reason={throttle,duplicate_nearby}
	IncidentsCreated   prometheus.Counter
	IncidentsConfirmed prometheus.Counter
}

// NewMetrics создает и регистрирует метрики в реестре Prometheus
// по умолчанию
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.ReportsAccepted,
		m.ReportsRejected,
		m.IncidentsCreated,
		m.IncidentsConfirmed,
	)
	return m
}

// NewMetricsForTesting создает метрики без регистрации, чтобы
// параллельные тесты не падали на "already registered"
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		ReportsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "animal_report",
			Name:      "reports_accepted_total",
			Help:      "Total reports accepted by the spam filter.",
		}),
		ReportsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "animal_report",
			Name:      "reports_rejected_total",
			Help:      "Total reports rejected by the spam filter, by reason.",
		}, []string{"reason"}),
		IncidentsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "animal_report",
			Name:      "incidents_created_total",
			Help:      "Total new incidents opened by unmatched reports.",
		}),
		IncidentsConfirmed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "animal_report",
			Name:      "incidents_confirmed_total",
			Help:      "Total incidents promoted from pending to confirmed.",
		}),
	}
}
