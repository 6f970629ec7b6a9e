package metrics

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the intake service. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	Registrations    *prometheus.CounterVec
	RegistryDuration *prometheus.HistogramVec
	CardsPrinted     *prometheus.CounterVec
	ActiveSessions   prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Registrations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "intake_registrations_total",
			Help: "Registration submissions by outcome",
		}, []string{"outcome"}),
		RegistryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "intake_registry_request_duration_seconds",
			Help:    "Latency of calls to the patient registry",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation", "result"}),
		CardsPrinted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "intake_cards_printed_total",
			Help: "Identity cards handed to the print sink",
		}, []string{"result"}),
		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "intake_active_sessions",
			Help: "Intake sessions currently held in memory",
		}),
	}
}

func (m *Metrics) ObserveRegistration(outcome string) {
	if m == nil {
		return
	}
	m.Registrations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveRegistryCall(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.RegistryDuration.WithLabelValues(operation, result(err)).Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObservePrint(err error) {
	if m == nil {
		return
	}
	m.CardsPrinted.WithLabelValues(result(err)).Inc()
}

func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.ActiveSessions.Set(float64(n))
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Handler exposes the collectors gathered by g on an echo route.
func Handler(g prometheus.Gatherer) echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
}
