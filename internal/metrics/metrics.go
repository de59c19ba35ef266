package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every authgate collector plus the Go and process collectors.
var Registry = prometheus.NewRegistry()

var (
	// SessionCacheLookups counts gate cache lookups by result (hit, miss).
	SessionCacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "authgate_session_cache_lookups_total",
		Help: "Total number of session cache lookups",
	}, []string{"result"})

	// SessionFetches counts upstream session fetches by outcome (session, none, error).
	SessionFetches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "authgate_session_fetch_total",
		Help: "Total number of upstream session fetches",
	}, []string{"outcome"})

	GateDecisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "authgate_gate_decisions_total",
		Help: "Total number of session gate routing decisions",
	}, []string{"decision"})

	PasswordResets = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "authgate_password_reset_total",
		Help: "Total number of password reset operations",
	}, []string{"operation", "outcome"})

	EmailSends = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "authgate_email_send_total",
		Help: "Total number of outgoing emails",
	}, []string{"outcome"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		SessionCacheLookups,
		SessionFetches,
		GateDecisions,
		PasswordResets,
		EmailSends,
	)
}

func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
