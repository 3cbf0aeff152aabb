package hub

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes hub operational counters.
type Metrics struct {
	Logins          prometheus.Counter
	SessionsCreated prometheus.Counter
	PodsReaped      *prometheus.CounterVec
	ProxyRequests   prometheus.Counter
	ProxyErrors     prometheus.Counter
	ActivePods      prometheus.Gauge
}

// NewMetrics creates the hub metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Logins: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "workshop_hub_logins_total",
			Help: "Successful login requests.",
		}),
		SessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "workshop_hub_sessions_created_total",
			Help: "Workshop pods created for new sessions.",
		}),
		PodsReaped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "workshop_hub_pods_reaped_total",
			Help: "Workshop pods deleted by the garbage collector.",
		}, []string{"reason"}),
		ProxyRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "workshop_hub_proxy_requests_total",
			Help: "Requests proxied to workshop pods.",
		}),
		ProxyErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "workshop_hub_proxy_errors_total",
			Help: "Proxy requests that failed.",
		}),
		ActivePods: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "workshop_hub_active_pods",
			Help: "Managed workshop pods seen during the last GC sweep.",
		}),
	}
	reg.MustRegister(m.Logins, m.SessionsCreated, m.PodsReaped, m.ProxyRequests, m.ProxyErrors, m.ActivePods)
	return m
}
