package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collectors carry no service label of their own; MustRegister adds it when
// wiring them into the default registry, so they are safe to use unregistered
// in tests.
var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	ReaderAccessChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reader_access_checks_total",
			Help: "Entitlement checks by outcome.",
		},
		[]string{"result"},
	)

	GiftRevealsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gift_reveals_total",
			Help: "Gift reveal attempts by outcome.",
		},
		[]string{"result"},
	)

	PresenceHeartbeatsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "presence_heartbeats_total",
			Help: "Presence heartbeats recorded.",
		},
	)

	WriteGuardRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "write_guard_rejections_total",
			Help: "Mutating requests rejected by the system mode guard.",
		},
		[]string{"route"},
	)

	AudioProxyRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audio_proxy_requests_total",
			Help: "Audio proxy requests by outcome.",
		},
		[]string{"result"},
	)
)

func MustRegister(serviceName string) {
	reg := prometheus.WrapRegistererWith(prometheus.Labels{"service": serviceName}, prometheus.DefaultRegisterer)
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDurationSeconds,
		ReaderAccessChecksTotal,
		GiftRevealsTotal,
		PresenceHeartbeatsTotal,
		WriteGuardRejectionsTotal,
		AudioProxyRequestsTotal,
	)
}
