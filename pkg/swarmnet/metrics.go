package swarmnet

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the counters/gauges the event loop and pub/sub client
// update as they run, registered against a caller-supplied Registerer
// so multiple Facade instances in one process don't collide.
type Metrics struct {
	SegmentsProvided   prometheus.Counter
	SegmentsRequested  *prometheus.CounterVec
	PingRTTSeconds     prometheus.Histogram
	PingFailuresTotal  prometheus.Counter
	RendezvousRegistrations *prometheus.CounterVec
	DiscoveredPeersTotal    prometheus.Counter
}

// NewMetrics constructs and registers a Metrics set against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SegmentsProvided: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "marecchia_segments_provided_total",
			Help: "Total segments published via ProvideSegment.",
		}),
		SegmentsRequested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marecchia_segments_requested_total",
			Help: "Total RequestSegment outcomes by result.",
		}, []string{"result"}),
		PingRTTSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "marecchia_ping_rtt_seconds",
			Help:    "Round-trip time of successful liveness probes.",
			Buckets: prometheus.DefBuckets,
		}),
		PingFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "marecchia_ping_failures_total",
			Help: "Total liveness probes that failed, triggering a disconnect.",
		}),
		RendezvousRegistrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marecchia_rendezvous_registrations_total",
			Help: "Total rendezvous registration attempts by outcome.",
		}, []string{"outcome"}),
		DiscoveredPeersTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "marecchia_discovered_peers_total",
			Help: "Total peer records returned by rendezvous discovery.",
		}),
	}

	reg.MustRegister(
		m.SegmentsProvided,
		m.SegmentsRequested,
		m.PingRTTSeconds,
		m.PingFailuresTotal,
		m.RendezvousRegistrations,
		m.DiscoveredPeersTotal,
	)
	return m
}
