package pipeline

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for reconstruction.
type Metrics struct {
	EventsTotal       prometheus.Counter
	HitsTotal         prometheus.Counter
	ClustersTotal     prometheus.Counter
	AveragedHitsTotal prometheus.Counter
	TracksTotal       *prometheus.CounterVec
	EventDuration     prometheus.Histogram
	TracksPerEvent    prometheus.Histogram
}

// NewMetrics registers and returns reconstruction metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EventsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crt_events_total",
			Help: "Total events reconstructed.",
		}),
		HitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crt_hits_total",
			Help: "Total raw hits processed.",
		}),
		ClustersTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crt_tzero_clusters_total",
			Help: "Total Tzero clusters formed.",
		}),
		AveragedHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crt_averaged_hits_total",
			Help: "Total averaged hits passed to track building.",
		}),
		TracksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crt_tracks_total",
			Help: "Total tracks emitted by completeness.",
		}, []string{"complete"}),
		EventDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "crt_event_duration_seconds",
			Help:    "Reconstruction time per event in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8), // 100µs .. ~1.6s
		}),
		TracksPerEvent: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "crt_tracks_per_event",
			Help:    "Tracks emitted per event.",
			Buckets: prometheus.LinearBuckets(0, 1, 11), // 0 .. 10
		}),
	}

	reg.MustRegister(
		m.EventsTotal,
		m.HitsTotal,
		m.ClustersTotal,
		m.AveragedHitsTotal,
		m.TracksTotal,
		m.EventDuration,
		m.TracksPerEvent,
	)

	return m
}

func (m *Metrics) observe(r *EventResult) {
	if m == nil {
		return
	}
	m.EventsTotal.Inc()
	m.HitsTotal.Add(float64(r.NHits))
	m.ClustersTotal.Add(float64(len(r.Clusters)))
	m.AveragedHitsTotal.Add(float64(r.NAveraged))
	for _, c := range r.Clusters {
		for _, t := range c.Tracks {
			if t.Track.Complete {
				m.TracksTotal.WithLabelValues("true").Inc()
			} else {
				m.TracksTotal.WithLabelValues("false").Inc()
			}
		}
	}
	m.EventDuration.Observe(r.ProcessingTime.Seconds())
	m.TracksPerEvent.Observe(float64(r.NTracks))
}
