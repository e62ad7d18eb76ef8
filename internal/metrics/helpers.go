package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "unletterbox"

var (
	// RunBuckets span 100ms to 5min, a single file up to a large recursive tree.
	RunBuckets = []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300}

	// FileBuckets span 5ms to 30s for one decode, crop and encode. JPEG XL
	// files sit at the top end because of the external tool round trip.
	FileBuckets = []float64{0.005, 0.025, 0.1, 0.5, 1, 5, 30}
)

func counter(name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help})
}

func counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help}, labels)
}

func gauge(name, help string) prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help})
}

func histogram(name, help string, buckets []float64) prometheus.Histogram {
	return prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	})
}

func histogramVec(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	}, labels)
}
