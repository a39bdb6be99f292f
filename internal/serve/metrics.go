package serve

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "wikimd"

type metrics struct {
	requests       *prometheus.CounterVec
	conversions    prometheus.Counter
	convertSeconds prometheus.Histogram
	records        prometheus.Gauge
	reloads        *prometheus.CounterVec
}

func newMetrics(reg *prometheus.Registry) *metrics {
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)
	return &metrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern and status code.",
		}, []string{"route", "code"}),
		conversions: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversions_total",
			Help:      "Documents converted through POST /convert.",
		}),
		convertSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "convert_duration_seconds",
			Help:      "Time spent converting one document.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
		records: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "index_records",
			Help:      "Records currently in the index.",
		}),
		reloads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reloads_total",
			Help:      "Index reloads by mode and result.",
		}, []string{"mode", "result"}),
	}
}
