package service

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/pslima001/govy-function-current-sub002/items"
)

var (
	extractionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "edital_extractions_total",
		Help: "Parameter extractions by parameter and outcome.",
	}, []string{"parameter", "found"})

	layerFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "edital_item_layer_failures_total",
		Help: "Item layers that could not produce candidates.",
	}, []string{"layer"})

	consensusItems = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "edital_consensus_items",
		Help:    "Items accepted by consensus per document.",
		Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 800},
	})

	overflowExportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "edital_overflow_exports_total",
		Help: "Overflow list exports by result.",
	}, []string{"result"})

	extractionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "edital_extraction_duration_seconds",
		Help:    "Extraction latency by operation.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
)

func observeParameter(parameter string, found bool) {
	extractionsTotal.WithLabelValues(parameter, strconv.FormatBool(found)).Inc()
}

func observeItems(res items.Result) {
	for _, r := range res.Layers {
		if !r.Available {
			layerFailuresTotal.WithLabelValues(r.Layer.String()).Inc()
		}
	}
	consensusItems.Observe(float64(len(res.Items)))
}

func observeExport(err error) {
	result := "written"
	if err != nil {
		result = "failed"
	}
	overflowExportsTotal.WithLabelValues(result).Inc()
}

func observeDuration(operation string, start time.Time) {
	extractionDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
