package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	itemsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pdftoolkit",
			Name:      "batch_items_total",
			Help:      "Batch items processed by operation, status and reason",
		},
		[]string{"operation", "status", "reason"},
	)

	itemDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pdftoolkit",
			Name:      "batch_item_duration_seconds",
			Help:      "Duration of batch items by operation",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	pagesAssembled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pdftoolkit",
			Name:      "pages_assembled_total",
			Help:      "Pages written into assembled output documents",
		},
	)

	pagesExtracted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pdftoolkit",
			Name:      "extraction_results_total",
			Help:      "Extraction results by kind (text, table, empty, failed)",
		},
		[]string{"kind"},
	)

	rangesSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pdftoolkit",
			Name:      "ranges_skipped_total",
			Help:      "Page ranges skipped because they do not fit the document",
		},
	)

	jobsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "pdftoolkit",
			Name:      "jobs_in_flight",
			Help:      "Jobs currently running in serve mode",
		},
	)

	registerOnce sync.Once
)

// Init registers collectors.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(itemsProcessed, itemDuration, pagesAssembled, pagesExtracted, rangesSkipped, jobsInFlight)
	})
}

// Handler returns the http.Handler for /metrics
func Handler() http.Handler { return promhttp.Handler() }

func ObserveItem(operation, status, reason string, dur time.Duration) {
	itemsProcessed.WithLabelValues(operation, status, reason).Inc()
	itemDuration.WithLabelValues(operation).Observe(dur.Seconds())
}

func AddPagesAssembled(n int) { pagesAssembled.Add(float64(n)) }

func IncExtracted(kind string) { pagesExtracted.WithLabelValues(kind).Inc() }

func IncRangeSkipped() { rangesSkipped.Inc() }

func JobStarted()  { jobsInFlight.Inc() }
func JobFinished() { jobsInFlight.Dec() }
