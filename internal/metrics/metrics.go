package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Paging
	PagesFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "review_scraper_pages_fetched_total",
		Help: "Total number of review pages fetched successfully.",
	})
	FetchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "review_scraper_fetch_failures_total",
		Help: "Total number of failed page fetch attempts.",
	}, []string{"code"}) // code: NETWORK_FAILURE, MALFORMED_RESPONSE, ...
	FetchRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "review_scraper_fetch_retries_total",
		Help: "Total number of page fetch retries.",
	})
	FetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "review_scraper_fetch_duration_seconds",
		Help:    "Duration of single page requests in seconds.",
		Buckets: prometheus.DefBuckets,
	})

	// Records
	ReviewsCollected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "review_scraper_reviews_collected_total",
		Help: "Total number of reviews accepted into a collection.",
	})
	DuplicatesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "review_scraper_duplicates_skipped_total",
		Help: "Total number of reviews dropped because their id was already collected.",
	})

	// Runs
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "review_scraper_runs_total",
		Help: "Total number of collection runs by terminal status.",
	}, []string{"status"})
)

// RecordFetchDuration records the time taken for a single page request.
func RecordFetchDuration(start time.Time) {
	FetchDuration.Observe(time.Since(start).Seconds())
}

// WriteTextfile dumps the default registry in the text exposition format,
// ready for a node_exporter textfile collector.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
