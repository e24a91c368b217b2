package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/spigell/jobfit/internal/ats"
)

const namespace = "jobfit"

// Metrics holds the application collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	postingsFetched    *prometheus.CounterVec
	fetchFailures      *prometheus.CounterVec
	cacheLookups       *prometheus.CounterVec
	extractionFailures prometheus.Counter
	enrichmentFailures *prometheus.CounterVec
	matchDuration      prometheus.Histogram
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		postingsFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "postings_fetched_total",
			Help:      "Postings fetched from job boards.",
		}, []string{"source"}),
		fetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_failures_total",
			Help:      "Job board listings that could not be fetched.",
		}, []string{"source"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Posting cache lookups by result.",
		}, []string{"result"}),
		extractionFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extraction_failures_total",
			Help:      "Requirement extractions replaced by defaults.",
		}),
		enrichmentFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichment_failures_total",
			Help:      "Posting detail enrichments that kept the teaser.",
		}, []string{"source"}),
		matchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "match_duration_seconds",
			Help:      "Time spent extracting and scoring postings for one request.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80},
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.postingsFetched,
			m.fetchFailures,
			m.cacheLookups,
			m.extractionFailures,
			m.enrichmentFailures,
			m.matchDuration,
		)
	}

	return m
}

func (m *Metrics) PostingsFetched(source ats.Source, n int) {
	if m == nil {
		return
	}
	m.postingsFetched.WithLabelValues(source.String()).Add(float64(n))
}

func (m *Metrics) FetchFailed(source ats.Source) {
	if m == nil {
		return
	}
	m.fetchFailures.WithLabelValues(source.String()).Inc()
}

// CacheLookup implements cache.Recorder.
func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) ExtractionFailed() {
	if m == nil {
		return
	}
	m.extractionFailures.Inc()
}

// EnrichmentFailed implements ats.Recorder.
func (m *Metrics) EnrichmentFailed(source ats.Source) {
	if m == nil {
		return
	}
	m.enrichmentFailures.WithLabelValues(source.String()).Inc()
}

func (m *Metrics) ObserveMatch(d time.Duration) {
	if m == nil {
		return
	}
	m.matchDuration.Observe(d.Seconds())
}
