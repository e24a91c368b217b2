package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/spigell/jobfit/internal/ats"
)

func TestMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := New(reg)

	m.PostingsFetched(ats.SourceLever, 12)
	m.FetchFailed(ats.SourceWorkday)
	m.CacheLookup(true)
	m.CacheLookup(false)
	m.CacheLookup(false)
	m.ExtractionFailed()
	m.EnrichmentFailed(ats.SourceWorkday)
	m.ObserveMatch(1500 * time.Millisecond)

	assert.Equal(t, 12.0, testutil.ToFloat64(m.postingsFetched.WithLabelValues("lever")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fetchFailures.WithLabelValues("workday")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.extractionFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.enrichmentFailures.WithLabelValues("workday")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.matchDuration))

	count, err := testutil.GatherAndCount(reg)
	assert.NoError(t, err)
	assert.Positive(t, count)
}

func TestNilMetrics(t *testing.T) {
	t.Parallel()

	var m *Metrics
	assert.NotPanics(t, func() {
		m.PostingsFetched(ats.SourceGreenhouse, 1)
		m.FetchFailed(ats.SourceGreenhouse)
		m.CacheLookup(true)
		m.ExtractionFailed()
		m.EnrichmentFailed(ats.SourceWorkday)
		m.ObserveMatch(time.Second)
	})
}
