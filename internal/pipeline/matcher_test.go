package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/jobfit/internal/ats"
	"github.com/spigell/jobfit/internal/matching"
)

type stubExtractor struct {
	mu       sync.Mutex
	byID     map[string]matching.JobRequirements
	failIDs  map[string]bool
	calls    atomic.Int32
	active   atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
	blocking bool
}

func (s *stubExtractor) ExtractRequirements(ctx context.Context, posting ats.Posting) (matching.JobRequirements, error) {
	s.calls.Add(1)
	current := s.active.Add(1)
	defer s.active.Add(-1)

	for {
		peak := s.peak.Load()
		if current <= peak || s.peak.CompareAndSwap(peak, current) {
			break
		}
	}

	if s.blocking {
		<-ctx.Done()
		return matching.JobRequirements{}, ctx.Err()
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failIDs[posting.ID] {
		return matching.JobRequirements{}, errors.New("model unavailable")
	}
	if req, ok := s.byID[posting.ID]; ok {
		return req, nil
	}
	return matching.DefaultRequirements(), nil
}

type countingRecorder struct {
	extractionFailed atomic.Int32
	fetched          atomic.Int32
	fetchFailed      atomic.Int32
	observed         atomic.Int32
}

func (r *countingRecorder) ExtractionFailed()                   { r.extractionFailed.Add(1) }
func (r *countingRecorder) PostingsFetched(_ ats.Source, n int) { r.fetched.Add(int32(n)) }
func (r *countingRecorder) FetchFailed(_ ats.Source)            { r.fetchFailed.Add(1) }
func (r *countingRecorder) ObserveMatch(_ time.Duration)        { r.observed.Add(1) }

func makePostings(n int) []ats.Posting {
	postings := make([]ats.Posting, n)
	for i := range postings {
		postings[i] = ats.Posting{
			ID:          fmt.Sprintf("p%d", i),
			Title:       fmt.Sprintf("Role %d", i),
			Description: "Build services in Go.",
			Source:      ats.SourceGreenhouse,
		}
	}
	return postings
}

var backendProfile = matching.ResumeProfile{
	Skills:   []string{"Go", "Kubernetes", "PostgreSQL"},
	Keywords: []string{"backend", "distributed systems"},
}

func TestMatcherRanksBestFirst(t *testing.T) {
	t.Parallel()

	postings := makePostings(3)
	extractor := &stubExtractor{byID: map[string]matching.JobRequirements{
		"p0": {MustHave: []string{"COBOL", "Mainframe"}, RoleFamily: matching.RoleEngineering},
		"p1": {MustHave: []string{"Go", "Kubernetes"}, RoleFamily: matching.RoleEngineering, Keywords: []string{"backend"}},
		"p2": {MustHave: []string{"Go", "Figma"}, RoleFamily: matching.RoleDesign},
	}}

	results := NewMatcher(extractor, MatcherOptions{}).
		Match(context.Background(), backendProfile, "backend engineer", postings)

	require.Len(t, results, 3)
	assert.Equal(t, "p1", results[0].Posting.ID)
	assert.Equal(t, "p0", results[2].Posting.ID)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
	assert.NotEmpty(t, results[0].WhyMatches)
}

func TestMatcherKeepsTopAndInputOrderOnTies(t *testing.T) {
	t.Parallel()

	postings := makePostings(25)
	results := NewMatcher(&stubExtractor{}, MatcherOptions{BatchSize: 4}).
		Match(context.Background(), backendProfile, "", postings)

	require.Len(t, results, DefaultTop)
	for i, result := range results {
		assert.Equal(t, fmt.Sprintf("p%d", i), result.Posting.ID)
	}
}

func TestMatcherFewerThanTop(t *testing.T) {
	t.Parallel()

	results := NewMatcher(&stubExtractor{}, MatcherOptions{}).
		Match(context.Background(), backendProfile, "", makePostings(3))
	assert.Len(t, results, 3)

	results = NewMatcher(&stubExtractor{}, MatcherOptions{}).
		Match(context.Background(), backendProfile, "", nil)
	assert.Empty(t, results)
}

func TestMatcherSkipsEmptyDescriptions(t *testing.T) {
	t.Parallel()

	postings := makePostings(2)
	postings[1].Description = "  \n "
	extractor := &stubExtractor{}

	results := NewMatcher(extractor, MatcherOptions{}).
		Match(context.Background(), backendProfile, "", postings)

	require.Len(t, results, 2)
	assert.Equal(t, int32(1), extractor.calls.Load())
}

func TestMatcherFallsBackOnExtractionFailure(t *testing.T) {
	t.Parallel()

	postings := makePostings(4)
	extractor := &stubExtractor{failIDs: map[string]bool{"p2": true}}
	recorder := &countingRecorder{}

	results := NewMatcher(extractor, MatcherOptions{Recorder: recorder}).
		Match(context.Background(), backendProfile, "", postings)

	require.Len(t, results, 4)
	assert.Equal(t, int32(1), recorder.extractionFailed.Load())

	var failed matching.MatchResult
	for _, result := range results {
		if result.Posting.ID == "p2" {
			failed = result
		}
	}
	expected := matching.Score(backendProfile, matching.DefaultRequirements(), "")
	assert.Equal(t, expected.FinalScore, failed.Score)
}

func TestMatcherBoundsConcurrencyByBatch(t *testing.T) {
	t.Parallel()

	extractor := &stubExtractor{delay: 5 * time.Millisecond}
	results := NewMatcher(extractor, MatcherOptions{BatchSize: 3, Top: 20}).
		Match(context.Background(), backendProfile, "", makePostings(10))

	assert.Len(t, results, 10)
	assert.Equal(t, int32(10), extractor.calls.Load())
	assert.LessOrEqual(t, extractor.peak.Load(), int32(3))
}
