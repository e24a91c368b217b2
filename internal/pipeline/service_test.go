package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/jobfit/internal/ats"
	"github.com/spigell/jobfit/internal/cache"
	"github.com/spigell/jobfit/internal/logger"
)

const boardURL = "https://boards.greenhouse.io/acme"

type fakeConnector struct {
	postings []ats.Posting
	err      error
	fetches  atomic.Int32
	// delay is spent ignoring ctx, like a connector that returns late
	delay time.Duration
	// noDetail mimics providers without a detail endpoint
	noDetail bool
}

func (f *fakeConnector) Source() ats.Source { return ats.SourceGreenhouse }

func (f *fakeConnector) FetchPostings(_ context.Context, maxCount int) ([]ats.Posting, error) {
	f.fetches.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	if len(f.postings) > maxCount {
		return f.postings[:maxCount], nil
	}
	return f.postings, nil
}

func (f *fakeConnector) FetchDetail(_ context.Context, id string) (string, error) {
	if f.noDetail {
		return "", nil
	}
	for _, p := range f.postings {
		if p.ID == id {
			return p.Description, nil
		}
	}
	return "", errors.New("not found")
}

func resolveTo(conn ats.Connector) ResolveFunc {
	return func(boardURL string, opts ats.Options) (ats.Connector, error) {
		if _, ok := ats.DetectSource(boardURL); !ok {
			return nil, &ats.UnsupportedSourceError{URL: boardURL}
		}
		return conn, nil
	}
}

type serviceFixture struct {
	service   *Service
	conn      *fakeConnector
	extractor *stubExtractor
	recorder  *countingRecorder
	cache     *cache.PostingCache
}

func newServiceFixture(t *testing.T, conn *fakeConnector, opts ServiceOptions) serviceFixture {
	t.Helper()

	extractor := &stubExtractor{}
	recorder := &countingRecorder{}
	postingCache := cache.New(cache.NewFileStore(t.TempDir()), cache.Options{})

	opts.Resolve = resolveTo(conn)
	opts.Recorder = recorder
	matcher := NewMatcher(extractor, MatcherOptions{Recorder: recorder})

	return serviceFixture{
		service:   NewService(postingCache, matcher, opts),
		conn:      conn,
		extractor: extractor,
		recorder:  recorder,
		cache:     postingCache,
	}
}

func TestRecommendUsesCacheOnSecondRun(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t, &fakeConnector{postings: makePostings(12)}, ServiceOptions{})
	ctx := context.Background()

	first, err := f.service.Recommend(ctx, backendProfile, "backend engineer", boardURL)
	require.NoError(t, err)
	second, err := f.service.Recommend(ctx, backendProfile, "backend engineer", boardURL)
	require.NoError(t, err)

	assert.Len(t, first, DefaultTop)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), f.conn.fetches.Load())
	assert.Equal(t, int32(12), f.recorder.fetched.Load())
	assert.Equal(t, int32(2), f.recorder.observed.Load())
}

func TestRecommendEmptyBoard(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t, &fakeConnector{}, ServiceOptions{})

	results, err := f.service.Recommend(context.Background(), backendProfile, "", boardURL)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
	assert.Zero(t, f.extractor.calls.Load())
}

func TestRecommendRejectsUnsupportedBoard(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t, &fakeConnector{postings: makePostings(1)}, ServiceOptions{})

	_, err := f.service.Recommend(context.Background(), backendProfile, "", "https://example.com/careers")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ats.ErrUnsupportedSource))
	assert.Zero(t, f.conn.fetches.Load())
	assert.ErrorIs(t, f.service.Validate("https://example.com/careers"), ats.ErrUnsupportedSource)
	assert.NoError(t, f.service.Validate(boardURL))
}

func TestRecommendWithDefaultResolver(t *testing.T) {
	t.Parallel()

	service := NewService(nil, NewMatcher(&stubExtractor{}, MatcherOptions{}), ServiceOptions{})

	_, err := service.Recommend(context.Background(), backendProfile, "", "https://jobs.lever.co/")
	assert.ErrorIs(t, err, ats.ErrInvalidCompanyURL)
}

func TestRecommendFetchFailureIsNotCached(t *testing.T) {
	t.Parallel()

	conn := &fakeConnector{err: &ats.FetchError{Source: ats.SourceGreenhouse, Cause: errors.New("status 503")}}
	f := newServiceFixture(t, conn, ServiceOptions{})
	ctx := context.Background()

	_, err := f.service.Recommend(ctx, backendProfile, "", boardURL)
	assert.ErrorIs(t, err, ats.ErrFetchFailed)

	conn.err = nil
	conn.postings = makePostings(2)
	results, err := f.service.Recommend(ctx, backendProfile, "", boardURL)
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, int32(2), conn.fetches.Load())
	assert.Equal(t, int32(1), f.recorder.fetchFailed.Load())
}

func TestRecommendTimeout(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t, &fakeConnector{postings: makePostings(3)}, ServiceOptions{Timeout: 20 * time.Millisecond})
	f.extractor.blocking = true

	_, err := f.service.Recommend(context.Background(), backendProfile, "", boardURL)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Zero(t, f.recorder.observed.Load())
}

func TestRecommendLogsRunID(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	conn := &fakeConnector{postings: makePostings(1)}
	f := newServiceFixture(t, conn, ServiceOptions{Logger: zap.New(core)})

	ctx := WithRunID(context.Background(), "run-42")
	_, err := f.service.Recommend(ctx, backendProfile, "", boardURL)
	require.NoError(t, err)

	entries := logs.FilterMessage("recommendation finished").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "run-42", fields[logger.FieldRunID])
	assert.Equal(t, boardURL, fields[logger.FieldBoardURL])
	assert.Equal(t, string(ats.SourceGreenhouse), fields[logger.FieldSource])
}

func TestWarmBypassesCache(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t, &fakeConnector{postings: makePostings(5)}, ServiceOptions{MaxPostings: 3})
	ctx := context.Background()

	postings, err := f.service.Postings(ctx, boardURL)
	require.NoError(t, err)
	assert.Len(t, postings, 3)

	n, err := f.service.Warm(ctx, boardURL)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, int32(2), f.conn.fetches.Load())

	_, err = f.service.Postings(ctx, boardURL)
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.conn.fetches.Load())
}

func TestDetail(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t, &fakeConnector{postings: makePostings(2)}, ServiceOptions{})

	description, err := f.service.Detail(context.Background(), boardURL, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Build services in Go.", description)

	_, err = f.service.Detail(context.Background(), boardURL, "missing")
	assert.Error(t, err)
	assert.Equal(t, int32(1), f.recorder.fetchFailed.Load())
}

func TestRunIDRoundTrip(t *testing.T) {
	t.Parallel()

	assert.Empty(t, RunID(context.Background()))
	assert.Equal(t, "abc", RunID(WithRunID(context.Background(), "abc")))
	assert.NotEqual(t, NewRunID(), NewRunID())
}

func TestRecommendTimeoutDoesNotCacheLateFetch(t *testing.T) {
	t.Parallel()

	conn := &fakeConnector{postings: makePostings(3), delay: 50 * time.Millisecond}
	f := newServiceFixture(t, conn, ServiceOptions{Timeout: 20 * time.Millisecond})

	_, err := f.service.Recommend(context.Background(), backendProfile, "", boardURL)
	assert.ErrorIs(t, err, ErrTimeout)

	_, hit := f.cache.Get(context.Background(), boardURL)
	assert.False(t, hit)
}

func TestRecommendCancelled(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t, &fakeConnector{postings: makePostings(3)}, ServiceOptions{})
	f.extractor.blocking = true

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(30*time.Millisecond, cancel)

	results, err := f.service.Recommend(ctx, backendProfile, "", boardURL)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrTimeout)
	assert.Nil(t, results)
	assert.Zero(t, f.recorder.observed.Load())
}

func TestWarmCancelledDoesNotCache(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t, &fakeConnector{postings: makePostings(2)}, ServiceOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n, err := f.service.Warm(ctx, boardURL)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, n)

	_, hit := f.cache.Get(context.Background(), boardURL)
	assert.False(t, hit)
}

func TestDetailFallsBackToListing(t *testing.T) {
	t.Parallel()

	conn := &fakeConnector{postings: makePostings(3), noDetail: true}
	conn.postings[1].Description = "Full description of p1"
	f := newServiceFixture(t, conn, ServiceOptions{})
	ctx := context.Background()

	description, err := f.service.Detail(ctx, boardURL, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Full description of p1", description)

	_, err = f.service.Detail(ctx, boardURL, "p9")
	assert.ErrorIs(t, err, ErrPostingNotFound)

	// the second lookup is served from the cached listing
	assert.Equal(t, int32(1), conn.fetches.Load())
}
