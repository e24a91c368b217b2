package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/jobfit/internal/ats"
	"github.com/spigell/jobfit/internal/cache"
	"github.com/spigell/jobfit/internal/logger"
	"github.com/spigell/jobfit/internal/matching"
)

var (
	// ErrTimeout is returned when a run does not finish within its deadline.
	ErrTimeout = errors.New("recommendation timed out")
	// ErrPostingNotFound is returned by Detail for ids missing from the board.
	ErrPostingNotFound = errors.New("posting not found")
)

// ResolveFunc picks a connector for a board URL.
type ResolveFunc func(boardURL string, opts ats.Options) (ats.Connector, error)

// Recorder receives run level measurements.
type Recorder interface {
	PostingsFetched(source ats.Source, n int)
	FetchFailed(source ats.Source)
	ObserveMatch(d time.Duration)
}

type ServiceOptions struct {
	Connectors  ats.Options
	Resolve     ResolveFunc
	MaxPostings int
	// Timeout bounds a whole Recommend call. Zero disables it.
	Timeout  time.Duration
	Logger   *zap.Logger
	Recorder Recorder
}

// Service runs the recommendation flow for one board: resolve the
// connector, load postings from the cache or the provider, then rank them.
type Service struct {
	cache       *cache.PostingCache
	matcher     *Matcher
	connectors  ats.Options
	resolve     ResolveFunc
	maxPostings int
	timeout     time.Duration
	logger      *zap.Logger
	recorder    Recorder
}

func NewService(postingCache *cache.PostingCache, matcher *Matcher, opts ServiceOptions) *Service {
	if opts.Resolve == nil {
		opts.Resolve = ats.Resolve
	}
	if opts.MaxPostings <= 0 {
		opts.MaxPostings = ats.DefaultMaxPostings
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Service{
		cache:       postingCache,
		matcher:     matcher,
		connectors:  opts.Connectors,
		resolve:     opts.Resolve,
		maxPostings: opts.MaxPostings,
		timeout:     opts.Timeout,
		logger:      opts.Logger,
		recorder:    opts.Recorder,
	}
}

// Validate rejects board URLs no connector can serve. It makes no network calls.
func (s *Service) Validate(boardURL string) error {
	_, err := s.resolve(boardURL, s.connectors)
	return err
}

// Recommend returns the best matching postings of the board for the
// profile. An empty board yields an empty, non-nil slice.
func (s *Service) Recommend(ctx context.Context, profile matching.ResumeProfile, desired, boardURL string) ([]matching.MatchResult, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	ctx, conn, log, err := s.begin(ctx, boardURL)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	log.Info("recommendation started", zap.Int("skills", len(profile.Skills)))

	postings, err := s.load(ctx, log, conn, boardURL)
	if err != nil {
		return nil, timeoutOr(ctx, err)
	}

	if len(postings) == 0 {
		log.Warn("no postings found")
		return []matching.MatchResult{}, nil
	}

	results := s.matcher.Match(ctx, profile, desired, postings)
	// extractions cut short by ctx fell back to defaults
	if err := ctx.Err(); err != nil {
		return nil, timeoutOr(ctx, err)
	}

	elapsed := time.Since(started)
	if s.recorder != nil {
		s.recorder.ObserveMatch(elapsed)
	}
	log.Info("recommendation finished", zap.Int("results", len(results)), zap.Duration("took", elapsed))

	return results, nil
}

// Postings returns the board's postings, served from the cache when fresh.
func (s *Service) Postings(ctx context.Context, boardURL string) ([]ats.Posting, error) {
	ctx, conn, log, err := s.begin(ctx, boardURL)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, log, conn, boardURL)
}

// Warm fetches the board bypassing the cache and stores the result.
func (s *Service) Warm(ctx context.Context, boardURL string) (int, error) {
	ctx, conn, log, err := s.begin(ctx, boardURL)
	if err != nil {
		return 0, err
	}

	postings, err := s.fetch(ctx, log, conn)
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.store(ctx, log, boardURL, postings)

	return len(postings), nil
}

// Detail returns the plain-text description of one posting on the board.
// Providers without a detail endpoint are served from the board listing.
func (s *Service) Detail(ctx context.Context, boardURL, id string) (string, error) {
	ctx, conn, log, err := s.begin(ctx, boardURL)
	if err != nil {
		return "", err
	}

	description, err := conn.FetchDetail(ctx, id)
	if err != nil {
		if s.recorder != nil {
			s.recorder.FetchFailed(conn.Source())
		}
		return "", err
	}
	if description != "" {
		return description, nil
	}

	postings, err := s.load(ctx, log, conn, boardURL)
	if err != nil {
		return "", err
	}

	posting := ats.Postings(postings).FindByID(id)
	if posting == nil {
		return "", fmt.Errorf("%w: %s", ErrPostingNotFound, id)
	}

	log.Debug("detail served from listing", zap.String("posting_id", id))
	return posting.Description, nil
}

// begin resolves the connector and tags ctx with a run id and run logger.
func (s *Service) begin(ctx context.Context, boardURL string) (context.Context, ats.Connector, *zap.Logger, error) {
	runID := RunID(ctx)
	if runID == "" {
		runID = NewRunID()
		ctx = WithRunID(ctx, runID)
	}

	source, _ := ats.DetectSource(boardURL)
	log := logger.ForRun(s.logger, runID, boardURL, string(source))

	opts := s.connectors
	opts.Logger = log

	conn, err := s.resolve(boardURL, opts)
	if err != nil {
		log.Warn("board rejected", zap.Error(err))
		return ctx, nil, log, err
	}

	return withLogger(ctx, log), conn, log, nil
}

func (s *Service) load(ctx context.Context, log *zap.Logger, conn ats.Connector, boardURL string) ([]ats.Posting, error) {
	if s.cache != nil {
		if postings, ok := s.cache.Get(ctx, boardURL); ok {
			log.Info("postings served from cache", zap.Int("count", len(postings)))
			return postings, nil
		}
	}

	postings, err := s.fetch(ctx, log, conn)
	if err != nil {
		return nil, err
	}
	s.store(ctx, log, boardURL, postings)

	return postings, nil
}

// store caches postings unless ctx already ended: a connector may have
// returned early with incomplete data.
func (s *Service) store(ctx context.Context, log *zap.Logger, boardURL string, postings []ats.Posting) {
	if s.cache == nil {
		return
	}
	if err := ctx.Err(); err != nil {
		log.Warn("not caching postings of an interrupted fetch", zap.Error(err))
		return
	}
	s.cache.Put(ctx, boardURL, postings)
}

func (s *Service) fetch(ctx context.Context, log *zap.Logger, conn ats.Connector) ([]ats.Posting, error) {
	postings, err := conn.FetchPostings(ctx, s.maxPostings)
	if err != nil {
		if s.recorder != nil {
			s.recorder.FetchFailed(conn.Source())
		}
		log.Error("fetch failed", zap.Error(err))
		return nil, err
	}

	if s.recorder != nil {
		s.recorder.PostingsFetched(conn.Source(), len(postings))
	}
	log.Info("postings fetched", zap.Int("count", len(postings)))

	return postings, nil
}

func timeoutOr(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return err
}
