package pipeline

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/jobfit/internal/ai"
	"github.com/spigell/jobfit/internal/ats"
	"github.com/spigell/jobfit/internal/matching"
)

const (
	DefaultBatchSize = 10
	DefaultTop       = 10
)

// RequirementExtractor is the part of ai.Extractor the matcher needs.
type RequirementExtractor interface {
	ExtractRequirements(ctx context.Context, posting ats.Posting) (matching.JobRequirements, error)
}

// ExtractionRecorder is notified of each extraction replaced by defaults.
type ExtractionRecorder interface {
	ExtractionFailed()
}

type MatcherOptions struct {
	BatchSize int
	Top       int
	Logger    *zap.Logger
	Recorder  ExtractionRecorder
}

// Matcher extracts requirements for postings in bounded concurrent batches,
// then scores and ranks them.
type Matcher struct {
	extractor RequirementExtractor
	batchSize int
	top       int
	logger    *zap.Logger
	recorder  ExtractionRecorder
}

func NewMatcher(extractor RequirementExtractor, opts MatcherOptions) *Matcher {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Top <= 0 {
		opts.Top = DefaultTop
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Matcher{
		extractor: extractor,
		batchSize: opts.BatchSize,
		top:       opts.Top,
		logger:    opts.Logger,
		recorder:  opts.Recorder,
	}
}

// Match returns the best postings for the profile, best first. Extraction
// failures never fail the call: affected postings are scored against
// default requirements.
func (m *Matcher) Match(ctx context.Context, profile matching.ResumeProfile, desired string, postings []ats.Posting) []matching.MatchResult {
	log := loggerFrom(ctx, m.logger)
	scorer := matching.NewScorer(profile, desired)
	results := make([]matching.MatchResult, 0, len(postings))

	for start := 0; start < len(postings); start += m.batchSize {
		end := min(start+m.batchSize, len(postings))
		batch := postings[start:end]

		requirements := m.extractBatch(ctx, log, batch)
		for i, posting := range batch {
			results = append(results, scorer.Evaluate(posting, requirements[i]))
		}

		log.Debug("batch scored", zap.Int("from", start), zap.Int("to", end))
	}

	// stable sort keeps fetch order between equal scores
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > m.top {
		results = results[:m.top]
	}

	log.Info("ranked postings",
		zap.Int("initial", len(postings)),
		zap.Int("left", len(results)),
		zap.String("desired_family", string(scorer.DesiredFamily())),
	)

	return results
}

// extractBatch runs one extraction per posting concurrently. result[i]
// always belongs to batch[i].
func (m *Matcher) extractBatch(ctx context.Context, log *zap.Logger, batch []ats.Posting) []matching.JobRequirements {
	requirements := make([]matching.JobRequirements, len(batch))

	var g errgroup.Group
	for i, posting := range batch {
		g.Go(func() error {
			requirements[i] = m.requirements(ctx, log, posting)
			return nil
		})
	}
	_ = g.Wait()

	return requirements
}

func (m *Matcher) requirements(ctx context.Context, log *zap.Logger, posting ats.Posting) matching.JobRequirements {
	if strings.TrimSpace(posting.Description) == "" {
		return matching.DefaultRequirements()
	}

	req, err := m.extractor.ExtractRequirements(ctx, posting)
	if err != nil {
		err = &ai.ExtractionError{PostingID: posting.ID, Cause: err}
		log.Warn("using default requirements",
			zap.String("posting_id", posting.ID),
			zap.String("title", posting.Title),
			zap.Error(err),
		)
		if m.recorder != nil {
			m.recorder.ExtractionFailed()
		}
		return matching.DefaultRequirements()
	}

	return req
}
