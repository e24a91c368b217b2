package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/spigell/jobfit/internal/ats"
	"github.com/spigell/jobfit/internal/matching"
)

var (
	ErrInvalidResponse  = errors.New("invalid structured response")
	ErrExtractionFailed = errors.New("extraction failed")
)

// Extractor turns free text into structured matching inputs.
type Extractor interface {
	ExtractProfile(ctx context.Context, resumeText string) (matching.ResumeProfile, error)
	ExtractRequirements(ctx context.Context, posting ats.Posting) (matching.JobRequirements, error)
}

// InvalidResponseError reports model output that does not fit the target shape.
type InvalidResponseError struct {
	Target string
	Raw    string
	Cause  error
}

func (e *InvalidResponseError) Error() string {
	return fmt.Sprintf("invalid %s response: %v", e.Target, e.Cause)
}

func (e *InvalidResponseError) Unwrap() error { return e.Cause }

func (e *InvalidResponseError) Is(target error) bool { return target == ErrInvalidResponse }

// ExtractionError wraps a failed requirement extraction for one posting.
type ExtractionError struct {
	PostingID string
	Cause     error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract requirements for posting %s: %v", e.PostingID, e.Cause)
}

func (e *ExtractionError) Unwrap() error { return e.Cause }

func (e *ExtractionError) Is(target error) bool { return target == ErrExtractionFailed }
