package ats

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedSource = errors.New("unsupported job board")
	ErrInvalidCompanyURL = errors.New("invalid company url")
	ErrFetchFailed       = errors.New("could not fetch jobs")
)

// UnsupportedSourceError is returned when a board URL does not belong to a known provider.
type UnsupportedSourceError struct {
	URL string
}

func (e *UnsupportedSourceError) Error() string {
	return fmt.Sprintf("unsupported job board url %q: supported providers are greenhouse, lever and workday", e.URL)
}

func (e *UnsupportedSourceError) Is(target error) bool { return target == ErrUnsupportedSource }

// InvalidCompanyURLError is returned when a provider URL cannot be decomposed
// into the identifiers its API needs.
type InvalidCompanyURLError struct {
	URL    string
	Reason string
}

func (e *InvalidCompanyURLError) Error() string {
	return fmt.Sprintf("invalid company url %q: %s", e.URL, e.Reason)
}

func (e *InvalidCompanyURLError) Is(target error) bool { return target == ErrInvalidCompanyURL }

// FetchError wraps any network or HTTP failure while talking to a provider.
type FetchError struct {
	Source Source
	Cause  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s jobs: %v", e.Source, e.Cause)
}

func (e *FetchError) Unwrap() error { return e.Cause }

func (e *FetchError) Is(target error) bool { return target == ErrFetchFailed }

func fetchFailed(source Source, err error) error {
	if err == nil {
		return nil
	}
	return &FetchError{Source: source, Cause: err}
}
