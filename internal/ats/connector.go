package ats

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultMaxPostings bounds a single board fetch when the caller passes no limit.
	DefaultMaxPostings = 200

	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "spigell/jobfit"
)

// Connector fetches postings from one provider board.
type Connector interface {
	Source() Source
	// FetchPostings returns at most maxCount postings in provider order.
	FetchPostings(ctx context.Context, maxCount int) ([]Posting, error)
	// FetchDetail returns the plain-text description of a single posting.
	FetchDetail(ctx context.Context, id string) (string, error)
}

// Recorder receives connector events that are not surfaced as errors.
type Recorder interface {
	EnrichmentFailed(source Source)
}

// Options tune connectors built by Resolve. Zero values are replaced by defaults.
type Options struct {
	HTTPClient *http.Client
	Logger     *zap.Logger
	UserAgent  string
	Recorder   Recorder

	// API base overrides. Workday's override replaces the scheme and host of the board.
	GreenhouseAPI string
	LeverAPI      string
	WorkdayAPI    string
}

func (o Options) withDefaults() Options {
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: defaultTimeout}
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if strings.TrimSpace(o.UserAgent) == "" {
		o.UserAgent = defaultUserAgent
	}
	if o.GreenhouseAPI == "" {
		o.GreenhouseAPI = greenhouseAPI
	}
	if o.LeverAPI == "" {
		o.LeverAPI = leverAPI
	}
	return o
}

type hostRule struct {
	source Source
	match  func(host string) bool
}

// Order matters: the first matching rule wins.
var hostRules = []hostRule{
	{source: SourceGreenhouse, match: func(h string) bool { return strings.Contains(h, "greenhouse.io") }},
	{source: SourceLever, match: func(h string) bool { return strings.Contains(h, "lever.co") }},
	{source: SourceWorkday, match: func(h string) bool { return strings.HasSuffix(h, "myworkdayjobs.com") }},
}

// DetectSource reports which provider hosts the given board URL.
func DetectSource(rawURL string) (Source, bool) {
	u, err := parseBoardURL(rawURL)
	if err != nil {
		return "", false
	}
	return detect(u)
}

// IsSupported reports whether Resolve would pick a connector for the URL.
// Path problems are not checked here.
func IsSupported(rawURL string) bool {
	_, ok := DetectSource(rawURL)
	return ok
}

// Resolve returns the connector for the board URL. It fails with
// UnsupportedSourceError for unknown hosts and InvalidCompanyURLError when the
// provider identifiers cannot be extracted. No network calls are made.
func Resolve(rawURL string, opts Options) (Connector, error) {
	u, err := parseBoardURL(rawURL)
	if err != nil {
		return nil, &UnsupportedSourceError{URL: rawURL}
	}

	source, ok := detect(u)
	if !ok {
		return nil, &UnsupportedSourceError{URL: rawURL}
	}

	opts = opts.withDefaults()
	base := newHTTPClient(source, opts)

	switch source {
	case SourceGreenhouse:
		return newGreenhouse(rawURL, u, base, opts.GreenhouseAPI)
	case SourceLever:
		return newLever(rawURL, u, base, opts.LeverAPI)
	case SourceWorkday:
		return newWorkday(rawURL, u, base, opts.WorkdayAPI, opts.Recorder)
	default:
		return nil, &UnsupportedSourceError{URL: rawURL}
	}
}

func detect(u *url.URL) (Source, bool) {
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", false
	}
	for _, rule := range hostRules {
		if rule.match(host) {
			return rule.source, true
		}
	}
	return "", false
}

// parseBoardURL accepts URLs without a scheme by assuming https.
func parseBoardURL(rawURL string) (*url.URL, error) {
	raw := strings.TrimSpace(rawURL)
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	return url.Parse(raw)
}

func pathSegments(u *url.URL) []string {
	var segments []string
	for _, part := range strings.Split(u.Path, "/") {
		if part = strings.TrimSpace(part); part != "" {
			segments = append(segments, part)
		}
	}
	return segments
}

func limit(maxCount int) int {
	if maxCount <= 0 {
		return DefaultMaxPostings
	}
	return maxCount
}
