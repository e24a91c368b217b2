package ats

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

const (
	workdayPageSize     = 20
	workdayEnrichLimit  = 50
	workdayDefaultWD    = "wd5"
	workdayDefaultSite  = "External"
	workdayDomainSuffix = "myworkdayjobs.com"
)

var (
	workdayInstance = regexp.MustCompile(`^wd\d+$`)
	workdayLocales  = map[string]struct{}{
		"en-US": {}, "en": {}, "de": {}, "fr": {}, "es": {}, "ja": {}, "zh": {},
	}
)

// Workday reads the CXS search API behind *.myworkdayjobs.com career sites.
// Search results only carry a teaser, so the first postings are enriched
// from their detail endpoint.
type Workday struct {
	*httpClient
	company  string
	site     string
	instance string
	origin   string
	apiBase  string
	recorder Recorder
}

type workdaySearch struct {
	AppliedFacets map[string]any `json:"appliedFacets"`
	Limit         int            `json:"limit"`
	Offset        int            `json:"offset"`
	SearchText    string         `json:"searchText"`
}

type workdayPage struct {
	Total       int          `json:"total"`
	JobPostings []workdayJob `json:"jobPostings"`
}

type workdayJob struct {
	Title             string   `json:"title"`
	ExternalPath      string   `json:"externalPath"`
	LocationsText     string   `json:"locationsText"`
	BulletFields      []string `json:"bulletFields"`
	DescriptionTeaser string   `json:"descriptionTeaser"`
}

type workdayDetail struct {
	JobPostingInfo struct {
		Title          string `json:"title"`
		Location       string `json:"location"`
		JobDescription string `json:"jobDescription"`
	} `json:"jobPostingInfo"`
}

func newWorkday(rawURL string, u *url.URL, base *httpClient, origin string, recorder Recorder) (*Workday, error) {
	host := strings.ToLower(u.Hostname())
	labels := strings.Split(host, ".")
	if len(labels) < 3 || labels[0] == "" || host == workdayDomainSuffix {
		return nil, &InvalidCompanyURLError{URL: rawURL, Reason: "missing company subdomain"}
	}

	company := labels[0]
	instance := workdayDefaultWD
	for _, label := range labels {
		if workdayInstance.MatchString(label) {
			instance = label
			break
		}
	}

	site := workdayDefaultSite
	for _, segment := range pathSegments(u) {
		if _, locale := workdayLocales[segment]; !locale {
			site = segment
			break
		}
	}

	if origin == "" {
		origin = fmt.Sprintf("https://%s.%s.%s", company, instance, workdayDomainSuffix)
	}
	origin = strings.TrimRight(origin, "/")

	return &Workday{
		httpClient: base,
		company:    company,
		site:       site,
		instance:   instance,
		origin:     origin,
		apiBase:    fmt.Sprintf("%s/wday/cxs/%s/%s", origin, url.PathEscape(company), url.PathEscape(site)),
		recorder:   recorder,
	}, nil
}

func (w *Workday) Source() Source { return SourceWorkday }

func (w *Workday) FetchPostings(ctx context.Context, maxCount int) ([]Posting, error) {
	n := limit(maxCount)
	postings := make([]Posting, 0, workdayPageSize)
	paths := make([]string, 0, workdayPageSize)

	offset, total := 0, 0
	for len(postings) < n {
		var page workdayPage
		req := workdaySearch{AppliedFacets: map[string]any{}, Limit: workdayPageSize, Offset: offset}
		if err := w.postJSON(ctx, w.apiBase+"/jobs", req, &page); err != nil {
			return nil, fetchFailed(SourceWorkday, err)
		}

		if len(page.JobPostings) == 0 {
			break
		}

		for _, job := range page.JobPostings {
			if len(postings) >= n {
				break
			}
			postings = append(postings, w.toPosting(job, len(postings)))
			paths = append(paths, job.ExternalPath)
		}

		offset += workdayPageSize

		// later pages may report a zero total
		if page.Total > total {
			total = page.Total
		}
		if offset >= total {
			break
		}
	}

	enriched, err := w.enrichAll(ctx, postings, paths)
	if err != nil {
		// a partially enriched list must not look like a complete fetch
		return nil, fetchFailed(SourceWorkday, err)
	}

	w.logger.Info("fetched postings",
		zap.String("board", w.company+"/"+w.site),
		zap.Int("count", len(postings)),
		zap.Int("enriched", enriched),
	)

	return postings, nil
}

// FetchDetail is a no-op: descriptions are enriched while listing.
func (w *Workday) FetchDetail(context.Context, string) (string, error) {
	return "", nil
}

func (w *Workday) toPosting(job workdayJob, index int) Posting {
	firstBullet := ""
	for _, field := range job.BulletFields {
		if field = strings.TrimSpace(field); field != "" {
			firstBullet = field
			break
		}
	}

	id := firstBullet
	if id == "" {
		id = job.ExternalPath
	}
	if id == "" {
		id = strconv.Itoa(index)
	}

	location := job.LocationsText
	if location == "" {
		location = firstBullet
	}

	return Posting{
		ID:          id,
		Title:       job.Title,
		Location:    location,
		Description: job.DescriptionTeaser,
		ApplyURL:    w.origin + job.ExternalPath,
		Source:      SourceWorkday,
	}
}

// enrichAll replaces teaser fields of the first postings in place and returns
// how many were enriched. Failed items keep their teaser values. It returns
// ctx.Err() when the context ends before enrichment is done.
func (w *Workday) enrichAll(ctx context.Context, postings []Posting, paths []string) (int, error) {
	enriched := 0
	for i := 0; i < len(postings) && i < workdayEnrichLimit; i++ {
		if err := ctx.Err(); err != nil {
			w.logger.Debug("enrichment interrupted", zap.Int("remaining", len(postings)-i), zap.Error(err))
			return enriched, err
		}
		if paths[i] == "" {
			continue
		}

		result := w.enrich(ctx, postings[i], paths[i])
		if result.err != nil {
			w.logger.Debug("keeping teaser for posting",
				zap.String("posting_id", postings[i].ID),
				zap.String("reason", result.reason()),
				zap.Error(result.err),
			)
			if w.recorder != nil {
				w.recorder.EnrichmentFailed(SourceWorkday)
			}
			continue
		}

		postings[i] = result.posting
		enriched++
	}
	return enriched, ctx.Err()
}

type enrichment struct {
	posting Posting
	err     error
}

func (e enrichment) reason() string {
	var (
		status *StatusError
		decode *DecodeError
	)
	switch {
	case errors.As(e.err, &status):
		return "bad status " + strconv.Itoa(status.Code)
	case errors.As(e.err, &decode):
		return "undecodable detail"
	default:
		return "request failed"
	}
}

func (w *Workday) enrich(ctx context.Context, p Posting, path string) enrichment {
	var detail workdayDetail
	if err := w.getJSON(ctx, w.apiBase+path, nil, &detail); err != nil {
		return enrichment{posting: p, err: err}
	}

	info := detail.JobPostingInfo
	if info.Title != "" {
		p.Title = info.Title
	}
	if info.Location != "" {
		p.Location = info.Location
	}
	if description := CleanHTML(info.JobDescription); description != "" {
		p.Description = description
	}
	return enrichment{posting: p}
}
