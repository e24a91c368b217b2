package ats

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

const greenhouseAPI = "https://boards-api.greenhouse.io/v1/boards"

// Greenhouse reads the public job board API of boards.greenhouse.io.
type Greenhouse struct {
	*httpClient
	slug    string
	apiBase string
}

type greenhouseJob struct {
	ID       flexibleID `json:"id"`
	Title    string     `json:"title"`
	Content  string     `json:"content"`
	URL      string     `json:"absolute_url"`
	Location struct {
		Name string `json:"name"`
	} `json:"location"`
}

type greenhouseJobs struct {
	Jobs []greenhouseJob `json:"jobs"`
}

func newGreenhouse(rawURL string, u *url.URL, base *httpClient, api string) (*Greenhouse, error) {
	segments := pathSegments(u)
	if len(segments) == 0 {
		return nil, &InvalidCompanyURLError{URL: rawURL, Reason: "missing company segment in path"}
	}

	slug := segments[0]
	// embedded boards address the company through a query parameter
	if slug == "embed" {
		slug = strings.TrimSpace(u.Query().Get("for"))
		if slug == "" {
			return nil, &InvalidCompanyURLError{URL: rawURL, Reason: "embedded board without 'for' parameter"}
		}
	}

	return &Greenhouse{
		httpClient: base,
		slug:       slug,
		apiBase:    strings.TrimRight(api, "/") + "/" + url.PathEscape(slug),
	}, nil
}

func (g *Greenhouse) Source() Source { return SourceGreenhouse }

func (g *Greenhouse) FetchPostings(ctx context.Context, maxCount int) ([]Posting, error) {
	var response greenhouseJobs
	q := url.Values{"content": []string{"true"}}
	if err := g.getJSON(ctx, g.apiBase+"/jobs", q, &response); err != nil {
		return nil, fetchFailed(SourceGreenhouse, err)
	}

	jobs := response.Jobs
	if n := limit(maxCount); len(jobs) > n {
		jobs = jobs[:n]
	}

	postings := make([]Posting, 0, len(jobs))
	for _, job := range jobs {
		postings = append(postings, Posting{
			ID:          job.ID.String(),
			Title:       job.Title,
			Location:    job.Location.Name,
			Description: CleanHTML(job.Content),
			ApplyURL:    job.URL,
			Source:      SourceGreenhouse,
		})
	}

	g.logger.Info("fetched postings", zap.String("board", g.slug), zap.Int("count", len(postings)))
	return postings, nil
}

func (g *Greenhouse) FetchDetail(ctx context.Context, id string) (string, error) {
	var job greenhouseJob
	if err := g.getJSON(ctx, g.apiBase+"/jobs/"+url.PathEscape(id), nil, &job); err != nil {
		return "", fetchFailed(SourceGreenhouse, err)
	}
	return CleanHTML(job.Content), nil
}

// flexibleID accepts both numeric and string identifiers.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexibleID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("unexpected id %s: %w", data, err)
	}
	*f = flexibleID(n.String())
	return nil
}

func (f flexibleID) String() string { return string(f) }
