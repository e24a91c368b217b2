package ats

import (
	"context"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

const (
	leverAPI = "https://api.lever.co/v0/postings"

	descriptionSeparator = "\n\n"
)

// Lever reads the public postings API of jobs.lever.co.
type Lever struct {
	*httpClient
	slug    string
	apiBase string
}

type leverPosting struct {
	ID               string `json:"id"`
	Text             string `json:"text"`
	DescriptionPlain string `json:"descriptionPlain"`
	AdditionalPlain  string `json:"additionalPlain"`
	WorkplaceType    string `json:"workplaceType"`
	ApplyURL         string `json:"applyUrl"`
	HostedURL        string `json:"hostedUrl"`
	Categories       struct {
		Location string `json:"location"`
	} `json:"categories"`
	Lists []struct {
		Text    string `json:"text"`
		Content string `json:"content"`
	} `json:"lists"`
}

func newLever(rawURL string, u *url.URL, base *httpClient, api string) (*Lever, error) {
	segments := pathSegments(u)
	if len(segments) == 0 {
		return nil, &InvalidCompanyURLError{URL: rawURL, Reason: "missing company segment in path"}
	}

	return &Lever{
		httpClient: base,
		slug:       segments[0],
		apiBase:    strings.TrimRight(api, "/") + "/" + url.PathEscape(segments[0]),
	}, nil
}

func (l *Lever) Source() Source { return SourceLever }

func (l *Lever) FetchPostings(ctx context.Context, maxCount int) ([]Posting, error) {
	var response []leverPosting
	if err := l.getJSON(ctx, l.apiBase, nil, &response); err != nil {
		return nil, fetchFailed(SourceLever, err)
	}

	if n := limit(maxCount); len(response) > n {
		response = response[:n]
	}

	postings := make([]Posting, 0, len(response))
	for _, p := range response {
		postings = append(postings, p.toPosting())
	}

	l.logger.Info("fetched postings", zap.String("board", l.slug), zap.Int("count", len(postings)))
	return postings, nil
}

func (l *Lever) FetchDetail(ctx context.Context, id string) (string, error) {
	var p leverPosting
	if err := l.getJSON(ctx, l.apiBase+"/"+url.PathEscape(id), nil, &p); err != nil {
		return "", fetchFailed(SourceLever, err)
	}
	return p.description(), nil
}

func (p leverPosting) toPosting() Posting {
	location := p.WorkplaceType
	if p.Categories.Location != "" {
		location = p.Categories.Location
	}

	applyURL := p.ApplyURL
	if applyURL == "" {
		applyURL = p.HostedURL
	}

	return Posting{
		ID:          p.ID,
		Title:       p.Text,
		Location:    location,
		Description: p.description(),
		ApplyURL:    applyURL,
		Source:      SourceLever,
	}
}

// description joins the plain description, every list section and the
// additional notes, in that order.
func (p leverPosting) description() string {
	var parts []string
	if p.DescriptionPlain != "" {
		parts = append(parts, p.DescriptionPlain)
	}
	for _, item := range p.Lists {
		if item.Text != "" {
			parts = append(parts, item.Text)
		}
		if content := CleanHTML(item.Content); content != "" {
			parts = append(parts, content)
		}
	}
	if p.AdditionalPlain != "" {
		parts = append(parts, p.AdditionalPlain)
	}
	return strings.Join(parts, descriptionSeparator)
}
