package ats

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.uber.org/zap"
)

const contentType = "application/json"

// StatusError is returned for non-2xx provider responses.
type StatusError struct {
	Code   int
	Status string
	URL    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("bad status from %s: %s", e.URL, e.Status)
}

// DecodeError is returned when a provider response is not the expected JSON.
type DecodeError struct {
	URL   string
	Cause error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode response from %s: %v", e.URL, e.Cause)
}

func (e *DecodeError) Unwrap() error { return e.Cause }

type httpClient struct {
	source    Source
	client    *http.Client
	userAgent string
	logger    *zap.Logger
}

func newHTTPClient(source Source, opts Options) *httpClient {
	return &httpClient{
		source:    source,
		client:    opts.HTTPClient,
		userAgent: opts.UserAgent,
		logger:    opts.Logger.With(zap.String("source", source.String())),
	}
}

func (c *httpClient) getJSON(ctx context.Context, url string, q url.Values, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	if q != nil {
		req.URL.RawQuery = q.Encode()
	}

	return c.do(req, target)
}

func (c *httpClient) postJSON(ctx context.Context, url string, payload, target any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)

	return c.do(req, target)
}

func (c *httpClient) do(req *http.Request, target any) error {
	req.Header.Set("Accept", contentType)
	req.Header.Set("User-Agent", c.userAgent)

	c.logger.Debug("make request", zap.String("method", req.Method), zap.String("url", req.URL.String()))

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, resp.Body)
		return &StatusError{Code: resp.StatusCode, Status: resp.Status, URL: req.URL.String()}
	}

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return err
		}
		defer gz.Close()
		reader = gz
	}

	if target == nil {
		return nil
	}

	if err := json.NewDecoder(reader).Decode(target); err != nil {
		return &DecodeError{URL: req.URL.String(), Cause: err}
	}

	return nil
}
