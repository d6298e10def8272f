// Package web_fetch: plain HTTP fetch + readability extraction.
package web_fetch

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

type Result struct {
	URL    string `json:"url"`
	Title  string `json:"title"`
	Text   string `json:"text"`
	Status int    `json:"status"`
}

// Fetcher downloads a page and extracts its main text content.
// Construct once; call Exec per URL.
type Fetcher struct {
	UserAgent string
	MaxChars  int

	httpClient *http.Client
}

// NewFetcher builds a fetcher with a per-request timeout and a text clamp.
func NewFetcher(timeout time.Duration, maxChars int) *Fetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if maxChars <= 0 {
		maxChars = 20000
	}
	return &Fetcher{
		UserAgent:  defaultUserAgent,
		MaxChars:   maxChars,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Exec fetches link and returns the readable title and text.
// Parse failures return status 200 with empty text; network failures return
// a synthetic 599 and no hard error, so one bad page never sinks a batch.
func (f *Fetcher) Exec(ctx context.Context, link string) (Result, error) {
	if strings.TrimSpace(link) == "" {
		return Result{}, errors.New("invalid url")
	}

	req, err := http.NewRequestWithContext(ctx, "GET", link, nil)
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("User-Agent", f.UserAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return Result{URL: link, Status: 599}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{URL: link, Status: resp.StatusCode}, nil
	}

	article, err := readability.FromReader(resp.Body, mustParseURL(link))
	if err != nil {
		return Result{URL: link, Status: resp.StatusCode}, nil
	}
	text := strings.TrimSpace(article.TextContent)
	if len(text) > f.MaxChars {
		text = text[:f.MaxChars]
	}
	return Result{
		URL:    link,
		Title:  strings.TrimSpace(article.Title),
		Text:   text,
		Status: resp.StatusCode,
	}, nil
}

func mustParseURL(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		return &url.URL{}
	}
	return u
}
