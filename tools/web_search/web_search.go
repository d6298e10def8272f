package web_search

import (
	"context"

	"github.com/mohammad-safakhou/insight/tools/web_fetch"
	"github.com/mohammad-safakhou/insight/tools/web_search/brave"
	"github.com/mohammad-safakhou/insight/tools/web_search/models"
	"github.com/mohammad-safakhou/insight/tools/web_search/serper"
)

// Searcher runs one query against one provider and returns documents with
// page content already attached.
type Searcher interface {
	Search(ctx context.Context, q string, k int) ([]models.Result, error)
}

type Provider string

const (
	SerperProvider Provider = "serper"
	BraveProvider  Provider = "brave"
)

type Error struct{ Msg string }

func (e *Error) Error() string { return e.Msg }

var ErrUnsupportedProvider = &Error{"unsupported provider"}

func NewSearcher(provider Provider, apiKey string, fetcher *web_fetch.Fetcher) (Searcher, error) {
	switch provider {
	case SerperProvider:
		return serper.Search{ApiKey: apiKey, Fetcher: fetcher}, nil
	case BraveProvider:
		return brave.Search{ApiKey: apiKey, Fetcher: fetcher}, nil
	default:
		return nil, ErrUnsupportedProvider
	}
}
