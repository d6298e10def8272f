package web_search

import (
	"context"
	"log"

	"github.com/mohammad-safakhou/insight/tools/web_search/models"
)

// ErrNoSearchers is returned at construction when no provider is configured.
var ErrNoSearchers = &Error{"no web search provider configured"}

// Combined fans one query out to every configured provider, merges the
// result lists in provider order and deduplicates by exact URL, first
// occurrence wins. A failing provider contributes nothing; it never aborts
// the aggregate call.
type Combined struct {
	searchers []Searcher
	logger    *log.Logger
}

func NewCombined(searchers []Searcher, logger *log.Logger) (*Combined, error) {
	if len(searchers) == 0 {
		return nil, ErrNoSearchers
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[SEARCH] ", log.LstdFlags)
	}
	return &Combined{searchers: searchers, logger: logger}, nil
}

func (c *Combined) Search(ctx context.Context, q string, k int) ([]models.Result, error) {
	seen := make(map[string]struct{})
	var all []models.Result

	for _, s := range c.searchers {
		results, err := s.Search(ctx, q, k)
		if err != nil {
			c.logger.Printf("provider %T failed for %q: %v", s, q, err)
			continue
		}
		for _, r := range results {
			if r.URL == "" {
				continue
			}
			if _, ok := seen[r.URL]; ok {
				continue
			}
			seen[r.URL] = struct{}{}
			all = append(all, r)
		}
	}

	c.logger.Printf("combined search for %q returned %d unique results", q, len(all))
	return all, nil
}
