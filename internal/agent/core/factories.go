package core

import (
	"context"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/mohammad-safakhou/insight/config"
	"github.com/mohammad-safakhou/insight/tools/web_fetch"
	"github.com/mohammad-safakhou/insight/tools/web_search"
	"github.com/mohammad-safakhou/insight/tools/web_search/cache"
)

// NewSearcherFromConfig assembles the combined multi-provider searcher:
// one adapter per configured API key, each sharing a page fetcher, each
// optionally wrapped in the redis result cache. Returning an error here is
// the fatal no-provider configuration case; it is raised once at
// construction, never per call.
func NewSearcherFromConfig(ctx context.Context, cfg *config.Config, logger *log.Logger) (Searcher, error) {
	if logger == nil {
		logger = log.New(log.Writer(), "[SEARCH] ", log.LstdFlags)
	}

	fetcher := web_fetch.NewFetcher(cfg.Search.Timeout, cfg.Search.FetchMaxChars)

	var rdb *redis.Client
	if cfg.Storage.Redis.Enabled() {
		client, err := cache.Conn(ctx, cfg.Storage.Redis.Host, cfg.Storage.Redis.Port,
			cfg.Storage.Redis.Password, cfg.Storage.Redis.DB, cfg.Storage.Redis.Timeout)
		if err != nil {
			logger.Printf("redis unavailable, search cache disabled: %v", err)
		} else {
			rdb = client
		}
	}

	var searchers []web_search.Searcher
	for _, p := range []struct {
		provider web_search.Provider
		apiKey   string
	}{
		{web_search.SerperProvider, cfg.Search.SerperAPIKey},
		{web_search.BraveProvider, cfg.Search.BraveAPIKey},
	} {
		if p.apiKey == "" {
			logger.Printf("%s provider not configured", p.provider)
			continue
		}
		s, err := web_search.NewSearcher(p.provider, p.apiKey, fetcher)
		if err != nil {
			return nil, err
		}
		if rdb != nil {
			s = cache.New(s, string(p.provider), rdb, cfg.Storage.Redis.TTL, logger)
		}
		searchers = append(searchers, s)
		logger.Printf("%s provider activated", p.provider)
	}

	return web_search.NewCombined(searchers, logger)
}
