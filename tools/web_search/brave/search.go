package brave

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mohammad-safakhou/insight/tools/web_fetch"
	"github.com/mohammad-safakhou/insight/tools/web_search/models"
	"github.com/mohammad-safakhou/insight/utils"
)

type Search struct {
	ApiKey  string
	Fetcher *web_fetch.Fetcher
}

func (s Search) Search(ctx context.Context, q string, k int) ([]models.Result, error) {
	// https://api.search.brave.com/app/documentation/web-search
	url := fmt.Sprintf("https://api.search.brave.com/res/v1/web/search?q=%s&count=%d", utils.UrlQuery(q), k)
	req, _ := http.NewRequestWithContext(ctx, "GET", url, nil)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", s.ApiKey)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var raw struct {
		Web struct {
			Results []struct {
				Title   string `json:"title"`
				URL     string `json:"url"`
				Snippet string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}
	var out []models.Result
	for i, item := range raw.Web.Results {
		if i >= k {
			break
		}
		if item.URL == "" {
			continue
		}
		r := models.Result{Title: item.Title, URL: item.URL, Content: item.Snippet}
		if s.Fetcher != nil {
			if page, err := s.Fetcher.Exec(ctx, item.URL); err == nil && page.Text != "" {
				r.Content = page.Text
				if r.Title == "" {
					r.Title = page.Title
				}
			}
		}
		out = append(out, r)
	}
	return out, nil
}
