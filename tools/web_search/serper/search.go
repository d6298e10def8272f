package serper

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/mohammad-safakhou/insight/tools/web_fetch"
	"github.com/mohammad-safakhou/insight/tools/web_search/models"
	"github.com/mohammad-safakhou/insight/utils"
)

type Search struct {
	ApiKey  string
	Fetcher *web_fetch.Fetcher
}

func (s Search) Search(ctx context.Context, q string, k int) ([]models.Result, error) {
	// https://serper.dev/ docs
	payload := map[string]any{"q": q, "num": k}
	body, _ := json.Marshal(payload)
	req, _ := http.NewRequestWithContext(ctx, "POST", "https://google.serper.dev/search", strings.NewReader(string(body)))
	req.Header.Set("X-API-KEY", s.ApiKey)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var raw map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}

	var out []models.Result
	if items, ok := raw["organic"].([]any); ok {
		for i, it := range items {
			if i >= k {
				break
			}
			m, ok := it.(map[string]any)
			if !ok {
				continue
			}
			link := utils.Str(m["link"])
			if link == "" {
				continue
			}
			r := models.Result{Title: utils.Str(m["title"]), URL: link, Content: utils.Str(m["snippet"])}
			if s.Fetcher != nil {
				if page, err := s.Fetcher.Exec(ctx, link); err == nil && page.Text != "" {
					r.Content = page.Text
					if r.Title == "" {
						r.Title = page.Title
					}
				}
			}
			out = append(out, r)
		}
	}
	return out, nil
}
