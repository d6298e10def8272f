package models

// Result is one retrieved document: the search hit plus the page text.
// URL is the identity used for deduplication across providers.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}
