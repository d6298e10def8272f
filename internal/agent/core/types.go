package core

import (
	"context"
	"strings"
	"time"

	"github.com/mohammad-safakhou/insight/tools/web_search/models"
)

// DataSource is one citation extracted by the model, referencing a single
// retrieved document.
type DataSource struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	Fragment string `json:"fragment"`
}

// ExtractionRecord is one model judgment over one query's retrieved set.
type ExtractionRecord struct {
	Answer       string       `json:"answer"`
	Data         []DataSource `json:"data"`
	QueryContext string       `json:"original_search_query_context"`
}

// Meaningful reports whether the record carries a grounded claim: a
// non-empty answer and at least one citation with a non-empty URL.
func (r ExtractionRecord) Meaningful() bool {
	if strings.TrimSpace(r.Answer) == "" {
		return false
	}
	for _, ds := range r.Data {
		if strings.TrimSpace(ds.URL) != "" {
			return true
		}
	}
	return false
}

// Step identifies a state of the research loop.
type Step string

const (
	StepGenerateQueries  Step = "GENERATE_QUERIES"
	StepSearchAndAnalyze Step = "SEARCH_AND_ANALYZE"
	StepSynthesize       Step = "SYNTHESIZE"
	StepEnd              Step = "END"
)

// Decision is the outcome of the post-analysis check.
type Decision string

const (
	DecisionRetry    Decision = "RETRY"
	DecisionContinue Decision = "CONTINUE"
	DecisionEnd      Decision = "END"
)

// RunState is the full state of one research run. It has a single owner
// (the orchestrator driver loop) and is only changed by state transitions.
type RunState struct {
	ID              string             `json:"id"`
	OriginalQuery   string             `json:"original_query"`
	SearchQueries   []string           `json:"search_queries"`
	QAResults       []ExtractionRecord `json:"qa_results"` // append-only across rounds
	Feedback        string             `json:"feedback"`
	RephrasingCount int                `json:"rephrasing_count"`
	FinalAnswer     string             `json:"final_answer"`
	StartedAt       time.Time          `json:"started_at"`
	FinishedAt      time.Time          `json:"finished_at"`
}

// Fixed user-facing fallback answers. A run always terminates with a
// non-empty FinalAnswer: a model answer or one of these.
const (
	// FallbackExhausted is assigned when the retry budget runs out with no
	// usable evidence, or when synthesis itself produced nothing.
	FallbackExhausted = "Unfortunately, no relevant information could be found and no answer could be generated after several attempts."

	// FallbackNoSubstance is assigned when the collected records turn out
	// to be empty at synthesis time.
	FallbackNoSubstance = "Could not produce a substantive answer from the collected sources."
)

// Searcher is the retrieval dependency of the orchestrator; the combined
// multi-provider searcher satisfies it.
type Searcher interface {
	Search(ctx context.Context, q string, k int) ([]models.Result, error)
}
