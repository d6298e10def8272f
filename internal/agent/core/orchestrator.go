package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mohammad-safakhou/insight/config"
	"github.com/mohammad-safakhou/insight/internal/agent/telemetry"
	"github.com/mohammad-safakhou/insight/provider"
	"github.com/mohammad-safakhou/insight/utils"
)

const retryFeedback = "Previous search queries returned no relevant results. Generate queries from a different angle, using different keywords."

// Orchestrator drives the retrieval-refinement loop: query generation,
// per-query retrieval and extraction, the retry/continue/end decision, and
// final synthesis. Each transition is a method taking the run state by
// value and returning the updated state plus the next step; Run is the
// driver loop that applies them.
type Orchestrator struct {
	cfg       *config.Config
	logger    *log.Logger
	telemetry *telemetry.Telemetry

	llm       *llmHandler
	searcher  Searcher
	processor *Processor
}

// NewOrchestrator creates a new orchestrator instance. A missing searcher
// is a configuration error: the run never starts.
func NewOrchestrator(cfg *config.Config, llmProvider provider.Provider, searcher Searcher, logger *log.Logger, tele *telemetry.Telemetry) (*Orchestrator, error) {
	if searcher == nil {
		return nil, fmt.Errorf("no web searcher configured")
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[ORCH] ", log.LstdFlags)
	}

	llm := newLLMHandler(llmProvider, logger, tele)
	processor, err := newProcessor(llm, llmProvider.Model(), cfg.LLM, cfg.Pipeline, logger, tele)
	if err != nil {
		return nil, fmt.Errorf("failed to create processor: %w", err)
	}

	return &Orchestrator{
		cfg:       cfg,
		logger:    logger,
		telemetry: tele,
		llm:       llm,
		searcher:  searcher,
		processor: processor,
	}, nil
}

// Run executes one research run to completion. The returned state always
// carries a non-empty FinalAnswer: a model-produced answer or one of the
// fixed fallbacks.
func (o *Orchestrator) Run(ctx context.Context, query string) RunState {
	state := RunState{
		ID:            uuid.New().String(),
		OriginalQuery: query,
		StartedAt:     time.Now(),
	}
	o.logger.Printf("starting run %s for query %q", state.ID, utils.Truncate(query, 120))

	step := StepGenerateQueries
	for step != StepEnd {
		switch step {
		case StepGenerateQueries:
			state, step = o.generateQueries(ctx, state)
		case StepSearchAndAnalyze:
			state, step = o.searchAndAnalyze(ctx, state)
		case StepSynthesize:
			state, step = o.synthesize(ctx, state)
		default:
			step = StepEnd
		}
	}

	if strings.TrimSpace(state.FinalAnswer) == "" {
		state.FinalAnswer = FallbackExhausted
	}
	state.FinishedAt = time.Now()

	if o.telemetry != nil {
		outcome := "answered"
		if state.FinalAnswer == FallbackExhausted || state.FinalAnswer == FallbackNoSubstance {
			outcome = "fallback"
		}
		o.telemetry.RecordRun(outcome, state.FinishedAt.Sub(state.StartedAt))
	}

	if dir := o.cfg.Storage.File.DataDir; dir != "" {
		if path, err := SaveRunLog(dir, state); err != nil {
			o.logger.Printf("failed to save run log: %v", err)
		} else {
			o.logger.Printf("run log saved to %s", path)
		}
	}
	return state
}

// generateQueries asks the model for fresh search queries, folding in the
// feedback from the previous round. One call, no retry: a failed or empty
// response yields an empty query list, which the next state treats as a
// no-op round.
func (o *Orchestrator) generateQueries(ctx context.Context, state RunState) (RunState, Step) {
	response := o.llm.complete(ctx, "generate_queries", provider.CompletionRequest{
		Prompt:      searchQueryGeneratorPrompt(state.OriginalQuery, state.Feedback),
		Temperature: o.cfg.LLM.Temperature,
	})

	var queries []string
	for _, line := range strings.Split(response, "\n") {
		if q := strings.TrimSpace(line); q != "" {
			queries = append(queries, q)
		}
	}
	state.SearchQueries = queries
	state.RephrasingCount++
	if o.telemetry != nil {
		o.telemetry.RecordRound()
	}
	o.logger.Printf("round %d generated %d search queries", state.RephrasingCount, len(queries))
	return state, StepSearchAndAnalyze
}

// searchAndAnalyze runs retrieval and extraction for every generated query
// in order, appending validated records to the run state. A provider or
// model failure for one query skips that query, never the batch. It ends
// by applying the retry/continue/end decision.
func (o *Orchestrator) searchAndAnalyze(ctx context.Context, state RunState) (RunState, Step) {
	if len(state.SearchQueries) == 0 {
		o.logger.Printf("no search queries to process")
		state.Feedback = "failed to generate search queries"
		return o.applyDecision(state)
	}

	for i, query := range state.SearchQueries {
		o.logger.Printf("processing search query [%d/%d]: %q", i+1, len(state.SearchQueries), query)

		results, err := o.searcher.Search(ctx, query, o.cfg.Search.MaxResults)
		if o.telemetry != nil {
			o.telemetry.RecordSearch(err)
		}
		if err != nil {
			o.logger.Printf("search failed for %q, skipping: %v", query, err)
			continue
		}
		if len(results) == 0 {
			o.logger.Printf("no results for %q, skipping", query)
			continue
		}

		docs := o.processor.CompressDocuments(ctx, query, results)
		encoded, err := json.MarshalIndent(docs, "", "  ")
		if err != nil {
			o.logger.Printf("failed to encode documents for %q, skipping: %v", query, err)
			continue
		}

		response := o.llm.complete(ctx, "extract", provider.CompletionRequest{
			Prompt:      perQueryAnalyzerPrompt(state.OriginalQuery, string(encoded)),
			Temperature: o.cfg.LLM.Temperature,
			JSONMode:    true,
		})

		raws := ExtractRecords(response, o.logger)
		if len(raws) == 0 {
			o.logger.Printf("no records extracted for %q, skipping", query)
			continue
		}
		records := ValidateRecords(raws, query, o.logger)
		state.QAResults = append(state.QAResults, records...)
		o.logger.Printf("collected %d records for %q, total %d", len(records), query, len(state.QAResults))
	}

	return o.applyDecision(state)
}

// decideNext picks the next move from the accumulated records: continue to
// synthesis when any meaningful record exists, end when the retry budget
// is spent, retry otherwise. Pure; exercised directly by tests.
func decideNext(state RunState, maxRetries int) Decision {
	for _, rec := range state.QAResults {
		if rec.Meaningful() {
			return DecisionContinue
		}
	}
	if state.RephrasingCount >= maxRetries {
		return DecisionEnd
	}
	return DecisionRetry
}

func (o *Orchestrator) applyDecision(state RunState) (RunState, Step) {
	switch decideNext(state, o.cfg.Pipeline.MaxRetries) {
	case DecisionContinue:
		o.logger.Printf("meaningful records found, moving to synthesis")
		return state, StepSynthesize
	case DecisionEnd:
		o.logger.Printf("retry budget exhausted after %d rounds", state.RephrasingCount)
		state.FinalAnswer = FallbackExhausted
		return state, StepEnd
	default:
		o.logger.Printf("no meaningful records yet, retrying (attempt %d)", state.RephrasingCount+1)
		state.Feedback = retryFeedback
		return state, StepGenerateQueries
	}
}

// synthesize formats the accumulated evidence, reduces it to the context
// window if needed, and asks the model for the final answer.
func (o *Orchestrator) synthesize(ctx context.Context, state RunState) (RunState, Step) {
	evidence := formatEvidence(state.QAResults)
	if strings.TrimSpace(evidence) == "" {
		o.logger.Printf("all collected records were empty or ungrounded")
		state.FinalAnswer = FallbackNoSubstance
		return state, StepEnd
	}

	prompt := o.processor.PrepareForSynthesis(ctx, state.OriginalQuery, evidence)
	state.FinalAnswer = o.llm.complete(ctx, "synthesize", provider.CompletionRequest{
		Prompt:      prompt,
		Temperature: o.cfg.LLM.Temperature,
		MaxTokens:   o.cfg.LLM.MaxAnswerTokens,
	})
	return state, StepEnd
}

// formatEvidence renders one section per (record, data source) pair in
// accumulation order. Records without a grounded claim contribute nothing.
func formatEvidence(records []ExtractionRecord) string {
	var b strings.Builder
	counter := 1
	for _, rec := range records {
		if !rec.Meaningful() {
			continue
		}
		for _, ds := range rec.Data {
			fmt.Fprintf(&b, "--- Source %d (search query: %q) ---\n", counter, rec.QueryContext)
			fmt.Fprintf(&b, "Title: %s\n", ds.Title)
			fmt.Fprintf(&b, "URL: %s\n", ds.URL)
			fmt.Fprintf(&b, "Answer based on this source: %s\n", rec.Answer)
			fmt.Fprintf(&b, "Fragment the answer is based on: %s\n\n", ds.Fragment)
			counter++
		}
	}
	return b.String()
}
