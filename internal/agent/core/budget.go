package core

import (
	"context"
	"log"
	"strings"

	tiktoken "github.com/pkoukk/tiktoken-go"

	"github.com/mohammad-safakhou/insight/config"
	"github.com/mohammad-safakhou/insight/internal/agent/telemetry"
	"github.com/mohammad-safakhou/insight/provider"
	"github.com/mohammad-safakhou/insight/tools/web_search/models"
)

const chunkSeparator = "\n\n---\n\n"

// Processor keeps model inputs inside the context window. It compresses
// oversized documents before extraction and decides between a single-shot
// synthesis prompt and a map-reduce reduction of the evidence.
type Processor struct {
	llm            *llmHandler
	encoding       *tiktoken.Tiktoken
	contextWindow  int
	reservedTokens int // held back for the model's answer
	chunkTokens    int
	summaryTokens  int
	docThreshold   int
	logger         *log.Logger
	telemetry      *telemetry.Telemetry
}

func newProcessor(llm *llmHandler, model string, llmCfg config.LLMConfig, pipeCfg config.PipelineConfig, logger *log.Logger, tele *telemetry.Telemetry) (*Processor, error) {
	if logger == nil {
		logger = log.New(log.Writer(), "[BUDGET] ", log.LstdFlags)
	}
	encoding, err := tiktoken.EncodingForModel(model)
	if err != nil {
		logger.Printf("no tokenizer for model %q, falling back to cl100k_base", model)
		encoding, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, err
		}
	}
	return &Processor{
		llm:            llm,
		encoding:       encoding,
		contextWindow:  llmCfg.ContextWindow,
		reservedTokens: llmCfg.MaxAnswerTokens,
		chunkTokens:    pipeCfg.ChunkTokens,
		summaryTokens:  pipeCfg.SummaryTokens,
		docThreshold:   pipeCfg.ContentTokenThreshold,
		logger:         logger,
		telemetry:      tele,
	}, nil
}

// EstimateTokens returns the token count of text under the model's encoding.
func (p *Processor) EstimateTokens(text string) int {
	return len(p.encoding.Encode(text, nil, nil))
}

// Fits reports whether variable text plus the rendered-empty template fit
// the context window with the answer reservation held back.
func (p *Processor) Fits(emptyTemplate, text string) bool {
	return p.EstimateTokens(text)+p.EstimateTokens(emptyTemplate) < p.contextWindow-p.reservedTokens
}

// createChunks splits text into contiguous token-bounded chunks. Chunk
// boundaries ignore document structure; the budget is fixed.
func (p *Processor) createChunks(text string) []string {
	tokens := p.encoding.Encode(text, nil, nil)
	var chunks []string
	for start := 0; start < len(tokens); start += p.chunkTokens {
		end := start + p.chunkTokens
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, p.encoding.Decode(tokens[start:end]))
	}
	return chunks
}

// CompressDocuments replaces the content of every document above the
// per-document token threshold with a query-steered summary. Documents at
// or below the threshold pass through unchanged. A failed compression call
// contributes an empty string; it never aborts the batch.
func (p *Processor) CompressDocuments(ctx context.Context, query string, docs []models.Result) []models.Result {
	out := make([]models.Result, 0, len(docs))
	for _, doc := range docs {
		n := p.EstimateTokens(doc.Content)
		if n <= p.docThreshold {
			out = append(out, doc)
			continue
		}
		p.logger.Printf("document %q is too large (%d tokens), compressing", doc.Title, n)
		doc.Content = p.llm.complete(ctx, "compress", provider.CompletionRequest{
			Prompt:      contentCompressionPrompt(query, doc.Content),
			Temperature: 0,
			MaxTokens:   p.summaryTokens,
		})
		if p.telemetry != nil {
			p.telemetry.RecordCompression()
		}
		out = append(out, doc)
	}
	return out
}

// PrepareForSynthesis renders the final synthesis prompt. When the evidence
// fits the context window it is passed through unchanged; otherwise it is
// reduced by one map-reduce pass: token-bounded chunks, one query-steered
// extraction call per chunk, non-empty outputs concatenated. No second
// reduction pass is attempted even if the combined text is still oversized.
func (p *Processor) PrepareForSynthesis(ctx context.Context, query, longText string) string {
	emptyTemplate := finalAnswerPrompt(query, "")
	if p.Fits(emptyTemplate, longText) {
		p.logger.Printf("evidence fits the context window, using single-shot synthesis")
		return finalAnswerPrompt(query, longText)
	}

	chunks := p.createChunks(longText)
	p.logger.Printf("evidence too large, map-reduce over %d chunks", len(chunks))

	var summaries []string
	for i, chunk := range chunks {
		summary := p.llm.complete(ctx, "map", provider.CompletionRequest{
			Prompt:      chunkProcessorPrompt(query, chunk),
			Temperature: 0,
			MaxTokens:   p.summaryTokens,
		})
		if strings.TrimSpace(summary) != "" {
			summaries = append(summaries, summary)
		} else {
			p.logger.Printf("chunk %d/%d produced no relevant content", i+1, len(chunks))
		}
	}

	combined := strings.Join(summaries, chunkSeparator)
	if !p.Fits(emptyTemplate, combined) {
		// Known single-pass limitation: the combined summary may still
		// exceed the window; it is passed through unreduced.
		p.logger.Printf("warning: combined summary still exceeds the context window after one pass")
	}
	return finalAnswerPrompt(query, combined)
}
