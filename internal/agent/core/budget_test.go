package core

import (
	"context"
	"strings"
	"testing"

	"github.com/mohammad-safakhou/insight/config"
	"github.com/mohammad-safakhou/insight/provider"
	"github.com/mohammad-safakhou/insight/tools/web_search/models"
)

func newTestProcessor(t *testing.T, fp *fakeProvider, llmCfg config.LLMConfig, pipeCfg config.PipelineConfig) *Processor {
	t.Helper()
	p, err := newProcessor(newLLMHandler(fp, testLogger(), nil), "gpt-4o", llmCfg, pipeCfg, testLogger(), nil)
	if err != nil {
		t.Skipf("tokenizer unavailable: %v", err)
	}
	return p
}

func TestCompressDocumentsThreshold(t *testing.T) {
	fp := &fakeProvider{fn: func(req provider.CompletionRequest) (string, error) {
		return "condensed", nil
	}}
	p := newTestProcessor(t, fp,
		config.LLMConfig{ContextWindow: 128000, MaxAnswerTokens: 1024},
		config.PipelineConfig{ContentTokenThreshold: 50, ChunkTokens: 500, SummaryTokens: 64})

	small := models.Result{Title: "small", URL: "https://s", Content: "a few words only"}
	big := models.Result{Title: "big", URL: "https://b", Content: strings.Repeat("lengthy filler text ", 200)}

	out := p.CompressDocuments(context.Background(), "q", []models.Result{small, big})
	if len(out) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(out))
	}
	if out[0].Content != small.Content {
		t.Fatalf("small document must pass through unchanged")
	}
	if out[1].Content != "condensed" {
		t.Fatalf("big document not compressed: %q", out[1].Content)
	}
	if out[1].URL != "https://b" || out[1].Title != "big" {
		t.Fatalf("compression must only touch content: %+v", out[1])
	}
	if len(fp.calls) != 1 {
		t.Fatalf("expected exactly 1 compression call, got %d", len(fp.calls))
	}
}

func TestCompressDocumentsFailedCall(t *testing.T) {
	fp := &fakeProvider{fn: func(req provider.CompletionRequest) (string, error) {
		return "", context.DeadlineExceeded
	}}
	p := newTestProcessor(t, fp,
		config.LLMConfig{ContextWindow: 128000, MaxAnswerTokens: 1024},
		config.PipelineConfig{ContentTokenThreshold: 10, ChunkTokens: 500, SummaryTokens: 64})

	docs := []models.Result{{Title: "big", URL: "https://b", Content: strings.Repeat("word ", 100)}}
	out := p.CompressDocuments(context.Background(), "q", docs)
	if len(out) != 1 {
		t.Fatalf("a failed compression must not drop the document")
	}
	if out[0].Content != "" {
		t.Fatalf("failed compression must yield empty content, got %q", out[0].Content)
	}
}

func TestPrepareForSynthesisSingleShot(t *testing.T) {
	fp := &fakeProvider{fn: func(req provider.CompletionRequest) (string, error) {
		t.Fatalf("no model call expected when evidence fits")
		return "", nil
	}}
	p := newTestProcessor(t, fp,
		config.LLMConfig{ContextWindow: 128000, MaxAnswerTokens: 1024},
		config.PipelineConfig{ContentTokenThreshold: 4000, ChunkTokens: 500, SummaryTokens: 64})

	evidence := "short evidence block"
	prompt := p.PrepareForSynthesis(context.Background(), "my question", evidence)
	if !strings.Contains(prompt, evidence) {
		t.Fatalf("evidence must pass through verbatim:\n%s", prompt)
	}
	if !strings.Contains(prompt, "my question") {
		t.Fatalf("prompt must carry the question:\n%s", prompt)
	}
}

func TestPrepareForSynthesisMapReduce(t *testing.T) {
	var chunkInputs []string
	fp := &fakeProvider{fn: func(req provider.CompletionRequest) (string, error) {
		chunkInputs = append(chunkInputs, req.Prompt)
		return "chunk summary", nil
	}}
	// tiny window forces the reduction path
	p := newTestProcessor(t, fp,
		config.LLMConfig{ContextWindow: 300, MaxAnswerTokens: 100},
		config.PipelineConfig{ContentTokenThreshold: 4000, ChunkTokens: 60, SummaryTokens: 32})

	long := strings.Repeat("alpha beta gamma delta ", 100)
	prompt := p.PrepareForSynthesis(context.Background(), "q", long)

	chunks := p.createChunks(long)
	if len(chunks) < 2 {
		t.Fatalf("test needs multiple chunks, got %d", len(chunks))
	}
	if len(chunkInputs) != len(chunks) {
		t.Fatalf("expected one call per chunk: %d calls for %d chunks", len(chunkInputs), len(chunks))
	}
	want := strings.Join([]string{"chunk summary", "chunk summary"}, chunkSeparator)
	if !strings.Contains(prompt, want) {
		t.Fatalf("summaries not joined by the separator:\n%s", prompt)
	}
	if strings.Contains(prompt, "alpha beta gamma delta alpha") {
		t.Fatalf("raw evidence leaked into the reduced prompt")
	}
}

func TestPrepareForSynthesisDropsEmptyChunkOutput(t *testing.T) {
	call := 0
	fp := &fakeProvider{fn: func(req provider.CompletionRequest) (string, error) {
		call++
		if call == 1 {
			return "only summary", nil
		}
		return "   ", nil
	}}
	p := newTestProcessor(t, fp,
		config.LLMConfig{ContextWindow: 300, MaxAnswerTokens: 100},
		config.PipelineConfig{ContentTokenThreshold: 4000, ChunkTokens: 60, SummaryTokens: 32})

	long := strings.Repeat("one two three four ", 100)
	prompt := p.PrepareForSynthesis(context.Background(), "q", long)
	if !strings.Contains(prompt, "only summary") {
		t.Fatalf("surviving summary missing:\n%s", prompt)
	}
	if strings.Contains(prompt, chunkSeparator) {
		t.Fatalf("blank chunk output must not contribute a separator")
	}
}

func TestCreateChunks(t *testing.T) {
	fp := &fakeProvider{fn: func(req provider.CompletionRequest) (string, error) { return "", nil }}
	p := newTestProcessor(t, fp,
		config.LLMConfig{ContextWindow: 128000, MaxAnswerTokens: 1024},
		config.PipelineConfig{ContentTokenThreshold: 4000, ChunkTokens: 10, SummaryTokens: 64})

	text := strings.Repeat("token ", 50)
	chunks := p.createChunks(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if n := p.EstimateTokens(chunk); n > 10 {
			t.Errorf("chunk %d exceeds the budget: %d tokens", i, n)
		}
	}
	if strings.Join(chunks, "") != text {
		t.Fatalf("chunks must concatenate back to the input")
	}
}

func TestFits(t *testing.T) {
	fp := &fakeProvider{fn: func(req provider.CompletionRequest) (string, error) { return "", nil }}
	p := newTestProcessor(t, fp,
		config.LLMConfig{ContextWindow: 100, MaxAnswerTokens: 40},
		config.PipelineConfig{ContentTokenThreshold: 4000, ChunkTokens: 10, SummaryTokens: 64})

	if !p.Fits("", "short") {
		t.Fatalf("short text must fit a 60-token budget")
	}
	if p.Fits("", strings.Repeat("word ", 80)) {
		t.Fatalf("80 words must not fit a 60-token budget")
	}
}
