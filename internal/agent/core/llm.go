package core

import (
	"context"
	"encoding/json"
	"log"

	"github.com/mohammad-safakhou/insight/internal/agent/telemetry"
	"github.com/mohammad-safakhou/insight/provider"
)

// llmHandler wraps a provider with the recovery contract the run loop
// relies on: a failed call yields an empty string, or a minimal
// structurally-valid error record when JSON output was requested, so
// downstream parsing never crashes on a transport failure.
type llmHandler struct {
	provider  provider.Provider
	logger    *log.Logger
	telemetry *telemetry.Telemetry
}

func newLLMHandler(p provider.Provider, logger *log.Logger, tele *telemetry.Telemetry) *llmHandler {
	if logger == nil {
		logger = log.New(log.Writer(), "[LLM] ", log.LstdFlags)
	}
	return &llmHandler{provider: p, logger: logger, telemetry: tele}
}

func (h *llmHandler) complete(ctx context.Context, kind string, req provider.CompletionRequest) string {
	out, err := h.provider.Complete(ctx, req)
	if h.telemetry != nil {
		h.telemetry.RecordLLMCall(kind, err)
	}
	if err != nil {
		h.logger.Printf("model call (%s) failed: %v", kind, err)
		if req.JSONMode {
			return errorRecord(err)
		}
		return ""
	}
	return out
}

func errorRecord(err error) string {
	data, mErr := json.Marshal(map[string]any{
		"error":  err.Error(),
		"answer": "",
		"data":   []any{},
	})
	if mErr != nil {
		return `{"error":"model call failed","answer":"","data":[]}`
	}
	return string(data)
}
