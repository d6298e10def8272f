package core

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/mohammad-safakhou/insight/utils"
)

// ExtractRecords parses a raw model response into loosely typed records.
// It tolerates code fences, leading/trailing prose, a bare comma-joined
// sequence of objects lacking outer array brackets, and list-valued string
// fields. It never panics and never returns an error: unusable input
// yields an empty list and a logged diagnostic.
func ExtractRecords(raw string, logger *log.Logger) []map[string]any {
	cleaned := strings.TrimSpace(stripCodeFences(raw))

	objStart := strings.Index(cleaned, "{")
	objEnd := strings.LastIndex(cleaned, "}")
	listStart := strings.Index(cleaned, "[")
	listEnd := strings.LastIndex(cleaned, "]")

	var span string
	switch {
	// An object span takes priority; a bare sequence "{...},{...}" is still
	// recovered below by the bracket-wrap retry.
	case objStart != -1 && objEnd > objStart:
		span = cleaned[objStart : objEnd+1]
	case listStart != -1 && listEnd > listStart:
		span = cleaned[listStart : listEnd+1]
	default:
		logger.Printf("no JSON object or array found in model output: %s", utils.Truncate(cleaned, 200))
		return nil
	}

	records, err := parseSpan(span)
	if err == nil {
		return records
	}

	if strings.HasPrefix(span, "{") && strings.HasSuffix(span, "}") {
		if wrapped, wErr := parseSpan("[" + span + "]"); wErr == nil {
			return wrapped
		}
	}

	logger.Printf("failed to decode JSON from model output: %v: %s", err, utils.Truncate(span, 200))
	return nil
}

func parseSpan(span string) ([]map[string]any, error) {
	var data any
	if err := json.Unmarshal([]byte(span), &data); err != nil {
		return nil, err
	}

	switch v := data.(type) {
	case map[string]any:
		return []map[string]any{flattenStringLists(v)}, nil
	case []any:
		out := make([]map[string]any, 0, len(v))
		for _, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("array contains a non-object element")
			}
			out = append(out, flattenStringLists(m))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unexpected JSON root type %T", data)
	}
}

// flattenStringLists joins top-level list-of-string values into a single
// comma-separated string, normalizing inconsistent model formatting.
func flattenStringLists(record map[string]any) map[string]any {
	out := make(map[string]any, len(record))
	for key, value := range record {
		if list, ok := value.([]any); ok && allStrings(list) {
			parts := make([]string, len(list))
			for i, item := range list {
				parts[i] = item.(string)
			}
			out[key] = strings.Join(parts, ", ")
			continue
		}
		out[key] = value
	}
	return out
}

func allStrings(list []any) bool {
	if len(list) == 0 {
		return false
	}
	for _, item := range list {
		if _, ok := item.(string); !ok {
			return false
		}
	}
	return true
}

func stripCodeFences(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return s
	}
	t = strings.TrimPrefix(t, "```")
	if i := strings.Index(t, "\n"); i != -1 {
		t = t[i+1:] // drop the fence line, including any language tag
	}
	t = strings.TrimSpace(t)
	t = strings.TrimSuffix(t, "```")
	return t
}

// ValidateRecords applies the structural contract to loosely typed records:
// an "answer" string plus a "data" array of {url, title, fragment} objects.
// Records failing the contract are dropped with a logged diagnostic, never
// raised — downstream code tolerates partial batches. Survivors are tagged
// with the originating search query.
func ValidateRecords(raws []map[string]any, queryContext string, logger *log.Logger) []ExtractionRecord {
	var out []ExtractionRecord
	for _, raw := range raws {
		rec, err := validateRecord(raw)
		if err != nil {
			logger.Printf("dropping malformed record for query %q: %v", queryContext, err)
			continue
		}
		rec.QueryContext = queryContext
		out = append(out, rec)
	}
	return out
}

func validateRecord(raw map[string]any) (ExtractionRecord, error) {
	answer, ok := raw["answer"].(string)
	if !ok {
		return ExtractionRecord{}, fmt.Errorf("missing or non-string answer field")
	}
	dataVal, ok := raw["data"]
	if !ok {
		return ExtractionRecord{}, fmt.Errorf("missing data field")
	}
	list, ok := dataVal.([]any)
	if !ok {
		return ExtractionRecord{}, fmt.Errorf("data field is not an array")
	}

	rec := ExtractionRecord{Answer: answer, Data: make([]DataSource, 0, len(list))}
	for i, item := range list {
		entry, ok := item.(map[string]any)
		if !ok {
			return ExtractionRecord{}, fmt.Errorf("data[%d] is not an object", i)
		}
		ds := DataSource{}
		for _, field := range []struct {
			name string
			dst  *string
		}{{"url", &ds.URL}, {"title", &ds.Title}, {"fragment", &ds.Fragment}} {
			v, present := entry[field.name]
			if !present {
				return ExtractionRecord{}, fmt.Errorf("data[%d] missing %s", i, field.name)
			}
			*field.dst = utils.Str(v)
		}
		rec.Data = append(rec.Data, ds)
	}
	return rec, nil
}
