package core

import (
	"io"
	"log"
	"testing"
)

func testLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func TestExtractRecordsSingleObject(t *testing.T) {
	raw := `{"answer": "42", "data": [{"url": "https://a", "title": "A", "fragment": "f"}]}`
	records := ExtractRecords(raw, testLogger())
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0]["answer"] != "42" {
		t.Fatalf("unexpected answer: %v", records[0]["answer"])
	}
}

func TestExtractRecordsArray(t *testing.T) {
	raw := `[{"answer": "a"}, {"answer": "b"}]`
	records := ExtractRecords(raw, testLogger())
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0]["answer"] != "a" || records[1]["answer"] != "b" {
		t.Fatalf("unexpected records: %v", records)
	}
}

func TestExtractRecordsBareObjectSequence(t *testing.T) {
	// No outer brackets: the object span fails to parse on its own and is
	// recovered by wrapping it in array brackets.
	raw := `{"answer": "a", "data": []}, {"answer": "b", "data": []}`
	records := ExtractRecords(raw, testLogger())
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[1]["answer"] != "b" {
		t.Fatalf("unexpected second record: %v", records[1])
	}
}

func TestExtractRecordsCodeFenceAndProse(t *testing.T) {
	raw := "Here is the result:\n```json\n{\"answer\": \"x\", \"data\": []}\n```\nHope this helps."
	records := ExtractRecords(raw, testLogger())
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0]["answer"] != "x" {
		t.Fatalf("unexpected answer: %v", records[0]["answer"])
	}
}

func TestExtractRecordsFlattensStringLists(t *testing.T) {
	raw := `{"answer": ["part one", "part two"], "data": []}`
	records := ExtractRecords(raw, testLogger())
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0]["answer"] != "part one, part two" {
		t.Fatalf("list not flattened: %v", records[0]["answer"])
	}
	// empty lists stay lists so downstream validation still sees the shape
	if _, ok := records[0]["data"].([]any); !ok {
		t.Fatalf("empty data list was flattened: %T", records[0]["data"])
	}
}

func TestExtractRecordsGarbage(t *testing.T) {
	for _, raw := range []string{"", "no json here", "{broken", "[1, 2, 3]"} {
		if records := ExtractRecords(raw, testLogger()); records != nil {
			t.Fatalf("expected nil for %q, got %v", raw, records)
		}
	}
}

func TestValidateRecordsDropsMalformed(t *testing.T) {
	raws := []map[string]any{
		{"answer": "good", "data": []any{map[string]any{"url": "https://a", "title": "A", "fragment": "f"}}},
		{"answer": 42, "data": []any{}},                             // non-string answer
		{"answer": "no data"},                                       // missing data
		{"answer": "bad data", "data": "nope"},                      // data not an array
		{"answer": "bad entry", "data": []any{map[string]any{"url": "https://b"}}}, // entry missing fields
	}
	records := ValidateRecords(raws, "my query", testLogger())
	if len(records) != 1 {
		t.Fatalf("expected 1 surviving record, got %d", len(records))
	}
	if records[0].Answer != "good" || records[0].QueryContext != "my query" {
		t.Fatalf("unexpected record: %+v", records[0])
	}
	if records[0].Data[0].URL != "https://a" {
		t.Fatalf("unexpected data source: %+v", records[0].Data[0])
	}
}

func TestValidateRecordsErrorRecordNotMeaningful(t *testing.T) {
	// The handler's failure record is structurally valid but carries no claim.
	raws := ExtractRecords(`{"error": "timeout", "answer": "", "data": []}`, testLogger())
	records := ValidateRecords(raws, "q", testLogger())
	if len(records) != 1 {
		t.Fatalf("expected the error record to validate, got %d records", len(records))
	}
	if records[0].Meaningful() {
		t.Fatalf("error record must not count as meaningful")
	}
}

func TestValidateRecordsCoercesFieldTypes(t *testing.T) {
	raws := []map[string]any{
		{"answer": "a", "data": []any{map[string]any{"url": "https://a", "title": 7, "fragment": true}}},
	}
	records := ValidateRecords(raws, "q", testLogger())
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Data[0].Title != "7" {
		t.Fatalf("title not coerced: %q", records[0].Data[0].Title)
	}
}

func TestMeaningful(t *testing.T) {
	cases := []struct {
		name string
		rec  ExtractionRecord
		want bool
	}{
		{"answer and url", ExtractionRecord{Answer: "a", Data: []DataSource{{URL: "https://a"}}}, true},
		{"empty answer", ExtractionRecord{Answer: "  ", Data: []DataSource{{URL: "https://a"}}}, false},
		{"no data", ExtractionRecord{Answer: "a"}, false},
		{"blank urls", ExtractionRecord{Answer: "a", Data: []DataSource{{URL: " "}}}, false},
	}
	for _, tc := range cases {
		if got := tc.rec.Meaningful(); got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}
