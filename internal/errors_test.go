package internal

import (
	"errors"
	"strings"
	"testing"
)

func TestErrorTypes(t *testing.T) {
	base := errors.New("boom")
	tests := []struct {
		name     string
		err      error
		contains []string
	}{
		{"storage", &StorageError{Path: "/tmp/x", Op: "open", Err: base}, []string{"storage error", "open", "/tmp/x"}},
		{"parse with line", &ParseError{Source: "jsonl", Key: "a.jsonl", Line: 3, Err: base}, []string{"parse error", "[jsonl]", "a.jsonl line 3"}},
		{"parse without line", &ParseError{Source: "config", Key: "c.yaml", Err: base}, []string{"[config] c.yaml: boom"}},
		{"export", &ExportError{Format: "md", Path: "out.md", Err: base}, []string{"export error", "[md]", "out.md"}},
		{"extraction", &ExtractionError{Path: "db", Op: "iterate", Err: base}, []string{"extraction error", "iterate", "db"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, want := range tt.contains {
				if !strings.Contains(msg, want) {
					t.Errorf("Error() = %q, want it to contain %q", msg, want)
				}
			}
			if !errors.Is(tt.err, base) {
				t.Error("Unwrap() should return the wrapped error")
			}
		})
	}
}

func TestParseErrorLine(t *testing.T) {
	var perr *ParseError
	err := error(&ParseError{Source: "jsonl", Key: "f", Line: 9, Err: errors.New("x")})
	if !errors.As(err, &perr) {
		t.Fatal("errors.As() did not find *ParseError")
	}
	if perr.Line != 9 {
		t.Errorf("Line = %d, want 9", perr.Line)
	}
}
