package logtail

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeLog(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "synq.log")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func messages(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Message
	}
	return out
}

func TestRead(t *testing.T) {
	var lines, all []string
	for i := 1; i <= 10; i++ {
		lines = append(lines, fmt.Sprintf(`{"level":"info","msg":"line %d"}`, i))
		all = append(all, fmt.Sprintf("line %d", i))
	}
	path := writeLog(t, lines...)

	tests := []struct {
		name     string
		maxLines int
		expected []string
	}{
		{"read all (0)", 0, all},
		{"read all (negative)", -1, all},
		{"read partial (5)", 5, all[5:]},
		{"read exactly all (10)", 10, all},
		{"read more than exists (20)", 20, all},
		{"read one", 1, all[9:]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := Read(path, tt.maxLines)
			if err != nil {
				t.Fatalf("Read returned error: %v", err)
			}
			if diff := cmp.Diff(tt.expected, messages(entries)); diff != "" {
				t.Fatalf("messages mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRead_MissingFile(t *testing.T) {
	entries, err := Read(filepath.Join(t.TempDir(), "nope.log"), 5)
	if err != nil || entries != nil {
		t.Fatalf("Read = %v, %v; want nil, nil", entries, err)
	}
}

func TestParse_ZapLine(t *testing.T) {
	e := Parse(`{"level":"warn","timestamp":"2025-03-04T05:06:07.089Z","msg":"add failed","temp_id":"temp-1","caller":"synq/store.go:10"}`)

	if e.Level != "warn" || e.Message != "add failed" {
		t.Fatalf("entry = %#v", e)
	}
	if e.Time.IsZero() || e.Time.Second() != 7 {
		t.Fatalf("Time = %v, want parsed timestamp", e.Time)
	}
	if diff := cmp.Diff(map[string]any{"temp_id": "temp-1"}, e.Fields); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
	if got := e.String(); !strings.Contains(got, "WARN  add failed temp_id=temp-1") {
		t.Fatalf("String() = %q", got)
	}
}

func TestParse_PlainLine(t *testing.T) {
	e := Parse("panic: something")
	if e.Message != "panic: something" || e.String() != "panic: something" {
		t.Fatalf("entry = %#v", e)
	}
}
