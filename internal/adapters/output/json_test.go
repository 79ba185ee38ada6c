// internal/adapters/output/json_test.go
package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"phishtrace/internal/core/domain"
)

func TestOutputJSON(t *testing.T) {
	tmpDir := t.TempDir()
	rec := sampleRecord()

	path, err := OutputJSON(tmpDir, rec)
	if err != nil {
		t.Fatalf("OutputJSON() failed: %v", err)
	}

	if filepath.Base(path) != "phishtrace_run-0001.json" {
		t.Errorf("unexpected filename %q", filepath.Base(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read output file: %v", err)
	}

	var decoded domain.OutputRecord
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("failed to decode JSON: %v", err)
	}

	if decoded.RunID != "run-0001" {
		t.Errorf("RunID: expected %q, got %q", "run-0001", decoded.RunID)
	}
	if len(decoded.Chains) != 1 || len(decoded.Chains[0].Nodes) != 2 {
		t.Fatalf("expected 1 chain with 2 nodes, got %+v", decoded.Chains)
	}
	if decoded.Chains[0].Nodes[1].Previous != 0 {
		t.Errorf("Previous: expected 0, got %d", decoded.Chains[0].Nodes[1].Previous)
	}
	if got := decoded.Attribution["b.example"]; got == nil || got.Failure == nil || got.Failure.Kind != domain.KindTimeout {
		t.Errorf("b.example should carry a timeout failure, got %+v", got)
	}
	if !decoded.Attribution["a.example"].Cached {
		t.Error("a.example should be flagged as cached")
	}

	if !strings.Contains(string(data), "\n  ") {
		t.Error("JSON should be pretty-printed with indentation")
	}
}

func TestOutputJSON_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")

	path, err := OutputJSON(dir, sampleRecord())
	if err != nil {
		t.Fatalf("OutputJSON() failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("output file should exist: %v", err)
	}
}

func TestOutputJSON_DoesNotModifyRecord(t *testing.T) {
	rec := sampleRecord()
	before, _ := json.Marshal(rec)

	if _, err := OutputJSON(t.TempDir(), rec); err != nil {
		t.Fatalf("OutputJSON() failed: %v", err)
	}

	after, _ := json.Marshal(rec)
	if !bytes.Equal(before, after) {
		t.Error("record changed while exporting")
	}
}

func TestWriteJSON_Compact(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, sampleRecord(), false); err != nil {
		t.Fatalf("WriteJSON() failed: %v", err)
	}
	if strings.Count(buf.String(), "\n") != 1 {
		t.Errorf("compact JSON should be a single line, got %q", buf.String())
	}
}

func TestRecordFilename(t *testing.T) {
	tests := []struct {
		runID string
		want  string
	}{
		{"run-0001", "phishtrace_run-0001.json"},
		{"a/b:c", "phishtrace_a_b_c.json"},
		{"6f1c2a9e-7d1b-4c55-9f55-0c1e2b7c9a10", "phishtrace_6f1c2a9e-7d1b-4c55-9f55-0c1e2b7c9a10.json"},
	}

	for _, tt := range tests {
		t.Run(tt.runID, func(t *testing.T) {
			got := RecordFilename(&domain.OutputRecord{RunID: tt.runID})
			if got != tt.want {
				t.Errorf("RecordFilename(%q) = %q, want %q", tt.runID, got, tt.want)
			}
		})
	}

	if got := RecordFilename(&domain.OutputRecord{}); !strings.HasPrefix(got, "phishtrace_") {
		t.Errorf("fallback filename %q", got)
	}
}
