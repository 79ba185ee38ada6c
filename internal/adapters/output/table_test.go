// internal/adapters/output/table_test.go
package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phishtrace/internal/core/domain"
)

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, sampleRecord()))
	out := buf.String()

	assert.Contains(t, out, "phishtrace run run-0001")
	assert.Contains(t, out, "Chains:")
	assert.Contains(t, out, "http://a.example/x")
	assert.Contains(t, out, "http://b.example/y")
	assert.Contains(t, out, "=> final_page")
	assert.Contains(t, out, "192.0.2.10:80")

	assert.Contains(t, out, "Documentation Hosting")
	assert.Contains(t, out, "abuse@registry-a.test")
	assert.Contains(t, out, "Example Registrar")
	assert.Contains(t, out, "ok (cached)")
	assert.Contains(t, out, string(domain.KindTimeout))

	assert.Contains(t, out, "Warnings (1)")
	assert.Contains(t, out, "Failures by kind")
}

func TestWriteTable_KeysAreSorted(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, sampleRecord()))
	out := buf.String()

	ip := strings.Index(out, "203.0.113.5 ")
	a := strings.Index(out, "a.example  ")
	b := strings.Index(out, "b.example  ")
	require.True(t, ip >= 0 && a >= 0 && b >= 0, out)
	assert.Less(t, ip, a)
	assert.Less(t, a, b)
}

func TestWriteTable_EmptyRecord(t *testing.T) {
	var buf bytes.Buffer
	rec := domain.NewOutputRecord(nil, nil)
	require.NoError(t, WriteTable(&buf, &rec))

	assert.Contains(t, buf.String(), "No chains.")
	assert.Contains(t, buf.String(), "No attribution keys.")
	assert.NotContains(t, buf.String(), "Warnings")
}

func TestWriteTable_ChainWithoutNodes(t *testing.T) {
	chain := domain.NewChain(domain.URLSeed{URL: "http://slow.example/"})
	_ = chain.Terminate(domain.ChainError, domain.FailureOf(domain.KindTimeout, "chain not started"))
	rec := domain.OutputRecord{Chains: []*domain.Chain{chain}}

	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, &rec))
	assert.Contains(t, buf.String(), "error (timeout)")
}

func TestExporters(t *testing.T) {
	rec := sampleRecord()

	fileExp := &JSONFileExporter{Dir: t.TempDir()}
	require.NoError(t, fileExp.Export(rec))
	assert.Equal(t, "json", fileExp.Name())
	assert.FileExists(t, fileExp.Path)

	var stream bytes.Buffer
	streamExp := &JSONStreamExporter{W: &stream}
	require.NoError(t, streamExp.Export(rec))
	assert.Contains(t, stream.String(), `"run_id":"run-0001"`)

	var table bytes.Buffer
	tableExp := &TableExporter{W: &table}
	require.NoError(t, tableExp.Export(rec))
	assert.Equal(t, "table", tableExp.Name())
	assert.Contains(t, table.String(), "run-0001")
}
