package report_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gamecatalog/internal/contracts"
	"gamecatalog/internal/report"
)

func TestWriter_RecordsPerStatusAndSummary(t *testing.T) {
	dir := t.TempDir()
	w, err := report.NewWriter(dir, nil)
	require.NoError(t, err)

	w.Record(&contracts.MatchingDecision{Status: contracts.MatchStatusAuto, Score: 0.9, Reason: "strong name + date match", CandidateOneID: "1"})
	w.Record(&contracts.MatchingDecision{Status: contracts.MatchStatusPending, Score: 0.4, Reason: "name only", CandidateOneID: "2"})
	w.Record(&contracts.MatchingDecision{Status: contracts.MatchStatusRejected, Score: 0.1, Reason: "no overlap", CandidateOneID: "3"})
	w.RecordError(report.ErrorRecord{TargetID: "4", Reason: "validation_failed", Message: "missing release date"})

	require.NoError(t, w.Finalize())

	autoLines := readLines(t, filepath.Join(dir, "matching.auto.jsonl"))
	assert.Len(t, autoLines, 1)
	pendingLines := readLines(t, filepath.Join(dir, "matching.pending.jsonl"))
	assert.Len(t, pendingLines, 1)
	rejectedLines := readLines(t, filepath.Join(dir, "matching.rejected.jsonl"))
	assert.Len(t, rejectedLines, 1)
	errorLines := readLines(t, filepath.Join(dir, "matching.errors.jsonl"))
	assert.Len(t, errorLines, 1)

	summaryBytes, err := os.ReadFile(filepath.Join(dir, "summary.json"))
	require.NoError(t, err)

	var summary report.Summary
	require.NoError(t, json.Unmarshal(summaryBytes, &summary))
	assert.Equal(t, 3, summary.Processed)
	assert.Equal(t, 1, summary.Matched)
	assert.Equal(t, 1, summary.Pending)
	assert.Equal(t, 1, summary.Rejected)
	assert.Equal(t, 1, summary.Failed)
	assert.InDelta(t, (0.9+0.4+0.1)/3, summary.AvgScore, 0.0001)
	assert.Equal(t, 0.9, summary.MaxScore)
	assert.Equal(t, 0.1, summary.MinScore)
	assert.Equal(t, 1, summary.ReasonCounts["validation_failed"])
}

func TestWriter_CreatesMissingBaseDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")
	_, err := report.NewWriter(dir, nil)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var lines []string
	for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
