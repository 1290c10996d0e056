package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seriouslysahid/CodeRed-sub001/internal/model"
	"github.com/seriouslysahid/CodeRed-sub001/internal/risk"
)

const refNow = "2026-04-01T09:00:00Z"

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestAssess_YAML(t *testing.T) {
	path := writeFile(t, "one.yaml", `
completionPct: 5
quizAvg: 10
missedSessions: 9
lastLogin: "2026-02-01"
`)
	out, err := run(t, "", "assess", path, "--now", refNow, "--format", "json")
	require.NoError(t, err)

	var a model.RiskAssessment
	require.NoError(t, json.Unmarshal([]byte(out), &a))
	assert.Equal(t, model.RiskHigh, a.Label)
	assert.InDelta(t, 0.93, a.Score, 1e-9)
}

func TestAssess_RejectsUnknownFields(t *testing.T) {
	path := writeFile(t, "typo.yaml", "completionPc: 50\nlastLogin: 2026-03-01\n")
	_, err := run(t, "", "assess", path)
	require.Error(t, err)
}

func TestAssess_InvalidLastLogin(t *testing.T) {
	_, err := run(t, `{"completionPct": 50, "lastLogin": "soon"}`, "assess", "-", "--now", refNow)
	require.Error(t, err)
	assert.ErrorIs(t, err, risk.ErrInvalidInput)
}

func TestBatch_JSONFromStdin(t *testing.T) {
	in := `{"signals": [
		{"completionPct": 95, "quizAvg": 90, "missedSessions": 0, "lastLogin": "2026-03-31T09:00:00Z"},
		{"completionPct": 5, "quizAvg": 10, "missedSessions": 9, "lastLogin": "2026-02-01"}
	]}`
	out, err := run(t, in, "batch", "-", "--now", refNow, "--format", "json")
	require.NoError(t, err)

	var items []model.BatchItem
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.Len(t, items, 2)
	assert.Equal(t, 0, items[0].Index)
	assert.Equal(t, model.RiskLow, items[0].Label)
	assert.Equal(t, 1, items[1].Index)
	assert.Equal(t, model.RiskHigh, items[1].Label)
}

func TestBatch_BareListTable(t *testing.T) {
	path := writeFile(t, "list.yaml", `
- {completionPct: 95, quizAvg: 90, missedSessions: 0, lastLogin: "2026-03-31"}
- {completionPct: 50, quizAvg: 50, missedSessions: 3, lastLogin: "2026-03-20"}
`)
	out, err := run(t, "", "batch", path, "--now", refNow)
	require.NoError(t, err)
	assert.Contains(t, out, "INDEX")
	assert.Equal(t, 3, strings.Count(strings.TrimSpace(out), "\n")+1)
}

func TestBatch_NamesFailingIndex(t *testing.T) {
	path := writeFile(t, "bad.yaml", `
- {completionPct: 95, lastLogin: "2026-03-31"}
- {completionPct: 50}
`)
	_, err := run(t, "", "batch", path, "--now", refNow)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "signals[1]")
}

func TestWeights_Overlay(t *testing.T) {
	path := writeFile(t, "weights.toml", `
[risk.weights]
completion = 0.25
quiz = 0.25
missed = 0.25
login = 0.25
`)
	out, err := run(t, "", "weights", "--weights-file", path, "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "completion: 0.25")
}

func TestRoot_RejectsUnknownFormat(t *testing.T) {
	_, err := run(t, "", "weights", "--format", "xml")
	require.Error(t, err)
}
