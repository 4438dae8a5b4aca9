package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wastedash/internal/core"
	"wastedash/internal/report"
)

var axis = core.YearRange{Min: 2018, Max: 2022}

func TestReportRequest(t *testing.T) {
	req, err := reportRequest(axis, 0, 0, nil, false)
	require.NoError(t, err)
	assert.Equal(t, axis, req.Years)
	assert.True(t, req.AllCategories)

	req, err = reportRequest(axis, 2015, 2020, []string{" paper", "", "GLASS"}, true)
	require.NoError(t, err)
	assert.Equal(t, core.YearRange{Min: 2018, Max: 2020}, req.Years)
	assert.False(t, req.AllCategories)
	assert.Equal(t, []string{"Paper", "Glass"}, req.Categories)

	_, err = reportRequest(axis, 2021, 2019, nil, false)
	require.Error(t, err)
}

func TestPrintSummary(t *testing.T) {
	_, s := core.Clean([]core.RawRecord{
		{Line: 2, Category: "Paper", Weight: "1", Year: "2020"},
		{Line: 3, Category: "Paper", Weight: "x", Year: "2020"},
	})
	var buf bytes.Buffer
	printSummary(&buf, "mem", s)

	out := buf.String()
	assert.Contains(t, out, "records: 2 total, 1 kept")
	assert.Contains(t, out, "1 records dropped: invalid_weight=1")
	assert.Contains(t, out, `line 3: invalid_weight (category="Paper" weight="x" year="2020")`)
}

// csvEnv points the configuration at a csv backend with default settings.
func csvEnv(t *testing.T, file string) {
	t.Helper()
	for _, k := range []string{"PORT", "AMQP_URL", "LOG_FORMAT", "YEAR_AXIS_START", "YEAR_AXIS_END",
		"VIEW_CACHE_SIZE", "VIEW_CACHE_TTL", "RATE_LIMIT_RPM", "CSV_DELIMITER"} {
		t.Setenv(k, "")
	}
	t.Setenv("DATA_BACKEND", "csv")
	t.Setenv("DATA_FILE", file)
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestImportRejectsReadOnlyBackend(t *testing.T) {
	csvEnv(t, "rows.csv")
	_, err := execute(t, "import", "rows.csv")
	require.ErrorIs(t, err, errNotImportable)
}

func TestReportRejectsUnsafeID(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "waste.csv")
	require.NoError(t, os.WriteFile(data, []byte("Category,Weight (lbs),Year\nPaper,1,2020\n"), 0o644))
	csvEnv(t, data)

	out := filepath.Join(dir, "snapshots")
	_, err := execute(t, "report", "--out", out, "--id", "..")
	require.ErrorIs(t, err, report.ErrInvalidID)

	_, statErr := os.Stat(filepath.Join(dir, report.ManifestFile))
	assert.True(t, os.IsNotExist(statErr))
}

func TestReportWritesSnapshot(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "waste.csv")
	require.NoError(t, os.WriteFile(data, []byte("Category,Weight (lbs),Year\nPaper,1,2020\nGlass,x,2021\n"), 0o644))
	csvEnv(t, data)

	out := filepath.Join(dir, "snapshots")
	stdout, err := execute(t, "report", "--out", out, "--id", "weekly", "--from", "2020", "--to", "2021")
	require.NoError(t, err)
	assert.Contains(t, stdout, `"id": "weekly"`)
	assert.FileExists(t, filepath.Join(out, "weekly", report.ManifestFile))
	assert.FileExists(t, filepath.Join(out, "weekly", report.WorkbookFile))
}
