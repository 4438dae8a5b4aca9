package csvfile

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wastedash/internal/core"
)

const sample = "Category,Weight (lbs),Year,Notes\n" +
	"paper,10,2020,\n" +
	" Paper,5,2020,dock B\n" +
	"GLASS ,3,2021\n" +
	"Glass,n/a,2021,scale broken\n"

func TestParse(t *testing.T) {
	got, err := Parse(strings.NewReader(sample), ',')
	require.NoError(t, err)
	assert.Equal(t, []core.RawRecord{
		{Line: 2, Category: "paper", Weight: "10", Year: "2020"},
		{Line: 3, Category: " Paper", Weight: "5", Year: "2020"},
		{Line: 4, Category: "GLASS ", Weight: "3", Year: "2021"},
		{Line: 5, Category: "Glass", Weight: "n/a", Year: "2021"},
	}, got)
}

func TestParseSemicolonAndBOM(t *testing.T) {
	in := "\ufeffYear;Category;Weight (lbs)\n2019;Compost;7.5\n"
	got, err := Parse(strings.NewReader(in), ';')
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, core.RawRecord{Line: 2, Category: "Compost", Weight: "7.5", Year: "2019"}, got[0])
}

func TestParseErrors(t *testing.T) {
	_, err := Parse(strings.NewReader(""), ',')
	require.ErrorIs(t, err, core.ErrEmptySource)

	_, err = Parse(strings.NewReader("category,Weight (lbs),Year\npaper,1,2020\n"), ',')
	require.ErrorIs(t, err, core.ErrMissingColumn)
}

func TestSourceReadAndFingerprint(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "waste.csv")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	src := New(path, 0)
	ctx := context.Background()

	fp1, err := src.Fingerprint(ctx)
	require.NoError(t, err)
	fp2, err := src.Fingerprint(ctx)
	require.NoError(t, err)
	assert.Equal(t, fp1, fp2)

	records, err := src.ReadRecords(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 4)

	require.NoError(t, os.WriteFile(path, []byte(sample+"Metal,1,2022\n"), 0o644))
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))

	fp3, err := src.Fingerprint(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, fp1, fp3)
}

func TestSourceMissingFile(t *testing.T) {
	src := New(filepath.Join(t.TempDir(), "nope.csv"), ',')
	_, err := src.ReadRecords(context.Background())
	require.ErrorIs(t, err, os.ErrNotExist)
	_, err = src.Fingerprint(context.Background())
	require.ErrorIs(t, err, os.ErrNotExist)
}
