package http

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wastedash/internal/core"
)

func TestParseSelection(t *testing.T) {
	axis := core.YearRange{Min: 2005, Max: 2025}
	available := []string{"Glass", "Paper"}

	tests := []struct {
		name  string
		query string
		want  selection
	}{
		{"defaults", "", selection{Filter: core.NewFilter(axis, available), AllCategories: true}},
		{"range", "from=2010&to=2012", selection{
			Filter:        core.NewFilter(core.YearRange{Min: 2010, Max: 2012}, available),
			AllCategories: true,
		}},
		{"clamped", "from=1999&to=2030", selection{Filter: core.NewFilter(axis, available), AllCategories: true}},
		{"none", "category=", selection{Filter: core.NewFilter(axis, nil)}},
		{"normalized and deduped", "category=paper&category=PAPER+&category=Tin", selection{
			Filter: core.NewFilter(axis, []string{"Paper"}),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			require.NoError(t, err)
			got, err := parseSelection(q, axis, available)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := parseSelection(url.Values{"to": {"x"}}, axis, available)
	assert.ErrorContains(t, err, `invalid to year "x"`)
}

func TestEncodeSelectionRoundTrip(t *testing.T) {
	axis := core.YearRange{Min: 2005, Max: 2025}
	available := []string{"Glass", "Paper"}

	for _, sel := range []selection{
		{Filter: core.NewFilter(core.YearRange{Min: 2010, Max: 2011}, available), AllCategories: true},
		{Filter: core.NewFilter(axis, []string{"Paper"})},
		{Filter: core.NewFilter(axis, nil)},
	} {
		q, err := url.ParseQuery(encodeSelection(sel))
		require.NoError(t, err)
		got, err := parseSelection(q, axis, available)
		require.NoError(t, err)
		assert.Equal(t, sel, got)
	}
}
