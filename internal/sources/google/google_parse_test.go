package google

import (
	"testing"

	"wastedash/internal/core"
)

func TestParseValues(t *testing.T) {
	values := [][]interface{}{
		{"Year", "Category", "Weight (lbs)"},
		{"2020", "paper", "10"},
		{},
		{2021, "Glass", 3.5},
		{"2022", "Metal"},
	}
	got, err := parseValues(values)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []core.RawRecord{
		{Line: 2, Category: "paper", Weight: "10", Year: "2020"},
		{Line: 4, Category: "Glass", Weight: "3.5", Year: "2021"},
		{Line: 5, Category: "Metal", Weight: "", Year: "2022"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d records, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("record %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestParseValuesErrors(t *testing.T) {
	if _, err := parseValues(nil); err != core.ErrEmptySource {
		t.Errorf("empty: got %v", err)
	}
	if _, err := parseValues([][]interface{}{{"Year", "Category"}}); err == nil {
		t.Error("expected missing column error")
	}
}

func TestHashValuesChangesWithContent(t *testing.T) {
	a := hashValues([][]interface{}{{"Year"}, {"2020"}})
	b := hashValues([][]interface{}{{"Year"}, {"2021"}})
	c := hashValues([][]interface{}{{"Year", "2020"}})
	if a == b || a == c {
		t.Errorf("hash collision: %s %s %s", a, b, c)
	}
	if a != hashValues([][]interface{}{{"Year"}, {"2020"}}) {
		t.Error("hash not stable")
	}
}
