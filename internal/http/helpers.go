package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"wastedash/internal/aggregate"
	"wastedash/internal/core"
	"wastedash/internal/loader"
	"wastedash/internal/log"
)

const categoryParam = "category"

// selection is a parsed filter plus whether the caller asked for every
// category implicitly.
type selection struct {
	Filter        core.Filter
	AllCategories bool
}

// parseSelection reads from, to and repeated category parameters.
//
// Missing years default to the axis bounds and the range is clamped to the
// axis; from > to yields an empty range. An absent category key selects every
// available category, while a present but empty one selects none. Unknown
// categories are ignored.
func parseSelection(q url.Values, axis core.YearRange, available []string) (selection, error) {
	years := axis
	for _, p := range []struct {
		key string
		dst *int
	}{{"from", &years.Min}, {"to", &years.Max}} {
		v := strings.TrimSpace(q.Get(p.key))
		if v == "" {
			continue
		}
		y, err := strconv.Atoi(v)
		if err != nil {
			return selection{}, fmt.Errorf("invalid %s year %q", p.key, v)
		}
		*p.dst = y
	}
	years = years.Clamp(axis)

	raw, present := q[categoryParam]
	if !present {
		return selection{Filter: core.NewFilter(years, available), AllCategories: true}, nil
	}

	known := make(map[string]struct{}, len(available))
	for _, c := range available {
		known[c] = struct{}{}
	}
	cats := make([]string, 0, len(raw))
	for _, c := range raw {
		n := core.NormalizeCategory(c)
		if _, ok := known[n]; ok {
			cats = append(cats, n)
		}
	}
	return selection{Filter: core.NewFilter(years, cats)}, nil
}

// encodeSelection is the query string that reproduces sel.
func encodeSelection(sel selection) string {
	q := url.Values{}
	q.Set("from", strconv.Itoa(sel.Filter.Years.Min))
	q.Set("to", strconv.Itoa(sel.Filter.Years.Max))
	if !sel.AllCategories {
		q[categoryParam] = append([]string{""}, sel.Filter.Categories...)
	}
	return q.Encode()
}

func aggregateFor(ds *loader.Dataset, f core.Filter) aggregate.Table {
	return aggregate.Build(ds.Records, f)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// requestLogger is the request-scoped logger set by the trace middleware.
func requestLogger(r *http.Request) *log.Logger {
	return log.FromContext(r.Context()).WithComponent(log.ComponentHTTP)
}
