package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"wastedash/internal/amqp"
	"wastedash/internal/core"
	"wastedash/internal/loader"
	"wastedash/internal/log"
	"wastedash/internal/metrics"
	"wastedash/internal/sources/memory"
)

var workedExample = []core.RawRecord{
	{Line: 2, Category: "paper", Weight: "10", Year: "2020"},
	{Line: 3, Category: " Paper", Weight: "5", Year: "2020"},
	{Line: 4, Category: "GLASS", Weight: "3", Year: "2021"},
	{Line: 5, Category: "Glass", Weight: "oops", Year: "2021"},
}

type fakePublisher struct {
	mu   sync.Mutex
	reqs []*amqp.SnapshotRequest
	err  error
}

func (f *fakePublisher) PublishSnapshot(_ context.Context, req *amqp.SnapshotRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.reqs = append(f.reqs, req)
	return nil
}

type brokenSource struct{}

func (brokenSource) Name() string                                { return "broken" }
func (brokenSource) Fingerprint(context.Context) (string, error) { return "", errors.New("disk gone") }
func (brokenSource) ReadRecords(context.Context) ([]core.RawRecord, error) {
	return nil, errors.New("disk gone")
}

type fixture struct {
	srv   *Server
	store *memory.Store
	pub   *fakePublisher
}

func newFixture(t *testing.T, pub SnapshotPublisher, rpm int) fixture {
	t.Helper()
	store := memory.New(workedExample...)
	l := loader.New(store, log.Discard(), nil)
	cfg := Config{
		Addr:         ":0",
		Axis:         core.YearRange{Min: 2018, Max: 2022},
		CacheSize:    16,
		CacheTTL:     time.Minute,
		RateLimitRPM: rpm,
	}
	srv := NewServer(cfg, l, pub, metrics.New(), log.Discard())
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	fp, _ := pub.(*fakePublisher)
	return fixture{srv: srv, store: store, pub: fp}
}

func (f fixture) do(t *testing.T, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	f.srv.Handler.ServeHTTP(rr, httptest.NewRequest(method, target, nil))
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func TestIndexAndHealth(t *testing.T) {
	f := newFixture(t, nil, 0)

	rr := f.do(t, http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code, "not ready before the first load")

	rr = f.do(t, http.MethodGet, "/")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "Waste Collection Dashboard")
	assert.Contains(t, body, `value="Glass" checked`)
	assert.Contains(t, body, "invalid_weight (1)")
	assert.NotContains(t, body, `id="snapshot"`)
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	for _, path := range []string{"/healthz", "/readyz", "/metrics", "/static/dashboard.js"} {
		rr := f.do(t, http.MethodGet, path)
		assert.Equal(t, http.StatusOK, rr.Code, path)
	}
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/nope").Code)
}

func TestDatasetEndpoint(t *testing.T) {
	f := newFixture(t, nil, 0)
	rr := f.do(t, http.MethodGet, "/api/dataset")
	require.Equal(t, http.StatusOK, rr.Code)

	got := decode[struct {
		Source     string         `json:"source"`
		Categories []string       `json:"categories"`
		Axis       core.YearRange `json:"axis"`
		Summary    struct {
			Kept    int `json:"kept"`
			Dropped int `json:"dropped"`
		} `json:"summary"`
		Reasons []reasonCount `json:"reasons"`
	}](t, rr)
	assert.Equal(t, "memory", got.Source)
	assert.Equal(t, []string{"Glass", "Paper"}, got.Categories)
	assert.Equal(t, core.YearRange{Min: 2018, Max: 2022}, got.Axis)
	assert.Equal(t, 3, got.Summary.Kept)
	assert.Equal(t, 1, got.Summary.Dropped)
	assert.Equal(t, []reasonCount{{Reason: core.ReasonInvalidWeight, Count: 1}}, got.Reasons)
}

func TestTableViewWorkedExample(t *testing.T) {
	f := newFixture(t, nil, 0)
	rr := f.do(t, http.MethodGet, "/api/views/table?from=2020&to=2021")
	require.Equal(t, http.StatusOK, rr.Code)

	assert.Equal(t, []core.Cell{
		{Year: 2020, Category: "Glass", Weight: 0},
		{Year: 2020, Category: "Paper", Weight: 15},
		{Year: 2021, Category: "Glass", Weight: 3},
		{Year: 2021, Category: "Paper", Weight: 0},
	}, decode[[]core.Cell](t, rr))
}

func TestSelectionEdgeCases(t *testing.T) {
	f := newFixture(t, nil, 0)
	tests := []struct {
		name  string
		query string
		rows  int
	}{
		{"defaults to full axis and all categories", "", 5 * 2},
		{"empty category selection", "?category=", 0},
		{"single category", "?from=2020&to=2020&category=paper", 1},
		{"unknown category ignored", "?from=2020&to=2020&category=Metal&category=Glass", 1},
		{"inverted range", "?from=2021&to=2020", 0},
		{"clamped to axis", "?from=1990&to=2100", 5 * 2},
		{"outside axis", "?from=2030&to=2040", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := f.do(t, http.MethodGet, "/api/views/table"+tt.query)
			require.Equal(t, http.StatusOK, rr.Code)
			assert.Len(t, decode[[]core.Cell](t, rr), tt.rows)
		})
	}

	rr := f.do(t, http.MethodGet, "/api/views?from=twenty")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "invalid from year")

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/views/pie").Code)
}

func TestAllViews(t *testing.T) {
	f := newFixture(t, nil, 0)
	rr := f.do(t, http.MethodGet, "/api/views?from=2020&to=2021")
	require.Equal(t, http.StatusOK, rr.Code)

	got := decode[map[string]json.RawMessage](t, rr)
	for _, key := range []string{"filter", "axis", "totals", "grouped", "trend", "points", "table"} {
		assert.Contains(t, got, key)
	}
	var axis []int
	require.NoError(t, json.Unmarshal(got["axis"], &axis))
	assert.Equal(t, []int{2018, 2019, 2020, 2021, 2022}, axis)
}

func TestViewCacheInvalidatedOnNewData(t *testing.T) {
	f := newFixture(t, nil, 0)

	f.do(t, http.MethodGet, "/api/views?from=2020&to=2021")
	f.do(t, http.MethodGet, "/api/views?from=2020&to=2021")
	f.do(t, http.MethodGet, "/api/views?from=2019&to=2021")
	assert.Equal(t, 2, f.srv.viewCache.Size())

	f.store.Replace([]core.RawRecord{{Line: 2, Category: "Compost", Weight: "7", Year: "2020"}})
	rr := f.do(t, http.MethodGet, "/api/views/totals?from=2020&to=2021")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, f.srv.viewCache.Size())

	totals := decode[[]struct {
		Category string  `json:"category"`
		Weight   float64 `json:"weight"`
	}](t, rr)
	require.Len(t, totals, 1)
	assert.Equal(t, "Compost", totals[0].Category)
	assert.Equal(t, 7.0, totals[0].Weight)
}

func TestViewCacheSeparatesSeparatorLikeLabels(t *testing.T) {
	f := newFixture(t, nil, 0)
	f.store.Replace([]core.RawRecord{
		{Line: 2, Category: "a|b", Weight: "100", Year: "2020"},
		{Line: 3, Category: "a", Weight: "1", Year: "2020"},
		{Line: 4, Category: "b", Weight: "2", Year: "2020"},
	})

	rr := f.do(t, http.MethodGet, "/api/views/table?from=2020&to=2020&category=A%7CB")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []core.Cell{{Year: 2020, Category: "A|B", Weight: 100}}, decode[[]core.Cell](t, rr))

	rr = f.do(t, http.MethodGet, "/api/views/table?from=2020&to=2020&category=A&category=B")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []core.Cell{
		{Year: 2020, Category: "A", Weight: 1},
		{Year: 2020, Category: "B", Weight: 2},
	}, decode[[]core.Cell](t, rr))
	assert.Equal(t, 2, f.srv.viewCache.Size())
}

func TestChartsAndExports(t *testing.T) {
	f := newFixture(t, nil, 0)

	for _, name := range []string{"totals", "grouped", "trend", "points"} {
		rr := f.do(t, http.MethodGet, "/charts/"+name+".png?from=2020&to=2021")
		require.Equal(t, http.StatusOK, rr.Code, name)
		assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))
		assert.True(t, bytes.HasPrefix(rr.Body.Bytes(), []byte("\x89PNG")), name)
	}
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/charts/table.png").Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/charts/totals.svg").Code)

	rr := f.do(t, http.MethodGet, "/export.csv?from=2020&to=2021&category=Paper")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Year,Category,Weight (lbs)\n2020,Paper,15\n2021,Paper,0\n", rr.Body.String())

	rr = f.do(t, http.MethodGet, "/export.xlsx?from=2020&to=2021")
	require.Equal(t, http.StatusOK, rr.Code)
	wb, err := excelize.OpenReader(bytes.NewReader(rr.Body.Bytes()))
	require.NoError(t, err)
	defer wb.Close()
	assert.Contains(t, wb.GetSheetList(), "Table")
}

func TestEmptySelectionChartsStillRender(t *testing.T) {
	f := newFixture(t, nil, 0)
	for _, name := range []string{"totals", "grouped", "trend", "points"} {
		rr := f.do(t, http.MethodGet, "/charts/"+name+".png?category=")
		assert.Equal(t, http.StatusOK, rr.Code, name)
	}
}

func TestSnapshots(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		f := newFixture(t, nil, 0)
		assert.Equal(t, http.StatusServiceUnavailable, f.do(t, http.MethodPost, "/snapshots").Code)
	})

	t.Run("queued", func(t *testing.T) {
		f := newFixture(t, &fakePublisher{}, 0)

		rr := f.do(t, http.MethodPost, "/snapshots?from=2020&to=2021")
		require.Equal(t, http.StatusAccepted, rr.Code)
		body := decode[map[string]string](t, rr)
		assert.Equal(t, "queued", body["status"])

		rr = f.do(t, http.MethodPost, "/snapshots?from=2020&to=2020&category=glass")
		require.Equal(t, http.StatusAccepted, rr.Code)

		require.Len(t, f.pub.reqs, 2)
		assert.Equal(t, body["id"], f.pub.reqs[0].ID)
		assert.True(t, f.pub.reqs[0].AllCategories)
		assert.Equal(t, core.YearRange{Min: 2020, Max: 2021}, f.pub.reqs[0].Years())
		assert.False(t, f.pub.reqs[1].AllCategories)
		assert.Equal(t, []string{"Glass"}, f.pub.reqs[1].Categories)

		assert.Equal(t, http.StatusMethodNotAllowed, f.do(t, http.MethodGet, "/snapshots").Code)
		assert.Contains(t, f.do(t, http.MethodGet, "/").Body.String(), `id="snapshot"`)
	})

	t.Run("broker unavailable", func(t *testing.T) {
		f := newFixture(t, &fakePublisher{err: amqp.ErrCircuitOpen}, 0)
		assert.Equal(t, http.StatusServiceUnavailable, f.do(t, http.MethodPost, "/snapshots").Code)
	})
}

func TestRateLimitOnExports(t *testing.T) {
	f := newFixture(t, nil, 1)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/export.csv").Code)

	rr := f.do(t, http.MethodGet, "/export.csv")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/views").Code, "views are not limited")
}

func TestLoadFailureIs500(t *testing.T) {
	l := loader.New(brokenSource{}, log.Discard(), nil)
	srv := NewServer(Config{Axis: core.YearRange{Min: 2018, Max: 2022}, CacheSize: 4, CacheTTL: time.Minute}, l, nil, nil, nil)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	for _, path := range []string{"/", "/api/views", "/api/dataset", "/export.csv"} {
		rr := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusInternalServerError, rr.Code, path)
		if strings.HasPrefix(path, "/api") {
			assert.Contains(t, rr.Body.String(), "dataset unavailable")
		}
	}
}
