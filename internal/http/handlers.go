package http

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"net/http"
	"strings"
	"time"

	"wastedash/internal/amqp"
	"wastedash/internal/core"
	"wastedash/internal/loader"
	"wastedash/internal/log"
	"wastedash/internal/render"
)

// dataset loads the current dataset or writes a 500 and returns nil.
func (s *Server) dataset(w http.ResponseWriter, r *http.Request) *loader.Dataset {
	ds, err := s.loader.Load(r.Context())
	if err != nil {
		log.NewStructuredLogger(requestLogger(r)).
			LogError(r.Context(), "Dataset load failed", err, log.OpLoad, nil)
		writeError(w, http.StatusInternalServerError, "dataset unavailable")
		return nil
	}
	return ds
}

// selectionFor parses the filter or writes a 400 and returns false.
func (s *Server) selectionFor(w http.ResponseWriter, r *http.Request, ds *loader.Dataset) (selection, bool) {
	sel, err := parseSelection(r.URL.Query(), s.cfg.Axis, ds.Categories)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return selection{}, false
	}
	return sel, true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady reports ready once a dataset has been loaded.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status, code := "ready", http.StatusOK
	checks := map[string]any{}

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status, code = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if ds := s.loader.Current(); ds == nil {
		checks["dataset"] = "not loaded"
		status, code = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["dataset"] = map[string]any{
			"source":      ds.Source,
			"fingerprint": ds.Fingerprint,
			"records":     ds.Summary.Kept,
			"loaded_at":   ds.LoadedAt.Format(time.RFC3339),
		}
	}

	checks["view_cache"] = map[string]any{"entries": s.viewCache.Size()}
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
		"rejected":       s.rateLimiter.Hits(),
	}
	checks["snapshots"] = s.publisher != nil
	tm := s.tracer.GetMetrics()
	checks["requests"] = map[string]any{
		"total":      tm.TotalRequests,
		"in_flight":  tm.InFlight,
		"suspicious": s.detector.SuspiciousRequests(),
	}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

type (
	categoryOption struct {
		Name     string
		Selected bool
	}

	indexData struct {
		Source           string
		Total            int
		Kept             int
		Dropped          int
		Reasons          []core.ReasonCount
		AxisYears        []int
		From, To         int
		Categories       []categoryOption
		Query            template.URL
		SnapshotsEnabled bool
	}
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		requestLogger(r).ErrorContext(r.Context(), "Templates not loaded", log.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	ds := s.dataset(w, r)
	if ds == nil {
		return
	}
	sel, ok := s.selectionFor(w, r, ds)
	if !ok {
		return
	}

	selected := make(map[string]bool, len(sel.Filter.Categories))
	for _, c := range sel.Filter.Categories {
		selected[c] = true
	}
	data := indexData{
		Source:           ds.Source,
		Total:            ds.Summary.Total,
		Kept:             ds.Summary.Kept,
		Dropped:          ds.Summary.Dropped,
		Reasons:          ds.Summary.Reasons(),
		AxisYears:        s.cfg.Axis.Years(),
		From:             sel.Filter.Years.Min,
		To:               sel.Filter.Years.Max,
		Query:            template.URL(encodeSelection(sel)),
		SnapshotsEnabled: s.publisher != nil,
	}
	for _, c := range ds.Categories {
		data.Categories = append(data.Categories, categoryOption{Name: c, Selected: selected[c]})
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "dashboard.html", data); err != nil {
		requestLogger(r).ErrorContext(r.Context(), "Template execution failed",
			log.FieldError, err, "template", "dashboard.html")
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

type reasonCount struct {
	Reason core.DropReason `json:"reason"`
	Count  int             `json:"count"`
}

func (s *Server) handleDataset(w http.ResponseWriter, r *http.Request) {
	ds := s.dataset(w, r)
	if ds == nil {
		return
	}
	reasons := make([]reasonCount, 0, len(ds.Summary.ByReason))
	for _, rc := range ds.Summary.Reasons() {
		reasons = append(reasons, reasonCount{Reason: rc.Reason, Count: rc.Count})
	}
	writeJSON(w, http.StatusOK, struct {
		*loader.Dataset
		Axis    core.YearRange `json:"axis"`
		Reasons []reasonCount  `json:"reasons"`
	}{ds, s.cfg.Axis, reasons})
}

func (s *Server) handleViews(w http.ResponseWriter, r *http.Request) {
	ds := s.dataset(w, r)
	if ds == nil {
		return
	}
	sel, ok := s.selectionFor(w, r, ds)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.dashboard(ds, sel.Filter))
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	ds := s.dataset(w, r)
	if ds == nil {
		return
	}
	sel, ok := s.selectionFor(w, r, ds)
	if !ok {
		return
	}
	name := r.PathValue("view")
	v, found := s.dashboard(ds, sel.Filter).Select(name)
	if !found {
		writeError(w, http.StatusNotFound, "unknown view "+name)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	name, isPNG := strings.CutSuffix(r.PathValue("file"), ".png")
	if !isPNG {
		writeError(w, http.StatusNotFound, "charts are served as .png")
		return
	}
	ds := s.dataset(w, r)
	if ds == nil {
		return
	}
	sel, ok := s.selectionFor(w, r, ds)
	if !ok {
		return
	}

	var buf bytes.Buffer
	err := render.WritePNG(&buf, s.dashboard(ds, sel.Filter), name, render.DefaultWidth, render.DefaultHeight)
	if errors.Is(err, render.ErrUnknownChart) {
		writeError(w, http.StatusNotFound, "unknown chart "+name)
		return
	}
	if err != nil {
		log.NewStructuredLogger(requestLogger(r)).LogError(r.Context(), "Chart render failed", err, log.OpRender,
			log.NewFields().WithFilter(sel.Filter.Years.Min, sel.Filter.Years.Max, sel.Filter.Categories))
		writeError(w, http.StatusInternalServerError, "chart rendering failed")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	ds := s.dataset(w, r)
	if ds == nil {
		return
	}
	sel, ok := s.selectionFor(w, r, ds)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := render.WriteWorkbook(&buf, s.dashboard(ds, sel.Filter), ds.Summary); err != nil {
		log.NewStructuredLogger(requestLogger(r)).LogError(r.Context(), "Workbook export failed", err, log.OpExport, nil)
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="waste-dashboard.xlsx"`)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	ds := s.dataset(w, r)
	if ds == nil {
		return
	}
	sel, ok := s.selectionFor(w, r, ds)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := render.WriteCSV(&buf, s.dashboard(ds, sel.Filter).Table); err != nil {
		log.NewStructuredLogger(requestLogger(r)).LogError(r.Context(), "CSV export failed", err, log.OpExport, nil)
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="waste-table.csv"`)
	_, _ = buf.WriteTo(w)
}

// handleSnapshot enqueues a snapshot of the requested filter. The worker
// loads the dataset itself, so only the selection travels.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.publisher == nil {
		writeError(w, http.StatusServiceUnavailable, "snapshots are disabled")
		return
	}
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form")
		return
	}
	ds := s.dataset(w, r)
	if ds == nil {
		return
	}
	sel, err := parseSelection(r.Form, s.cfg.Axis, ds.Categories)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var cats []string
	if !sel.AllCategories {
		cats = sel.Filter.Categories
	}
	req := amqp.NewSnapshotRequest(sel.Filter.Years, cats, sel.AllCategories)

	ctx, cancel := context.WithTimeout(r.Context(), publishTimeout)
	defer cancel()
	err = s.publisher.PublishSnapshot(ctx, req)
	s.metrics.ObserveSnapshot("enqueue", err)
	if err != nil {
		requestLogger(r).ErrorContext(r.Context(), "Snapshot publish failed",
			log.FieldJobID, req.ID, log.FieldError, err)
		status := http.StatusBadGateway
		if errors.Is(err, amqp.ErrCircuitOpen) {
			status = http.StatusServiceUnavailable
		}
		writeError(w, status, "snapshot could not be queued")
		return
	}

	requestLogger(r).InfoContext(r.Context(), "Snapshot queued",
		log.NewFields().
			WithOperation(log.OpSnapshot).
			WithFilter(sel.Filter.Years.Min, sel.Filter.Years.Max, sel.Filter.Categories).
			ToSlice()...)
	writeJSON(w, http.StatusAccepted, map[string]string{"id": req.ID, "status": "queued"})
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	requestLogger(r).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldPath, r.URL.Path)
	writeError(w, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
}
