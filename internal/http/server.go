// Package http serves the dashboard page, the JSON views, chart images and
// exports over a single net/http ServeMux.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"wastedash/internal/amqp"
	"wastedash/internal/cache"
	"wastedash/internal/core"
	"wastedash/internal/loader"
	"wastedash/internal/log"
	"wastedash/internal/metrics"
	"wastedash/internal/middleware/ratelimit"
	"wastedash/internal/middleware/security"
	"wastedash/internal/middleware/trace"
	"wastedash/internal/views"
	appweb "wastedash/web"
)

const (
	cacheCleanupInterval = 5 * time.Minute
	publishTimeout       = 5 * time.Second
	staticMaxAge         = 3600
)

type (
	// DatasetLoader yields the current dataset, re-parsing on source change.
	DatasetLoader interface {
		Load(ctx context.Context) (*loader.Dataset, error)
		Current() *loader.Dataset
	}

	// SnapshotPublisher enqueues snapshot jobs for the worker.
	SnapshotPublisher interface {
		PublishSnapshot(ctx context.Context, req *amqp.SnapshotRequest) error
	}
)

// Config holds the server settings that come from the environment.
type Config struct {
	Addr         string
	Axis         core.YearRange
	CacheSize    int
	CacheTTL     time.Duration
	RateLimitRPM int
}

type Server struct {
	http.Server

	cfg       Config
	templates *template.Template
	loader    DatasetLoader
	publisher SnapshotPublisher
	metrics   *metrics.Metrics
	logger    *log.Logger

	viewCache    *cache.LRUCache[views.Dashboard]
	cacheManager *cache.Manager
	rateLimiter  *ratelimit.Limiter
	detector     *security.Detector
	tracer       *trace.Middleware

	fpMu        sync.Mutex
	fingerprint string

	started      time.Time
	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run server.
// publisher may be nil, in which case snapshot requests answer 503.
func NewServer(cfg Config, l DatasetLoader, publisher SnapshotPublisher, m *metrics.Metrics, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		cfg:          cfg,
		loader:       l,
		publisher:    publisher,
		metrics:      m,
		logger:       logger,
		viewCache:    cache.NewLRUCache[views.Dashboard](cfg.CacheSize, cfg.CacheTTL),
		cacheManager: cache.NewManager(logger),
		rateLimiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitRPM}),
		detector:     security.NewDetector(),
		started:      time.Now(),
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP, m)
	s.cacheManager.Register(s.viewCache)
	s.cacheManager.StartCleanup(cacheCleanupInterval)

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates", log.FieldError, err)
	}
	s.templates = t

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(staticMaxAge)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	limited := s.rateLimiter.Middleware(s.detector.ExtractClientIP, s.onRateLimit)

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", s.metrics.Handler())

	mux.HandleFunc("GET /api/dataset", s.handleDataset)
	mux.HandleFunc("GET /api/views", s.handleViews)
	mux.HandleFunc("GET /api/views/{view}", s.handleView)
	mux.HandleFunc("GET /charts/{file}", s.handleChart)
	mux.Handle("GET /export.xlsx", limited(http.HandlerFunc(s.handleExportXLSX)))
	mux.Handle("GET /export.csv", limited(http.HandlerFunc(s.handleExportCSV)))
	mux.Handle("POST /snapshots", limited(http.HandlerFunc(s.handleSnapshot)))

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	return s.tracer.Middleware(s.detector.Middleware(s.logger)(headers.Middleware(mux)))
}

// Shutdown stops background routines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// dashboard returns the views for f over ds, from the cache when possible.
// A new dataset fingerprint evicts every entry computed for older ones.
func (s *Server) dashboard(ds *loader.Dataset, f core.Filter) views.Dashboard {
	prefix := ds.Fingerprint + "/"

	s.fpMu.Lock()
	if s.fingerprint != ds.Fingerprint {
		if n := s.viewCache.DeleteExcept(prefix); n > 0 {
			s.logger.Debug("View cache invalidated", log.FieldFingerprint, ds.Fingerprint, "removed", n)
		}
		s.fingerprint = ds.Fingerprint
	}
	s.fpMu.Unlock()

	d, hit := s.viewCache.GetOrCompute(prefix+f.CacheKey(), func() views.Dashboard {
		return views.Build(aggregateFor(ds, f), s.cfg.Axis)
	})
	s.metrics.ObserveViewCache(hit)
	return d
}
