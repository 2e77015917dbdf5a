package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"

	"assetmap/internal/cache"
	"assetmap/internal/db"
	"assetmap/internal/metrics"
	"assetmap/internal/sqlcgen"
)

type assetQueries interface {
	ListAssets(ctx context.Context, arg sqlcgen.ListAssetsParams) ([]sqlcgen.Asset, error)
	ListAssetTypes(ctx context.Context) ([]string, error)
}

type assetImporter interface {
	ImportAssets(ctx context.Context, rows []sqlcgen.UpsertAssetParams) (db.ImportStats, error)
}

// AssetCache stores serialized asset lists. *cache.Client satisfies it.
// Store takes the key a Lookup resolved.
type AssetCache interface {
	Lookup(ctx context.Context, scope, query string) (cache.Entry, error)
	Store(ctx context.Context, key string, payload []byte) error
	Invalidate(ctx context.Context) error
}

type Options struct {
	Metrics *metrics.Metrics
	Cache   AssetCache
	// ImportRateLimit is the number of uploads allowed per client IP per
	// minute. Defaults to 10.
	ImportRateLimit int
}

type Handler struct {
	log         zerolog.Logger
	pool        *db.Pool
	assets      assetQueries
	importer    assetImporter
	cache       AssetCache
	metrics     *metrics.Metrics
	importLimit int
	pages       pageSet
}

func NewHandler(log zerolog.Logger, pool *db.Pool, opts Options) *Handler {
	h := &Handler{
		log:         log,
		pool:        pool,
		cache:       opts.Cache,
		metrics:     opts.Metrics,
		importLimit: opts.ImportRateLimit,
		pages:       mustParsePages(),
	}
	if h.importLimit <= 0 {
		h.importLimit = 10
	}
	if pool != nil {
		h.assets = pool.Queries()
		h.importer = pool
	}
	return h
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(echoRequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))
	r.Use(h.accessLog)

	// Uploads share one budget across the HTML form and the API.
	limitImports := httprate.LimitByIP(h.importLimit, time.Minute)

	// Health
	r.Get("/healthz", h.handleHealthz)
	r.Get("/readyz", h.handleReadyZ)
	r.Handle("/metrics", h.metrics.Handler())

	// Pages
	r.Get("/", h.handleDashboard)
	r.Get("/upload", h.handleUploadPage)
	r.With(limitImports).Post("/upload", h.handleUploadSubmit)
	r.Handle("/static/*", staticHandler())

	// API
	r.Route("/api", func(r chi.Router) {
		r.Get("/assets", h.handleListAssets)
		r.With(limitImports).Post("/assets/import", h.handleImportAssets)
		r.Get("/asset-types", h.handleListAssetTypes)
		r.Get("/markers", h.handleListMarkers)
	})

	r.NotFound(h.handleNotFound)

	return r
}

func (h *Handler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		duration := time.Since(start)
		h.metrics.ObserveHTTPRequest(r.Method, route, ww.Status(), duration)

		h.log.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Int64("duration_ms", duration.Milliseconds()).
			Msg("http_request")
	})
}

// echoRequestID returns the request id to the caller.
func echoRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			w.Header().Set(middleware.RequestIDHeader, id)
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, msg string, details map[string]any) {
	resp := map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": msg,
		},
	}
	if details != nil {
		resp["error"].(map[string]any)["details"] = details
	}
	h.writeJSON(w, status, resp)
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) handleReadyZ(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if h.pool == nil {
		h.writeError(w, http.StatusServiceUnavailable, "db_unavailable", "database not configured", nil)
		return
	}

	if err := h.pool.Ping(ctx); err != nil {
		h.writeError(w, http.StatusServiceUnavailable, "db_unavailable", "database not ready", map[string]any{"error": err.Error()})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"ready": true})
}

func (h *Handler) ensureAssets(w http.ResponseWriter) bool {
	if h.assets == nil {
		h.writeError(w, http.StatusServiceUnavailable, "db_unavailable", "database not configured", nil)
		return false
	}
	return true
}
