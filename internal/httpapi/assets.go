package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"assetmap/internal/assets"
	"assetmap/internal/mapview"
	"assetmap/internal/sqlcgen"
)

const cacheScopeList = "list"

// assetFilter holds the trimmed filter fields; empty means no filter.
type assetFilter struct {
	Condition string
	AssetType string
	Search    string
}

func filterFromQuery(q url.Values) assetFilter {
	return assetFilter{
		Condition: strings.TrimSpace(q.Get("condition")),
		AssetType: strings.TrimSpace(q.Get("asset_type")),
		Search:    strings.TrimSpace(q.Get("search")),
	}
}

func (f assetFilter) params() sqlcgen.ListAssetsParams {
	return sqlcgen.ListAssetsParams{
		Condition: optional(f.Condition),
		AssetType: optional(f.AssetType),
		Search:    optional(f.Search),
	}
}

// cacheKey is the canonical query string of the active filters.
func (f assetFilter) cacheKey() string {
	return mapview.FilterParams{
		"condition":  f.Condition,
		"asset_type": f.AssetType,
		"search":     f.Search,
	}.NonEmpty().Encode()
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func toAsset(a sqlcgen.Asset) assets.Asset {
	out := assets.Asset{
		AssetID:   a.AssetID,
		Name:      a.Name,
		AssetType: a.AssetType,
		Latitude:  a.Latitude,
		Longitude: a.Longitude,
		Condition: a.Condition,
	}
	if a.LastInspected != nil {
		s := a.LastInspected.Format(assets.DateLayout)
		out.LastInspected = &s
	}
	return out
}

// loadAssets serves from the cache when one is configured. Cache failures
// are logged and fall through to the database. A miss is refilled under the
// key resolved at lookup, so an import that lands mid-read still hides it.
func (h *Handler) loadAssets(ctx context.Context, f assetFilter) ([]assets.Asset, error) {
	query := f.cacheKey()

	var storeKey string
	if h.cache != nil {
		entry, err := h.cache.Lookup(ctx, cacheScopeList, query)
		switch {
		case err != nil:
			h.log.Warn().Err(err).Str("query", query).Msg("asset cache lookup failed")
		case entry.Hit:
			var cached []assets.Asset
			if err := json.Unmarshal(entry.Payload, &cached); err == nil {
				h.metrics.IncCacheLookup(true)
				return cached, nil
			}
			h.log.Warn().Str("query", query).Msg("discarding undecodable asset cache entry")
			storeKey = entry.Key
		default:
			storeKey = entry.Key
		}
		h.metrics.IncCacheLookup(false)
	}

	rows, err := h.assets.ListAssets(ctx, f.params())
	if err != nil {
		return nil, err
	}
	out := make([]assets.Asset, 0, len(rows))
	for _, row := range rows {
		out = append(out, toAsset(row))
	}
	h.metrics.ObserveQueryResults(len(out))

	if storeKey != "" {
		if b, err := json.Marshal(out); err == nil {
			if err := h.cache.Store(ctx, storeKey, b); err != nil {
				h.log.Warn().Err(err).Str("query", query).Msg("asset cache store failed")
			}
		}
	}
	return out, nil
}

func (h *Handler) handleListAssets(w http.ResponseWriter, r *http.Request) {
	if !h.ensureAssets(w) {
		return
	}

	list, err := h.loadAssets(r.Context(), filterFromQuery(r.URL.Query()))
	if err != nil {
		h.log.Error().Err(err).Msg("list assets failed")
		h.writeError(w, http.StatusInternalServerError, "db_error", "failed to list assets", nil)
		return
	}

	h.writeJSON(w, http.StatusOK, list)
}

func (h *Handler) handleListAssetTypes(w http.ResponseWriter, r *http.Request) {
	if !h.ensureAssets(w) {
		return
	}

	types, err := h.assets.ListAssetTypes(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("list asset types failed")
		h.writeError(w, http.StatusInternalServerError, "db_error", "failed to list asset types", nil)
		return
	}
	if types == nil {
		types = []string{}
	}

	h.writeJSON(w, http.StatusOK, types)
}

type markerLayerResponse struct {
	Count   int              `json:"count"`
	Label   string           `json:"label"`
	Markers []mapview.Marker `json:"markers"`
}

// handleListMarkers returns the marker layer for a filter, ready to draw.
func (h *Handler) handleListMarkers(w http.ResponseWriter, r *http.Request) {
	if !h.ensureAssets(w) {
		return
	}

	list, err := h.loadAssets(r.Context(), filterFromQuery(r.URL.Query()))
	if err != nil {
		h.log.Error().Err(err).Msg("list markers failed")
		h.writeError(w, http.StatusInternalServerError, "db_error", "failed to list assets", nil)
		return
	}

	h.writeJSON(w, http.StatusOK, markerLayerResponse{
		Count:   len(list),
		Label:   mapview.CountLabel(len(list)),
		Markers: mapview.BuildMarkers(list),
	})
}
