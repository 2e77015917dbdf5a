package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"assetmap/internal/assets"
	"assetmap/internal/sqlcgen"
)

const maxUploadBytes = 16 << 20

type importOutcome struct {
	BatchID  string   `json:"batch_id"`
	Created  int      `json:"created"`
	Updated  int      `json:"updated"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// importFailure describes why nothing was imported.
type importFailure struct {
	Status   int
	Code     string
	Message  string
	Messages []string
}

func (f *importFailure) Error() string { return f.Message }

// readUpload extracts the "file" part of a multipart upload.
func readUpload(w http.ResponseWriter, r *http.Request) (multipart.File, *importFailure) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			return nil, &importFailure{Status: http.StatusRequestEntityTooLarge, Code: "payload_too_large", Message: "File too large. Maximum size is 16MB."}
		}
		return nil, &importFailure{Status: http.StatusBadRequest, Code: "validation_failed", Message: "invalid multipart body"}
	}

	file, hdr, err := r.FormFile("file")
	if err != nil {
		return nil, &importFailure{Status: http.StatusBadRequest, Code: "validation_failed", Message: "file is required"}
	}
	if !strings.EqualFold(filepath.Ext(hdr.Filename), ".csv") {
		_ = file.Close()
		return nil, &importFailure{Status: http.StatusBadRequest, Code: "validation_failed", Message: "CSV files only."}
	}
	return file, nil
}

func toUpsertParams(a assets.Asset) sqlcgen.UpsertAssetParams {
	p := sqlcgen.UpsertAssetParams{
		AssetID:   a.AssetID,
		Name:      a.Name,
		AssetType: a.AssetType,
		Latitude:  a.Latitude,
		Longitude: a.Longitude,
		Condition: a.Condition,
	}
	if a.LastInspected != nil {
		if d, err := time.Parse(assets.DateLayout, *a.LastInspected); err == nil {
			p.LastInspected = &d
		}
	}
	return p
}

// importCSV parses and upserts one upload. Rows with errors are skipped; if
// every row was rejected nothing is written.
func (h *Handler) importCSV(ctx context.Context, r io.Reader) (importOutcome, *importFailure) {
	out := importOutcome{BatchID: uuid.NewString(), Errors: []string{}, Warnings: []string{}}

	res, err := assets.ParseCSV(r)
	if err != nil {
		var missing *assets.MissingColumnsError
		if errors.As(err, &missing) {
			return out, &importFailure{Status: http.StatusBadRequest, Code: "validation_failed", Message: missing.Error(), Messages: []string{missing.Error()}}
		}
		return out, &importFailure{Status: http.StatusBadRequest, Code: "validation_failed", Message: "invalid csv file", Messages: []string{err.Error()}}
	}
	out.Errors = append(out.Errors, res.Errors...)
	out.Warnings = append(out.Warnings, res.Warnings...)

	if len(res.Errors) > 0 && len(res.Assets) == 0 {
		h.metrics.ObserveImport(0, 0, len(res.Errors))
		return out, &importFailure{Status: http.StatusUnprocessableEntity, Code: "import_rejected", Message: "no valid rows to import", Messages: res.Errors}
	}

	rows := make([]sqlcgen.UpsertAssetParams, 0, len(res.Assets))
	for _, a := range res.Assets {
		rows = append(rows, toUpsertParams(a))
	}

	stats, err := h.importer.ImportAssets(ctx, rows)
	if err != nil {
		h.log.Error().Err(err).Str("batch_id", out.BatchID).Msg("asset import failed")
		return out, &importFailure{Status: http.StatusInternalServerError, Code: "db_error", Message: "failed to import assets"}
	}
	out.Created, out.Updated = stats.Created, stats.Updated
	h.metrics.ObserveImport(stats.Created, stats.Updated, len(res.Errors))

	if h.cache != nil {
		if err := h.cache.Invalidate(ctx); err != nil {
			h.log.Warn().Err(err).Str("batch_id", out.BatchID).Msg("asset cache invalidation failed")
		}
	}

	h.log.Info().
		Str("batch_id", out.BatchID).
		Int("created", stats.Created).
		Int("updated", stats.Updated).
		Int("rejected", len(res.Errors)).
		Int("warnings", len(res.Warnings)).
		Msg("assets imported")
	return out, nil
}

func (h *Handler) handleImportAssets(w http.ResponseWriter, r *http.Request) {
	if h.importer == nil {
		h.writeError(w, http.StatusServiceUnavailable, "db_unavailable", "database not configured", nil)
		return
	}

	file, fail := readUpload(w, r)
	if fail != nil {
		h.writeError(w, fail.Status, fail.Code, fail.Message, nil)
		return
	}
	defer file.Close()

	out, fail := h.importCSV(r.Context(), file)
	if fail != nil {
		var details map[string]any
		if len(fail.Messages) > 0 {
			details = map[string]any{"errors": fail.Messages}
		}
		h.writeError(w, fail.Status, fail.Code, fail.Message, details)
		return
	}

	h.writeJSON(w, http.StatusOK, out)
}

func importSummary(out importOutcome) string {
	return fmt.Sprintf("Successfully imported %d new and updated %d existing assets.", out.Created, out.Updated)
}
