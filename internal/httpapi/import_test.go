package httpapi

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"assetmap/internal/db"
	"assetmap/internal/sqlcgen"
)

const header = "asset_id,name,asset_type,latitude,longitude,condition,last_inspected\n"

func multipartRequest(t *testing.T, path, filename, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestImport_CreatesAndUpdates(t *testing.T) {
	var got []sqlcgen.UpsertAssetParams
	h := newTestHandler(fakeAssetQueries{}, fakeImporter{
		importFn: func(ctx context.Context, rows []sqlcgen.UpsertAssetParams) (db.ImportStats, error) {
			got = rows
			return db.ImportStats{Created: 1, Updated: 1}, nil
		},
	}, Options{})

	csv := header +
		"BR-001,Forth Bridge,bridge,56.0,-3.39,good,2024-03-01\n" +
		"RD-002,A9,road,57.1,-4.0,poor,\n" +
		"XX-003,Broken,road,abc,-4.0,good,\n"

	rr := httptest.NewRecorder()
	h.Router().ServeHTTP(rr, multipartRequest(t, "/api/assets/import", "assets.csv", csv))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	body := decodeBody(t, rr)
	if body["created"] != float64(1) || body["updated"] != float64(1) {
		t.Fatalf("unexpected counts: %v", body)
	}
	if id, _ := body["batch_id"].(string); id == "" {
		t.Fatalf("expected batch_id, got %v", body)
	}
	errs, _ := body["errors"].([]any)
	if len(errs) != 1 || errs[0] != "Row 4: Invalid coordinates" {
		t.Fatalf("unexpected row errors: %v", body["errors"])
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 rows upserted, got %d", len(got))
	}
	if got[0].AssetID != "BR-001" || got[0].LastInspected == nil || got[0].LastInspected.Format("2006-01-02") != "2024-03-01" {
		t.Fatalf("unexpected first row: %+v", got[0])
	}
	if got[1].LastInspected != nil {
		t.Fatalf("expected no inspection date, got %v", got[1].LastInspected)
	}
}

func TestImport_MissingColumns(t *testing.T) {
	called := false
	h := newTestHandler(fakeAssetQueries{}, fakeImporter{
		importFn: func(ctx context.Context, rows []sqlcgen.UpsertAssetParams) (db.ImportStats, error) {
			called = true
			return db.ImportStats{}, nil
		},
	}, Options{})

	rr := httptest.NewRecorder()
	h.Router().ServeHTTP(rr, multipartRequest(t, "/api/assets/import", "assets.csv", "asset_id,name\nA,B\n"))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "Missing required columns: asset_type, condition, latitude, longitude") {
		t.Fatalf("expected missing-columns message, got %s", rr.Body.String())
	}
	if called {
		t.Fatalf("importer must not run when columns are missing")
	}
}

func TestImport_AllRowsRejected(t *testing.T) {
	h := newTestHandler(fakeAssetQueries{}, fakeImporter{}, Options{})

	csv := header + "A,Name,road,56,-4,excellent,\n"
	rr := httptest.NewRecorder()
	h.Router().ServeHTTP(rr, multipartRequest(t, "/api/assets/import", "assets.csv", csv))

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rr.Code, rr.Body.String())
	}
	if got := errorCode(t, rr); got != "import_rejected" {
		t.Fatalf("expected import_rejected, got %q", got)
	}
}

func TestImport_HeaderOnlySucceeds(t *testing.T) {
	h := newTestHandler(fakeAssetQueries{}, fakeImporter{}, Options{})

	rr := httptest.NewRecorder()
	h.Router().ServeHTTP(rr, multipartRequest(t, "/api/assets/import", "assets.csv", header))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	if body["created"] != float64(0) || body["updated"] != float64(0) {
		t.Fatalf("expected zero counts, got %v", body)
	}
}

func TestImport_RejectsNonCSV(t *testing.T) {
	h := newTestHandler(fakeAssetQueries{}, fakeImporter{}, Options{})

	rr := httptest.NewRecorder()
	h.Router().ServeHTTP(rr, multipartRequest(t, "/api/assets/import", "assets.xlsx", header))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "CSV files only.") {
		t.Fatalf("unexpected body: %s", rr.Body.String())
	}
}

func TestImport_RequiresFile(t *testing.T) {
	h := newTestHandler(fakeAssetQueries{}, fakeImporter{}, Options{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("other", "x")
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/assets/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rr := httptest.NewRecorder()
	h.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if got := errorCode(t, rr); got != "validation_failed" {
		t.Fatalf("expected validation_failed, got %q", got)
	}
}

func TestImport_NoDatabase(t *testing.T) {
	h := NewHandler(testLogger(), nil, Options{})

	rr := httptest.NewRecorder()
	h.Router().ServeHTTP(rr, multipartRequest(t, "/api/assets/import", "assets.csv", header))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}

func TestImport_DBError(t *testing.T) {
	h := newTestHandler(fakeAssetQueries{}, fakeImporter{
		importFn: func(ctx context.Context, rows []sqlcgen.UpsertAssetParams) (db.ImportStats, error) {
			return db.ImportStats{}, errors.New("deadlock detected")
		},
	}, Options{})

	csv := header + "A,Name,road,56,-4,good,\n"
	rr := httptest.NewRecorder()
	h.Router().ServeHTTP(rr, multipartRequest(t, "/api/assets/import", "assets.csv", csv))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if got := errorCode(t, rr); got != "db_error" {
		t.Fatalf("expected db_error, got %q", got)
	}
}

func TestImport_InvalidatesCache(t *testing.T) {
	c := newFakeCache()
	c.entries[c.key("list", "")] = []byte("[]")
	h := newTestHandler(fakeAssetQueries{}, fakeImporter{}, Options{Cache: c})

	csv := header + "A,Name,road,56,-4,good,\n"
	rr := httptest.NewRecorder()
	h.Router().ServeHTTP(rr, multipartRequest(t, "/api/assets/import", "assets.csv", csv))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if c.invalidated != 1 {
		t.Fatalf("expected one invalidation, got %d", c.invalidated)
	}
	if c.has("list", "") {
		t.Fatalf("expected pre-import entry to be unreachable, have %v", c.entries)
	}
}

func TestImport_RateLimited(t *testing.T) {
	h := newTestHandler(fakeAssetQueries{}, fakeImporter{}, Options{ImportRateLimit: 1})
	router := h.Router()

	csv := header + "A,Name,road,56,-4,good,\n"
	first := httptest.NewRecorder()
	router.ServeHTTP(first, multipartRequest(t, "/api/assets/import", "assets.csv", csv))
	if first.Code != http.StatusOK {
		t.Fatalf("expected first upload to pass, got %d", first.Code)
	}

	second := httptest.NewRecorder()
	router.ServeHTTP(second, multipartRequest(t, "/api/assets/import", "assets.csv", csv))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", second.Code)
	}
}
