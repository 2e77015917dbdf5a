package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"assetmap/internal/assets"
	"assetmap/internal/db"
)

func requireTestDatabaseURL(t *testing.T) string {
	t.Helper()
	dsn := strings.TrimSpace(os.Getenv("TEST_DATABASE_URL"))
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping Postgres integration test")
	}
	return dsn
}

func mustDeriveDatabaseURL(t *testing.T, baseURL, dbName string) string {
	t.Helper()

	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		t.Skipf("TEST_DATABASE_URL must be a URL-style DSN (e.g. postgres://...); got %q", baseURL)
	}

	u.Path = "/" + dbName
	return u.String()
}

func newTestDatabaseName() string {
	// Safe identifier (letters/digits/underscores) so we can use it without quoting.
	return fmt.Sprintf("assetmap_test_%d", time.Now().UnixNano())
}

func createDatabase(ctx context.Context, adminURL, dbName string) error {
	adminConn, err := pgx.Connect(ctx, adminURL)
	if err != nil {
		return err
	}
	defer adminConn.Close(ctx)

	_, err = adminConn.Exec(ctx, "CREATE DATABASE "+dbName)
	return err
}

func dropDatabase(ctx context.Context, adminURL, dbName string) error {
	adminConn, err := pgx.Connect(ctx, adminURL)
	if err != nil {
		return err
	}
	defer adminConn.Close(ctx)

	if _, err := adminConn.Exec(ctx, "DROP DATABASE "+dbName+" WITH (FORCE)"); err == nil {
		return nil
	}
	_, err = adminConn.Exec(ctx, "DROP DATABASE "+dbName)
	return err
}

// openTestPool creates a throwaway database, migrates it and returns a pool.
func openTestPool(t *testing.T) *db.Pool {
	t.Helper()

	adminURL := requireTestDatabaseURL(t)
	dbName := newTestDatabaseName()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := createDatabase(ctx, adminURL, dbName); err != nil {
		t.Fatalf("create database: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := dropDatabase(ctx, adminURL, dbName); err != nil {
			t.Logf("drop database %s: %v", dbName, err)
		}
	})

	pool, err := db.Open(ctx, mustDeriveDatabaseURL(t, adminURL, dbName))
	if err != nil {
		t.Fatalf("open pool: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := pool.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return pool
}

func getAssets(t *testing.T, router http.Handler, query string) []assets.Asset {
	t.Helper()
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/assets"+query, nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("GET /api/assets%s: expected 200, got %d: %s", query, rr.Code, rr.Body.String())
	}
	var list []assets.Asset
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return list
}

func TestPostgres_ImportUpsertAndFilter(t *testing.T) {
	pool := openTestPool(t)
	router := NewHandler(testLogger(), pool, Options{}).Router()

	first := header +
		"BR-001,Forth Bridge,bridge,56.0,-3.39,good,2024-03-01\n" +
		"RD-002,A9 Dunkeld,road,56.56,-3.58,poor,\n" +
		"BR-003,Kessock Bridge,bridge,57.5,-4.23,moderate,\n"

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, multipartRequest(t, "/api/assets/import", "assets.csv", first))
	if rr.Code != http.StatusOK {
		t.Fatalf("first import: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	if body["created"] != float64(3) || body["updated"] != float64(0) {
		t.Fatalf("first import counts: %v", body)
	}

	second := header + "RD-002,A9 Dunkeld,road,56.56,-3.58,good,2025-01-10\n"
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, multipartRequest(t, "/api/assets/import", "assets.csv", second))
	body = decodeBody(t, rr)
	if body["created"] != float64(0) || body["updated"] != float64(1) {
		t.Fatalf("second import counts: %v", body)
	}

	all := getAssets(t, router, "")
	if len(all) != 3 {
		t.Fatalf("expected 3 assets, got %d", len(all))
	}
	if all[0].AssetID != "BR-001" || all[1].AssetID != "RD-002" || all[2].AssetID != "BR-003" {
		t.Fatalf("expected insertion order, got %v", all)
	}
	if all[1].Condition != "good" || all[1].LastInspected == nil || *all[1].LastInspected != "2025-01-10" {
		t.Fatalf("expected RD-002 to be updated, got %+v", all[1])
	}

	if got := getAssets(t, router, "?asset_type=bridge"); len(got) != 2 {
		t.Fatalf("asset_type filter: expected 2, got %d", len(got))
	}
	if got := getAssets(t, router, "?condition=good&asset_type=bridge"); len(got) != 1 || got[0].AssetID != "BR-001" {
		t.Fatalf("combined filter: got %v", got)
	}
	if got := getAssets(t, router, "?search=kessock"); len(got) != 1 || got[0].AssetID != "BR-003" {
		t.Fatalf("name search: got %v", got)
	}
	if got := getAssets(t, router, "?search=rd-0"); len(got) != 1 || got[0].AssetID != "RD-002" {
		t.Fatalf("asset_id search: got %v", got)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/asset-types", nil))
	var types []string
	if err := json.Unmarshal(rr.Body.Bytes(), &types); err != nil {
		t.Fatalf("decode types: %v", err)
	}
	if strings.Join(types, ",") != "bridge,road" {
		t.Fatalf("expected sorted distinct types, got %v", types)
	}
}

func TestPostgres_Readyz(t *testing.T) {
	pool := openTestPool(t)
	router := NewHandler(testLogger(), pool, Options{}).Router()

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
}
