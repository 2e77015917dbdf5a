package sqlcgen

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX matches the minimal interface needed from pgxpool.Pool or pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgx.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

const listAssets = `-- name: ListAssets :many
SELECT id,
       asset_id,
       name,
       asset_type,
       latitude,
       longitude,
       condition,
       last_inspected,
       created_at
FROM assets
WHERE ($1::text IS NULL OR condition = $1::text)
  AND ($2::text IS NULL OR asset_type = $2::text)
  AND (
    $3::text IS NULL
    OR name ILIKE '%' || $3::text || '%'
    OR asset_id ILIKE '%' || $3::text || '%'
  )
ORDER BY id
`

type ListAssetsParams struct {
	Condition *string
	AssetType *string
	Search    *string
}

func (q *Queries) ListAssets(ctx context.Context, arg ListAssetsParams) ([]Asset, error) {
	rows, err := q.db.Query(ctx, listAssets, arg.Condition, arg.AssetType, arg.Search)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Asset
	for rows.Next() {
		var i Asset
		if err := rows.Scan(
			&i.ID,
			&i.AssetID,
			&i.Name,
			&i.AssetType,
			&i.Latitude,
			&i.Longitude,
			&i.Condition,
			&i.LastInspected,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listAssetTypes = `-- name: ListAssetTypes :many
SELECT DISTINCT asset_type
FROM assets
ORDER BY asset_type
`

func (q *Queries) ListAssetTypes(ctx context.Context) ([]string, error) {
	rows, err := q.db.Query(ctx, listAssetTypes)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const upsertAsset = `-- name: UpsertAsset :one
INSERT INTO assets (
  asset_id,
  name,
  asset_type,
  latitude,
  longitude,
  condition,
  last_inspected
)
VALUES ($1, $2, $3, $4, $5, $6, $7::date)
ON CONFLICT (asset_id) DO UPDATE
SET name = EXCLUDED.name,
    asset_type = EXCLUDED.asset_type,
    latitude = EXCLUDED.latitude,
    longitude = EXCLUDED.longitude,
    condition = EXCLUDED.condition,
    last_inspected = EXCLUDED.last_inspected
RETURNING (xmax = 0) AS inserted
`

type UpsertAssetParams struct {
	AssetID       string
	Name          string
	AssetType     string
	Latitude      float64
	Longitude     float64
	Condition     string
	LastInspected *time.Time
}

// UpsertAsset reports whether the row was newly inserted.
func (q *Queries) UpsertAsset(ctx context.Context, arg UpsertAssetParams) (bool, error) {
	row := q.db.QueryRow(
		ctx,
		upsertAsset,
		arg.AssetID,
		arg.Name,
		arg.AssetType,
		arg.Latitude,
		arg.Longitude,
		arg.Condition,
		arg.LastInspected,
	)
	var inserted bool
	err := row.Scan(&inserted)
	return inserted, err
}
