package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"assetmap/internal/sqlcgen"
)

type ImportStats struct {
	Created int
	Updated int
}

// ImportAssets upserts rows keyed by asset_id in a single transaction. Either
// every row is written or none is.
func (p *Pool) ImportAssets(ctx context.Context, rows []sqlcgen.UpsertAssetParams) (ImportStats, error) {
	var stats ImportStats
	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		q := p.Queries().WithTx(tx)
		for _, row := range rows {
			inserted, err := q.UpsertAsset(ctx, row)
			if err != nil {
				return fmt.Errorf("upsert asset %s: %w", row.AssetID, err)
			}
			if inserted {
				stats.Created++
			} else {
				stats.Updated++
			}
		}
		return nil
	})
	if err != nil {
		return ImportStats{}, err
	}
	return stats, nil
}
