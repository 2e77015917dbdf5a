package sqlcgen

import "time"

type Asset struct {
	ID            int64
	AssetID       string
	Name          string
	AssetType     string
	Latitude      float64
	Longitude     float64
	Condition     string
	LastInspected *time.Time
	CreatedAt     time.Time
}
