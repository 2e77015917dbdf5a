// Package assets holds the inspected-asset record shared by the store, the
// HTTP API and the map controller.
package assets

const (
	ConditionGood     = "good"
	ConditionModerate = "moderate"
	ConditionPoor     = "poor"
)

// Conditions lists the accepted condition ratings in display order.
var Conditions = []string{ConditionGood, ConditionModerate, ConditionPoor}

// DateLayout is the wire and CSV format of last_inspected.
const DateLayout = "2006-01-02"

// Asset is the JSON shape served by GET /api/assets.
type Asset struct {
	AssetID       string  `json:"asset_id"`
	Name          string  `json:"name"`
	AssetType     string  `json:"asset_type"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	Condition     string  `json:"condition"`
	LastInspected *string `json:"last_inspected"`
}

func ValidCondition(condition string) bool {
	for _, c := range Conditions {
		if c == condition {
			return true
		}
	}
	return false
}

// Bounds is an inclusive latitude/longitude box.
type Bounds struct {
	LatMin, LatMax float64
	LonMin, LonMax float64
}

// Scotland is the region imported assets are expected to fall inside.
var Scotland = Bounds{LatMin: 54.5, LatMax: 61.0, LonMin: -8.0, LonMax: -0.7}

func (b Bounds) Contains(lat, lon float64) bool {
	return b.LatMin <= lat && lat <= b.LatMax && b.LonMin <= lon && lon <= b.LonMax
}

func WithinScotland(lat, lon float64) bool {
	return Scotland.Contains(lat, lon)
}
