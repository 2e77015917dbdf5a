package mapview

import (
	"fmt"
	"html"
	"strings"

	"assetmap/internal/assets"
)

const (
	ColorGood     = "#28a745"
	ColorModerate = "#ffc107"
	ColorPoor     = "#dc3545"
	ColorUnknown  = "#6c757d"
)

var palette = map[string]string{
	assets.ConditionGood:     ColorGood,
	assets.ConditionModerate: ColorModerate,
	assets.ConditionPoor:     ColorPoor,
}

// ConditionColor maps a condition rating to its marker fill color. Unknown
// and empty ratings get the neutral gray.
func ConditionColor(condition string) string {
	if c, ok := palette[condition]; ok {
		return c
	}
	return ColorUnknown
}

// MarkerStyle mirrors the circle marker options understood by the browser
// map library.
type MarkerStyle struct {
	Radius      int     `json:"radius"`
	FillColor   string  `json:"fillColor"`
	Color       string  `json:"color"`
	Weight      int     `json:"weight"`
	Opacity     float64 `json:"opacity"`
	FillOpacity float64 `json:"fillOpacity"`
}

func styleFor(condition string) MarkerStyle {
	return MarkerStyle{
		Radius:      8,
		FillColor:   ConditionColor(condition),
		Color:       "#fff",
		Weight:      2,
		Opacity:     1,
		FillOpacity: 0.85,
	}
}

type Marker struct {
	AssetID  string      `json:"asset_id"`
	Position LatLng      `json:"position"`
	Style    MarkerStyle `json:"style"`
	Popup    string      `json:"popup"`
}

func NewMarker(a assets.Asset) Marker {
	return Marker{
		AssetID:  a.AssetID,
		Position: LatLng{Lat: a.Latitude, Lng: a.Longitude},
		Style:    styleFor(a.Condition),
		Popup:    PopupHTML(a),
	}
}

// BuildMarkers keeps response order.
func BuildMarkers(list []assets.Asset) []Marker {
	out := make([]Marker, 0, len(list))
	for _, a := range list {
		out = append(out, NewMarker(a))
	}
	return out
}

// EscapeHTML neutralizes the characters that could open an element or
// attribute: & < > " '.
func EscapeHTML(text string) string {
	return html.EscapeString(text)
}

// PopupHTML renders the popup body for an asset. Every interpolated value is
// escaped; the inspection line is omitted when the date is absent.
func PopupHTML(a assets.Asset) string {
	var sb strings.Builder
	sb.WriteString("<strong>" + EscapeHTML(a.Name) + "</strong><br>")
	sb.WriteString("ID: " + EscapeHTML(a.AssetID) + "<br>")
	sb.WriteString("Type: " + EscapeHTML(a.AssetType) + "<br>")
	sb.WriteString("Condition: " + EscapeHTML(a.Condition) + "<br>")
	if a.LastInspected != nil && *a.LastInspected != "" {
		sb.WriteString("Inspected: " + EscapeHTML(*a.LastInspected))
	}
	return sb.String()
}

const LoadErrorLabel = "unable to load assets"

func CountLabel(n int) string {
	return fmt.Sprintf("%d asset(s) displayed", n)
}
