package mapview

import (
	"net/url"
	"sync"
)

type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type TileLayer struct {
	URLTemplate string `json:"url_template"`
	Attribution string `json:"attribution"`
	MaxZoom     int    `json:"max_zoom"`
}

// View is the initial map state handed to the map library.
type View struct {
	Center LatLng    `json:"center"`
	Zoom   int       `json:"zoom"`
	Tiles  TileLayer `json:"tiles"`
}

// DefaultView centres on Scotland over OpenStreetMap tiles.
var DefaultView = View{
	Center: LatLng{Lat: 56.49, Lng: -4.2},
	Zoom:   7,
	Tiles: TileLayer{
		URLTemplate: "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png",
		Attribution: `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors`,
		MaxZoom:     18,
	},
}

// MarkerLayer holds the markers currently on the map. It is only ever
// replaced wholesale.
type MarkerLayer struct {
	mu      sync.RWMutex
	markers []Marker
}

func (l *MarkerLayer) Clear() {
	l.mu.Lock()
	l.markers = nil
	l.mu.Unlock()
}

// Replace clears the layer and adds ms in order under a single lock, so
// readers never observe a half-drawn layer.
func (l *MarkerLayer) Replace(ms []Marker) {
	l.mu.Lock()
	l.markers = append(make([]Marker, 0, len(ms)), ms...)
	l.mu.Unlock()
}

func (l *MarkerLayer) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.markers)
}

// Markers returns a copy of the layer contents.
func (l *MarkerLayer) Markers() []Marker {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Marker(nil), l.markers...)
}

// FilterParams are sent verbatim as query parameters. A missing key means
// "no filter on this field".
type FilterParams map[string]string

// FilterParamsFromForm keeps only fields with a non-empty value. For a
// repeated field the last non-empty value wins.
func FilterParamsFromForm(form url.Values) FilterParams {
	out := FilterParams{}
	for key, values := range form {
		for _, v := range values {
			if v != "" {
				out[key] = v
			}
		}
	}
	return out
}

// NonEmpty drops keys whose value is empty.
func (p FilterParams) NonEmpty() FilterParams {
	out := make(FilterParams, len(p))
	for k, v := range p {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// Encode renders the params as a URL query string (keys sorted).
func (p FilterParams) Encode() string {
	if len(p) == 0 {
		return ""
	}
	q := url.Values{}
	for k, v := range p {
		q.Set(k, v)
	}
	return q.Encode()
}
