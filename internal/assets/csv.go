package assets

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// RequiredColumns must all be present in an import header.
var RequiredColumns = []string{"asset_id", "name", "asset_type", "latitude", "longitude", "condition"}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// MissingColumnsError rejects a whole file before any row is read.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return "Missing required columns: " + strings.Join(e.Columns, ", ")
}

// ParseResult is the outcome of reading an import file. Rows with errors are
// excluded from Assets; rows with warnings are kept.
type ParseResult struct {
	Assets   []Asset
	Errors   []string
	Warnings []string
}

// ParseCSV reads an asset import file. Only header-level problems are
// returned as an error; row problems are collected in the result.
func ParseCSV(r io.Reader) (ParseResult, error) {
	var res ParseResult

	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	// Spreadsheet exports leave bare quotes in names (`The 6" Culvert`).
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return res, &MissingColumnsError{Columns: append([]string(nil), RequiredColumns...)}
	}
	if err != nil {
		return res, fmt.Errorf("read csv header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}

	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return res, &MissingColumnsError{Columns: missing}
	}

	field := func(rec []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return rec[i]
	}

	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, fmt.Errorf("read csv row %d: %w", line, err)
		}

		lat, errLat := parseCoordinate(field(rec, "latitude"))
		lon, errLon := parseCoordinate(field(rec, "longitude"))
		if errLat != nil || errLon != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("Row %d: Invalid coordinates", line))
			continue
		}

		rawCondition := field(rec, "condition")
		condition := strings.ToLower(strings.TrimSpace(rawCondition))
		if !ValidCondition(condition) {
			res.Errors = append(res.Errors, fmt.Sprintf("Row %d: Invalid condition %q", line, rawCondition))
			continue
		}

		assetID := strings.TrimSpace(field(rec, "asset_id"))
		name := strings.TrimSpace(field(rec, "name"))
		if assetID == "" || name == "" {
			res.Errors = append(res.Errors, fmt.Sprintf("Row %d: asset_id and name are required", line))
			continue
		}

		var lastInspected *string
		if raw := strings.TrimSpace(field(rec, "last_inspected")); raw != "" {
			d, err := time.Parse(DateLayout, raw)
			if err != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("Row %d: Invalid date format for last_inspected", line))
				continue
			}
			s := d.Format(DateLayout)
			lastInspected = &s
		}

		if !WithinScotland(lat, lon) {
			res.Warnings = append(res.Warnings, fmt.Sprintf("Row %d: Coordinates outside Scotland bounds (warning)", line))
		}

		res.Assets = append(res.Assets, Asset{
			AssetID:       assetID,
			Name:          name,
			AssetType:     strings.TrimSpace(field(rec, "asset_type")),
			Latitude:      lat,
			Longitude:     lon,
			Condition:     condition,
			LastInspected: lastInspected,
		})
	}

	return res, nil
}

func parseCoordinate(s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errors.New("coordinate is not finite")
	}
	return f, nil
}
