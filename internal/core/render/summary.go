// Package render turns a dataset into the text every surface shows.
package render

import (
	"fmt"
	"math"
	"time"

	"github.com/cbroglie/mustache"
	"github.com/dustin/go-humanize"
	"github.com/neilberkman/eqviz/internal/core/models"
)

// Slice is one equipment type of the distribution
type Slice struct {
	Type    string  `json:"type"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// Distribution returns the type counts, largest first, with their share of
// the total
func Distribution(s models.Summary) []Slice {
	total := 0
	for _, n := range s.TypeDistribution {
		total += n
	}
	keys := s.DistributionKeys()
	out := make([]Slice, 0, len(keys))
	for _, k := range keys {
		n := s.TypeDistribution[k]
		pct := 0.0
		if total > 0 {
			pct = float64(n) * 100 / float64(total)
		}
		out = append(out, Slice{Type: k, Count: n, Percent: pct})
	}
	return out
}

// Point is one equipment reading on the pressure/temperature plane
type Point struct {
	Name        string
	Pressure    float64
	Temperature float64
}

// Points extracts pressure/temperature pairs, skipping rows missing either
func Points(ds *models.Dataset) []Point {
	if ds == nil {
		return nil
	}
	pts := make([]Point, 0, len(ds.Rows))
	for _, r := range ds.Rows {
		p, okP := r.Float(models.ColumnPressure)
		t, okT := r.Float(models.ColumnTemperature)
		if !okP || !okT {
			continue
		}
		pts = append(pts, Point{Name: r.String(models.ColumnName), Pressure: p, Temperature: t})
	}
	return pts
}

// Bounds returns the min and max of each axis
func Bounds(pts []Point) (minP, maxP, minT, maxT float64) {
	if len(pts) == 0 {
		return 0, 0, 0, 0
	}
	minP, maxP = math.Inf(1), math.Inf(-1)
	minT, maxT = math.Inf(1), math.Inf(-1)
	for _, p := range pts {
		minP = math.Min(minP, p.Pressure)
		maxP = math.Max(maxP, p.Pressure)
		minT = math.Min(minT, p.Temperature)
		maxT = math.Max(maxT, p.Temperature)
	}
	return minP, maxP, minT, maxT
}

// Summary renders ds through a mustache template. The template sees
// filename, id, uploaded, uploaded_ago, total_count, avg_flowrate,
// avg_pressure, avg_temperature and a types list of {name, count, percent}.
func Summary(tmpl string, ds *models.Dataset) (string, error) {
	if ds == nil {
		return "", fmt.Errorf("no dataset")
	}
	var types []map[string]any
	for _, s := range Distribution(ds.Summary) {
		types = append(types, map[string]any{
			"name":    s.Type,
			"count":   s.Count,
			"percent": fmt.Sprintf("%.1f%%", s.Percent),
		})
	}
	data := map[string]any{
		"filename":        ds.Filename,
		"id":              ds.ID,
		"uploaded":        Timestamp(ds.UploadedAt),
		"uploaded_ago":    Ago(ds.UploadedAt),
		"total_count":     ds.Summary.TotalCount,
		"avg_flowrate":    fmt.Sprintf("%.2f", ds.Summary.AvgFlowrate),
		"avg_pressure":    fmt.Sprintf("%.2f", ds.Summary.AvgPressure),
		"avg_temperature": fmt.Sprintf("%.2f", ds.Summary.AvgTemperature),
		"types":           types,
	}
	return mustache.Render(tmpl, data)
}

// Timestamp formats t in local time for lists
func Timestamp(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.Local().Format("2006-01-02 15:04")
}

// Ago is t relative to now ("3 minutes ago")
func Ago(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return humanize.Time(t)
}

// Table returns the header and the cell text of every row
func Table(ds *models.Dataset) ([]string, [][]string) {
	if ds == nil {
		return nil, nil
	}
	cols := ds.Columns()
	rows := make([][]string, len(ds.Rows))
	for i, r := range ds.Rows {
		cells := make([]string, len(cols))
		for j, c := range cols {
			cells[j] = r.String(c)
		}
		rows[i] = cells
	}
	return cols, rows
}
