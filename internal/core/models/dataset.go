package models

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"
)

// Column names the analysis service expects in an uploaded CSV
const (
	ColumnName        = "Equipment Name"
	ColumnType        = "Type"
	ColumnFlowrate    = "Flowrate"
	ColumnPressure    = "Pressure"
	ColumnTemperature = "Temperature"
)

// Summary holds the aggregates the backend computes for an upload
type Summary struct {
	TotalCount       int            `json:"total_count"`
	AvgFlowrate      float64        `json:"avg_flowrate"`
	AvgPressure      float64        `json:"avg_pressure"`
	AvgTemperature   float64        `json:"avg_temperature"`
	TypeDistribution map[string]int `json:"equipment_type_distribution"`
}

// Row is one record of the original CSV. All rows of a dataset share fields.
type Row map[string]any

// Dataset is an analyzed upload as returned by the backend.
// A Dataset is never mutated after decoding; a newer one replaces it whole.
type Dataset struct {
	ID         int64     `json:"id"`
	Filename   string    `json:"filename"`
	UploadedAt time.Time `json:"uploaded_at"`
	Summary    Summary   `json:"summary"`
	Rows       []Row     `json:"original_data"`
}

// Validate checks if the dataset has required fields
func (d *Dataset) Validate() error {
	if d.ID <= 0 {
		return errors.New("id is required")
	}
	if d.Filename == "" {
		return errors.New("filename is required")
	}
	return nil
}

// Columns returns the field names of the first row in a stable order,
// with the well-known columns first.
func (d *Dataset) Columns() []string {
	if len(d.Rows) == 0 {
		return nil
	}
	known := []string{ColumnName, ColumnType, ColumnFlowrate, ColumnPressure, ColumnTemperature}
	seen := make(map[string]bool, len(known))
	var cols []string
	for _, k := range known {
		if _, ok := d.Rows[0][k]; ok {
			cols = append(cols, k)
			seen[k] = true
		}
	}
	var rest []string
	for k := range d.Rows[0] {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(cols, rest...)
}

// DistributionKeys returns the equipment types sorted by descending count,
// then by name.
func (s Summary) DistributionKeys() []string {
	keys := make([]string, 0, len(s.TypeDistribution))
	for k := range s.TypeDistribution {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ci, cj := s.TypeDistribution[keys[i]], s.TypeDistribution[keys[j]]
		if ci != cj {
			return ci > cj
		}
		return keys[i] < keys[j]
	})
	return keys
}

// Float returns a numeric field, accepting JSON numbers and numeric strings
func (r Row) Float(key string) (float64, bool) {
	switch v := r[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	}
	return 0, false
}

// String formats a field for display
func (r Row) String(key string) string {
	switch v := r[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
