package history

import (
	"fmt"
	"strings"
	"time"

	"github.com/neilberkman/eqviz/internal/core/models"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// ParseSince understands plain dates and natural language ("yesterday",
// "last week")
func ParseSince(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	formats := []string{
		"2006-01-02",
		"2006-01-02T15:04:05",
		time.RFC3339,
		"2006/01/02",
	}
	for _, format := range formats {
		if t, err := time.ParseInLocation(format, s, now.Location()); err == nil {
			return t, nil
		}
	}

	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	if result, err := w.Parse(s, now); err == nil && result != nil {
		return result.Time, nil
	}
	return time.Time{}, fmt.Errorf("cannot parse date %q", s)
}

// Since keeps records uploaded at or after t, preserving order
func Since(records []models.HistoryRecord, t time.Time) []models.HistoryRecord {
	var out []models.HistoryRecord
	for _, r := range records {
		if !r.UploadedAt.Before(t) {
			out = append(out, r)
		}
	}
	return out
}
