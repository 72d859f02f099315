package models

import (
	"fmt"
	"time"
)

// HistoryLimit is the number of uploads the backend keeps
const HistoryLimit = 5

// HistoryRecord identifies a previous upload that can be re-selected
type HistoryRecord struct {
	ID         int64     `json:"id"`
	Filename   string    `json:"filename"`
	UploadedAt time.Time `json:"uploaded_at"`
}

func (h HistoryRecord) String() string {
	return fmt.Sprintf("%s (%s)", h.Filename, h.UploadedAt.Format("2006-01-02 15:04"))
}

// PendingFile is a file chosen for upload but not yet sent
type PendingFile struct {
	Name    string
	Path    string // empty when the content did not come from disk
	Size    int64
	Content []byte
}
