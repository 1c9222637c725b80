package models

import "time"

type HistoryEntry struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	MIMEType  string    `json:"mime_type"`
	Data      []byte    `json:"data,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Size is the number of bytes the entry counts against the history quota.
func (e HistoryEntry) Size() int64 {
	return int64(len(e.Data) + len(e.Label))
}
