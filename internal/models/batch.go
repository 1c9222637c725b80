package models

import "time"

type BatchRequest struct {
	Prompts []string          `json:"prompts" binding:"required,min=1"`
	Options ProcessingOptions `json:"options"`
}

type Batch struct {
	ID        string            `json:"id"`
	CreatedAt time.Time         `json:"created_at"`
	Options   ProcessingOptions `json:"options"`
	Jobs      []Job             `json:"jobs"`
}

// Finished reports whether every job reached a terminal state.
func (b *Batch) Finished() bool {
	for _, j := range b.Jobs {
		if !j.Status.Terminal() {
			return false
		}
	}
	return true
}

// BatchResponse is the job listing returned to clients, with image bytes
// stripped so polling stays cheap.
type BatchResponse struct {
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	Finished  bool           `json:"finished"`
	Counts    map[string]int `json:"counts"`
	Jobs      []JobSummary   `json:"jobs"`
}

type JobSummary struct {
	ID       string    `json:"id"`
	Index    int       `json:"index"`
	Prompt   string    `json:"prompt"`
	Status   JobStatus `json:"status"`
	Error    string    `json:"error,omitempty"`
	MIMEType string    `json:"mime_type,omitempty"`
	FileSize int64     `json:"file_size,omitempty"`
}

func NewBatchResponse(b *Batch) BatchResponse {
	resp := BatchResponse{
		ID:        b.ID,
		CreatedAt: b.CreatedAt,
		Finished:  b.Finished(),
		Counts:    map[string]int{},
		Jobs:      make([]JobSummary, 0, len(b.Jobs)),
	}
	for _, j := range b.Jobs {
		resp.Counts[string(j.Status)]++
		s := JobSummary{ID: j.ID, Index: j.Index, Prompt: j.Prompt, Status: j.Status, Error: j.Error}
		if j.Result != nil {
			s.MIMEType = j.Result.MIMEType
			s.FileSize = int64(len(j.Result.Data))
		}
		resp.Jobs = append(resp.Jobs, s)
	}
	return resp
}
