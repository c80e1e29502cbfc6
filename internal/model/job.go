package model

import "time"

// Job is a submitted brief as tracked by the client
type Job struct {
	ID          string     `json:"id"`
	Input       Brief      `json:"input"`
	State       JobState   `json:"state"`
	Score       int        `json:"score"`
	VideoURL    string     `json:"videoUrl,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// HistoryLimit caps the persisted job history
const HistoryLimit = 20
