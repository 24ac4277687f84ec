package models

import "time"

// TrainingSession is an append-only log entry; there is no approval
// workflow for training, unlike attendance.
type TrainingSession struct {
	ID              int64     `json:"id"`
	K9ID            int64     `json:"k9_id"`
	Discipline      string    `json:"discipline,omitempty"`
	Area            string    `json:"area,omitempty"`
	DurationMinutes int       `json:"duration_minutes,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	SubmittedBy     string    `json:"submitted_by"`
	CreatedAt       time.Time `json:"created_at"`
}
