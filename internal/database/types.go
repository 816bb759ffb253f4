package database

import (
	"context"
	"time"
)

// Run is one pipeline execution as kept in the run history.
type Run struct {
	ID                  string    `json:"id"`
	CreatedAt           time.Time `json:"created_at"`
	Backend             string    `json:"backend"`
	Threshold           int       `json:"threshold"`
	ForegroundThreshold int       `json:"foreground_threshold"`
	BackgroundThreshold int       `json:"background_threshold"`
	ErodeSize           int       `json:"erode_size"`
	SubjectWidth        int       `json:"subject_width"`
	SubjectHeight       int       `json:"subject_height"`
	SubjectHash         string    `json:"subject_hash,omitempty"`
	BackgroundSupplied  bool      `json:"background_supplied"`
	SubjectError        string    `json:"subject_error,omitempty"`
	BackgroundError     string    `json:"background_error,omitempty"`
	DurationMs          int64     `json:"duration_ms"`
}

// RunRecorder stores and lists pipeline runs.
type RunRecorder interface {
	Record(ctx context.Context, run *Run) error
	// Recent returns up to limit runs, newest first.
	Recent(ctx context.Context, limit int) ([]Run, error)
	// Prune deletes runs created before cutoff and returns how many were removed.
	Prune(ctx context.Context, cutoff time.Time) (int, error)
}
