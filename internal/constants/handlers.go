// Package constants provides shared constants used across the codebase.
package constants

// File upload constants
const (
	// MaxUploadSize is the maximum multipart request size in bytes (100MB)
	MaxUploadSize = 100 << 20
)

// Form field names used by the upload form and the process endpoint
const (
	FieldSubject           = "subject"
	FieldBackground        = "background"
	FieldReplaceBackground = "replace_background"
	FieldThreshold         = "threshold"
)

// DefaultRunsLimit is the default number of runs returned by the history endpoint
const DefaultRunsLimit = 20
