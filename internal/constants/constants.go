// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// AppTitle is the page and CLI title
const AppTitle = "Image Background Removal & Replacement"

// AcceptedImageTypes are the extensions offered by the file pickers
var AcceptedImageTypes = []string{"jpg", "jpeg", "png"}

// Threshold constants
const (
	// DefaultThreshold is the initial value of the threshold slider
	DefaultThreshold = 100

	// MinThreshold and MaxThreshold bound the accepted threshold
	MinThreshold = 0
	MaxThreshold = 255

	// ThresholdStep is the slider step offered by the UI
	ThresholdStep = 5
)

// Matting constants
const (
	// DefaultErodeSize is the side of the square structuring element used to
	// erode the trimap's definite regions
	DefaultErodeSize = 2
)

// Output file constants
const (
	// ProcessedFileName is the foreground-isolated output, overwritten on every run
	ProcessedFileName = "processed.png"

	// FinalFileName is the composited output, overwritten on every run
	FinalFileName = "final_output.png"

	// DefaultOutputDir holds the two outputs
	DefaultOutputDir = "masked"

	// DefaultOriginalsDir holds archived uploads when archiving is enabled
	DefaultOriginalsDir = "original"
)

// Processing constants
const (
	// MaxRemoteImageSize is the maximum dimension (width or height) sent to
	// hosted segmentation models
	MaxRemoteImageSize = 1536

	// DefaultRemovalTimeoutSeconds bounds a single remote removal call
	DefaultRemovalTimeoutSeconds = 300

	// DefaultHistoryLimit is the number of runs kept by the in-memory history
	DefaultHistoryLimit = 50

	// RunRetentionDays is how long persisted run history is kept
	RunRetentionDays = 30

	// PruneSchedule is the cron spec for cleaning kept uploads and old runs
	PruneSchedule = "@every 1h"
)
