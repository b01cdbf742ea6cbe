package loader

import "time"

// Download phases.
const (
	PhaseErasing     = "erasing"
	PhaseProgramming = "programming"
	PhaseVerifying   = "verifying"
	PhaseComplete    = "complete"
)

// Progress contains information about the download progress.
type Progress struct {
	// Phase is one of PhaseErasing, PhaseProgramming, PhaseVerifying or
	// PhaseComplete
	Phase string

	// Current is the number of sectors or pages done in this phase
	Current int

	// Total is the number of sectors or pages in this phase
	Total int

	// Percentage is the overall completion percentage (0.0 to 100.0)
	Percentage float64

	// BytesWritten is the total number of bytes programmed so far
	BytesWritten int

	// ElapsedTime is the time elapsed since the download started
	ElapsedTime time.Duration
}

// ProgressCallback is called after every sector and page.
type ProgressCallback func(Progress)
