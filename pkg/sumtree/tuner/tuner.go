// Package tuner sizes the directory walk from the machine it runs on. It
// detects CPU cores and memory and derives how many goroutines read
// directories while a tree is listed. Hashing itself stays sequential.
package tuner

// SystemResources contains detected system resources.
type SystemResources struct {
	// CPUCores is the number of logical CPU cores available.
	CPUCores int

	// TotalRAM is the total physical RAM in bytes.
	TotalRAM int64

	// AvailableRAM is the available (free) RAM in bytes.
	// This may be an estimate based on system heuristics.
	AvailableRAM int64
}
