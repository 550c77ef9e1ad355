package tuner

// Worker limits.
const (
	// maxWalkWorkers caps fastwalk goroutines.
	maxWalkWorkers = 32

	// minWalkWorkers keeps directory reading parallel on small machines.
	minWalkWorkers = 4
)

// Memory-based sizing.
const (
	// bytesPerWalkWorker estimates what one walking goroutine holds: its
	// dirent buffer plus the paths queued behind it.
	bytesPerWalkWorker = 4 << 20

	// walkMemoryFraction is the share of available RAM the walk may use.
	walkMemoryFraction = 0.01
)

// Plan is the worker layout for one run.
type Plan struct {
	// WalkWorkers is the number of directory reading goroutines.
	WalkWorkers int
}

// Calculate returns the plan for the given resources:
// max(NumCPU, 4) walkers, capped at 32 and by the memory budget. An
// unknown memory figure does not limit the count.
func Calculate(resources SystemResources) Plan {
	walk := max(resources.CPUCores, minWalkWorkers)
	walk = min(walk, maxWalkWorkers)

	if resources.AvailableRAM > 0 {
		walk = min(walk, memoryBound(resources.AvailableRAM))
	}

	return Plan{WalkWorkers: walk}
}

// CalculateWithOverrides applies a user override to the plan. A positive
// override replaces the calculated count, still respecting the cap.
func CalculateWithOverrides(resources SystemResources, workerOverride int) Plan {
	plan := Calculate(resources)

	if workerOverride > 0 {
		plan.WalkWorkers = min(workerOverride, maxWalkWorkers)
	}

	return plan
}

// memoryBound is the number of walkers the memory budget allows, never
// less than one.
func memoryBound(availableRAM int64) int {
	budget := float64(availableRAM) * walkMemoryFraction
	return max(int(budget/bytesPerWalkWorker), 1)
}
