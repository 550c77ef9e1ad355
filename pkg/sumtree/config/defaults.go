// Package config provides configuration management for sumtree.
package config

// Default configuration values for sumtree.
const (
	// DefaultAlgorithm is used when neither a flag nor the config names one.
	DefaultAlgorithm = "md5"

	// DefaultMatch is the AppendMissing lookup key.
	DefaultMatch = "basename"

	// DefaultOutput is the report formatter.
	DefaultOutput = "pretty"

	// DefaultErrorLogName is the verification error-log name pattern.
	DefaultErrorLogName = "{manifest}.{ts}.error.log"

	// DefaultRetentionDays is the default number of days to keep journal records.
	DefaultRetentionDays = 90

	// DefaultWorkers is the directory-walk parallelism; zero sizes it from
	// the CPU count and available memory.
	DefaultWorkers = 0
)
