// Package output provides formatters for sumtree operation reports in
// various output formats (pretty, plain, json, yaml, etc.).
//
// The package uses a registry pattern to allow registration of multiple
// formatter implementations that can be selected at runtime.
//
// Basic usage:
//
//	formatter, err := output.Get("pretty")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	var buf bytes.Buffer
//	if err := formatter.Format(&buf, output.FromVerify(target, res)); err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Print(buf.String())
package output

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jamesainslie/sumtree/pkg/sumtree/logging"
)

// logger is the package-level logger for output operations.
var logger = logging.Get("output")

// DefaultFormat is the formatter used when none is requested.
const DefaultFormat = "pretty"

// Row statuses besides the verification outcomes.
const (
	StatusWritten = "WRITTEN"
	StatusAdded   = "ADDED"
	StatusSkipped = "SKIPPED"
)

// Row is one line of a report: a manifest entry and what happened to it.
type Row struct {
	// Status is OK, MISMATCH, MISSING, WRITTEN, ADDED or SKIPPED.
	Status string `json:"status" yaml:"status"`

	// Path is the entry path as stored in the manifest.
	Path string `json:"path" yaml:"path"`

	// Digest is the expected (or written) digest.
	Digest string `json:"digest,omitempty" yaml:"digest,omitempty"`

	// Actual is the digest computed during verification, if it differs.
	Actual string `json:"actual,omitempty" yaml:"actual,omitempty"`

	// Detail carries free text such as the reason a line was skipped.
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// Stats contains counters for an operation.
type Stats struct {
	Entries   int           `json:"entries" yaml:"entries"`
	OK        int           `json:"ok" yaml:"ok"`
	Mismatch  int           `json:"mismatch" yaml:"mismatch"`
	Missing   int           `json:"missing" yaml:"missing"`
	Added     int           `json:"added" yaml:"added"`
	Skipped   int           `json:"skipped" yaml:"skipped"`
	CacheHits int           `json:"cache_hits" yaml:"cache_hits"`
	Bytes     int64         `json:"bytes" yaml:"bytes"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
}

// Report contains the complete output data for formatting.
type Report struct {
	// Operation is hash, verify or import.
	Operation string `json:"operation" yaml:"operation"`

	// Target is the path the operation was run on.
	Target string `json:"target" yaml:"target"`

	Manifest  string `json:"manifest" yaml:"manifest"`
	Algorithm string `json:"algorithm" yaml:"algorithm"`
	Mode      string `json:"mode,omitempty" yaml:"mode,omitempty"`

	// Status summarises the outcome: ok, failed or unchanged.
	Status string `json:"status" yaml:"status"`

	// Rows lists the entries worth showing: written or added entries for
	// hash, failures for verify, skipped lines for import.
	Rows []Row `json:"rows" yaml:"rows"`

	Stats Stats `json:"stats" yaml:"stats"`

	ErrorLog string `json:"error_log,omitempty" yaml:"error_log,omitempty"`
	Backup   string `json:"backup,omitempty" yaml:"backup,omitempty"`

	// Warnings contains any warning messages generated during the run.
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Passed reports whether the operation succeeded without failures.
func (r *Report) Passed() bool {
	return r.Status != StatusFailed
}

// Formatter is the interface that all output formatters must implement.
type Formatter interface {
	// Format writes the formatted output to the buffer.
	// It returns an error if formatting fails.
	Format(w *bytes.Buffer, r *Report) error
}

// FormatterFactory is a function that creates a new Formatter instance.
type FormatterFactory func() Formatter

// Registry manages formatter registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates a new formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]FormatterFactory),
	}
}

// Register adds a formatter factory to the registry.
// It will replace any existing formatter with the same name.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter instance by name.
// It returns an error if the formatter is not found.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown formatter: %s", name)
	}
	return factory(), nil
}

// Available returns a sorted list of all registered formatter names.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter factory to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a new formatter instance from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available returns all formatter names from the default registry.
func Available() []string {
	return DefaultRegistry.Available()
}
