package journal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// ErrRecordNotFound is returned by Get when no record matches.
var ErrRecordNotFound = errors.New("journal record not found")

// ErrAmbiguousID is returned by Get when an ID prefix matches several
// records.
var ErrAmbiguousID = errors.New("ambiguous journal record id")

// Journal stores operation records as JSON files in a directory.
type Journal struct {
	dir string
	mu  sync.Mutex
	now func() time.Time
}

// New creates a new Journal with the given directory.
// The directory is not created until EnsureDir is called.
func New(dir string) (*Journal, error) {
	if dir == "" {
		return nil, errors.New("journal directory cannot be empty")
	}
	return &Journal{dir: dir, now: time.Now}, nil
}

// Dir returns the journal directory.
func (j *Journal) Dir() string {
	return j.dir
}

// EnsureDir creates the journal directory if it does not exist.
func (j *Journal) EnsureDir() error {
	return os.MkdirAll(j.dir, 0o755)
}

// Log assigns an ID and timestamp to rec and persists it.
func (j *Journal) Log(rec *Record) (*Record, error) {
	if rec.Operation == "" {
		return nil, errors.New("journal record needs an operation")
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	rec.Timestamp = j.now().UTC()
	rec.ID = generateID(rec.Operation, rec.Timestamp)

	if err := j.writeRecord(rec); err != nil {
		return nil, fmt.Errorf("failed to write journal record: %w", err)
	}

	return rec, nil
}

// writeRecord writes a record to a JSON file in the journal directory.
func (j *Journal) writeRecord(rec *Record) error {
	if err := j.EnsureDir(); err != nil {
		return fmt.Errorf("failed to create journal directory: %w", err)
	}
	filePath := filepath.Join(j.dir, rec.ID+".json")

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	// Write atomically using a temp file and rename
	tmpPath := filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, filePath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// List returns records sorted by timestamp descending (newest first).
// If limit is 0 or negative, all records are returned. An optional
// operation filter restricts the result to one operation type.
func (j *Journal) List(limit int, op Operation) ([]Record, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	records, err := j.readAll()
	if err != nil {
		return nil, err
	}

	if op != "" {
		filtered := records[:0]
		for _, r := range records {
			if r.Operation == op {
				filtered = append(filtered, r)
			}
		}
		records = filtered
	}

	sort.Slice(records, func(a, b int) bool {
		return records[a].Timestamp.After(records[b].Timestamp)
	})

	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}

	return records, nil
}

// Get retrieves a record by ID or by a unique ID prefix.
func (j *Journal) Get(id string) (*Record, error) {
	if id == "" {
		return nil, errors.New("record ID cannot be empty")
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	records, err := j.readAll()
	if err != nil {
		return nil, err
	}

	var match *Record
	for i := range records {
		r := &records[i]
		if r.ID == id {
			return r, nil
		}
		if strings.HasPrefix(r.ID, id) {
			if match != nil {
				return nil, fmt.Errorf("%w: %s", ErrAmbiguousID, id)
			}
			match = r
		}
	}

	if match == nil {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}
	return match, nil
}

// readAll parses every record file. Files that cannot be parsed are
// skipped. Must be called with j.mu held.
func (j *Journal) readAll() ([]Record, error) {
	files, err := os.ReadDir(j.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Record{}, nil
		}
		return nil, fmt.Errorf("failed to read journal directory: %w", err)
	}

	records := []Record{}
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}

		rec, err := j.readRecordFile(f.Name())
		if err != nil {
			continue
		}
		records = append(records, *rec)
	}
	return records, nil
}

func (j *Journal) readRecordFile(filename string) (*Record, error) {
	data, err := os.ReadFile(filepath.Join(j.dir, filename))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}

	return &rec, nil
}

// Cleanup removes records older than retentionDays and returns how many
// were removed. A non-positive retention keeps everything.
func (j *Journal) Cleanup(retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	cutoff := j.now().AddDate(0, 0, -retentionDays)

	files, err := os.ReadDir(j.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read journal directory: %w", err)
	}

	removed := 0
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}

		info, err := f.Info()
		if err != nil {
			continue
		}

		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(j.dir, f.Name())); err != nil {
				continue
			}
			removed++
		}
	}

	return removed, nil
}

// generateID creates a sortable, unique ID like
// "verify-2024-06-15T10-30-00-1b4e28ba".
func generateID(op Operation, ts time.Time) string {
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("%s-%s-%s", op, ts.Format("2006-01-02T15-04-05"), suffix)
}
