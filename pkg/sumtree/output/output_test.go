package output

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/sumtree/pkg/sumtree/engine"
	"github.com/jamesainslie/sumtree/pkg/sumtree/foreign"
	"github.com/jamesainslie/sumtree/pkg/sumtree/types"
)

const (
	digestA = "5d41402abc4b2a76b9719d911017c592"
	digestB = "0123456789abcdef0123456789abcdef"
)

// failedVerifyReport is a verification with one mismatch and one missing file.
func failedVerifyReport() *Report {
	return &Report{
		Operation: "verify",
		Target:    "/data/photos",
		Manifest:  "/data/photos/photos.md5",
		Algorithm: "md5",
		Status:    StatusFailed,
		Rows: []Row{
			{Status: "MISMATCH", Path: "2020/img|1.jpg", Digest: digestA, Actual: digestB},
			{Status: "MISSING", Path: "2021/gone.jpg", Digest: digestB},
		},
		Stats:    Stats{Entries: 10, OK: 8, Mismatch: 1, Missing: 1, Duration: 1500 * time.Millisecond},
		ErrorLog: "/data/photos/photos.md5.1700000000.error.log",
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register("b", func() Formatter { return &PlainFormatter{} })
	r.Register("a", func() Formatter { return &PathsFormatter{} })

	assert.Equal(t, []string{"a", "b"}, r.Available())

	f, err := r.Get("a")
	require.NoError(t, err)
	assert.IsType(t, &PathsFormatter{}, f)

	_, err = r.Get("missing")
	assert.Error(t, err)
}

func TestDefaultRegistry(t *testing.T) {
	for _, name := range []string{"pretty", "plain", "json", "jsonl", "yaml", "template", "tsv", "csv", "markdown", "paths", "null"} {
		_, err := Get(name)
		assert.NoError(t, err, name)
	}
	assert.Contains(t, Available(), "pretty")
}

func TestFromGenerate(t *testing.T) {
	res := &engine.GenerateResult{
		Manifest:  "/data/photos/photos.sha256",
		Algorithm: types.SHA256,
		Mode:      types.AppendMissing,
		Entries:   []types.Entry{{Digest: digestA, Path: "new.jpg"}},
		Added:     []string{"new.jpg"},
		Existing:  4,
		Bytes:     2048,
		CacheHits: 1,
	}

	r := FromGenerate("/data/photos", res)
	assert.Equal(t, "hash", r.Operation)
	assert.Equal(t, "sha256", r.Algorithm)
	assert.Equal(t, "append", r.Mode)
	assert.Equal(t, StatusOK, r.Status)
	assert.Equal(t, 5, r.Stats.Entries)
	assert.Equal(t, 1, r.Stats.Added)
	assert.Equal(t, []Row{{Status: StatusAdded, Path: "new.jpg", Digest: digestA}}, r.Rows)
}

func TestFromGenerate_NoChanges(t *testing.T) {
	r := FromGenerate("/d", &engine.GenerateResult{
		Manifest:  "/d/d.md5",
		Algorithm: types.MD5,
		Mode:      types.AppendMissing,
		Existing:  3,
		NoChanges: true,
	})
	assert.Equal(t, StatusUnchanged, r.Status)
	assert.Equal(t, 3, r.Stats.Entries)
	assert.Empty(t, r.Rows)
	assert.True(t, r.Passed())
}

func TestFromVerify(t *testing.T) {
	res := &engine.VerifyResult{
		Manifest:  "/d/d.md5",
		Algorithm: types.MD5,
		Results: []types.VerificationResult{
			{Path: "a", Outcome: types.OutcomeOK, Expected: digestA, Actual: digestA},
			{Path: "b", Outcome: types.OutcomeMismatch, Expected: digestA, Actual: digestB},
		},
		OK:       1,
		Mismatch: 1,
		ErrorLog: "/d/d.md5.1.error.log",
	}

	r := FromVerify("/d", res)
	assert.Equal(t, StatusFailed, r.Status)
	assert.False(t, r.Passed())
	assert.Equal(t, 2, r.Stats.Entries)
	require.Len(t, r.Rows, 1)
	assert.Equal(t, Row{Status: "MISMATCH", Path: "b", Digest: digestA, Actual: digestB}, r.Rows[0])
	assert.Equal(t, "/d/d.md5.1.error.log", r.ErrorLog)
}

func TestFromImport(t *testing.T) {
	res := &engine.ImportResult{
		Path:      "/d/list.md5",
		Backup:    "/d/list.md5.backup",
		Algorithm: types.MD5,
		Entries:   12,
		Skipped:   []foreign.SkippedLine{{Line: 7, Text: "junk", Reason: "no md5 digest found"}},
	}

	r := FromImport("list.md5", res)
	assert.Equal(t, "import", r.Operation)
	assert.Equal(t, 12, r.Stats.Entries)
	assert.Equal(t, 1, r.Stats.Skipped)
	assert.Equal(t, "/d/list.md5.backup", r.Backup)
	require.Len(t, r.Rows, 1)
	assert.Equal(t, StatusSkipped, r.Rows[0].Status)
	assert.Equal(t, "line 7: no md5 digest found", r.Rows[0].Detail)
	assert.Len(t, r.Warnings, 1)
}
