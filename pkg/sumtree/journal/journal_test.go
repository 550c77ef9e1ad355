package journal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := New(filepath.Join(t.TempDir(), "journal"))
	require.NoError(t, err)
	return j
}

// withClock makes the journal report successive times one second apart.
func withClock(j *Journal, start time.Time) {
	next := start
	j.now = func() time.Time {
		now := next
		next = next.Add(time.Second)
		return now
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("creates journal with valid directory", func(t *testing.T) {
		t.Parallel()
		j, err := New(t.TempDir())
		require.NoError(t, err)
		assert.NotNil(t, j)
	})

	t.Run("returns error for empty directory", func(t *testing.T) {
		t.Parallel()
		_, err := New("")
		assert.Error(t, err)
	})
}

func TestJournal_Log(t *testing.T) {
	t.Parallel()

	t.Run("persists record with generated ID", func(t *testing.T) {
		t.Parallel()
		j := setupTestJournal(t)

		rec, err := j.Log(&Record{
			Operation: OpVerify,
			Status:    StatusFailed,
			Target:    "/data/photos",
			Algorithm: "sha256",
			Summary:   Summary{Entries: 3, OK: 2, Mismatch: 1},
			Failures:  []FailureRecord{{Path: "b.jpg", Outcome: "MISMATCH"}},
		})
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(rec.ID, "verify-"), rec.ID)
		assert.False(t, rec.Timestamp.IsZero())

		data, err := os.ReadFile(filepath.Join(j.Dir(), rec.ID+".json"))
		require.NoError(t, err)

		var onDisk Record
		require.NoError(t, json.Unmarshal(data, &onDisk))
		assert.Equal(t, rec.ID, onDisk.ID)
		assert.Equal(t, 1, onDisk.Summary.Mismatch)
		assert.Equal(t, "b.jpg", onDisk.Failures[0].Path)
	})

	t.Run("creates the directory on first write", func(t *testing.T) {
		t.Parallel()
		j := setupTestJournal(t)

		_, err := j.Log(&Record{Operation: OpHash})
		require.NoError(t, err)
		assert.DirExists(t, j.Dir())
	})

	t.Run("rejects record without operation", func(t *testing.T) {
		t.Parallel()
		j := setupTestJournal(t)

		_, err := j.Log(&Record{})
		assert.Error(t, err)
	})

	t.Run("generates unique IDs", func(t *testing.T) {
		t.Parallel()
		j := setupTestJournal(t)
		fixed := time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)
		j.now = func() time.Time { return fixed }

		seen := map[string]bool{}
		for i := 0; i < 20; i++ {
			rec, err := j.Log(&Record{Operation: OpHash})
			require.NoError(t, err)
			assert.False(t, seen[rec.ID], "duplicate id %s", rec.ID)
			seen[rec.ID] = true
		}
	})
}

func TestJournal_List(t *testing.T) {
	t.Parallel()

	t.Run("returns newest first", func(t *testing.T) {
		t.Parallel()
		j := setupTestJournal(t)
		withClock(j, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

		for _, op := range []Operation{OpHash, OpVerify, OpImport} {
			_, err := j.Log(&Record{Operation: op})
			require.NoError(t, err)
		}

		records, err := j.List(0, "")
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, OpImport, records[0].Operation)
		assert.Equal(t, OpVerify, records[1].Operation)
		assert.Equal(t, OpHash, records[2].Operation)
	})

	t.Run("respects limit and filter", func(t *testing.T) {
		t.Parallel()
		j := setupTestJournal(t)
		withClock(j, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

		for i := 0; i < 5; i++ {
			_, err := j.Log(&Record{Operation: OpHash})
			require.NoError(t, err)
		}
		_, err := j.Log(&Record{Operation: OpVerify})
		require.NoError(t, err)

		records, err := j.List(2, "")
		require.NoError(t, err)
		assert.Len(t, records, 2)

		records, err = j.List(0, OpHash)
		require.NoError(t, err)
		assert.Len(t, records, 5)
	})

	t.Run("returns empty slice for missing directory", func(t *testing.T) {
		t.Parallel()
		j := setupTestJournal(t)

		records, err := j.List(0, "")
		require.NoError(t, err)
		assert.NotNil(t, records)
		assert.Empty(t, records)
	})

	t.Run("skips unparseable files", func(t *testing.T) {
		t.Parallel()
		j := setupTestJournal(t)
		_, err := j.Log(&Record{Operation: OpHash})
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(j.Dir(), "broken.json"), []byte("{"), 0o644))

		records, err := j.List(0, "")
		require.NoError(t, err)
		assert.Len(t, records, 1)
	})
}

func TestJournal_Get(t *testing.T) {
	t.Parallel()

	t.Run("by full id and unique prefix", func(t *testing.T) {
		t.Parallel()
		j := setupTestJournal(t)
		withClock(j, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

		hash, err := j.Log(&Record{Operation: OpHash, Target: "/a"})
		require.NoError(t, err)
		_, err = j.Log(&Record{Operation: OpVerify, Target: "/b"})
		require.NoError(t, err)

		got, err := j.Get(hash.ID)
		require.NoError(t, err)
		assert.Equal(t, "/a", got.Target)

		got, err = j.Get("hash-")
		require.NoError(t, err)
		assert.Equal(t, hash.ID, got.ID)
	})

	t.Run("ambiguous prefix", func(t *testing.T) {
		t.Parallel()
		j := setupTestJournal(t)
		withClock(j, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
		for i := 0; i < 2; i++ {
			_, err := j.Log(&Record{Operation: OpHash})
			require.NoError(t, err)
		}

		_, err := j.Get("hash-")
		assert.ErrorIs(t, err, ErrAmbiguousID)
	})

	t.Run("not found and empty id", func(t *testing.T) {
		t.Parallel()
		j := setupTestJournal(t)

		_, err := j.Get("nonexistent")
		assert.ErrorIs(t, err, ErrRecordNotFound)

		_, err = j.Get("")
		assert.Error(t, err)
	})
}

func TestJournal_Cleanup(t *testing.T) {
	t.Parallel()

	j := setupTestJournal(t)
	old, err := j.Log(&Record{Operation: OpHash})
	require.NoError(t, err)
	recent, err := j.Log(&Record{Operation: OpVerify})
	require.NoError(t, err)

	past := time.Now().AddDate(0, 0, -40)
	require.NoError(t, os.Chtimes(filepath.Join(j.Dir(), old.ID+".json"), past, past))

	removed, err := j.Cleanup(30)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	records, err := j.List(0, "")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, recent.ID, records[0].ID)

	removed, err = j.Cleanup(0)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}
