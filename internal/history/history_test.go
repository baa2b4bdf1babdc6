package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndRecords(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	defer store.Close()

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_, err := store.Save(Record{
			Timestamp:  base.Add(time.Duration(i) * time.Minute),
			Operations: i + 1,
			Succeeded:  i,
			Failed:     1,
			Commands:   []string{"echo a", "echo b"},
			Summary:    "turn",
		})
		require.NoError(t, err)
	}

	all, err := store.Records(0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, 3, all[0].Operations, "newest first")
	assert.True(t, all[0].Timestamp.Equal(base.Add(2*time.Minute)))
	assert.Equal(t, []string{"echo a", "echo b"}, all[0].Commands)
	_, err = uuid.Parse(all[0].ID)
	assert.NoError(t, err)

	last, err := store.Records(2)
	require.NoError(t, err)
	assert.Len(t, last, 2)
}

func TestSaveFillsDefaults(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer store.Close()

	rec, err := store.Save(Record{Summary: "no commands"})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.False(t, rec.Timestamp.IsZero())

	records, err := store.Records(1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Nil(t, records[0].Commands)
	assert.Equal(t, "no commands", records[0].Summary)
}

func TestDefaultPath(t *testing.T) {
	assert.Equal(t, filepath.Join("/p", ".directive", "history.db"), DefaultPath("/p"))
}

func TestSetCommands(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer store.Close()

	rec, err := store.Save(Record{Operations: 1})
	require.NoError(t, err)
	require.NoError(t, store.SetCommands(rec.ID, []string{"go build", "go test ./..."}))

	records, err := store.Records(1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, []string{"go build", "go test ./..."}, records[0].Commands)

	assert.Error(t, store.SetCommands("missing", []string{"x"}))
}
