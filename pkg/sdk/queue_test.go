package sdk

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pulseboard/pulse/pkg/event"
)

func TestFileQueueStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue", "pending.json")
	store := NewFileQueueStore(path)

	queued := []QueuedEvent{
		{Event: event.Event{ID: "e1", Name: "page_view"}, RetryCount: 0},
		{Event: event.Event{ID: "e2", Name: "click"}, RetryCount: 2},
	}
	assert.NoError(t, store.Save(queued))

	restored, err := store.Load()
	assert.NoError(t, err)
	assert.Len(t, restored, 2)
	assert.Equal(t, "e1", restored[0].Event.ID)
	assert.Equal(t, 2, restored[1].RetryCount)
}

func TestFileQueueStoreMissingFile(t *testing.T) {
	store := NewFileQueueStore(filepath.Join(t.TempDir(), "absent.json"))

	restored, err := store.Load()
	assert.NoError(t, err)
	assert.Empty(t, restored)
}

func TestFileQueueStoreCorruptSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pending.json")
	assert.NoError(t, os.WriteFile(path, []byte("not json{"), 0o644))

	store := NewFileQueueStore(path)
	restored, err := store.Load()
	assert.NoError(t, err, "corrupt snapshots are treated as empty, not fatal")
	assert.Empty(t, restored)
}

func TestFileQueueStoreClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pending.json")
	store := NewFileQueueStore(path)

	assert.NoError(t, store.Save([]QueuedEvent{{Event: event.Event{ID: "e1", Name: "x"}}}))
	assert.NoError(t, store.Clear())
	assert.NoError(t, store.Clear(), "clearing an empty store is a no-op")

	restored, err := store.Load()
	assert.NoError(t, err)
	assert.Empty(t, restored)
}
