package sdk

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/pulseboard/pulse/pkg/event"
)

// QueuedEvent is a pending event plus its delivery attempt count.
type QueuedEvent struct {
	Event      event.Event `json:"event"`
	RetryCount int         `json:"retry_count"`
}

// QueueStore persists the pending queue so events survive restarts and
// offline periods. Implementations must tolerate concurrent calls.
type QueueStore interface {
	Save(events []QueuedEvent) error
	Load() ([]QueuedEvent, error)
	Clear() error
}

// FileQueueStore snapshots the queue as JSON in a single file.
type FileQueueStore struct {
	mu   sync.Mutex
	path string
}

// NewFileQueueStore creates a file-backed queue store, creating parent
// directories as needed on first save.
func NewFileQueueStore(path string) *FileQueueStore {
	return &FileQueueStore{path: path}
}

// Save writes the full queue snapshot, replacing any previous one.
func (f *FileQueueStore) Save(events []QueuedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := json.Marshal(events)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return err
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}

// Load reads the last snapshot. A missing or corrupt file is an empty queue.
func (f *FileQueueStore) Load() ([]QueuedEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var events []QueuedEvent
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, nil
	}
	return events, nil
}

// Clear removes the snapshot.
func (f *FileQueueStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	err := os.Remove(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// memoryQueueStore keeps the snapshot in memory. Used in tests and as the
// default when no store is configured.
type memoryQueueStore struct {
	mu     sync.Mutex
	events []QueuedEvent
}

func newMemoryQueueStore() *memoryQueueStore {
	return &memoryQueueStore{}
}

func (m *memoryQueueStore) Save(events []QueuedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append([]QueuedEvent(nil), events...)
	return nil
}

func (m *memoryQueueStore) Load() ([]QueuedEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]QueuedEvent(nil), m.events...), nil
}

func (m *memoryQueueStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
	return nil
}
