// Package index remembers which calendar event mirrors which task, so the
// mirror can skip the extended-property search on later runs and find events
// whose task is gone.
package index

import (
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"
)

const indexFile = "events.json"

// Entry is the calendar side of one mirrored task.
type Entry struct {
	EventID string    `json:"event_id"`
	Synced  time.Time `json:"synced"`
}

type EventIndex struct {
	Path string

	mu      sync.RWMutex
	entries map[int64]Entry
	dirty   bool
	now     func() time.Time
}

// NewEventIndex opens dir/events.json, starting empty if it does not exist.
func NewEventIndex(dir string) (*EventIndex, error) {
	idx := &EventIndex{
		Path:    filepath.Join(dir, indexFile),
		entries: make(map[int64]Entry),
		now:     time.Now,
	}

	if _, err := os.Stat(idx.Path); err == nil {
		if err := idx.Load(); err != nil {
			return nil, err
		}
	}
	return idx, nil
}

func (idx *EventIndex) Load() error {
	b, err := os.ReadFile(idx.Path)
	if err != nil {
		return err
	}
	entries := make(map[int64]Entry)
	if err := json.Unmarshal(b, &entries); err != nil {
		return err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.entries = entries
	idx.dirty = false
	return nil
}

// Save writes the entries if they changed since the last load or save.
func (idx *EventIndex) Save() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if !idx.dirty {
		return nil
	}

	b, err := json.MarshalIndent(idx.entries, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(idx.Path), 0700); err != nil {
		return err
	}
	if err := os.WriteFile(idx.Path, b, 0600); err != nil {
		return err
	}
	idx.dirty = false
	return nil
}

// Get returns the event id for taskID, or "".
func (idx *EventIndex) Get(taskID int64) string {
	e, _ := idx.Lookup(taskID)
	return e.EventID
}

func (idx *EventIndex) Lookup(taskID int64) (Entry, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	e, ok := idx.entries[taskID]
	return e, ok
}

// Set records that taskID was just mirrored to eventID.
func (idx *EventIndex) Set(taskID int64, eventID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.entries[taskID] = Entry{EventID: eventID, Synced: idx.now().UTC()}
	idx.dirty = true
}

func (idx *EventIndex) Remove(taskID int64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if _, exists := idx.entries[taskID]; exists {
		delete(idx.entries, taskID)
		idx.dirty = true
	}
}

// TaskIDs returns every mirrored task id in ascending order.
func (idx *EventIndex) TaskIDs() []int64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	ids := make([]int64, 0, len(idx.entries))
	for id := range idx.entries {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
