// file: internal/progress/progress.go
// version: 1.1.0
// guid: 5d2e8f4b-7c1a-4e9d-b6f2-8a3c5e7d9b1f

package progress

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/cockroachdb/pebble/v2"
)

// Tracker remembers which external records a run already processed, so an
// interrupted run resumes instead of re-fetching and re-matching
// everything. Keys are (source, record URL) pairs.
type Tracker interface {
	IsProcessed(sourceID, recordURL string) (bool, error)
	MarkProcessed(sourceID, recordURL string) error
	// Checkpoint returns the last saved position for a source ("" if none).
	Checkpoint(sourceID string) (string, error)
	SetCheckpoint(sourceID, position string) error
	// ResetSource forgets everything recorded for one source.
	ResetSource(sourceID string) error
	Close() error
}

// PebbleTracker implements Tracker on PebbleDB (LSM key-value store)
//
// Key Schema:
// - processed:<source_id>:<record_url> -> "1"
// - checkpoint:<source_id>             -> position string
type PebbleTracker struct {
	db *pebble.DB
}

// NewPebbleTracker opens (or creates) the tracker database at path.
func NewPebbleTracker(path string) (*PebbleTracker, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open progress db: %w", err)
	}
	return &PebbleTracker{db: db}, nil
}

// Close closes the database.
func (t *PebbleTracker) Close() error {
	return t.db.Close()
}

func processedKey(sourceID, recordURL string) []byte {
	return []byte(fmt.Sprintf("processed:%s:%s", sourceID, recordURL))
}

func checkpointKey(sourceID string) []byte {
	return []byte(fmt.Sprintf("checkpoint:%s", sourceID))
}

// IsProcessed reports whether the record was already handled.
func (t *PebbleTracker) IsProcessed(sourceID, recordURL string) (bool, error) {
	_, closer, err := t.db.Get(processedKey(sourceID, recordURL))
	if err == pebble.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	closer.Close()
	return true, nil
}

// MarkProcessed records the record as handled. Uses NoSync; the batch
// commit path calls SetCheckpoint with Sync to bound loss on crash.
func (t *PebbleTracker) MarkProcessed(sourceID, recordURL string) error {
	return t.db.Set(processedKey(sourceID, recordURL), []byte("1"), pebble.NoSync)
}

// Checkpoint returns the saved resume position for a source.
func (t *PebbleTracker) Checkpoint(sourceID string) (string, error) {
	value, closer, err := t.db.Get(checkpointKey(sourceID))
	if err == pebble.ErrNotFound {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	defer closer.Close()
	return string(value), nil
}

// SetCheckpoint durably saves a resume position for a source.
func (t *PebbleTracker) SetCheckpoint(sourceID, position string) error {
	return t.db.Set(checkpointKey(sourceID), []byte(position), pebble.Sync)
}

// ResetSource deletes all processed marks and the checkpoint for one source.
func (t *PebbleTracker) ResetSource(sourceID string) error {
	prefix := fmt.Sprintf("processed:%s:", sourceID)
	iter, err := t.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(prefix),
		UpperBound: []byte(prefix + "\xff"),
	})
	if err != nil {
		return err
	}

	batch := t.db.NewBatch()
	for iter.First(); iter.Valid(); iter.Next() {
		if !strings.HasPrefix(string(iter.Key()), prefix) {
			break
		}
		if err := batch.Delete(iter.Key(), nil); err != nil {
			iter.Close()
			batch.Close()
			return err
		}
	}
	if err := iter.Close(); err != nil {
		batch.Close()
		return err
	}

	if err := batch.Delete(checkpointKey(sourceID), nil); err != nil {
		batch.Close()
		return err
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return err
	}
	log.Printf("[INFO] progress: reset source %s", sourceID)
	return nil
}

// MemoryTracker is an in-memory Tracker for tests and dry runs. Safe
// for concurrent use, matching PebbleTracker: pipeline workers mark
// records processed while the emit goroutine checks them.
type MemoryTracker struct {
	mu          sync.RWMutex
	processed   map[string]bool
	checkpoints map[string]string
}

// NewMemoryTracker returns an empty tracker.
func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{
		processed:   make(map[string]bool),
		checkpoints: make(map[string]string),
	}
}

func (t *MemoryTracker) IsProcessed(sourceID, recordURL string) (bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.processed[sourceID+":"+recordURL], nil
}

func (t *MemoryTracker) MarkProcessed(sourceID, recordURL string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.processed[sourceID+":"+recordURL] = true
	return nil
}

func (t *MemoryTracker) Checkpoint(sourceID string) (string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.checkpoints[sourceID], nil
}

func (t *MemoryTracker) SetCheckpoint(sourceID, position string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.checkpoints[sourceID] = position
	return nil
}

func (t *MemoryTracker) ResetSource(sourceID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for key := range t.processed {
		if strings.HasPrefix(key, sourceID+":") {
			delete(t.processed, key)
		}
	}
	delete(t.checkpoints, sourceID)
	return nil
}

func (t *MemoryTracker) Close() error { return nil }
