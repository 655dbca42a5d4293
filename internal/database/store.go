// file: internal/database/store.go
// version: 2.1.0
// guid: 9d3a6f2c-8b5e-4c7a-9e1d-6f4b8a3c5d9e

package database

import (
	"fmt"
	"log"

	"github.com/pedramholi/iran-memorial/internal/models"
)

// Store defines the persistence operations the matching, dedup, and merge
// layers need. The core never assumes a particular storage technology;
// SQLite is the default implementation and MemoryStore backs tests.
type Store interface {
	// Lifecycle
	Close() error
	Reset() error

	// Victims
	GetAllVictims() ([]*models.Victim, error)
	GetVictimByID(id string) (*models.Victim, error)
	GetVictimBySlug(slug string) (*models.Victim, error)
	CreateVictim(v *models.Victim) (*models.Victim, error) // generates ULID if ID empty
	UpdateVictim(v *models.Victim) error
	DeleteVictim(id string) error
	CountVictims() (int, error)

	// Provenance
	GetVictimSources(victimID string) ([]models.VictimSource, error)
	AddVictimSource(src *models.VictimSource) (bool, error) // false if URL already attached
	GetAllSourceURLs() (map[string][]string, error)

	// Photographs
	GetVictimPhotos(victimID string) ([]models.VictimPhoto, error)
	AddVictimPhoto(p *models.VictimPhoto) (bool, error)

	// EnrichVictim persists a filled-in winner plus a new source
	// attribution in one transaction. Returns whether the source row was
	// actually new.
	EnrichVictim(v *models.Victim, src *models.VictimSource) (bool, error)

	// ApplyMerge persists a merge atomically: update the winner, migrate
	// the loser's sources and photographs (skipping URLs the winner
	// already has), then delete the loser. Either everything applies or
	// nothing does — partial migration must never orphan provenance.
	ApplyMerge(winner *models.Victim, loserID string) (sourcesMigrated, photosMigrated int, err error)
}

// GlobalStore is the process-wide store instance set by InitializeStore.
var GlobalStore Store

// InitializeStore opens the SQLite store at path and installs it globally.
func InitializeStore(path string) error {
	if GlobalStore != nil {
		log.Println("[WARN] store already initialized")
		return nil
	}
	s, err := NewSQLiteStore(path)
	if err != nil {
		return fmt.Errorf("failed to open store at %s: %w", path, err)
	}
	GlobalStore = s
	log.Printf("[INFO] store: opened %s", path)
	return nil
}

// CloseStore closes and clears the global store.
func CloseStore() {
	if GlobalStore == nil {
		return
	}
	if err := GlobalStore.Close(); err != nil {
		log.Printf("[WARN] store close error: %v", err)
	}
	GlobalStore = nil
}
