// file: internal/database/memory_store.go
// version: 1.2.0
// guid: 3b9e7c2a-5d1f-4a8e-9b4c-7f2d8e5a1c3b

package database

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pedramholi/iran-memorial/internal/models"
)

// MemoryStore is an in-memory Store used by tests and dry runs. It
// mirrors SQLite semantics: URL uniqueness per victim, cascade delete,
// and atomic merge application.
type MemoryStore struct {
	mu      sync.RWMutex
	victims map[string]*models.Victim
	sources map[string][]models.VictimSource
	photos  map[string][]models.VictimPhoto
	nextID  int
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		victims: make(map[string]*models.Victim),
		sources: make(map[string][]models.VictimSource),
		photos:  make(map[string][]models.VictimPhoto),
	}
}

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }

// Reset drops everything.
func (m *MemoryStore) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.victims = make(map[string]*models.Victim)
	m.sources = make(map[string][]models.VictimSource)
	m.photos = make(map[string][]models.VictimPhoto)
	return nil
}

func (m *MemoryStore) cloneVictim(v *models.Victim) *models.Victim {
	c := *v
	c.Aliases = append([]string(nil), v.Aliases...)
	c.SourceCount = len(m.sources[v.ID])
	c.PhotoCount = len(m.photos[v.ID])
	return &c
}

// GetAllVictims returns every record ordered by ID.
func (m *MemoryStore) GetAllVictims() ([]*models.Victim, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.Victim, 0, len(m.victims))
	for _, v := range m.victims {
		out = append(out, m.cloneVictim(v))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetVictimByID returns a record copy or nil.
func (m *MemoryStore) GetVictimByID(id string) (*models.Victim, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.victims[id]
	if !ok {
		return nil, nil
	}
	return m.cloneVictim(v), nil
}

// GetVictimBySlug returns a record copy or nil.
func (m *MemoryStore) GetVictimBySlug(slug string) (*models.Victim, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, v := range m.victims {
		if v.Slug == slug {
			return m.cloneVictim(v), nil
		}
	}
	return nil, nil
}

// CreateVictim inserts a record, generating ID and timestamps as SQLite does.
func (m *MemoryStore) CreateVictim(v *models.Victim) (*models.Victim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v.ID == "" {
		v.ID = NewULID()
	}
	if _, exists := m.victims[v.ID]; exists {
		return nil, fmt.Errorf("duplicate victim id %s", v.ID)
	}
	for _, existing := range m.victims {
		if existing.Slug == v.Slug {
			return nil, fmt.Errorf("duplicate slug %s", v.Slug)
		}
	}
	if v.VerificationStatus == "" {
		v.VerificationStatus = models.StatusUnverified
	}
	now := time.Now().UTC()
	if v.CreatedAt.IsZero() {
		v.CreatedAt = now
	}
	v.UpdatedAt = now
	m.victims[v.ID] = m.cloneVictim(v)
	return v, nil
}

// UpdateVictim overwrites the stored record.
func (m *MemoryStore) UpdateVictim(v *models.Victim) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.victims[v.ID]; !ok {
		return fmt.Errorf("victim %s not found", v.ID)
	}
	v.UpdatedAt = time.Now().UTC()
	m.victims[v.ID] = m.cloneVictim(v)
	return nil
}

// DeleteVictim removes a record and its attributions.
func (m *MemoryStore) DeleteVictim(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.victims, id)
	delete(m.sources, id)
	delete(m.photos, id)
	return nil
}

// CountVictims returns the store size.
func (m *MemoryStore) CountVictims() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.victims), nil
}

// GetVictimSources lists attributions for one victim.
func (m *MemoryStore) GetVictimSources(victimID string) ([]models.VictimSource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.VictimSource(nil), m.sources[victimID]...), nil
}

func (m *MemoryStore) hasSourceURL(victimID, url string) bool {
	for _, s := range m.sources[victimID] {
		if s.URL == url {
			return true
		}
	}
	return false
}

func (m *MemoryStore) addSourceLocked(src models.VictimSource) bool {
	if strings.TrimSpace(src.URL) == "" || m.hasSourceURL(src.VictimID, src.URL) {
		return false
	}
	m.nextID++
	src.ID = m.nextID
	m.sources[src.VictimID] = append(m.sources[src.VictimID], src)
	return true
}

// AddVictimSource attaches an attribution, ignoring duplicate URLs.
func (m *MemoryStore) AddVictimSource(src *models.VictimSource) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.victims[src.VictimID]; !ok {
		return false, fmt.Errorf("victim %s not found", src.VictimID)
	}
	return m.addSourceLocked(*src), nil
}

// GetAllSourceURLs returns attribution URLs grouped by victim ID.
func (m *MemoryStore) GetAllSourceURLs() (map[string][]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string][]string, len(m.sources))
	for vid, list := range m.sources {
		for _, s := range list {
			out[vid] = append(out[vid], s.URL)
		}
	}
	return out, nil
}

// GetVictimPhotos lists photographs for one victim.
func (m *MemoryStore) GetVictimPhotos(victimID string) ([]models.VictimPhoto, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.VictimPhoto(nil), m.photos[victimID]...), nil
}

func (m *MemoryStore) addPhotoLocked(p models.VictimPhoto) bool {
	for _, existing := range m.photos[p.VictimID] {
		if existing.URL == p.URL {
			return false
		}
	}
	if p.Type == "" {
		p.Type = "portrait"
	}
	m.nextID++
	p.ID = m.nextID
	m.photos[p.VictimID] = append(m.photos[p.VictimID], p)
	return true
}

// AddVictimPhoto attaches a photograph, ignoring duplicate URLs.
func (m *MemoryStore) AddVictimPhoto(p *models.VictimPhoto) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.victims[p.VictimID]; !ok {
		return false, fmt.Errorf("victim %s not found", p.VictimID)
	}
	return m.addPhotoLocked(*p), nil
}

// EnrichVictim updates the record and attaches the new attribution.
func (m *MemoryStore) EnrichVictim(v *models.Victim, src *models.VictimSource) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.victims[v.ID]; !ok {
		return false, fmt.Errorf("victim %s not found", v.ID)
	}
	v.UpdatedAt = time.Now().UTC()
	m.victims[v.ID] = m.cloneVictim(v)
	if src == nil || strings.TrimSpace(src.URL) == "" {
		return false, nil
	}
	s := *src
	s.VictimID = v.ID
	return m.addSourceLocked(s), nil
}

// ApplyMerge mirrors the SQLite transaction: update winner, migrate
// sources and photos skipping duplicates, delete loser.
func (m *MemoryStore) ApplyMerge(winner *models.Victim, loserID string) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.victims[winner.ID]; !ok {
		return 0, 0, fmt.Errorf("winner %s not found", winner.ID)
	}
	if _, ok := m.victims[loserID]; !ok {
		return 0, 0, fmt.Errorf("loser %s not found", loserID)
	}

	winner.UpdatedAt = time.Now().UTC()
	m.victims[winner.ID] = m.cloneVictim(winner)

	srcN := 0
	for _, s := range m.sources[loserID] {
		s.VictimID = winner.ID
		if m.addSourceLocked(s) {
			srcN++
		}
	}
	photoN := 0
	for _, p := range m.photos[loserID] {
		p.VictimID = winner.ID
		if m.addPhotoLocked(p) {
			photoN++
		}
	}

	delete(m.victims, loserID)
	delete(m.sources, loserID)
	delete(m.photos, loserID)
	return srcN, photoN, nil
}
