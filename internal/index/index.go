// file: internal/index/index.go
// version: 1.1.0
// guid: 8b4e7c2a-6d9f-4e1b-a3c8-5f2d9b6e1a4c

package index

import (
	"log"
	"strings"
	"time"

	"github.com/pedramholi/iran-memorial/internal/models"
	"github.com/pedramholi/iran-memorial/internal/normalizer"
)

// VictimIndex holds pre-built lookup structures over the canonical store.
// Build once per run; all lookups are read-only afterwards, so concurrent
// matching needs no locking.
type VictimIndex struct {
	ByID           map[string]*models.Victim
	BySlug         map[string]*models.Victim
	ByFarsi        map[string][]*models.Victim
	ByLatinWords   map[string][]*models.Victim
	ByDateProvince map[string][]*models.Victim
	URLToVictim    map[string]string

	// Cached word sets keyed by victim ID, computed once at build time.
	wordSets map[string]map[string]struct{}
}

// DateProvinceKey builds the composite key for the (death date, region) lookup.
func DateProvinceKey(dod time.Time, province string) string {
	return dod.Format("2006-01-02") + "|" + strings.ToLower(strings.TrimSpace(province))
}

// Build constructs the index from the full canonical store plus the
// per-victim source URL sets. O(n) over victims.
func Build(victims []*models.Victim, sourceURLs map[string][]string) *VictimIndex {
	idx := &VictimIndex{
		ByID:           make(map[string]*models.Victim, len(victims)),
		BySlug:         make(map[string]*models.Victim, len(victims)),
		ByFarsi:        make(map[string][]*models.Victim),
		ByLatinWords:   make(map[string][]*models.Victim),
		ByDateProvince: make(map[string][]*models.Victim),
		URLToVictim:    make(map[string]string),
		wordSets:       make(map[string]map[string]struct{}, len(victims)),
	}

	for vid, urls := range sourceURLs {
		for _, u := range urls {
			idx.URLToVictim[u] = vid
		}
	}

	for _, v := range victims {
		idx.ByID[v.ID] = v
		idx.BySlug[v.Slug] = v

		if v.NameFarsi != nil {
			if key := normalizer.NormalizeFarsi(*v.NameFarsi); key != "" {
				idx.ByFarsi[key] = append(idx.ByFarsi[key], v)
			}
		}

		words := normalizer.WordSet(v.NameLatin)
		idx.wordSets[v.ID] = words
		if key := normalizer.WordSetKey(words); key != "" {
			idx.ByLatinWords[key] = append(idx.ByLatinWords[key], v)
		}

		if v.DateOfDeath != nil && v.Province != nil && strings.TrimSpace(*v.Province) != "" {
			key := DateProvinceKey(*v.DateOfDeath, *v.Province)
			idx.ByDateProvince[key] = append(idx.ByDateProvince[key], v)
		}
	}

	log.Printf("[INFO] index: built over %d victims, %d source URLs, %d farsi keys, %d latin keys",
		len(victims), len(idx.URLToVictim), len(idx.ByFarsi), len(idx.ByLatinWords))
	return idx
}

// WordSetOf returns the cached Latin word set for a victim ID.
func (idx *VictimIndex) WordSetOf(vid string) map[string]struct{} {
	return idx.wordSets[vid]
}

// Size returns the number of indexed victims.
func (idx *VictimIndex) Size() int {
	return len(idx.ByID)
}
