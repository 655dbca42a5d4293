// file: internal/search/search.go
// version: 1.1.0
// guid: 6e9b3d7f-2c5a-4f8e-b4d1-7a3c9e5f2b8d

package search

import (
	"fmt"
	"log"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/pedramholi/iran-memorial/internal/models"
)

// Index is an in-memory full-text index over the canonical store, built
// fresh per command. Latin names, Farsi names, aliases, and circumstance
// text are all searchable.
type Index struct {
	idx  bleve.Index
	byID map[string]*models.Victim
}

// indexDoc is the flat document shape fed to bleve.
type indexDoc struct {
	NameLatin       string `json:"name_latin"`
	NameFarsi       string `json:"name_farsi"`
	Aliases         string `json:"aliases"`
	Province        string `json:"province"`
	PlaceOfDeath    string `json:"place_of_death"`
	Occupation      string `json:"occupation"`
	CircumstancesEN string `json:"circumstances_en"`
}

// Build indexes every record. O(n); intended for operator commands, not
// the hot path.
func Build(victims []*models.Victim) (*Index, error) {
	mapping := bleve.NewIndexMapping()
	idx, err := bleve.NewMemOnly(mapping)
	if err != nil {
		return nil, fmt.Errorf("search: create index: %w", err)
	}

	s := &Index{idx: idx, byID: make(map[string]*models.Victim, len(victims))}
	batch := idx.NewBatch()
	for _, v := range victims {
		doc := indexDoc{NameLatin: v.NameLatin, Aliases: strings.Join(v.Aliases, " ")}
		if v.NameFarsi != nil {
			doc.NameFarsi = *v.NameFarsi
		}
		if v.Province != nil {
			doc.Province = *v.Province
		}
		if v.PlaceOfDeath != nil {
			doc.PlaceOfDeath = *v.PlaceOfDeath
		}
		if v.Occupation != nil {
			doc.Occupation = *v.Occupation
		}
		if v.CircumstancesEN != nil {
			doc.CircumstancesEN = *v.CircumstancesEN
		}
		if err := batch.Index(v.ID, doc); err != nil {
			return nil, fmt.Errorf("search: index %s: %w", v.Slug, err)
		}
		s.byID[v.ID] = v
	}
	if err := idx.Batch(batch); err != nil {
		return nil, fmt.Errorf("search: commit batch: %w", err)
	}
	log.Printf("[INFO] search: indexed %d records", len(victims))
	return s, nil
}

// Hit is one search result.
type Hit struct {
	Victim *models.Victim
	Score  float64
}

// Query runs a match query across all indexed fields and returns up to
// limit hits, best first. Falls back to fuzzy matching when the exact
// query finds nothing.
func (s *Index) Query(text string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = 10
	}

	hits, err := s.run(bleve.NewMatchQuery(text), limit)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		fq := bleve.NewFuzzyQuery(strings.ToLower(text))
		fq.SetFuzziness(2)
		return s.run(fq, limit)
	}
	return hits, nil
}

func (s *Index) run(q query.Query, limit int) ([]Hit, error) {
	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	res, err := s.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		if v, ok := s.byID[h.ID]; ok {
			hits = append(hits, Hit{Victim: v, Score: h.Score})
		}
	}
	return hits, nil
}

// Close releases the index.
func (s *Index) Close() error {
	return s.idx.Close()
}
