// file: internal/matcher/matcher.go
// version: 1.4.0
// guid: 1e6a9c3f-7b2d-4d8e-9f5a-4c8b1e6d9a2f

package matcher

import (
	"sort"
	"strings"

	"github.com/pedramholi/iran-memorial/internal/index"
	"github.com/pedramholi/iran-memorial/internal/models"
	"github.com/pedramholi/iran-memorial/internal/normalizer"
)

// Default confidence thresholds.
const (
	DefaultAutoThreshold   = 50
	DefaultReviewThreshold = 30
)

// Partial word-set stage gates: at least this many shared tokens, covering
// at least this fraction of the smaller set.
const (
	partialMinOverlap = 2
	partialMinRatio   = 0.7
)

// maxReviewCandidates is how many ranked candidates an ambiguous result carries.
const maxReviewCandidates = 3

// Matcher runs the staged search for one incoming record against a
// pre-built index. It is stateless between calls and safe for concurrent
// use since the index is read-only.
type Matcher struct {
	idx             *index.VictimIndex
	autoThreshold   int
	reviewThreshold int
}

// New creates a Matcher. Zero thresholds select the defaults.
func New(idx *index.VictimIndex, autoThreshold, reviewThreshold int) *Matcher {
	if autoThreshold <= 0 {
		autoThreshold = DefaultAutoThreshold
	}
	if reviewThreshold <= 0 {
		reviewThreshold = DefaultReviewThreshold
	}
	return &Matcher{idx: idx, autoThreshold: autoThreshold, reviewThreshold: reviewThreshold}
}

// Match tries the stages in order and stops at the first that yields a
// confident or ambiguous result. Exhausting all stages means unmatched.
func (m *Matcher) Match(ext *models.ExternalVictim) models.MatchResult {
	extWords := normalizer.WordSet(ext.NameLatin)

	// Stage 1: provenance. The URL being attached is near-conclusive, but
	// collection-level URLs (index pages shared by many people) make a
	// name-token overlap gate necessary.
	if ext.SourceURL != "" {
		if vid, ok := m.idx.URLToVictim[ext.SourceURL]; ok {
			if v, ok := m.idx.ByID[vid]; ok {
				if normalizer.Overlap(extWords, m.idx.WordSetOf(vid)) >= 1 {
					return models.MatchResult{
						Matched:  true,
						VictimID: vid,
						Slug:     v.Slug,
						Victim:   v,
						Score:    100,
						Reasons:  []string{"source URL already linked + name overlap"},
					}
				}
			}
		}
	}

	// Stage 2: exact normalized Farsi key.
	if ext.NameFarsi != nil {
		if key := normalizer.NormalizeFarsi(*ext.NameFarsi); key != "" {
			if candidates := m.idx.ByFarsi[key]; len(candidates) > 0 {
				if r, ok := m.scoreCandidates(ext, candidates, false); ok {
					return r
				}
			}
		}
	}

	// Stage 3: exact Latin word-set.
	if key := normalizer.WordSetKey(extWords); key != "" {
		if candidates := m.idx.ByLatinWords[key]; len(candidates) > 0 {
			if r, ok := m.scoreCandidates(ext, candidates, false); ok {
				return r
			}
		}
	}

	// Stage 4: partial Latin word-set overlap.
	if len(extWords) > 0 {
		var partial []*models.Victim
		for key, vlist := range m.idx.ByLatinWords {
			keyWords := strings.Fields(key)
			overlap := 0
			for _, w := range keyWords {
				if _, ok := extWords[w]; ok {
					overlap++
				}
			}
			minLen := len(keyWords)
			if len(extWords) < minLen {
				minLen = len(extWords)
			}
			if overlap >= partialMinOverlap && float64(overlap)/float64(minLen) >= partialMinRatio {
				partial = append(partial, vlist...)
			}
		}
		if len(partial) > 0 {
			if r, ok := m.scoreCandidates(ext, partial, false); ok {
				return r
			}
		}
	}

	// Stage 5: (death date, province) co-occurrence. Date and region alone
	// are too weak; require at least one shared name token.
	if ext.DateOfDeath != nil && ext.Province != nil {
		key := index.DateProvinceKey(*ext.DateOfDeath, *ext.Province)
		if candidates := m.idx.ByDateProvince[key]; len(candidates) > 0 {
			if r, ok := m.scoreCandidates(ext, candidates, true); ok {
				return r
			}
		}
	}

	return models.MatchResult{UnmatchedName: ext.NameLatin}
}

type scoredCandidate struct {
	victim  *models.Victim
	score   int
	reasons []string
}

// scoreCandidates scores every candidate and classifies the best:
// confident match, ambiguous (with up to 3 ranked candidates), or nothing
// (ok=false, caller falls through to the next stage).
func (m *Matcher) scoreCandidates(ext *models.ExternalVictim, candidates []*models.Victim, requireNameOverlap bool) (models.MatchResult, bool) {
	extFields := FieldsFromExternal(ext)
	extWords := normalizer.WordSet(ext.NameLatin)

	scored := make([]scoredCandidate, 0, len(candidates))
	for _, v := range candidates {
		if requireNameOverlap && normalizer.Overlap(extWords, m.idx.WordSetOf(v.ID)) == 0 {
			continue
		}
		score, reasons := ScorePair(extFields, FieldsFromVictim(v))
		scored = append(scored, scoredCandidate{victim: v, score: score, reasons: reasons})
	}
	if len(scored) == 0 {
		return models.MatchResult{}, false
	}

	// Stable tie-break on ID keeps results deterministic across runs.
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].victim.ID < scored[j].victim.ID
	})

	best := scored[0]
	if best.score >= m.autoThreshold {
		return models.MatchResult{
			Matched:  true,
			VictimID: best.victim.ID,
			Slug:     best.victim.Slug,
			Victim:   best.victim,
			Score:    best.score,
			Reasons:  best.reasons,
		}, true
	}

	if best.score >= m.reviewThreshold {
		n := len(scored)
		if n > maxReviewCandidates {
			n = maxReviewCandidates
		}
		result := models.MatchResult{Ambiguous: true, Score: best.score, Reasons: best.reasons}
		for _, sc := range scored[:n] {
			result.Candidates = append(result.Candidates, models.Candidate{
				VictimID: sc.victim.ID,
				Slug:     sc.victim.Slug,
				Score:    sc.score,
				Reasons:  sc.reasons,
			})
		}
		return result, true
	}

	return models.MatchResult{}, false
}
