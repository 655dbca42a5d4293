// file: internal/dedup/dedup.go
// version: 1.5.0
// guid: 4a7d2f9b-6e3c-4b8a-9c5d-1f8e4b7a2c9d

package dedup

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/pedramholi/iran-memorial/internal/matcher"
	"github.com/pedramholi/iran-memorial/internal/models"
	"github.com/pedramholi/iran-memorial/internal/normalizer"
)

// Grouping gates. Near-empty names over-group badly: a two-letter Farsi
// fragment would pull hundreds of unrelated records into one bucket.
const (
	minFarsiRunes    = 4
	minLatinLen      = 6
	minLatinTokens   = 2
	maxGivenNameDist = 2 // levenshtein gate for the family-name fallback
)

var reParens = regexp.MustCompile(`\s*\([^)]*\)\s*`)

// farsiGroupKey strips parenthetical aliases before normalizing, so
// "مهسا (ژینا) امینی" and "مهسا امینی" land in the same bucket.
func farsiGroupKey(nameFarsi string) string {
	cleaned := strings.TrimSpace(reParens.ReplaceAllString(nameFarsi, " "))
	return normalizer.NormalizeFarsi(cleaned)
}

func isUnusableName(nameLatin string) bool {
	switch strings.ToLower(strings.TrimSpace(nameLatin)) {
	case "", "unknown", "unknwon":
		return true
	}
	return false
}

// FindGroups buckets the canonical store into candidate duplicate groups:
// first by normalized Farsi key, then by Latin word-set for records not
// already in a multi-member Farsi group, then by a family-name +
// near-identical given-name fallback for what remains. Only groups with
// two or more members are returned. Grouping is deliberately loose — the
// scorer and the date veto gate every actual merge.
func FindGroups(victims []*models.Victim) [][]*models.Victim {
	var groups [][]*models.Victim
	grouped := make(map[string]bool)

	byFarsi := make(map[string][]*models.Victim)
	var farsiKeys []string
	for _, v := range victims {
		if isUnusableName(v.NameLatin) || v.NameFarsi == nil {
			continue
		}
		if len([]rune(strings.TrimSpace(*v.NameFarsi))) < minFarsiRunes {
			continue
		}
		key := farsiGroupKey(*v.NameFarsi)
		if key == "" {
			continue
		}
		if _, ok := byFarsi[key]; !ok {
			farsiKeys = append(farsiKeys, key)
		}
		byFarsi[key] = append(byFarsi[key], v)
	}
	sort.Strings(farsiKeys)
	for _, key := range farsiKeys {
		group := byFarsi[key]
		if len(group) < 2 {
			continue
		}
		groups = append(groups, group)
		for _, v := range group {
			grouped[v.ID] = true
		}
	}

	byLatin := make(map[string][]*models.Victim)
	var latinKeys []string
	for _, v := range victims {
		if grouped[v.ID] || isUnusableName(v.NameLatin) {
			continue
		}
		if len(strings.ToLower(strings.TrimSpace(v.NameLatin))) < minLatinLen {
			continue
		}
		words := normalizer.WordSet(v.NameLatin)
		if len(words) < minLatinTokens {
			continue
		}
		key := normalizer.WordSetKey(words)
		if _, ok := byLatin[key]; !ok {
			latinKeys = append(latinKeys, key)
		}
		byLatin[key] = append(byLatin[key], v)
	}
	sort.Strings(latinKeys)
	for _, key := range latinKeys {
		group := byLatin[key]
		if len(group) < 2 {
			continue
		}
		groups = append(groups, group)
		for _, v := range group {
			grouped[v.ID] = true
		}
	}

	groups = append(groups, familyNameGroups(victims, grouped)...)
	return groups
}

// familyNameGroups catches transliteration drift the word-set pass misses:
// records sharing a family-name token whose given names differ by a small
// edit distance ("Sadegh"/"Sadeq"). The scorer still decides whether any
// pair actually merges.
func familyNameGroups(victims []*models.Victim, grouped map[string]bool) [][]*models.Victim {
	type entry struct {
		victim *models.Victim
		given  string
	}
	byFamily := make(map[string][]entry)
	var familyKeys []string

	for _, v := range victims {
		if grouped[v.ID] || isUnusableName(v.NameLatin) {
			continue
		}
		normalized := normalizer.NormalizeLatin(v.NameLatin)
		tokens := strings.Fields(normalized)
		if len(tokens) < minLatinTokens {
			continue
		}
		family := tokens[len(tokens)-1]
		given := strings.Join(tokens[:len(tokens)-1], " ")
		if _, ok := byFamily[family]; !ok {
			familyKeys = append(familyKeys, family)
		}
		byFamily[family] = append(byFamily[family], entry{victim: v, given: given})
	}
	sort.Strings(familyKeys)

	var groups [][]*models.Victim
	for _, family := range familyKeys {
		entries := byFamily[family]
		if len(entries) < 2 {
			continue
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].victim.ID < entries[j].victim.ID })

		uf := newUnionFind(len(entries))
		for i := 0; i < len(entries); i++ {
			for j := i + 1; j < len(entries); j++ {
				dist := fuzzy.LevenshteinDistance(entries[i].given, entries[j].given)
				if dist <= maxGivenNameDist {
					uf.union(i, j)
				}
			}
		}
		for _, comp := range uf.components() {
			if len(comp) < 2 {
				continue
			}
			group := make([]*models.Victim, 0, len(comp))
			for _, i := range comp {
				group = append(group, entries[i].victim)
			}
			groups = append(groups, group)
		}
	}
	return groups
}

// trackedFieldValues lists the scalar fields counted toward completeness.
func trackedFieldValues(v *models.Victim) []interface{} {
	return []interface{}{
		v.NameFarsi, v.DateOfBirth, v.PlaceOfBirth, v.Gender, v.Religion,
		v.Ethnicity, v.Occupation, v.Education, v.PhotoURL,
		v.DateOfDeath, v.AgeAtDeath, v.PlaceOfDeath, v.Province,
		v.CauseOfDeath, v.CircumstancesEN, v.CircumstancesFA,
		v.EventContext, v.ResponsibleForces,
	}
}

// CompletenessScore ranks a record's richness for winner selection.
// Verified curation dominates; beyond that, populated fields, distinct
// sources, photographs, and especially a resolved death date all count.
func CompletenessScore(v *models.Victim) int {
	score := 0
	if v.VerificationStatus == models.StatusVerified {
		score += 100
	}
	for _, val := range trackedFieldValues(v) {
		if populated(val) {
			score++
		}
	}
	if len(v.Aliases) > 0 {
		score++
	}
	score += v.SourceCount * 5
	score += v.PhotoCount * 3
	if v.DateOfDeath != nil {
		score += 20
	}
	if v.PhotoURL != nil && strings.TrimSpace(*v.PhotoURL) != "" {
		score += 10
	}
	return score
}

func populated(val interface{}) bool {
	switch x := val.(type) {
	case *string:
		return x != nil && strings.TrimSpace(*x) != "" && strings.ToLower(*x) != "unknown"
	case *int:
		return x != nil
	case *time.Time:
		return x != nil
	default:
		return false
	}
}

// AnalyzeGroup scores every pair inside a candidate group, links pairs at
// or above threshold through a union-find, and resolves each connected
// component into a merge cluster. A member of a component that does not
// itself clear the threshold against the chosen winner is skipped, not
// forced. Returns zero clusters when no qualifying edges exist.
func AnalyzeGroup(group []*models.Victim, threshold int) []models.DedupCluster {
	if len(group) < 2 {
		return nil
	}

	// Deterministic member ordering regardless of load order.
	members := make([]*models.Victim, len(group))
	copy(members, group)
	sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })

	fields := make([]matcher.Fields, len(members))
	for i, v := range members {
		fields[i] = matcher.FieldsFromVictim(v)
	}

	uf := newUnionFind(len(members))
	edges := 0
	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			if score, _ := matcher.ScorePair(fields[i], fields[j]); score >= threshold {
				uf.union(i, j)
				edges++
			}
		}
	}
	if edges == 0 {
		return nil
	}

	var clusters []models.DedupCluster
	for _, comp := range uf.components() {
		if len(comp) < 2 {
			continue
		}

		// Winner: highest completeness; ties break on lexically smallest
		// ID — stable but arbitrary.
		winnerIdx := comp[0]
		winnerScore := CompletenessScore(members[winnerIdx])
		for _, i := range comp[1:] {
			if s := CompletenessScore(members[i]); s > winnerScore ||
				(s == winnerScore && members[i].ID < members[winnerIdx].ID) {
				winnerIdx, winnerScore = i, s
			}
		}

		winner := members[winnerIdx]
		cluster := models.DedupCluster{WinnerID: winner.ID, WinnerSlug: winner.Slug}
		for _, i := range comp {
			if i == winnerIdx {
				continue
			}
			score, reasons := matcher.ScorePair(fields[winnerIdx], fields[i])
			if score < threshold {
				continue
			}
			cluster.Losers = append(cluster.Losers, models.LoserScore{
				VictimID: members[i].ID,
				Slug:     members[i].Slug,
				Score:    score,
				Reasons:  reasons,
			})
		}
		if len(cluster.Losers) > 0 {
			clusters = append(clusters, cluster)
		}
	}
	return clusters
}
