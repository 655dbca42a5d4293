// file: internal/pipeline/dedup.go
// version: 1.2.0
// guid: 2b8d5f1e-9c4a-4e7b-a1d6-6f3c8b5e2a9d

package pipeline

import (
	"fmt"
	"log"

	"github.com/pedramholi/iran-memorial/internal/database"
	"github.com/pedramholi/iran-memorial/internal/dedup"
	"github.com/pedramholi/iran-memorial/internal/matcher"
	"github.com/pedramholi/iran-memorial/internal/merge"
	"github.com/pedramholi/iran-memorial/internal/metrics"
	"github.com/pedramholi/iran-memorial/internal/models"
)

// DedupOptions configure one dedup pass. Apply defaults to false: the
// pass previews merges unless explicitly told to write.
type DedupOptions struct {
	AutoThreshold   int
	ReviewThreshold int
	Apply           bool
}

// DedupResult is the outcome: totals, the clusters that were (or would
// be) merged automatically, and the lower-confidence clusters queued for
// review.
type DedupResult struct {
	Stats  models.DedupStats
	Merged []models.DedupCluster
	Review []models.DedupCluster
}

// RunDedup scans the whole canonical store for duplicate records.
// Clusters form from pair scores at or above AutoThreshold and merge
// (when Apply is set); a second clustering pass at ReviewThreshold
// reports what remains in the review band, never writing it.
func RunDedup(store database.Store, opts DedupOptions) (*DedupResult, error) {
	if opts.AutoThreshold <= 0 {
		opts.AutoThreshold = 50
	}
	if opts.ReviewThreshold <= 0 {
		opts.ReviewThreshold = 30
	}

	victims, err := store.GetAllVictims()
	if err != nil {
		return nil, fmt.Errorf("dedup: load store: %w", err)
	}

	byID := make(map[string]*models.Victim, len(victims))
	for _, v := range victims {
		byID[v.ID] = v
	}

	groups := dedup.FindGroups(victims)
	log.Printf("[INFO] dedup: %d candidate groups across %d records", len(groups), len(victims))

	result := &DedupResult{}
	result.Stats.GroupsFound = len(groups)
	consumed := make(map[string]bool) // losers merged away this pass

	for _, group := range groups {
		// Merge graph built at the auto threshold: review-band edges
		// must not bridge components or pick winners.
		for _, cluster := range dedup.AnalyzeGroup(group, opts.AutoThreshold) {
			if consumed[cluster.WinnerID] {
				result.Stats.Skipped++
				continue
			}

			auto := models.DedupCluster{WinnerID: cluster.WinnerID, WinnerSlug: cluster.WinnerSlug}
			for _, loser := range cluster.Losers {
				if consumed[loser.VictimID] {
					result.Stats.Skipped++
					continue
				}
				auto.Losers = append(auto.Losers, loser)
			}
			if len(auto.Losers) == 0 {
				continue
			}

			if err := applyCluster(store, byID, &auto, opts.Apply, &result.Stats); err != nil {
				log.Printf("[WARN] dedup: cluster %s: %v", auto.WinnerSlug, err)
				continue
			}
			result.Merged = append(result.Merged, auto)
			result.Stats.AutoMerge++
			for _, loser := range auto.Losers {
				consumed[loser.VictimID] = true
			}
		}

		// Second pass at the review threshold surfaces the remaining
		// lower-confidence pairs for a human decision. Never written.
		for _, cluster := range dedup.AnalyzeGroup(group, opts.ReviewThreshold) {
			if consumed[cluster.WinnerID] {
				continue
			}
			review := models.DedupCluster{WinnerID: cluster.WinnerID, WinnerSlug: cluster.WinnerSlug}
			for _, loser := range cluster.Losers {
				if consumed[loser.VictimID] || loser.VictimID == cluster.WinnerID {
					continue
				}
				review.Losers = append(review.Losers, loser)
			}
			if len(review.Losers) > 0 {
				result.Review = append(result.Review, review)
				result.Stats.Review += len(review.Losers)
			}
		}
	}

	if opts.Apply {
		if n, err := store.CountVictims(); err == nil {
			metrics.SetVictims(n)
		}
	}
	return result, nil
}

// applyCluster merges every loser into the winner, one transaction per
// loser so a failure mid-cluster leaves prior merges intact and later
// ones untouched.
func applyCluster(store database.Store, byID map[string]*models.Victim, cluster *models.DedupCluster, apply bool, stats *models.DedupStats) error {
	winner, ok := byID[cluster.WinnerID]
	if !ok {
		return fmt.Errorf("winner %s not loaded", cluster.WinnerID)
	}

	for _, loserRef := range cluster.Losers {
		loser, ok := byID[loserRef.VictimID]
		if !ok {
			return fmt.Errorf("loser %s not loaded", loserRef.VictimID)
		}

		// Last line of defense: the scorer's veto keeps such pairs out
		// of clusters, but a date filled mid-cluster can surface one.
		if matcher.HasDateConflict(matcher.FieldsFromVictim(winner), matcher.FieldsFromVictim(loser)) {
			log.Printf("[WARN] dedup: %s and %s have conflicting death dates, not merging",
				winner.Slug, loser.Slug)
			stats.Skipped++
			continue
		}

		changed := merge.Fill(winner, merge.DonorFromVictim(loser))
		if !apply {
			log.Printf("[INFO] dedup: dry-run: would merge %s into %s (score %d, fills %v)",
				loser.Slug, winner.Slug, loserRef.Score, changed)
			stats.VictimsMerged++
			continue
		}

		srcN, photoN, err := store.ApplyMerge(winner, loser.ID)
		if err != nil {
			return fmt.Errorf("merge %s into %s: %w", loser.Slug, winner.Slug, err)
		}
		stats.VictimsMerged++
		stats.VictimsDeleted++
		stats.SourcesMigrated += srcN
		stats.PhotosMigrated += photoN
		metrics.IncMergesApplied()
		log.Printf("[INFO] dedup: merged %s into %s (score %d, %d fields, %d sources, %d photos)",
			loser.Slug, winner.Slug, loserRef.Score, len(changed), srcN, photoN)
	}
	return nil
}
