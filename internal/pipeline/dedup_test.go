// file: internal/pipeline/dedup_test.go
// version: 1.1.0
// guid: 9d5b2e7f-4c8a-4f1d-b6e9-2a5c8f3d7b1e

package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pedramholi/iran-memorial/internal/database"
	"github.com/pedramholi/iran-memorial/internal/models"
)

func seedDuplicatePair(t *testing.T, store database.Store) (rich, poor *models.Victim) {
	t.Helper()
	rich = seedVictim(t, store, &models.Victim{
		Slug:               "amini-mahsa",
		NameLatin:          "Mahsa Amini",
		NameFarsi:          strp("مهسا امینی"),
		DateOfDeath:        datep("2022-09-16"),
		Province:           strp("Kurdistan"),
		AgeAtDeath:         intp(22),
		VerificationStatus: models.StatusVerified,
	})
	poor = seedVictim(t, store, &models.Victim{
		Slug:        "mahsa-amini-2",
		NameLatin:   "Mahsa Amini",
		NameFarsi:   strp("مهسا (ژینا) امینی"),
		DateOfDeath: datep("2022-09-16"),
		Occupation:  strp("student"),
	})
	_, err := store.AddVictimSource(&models.VictimSource{
		VictimID: poor.ID, URL: "https://example.org/poor-source",
	})
	require.NoError(t, err)
	return rich, poor
}

func TestRunDedupDryRunPreviews(t *testing.T) {
	store := database.NewMemoryStore()
	seedDuplicatePair(t, store)

	result, err := RunDedup(store, DedupOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Stats.GroupsFound)
	assert.Equal(t, 1, result.Stats.AutoMerge)
	assert.Equal(t, 0, result.Stats.VictimsDeleted, "dry run must not delete")

	n, _ := store.CountVictims()
	assert.Equal(t, 2, n)
}

func TestRunDedupApplyMergesAndMigrates(t *testing.T) {
	store := database.NewMemoryStore()
	rich, poor := seedDuplicatePair(t, store)

	result, err := RunDedup(store, DedupOptions{Apply: true})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Stats.AutoMerge)
	assert.Equal(t, 1, result.Stats.VictimsDeleted)
	assert.Equal(t, 1, result.Stats.SourcesMigrated)

	require.Len(t, result.Merged, 1)
	assert.Equal(t, rich.ID, result.Merged[0].WinnerID, "verified record wins")

	gone, _ := store.GetVictimByID(poor.ID)
	assert.Nil(t, gone)

	winner, _ := store.GetVictimByID(rich.ID)
	require.NotNil(t, winner.Occupation)
	assert.Equal(t, "student", *winner.Occupation, "loser fields fill the winner")
	assert.Equal(t, 1, winner.SourceCount)
}

func TestRunDedupDateConflictNeverMerges(t *testing.T) {
	store := database.NewMemoryStore()
	seedVictim(t, store, &models.Victim{
		Slug:        "rezaei-ali",
		NameLatin:   "Ali Rezaei",
		NameFarsi:   strp("علی رضایی"),
		DateOfDeath: datep("2022-09-21"),
	})
	seedVictim(t, store, &models.Victim{
		Slug:        "rezaei-ali-2",
		NameLatin:   "Ali Rezaei",
		NameFarsi:   strp("علی رضایی"),
		DateOfDeath: datep("2022-11-04"),
	})

	result, err := RunDedup(store, DedupOptions{Apply: true})
	require.NoError(t, err)

	assert.Equal(t, 0, result.Stats.AutoMerge)
	assert.Equal(t, 0, result.Stats.VictimsDeleted)
	n, _ := store.CountVictims()
	assert.Equal(t, 2, n, "same name, conflicting dates: two people")
}

func TestRunDedupReviewBand(t *testing.T) {
	store := database.NewMemoryStore()
	// Latin word-set group, no Farsi: province match (+20) + place (+10)
	// scores 30, below auto (50) but inside review.
	seedVictim(t, store, &models.Victim{
		Slug:         "ahmadi-sara",
		NameLatin:    "Sara Ahmadi",
		Province:     strp("Kurdistan"),
		PlaceOfDeath: strp("Saqqez"),
	})
	seedVictim(t, store, &models.Victim{
		Slug:         "sara-ahmadi-2",
		NameLatin:    "Sara Ahmadi",
		Province:     strp("Kurdistan"),
		PlaceOfDeath: strp("Saqqez"),
	})

	result, err := RunDedup(store, DedupOptions{Apply: true})
	require.NoError(t, err)

	assert.Equal(t, 0, result.Stats.AutoMerge)
	assert.Equal(t, 1, result.Stats.Review)
	require.Len(t, result.Review, 1)
	n, _ := store.CountVictims()
	assert.Equal(t, 2, n)
}

// Clusters must form from the auto-threshold score graph. A review-band
// edge (here 35) may not bridge a third record into the merge component
// or decide its winner; it only surfaces in the review report.
func TestRunDedupClustersAtAutoThreshold(t *testing.T) {
	store := database.NewMemoryStore()
	a := seedVictim(t, store, &models.Victim{
		Slug:         "mousavi-hossein",
		NameLatin:    "Hossein Mousavi",
		NameFarsi:    strp("حسین موسوی"),
		DateOfDeath:  datep("2022-10-26"),
		Province:     strp("Tehran"),
		AgeAtDeath:   intp(22),
		Occupation:   strp("teacher"),
		PlaceOfDeath: strp("Tehran"),
	})
	b := seedVictim(t, store, &models.Victim{
		Slug:        "hossein-mousavi-2",
		NameLatin:   "Hossein Mousavi",
		NameFarsi:   strp("حسین موسوی"),
		DateOfDeath: datep("2022-10-26"),
		Province:    strp("Tehran"),
		AgeAtDeath:  intp(24),
	})
	// Scores 35 against both others: same Farsi name (+50), one-sided
	// date (+5), different province (-20). Most complete by far, so a
	// review-threshold graph would crown it winner of all three.
	c := seedVictim(t, store, &models.Victim{
		Slug:               "hossein-mousavi-3",
		NameLatin:          "Hossein Mousavi",
		NameFarsi:          strp("حسین موسوی"),
		Province:           strp("Isfahan"),
		VerificationStatus: models.StatusVerified,
	})

	result, err := RunDedup(store, DedupOptions{Apply: true})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Stats.AutoMerge)
	require.Len(t, result.Merged, 1)
	assert.Equal(t, a.ID, result.Merged[0].WinnerID)
	require.Len(t, result.Merged[0].Losers, 1)
	assert.Equal(t, b.ID, result.Merged[0].Losers[0].VictimID)

	gone, _ := store.GetVictimByID(b.ID)
	assert.Nil(t, gone)
	kept, _ := store.GetVictimByID(c.ID)
	require.NotNil(t, kept, "review-band record must survive untouched")
	n, _ := store.CountVictims()
	assert.Equal(t, 2, n)

	// The 35-score pair is reported for a human, never written.
	assert.Equal(t, 1, result.Stats.Review)
	require.Len(t, result.Review, 1)
	assert.Equal(t, c.ID, result.Review[0].WinnerID)
	require.Len(t, result.Review[0].Losers, 1)
	assert.Equal(t, a.ID, result.Review[0].Losers[0].VictimID)
}

func TestRunDedupEmptyStore(t *testing.T) {
	store := database.NewMemoryStore()
	result, err := RunDedup(store, DedupOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Stats.GroupsFound)
}
