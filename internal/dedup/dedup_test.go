// file: internal/dedup/dedup_test.go
// version: 1.0.0
// guid: 9f4c1e7a-3d8b-4a2e-b6c9-7e1a4d8f2b5c

package dedup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pedramholi/iran-memorial/internal/models"
)

func strp(s string) *string { return &s }
func intp(n int) *int       { return &n }
func datep(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestFindGroupsFarsiKeyStripsParentheticalAlias(t *testing.T) {
	victims := []*models.Victim{
		{ID: "01A", Slug: "amini-mahsa", NameLatin: "Mahsa Amini", NameFarsi: strp("مهسا امینی")},
		{ID: "01B", Slug: "amini-jina", NameLatin: "Jina Amini", NameFarsi: strp("مهسا (ژینا) امینی")},
	}

	groups := FindGroups(victims)
	require.Len(t, groups, 1)
	assert.Len(t, groups[0], 2)
}

func TestFindGroupsShortFarsiNameSkipped(t *testing.T) {
	victims := []*models.Victim{
		{ID: "01A", Slug: "a-1", NameLatin: "Ali Moradi", NameFarsi: strp("علی")},
		{ID: "01B", Slug: "a-2", NameLatin: "Ali Karimi", NameFarsi: strp("علی")},
	}

	// Three runes: too short to group on, and the Latin names differ.
	groups := FindGroups(victims)
	assert.Empty(t, groups)
}

func TestFindGroupsLatinFallback(t *testing.T) {
	// No Farsi names; identical word sets in different order group.
	victims := []*models.Victim{
		{ID: "01A", Slug: "pirfalak-kian", NameLatin: "Kian Pirfalak"},
		{ID: "01B", Slug: "kian-pirfalak", NameLatin: "Pirfalak Kian"},
	}

	groups := FindGroups(victims)
	require.Len(t, groups, 1)
	assert.Len(t, groups[0], 2)
}

func TestFindGroupsFamilyNameFallback(t *testing.T) {
	// Transliteration drift in the given name, same family name.
	victims := []*models.Victim{
		{ID: "01A", Slug: "moradi-sadegh", NameLatin: "Sadegh Moradi"},
		{ID: "01B", Slug: "moradi-sadeq", NameLatin: "Sadeq Moradi"},
	}

	groups := FindGroups(victims)
	require.Len(t, groups, 1)
	assert.Len(t, groups[0], 2)
}

func TestFindGroupsUnusableNamesSkipped(t *testing.T) {
	victims := []*models.Victim{
		{ID: "01A", Slug: "u-1", NameLatin: "Unknown", NameFarsi: strp("مهسا امینی")},
		{ID: "01B", Slug: "u-2", NameLatin: "unknown", NameFarsi: strp("مهسا امینی")},
	}

	groups := FindGroups(victims)
	assert.Empty(t, groups)
}

func TestFindGroupsDistinctNamesDoNotGroup(t *testing.T) {
	victims := []*models.Victim{
		{ID: "01A", Slug: "amini-mahsa", NameLatin: "Mahsa Amini", NameFarsi: strp("مهسا امینی")},
		{ID: "01B", Slug: "shakarami-nika", NameLatin: "Nika Shakarami", NameFarsi: strp("نیکا شاکرمی")},
	}

	groups := FindGroups(victims)
	assert.Empty(t, groups)
}

func TestCompletenessScoreRanking(t *testing.T) {
	poor := &models.Victim{ID: "01A", NameLatin: "Mahsa Amini"}
	rich := &models.Victim{
		ID: "01B", NameLatin: "Mahsa Amini",
		NameFarsi: strp("مهسا امینی"), Occupation: strp("student"),
		DateOfDeath: datep(2022, 9, 16), PhotoURL: strp("https://example.org/p.jpg"),
		SourceCount: 3, PhotoCount: 1,
	}
	verified := &models.Victim{
		ID: "01C", NameLatin: "Mahsa Amini",
		VerificationStatus: models.StatusVerified,
	}

	assert.Greater(t, CompletenessScore(rich), CompletenessScore(poor))
	// Verified curation outranks an unverified record with several fields.
	assert.Greater(t, CompletenessScore(verified), CompletenessScore(poor))
}

func TestCompletenessScoreUnknownValuesDoNotCount(t *testing.T) {
	a := &models.Victim{ID: "01A", NameLatin: "X", Gender: strp("unknown")}
	b := &models.Victim{ID: "01B", NameLatin: "X"}
	assert.Equal(t, CompletenessScore(b), CompletenessScore(a))
}

func TestAnalyzeGroupPicksMostCompleteWinner(t *testing.T) {
	farsi := strp("مهسا امینی")
	group := []*models.Victim{
		{ID: "01B", Slug: "amini-mahsa-2", NameLatin: "Mahsa Amini", NameFarsi: farsi},
		{
			ID: "01A", Slug: "amini-mahsa", NameLatin: "Mahsa Amini", NameFarsi: farsi,
			DateOfDeath: datep(2022, 9, 16), Province: strp("Kurdistan"),
			Occupation: strp("student"), SourceCount: 2,
		},
	}

	clusters := AnalyzeGroup(group, 30)
	require.Len(t, clusters, 1)
	assert.Equal(t, "01A", clusters[0].WinnerID)
	require.Len(t, clusters[0].Losers, 1)
	assert.Equal(t, "01B", clusters[0].Losers[0].VictimID)
	assert.GreaterOrEqual(t, clusters[0].Losers[0].Score, 30)
}

func TestAnalyzeGroupDateConflictNeverClusters(t *testing.T) {
	farsi := strp("محمد رضایی")
	group := []*models.Victim{
		{ID: "01A", Slug: "rezaei-1", NameLatin: "Mohammad Rezaei", NameFarsi: farsi,
			DateOfDeath: datep(2022, 9, 21)},
		{ID: "01B", Slug: "rezaei-2", NameLatin: "Mohammad Rezaei", NameFarsi: farsi,
			DateOfDeath: datep(2022, 11, 4)},
	}

	// Farsi +50 minus the date conflict leaves the pair far below threshold.
	clusters := AnalyzeGroup(group, 30)
	assert.Empty(t, clusters)
}

func TestAnalyzeGroupAdjacentDatesStillCluster(t *testing.T) {
	farsi := strp("نیکا شاکرمی")
	group := []*models.Victim{
		{ID: "01A", Slug: "shakarami-nika", NameLatin: "Nika Shakarami", NameFarsi: farsi,
			DateOfDeath: datep(2022, 9, 20)},
		{ID: "01B", Slug: "nika-shakarami", NameLatin: "Nika Shakarami", NameFarsi: farsi,
			DateOfDeath: datep(2022, 9, 21)},
	}

	clusters := AnalyzeGroup(group, 30)
	require.Len(t, clusters, 1)
}

func TestAnalyzeGroupWeakMemberNotForcedIn(t *testing.T) {
	farsi := strp("سارا احمدی")
	group := []*models.Victim{
		// A and B agree on everything.
		{ID: "01A", Slug: "ahmadi-1", NameLatin: "Sara Ahmadi", NameFarsi: farsi,
			DateOfDeath: datep(2022, 10, 26), Province: strp("Tehran"), AgeAtDeath: intp(24)},
		{ID: "01B", Slug: "ahmadi-2", NameLatin: "Sara Ahmadi", NameFarsi: farsi,
			DateOfDeath: datep(2022, 10, 26), Province: strp("Tehran"), AgeAtDeath: intp(24)},
		// C shares the name but conflicts on the date.
		{ID: "01C", Slug: "ahmadi-3", NameLatin: "Sara Ahmadi", NameFarsi: farsi,
			DateOfDeath: datep(2022, 12, 1), Province: strp("Tehran")},
	}

	clusters := AnalyzeGroup(group, 30)
	require.Len(t, clusters, 1)
	require.Len(t, clusters[0].Losers, 1)
	for _, l := range clusters[0].Losers {
		assert.NotEqual(t, "01C", l.VictimID, "date-conflicting member must not merge")
	}
}

func TestAnalyzeGroupSingleMember(t *testing.T) {
	assert.Nil(t, AnalyzeGroup([]*models.Victim{{ID: "01A"}}, 30))
}
