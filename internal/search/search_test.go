// file: internal/search/search_test.go
// version: 1.0.0
// guid: 1c6f9b4e-8d2a-4e5c-9f7b-3a8d5c1e6f9b

package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pedramholi/iran-memorial/internal/models"
)

func strp(s string) *string { return &s }

func buildTestIndex(t *testing.T) *Index {
	t.Helper()
	victims := []*models.Victim{
		{
			ID: "01A", Slug: "amini-mahsa", NameLatin: "Mahsa Amini",
			NameFarsi: strp("مهسا امینی"), Aliases: []string{"Jina Amini"},
			Province: strp("Kurdistan"),
		},
		{
			ID: "01B", Slug: "pirfalak-kian", NameLatin: "Kian Pirfalak",
			Province:        strp("Khuzestan"),
			CircumstancesEN: strp("shot while traveling with his family in Izeh"),
		},
		{
			ID: "01C", Slug: "shakarami-nika", NameLatin: "Nika Shakarami",
			Province: strp("Tehran"),
		},
	}
	idx, err := Build(victims)
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestQueryByLatinName(t *testing.T) {
	idx := buildTestIndex(t)

	hits, err := idx.Query("Mahsa Amini", 10)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "amini-mahsa", hits[0].Victim.Slug)
}

func TestQueryByAlias(t *testing.T) {
	idx := buildTestIndex(t)

	hits, err := idx.Query("Jina", 10)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "amini-mahsa", hits[0].Victim.Slug)
}

func TestQueryByCircumstances(t *testing.T) {
	idx := buildTestIndex(t)

	hits, err := idx.Query("Izeh", 10)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "pirfalak-kian", hits[0].Victim.Slug)
}

func TestQueryFuzzyFallback(t *testing.T) {
	idx := buildTestIndex(t)

	// One transposition away from "nika".
	hits, err := idx.Query("nkia", 10)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "shakarami-nika", hits[0].Victim.Slug)
}

func TestQueryNoResults(t *testing.T) {
	idx := buildTestIndex(t)

	hits, err := idx.Query("zzzzzzzz", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestQueryLimit(t *testing.T) {
	idx := buildTestIndex(t)

	hits, err := idx.Query("province", 1)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(hits), 1)
}
