// file: internal/server/server_test.go
// version: 2.0.0
// guid: 8d4f1b6c-3e9a-4c2d-b7f5-1a6e9c4b8d2f

package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pedramholi/iran-memorial/internal/database"
	"github.com/pedramholi/iran-memorial/internal/models"
	"github.com/pedramholi/iran-memorial/internal/pipeline"
)

func strp(s string) *string { return &s }

func newTestServer(t *testing.T) (*Server, database.Store, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := database.NewMemoryStore()
	reviewPath := filepath.Join(t.TempDir(), "review.json")
	return NewServer(store, reviewPath), store, reviewPath
}

func doGet(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	s, _, _ := newTestServer(t)
	w := doGet(t, s, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStats(t *testing.T) {
	s, store, _ := newTestServer(t)
	_, err := store.CreateVictim(&models.Victim{Slug: "amini-mahsa", NameLatin: "Mahsa Amini"})
	require.NoError(t, err)

	w := doGet(t, s, "/api/stats")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.EqualValues(t, 1, body["victims"])
	assert.EqualValues(t, 0, body["review_queue"])
}

func TestReviewQueue(t *testing.T) {
	s, _, reviewPath := newTestServer(t)

	// Empty queue first.
	w := doGet(t, s, "/api/review")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Count int                   `json:"count"`
		Items []pipeline.ReviewItem `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 0, body.Count)

	require.NoError(t, pipeline.SaveReview(reviewPath, []pipeline.ReviewItem{{
		Source:   "stub",
		Incoming: &models.ExternalVictim{SourceID: "s1", NameLatin: "Sara Ahmadi"},
		Match:    models.MatchResult{Ambiguous: true, Score: 35},
	}}))

	w = doGet(t, s, "/api/review")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "stub", body.Items[0].Source)
	assert.Equal(t, 35, body.Items[0].Match.Score)
}

func TestVictimLookup(t *testing.T) {
	s, store, _ := newTestServer(t)
	v, err := store.CreateVictim(&models.Victim{
		Slug: "amini-mahsa", NameLatin: "Mahsa Amini", Province: strp("Kurdistan"),
	})
	require.NoError(t, err)
	_, err = store.AddVictimSource(&models.VictimSource{VictimID: v.ID, URL: "https://example.org/1"})
	require.NoError(t, err)

	w := doGet(t, s, "/api/victims/amini-mahsa")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Victim  models.Victim         `json:"victim"`
		Sources []models.VictimSource `json:"sources"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Mahsa Amini", body.Victim.NameLatin)
	assert.Len(t, body.Sources, 1)

	w = doGet(t, s, "/api/victims/nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSearchEndpoint(t *testing.T) {
	s, store, _ := newTestServer(t)
	_, err := store.CreateVictim(&models.Victim{Slug: "amini-mahsa", NameLatin: "Mahsa Amini"})
	require.NoError(t, err)

	w := doGet(t, s, "/api/search?q=mahsa")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)

	w = doGet(t, s, "/api/search")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDedupPreviewDoesNotWrite(t *testing.T) {
	s, store, _ := newTestServer(t)
	_, err := store.CreateVictim(&models.Victim{
		Slug: "amini-mahsa", NameLatin: "Mahsa Amini", NameFarsi: strp("مهسا امینی"),
	})
	require.NoError(t, err)
	_, err = store.CreateVictim(&models.Victim{
		Slug: "mahsa-amini-2", NameLatin: "Mahsa Amini", NameFarsi: strp("مهسا امینی"),
	})
	require.NoError(t, err)

	w := doGet(t, s, "/api/dedup/preview")
	require.Equal(t, http.StatusOK, w.Code)

	n, err := store.CountVictims()
	require.NoError(t, err)
	assert.Equal(t, 2, n, "preview must never merge")
}

func TestMetricsEndpoint(t *testing.T) {
	s, _, _ := newTestServer(t)
	w := doGet(t, s, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}
