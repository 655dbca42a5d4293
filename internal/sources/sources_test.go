// file: internal/sources/sources_test.go
// version: 1.1.0
// guid: 5c9e2b7d-8f4a-4d1c-9b6e-2a7f5d3c8e1b

package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pedramholi/iran-memorial/internal/fetch"
	"github.com/pedramholi/iran-memorial/internal/models"
)

func testClient() *fetch.Client {
	return fetch.NewClient(fetch.WithRateLimit(1000), fetch.WithMaxRetries(0))
}

func collect(t *testing.T, src Source) []*models.ExternalVictim {
	t.Helper()
	var out []*models.ExternalVictim
	err := src.Fetch(context.Background(), func(v *models.ExternalVictim) error {
		out = append(out, v)
		return nil
	})
	require.NoError(t, err)
	return out
}

func TestKnownSources(t *testing.T) {
	assert.Equal(t, []string{"htmltable", "iranmonitor", "yamlfile"}, List())

	_, err := New("nope", testClient(), nil)
	assert.Error(t, err)

	// Adapters are plain constructors; nothing registers itself.
	_, err = NewHTMLTableSource(testClient(), nil)
	assert.Error(t, err, "htmltable requires a url")

	src, err := NewIranMonitorSource(testClient(), nil)
	require.NoError(t, err)
	assert.Equal(t, "iranmonitor", src.Name())
}

func TestYAMLFileSource(t *testing.T) {
	content := `records:
  - id: yf_1
    name_latin: Mahsa Amini
    name_farsi: مهسا امینی
    date_of_death: "2022-09-16"
    province: Kurdistan
    age_at_death: 22
    url: https://example.org/mahsa
  - name_latin: ""
    name_farsi: ""
  - name_latin: Nika Shakarami
    date_of_death: not-a-date
`
	path := filepath.Join(t.TempDir(), "records.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	src, err := New("yamlfile", testClient(), map[string]string{"path": path})
	require.NoError(t, err)

	records := collect(t, src)
	require.Len(t, records, 2, "nameless record must be skipped")

	first := records[0]
	assert.Equal(t, "yf_1", first.SourceID)
	assert.Equal(t, "Mahsa Amini", first.NameLatin)
	require.NotNil(t, first.NameFarsi)
	assert.Equal(t, "مهسا امینی", *first.NameFarsi)
	require.NotNil(t, first.DateOfDeath)
	assert.Equal(t, "2022-09-16", first.DateOfDeath.Format("2006-01-02"))
	require.NotNil(t, first.AgeAtDeath)
	assert.Equal(t, 22, *first.AgeAtDeath)
	assert.Equal(t, "https://example.org/mahsa", first.SourceURL)

	second := records[1]
	assert.Equal(t, "yamlfile_2", second.SourceID, "generated IDs keep the file position")
	assert.Nil(t, second.DateOfDeath, "bad dates are dropped, not fatal")
}

func TestYAMLFileSourceMissingFile(t *testing.T) {
	src, err := New("yamlfile", testClient(), map[string]string{"path": "/nonexistent.yaml"})
	require.NoError(t, err)
	err = src.Fetch(context.Background(), func(*models.ExternalVictim) error { return nil })
	assert.Error(t, err)
}

func TestIranMonitorSourcePagination(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("page") {
		case "1":
			fmt.Fprint(w, `{"total":3,"data":[
				{"id":1,"name_english":"Mahsa Amini","name_persian":"مهسا امینی",
				 "photo_url":"https://img.example/1.jpg","date_of_death":"2022-09-16T00:00:00Z",
				 "age":22,"city_english":"Saqqez","province_english":"Kurdistan"},
				{"id":2,"name_english":"No Photo","photo_url":""}]}`)
		case "2":
			fmt.Fprint(w, `{"total":3,"data":[
				{"id":3,"name_english":"Kian Pirfalak","photo_url":"https://img.example/3.jpg","age":"9"}]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	src := &IranMonitorSource{client: testClient(), apiURL: srv.URL, siteURL: srv.URL, pageSize: 2}
	records := collect(t, src)
	require.Len(t, records, 2, "photoless records are skipped")

	assert.Equal(t, "iranmonitor_1", records[0].SourceID)
	require.NotNil(t, records[0].DateOfDeath)
	assert.Equal(t, "2022-09-16", records[0].DateOfDeath.Format("2006-01-02"))
	require.NotNil(t, records[0].PlaceOfDeath)
	assert.Equal(t, "Saqqez", *records[0].PlaceOfDeath)
	require.NotNil(t, records[0].Province)
	assert.Equal(t, "Kurdistan", *records[0].Province)

	assert.Equal(t, "iranmonitor_3", records[1].SourceID)
	require.NotNil(t, records[1].AgeAtDeath)
	assert.Equal(t, 9, *records[1].AgeAtDeath)
}

func TestHTMLTableSource(t *testing.T) {
	page := `<html><body><table>
		<tr><th>Name</th><th>Farsi</th><th>Date</th><th>Location</th><th>Cause</th><th>Age</th></tr>
		<tr><td>Mahsa Amini</td><td>مهسا امینی</td><td>2022-09-16</td><td>Saqqez</td><td>beaten in custody</td><td>22</td></tr>
		<tr><td>Nika Shakarami</td><td>نیکا شاکرمی</td><td>۲۹ شهریور ۱۴۰۱</td><td>Tehran</td><td></td><td>16</td></tr>
		<tr><td></td><td></td></tr>
	</table></body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, page)
	}))
	defer srv.Close()

	src, err := New("htmltable", testClient(), map[string]string{"url": srv.URL, "name": "Test Memorial"})
	require.NoError(t, err)

	records := collect(t, src)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, "Mahsa Amini", first.NameLatin)
	require.NotNil(t, first.DateOfDeath)
	assert.Equal(t, "2022-09-16", first.DateOfDeath.Format("2006-01-02"))
	require.NotNil(t, first.Province)
	assert.Equal(t, "Kurdistan", *first.Province, "province resolved from city")
	require.NotNil(t, first.CauseOfDeath)
	require.NotNil(t, first.AgeAtDeath)
	assert.Equal(t, 22, *first.AgeAtDeath)

	second := records[1]
	require.NotNil(t, second.DateOfDeath, "Jalali date cell must parse")
	assert.Equal(t, "2022-09-20", second.DateOfDeath.Format("2006-01-02"))
	assert.Nil(t, second.CauseOfDeath)
}

func TestFetchStopsOnEmitError(t *testing.T) {
	content := "records:\n  - name_latin: A B\n  - name_latin: C D\n"
	path := filepath.Join(t.TempDir(), "r.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	src, err := New("yamlfile", testClient(), map[string]string{"path": path})
	require.NoError(t, err)

	calls := 0
	err = src.Fetch(context.Background(), func(*models.ExternalVictim) error {
		calls++
		return fmt.Errorf("stop")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}
