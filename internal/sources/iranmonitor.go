// file: internal/sources/iranmonitor.go
// version: 1.2.0
// guid: 1a7c4f9b-3e6d-4b2a-9f8c-5d1e7b4a2c9f

package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/pedramholi/iran-memorial/internal/fetch"
	"github.com/pedramholi/iran-memorial/internal/models"
)

const (
	iranMonitorAPIURL  = "https://www.iranmonitor.org/api/memorial"
	iranMonitorSiteURL = "https://www.iranmonitor.org/memorial"
	iranMonitorPage    = 50
)

// NewIranMonitorSource builds the adapter; cfg may override the API and
// site URLs.
func NewIranMonitorSource(client *fetch.Client, cfg map[string]string) (Source, error) {
	return &IranMonitorSource{
		client:   client,
		apiURL:   defaultStr(cfg["api_url"], iranMonitorAPIURL),
		siteURL:  defaultStr(cfg["site_url"], iranMonitorSiteURL),
		pageSize: iranMonitorPage,
	}, nil
}

// IranMonitorSource paginates the iranmonitor.org memorial JSON API.
// Records without a photo are skipped; photos are this source's value.
type IranMonitorSource struct {
	client   *fetch.Client
	apiURL   string
	siteURL  string
	pageSize int
}

func (s *IranMonitorSource) Name() string     { return "iranmonitor" }
func (s *IranMonitorSource) FullName() string { return "Iran Monitor Memorial" }
func (s *IranMonitorSource) BaseURL() string  { return s.siteURL }

type iranMonitorPageData struct {
	Total int                 `json:"total"`
	Data  []iranMonitorRecord `json:"data"`
}

type iranMonitorRecord struct {
	ID              json.Number `json:"id"`
	NameEnglish     string      `json:"name_english"`
	NamePersian     string      `json:"name_persian"`
	PhotoURL        string      `json:"photo_url"`
	DateOfDeath     string      `json:"date_of_death"`
	Age             json.Number `json:"age"`
	CityEnglish     string      `json:"city_english"`
	ProvinceEnglish string      `json:"province_english"`
}

// Fetch walks the API page by page.
func (s *IranMonitorSource) Fetch(ctx context.Context, emit func(*models.ExternalVictim) error) error {
	first, err := s.fetchPage(ctx, 1)
	if err != nil {
		return fmt.Errorf("iranmonitor: first page: %w", err)
	}

	pages := (first.Total + s.pageSize - 1) / s.pageSize
	log.Printf("[INFO] iranmonitor: %d records across %d pages", first.Total, pages)

	if err := s.emitPage(first, emit); err != nil {
		return err
	}
	for page := 2; page <= pages; page++ {
		data, err := s.fetchPage(ctx, page)
		if err != nil {
			log.Printf("[WARN] iranmonitor: page %d failed, skipping: %v", page, err)
			continue
		}
		if err := s.emitPage(data, emit); err != nil {
			return err
		}
	}
	return nil
}

func (s *IranMonitorSource) fetchPage(ctx context.Context, page int) (*iranMonitorPageData, error) {
	url := fmt.Sprintf("%s?page=%d&pageSize=%d", s.apiURL, page, s.pageSize)
	body, err := s.client.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	var data iranMonitorPageData
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("invalid JSON from page %d: %w", page, err)
	}
	return &data, nil
}

func (s *IranMonitorSource) emitPage(data *iranMonitorPageData, emit func(*models.ExternalVictim) error) error {
	for _, rec := range data.Data {
		if strings.TrimSpace(rec.PhotoURL) == "" {
			continue
		}
		nameEN := strings.TrimSpace(rec.NameEnglish)
		nameFA := strings.TrimSpace(rec.NamePersian)
		if nameEN == "" && nameFA == "" {
			continue
		}

		ext := &models.ExternalVictim{
			SourceID:   fmt.Sprintf("iranmonitor_%s", rec.ID.String()),
			SourceName: s.FullName(),
			SourceURL:  s.siteURL,
			SourceType: "community_database",
			NameLatin:  nameEN,
			NameFarsi:  optStr(nameFA),
			PhotoURL:   optStr(rec.PhotoURL),
		}

		if len(rec.DateOfDeath) >= 10 {
			if t, err := time.Parse("2006-01-02", rec.DateOfDeath[:10]); err == nil {
				ext.DateOfDeath = &t
			}
		}
		if age, err := rec.Age.Int64(); err == nil && age > 0 {
			n := int(age)
			ext.AgeAtDeath = &n
		}

		city := strings.TrimSpace(rec.CityEnglish)
		province := strings.TrimSpace(rec.ProvinceEnglish)
		ext.PlaceOfDeath = optStr(defaultStr(city, province))
		ext.Province = optStr(province)

		if err := emit(ext); err != nil {
			return err
		}
	}
	return nil
}
