// file: internal/sources/yamlfile.go
// version: 1.1.0
// guid: 4d8f2b6e-9a1c-4e5b-8d7f-3b9e6c2a5d8f

package sources

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pedramholi/iran-memorial/internal/fetch"
	"github.com/pedramholi/iran-memorial/internal/models"
)

// NewYAMLFileSource builds the adapter from its config section.
// Requires cfg["path"].
func NewYAMLFileSource(_ *fetch.Client, cfg map[string]string) (Source, error) {
	path := cfg["path"]
	if path == "" {
		return nil, fmt.Errorf("yamlfile source requires a path")
	}
	return &YAMLFileSource{
		path:     path,
		fullName: defaultStr(cfg["name"], "Local YAML import"),
		baseURL:  defaultStr(cfg["base_url"], "file://"+path),
	}, nil
}

func defaultStr(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

// yamlRecord is one entry in an import file. Field names mirror the
// canonical record schema; dates are "YYYY-MM-DD".
type yamlRecord struct {
	ID                string   `yaml:"id"`
	URL               string   `yaml:"url"`
	NameLatin         string   `yaml:"name_latin"`
	NameFarsi         string   `yaml:"name_farsi"`
	Aliases           []string `yaml:"aliases"`
	DateOfBirth       string   `yaml:"date_of_birth"`
	PlaceOfBirth      string   `yaml:"place_of_birth"`
	Gender            string   `yaml:"gender"`
	Religion          string   `yaml:"religion"`
	Ethnicity         string   `yaml:"ethnicity"`
	Occupation        string   `yaml:"occupation"`
	Education         string   `yaml:"education"`
	PhotoURL          string   `yaml:"photo_url"`
	DateOfDeath       string   `yaml:"date_of_death"`
	AgeAtDeath        *int     `yaml:"age_at_death"`
	PlaceOfDeath      string   `yaml:"place_of_death"`
	Province          string   `yaml:"province"`
	CauseOfDeath      string   `yaml:"cause_of_death"`
	CircumstancesEN   string   `yaml:"circumstances_en"`
	CircumstancesFA   string   `yaml:"circumstances_fa"`
	EventContext      string   `yaml:"event_context"`
	ResponsibleForces string   `yaml:"responsible_forces"`
}

type yamlFile struct {
	Records []yamlRecord `yaml:"records"`
}

// YAMLFileSource reads records from a local YAML file. Used for curated
// hand-maintained imports and as the fixture source in tests.
type YAMLFileSource struct {
	path     string
	fullName string
	baseURL  string
}

func (s *YAMLFileSource) Name() string     { return "yamlfile" }
func (s *YAMLFileSource) FullName() string { return s.fullName }
func (s *YAMLFileSource) BaseURL() string  { return s.baseURL }

// Fetch parses the file and emits every usable record.
func (s *YAMLFileSource) Fetch(ctx context.Context, emit func(*models.ExternalVictim) error) error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("yamlfile: %w", err)
	}

	var file yamlFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("yamlfile: parse %s: %w", s.path, err)
	}
	log.Printf("[INFO] yamlfile: %d records in %s", len(file.Records), s.path)

	for i, rec := range file.Records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if strings.TrimSpace(rec.NameLatin) == "" && strings.TrimSpace(rec.NameFarsi) == "" {
			log.Printf("[WARN] yamlfile: record %d has no name, skipping", i)
			continue
		}

		sourceID := rec.ID
		if sourceID == "" {
			sourceID = fmt.Sprintf("yamlfile_%d", i)
		}
		ext := &models.ExternalVictim{
			SourceID:          sourceID,
			SourceName:        s.fullName,
			SourceURL:         defaultStr(rec.URL, s.baseURL),
			SourceType:        "curated_list",
			NameLatin:         strings.TrimSpace(rec.NameLatin),
			NameFarsi:         optStr(rec.NameFarsi),
			Aliases:           rec.Aliases,
			DateOfBirth:       optDate(rec.DateOfBirth),
			PlaceOfBirth:      optStr(rec.PlaceOfBirth),
			Gender:            optStr(rec.Gender),
			Religion:          optStr(rec.Religion),
			Ethnicity:         optStr(rec.Ethnicity),
			Occupation:        optStr(rec.Occupation),
			Education:         optStr(rec.Education),
			PhotoURL:          optStr(rec.PhotoURL),
			DateOfDeath:       optDate(rec.DateOfDeath),
			AgeAtDeath:        rec.AgeAtDeath,
			PlaceOfDeath:      optStr(rec.PlaceOfDeath),
			Province:          optStr(rec.Province),
			CauseOfDeath:      optStr(rec.CauseOfDeath),
			CircumstancesEN:   optStr(rec.CircumstancesEN),
			CircumstancesFA:   optStr(rec.CircumstancesFA),
			EventContext:      optStr(rec.EventContext),
			ResponsibleForces: optStr(rec.ResponsibleForces),
		}
		if err := emit(ext); err != nil {
			return err
		}
	}
	return nil
}

func optStr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func optDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		log.Printf("[WARN] yamlfile: unparseable date %q", s)
		return nil
	}
	return &t
}
