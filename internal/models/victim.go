// file: internal/models/victim.go
// version: 1.3.0
// guid: 4c8e2a1f-9b3d-4e6a-8c2f-7d1b5e9a3c4d

package models

import "time"

// VerificationStatus values for canonical records
const (
	StatusUnverified = "unverified"
	StatusVerified   = "verified"
)

// Victim is the canonical stored representation of one individual.
// Optional fields are pointers so the fill-only merge contract is
// checkable at the type level: nil means "never populated".
type Victim struct {
	ID   string `json:"id" db:"id"` // ULID
	Slug string `json:"slug" db:"slug"`

	// Identity
	NameLatin string   `json:"name_latin" db:"name_latin"`
	NameFarsi *string  `json:"name_farsi" db:"name_farsi"`
	Aliases   []string `json:"aliases,omitempty" db:"aliases"`

	// Vital
	DateOfBirth  *time.Time `json:"date_of_birth" db:"date_of_birth"`
	PlaceOfBirth *string    `json:"place_of_birth" db:"place_of_birth"`
	Gender       *string    `json:"gender" db:"gender"`
	Religion     *string    `json:"religion" db:"religion"`
	Ethnicity    *string    `json:"ethnicity" db:"ethnicity"`
	Occupation   *string    `json:"occupation" db:"occupation"`
	Education    *string    `json:"education" db:"education"`
	PhotoURL     *string    `json:"photo_url" db:"photo_url"`

	// Death
	DateOfDeath       *time.Time `json:"date_of_death" db:"date_of_death"`
	AgeAtDeath        *int       `json:"age_at_death" db:"age_at_death"`
	PlaceOfDeath      *string    `json:"place_of_death" db:"place_of_death"`
	Province          *string    `json:"province" db:"province"`
	CauseOfDeath      *string    `json:"cause_of_death" db:"cause_of_death"`
	CircumstancesEN   *string    `json:"circumstances_en" db:"circumstances_en"`
	CircumstancesFA   *string    `json:"circumstances_fa" db:"circumstances_fa"`
	EventContext      *string    `json:"event_context" db:"event_context"`
	ResponsibleForces *string    `json:"responsible_forces" db:"responsible_forces"`

	// Curation
	VerificationStatus string `json:"verification_status" db:"verification_status"`

	// Counts populated by the store for merge-priority ranking only.
	SourceCount int `json:"source_count" db:"source_count"`
	PhotoCount  int `json:"photo_count" db:"photo_count"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ExternalVictim is a record produced by a source adapter, not yet
// reconciled against the store. Only the source identity triple is required.
type ExternalVictim struct {
	SourceID   string `json:"source_id"`
	SourceName string `json:"source_name"`
	SourceURL  string `json:"source_url"`
	SourceType string `json:"source_type"`

	NameLatin string   `json:"name_latin,omitempty"`
	NameFarsi *string  `json:"name_farsi,omitempty"`
	Aliases   []string `json:"aliases,omitempty"`

	DateOfBirth  *time.Time `json:"date_of_birth,omitempty"`
	PlaceOfBirth *string    `json:"place_of_birth,omitempty"`
	Gender       *string    `json:"gender,omitempty"`
	Religion     *string    `json:"religion,omitempty"`
	Ethnicity    *string    `json:"ethnicity,omitempty"`
	Occupation   *string    `json:"occupation,omitempty"`
	Education    *string    `json:"education,omitempty"`
	PhotoURL     *string    `json:"photo_url,omitempty"`

	DateOfDeath       *time.Time `json:"date_of_death,omitempty"`
	AgeAtDeath        *int       `json:"age_at_death,omitempty"`
	PlaceOfDeath      *string    `json:"place_of_death,omitempty"`
	Province          *string    `json:"province,omitempty"`
	CauseOfDeath      *string    `json:"cause_of_death,omitempty"`
	CircumstancesEN   *string    `json:"circumstances_en,omitempty"`
	CircumstancesFA   *string    `json:"circumstances_fa,omitempty"`
	EventContext      *string    `json:"event_context,omitempty"`
	ResponsibleForces *string    `json:"responsible_forces,omitempty"`
}

// VictimSource is one provenance attribution on a canonical record.
// URL is unique per victim.
type VictimSource struct {
	ID       int    `json:"id" db:"id"`
	VictimID string `json:"victim_id" db:"victim_id"`
	URL      string `json:"url" db:"url"`
	Name     string `json:"name" db:"name"`
	Type     string `json:"type" db:"type"`
}

// VictimPhoto is one photograph reference on a canonical record.
type VictimPhoto struct {
	ID       int     `json:"id" db:"id"`
	VictimID string  `json:"victim_id" db:"victim_id"`
	URL      string  `json:"url" db:"url"`
	Credit   *string `json:"credit,omitempty" db:"credit"`
	Type     string  `json:"type" db:"type"` // "portrait" etc.
}

// Candidate is one ranked entry in an ambiguous match result.
type Candidate struct {
	VictimID string   `json:"victim_id"`
	Slug     string   `json:"slug"`
	Score    int      `json:"score"`
	Reasons  []string `json:"reasons"`
}

// MatchResult is the outcome of matching one ExternalVictim against the index.
type MatchResult struct {
	Matched       bool        `json:"matched"`
	Ambiguous     bool        `json:"ambiguous"`
	VictimID      string      `json:"victim_id,omitempty"`
	Slug          string      `json:"slug,omitempty"`
	Victim        *Victim     `json:"-"`
	Score         int         `json:"score"`
	Reasons       []string    `json:"reasons,omitempty"`
	Candidates    []Candidate `json:"candidates,omitempty"` // top 3, review only
	UnmatchedName string      `json:"unmatched_name,omitempty"`
}

// LoserScore records why a loser qualified for merge into a cluster winner.
type LoserScore struct {
	VictimID string   `json:"victim_id"`
	Slug     string   `json:"slug"`
	Score    int      `json:"score"`
	Reasons  []string `json:"reasons"`
}

// DedupCluster is a resolved merge cluster: one winner, one or more losers.
type DedupCluster struct {
	WinnerID   string       `json:"winner_id"`
	WinnerSlug string       `json:"winner_slug"`
	Losers     []LoserScore `json:"losers"`
}

// RunStats counts outcomes of one enrichment run.
type RunStats struct {
	Processed    int `json:"processed"`
	Matched      int `json:"matched"`
	Enriched     int `json:"enriched"`
	NoNewData    int `json:"no_new_data"`
	Unmatched    int `json:"unmatched"`
	NewImported  int `json:"new_imported"`
	Ambiguous    int `json:"ambiguous"`
	SourcesAdded int `json:"sources_added"`
	PhotosAdded  int `json:"photos_added"`
	FieldsFilled int `json:"fields_filled"`
	Skipped      int `json:"skipped"`
	Errors       int `json:"errors"`
}

// DedupStats counts outcomes of one dedup pass.
type DedupStats struct {
	GroupsFound     int `json:"groups_found"`
	AutoMerge       int `json:"auto_merge"`
	Review          int `json:"review"`
	Skipped         int `json:"skipped"`
	VictimsMerged   int `json:"victims_merged"`
	VictimsDeleted  int `json:"victims_deleted"`
	SourcesMigrated int `json:"sources_migrated"`
	PhotosMigrated  int `json:"photos_migrated"`
}
