// file: internal/database/sqlite_store.go
// version: 2.4.0
// guid: 7e5b9d1f-4a8c-4e2b-b7d9-2c6a8f5e3b1d

package database

import (
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"

	"github.com/pedramholi/iran-memorial/internal/models"
)

const dateLayout = "2006-01-02"

// SQLiteStore is the default Store implementation.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and migrates) a SQLite database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Serialized writes; merge application requires it.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS victims (
		id TEXT PRIMARY KEY,
		slug TEXT NOT NULL UNIQUE,
		name_latin TEXT NOT NULL,
		name_farsi TEXT,
		aliases TEXT NOT NULL DEFAULT '[]',
		date_of_birth TEXT,
		place_of_birth TEXT,
		gender TEXT,
		religion TEXT,
		ethnicity TEXT,
		occupation TEXT,
		education TEXT,
		photo_url TEXT,
		date_of_death TEXT,
		age_at_death INTEGER,
		place_of_death TEXT,
		province TEXT,
		cause_of_death TEXT,
		circumstances_en TEXT,
		circumstances_fa TEXT,
		event_context TEXT,
		responsible_forces TEXT,
		verification_status TEXT NOT NULL DEFAULT 'unverified',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS victim_sources (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		victim_id TEXT NOT NULL REFERENCES victims(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		type TEXT NOT NULL DEFAULT '',
		UNIQUE(victim_id, url)
	);
	CREATE TABLE IF NOT EXISTS victim_photos (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		victim_id TEXT NOT NULL REFERENCES victims(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		credit TEXT,
		type TEXT NOT NULL DEFAULT 'portrait',
		UNIQUE(victim_id, url)
	);
	CREATE INDEX IF NOT EXISTS idx_victims_slug ON victims(slug);
	CREATE INDEX IF NOT EXISTS idx_sources_victim ON victim_sources(victim_id);
	CREATE INDEX IF NOT EXISTS idx_photos_victim ON victim_photos(victim_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Reset drops all rows. Test helper.
func (s *SQLiteStore) Reset() error {
	_, err := s.db.Exec(`DELETE FROM victim_photos; DELETE FROM victim_sources; DELETE FROM victims;`)
	return err
}

const victimColumns = `v.id, v.slug, v.name_latin, v.name_farsi, v.aliases,
	v.date_of_birth, v.place_of_birth, v.gender, v.religion, v.ethnicity,
	v.occupation, v.education, v.photo_url, v.date_of_death, v.age_at_death,
	v.place_of_death, v.province, v.cause_of_death, v.circumstances_en,
	v.circumstances_fa, v.event_context, v.responsible_forces,
	v.verification_status, v.created_at, v.updated_at,
	(SELECT COUNT(*) FROM victim_sources s WHERE s.victim_id = v.id),
	(SELECT COUNT(*) FROM victim_photos p WHERE p.victim_id = v.id)`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanVictim(row rowScanner) (*models.Victim, error) {
	var v models.Victim
	var nameFarsi, dob, pob, gender, religion, ethnicity, occupation, education,
		photoURL, dod, pod, province, cause, circEN, circFA, eventCtx, forces sql.NullString
	var age sql.NullInt64
	var aliasesJSON, createdAt, updatedAt string

	err := row.Scan(&v.ID, &v.Slug, &v.NameLatin, &nameFarsi, &aliasesJSON,
		&dob, &pob, &gender, &religion, &ethnicity,
		&occupation, &education, &photoURL, &dod, &age,
		&pod, &province, &cause, &circEN,
		&circFA, &eventCtx, &forces,
		&v.VerificationStatus, &createdAt, &updatedAt,
		&v.SourceCount, &v.PhotoCount)
	if err != nil {
		return nil, err
	}

	v.NameFarsi = strPtr(nameFarsi)
	v.PlaceOfBirth = strPtr(pob)
	v.Gender = strPtr(gender)
	v.Religion = strPtr(religion)
	v.Ethnicity = strPtr(ethnicity)
	v.Occupation = strPtr(occupation)
	v.Education = strPtr(education)
	v.PhotoURL = strPtr(photoURL)
	v.PlaceOfDeath = strPtr(pod)
	v.Province = strPtr(province)
	v.CauseOfDeath = strPtr(cause)
	v.CircumstancesEN = strPtr(circEN)
	v.CircumstancesFA = strPtr(circFA)
	v.EventContext = strPtr(eventCtx)
	v.ResponsibleForces = strPtr(forces)
	v.DateOfBirth = datePtr(dob)
	v.DateOfDeath = datePtr(dod)
	if age.Valid {
		n := int(age.Int64)
		v.AgeAtDeath = &n
	}
	if aliasesJSON != "" {
		_ = json.Unmarshal([]byte(aliasesJSON), &v.Aliases)
	}
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		v.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		v.UpdatedAt = t
	}
	return &v, nil
}

func strPtr(ns sql.NullString) *string {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	s := ns.String
	return &s
}

func datePtr(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	if t, err := time.Parse(dateLayout, ns.String); err == nil {
		return &t
	}
	return nil
}

func nullStr(p *string) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func nullDate(p *time.Time) interface{} {
	if p == nil {
		return nil
	}
	return p.Format(dateLayout)
}

func nullInt(p *int) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func aliasesJSON(aliases []string) string {
	if len(aliases) == 0 {
		return "[]"
	}
	b, err := json.Marshal(aliases)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// GetAllVictims loads the full canonical store with source/photo counts.
func (s *SQLiteStore) GetAllVictims() ([]*models.Victim, error) {
	rows, err := s.db.Query(`SELECT ` + victimColumns + ` FROM victims v ORDER BY v.id`)
	if err != nil {
		return nil, fmt.Errorf("load victims: %w", err)
	}
	defer rows.Close()

	var out []*models.Victim
	for rows.Next() {
		v, err := scanVictim(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// GetVictimByID returns one victim or nil if absent.
func (s *SQLiteStore) GetVictimByID(id string) (*models.Victim, error) {
	v, err := scanVictim(s.db.QueryRow(`SELECT `+victimColumns+` FROM victims v WHERE v.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return v, err
}

// GetVictimBySlug returns one victim or nil if absent.
func (s *SQLiteStore) GetVictimBySlug(slug string) (*models.Victim, error) {
	v, err := scanVictim(s.db.QueryRow(`SELECT `+victimColumns+` FROM victims v WHERE v.slug = ?`, slug))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return v, err
}

// NewULID generates a new record identifier.
func NewULID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}

// CreateVictim inserts a new canonical record, generating its ULID and
// timestamps when missing. Status defaults to unverified.
func (s *SQLiteStore) CreateVictim(v *models.Victim) (*models.Victim, error) {
	if v.ID == "" {
		v.ID = NewULID()
	}
	if v.VerificationStatus == "" {
		v.VerificationStatus = models.StatusUnverified
	}
	now := time.Now().UTC()
	if v.CreatedAt.IsZero() {
		v.CreatedAt = now
	}
	v.UpdatedAt = now

	_, err := s.db.Exec(`INSERT INTO victims (
		id, slug, name_latin, name_farsi, aliases,
		date_of_birth, place_of_birth, gender, religion, ethnicity,
		occupation, education, photo_url, date_of_death, age_at_death,
		place_of_death, province, cause_of_death, circumstances_en,
		circumstances_fa, event_context, responsible_forces,
		verification_status, created_at, updated_at
	) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		v.ID, v.Slug, v.NameLatin, nullStr(v.NameFarsi), aliasesJSON(v.Aliases),
		nullDate(v.DateOfBirth), nullStr(v.PlaceOfBirth), nullStr(v.Gender),
		nullStr(v.Religion), nullStr(v.Ethnicity),
		nullStr(v.Occupation), nullStr(v.Education), nullStr(v.PhotoURL),
		nullDate(v.DateOfDeath), nullInt(v.AgeAtDeath),
		nullStr(v.PlaceOfDeath), nullStr(v.Province), nullStr(v.CauseOfDeath),
		nullStr(v.CircumstancesEN), nullStr(v.CircumstancesFA),
		nullStr(v.EventContext), nullStr(v.ResponsibleForces),
		v.VerificationStatus, v.CreatedAt.Format(time.RFC3339), v.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("create victim %s: %w", v.Slug, err)
	}
	return v, nil
}

const updateVictimSQL = `UPDATE victims SET
	slug=?, name_latin=?, name_farsi=?, aliases=?,
	date_of_birth=?, place_of_birth=?, gender=?, religion=?, ethnicity=?,
	occupation=?, education=?, photo_url=?, date_of_death=?, age_at_death=?,
	place_of_death=?, province=?, cause_of_death=?, circumstances_en=?,
	circumstances_fa=?, event_context=?, responsible_forces=?,
	verification_status=?, updated_at=?
	WHERE id=?`

func victimUpdateArgs(v *models.Victim) []interface{} {
	return []interface{}{
		v.Slug, v.NameLatin, nullStr(v.NameFarsi), aliasesJSON(v.Aliases),
		nullDate(v.DateOfBirth), nullStr(v.PlaceOfBirth), nullStr(v.Gender),
		nullStr(v.Religion), nullStr(v.Ethnicity),
		nullStr(v.Occupation), nullStr(v.Education), nullStr(v.PhotoURL),
		nullDate(v.DateOfDeath), nullInt(v.AgeAtDeath),
		nullStr(v.PlaceOfDeath), nullStr(v.Province), nullStr(v.CauseOfDeath),
		nullStr(v.CircumstancesEN), nullStr(v.CircumstancesFA),
		nullStr(v.EventContext), nullStr(v.ResponsibleForces),
		v.VerificationStatus, time.Now().UTC().Format(time.RFC3339),
		v.ID,
	}
}

// UpdateVictim persists the full record state.
func (s *SQLiteStore) UpdateVictim(v *models.Victim) error {
	if _, err := s.db.Exec(updateVictimSQL, victimUpdateArgs(v)...); err != nil {
		return fmt.Errorf("update victim %s: %w", v.ID, err)
	}
	return nil
}

// DeleteVictim removes a record and (via cascade) its attributions.
func (s *SQLiteStore) DeleteVictim(id string) error {
	if _, err := s.db.Exec(`DELETE FROM victims WHERE id=?`, id); err != nil {
		return fmt.Errorf("delete victim %s: %w", id, err)
	}
	return nil
}

// CountVictims returns the store size.
func (s *SQLiteStore) CountVictims() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM victims`).Scan(&n)
	return n, err
}

// GetVictimSources lists provenance rows for one victim.
func (s *SQLiteStore) GetVictimSources(victimID string) ([]models.VictimSource, error) {
	rows, err := s.db.Query(`SELECT id, victim_id, url, name, type FROM victim_sources WHERE victim_id=? ORDER BY id`, victimID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.VictimSource
	for rows.Next() {
		var src models.VictimSource
		if err := rows.Scan(&src.ID, &src.VictimID, &src.URL, &src.Name, &src.Type); err != nil {
			return nil, err
		}
		out = append(out, src)
	}
	return out, rows.Err()
}

// AddVictimSource attaches a provenance row, ignoring duplicate URLs.
func (s *SQLiteStore) AddVictimSource(src *models.VictimSource) (bool, error) {
	res, err := s.db.Exec(`INSERT OR IGNORE INTO victim_sources (victim_id, url, name, type) VALUES (?,?,?,?)`,
		src.VictimID, src.URL, src.Name, src.Type)
	if err != nil {
		return false, fmt.Errorf("add source: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// GetAllSourceURLs returns every attribution URL grouped by victim ID.
func (s *SQLiteStore) GetAllSourceURLs() (map[string][]string, error) {
	rows, err := s.db.Query(`SELECT victim_id, url FROM victim_sources`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]string)
	for rows.Next() {
		var vid, url string
		if err := rows.Scan(&vid, &url); err != nil {
			return nil, err
		}
		out[vid] = append(out[vid], url)
	}
	return out, rows.Err()
}

// GetVictimPhotos lists photograph rows for one victim.
func (s *SQLiteStore) GetVictimPhotos(victimID string) ([]models.VictimPhoto, error) {
	rows, err := s.db.Query(`SELECT id, victim_id, url, credit, type FROM victim_photos WHERE victim_id=? ORDER BY id`, victimID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.VictimPhoto
	for rows.Next() {
		var p models.VictimPhoto
		var credit sql.NullString
		if err := rows.Scan(&p.ID, &p.VictimID, &p.URL, &credit, &p.Type); err != nil {
			return nil, err
		}
		p.Credit = strPtr(credit)
		out = append(out, p)
	}
	return out, rows.Err()
}

// AddVictimPhoto attaches a photograph, ignoring duplicate URLs.
func (s *SQLiteStore) AddVictimPhoto(p *models.VictimPhoto) (bool, error) {
	if p.Type == "" {
		p.Type = "portrait"
	}
	res, err := s.db.Exec(`INSERT OR IGNORE INTO victim_photos (victim_id, url, credit, type) VALUES (?,?,?,?)`,
		p.VictimID, p.URL, nullStr(p.Credit), p.Type)
	if err != nil {
		return false, fmt.Errorf("add photo: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// EnrichVictim writes the filled-in winner and its new attribution in one
// transaction.
func (s *SQLiteStore) EnrichVictim(v *models.Victim, src *models.VictimSource) (bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(updateVictimSQL, victimUpdateArgs(v)...); err != nil {
		return false, fmt.Errorf("enrich victim %s: %w", v.ID, err)
	}

	added := false
	if src != nil && src.URL != "" {
		res, err := tx.Exec(`INSERT OR IGNORE INTO victim_sources (victim_id, url, name, type) VALUES (?,?,?,?)`,
			v.ID, src.URL, src.Name, src.Type)
		if err != nil {
			return false, fmt.Errorf("enrich source: %w", err)
		}
		n, _ := res.RowsAffected()
		added = n > 0
	}

	return added, tx.Commit()
}

// ApplyMerge updates the winner, migrates the loser's provenance and
// photographs skipping URLs already present, and deletes the loser — all
// in one transaction so a failure leaves both records untouched.
func (s *SQLiteStore) ApplyMerge(winner *models.Victim, loserID string) (int, int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, 0, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(updateVictimSQL, victimUpdateArgs(winner)...); err != nil {
		return 0, 0, fmt.Errorf("merge update winner %s: %w", winner.ID, err)
	}

	srcRes, err := tx.Exec(`INSERT OR IGNORE INTO victim_sources (victim_id, url, name, type)
		SELECT ?, url, name, type FROM victim_sources WHERE victim_id = ?`, winner.ID, loserID)
	if err != nil {
		return 0, 0, fmt.Errorf("migrate sources %s -> %s: %w", loserID, winner.ID, err)
	}
	srcN, _ := srcRes.RowsAffected()

	photoRes, err := tx.Exec(`INSERT OR IGNORE INTO victim_photos (victim_id, url, credit, type)
		SELECT ?, url, credit, type FROM victim_photos WHERE victim_id = ?`, winner.ID, loserID)
	if err != nil {
		return 0, 0, fmt.Errorf("migrate photos %s -> %s: %w", loserID, winner.ID, err)
	}
	photoN, _ := photoRes.RowsAffected()

	if _, err := tx.Exec(`DELETE FROM victims WHERE id = ?`, loserID); err != nil {
		return 0, 0, fmt.Errorf("delete loser %s: %w", loserID, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("commit merge %s -> %s: %w", loserID, winner.ID, err)
	}
	return int(srcN), int(photoN), nil
}
