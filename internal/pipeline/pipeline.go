// file: internal/pipeline/pipeline.go
// version: 1.3.0
// guid: 7f4b2e9c-5a8d-4c1f-b3e6-9d2a7c5f8b4e

package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/pedramholi/iran-memorial/internal/database"
	"github.com/pedramholi/iran-memorial/internal/index"
	"github.com/pedramholi/iran-memorial/internal/matcher"
	"github.com/pedramholi/iran-memorial/internal/merge"
	"github.com/pedramholi/iran-memorial/internal/metrics"
	"github.com/pedramholi/iran-memorial/internal/models"
	"github.com/pedramholi/iran-memorial/internal/normalizer"
	"github.com/pedramholi/iran-memorial/internal/progress"
	"github.com/pedramholi/iran-memorial/internal/sources"
)

// Mode controls what happens to records that match nothing.
type Mode string

const (
	// ModeEnrich only fills existing records.
	ModeEnrich Mode = "enrich"
	// ModeImportNew also creates canonical records for unmatched names.
	ModeImportNew Mode = "import-new"
)

// Options configure one enrichment run.
type Options struct {
	Workers         int
	BatchSize       int
	AutoThreshold   int
	ReviewThreshold int
	Mode            Mode
	DryRun          bool
}

func (o *Options) defaults() {
	if o.Workers < 1 {
		o.Workers = 2
	}
	if o.BatchSize < 1 {
		o.BatchSize = 100
	}
	if o.Mode == "" {
		o.Mode = ModeEnrich
	}
}

// Result is the outcome of one run: counters plus the ambiguous matches
// held back for operator review.
type Result struct {
	Stats     models.RunStats
	Ambiguous []ReviewItem
}

// ReviewItem is one ambiguous match queued for a human decision.
type ReviewItem struct {
	Source   string                 `json:"source"`
	Incoming *models.ExternalVictim `json:"incoming"`
	Match    models.MatchResult     `json:"match"`
}

// Pipeline reconciles a stream of external records against the canonical
// store. The index is built once per run and is read-only; all writes to
// one victim funnel through a per-ID mutex.
type Pipeline struct {
	store   database.Store
	tracker progress.Tracker
	opts    Options

	idx *index.VictimIndex
	m   *matcher.Matcher

	mu        sync.Mutex // guards stats, ambiguous, victimLocks
	stats     models.RunStats
	ambiguous []ReviewItem

	victimLocks map[string]*sync.Mutex
}

// New builds a Pipeline over the given store and progress tracker.
func New(store database.Store, tracker progress.Tracker, opts Options) *Pipeline {
	opts.defaults()
	return &Pipeline{
		store:       store,
		tracker:     tracker,
		opts:        opts,
		victimLocks: make(map[string]*sync.Mutex),
	}
}

func (p *Pipeline) lockFor(victimID string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.victimLocks[victimID]
	if !ok {
		l = &sync.Mutex{}
		p.victimLocks[victimID] = l
	}
	return l
}

// Run processes every record the source emits and returns run totals.
// Rerunning after an interruption skips records the tracker already saw.
func (p *Pipeline) Run(ctx context.Context, src sources.Source) (*Result, error) {
	victims, err := p.store.GetAllVictims()
	if err != nil {
		return nil, fmt.Errorf("pipeline: load store: %w", err)
	}
	sourceURLs, err := p.store.GetAllSourceURLs()
	if err != nil {
		return nil, fmt.Errorf("pipeline: load source urls: %w", err)
	}
	p.idx = index.Build(victims, sourceURLs)
	p.m = matcher.New(p.idx, p.opts.AutoThreshold, p.opts.ReviewThreshold)
	log.Printf("[INFO] pipeline: %s against %d canonical records (%d workers, mode %s)",
		src.Name(), p.idx.Size(), p.opts.Workers, p.opts.Mode)

	records := make(chan *models.ExternalVictim, p.opts.BatchSize)
	var wg sync.WaitGroup
	for i := 0; i < p.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ext := range records {
				p.process(src, ext)
			}
		}()
	}

	emitted := 0
	fetchErr := src.Fetch(ctx, func(ext *models.ExternalVictim) error {
		done, err := p.tracker.IsProcessed(src.Name(), ext.SourceID)
		if err != nil {
			return err
		}
		if done {
			p.bump(func(s *models.RunStats) { s.Skipped++ })
			return nil
		}
		select {
		case records <- ext:
		case <-ctx.Done():
			return ctx.Err()
		}
		emitted++
		if emitted%p.opts.BatchSize == 0 {
			if err := p.tracker.SetCheckpoint(src.Name(), fmt.Sprintf("emitted=%d", emitted)); err != nil {
				log.Printf("[WARN] pipeline: checkpoint: %v", err)
			}
		}
		return nil
	})
	close(records)
	wg.Wait()

	if err := p.tracker.SetCheckpoint(src.Name(), fmt.Sprintf("emitted=%d", emitted)); err != nil {
		log.Printf("[WARN] pipeline: final checkpoint: %v", err)
	}
	if fetchErr != nil {
		metrics.IncFetchFailures(src.Name())
		return nil, fmt.Errorf("pipeline: fetch %s: %w", src.Name(), fetchErr)
	}

	p.mu.Lock()
	result := &Result{Stats: p.stats, Ambiguous: p.ambiguous}
	p.mu.Unlock()

	if n, err := p.store.CountVictims(); err == nil {
		metrics.SetVictims(n)
	}
	metrics.SetReviewQueue(len(result.Ambiguous))
	return result, nil
}

func (p *Pipeline) bump(fn func(*models.RunStats)) {
	p.mu.Lock()
	fn(&p.stats)
	p.mu.Unlock()
}

func (p *Pipeline) process(src sources.Source, ext *models.ExternalVictim) {
	p.bump(func(s *models.RunStats) { s.Processed++ })
	metrics.IncRecordsProcessed(src.Name())

	start := time.Now()
	result := p.m.Match(ext)
	metrics.ObserveMatchDuration(time.Since(start))

	switch {
	case result.Matched:
		queued, err := p.enrich(src, ext, &result)
		if err != nil {
			log.Printf("[WARN] pipeline: enrich %q: %v", ext.NameLatin, err)
			p.bump(func(s *models.RunStats) { s.Errors++ })
			return
		}
		if queued {
			metrics.IncMatchOutcome(src.Name(), "ambiguous")
			p.bump(func(s *models.RunStats) { s.Ambiguous++ })
		} else {
			metrics.IncMatchOutcome(src.Name(), "matched")
			p.bump(func(s *models.RunStats) { s.Matched++ })
		}
	case result.Ambiguous:
		metrics.IncMatchOutcome(src.Name(), "ambiguous")
		p.bump(func(s *models.RunStats) { s.Ambiguous++ })
		p.mu.Lock()
		p.ambiguous = append(p.ambiguous, ReviewItem{Source: src.Name(), Incoming: ext, Match: result})
		p.mu.Unlock()
	default:
		metrics.IncMatchOutcome(src.Name(), "unmatched")
		p.bump(func(s *models.RunStats) { s.Unmatched++ })
		if p.opts.Mode == ModeImportNew {
			if err := p.importNew(src, ext); err != nil {
				log.Printf("[WARN] pipeline: import %q: %v", ext.NameLatin, err)
				p.bump(func(s *models.RunStats) { s.Errors++ })
				return
			}
		}
	}

	if err := p.tracker.MarkProcessed(src.Name(), ext.SourceID); err != nil {
		log.Printf("[WARN] pipeline: mark processed: %v", err)
	}
}

// enrich fills the matched victim from the incoming record and persists
// the delta together with the new attribution. Returns true when the
// record was diverted to the review queue instead of written.
func (p *Pipeline) enrich(src sources.Source, ext *models.ExternalVictim, result *models.MatchResult) (bool, error) {
	lock := p.lockFor(result.VictimID)
	lock.Lock()
	defer lock.Unlock()

	// Work on the stored record, not the matcher's copy: the index stays
	// immutable while other workers score against it, and fills from
	// earlier records this run are visible here.
	victim, err := p.store.GetVictimByID(result.VictimID)
	if err != nil {
		return false, err
	}
	if victim == nil {
		return false, fmt.Errorf("matched victim %s not in store", result.VictimID)
	}

	// A provenance-URL match never runs the scorer, so a conflicting
	// death date can arrive here. Hold it for review instead of writing.
	if matcher.HasDateConflict(matcher.FieldsFromVictim(victim), matcher.FieldsFromExternal(ext)) {
		log.Printf("[WARN] pipeline: %q matched %s but death dates conflict, queued for review",
			ext.NameLatin, victim.Slug)
		p.mu.Lock()
		p.ambiguous = append(p.ambiguous, ReviewItem{Source: src.Name(), Incoming: ext, Match: *result})
		p.mu.Unlock()
		return true, nil
	}

	donor := merge.DonorFromExternal(ext)
	if !merge.HasNewData(victim, donor) && !p.newAttribution(victim.ID, ext) {
		p.bump(func(s *models.RunStats) { s.NoNewData++ })
		return false, nil
	}

	changed := merge.Fill(victim, donor)
	if p.opts.DryRun {
		log.Printf("[INFO] pipeline: dry-run: would fill %v on %s (score %d)",
			changed, victim.Slug, result.Score)
		return false, nil
	}

	srcRow := &models.VictimSource{
		VictimID: victim.ID,
		URL:      ext.SourceURL,
		Name:     ext.SourceName,
		Type:     ext.SourceType,
	}
	sourceAdded, err := p.store.EnrichVictim(victim, srcRow)
	if err != nil {
		return false, err
	}

	photoAdded := false
	if ext.PhotoURL != nil && *ext.PhotoURL != "" {
		photoAdded, err = p.store.AddVictimPhoto(&models.VictimPhoto{
			VictimID: victim.ID,
			URL:      *ext.PhotoURL,
			Credit:   &ext.SourceName,
		})
		if err != nil {
			log.Printf("[WARN] pipeline: photo for %s: %v", victim.Slug, err)
		}
	}

	p.bump(func(s *models.RunStats) {
		s.FieldsFilled += len(changed)
		if len(changed) > 0 {
			s.Enriched++
		} else {
			s.NoNewData++
		}
		if sourceAdded {
			s.SourcesAdded++
		}
		if photoAdded {
			s.PhotosAdded++
		}
	})
	metrics.AddFieldsFilled(src.Name(), len(changed))
	log.Printf("[INFO] pipeline: enriched %s from %s: %d fields (score %d)",
		victim.Slug, src.Name(), len(changed), result.Score)
	return false, nil
}

// newAttribution reports whether the incoming record carries a source URL
// or photo URL not yet attached to the victim.
func (p *Pipeline) newAttribution(victimID string, ext *models.ExternalVictim) bool {
	if ext.SourceURL != "" {
		attached, err := p.store.GetVictimSources(victimID)
		if err == nil {
			known := false
			for _, s := range attached {
				if s.URL == ext.SourceURL {
					known = true
					break
				}
			}
			if !known {
				return true
			}
		}
	}
	if ext.PhotoURL != nil && *ext.PhotoURL != "" {
		photos, err := p.store.GetVictimPhotos(victimID)
		if err == nil {
			for _, ph := range photos {
				if ph.URL == *ext.PhotoURL {
					return false
				}
			}
			return true
		}
	}
	return false
}

// importNew creates an unverified canonical record from an unmatched
// incoming record.
func (p *Pipeline) importNew(src sources.Source, ext *models.ExternalVictim) error {
	if strings.TrimSpace(ext.NameLatin) == "" {
		p.bump(func(s *models.RunStats) { s.Skipped++ })
		return nil
	}
	if p.opts.DryRun {
		log.Printf("[INFO] pipeline: dry-run: would import %q from %s", ext.NameLatin, src.Name())
		return nil
	}

	victim := &models.Victim{
		Slug:               p.uniqueSlug(ext),
		NameLatin:          strings.TrimSpace(ext.NameLatin),
		NameFarsi:          ext.NameFarsi,
		Aliases:            ext.Aliases,
		VerificationStatus: models.StatusUnverified,
	}
	merge.Fill(victim, merge.DonorFromExternal(ext))

	created, err := p.store.CreateVictim(victim)
	if err != nil {
		return err
	}
	if ext.SourceURL != "" {
		if _, err := p.store.AddVictimSource(&models.VictimSource{
			VictimID: created.ID,
			URL:      ext.SourceURL,
			Name:     ext.SourceName,
			Type:     ext.SourceType,
		}); err != nil {
			log.Printf("[WARN] pipeline: attribution for new %s: %v", created.Slug, err)
		}
	}
	if ext.PhotoURL != nil && *ext.PhotoURL != "" {
		if _, err := p.store.AddVictimPhoto(&models.VictimPhoto{
			VictimID: created.ID,
			URL:      *ext.PhotoURL,
			Credit:   &ext.SourceName,
		}); err != nil {
			log.Printf("[WARN] pipeline: photo for new %s: %v", created.Slug, err)
		}
	}

	p.bump(func(s *models.RunStats) { s.NewImported++ })
	log.Printf("[INFO] pipeline: imported %s (%s) from %s", created.Slug, created.ID, src.Name())
	return nil
}

// uniqueSlug builds lastname-firstname[-birthyear], suffixing a counter
// on collision.
func (p *Pipeline) uniqueSlug(ext *models.ExternalVictim) string {
	base := SlugForName(ext.NameLatin)
	if ext.DateOfBirth != nil {
		base = fmt.Sprintf("%s-%d", base, ext.DateOfBirth.Year())
	}

	slug := base
	for n := 2; ; n++ {
		existing, err := p.store.GetVictimBySlug(slug)
		if err != nil || existing == nil {
			return slug
		}
		slug = fmt.Sprintf("%s-%d", base, n)
	}
}

// SlugForName turns "Mahsa Amini" into "amini-mahsa".
func SlugForName(name string) string {
	tokens := strings.Fields(normalizer.NormalizeLatin(name))
	if len(tokens) == 0 {
		return "unknown"
	}
	if len(tokens) > 1 {
		last := tokens[len(tokens)-1]
		tokens = append([]string{last}, tokens[:len(tokens)-1]...)
	}
	return strings.Join(tokens, "-")
}
