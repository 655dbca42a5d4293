// file: internal/matcher/scorer.go
// version: 1.2.0
// guid: 5c9e2b7f-8a4d-4f6c-b1e9-3d7a5c8f2b6e

package matcher

import (
	"strings"
	"time"

	"github.com/pedramholi/iran-memorial/internal/models"
	"github.com/pedramholi/iran-memorial/internal/normalizer"
)

// Signal weights. The death-date conflict is a hard veto: the sum of every
// other positive signal (50+20+15+10+10) cannot lift a conflicting pair
// back over the review threshold.
const (
	weightFarsiMatch    = 50
	weightFarsiMismatch = -10
	weightDateExact     = 50
	weightDateAdjacent  = 40
	weightDateConflict  = -100
	weightDateOneSided  = 5
	weightProvince      = 20
	weightAgeExact      = 15
	weightAgeClose      = 5
	weightAgeMismatch   = -30
	weightPlace         = 10
	weightCause         = 10
)

// Fields is the scorer's view of a person record. Both canonical and
// incoming records project onto it, so matching an external record and
// comparing two stored records use the same rules.
type Fields struct {
	NameLatin    string
	NameFarsi    string
	DateOfDeath  *time.Time
	AgeAtDeath   *int
	Province     string
	PlaceOfDeath string
	CauseOfDeath string
}

// FieldsFromVictim projects a canonical record.
func FieldsFromVictim(v *models.Victim) Fields {
	f := Fields{NameLatin: v.NameLatin, DateOfDeath: v.DateOfDeath, AgeAtDeath: v.AgeAtDeath}
	if v.NameFarsi != nil {
		f.NameFarsi = *v.NameFarsi
	}
	if v.Province != nil {
		f.Province = *v.Province
	}
	if v.PlaceOfDeath != nil {
		f.PlaceOfDeath = *v.PlaceOfDeath
	}
	if v.CauseOfDeath != nil {
		f.CauseOfDeath = *v.CauseOfDeath
	}
	return f
}

// FieldsFromExternal projects an incoming record.
func FieldsFromExternal(e *models.ExternalVictim) Fields {
	f := Fields{NameLatin: e.NameLatin, DateOfDeath: e.DateOfDeath, AgeAtDeath: e.AgeAtDeath}
	if e.NameFarsi != nil {
		f.NameFarsi = *e.NameFarsi
	}
	if e.Province != nil {
		f.Province = *e.Province
	}
	if e.PlaceOfDeath != nil {
		f.PlaceOfDeath = *e.PlaceOfDeath
	}
	if e.CauseOfDeath != nil {
		f.CauseOfDeath = *e.CauseOfDeath
	}
	return f
}

// daysApart returns the whole-day distance between two dates, ignoring
// time-of-day and zone.
func daysApart(a, b time.Time) int {
	au := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bu := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	d := int(au.Sub(bu) / (24 * time.Hour))
	if d < 0 {
		return -d
	}
	return d
}

func lowerTrim(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ScorePair computes the signed compatibility score for two records and
// the reasons behind it. Deterministic, symmetric, additive. Missing
// fields contribute nothing; a death-date conflict of more than one day
// outweighs every other positive signal combined.
func ScorePair(a, b Fields) (int, []string) {
	score := 0
	var reasons []string

	aFarsi := normalizer.NormalizeFarsi(a.NameFarsi)
	bFarsi := normalizer.NormalizeFarsi(b.NameFarsi)
	if aFarsi != "" && bFarsi != "" {
		if aFarsi == bFarsi {
			score += weightFarsiMatch
			reasons = append(reasons, "farsi name match (+50)")
		} else {
			score += weightFarsiMismatch
			reasons = append(reasons, "farsi name mismatch (-10)")
		}
	}

	switch {
	case a.DateOfDeath != nil && b.DateOfDeath != nil:
		switch diff := daysApart(*a.DateOfDeath, *b.DateOfDeath); {
		case diff == 0:
			score += weightDateExact
			reasons = append(reasons, "death date match (+50)")
		case diff <= 1:
			score += weightDateAdjacent
			reasons = append(reasons, "death date ±1 day (+40)")
		default:
			score += weightDateConflict
			reasons = append(reasons, "DIFFERENT death dates (-100)")
		}
	case a.DateOfDeath != nil || b.DateOfDeath != nil:
		score += weightDateOneSided
		reasons = append(reasons, "one has date (+5)")
	}

	aProv, bProv := lowerTrim(a.Province), lowerTrim(b.Province)
	if aProv != "" && bProv != "" {
		if aProv == bProv {
			score += weightProvince
			reasons = append(reasons, "province match (+20)")
		} else {
			score -= weightProvince
			reasons = append(reasons, "province mismatch (-20)")
		}
	}

	if a.AgeAtDeath != nil && b.AgeAtDeath != nil {
		diff := *a.AgeAtDeath - *b.AgeAtDeath
		if diff < 0 {
			diff = -diff
		}
		switch {
		case diff == 0:
			score += weightAgeExact
			reasons = append(reasons, "age match (+15)")
		case diff <= 2:
			score += weightAgeClose
			reasons = append(reasons, "age close (+5)")
		default:
			score += weightAgeMismatch
			reasons = append(reasons, "age mismatch (-30)")
		}
	}

	aPod, bPod := lowerTrim(a.PlaceOfDeath), lowerTrim(b.PlaceOfDeath)
	if aPod != "" && bPod != "" && aPod == bPod {
		score += weightPlace
		reasons = append(reasons, "place match (+10)")
	}

	aCod, bCod := lowerTrim(a.CauseOfDeath), lowerTrim(b.CauseOfDeath)
	if aCod != "" && bCod != "" && aCod == bCod {
		score += weightCause
		reasons = append(reasons, "cause match (+10)")
	}

	return score, reasons
}

// HasDateConflict reports whether two records carry resolved death dates
// more than one day apart. Such pairs can never be merged.
func HasDateConflict(a, b Fields) bool {
	if a.DateOfDeath == nil || b.DateOfDeath == nil {
		return false
	}
	return daysApart(*a.DateOfDeath, *b.DateOfDeath) > 1
}
