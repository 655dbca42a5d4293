// file: internal/merge/merge.go
// version: 1.3.0
// guid: 2c8f5a1d-7e4b-4d9c-8a6f-5b2e9d4c7a1f

package merge

import (
	"strings"
	"time"

	"github.com/pedramholi/iran-memorial/internal/models"
)

// circumstancesReplaceRatio: a free-text account may replace an existing
// one only when it is at least this much longer — a materially more
// complete account, not a revision.
const circumstancesReplaceRatio = 1.5

// Donor is the field view a merge reads from: either a losing canonical
// record or an incoming external record.
type Donor struct {
	NameFarsi         *string
	Aliases           []string
	DateOfBirth       *time.Time
	PlaceOfBirth      *string
	Gender            *string
	Religion          *string
	Ethnicity         *string
	Occupation        *string
	Education         *string
	PhotoURL          *string
	DateOfDeath       *time.Time
	AgeAtDeath        *int
	PlaceOfDeath      *string
	Province          *string
	CauseOfDeath      *string
	CircumstancesEN   *string
	CircumstancesFA   *string
	EventContext      *string
	ResponsibleForces *string
}

// DonorFromVictim projects a losing canonical record.
func DonorFromVictim(v *models.Victim) Donor {
	return Donor{
		NameFarsi: v.NameFarsi, Aliases: v.Aliases,
		DateOfBirth: v.DateOfBirth, PlaceOfBirth: v.PlaceOfBirth,
		Gender: v.Gender, Religion: v.Religion, Ethnicity: v.Ethnicity,
		Occupation: v.Occupation, Education: v.Education, PhotoURL: v.PhotoURL,
		DateOfDeath: v.DateOfDeath, AgeAtDeath: v.AgeAtDeath,
		PlaceOfDeath: v.PlaceOfDeath, Province: v.Province,
		CauseOfDeath: v.CauseOfDeath, CircumstancesEN: v.CircumstancesEN,
		CircumstancesFA: v.CircumstancesFA, EventContext: v.EventContext,
		ResponsibleForces: v.ResponsibleForces,
	}
}

// DonorFromExternal projects an incoming record.
func DonorFromExternal(e *models.ExternalVictim) Donor {
	return Donor{
		NameFarsi: e.NameFarsi, Aliases: e.Aliases,
		DateOfBirth: e.DateOfBirth, PlaceOfBirth: e.PlaceOfBirth,
		Gender: e.Gender, Religion: e.Religion, Ethnicity: e.Ethnicity,
		Occupation: e.Occupation, Education: e.Education, PhotoURL: e.PhotoURL,
		DateOfDeath: e.DateOfDeath, AgeAtDeath: e.AgeAtDeath,
		PlaceOfDeath: e.PlaceOfDeath, Province: e.Province,
		CauseOfDeath: e.CauseOfDeath, CircumstancesEN: e.CircumstancesEN,
		CircumstancesFA: e.CircumstancesFA, EventContext: e.EventContext,
		ResponsibleForces: e.ResponsibleForces,
	}
}

func emptyStr(p *string) bool {
	return p == nil || strings.TrimSpace(*p) == ""
}

func hasText(p *string) bool {
	return p != nil && strings.TrimSpace(*p) != ""
}

// fillStr copies donor into target if the target is empty. Returns whether
// a fill happened.
func fillStr(target **string, donor *string) bool {
	if !emptyStr(*target) || !hasText(donor) {
		return false
	}
	v := strings.TrimSpace(*donor)
	*target = &v
	return true
}

// fillCircumstances applies the fill rule plus the sole overwrite
// exception: a significantly longer account replaces a shorter one.
func fillCircumstances(target **string, donor *string) bool {
	if fillStr(target, donor) {
		return true
	}
	if !hasText(donor) || emptyStr(*target) {
		return false
	}
	if float64(len(*donor)) > float64(len(**target))*circumstancesReplaceRatio {
		v := strings.TrimSpace(*donor)
		*target = &v
		return true
	}
	return false
}

// Fill applies the fill-only-if-missing policy field by field, mutating
// winner in place. Returns the names of the fields that changed, in a
// fixed order. Calling it twice with the same donor changes nothing the
// second time.
func Fill(winner *models.Victim, d Donor) []string {
	var changed []string
	mark := func(name string, did bool) {
		if did {
			changed = append(changed, name)
		}
	}

	mark("name_farsi", fillStr(&winner.NameFarsi, d.NameFarsi))

	if winner.DateOfBirth == nil && d.DateOfBirth != nil {
		v := *d.DateOfBirth
		winner.DateOfBirth = &v
		changed = append(changed, "date_of_birth")
	}
	mark("place_of_birth", fillStr(&winner.PlaceOfBirth, d.PlaceOfBirth))

	// Gender "unknown" counts as unpopulated.
	if winner.Gender != nil && strings.EqualFold(strings.TrimSpace(*winner.Gender), "unknown") && hasText(d.Gender) {
		winner.Gender = nil
	}
	mark("gender", fillStr(&winner.Gender, d.Gender))

	mark("religion", fillStr(&winner.Religion, d.Religion))
	mark("ethnicity", fillStr(&winner.Ethnicity, d.Ethnicity))
	mark("occupation", fillStr(&winner.Occupation, d.Occupation))
	mark("education", fillStr(&winner.Education, d.Education))
	mark("photo_url", fillStr(&winner.PhotoURL, d.PhotoURL))

	// Death date fills only from empty; an existing date is never touched.
	if winner.DateOfDeath == nil && d.DateOfDeath != nil {
		v := *d.DateOfDeath
		winner.DateOfDeath = &v
		changed = append(changed, "date_of_death")
	}
	if winner.AgeAtDeath == nil && d.AgeAtDeath != nil {
		v := *d.AgeAtDeath
		winner.AgeAtDeath = &v
		changed = append(changed, "age_at_death")
	}
	mark("place_of_death", fillStr(&winner.PlaceOfDeath, d.PlaceOfDeath))
	mark("province", fillStr(&winner.Province, d.Province))
	mark("cause_of_death", fillStr(&winner.CauseOfDeath, d.CauseOfDeath))
	mark("circumstances_en", fillCircumstances(&winner.CircumstancesEN, d.CircumstancesEN))
	mark("circumstances_fa", fillCircumstances(&winner.CircumstancesFA, d.CircumstancesFA))
	mark("event_context", fillStr(&winner.EventContext, d.EventContext))
	mark("responsible_forces", fillStr(&winner.ResponsibleForces, d.ResponsibleForces))

	if added := mergeAliases(winner, d.Aliases); added {
		changed = append(changed, "aliases")
	}

	return changed
}

// mergeAliases appends unseen aliases, preserving order.
func mergeAliases(winner *models.Victim, donor []string) bool {
	if len(donor) == 0 {
		return false
	}
	seen := make(map[string]bool, len(winner.Aliases))
	for _, a := range winner.Aliases {
		seen[strings.TrimSpace(a)] = true
	}
	added := false
	for _, a := range donor {
		a = strings.TrimSpace(a)
		if a == "" || seen[a] {
			continue
		}
		winner.Aliases = append(winner.Aliases, a)
		seen[a] = true
		added = true
	}
	return added
}

// HasNewData reports whether a donor would contribute anything to winner,
// without mutating it. Used to decide if an incoming record is worth a
// write at all.
func HasNewData(winner *models.Victim, d Donor) bool {
	probe := *winner
	probe.Aliases = append([]string(nil), winner.Aliases...)
	return len(Fill(&probe, d)) > 0
}
