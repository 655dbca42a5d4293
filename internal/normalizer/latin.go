// file: internal/normalizer/latin.go
// version: 1.2.0
// guid: 9e3b6f1a-4c7d-4a2e-9f8b-1d5c3a7e2b6f

package normalizer

import (
	"regexp"
	"sort"
	"strings"
)

var (
	reParens = regexp.MustCompile(`\([^)]*\)`)
	rePunct  = regexp.MustCompile("['\"`\\-.]")
	reSpaces = regexp.MustCompile(`\s+`)
)

// transliterations maps common Romanization variants of Persian/Arabic
// names to one canonical spelling. Order matters: longer patterns first.
var transliterations = [][2]string{
	{"mohammed", "muhammad"},
	{"mohammad", "muhammad"},
	{"hosseini", "husayni"},
	{"husseini", "husayni"},
	{"hossein", "husayn"},
	{"hussein", "husayn"},
	{"hosein", "husayn"},
	{"husein", "husayn"},
	{"abdol", "abd"},
	{"abdul", "abd"},
	{"abdal", "abd"},
	{"rasoul", "rasul"},
	{"kazem", "qasem"},
	{"ghassem", "qasem"},
	{"ghasem", "qasem"},
	{"seyyed", "seyed"},
	{"sayyid", "seyed"},
	{"sayyed", "seyed"},
	{"seied", "seyed"},
	{"fazi", "fazl"},
}

// vowelFolds absorb the dominant vowel-cluster variance in Romanization.
var vowelFolds = [][2]string{
	{"ou", "u"},
	{"oo", "u"},
	{"ee", "i"},
	{"ei", "ey"},
}

// NormalizeLatin canonicalizes a Latin-script name into a comparison key:
// lowercase, parentheticals and punctuation removed, transliteration and
// vowel variants folded, doubled letters collapsed.
func NormalizeLatin(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	if s == "" {
		return ""
	}

	s = reParens.ReplaceAllString(s, "")
	s = rePunct.ReplaceAllString(s, " ")
	s = reSpaces.ReplaceAllString(strings.TrimSpace(s), " ")

	for _, t := range transliterations {
		s = strings.ReplaceAll(s, t[0], t[1])
	}
	for _, v := range vowelFolds {
		s = strings.ReplaceAll(s, v[0], v[1])
	}

	s = collapseDoubles(s)
	return strings.TrimSpace(s)
}

// collapseDoubles reduces runs of a repeated letter to a single letter
// ("hassan" -> "hasan").
func collapseDoubles(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	var prev rune = -1
	for _, r := range s {
		if r == prev {
			continue
		}
		b.WriteRune(r)
		prev = r
	}
	return b.String()
}

// WordSet returns the token set of the normalized Latin name for
// order-independent comparison. Empty names yield an empty set.
func WordSet(name string) map[string]struct{} {
	normalized := NormalizeLatin(name)
	if normalized == "" {
		return map[string]struct{}{}
	}
	set := make(map[string]struct{})
	for _, w := range strings.Fields(normalized) {
		set[w] = struct{}{}
	}
	return set
}

// WordSetKey returns a canonical string key for a word set, usable as an
// index map key (sorted tokens joined by a single space).
func WordSetKey(set map[string]struct{}) string {
	if len(set) == 0 {
		return ""
	}
	words := make([]string, 0, len(set))
	for w := range set {
		words = append(words, w)
	}
	sort.Strings(words)
	return strings.Join(words, " ")
}

// Overlap returns the number of tokens shared by two word sets.
func Overlap(a, b map[string]struct{}) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	n := 0
	for w := range a {
		if _, ok := b[w]; ok {
			n++
		}
	}
	return n
}
