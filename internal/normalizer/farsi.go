// file: internal/normalizer/farsi.go
// version: 1.1.0
// guid: 2f7d9c4b-8a1e-4f3c-b6d2-5e8a7c1f9b3e

package normalizer

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Letter-form variants folded to one canonical shape. Sources mix Arabic
// and Farsi keyboard layouts freely.
var farsiVariants = strings.NewReplacer(
	"ي", "ی", // Arabic Yeh -> Farsi Yeh
	"ك", "ک", // Arabic Kaf -> Farsi Kaf
	"ة", "ه", // Teh Marbuta -> Heh
	"أ", "ا", // Alef Hamza Above -> Alef
	"إ", "ا", // Alef Hamza Below -> Alef
	"آ", "ا", // Alef Madda -> Alef
)

// stripMarks removes combining marks (tashkeel and friends) by NFD
// decomposition, dropping Mn runes, and recomposing. A transform.Chain
// carries per-use state, so each caller gets its own.
func stripMarks() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

func isZeroWidth(r rune) bool {
	switch {
	case r >= 0x200B && r <= 0x200F: // ZWSP..RLM, includes ZWNJ/ZWJ
		return true
	case r >= 0x202A && r <= 0x202E: // directional embeddings
		return true
	case r == 0x2060 || r == 0xFEFF:
		return true
	}
	return false
}

// NormalizeFarsi canonicalizes a Farsi name into a comparison key.
// The result is whitespace-free: compound given names are joined
// inconsistently across sources, so spacing carries no signal.
// Empty input normalizes to "".
func NormalizeFarsi(name string) string {
	s := strings.TrimSpace(name)
	if s == "" {
		return ""
	}

	s = norm.NFC.String(s)
	if out, _, err := transform.String(stripMarks(), s); err == nil {
		s = out
	}
	s = farsiVariants.Replace(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) || isZeroWidth(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
