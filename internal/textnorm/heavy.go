// Package textnorm holds the static data tables and low-level transforms
// that back the exported Normalizer (see the normalize package). Keeping
// them internal lets the contraction table and punctuation classes live as
// data embedded at build time, not runtime-loaded configuration.
package textnorm

import (
	"strings"
	"unicode"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/unicode/norm"
)

// QuoteDashReplacer canonicalizes curly quotes, exotic apostrophe variants,
// and dash variants to their plain-ASCII equivalents.
var QuoteDashReplacer = strings.NewReplacer(
	"‘", "'", "’", "'", "‛", "'", "`", "'", "´", "'",
	"–", "-", "—", "-",
)

// Contractions is the closed set of English contraction expansions applied
// during normalization. Order matters: more specific whole-word forms must
// be checked before the generic trailing fragments ('re, 've, ...).
var Contractions = []struct {
	From string
	To   string
}{
	{"don't", "do not"},
	{"won't", "will not"},
	{"can't", "cannot"},
	{"'re", " are"},
	{"'ve", " have"},
	{"'ll", " will"},
	{"'d", " would"},
	{"'m", " am"},
	{"'s", " is"},
}

// Heavy produces an aggressively folded ASCII view of s: Unicode NFKC,
// best-effort transliteration to ASCII, lowercase, punctuation collapsed to
// spaces, whitespace collapsed. It gives cross-script candidate generation in
// NGramIndex a stable, language-agnostic surface (e.g. café vs cafe, or
// romanized CJK input). The accent-insensitive view used by fuzzy/BK-tree
// comparisons is StripCombiningMarks, not this function.
//
// It is intentionally language-agnostic and conservative: it aims to make
// cross-script matching possible while staying stable.
func Heavy(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	s = norm.NFKC.String(s)
	s = unidecode.Unidecode(s)
	s = strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(s))

	space := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
			continue
		}
		space = true
	}

	out := strings.TrimSpace(b.String())
	if out == "" {
		return ""
	}
	// Final collapse in case of leading/trailing spaces.
	return strings.Join(strings.Fields(out), " ")
}

// StripCombiningMarks applies NFD and drops combining marks, producing an
// accent-insensitive form while leaving case and punctuation untouched. This
// is the basis for the accent-insensitive view used at BK-tree comparison
// time; the canonical normalized form on an Entry keeps its diacritics.
func StripCombiningMarks(s string) string {
	if s == "" {
		return ""
	}
	decomposed := norm.NFD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return norm.NFC.String(b.String())
}
