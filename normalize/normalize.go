// Package normalize implements the canonicalization contract that every
// other lexsearch component builds on: a raw user or source string becomes a
// deterministic, indexable "normalized" form.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/lexsearchio/lexsearch/internal/textnorm"
)

// Options controls per-language normalization switches.
//
// ExpandPossessiveS resolves the open question in spec.md §9: the source
// expanded trailing 's unconditionally to " is", conflating possessives with
// contractions. lexsearch makes that a configurable switch instead of
// guessing at build time; it defaults to true since the only effect on
// indexing is wider recall.
type Options struct {
	ExpandPossessiveS bool
}

// DefaultOptions matches the historical behavior: always expand 's -> is.
func DefaultOptions() Options {
	return Options{ExpandPossessiveS: true}
}

// Normalize canonicalizes raw input per spec §4.1:
//  1. Unicode NFC normalization
//  2. Unicode-aware lowercase
//  3. curly quote / dash canonicalization
//  4. closed-set English contraction expansion
//  5. punctuation removal (keeping '-', '\'', whitespace, digits)
//  6. whitespace collapse
//
// Returns "" when the input collapses to nothing; callers treat that as
// "not indexable".
func Normalize(raw string, opts Options) string {
	s := norm.NFC.String(raw)
	s = strings.ToLower(s)
	s = textnorm.QuoteDashReplacer.Replace(s)
	s = expandContractions(s, opts)
	s = stripPunctuation(s)
	s = collapseWhitespace(s)
	return s
}

func expandContractions(s string, opts Options) string {
	for _, c := range textnorm.Contractions {
		if c.From == "'s" && !opts.ExpandPossessiveS {
			continue
		}
		s = strings.ReplaceAll(s, c.From, c.To)
	}
	return s
}

func stripPunctuation(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), unicode.IsSpace(r):
			b.WriteRune(r)
		case r == '-' || r == '\'':
			b.WriteRune(r)
		}
	}
	return b.String()
}

func collapseWhitespace(s string) string {
	return strings.TrimSpace(strings.Join(strings.Fields(s), " "))
}

// AccentInsensitive additionally strips diacritics from an already-normalized
// string. It is used for fuzzy/BK-tree comparisons; the Entry's canonical
// `normalized` form keeps diacritics so results can surface with them intact.
func AccentInsensitive(normalized string) string {
	return textnorm.StripCombiningMarks(normalized)
}

// IsPhrase reports whether a normalized string is a phrase: it contains a
// space, or at least two hyphen-separated alphabetic parts.
func IsPhrase(normalized string) bool {
	if strings.ContainsRune(normalized, ' ') {
		return true
	}
	parts := strings.Split(normalized, "-")
	alpha := 0
	for _, p := range parts {
		if p == "" {
			continue
		}
		for _, r := range p {
			if unicode.IsLetter(r) {
				alpha++
				break
			}
		}
	}
	return alpha >= 2
}
