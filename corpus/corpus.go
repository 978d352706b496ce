// Package corpus builds the immutable, content-hashed vocabulary that every
// index in lexsearch is built over (spec.md §3, §4.3).
package corpus

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"

	"github.com/lexsearchio/lexsearch/normalize"
)

// Language is a closed set of supported language tags.
type Language string

const (
	LangEnglish Language = "en"
	LangFrench  Language = "fr"
	LangSpanish Language = "es"
	LangGerman  Language = "de"
	LangItalian Language = "it"
	LangMulti   Language = "multi"
)

func ValidLanguage(l Language) bool {
	switch l {
	case LangEnglish, LangFrench, LangSpanish, LangGerman, LangItalian, LangMulti:
		return true
	default:
		return false
	}
}

// Entry is a single lexical item: a word, phrase, or idiom.
type Entry struct {
	Text       string
	Normalized string
	IsPhrase   bool
	IsIdiom    bool
	Language   Language
	Frequency  float64
}

// CandidateEntry is the pre-dedup shape produced by ingest, before dense
// indices are assigned.
type CandidateEntry = Entry

// ErrNoSources is returned by Build when zero candidate entries survive
// ingestion, matching spec.md's CorpusError.NoSources.
var ErrNoSources = fmt.Errorf("corpus: no valid entries from any source")

// Corpus is the immutable, sealed vocabulary. Once built it is never
// mutated; rebuilds produce a new Corpus with an incremented GenerationID.
type Corpus struct {
	entries      []Entry
	indexOf      map[string]int // "<language>\x1f<normalized>" -> index
	byLanguage   map[Language][]int
	contentHash  [32]byte
	generationID int
}

func key(language Language, normalized string) string {
	return string(language) + "\x1f" + normalized
}

// Build groups candidates by (normalized, language), merges duplicates
// (higher frequency wins; either side being an idiom makes the merged entry
// an idiom), assigns dense indices in (language, normalized) sort order for
// determinism, and computes the content hash. IsPhrase is derived from each
// entry's normalized form.
func Build(candidates []Entry, prevGenerationID int) (*Corpus, error) {
	grouped := make(map[string]Entry, len(candidates))
	order := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c.Normalized == "" {
			continue
		}
		c.IsPhrase = normalize.IsPhrase(c.Normalized)
		k := key(c.Language, c.Normalized)
		existing, ok := grouped[k]
		if !ok {
			grouped[k] = c
			order = append(order, k)
			continue
		}
		grouped[k] = mergeEntries(existing, c)
	}
	if len(grouped) == 0 {
		return nil, ErrNoSources
	}

	sort.Strings(order)
	entries := make([]Entry, 0, len(order))
	for _, k := range order {
		entries = append(entries, grouped[k])
	}

	indexOf := make(map[string]int, len(entries))
	byLanguage := make(map[Language][]int)
	for i, e := range entries {
		indexOf[key(e.Language, e.Normalized)] = i
		byLanguage[e.Language] = append(byLanguage[e.Language], i)
	}

	return &Corpus{
		entries:      entries,
		indexOf:      indexOf,
		byLanguage:   byLanguage,
		contentHash:  computeContentHash(entries),
		generationID: prevGenerationID + 1,
	}, nil
}

func mergeEntries(a, b Entry) Entry {
	winner := a
	if b.Frequency > a.Frequency {
		winner = b
	}
	winner.IsIdiom = a.IsIdiom || b.IsIdiom
	winner.IsPhrase = normalize.IsPhrase(winner.Normalized)
	return winner
}

func computeContentHash(entries []Entry) [32]byte {
	var b strings.Builder
	for _, e := range entries {
		b.WriteString(string(e.Language))
		b.WriteByte('\x1f')
		b.WriteString(e.Normalized)
		b.WriteByte('\x1e')
	}
	return sha256.Sum256([]byte(b.String()))
}

// Len returns the number of entries in the corpus.
func (c *Corpus) Len() int { return len(c.entries) }

// ByIndex returns the entry at i, and ok=false if i is out of range.
func (c *Corpus) ByIndex(i int) (Entry, bool) {
	if i < 0 || i >= len(c.entries) {
		return Entry{}, false
	}
	return c.entries[i], true
}

// IndexOf looks up the dense index for (normalized, language).
func (c *Corpus) IndexOf(normalized string, language Language) (int, bool) {
	idx, ok := c.indexOf[key(language, normalized)]
	return idx, ok
}

// IterWords calls fn for every non-phrase entry, in index order.
func (c *Corpus) IterWords(fn func(index int, e Entry)) {
	for i, e := range c.entries {
		if !e.IsPhrase {
			fn(i, e)
		}
	}
}

// IterPhrases calls fn for every phrase entry, in index order.
func (c *Corpus) IterPhrases(fn func(index int, e Entry)) {
	for i, e := range c.entries {
		if e.IsPhrase {
			fn(i, e)
		}
	}
}

// Subview returns the indices of all entries tagged with the given language.
func (c *Corpus) Subview(language Language) []int {
	return c.byLanguage[language]
}

// ContentHash returns the SHA-256 over the sorted (normalized, language)
// pairs, stable across builds with identical content.
func (c *Corpus) ContentHash() [32]byte { return c.contentHash }

// GenerationID is the monotonic build counter.
func (c *Corpus) GenerationID() int { return c.generationID }

// All returns the full entry slice. Callers must not mutate it.
func (c *Corpus) All() []Entry { return c.entries }

// FromParts reconstructs a Corpus from an already-deduped, already-sorted
// entry slice plus its recorded content hash and generation ID. It is used
// only by the store package when loading a persisted corpus.bin: the
// dense-index lookup maps are rebuilt, but no merge/sort/hash work is
// redone, since the persisted entries already reflect a sealed Corpus.
func FromParts(entries []Entry, contentHash [32]byte, generationID int) *Corpus {
	indexOf := make(map[string]int, len(entries))
	byLanguage := make(map[Language][]int)
	for i, e := range entries {
		indexOf[key(e.Language, e.Normalized)] = i
		byLanguage[e.Language] = append(byLanguage[e.Language], i)
	}
	return &Corpus{
		entries:      entries,
		indexOf:      indexOf,
		byLanguage:   byLanguage,
		contentHash:  contentHash,
		generationID: generationID,
	}
}
