// Package ngram implements NGramIndex (spec.md §4.6): a cheap n-gram
// inverted index used both as a candidate generator feeding the fuzzy
// scorer and as a direct substring-recall search method.
package ngram

import (
	"bytes"
	"encoding/gob"
	"sort"

	"github.com/lexsearchio/lexsearch/corpus"
	"github.com/lexsearchio/lexsearch/internal/textnorm"
)

const maxFrequencyBonus = 0.1

// Hit is a scored candidate returned by Query.
type Hit struct {
	Index int
	Score float64
}

// Index maps each n-gram (n in {2,3}) to the set of entry indices whose
// boundary-marked normalized form contains it. A second ASCII-folded
// posting list (textnorm.Heavy) rides alongside the primary one, so a query
// in one script or accent convention can still surface entries written in
// another (café vs cafe, romanized input vs diacritic-bearing entries).
type Index struct {
	postings  map[string][]int // ngram -> sorted, deduped entry indices
	grams     map[int][]string // entry index -> its ngram set, for Jaccard/overlap
	frequency map[int]float64
	maxFreq   float64

	asciiPostings map[string][]int
	asciiGrams    map[int][]string
}

// Build constructs an Index over every entry in c.
func Build(c *corpus.Corpus) *Index {
	idx := &Index{
		postings:      make(map[string][]int),
		grams:         make(map[int][]string),
		frequency:     make(map[int]float64),
		asciiPostings: make(map[string][]int),
		asciiGrams:    make(map[int][]string),
	}
	seen := make(map[string]map[int]bool)
	asciiSeen := make(map[string]map[int]bool)
	for i, e := range c.All() {
		grams := Grams(e.Normalized)
		idx.grams[i] = grams
		idx.frequency[i] = e.Frequency
		if e.Frequency > idx.maxFreq {
			idx.maxFreq = e.Frequency
		}
		for _, g := range grams {
			if seen[g] == nil {
				seen[g] = make(map[int]bool)
			}
			if !seen[g][i] {
				seen[g][i] = true
				idx.postings[g] = append(idx.postings[g], i)
			}
		}

		asciiGrams := Grams(textnorm.Heavy(e.Normalized))
		idx.asciiGrams[i] = asciiGrams
		for _, g := range asciiGrams {
			if asciiSeen[g] == nil {
				asciiSeen[g] = make(map[int]bool)
			}
			if !asciiSeen[g][i] {
				asciiSeen[g][i] = true
				idx.asciiPostings[g] = append(idx.asciiPostings[g], i)
			}
		}
	}
	return idx
}

// Grams returns the sorted, de-duplicated set of n-grams (n=2,3) over
// "^normalized$", the boundary-marked form spec.md §4.6 specifies.
func Grams(normalized string) []string {
	marked := "^" + normalized + "$"
	runes := []rune(marked)
	set := make(map[string]bool)
	for _, n := range []int{2, 3} {
		if len(runes) < n {
			continue
		}
		for i := 0; i+n <= len(runes); i++ {
			set[string(runes[i:i+n])] = true
		}
	}
	out := make([]string, 0, len(set))
	for g := range set {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

// Query generates candidates for the given normalized query, scoring each
// by 0.7*jaccard + 0.3*overlap plus a frequency bonus capped at 0.1, and
// returns the top k by combined score. Candidates are gathered from both
// the primary (diacritic-preserving) postings and the ASCII-folded side
// postings; an entry found only via the folded view still surfaces, and one
// found via both takes its better-scoring view.
func (idx *Index) Query(queryNormalized string, k int) []Hit {
	queryGrams := Grams(queryNormalized)
	asciiQueryGrams := Grams(textnorm.Heavy(queryNormalized))
	if (len(queryGrams) == 0 && len(asciiQueryGrams) == 0) || k <= 0 {
		return nil
	}

	primary := matchCounts(idx.postings, queryGrams)
	ascii := matchCounts(idx.asciiPostings, asciiQueryGrams)

	scores := make(map[int]float64, len(primary)+len(ascii))
	for entryIdx, shared := range primary {
		if s := combinedScore(shared, len(queryGrams), len(idx.grams[entryIdx])); s > scores[entryIdx] {
			scores[entryIdx] = s
		}
	}
	for entryIdx, shared := range ascii {
		if s := combinedScore(shared, len(asciiQueryGrams), len(idx.asciiGrams[entryIdx])); s > scores[entryIdx] {
			scores[entryIdx] = s
		}
	}

	hits := make([]Hit, 0, len(scores))
	for entryIdx, combined := range scores {
		bonus := 0.0
		if idx.maxFreq > 0 {
			bonus = maxFrequencyBonus * (idx.frequency[entryIdx] / idx.maxFreq)
		}
		hits = append(hits, Hit{Index: entryIdx, Score: combined + bonus})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Index < hits[j].Index
	})
	if k < len(hits) {
		hits = hits[:k]
	}
	return hits
}

// matchCounts tallies, per entry index, how many of queryGrams appear in
// postings.
func matchCounts(postings map[string][]int, queryGrams []string) map[int]int {
	counts := make(map[int]int)
	for _, g := range queryGrams {
		for _, entryIdx := range postings[g] {
			counts[entryIdx]++
		}
	}
	return counts
}

// combinedScore is the 0.7*jaccard + 0.3*overlap formula shared by Query's
// primary and ASCII-folded passes and by Similarity.
func combinedScore(shared, querySetLen, candidateGramsLen int) float64 {
	union := querySetLen + candidateGramsLen - shared
	if union <= 0 || querySetLen == 0 {
		return 0
	}
	jaccard := float64(shared) / float64(union)
	overlap := float64(shared) / float64(querySetLen)
	return 0.7*jaccard + 0.3*overlap
}

// Similarity returns the raw combined score (without frequency bonus)
// between two normalized strings, exposed for FuzzyScorer's NGramSimilarity
// algorithm (spec.md §4.7).
func Similarity(a, b string) float64 {
	ag, bg := Grams(a), Grams(b)
	if len(ag) == 0 || len(bg) == 0 {
		if a == b {
			return 1
		}
		return 0
	}
	aset := make(map[string]bool, len(ag))
	for _, g := range ag {
		aset[g] = true
	}
	shared := 0
	for _, g := range bg {
		if aset[g] {
			shared++
		}
	}
	return combinedScore(shared, len(ag), len(bg))
}

// ngramSnapshot is the exported shape persisted by GobEncode, since Index's
// own fields are unexported.
type ngramSnapshot struct {
	Postings      map[string][]int
	Grams         map[int][]string
	Frequency     map[int]float64
	MaxFreq       float64
	AsciiPostings map[string][]int
	AsciiGrams    map[int][]string
}

// GobEncode implements gob.GobEncoder so store can persist an Index.
func (idx *Index) GobEncode() ([]byte, error) {
	snap := ngramSnapshot{
		Postings:      idx.postings,
		Grams:         idx.grams,
		Frequency:     idx.frequency,
		MaxFreq:       idx.maxFreq,
		AsciiPostings: idx.asciiPostings,
		AsciiGrams:    idx.asciiGrams,
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(snap); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GobDecode implements gob.GobDecoder.
func (idx *Index) GobDecode(data []byte) error {
	var snap ngramSnapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&snap); err != nil {
		return err
	}
	idx.postings = snap.Postings
	idx.grams = snap.Grams
	idx.frequency = snap.Frequency
	idx.maxFreq = snap.MaxFreq
	idx.asciiPostings = snap.AsciiPostings
	idx.asciiGrams = snap.AsciiGrams
	return nil
}
