package vector

import (
	"math"
	"sort"

	"github.com/lexsearchio/lexsearch/internal/vecmath"
)

// charEmbedder maps each rune to a deterministic pseudo-random unit vector
// (seeded, so the same character always gets the same vector within an
// index) and mean-pools over the first charPoolLen characters of the text.
type charEmbedder struct {
	seed  uint64
	cache map[rune][]float32
}

func newCharEmbedder(seed uint64) *charEmbedder {
	return &charEmbedder{seed: seed, cache: make(map[rune][]float32)}
}

func (ce *charEmbedder) vectorFor(r rune) []float32 {
	if v, ok := ce.cache[r]; ok {
		return v
	}
	v := deterministicUnitVector(ce.seed, uint64(r), charDim)
	ce.cache[r] = v
	return v
}

func (ce *charEmbedder) embed(text string) []float32 {
	runes := []rune(text)
	if len(runes) > charPoolLen {
		runes = runes[:charPoolLen]
	}
	sum := make([]float32, charDim)
	n := 0
	for _, r := range runes {
		v := ce.vectorFor(r)
		for i, f := range v {
			sum[i] += f
		}
		n++
	}
	if n > 0 {
		inv := float32(1.0) / float32(n)
		for i := range sum {
			sum[i] *= inv
		}
	}
	vecmath.L2NormalizeInPlace(sum)
	return sum
}

// subwordEmbedder embeds texts by mean-pooling deterministic vectors for
// their frequent character n-grams (n in [2,5]); n-grams below subwordMinDF
// document frequency are dropped from the vocabulary and ignored at query
// time.
type subwordEmbedder struct {
	seed  uint64
	vocab map[string]bool
	cache map[string][]float32
}

func trainSubwordEmbedder(texts []string, seed uint64) *subwordEmbedder {
	df := make(map[string]int)
	for _, t := range texts {
		seen := make(map[string]bool)
		for _, g := range subwordGrams(t) {
			if !seen[g] {
				seen[g] = true
				df[g]++
			}
		}
	}
	vocab := make(map[string]bool)
	for g, count := range df {
		if count >= subwordMinDF {
			vocab[g] = true
		}
	}
	return &subwordEmbedder{seed: seed, vocab: vocab, cache: make(map[string][]float32)}
}

func subwordGrams(s string) []string {
	marked := "^" + s + "$"
	runes := []rune(marked)
	var out []string
	for n := subwordMinN; n <= subwordMaxN; n++ {
		if len(runes) < n {
			continue
		}
		for i := 0; i+n <= len(runes); i++ {
			out = append(out, string(runes[i:i+n]))
		}
	}
	return out
}

func (se *subwordEmbedder) vectorFor(g string) []float32 {
	if v, ok := se.cache[g]; ok {
		return v
	}
	v := deterministicUnitVector(se.seed, fnv64(g), subwordDim)
	se.cache[g] = v
	return v
}

func (se *subwordEmbedder) embed(text string) []float32 {
	sum := make([]float32, subwordDim)
	n := 0
	for _, g := range subwordGrams(text) {
		if !se.vocab[g] {
			continue
		}
		v := se.vectorFor(g)
		for i, f := range v {
			sum[i] += f
		}
		n++
	}
	if n > 0 {
		inv := float32(1.0) / float32(n)
		for i := range sum {
			sum[i] *= inv
		}
	}
	vecmath.L2NormalizeInPlace(sum)
	return sum
}

// tfidfEmbedder is a sparse character n-gram (n in [2,4]) TF-IDF space,
// represented densely over its fitted vocabulary, L2-normalized per entry.
type tfidfEmbedder struct {
	vocabIndex map[string]int
	idf        []float64
}

func tfidfGrams(s string) []string {
	marked := "^" + s + "$"
	runes := []rune(marked)
	var out []string
	for n := tfidfMinN; n <= tfidfMaxN; n++ {
		if len(runes) < n {
			continue
		}
		for i := 0; i+n <= len(runes); i++ {
			out = append(out, string(runes[i:i+n]))
		}
	}
	return out
}

func trainTFIDFEmbedder(texts []string) *tfidfEmbedder {
	df := make(map[string]int)
	for _, t := range texts {
		seen := make(map[string]bool)
		for _, g := range tfidfGrams(t) {
			if !seen[g] {
				seen[g] = true
				df[g]++
			}
		}
	}
	keys := make([]string, 0, len(df))
	for g := range df {
		keys = append(keys, g)
	}
	sort.Strings(keys)

	vocabIndex := make(map[string]int, len(keys))
	idf := make([]float64, len(keys))
	n := float64(len(texts))
	for i, g := range keys {
		vocabIndex[g] = i
		idf[i] = math.Log(1 + n/float64(df[g]))
	}
	return &tfidfEmbedder{vocabIndex: vocabIndex, idf: idf}
}

func (te *tfidfEmbedder) embed(text string) []float32 {
	tf := make(map[int]int)
	for _, g := range tfidfGrams(text) {
		if i, ok := te.vocabIndex[g]; ok {
			tf[i]++
		}
	}
	vec := make([]float32, len(te.vocabIndex))
	for i, count := range tf {
		vec[i] = float32(float64(count) * te.idf[i])
	}
	vecmath.L2NormalizeInPlace(vec)
	return vec
}

// deterministicUnitVector derives a reproducible pseudo-random unit vector
// from (seed, key) using a small xorshift PRNG, so embeddings are stable
// across rebuilds without persisting a separate learned weight table.
func deterministicUnitVector(seed, key uint64, dim int) []float32 {
	state := seed ^ (key * 0x9E3779B97F4A7C15)
	if state == 0 {
		state = 0xA5A5A5A5A5A5A5A5
	}
	next := func() uint64 {
		state ^= state << 13
		state ^= state >> 7
		state ^= state << 17
		return state
	}
	v := make([]float32, dim)
	for i := range v {
		r := next()
		// Map to [-1, 1).
		v[i] = float32(int64(r>>11))/float32(1<<53)*2 - 1
	}
	vecmath.L2NormalizeInPlace(v)
	return v
}

func fnv64(s string) uint64 {
	const offset64 = 14695981039346656037
	const prime64 = 1099511628211
	h := uint64(offset64)
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime64
	}
	return h
}
