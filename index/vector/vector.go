// Package vector implements VectorIndex (spec.md §4.8): character, subword,
// and TF-IDF embedding modes, a fusion vector, and a flat inner-product k-NN
// search over each mode. Dimension/size is modest enough (d_c = 64, fused
// 128 plus the TF-IDF vocabulary size) that an exact scan stays practical up to the ~10^6 entry ceiling the
// spec calls out; beyond that an approximate index (HNSW/IVF) would replace
// the scan without changing this package's public surface.
package vector

import (
	"bytes"
	"container/heap"
	"encoding/gob"
	"sort"

	"github.com/lexsearchio/lexsearch/corpus"
	"github.com/lexsearchio/lexsearch/internal/vecmath"
)

// Mode names an embedding space.
type Mode int

const (
	Character Mode = iota
	Subword
	TFIDF
	Fusion
)

const (
	charDim       = 64
	charPoolLen   = 20
	subwordMinN   = 2
	subwordMaxN   = 5
	subwordMinDF  = 2
	subwordDim    = 64
	tfidfMinN     = 2
	tfidfMaxN     = 4
	fusionCharW   = 0.3
	fusionSubW    = 0.5
	fusionTfidfW  = 0.2
	defaultSeed   = 0x5bd1e995
)

// Hit is a scored nearest-neighbor result.
type Hit struct {
	Index int
	Score float64
}

// Index holds, per entry, a vector in each of the four embedding spaces.
type Index struct {
	charVecs    [][]float32
	subwordVecs [][]float32
	tfidfVecs   [][]float32
	fusionVecs  [][]float32

	charEmbedder    *charEmbedder
	subwordEmbedder *subwordEmbedder
	tfidfEmbedder   *tfidfEmbedder
}

// Build trains the subword and TF-IDF vocabularies over c, embeds every
// entry in all three base modes, and derives the fusion vector for each.
func Build(c *corpus.Corpus) *Index {
	entries := c.All()
	texts := make([]string, len(entries))
	for i, e := range entries {
		texts[i] = e.Normalized
	}

	ce := newCharEmbedder(defaultSeed)
	se := trainSubwordEmbedder(texts, defaultSeed)
	te := trainTFIDFEmbedder(texts)

	idx := &Index{
		charEmbedder:    ce,
		subwordEmbedder: se,
		tfidfEmbedder:   te,
	}
	for _, text := range texts {
		cv := ce.embed(text)
		sv := se.embed(text)
		tv := te.embed(text)
		idx.charVecs = append(idx.charVecs, cv)
		idx.subwordVecs = append(idx.subwordVecs, sv)
		idx.tfidfVecs = append(idx.tfidfVecs, tv)
		idx.fusionVecs = append(idx.fusionVecs, fuse(cv, sv, tv))
	}
	return idx
}

// EmbedQuery embeds free text in the requested mode using this index's
// trained vocabularies, for use as a search query vector.
func (idx *Index) EmbedQuery(text string, mode Mode) []float32 {
	cv := idx.charEmbedder.embed(text)
	switch mode {
	case Character:
		return cv
	case Subword:
		return idx.subwordEmbedder.embed(text)
	case TFIDF:
		return idx.tfidfEmbedder.embed(text)
	case Fusion:
		sv := idx.subwordEmbedder.embed(text)
		tv := idx.tfidfEmbedder.embed(text)
		return fuse(cv, sv, tv)
	default:
		return cv
	}
}

func fuse(char, subword, tfidf []float32) []float32 {
	out := make([]float32, 0, len(char)+len(subword)+len(tfidf))
	for _, v := range char {
		out = append(out, float32(fusionCharW)*v)
	}
	for _, v := range subword {
		out = append(out, float32(fusionSubW)*v)
	}
	for _, v := range tfidf {
		out = append(out, float32(fusionTfidfW)*v)
	}
	vecmath.L2NormalizeInPlace(out)
	return out
}

func (idx *Index) vectors(mode Mode) [][]float32 {
	switch mode {
	case Character:
		return idx.charVecs
	case Subword:
		return idx.subwordVecs
	case TFIDF:
		return idx.tfidfVecs
	default:
		return idx.fusionVecs
	}
}

// Search embeds queryText in mode and returns the top-k entries by cosine
// similarity, mapped to a non-negative score via max(0, cos).
func (idx *Index) Search(queryText string, mode Mode, k int) []Hit {
	q := idx.EmbedQuery(queryText, mode)
	return idx.SearchVector(q, mode, k)
}

// SearchVector runs a flat inner-product scan of an already-embedded query
// vector against every entry vector in mode.
func (idx *Index) SearchVector(query []float32, mode Mode, k int) []Hit {
	if k <= 0 || len(query) == 0 {
		return nil
	}
	vecs := idx.vectors(mode)

	h := &hitMinHeap{}
	heap.Init(h)
	for i, v := range vecs {
		if len(v) != len(query) {
			continue
		}
		cos := vecmath.CosineUnit(query, v)
		score := cos
		if score < 0 {
			score = 0
		}
		if h.Len() < k {
			heap.Push(h, Hit{Index: i, Score: score})
			continue
		}
		if score > (*h)[0].Score {
			heap.Pop(h)
			heap.Push(h, Hit{Index: i, Score: score})
		}
	}

	out := make([]Hit, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).(Hit)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Index < out[j].Index
	})
	return out
}

// hitMinHeap is a min-heap by Score, used to keep only the top-k hits while
// scanning the full vector set.
type hitMinHeap []Hit

func (h hitMinHeap) Len() int            { return len(h) }
func (h hitMinHeap) Less(i, j int) bool  { return h[i].Score < h[j].Score }
func (h hitMinHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *hitMinHeap) Push(x any)         { *h = append(*h, x.(Hit)) }
func (h *hitMinHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// indexSnapshot is the exported shape persisted by GobEncode: Index and its
// three embedder types keep unexported fields, so the snapshot flattens
// everything needed to both hold the precomputed per-entry vectors and
// re-embed future ad hoc queries after load.
type indexSnapshot struct {
	CharVecs    [][]float32
	SubwordVecs [][]float32
	TfidfVecs   [][]float32
	FusionVecs  [][]float32

	CharSeed  uint64
	CharCache map[rune][]float32

	SubwordSeed  uint64
	SubwordVocab map[string]bool
	SubwordCache map[string][]float32

	TfidfVocabIndex map[string]int
	TfidfIDF        []float64
}

// GobEncode implements gob.GobEncoder so store can persist an Index,
// including its trained embedders, without re-running training on load.
func (idx *Index) GobEncode() ([]byte, error) {
	snap := indexSnapshot{
		CharVecs:        idx.charVecs,
		SubwordVecs:     idx.subwordVecs,
		TfidfVecs:       idx.tfidfVecs,
		FusionVecs:      idx.fusionVecs,
		CharSeed:        idx.charEmbedder.seed,
		CharCache:       idx.charEmbedder.cache,
		SubwordSeed:     idx.subwordEmbedder.seed,
		SubwordVocab:    idx.subwordEmbedder.vocab,
		SubwordCache:    idx.subwordEmbedder.cache,
		TfidfVocabIndex: idx.tfidfEmbedder.vocabIndex,
		TfidfIDF:        idx.tfidfEmbedder.idf,
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(snap); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GobDecode implements gob.GobDecoder.
func (idx *Index) GobDecode(data []byte) error {
	var snap indexSnapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&snap); err != nil {
		return err
	}
	idx.charVecs = snap.CharVecs
	idx.subwordVecs = snap.SubwordVecs
	idx.tfidfVecs = snap.TfidfVecs
	idx.fusionVecs = snap.FusionVecs
	idx.charEmbedder = &charEmbedder{seed: snap.CharSeed, cache: snap.CharCache}
	if idx.charEmbedder.cache == nil {
		idx.charEmbedder.cache = make(map[rune][]float32)
	}
	idx.subwordEmbedder = &subwordEmbedder{seed: snap.SubwordSeed, vocab: snap.SubwordVocab, cache: snap.SubwordCache}
	if idx.subwordEmbedder.cache == nil {
		idx.subwordEmbedder.cache = make(map[string][]float32)
	}
	idx.tfidfEmbedder = &tfidfEmbedder{vocabIndex: snap.TfidfVocabIndex, idf: snap.TfidfIDF}
	return nil
}
