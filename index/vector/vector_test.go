package vector

import (
	"testing"

	"github.com/lexsearchio/lexsearch/corpus"
)

func buildCorpus(t *testing.T, entries []corpus.Entry) *corpus.Corpus {
	t.Helper()
	c, err := corpus.Build(entries, 0)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return c
}

func TestEmbedDeterministic(t *testing.T) {
	c := buildCorpus(t, []corpus.Entry{
		{Text: "hello", Normalized: "hello", Language: corpus.LangEnglish, Frequency: 1},
		{Text: "world", Normalized: "world", Language: corpus.LangEnglish, Frequency: 1},
	})
	idx1 := Build(c)
	idx2 := Build(c)
	v1 := idx1.EmbedQuery("hello", Character)
	v2 := idx2.EmbedQuery("hello", Character)
	if len(v1) != len(v2) {
		t.Fatalf("dimension mismatch across rebuilds")
	}
	for i := range v1 {
		if v1[i] != v2[i] {
			t.Fatalf("embeddings not deterministic at %d: %v vs %v", i, v1[i], v2[i])
		}
	}
}

func TestSearchRanksCloserTextHigher(t *testing.T) {
	c := buildCorpus(t, []corpus.Entry{
		{Text: "hello", Normalized: "hello", Language: corpus.LangEnglish, Frequency: 1},
		{Text: "yellow", Normalized: "yellow", Language: corpus.LangEnglish, Frequency: 1},
		{Text: "banana", Normalized: "banana", Language: corpus.LangEnglish, Frequency: 1},
	})
	idx := Build(c)
	hits := idx.Search("hello", Fusion, 3)
	if len(hits) != 3 {
		t.Fatalf("expected 3 hits, got %d", len(hits))
	}
	helloIdx, _ := c.IndexOf("hello", corpus.LangEnglish)
	if hits[0].Index != helloIdx {
		t.Fatalf("expected exact text to rank first, got %+v", hits)
	}
}

func TestSearchTopK(t *testing.T) {
	c := buildCorpus(t, []corpus.Entry{
		{Text: "a", Normalized: "a", Language: corpus.LangEnglish, Frequency: 1},
		{Text: "b", Normalized: "b", Language: corpus.LangEnglish, Frequency: 1},
		{Text: "c", Normalized: "c", Language: corpus.LangEnglish, Frequency: 1},
	})
	idx := Build(c)
	if got := idx.Search("a", Character, 1); len(got) != 1 {
		t.Fatalf("expected top-1, got %d", len(got))
	}
}

func TestFusionVectorIsUnitNorm(t *testing.T) {
	c := buildCorpus(t, []corpus.Entry{{Text: "test", Normalized: "test", Language: corpus.LangEnglish, Frequency: 1}})
	idx := Build(c)
	v := idx.fusionVecs[0]
	var sumSq float64
	for _, f := range v {
		sumSq += float64(f) * float64(f)
	}
	if sumSq < 0.99 || sumSq > 1.01 {
		t.Errorf("fusion vector not unit norm: sumSq=%v", sumSq)
	}
}
