package ngram

import (
	"testing"

	"github.com/lexsearchio/lexsearch/corpus"
)

func TestGramsBoundaryMarkers(t *testing.T) {
	grams := Grams("ab")
	found2 := false
	for _, g := range grams {
		if g == "^a" {
			found2 = true
		}
	}
	if !found2 {
		t.Fatalf("expected boundary-marked bigram ^a in %v", grams)
	}
}

func TestQueryRanksCloserCandidateHigher(t *testing.T) {
	candidates := []corpus.Entry{
		{Text: "ennui", Normalized: "ennui", Language: corpus.LangEnglish, Frequency: 1},
		{Text: "enui", Normalized: "enui", Language: corpus.LangEnglish, Frequency: 1},
		{Text: "banana", Normalized: "banana", Language: corpus.LangEnglish, Frequency: 1},
	}
	c, err := corpus.Build(candidates, 0)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	idx := Build(c)

	hits := idx.Query("enui", 10)
	if len(hits) == 0 {
		t.Fatalf("expected hits for enui")
	}
	enuiIdx, _ := c.IndexOf("enui", corpus.LangEnglish)
	ennuiIdx, _ := c.IndexOf("ennui", corpus.LangEnglish)
	if len(hits) < 2 || hits[0].Index != enuiIdx || hits[1].Index != ennuiIdx {
		t.Fatalf("expected exact entry enui first and near match ennui second for query enui, got %+v", hits)
	}
}

func TestQueryEmpty(t *testing.T) {
	c, _ := corpus.Build([]corpus.Entry{{Text: "a", Normalized: "a", Language: corpus.LangEnglish}}, 0)
	idx := Build(c)
	if got := idx.Query("", 10); got != nil {
		t.Fatalf("expected nil for empty query, got %v", got)
	}
}

func TestQueryFindsAccentFoldedCandidate(t *testing.T) {
	candidates := []corpus.Entry{
		{Text: "café", Normalized: "café", Language: corpus.LangFrench, Frequency: 1},
		{Text: "banana", Normalized: "banana", Language: corpus.LangEnglish, Frequency: 1},
	}
	c, err := corpus.Build(candidates, 0)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	idx := Build(c)

	hits := idx.Query("cafe", 10)
	if len(hits) == 0 {
		t.Fatalf("expected ASCII-folded query \"cafe\" to surface \"café\"")
	}
	cafeIdx, _ := c.IndexOf("café", corpus.LangFrench)
	if hits[0].Index != cafeIdx {
		t.Fatalf("expected café to rank first for query cafe, got index %d", hits[0].Index)
	}
}

func TestSimilaritySymmetricIdentity(t *testing.T) {
	if s := Similarity("hello", "hello"); s != 1 {
		t.Errorf("Similarity(hello,hello) = %v, want 1", s)
	}
	if Similarity("hello", "world") >= Similarity("hello", "hallo") {
		t.Errorf("expected hallo closer to hello than world")
	}
}
