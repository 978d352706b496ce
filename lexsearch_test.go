package lexsearch

import (
	"context"
	"testing"

	"github.com/lexsearchio/lexsearch/corpus"
	"github.com/lexsearchio/lexsearch/normalize"
	"github.com/lexsearchio/lexsearch/query"
)

// fixedCorpusTexts is the literal 13-entry corpus used by the end-to-end
// scenarios: a mix of single words, idioms/phrases, and accented French.
var fixedCorpusTexts = []string{
	"ennui", "en coulisse", "coulisse", "en route", "en effet",
	"café", "résumé", "à la carte", "machine learning",
	"hello", "help", "helpful", "world",
}

func buildFixedHandle(t *testing.T) *Handle {
	t.Helper()
	opts := normalize.DefaultOptions()
	candidates := make([]corpus.Entry, 0, len(fixedCorpusTexts))
	for _, text := range fixedCorpusTexts {
		n := normalize.Normalize(text, opts)
		candidates = append(candidates, corpus.Entry{
			Text:       text,
			Normalized: n,
			IsPhrase:   normalize.IsPhrase(n),
			Language:   corpus.LangEnglish,
			Frequency:  1,
		})
	}
	c, err := corpus.Build(candidates, 0)
	if err != nil {
		t.Fatalf("corpus.Build: %v", err)
	}
	return fromCorpus(c)
}

func first(results []query.SearchResult) (text string, method query.Method, score float64, ok bool) {
	if len(results) == 0 {
		return "", 0, 0, false
	}
	r := results[0]
	return r.Entry.Text, r.Method, r.Score, true
}

func TestEndToEndFuzzyTypo(t *testing.T) {
	h := buildFixedHandle(t)
	results := Search(context.Background(), h, "enui", query.Options{})
	text, method, score, ok := first(results)
	if !ok {
		t.Fatal("expected at least one result for \"enui\"")
	}
	if text != "ennui" {
		t.Errorf("top result = %q, want %q", text, "ennui")
	}
	if method != query.Fuzzy {
		t.Errorf("method = %v, want FUZZY", method)
	}
	if score < 0.75 {
		t.Errorf("score = %v, want >= 0.75", score)
	}
}

func TestEndToEndPhraseFuzzyWithAlignmentBonus(t *testing.T) {
	h := buildFixedHandle(t)
	results := Search(context.Background(), h, "en coulise", query.Options{})
	text, method, score, ok := first(results)
	if !ok {
		t.Fatal("expected at least one result for \"en coulise\"")
	}
	if text != "en coulisse" {
		t.Errorf("top result = %q, want %q", text, "en coulisse")
	}
	if method != query.Fuzzy {
		t.Errorf("method = %v, want FUZZY", method)
	}
	if score < 0.80 {
		t.Errorf("score = %v, want >= 0.80", score)
	}
}

func TestEndToEndPrefixFamily(t *testing.T) {
	h := buildFixedHandle(t)
	results := Search(context.Background(), h, "hel", query.Options{})
	want := map[string]bool{"hello": false, "help": false, "helpful": false}
	for _, r := range results {
		if _, ok := want[r.Entry.Text]; ok {
			want[r.Entry.Text] = true
			if r.Method != query.Prefix {
				t.Errorf("%q matched via %v, want PREFIX", r.Entry.Text, r.Method)
			}
			if r.Score < 0.75 {
				t.Errorf("%q score = %v, want >= 0.75", r.Entry.Text, r.Score)
			}
		}
	}
	for text, seen := range want {
		if !seen {
			t.Errorf("expected %q among prefix results for \"hel\"", text)
		}
	}
}

func TestEndToEndAccentInsensitiveFuzzyPreservesDiacritics(t *testing.T) {
	h := buildFixedHandle(t)
	results := Search(context.Background(), h, "cafe", query.Options{})
	text, method, _, ok := first(results)
	if !ok {
		t.Fatal("expected at least one result for \"cafe\"")
	}
	if text != "café" {
		t.Errorf("top result = %q, want %q (diacritics preserved)", text, "café")
	}
	if method != query.Fuzzy {
		t.Errorf("method = %v, want FUZZY", method)
	}
}

func TestEndToEndEmptyQuery(t *testing.T) {
	h := buildFixedHandle(t)
	results := Search(context.Background(), h, "", query.Options{})
	if len(results) != 0 {
		t.Errorf("expected empty results for empty query, got %d", len(results))
	}
}

func TestStatsOfCountsPhrasesAndWords(t *testing.T) {
	h := buildFixedHandle(t)
	s := StatsOf(h)
	if s.Entries != len(fixedCorpusTexts) {
		t.Errorf("Entries = %d, want %d", s.Entries, len(fixedCorpusTexts))
	}
	if s.Phrases == 0 {
		t.Errorf("expected at least one phrase entry (e.g. \"en coulisse\")")
	}
	if s.Words == 0 {
		t.Errorf("expected at least one single-word entry (e.g. \"hello\")")
	}
}

func TestStatsOfTracksPerMethodCallsAfterSearch(t *testing.T) {
	h := buildFixedHandle(t)
	Search(context.Background(), h, "enui", query.Options{})

	s := StatsOf(h)
	fuzzyStats, ok := s.PerMethod[query.Fuzzy]
	if !ok || fuzzyStats.Calls == 0 {
		t.Fatalf("expected FUZZY method stats to record at least one call, got %+v", s.PerMethod)
	}
	if fuzzyStats.Hits == 0 {
		t.Errorf("expected FUZZY method to record at least one hit for \"enui\"")
	}
}

func TestPrefixConvenienceForcesPrefixOnly(t *testing.T) {
	h := buildFixedHandle(t)
	results := Prefix(context.Background(), h, "hel", 10)
	for _, r := range results {
		if r.Method != query.Prefix {
			t.Errorf("Prefix() returned a %v result, want only PREFIX", r.Method)
		}
	}
}
