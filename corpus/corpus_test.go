package corpus

import "testing"

func TestBuildDedupAndOrder(t *testing.T) {
	candidates := []Entry{
		{Text: "Hello", Normalized: "hello", Language: LangEnglish, Frequency: 1},
		{Text: "hello", Normalized: "hello", Language: LangEnglish, Frequency: 5},
		{Text: "World", Normalized: "world", Language: LangEnglish, Frequency: 2},
		{Text: "café", Normalized: "café", Language: LangFrench, Frequency: 1, IsIdiom: true},
	}
	c, err := Build(candidates, 0)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if c.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", c.Len())
	}
	idx, ok := c.IndexOf("hello", LangEnglish)
	if !ok {
		t.Fatalf("expected hello to be indexed")
	}
	e, _ := c.ByIndex(idx)
	if e.Frequency != 5 {
		t.Errorf("expected merged frequency 5, got %v", e.Frequency)
	}
	if c.GenerationID() != 1 {
		t.Errorf("GenerationID() = %d, want 1", c.GenerationID())
	}
	// Sorted by (language, normalized): en/hello, en/world, fr/café.
	if cafeIdx, _ := c.IndexOf("café", LangFrench); cafeIdx != 2 || idx != 0 {
		t.Errorf("unexpected order: hello=%d café=%d, want 0 and 2", idx, cafeIdx)
	}
}

func TestBuildNoSources(t *testing.T) {
	if _, err := Build(nil, 0); err != ErrNoSources {
		t.Fatalf("expected ErrNoSources, got %v", err)
	}
	if _, err := Build([]Entry{{Normalized: ""}}, 0); err != ErrNoSources {
		t.Fatalf("expected ErrNoSources for all-empty, got %v", err)
	}
}

func TestContentHashStable(t *testing.T) {
	candidates := []Entry{
		{Text: "a", Normalized: "a", Language: LangEnglish},
		{Text: "b", Normalized: "b", Language: LangEnglish},
	}
	c1, _ := Build(candidates, 0)
	c2, _ := Build(candidates, 0)
	if c1.ContentHash() != c2.ContentHash() {
		t.Errorf("identical builds should produce identical content hashes")
	}
}

func TestSubviewAndIter(t *testing.T) {
	candidates := []Entry{
		{Text: "a", Normalized: "a", Language: LangEnglish},
		{Text: "en coulisse", Normalized: "en coulisse", Language: LangFrench},
	}
	c, _ := Build(candidates, 0)
	if len(c.Subview(LangFrench)) != 1 {
		t.Errorf("expected 1 french entry")
	}
	var words, phrases int
	c.IterWords(func(int, Entry) { words++ })
	c.IterPhrases(func(int, Entry) { phrases++ })
	if words != 1 || phrases != 1 {
		t.Errorf("words=%d phrases=%d, want 1/1", words, phrases)
	}
}
