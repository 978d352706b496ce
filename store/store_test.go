package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lexsearchio/lexsearch/corpus"
	"github.com/lexsearchio/lexsearch/index/bktree"
	"github.com/lexsearchio/lexsearch/index/ngram"
	"github.com/lexsearchio/lexsearch/index/trie"
	"github.com/lexsearchio/lexsearch/index/vector"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	entries := []corpus.Entry{
		{Text: "hello", Normalized: "hello", Language: corpus.LangEnglish, Frequency: 3},
		{Text: "help", Normalized: "help", Language: corpus.LangEnglish, Frequency: 1},
		{Text: "en coulisse", Normalized: "en coulisse", Language: corpus.LangFrench, IsIdiom: true, Frequency: 1},
	}
	c, err := corpus.Build(entries, 0)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	tIdx := trie.Build(c)
	bk := bktree.Build(c)
	ng := ngram.Build(c)
	vec := vector.Build(c)

	dir := filepath.Join(t.TempDir(), "store")
	if err := Save(dir, c, tIdx, bk, ng, vec, []string{"unit-test"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	h, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if h.Corpus.Len() != c.Len() {
		t.Fatalf("loaded corpus len = %d, want %d", h.Corpus.Len(), c.Len())
	}
	if h.Corpus.ContentHash() != c.ContentHash() {
		t.Fatalf("loaded content hash mismatch")
	}

	helloIdx, _ := c.IndexOf("hello", corpus.LangEnglish)
	got, ok := h.Trie.Exact("hello")
	if !ok || got != helloIdx {
		t.Fatalf("loaded trie Exact(hello) = %d,%v want %d,true", got, ok, helloIdx)
	}

	bkHits := h.BKTree.Search("helo", 1, 5)
	if len(bkHits) == 0 {
		t.Fatalf("expected bktree hits after reload")
	}

	ngHits := h.NGram.Query("hello", 5)
	if len(ngHits) == 0 {
		t.Fatalf("expected ngram hits after reload")
	}

	vHits := h.Vectors.Search("hello", vector.Fusion, 3)
	if len(vHits) == 0 {
		t.Fatalf("expected vector hits after reload")
	}
}

func TestLoadRejectsTamperedManifest(t *testing.T) {
	entries := []corpus.Entry{{Text: "a", Normalized: "a", Language: corpus.LangEnglish, Frequency: 1}}
	c, _ := corpus.Build(entries, 0)
	tIdx := trie.Build(c)
	bk := bktree.Build(c)
	ng := ngram.Build(c)
	vec := vector.Build(c)

	dir := filepath.Join(t.TempDir(), "store")
	if err := Save(dir, c, tIdx, bk, ng, vec, nil); err != nil {
		t.Fatalf("Save: %v", err)
	}

	manifestPath := filepath.Join(dir, "manifest.json")
	data := []byte(`{"build_id":"x","content_hash":"deadbeef","files":{}}`)
	if err := os.WriteFile(manifestPath, data, 0o644); err != nil {
		t.Fatalf("os.WriteFile: %v", err)
	}

	if _, err := Load(dir); err != ErrContentHashMismatch {
		t.Fatalf("expected ErrContentHashMismatch, got %v", err)
	}
}
