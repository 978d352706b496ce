// Package lexsearch is the recommended entrypoint into the lexical search
// toolkit: Build a corpus from source descriptors, Save/Load it to/from
// disk, and Search/Prefix it. Callers who need finer control can use the
// corpus, ingest, index/*, query, and store packages directly.
package lexsearch

import (
	"context"
	"fmt"
	"time"

	"github.com/lexsearchio/lexsearch/corpus"
	"github.com/lexsearchio/lexsearch/index/bktree"
	"github.com/lexsearchio/lexsearch/index/ngram"
	"github.com/lexsearchio/lexsearch/index/trie"
	"github.com/lexsearchio/lexsearch/index/vector"
	"github.com/lexsearchio/lexsearch/ingest"
	"github.com/lexsearchio/lexsearch/query"
	"github.com/lexsearchio/lexsearch/store"
)

// Handle bundles a built corpus with its four indices and the planner that
// dispatches queries across them. It is the unit of work for Save/Load.
type Handle struct {
	Corpus  *corpus.Corpus
	Trie    *trie.Index
	BKTree  *bktree.Index
	NGram   *ngram.Index
	Vectors *vector.Index
	planner *query.Planner
}

// MethodStats reports a single dispatch method's call count, hit count, and
// average per-call latency across every Search the Handle has served.
type MethodStats struct {
	Calls          int64
	Hits           int64
	AverageLatency time.Duration
}

// Stats summarizes a built Handle for diagnostics and manifest display.
type Stats struct {
	Entries      int
	Words        int
	Phrases      int
	Idioms       int
	GenerationID int
	ContentHash  string
	PerMethod    map[query.Method]MethodStats
}

// Build ingests sources, assembles the corpus, builds all four indices, and
// returns a ready-to-query Handle. prevGenerationID should be 0 for a fresh
// corpus, or the previous Handle's Stats().GenerationID when rebuilding.
func Build(ctx context.Context, sources []ingest.SourceDescriptor, ingestOpts ingest.Options, prevGenerationID int) (*Handle, error) {
	candidates, err := ingest.Run(ctx, sources, ingestOpts)
	if err != nil {
		return nil, fmt.Errorf("lexsearch: ingest: %w", err)
	}
	c, err := corpus.Build(candidates, prevGenerationID)
	if err != nil {
		return nil, fmt.Errorf("lexsearch: build corpus: %w", err)
	}
	return fromCorpus(c), nil
}

func fromCorpus(c *corpus.Corpus) *Handle {
	t := trie.Build(c)
	bk := bktree.Build(c)
	ng := ngram.Build(c)
	vec := vector.Build(c)
	h := &Handle{Corpus: c, Trie: t, BKTree: bk, NGram: ng, Vectors: vec}
	h.planner = query.NewPlanner(c, t, bk, ng, vec)
	return h
}

// Save persists a Handle to dir via store.Save, recording which sources the
// underlying corpus was built from.
func Save(h *Handle, dir string, sources []string) error {
	return store.Save(dir, h.Corpus, h.Trie, h.BKTree, h.NGram, h.Vectors, sources)
}

// Load reads a previously-saved Handle from dir.
func Load(dir string) (*Handle, error) {
	sh, err := store.Load(dir)
	if err != nil {
		return nil, err
	}
	h := &Handle{Corpus: sh.Corpus, Trie: sh.Trie, BKTree: sh.BKTree, NGram: sh.NGram, Vectors: sh.Vectors}
	h.planner = query.NewPlanner(h.Corpus, h.Trie, h.BKTree, h.NGram, h.Vectors)
	return h, nil
}

// Search runs a query through h's planner. See query.Options for tuning
// max results, minimum score, and method selection.
func Search(ctx context.Context, h *Handle, rawQuery string, opts query.Options) []query.SearchResult {
	return h.planner.Search(ctx, rawQuery, opts)
}

// Prefix is a convenience wrapper over Search that forces PREFIX-only
// dispatch, matching a typeahead/autocomplete use case.
func Prefix(ctx context.Context, h *Handle, rawPrefix string, maxResults int) []query.SearchResult {
	opts := query.Options{
		MaxResults: maxResults,
		MinScore:   0, // prefix scores are never below query.prefixScoreFloor
		Methods:    []query.Method{query.Prefix},
	}
	return h.planner.Search(ctx, rawPrefix, opts)
}

// StatsOf reports corpus-level counts plus per-method call/hit/latency
// counters accumulated by h's planner across every Search served so far
// (spec.md §6: "per-method counters, average latency, corpus size").
func StatsOf(h *Handle) Stats {
	s := Stats{
		Entries:      h.Corpus.Len(),
		GenerationID: h.Corpus.GenerationID(),
		ContentHash:  fmt.Sprintf("%x", h.Corpus.ContentHash()),
	}
	h.Corpus.IterWords(func(_ int, e corpus.Entry) {
		s.Words++
		if e.IsIdiom {
			s.Idioms++
		}
	})
	h.Corpus.IterPhrases(func(_ int, e corpus.Entry) {
		s.Phrases++
		if e.IsIdiom {
			s.Idioms++
		}
	})

	planned := h.planner.MethodStats()
	s.PerMethod = make(map[query.Method]MethodStats, len(planned))
	for m, ms := range planned {
		s.PerMethod[m] = MethodStats{
			Calls:          ms.Calls,
			Hits:           ms.Hits,
			AverageLatency: ms.AverageLatency(),
		}
	}
	return s
}
