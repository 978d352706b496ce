// Package query implements QueryPlanner (spec.md §4.9): method selection,
// concurrent per-method dispatch with independent deadlines, score policy,
// merge/dedup, threshold filtering, and final ranking.
package query

import (
	"context"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lexsearchio/lexsearch/corpus"
	"github.com/lexsearchio/lexsearch/fuzzy"
	"github.com/lexsearchio/lexsearch/index/bktree"
	"github.com/lexsearchio/lexsearch/index/ngram"
	"github.com/lexsearchio/lexsearch/index/trie"
	"github.com/lexsearchio/lexsearch/index/vector"
	"github.com/lexsearchio/lexsearch/normalize"
)

// Method names a retrieval strategy.
type Method int

const (
	Exact Method = iota
	Prefix
	Fuzzy
	Semantic
)

func (m Method) String() string {
	switch m {
	case Exact:
		return "exact"
	case Prefix:
		return "prefix"
	case Fuzzy:
		return "fuzzy"
	case Semantic:
		return "semantic"
	default:
		return "unknown"
	}
}

// priority ranks methods for merge tie-breaking: lower wins.
func (m Method) priority() int {
	switch m {
	case Exact:
		return 0
	case Prefix:
		return 1
	case Fuzzy:
		return 2
	case Semantic:
		return 3
	default:
		return 4
	}
}

const (
	// DefaultMaxResults is the max_results default.
	DefaultMaxResults = 20
	// DefaultMinScore is the min_score default (spec.md's only open-question
	// constant; see DESIGN.md).
	DefaultMinScore = 0.6

	defaultMethodDeadline = 250 * time.Millisecond
	defaultQueryDeadline  = 500 * time.Millisecond

	prefixBaseScore      = 0.9
	prefixScoreFloor     = 0.75
	prefixLengthPenalty  = 0.01 // per character of candidate beyond the query
	ngramCandidateCount  = 500
	bktreeCandidateCount = 50
)

// SearchResult is one ranked hit, with the winning method's score plus every
// other method's score that also matched this entry, for diagnostics.
type SearchResult struct {
	EntryIndex   int
	Entry        corpus.Entry
	Score        float64
	Method       Method
	OtherScores  map[Method]float64
}

// Options configures a single Search call.
type Options struct {
	MaxResults int
	MinScore   float64
	Methods    []Method // nil/empty = auto-select
	NormalizeOpts normalize.Options
}

func (o Options) withDefaults() Options {
	out := o
	if out.MaxResults <= 0 {
		out.MaxResults = DefaultMaxResults
	}
	if out.MinScore == 0 {
		out.MinScore = DefaultMinScore
	}
	return out
}

// MethodStats is the running tally of calls, hits, and latency for one
// dispatch method across every Search call a Planner has served.
type MethodStats struct {
	Calls        int64
	Hits         int64
	TotalLatency time.Duration
}

// AverageLatency is TotalLatency/Calls, or 0 if the method was never called.
func (s MethodStats) AverageLatency() time.Duration {
	if s.Calls == 0 {
		return 0
	}
	return s.TotalLatency / time.Duration(s.Calls)
}

// Planner dispatches queries across the lexicon's indices.
type Planner struct {
	c    *corpus.Corpus
	trie *trie.Index
	bk   *bktree.Index
	ng   *ngram.Index
	vec  *vector.Index

	statsMu sync.Mutex
	stats   map[Method]*MethodStats
}

// NewPlanner assembles a Planner over an already-built set of indices.
func NewPlanner(c *corpus.Corpus, t *trie.Index, bk *bktree.Index, ng *ngram.Index, vec *vector.Index) *Planner {
	return &Planner{c: c, trie: t, bk: bk, ng: ng, vec: vec, stats: make(map[Method]*MethodStats)}
}

// MethodStats returns a snapshot of per-method call/hit/latency counters
// accumulated across every Search call served so far, satisfying the Stats
// operation's per-method counters (spec.md §6).
func (p *Planner) MethodStats() map[Method]MethodStats {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	out := make(map[Method]MethodStats, len(p.stats))
	for m, s := range p.stats {
		out[m] = *s
	}
	return out
}

func (p *Planner) recordMethodStat(m Method, elapsed time.Duration, hits int) {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	s := p.stats[m]
	if s == nil {
		s = &MethodStats{}
		p.stats[m] = s
	}
	s.Calls++
	s.Hits += int64(hits)
	s.TotalLatency += elapsed
}

// selectMethods applies spec.md §4.9's shape-based method selection.
func selectMethods(normalized string) []Method {
	if strings.ContainsRune(normalized, ' ') {
		return []Method{Exact, Semantic, Fuzzy}
	}
	n := len([]rune(normalized))
	switch {
	case n <= 3:
		return []Method{Prefix, Exact}
	case n <= 8:
		return []Method{Exact, Fuzzy}
	default:
		return []Method{Exact, Fuzzy, Semantic}
	}
}

// Search runs query through the planner and returns ranked results.
//
// Failure semantics: an empty query returns an empty result; if no method
// produces a hit, the result is empty. Search never returns an error for
// query-shape reasons; per-method timeouts degrade to partial results.
func (p *Planner) Search(ctx context.Context, rawQuery string, opts Options) []SearchResult {
	opts = opts.withDefaults()
	normalized := normalize.Normalize(rawQuery, opts.NormalizeOpts)
	if normalized == "" {
		return nil
	}

	methods := opts.Methods
	if len(methods) == 0 {
		methods = selectMethods(normalized)
	}

	queryCtx, cancel := context.WithTimeout(ctx, defaultQueryDeadline)
	defer cancel()

	type methodResult struct {
		method Method
		hits   map[int]float64
	}
	resultsCh := make(chan methodResult, len(methods))

	g, gctx := errgroup.WithContext(queryCtx)
	for _, m := range methods {
		m := m
		g.Go(func() error {
			mctx, mcancel := context.WithTimeout(gctx, defaultMethodDeadline)
			defer mcancel()
			start := time.Now()
			hits := p.runMethod(mctx, m, normalized)
			if err := mctx.Err(); err != nil {
				log.Printf("lexsearch/query: method %v stopped early (%v), using partial results", m, err)
			}
			p.recordMethodStat(m, time.Since(start), len(hits))
			resultsCh <- methodResult{method: m, hits: hits}
			return nil
		})
	}
	_ = g.Wait()
	close(resultsCh)

	type merged struct {
		score       float64
		method      Method
		otherScores map[Method]float64
	}
	byEntry := make(map[int]*merged)
	for mr := range resultsCh {
		for entryIdx, score := range mr.hits {
			cur, ok := byEntry[entryIdx]
			if !ok {
				byEntry[entryIdx] = &merged{
					score:       score,
					method:      mr.method,
					otherScores: map[Method]float64{mr.method: score},
				}
				continue
			}
			cur.otherScores[mr.method] = score
			if betterMatch(mr.method, score, cur.method, cur.score) {
				cur.method, cur.score = mr.method, score
			}
		}
	}

	out := make([]SearchResult, 0, len(byEntry))
	for entryIdx, m := range byEntry {
		if m.score < opts.MinScore {
			continue
		}
		entry, ok := p.c.ByIndex(entryIdx)
		if !ok {
			continue
		}
		out = append(out, SearchResult{
			EntryIndex:  entryIdx,
			Entry:       entry,
			Score:       m.score,
			Method:      m.method,
			OtherScores: m.otherScores,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].Entry.Frequency != out[j].Entry.Frequency {
			return out[i].Entry.Frequency > out[j].Entry.Frequency
		}
		return out[i].EntryIndex < out[j].EntryIndex
	})

	if len(out) > opts.MaxResults {
		out = out[:opts.MaxResults]
	}
	return out
}

// betterMatch reports whether (method, score) should replace the current
// winning (curMethod, curScore) for an entry: method priority first
// (EXACT > PREFIX > FUZZY > SEMANTIC), then higher score.
func betterMatch(method Method, score float64, curMethod Method, curScore float64) bool {
	if method.priority() != curMethod.priority() {
		return method.priority() < curMethod.priority()
	}
	return score > curScore
}

func (p *Planner) runMethod(ctx context.Context, m Method, normalized string) map[int]float64 {
	select {
	case <-ctx.Done():
		return nil
	default:
	}
	switch m {
	case Exact:
		return p.runExact(normalized)
	case Prefix:
		return p.runPrefix(normalized)
	case Fuzzy:
		return p.runFuzzy(ctx, normalized)
	case Semantic:
		return p.runSemantic(normalized)
	default:
		return nil
	}
}

func (p *Planner) runExact(normalized string) map[int]float64 {
	if p.trie == nil {
		return nil
	}
	idx, ok := p.trie.Exact(normalized)
	if !ok {
		return nil
	}
	return map[int]float64{idx: 1.0}
}

func (p *Planner) runPrefix(normalized string) map[int]float64 {
	if p.trie == nil {
		return nil
	}
	indices := p.trie.Prefix(normalized, 50)
	if len(indices) == 0 {
		return nil
	}
	out := make(map[int]float64, len(indices))
	for _, idx := range indices {
		entry, ok := p.c.ByIndex(idx)
		if !ok {
			continue
		}
		gap := len([]rune(entry.Normalized)) - len([]rune(normalized))
		score := prefixBaseScore - float64(gap)*prefixLengthPenalty
		if score < prefixScoreFloor {
			score = prefixScoreFloor
		}
		out[idx] = score
	}
	return out
}

// runFuzzy unions candidates from NGramIndex (cheap substring-overlap
// recall) and BKTreeIndex (bounded-edit-distance recall, using spec.md
// §4.5's caller guidance for max_distance), then scores every candidate
// once with FuzzyScorer. Two candidate generators catch different misses:
// the n-gram index alone can miss a short, heavily-misspelled query that
// shares few grams with its target, which is exactly the case the BK-tree's
// edit-distance bound is built for.
func (p *Planner) runFuzzy(ctx context.Context, normalized string) map[int]float64 {
	candidateSet := make(map[int]bool)
	if p.ng != nil {
		for _, cand := range p.ng.Query(normalized, ngramCandidateCount) {
			candidateSet[cand.Index] = true
		}
	}
	if p.bk != nil {
		maxDistance := bktree.SuggestMaxDistance(len([]rune(normalized)))
		for _, hit := range p.bk.Search(normalized, maxDistance, bktreeCandidateCount) {
			candidateSet[hit.Index] = true
		}
	}
	if len(candidateSet) == 0 {
		return nil
	}
	queryKey := normalize.AccentInsensitive(normalized)
	out := make(map[int]float64, len(candidateSet))
	for entryIdx := range candidateSet {
		select {
		case <-ctx.Done():
			return out
		default:
		}
		entry, ok := p.c.ByIndex(entryIdx)
		if !ok {
			continue
		}
		out[entryIdx] = fuzzy.Score(queryKey, normalize.AccentInsensitive(entry.Normalized), fuzzy.Auto)
	}
	return out
}

func (p *Planner) runSemantic(normalized string) map[int]float64 {
	if p.vec == nil {
		return nil
	}
	hits := p.vec.Search(normalized, vector.Fusion, 50)
	out := make(map[int]float64, len(hits))
	for _, h := range hits {
		out[h.Index] = h.Score
	}
	return out
}
