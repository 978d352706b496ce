// Package eval provides retrieval-quality metrics (recall@k, MRR) for
// scoring a QueryPlanner against a labeled set of queries, evaluated over
// (normalized, language) keys rather than entry indices or live scores so
// the same labeled set can be replayed across corpus rebuilds.
package eval

import (
	"github.com/lexsearchio/lexsearch/corpus"
	"github.com/lexsearchio/lexsearch/query"
)

// Key identifies the correct answer for a query: the (normalized, language)
// pair the judged entry was built from, not its index, since entry indices
// are only stable within one corpus generation.
type Key struct {
	Normalized string
	Language   corpus.Language
}

// KeyOf projects a corpus entry down to its Key.
func KeyOf(e corpus.Entry) Key {
	return Key{Normalized: e.Normalized, Language: e.Language}
}

// ResultKeys projects ranked search results down to their Keys, preserving
// rank order, for feeding into RecallAtK/MRR.
func ResultKeys(results []query.SearchResult) []Key {
	keys := make([]Key, len(results))
	for i, r := range results {
		keys[i] = KeyOf(r.Entry)
	}
	return keys
}

// Judged is one query's expected relevant keys, in no particular order.
type Judged struct {
	Query    string
	Relevant []Key
}

// RecallAtK returns the fraction of relevant keys present in the first k
// retrieved keys. Returns 0 when there are no relevant keys (undefined
// recall is treated as a miss, not excluded from the average).
func RecallAtK(retrieved []Key, relevant []Key, k int) float64 {
	if len(relevant) == 0 {
		return 0
	}
	if k > len(retrieved) {
		k = len(retrieved)
	}
	want := toSet(relevant)
	hit := 0
	for _, r := range retrieved[:k] {
		if want[r] {
			hit++
		}
	}
	return float64(hit) / float64(len(relevant))
}

// MRR returns the reciprocal rank of the first relevant key in retrieved
// (1-indexed), or 0 if none of the relevant keys appear.
func MRR(retrieved []Key, relevant []Key) float64 {
	want := toSet(relevant)
	for i, r := range retrieved {
		if want[r] {
			return 1.0 / float64(i+1)
		}
	}
	return 0
}

func toSet(keys []Key) map[Key]bool {
	set := make(map[Key]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	return set
}

// Report aggregates per-query metrics into corpus-wide averages.
type Report struct {
	MeanRecallAt5  float64
	MeanRecallAt10 float64
	MeanMRR        float64
	QueriesScored  int
}

// Evaluate runs retrieve once per judged query and aggregates the metrics.
func Evaluate(judged []Judged, retrieve func(query string) []Key) Report {
	var r Report
	if len(judged) == 0 {
		return r
	}
	var sumR5, sumR10, sumMRR float64
	for _, j := range judged {
		retrieved := retrieve(j.Query)
		sumR5 += RecallAtK(retrieved, j.Relevant, 5)
		sumR10 += RecallAtK(retrieved, j.Relevant, 10)
		sumMRR += MRR(retrieved, j.Relevant)
	}
	n := float64(len(judged))
	r.MeanRecallAt5 = sumR5 / n
	r.MeanRecallAt10 = sumR10 / n
	r.MeanMRR = sumMRR / n
	r.QueriesScored = len(judged)
	return r
}
