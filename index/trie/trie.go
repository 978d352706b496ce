// Package trie implements TrieIndex (spec.md §4.4): exact and
// frequency-ranked prefix lookup over a corpus's normalized entries.
package trie

import (
	"bytes"
	"encoding/gob"
	"sort"

	"github.com/tchap/go-patricia/v2/patricia"

	"github.com/lexsearchio/lexsearch/corpus"
)

// candidate is the payload stored at each patricia trie terminal. A single
// normalized key can carry more than one entry index (the same normalized
// form in different languages), so each node holds a small slice rather than
// a single index. Fields are exported so gob can serialize them as part of
// Index's GobEncode snapshot.
type candidate struct {
	Index     int
	Frequency float64
}

// Index is a compressed prefix trie over a corpus's normalized entries,
// backed by a radix trie (github.com/tchap/go-patricia), matching the
// "frequency-ranked prefix completion" shape documented by the suggest/
// completer reference this package is grounded on.
//
// Phrases are stored verbatim: spaces and hyphens are ordinary characters,
// so a prefix query that includes a space matches phrase prefixes too.
type Index struct {
	trie *patricia.Trie
}

// Build constructs an Index over every entry in c.
func Build(c *corpus.Corpus) *Index {
	t := patricia.NewTrie()
	for i, e := range c.All() {
		key := patricia.Prefix(e.Normalized)
		cand := candidate{Index: i, Frequency: e.Frequency}
		if existing := t.Get(key); existing != nil {
			list := existing.([]candidate)
			t.Set(key, append(list, cand))
			continue
		}
		t.Insert(key, []candidate{cand})
	}
	return &Index{trie: t}
}

// Exact returns the entry index for an exact normalized match. When more
// than one language shares the same normalized string, the lowest index
// (deterministic corpus sort order) wins.
func (idx *Index) Exact(normalized string) (int, bool) {
	if normalized == "" {
		return 0, false
	}
	item := idx.trie.Get(patricia.Prefix(normalized))
	if item == nil {
		return 0, false
	}
	list := item.([]candidate)
	best := list[0].Index
	for _, c := range list[1:] {
		if c.Index < best {
			best = c.Index
		}
	}
	return best, true
}

// Prefix enumerates entry indices reachable from the node matching
// normalizedPrefix, ranked by frequency descending then entry index
// ascending, and returns the top k.
//
// The underlying radix trie library does not expose a per-node
// "max-frequency-in-subtree" hint, so Prefix gathers every terminal under
// the prefix and sorts the whole candidate set by each terminal's own
// frequency (desc), then index (asc). The frequencies of a terminal's
// descendants do not affect its rank.
func (idx *Index) Prefix(normalizedPrefix string, k int) []int {
	if normalizedPrefix == "" || k <= 0 {
		return nil
	}
	var all []candidate
	_ = idx.trie.VisitSubtree(patricia.Prefix(normalizedPrefix), func(_ patricia.Prefix, item patricia.Item) error {
		all = append(all, item.([]candidate)...)
		return nil
	})
	if len(all) == 0 {
		return nil
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Frequency != all[j].Frequency {
			return all[i].Frequency > all[j].Frequency
		}
		return all[i].Index < all[j].Index
	})
	if k > len(all) {
		k = len(all)
	}
	out := make([]int, k)
	for i := 0; i < k; i++ {
		out[i] = all[i].Index
	}
	return out
}

// trieSnapshot is the exported shape persisted by GobEncode: the patricia
// trie's own node structure isn't gob-serializable directly (unexported
// fields, interface{} payloads), so Index instead round-trips as a flat
// (key, candidates) list rebuilt into a fresh trie on decode.
type trieSnapshot struct {
	Keys   []string
	Values [][]candidate
}

// GobEncode implements gob.GobEncoder so store can persist an Index.
func (idx *Index) GobEncode() ([]byte, error) {
	var snap trieSnapshot
	_ = idx.trie.Visit(func(prefix patricia.Prefix, item patricia.Item) error {
		snap.Keys = append(snap.Keys, string(prefix))
		snap.Values = append(snap.Values, item.([]candidate))
		return nil
	})
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(snap); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GobDecode implements gob.GobDecoder, rebuilding the patricia trie from a
// persisted (key, candidates) list.
func (idx *Index) GobDecode(data []byte) error {
	var snap trieSnapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&snap); err != nil {
		return err
	}
	t := patricia.NewTrie()
	for i, k := range snap.Keys {
		t.Insert(patricia.Prefix(k), snap.Values[i])
	}
	idx.trie = t
	return nil
}
