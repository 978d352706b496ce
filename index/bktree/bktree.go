// Package bktree implements BKTreeIndex (spec.md §4.5): a metric tree over
// Levenshtein distance that exploits the triangle inequality to prune
// edit-distance k-NN search.
package bktree

import (
	"bytes"
	"container/heap"
	"encoding/gob"

	"github.com/xrash/smetrics"

	"github.com/lexsearchio/lexsearch/corpus"
	"github.com/lexsearchio/lexsearch/normalize"
)

// Hit is a BK-tree search result: an entry index and its raw edit distance
// to the query. Callers convert distance to a score.
type Hit struct {
	Index    int
	Distance int
}

type node struct {
	index    int
	dups     []int  // further entry indices sharing this exact key
	key      string // accent-insensitive comparison key
	children map[int]*node
}

// Index is a rooted tree keyed by Levenshtein distance over the
// accent-insensitive view of each entry's normalized form, matching
// spec.md's requirement that BK-tree comparisons use that view.
type Index struct {
	root  *node
	order []bktEntry // insertion order, kept for a deterministic GobEncode
}

// bktEntry is one (entryIndex, key) insertion record.
type bktEntry struct {
	Index int
	Key   string
}

// Build inserts every entry of c into a fresh BK-tree. Insertion order
// follows corpus index order, which is deterministic given a sealed corpus.
func Build(c *corpus.Corpus) *Index {
	idx := &Index{}
	for i, e := range c.All() {
		idx.insert(i, normalize.AccentInsensitive(e.Normalized))
	}
	return idx
}

func (idx *Index) insert(entryIndex int, key string) {
	idx.order = append(idx.order, bktEntry{Index: entryIndex, Key: key})
	idx.insertNode(entryIndex, key)
}

// insertNode places (entryIndex, key) into the tree without touching
// idx.order; insert records the order and then delegates here.
func (idx *Index) insertNode(entryIndex int, key string) {
	n := &node{index: entryIndex, key: key, children: make(map[int]*node)}
	if idx.root == nil {
		idx.root = n
		return
	}
	cur := idx.root
	for {
		d := levenshtein(key, cur.key)
		if d == 0 {
			// Duplicate accent-insensitive key (e.g. two diacritic variants of
			// the same base word): keep the existing node and record this
			// entry index alongside it, so Search returns both entries.
			cur.dups = append(cur.dups, entryIndex)
			return
		}
		child, ok := cur.children[d]
		if !ok {
			cur.children[d] = n
			return
		}
		cur = child
	}
}

func levenshtein(a, b string) int {
	return smetrics.WagnerFischer(a, b, 1, 1, 1)
}

// Search performs a standard BK-tree traversal: a node at distance d from
// the query is returned when d <= maxDistance; children whose edge label e
// satisfies |e-d| <= maxDistance are explored. Results carry their raw
// distance; the caller maps distance to a score.
func (idx *Index) Search(queryNormalized string, maxDistance int, k int) []Hit {
	if idx.root == nil || k <= 0 {
		return nil
	}
	queryKey := normalize.AccentInsensitive(queryNormalized)

	pq := &hitHeap{}
	heap.Init(pq)

	var walk func(n *node)
	walk = func(n *node) {
		if n == nil {
			return
		}
		d := levenshtein(queryKey, n.key)
		if d <= maxDistance {
			heap.Push(pq, Hit{Index: n.index, Distance: d})
			for _, dup := range n.dups {
				heap.Push(pq, Hit{Index: dup, Distance: d})
			}
		}
		for edge, child := range n.children {
			if abs(edge-d) <= maxDistance {
				walk(child)
			}
		}
	}
	walk(idx.root)

	out := make([]Hit, 0, pq.Len())
	for pq.Len() > 0 && len(out) < k {
		out = append(out, heap.Pop(pq).(Hit))
	}
	return out
}

// SuggestMaxDistance applies the caller guidance from spec.md §4.5:
// clamp(ceil(|query|/4), 1, 4).
func SuggestMaxDistance(queryLen int) int {
	d := (queryLen + 3) / 4
	if d < 1 {
		return 1
	}
	if d > 4 {
		return 4
	}
	return d
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// hitHeap is a min-heap by Distance (then Index, for determinism), used to
// pull the k closest matches out of the (possibly large) candidate set
// gathered during traversal.
type hitHeap []Hit

func (h hitHeap) Len() int { return len(h) }
func (h hitHeap) Less(i, j int) bool {
	if h[i].Distance != h[j].Distance {
		return h[i].Distance < h[j].Distance
	}
	return h[i].Index < h[j].Index
}
func (h hitHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *hitHeap) Push(x any)        { *h = append(*h, x.(Hit)) }
func (h *hitHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// GobEncode implements gob.GobEncoder. The tree's node pointers aren't
// serializable directly, so Index round-trips as its recorded insertion
// order, replayed into a fresh tree on decode (insertion order fully
// determines a BK-tree's shape, so this reproduces the original tree).
func (idx *Index) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(idx.order); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GobDecode implements gob.GobDecoder.
func (idx *Index) GobDecode(data []byte) error {
	var order []bktEntry
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&order); err != nil {
		return err
	}
	*idx = Index{}
	for _, e := range order {
		idx.insert(e.Index, e.Key)
	}
	return nil
}
