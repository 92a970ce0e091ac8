// Package quadstore implements the embedded quad store's top-level API:
// insert/remove/contains, three-state-graph pattern queries, bulk
// loading, and batched transactions. It ties together internal/termcodec
// (encoding), internal/dict (the string dictionary), internal/qkey (the
// six-permutation key layout and pattern dispatch) and a pluggable
// internal/kvstore.Storage backend (internal/memstore or
// internal/diskstore).
package quadstore

import (
	"fmt"

	"github.com/loomdb/loomdb/internal/dict"
	"github.com/loomdb/loomdb/internal/diskstore"
	"github.com/loomdb/loomdb/internal/kvstore"
	"github.com/loomdb/loomdb/internal/memstore"
	"github.com/loomdb/loomdb/internal/qkey"
	"github.com/loomdb/loomdb/internal/termcodec"
	"github.com/loomdb/loomdb/pkg/rdf"
)

// Store is an embedded RDF quad store over a pluggable backend.
type Store struct {
	backend kvstore.Storage
	cache   *dict.Dict
}

// New opens an in-memory store.
func New() *Store {
	return &Store{backend: memstore.New(), cache: dict.New()}
}

// Open opens (creating if absent) an on-disk store rooted at path.
func Open(path string) (*Store, error) {
	backend, err := diskstore.Open(path)
	if err != nil {
		return nil, fmt.Errorf("quadstore: open %s: %w", path, err)
	}
	return &Store{backend: backend, cache: dict.New()}, nil
}

// Close releases the store's backend resources.
func (s *Store) Close() error { return s.backend.Close() }

// id2strKey reverses the byte order of a termcodec hash for storage as
// an id2str key: id2str keys are 16-byte little-endian hashes, while
// termcodec.Hash128 produces a big-endian encoding (chosen so hashed
// payloads sort correctly inside permutation-table keys). id2str is a
// pure point-lookup table, so this reversal costs nothing.
func id2strKey(hash [16]byte) []byte {
	out := make([]byte, 16)
	for i := 0; i < 16; i++ {
		out[i] = hash[15-i]
	}
	return out
}

// dictWriter bridges termcodec.DictWriter to a live write transaction,
// consulting and warming the in-process cache before falling back to
// the transaction's durable id2str table, so the on-disk backend keeps
// id2str as the durable source of truth across a process restart.
type dictWriter struct {
	cache *dict.Dict
	tx    kvstore.Transaction
}

func (w dictWriter) Put(hash [16]byte, value string) error {
	if existing, ok := w.cache.Get(hash); ok {
		if existing != value {
			return termcodec.ErrHashCollision
		}
		return nil
	}
	key := id2strKey(hash)
	if existing, err := w.tx.Get(qkey.TableID2Str, key); err == nil {
		if string(existing) != value {
			return termcodec.ErrHashCollision
		}
		_ = w.cache.Put(hash, value)
		return nil
	} else if err != kvstore.ErrNotFound {
		return fmt.Errorf("quadstore: id2str lookup: %w", err)
	}
	if err := w.tx.Set(qkey.TableID2Str, key, []byte(value)); err != nil {
		return fmt.Errorf("quadstore: id2str insert: %w", err)
	}
	if err := w.cache.Put(hash, value); err != nil {
		return err
	}
	return nil
}

// dictReader mirrors dictWriter for read paths: cache first, then the
// transaction's durable id2str table, warming the cache on a hit.
type dictReader struct {
	cache *dict.Dict
	tx    kvstore.Transaction
}

func (r dictReader) Get(hash [16]byte) (string, bool) {
	if value, ok := r.cache.Get(hash); ok {
		return value, true
	}
	raw, err := r.tx.Get(qkey.TableID2Str, id2strKey(hash))
	if err != nil {
		return "", false
	}
	value := string(raw)
	_ = r.cache.Put(hash, value)
	return value, true
}

// discardWriter is a no-op termcodec.DictWriter used when encoding a
// term solely to build a lookup key (Contains, Remove, QuadsForPattern):
// a term absent from the dictionary cannot match any stored quad, so
// staging it would be wasted work, and on the read-only paths (Contains,
// QuadsForPattern) a read-only kvstore.Transaction would reject the
// write outright.
type discardWriter struct{}

func (discardWriter) Put([16]byte, string) error { return nil }

// encodeQuad runs every term of q through termcodec.EncodeTerm against w.
func encodeQuad(q *rdf.Quad, w termcodec.DictWriter) (qkey.EncodedQuad, error) {
	var eq qkey.EncodedQuad
	var err error
	if eq.S, err = termcodec.EncodeTerm(q.Subject, w); err != nil {
		return eq, fmt.Errorf("quadstore: subject: %w", err)
	}
	if eq.P, err = termcodec.EncodeTerm(q.Predicate, w); err != nil {
		return eq, fmt.Errorf("quadstore: predicate: %w", err)
	}
	if eq.O, err = termcodec.EncodeTerm(q.Object, w); err != nil {
		return eq, fmt.Errorf("quadstore: object: %w", err)
	}
	if eq.G, err = termcodec.EncodeTerm(q.Graph, w); err != nil {
		return eq, fmt.Errorf("quadstore: graph: %w", err)
	}
	return eq, nil
}

// insertInTxn writes all six permutation keys for q within tx, in a
// fixed order so a crash mid-write never leaves the indexes disagreeing
// about whether q is a member.
func insertInTxn(tx kvstore.Transaction, cache *dict.Dict, q *rdf.Quad) error {
	eq, err := encodeQuad(q, dictWriter{cache: cache, tx: tx})
	if err != nil {
		return err
	}
	for _, table := range qkey.AllQuadTables {
		if err := tx.Set(table, qkey.KeyFor(table, eq), nil); err != nil {
			return fmt.Errorf("quadstore: writing %s: %w", table, err)
		}
	}
	return nil
}

// removeInTxn deletes all six permutation keys for q within tx. Removal
// never needs the dictionary cache: a quad's term bytes are recomputed
// purely from already-hashed content, not staged into the dictionary.
func removeInTxn(tx kvstore.Transaction, q *rdf.Quad) error {
	eq, err := encodeQuad(q, discardWriter{})
	if err != nil {
		return err
	}
	for _, table := range qkey.AllQuadTables {
		if err := tx.Delete(table, qkey.KeyFor(table, eq)); err != nil {
			return fmt.Errorf("quadstore: deleting %s: %w", table, err)
		}
	}
	return nil
}

// Insert adds quad to the store. Idempotent: inserting an already-present
// quad is a no-op six-key rewrite.
func (s *Store) Insert(q *rdf.Quad) error {
	tx, err := s.backend.Begin(true)
	if err != nil {
		return fmt.Errorf("quadstore: begin: %w", err)
	}
	if err := insertInTxn(tx, s.cache, q); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("quadstore: commit: %w", err)
	}
	return nil
}

// Remove deletes quad from the store. Removing an absent quad is a no-op.
func (s *Store) Remove(q *rdf.Quad) error {
	tx, err := s.backend.Begin(true)
	if err != nil {
		return fmt.Errorf("quadstore: begin: %w", err)
	}
	if err := removeInTxn(tx, q); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("quadstore: commit: %w", err)
	}
	return nil
}

// Contains reports whether quad is a member of the store.
func (s *Store) Contains(q *rdf.Quad) (bool, error) {
	tx, err := s.backend.Begin(false)
	if err != nil {
		return false, fmt.Errorf("quadstore: begin: %w", err)
	}
	defer tx.Rollback()

	eq, err := encodeQuad(q, discardWriter{})
	if err != nil {
		return false, err
	}
	_, err = tx.Get(qkey.TableSPOG, qkey.KeyFor(qkey.TableSPOG, eq))
	if err == kvstore.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("quadstore: lookup: %w", err)
	}
	return true, nil
}

// GraphSlot is the three-state graph constraint for quads_for_pattern:
// the zero GraphSlot (Bound==false) means "any graph, including the
// default graph";
// Bound==true with Graph==nil means "default graph only" (the
// DefaultGraph singleton); Bound==true with Graph set means "this
// named graph only".
type GraphSlot struct {
	Bound bool
	Graph *rdf.NamedNode
}

// AnyGraph is the absent graph slot: matches every graph.
func AnyGraph() GraphSlot { return GraphSlot{} }

// DefaultGraphOnly constrains a pattern to the default graph.
func DefaultGraphOnly() GraphSlot { return GraphSlot{Bound: true} }

// NamedGraphOnly constrains a pattern to one specific named graph.
func NamedGraphOnly(iri *rdf.NamedNode) GraphSlot { return GraphSlot{Bound: true, Graph: iri} }

func (g GraphSlot) graphTerm() rdf.Term {
	if g.Graph != nil {
		return g.Graph
	}
	return rdf.NewDefaultGraph()
}

// QuadsForPattern returns every quad matching the given pattern. A nil
// Term for s, p or o means "unbound"; g follows the three-state
// GraphSlot semantics above.
func (s *Store) QuadsForPattern(subj, pred, obj rdf.Term, g GraphSlot) (*QuadIterator, error) {
	tx, err := s.backend.Begin(false)
	if err != nil {
		return nil, fmt.Errorf("quadstore: begin: %w", err)
	}

	w := discardWriter{}
	pattern := &qkey.Pattern{GraphIsVariable: !g.Bound}
	if subj != nil {
		enc, err := termcodec.EncodeTerm(subj, w)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		pattern.S = enc
	}
	if pred != nil {
		enc, err := termcodec.EncodeTerm(pred, w)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		pattern.P = enc
	}
	if obj != nil {
		enc, err := termcodec.EncodeTerm(obj, w)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		pattern.O = enc
	}
	if g.Bound {
		enc, err := termcodec.EncodeTerm(g.graphTerm(), w)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		pattern.G = enc
	}

	table, order := qkey.SelectIndex(pattern)
	prefix := qkey.ScanPrefix(pattern, table, order)
	it, err := tx.Scan(table, prefix, nil)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("quadstore: scan: %w", err)
	}
	return &QuadIterator{
		tx:     tx,
		it:     it,
		table:  table,
		prefix: prefix,
		reader: dictReader{cache: s.cache, tx: tx},
	}, nil
}

// Transaction runs fn against a fresh Tx. Every Insert/Remove queued
// inside fn is buffered; if fn returns an error, nothing is applied and
// the error is returned unchanged. On success the whole batch is applied
// as one atomic commit.
func (s *Store) Transaction(fn func(*Tx) error) error {
	tx := &Tx{}
	if err := fn(tx); err != nil {
		return err
	}
	return s.applyBuffered(tx.buf.Drain())
}

