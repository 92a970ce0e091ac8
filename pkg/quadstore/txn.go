package quadstore

import (
	"fmt"
	"io"

	"github.com/loomdb/loomdb/internal/kvstore"
	"github.com/loomdb/loomdb/internal/rdfio"
	"github.com/loomdb/loomdb/internal/txn"
	"github.com/loomdb/loomdb/pkg/rdf"
)

// Tx is the write-only handle a Store.Transaction closure receives. It
// only buffers operations; nothing touches the backend until the
// closure returns successfully, giving the whole batch all-or-nothing
// commit semantics. Tx exposes no read methods, so read-your-writes
// within an open transaction is not supported and buffering stays
// simple.
type Tx struct {
	buf txn.Buffer
}

// Insert queues an insert of quad, applied when the enclosing
// Store.Transaction closure returns without error.
func (t *Tx) Insert(q *rdf.Quad) { t.buf.Insert(q) }

// Remove queues a removal of quad, applied when the enclosing
// Store.Transaction closure returns without error.
func (t *Tx) Remove(q *rdf.Quad) { t.buf.Remove(q) }

// applyBuffered writes every op in ops as one atomic commit.
func (s *Store) applyBuffered(ops []txn.Op) error {
	if len(ops) == 0 {
		return nil
	}
	tx, err := s.backend.Begin(true)
	if err != nil {
		return fmt.Errorf("quadstore: begin: %w", err)
	}
	if err := s.applyOps(tx, ops); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("quadstore: commit: %w", err)
	}
	return nil
}

func (s *Store) applyOps(tx kvstore.Transaction, ops []txn.Op) error {
	for _, op := range ops {
		var err error
		switch op.Kind {
		case txn.Insert:
			err = insertInTxn(tx, s.cache, op.Quad)
		case txn.Remove:
			err = removeInTxn(tx, op.Quad)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// bulkInsert drains buf into the store every time it reaches
// txn.MaxAutoTxnSize, and once more at the end for any remainder. Each
// flush is one atomic sub-batch; the whole call is not atomic across
// flushes.
func (s *Store) bulkInsert(buf *txn.Buffer, quads []*rdf.Quad) error {
	for _, q := range quads {
		buf.Insert(q)
		if buf.Full() {
			if err := s.applyBuffered(buf.Drain()); err != nil {
				return err
			}
		}
	}
	return s.applyBuffered(buf.Drain())
}

// LoadGraph streams a single-graph syntax (NTriples, Turtle, RdfXml) into
// the store. If targetGraph is nil, triples land in the default graph.
func (s *Store) LoadGraph(r io.Reader, syntax rdfio.Syntax, targetGraph *rdf.NamedNode, baseIRI string) error {
	triples, err := rdfio.ParseGraph(r, syntax, baseIRI)
	if err != nil {
		return fmt.Errorf("quadstore: load graph: %w", err)
	}
	var graph rdf.Term = rdf.NewDefaultGraph()
	if targetGraph != nil {
		graph = targetGraph
	}
	quads := make([]*rdf.Quad, len(triples))
	for i, t := range triples {
		quads[i] = rdf.NewQuad(t.Subject, t.Predicate, t.Object, graph)
	}
	var buf txn.Buffer
	return s.bulkInsert(&buf, quads)
}

// LoadDataset streams a multi-graph syntax (NQuads, TriG) into the store,
// each quad landing in whichever graph it names.
func (s *Store) LoadDataset(r io.Reader, syntax rdfio.Syntax, baseIRI string) error {
	quads, err := rdfio.ParseDataset(r, syntax, baseIRI)
	if err != nil {
		return fmt.Errorf("quadstore: load dataset: %w", err)
	}
	var buf txn.Buffer
	return s.bulkInsert(&buf, quads)
}
