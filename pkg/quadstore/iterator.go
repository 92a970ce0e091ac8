package quadstore

import (
	"bytes"
	"fmt"

	"github.com/loomdb/loomdb/internal/kvstore"
	"github.com/loomdb/loomdb/internal/qkey"
	"github.com/loomdb/loomdb/internal/termcodec"
	"github.com/loomdb/loomdb/pkg/rdf"
)

// QuadIterator walks the quads matching a QuadsForPattern call, decoding
// each encoded key back into an *rdf.Quad on demand. It owns the read
// transaction it was built from and must be Closed when done.
type QuadIterator struct {
	tx     kvstore.Transaction
	it     kvstore.Iterator
	table  qkey.Table
	prefix []byte
	reader termcodec.DictReader
	done   bool
}

// Next advances the iterator. It returns false once the underlying keys
// no longer share the scan's prefix (the backend may otherwise keep
// iterating to the end of the table) or once the backend is exhausted.
func (qi *QuadIterator) Next() bool {
	if qi.done {
		return false
	}
	if !qi.it.Next() {
		qi.done = true
		return false
	}
	if len(qi.prefix) > 0 && !bytes.HasPrefix(qi.it.Key(), qi.prefix) {
		qi.done = true
		return false
	}
	return true
}

// Quad decodes the current key into an RDF quad.
func (qi *QuadIterator) Quad() (*rdf.Quad, error) {
	eq, ok := qkey.DecodeKey(qi.table, qi.it.Key())
	if !ok {
		return nil, fmt.Errorf("quadstore: malformed key in table %s", qi.table)
	}
	s, err := termcodec.DecodeTerm(eq.S, qi.reader)
	if err != nil {
		return nil, fmt.Errorf("quadstore: decoding subject: %w", err)
	}
	p, err := termcodec.DecodeTerm(eq.P, qi.reader)
	if err != nil {
		return nil, fmt.Errorf("quadstore: decoding predicate: %w", err)
	}
	o, err := termcodec.DecodeTerm(eq.O, qi.reader)
	if err != nil {
		return nil, fmt.Errorf("quadstore: decoding object: %w", err)
	}
	g, err := termcodec.DecodeTerm(eq.G, qi.reader)
	if err != nil {
		return nil, fmt.Errorf("quadstore: decoding graph: %w", err)
	}
	return rdf.NewQuad(s, p, o, g), nil
}

// Close releases the iterator and its underlying read transaction.
func (qi *QuadIterator) Close() error {
	iterErr := qi.it.Close()
	txErr := qi.tx.Rollback()
	if iterErr != nil {
		return iterErr
	}
	return txErr
}

// Collect drains the iterator into a slice, closing it on return.
func (qi *QuadIterator) Collect() ([]*rdf.Quad, error) {
	defer qi.Close()
	var out []*rdf.Quad
	for qi.Next() {
		q, err := qi.Quad()
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}
