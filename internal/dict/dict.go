// Package dict implements the hash-to-string dictionary that backs every
// hashed term payload produced by internal/termcodec: an idempotent
// Put, collision detection, and a well-known-IRI seed table.
package dict

import (
	"fmt"
	"sync"

	"github.com/loomdb/loomdb/internal/termcodec"
)

// Dict is a concurrency-safe, idempotent hash->string table. A single
// Dict instance is shared by every index permutation of a store so that
// a term is hashed into the dictionary exactly once regardless of how
// many tables reference it.
type Dict struct {
	mu      sync.RWMutex
	entries map[[16]byte]string
}

// New returns a Dict seeded with the well-known vocabulary IRIs
// used throughout the RDF/XSD namespaces, so that a freshly opened store
// never pays a miss for them.
func New() *Dict {
	d := &Dict{entries: make(map[[16]byte]string, len(wellKnownIRIs))}
	for _, iri := range wellKnownIRIs {
		d.entries[termcodec.Hash128(iri)] = iri
	}
	return d
}

// Put binds hash to value. Re-inserting the same (hash, value) pair is a
// no-op; binding a hash already bound to a different string is a
// collision and returns termcodec.ErrHashCollision.
func (d *Dict) Put(hash [16]byte, value string) error {
	d.mu.RLock()
	existing, ok := d.entries[hash]
	d.mu.RUnlock()
	if ok {
		if existing == value {
			return nil
		}
		return fmt.Errorf("%w: hash %x already bound to %q, rejected %q", termcodec.ErrHashCollision, hash, existing, value)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if existing, ok := d.entries[hash]; ok {
		if existing == value {
			return nil
		}
		return fmt.Errorf("%w: hash %x already bound to %q, rejected %q", termcodec.ErrHashCollision, hash, existing, value)
	}
	d.entries[hash] = value
	return nil
}

// Get resolves hash back to its string, reporting ok=false on a miss.
func (d *Dict) Get(hash [16]byte) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.entries[hash]
	return v, ok
}

// Len reports the number of distinct hashes bound.
func (d *Dict) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.entries)
}

// wellKnownIRIs are seeded into every fresh dictionary so that common
// vocabulary terms never need a fresh hash entry written at load time.
var wellKnownIRIs = []string{
	"http://www.w3.org/1999/02/22-rdf-syntax-ns#type",
	"http://www.w3.org/1999/02/22-rdf-syntax-ns#first",
	"http://www.w3.org/1999/02/22-rdf-syntax-ns#rest",
	"http://www.w3.org/1999/02/22-rdf-syntax-ns#nil",
	"http://www.w3.org/1999/02/22-rdf-syntax-ns#langString",
	"http://www.w3.org/2000/01/rdf-schema#label",
	"http://www.w3.org/2000/01/rdf-schema#comment",
	"http://www.w3.org/2000/01/rdf-schema#subClassOf",
	"http://www.w3.org/2001/XMLSchema#string",
	"http://www.w3.org/2001/XMLSchema#integer",
	"http://www.w3.org/2001/XMLSchema#decimal",
	"http://www.w3.org/2001/XMLSchema#float",
	"http://www.w3.org/2001/XMLSchema#double",
	"http://www.w3.org/2001/XMLSchema#boolean",
	"http://www.w3.org/2001/XMLSchema#dateTime",
	"http://www.w3.org/2001/XMLSchema#date",
	"http://www.w3.org/2001/XMLSchema#time",
}
