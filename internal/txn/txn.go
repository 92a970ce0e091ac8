// Package txn implements the operation buffer shared by loomdb's two
// transaction modes: an explicit transaction drains the buffer exactly
// once, atomically; a bulk loader drains it every time it reaches
// MaxAutoTxnSize, trading whole-load atomicity for a bounded memory
// footprint.
package txn

import "github.com/loomdb/loomdb/pkg/rdf"

// MaxAutoTxnSize is the operation count at which a bulk (auto)
// transaction flushes its buffer; each flush commits on its own, so the
// load as a whole is not atomic.
const MaxAutoTxnSize = 1024

// Kind distinguishes an insert from a remove inside a Buffer.
type Kind byte

const (
	Insert Kind = iota
	Remove
)

// Op is one buffered write.
type Op struct {
	Kind Kind
	Quad *rdf.Quad
}

// Buffer accumulates Ops in the order they were queued.
type Buffer struct {
	ops []Op
}

// Insert queues an insert of quad.
func (b *Buffer) Insert(quad *rdf.Quad) { b.ops = append(b.ops, Op{Kind: Insert, Quad: quad}) }

// Remove queues a removal of quad.
func (b *Buffer) Remove(quad *rdf.Quad) { b.ops = append(b.ops, Op{Kind: Remove, Quad: quad}) }

// Len reports the number of buffered operations.
func (b *Buffer) Len() int { return len(b.ops) }

// Full reports whether the buffer has reached MaxAutoTxnSize.
func (b *Buffer) Full() bool { return len(b.ops) >= MaxAutoTxnSize }

// Drain returns and clears the buffered operations.
func (b *Buffer) Drain() []Op {
	ops := b.ops
	b.ops = nil
	return ops
}
