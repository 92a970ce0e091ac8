// Package kvstore defines the Storage/Transaction/Iterator contract
// shared by every backend (internal/memstore, internal/diskstore),
// separating the key-value layer from the quad layer above it and
// keying everything off qkey.Table's seven-table scheme.
package kvstore

import (
	"errors"

	"github.com/loomdb/loomdb/internal/qkey"
)

var (
	// ErrNotFound is returned by Get for an absent key.
	ErrNotFound = errors.New("kvstore: key not found")
	// ErrReadOnly is returned by a write method called on a read-only transaction.
	ErrReadOnly = errors.New("kvstore: transaction is read-only")
)

// Storage is the interface every backend implements.
type Storage interface {
	// Begin starts a new transaction. Read-only transactions see a
	// consistent snapshot; writable transactions serialize against
	// each other (single-writer).
	Begin(writable bool) (Transaction, error)

	// Close releases the backend's resources.
	Close() error

	// Sync flushes any buffered writes to durable storage. A no-op for
	// backends with no write buffer (e.g. the in-memory one).
	Sync() error
}

// Transaction is a single unit-of-work against one or more of the seven
// logical tables (six quad-key permutations plus id2str).
type Transaction interface {
	Get(table qkey.Table, key []byte) ([]byte, error)
	Set(table qkey.Table, key, value []byte) error
	Delete(table qkey.Table, key []byte) error

	// Scan returns an iterator over [start, end) within table. A nil
	// end means "scan to the end of the table"; callers that only have
	// a prefix typically pass (prefix, nil) and stop once the key no
	// longer has that prefix.
	Scan(table qkey.Table, start, end []byte) (Iterator, error)

	Commit() error
	Rollback() error
}

// Iterator walks key-value pairs in ascending key order.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() ([]byte, error)
	Close() error
}
