// Package diskstore implements kvstore.Storage on top of BadgerDB: a
// single-byte table-prefix trick standing in for BadgerDB's lack of a
// native column-family concept, plus the usual iterator prefix/seek/
// endKey bookkeeping.
package diskstore

import (
	"bytes"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/loomdb/loomdb/internal/kvstore"
	"github.com/loomdb/loomdb/internal/qkey"
)

// Store is a BadgerDB-backed kvstore.Storage. Each of the seven logical
// tables (six quad-key permutations plus id2str) is namespaced by a
// single leading byte so that one Badger keyspace holds all of them.
type Store struct {
	db *badger.DB
}

// Open opens (creating if necessary) a Badger database at path, tuned
// for bulk-load write throughput rather than read latency: more
// concurrent compactors and a higher level-zero stall threshold let
// writes keep flushing into memtables instead of blocking on
// compaction, and ZSTD at a low level keeps the resulting SSTables
// small without costing much write-path CPU.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	opts.NumCompactors = 4
	opts.NumLevelZeroTables = 10
	opts.NumLevelZeroTablesStall = 30
	opts.Compression = options.ZSTD
	opts.ZSTDCompressionLevel = 1

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("diskstore: opening badger db at %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Begin(writable bool) (kvstore.Transaction, error) {
	return &txn{txn: s.db.NewTransaction(writable), writable: writable}, nil
}

func (s *Store) Close() error { return s.db.Close() }
func (s *Store) Sync() error  { return s.db.Sync() }

func tablePrefix(table qkey.Table) []byte { return []byte{byte(table)} }

func prefixKey(table qkey.Table, key []byte) []byte {
	prefix := tablePrefix(table)
	out := make([]byte, len(prefix)+len(key))
	copy(out, prefix)
	copy(out[len(prefix):], key)
	return out
}

type txn struct {
	txn      *badger.Txn
	writable bool
}

func (t *txn) Get(table qkey.Table, key []byte) ([]byte, error) {
	item, err := t.txn.Get(prefixKey(table, key))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, kvstore.ErrNotFound
		}
		return nil, err
	}
	var value []byte
	err = item.Value(func(val []byte) error {
		value = append([]byte(nil), val...)
		return nil
	})
	return value, err
}

func (t *txn) Set(table qkey.Table, key, value []byte) error {
	if !t.writable {
		return kvstore.ErrReadOnly
	}
	return t.txn.Set(prefixKey(table, key), value)
}

func (t *txn) Delete(table qkey.Table, key []byte) error {
	if !t.writable {
		return kvstore.ErrReadOnly
	}
	return t.txn.Delete(prefixKey(table, key))
}

func (t *txn) Scan(table qkey.Table, start, end []byte) (kvstore.Iterator, error) {
	opts := badger.DefaultIteratorOptions

	tPrefix := tablePrefix(table)
	seekKey := tPrefix
	scanPrefix := tPrefix
	if start != nil {
		seekKey = prefixKey(table, start)
	}
	opts.Prefix = scanPrefix
	it := t.txn.NewIterator(opts)

	var endKey []byte
	if end != nil {
		endKey = prefixKey(table, end)
	}

	return &iterator{it: it, tablePrefix: tPrefix, seekKey: seekKey, endKey: endKey}, nil
}

func (t *txn) Commit() error {
	return t.txn.Commit()
}

func (t *txn) Rollback() error {
	t.txn.Discard()
	return nil
}

type iterator struct {
	it          *badger.Iterator
	tablePrefix []byte
	seekKey     []byte
	endKey      []byte
	started     bool
	valid       bool
}

func (i *iterator) Next() bool {
	if !i.started {
		i.it.Seek(i.seekKey)
		i.started = true
	} else {
		i.it.Next()
	}
	if !i.it.Valid() {
		i.valid = false
		return false
	}
	if i.endKey != nil && bytes.Compare(i.it.Item().Key(), i.endKey) >= 0 {
		i.valid = false
		return false
	}
	i.valid = true
	return true
}

func (i *iterator) Key() []byte {
	if !i.valid {
		return nil
	}
	key := i.it.Item().Key()
	if len(key) <= len(i.tablePrefix) {
		return nil
	}
	return key[len(i.tablePrefix):]
}

func (i *iterator) Value() ([]byte, error) {
	if !i.valid {
		return nil, kvstore.ErrNotFound
	}
	var value []byte
	err := i.it.Item().Value(func(val []byte) error {
		value = append([]byte(nil), val...)
		return nil
	})
	return value, err
}

func (i *iterator) Close() error {
	i.it.Close()
	return nil
}
