// Package memstore implements kvstore.Storage entirely in memory: one
// sorted slice per logical table, copy-on-write snapshots for read
// isolation, and a single-writer lock for mutation.
package memstore

import (
	"bytes"
	"sort"
	"sync"

	"github.com/loomdb/loomdb/internal/kvstore"
	"github.com/loomdb/loomdb/internal/qkey"
)

const tableCount = 7

type entry struct {
	Key   []byte
	Value []byte
}

type tableData []entry

func (t tableData) search(key []byte) (int, bool) {
	i := sort.Search(len(t), func(i int) bool { return bytes.Compare(t[i].Key, key) >= 0 })
	if i < len(t) && bytes.Equal(t[i].Key, key) {
		return i, true
	}
	return i, false
}

// snapshot is an immutable view of all seven tables. Once published, its
// slices are never mutated in place; a writer always builds a new
// snapshot from a clone.
type snapshot struct {
	tables [tableCount]tableData
}

func (s *snapshot) clone() *snapshot {
	clone := &snapshot{}
	for i, t := range s.tables {
		clone.tables[i] = append(tableData(nil), t...)
	}
	return clone
}

// Store is an in-memory kvstore.Storage.
type Store struct {
	mu      sync.Mutex // single-writer lock; also guards current
	current *snapshot
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{current: &snapshot{}}
}

func (s *Store) Begin(writable bool) (kvstore.Transaction, error) {
	if writable {
		s.mu.Lock()
		return &txn{store: s, writable: true, base: s.current, working: s.current.clone()}, nil
	}
	s.mu.Lock()
	snap := s.current
	s.mu.Unlock()
	return &txn{store: s, writable: false, base: snap}, nil
}

func (s *Store) Close() error { return nil }
func (s *Store) Sync() error  { return nil }

type txn struct {
	store    *Store
	writable bool
	base     *snapshot // snapshot this transaction reads from
	working  *snapshot // writable clone, nil for read-only transactions
	done     bool
}

func (t *txn) active() *snapshot {
	if t.writable {
		return t.working
	}
	return t.base
}

func (t *txn) Get(table qkey.Table, key []byte) ([]byte, error) {
	data := t.active().tables[table]
	idx, ok := data.search(key)
	if !ok {
		return nil, kvstore.ErrNotFound
	}
	return data[idx].Value, nil
}

func (t *txn) Set(table qkey.Table, key, value []byte) error {
	if !t.writable {
		return kvstore.ErrReadOnly
	}
	data := t.working.tables[table]
	idx, ok := data.search(key)
	keyCopy := append([]byte(nil), key...)
	valCopy := append([]byte(nil), value...)
	if ok {
		data[idx].Value = valCopy
		return nil
	}
	data = append(data, entry{})
	copy(data[idx+1:], data[idx:len(data)-1])
	data[idx] = entry{Key: keyCopy, Value: valCopy}
	t.working.tables[table] = data
	return nil
}

func (t *txn) Delete(table qkey.Table, key []byte) error {
	if !t.writable {
		return kvstore.ErrReadOnly
	}
	data := t.working.tables[table]
	idx, ok := data.search(key)
	if !ok {
		return nil
	}
	t.working.tables[table] = append(data[:idx], data[idx+1:]...)
	return nil
}

func (t *txn) Scan(table qkey.Table, start, end []byte) (kvstore.Iterator, error) {
	data := t.active().tables[table]
	from := 0
	if start != nil {
		from, _ = data.search(start)
	}
	return &iterator{data: data, pos: from - 1, end: end}, nil
}

func (t *txn) Commit() error {
	if t.done {
		return nil
	}
	t.done = true
	if t.writable {
		t.store.current = t.working
		t.store.mu.Unlock()
	}
	return nil
}

func (t *txn) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	if t.writable {
		t.store.mu.Unlock()
	}
	return nil
}

type iterator struct {
	data tableData
	pos  int
	end  []byte
}

func (it *iterator) Next() bool {
	it.pos++
	if it.pos >= len(it.data) {
		return false
	}
	if it.end != nil && bytes.Compare(it.data[it.pos].Key, it.end) >= 0 {
		it.pos = len(it.data)
		return false
	}
	return true
}

func (it *iterator) Key() []byte {
	if it.pos < 0 || it.pos >= len(it.data) {
		return nil
	}
	return it.data[it.pos].Key
}

func (it *iterator) Value() ([]byte, error) {
	if it.pos < 0 || it.pos >= len(it.data) {
		return nil, kvstore.ErrNotFound
	}
	return it.data[it.pos].Value, nil
}

func (it *iterator) Close() error { return nil }
