package memstore

import (
	"testing"

	"github.com/loomdb/loomdb/internal/kvstore"
	"github.com/loomdb/loomdb/internal/qkey"
)

func TestSetGetCommit(t *testing.T) {
	s := New()
	txn, err := s.Begin(true)
	if err != nil {
		t.Fatal(err)
	}
	if err := txn.Set(qkey.TableSPOG, []byte("k1"), []byte("v1")); err != nil {
		t.Fatal(err)
	}
	if err := txn.Commit(); err != nil {
		t.Fatal(err)
	}

	read, err := s.Begin(false)
	if err != nil {
		t.Fatal(err)
	}
	defer read.Rollback()
	v, err := read.Get(qkey.TableSPOG, []byte("k1"))
	if err != nil {
		t.Fatal(err)
	}
	if string(v) != "v1" {
		t.Errorf("got %q", v)
	}
}

func TestReadSnapshotIsolation(t *testing.T) {
	s := New()
	setup, _ := s.Begin(true)
	setup.Set(qkey.TableSPOG, []byte("k1"), []byte("v1"))
	setup.Commit()

	reader, _ := s.Begin(false)
	defer reader.Rollback()

	writer, _ := s.Begin(true)
	writer.Set(qkey.TableSPOG, []byte("k1"), []byte("v2"))
	writer.Commit()

	v, err := reader.Get(qkey.TableSPOG, []byte("k1"))
	if err != nil {
		t.Fatal(err)
	}
	if string(v) != "v1" {
		t.Errorf("expected reader to see pre-write snapshot value v1, got %q", v)
	}
}

func TestRollbackDiscardsWrites(t *testing.T) {
	s := New()
	txn, _ := s.Begin(true)
	txn.Set(qkey.TableSPOG, []byte("k1"), []byte("v1"))
	txn.Rollback()

	read, _ := s.Begin(false)
	defer read.Rollback()
	_, err := read.Get(qkey.TableSPOG, []byte("k1"))
	if err != kvstore.ErrNotFound {
		t.Errorf("expected ErrNotFound after rollback, got %v", err)
	}
}

func TestScanOrdersKeysFromStart(t *testing.T) {
	s := New()
	txn, _ := s.Begin(true)
	for _, k := range []string{"b", "a", "c", "bb"} {
		txn.Set(qkey.TableSPOG, []byte(k), []byte(k))
	}
	txn.Commit()

	read, _ := s.Begin(false)
	defer read.Rollback()
	it, err := read.Scan(qkey.TableSPOG, []byte("b"), nil)
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for it.Next() {
		got = append(got, string(it.Key()))
	}
	want := []string{"b", "bb", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestDeleteRemovesKey(t *testing.T) {
	s := New()
	txn, _ := s.Begin(true)
	txn.Set(qkey.TableSPOG, []byte("k1"), []byte("v1"))
	txn.Delete(qkey.TableSPOG, []byte("k1"))
	txn.Commit()

	read, _ := s.Begin(false)
	defer read.Rollback()
	_, err := read.Get(qkey.TableSPOG, []byte("k1"))
	if err != kvstore.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestWriteOnReadOnlyTransactionFails(t *testing.T) {
	s := New()
	read, _ := s.Begin(false)
	defer read.Rollback()
	if err := read.Set(qkey.TableSPOG, []byte("k"), []byte("v")); err != kvstore.ErrReadOnly {
		t.Errorf("expected ErrReadOnly, got %v", err)
	}
}
