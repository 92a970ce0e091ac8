package qkey

import (
	"bytes"
	"testing"

	"github.com/loomdb/loomdb/internal/termcodec"
)

func term(b byte) termcodec.EncodedTerm {
	var e termcodec.EncodedTerm
	e[0] = byte(termcodec.TagNamedNode)
	e[1] = b
	return e
}

func TestKeyForAndDecodeKeyRoundTripAllTables(t *testing.T) {
	eq := EncodedQuad{S: term(1), P: term(2), O: term(3), G: term(4)}
	for _, table := range AllQuadTables {
		key := KeyFor(table, eq)
		if len(key) != 4*termcodec.Size {
			t.Fatalf("table %v: key length = %d", table, len(key))
		}
		decoded, ok := DecodeKey(table, key)
		if !ok {
			t.Fatalf("table %v: DecodeKey failed", table)
		}
		if decoded != eq {
			t.Errorf("table %v: round trip mismatch: got %+v want %+v", table, decoded, eq)
		}
	}
}

func TestSelectIndexPrefersGraphBoundTables(t *testing.T) {
	g := term(9)
	p := &Pattern{S: term(1), P: &Variable{Name: "p"}, O: &Variable{Name: "o"}, G: g}
	table, _ := SelectIndex(p)
	if table != TableGSPO {
		t.Errorf("expected TableGSPO for bound S+G, got %v", table)
	}
}

func TestSelectIndexFallsBackWithoutGraphConstraint(t *testing.T) {
	p := &Pattern{S: term(1), P: term(2), O: &Variable{Name: "o"}, GraphIsVariable: true}
	table, _ := SelectIndex(p)
	if table != TableSPOG {
		t.Errorf("expected TableSPOG for bound S+P with no graph constraint, got %v", table)
	}
}

func TestScanPrefixStopsAtFirstVariable(t *testing.T) {
	p := &Pattern{S: term(1), P: &Variable{Name: "p"}, O: &Variable{Name: "o"}, GraphIsVariable: true}
	table, order := SelectIndex(p)
	prefix := ScanPrefix(p, table, order)
	if len(prefix) != termcodec.Size {
		t.Fatalf("expected a single encoded term in the prefix, got %d bytes", len(prefix))
	}
	if !bytes.Equal(prefix, term(1)[:]) {
		t.Errorf("prefix should encode the bound subject")
	}
}

func TestScanPrefixEmptyWhenNothingBound(t *testing.T) {
	p := &Pattern{S: &Variable{Name: "s"}, P: &Variable{Name: "p"}, O: &Variable{Name: "o"}, GraphIsVariable: true}
	table, order := SelectIndex(p)
	prefix := ScanPrefix(p, table, order)
	if len(prefix) != 0 {
		t.Errorf("expected empty prefix for a fully unbound pattern, got %d bytes", len(prefix))
	}
}

func TestScanPrefixDefaultGraphOnly(t *testing.T) {
	var dg termcodec.EncodedTerm
	dg[0] = byte(termcodec.TagDefaultGraph)
	p := &Pattern{S: &Variable{Name: "s"}, P: &Variable{Name: "p"}, O: &Variable{Name: "o"}, G: dg}
	table, order := SelectIndex(p)
	if table != TableGSPO {
		t.Fatalf("expected TableGSPO when graph is bound to DefaultGraph, got %v", table)
	}
	prefix := ScanPrefix(p, table, order)
	if !bytes.Equal(prefix, dg[:]) {
		t.Errorf("expected prefix to encode the DefaultGraph term")
	}
}
