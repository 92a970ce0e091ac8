// Package qkey implements the six-permutation encoded-quad key layout
// and the pattern-to-index dispatch table that picks the cheapest
// permutation for a given set of bound slots. A quad's graph slot is
// itself an encoded term (possibly the DefaultGraph singleton), so no
// separate default-graph-only tables are needed.
package qkey

import (
	"github.com/loomdb/loomdb/internal/termcodec"
)

// Table identifies one of the seven logical column families a store
// keeps: the six quad-key permutations plus the id2str dictionary table.
// Backends (internal/memstore, internal/diskstore) map each Table to its
// own sorted container or key prefix.
type Table byte

const (
	TableSPOG Table = iota
	TablePOSG
	TableOSPG
	TableGSPO
	TableGPOS
	TableGOSP
	TableID2Str
)

func (t Table) String() string {
	switch t {
	case TableSPOG:
		return "spog"
	case TablePOSG:
		return "posg"
	case TableOSPG:
		return "ospg"
	case TableGSPO:
		return "gspo"
	case TableGPOS:
		return "gpos"
	case TableGOSP:
		return "gosp"
	case TableID2Str:
		return "id2str"
	default:
		return "unknown"
	}
}

// AllQuadTables lists the six permutation tables, in the fixed write
// order every insert/delete applies them in.
var AllQuadTables = [6]Table{TableSPOG, TablePOSG, TableOSPG, TableGSPO, TableGPOS, TableGOSP}

// EncodedQuad is a quad after every term has been run through
// termcodec.EncodeTerm.
type EncodedQuad struct {
	S, P, O, G termcodec.EncodedTerm
}

// quadKey concatenates n encoded terms, in the order positions names, into
// one flat key suitable for a sorted container or Badger key.
func quadKey(eq EncodedQuad, positions [4]int, n int) []byte {
	key := make([]byte, 0, n*termcodec.Size)
	slots := [4]termcodec.EncodedTerm{eq.S, eq.P, eq.O, eq.G}
	for i := 0; i < n; i++ {
		key = append(key, slots[positions[i]][:]...)
	}
	return key
}

// KeyFor builds the key this quad occupies in table.
func KeyFor(table Table, eq EncodedQuad) []byte {
	switch table {
	case TableSPOG:
		return quadKey(eq, [4]int{0, 1, 2, 3}, 4)
	case TablePOSG:
		return quadKey(eq, [4]int{1, 2, 0, 3}, 4)
	case TableOSPG:
		return quadKey(eq, [4]int{2, 0, 1, 3}, 4)
	case TableGSPO:
		return quadKey(eq, [4]int{3, 0, 1, 2}, 4)
	case TableGPOS:
		return quadKey(eq, [4]int{3, 1, 2, 0}, 4)
	case TableGOSP:
		return quadKey(eq, [4]int{3, 2, 0, 1}, 4)
	default:
		return nil
	}
}

// keyPattern records, for a chosen table, which SPOG slot (S=0, P=1, O=2,
// G=3) each successive 17-byte chunk of its key holds.
var keyPatterns = map[Table][4]int{
	TableSPOG: {0, 1, 2, 3},
	TablePOSG: {1, 2, 0, 3},
	TableOSPG: {2, 0, 1, 3},
	TableGSPO: {3, 0, 1, 2},
	TableGPOS: {3, 1, 2, 0},
	TableGOSP: {3, 2, 0, 1},
}

// DecodeKey reverses KeyFor: given the table it was read from and its raw
// bytes, it recovers the four encoded terms in S, P, O, G order.
func DecodeKey(table Table, key []byte) (EncodedQuad, bool) {
	pattern, ok := keyPatterns[table]
	if !ok || len(key) != 4*termcodec.Size {
		return EncodedQuad{}, false
	}
	var slots [4]termcodec.EncodedTerm
	for i, slot := range pattern {
		copy(slots[slot][:], key[i*termcodec.Size:(i+1)*termcodec.Size])
	}
	return EncodedQuad{S: slots[0], P: slots[1], O: slots[2], G: slots[3]}, true
}

// Variable is an unbound pattern slot, named for readability in traces.
type Variable struct{ Name string }

// Slot is either a bound termcodec.EncodedTerm or a *Variable.
type Slot = any

// Pattern is a quad pattern whose bound slots have already been encoded.
// GraphIsVariable distinguishes "no graph constraint" (absent graph slot,
// matches any graph including the default graph) from a bound slot that
// happens to hold the DefaultGraph singleton (default graph only).
type Pattern struct {
	S, P, O         Slot
	G               Slot
	GraphIsVariable bool
}

func isVar(s Slot) bool {
	if s == nil {
		return true
	}
	_, ok := s.(*Variable)
	return ok
}

// SelectIndex picks the cheapest table to scan for pattern and the slot
// order (S=0,P=1,O=2,G=3) that table's key encodes. A fully bound
// pattern uses SPOG as a point lookup; otherwise a bound graph selects
// one of the graph-first tables and an unbound graph one of SPOG, POSG
// or OSPG, since every quad (including default-graph ones) is present
// in all six.
func SelectIndex(p *Pattern) (Table, [4]int) {
	sBound := !isVar(p.S)
	pBound := !isVar(p.P)
	oBound := !isVar(p.O)
	gBound := !p.GraphIsVariable && !isVar(p.G)

	if gBound && sBound && pBound && oBound {
		return TableSPOG, [4]int{0, 1, 2, 3}
	}
	if gBound && sBound && pBound {
		return TableGSPO, [4]int{3, 0, 1, 2}
	}
	if gBound && pBound && oBound {
		return TableGPOS, [4]int{3, 1, 2, 0}
	}
	if gBound && oBound && sBound {
		return TableGOSP, [4]int{3, 2, 0, 1}
	}
	if gBound && sBound {
		return TableGSPO, [4]int{3, 0, 1, 2}
	}
	if gBound && pBound {
		return TableGPOS, [4]int{3, 1, 2, 0}
	}
	if gBound && oBound {
		return TableGOSP, [4]int{3, 2, 0, 1}
	}
	if gBound {
		return TableGSPO, [4]int{3, 0, 1, 2}
	}

	if sBound && pBound {
		return TableSPOG, [4]int{0, 1, 2, 3}
	}
	if pBound && oBound {
		return TablePOSG, [4]int{1, 2, 0, 3}
	}
	if oBound && sBound {
		return TableOSPG, [4]int{2, 0, 1, 3}
	}
	if sBound {
		return TableSPOG, [4]int{0, 1, 2, 3}
	}
	if pBound {
		return TablePOSG, [4]int{1, 2, 0, 3}
	}
	if oBound {
		return TableOSPG, [4]int{2, 0, 1, 3}
	}
	return TableSPOG, [4]int{0, 1, 2, 3}
}

// ScanPrefix builds the byte prefix to scan table for, given the table's
// slot order: bound slots contribute their 17 encoded bytes each, in
// order, stopping at the first unbound (or deliberately variable-graph)
// slot.
func ScanPrefix(p *Pattern, table Table, order [4]int) []byte {
	slots := [4]Slot{p.S, p.P, p.O, p.G}
	var prefix []byte
	for _, idx := range order {
		if idx == 3 && p.GraphIsVariable {
			break
		}
		slot := slots[idx]
		if isVar(slot) {
			break
		}
		enc := slot.(termcodec.EncodedTerm)
		prefix = append(prefix, enc[:]...)
	}
	_ = table
	return prefix
}
