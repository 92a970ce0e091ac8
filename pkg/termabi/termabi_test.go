package termabi

import (
	"errors"
	"testing"

	"github.com/loomdb/loomdb/pkg/rdf"
)

func TestNewBlankNodeMintsHex128WhenIDEmpty(t *testing.T) {
	term, err := NewBlankNode("")
	if err != nil {
		t.Fatal(err)
	}
	if len(term.Value) != 32 {
		t.Fatalf("expected a 32-char hex id, got %q (%d chars)", term.Value, len(term.Value))
	}
	if err := validateBlankNodeID(term.Value); err != nil {
		t.Fatalf("minted id failed its own validation: %v", err)
	}
}

func TestNewBlankNodeRejectsNonHexID(t *testing.T) {
	_, err := NewBlankNode("not-a-hex-id")
	if !errors.Is(err, ErrInvalidBlankNodeID) {
		t.Fatalf("expected ErrInvalidBlankNodeID, got %v", err)
	}
}

func TestNewBlankNodeAcceptsHex128ID(t *testing.T) {
	term, err := NewBlankNode("0123456789abcdef0123456789abcdef")
	if err != nil {
		t.Fatal(err)
	}
	if term.TermType != BlankNode {
		t.Fatalf("expected BlankNode term type, got %v", term.TermType)
	}
}

type hostTerm struct {
	termType TermType
	value    string
	language string
	datatype HostTerm
}

func (h hostTerm) TermType() TermType { return h.termType }
func (h hostTerm) Value() string      { return h.value }
func (h hostTerm) Language() string   { return h.language }
func (h hostTerm) Datatype() HostTerm { return h.datatype }

func TestFromTermNamedNode(t *testing.T) {
	term, err := FromTerm(hostTerm{termType: NamedNode, value: "http://example.com"})
	if err != nil {
		t.Fatal(err)
	}
	if term.Value != "http://example.com" {
		t.Fatalf("unexpected value: %q", term.Value)
	}
}

func TestFromTermRejectsBadBlankNodeID(t *testing.T) {
	_, err := FromTerm(hostTerm{termType: BlankNode, value: "zzz"})
	if !errors.Is(err, ErrInvalidBlankNodeID) {
		t.Fatalf("expected ErrInvalidBlankNodeID, got %v", err)
	}
}

func TestFromTermTypedLiteral(t *testing.T) {
	dt := hostTerm{termType: NamedNode, value: "http://www.w3.org/2001/XMLSchema#integer"}
	term, err := FromTerm(hostTerm{termType: Literal, value: "42", datatype: dt})
	if err != nil {
		t.Fatal(err)
	}
	if term.Datatype == nil || term.Datatype.Value != dt.value {
		t.Fatalf("expected datatype to round trip, got %+v", term.Datatype)
	}
}

func TestFromTermNilIsNil(t *testing.T) {
	term, err := FromTerm(nil)
	if err != nil || term != nil {
		t.Fatalf("expected (nil, nil), got (%v, %v)", term, err)
	}
}

func TestToAndFromRDFTermRoundTrip(t *testing.T) {
	cases := []*Term{
		NewNamedNode("http://example.com"),
		{TermType: BlankNode, Value: "0123456789abcdef0123456789abcdef"},
		NewLiteral("hello"),
		NewLangLiteral("hello", "en"),
		NewTypedLiteral("42", NewNamedNode("http://www.w3.org/2001/XMLSchema#integer")),
		NewDefaultGraphTerm(),
	}
	for _, want := range cases {
		got := FromRDFTerm(ToRDFTerm(want))
		if got.TermType != want.TermType || got.Value != want.Value || got.Language != want.Language {
			t.Errorf("round trip mismatch: want %+v, got %+v", want, got)
		}
	}
}

func TestToRDFQuadDefaultsNilGraph(t *testing.T) {
	q := NewTriple(NewNamedNode("http://example.com"), NewNamedNode("http://example.com"), NewNamedNode("http://example.com"))
	rq := ToRDFQuad(q)
	if !rq.Graph.Equals(rdf.NewDefaultGraph()) {
		t.Fatalf("expected default graph, got %v", rq.Graph)
	}
}

func TestFromRDFQuadRoundTrip(t *testing.T) {
	rq := rdf.NewQuad(
		rdf.NewNamedNode("http://example.com/s"),
		rdf.NewNamedNode("http://example.com/p"),
		rdf.NewIntegerLiteral(7),
		rdf.NewNamedNode("http://example.com/g"),
	)
	q := FromRDFQuad(rq)
	back := ToRDFQuad(q)
	if !back.Equals(rq) {
		t.Fatalf("expected round trip to preserve the quad, got %v vs %v", back, rq)
	}
}
