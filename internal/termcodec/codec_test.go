package termcodec

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/loomdb/loomdb/pkg/rdf"
)

type fakeDict struct {
	entries map[[16]byte]string
}

func newFakeDict() *fakeDict { return &fakeDict{entries: map[[16]byte]string{}} }

func (d *fakeDict) Put(hash [16]byte, value string) error {
	if existing, ok := d.entries[hash]; ok {
		if existing != value {
			return ErrHashCollision
		}
		return nil
	}
	d.entries[hash] = value
	return nil
}

func (d *fakeDict) Get(hash [16]byte) (string, bool) {
	v, ok := d.entries[hash]
	return v, ok
}

func roundTrip(t *testing.T, term rdf.Term) rdf.Term {
	t.Helper()
	d := newFakeDict()
	enc, err := EncodeTerm(term, d)
	if err != nil {
		t.Fatalf("EncodeTerm(%v): %v", term, err)
	}
	dec, err := DecodeTerm(enc, d)
	if err != nil {
		t.Fatalf("DecodeTerm(%v): %v", term, err)
	}
	return dec
}

func TestRoundTripNamedNode(t *testing.T) {
	n := rdf.NewNamedNode("http://example.com/widget")
	if dec := roundTrip(t, n); !dec.Equals(n) {
		t.Errorf("got %v, want %v", dec, n)
	}
}

func TestRoundTripBlankNodeHex(t *testing.T) {
	id := uuid.New().String()
	id = id[:8] + id[9:13] + id[14:18] + id[19:23] + id[24:]
	b := rdf.NewBlankNode(id)
	enc, d := mustEncode(t, b)
	if enc.Tag() != TagBlankNodeInline {
		t.Fatalf("expected inline tag for 32-hex blank node id, got %v", enc.Tag())
	}
	dec, err := DecodeTerm(enc, d)
	if err != nil {
		t.Fatal(err)
	}
	if !dec.Equals(b) {
		t.Errorf("got %v, want %v", dec, b)
	}
}

func TestRoundTripBlankNodeArbitraryLabel(t *testing.T) {
	b := rdf.NewBlankNode("b0")
	enc, d := mustEncode(t, b)
	if enc.Tag() != TagBlankNodeHashed {
		t.Fatalf("expected hashed tag for non-hex blank node label, got %v", enc.Tag())
	}
	dec, err := DecodeTerm(enc, d)
	if err != nil {
		t.Fatal(err)
	}
	if !dec.Equals(b) {
		t.Errorf("got %v, want %v", dec, b)
	}
}

func mustEncode(t *testing.T, term rdf.Term) (EncodedTerm, *fakeDict) {
	t.Helper()
	d := newFakeDict()
	enc, err := EncodeTerm(term, d)
	if err != nil {
		t.Fatalf("EncodeTerm(%v): %v", term, err)
	}
	return enc, d
}

func TestRoundTripShortAndLongString(t *testing.T) {
	short := rdf.NewLiteral("short")
	long := rdf.NewLiteral("this literal is longer than sixteen bytes")

	if enc, _ := mustEncode(t, short); enc.Tag() != TagStringInline {
		t.Errorf("expected inline tag for short string, got %v", enc.Tag())
	}
	if enc, _ := mustEncode(t, long); enc.Tag() != TagStringHashed {
		t.Errorf("expected hashed tag for long string, got %v", enc.Tag())
	}

	for _, lit := range []*rdf.Literal{short, long} {
		if dec := roundTrip(t, lit); !dec.Equals(lit) {
			t.Errorf("got %v, want %v", dec, lit)
		}
	}
}

func TestRoundTripLangString(t *testing.T) {
	lit := rdf.NewLiteralWithLanguage("hello", "en")
	if dec := roundTrip(t, lit); !dec.Equals(lit) {
		t.Errorf("got %v, want %v", dec, lit)
	}
}

func TestRoundTripTypedLiteral(t *testing.T) {
	lit := rdf.NewLiteralWithDatatype("P3D", rdf.NewNamedNode("http://www.w3.org/2001/XMLSchema#duration"))
	if dec := roundTrip(t, lit); !dec.Equals(lit) {
		t.Errorf("got %v, want %v", dec, lit)
	}
}

func TestRoundTripNumerics(t *testing.T) {
	cases := []*rdf.Literal{
		rdf.NewIntegerLiteral(-42),
		rdf.NewLiteralWithDatatype("3.5", rdf.XSDDecimal),
		rdf.NewLiteralWithDatatype("3.5", rdf.XSDFloat),
		rdf.NewDoubleLiteral(2.5),
		rdf.NewBooleanLiteral(true),
		rdf.NewBooleanLiteral(false),
	}
	for _, lit := range cases {
		dec := roundTrip(t, lit)
		decLit, ok := dec.(*rdf.Literal)
		if !ok {
			t.Fatalf("expected *rdf.Literal, got %T", dec)
		}
		if decLit.Value != lit.Value {
			t.Errorf("value mismatch: got %q, want %q", decLit.Value, lit.Value)
		}
	}
}

func TestRoundTripDateTime(t *testing.T) {
	lit := rdf.NewDateTimeLiteral(mustParseTime(t, "2024-03-05T13:45:02Z"))
	dec := roundTrip(t, lit)
	decLit := dec.(*rdf.Literal)
	if decLit.Value != "2024-03-05T13:45:02Z" {
		t.Errorf("got %q", decLit.Value)
	}
}

func TestCollisionDetection(t *testing.T) {
	d := newFakeDict()
	h := Hash128("http://example.com/a")
	if err := d.Put(h, "http://example.com/a"); err != nil {
		t.Fatal(err)
	}
	if err := d.Put(h, "http://example.com/DIFFERENT"); err != ErrHashCollision {
		t.Errorf("expected ErrHashCollision, got %v", err)
	}
}

func TestDefaultGraph(t *testing.T) {
	dg := rdf.NewDefaultGraph()
	if dec := roundTrip(t, dg); !dec.Equals(dg) {
		t.Errorf("got %v, want %v", dec, dg)
	}
}

func mustParseTime(t *testing.T, s string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatal(err)
	}
	return parsed
}
