package rdf

import "testing"

func TestNamedNodeEquals(t *testing.T) {
	a := NewNamedNode("http://example.com/a")
	b := NewNamedNode("http://example.com/a")
	c := NewNamedNode("http://example.com/c")

	if !a.Equals(b) {
		t.Error("expected equal named nodes to compare equal")
	}
	if a.Equals(c) {
		t.Error("expected different named nodes to compare unequal")
	}
	if a.Equals(NewBlankNode("a")) {
		t.Error("named node must not equal a blank node with the same value")
	}
}

func TestLiteralEquals(t *testing.T) {
	plain := NewLiteral("hello")
	plainCopy := NewLiteral("hello")
	lang := NewLiteralWithLanguage("hello", "en")
	typed := NewLiteralWithDatatype("1", XSDInteger)
	typedOther := NewLiteralWithDatatype("1", XSDDouble)

	if !plain.Equals(plainCopy) {
		t.Error("expected identical plain literals to be equal")
	}
	if plain.Equals(lang) {
		t.Error("plain literal must not equal a language-tagged literal with the same value")
	}
	if typed.Equals(typedOther) {
		t.Error("literals with different datatypes must not be equal")
	}
}

func TestLiteralEffectiveDatatype(t *testing.T) {
	if dt := NewLiteral("x").EffectiveDatatype(); !dt.Equals(XSDString) {
		t.Errorf("expected xsd:string, got %s", dt)
	}
	if dt := NewLiteralWithLanguage("x", "en").EffectiveDatatype(); !dt.Equals(RDFLangString) {
		t.Errorf("expected rdf:langString, got %s", dt)
	}
	if dt := NewLiteralWithDatatype("1", XSDInteger).EffectiveDatatype(); !dt.Equals(XSDInteger) {
		t.Errorf("expected xsd:integer, got %s", dt)
	}
}

func TestDefaultGraphOnlyEqualsItself(t *testing.T) {
	dg := NewDefaultGraph()
	if !dg.Equals(NewDefaultGraph()) {
		t.Error("expected two default graph terms to be equal")
	}
	if dg.Equals(NewNamedNode("http://example.com/g")) {
		t.Error("default graph must not equal a named node")
	}
}

func TestQuadEquals(t *testing.T) {
	q1 := NewQuad(NewNamedNode("s"), NewNamedNode("p"), NewLiteral("o"), NewDefaultGraph())
	q2 := NewQuad(NewNamedNode("s"), NewNamedNode("p"), NewLiteral("o"), NewDefaultGraph())
	q3 := NewQuad(NewNamedNode("s"), NewNamedNode("p"), NewLiteral("o2"), NewDefaultGraph())

	if !q1.Equals(q2) {
		t.Error("expected identical quads to be equal")
	}
	if q1.Equals(q3) {
		t.Error("expected quads with different objects to be unequal")
	}
}
