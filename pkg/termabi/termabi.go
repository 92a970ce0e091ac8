// Package termabi exposes host-facing RDF term/quad shapes and
// factories: opaque Term/Quad values a language-bindings layer can
// construct and round-trip, independent of the internal rdf.Term
// interface hierarchy the store itself uses.
package termabi

import (
	"encoding/hex"
	"errors"

	"github.com/google/uuid"
	"github.com/loomdb/loomdb/pkg/rdf"
)

// TermType identifies the concrete shape of a Term, mirroring rdf.TermType.
type TermType byte

const (
	NamedNode TermType = iota + 1
	BlankNode
	Literal
	DefaultGraph
)

func (t TermType) String() string {
	switch t {
	case NamedNode:
		return "NamedNode"
	case BlankNode:
		return "BlankNode"
	case Literal:
		return "Literal"
	case DefaultGraph:
		return "DefaultGraph"
	default:
		return "unknown"
	}
}

// Term is the opaque host-facing term shape: a NamedNode or BlankNode
// carries its identifier in Value; a Literal carries its lexical value
// in Value plus optional Language/Datatype; a DefaultGraph carries
// neither.
type Term struct {
	TermType TermType
	Value    string
	Language string
	Datatype *Term // itself a NamedNode Term, or nil
}

// Quad is a host-facing subject/predicate/object/graph statement. Graph
// is nil for a triple in the default graph.
type Quad struct {
	Subject   *Term
	Predicate *Term
	Object    *Term
	Graph     *Term
}

// ErrInvalidBlankNodeID is returned when a supplied blank node id does
// not parse as a hexadecimal 128-bit number.
var ErrInvalidBlankNodeID = errors.New("termabi: blank node id must be a hexadecimal 128-bit number")

func validateBlankNodeID(id string) error {
	raw, err := hex.DecodeString(id)
	if err != nil || len(raw) != 16 {
		return ErrInvalidBlankNodeID
	}
	return nil
}

// NewNamedNode builds a NamedNode term for iri.
func NewNamedNode(iri string) *Term {
	return &Term{TermType: NamedNode, Value: iri}
}

// NewBlankNode builds a BlankNode term. If id is empty, a fresh 128-bit
// hex id is minted via uuid.New(); a non-empty id that does not parse as
// hex 128-bit is rejected.
func NewBlankNode(id string) (*Term, error) {
	if id == "" {
		u := uuid.New()
		return &Term{TermType: BlankNode, Value: hex.EncodeToString(u[:])}, nil
	}
	if err := validateBlankNodeID(id); err != nil {
		return nil, err
	}
	return &Term{TermType: BlankNode, Value: id}, nil
}

// NewLiteral builds a plain (xsd:string) literal.
func NewLiteral(value string) *Term {
	return &Term{TermType: Literal, Value: value}
}

// NewLangLiteral builds a language-tagged literal.
func NewLangLiteral(value, language string) *Term {
	return &Term{TermType: Literal, Value: value, Language: language}
}

// NewTypedLiteral builds a datatyped literal.
func NewTypedLiteral(value string, datatype *Term) *Term {
	return &Term{TermType: Literal, Value: value, Datatype: datatype}
}

// NewDefaultGraphTerm builds the DefaultGraph singleton shape.
func NewDefaultGraphTerm() *Term {
	return &Term{TermType: DefaultGraph}
}

// NewTriple builds a Quad with Graph left nil (default graph).
func NewTriple(s, p, o *Term) *Quad {
	return &Quad{Subject: s, Predicate: p, Object: o}
}

// NewQuad builds a Quad with an explicit (possibly nil) graph.
func NewQuad(s, p, o, g *Term) *Quad {
	return &Quad{Subject: s, Predicate: p, Object: o, Graph: g}
}
