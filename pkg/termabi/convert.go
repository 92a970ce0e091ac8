package termabi

import (
	"errors"

	"github.com/loomdb/loomdb/pkg/rdf"
)

// ErrUnknownTermType is returned by FromTerm for a HostTerm reporting a
// TermType outside the four known shapes.
var ErrUnknownTermType = errors.New("termabi: unknown term type")

// HostTerm is the minimal duck-typed shape FromTerm reads off an
// arbitrary host object: a struct (or any type) exposing these four
// accessors, typically a thin wrapper a host-language binding layer
// hands back across its own FFI boundary.
type HostTerm interface {
	TermType() TermType
	Value() string
	Language() string
	Datatype() HostTerm // nil for non-literals and untyped strings
}

// HostQuad is the equivalent duck-typed shape for a quad/triple; Graph
// returns nil for a triple in the default graph.
type HostQuad interface {
	Subject() HostTerm
	Predicate() HostTerm
	Object() HostTerm
	Graph() HostTerm
}

// FromTerm converts an arbitrary HostTerm into this package's Term,
// validating a BlankNode's id the same way NewBlankNode does.
func FromTerm(h HostTerm) (*Term, error) {
	if h == nil {
		return nil, nil
	}
	switch h.TermType() {
	case NamedNode:
		return NewNamedNode(h.Value()), nil
	case BlankNode:
		if err := validateBlankNodeID(h.Value()); err != nil {
			return nil, err
		}
		return &Term{TermType: BlankNode, Value: h.Value()}, nil
	case Literal:
		var datatype *Term
		if dt := h.Datatype(); dt != nil {
			converted, err := FromTerm(dt)
			if err != nil {
				return nil, err
			}
			datatype = converted
		}
		return &Term{TermType: Literal, Value: h.Value(), Language: h.Language(), Datatype: datatype}, nil
	case DefaultGraph:
		return NewDefaultGraphTerm(), nil
	default:
		return nil, ErrUnknownTermType
	}
}

// FromQuad converts an arbitrary HostQuad into this package's Quad.
func FromQuad(h HostQuad) (*Quad, error) {
	s, err := FromTerm(h.Subject())
	if err != nil {
		return nil, err
	}
	p, err := FromTerm(h.Predicate())
	if err != nil {
		return nil, err
	}
	o, err := FromTerm(h.Object())
	if err != nil {
		return nil, err
	}
	g, err := FromTerm(h.Graph())
	if err != nil {
		return nil, err
	}
	return &Quad{Subject: s, Predicate: p, Object: o, Graph: g}, nil
}

// ToRDFTerm lowers a termabi.Term into the internal rdf.Term the store
// operates on.
func ToRDFTerm(t *Term) rdf.Term {
	if t == nil {
		return nil
	}
	switch t.TermType {
	case NamedNode:
		return rdf.NewNamedNode(t.Value)
	case BlankNode:
		return rdf.NewBlankNode(t.Value)
	case Literal:
		switch {
		case t.Language != "":
			return rdf.NewLiteralWithLanguage(t.Value, t.Language)
		case t.Datatype != nil:
			return rdf.NewLiteralWithDatatype(t.Value, rdf.NewNamedNode(t.Datatype.Value))
		default:
			return rdf.NewLiteral(t.Value)
		}
	case DefaultGraph:
		return rdf.NewDefaultGraph()
	default:
		return nil
	}
}

// FromRDFTerm lifts an internal rdf.Term into the host-facing Term shape.
func FromRDFTerm(t rdf.Term) *Term {
	switch v := t.(type) {
	case *rdf.NamedNode:
		return NewNamedNode(v.IRI)
	case *rdf.BlankNode:
		return &Term{TermType: BlankNode, Value: v.ID}
	case *rdf.Literal:
		if v.Language != "" {
			return NewLangLiteral(v.Value, v.Language)
		}
		if v.Datatype != nil {
			return NewTypedLiteral(v.Value, NewNamedNode(v.Datatype.IRI))
		}
		return NewLiteral(v.Value)
	case *rdf.DefaultGraph:
		return NewDefaultGraphTerm()
	default:
		return nil
	}
}

// ToRDFQuad lowers a termabi.Quad into an *rdf.Quad, defaulting a nil
// Graph to the default graph.
func ToRDFQuad(q *Quad) *rdf.Quad {
	graph := ToRDFTerm(q.Graph)
	if graph == nil {
		graph = rdf.NewDefaultGraph()
	}
	return rdf.NewQuad(ToRDFTerm(q.Subject), ToRDFTerm(q.Predicate), ToRDFTerm(q.Object), graph)
}

// FromRDFQuad lifts an *rdf.Quad into the host-facing Quad shape.
func FromRDFQuad(q *rdf.Quad) *Quad {
	return &Quad{
		Subject:   FromRDFTerm(q.Subject),
		Predicate: FromRDFTerm(q.Predicate),
		Object:    FromRDFTerm(q.Object),
		Graph:     FromRDFTerm(q.Graph),
	}
}
