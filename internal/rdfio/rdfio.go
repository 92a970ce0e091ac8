// Package rdfio implements bulk-loader parsers: complete
// N-Triples/N-Quads, a trimmed Turtle/TriG subset, and a trimmed
// RDF/XML subset. The trimmed grammars skip collections, reification
// shorthand, and nested blank-node property lists beyond one level,
// since a bulk loader does not need the full grammar.
package rdfio

import (
	"fmt"
	"io"

	"github.com/loomdb/loomdb/pkg/rdf"
)

// Syntax identifies one of the five RDF serializations the loader accepts.
type Syntax int

const (
	NTriples Syntax = iota
	Turtle
	RdfXML
	NQuads
	TriG
)

func (s Syntax) String() string {
	switch s {
	case NTriples:
		return "NTriples"
	case Turtle:
		return "Turtle"
	case RdfXML:
		return "RdfXml"
	case NQuads:
		return "NQuads"
	case TriG:
		return "TriG"
	default:
		return "unknown"
	}
}

// ParseGraph parses a single-graph syntax (NTriples, Turtle, RdfXML) into
// a flat triple list.
func ParseGraph(r io.Reader, syntax Syntax, baseIRI string) ([]*rdf.Triple, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("rdfio: reading input: %w", err)
	}
	switch syntax {
	case NTriples:
		quads, err := parseNTriplesFamily(string(data), false)
		if err != nil {
			return nil, err
		}
		return quadsToTriples(quads), nil
	case Turtle:
		return newTurtleParser(string(data), baseIRI).parseTurtle()
	case RdfXML:
		return parseRDFXML(data, baseIRI)
	default:
		return nil, fmt.Errorf("rdfio: %s is a dataset syntax, use ParseDataset", syntax)
	}
}

// ParseDataset parses a multi-graph syntax (NQuads, TriG) into a flat
// quad list.
func ParseDataset(r io.Reader, syntax Syntax, baseIRI string) ([]*rdf.Quad, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("rdfio: reading input: %w", err)
	}
	switch syntax {
	case NQuads:
		return parseNTriplesFamily(string(data), true)
	case TriG:
		return newTurtleParser(string(data), baseIRI).parseTriG()
	default:
		return nil, fmt.Errorf("rdfio: %s is a single-graph syntax, use ParseGraph", syntax)
	}
}

func quadsToTriples(quads []*rdf.Quad) []*rdf.Triple {
	triples := make([]*rdf.Triple, len(quads))
	for i, q := range quads {
		triples[i] = q.ToTriple()
	}
	return triples
}
