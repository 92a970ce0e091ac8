package rdfio

import (
	"fmt"
	"strings"

	"github.com/loomdb/loomdb/pkg/rdf"
)

// parseNTriplesFamily parses the shared N-Triples/N-Quads line grammar:
// <subject> <predicate> <object> [<graph>] . No @prefix/@base
// extensions, since N-Triples/N-Quads do not have them.
func parseNTriplesFamily(input string, allowGraph bool) ([]*rdf.Quad, error) {
	p := &ntParser{input: input, length: len(input)}
	var quads []*rdf.Quad
	for {
		p.skipWhitespaceAndComments()
		if p.pos >= p.length {
			break
		}
		q, err := p.parseStatement(allowGraph)
		if err != nil {
			return nil, err
		}
		quads = append(quads, q)
	}
	return quads, nil
}

type ntParser struct {
	input  string
	pos    int
	length int
}

func (p *ntParser) skipWhitespaceAndComments() {
	for p.pos < p.length {
		ch := p.input[p.pos]
		if ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' {
			p.pos++
			continue
		}
		if ch == '#' {
			for p.pos < p.length && p.input[p.pos] != '\n' {
				p.pos++
			}
			continue
		}
		break
	}
}

func (p *ntParser) skipSpaces() {
	for p.pos < p.length && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}

func (p *ntParser) parseStatement(allowGraph bool) (*rdf.Quad, error) {
	subject, err := p.parseSubject()
	if err != nil {
		return nil, err
	}
	p.skipSpaces()
	predicate, err := p.parseIRIRef()
	if err != nil {
		return nil, fmt.Errorf("rdfio: predicate: %w", err)
	}
	p.skipSpaces()
	object, err := p.parseObject()
	if err != nil {
		return nil, err
	}
	p.skipSpaces()

	var graph rdf.Term = rdf.NewDefaultGraph()
	if allowGraph && p.pos < p.length && p.input[p.pos] != '.' {
		g, err := p.parseSubject()
		if err != nil {
			return nil, fmt.Errorf("rdfio: graph label: %w", err)
		}
		graph = g
		p.skipSpaces()
	}

	if p.pos >= p.length || p.input[p.pos] != '.' {
		return nil, fmt.Errorf("rdfio: expected '.' terminator at offset %d", p.pos)
	}
	p.pos++
	return rdf.NewQuad(subject, predicate, object, graph), nil
}

func (p *ntParser) parseSubject() (rdf.Term, error) {
	if p.pos >= p.length {
		return nil, fmt.Errorf("rdfio: unexpected end of input parsing subject")
	}
	switch p.input[p.pos] {
	case '<':
		return p.parseIRIRef()
	case '_':
		return p.parseBlankNode()
	default:
		return nil, fmt.Errorf("rdfio: expected IRI or blank node at offset %d", p.pos)
	}
}

func (p *ntParser) parseObject() (rdf.Term, error) {
	if p.pos >= p.length {
		return nil, fmt.Errorf("rdfio: unexpected end of input parsing object")
	}
	switch p.input[p.pos] {
	case '<':
		return p.parseIRIRef()
	case '_':
		return p.parseBlankNode()
	case '"':
		return p.parseLiteral()
	default:
		return nil, fmt.Errorf("rdfio: expected IRI, blank node or literal at offset %d", p.pos)
	}
}

func (p *ntParser) parseIRIRef() (*rdf.NamedNode, error) {
	if p.pos >= p.length || p.input[p.pos] != '<' {
		return nil, fmt.Errorf("rdfio: expected '<' at offset %d", p.pos)
	}
	start := p.pos + 1
	end := strings.IndexByte(p.input[start:], '>')
	if end < 0 {
		return nil, fmt.Errorf("rdfio: unterminated IRI reference at offset %d", p.pos)
	}
	iri := p.input[start : start+end]
	p.pos = start + end + 1
	return rdf.NewNamedNode(iri), nil
}

func (p *ntParser) parseBlankNode() (*rdf.BlankNode, error) {
	if !strings.HasPrefix(p.input[p.pos:], "_:") {
		return nil, fmt.Errorf("rdfio: expected '_:' at offset %d", p.pos)
	}
	p.pos += 2
	start := p.pos
	for p.pos < p.length && isBlankNodeLabelChar(p.input[p.pos]) {
		p.pos++
	}
	if p.pos == start {
		return nil, fmt.Errorf("rdfio: empty blank node label at offset %d", p.pos)
	}
	return rdf.NewBlankNode(p.input[start:p.pos]), nil
}

func isBlankNodeLabelChar(ch byte) bool {
	return ch == '.' || ch == '-' || ch == '_' ||
		(ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9')
}

func (p *ntParser) parseLiteral() (*rdf.Literal, error) {
	if p.pos >= p.length || p.input[p.pos] != '"' {
		return nil, fmt.Errorf("rdfio: expected '\"' at offset %d", p.pos)
	}
	p.pos++
	start := p.pos
	var raw strings.Builder
	for p.pos < p.length {
		ch := p.input[p.pos]
		if ch == '"' {
			break
		}
		if ch == '\\' {
			raw.WriteByte(ch)
			p.pos++
			if p.pos >= p.length {
				return nil, fmt.Errorf("rdfio: dangling escape in literal at offset %d", start)
			}
		}
		raw.WriteByte(p.input[p.pos])
		p.pos++
	}
	if p.pos >= p.length {
		return nil, fmt.Errorf("rdfio: unterminated literal starting at offset %d", start)
	}
	p.pos++ // closing quote

	value, err := rdf.UnescapeStringLiteral(raw.String())
	if err != nil {
		return nil, fmt.Errorf("rdfio: literal at offset %d: %w", start, err)
	}

	switch {
	case p.pos < p.length && p.input[p.pos] == '@':
		p.pos++
		langStart := p.pos
		for p.pos < p.length && isLangTagChar(p.input[p.pos]) {
			p.pos++
		}
		return rdf.NewLiteralWithLanguage(value, p.input[langStart:p.pos]), nil
	case p.pos+1 < p.length && p.input[p.pos] == '^' && p.input[p.pos+1] == '^':
		p.pos += 2
		dt, err := p.parseIRIRef()
		if err != nil {
			return nil, fmt.Errorf("rdfio: literal datatype: %w", err)
		}
		return rdf.NewLiteralWithDatatype(value, dt), nil
	default:
		return rdf.NewLiteral(value), nil
	}
}

func isLangTagChar(ch byte) bool {
	return ch == '-' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9')
}
