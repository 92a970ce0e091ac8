package sparqlparser

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/loomdb/loomdb/pkg/rdf"
)

// Parser parses a SPARQL 1.1 query string.
type Parser struct {
	input    string
	pos      int
	length   int
	prefixes map[string]string
	baseIRI  string
}

// NewParser builds a Parser for input. baseIRI resolves PREFIX/BASE-free
// relative IRIs and is overridden by any BASE directive in the query.
func NewParser(input, baseIRI string) *Parser {
	return &Parser{input: input, length: len(input), prefixes: make(map[string]string), baseIRI: baseIRI}
}

// Parse parses the query.
func (p *Parser) Parse() (*Query, error) {
	p.skipWhitespace()
	for {
		p.skipWhitespace()
		switch {
		case p.matchKeyword("PREFIX"):
			if err := p.parsePrefixDecl(); err != nil {
				return nil, err
			}
		case p.matchKeyword("BASE"):
			iri, err := p.parseIRIRef()
			if err != nil {
				return nil, fmt.Errorf("sparqlparser: BASE: %w", err)
			}
			p.baseIRI = iri
		default:
			goto body
		}
	}
body:
	queryType, err := p.parseQueryType()
	if err != nil {
		return nil, err
	}
	query := &Query{QueryType: queryType}
	switch queryType {
	case QueryTypeSelect:
		query.Select, err = p.parseSelect()
	case QueryTypeAsk:
		query.Ask, err = p.parseAsk()
	case QueryTypeConstruct:
		query.Construct, err = p.parseConstruct()
	}
	if err != nil {
		return nil, err
	}
	return query, nil
}

func (p *Parser) parsePrefixDecl() error {
	p.skipWhitespace()
	name := p.readWhile(func(ch byte) bool { return ch != ':' && ch != ' ' && ch != '\t' && ch != '\n' })
	if p.peek() != ':' {
		return fmt.Errorf("sparqlparser: expected ':' in PREFIX declaration")
	}
	p.advance()
	p.skipWhitespace()
	iri, err := p.parseIRIRef()
	if err != nil {
		return fmt.Errorf("sparqlparser: PREFIX %s: %w", name, err)
	}
	p.prefixes[name] = iri
	return nil
}

func (p *Parser) parseQueryType() (QueryType, error) {
	p.skipWhitespace()
	switch {
	case p.matchKeyword("SELECT"):
		return QueryTypeSelect, nil
	case p.matchKeyword("ASK"):
		return QueryTypeAsk, nil
	case p.matchKeyword("CONSTRUCT"):
		return QueryTypeConstruct, nil
	default:
		return 0, fmt.Errorf("sparqlparser: expected SELECT, ASK or CONSTRUCT")
	}
}

func (p *Parser) parseSelect() (*SelectQuery, error) {
	q := &SelectQuery{}
	p.skipWhitespace()
	if p.matchKeyword("DISTINCT") {
		q.Distinct = true
	}
	vars, err := p.parseProjection()
	if err != nil {
		return nil, err
	}
	q.Variables = vars

	if err := p.expectKeyword("WHERE"); err != nil {
		return nil, err
	}
	where, err := p.parseGraphPattern()
	if err != nil {
		return nil, err
	}
	q.Where = where
	if err := p.parseSolutionModifiers(&q.OrderBy, &q.Limit, &q.Offset); err != nil {
		return nil, err
	}
	return q, nil
}

func (p *Parser) parseAsk() (*AskQuery, error) {
	if err := p.expectKeyword("WHERE"); err != nil {
		return nil, err
	}
	where, err := p.parseGraphPattern()
	if err != nil {
		return nil, err
	}
	return &AskQuery{Where: where}, nil
}

func (p *Parser) parseConstruct() (*ConstructQuery, error) {
	p.skipWhitespace()
	if p.peek() != '{' {
		return nil, fmt.Errorf("sparqlparser: expected '{' after CONSTRUCT")
	}
	p.advance()
	var template []*TriplePattern
	for {
		p.skipWhitespace()
		if p.peek() == '}' {
			p.advance()
			break
		}
		triple, err := p.parseTriplePattern()
		if err != nil {
			return nil, err
		}
		template = append(template, triple)
		p.skipWhitespace()
		if p.peek() == '.' {
			p.advance()
		}
	}
	if err := p.expectKeyword("WHERE"); err != nil {
		return nil, err
	}
	where, err := p.parseGraphPattern()
	if err != nil {
		return nil, err
	}
	q := &ConstructQuery{Template: template, Where: where}
	if err := p.parseSolutionModifiers(&q.OrderBy, &q.Limit, &q.Offset); err != nil {
		return nil, err
	}
	return q, nil
}

func (p *Parser) parseSolutionModifiers(orderBy *[]*OrderCondition, limit, offset **int) error {
	p.skipWhitespace()
	if p.matchKeyword("ORDER") {
		if err := p.expectKeyword("BY"); err != nil {
			return err
		}
		conds, err := p.parseOrderBy()
		if err != nil {
			return err
		}
		*orderBy = conds
	}
	p.skipWhitespace()
	if p.matchKeyword("LIMIT") {
		n, err := p.parseInteger()
		if err != nil {
			return fmt.Errorf("sparqlparser: LIMIT: %w", err)
		}
		*limit = &n
	}
	p.skipWhitespace()
	if p.matchKeyword("OFFSET") {
		n, err := p.parseInteger()
		if err != nil {
			return fmt.Errorf("sparqlparser: OFFSET: %w", err)
		}
		*offset = &n
	}
	return nil
}

func (p *Parser) parseProjection() ([]*Variable, error) {
	p.skipWhitespace()
	if p.peek() == '*' {
		p.advance()
		return nil, nil
	}
	var vars []*Variable
	for {
		p.skipWhitespace()
		if p.peek() != '?' && p.peek() != '$' {
			break
		}
		v, err := p.parseVariable()
		if err != nil {
			return nil, err
		}
		vars = append(vars, v)
	}
	if len(vars) == 0 {
		return nil, fmt.Errorf("sparqlparser: expected '*' or at least one variable in SELECT")
	}
	return vars, nil
}

func (p *Parser) parseGraphPattern() (*GraphPattern, error) {
	p.skipWhitespace()
	if p.peek() != '{' {
		return nil, fmt.Errorf("sparqlparser: expected '{'")
	}
	p.advance()

	pattern := &GraphPattern{Type: GraphPatternTypeBasic}
	for {
		p.skipWhitespace()
		if p.peek() == '}' {
			p.advance()
			break
		}
		switch {
		case p.matchKeyword("GRAPH"):
			child, err := p.parseGraphGraphPattern()
			if err != nil {
				return nil, err
			}
			pattern.Children = append(pattern.Children, child)
		case p.matchKeyword("SERVICE"):
			child, err := p.parseServiceGraphPattern()
			if err != nil {
				return nil, err
			}
			pattern.Children = append(pattern.Children, child)
		case p.matchKeyword("OPTIONAL"):
			child, err := p.parseGraphPattern()
			if err != nil {
				return nil, err
			}
			child.Type = GraphPatternTypeOptional
			pattern.Children = append(pattern.Children, child)
		case p.matchKeyword("FILTER"):
			filter, err := p.parseFilter()
			if err != nil {
				return nil, err
			}
			pattern.Filters = append(pattern.Filters, filter)
		case p.peek() == '{':
			left, err := p.parseGraphPattern()
			if err != nil {
				return nil, err
			}
			p.skipWhitespace()
			if p.matchKeyword("UNION") {
				right, err := p.parseGraphPattern()
				if err != nil {
					return nil, err
				}
				pattern.Children = append(pattern.Children, &GraphPattern{
					Type:     GraphPatternTypeUnion,
					Children: []*GraphPattern{left, right},
				})
			} else {
				pattern.Children = append(pattern.Children, left)
			}
		default:
			triple, err := p.parseTriplePattern()
			if err != nil {
				return nil, err
			}
			pattern.Patterns = append(pattern.Patterns, triple)
			p.skipWhitespace()
			if p.peek() == '.' {
				p.advance()
			}
		}
	}
	return pattern, nil
}

func (p *Parser) parseGraphTerm() (*GraphTerm, error) {
	p.skipWhitespace()
	if p.peek() == '?' || p.peek() == '$' {
		v, err := p.parseVariable()
		if err != nil {
			return nil, err
		}
		return &GraphTerm{Variable: v}, nil
	}
	iri, err := p.parseIRIOrPrefixedName()
	if err != nil {
		return nil, err
	}
	return &GraphTerm{IRI: rdf.NewNamedNode(iri)}, nil
}

func (p *Parser) parseGraphGraphPattern() (*GraphPattern, error) {
	graphTerm, err := p.parseGraphTerm()
	if err != nil {
		return nil, fmt.Errorf("sparqlparser: GRAPH: %w", err)
	}
	nested, err := p.parseGraphPattern()
	if err != nil {
		return nil, err
	}
	nested.Type = GraphPatternTypeGraph
	nested.Graph = graphTerm
	return nested, nil
}

func (p *Parser) parseServiceGraphPattern() (*GraphPattern, error) {
	p.skipWhitespace()
	silent := p.matchKeyword("SILENT")
	graphTerm, err := p.parseGraphTerm()
	if err != nil {
		return nil, fmt.Errorf("sparqlparser: SERVICE: %w", err)
	}
	nested, err := p.parseGraphPattern()
	if err != nil {
		return nil, err
	}
	nested.Type = GraphPatternTypeService
	nested.Graph = graphTerm
	nested.Silent = silent
	return nested, nil
}

func (p *Parser) parseTriplePattern() (*TriplePattern, error) {
	s, err := p.parseTermOrVariable()
	if err != nil {
		return nil, fmt.Errorf("sparqlparser: subject: %w", err)
	}
	pred, err := p.parsePredicateTermOrVariable()
	if err != nil {
		return nil, fmt.Errorf("sparqlparser: predicate: %w", err)
	}
	o, err := p.parseTermOrVariable()
	if err != nil {
		return nil, fmt.Errorf("sparqlparser: object: %w", err)
	}
	return &TriplePattern{Subject: *s, Predicate: *pred, Object: *o}, nil
}

func (p *Parser) parsePredicateTermOrVariable() (*TermOrVariable, error) {
	p.skipWhitespace()
	nextCh := byte(0)
	if p.pos+1 < p.length {
		nextCh = p.input[p.pos+1]
	}
	if p.peek() == 'a' && p.isWordBoundaryAt(p.pos+1) && nextCh != ':' {
		p.advance()
		return &TermOrVariable{Term: rdf.NewNamedNode(rdfNS + "type")}, nil
	}
	return p.parseTermOrVariable()
}

const rdfNS = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"

func (p *Parser) parseTermOrVariable() (*TermOrVariable, error) {
	p.skipWhitespace()
	switch ch := p.peek(); {
	case ch == '?' || ch == '$':
		v, err := p.parseVariable()
		if err != nil {
			return nil, err
		}
		return &TermOrVariable{Variable: v}, nil
	case ch == '<':
		iri, err := p.parseIRIRef()
		if err != nil {
			return nil, err
		}
		return &TermOrVariable{Term: rdf.NewNamedNode(iri)}, nil
	case ch == '_':
		bn, err := p.parseBlankNode()
		if err != nil {
			return nil, err
		}
		return &TermOrVariable{Term: bn}, nil
	case ch == '"' || ch == '\'':
		lit, err := p.parseStringLiteral()
		if err != nil {
			return nil, err
		}
		return &TermOrVariable{Term: lit}, nil
	case ch >= '0' && ch <= '9', ch == '+', ch == '-':
		lit, err := p.parseNumericLiteral()
		if err != nil {
			return nil, err
		}
		return &TermOrVariable{Term: lit}, nil
	case p.matchKeywordNoAdvanceCheck("true"):
		p.advanceN(4)
		return &TermOrVariable{Term: rdf.NewBooleanLiteral(true)}, nil
	case p.matchKeywordNoAdvanceCheck("false"):
		p.advanceN(5)
		return &TermOrVariable{Term: rdf.NewBooleanLiteral(false)}, nil
	default:
		iri, err := p.parseIRIOrPrefixedName()
		if err != nil {
			return nil, fmt.Errorf("sparqlparser: expected term at offset %d", p.pos)
		}
		return &TermOrVariable{Term: rdf.NewNamedNode(iri)}, nil
	}
}

func (p *Parser) matchKeywordNoAdvanceCheck(kw string) bool {
	if p.pos+len(kw) > p.length {
		return false
	}
	if !strings.EqualFold(p.input[p.pos:p.pos+len(kw)], kw) {
		return false
	}
	return p.isWordBoundaryAt(p.pos + len(kw))
}

func (p *Parser) advanceN(n int) { p.pos += n }

func (p *Parser) isWordBoundaryAt(i int) bool {
	if i >= p.length {
		return true
	}
	ch := p.input[i]
	return !(ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch >= '0' && ch <= '9' || ch == '_')
}

func (p *Parser) parseVariable() (*Variable, error) {
	if p.peek() != '?' && p.peek() != '$' {
		return nil, fmt.Errorf("sparqlparser: expected '?' or '$' at offset %d", p.pos)
	}
	p.advance()
	name := p.readWhile(func(ch byte) bool {
		return ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch >= '0' && ch <= '9' || ch == '_'
	})
	if name == "" {
		return nil, fmt.Errorf("sparqlparser: empty variable name at offset %d", p.pos)
	}
	return &Variable{Name: name}, nil
}

func (p *Parser) parseIRIRef() (string, error) {
	if p.peek() != '<' {
		return "", fmt.Errorf("sparqlparser: expected '<' at offset %d", p.pos)
	}
	p.advance()
	start := p.pos
	for p.pos < p.length && p.input[p.pos] != '>' {
		p.pos++
	}
	if p.pos >= p.length {
		return "", fmt.Errorf("sparqlparser: unterminated IRI reference")
	}
	iri := p.input[start:p.pos]
	p.advance()
	if p.baseIRI != "" {
		if ref, err := url.Parse(iri); err == nil && !ref.IsAbs() {
			if base, err := url.Parse(p.baseIRI); err == nil {
				iri = base.ResolveReference(ref).String()
			}
		}
	}
	return iri, nil
}

func (p *Parser) parseIRIOrPrefixedName() (string, error) {
	p.skipWhitespace()
	if p.peek() == '<' {
		return p.parseIRIRef()
	}
	prefix := p.readWhile(func(ch byte) bool { return ch != ':' && ch != ' ' && ch != '\t' && ch != '\n' && ch != '}' && ch != '.' })
	if p.peek() != ':' {
		return "", fmt.Errorf("sparqlparser: expected prefixed name or IRI at offset %d", p.pos)
	}
	p.advance()
	local := p.readWhile(func(ch byte) bool {
		return ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch >= '0' && ch <= '9' || ch == '_' || ch == '-'
	})
	base, ok := p.prefixes[prefix]
	if !ok {
		return "", fmt.Errorf("sparqlparser: undeclared prefix %q", prefix)
	}
	return base + local, nil
}

func (p *Parser) parseBlankNode() (*rdf.BlankNode, error) {
	if !strings.HasPrefix(p.input[p.pos:], "_:") {
		return nil, fmt.Errorf("sparqlparser: expected '_:' at offset %d", p.pos)
	}
	p.pos += 2
	label := p.readWhile(func(ch byte) bool {
		return ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch >= '0' && ch <= '9' || ch == '_' || ch == '-'
	})
	return rdf.NewBlankNode(label), nil
}

func (p *Parser) parseStringLiteral() (*rdf.Literal, error) {
	quote := p.peek()
	p.advance()
	start := p.pos
	var raw strings.Builder
	for p.pos < p.length && p.input[p.pos] != quote {
		if p.input[p.pos] == '\\' {
			raw.WriteByte(p.input[p.pos])
			p.pos++
			if p.pos >= p.length {
				return nil, fmt.Errorf("sparqlparser: dangling escape in literal at offset %d", start)
			}
		}
		raw.WriteByte(p.input[p.pos])
		p.pos++
	}
	if p.pos >= p.length {
		return nil, fmt.Errorf("sparqlparser: unterminated string literal at offset %d", start)
	}
	p.advance()

	value, err := rdf.UnescapeStringLiteral(raw.String())
	if err != nil {
		return nil, fmt.Errorf("sparqlparser: literal at offset %d: %w", start, err)
	}

	switch {
	case p.peek() == '@':
		p.advance()
		lang := p.readWhile(func(ch byte) bool {
			return ch == '-' || ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch >= '0' && ch <= '9'
		})
		return rdf.NewLiteralWithLanguage(value, lang), nil
	case strings.HasPrefix(p.input[p.pos:], "^^"):
		p.pos += 2
		dt, err := p.parseIRIOrPrefixedName()
		if err != nil {
			return nil, fmt.Errorf("sparqlparser: literal datatype: %w", err)
		}
		return rdf.NewLiteralWithDatatype(value, rdf.NewNamedNode(dt)), nil
	default:
		return rdf.NewLiteral(value), nil
	}
}

func (p *Parser) parseNumericLiteral() (*rdf.Literal, error) {
	start := p.pos
	if p.peek() == '+' || p.peek() == '-' {
		p.advance()
	}
	hasDot, hasExp := false, false
	for p.pos < p.length {
		ch := p.input[p.pos]
		switch {
		case ch >= '0' && ch <= '9':
			p.pos++
		case ch == '.' && !hasDot:
			hasDot = true
			p.pos++
		case (ch == 'e' || ch == 'E') && !hasExp:
			hasExp = true
			p.pos++
			if p.pos < p.length && (p.input[p.pos] == '+' || p.input[p.pos] == '-') {
				p.pos++
			}
		default:
			goto done
		}
	}
done:
	lexical := p.input[start:p.pos]
	if lexical == "" {
		return nil, fmt.Errorf("sparqlparser: expected numeric literal at offset %d", start)
	}
	switch {
	case hasExp:
		return rdf.NewLiteralWithDatatype(lexical, rdf.XSDDouble), nil
	case hasDot:
		return rdf.NewLiteralWithDatatype(lexical, rdf.XSDDecimal), nil
	default:
		return rdf.NewLiteralWithDatatype(lexical, rdf.XSDInteger), nil
	}
}

func (p *Parser) parseOrderBy() ([]*OrderCondition, error) {
	var conds []*OrderCondition
	for {
		p.skipWhitespace()
		ascending := true
		switch {
		case p.matchKeyword("DESC"):
			ascending = false
		case p.matchKeyword("ASC"):
			ascending = true
		}
		p.skipWhitespace()
		var expr Expression
		if p.peek() == '(' {
			p.advance()
			e, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			p.skipWhitespace()
			if p.peek() != ')' {
				return nil, fmt.Errorf("sparqlparser: expected ')' closing ORDER BY expression")
			}
			p.advance()
			expr = e
		} else if p.peek() == '?' || p.peek() == '$' {
			v, err := p.parseVariable()
			if err != nil {
				return nil, err
			}
			expr = &VariableExpression{Variable: v}
		} else {
			break
		}
		conds = append(conds, &OrderCondition{Expression: expr, Ascending: ascending})
	}
	if len(conds) == 0 {
		return nil, fmt.Errorf("sparqlparser: expected at least one ORDER BY condition")
	}
	return conds, nil
}

func (p *Parser) parseInteger() (int, error) {
	p.skipWhitespace()
	numStr := p.readWhile(func(ch byte) bool { return ch >= '0' && ch <= '9' })
	if numStr == "" {
		return 0, fmt.Errorf("sparqlparser: expected integer at offset %d", p.pos)
	}
	return strconv.Atoi(numStr)
}

// --- low-level scanning helpers ---

func (p *Parser) peek() byte {
	if p.pos >= p.length {
		return 0
	}
	return p.input[p.pos]
}

func (p *Parser) advance() { p.pos++ }

func (p *Parser) skipWhitespace() {
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

func (p *Parser) readWhile(pred func(byte) bool) string {
	start := p.pos
	for p.pos < p.length && pred(p.input[p.pos]) {
		p.pos++
	}
	return p.input[start:p.pos]
}

func (p *Parser) matchKeyword(keyword string) bool {
	p.skipWhitespace()
	if p.pos+len(keyword) > p.length {
		return false
	}
	if !strings.EqualFold(p.input[p.pos:p.pos+len(keyword)], keyword) {
		return false
	}
	if !p.isWordBoundaryAt(p.pos + len(keyword)) {
		return false
	}
	p.pos += len(keyword)
	return true
}

func (p *Parser) expectKeyword(keyword string) error {
	if !p.matchKeyword(keyword) {
		return fmt.Errorf("sparqlparser: expected %s at offset %d", keyword, p.pos)
	}
	return nil
}
