package sparqlparser

import (
	"testing"

	"github.com/loomdb/loomdb/pkg/rdf"
)

func parse(t *testing.T, query string) *Query {
	t.Helper()
	q, err := NewParser(query, "").Parse()
	if err != nil {
		t.Fatalf("parse error: %v\nquery: %s", err, query)
	}
	return q
}

func TestParseSimpleSelectStar(t *testing.T) {
	q := parse(t, `SELECT * WHERE { ?s ?p ?o }`)
	if q.QueryType != QueryTypeSelect {
		t.Fatalf("expected SELECT query type")
	}
	if q.Select.Variables != nil {
		t.Fatalf("expected nil Variables for SELECT *, got %v", q.Select.Variables)
	}
	if len(q.Select.Where.Patterns) != 1 {
		t.Fatalf("expected 1 triple pattern, got %d", len(q.Select.Where.Patterns))
	}
}

func TestParseSelectWithPrefixAndProjection(t *testing.T) {
	query := `
PREFIX ex: <http://example.com/>
SELECT ?name WHERE { ?person ex:name ?name . ?person a ex:Person }`
	q := parse(t, query)
	if len(q.Select.Variables) != 1 || q.Select.Variables[0].Name != "name" {
		t.Fatalf("expected single projected variable 'name', got %+v", q.Select.Variables)
	}
	patterns := q.Select.Where.Patterns
	if len(patterns) != 2 {
		t.Fatalf("expected 2 triple patterns, got %d", len(patterns))
	}
	wantType := rdf.NewNamedNode("http://www.w3.org/1999/02/22-rdf-syntax-ns#type")
	if patterns[1].Predicate.Term == nil || !patterns[1].Predicate.Term.Equals(wantType) {
		t.Fatalf("expected 'a' to expand to rdf:type, got %+v", patterns[1].Predicate.Term)
	}
}

func TestParseDistinctAndSolutionModifiers(t *testing.T) {
	q := parse(t, `SELECT DISTINCT ?s WHERE { ?s ?p ?o } ORDER BY ?s LIMIT 10 OFFSET 5`)
	if !q.Select.Distinct {
		t.Fatalf("expected Distinct to be true")
	}
	if q.Select.Limit == nil || *q.Select.Limit != 10 {
		t.Fatalf("expected limit 10, got %v", q.Select.Limit)
	}
	if q.Select.Offset == nil || *q.Select.Offset != 5 {
		t.Fatalf("expected offset 5, got %v", q.Select.Offset)
	}
	if len(q.Select.OrderBy) != 1 {
		t.Fatalf("expected 1 order condition")
	}
}

func TestParseAsk(t *testing.T) {
	q := parse(t, `ASK WHERE { ?s ?p ?o }`)
	if q.QueryType != QueryTypeAsk || q.Ask == nil {
		t.Fatalf("expected ASK query")
	}
}

func TestParseConstruct(t *testing.T) {
	query := `CONSTRUCT { ?s ?p ?o } WHERE { ?s ?p ?o }`
	q := parse(t, query)
	if q.QueryType != QueryTypeConstruct || len(q.Construct.Template) != 1 {
		t.Fatalf("expected CONSTRUCT with 1 template triple")
	}
}

func TestParseOptionalAndUnion(t *testing.T) {
	query := `
SELECT * WHERE {
  ?s ?p ?o .
  OPTIONAL { ?s <http://example.com/extra> ?x }
  { ?s <http://example.com/a> ?y } UNION { ?s <http://example.com/b> ?y }
}`
	q := parse(t, query)
	var sawOptional, sawUnion bool
	for _, child := range q.Select.Where.Children {
		switch child.Type {
		case GraphPatternTypeOptional:
			sawOptional = true
		case GraphPatternTypeUnion:
			sawUnion = true
			if len(child.Children) != 2 {
				t.Fatalf("expected 2 UNION operands, got %d", len(child.Children))
			}
		}
	}
	if !sawOptional {
		t.Fatalf("expected an OPTIONAL child pattern")
	}
	if !sawUnion {
		t.Fatalf("expected a UNION child pattern")
	}
}

func TestParseGraphPattern(t *testing.T) {
	query := `SELECT * WHERE { GRAPH <http://example.com/g> { ?s ?p ?o } }`
	q := parse(t, query)
	if len(q.Select.Where.Children) != 1 {
		t.Fatalf("expected 1 child pattern")
	}
	child := q.Select.Where.Children[0]
	if child.Type != GraphPatternTypeGraph || child.Graph == nil || child.Graph.IRI == nil {
		t.Fatalf("expected a GRAPH pattern with a bound IRI, got %+v", child)
	}
	if child.Graph.IRI.IRI != "http://example.com/g" {
		t.Fatalf("unexpected graph IRI: %s", child.Graph.IRI.IRI)
	}
}

func TestParseServiceSilent(t *testing.T) {
	query := `SELECT * WHERE { SERVICE SILENT <http://example.com/sparql> { ?s ?p ?o } }`
	q := parse(t, query)
	child := q.Select.Where.Children[0]
	if child.Type != GraphPatternTypeService || !child.Silent {
		t.Fatalf("expected a SILENT SERVICE pattern, got %+v", child)
	}
	if child.Graph.IRI.IRI != "http://example.com/sparql" {
		t.Fatalf("unexpected service IRI: %s", child.Graph.IRI.IRI)
	}
}

func TestParseFilterBuildsExpressionTree(t *testing.T) {
	query := `SELECT * WHERE { ?s ?p ?o . FILTER(?o > 5 && ?o < 10) }`
	q := parse(t, query)
	if len(q.Select.Where.Filters) != 1 {
		t.Fatalf("expected 1 filter, got %d", len(q.Select.Where.Filters))
	}
	expr, ok := q.Select.Where.Filters[0].Expression.(*BinaryExpression)
	if !ok {
		t.Fatalf("expected top-level expression to be a BinaryExpression, got %T", q.Select.Where.Filters[0].Expression)
	}
	if expr.Operator != OpAnd {
		t.Fatalf("expected top-level operator AND, got %v", expr.Operator)
	}
	left, ok := expr.Left.(*BinaryExpression)
	if !ok || left.Operator != OpGreaterThan {
		t.Fatalf("expected left operand '?o > 5', got %+v", expr.Left)
	}
}

func TestParseFilterFunctionCall(t *testing.T) {
	query := `SELECT * WHERE { ?s ?p ?o . FILTER(REGEX(?o, "^foo")) }`
	q := parse(t, query)
	fn, ok := q.Select.Where.Filters[0].Expression.(*FunctionCallExpression)
	if !ok {
		t.Fatalf("expected a FunctionCallExpression, got %T", q.Select.Where.Filters[0].Expression)
	}
	if fn.Function != "REGEX" || len(fn.Arguments) != 2 {
		t.Fatalf("expected REGEX(?o, \"^foo\"), got %+v", fn)
	}
}

func TestParseFilterUnaryNotAndNegation(t *testing.T) {
	query := `SELECT * WHERE { ?s ?p ?o . FILTER(!BOUND(?o) || -?o < 0) }`
	q := parse(t, query)
	top, ok := q.Select.Where.Filters[0].Expression.(*BinaryExpression)
	if !ok || top.Operator != OpOr {
		t.Fatalf("expected top-level OR expression, got %+v", q.Select.Where.Filters[0].Expression)
	}
	not, ok := top.Left.(*UnaryExpression)
	if !ok || not.Operator != OpNot {
		t.Fatalf("expected left operand to be a NOT expression, got %+v", top.Left)
	}
}

func TestParseNumericAndStringLiterals(t *testing.T) {
	query := `SELECT * WHERE { ?s ?p 42 . ?s ?p "hello"@en . ?s ?p "3.5"^^<http://www.w3.org/2001/XMLSchema#decimal> }`
	q := parse(t, query)
	if len(q.Select.Where.Patterns) != 3 {
		t.Fatalf("expected 3 patterns, got %d", len(q.Select.Where.Patterns))
	}
}

func TestParseRejectsMissingWhere(t *testing.T) {
	_, err := NewParser(`SELECT * { ?s ?p ?o }`, "").Parse()
	if err == nil {
		t.Fatalf("expected an error for a missing WHERE keyword")
	}
}
