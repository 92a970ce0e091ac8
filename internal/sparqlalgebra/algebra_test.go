package sparqlalgebra

import (
	"testing"

	"github.com/loomdb/loomdb/internal/sparqlparser"
)

func mustParse(t *testing.T, query string) *sparqlparser.Query {
	t.Helper()
	q, err := sparqlparser.NewParser(query, "").Parse()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return q
}

func TestCompileSelectOrdersScansBySelectivity(t *testing.T) {
	q := mustParse(t, `SELECT * WHERE { ?s ?p ?o . <http://example.com/a> <http://example.com/b> ?x }`)
	compiled, err := Compile(q)
	if err != nil {
		t.Fatal(err)
	}
	join, ok := compiled.Plan.(*JoinPlan)
	if !ok {
		t.Fatalf("expected a JoinPlan at the root, got %T", compiled.Plan)
	}
	left, ok := join.Left.(*ScanPlan)
	if !ok {
		t.Fatalf("expected left side to be a ScanPlan, got %T", join.Left)
	}
	if left.Pattern.Subject.IsVariable() {
		t.Fatalf("expected the more-bound pattern to be reordered first")
	}
}

func TestCompileAskWrapsInLimitOne(t *testing.T) {
	q := mustParse(t, `ASK WHERE { ?s ?p ?o }`)
	compiled, err := Compile(q)
	if err != nil {
		t.Fatal(err)
	}
	limit, ok := compiled.Plan.(*LimitPlan)
	if !ok || limit.Limit != 1 {
		t.Fatalf("expected LimitPlan{Limit: 1} at the root, got %+v", compiled.Plan)
	}
}

func TestCompileConstructWrapsTemplate(t *testing.T) {
	q := mustParse(t, `CONSTRUCT { ?s ?p ?o } WHERE { ?s ?p ?o }`)
	compiled, err := Compile(q)
	if err != nil {
		t.Fatal(err)
	}
	construct, ok := compiled.Plan.(*ConstructPlan)
	if !ok || len(construct.Template) != 1 {
		t.Fatalf("expected a ConstructPlan with 1 template triple, got %+v", compiled.Plan)
	}
}

func TestCompileOptionalProducesOptionalPlan(t *testing.T) {
	q := mustParse(t, `SELECT * WHERE { ?s ?p ?o . OPTIONAL { ?s <http://example.com/extra> ?x } }`)
	compiled, err := Compile(q)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := compiled.Plan.(*OptionalPlan); !ok {
		t.Fatalf("expected an OptionalPlan at the root, got %T", compiled.Plan)
	}
}

func TestCompileUnionProducesUnionPlan(t *testing.T) {
	q := mustParse(t, `SELECT * WHERE { { ?s <http://example.com/a> ?o } UNION { ?s <http://example.com/b> ?o } }`)
	compiled, err := Compile(q)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := compiled.Plan.(*UnionPlan); !ok {
		t.Fatalf("expected a UnionPlan at the root, got %T", compiled.Plan)
	}
}

func TestCompileGraphProducesGraphPlan(t *testing.T) {
	q := mustParse(t, `SELECT * WHERE { GRAPH <http://example.com/g> { ?s ?p ?o } }`)
	compiled, err := Compile(q)
	if err != nil {
		t.Fatal(err)
	}
	graphPlan, ok := compiled.Plan.(*GraphPlan)
	if !ok {
		t.Fatalf("expected a GraphPlan at the root, got %T", compiled.Plan)
	}
	if graphPlan.Graph.IRI == nil || graphPlan.Graph.IRI.IRI != "http://example.com/g" {
		t.Fatalf("unexpected graph term: %+v", graphPlan.Graph)
	}
}

func TestCompileServiceProducesServicePlan(t *testing.T) {
	q := mustParse(t, `SELECT * WHERE { SERVICE SILENT <http://example.com/sparql> { ?s ?p ?o } }`)
	compiled, err := Compile(q)
	if err != nil {
		t.Fatal(err)
	}
	servicePlan, ok := compiled.Plan.(*ServicePlan)
	if !ok {
		t.Fatalf("expected a ServicePlan at the root, got %T", compiled.Plan)
	}
	if !servicePlan.Silent {
		t.Fatalf("expected Silent to be true")
	}
}

func TestCompileFilterWrapsPlan(t *testing.T) {
	q := mustParse(t, `SELECT * WHERE { ?s ?p ?o . FILTER(?o > 5) }`)
	compiled, err := Compile(q)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := compiled.Plan.(*FilterPlan); !ok {
		t.Fatalf("expected a FilterPlan at the root, got %T", compiled.Plan)
	}
}
