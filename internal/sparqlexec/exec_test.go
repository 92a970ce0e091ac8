package sparqlexec

import (
	"fmt"
	"testing"

	"github.com/loomdb/loomdb/internal/sparqlalgebra"
	"github.com/loomdb/loomdb/internal/sparqlparser"
	"github.com/loomdb/loomdb/pkg/quadstore"
	"github.com/loomdb/loomdb/pkg/rdf"
)

func mustExecute(t *testing.T, store *quadstore.Store, query string, options Options) Result {
	t.Helper()
	parsed, err := sparqlparser.NewParser(query, "").Parse()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	compiled, err := sparqlalgebra.Compile(parsed)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	var selectVars []*sparqlparser.Variable
	if parsed.Select != nil {
		selectVars = parsed.Select.Variables
	}
	result, err := NewExecutor(store, options).Execute(compiled, selectVars)
	if err != nil {
		t.Fatalf("execute error: %v", err)
	}
	return result
}

func seedStore(t *testing.T) *quadstore.Store {
	t.Helper()
	store := quadstore.New()
	quads := []*rdf.Quad{
		rdf.NewQuad(rdf.NewNamedNode("http://example.com/alice"), rdf.NewNamedNode("http://example.com/name"), rdf.NewLiteral("Alice"), rdf.NewDefaultGraph()),
		rdf.NewQuad(rdf.NewNamedNode("http://example.com/alice"), rdf.NewNamedNode("http://example.com/age"), rdf.NewIntegerLiteral(30), rdf.NewDefaultGraph()),
		rdf.NewQuad(rdf.NewNamedNode("http://example.com/bob"), rdf.NewNamedNode("http://example.com/name"), rdf.NewLiteral("Bob"), rdf.NewDefaultGraph()),
		rdf.NewQuad(rdf.NewNamedNode("http://example.com/bob"), rdf.NewNamedNode("http://example.com/age"), rdf.NewIntegerLiteral(25), rdf.NewDefaultGraph()),
	}
	for _, q := range quads {
		if err := store.Insert(q); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	return store
}

func TestExecuteSelectBasicGraphPatternJoin(t *testing.T) {
	store := seedStore(t)
	result := mustExecute(t, store, `SELECT ?name ?age WHERE {
		?person <http://example.com/name> ?name .
		?person <http://example.com/age> ?age
	}`, Options{})
	sel := result.(*SelectResult)
	if len(sel.Bindings) != 2 {
		t.Fatalf("expected 2 bindings, got %d", len(sel.Bindings))
	}
	for _, b := range sel.Bindings {
		if _, ok := b["name"]; !ok {
			t.Fatalf("expected ?name bound in every row: %+v", b)
		}
		if _, ok := b["age"]; !ok {
			t.Fatalf("expected ?age bound in every row: %+v", b)
		}
	}
}

func TestExecuteSelectWithFilter(t *testing.T) {
	store := seedStore(t)
	result := mustExecute(t, store, `SELECT ?name WHERE {
		?person <http://example.com/name> ?name .
		?person <http://example.com/age> ?age .
		FILTER(?age > 26)
	}`, Options{})
	sel := result.(*SelectResult)
	if len(sel.Bindings) != 1 {
		t.Fatalf("expected 1 binding after filtering by age > 26, got %d", len(sel.Bindings))
	}
	if !sel.Bindings[0]["name"].Equals(rdf.NewLiteral("Alice")) {
		t.Fatalf("expected Alice, got %v", sel.Bindings[0]["name"])
	}
}

func TestExecuteAsk(t *testing.T) {
	store := seedStore(t)
	result := mustExecute(t, store, `ASK WHERE { ?s <http://example.com/name> "Bob" }`, Options{})
	ask := result.(*AskResult)
	if !ask.Result {
		t.Fatalf("expected ASK to return true")
	}

	result = mustExecute(t, store, `ASK WHERE { ?s <http://example.com/name> "Carol" }`, Options{})
	ask = result.(*AskResult)
	if ask.Result {
		t.Fatalf("expected ASK to return false")
	}
}

func TestExecuteConstruct(t *testing.T) {
	store := seedStore(t)
	result := mustExecute(t, store, `CONSTRUCT { ?s <http://example.com/hasName> ?name } WHERE {
		?s <http://example.com/name> ?name
	}`, Options{})
	construct := result.(*ConstructResult)
	if len(construct.Triples) != 2 {
		t.Fatalf("expected 2 constructed triples, got %d", len(construct.Triples))
	}
}

func TestExecuteOptionalKeepsUnmatchedLeftRow(t *testing.T) {
	store := seedStore(t)
	result := mustExecute(t, store, `SELECT ?person ?nickname WHERE {
		?person <http://example.com/name> ?name .
		OPTIONAL { ?person <http://example.com/nickname> ?nickname }
	}`, Options{})
	sel := result.(*SelectResult)
	if len(sel.Bindings) != 2 {
		t.Fatalf("expected 2 bindings, got %d", len(sel.Bindings))
	}
	for _, b := range sel.Bindings {
		if _, ok := b["nickname"]; ok {
			t.Fatalf("expected ?nickname to remain unbound, got %+v", b)
		}
	}
}

func TestExecuteUnion(t *testing.T) {
	store := seedStore(t)
	result := mustExecute(t, store, `SELECT ?value WHERE {
		{ ?s <http://example.com/name> ?value } UNION { ?s <http://example.com/age> ?value }
	}`, Options{})
	sel := result.(*SelectResult)
	if len(sel.Bindings) != 4 {
		t.Fatalf("expected 4 bindings (2 names + 2 ages), got %d", len(sel.Bindings))
	}
}

func TestExecuteLimitOffset(t *testing.T) {
	store := seedStore(t)
	result := mustExecute(t, store, `SELECT ?name WHERE { ?s <http://example.com/name> ?name } ORDER BY ?name LIMIT 1 OFFSET 1`, Options{})
	sel := result.(*SelectResult)
	if len(sel.Bindings) != 1 {
		t.Fatalf("expected 1 binding, got %d", len(sel.Bindings))
	}
	if !sel.Bindings[0]["name"].Equals(rdf.NewLiteral("Bob")) {
		t.Fatalf("expected Bob after ordering+offset, got %v", sel.Bindings[0]["name"])
	}
}

func TestExecuteGraphPattern(t *testing.T) {
	store := quadstore.New()
	g := rdf.NewNamedNode("http://example.com/g1")
	if err := store.Insert(rdf.NewQuad(rdf.NewNamedNode("http://example.com/s"), rdf.NewNamedNode("http://example.com/p"), rdf.NewLiteral("in-graph"), g)); err != nil {
		t.Fatal(err)
	}
	result := mustExecute(t, store, `SELECT ?o WHERE { GRAPH <http://example.com/g1> { ?s <http://example.com/p> ?o } }`, Options{})
	sel := result.(*SelectResult)
	if len(sel.Bindings) != 1 {
		t.Fatalf("expected 1 binding scoped to the named graph, got %d", len(sel.Bindings))
	}
}

type stubServiceHandler struct{}

func (stubServiceHandler) Handle(serviceIRI *rdf.NamedNode, pattern *sparqlparser.GraphPattern) (BindingIterator, error) {
	if serviceIRI.IRI != "http://example.com/sparql" {
		return nil, fmt.Errorf("no such endpoint: %s", serviceIRI.IRI)
	}
	binding := NewBinding()
	binding["remote"] = rdf.NewLiteral("remote-value")
	return &staticIterator{rows: []Binding{binding}}, nil
}

type staticIterator struct {
	rows []Binding
	pos  int
}

func (it *staticIterator) Next() bool {
	if it.pos >= len(it.rows) {
		return false
	}
	it.pos++
	return true
}
func (it *staticIterator) Binding() Binding { return it.rows[it.pos-1] }
func (it *staticIterator) Close() error     { return nil }

func TestExecuteServiceDelegatesToHandler(t *testing.T) {
	store := quadstore.New()
	result := mustExecute(t, store, `SELECT ?remote WHERE { SERVICE <http://example.com/sparql> { ?s ?p ?o } }`, Options{ServiceHandler: stubServiceHandler{}})
	sel := result.(*SelectResult)
	if len(sel.Bindings) != 1 || !sel.Bindings[0]["remote"].Equals(rdf.NewLiteral("remote-value")) {
		t.Fatalf("expected the handler's single binding to flow through, got %+v", sel.Bindings)
	}
}

func TestExecuteServiceSilentSwallowsHandlerError(t *testing.T) {
	store := quadstore.New()
	result := mustExecute(t, store, `ASK WHERE { SERVICE SILENT <http://example.com/unknown> { ?s ?p ?o } }`, Options{ServiceHandler: stubServiceHandler{}})
	ask := result.(*AskResult)
	if !ask.Result {
		t.Fatalf("expected a SILENT failed SERVICE call to still yield one empty solution, making ASK true")
	}
}

func TestExecuteServiceNonSilentPropagatesError(t *testing.T) {
	store := quadstore.New()
	parsed, err := sparqlparser.NewParser(`ASK WHERE { SERVICE <http://example.com/unknown> { ?s ?p ?o } }`, "").Parse()
	if err != nil {
		t.Fatal(err)
	}
	compiled, err := sparqlalgebra.Compile(parsed)
	if err != nil {
		t.Fatal(err)
	}
	_, err = NewExecutor(store, Options{ServiceHandler: stubServiceHandler{}}).Execute(compiled, nil)
	if err == nil {
		t.Fatalf("expected a non-silent SERVICE failure to propagate")
	}
}
