package loomdb

import (
	"strings"
	"testing"

	"github.com/loomdb/loomdb/internal/rdfio"
	"github.com/loomdb/loomdb/internal/sparqlexec"
	"github.com/loomdb/loomdb/internal/sparqlparser"
	"github.com/loomdb/loomdb/pkg/rdf"
)

// Exercises bulk-loading NTriples straight into the default graph and
// then querying the loaded data with SPARQL in one pipeline.
func TestBulkLoadThenSelect(t *testing.T) {
	db := New()
	defer db.Close()

	ntriples := `<http://example.com/s> <http://example.com/p> <http://example.com/o> .` + "\n"
	if err := db.Store().LoadGraph(strings.NewReader(ntriples), rdfio.NTriples, nil, ""); err != nil {
		t.Fatal(err)
	}

	result, err := db.Query(`SELECT ?s WHERE { ?s ?p ?o }`, "")
	if err != nil {
		t.Fatal(err)
	}
	sel := result.(*sparqlexec.SelectResult)
	if len(sel.Bindings) != 1 {
		t.Fatalf("expected 1 solution, got %d", len(sel.Bindings))
	}
	if !sel.Bindings[0]["s"].Equals(rdf.NewNamedNode("http://example.com/s")) {
		t.Fatalf("unexpected ?s binding: %+v", sel.Bindings[0]["s"])
	}
}

// A two-SERVICE federated query: one handler supplies foaf:name
// bindings, the other foaf:mbox bindings, joined on ?s.
type twoServiceHandler struct{}

func (twoServiceHandler) Handle(serviceIRI *rdf.NamedNode, pattern *sparqlparser.GraphPattern) (sparqlexec.BindingIterator, error) {
	switch serviceIRI.IRI {
	case "http://service1.org":
		return newStaticRows(
			row("s", rdf.NewNamedNode("http://example.com/alice"), "name", rdf.NewLiteral("Alice")),
			row("s", rdf.NewNamedNode("http://example.com/bob"), "name", rdf.NewLiteral("Bob")),
		), nil
	case "http://service2.org":
		return newStaticRows(
			row("s", rdf.NewNamedNode("http://example.com/alice"), "mbox", rdf.NewNamedNode("mailto:alice@example.com")),
			row("s", rdf.NewNamedNode("http://example.com/bob"), "mbox", rdf.NewNamedNode("mailto:bob@example.com")),
		), nil
	default:
		return nil, sparqlexec.ErrServiceUnavailable
	}
}

func row(kv ...interface{}) sparqlexec.Binding {
	b := sparqlexec.NewBinding()
	for i := 0; i+1 < len(kv); i += 2 {
		b[kv[i].(string)] = kv[i+1].(rdf.Term)
	}
	return b
}

type staticRows struct {
	rows []sparqlexec.Binding
	pos  int
}

func newStaticRows(rows ...sparqlexec.Binding) *staticRows { return &staticRows{rows: rows} }

func (s *staticRows) Next() bool {
	if s.pos >= len(s.rows) {
		return false
	}
	s.pos++
	return true
}
func (s *staticRows) Binding() sparqlexec.Binding { return s.rows[s.pos-1] }
func (s *staticRows) Close() error                { return nil }

func TestTwoServiceFederatedJoin(t *testing.T) {
	db := New()
	defer db.Close()
	db.SetServiceHandler(twoServiceHandler{})

	result, err := db.Query(`SELECT ?name ?mbox WHERE {
		SERVICE <http://service1.org> { ?s <http://xmlns.com/foaf/0.1/name> ?name }
		SERVICE <http://service2.org> { ?s <http://xmlns.com/foaf/0.1/mbox> ?mbox }
	}
	ORDER BY ?name`, "")
	if err != nil {
		t.Fatal(err)
	}
	sel := result.(*sparqlexec.SelectResult)
	if len(sel.Bindings) != 2 {
		t.Fatalf("expected 2 joined solutions, got %d: %+v", len(sel.Bindings), sel.Bindings)
	}
	if !sel.Bindings[0]["name"].Equals(rdf.NewLiteral("Alice")) {
		t.Fatalf("expected Alice first after ORDER BY, got %+v", sel.Bindings[0]["name"])
	}
	if !sel.Bindings[0]["mbox"].Equals(rdf.NewNamedNode("mailto:alice@example.com")) {
		t.Fatalf("expected Alice's mbox joined in, got %+v", sel.Bindings[0]["mbox"])
	}
	if !sel.Bindings[1]["name"].Equals(rdf.NewLiteral("Bob")) {
		t.Fatalf("expected Bob second after ORDER BY, got %+v", sel.Bindings[1]["name"])
	}
}
