package loomdb

import (
	"testing"

	"github.com/loomdb/loomdb/internal/sparqlexec"
	"github.com/loomdb/loomdb/pkg/rdf"
)

func TestQueryEndToEnd(t *testing.T) {
	db := New()
	defer db.Close()

	alice := rdf.NewNamedNode("http://example.com/alice")
	name := rdf.NewNamedNode("http://example.com/name")
	if err := db.Store().Insert(rdf.NewQuad(alice, name, rdf.NewLiteral("Alice"), rdf.NewDefaultGraph())); err != nil {
		t.Fatal(err)
	}

	result, err := db.Query(`SELECT ?name WHERE { ?s <http://example.com/name> ?name }`, "")
	if err != nil {
		t.Fatal(err)
	}
	sel, ok := result.(*sparqlexec.SelectResult)
	if !ok || len(sel.Bindings) != 1 {
		t.Fatalf("expected 1 binding, got %+v", result)
	}
	if !sel.Bindings[0]["name"].Equals(rdf.NewLiteral("Alice")) {
		t.Fatalf("unexpected binding: %+v", sel.Bindings[0])
	}
}

func TestPrepareQueryReusesPlan(t *testing.T) {
	db := New()
	defer db.Close()

	prepared, err := db.PrepareQuery(`ASK WHERE { ?s ?p ?o }`, "")
	if err != nil {
		t.Fatal(err)
	}
	first, err := prepared.Exec()
	if err != nil {
		t.Fatal(err)
	}
	if first.(*sparqlexec.AskResult).Result {
		t.Fatalf("expected ASK to be false against an empty store")
	}

	if err := db.Store().Insert(rdf.NewQuad(rdf.NewNamedNode("http://example.com/s"), rdf.NewNamedNode("http://example.com/p"), rdf.NewLiteral("o"), rdf.NewDefaultGraph())); err != nil {
		t.Fatal(err)
	}
	second, err := prepared.Exec()
	if err != nil {
		t.Fatal(err)
	}
	if !second.(*sparqlexec.AskResult).Result {
		t.Fatalf("expected the same prepared plan to reflect the new insert on re-Exec")
	}
}
