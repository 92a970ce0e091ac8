package server

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/loomdb/loomdb/internal/sparqlexec"
	"github.com/loomdb/loomdb/internal/sparqlparser"
	"github.com/loomdb/loomdb/pkg/rdf"
)

func TestFormatSelectResultsJSON(t *testing.T) {
	binding := sparqlexec.NewBinding()
	binding["name"] = rdf.NewLiteral("Alice")
	binding["person"] = rdf.NewNamedNode("http://example.com/alice")

	result := &sparqlexec.SelectResult{
		Variables: []*sparqlparser.Variable{{Name: "person"}, {Name: "name"}},
		Bindings:  []sparqlexec.Binding{binding},
	}

	data, err := FormatSelectResultsJSON(result)
	if err != nil {
		t.Fatal(err)
	}
	var decoded SPARQLResultsJSON
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if len(decoded.Head.Vars) != 2 {
		t.Fatalf("expected 2 head vars, got %+v", decoded.Head.Vars)
	}
	if len(decoded.Results.Bindings) != 1 {
		t.Fatalf("expected 1 binding row, got %d", len(decoded.Results.Bindings))
	}
	if decoded.Results.Bindings[0]["name"].Value != "Alice" {
		t.Fatalf("unexpected name binding: %+v", decoded.Results.Bindings[0]["name"])
	}
	if decoded.Results.Bindings[0]["person"].Type != "uri" {
		t.Fatalf("expected person binding to be a uri, got %+v", decoded.Results.Bindings[0]["person"])
	}
}

func TestFormatAskResultJSON(t *testing.T) {
	data, err := FormatAskResultJSON(&sparqlexec.AskResult{Result: true})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"boolean": true`) {
		t.Fatalf("expected boolean:true in output, got %s", data)
	}
}

func TestFormatConstructResultNTriples(t *testing.T) {
	s := rdf.NewNamedNode("http://example.com/s")
	p := rdf.NewNamedNode("http://example.com/p")
	o := rdf.NewLiteral("hello")
	result := &sparqlexec.ConstructResult{Triples: []*rdf.Triple{rdf.NewTriple(s, p, o)}}

	data, err := FormatConstructResultNTriples(result)
	if err != nil {
		t.Fatal(err)
	}
	want := `<http://example.com/s> <http://example.com/p> "hello" .` + "\n"
	if string(data) != want {
		t.Fatalf("got %q, want %q", data, want)
	}
}

func TestFormatSelectResultsXMLIncludesVariables(t *testing.T) {
	binding := sparqlexec.NewBinding()
	binding["x"] = rdf.NewLiteral("value")
	result := &sparqlexec.SelectResult{
		Variables: []*sparqlparser.Variable{{Name: "x"}},
		Bindings:  []sparqlexec.Binding{binding},
	}
	data, err := FormatSelectResultsXML(result)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `<variable name="x"/>`) {
		t.Fatalf("expected variable declaration in XML, got %s", data)
	}
}

func TestContentTypeToSyntaxCoversLoaderFormats(t *testing.T) {
	for _, ct := range []string{"application/n-triples", "application/n-quads", "text/turtle", "application/trig", "application/rdf+xml"} {
		if _, ok := contentTypeToSyntax[ct]; !ok {
			t.Fatalf("expected %s to map to a known rdfio.Syntax", ct)
		}
	}
}
