// Command loomdb is the reference CLI over pkg/loomdb: a demo seeder, a
// one-shot SPARQL query runner, a bulk loader, and an HTTP SPARQL
// endpoint.
package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/loomdb/loomdb/internal/rdfio"
	"github.com/loomdb/loomdb/internal/sparqlexec"
	"github.com/loomdb/loomdb/internal/server"
	"github.com/loomdb/loomdb/pkg/loomdb"
	"github.com/loomdb/loomdb/pkg/rdf"
)

const defaultDBPath = "./loomdb_data"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "demo":
		runDemo()
	case "query":
		if len(os.Args) < 3 {
			fmt.Println("Usage: loomdb query <sparql-query>")
			os.Exit(1)
		}
		runQuery(os.Args[2])
	case "load":
		if len(os.Args) < 3 {
			fmt.Println("Usage: loomdb load <file> [graph-iri]")
			os.Exit(1)
		}
		graph := ""
		if len(os.Args) >= 4 {
			graph = os.Args[3]
		}
		runLoad(os.Args[2], graph)
	case "serve":
		addr := "localhost:8080"
		if len(os.Args) >= 3 {
			addr = os.Args[2]
		}
		runServe(addr)
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("Usage: loomdb <command> [args]")
	fmt.Println("Commands:")
	fmt.Println("  demo             - Run a demo with sample data")
	fmt.Println("  query <q>        - Execute a SPARQL query")
	fmt.Println("  load <file> [g]  - Bulk-load an RDF file, optionally into named graph g")
	fmt.Println("  serve [addr]     - Start HTTP SPARQL endpoint (default: localhost:8080)")
}

func runDemo() {
	fmt.Println("=== loomdb RDF quad store demo ===")
	fmt.Println()

	fmt.Printf("Opening database at: %s\n", defaultDBPath)
	db, err := loomdb.Open(defaultDBPath)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer db.Close()
	fmt.Println("Store initialized")
	fmt.Println()

	alice := rdf.NewNamedNode("http://example.org/alice")
	bob := rdf.NewNamedNode("http://example.org/bob")
	carol := rdf.NewNamedNode("http://example.org/carol")

	knows := rdf.NewNamedNode("http://xmlns.com/foaf/0.1/knows")
	name := rdf.NewNamedNode("http://xmlns.com/foaf/0.1/name")
	age := rdf.NewNamedNode("http://xmlns.com/foaf/0.1/age")

	fmt.Println("Inserting sample data...")
	defaultGraph := rdf.NewDefaultGraph()
	quads := []*rdf.Quad{
		rdf.NewQuad(alice, name, rdf.NewLiteral("Alice"), defaultGraph),
		rdf.NewQuad(alice, age, rdf.NewIntegerLiteral(30), defaultGraph),
		rdf.NewQuad(alice, knows, bob, defaultGraph),

		rdf.NewQuad(bob, name, rdf.NewLiteral("Bob"), defaultGraph),
		rdf.NewQuad(bob, age, rdf.NewIntegerLiteral(25), defaultGraph),
		rdf.NewQuad(bob, knows, carol, defaultGraph),

		rdf.NewQuad(carol, name, rdf.NewLiteral("Carol"), defaultGraph),
		rdf.NewQuad(carol, age, rdf.NewIntegerLiteral(28), defaultGraph),
	}
	for _, q := range quads {
		if err := db.Store().Insert(q); err != nil {
			log.Fatalf("Failed to insert quad: %v", err)
		}
		fmt.Printf("  ✓ %s %s %s\n", formatTerm(q.Subject), formatTerm(q.Predicate), formatTerm(q.Object))
	}

	fmt.Println("\nInserting data into named graphs...")
	graph1 := rdf.NewNamedNode("http://example.org/graph1")
	graph2 := rdf.NewNamedNode("http://example.org/graph2")
	named := []*rdf.Quad{
		rdf.NewQuad(alice, name, rdf.NewLiteral("Alice in Graph1"), graph1),
		rdf.NewQuad(bob, name, rdf.NewLiteral("Bob in Graph1"), graph1),
		rdf.NewQuad(alice, name, rdf.NewLiteral("Alice in Graph2"), graph2),
		rdf.NewQuad(carol, name, rdf.NewLiteral("Carol in Graph2"), graph2),
	}
	for _, q := range named {
		if err := db.Store().Insert(q); err != nil {
			log.Fatalf("Failed to insert quad: %v", err)
		}
		fmt.Printf("  ✓ Quad in graph <%s>: %s %s %s\n",
			q.Graph.(*rdf.NamedNode).IRI, formatTerm(q.Subject), formatTerm(q.Predicate), formatTerm(q.Object))
	}

	fmt.Println()
	fmt.Println("=== Querying Data ===")
	fmt.Println()

	sparqlQuery := `
		SELECT ?person ?name ?age
		WHERE {
			?person <http://xmlns.com/foaf/0.1/name> ?name .
			?person <http://xmlns.com/foaf/0.1/age> ?age .
		}
	`
	fmt.Printf("Query:\n%s\n", sparqlQuery)

	result, err := db.Query(sparqlQuery, "")
	if err != nil {
		log.Fatalf("Failed to execute query: %v", err)
	}
	fmt.Println("✓ Query parsed, compiled, and executed")
	fmt.Println()

	fmt.Println("Results:")
	printResult(result)
	fmt.Println("\n=== Demo Complete ===")
}

func runQuery(query string) {
	db, err := loomdb.Open(defaultDBPath)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer db.Close()

	result, err := db.Query(query, "")
	if err != nil {
		log.Fatalf("Query failed: %v", err)
	}
	printResult(result)
}

func runLoad(path string, graphIRI string) {
	db, err := loomdb.Open(defaultDBPath)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer db.Close()

	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("Failed to open %s: %v", path, err)
	}
	defer f.Close()

	syntax, err := syntaxFromFilename(path)
	if err != nil {
		log.Fatalf("%v", err)
	}

	switch syntax {
	case rdfio.NQuads, rdfio.TriG:
		if graphIRI != "" {
			log.Fatalf("a per-quad-graph syntax (%s) does not accept a graph override", syntax)
		}
		if err := db.Store().LoadDataset(f, syntax, ""); err != nil {
			log.Fatalf("Load failed: %v", err)
		}
	default:
		var target *rdf.NamedNode
		if graphIRI != "" {
			target = rdf.NewNamedNode(graphIRI)
		}
		if err := db.Store().LoadGraph(f, syntax, target, ""); err != nil {
			log.Fatalf("Load failed: %v", err)
		}
	}
	fmt.Printf("Loaded %s (%s) into %s\n", path, syntax, defaultDBPath)
}

func syntaxFromFilename(path string) (rdfio.Syntax, error) {
	switch {
	case strings.HasSuffix(path, ".nt"):
		return rdfio.NTriples, nil
	case strings.HasSuffix(path, ".nq"):
		return rdfio.NQuads, nil
	case strings.HasSuffix(path, ".ttl"):
		return rdfio.Turtle, nil
	case strings.HasSuffix(path, ".trig"):
		return rdfio.TriG, nil
	case strings.HasSuffix(path, ".rdf"), strings.HasSuffix(path, ".xml"):
		return rdfio.RdfXML, nil
	default:
		return 0, fmt.Errorf("cannot infer RDF syntax from filename %q (expected .nt/.nq/.ttl/.trig/.rdf)", path)
	}
}

func runServe(addr string) {
	fmt.Printf("Opening database at: %s\n", defaultDBPath)
	db, err := loomdb.Open(defaultDBPath)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer db.Close()

	srv := server.NewServer(db, addr)
	fmt.Printf("\n\U0001F680 loomdb SPARQL endpoint starting...\n")
	fmt.Printf("   Endpoint: http://%s/sparql\n", addr)
	fmt.Printf("   Web UI:   http://%s/\n\n", addr)
	fmt.Printf("Press Ctrl+C to stop\n\n")

	if err := srv.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func printResult(result sparqlexec.Result) {
	switch r := result.(type) {
	case *sparqlexec.SelectResult:
		fmt.Print("| ")
		for _, v := range r.Variables {
			fmt.Printf("%-20s | ", v.Name)
		}
		fmt.Println()
		fmt.Println("|" + strings.Repeat("----------------------|", len(r.Variables)))
		for _, binding := range r.Bindings {
			fmt.Print("| ")
			for _, v := range r.Variables {
				if term, ok := binding[v.Name]; ok {
					fmt.Printf("%-20s | ", formatTerm(term))
				} else {
					fmt.Printf("%-20s | ", "")
				}
			}
			fmt.Println()
		}
		fmt.Printf("\nFound %d results\n", len(r.Bindings))
	case *sparqlexec.AskResult:
		fmt.Printf("Result: %t\n", r.Result)
	case *sparqlexec.ConstructResult:
		fmt.Printf("Constructed %d triples:\n", len(r.Triples))
		for _, triple := range r.Triples {
			fmt.Printf("%s %s %s .\n", formatTerm(triple.Subject), formatTerm(triple.Predicate), formatTerm(triple.Object))
		}
	}
}

func formatTerm(term rdf.Term) string {
	switch t := term.(type) {
	case *rdf.NamedNode:
		iri := t.IRI
		for i := len(iri) - 1; i >= 0; i-- {
			if iri[i] == '/' || iri[i] == '#' {
				return iri[i+1:]
			}
		}
		return iri
	case *rdf.Literal:
		return t.Value
	default:
		return term.String()
	}
}
