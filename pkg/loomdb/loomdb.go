// Package loomdb wires the quad store and the SPARQL collaborator
// packages (sparqlparser/sparqlalgebra/sparqlexec) together behind one
// PrepareQuery/Exec surface. The wiring is kept out of pkg/quadstore
// itself so that package never imports a SPARQL collaborator and can
// be used standalone.
package loomdb

import (
	"fmt"

	"github.com/loomdb/loomdb/internal/sparqlalgebra"
	"github.com/loomdb/loomdb/internal/sparqlexec"
	"github.com/loomdb/loomdb/internal/sparqlparser"
	"github.com/loomdb/loomdb/pkg/quadstore"
)

// DB wraps a quadstore.Store with SPARQL query preparation.
type DB struct {
	store   *quadstore.Store
	options sparqlexec.Options
}

// New wraps an in-memory store.
func New() *DB {
	return &DB{store: quadstore.New()}
}

// Open wraps an on-disk store rooted at path.
func Open(path string) (*DB, error) {
	store, err := quadstore.Open(path)
	if err != nil {
		return nil, err
	}
	return &DB{store: store}, nil
}

// Close releases the underlying store's resources.
func (db *DB) Close() error { return db.store.Close() }

// Store returns the underlying quad store for direct Insert/Remove/
// QuadsForPattern/Transaction/LoadGraph/LoadDataset access.
func (db *DB) Store() *quadstore.Store { return db.store }

// SetServiceHandler installs the handler used to resolve SPARQL
// SERVICE calls. A nil handler (the default) fails every SERVICE call.
func (db *DB) SetServiceHandler(handler sparqlexec.ServiceHandler) {
	db.options.ServiceHandler = handler
}

// SetDefaultGraphAsUnion controls whether triple patterns outside of
// any GRAPH block match the default graph only (false, the SPARQL 1.1
// default) or every graph's quads (true).
func (db *DB) SetDefaultGraphAsUnion(union bool) {
	db.options.DefaultGraphAsUnion = union
}

// PreparedQuery is a parsed and lowered SPARQL query ready to execute.
type PreparedQuery struct {
	db         *DB
	compiled   *sparqlalgebra.Compiled
	selectVars []*sparqlparser.Variable
}

// PrepareQuery parses and lowers a SPARQL 1.1 query string.
func (db *DB) PrepareQuery(query string, baseIRI string) (*PreparedQuery, error) {
	parsed, err := sparqlparser.NewParser(query, baseIRI).Parse()
	if err != nil {
		return nil, fmt.Errorf("loomdb: parse: %w", err)
	}
	compiled, err := sparqlalgebra.Compile(parsed)
	if err != nil {
		return nil, fmt.Errorf("loomdb: compile: %w", err)
	}
	var selectVars []*sparqlparser.Variable
	if parsed.Select != nil {
		selectVars = parsed.Select.Variables
	}
	return &PreparedQuery{db: db, compiled: compiled, selectVars: selectVars}, nil
}

// Exec runs the prepared query against the current store contents.
func (pq *PreparedQuery) Exec() (sparqlexec.Result, error) {
	executor := sparqlexec.NewExecutor(pq.db.store, pq.db.options)
	return executor.Execute(pq.compiled, pq.selectVars)
}

// Query is PrepareQuery+Exec in one call, for one-shot callers that
// don't need to reuse a parsed plan.
func (db *DB) Query(query string, baseIRI string) (sparqlexec.Result, error) {
	prepared, err := db.PrepareQuery(query, baseIRI)
	if err != nil {
		return nil, err
	}
	return prepared.Exec()
}
