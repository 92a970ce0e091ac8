package sparqlexec

import (
	"fmt"

	"github.com/loomdb/loomdb/internal/sparqlparser"
	"github.com/loomdb/loomdb/pkg/rdf"
)

// ServiceHandler resolves a SPARQL SERVICE call against an external
// endpoint. It is keyed by the service IRI and receives the inner
// graph pattern (not raw SPARQL text) to evaluate remotely.
//
// A lookup miss for an unregistered IRI must return an error; Execute
// propagates it unless the enclosing SERVICE is SILENT, in which case
// the error becomes a single empty solution instead.
type ServiceHandler interface {
	Handle(serviceIRI *rdf.NamedNode, pattern *sparqlparser.GraphPattern) (BindingIterator, error)
}

// ErrServiceUnavailable is returned by handlers (or synthesized by the
// executor when no ServiceHandler is configured) for an IRI with no
// registered endpoint.
var ErrServiceUnavailable = fmt.Errorf("sparqlexec: no handler registered for this SERVICE endpoint")

// noHandler is used when an Executor has no ServiceHandler configured;
// every SERVICE call fails (SILENT ones degrade to one empty solution).
type noHandler struct{}

func (noHandler) Handle(serviceIRI *rdf.NamedNode, pattern *sparqlparser.GraphPattern) (BindingIterator, error) {
	return nil, fmt.Errorf("%w: %s", ErrServiceUnavailable, serviceIRI.IRI)
}

// singleEmptyBindingIterator yields exactly one (possibly empty) solution;
// used for a SILENT SERVICE call that failed but must still contribute
// one joinable row per SPARQL 1.1 federation semantics.
type singleEmptyBindingIterator struct{ done bool }

func (it *singleEmptyBindingIterator) Next() bool {
	if it.done {
		return false
	}
	it.done = true
	return true
}
func (it *singleEmptyBindingIterator) Binding() Binding { return NewBinding() }
func (it *singleEmptyBindingIterator) Close() error     { return nil }
