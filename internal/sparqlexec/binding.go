// Package sparqlexec walks a sparqlalgebra.Plan with a Volcano-style
// pull-based iterator tree, lazily pulling Bindings from a
// pkg/quadstore.Store. The join iterator substitutes the left binding's
// bound variables into the right scan's pattern before re-querying,
// rather than always rescanning unbound and discarding incompatible
// rows afterward, so a join narrows to the cheapest index prefix.
// FILTER evaluates a real expression tree against each candidate row.
package sparqlexec

import "github.com/loomdb/loomdb/pkg/rdf"

// Binding maps a SPARQL variable name to the RDF term bound to it in
// one solution.
type Binding map[string]rdf.Term

// NewBinding returns an empty Binding.
func NewBinding() Binding { return make(Binding) }

// Clone returns a shallow copy safe to mutate independently.
func (b Binding) Clone() Binding {
	clone := make(Binding, len(b))
	for k, v := range b {
		clone[k] = v
	}
	return clone
}

// merge returns the union of b and other, or (nil, false) if the two
// disagree on the value of a variable they both bind.
func (b Binding) merge(other Binding) (Binding, bool) {
	result := b.Clone()
	for name, term := range other {
		if existing, ok := result[name]; ok {
			if !existing.Equals(term) {
				return nil, false
			}
			continue
		}
		result[name] = term
	}
	return result, true
}

// BindingIterator is the pull-based contract every operator in the
// lowered plan implements.
type BindingIterator interface {
	Next() bool
	Binding() Binding
	Close() error
}
