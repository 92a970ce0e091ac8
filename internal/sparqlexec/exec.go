package sparqlexec

import (
	"fmt"
	"sort"

	"github.com/loomdb/loomdb/internal/sparqlalgebra"
	"github.com/loomdb/loomdb/internal/sparqlparser"
	"github.com/loomdb/loomdb/pkg/quadstore"
	"github.com/loomdb/loomdb/pkg/rdf"
)

// Options configures an Executor beyond the plan itself.
type Options struct {
	// ServiceHandler resolves SERVICE calls. A nil handler fails every
	// SERVICE call (SILENT ones degrade to one empty solution).
	ServiceHandler ServiceHandler
	// DefaultGraphAsUnion makes triple patterns outside of any GRAPH
	// block match quads in every graph instead of the default graph
	// only.
	DefaultGraphAsUnion bool
}

// Executor evaluates a Compiled plan against a quadstore.Store.
type Executor struct {
	store   *quadstore.Store
	handler ServiceHandler
	options Options
}

// NewExecutor builds an Executor over store.
func NewExecutor(store *quadstore.Store, options Options) *Executor {
	handler := options.ServiceHandler
	if handler == nil {
		handler = noHandler{}
	}
	return &Executor{store: store, handler: handler, options: options}
}

// Result is the outcome of executing one query.
type Result interface{ resultType() }

// SelectResult is the outcome of a SELECT query.
type SelectResult struct {
	Variables []*sparqlparser.Variable // nil means every variable bound anywhere in the plan
	Bindings  []Binding
}

func (*SelectResult) resultType() {}

// AskResult is the outcome of an ASK query.
type AskResult struct{ Result bool }

func (*AskResult) resultType() {}

// ConstructResult is the outcome of a CONSTRUCT query.
type ConstructResult struct{ Triples []*rdf.Triple }

func (*ConstructResult) resultType() {}

// Execute runs compiled to completion and returns its Result.
func (e *Executor) Execute(compiled *sparqlalgebra.Compiled, selectVars []*sparqlparser.Variable) (Result, error) {
	switch compiled.QueryType {
	case sparqlparser.QueryTypeSelect:
		return e.executeSelect(compiled, selectVars)
	case sparqlparser.QueryTypeAsk:
		return e.executeAsk(compiled)
	case sparqlparser.QueryTypeConstruct:
		return e.executeConstruct(compiled)
	default:
		return nil, fmt.Errorf("sparqlexec: unsupported query type %v", compiled.QueryType)
	}
}

func (e *Executor) executeSelect(compiled *sparqlalgebra.Compiled, selectVars []*sparqlparser.Variable) (*SelectResult, error) {
	iter, err := e.createIterator(compiled.Plan, defaultContext(e.options.DefaultGraphAsUnion))
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var bindings []Binding
	for iter.Next() {
		bindings = append(bindings, iter.Binding().Clone())
	}
	return &SelectResult{Variables: selectVars, Bindings: bindings}, nil
}

func (e *Executor) executeAsk(compiled *sparqlalgebra.Compiled) (*AskResult, error) {
	iter, err := e.createIterator(compiled.Plan, defaultContext(e.options.DefaultGraphAsUnion))
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	return &AskResult{Result: iter.Next()}, nil
}

func (e *Executor) executeConstruct(compiled *sparqlalgebra.Compiled) (*ConstructResult, error) {
	construct, ok := compiled.Plan.(*sparqlalgebra.ConstructPlan)
	if !ok {
		return nil, fmt.Errorf("sparqlexec: CONSTRUCT plan root must be a ConstructPlan, got %T", compiled.Plan)
	}
	iter, err := e.createIterator(construct.Input, defaultContext(e.options.DefaultGraphAsUnion))
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var triples []*rdf.Triple
	for iter.Next() {
		binding := iter.Binding()
		for _, pattern := range construct.Template {
			s, okS := instantiate(pattern.Subject, binding)
			p, okP := instantiate(pattern.Predicate, binding)
			o, okO := instantiate(pattern.Object, binding)
			if okS && okP && okO {
				triples = append(triples, rdf.NewTriple(s, p, o))
			}
		}
	}
	return &ConstructResult{Triples: triples}, nil
}

func instantiate(tov sparqlparser.TermOrVariable, binding Binding) (rdf.Term, bool) {
	if !tov.IsVariable() {
		return tov.Term, true
	}
	term, ok := binding[tov.Variable.Name]
	return term, ok
}

// execContext threads the graph slot a nested ScanPlan must honor:
// AnyGraph/DefaultGraphOnly outside of any GRAPH block (depending on
// DefaultGraphAsUnion), or a GRAPH block's fixed/variable-bound graph.
type execContext struct {
	graphSlot     quadstore.GraphSlot
	graphVariable *sparqlparser.Variable // non-nil when GRAPH ?g binds the matched graph per row
}

func defaultContext(defaultGraphAsUnion bool) execContext {
	if defaultGraphAsUnion {
		return execContext{graphSlot: quadstore.AnyGraph()}
	}
	return execContext{graphSlot: quadstore.DefaultGraphOnly()}
}

func (e *Executor) createIterator(plan sparqlalgebra.Plan, ctx execContext) (BindingIterator, error) {
	switch p := plan.(type) {
	case *sparqlalgebra.ScanPlan:
		return e.createScanIterator(p, ctx, nil)
	case *sparqlalgebra.JoinPlan:
		return e.createJoinIterator(p, ctx)
	case *sparqlalgebra.OptionalPlan:
		return e.createOptionalIterator(p, ctx)
	case *sparqlalgebra.UnionPlan:
		return e.createUnionIterator(p, ctx)
	case *sparqlalgebra.GraphPlan:
		return e.createGraphIterator(p, ctx)
	case *sparqlalgebra.ServicePlan:
		return e.createServiceIterator(p)
	case *sparqlalgebra.FilterPlan:
		return e.createFilterIterator(p, ctx)
	case *sparqlalgebra.ProjectionPlan:
		return e.createProjectionIterator(p, ctx)
	case *sparqlalgebra.DistinctPlan:
		return e.createDistinctIterator(p, ctx)
	case *sparqlalgebra.OrderByPlan:
		return e.createOrderByIterator(p, ctx)
	case *sparqlalgebra.OffsetPlan:
		return e.createOffsetIterator(p, ctx)
	case *sparqlalgebra.LimitPlan:
		return e.createLimitIterator(p, ctx)
	default:
		return nil, fmt.Errorf("sparqlexec: unsupported plan node %T", plan)
	}
}

// createScanIterator queries the store for plan.Pattern, with bound
// (already known from an enclosing join's left row) substituted in
// place of any variable that `bound` already resolves.
func (e *Executor) createScanIterator(plan *sparqlalgebra.ScanPlan, ctx execContext, bound Binding) (BindingIterator, error) {
	subj, subjBound := resolveSlot(plan.Pattern.Subject, bound)
	pred, predBound := resolveSlot(plan.Pattern.Predicate, bound)
	obj, objBound := resolveSlot(plan.Pattern.Object, bound)

	quadIter, err := e.store.QuadsForPattern(subj, pred, obj, ctx.graphSlot)
	if err != nil {
		return nil, err
	}
	return &scanIterator{
		quadIter:      quadIter,
		pattern:       plan.Pattern,
		subjBound:     subjBound,
		predBound:     predBound,
		objBound:      objBound,
		graphVariable: ctx.graphVariable,
		base:          bound,
	}, nil
}

func resolveSlot(tov sparqlparser.TermOrVariable, bound Binding) (rdf.Term, bool) {
	if !tov.IsVariable() {
		return tov.Term, false
	}
	if bound == nil {
		return nil, false
	}
	term, ok := bound[tov.Variable.Name]
	return term, ok
}

type scanIterator struct {
	quadIter      *quadstore.QuadIterator
	pattern       *sparqlparser.TriplePattern
	subjBound     bool
	predBound     bool
	objBound      bool
	graphVariable *sparqlparser.Variable
	base          Binding
	current       Binding
}

func (it *scanIterator) Next() bool {
	for it.quadIter.Next() {
		quad, err := it.quadIter.Quad()
		if err != nil {
			return false
		}
		binding := it.base.Clone()
		if ok := bindIfVariable(binding, it.pattern.Subject, quad.Subject, it.subjBound); !ok {
			continue
		}
		if ok := bindIfVariable(binding, it.pattern.Predicate, quad.Predicate, it.predBound); !ok {
			continue
		}
		if ok := bindIfVariable(binding, it.pattern.Object, quad.Object, it.objBound); !ok {
			continue
		}
		if it.graphVariable != nil {
			if existing, ok := binding[it.graphVariable.Name]; ok && !existing.Equals(quad.Graph) {
				continue
			}
			binding[it.graphVariable.Name] = quad.Graph
		}
		it.current = binding
		return true
	}
	return false
}

// bindIfVariable records term under tov's variable name unless that
// slot was already bound by an enclosing join (in which case the scan
// itself was restricted to that value, so this is just a sanity check).
func bindIfVariable(binding Binding, tov sparqlparser.TermOrVariable, term rdf.Term, alreadyBound bool) bool {
	if !tov.IsVariable() || alreadyBound {
		return true
	}
	if existing, ok := binding[tov.Variable.Name]; ok {
		return existing.Equals(term)
	}
	binding[tov.Variable.Name] = term
	return true
}

func (it *scanIterator) Binding() Binding { return it.current }
func (it *scanIterator) Close() error     { return it.quadIter.Close() }

// nestedLoopJoinIterator re-derives the right iterator for each left
// row. When the right plan is a ScanPlan, the left row's bindings are
// substituted into it so a bound join variable narrows the right-hand
// scan to the cheapest index prefix; any other right plan is evaluated
// unbound and its rows are kept only where they merge with the left row.
type nestedLoopJoinIterator struct {
	e           *Executor
	left        BindingIterator
	rightPlan   sparqlalgebra.Plan
	ctx         execContext
	currentLeft Binding
	right       BindingIterator
	current     Binding
}

func (e *Executor) createJoinIterator(plan *sparqlalgebra.JoinPlan, ctx execContext) (BindingIterator, error) {
	left, err := e.createIterator(plan.Left, ctx)
	if err != nil {
		return nil, err
	}
	return &nestedLoopJoinIterator{e: e, left: left, rightPlan: plan.Right, ctx: ctx}, nil
}

func (it *nestedLoopJoinIterator) Next() bool {
	for {
		if it.right != nil {
			if it.right.Next() {
				merged, ok := it.currentLeft.merge(it.right.Binding())
				if !ok {
					continue
				}
				it.current = merged
				return true
			}
			_ = it.right.Close()
			it.right = nil
		}
		if !it.left.Next() {
			return false
		}
		it.currentLeft = it.left.Binding()
		right, err := it.createBoundRightIterator()
		if err != nil {
			return false
		}
		it.right = right
	}
}

// createBoundRightIterator lowers rightPlan for the current left row. A
// rightPlan that is itself a ScanPlan gets currentLeft's bindings pushed
// into its pattern; ScanPlans nested deeper inside any other plan are
// lowered without them.
func (it *nestedLoopJoinIterator) createBoundRightIterator() (BindingIterator, error) {
	if scan, ok := it.rightPlan.(*sparqlalgebra.ScanPlan); ok {
		return it.e.createScanIterator(scan, it.ctx, it.currentLeft)
	}
	return it.e.createIterator(it.rightPlan, it.ctx)
}

func (it *nestedLoopJoinIterator) Binding() Binding { return it.current }
func (it *nestedLoopJoinIterator) Close() error {
	if it.right != nil {
		_ = it.right.Close()
	}
	return it.left.Close()
}

// optionalIterator is a left outer join: every left row survives, with
// right-hand bindings merged in when at least one compatible right row
// exists.
type optionalIterator struct {
	inner    *nestedLoopJoinIterator
	innerOK  bool
	leftOnly Binding
	started  bool
}

func (e *Executor) createOptionalIterator(plan *sparqlalgebra.OptionalPlan, ctx execContext) (BindingIterator, error) {
	left, err := e.createIterator(plan.Left, ctx)
	if err != nil {
		return nil, err
	}
	return &optionalIterator{inner: &nestedLoopJoinIterator{e: e, left: left, rightPlan: plan.Right, ctx: ctx}}, nil
}

func (it *optionalIterator) Next() bool {
	for {
		if it.inner.right != nil {
			if it.inner.right.Next() {
				merged, ok := it.inner.currentLeft.merge(it.inner.right.Binding())
				if !ok {
					continue
				}
				it.inner.current = merged
				it.innerOK = true
				return true
			}
			_ = it.inner.right.Close()
			it.inner.right = nil
			if !it.innerOK {
				it.inner.current = it.inner.currentLeft
				return true
			}
		}
		if !it.inner.left.Next() {
			return false
		}
		it.inner.currentLeft = it.inner.left.Binding()
		it.innerOK = false
		right, err := it.inner.createBoundRightIterator()
		if err != nil {
			return false
		}
		it.inner.right = right
	}
}

func (it *optionalIterator) Binding() Binding { return it.inner.current }
func (it *optionalIterator) Close() error     { return it.inner.Close() }

// unionIterator concatenates its operands' solutions.
type unionIterator struct {
	left, right BindingIterator
	onLeft      bool
	current     Binding
}

func (e *Executor) createUnionIterator(plan *sparqlalgebra.UnionPlan, ctx execContext) (BindingIterator, error) {
	left, err := e.createIterator(plan.Left, ctx)
	if err != nil {
		return nil, err
	}
	right, err := e.createIterator(plan.Right, ctx)
	if err != nil {
		_ = left.Close()
		return nil, err
	}
	return &unionIterator{left: left, right: right, onLeft: true}, nil
}

func (it *unionIterator) Next() bool {
	if it.onLeft {
		if it.left.Next() {
			it.current = it.left.Binding()
			return true
		}
		it.onLeft = false
	}
	if it.right.Next() {
		it.current = it.right.Binding()
		return true
	}
	return false
}

func (it *unionIterator) Binding() Binding { return it.current }
func (it *unionIterator) Close() error {
	errLeft := it.left.Close()
	errRight := it.right.Close()
	if errLeft != nil {
		return errLeft
	}
	return errRight
}

// createGraphIterator restricts Input's scans to the graph named by
// plan.Graph: a fixed IRI narrows every nested scan to that graph; an
// unbound graph variable scans every graph and binds the variable from
// each matched quad.
func (e *Executor) createGraphIterator(plan *sparqlalgebra.GraphPlan, ctx execContext) (BindingIterator, error) {
	inner := ctx
	switch {
	case plan.Graph.IRI != nil:
		inner.graphSlot = quadstore.NamedGraphOnly(plan.Graph.IRI)
		inner.graphVariable = nil
	case plan.Graph.Variable != nil:
		inner.graphSlot = quadstore.AnyGraph()
		inner.graphVariable = plan.Graph.Variable
	}
	return e.createIterator(plan.Input, inner)
}

// createServiceIterator calls the configured ServiceHandler for the
// SERVICE endpoint and returns the handler's iterator. It runs each time
// the plan is lowered, so on the right of a join it calls the handler
// once per left row.
func (e *Executor) createServiceIterator(plan *sparqlalgebra.ServicePlan) (BindingIterator, error) {
	if plan.Service.IRI == nil {
		return nil, fmt.Errorf("sparqlexec: SERVICE with a variable endpoint is not supported")
	}
	iter, err := e.handler.Handle(plan.Service.IRI, plan.Pattern)
	if err != nil {
		if plan.Silent {
			return &singleEmptyBindingIterator{}, nil
		}
		return nil, fmt.Errorf("sparqlexec: SERVICE <%s>: %w", plan.Service.IRI.IRI, err)
	}
	return iter, nil
}

// filterIterator discards rows whose Filter expression's effective
// boolean value is false.
type filterIterator struct {
	input  BindingIterator
	filter *sparqlparser.Filter
}

func (e *Executor) createFilterIterator(plan *sparqlalgebra.FilterPlan, ctx execContext) (BindingIterator, error) {
	input, err := e.createIterator(plan.Input, ctx)
	if err != nil {
		return nil, err
	}
	return &filterIterator{input: input, filter: plan.Filter}, nil
}

func (it *filterIterator) Next() bool {
	for it.input.Next() {
		value, err := evalExpression(it.filter.Expression, it.input.Binding())
		if err != nil {
			continue
		}
		if effectiveBooleanValue(value) {
			return true
		}
	}
	return false
}

func (it *filterIterator) Binding() Binding { return it.input.Binding() }
func (it *filterIterator) Close() error     { return it.input.Close() }

type projectionIterator struct {
	input     BindingIterator
	variables []*sparqlparser.Variable
}

func (e *Executor) createProjectionIterator(plan *sparqlalgebra.ProjectionPlan, ctx execContext) (BindingIterator, error) {
	input, err := e.createIterator(plan.Input, ctx)
	if err != nil {
		return nil, err
	}
	return &projectionIterator{input: input, variables: plan.Variables}, nil
}

func (it *projectionIterator) Next() bool { return it.input.Next() }
func (it *projectionIterator) Binding() Binding {
	if it.variables == nil {
		return it.input.Binding()
	}
	projected := NewBinding()
	full := it.input.Binding()
	for _, v := range it.variables {
		if term, ok := full[v.Name]; ok {
			projected[v.Name] = term
		}
	}
	return projected
}
func (it *projectionIterator) Close() error { return it.input.Close() }

type distinctIterator struct {
	input BindingIterator
	seen  map[string]bool
}

func (e *Executor) createDistinctIterator(plan *sparqlalgebra.DistinctPlan, ctx execContext) (BindingIterator, error) {
	input, err := e.createIterator(plan.Input, ctx)
	if err != nil {
		return nil, err
	}
	return &distinctIterator{input: input, seen: make(map[string]bool)}, nil
}

func (it *distinctIterator) Next() bool {
	for it.input.Next() {
		key := bindingKey(it.input.Binding())
		if !it.seen[key] {
			it.seen[key] = true
			return true
		}
	}
	return false
}

func bindingKey(b Binding) string {
	names := make([]string, 0, len(b))
	for name := range b {
		names = append(names, name)
	}
	sort.Strings(names)
	key := ""
	for _, name := range names {
		key += name + "=" + b[name].String() + ";"
	}
	return key
}

func (it *distinctIterator) Binding() Binding { return it.input.Binding() }
func (it *distinctIterator) Close() error     { return it.input.Close() }

// orderByIterator materializes Input fully, then sorts (ORDER BY
// requires total knowledge of the solution set, unlike every other
// operator here which stays streaming).
type orderByIterator struct {
	rows []Binding
	pos  int
}

func (e *Executor) createOrderByIterator(plan *sparqlalgebra.OrderByPlan, ctx execContext) (BindingIterator, error) {
	input, err := e.createIterator(plan.Input, ctx)
	if err != nil {
		return nil, err
	}
	defer input.Close()

	var rows []Binding
	for input.Next() {
		rows = append(rows, input.Binding().Clone())
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, cond := range plan.OrderBy {
			vi, erri := evalExpression(cond.Expression, rows[i])
			vj, errj := evalExpression(cond.Expression, rows[j])
			cmp := compareTermsForOrder(vi, erri, vj, errj)
			if cmp == 0 {
				continue
			}
			if cond.Ascending {
				return cmp < 0
			}
			return cmp > 0
		}
		return false
	})
	return &orderByIterator{rows: rows, pos: -1}, nil
}

func (it *orderByIterator) Next() bool {
	it.pos++
	return it.pos < len(it.rows)
}
func (it *orderByIterator) Binding() Binding { return it.rows[it.pos] }
func (it *orderByIterator) Close() error     { return nil }

type offsetIterator struct {
	input   BindingIterator
	offset  int
	skipped int
}

func (e *Executor) createOffsetIterator(plan *sparqlalgebra.OffsetPlan, ctx execContext) (BindingIterator, error) {
	input, err := e.createIterator(plan.Input, ctx)
	if err != nil {
		return nil, err
	}
	return &offsetIterator{input: input, offset: plan.Offset}, nil
}

func (it *offsetIterator) Next() bool {
	for it.skipped < it.offset {
		if !it.input.Next() {
			return false
		}
		it.skipped++
	}
	return it.input.Next()
}
func (it *offsetIterator) Binding() Binding { return it.input.Binding() }
func (it *offsetIterator) Close() error     { return it.input.Close() }

type limitIterator struct {
	input BindingIterator
	limit int
	count int
}

func (e *Executor) createLimitIterator(plan *sparqlalgebra.LimitPlan, ctx execContext) (BindingIterator, error) {
	input, err := e.createIterator(plan.Input, ctx)
	if err != nil {
		return nil, err
	}
	return &limitIterator{input: input, limit: plan.Limit}, nil
}

func (it *limitIterator) Next() bool {
	if it.count >= it.limit {
		return false
	}
	if it.input.Next() {
		it.count++
		return true
	}
	return false
}
func (it *limitIterator) Binding() Binding { return it.input.Binding() }
func (it *limitIterator) Close() error      { return it.input.Close() }
