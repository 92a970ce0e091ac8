// Package sparqlalgebra lowers a parsed sparqlparser.Query into a small
// Volcano-style operator tree, applying one concrete optimization: a
// greedy selectivity-based reordering of a basic graph pattern's triple
// patterns so the cheapest qkey permutation drives each join. Also
// lowers SERVICE/SERVICE SILENT into their own operator.
package sparqlalgebra

import "github.com/loomdb/loomdb/internal/sparqlparser"

// Plan is one node of the lowered operator tree.
type Plan interface {
	planNode()
}

// ScanPlan answers a single triple pattern against the store.
type ScanPlan struct {
	Pattern *sparqlparser.TriplePattern
}

func (*ScanPlan) planNode() {}

// JoinPlan is an inner join of two plans on shared variables.
type JoinPlan struct {
	Left, Right Plan
}

func (*JoinPlan) planNode() {}

// OptionalPlan is a left outer join: every Left solution is kept even
// when it has no matching Right solution.
type OptionalPlan struct {
	Left, Right Plan
}

func (*OptionalPlan) planNode() {}

// UnionPlan yields the concatenation of Left's and Right's solutions.
type UnionPlan struct {
	Left, Right Plan
}

func (*UnionPlan) planNode() {}

// GraphPlan restricts Input to quads in the named graph bound by Graph
// (a fixed IRI, or a variable bound per-solution).
type GraphPlan struct {
	Input Plan
	Graph *sparqlparser.GraphTerm
}

func (*GraphPlan) planNode() {}

// ServicePlan delegates Pattern to an external SPARQL endpoint named
// by Service, merging the endpoint's solutions with whatever bindings
// already flow into this point in the tree. A Silent service turns an
// endpoint error into a single empty solution instead of propagating
// the error.
type ServicePlan struct {
	Service *sparqlparser.GraphTerm
	Pattern *sparqlparser.GraphPattern
	Silent  bool
}

func (*ServicePlan) planNode() {}

// FilterPlan discards Input solutions for which Filter evaluates to a
// non-true effective boolean value.
type FilterPlan struct {
	Input  Plan
	Filter *sparqlparser.Filter
}

func (*FilterPlan) planNode() {}

// ProjectionPlan narrows each solution to Variables. A nil Variables
// (SELECT *) is a no-op left to the caller.
type ProjectionPlan struct {
	Input     Plan
	Variables []*sparqlparser.Variable
}

func (*ProjectionPlan) planNode() {}

// DistinctPlan removes duplicate solutions, comparing by their current
// projected variable set.
type DistinctPlan struct {
	Input Plan
}

func (*DistinctPlan) planNode() {}

// OrderByPlan sorts Input's solutions by OrderBy.
type OrderByPlan struct {
	Input   Plan
	OrderBy []*sparqlparser.OrderCondition
}

func (*OrderByPlan) planNode() {}

// OffsetPlan skips the first Offset solutions.
type OffsetPlan struct {
	Input  Plan
	Offset int
}

func (*OffsetPlan) planNode() {}

// LimitPlan caps Input to at most Limit solutions.
type LimitPlan struct {
	Input Plan
	Limit int
}

func (*LimitPlan) planNode() {}

// ConstructPlan applies Template to every Input solution, producing
// triples instead of variable bindings.
type ConstructPlan struct {
	Input    Plan
	Template []*sparqlparser.TriplePattern
}

func (*ConstructPlan) planNode() {}

// Compiled is a lowered query ready for execution.
type Compiled struct {
	QueryType sparqlparser.QueryType
	Plan      Plan
}

// Compile lowers a parsed Query into a Compiled operator tree.
func Compile(query *sparqlparser.Query) (*Compiled, error) {
	switch query.QueryType {
	case sparqlparser.QueryTypeSelect:
		plan, err := compileSelect(query.Select)
		if err != nil {
			return nil, err
		}
		return &Compiled{QueryType: query.QueryType, Plan: plan}, nil
	case sparqlparser.QueryTypeAsk:
		plan, err := compileGraphPattern(query.Ask.Where)
		if err != nil {
			return nil, err
		}
		return &Compiled{QueryType: query.QueryType, Plan: &LimitPlan{Input: plan, Limit: 1}}, nil
	case sparqlparser.QueryTypeConstruct:
		plan, err := compileGraphPattern(query.Construct.Where)
		if err != nil {
			return nil, err
		}
		if len(query.Construct.OrderBy) > 0 {
			plan = &OrderByPlan{Input: plan, OrderBy: query.Construct.OrderBy}
		}
		if query.Construct.Offset != nil {
			plan = &OffsetPlan{Input: plan, Offset: *query.Construct.Offset}
		}
		if query.Construct.Limit != nil {
			plan = &LimitPlan{Input: plan, Limit: *query.Construct.Limit}
		}
		plan = &ConstructPlan{Input: plan, Template: query.Construct.Template}
		return &Compiled{QueryType: query.QueryType, Plan: plan}, nil
	default:
		return nil, errUnknownQueryType
	}
}

func compileSelect(query *sparqlparser.SelectQuery) (Plan, error) {
	plan, err := compileGraphPattern(query.Where)
	if err != nil {
		return nil, err
	}
	if len(query.OrderBy) > 0 {
		plan = &OrderByPlan{Input: plan, OrderBy: query.OrderBy}
	}
	if query.Variables != nil {
		plan = &ProjectionPlan{Input: plan, Variables: query.Variables}
	}
	if query.Distinct {
		plan = &DistinctPlan{Input: plan}
	}
	if query.Offset != nil {
		plan = &OffsetPlan{Input: plan, Offset: *query.Offset}
	}
	if query.Limit != nil {
		plan = &LimitPlan{Input: plan, Limit: *query.Limit}
	}
	return plan, nil
}

func compileGraphPattern(pattern *sparqlparser.GraphPattern) (Plan, error) {
	var plan Plan

	if len(pattern.Patterns) > 0 {
		ordered := reorderBySelectivity(pattern.Patterns)
		plan = &ScanPlan{Pattern: ordered[0]}
		for i := 1; i < len(ordered); i++ {
			plan = &JoinPlan{Left: plan, Right: &ScanPlan{Pattern: ordered[i]}}
		}
	}

	for _, child := range pattern.Children {
		childPlan, err := compileChild(child)
		if err != nil {
			return nil, err
		}
		if plan == nil {
			plan = childPlan
			continue
		}
		switch child.Type {
		case sparqlparser.GraphPatternTypeOptional:
			plan = &OptionalPlan{Left: plan, Right: childPlan}
		case sparqlparser.GraphPatternTypeUnion:
			plan = &UnionPlan{Left: plan, Right: childPlan}
		default:
			plan = &JoinPlan{Left: plan, Right: childPlan}
		}
	}

	for _, filter := range pattern.Filters {
		if plan != nil {
			plan = &FilterPlan{Input: plan, Filter: filter}
		}
	}

	return plan, nil
}

// compileChild dispatches a GRAPH/SERVICE/OPTIONAL/UNION child node.
// UNION's two operands are compiled as whole basic graph patterns;
// every other child type wraps a single nested pattern.
func compileChild(pattern *sparqlparser.GraphPattern) (Plan, error) {
	switch pattern.Type {
	case sparqlparser.GraphPatternTypeUnion:
		if len(pattern.Children) != 2 {
			return nil, errMalformedUnion
		}
		left, err := compileGraphPattern(pattern.Children[0])
		if err != nil {
			return nil, err
		}
		right, err := compileGraphPattern(pattern.Children[1])
		if err != nil {
			return nil, err
		}
		return &UnionPlan{Left: left, Right: right}, nil
	case sparqlparser.GraphPatternTypeGraph:
		inner, err := compileGraphPattern(clearedCopy(pattern))
		if err != nil {
			return nil, err
		}
		return &GraphPlan{Input: inner, Graph: pattern.Graph}, nil
	case sparqlparser.GraphPatternTypeService:
		return &ServicePlan{Service: pattern.Graph, Pattern: clearedCopy(pattern), Silent: pattern.Silent}, nil
	default:
		return compileGraphPattern(pattern)
	}
}

// clearedCopy returns pattern with its own Type/Graph/Silent zeroed so
// recompiling its body as a plain basic/union graph pattern doesn't
// re-dispatch into GraphPlan/ServicePlan.
func clearedCopy(pattern *sparqlparser.GraphPattern) *sparqlparser.GraphPattern {
	return &sparqlparser.GraphPattern{
		Type:     sparqlparser.GraphPatternTypeBasic,
		Patterns: pattern.Patterns,
		Filters:  pattern.Filters,
		Children: pattern.Children,
	}
}

// reorderBySelectivity applies a greedy heuristic: patterns with more
// bound terms are assumed more selective and run first, so
// qkey.SelectIndex is handed the tightest prefix earliest in the join.
func reorderBySelectivity(patterns []*sparqlparser.TriplePattern) []*sparqlparser.TriplePattern {
	ordered := make([]*sparqlparser.TriplePattern, len(patterns))
	copy(ordered, patterns)
	for i := 0; i < len(ordered); i++ {
		for j := i + 1; j < len(ordered); j++ {
			if estimateSelectivity(ordered[j]) < estimateSelectivity(ordered[i]) {
				ordered[i], ordered[j] = ordered[j], ordered[i]
			}
		}
	}
	return ordered
}

func estimateSelectivity(pattern *sparqlparser.TriplePattern) float64 {
	selectivity := 1.0
	if !pattern.Subject.IsVariable() {
		selectivity *= 0.01
	}
	if !pattern.Predicate.IsVariable() {
		selectivity *= 0.1
	}
	if !pattern.Object.IsVariable() {
		selectivity *= 0.1
	}
	return selectivity
}
