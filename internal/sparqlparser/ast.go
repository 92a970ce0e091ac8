// Package sparqlparser implements a recursive-descent SPARQL 1.1
// parser: SELECT/ASK/CONSTRUCT, BGP triple patterns, FILTER, OPTIONAL,
// UNION, GRAPH, SERVICE/SERVICE SILENT, ORDER BY, LIMIT, OFFSET,
// DISTINCT, with a full FILTER expression grammar.
package sparqlparser

import "github.com/loomdb/loomdb/pkg/rdf"

// QueryType identifies the SPARQL query form.
type QueryType int

const (
	QueryTypeSelect QueryType = iota
	QueryTypeAsk
	QueryTypeConstruct
)

// Query is the top-level parsed form.
type Query struct {
	QueryType QueryType
	Select    *SelectQuery
	Ask       *AskQuery
	Construct *ConstructQuery
}

// SelectQuery is a SELECT query.
type SelectQuery struct {
	Variables []*Variable // nil means SELECT *
	Distinct  bool
	Where     *GraphPattern
	OrderBy   []*OrderCondition
	Limit     *int
	Offset    *int
}

// AskQuery is an ASK query.
type AskQuery struct {
	Where *GraphPattern
}

// ConstructQuery is a CONSTRUCT query.
type ConstructQuery struct {
	Template []*TriplePattern
	Where    *GraphPattern
	OrderBy  []*OrderCondition
	Limit    *int
	Offset   *int
}

// GraphPatternType identifies the shape of one WHERE-clause node.
type GraphPatternType int

const (
	GraphPatternTypeBasic GraphPatternType = iota
	GraphPatternTypeUnion
	GraphPatternTypeOptional
	GraphPatternTypeGraph
	GraphPatternTypeService
)

// GraphPattern is one node of a WHERE clause's tree.
type GraphPattern struct {
	Type     GraphPatternType
	Patterns []*TriplePattern // GraphPatternTypeBasic
	Filters  []*Filter        // FILTERs attached at this level
	Children []*GraphPattern  // UNION operands, or the single nested pattern for OPTIONAL/GRAPH/SERVICE

	Graph  *GraphTerm // set for GraphPatternTypeGraph
	Silent bool        // set for GraphPatternTypeService
}

// TriplePattern is a subject/predicate/object triple whose slots may be
// variables.
type TriplePattern struct {
	Subject   TermOrVariable
	Predicate TermOrVariable
	Object    TermOrVariable
}

// TermOrVariable is either a bound RDF term or an unbound Variable.
type TermOrVariable struct {
	Term     rdf.Term
	Variable *Variable
}

// IsVariable reports whether this slot is unbound.
func (t TermOrVariable) IsVariable() bool { return t.Variable != nil }

// Variable is a SPARQL variable (the name excludes the leading ?/$).
type Variable struct {
	Name string
}

// GraphTerm names the graph in a GRAPH <iri-or-var> { ... } pattern, or
// the service IRI in a SERVICE <iri-or-var> { ... } pattern.
type GraphTerm struct {
	IRI      *rdf.NamedNode
	Variable *Variable
}

// Filter wraps a boolean-valued Expression.
type Filter struct {
	Expression Expression
}

// Expression is a SPARQL filter/bind expression node.
type Expression interface {
	expressionNode()
}

// BinaryExpression is a two-operand expression (comparison, arithmetic,
// logical AND/OR).
type BinaryExpression struct {
	Left     Expression
	Operator Operator
	Right    Expression
}

func (*BinaryExpression) expressionNode() {}

// UnaryExpression is a one-operand expression (logical NOT, numeric negation).
type UnaryExpression struct {
	Operator Operator
	Operand  Expression
}

func (*UnaryExpression) expressionNode() {}

// VariableExpression references a bound variable's value.
type VariableExpression struct {
	Variable *Variable
}

func (*VariableExpression) expressionNode() {}

// LiteralExpression is a constant RDF term.
type LiteralExpression struct {
	Term rdf.Term
}

func (*LiteralExpression) expressionNode() {}

// FunctionCallExpression is a built-in SPARQL function invocation, e.g.
// STR(?x), BOUND(?x), REGEX(?x, "pattern").
type FunctionCallExpression struct {
	Function  string
	Arguments []Expression
}

func (*FunctionCallExpression) expressionNode() {}

// Operator identifies an Expression's operator.
type Operator int

const (
	OpAnd Operator = iota
	OpOr
	OpNot

	OpEqual
	OpNotEqual
	OpLessThan
	OpLessThanOrEqual
	OpGreaterThan
	OpGreaterThanOrEqual

	OpAdd
	OpSubtract
	OpMultiply
	OpDivide

	OpNegate
)

// OrderCondition is one ORDER BY clause entry.
type OrderCondition struct {
	Expression Expression
	Ascending  bool
}
