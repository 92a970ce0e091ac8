package sparqlexec

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/loomdb/loomdb/internal/sparqlparser"
	"github.com/loomdb/loomdb/pkg/rdf"
)

// evalExpression evaluates a FILTER/ORDER BY expression tree against
// one solution: SPARQL's comparison, logical, arithmetic and
// built-in-function operators. No aggregates, no property-function
// extensions.
func evalExpression(expr sparqlparser.Expression, binding Binding) (rdf.Term, error) {
	switch e := expr.(type) {
	case *sparqlparser.LiteralExpression:
		return e.Term, nil
	case *sparqlparser.VariableExpression:
		term, ok := binding[e.Variable.Name]
		if !ok {
			return nil, fmt.Errorf("sparqlexec: unbound variable ?%s", e.Variable.Name)
		}
		return term, nil
	case *sparqlparser.UnaryExpression:
		return evalUnary(e, binding)
	case *sparqlparser.BinaryExpression:
		return evalBinary(e, binding)
	case *sparqlparser.FunctionCallExpression:
		return evalFunctionCall(e, binding)
	default:
		return nil, fmt.Errorf("sparqlexec: unsupported expression node %T", expr)
	}
}

func evalUnary(e *sparqlparser.UnaryExpression, binding Binding) (rdf.Term, error) {
	operand, err := evalExpression(e.Operand, binding)
	if err != nil {
		if e.Operator == sparqlparser.OpNot {
			return rdf.NewBooleanLiteral(true), nil
		}
		return nil, err
	}
	switch e.Operator {
	case sparqlparser.OpNot:
		return rdf.NewBooleanLiteral(!effectiveBooleanValue(operand)), nil
	case sparqlparser.OpNegate:
		n, ok := numericValue(operand)
		if !ok {
			return nil, fmt.Errorf("sparqlexec: unary '-' on a non-numeric term %s", operand.String())
		}
		return rdf.NewDoubleLiteral(-n), nil
	default:
		return nil, fmt.Errorf("sparqlexec: unsupported unary operator %v", e.Operator)
	}
}

func evalBinary(e *sparqlparser.BinaryExpression, binding Binding) (rdf.Term, error) {
	switch e.Operator {
	case sparqlparser.OpAnd:
		left, errL := evalExpression(e.Left, binding)
		if errL == nil && !effectiveBooleanValue(left) {
			return rdf.NewBooleanLiteral(false), nil
		}
		right, errR := evalExpression(e.Right, binding)
		if errR == nil && !effectiveBooleanValue(right) {
			return rdf.NewBooleanLiteral(false), nil
		}
		if errL != nil || errR != nil {
			return nil, fmt.Errorf("sparqlexec: operand error in &&")
		}
		return rdf.NewBooleanLiteral(true), nil
	case sparqlparser.OpOr:
		left, errL := evalExpression(e.Left, binding)
		if errL == nil && effectiveBooleanValue(left) {
			return rdf.NewBooleanLiteral(true), nil
		}
		right, errR := evalExpression(e.Right, binding)
		if errR == nil && effectiveBooleanValue(right) {
			return rdf.NewBooleanLiteral(true), nil
		}
		if errL != nil && errR != nil {
			return nil, fmt.Errorf("sparqlexec: operand error in ||")
		}
		return rdf.NewBooleanLiteral(false), nil
	}

	left, err := evalExpression(e.Left, binding)
	if err != nil {
		return nil, err
	}
	right, err := evalExpression(e.Right, binding)
	if err != nil {
		return nil, err
	}

	switch e.Operator {
	case sparqlparser.OpEqual:
		return rdf.NewBooleanLiteral(termsEqual(left, right)), nil
	case sparqlparser.OpNotEqual:
		return rdf.NewBooleanLiteral(!termsEqual(left, right)), nil
	case sparqlparser.OpLessThan, sparqlparser.OpLessThanOrEqual, sparqlparser.OpGreaterThan, sparqlparser.OpGreaterThanOrEqual:
		return evalOrderingComparison(e.Operator, left, right)
	case sparqlparser.OpAdd, sparqlparser.OpSubtract, sparqlparser.OpMultiply, sparqlparser.OpDivide:
		return evalArithmetic(e.Operator, left, right)
	default:
		return nil, fmt.Errorf("sparqlexec: unsupported binary operator %v", e.Operator)
	}
}

func termsEqual(left, right rdf.Term) bool {
	if ln, lok := numericValue(left); lok {
		if rn, rok := numericValue(right); rok {
			return ln == rn
		}
	}
	return left.Equals(right)
}

func evalOrderingComparison(op sparqlparser.Operator, left, right rdf.Term) (rdf.Term, error) {
	cmp := compareTerms(left, right)
	switch op {
	case sparqlparser.OpLessThan:
		return rdf.NewBooleanLiteral(cmp < 0), nil
	case sparqlparser.OpLessThanOrEqual:
		return rdf.NewBooleanLiteral(cmp <= 0), nil
	case sparqlparser.OpGreaterThan:
		return rdf.NewBooleanLiteral(cmp > 0), nil
	case sparqlparser.OpGreaterThanOrEqual:
		return rdf.NewBooleanLiteral(cmp >= 0), nil
	default:
		return nil, fmt.Errorf("sparqlexec: not an ordering operator: %v", op)
	}
}

// compareTerms orders numeric literals by value, strings lexically,
// and falls back to comparing String() forms for mixed/other terms.
func compareTerms(left, right rdf.Term) int {
	if ln, lok := numericValue(left); lok {
		if rn, rok := numericValue(right); rok {
			switch {
			case ln < rn:
				return -1
			case ln > rn:
				return 1
			default:
				return 0
			}
		}
	}
	if ls, lok := stringValue(left); lok {
		if rs, rok := stringValue(right); rok {
			return strings.Compare(ls, rs)
		}
	}
	return strings.Compare(left.String(), right.String())
}

// compareTermsForOrder is compareTerms with evaluation-error tolerance
// for ORDER BY, where an expression failing to evaluate (e.g. an
// unbound variable) sorts before any term that did evaluate.
func compareTermsForOrder(left rdf.Term, errLeft error, right rdf.Term, errRight error) int {
	switch {
	case errLeft != nil && errRight != nil:
		return 0
	case errLeft != nil:
		return -1
	case errRight != nil:
		return 1
	default:
		return compareTerms(left, right)
	}
}

func evalArithmetic(op sparqlparser.Operator, left, right rdf.Term) (rdf.Term, error) {
	ln, lok := numericValue(left)
	rn, rok := numericValue(right)
	if !lok || !rok {
		return nil, fmt.Errorf("sparqlexec: arithmetic on a non-numeric term")
	}
	switch op {
	case sparqlparser.OpAdd:
		return rdf.NewDoubleLiteral(ln + rn), nil
	case sparqlparser.OpSubtract:
		return rdf.NewDoubleLiteral(ln - rn), nil
	case sparqlparser.OpMultiply:
		return rdf.NewDoubleLiteral(ln * rn), nil
	case sparqlparser.OpDivide:
		if rn == 0 {
			return nil, fmt.Errorf("sparqlexec: division by zero")
		}
		return rdf.NewDoubleLiteral(ln / rn), nil
	default:
		return nil, fmt.Errorf("sparqlexec: not an arithmetic operator: %v", op)
	}
}

// numericValue extracts a float64 from an xsd:integer/decimal/float/double
// literal.
func numericValue(term rdf.Term) (float64, bool) {
	lit, ok := term.(*rdf.Literal)
	if !ok || lit.Datatype == nil {
		return 0, false
	}
	switch lit.Datatype.IRI {
	case rdf.XSDInteger.IRI, rdf.XSDDecimal.IRI, rdf.XSDFloat.IRI, rdf.XSDDouble.IRI:
		v, err := strconv.ParseFloat(lit.Value, 64)
		if err != nil {
			return 0, false
		}
		return v, true
	default:
		return 0, false
	}
}

// stringValue extracts a comparable lexical form from a plain or
// xsd:string literal.
func stringValue(term rdf.Term) (string, bool) {
	lit, ok := term.(*rdf.Literal)
	if !ok {
		return "", false
	}
	if lit.Datatype != nil && lit.Datatype.IRI != rdf.XSDString.IRI {
		return "", false
	}
	return lit.Value, true
}

// effectiveBooleanValue implements SPARQL's EBV coercion: booleans by
// their value, numerics nonzero, strings non-empty, everything else
// (IRIs, blank nodes) true.
func effectiveBooleanValue(term rdf.Term) bool {
	if term == nil {
		return false
	}
	lit, ok := term.(*rdf.Literal)
	if !ok {
		return true
	}
	if lit.Datatype != nil && lit.Datatype.IRI == rdf.XSDBoolean.IRI {
		return lit.Value == "true" || lit.Value == "1"
	}
	if n, ok := numericValue(term); ok {
		return n != 0
	}
	return lit.Value != ""
}

func evalFunctionCall(e *sparqlparser.FunctionCallExpression, binding Binding) (rdf.Term, error) {
	args := make([]rdf.Term, len(e.Arguments))
	var argErrs []error
	for i, arg := range e.Arguments {
		v, err := evalExpression(arg, binding)
		args[i] = v
		argErrs = append(argErrs, err)
	}

	switch e.Function {
	case "BOUND":
		if len(e.Arguments) != 1 {
			return nil, fmt.Errorf("sparqlexec: BOUND takes exactly one argument")
		}
		v, ok := e.Arguments[0].(*sparqlparser.VariableExpression)
		if !ok {
			return nil, fmt.Errorf("sparqlexec: BOUND requires a variable argument")
		}
		_, bound := binding[v.Variable.Name]
		return rdf.NewBooleanLiteral(bound), nil
	}

	for _, err := range argErrs {
		if err != nil {
			return nil, err
		}
	}

	switch e.Function {
	case "STR":
		return rdf.NewLiteral(lexicalForm(args[0])), nil
	case "LANG":
		lit, ok := args[0].(*rdf.Literal)
		if !ok {
			return rdf.NewLiteral(""), nil
		}
		return rdf.NewLiteral(lit.Language), nil
	case "DATATYPE":
		lit, ok := args[0].(*rdf.Literal)
		if !ok {
			return nil, fmt.Errorf("sparqlexec: DATATYPE requires a literal argument")
		}
		return lit.EffectiveDatatype(), nil
	case "ISIRI", "ISURI":
		_, ok := args[0].(*rdf.NamedNode)
		return rdf.NewBooleanLiteral(ok), nil
	case "ISBLANK":
		_, ok := args[0].(*rdf.BlankNode)
		return rdf.NewBooleanLiteral(ok), nil
	case "ISLITERAL":
		_, ok := args[0].(*rdf.Literal)
		return rdf.NewBooleanLiteral(ok), nil
	case "STRLEN":
		return rdf.NewIntegerLiteral(int64(len([]rune(lexicalForm(args[0]))))), nil
	case "UCASE":
		return rdf.NewLiteral(strings.ToUpper(lexicalForm(args[0]))), nil
	case "LCASE":
		return rdf.NewLiteral(strings.ToLower(lexicalForm(args[0]))), nil
	case "CONTAINS":
		return rdf.NewBooleanLiteral(strings.Contains(lexicalForm(args[0]), lexicalForm(args[1]))), nil
	case "STRSTARTS":
		return rdf.NewBooleanLiteral(strings.HasPrefix(lexicalForm(args[0]), lexicalForm(args[1]))), nil
	case "STRENDS":
		return rdf.NewBooleanLiteral(strings.HasSuffix(lexicalForm(args[0]), lexicalForm(args[1]))), nil
	case "REGEX":
		pattern := lexicalForm(args[1])
		if len(args) == 3 {
			if flags := lexicalForm(args[2]); flags != "" {
				pattern = "(?" + flags + ")" + pattern
			}
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("sparqlexec: REGEX: %w", err)
		}
		return rdf.NewBooleanLiteral(re.MatchString(lexicalForm(args[0]))), nil
	case "ABS":
		n, ok := numericValue(args[0])
		if !ok {
			return nil, fmt.Errorf("sparqlexec: ABS requires a numeric argument")
		}
		return rdf.NewDoubleLiteral(math.Abs(n)), nil
	case "CEIL":
		n, ok := numericValue(args[0])
		if !ok {
			return nil, fmt.Errorf("sparqlexec: CEIL requires a numeric argument")
		}
		return rdf.NewDoubleLiteral(math.Ceil(n)), nil
	case "FLOOR":
		n, ok := numericValue(args[0])
		if !ok {
			return nil, fmt.Errorf("sparqlexec: FLOOR requires a numeric argument")
		}
		return rdf.NewDoubleLiteral(math.Floor(n)), nil
	case "ROUND":
		n, ok := numericValue(args[0])
		if !ok {
			return nil, fmt.Errorf("sparqlexec: ROUND requires a numeric argument")
		}
		return rdf.NewDoubleLiteral(math.Round(n)), nil
	default:
		return nil, fmt.Errorf("sparqlexec: unknown function %s", e.Function)
	}
}

func lexicalForm(term rdf.Term) string {
	switch t := term.(type) {
	case *rdf.Literal:
		return t.Value
	case *rdf.NamedNode:
		return t.IRI
	case *rdf.BlankNode:
		return t.ID
	default:
		return term.String()
	}
}
