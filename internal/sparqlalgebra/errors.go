package sparqlalgebra

import "errors"

var (
	errUnknownQueryType = errors.New("sparqlalgebra: unknown query type")
	errMalformedUnion   = errors.New("sparqlalgebra: UNION pattern must have exactly two operands")
)
