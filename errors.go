package odata

import (
	"errors"
	"net/http"

	"github.com/nlstn/go-odata-query/internal/edm"
	"github.com/nlstn/go-odata-query/internal/query"
)

// Sentinel errors for the failure classes of parse and translate calls.
// These can be used with errors.Is() for error handling.
var (
	// ErrSyntax indicates input that does not match the grammar of the option.
	// Maps to HTTP 400 Bad Request.
	ErrSyntax = query.ErrSyntax

	// ErrSemantic indicates well-formed input that is invalid against the model.
	// Maps to HTTP 400 Bad Request.
	ErrSemantic = query.ErrSemantic

	// ErrNotSupported indicates a valid construct this library does not handle.
	// Maps to HTTP 501 Not Implemented.
	ErrNotSupported = query.ErrNotSupported

	// ErrInvalidValue indicates a literal that is not valid for its EDM type.
	// Maps to HTTP 400 Bad Request.
	ErrInvalidValue = edm.ErrInvalidValue
)

// SyntaxError reports the position of unexpected input and the tokens that
// would have been accepted there.
type SyntaxError = query.SyntaxError

// SemanticError reports unknown names, type mismatches and violated limits.
type SemanticError = query.SemanticError

// SemanticCode classifies semantic errors.
type SemanticCode = query.SemanticCode

// NotSupportedError names an unsupported feature and the option it occurred in.
type NotSupportedError = query.NotSupportedError

// ValueError reports a value that violates its EDM type or facets.
type ValueError = edm.ValueError

// ErrorCode represents standard OData error codes.
type ErrorCode string

// OData error codes returned by ErrorCodeOf.
const (
	// ErrorCodeBadRequest indicates malformed or invalid request syntax.
	ErrorCodeBadRequest ErrorCode = "BadRequest"

	// ErrorCodeNotImplemented indicates the operation is not implemented.
	ErrorCodeNotImplemented ErrorCode = "NotImplemented"

	// ErrorCodeInternalServerError indicates an unexpected error.
	ErrorCodeInternalServerError ErrorCode = "InternalServerError"
)

// StatusCode returns the HTTP status code a service should answer with when
// a query option fails with err.
//
// Example usage:
//
//	if _, err := parser.Filter(ctx, target, r.URL.Query().Get("$filter")); err != nil {
//	    http.Error(w, err.Error(), odata.StatusCode(err))
//	}
func StatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}

	switch {
	case errors.Is(err, ErrNotSupported):
		return http.StatusNotImplemented
	case errors.Is(err, ErrSyntax), errors.Is(err, ErrSemantic), errors.Is(err, ErrInvalidValue):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// ErrorCodeOf returns the OData error code matching StatusCode(err).
func ErrorCodeOf(err error) ErrorCode {
	switch StatusCode(err) {
	case http.StatusBadRequest:
		return ErrorCodeBadRequest
	case http.StatusNotImplemented:
		return ErrorCodeNotImplemented
	default:
		return ErrorCodeInternalServerError
	}
}
