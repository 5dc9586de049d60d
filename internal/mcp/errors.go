package mcp

import (
	"fmt"
	"net/http"
)

// JSON-RPC error codes. CodeUnauthorized and CodeRateLimited are
// implementation defined.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeUnauthorized   = -32001
	CodeRateLimited    = -32002
)

// Error is a JSON-RPC error together with the HTTP status it is sent with.
type Error struct {
	Code       int
	Message    string
	HTTPStatus int
}

func (e *Error) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

func newError(status, code int, message string) *Error {
	return &Error{Code: code, Message: message, HTTPStatus: status}
}

var (
	errMethodNotAllowed = newError(http.StatusMethodNotAllowed, CodeParseError, "Method not allowed")
	errEmptyRequest     = newError(http.StatusBadRequest, CodeParseError, "Parse error: empty request")
	errInvalidJSON      = newError(http.StatusBadRequest, CodeParseError, "Parse error: invalid JSON")
	errBodyTooLarge     = newError(http.StatusRequestEntityTooLarge, CodeInvalidRequest, "Invalid Request: request body too large")
	errBadVersion       = newError(http.StatusBadRequest, CodeInvalidRequest, "Invalid Request: version must be 2.0")
	errBadMethodField   = newError(http.StatusBadRequest, CodeInvalidRequest, "Invalid Request: method must be a string")
	errUnauthorized     = newError(http.StatusUnauthorized, CodeUnauthorized, "Invalid or expired token")
	errNotFound         = newError(http.StatusNotFound, CodeInvalidParams, "Solution not found")
	errInternal         = newError(http.StatusInternalServerError, CodeInternalError, "Internal error: An error occurred processing your request")
)

func methodNotFound(method string) *Error {
	return newError(http.StatusBadRequest, CodeMethodNotFound, "Method not found: "+method)
}

// InvalidParams builds a -32602 error. Handlers return it for any argument
// they reject.
func InvalidParams(format string, args ...any) *Error {
	return newError(http.StatusBadRequest, CodeInvalidParams, "Invalid params: "+fmt.Sprintf(format, args...))
}
