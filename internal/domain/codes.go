package domain

import "fmt"

// ErrorCode is the stable, caller-visible classification of a resolve failure.
// Codes never change meaning once published; the HTTP layer and the error
// translation table both key on them.
type ErrorCode string

const (
	// Pipeline-stage failures.
	CodeParseNLQ        ErrorCode = "PARSE_NLQ"
	CodeSchemaNotFound  ErrorCode = "SCHEMA_NOT_FOUND"
	CodeAmbiguousRef    ErrorCode = "AMBIGUOUS_REFERENCE"
	CodeValidate        ErrorCode = "VALIDATE"
	CodeBuildAST        ErrorCode = "BUILD_AST"
	CodeResolveBindings ErrorCode = "RESOLVE_BINDINGS"
	CodeEmitSQL         ErrorCode = "EMIT_SQL"

	// Backend execution failures.
	CodeQueryTimeout    ErrorCode = "QUERY_TIMEOUT"
	CodeConnectionError ErrorCode = "CONNECTION_ERROR"
	CodeOutOfMemory     ErrorCode = "OUT_OF_MEMORY"

	// Anything unclassified.
	CodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// ResolveError carries a stable error code plus a human-readable message
// across the resolver boundary. Raw backend exceptions never cross it.
type ResolveError struct {
	Code    ErrorCode
	Message string
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ErrResolve creates a ResolveError with a formatted message.
func ErrResolve(code ErrorCode, format string, args ...interface{}) *ResolveError {
	return &ResolveError{Code: code, Message: fmt.Sprintf(format, args...)}
}
