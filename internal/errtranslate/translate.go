// Package errtranslate classifies raw backend error text into stable
// error codes with fixed human-readable messages. Raw driver and engine
// strings never reach API callers; this table is the only place that
// inspects them.
package errtranslate

import (
	"strings"

	"github.com/DanielChung520/AI-Box-sub013/internal/domain"
)

// rule maps a lowercase substring of the raw backend error to a code.
// Rules are checked in order; the first match wins, so the more specific
// vendor codes sit above the generic keywords.
type rule struct {
	substr string
	code   domain.ErrorCode
}

var rules = []rule{
	// Oracle vendor codes.
	{"ora-01013", domain.CodeQueryTimeout},    // user requested cancel / timeout
	{"ora-12170", domain.CodeConnectionError}, // TNS connect timeout
	{"ora-12541", domain.CodeConnectionError}, // no listener
	{"ora-04030", domain.CodeOutOfMemory},

	// MySQL vendor codes.
	{"error 2013", domain.CodeConnectionError}, // lost connection during query
	{"error 2003", domain.CodeConnectionError}, // can't connect to server

	// Generic keywords, any backend.
	{"context deadline exceeded", domain.CodeQueryTimeout},
	{"query interrupted", domain.CodeQueryTimeout},
	{"timeout", domain.CodeQueryTimeout},
	{"timed out", domain.CodeQueryTimeout},
	{"connection refused", domain.CodeConnectionError},
	{"connection reset", domain.CodeConnectionError},
	{"network", domain.CodeConnectionError},
	{"no such host", domain.CodeConnectionError},
	{"broken pipe", domain.CodeConnectionError},
	{"out of memory", domain.CodeOutOfMemory},
	{"memory limit", domain.CodeOutOfMemory},
	{"cannot allocate", domain.CodeOutOfMemory},
}

// messages holds the one fixed human message per backend code. Callers
// always see the same text for the same code regardless of which raw
// error produced it.
var messages = map[domain.ErrorCode]string{
	domain.CodeQueryTimeout:    "the query took too long and was cancelled",
	domain.CodeConnectionError: "could not reach the data backend",
	domain.CodeOutOfMemory:     "the query needed more memory than the backend allows",
	domain.CodeInternalError:   "the query failed for an unexpected reason",
}

// Classify maps raw backend error text to a stable error code. Empty or
// unrecognized text classifies as INTERNAL_ERROR.
func Classify(raw string) domain.ErrorCode {
	lowered := strings.ToLower(raw)
	for _, r := range rules {
		if strings.Contains(lowered, r.substr) {
			return r.code
		}
	}
	return domain.CodeInternalError
}

// Message returns the fixed human-readable message for a backend code.
func Message(code domain.ErrorCode) string {
	if msg, ok := messages[code]; ok {
		return msg
	}
	return messages[domain.CodeInternalError]
}

// Translate classifies raw backend error text and wraps it as a
// ResolveError carrying the fixed message for its code.
func Translate(raw string) *domain.ResolveError {
	code := Classify(raw)
	return &domain.ResolveError{Code: code, Message: Message(code)}
}
