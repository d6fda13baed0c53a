package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/DanielChung520/AI-Box-sub013/internal/domain"
)

// errorBody is the JSON error envelope every failed request returns.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// httpStatusFromError maps resolver and domain errors to HTTP status codes.
func httpStatusFromError(err error) int {
	var re *domain.ResolveError
	if errors.As(err, &re) {
		switch re.Code {
		case domain.CodeParseNLQ, domain.CodeValidate, domain.CodeAmbiguousRef:
			return http.StatusBadRequest
		case domain.CodeSchemaNotFound:
			return http.StatusNotFound
		case domain.CodeQueryTimeout:
			return http.StatusGatewayTimeout
		case domain.CodeConnectionError:
			return http.StatusBadGateway
		default:
			return http.StatusInternalServerError
		}
	}

	var notFound *domain.NotFoundError
	var validation *domain.ValidationError
	var conflict *domain.ConflictError
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &conflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders the error envelope. The stable code travels in the
// body; raw internals never do.
func writeError(w http.ResponseWriter, err error) {
	code := string(domain.CodeInternalError)
	message := "internal error"

	var re *domain.ResolveError
	var notFound *domain.NotFoundError
	var validation *domain.ValidationError
	switch {
	case errors.As(err, &re):
		code = string(re.Code)
		message = re.Message
	case errors.As(err, &notFound):
		code = "NOT_FOUND"
		message = notFound.Error()
	case errors.As(err, &validation):
		code = string(domain.CodeValidate)
		message = validation.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatusFromError(err))
	_ = json.NewEncoder(w).Encode(errorBody{Error: errorDetail{Code: code, Message: message}})
}

// writeJSON renders a success payload.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
