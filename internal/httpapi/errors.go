package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"modelgw/internal/generation"
	"modelgw/internal/manager"
	"modelgw/internal/prompt"
	"modelgw/internal/wire"
	"modelgw/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// requestError is a client error with a stable message. internal keeps the
// underlying cause for logs and is never sent.
type requestError struct {
	status   int
	msg      string
	internal string
}

func (e requestError) Error() string   { return e.msg }
func (e requestError) StatusCode() int { return e.status }

func badRequest(msg string) requestError {
	return requestError{status: http.StatusBadRequest, msg: msg}
}

// errorType names the envelope type for a status code.
func errorType(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "InvalidRequestError"
	case http.StatusNotFound:
		return "NotFoundError"
	case http.StatusMethodNotAllowed:
		return "MethodNotAllowedError"
	case http.StatusRequestEntityTooLarge:
		return "RequestTooLargeError"
	case http.StatusUnsupportedMediaType:
		return "UnsupportedMediaTypeError"
	case http.StatusTooManyRequests:
		return "TooManyRequestsError"
	case http.StatusServiceUnavailable:
		return "ServiceUnavailableError"
	case http.StatusGatewayTimeout:
		return "TimeoutError"
	default:
		return "InternalServerError"
	}
}

// internalMessage returns the log-only diagnostic carried by err, if any.
func internalMessage(err error) string {
	var info *generation.ErrorInfo
	if errors.As(err, &info) {
		return info.InternalMessage
	}
	var re requestError
	if errors.As(err, &re) {
		return re.internal
	}
	return ""
}

// errorFor maps err to a status code and client envelope.
func errorFor(err error) (int, types.ErrorResponse) {
	var info *generation.ErrorInfo
	var he HTTPError
	switch {
	case prompt.IsInvalidPrompt(err):
		return respond(http.StatusBadRequest, err)
	case manager.IsModelNotFound(err):
		return respond(http.StatusNotFound, err)
	case manager.IsTooBusy(err):
		return respond(http.StatusTooManyRequests, err)
	case manager.IsDependencyUnavailable(err):
		return respond(http.StatusServiceUnavailable, err)
	case errors.As(err, &info):
		return resultError(*info)
	case errors.As(err, &he):
		return respond(he.StatusCode(), err)
	case errors.Is(err, context.DeadlineExceeded):
		return respond(http.StatusGatewayTimeout, err)
	default:
		return respond(http.StatusInternalServerError, err)
	}
}

func respond(status int, err error) (int, types.ErrorResponse) {
	return status, wire.NewErrorResponse(status, errorType(status), err.Error(), internalMessage(err))
}

// resultError maps an in-band backend failure; a missing code means 500.
func resultError(info generation.ErrorInfo) (int, types.ErrorResponse) {
	if info.Code == 0 {
		info.Code = http.StatusInternalServerError
	}
	return info.Code, wire.ErrorResponse(info)
}

// writeJSON writes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, wire.NewErrorResponse(status, errorType(status), msg, ""))
}

// writeError writes the envelope for err and returns the status used.
func writeError(w http.ResponseWriter, err error) int {
	status, body := errorFor(err)
	if status == http.StatusTooManyRequests {
		IncrementBackpressure("queue")
	}
	writeJSON(w, status, body)
	return status
}
