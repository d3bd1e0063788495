package apicommon

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"envsensor/backend/internal/shared/types"
	"envsensor/backend/pkg/router"
	"envsensor/backend/pkg/utils"
)

const (
	MaxBodySize     = 64 << 10
	MaxBodyText     = "64KB"
	RequestIDHeader = "X-Request-ID"
)

// HandlerFunc is an HTTP handler that reports failures by returning them.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

func NewError(statusCode int, message string) *types.ErrorResponse {
	return &types.ErrorResponse{StatusCode: statusCode, Message: message}
}

func NewValidationError(fieldErrors map[string]string) *types.ErrorResponse {
	return &types.ErrorResponse{
		StatusCode: http.StatusBadRequest,
		Message:    "Validation failed",
		Errors:     fieldErrors,
	}
}

// ErrorHandler sends *types.ErrorResponse errors as they are and hides everything else behind a 500.
func ErrorHandler(fn HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := fn(w, r)
		if err == nil {
			return
		}

		l := GetLogger(r.Context())
		requestID := GetRequestID(r.Context())

		var httpErr *types.ErrorResponse
		if errors.As(err, &httpErr) {
			httpErr.RequestID = requestID
			l.Warn("Handler returned HTTP error", "status", httpErr.StatusCode, "message", httpErr.Message)
			RespondJSON(w, r, httpErr.StatusCode, httpErr)

			return
		}

		l.Error("Internal error", utils.ErrAttr(err))
		RespondJSON(w, r, http.StatusInternalServerError, &types.ErrorResponse{
			RequestID: requestID,
			Message:   "Internal Server Error",
		})
	}
}

// RespondJSON writes data with statusCode. A nil data sends headers only.
// Encoding failures are logged, since the status line is already out.
func RespondJSON(w http.ResponseWriter, r *http.Request, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data == nil {
		return
	}

	if err := utils.ToJSONStream(w, data); err != nil {
		GetLogger(r.Context()).Error("Failed to encode JSON response", utils.ErrAttr(err))
	}
}

// DecodeJSON decodes the request body into T, mapping failures to client errors.
//
//nolint:ireturn // Generic functions must return type parameter T
func DecodeJSON[T any](r *http.Request) (T, error) {
	var zero T

	r.Body = http.MaxBytesReader(nil, r.Body, MaxBodySize)

	res, err := utils.FromJSONStream[T](r.Body)
	if err == nil {
		return res, nil
	}

	var (
		syntaxError        *json.SyntaxError
		unmarshalTypeError *json.UnmarshalTypeError
		maxBytesError      *http.MaxBytesError
		extraDataError     *utils.ExtraDataAfterJSONError
	)

	switch {
	case errors.As(err, &syntaxError):
		return zero, NewError(http.StatusBadRequest, fmt.Sprintf("Invalid JSON syntax at position %d", syntaxError.Offset))
	case errors.As(err, &unmarshalTypeError):
		return zero, NewError(http.StatusBadRequest, fmt.Sprintf("Invalid type for field '%s'", unmarshalTypeError.Field))
	case errors.Is(err, io.EOF):
		return zero, NewError(http.StatusBadRequest, "Request body is empty")
	case errors.Is(err, io.ErrUnexpectedEOF):
		return zero, NewError(http.StatusBadRequest, "Malformed JSON")
	case errors.As(err, &maxBytesError):
		return zero, NewError(http.StatusRequestEntityTooLarge, "Request body too large (max "+MaxBodyText+")")
	case errors.As(err, &extraDataError):
		return zero, NewError(http.StatusBadRequest, "Request body contains multiple JSON objects")
	case strings.HasPrefix(err.Error(), "json: unknown field"):
		return zero, NewError(http.StatusBadRequest, err.Error())
	default:
		return zero, NewError(http.StatusBadRequest, "Invalid JSON payload")
	}
}

// GenerateResponses documents the error responses every route can produce.
func GenerateResponses(responses map[int]router.ResponseSpec) map[int]router.ResponseSpec {
	if _, exists := responses[http.StatusInternalServerError]; !exists {
		responses[http.StatusInternalServerError] = router.ResponseSpec{
			Description: "Internal Server Error",
			Type:        types.ErrorResponse{},
			Examples: map[string]any{
				"Internal Server Error": types.ErrorResponse{RequestID: zeroUUID, Message: "Internal Server Error"},
			},
		}
	}

	return responses
}

// GenerateBodyResponses adds the errors of routes that decode a JSON body.
func GenerateBodyResponses(responses map[int]router.ResponseSpec) map[int]router.ResponseSpec {
	if _, exists := responses[http.StatusBadRequest]; !exists {
		responses[http.StatusBadRequest] = router.ResponseSpec{
			Description: "Bad request",
			Type:        types.ErrorResponse{},
			Examples: map[string]any{
				"Malformed JSON": types.ErrorResponse{RequestID: zeroUUID, Message: "Malformed JSON"},
			},
		}
	}

	if _, exists := responses[http.StatusRequestEntityTooLarge]; !exists {
		responses[http.StatusRequestEntityTooLarge] = router.ResponseSpec{
			Description: "Request entity too large",
			Type:        types.ErrorResponse{},
			Examples: map[string]any{
				"Request Entity Too Large": types.ErrorResponse{RequestID: zeroUUID, Message: "Request body too large (max " + MaxBodyText + ")"},
			},
		}
	}

	return GenerateResponses(responses)
}
