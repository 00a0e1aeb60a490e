package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// APIError is a client-facing error with a stable machine code.
type APIError struct {
	Message string            `json:"message"`
	Code    string            `json:"code"`
	Status  int               `json:"statusCode"`
	Details map[string]string `json:"details,omitempty"`
}

func (e *APIError) Error() string { return e.Message }

func validationError(message string) *APIError {
	return &APIError{Message: message, Code: "VALIDATION_ERROR", Status: http.StatusBadRequest}
}

func validationFieldError(message string, fields map[string]string) *APIError {
	return &APIError{Message: message, Code: "VALIDATION_ERROR", Status: http.StatusBadRequest, Details: fields}
}

func unauthorizedError() *APIError {
	return &APIError{Message: "authentication required", Code: "UNAUTHORIZED", Status: http.StatusUnauthorized}
}

func insufficientCreditsError() *APIError {
	return &APIError{Message: "insufficient credits for analysis", Code: "INSUFFICIENT_CREDITS", Status: http.StatusPaymentRequired}
}

func configurationError(message string) *APIError {
	return &APIError{Message: message, Code: "CONFIGURATION_ERROR", Status: http.StatusServiceUnavailable}
}

func notFoundError(message string) *APIError {
	return &APIError{Message: message, Code: "NOT_FOUND", Status: http.StatusNotFound}
}

func internalError(message string) *APIError {
	return &APIError{Message: message, Code: "INTERNAL_ERROR", Status: http.StatusInternalServerError}
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Message   string            `json:"message"`
	Code      string            `json:"code"`
	Status    int               `json:"statusCode"`
	Details   map[string]string `json:"details,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// writeError sends the structured error envelope. Non-APIError values
// become opaque internal errors so details never leak to clients.
func writeError(w http.ResponseWriter, err error) {
	apiErr, ok := err.(*APIError)
	if !ok {
		zap.L().Error("unhandled api error", zap.Error(err))
		apiErr = internalError("internal server error")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.Status)
	json.NewEncoder(w).Encode(errorBody{Error: errorDetail{
		Message:   apiErr.Message,
		Code:      apiErr.Code,
		Status:    apiErr.Status,
		Details:   apiErr.Details,
		Timestamp: time.Now().UTC(),
	}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
