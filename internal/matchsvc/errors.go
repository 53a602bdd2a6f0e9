package matchsvc

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// APIError is a non-success response from the JobMatcher service. Detail holds
// the structured "detail" message when the service supplied one.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (status %d)", e.Detail, e.StatusCode)
	}
	return fmt.Sprintf("bad status: %d", e.StatusCode)
}

// ErrorDetail returns the service-provided detail message, if any.
func (e *APIError) ErrorDetail() string {
	return e.Detail
}

// IsNotFound reports whether the error is a "resource does not exist" response.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsValidation reports whether the error is a rejected mutation (the service
// refused the payload rather than failing).
func IsValidation(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusBadRequest || apiErr.StatusCode == http.StatusUnprocessableEntity
}

func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}

	// FastAPI-style error bodies carry {"detail": ...} where detail is
	// usually a string but may be a structured validation report.
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return apiErr
	}

	var detail string
	if err := json.Unmarshal(envelope.Detail, &detail); err != nil {
		detail = string(envelope.Detail)
	}

	apiErr.Detail = strings.TrimSpace(detail)
	return apiErr
}
