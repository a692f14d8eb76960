package box

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// CodeTupleAlreadyExists is the Box error code for a metadata instance that
// already exists on the file.
const CodeTupleAlreadyExists = "tuple_already_exists"

// APIError is a non-2xx response from the Box API.
type APIError struct {
	StatusCode int    `json:"status"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	RequestID  string `json:"request_id"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("box api error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("box api error (status %d, code %s): %s", e.StatusCode, e.Code, e.Message)
}

// IsConflict reports whether err is a Box "already exists" conflict.
func IsConflict(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusConflict || apiErr.Code == CodeTupleAlreadyExists
}

// IsUnauthorized reports whether err is a 401 from Box.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// IsNotFound reports whether err is a 404 from Box.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

func parseAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = string(body)
	}
	apiErr.StatusCode = statusCode
	return apiErr
}
