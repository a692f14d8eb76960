// Package errors provides the error taxonomy shared by the metadata workers and
// its mapping onto BPMN errors for Camunda.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

type ErrorCode string

const (
	// Preconditions: the orchestrator short-circuits before any Box call.
	ErrCodeNoClient       ErrorCode = "NO_CLIENT"
	ErrCodeNoResults      ErrorCode = "NO_RESULTS"
	ErrCodeNoFiles        ErrorCode = "NO_FILES"
	ErrCodeAuthentication ErrorCode = "AUTHENTICATION_ERROR"
	ErrCodeRunCancelled   ErrorCode = "RUN_CANCELLED"

	// Per-file outcomes.
	ErrCodeMetadataConflict         ErrorCode = "METADATA_CONFLICT"
	ErrCodeMetadataValidationFailed ErrorCode = "METADATA_VALIDATION_FAILED"
	ErrCodeMetadataApplyFailed      ErrorCode = "METADATA_APPLY_FAILED"
	ErrCodeUnexpected               ErrorCode = "UNEXPECTED_ERROR"

	// Worker input and collaborators.
	ErrCodeInputParsingFailed ErrorCode = "INPUT_PARSING_FAILED"
	ErrCodeValidationFailed   ErrorCode = "VALIDATION_FAILED"
	ErrCodeSessionLoadFailed  ErrorCode = "SESSION_LOAD_FAILED"
	ErrCodeExternalService    ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeTimeout            ErrorCode = "TIMEOUT_ERROR"
	ErrCodeResourceNotFound   ErrorCode = "RESOURCE_NOT_FOUND"
	ErrCodeNotificationFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
)

// StandardError is the internal error representation.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Is matches on Code so sentinel StandardErrors work with errors.Is.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// BPMNError is what a failed job reports back to Camunda.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables converts the error into process variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 2. Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

func NewNoClientError() *StandardError {
	return newError(ErrCodeNoClient, "Box client not found. Please authenticate first.", "", false)
}

func NewNoResultsError() *StandardError {
	return newError(ErrCodeNoResults, "No processing results available. Please process files first.", "", false)
}

func NewNoFilesError() *StandardError {
	return newError(ErrCodeNoFiles, "No file IDs available for metadata application. Please process files first.", "", false)
}

func NewRunCancelledError() *StandardError {
	return newError(ErrCodeRunCancelled, "Operation cancelled.", "", false)
}

func NewAuthenticationError(details string) *StandardError {
	return newError(ErrCodeAuthentication, "Authentication error. Please re-authenticate.", details, false)
}

func NewMetadataApplyFailedError(fileID, details string) *StandardError {
	return newError(ErrCodeMetadataApplyFailed, fmt.Sprintf("Failed to apply metadata to file %s", fileID), details, false)
}

func NewInputParsingError(err error) *StandardError {
	return newError(ErrCodeInputParsingFailed, "Failed to parse job variables", err.Error(), false)
}

func NewValidationError(details string) *StandardError {
	return newError(ErrCodeValidationFailed, "Input validation failed", details, false)
}

func NewSessionLoadFailedError(sessionID string, err error) *StandardError {
	return newError(ErrCodeSessionLoadFailed, fmt.Sprintf("Failed to load session %s", sessionID), err.Error(), true)
}

func NewExternalServiceError(service string, err error) *StandardError {
	return newError(ErrCodeExternalService, fmt.Sprintf("External service '%s' error", service), err.Error(), true)
}

func NewTimeoutError(service string, err error) *StandardError {
	return newError(ErrCodeTimeout, fmt.Sprintf("Service '%s' timeout", service), err.Error(), true)
}

func NewResourceNotFoundError(service, details string) *StandardError {
	return newError(ErrCodeResourceNotFound, fmt.Sprintf("Resource not found in %s", service), details, false)
}

func NewNotificationFailedError(channel string, err error) *StandardError {
	return newError(ErrCodeNotificationFailed, fmt.Sprintf("Failed to send %s notification", channel), err.Error(), true)
}

// ==========================
// 3. Conversion to BPMN
// ==========================

// GetRetryCount returns how many times Camunda should retry a job failing
// with code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeSessionLoadFailed,
		ErrCodeExternalService,
		ErrCodeNotificationFailed:
		return 3
	case ErrCodeTimeout:
		return 2
	default:
		return 0
	}
}

func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// AsStandardError unwraps err into a StandardError, wrapping anything else as
// UNEXPECTED_ERROR.
func AsStandardError(err error) *StandardError {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr
	}
	return newError(ErrCodeUnexpected, "Unexpected error", err.Error(), false)
}

// CodeOf returns the code of a StandardError or UNKNOWN_ERROR.
func CodeOf(err error) string {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return string(stdErr.Code)
	}
	return "UNKNOWN_ERROR"
}

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "NO_") || code == ErrCodeRunCancelled:
		return "PRECONDITION"
	case strings.Contains(codeStr, "AUTHENTICATION"):
		return "AUTH"
	case strings.HasPrefix(codeStr, "METADATA"):
		return "METADATA"
	case strings.Contains(codeStr, "SESSION"):
		return "SESSION"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "PARSING"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
