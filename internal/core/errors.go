package core

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors for handling decisions.
type ErrorCategory string

const (
	ErrCatValidation ErrorCategory = "validation" // Invalid input
	ErrCatTransport  ErrorCategory = "transport"  // Connection drop, non-2xx response
	ErrCatProtocol   ErrorCategory = "protocol"   // Operation outside its valid state
	ErrCatState      ErrorCategory = "state"      // State corruption/conflict
	ErrCatPipeline   ErrorCategory = "pipeline"   // Server-reported generation failure
	ErrCatNotFound   ErrorCategory = "not_found"  // Resource not found
	ErrCatInternal   ErrorCategory = "internal"   // Unexpected internal error
)

// DomainError represents a structured error from the domain layer.
type DomainError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Retryable bool
	Cause     error
	Details   map[string]interface{}
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches a target.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Category == t.Category && e.Code == t.Code
}

// WithCause wraps an underlying error.
func (e *DomainError) WithCause(cause error) *DomainError {
	e.Cause = cause
	return e
}

// WithDetail adds contextual information.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ErrValidation creates a validation error.
func ErrValidation(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatValidation,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrTransport creates a transport error. Transport failures are retryable
// in the sense that the caller may issue a fresh generation request; the
// core itself never retries.
func ErrTransport(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatTransport,
		Code:      code,
		Message:   message,
		Retryable: true,
	}
}

// ErrProtocol creates a protocol-violation error: an operation attempted
// outside the state in which it is valid. Always a no-op on ledger state.
func ErrProtocol(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatProtocol,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrState creates a state error.
func ErrState(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatState,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrPipeline creates an error for a failure reported by the generation
// service itself (an error-kind stream event).
func ErrPipeline(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatPipeline,
		Code:      CodePipelineFailed,
		Message:   message,
		Retryable: true,
	}
}

// ErrNotFound creates a not found error.
func ErrNotFound(resource, id string) *DomainError {
	return &DomainError{
		Category:  ErrCatNotFound,
		Code:      "NOT_FOUND",
		Message:   fmt.Sprintf("%s not found: %s", resource, id),
		Retryable: false,
	}
}

// ErrInternal creates an error for an unexpected local failure.
func ErrInternal(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatInternal,
		Code:      "INTERNAL",
		Message:   message,
		Retryable: false,
	}
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Retryable
	}
	return false
}

// GetCategory extracts the error category.
func GetCategory(err error) ErrorCategory {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Category
	}
	return ErrCatInternal
}

// IsCategory checks if an error belongs to a category.
func IsCategory(err error, cat ErrorCategory) bool {
	return GetCategory(err) == cat
}

// Predefined error codes
const (
	CodeInvalidState        = "INVALID_STATE"
	CodeSessionTerminal     = "SESSION_TERMINAL"
	CodeGateNotArmed        = "GATE_NOT_ARMED"
	CodeDecisionPending     = "DECISION_PENDING"
	CodeInvalidDecision     = "INVALID_DECISION"
	CodeStreamFailed        = "STREAM_FAILED"
	CodeRequestFailed       = "REQUEST_FAILED"
	CodeUnexpectedStatus    = "UNEXPECTED_STATUS"
	CodePipelineFailed      = "PIPELINE_FAILED"
	CodeUnexpectedPayload   = "UNEXPECTED_PAYLOAD"
	CodeMalformedPayload    = "MALFORMED_PAYLOAD"
	CodeRecordNotFound      = "RECORD_NOT_FOUND"
	CodeInvalidConfig       = "INVALID_CONFIG"
	CodeEmptyTopic          = "EMPTY_TOPIC"
	CodeTopicTooLong        = "TOPIC_TOO_LONG"
	CodeInvalidArticleType  = "INVALID_ARTICLE_TYPE"
	CodeInvalidTargetLength = "INVALID_TARGET_LENGTH"
)

// MaxTopicLength is the maximum allowed topic length in runes.
const MaxTopicLength = 2000
