package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

/**
 * Custom error types for the OCR extraction worker
 *
 * Only DOCUMENT_EMPTY_OR_UNREADABLE aborts a run. Strategy and enhancement
 * failures are absorbed where they happen and only ever logged.
 */

// ErrorCode enum for structured error handling
type ErrorCode string

const (
	// Document errors
	ErrorDocumentUnreadable        ErrorCode = "DOCUMENT_UNREADABLE"
	ErrorDocumentEmptyOrUnreadable ErrorCode = "DOCUMENT_EMPTY_OR_UNREADABLE"

	// Recoverable, per page
	ErrorStrategyInvocationFailed ErrorCode = "STRATEGY_INVOCATION_FAILED"
	ErrorEnhancementStepFailed    ErrorCode = "ENHANCEMENT_STEP_FAILED"

	// Processing errors
	ErrorProcessingTimeout ErrorCode = "PROCESSING_TIMEOUT"
	ErrorReportWriteFailed ErrorCode = "REPORT_WRITE_FAILED"

	// Storage errors
	ErrorStorageFailed ErrorCode = "STORAGE_FAILED"
)

// ProcessingError represents a structured processing error
type ProcessingError struct {
	Code      ErrorCode
	Message   string
	JobID     string
	Timestamp time.Time
	Details   map[string]interface{}
	Cause     error
}

func (e *ProcessingError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ProcessingError) Unwrap() error {
	return e.Cause
}

// IsCode reports whether any ProcessingError in err's chain carries code.
func IsCode(err error, code ErrorCode) bool {
	for err != nil {
		var pe *ProcessingError
		if !stderrors.As(err, &pe) {
			return false
		}
		if pe.Code == code {
			return true
		}
		err = pe.Cause
	}
	return false
}

// Factory functions for common errors

func NewDocumentUnreadableError(path string, cause error) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorDocumentUnreadable,
		Message:   fmt.Sprintf("Document cannot be rasterized: %s", path),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"document_path": path,
		},
		Cause: cause,
	}
}

func NewDocumentEmptyOrUnreadableError(jobID string, path string, cause error) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorDocumentEmptyOrUnreadable,
		Message:   fmt.Sprintf("Document is empty or unreadable: %s", path),
		JobID:     jobID,
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"document_path": path,
		},
		Cause: cause,
	}
}

func NewStrategyInvocationError(page int, strategy string, cause error) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorStrategyInvocationFailed,
		Message:   fmt.Sprintf("OCR strategy %s failed on page %d", strategy, page),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"page":     page,
			"strategy": strategy,
		},
		Cause: cause,
	}
}

func NewEnhancementStepError(effect string, factor float64, cause error) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorEnhancementStepFailed,
		Message:   fmt.Sprintf("Enhancement %s (x%.2f) skipped", effect, factor),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"effect": effect,
			"factor": factor,
		},
		Cause: cause,
	}
}

func NewProcessingTimeoutError(jobID string, duration time.Duration, cause error) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorProcessingTimeout,
		Message:   fmt.Sprintf("Processing timed out after %v", duration),
		JobID:     jobID,
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"timeout_duration": duration.String(),
		},
		Cause: cause,
	}
}

func NewReportWriteError(jobID string, path string, cause error) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorReportWriteFailed,
		Message:   fmt.Sprintf("Failed to write report to %s", path),
		JobID:     jobID,
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"output_path": path,
		},
		Cause: cause,
	}
}

func NewStorageFailedError(jobID string, cause error) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorStorageFailed,
		Message:   "Failed to store extraction report",
		JobID:     jobID,
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

// ToMap converts error to map for database storage
func (e *ProcessingError) ToMap() map[string]interface{} {
	result := map[string]interface{}{
		"error_code": string(e.Code),
		"message":    e.Message,
		"timestamp":  e.Timestamp,
	}

	for k, v := range e.Details {
		result[k] = v
	}

	if e.Cause != nil {
		result["cause"] = e.Cause.Error()
	}

	return result
}
