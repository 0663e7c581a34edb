// Package errors provides structured error types for the reshape toolkit.
// Every error carries a category and code so callers can map failures onto
// the toolkit's taxonomy without string matching.
package errors

import (
	"errors"
	"fmt"
)

// Category classifies errors by where in the pipeline they arise.
type Category string

const (
	// CategoryValidation covers precondition failures surfaced before any
	// DDL is built. Never retried.
	CategoryValidation Category = "VALIDATION"

	// CategoryBuild covers malformed partition definitions detected by the
	// DDL builder. Purely a function of input data.
	CategoryBuild Category = "BUILD"

	// CategoryExecution covers external DDL executor failures, surfaced
	// verbatim and never retried.
	CategoryExecution Category = "EXECUTION"

	// CategoryStatistics covers post-conversion statistics failures. These
	// are warnings: the reshape already succeeded.
	CategoryStatistics Category = "STATISTICS"

	// CategoryLogSink covers operation-log sink failures. Always swallowed
	// at the autonomous-log boundary.
	CategoryLogSink Category = "LOG_SINK"

	// CategoryInternal covers unexpected conditions.
	CategoryInternal Category = "INTERNAL"
)

// Error codes per category.
const (
	// Validation codes
	CodeTableNotFound      = "TABLE_NOT_FOUND"
	CodeAlreadyPartitioned = "ALREADY_PARTITIONED"
	CodeNotPartitioned     = "NOT_PARTITIONED"
	CodeUnsupportedType    = "UNSUPPORTED_TYPE"
	CodeMissingParameter   = "MISSING_PARAMETER"
	CodeNoParentConstraint = "NO_PARENT_CONSTRAINT"

	// Build codes
	CodeEmptyPartitionList = "EMPTY_PARTITION_LIST"
	CodeUnknownType        = "UNKNOWN_TYPE"
	CodeBadComposite       = "BAD_COMPOSITE"
	CodeMissingValues      = "MISSING_VALUES"
	CodeDuplicateName      = "DUPLICATE_NAME"

	// Execution codes
	CodeExecuteFailed = "EXECUTE_FAILED"

	// Statistics codes
	CodeCollectFailed = "COLLECT_FAILED"

	// Log sink codes
	CodeAppendFailed = "APPEND_FAILED"

	// Internal codes
	CodeUnexpected = "UNEXPECTED"
)

// Error is the structured error type used throughout the toolkit.
type Error struct {
	Category Category
	Code     string
	Message  string
	Details  map[string]interface{}
	Cause    error
}

// Error returns a formatted error string.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches this error's category and code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// WithDetails returns a copy of the error with additional details attached.
func (e *Error) WithDetails(details map[string]interface{}) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

// New creates a new Error.
func New(category Category, code, message string) *Error {
	return &Error{Category: category, Code: code, Message: message}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(category Category, code, message string, cause error) *Error {
	return &Error{Category: category, Code: code, Message: message, Cause: cause}
}

// GetCategory extracts the category from an error chain, or "" when the
// error is not an *Error.
func GetCategory(err error) Category {
	var e *Error
	if errors.As(err, &e) {
		return e.Category
	}
	return ""
}

// GetCode extracts the code from an error chain, or "" when the error is
// not an *Error.
func GetCode(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsWarning reports whether the error is advisory: the operation it belongs
// to still completes. Statistics and log-sink failures are warnings.
func IsWarning(err error) bool {
	switch GetCategory(err) {
	case CategoryStatistics, CategoryLogSink:
		return true
	}
	return false
}

// Convenience constructors per taxonomy entry.

func NewValidationError(code, message string) *Error {
	return New(CategoryValidation, code, message)
}

func NewBuildError(code, message string) *Error {
	return New(CategoryBuild, code, message)
}

func NewExecutionError(message string, cause error) *Error {
	return Wrap(CategoryExecution, CodeExecuteFailed, message, cause)
}

func NewStatisticsWarning(message string, cause error) *Error {
	return Wrap(CategoryStatistics, CodeCollectFailed, message, cause)
}

func NewLogSinkError(message string, cause error) *Error {
	return Wrap(CategoryLogSink, CodeAppendFailed, message, cause)
}

func NewInternalError(message string, cause error) *Error {
	return Wrap(CategoryInternal, CodeUnexpected, message, cause)
}
