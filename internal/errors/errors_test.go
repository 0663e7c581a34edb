package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_Error(t *testing.T) {
	err := New(CategoryValidation, CodeAlreadyPartitioned, "table orders is already partitioned")
	expected := "[VALIDATION:ALREADY_PARTITIONED] table orders is already partitioned"
	if err.Error() != expected {
		t.Errorf("got %q, want %q", err.Error(), expected)
	}
}

func TestError_ErrorWithCause(t *testing.T) {
	cause := fmt.Errorf("ORA-00054: resource busy")
	err := Wrap(CategoryExecution, CodeExecuteFailed, "alter table failed", cause)
	expected := "[EXECUTION:EXECUTE_FAILED] alter table failed: ORA-00054: resource busy"
	if err.Error() != expected {
		t.Errorf("got %q, want %q", err.Error(), expected)
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := Wrap(CategoryExecution, CodeExecuteFailed, "execute failed", cause)
	if !errors.Is(err, cause) {
		t.Error("Unwrap should allow errors.Is to find the cause")
	}
}

func TestError_Is(t *testing.T) {
	err1 := New(CategoryBuild, CodeEmptyPartitionList, "first")
	err2 := New(CategoryBuild, CodeEmptyPartitionList, "second")
	err3 := New(CategoryBuild, CodeUnknownType, "different code")

	if !errors.Is(err1, err2) {
		t.Error("errors with same category+code should match via Is")
	}
	if errors.Is(err1, err3) {
		t.Error("errors with different codes should not match via Is")
	}
}

func TestIsWarning(t *testing.T) {
	tests := []struct {
		err     error
		warning bool
	}{
		{NewStatisticsWarning("collect failed", nil), true},
		{NewLogSinkError("append failed", nil), true},
		{NewValidationError(CodeTableNotFound, "no such table"), false},
		{NewBuildError(CodeEmptyPartitionList, "empty"), false},
		{NewExecutionError("boom", nil), false},
		{fmt.Errorf("plain error"), false},
	}

	for _, tt := range tests {
		if IsWarning(tt.err) != tt.warning {
			t.Errorf("IsWarning(%v)=%v, want %v", tt.err, IsWarning(tt.err), tt.warning)
		}
	}
}

func TestGetCategoryAndCode(t *testing.T) {
	err := New(CategoryValidation, CodeMissingParameter, "partition column required")
	if GetCategory(err) != CategoryValidation {
		t.Errorf("got %q, want %q", GetCategory(err), CategoryValidation)
	}
	if GetCode(err) != CodeMissingParameter {
		t.Errorf("got %q, want %q", GetCode(err), CodeMissingParameter)
	}
	if GetCategory(fmt.Errorf("plain error")) != "" {
		t.Error("plain error should return empty category")
	}
	if GetCode(fmt.Errorf("plain error")) != "" {
		t.Error("plain error should return empty code")
	}
}

func TestGetCategory_WrappedChain(t *testing.T) {
	inner := New(CategoryBuild, CodeBadComposite, "nested subpartition spec")
	outer := fmt.Errorf("building clause: %w", inner)
	if GetCategory(outer) != CategoryBuild {
		t.Errorf("category should survive fmt wrapping, got %q", GetCategory(outer))
	}
}
