// Package errors provides standardized error messaging for TIL tooling.
package errors

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrorCategory represents different categories of errors
type ErrorCategory string

const (
	CategoryInvariant  ErrorCategory = "INVARIANT"
	CategoryValidation ErrorCategory = "VALIDATION"
	CategoryFormat     ErrorCategory = "FORMAT"
)

// Error codes. Invariant codes come first, followed by validation and
// file format codes.
const (
	CodeShapeMismatch       = "SHAPE_MISMATCH"
	CodeUnterminatedBlock   = "UNTERMINATED_BLOCK"
	CodeUnbalancedScope     = "UNBALANCED_SCOPE"
	CodeDoubleForce         = "DOUBLE_FORCE"
	CodeUnforcedFuture      = "UNFORCED_FUTURE"
	CodeUnmappedInstruction = "UNMAPPED_INSTRUCTION"
	CodeUnknownNode         = "UNKNOWN_NODE"
	CodeBadBinder           = "BAD_BINDER"
	CodeMalformedGraph      = "MALFORMED_GRAPH"
	CodeBadTermFile         = "BAD_TERM_FILE"
)

// StandardError provides a consistent error format
type StandardError struct {
	Category ErrorCategory
	Code     string
	Message  string
	Context  map[string]interface{}
	Caller   string
}

// Error implements the error interface
func (e *StandardError) Error() string {
	return fmt.Sprintf("[%s:%s] %s (caller: %s)", e.Category, e.Code, e.Message, e.Caller)
}

// Is reports whether target is a StandardError with the same category and code.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Category == e.Category && t.Code == e.Code
}

// NewStandardError creates a new standardized error
func NewStandardError(category ErrorCategory, code, message string, context map[string]interface{}) *StandardError {
	return newStandardError(2, category, code, message, context)
}

func newStandardError(skip int, category ErrorCategory, code, message string, context map[string]interface{}) *StandardError {
	pc, _, _, ok := runtime.Caller(skip)
	caller := "unknown"
	if ok {
		if fn := runtime.FuncForPC(pc); fn != nil {
			caller = fn.Name()
		}
	}

	return &StandardError{
		Category: category,
		Code:     code,
		Message:  message,
		Context:  context,
		Caller:   caller,
	}
}

// HasCode reports whether err wraps a StandardError carrying code.
func HasCode(err error, code string) bool {
	var se *StandardError
	if !errors.As(err, &se) {
		return false
	}
	return se.Code == code
}

// HasCategory reports whether err wraps a StandardError of category cat.
func HasCategory(err error, cat ErrorCategory) bool {
	var se *StandardError
	return errors.As(err, &se) && se.Category == cat
}

// Invariant violation constructors. The caller recorded is the function
// that detected the violation.

func ShapeMismatch(what string, want, got int) *StandardError {
	return newStandardError(2, CategoryInvariant, CodeShapeMismatch,
		fmt.Sprintf("%s: expected %d, got %d", what, want, got),
		map[string]interface{}{"what": what, "want": want, "got": got})
}

func UnterminatedBlock(block int) *StandardError {
	return newStandardError(2, CategoryInvariant, CodeUnterminatedBlock,
		fmt.Sprintf("block %d closed without a terminator", block),
		map[string]interface{}{"block": block})
}

func UnbalancedScope(operation string) *StandardError {
	return newStandardError(2, CategoryInvariant, CodeUnbalancedScope,
		fmt.Sprintf("%s without a matching enter", operation),
		map[string]interface{}{"operation": operation})
}

func DoubleForce(seq int) *StandardError {
	return newStandardError(2, CategoryInvariant, CodeDoubleForce,
		fmt.Sprintf("future %d forced more than once", seq),
		map[string]interface{}{"future": seq})
}

func UnforcedFuture(pending int) *StandardError {
	return newStandardError(2, CategoryInvariant, CodeUnforcedFuture,
		fmt.Sprintf("%d future(s) left unforced", pending),
		map[string]interface{}{"pending": pending})
}

func UnmappedInstruction(id int) *StandardError {
	return newStandardError(2, CategoryInvariant, CodeUnmappedInstruction,
		fmt.Sprintf("instruction %d referenced before it was rewritten", id),
		map[string]interface{}{"instruction": id})
}

func UnknownNode(node interface{}) *StandardError {
	return newStandardError(2, CategoryInvariant, CodeUnknownNode,
		fmt.Sprintf("no rule for node %T", node),
		map[string]interface{}{"node": fmt.Sprintf("%T", node)})
}

func BadBinder(details string) *StandardError {
	return newStandardError(2, CategoryInvariant, CodeBadBinder,
		fmt.Sprintf("malformed binder: %s", details),
		map[string]interface{}{"details": details})
}

// MalformedGraph reports a structural problem found by verification.
func MalformedGraph(graph, details string) *StandardError {
	return newStandardError(2, CategoryValidation, CodeMalformedGraph,
		fmt.Sprintf("graph %q: %s", graph, details),
		map[string]interface{}{"graph": graph, "details": details})
}

// BadTermFile reports a term file that cannot be decoded. where is a
// file position or a field path.
func BadTermFile(where, details string) *StandardError {
	return newStandardError(2, CategoryFormat, CodeBadTermFile,
		fmt.Sprintf("%s: %s", where, details),
		map[string]interface{}{"where": where})
}
