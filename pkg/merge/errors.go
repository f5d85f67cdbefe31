// Package merge provides custom error types for better error handling and reporting.
package merge

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrAmountOutOfRange is returned by the words converter for amounts whose
// integer part has no Spanish wording in the supported range.
var ErrAmountOutOfRange = errors.New("amount out of range for words conversion")

// ErrMissingName marks a record skipped because its name field is blank.
var ErrMissingName = errors.New("record has no name")

// DocumentError represents an error during document operations
type DocumentError struct {
	Operation string
	Path      string
	Cause     error
}

func (e *DocumentError) Error() string {
	if e.Path != "" && e.Cause != nil {
		return fmt.Sprintf("document error during %s of '%s': %v", e.Operation, e.Path, e.Cause)
	} else if e.Path != "" {
		return fmt.Sprintf("document error during %s of '%s'", e.Operation, e.Path)
	} else if e.Cause != nil {
		return fmt.Sprintf("document error during %s: %v", e.Operation, e.Cause)
	}
	return fmt.Sprintf("document error during %s", e.Operation)
}

func (e *DocumentError) Unwrap() error {
	return e.Cause
}

// NewDocumentError creates a new document error
func NewDocumentError(operation, path string, cause error) error {
	return &DocumentError{
		Operation: operation,
		Path:      path,
		Cause:     cause,
	}
}

// RecordError ties a failure to the spreadsheet record that caused it
type RecordError struct {
	// Index is the zero-based position of the record in the batch
	Index int
	Name  string
	Cause error
}

func (e *RecordError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("record %d (%s): %v", e.Index, e.Name, e.Cause)
	}
	return fmt.Sprintf("record %d: %v", e.Index, e.Cause)
}

func (e *RecordError) Unwrap() error {
	return e.Cause
}

// NewRecordError creates a new record error
func NewRecordError(index int, name string, cause error) error {
	return &RecordError{
		Index: index,
		Name:  name,
		Cause: cause,
	}
}

// UnresolvedPlaceholderError lists «...» markers left in a document after
// substitution. It is only raised in strict mode.
type UnresolvedPlaceholderError struct {
	Tokens []string
}

func (e *UnresolvedPlaceholderError) Error() string {
	if len(e.Tokens) == 1 {
		return fmt.Sprintf("unresolved placeholder %s", e.Tokens[0])
	}
	return fmt.Sprintf("%d unresolved placeholders: %s", len(e.Tokens), strings.Join(e.Tokens, ", "))
}

// ValidationError lists the error-level issues that make a template
// unusable as is.
type ValidationError struct {
	Template string
	Issues   []TemplateIssue
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return fmt.Sprintf("template %s is not valid", e.Template)
	}

	if len(e.Issues) == 1 {
		issue := e.Issues[0]
		return fmt.Sprintf("template %s: %s at %s: %s", e.Template, issue.Token, issue.Location, issue.Message)
	}

	var parts []string
	parts = append(parts, fmt.Sprintf("template %s has %d issues:", e.Template, len(e.Issues)))
	for _, issue := range e.Issues {
		parts = append(parts, fmt.Sprintf("  %s at %s: %s", issue.Token, issue.Location, issue.Message))
	}
	return strings.Join(parts, "\n")
}

// MultiError collects multiple errors
type MultiError struct {
	errors []error
}

// NewMultiError creates a new multi-error collector
func NewMultiError() *MultiError {
	return &MultiError{
		errors: make([]error, 0),
	}
}

// Add adds an error to the collection (ignores nil errors)
func (m *MultiError) Add(err error) {
	if err != nil {
		m.errors = append(m.errors, err)
	}
}

// Len returns the number of errors
func (m *MultiError) Len() int {
	return len(m.errors)
}

// Errors returns the collected errors in the order they were added
func (m *MultiError) Errors() []error {
	return append([]error(nil), m.errors...)
}

// Err returns the multi-error or nil if empty
func (m *MultiError) Err() error {
	if len(m.errors) == 0 {
		return nil
	}
	if len(m.errors) == 1 {
		return m.errors[0]
	}
	return m
}

// Unwrap exposes the collected errors to errors.Is and errors.As
func (m *MultiError) Unwrap() []error {
	return m.errors
}

func (m *MultiError) Error() string {
	if len(m.errors) == 0 {
		return "no errors"
	}

	if len(m.errors) == 1 {
		return m.errors[0].Error()
	}

	var parts []string
	parts = append(parts, fmt.Sprintf("%d errors occurred:", len(m.errors)))
	for i, err := range m.errors {
		parts = append(parts, fmt.Sprintf("  [%d] %v", i+1, err))
	}
	return strings.Join(parts, "\n")
}

// ContextError adds context to an existing error
type ContextError struct {
	Operation string
	Context   map[string]interface{}
	Cause     error
}

func (e *ContextError) Error() string {
	var contextParts []string
	for k, v := range e.Context {
		contextParts = append(contextParts, fmt.Sprintf("%s=%v", k, v))
	}
	sort.Strings(contextParts)

	if len(contextParts) > 0 {
		return fmt.Sprintf("%s [%s]: %v", e.Operation, strings.Join(contextParts, ", "), e.Cause)
	}
	return fmt.Sprintf("%s: %v", e.Operation, e.Cause)
}

func (e *ContextError) Unwrap() error {
	return e.Cause
}

// WithContext wraps an error with additional context
func WithContext(err error, operation string, context map[string]interface{}) error {
	if err == nil {
		return nil
	}
	return &ContextError{
		Operation: operation,
		Context:   context,
		Cause:     err,
	}
}

// RecoverError converts a panic recovery value to an error
func RecoverError(r interface{}) error {
	switch v := r.(type) {
	case error:
		return fmt.Errorf("panic recovered: %w", v)
	case string:
		return fmt.Errorf("panic recovered: %s", v)
	default:
		return fmt.Errorf("panic recovered: %v", v)
	}
}

// IsDocumentError checks if an error is a document error
func IsDocumentError(err error) bool {
	var de *DocumentError
	return errors.As(err, &de)
}

// IsRecordError checks if an error is a record error
func IsRecordError(err error) bool {
	var re *RecordError
	return errors.As(err, &re)
}

// IsValidationError checks if an error reports an unusable template
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsUnresolvedPlaceholderError checks if an error reports leftover placeholders
func IsUnresolvedPlaceholderError(err error) bool {
	var ue *UnresolvedPlaceholderError
	return errors.As(err, &ue)
}
