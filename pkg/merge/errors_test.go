package merge

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorMessages(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"document with path", NewDocumentError("read", "a.docx", cause), "document error during read of 'a.docx': boom"},
		{"document without path", NewDocumentError("parse", "", cause), "document error during parse: boom"},
		{"document without cause", NewDocumentError("open", "a.docx", nil), "document error during open of 'a.docx'"},
		{"record with name", NewRecordError(2, "Ana", cause), "record 2 (Ana): boom"},
		{"record without name", NewRecordError(0, "", cause), "record 0: boom"},
		{"one placeholder", &UnresolvedPlaceholderError{Tokens: []string{"«X»"}}, "unresolved placeholder «X»"},
		{"several placeholders", &UnresolvedPlaceholderError{Tokens: []string{"«X»", "«Y»"}}, "2 unresolved placeholders: «X», «Y»"},
		{"context", WithContext(cause, "render", map[string]interface{}{"record": 1, "file": "a"}), "render [file=a, record=1]: boom"},
		{"recovered string", RecoverError("bad"), "panic recovered: bad"},
		{"recovered other", RecoverError(42), "panic recovered: 42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorUnwrapping(t *testing.T) {
	cause := errors.New("boom")
	err := NewRecordError(1, "Ana", NewDocumentError("write", "Ana.docx", cause))

	if !errors.Is(err, cause) {
		t.Error("errors.Is should reach the cause")
	}
	if !IsRecordError(err) || !IsDocumentError(err) {
		t.Error("both error types should be found")
	}
	if IsUnresolvedPlaceholderError(err) {
		t.Error("unexpected UnresolvedPlaceholderError")
	}
	if !errors.Is(RecoverError(cause), cause) {
		t.Error("recovered error values should be wrapped")
	}
	if WithContext(nil, "x", nil) != nil {
		t.Error("WithContext(nil) should be nil")
	}
}

func TestMultiError(t *testing.T) {
	m := NewMultiError()
	if m.Err() != nil || m.Error() != "no errors" {
		t.Errorf("empty MultiError: %v", m.Err())
	}

	first := errors.New("first")
	m.Add(first)
	m.Add(nil)
	if m.Err() != first {
		t.Errorf("single error should be returned as is, got %v", m.Err())
	}

	m.Add(fmt.Errorf("second: %w", ErrMissingName))
	if m.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", m.Len())
	}
	err := m.Err()
	if !errors.Is(err, ErrMissingName) || !errors.Is(err, first) {
		t.Error("errors.Is should search every collected error")
	}
	if !strings.HasPrefix(err.Error(), "2 errors occurred:") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestValidationError(t *testing.T) {
	split := TemplateIssue{Severity: IssueSeverityError, Code: IssueCodeSplitToken, Token: "«NETO»", Message: "split"}
	one := &ValidationError{Template: "f.docx", Issues: []TemplateIssue{split}}
	if got := one.Error(); got != "template f.docx: «NETO» at paragraph 0: split" {
		t.Errorf("Error() = %q", got)
	}
	two := &ValidationError{Template: "f.docx", Issues: []TemplateIssue{split, split}}
	if got := two.Error(); !strings.HasPrefix(got, "template f.docx has 2 issues:") {
		t.Errorf("Error() = %q", got)
	}
	if !IsValidationError(fmt.Errorf("wrapped: %w", one)) {
		t.Error("IsValidationError should see through wrapping")
	}
}
