package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"
)

func TestTypedErrorsUnwrapToSentinels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"catalog load", &CatalogLoadError{Source: "data/subject.json", Reason: "bad json"}, ErrCatalogLoad},
		{"unresolved", &UnresolvedSelectionError{Category: "subject", SelectionID: "x", Mode: "SFW"}, ErrUnresolvedSelection},
		{"persistence", &PersistenceError{Op: "save", Err: fs.ErrPermission}, ErrPersistence},
		{"not found", &NotFoundError{TemplateID: "abc"}, ErrNotFound},
		{"schema", &SchemaVersionError{TemplateID: "abc", Found: 2, Supported: 1}, ErrSchemaVersion},
		{"validation", &ValidationError{Field: "name", Message: "must not be empty"}, ErrInvalidInput},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			wrapped := fmt.Errorf("outer: %w", tt.err)
			if !errors.Is(wrapped, tt.sentinel) {
				t.Errorf("errors.Is(%v, %v) = false", wrapped, tt.sentinel)
			}
		})
	}
}

func TestPersistenceErrorKeepsCause(t *testing.T) {
	t.Parallel()

	err := &PersistenceError{Op: "save", TemplateID: "abc", Err: fs.ErrPermission}
	if !errors.Is(err, fs.ErrPermission) {
		t.Error("cause not reachable through errors.Is")
	}
	if got, want := err.Error(), "template save abc: permission denied"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestUnresolvedSelectionErrorNamesCategory(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("render: %w", &UnresolvedSelectionError{Category: "subject", SelectionID: "pinup", Mode: "SFW"})
	var target *UnresolvedSelectionError
	if !errors.As(err, &target) {
		t.Fatal("errors.As failed")
	}
	if target.Category != "subject" || target.SelectionID != "pinup" {
		t.Errorf("got %+v", target)
	}
}

func TestIsRecoverable(t *testing.T) {
	t.Parallel()

	if !IsRecoverable(nil) {
		t.Error("nil should be recoverable")
	}
	if !IsRecoverable(&NotFoundError{TemplateID: "x"}) {
		t.Error("not found should be recoverable")
	}
	if IsRecoverable(&CatalogLoadError{Source: "x", Reason: "missing"}) {
		t.Error("catalog load failure should not be recoverable")
	}
}

func TestWrapWithContext(t *testing.T) {
	t.Parallel()

	if WrapWithContext(nil, "ignored") != nil {
		t.Error("WrapWithContext(nil) should be nil")
	}
	err := WrapWithContext(fs.ErrNotExist, "failed to open %s", "a.json")
	if err.Error() != "failed to open a.json: file does not exist" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Error("wrapped error lost its cause")
	}
}
