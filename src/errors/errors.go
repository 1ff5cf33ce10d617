package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios
var (
	// Catalog errors
	ErrCatalogLoad         = errors.New("catalog load failed")
	ErrUnresolvedSelection = errors.New("selection does not resolve")

	// Template store errors
	ErrPersistence   = errors.New("template persistence failed")
	ErrNotFound      = errors.New("template not found")
	ErrSchemaVersion = errors.New("unsupported template schema version")

	// Validation errors
	ErrInvalidInput = errors.New("invalid input")
)

// CatalogLoadError reports malformed or missing static option data.
type CatalogLoadError struct {
	Category string // Category involved, empty if unknown
	Source   string // File or embedded path that was being read
	Reason   string
	Err      error
}

func (e *CatalogLoadError) Error() string {
	where := e.Source
	if e.Category != "" {
		where = fmt.Sprintf("%s (category %s)", e.Source, e.Category)
	}
	if e.Err != nil {
		return fmt.Sprintf("catalog load %s: %s: %v", where, e.Reason, e.Err)
	}
	return fmt.Sprintf("catalog load %s: %s", where, e.Reason)
}

func (e *CatalogLoadError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrCatalogLoad, e.Err}
	}
	return []error{ErrCatalogLoad}
}

// UnresolvedSelectionError is returned when a selection references an option
// id that is absent from the catalog for the active mode.
type UnresolvedSelectionError struct {
	Category    string
	SelectionID string
	Mode        string
}

func (e *UnresolvedSelectionError) Error() string {
	return fmt.Sprintf("category %s: option %q not found in %s options",
		e.Category, e.SelectionID, e.Mode)
}

func (e *UnresolvedSelectionError) Unwrap() error {
	return ErrUnresolvedSelection
}

// PersistenceError represents a storage failure on a template record
type PersistenceError struct {
	Op         string // "save", "update", "delete", "list", "import"
	TemplateID string
	Err        error
}

func (e *PersistenceError) Error() string {
	if e.TemplateID != "" {
		return fmt.Sprintf("template %s %s: %v", e.Op, e.TemplateID, e.Err)
	}
	return fmt.Sprintf("template %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() []error {
	return []error{ErrPersistence, e.Err}
}

// NotFoundError reports a template id with no stored record.
type NotFoundError struct {
	TemplateID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("template %s not found", e.TemplateID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// SchemaVersionError is returned when a stored record is newer than this build.
type SchemaVersionError struct {
	TemplateID string
	Found      int
	Supported  int
}

func (e *SchemaVersionError) Error() string {
	return fmt.Sprintf("template %s has schema version %d, this build supports up to %d",
		e.TemplateID, e.Found, e.Supported)
}

func (e *SchemaVersionError) Unwrap() error {
	return ErrSchemaVersion
}

// ValidationError represents input validation errors
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("validation failed for %s (value: %v): %s",
			e.Field, e.Value, e.Message)
	}
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// Helper functions for common error patterns

// IsNotFound checks if error indicates a missing template
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsRecoverable reports whether the caller can keep running after err.
// Only catalog load failures are fatal.
func IsRecoverable(err error) bool {
	if err == nil {
		return true
	}
	return !errors.Is(err, ErrCatalogLoad)
}

// WrapWithContext adds context to an error
func WrapWithContext(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
