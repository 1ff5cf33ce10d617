package templates

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"promptforge/src/catalog"
	"promptforge/src/composer"
	perrors "promptforge/src/errors"
	"promptforge/src/logger"
)

// Backend persists template records. Get and Remove return a
// *errors.NotFoundError for unknown ids; write failures are returned raw and
// wrapped by the Store.
type Backend interface {
	Put(t *Template) error
	Get(id string) (*Template, error)
	List() ([]*Template, error)
	Remove(id string) error
}

// Export formats
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Store saves, loads and organizes templates.
type Store struct {
	backend Backend
	engine  *composer.Engine
	log     *logger.Logger
	now     func() time.Time
	newID   func() string
}

type StoreOption func(*Store)

// WithClock overrides the time source used for created/updated stamps.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides template id generation.
func WithIDGenerator(fn func() string) StoreOption {
	return func(s *Store) { s.newID = fn }
}

// NewStore creates a store that renders with engine and persists to backend.
func NewStore(backend Backend, engine *composer.Engine, log *logger.Logger, opts ...StoreOption) *Store {
	if log == nil {
		log = logger.Nop()
	}
	s := &Store{
		backend: backend,
		engine:  engine,
		log:     log,
		now:     time.Now,
		newID:   func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save renders set, stamps a new id and creation time, and persists the
// result. The caller's set is never modified.
func (s *Store) Save(set *composer.SelectionSet, name, description string, tags []string) (*Template, error) {
	if set == nil {
		return nil, &perrors.ValidationError{Field: "selection set", Message: "is nil"}
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &perrors.ValidationError{Field: "name", Message: "must not be empty"}
	}

	prompt, err := s.engine.Render(set)
	if err != nil {
		return nil, err
	}

	t := &Template{
		SchemaVersion:   SchemaVersion,
		TemplateID:      s.newID(),
		Name:            name,
		Description:     description,
		CreatedDate:     s.now().UTC(),
		Mode:            set.Mode(),
		Categories:      recordCategories(set),
		GeneratedPrompt: prompt,
		Tags:            normalizeTags(tags),
	}

	if err := s.backend.Put(t); err != nil {
		return nil, &perrors.PersistenceError{Op: "save", TemplateID: t.TemplateID, Err: err}
	}
	s.log.Info("template saved", "template_id", t.TemplateID, "name", t.Name)
	return t.clone(), nil
}

// Load returns the template stored under id.
func (s *Store) Load(id string) (*Template, error) {
	if !validID(id) {
		return nil, &perrors.NotFoundError{TemplateID: id}
	}
	t, err := s.backend.Get(id)
	if err != nil {
		return nil, s.wrapRead("load", id, err)
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// ListFilter narrows List results. Zero values match everything.
type ListFilter struct {
	Mode catalog.Mode
	Tag  string
}

// List returns stored templates, newest first. Records that cannot be read
// or are newer than this build are skipped with a warning.
func (s *Store) List(filter ListFilter) ([]*Template, error) {
	all, err := s.backend.List()
	if err != nil {
		return nil, &perrors.PersistenceError{Op: "list", Err: err}
	}

	var out []*Template
	for _, t := range all {
		if err := t.validate(); err != nil {
			s.log.Warn("skipping template", "template_id", t.TemplateID, "error", err)
			continue
		}
		if filter.Mode != "" && t.Mode != filter.Mode {
			continue
		}
		if filter.Tag != "" && !t.HasTag(filter.Tag) {
			continue
		}
		out = append(out, t)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedDate.Equal(out[j].CreatedDate) {
			return out[i].CreatedDate.After(out[j].CreatedDate)
		}
		return out[i].TemplateID < out[j].TemplateID
	})
	return out, nil
}

// Delete removes a template. Deleting an id that is already gone, or never
// existed, returns a NotFoundError.
func (s *Store) Delete(id string) error {
	if !validID(id) {
		return &perrors.NotFoundError{TemplateID: id}
	}
	if err := s.backend.Remove(id); err != nil {
		return s.wrapRead("delete", id, err)
	}
	s.log.Info("template deleted", "template_id", id)
	return nil
}

// Patch lists the editable metadata fields; nil fields are left unchanged.
type Patch struct {
	Name        *string
	Description *string
	Tags        *[]string
}

// Update edits name, description or tags. The id, creation date, selections
// and cached prompt never change.
func (s *Store) Update(id string, patch Patch) (*Template, error) {
	t, err := s.Load(id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, &perrors.ValidationError{Field: "name", Message: "must not be empty"}
		}
		t.Name = name
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.Tags != nil {
		t.Tags = normalizeTags(*patch.Tags)
	}
	updated := s.now().UTC()
	t.UpdatedDate = &updated

	if err := s.backend.Put(t); err != nil {
		return nil, &perrors.PersistenceError{Op: "update", TemplateID: id, Err: err}
	}
	s.log.Info("template updated", "template_id", id)
	return t.clone(), nil
}

// Export writes the template as JSON or YAML.
func (s *Store) Export(id string, w io.Writer, format string) error {
	t, err := s.Load(id)
	if err != nil {
		return err
	}

	switch strings.ToLower(format) {
	case "", FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		err = enc.Encode(t)
	case FormatYAML, "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err = enc.Encode(t); err == nil {
			err = enc.Close()
		}
	default:
		return &perrors.ValidationError{Field: "format", Value: format, Message: "must be json or yaml"}
	}
	if err != nil {
		return fmt.Errorf("failed to export template %s: %w", id, err)
	}
	return nil
}

// Import reads an exported template, assigns it a new id and stores it.
// The prompt is re-rendered against the current catalog so the cached copy
// always matches what the selections produce here.
func (s *Store) Import(r io.Reader) (*Template, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read template: %w", err)
	}

	t := &Template{}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		t, err = DecodeRecord(trimmed)
	} else {
		err = yaml.Unmarshal(trimmed, t)
	}
	if errors.Is(err, perrors.ErrSchemaVersion) {
		return nil, err
	}
	if err != nil {
		return nil, &perrors.ValidationError{Field: "template", Message: fmt.Sprintf("cannot decode: %v", err)}
	}
	if err := t.validate(); err != nil {
		return nil, err
	}

	set, err := t.SelectionSet()
	if err != nil {
		return nil, err
	}
	prompt, err := s.engine.Render(set)
	if err != nil {
		return nil, err
	}

	oldID := t.TemplateID
	t.TemplateID = s.newID()
	t.SchemaVersion = SchemaVersion
	t.Categories = recordCategories(set)
	t.GeneratedPrompt = prompt
	t.Tags = normalizeTags(t.Tags)
	t.UpdatedDate = nil
	if strings.TrimSpace(t.Name) == "" {
		t.Name = "Imported template"
	}
	if t.CreatedDate.IsZero() {
		t.CreatedDate = s.now().UTC()
	}

	if err := s.backend.Put(t); err != nil {
		return nil, &perrors.PersistenceError{Op: "import", TemplateID: t.TemplateID, Err: err}
	}
	s.log.Info("template imported", "template_id", t.TemplateID, "source_id", oldID)
	return t.clone(), nil
}

func (s *Store) wrapRead(op, id string, err error) error {
	if errors.Is(err, perrors.ErrNotFound) || errors.Is(err, perrors.ErrSchemaVersion) {
		return err
	}
	return &perrors.PersistenceError{Op: op, TemplateID: id, Err: err}
}

// validID rejects ids that could escape the storage directory.
func validID(id string) bool {
	if id == "" || id == "." || id == ".." {
		return false
	}
	return !strings.ContainsAny(id, `/\`)
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}
