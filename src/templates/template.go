package templates

import (
	"encoding/json"
	"fmt"
	"time"

	"promptforge/src/catalog"
	"promptforge/src/composer"
	perrors "promptforge/src/errors"
)

// SchemaVersion is the newest template record layout this build reads.
// Records written before versioning existed decode as 0 and are treated as 1.
const SchemaVersion = 1

// Template is a persisted, named snapshot of a SelectionSet.
type Template struct {
	SchemaVersion   int                                     `json:"schema_version" yaml:"schema_version"`
	TemplateID      string                                  `json:"template_id" yaml:"template_id"`
	Name            string                                  `json:"name" yaml:"name"`
	Description     string                                  `json:"description" yaml:"description"`
	CreatedDate     time.Time                               `json:"created_date" yaml:"created_date"`
	UpdatedDate     *time.Time                              `json:"updated_date,omitempty" yaml:"updated_date,omitempty"`
	Mode            catalog.Mode                            `json:"mode" yaml:"mode"`
	Categories      map[catalog.Category]composer.Selection `json:"categories" yaml:"categories"`
	GeneratedPrompt string                                  `json:"generated_prompt" yaml:"generated_prompt"`
	Tags            []string                                `json:"tags" yaml:"tags"`
}

// HasTag reports whether tag is among the template's tags.
func (t *Template) HasTag(tag string) bool {
	for _, tt := range t.Tags {
		if tt == tag {
			return true
		}
	}
	return false
}

// SelectionSet rebuilds the working state the template was saved from.
func (t *Template) SelectionSet() (*composer.SelectionSet, error) {
	set, err := composer.NewSelectionSet(t.Mode)
	if err != nil {
		return nil, err
	}
	for _, category := range catalog.Categories() {
		sel, ok := t.Categories[category]
		if !ok || sel.IsZero() {
			continue
		}
		if err := set.Set(category, sel); err != nil {
			return nil, err
		}
	}
	return set, nil
}

// validate checks a decoded record before it is handed to callers.
func (t *Template) validate() error {
	version := t.SchemaVersion
	if version == 0 {
		version = 1
	}
	if version > SchemaVersion {
		return &perrors.SchemaVersionError{
			TemplateID: t.TemplateID,
			Found:      t.SchemaVersion,
			Supported:  SchemaVersion,
		}
	}
	t.SchemaVersion = version

	if !t.Mode.Valid() {
		return &perrors.ValidationError{Field: "mode", Value: t.Mode, Message: "must be SFW or NSFW"}
	}
	for category := range t.Categories {
		if !category.Valid() {
			return &perrors.ValidationError{Field: "categories", Value: category, Message: "unknown category"}
		}
	}
	return nil
}

func (t *Template) clone() *Template {
	out := *t
	out.Tags = append([]string(nil), t.Tags...)
	out.Categories = make(map[catalog.Category]composer.Selection, len(t.Categories))
	for c, sel := range t.Categories {
		if sel.ActiveModifiers != nil {
			sel.ActiveModifiers = append([]string(nil), sel.ActiveModifiers...)
		}
		if sel.WeightOverride != nil {
			w := *sel.WeightOverride
			sel.WeightOverride = &w
		}
		out.Categories[c] = sel
	}
	if t.UpdatedDate != nil {
		u := *t.UpdatedDate
		out.UpdatedDate = &u
	}
	return &out
}

// recordCategories expands a set into a mapping with all six category keys.
func recordCategories(set *composer.SelectionSet) map[catalog.Category]composer.Selection {
	out := make(map[catalog.Category]composer.Selection, 6)
	for _, category := range catalog.Categories() {
		out[category] = set.Get(category)
	}
	return out
}

// DecodeRecord parses a stored JSON record. The schema version is checked
// before the full decode so a newer layout is reported as such rather than as
// a decoding failure.
func DecodeRecord(data []byte) (*Template, error) {
	var header struct {
		SchemaVersion int    `json:"schema_version"`
		TemplateID    string `json:"template_id"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, fmt.Errorf("malformed template record: %w", err)
	}
	if header.SchemaVersion > SchemaVersion {
		return nil, &perrors.SchemaVersionError{
			TemplateID: header.TemplateID,
			Found:      header.SchemaVersion,
			Supported:  SchemaVersion,
		}
	}

	var t Template
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("malformed template record: %w", err)
	}
	return &t, nil
}

// EncodeRecord renders t as the indented JSON stored on disk.
func EncodeRecord(t *Template) ([]byte, error) {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
