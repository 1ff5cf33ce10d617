package templates

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"promptforge/src/catalog"
	"promptforge/src/composer"
	perrors "promptforge/src/errors"
)

func testEngine(t *testing.T) *composer.Engine {
	t.Helper()
	c, err := catalog.LoadEmbedded()
	if err != nil {
		t.Fatalf("LoadEmbedded() error = %v", err)
	}
	return composer.NewEngine(c, 0)
}

// stepClock returns a clock that advances one minute per call.
func stepClock() func() time.Time {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	n := 0
	return func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Minute)
	}
}

func newTestStore(t *testing.T) (*Store, *FileBackend) {
	t.Helper()
	backend, err := NewFileBackend(filepath.Join(t.TempDir(), "templates"), nil)
	if err != nil {
		t.Fatal(err)
	}
	return NewStore(backend, testEngine(t), nil, WithClock(stepClock())), backend
}

func portraitSet(t *testing.T) *composer.SelectionSet {
	t.Helper()
	set, err := composer.NewSelectionSet(catalog.SFW)
	if err != nil {
		t.Fatal(err)
	}
	_ = set.Select(catalog.Subject, "person_portrait")
	_, _ = set.ToggleModifier(catalog.Subject, "detailed")
	_ = set.SetWeight(catalog.Subject, 1.5)
	_ = set.Select(catalog.Lighting, "golden_hour")
	_ = set.SetCustomText(catalog.Environment, "quiet library")
	return set
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	engine := testEngine(t)
	set := portraitSet(t)

	want, err := engine.Render(set)
	if err != nil {
		t.Fatal(err)
	}

	saved, err := store.Save(set, "Library portrait", "warm reading scene", []string{"portrait", " warm ", "portrait"})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if saved.TemplateID == "" {
		t.Fatal("Save() returned empty template id")
	}
	if saved.GeneratedPrompt != want {
		t.Errorf("GeneratedPrompt = %q, want %q", saved.GeneratedPrompt, want)
	}
	if saved.CreatedDate.Location() != time.UTC {
		t.Errorf("CreatedDate not UTC: %v", saved.CreatedDate)
	}
	if got := strings.Join(saved.Tags, ","); got != "portrait,warm" {
		t.Errorf("Tags = %q", got)
	}
	if len(saved.Categories) != 6 {
		t.Errorf("record has %d categories, want all 6", len(saved.Categories))
	}

	loaded, err := store.Load(saved.TemplateID)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !loaded.CreatedDate.Equal(saved.CreatedDate) {
		t.Errorf("CreatedDate = %v, want %v", loaded.CreatedDate, saved.CreatedDate)
	}

	restored, err := loaded.SelectionSet()
	if err != nil {
		t.Fatal(err)
	}
	got, err := engine.Render(restored)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("restored render = %q, want %q", got, want)
	}
}

func TestSaveDoesNotPersistUnresolvable(t *testing.T) {
	t.Parallel()

	store, backend := newTestStore(t)
	set, _ := composer.NewSelectionSet(catalog.SFW)
	_ = set.Select(catalog.Subject, "nonexistent")

	if _, err := store.Save(set, "bad", "", nil); !errors.Is(err, perrors.ErrUnresolvedSelection) {
		t.Fatalf("Save() error = %v, want unresolved", err)
	}
	all, _ := backend.List()
	if len(all) != 0 {
		t.Errorf("backend holds %d records, want 0", len(all))
	}
}

func TestSaveRequiresName(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	if _, err := store.Save(portraitSet(t), "  ", "", nil); !errors.Is(err, perrors.ErrInvalidInput) {
		t.Fatalf("Save() error = %v, want invalid input", err)
	}
}

type failingBackend struct {
	FileBackend
}

func (*failingBackend) Put(*Template) error {
	return fmt.Errorf("no space left on device")
}

func TestSavePersistenceFailureLeavesSetUntouched(t *testing.T) {
	t.Parallel()

	store := NewStore(&failingBackend{}, testEngine(t), nil)
	set := portraitSet(t)
	before := set.Selections()

	_, err := store.Save(set, "x", "", nil)
	var perr *perrors.PersistenceError
	if !errors.As(err, &perr) {
		t.Fatalf("Save() error = %v, want PersistenceError", err)
	}
	if perr.Op != "save" || perr.TemplateID == "" {
		t.Errorf("PersistenceError = %+v", perr)
	}
	if !reflect.DeepEqual(set.Selections(), before) {
		t.Error("selection set changed after failed save")
	}
}

func TestDeleteTwice(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	saved, err := store.Save(portraitSet(t), "tmp", "", nil)
	if err != nil {
		t.Fatal(err)
	}

	if err := store.Delete(saved.TemplateID); err != nil {
		t.Fatalf("first Delete() error = %v", err)
	}
	err = store.Delete(saved.TemplateID)
	var notFound *perrors.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("second Delete() error = %v, want NotFoundError", err)
	}
	if notFound.TemplateID != saved.TemplateID {
		t.Errorf("TemplateID = %q", notFound.TemplateID)
	}
	if _, err := store.Load(saved.TemplateID); !perrors.IsNotFound(err) {
		t.Errorf("Load() after delete error = %v", err)
	}
}

func TestLoadNotFound(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	for _, id := range []string{"missing", "", "../etc/passwd", `..\x`} {
		if _, err := store.Load(id); !perrors.IsNotFound(err) {
			t.Errorf("Load(%q) error = %v, want not found", id, err)
		}
		if err := store.Delete(id); !perrors.IsNotFound(err) {
			t.Errorf("Delete(%q) error = %v, want not found", id, err)
		}
	}
}

func TestLoadNewerSchema(t *testing.T) {
	t.Parallel()

	store, backend := newTestStore(t)
	record := `{"schema_version": 7, "template_id": "future", "categories": ["reshaped"]}`
	if err := os.WriteFile(filepath.Join(backend.Dir(), "future.json"), []byte(record), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := store.Load("future")
	var schemaErr *perrors.SchemaVersionError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("Load() error = %v, want SchemaVersionError", err)
	}
	if schemaErr.Found != 7 || schemaErr.Supported != SchemaVersion {
		t.Errorf("SchemaVersionError = %+v", schemaErr)
	}

	list, err := store.List(ListFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Errorf("List() returned %d records, want newer record skipped", len(list))
	}
}

func TestLoadUnversionedRecord(t *testing.T) {
	t.Parallel()

	store, backend := newTestStore(t)
	record := `{
  "template_id": "legacy",
  "name": "old",
  "description": "",
  "created_date": "2023-05-01T10:00:00.123456Z",
  "mode": "SFW",
  "categories": {"subject": {"selection_id": "landscape", "custom_text": ""}},
  "generated_prompt": "Sweeping landscape",
  "tags": []
}`
	if err := os.WriteFile(filepath.Join(backend.Dir(), "legacy.json"), []byte(record), 0644); err != nil {
		t.Fatal(err)
	}

	tmpl, err := store.Load("legacy")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if tmpl.SchemaVersion != 1 {
		t.Errorf("SchemaVersion = %d, want 1", tmpl.SchemaVersion)
	}
	set, err := tmpl.SelectionSet()
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := testEngine(t).Render(set); got != "Sweeping landscape" {
		t.Errorf("render = %q", got)
	}
}

func TestCorruptRecord(t *testing.T) {
	t.Parallel()

	store, backend := newTestStore(t)
	if _, err := store.Save(portraitSet(t), "good", "", nil); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(backend.Dir(), "broken.json"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := store.Load("broken"); !errors.Is(err, perrors.ErrPersistence) {
		t.Errorf("Load(broken) error = %v, want persistence error", err)
	}
	list, err := store.List(ListFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Name != "good" {
		t.Errorf("List() = %v, want only the good record", list)
	}
}

func TestListFilterAndOrder(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)

	sfw := portraitSet(t)
	nsfw, _ := composer.NewSelectionSet(catalog.NSFW)
	_ = nsfw.Select(catalog.Subject, "pinup")

	first, _ := store.Save(sfw, "first", "", []string{"a"})
	second, _ := store.Save(nsfw, "second", "", []string{"a", "b"})
	third, _ := store.Save(sfw, "third", "", []string{"b"})

	tests := []struct {
		name   string
		filter ListFilter
		want   []string
	}{
		{"all newest first", ListFilter{}, []string{third.TemplateID, second.TemplateID, first.TemplateID}},
		{"by mode", ListFilter{Mode: catalog.SFW}, []string{third.TemplateID, first.TemplateID}},
		{"by tag", ListFilter{Tag: "a"}, []string{second.TemplateID, first.TemplateID}},
		{"by mode and tag", ListFilter{Mode: catalog.NSFW, Tag: "b"}, []string{second.TemplateID}},
		{"no match", ListFilter{Tag: "zzz"}, nil},
	}

	for _, tt := range tests {
		list, err := store.List(tt.filter)
		if err != nil {
			t.Fatalf("%s: List() error = %v", tt.name, err)
		}
		var got []string
		for _, tmpl := range list {
			got = append(got, tmpl.TemplateID)
		}
		if strings.Join(got, ",") != strings.Join(tt.want, ",") {
			t.Errorf("%s: got %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestUpdateKeepsIdentity(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	saved, err := store.Save(portraitSet(t), "before", "desc", []string{"x"})
	if err != nil {
		t.Fatal(err)
	}

	name := "after"
	tags := []string{"y", "z"}
	updated, err := store.Update(saved.TemplateID, Patch{Name: &name, Tags: &tags})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.TemplateID != saved.TemplateID {
		t.Error("Update() changed template id")
	}
	if !updated.CreatedDate.Equal(saved.CreatedDate) {
		t.Error("Update() changed created date")
	}
	if updated.UpdatedDate == nil || !updated.UpdatedDate.After(saved.CreatedDate) {
		t.Errorf("UpdatedDate = %v", updated.UpdatedDate)
	}
	if updated.Description != "desc" || updated.GeneratedPrompt != saved.GeneratedPrompt {
		t.Error("Update() touched fields outside the patch")
	}

	loaded, _ := store.Load(saved.TemplateID)
	if loaded.Name != "after" || strings.Join(loaded.Tags, ",") != "y,z" {
		t.Errorf("persisted = %q %v", loaded.Name, loaded.Tags)
	}

	empty := " "
	if _, err := store.Update(saved.TemplateID, Patch{Name: &empty}); !errors.Is(err, perrors.ErrInvalidInput) {
		t.Errorf("Update(empty name) error = %v", err)
	}
	if _, err := store.Update("missing", Patch{Name: &name}); !perrors.IsNotFound(err) {
		t.Errorf("Update(missing) error = %v", err)
	}
}

func TestExportImport(t *testing.T) {
	t.Parallel()

	for _, format := range []string{FormatJSON, FormatYAML} {
		format := format
		t.Run(format, func(t *testing.T) {
			t.Parallel()

			store, _ := newTestStore(t)
			saved, err := store.Save(portraitSet(t), "shared", "to export", []string{"x"})
			if err != nil {
				t.Fatal(err)
			}

			var buf bytes.Buffer
			if err := store.Export(saved.TemplateID, &buf, format); err != nil {
				t.Fatalf("Export() error = %v", err)
			}

			imported, err := store.Import(&buf)
			if err != nil {
				t.Fatalf("Import() error = %v", err)
			}
			if imported.TemplateID == saved.TemplateID {
				t.Error("Import() reused the source id")
			}
			if imported.GeneratedPrompt != saved.GeneratedPrompt {
				t.Errorf("imported prompt = %q, want %q", imported.GeneratedPrompt, saved.GeneratedPrompt)
			}
			if !imported.CreatedDate.Equal(saved.CreatedDate) {
				t.Errorf("imported created = %v, want %v", imported.CreatedDate, saved.CreatedDate)
			}
			if _, err := store.Load(imported.TemplateID); err != nil {
				t.Errorf("Load(imported) error = %v", err)
			}
		})
	}
}

func TestImportRejects(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)

	tests := []struct {
		name   string
		input  string
		target error
	}{
		{"newer schema", `{"schema_version": 2, "template_id": "x"}`, perrors.ErrSchemaVersion},
		{"garbage", `{"schema_version": `, perrors.ErrInvalidInput},
		{"bad mode", `{"mode": "MAYBE", "categories": {}}`, perrors.ErrInvalidInput},
		{"unresolvable", `{"mode": "SFW", "categories": {"subject": {"selection_id": "nope", "custom_text": ""}}}`, perrors.ErrUnresolvedSelection},
		{"NaN weight", "mode: SFW\ncategories:\n  subject:\n    selection_id: person_portrait\n    weight_override: .nan\n", perrors.ErrInvalidInput},
		{"infinite weight", "mode: SFW\ncategories:\n  subject:\n    selection_id: person_portrait\n    weight_override: .inf\n", perrors.ErrInvalidInput},
	}
	for _, tt := range tests {
		if _, err := store.Import(strings.NewReader(tt.input)); !errors.Is(err, tt.target) {
			t.Errorf("%s: Import() error = %v, want %v", tt.name, err, tt.target)
		}
	}

	if err := store.Export("missing", &bytes.Buffer{}, FormatJSON); !perrors.IsNotFound(err) {
		t.Errorf("Export(missing) error = %v", err)
	}
}
