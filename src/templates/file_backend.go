package templates

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	perrors "promptforge/src/errors"
	"promptforge/src/logger"
)

const recordExt = ".json"

// FileBackend stores one JSON file per template under a directory.
type FileBackend struct {
	dir string
	log *logger.Logger
}

// NewFileBackend creates the directory if needed.
func NewFileBackend(dir string, log *logger.Logger) (*FileBackend, error) {
	if log == nil {
		log = logger.Nop()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create templates directory: %w", err)
	}
	return &FileBackend{dir: dir, log: log}, nil
}

func (b *FileBackend) Dir() string {
	return b.dir
}

func (b *FileBackend) path(id string) string {
	return filepath.Join(b.dir, id+recordExt)
}

// Put writes the record to a temp file and renames it into place so a failed
// write never leaves a truncated record behind.
func (b *FileBackend) Put(t *Template) error {
	data, err := EncodeRecord(t)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(b.dir, ".tmp-"+t.TemplateID+"-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return err
	}
	return os.Rename(tmpName, b.path(t.TemplateID))
}

func (b *FileBackend) Get(id string) (*Template, error) {
	data, err := os.ReadFile(b.path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &perrors.NotFoundError{TemplateID: id}
		}
		return nil, err
	}
	return DecodeRecord(data)
}

// List decodes every record in the directory. Unreadable records are logged
// and skipped so one bad file does not hide the rest.
func (b *FileBackend) List() ([]*Template, error) {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var out []*Template
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != recordExt {
			continue
		}
		id := strings.TrimSuffix(name, recordExt)
		t, err := b.Get(id)
		if err != nil {
			b.log.Warn("skipping unreadable template", "path", filepath.Join(b.dir, name), "error", err)
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (b *FileBackend) Remove(id string) error {
	err := os.Remove(b.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return &perrors.NotFoundError{TemplateID: id}
	}
	return err
}
