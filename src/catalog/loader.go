package catalog

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/hjson/hjson-go/v4"
	"gopkg.in/yaml.v3"

	perrors "promptforge/src/errors"
	"promptforge/src/logger"
)

//go:embed data/*.json
var embeddedCategories embed.FS

// Source is one category record together with where it came from.
type Source struct {
	Name string // file path, used in error messages
	Data []byte
}

// LoadEmbedded loads the built-in catalog.
func LoadEmbedded() (*Catalog, error) {
	sources, err := readFS(embeddedCategories, "data")
	if err != nil {
		return nil, err
	}
	return Load(sources...)
}

// LoadDir loads the built-in catalog with any category files found in dir
// taking precedence over the embedded ones. A missing dir is not an error.
func LoadDir(dir string, log *logger.Logger) (*Catalog, error) {
	if log == nil {
		log = logger.Nop()
	}

	sources, err := readFS(embeddedCategories, "data")
	if err != nil {
		return nil, err
	}

	if dir != "" {
		userSources, err := readFS(os.DirFS(dir), ".")
		var loadErr *perrors.CatalogLoadError
		switch {
		case err == nil, errors.Is(err, fs.ErrNotExist):
		case errors.As(err, &loadErr):
			return nil, err
		default:
			return nil, &perrors.CatalogLoadError{Source: dir, Reason: "cannot read directory", Err: err}
		}
		for i := range userSources {
			userSources[i].Name = filepath.Join(dir, userSources[i].Name)
			log.Debug("using user category file", "path", userSources[i].Name)
		}
		if err := checkDistinctCategories(userSources); err != nil {
			return nil, err
		}
		sources = append(sources, userSources...)
	}

	return Load(sources...)
}

func readFS(fsys fs.FS, dir string) ([]Source, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}

	var sources []Source
	for _, entry := range entries {
		if entry.IsDir() || formatOf(entry.Name()) == "" {
			continue
		}
		name := path.Join(dir, entry.Name())
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, &perrors.CatalogLoadError{Source: name, Reason: "cannot read file", Err: err}
		}
		sources = append(sources, Source{Name: name, Data: data})
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i].Name < sources[j].Name })
	return sources, nil
}

func formatOf(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return "json"
	case ".toml":
		return "toml"
	case ".yaml", ".yml":
		return "yaml"
	case ".hjson":
		return "hjson"
	}
	return ""
}

// Load validates and merges sources into a Catalog. A later source for the
// same category replaces an earlier one. All six categories must be present
// once every source is applied.
func Load(sources ...Source) (*Catalog, error) {
	c := &Catalog{categories: make(map[Category]*categoryData)}

	for _, src := range sources {
		file, err := decode(src)
		if err != nil {
			return nil, err
		}
		category, data, err := validate(src.Name, file)
		if err != nil {
			return nil, err
		}
		c.categories[category] = data
	}

	for _, category := range canonicalOrder {
		if _, ok := c.categories[category]; !ok {
			return nil, &perrors.CatalogLoadError{
				Category: string(category),
				Source:   "catalog",
				Reason:   "no option data for category",
			}
		}
	}
	return c, nil
}

// checkDistinctCategories fails when two sources from the same directory
// define one category, since neither would reliably take precedence.
func checkDistinctCategories(sources []Source) error {
	seen := make(map[Category]string, len(sources))
	for _, src := range sources {
		file, err := decode(src)
		if err != nil {
			return err
		}
		category, err := ParseCategory(file.CategoryName)
		if err != nil {
			// validate reports this with full context.
			continue
		}
		if prev, dup := seen[category]; dup {
			return &perrors.CatalogLoadError{
				Category: string(category),
				Source:   src.Name,
				Reason:   fmt.Sprintf("category already defined by %s", prev),
			}
		}
		seen[category] = src.Name
	}
	return nil
}

func decode(src Source) (*CategoryFile, error) {
	var file CategoryFile
	var err error

	switch formatOf(src.Name) {
	case "json":
		dec := json.NewDecoder(bytes.NewReader(src.Data))
		err = dec.Decode(&file)
	case "toml":
		_, err = toml.Decode(string(src.Data), &file)
	case "yaml":
		err = yaml.Unmarshal(src.Data, &file)
	case "hjson":
		err = hjson.Unmarshal(src.Data, &file)
	default:
		return nil, &perrors.CatalogLoadError{Source: src.Name, Reason: "unsupported file extension"}
	}
	if err != nil {
		return nil, &perrors.CatalogLoadError{Source: src.Name, Reason: "malformed category data", Err: err}
	}
	return &file, nil
}

func validate(source string, file *CategoryFile) (Category, *categoryData, error) {
	if strings.TrimSpace(file.CategoryName) == "" {
		return "", nil, &perrors.CatalogLoadError{Source: source, Reason: "missing category_name"}
	}
	category, err := ParseCategory(file.CategoryName)
	if err != nil {
		return "", nil, &perrors.CatalogLoadError{Source: source, Reason: "unknown category_name", Err: err}
	}
	if file.SFWOptions == nil && file.NSFWOptions == nil {
		return "", nil, &perrors.CatalogLoadError{
			Category: string(category),
			Source:   source,
			Reason:   "missing both sfw_options and nsfw_options",
		}
	}

	data := &categoryData{
		options: make(map[Mode][]Option, 2),
		index:   make(map[Mode]map[string]int, 2),
		source:  source,
	}

	lists := map[Mode]*[]Option{SFW: file.SFWOptions, NSFW: file.NSFWOptions}
	for _, mode := range []Mode{SFW, NSFW} {
		var raw []Option
		if lists[mode] != nil {
			raw = *lists[mode]
		}
		options := make([]Option, 0, len(raw))
		index := make(map[string]int, len(raw))

		for i, opt := range raw {
			fail := func(reason string) error {
				return &perrors.CatalogLoadError{
					Category: string(category),
					Source:   source,
					Reason:   fmt.Sprintf("%s option #%d: %s", strings.ToLower(string(mode)), i+1, reason),
				}
			}
			if opt.ID == "" {
				return "", nil, fail("missing id")
			}
			if opt.Label == "" {
				return "", nil, fail(fmt.Sprintf("%q missing label", opt.ID))
			}
			if _, dup := index[opt.ID]; dup {
				return "", nil, fail(fmt.Sprintf("duplicate id %q", opt.ID))
			}
			if opt.Weight < 0 {
				return "", nil, fail(fmt.Sprintf("%q has negative weight %v", opt.ID, opt.Weight))
			}
			if math.IsNaN(opt.Weight) || math.IsInf(opt.Weight, 0) {
				return "", nil, fail(fmt.Sprintf("%q has non-finite weight %v", opt.ID, opt.Weight))
			}
			if opt.Weight == 0 {
				opt.Weight = 1.0
			}
			opt.Tags = cloneStrings(opt.Tags)
			opt.Modifiers = cloneStrings(opt.Modifiers)

			index[opt.ID] = len(options)
			options = append(options, opt)
		}

		data.options[mode] = options
		data.index[mode] = index
	}
	data.commonModifiers = cloneStrings(file.CommonModifiers)

	return category, data, nil
}

func cloneStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
