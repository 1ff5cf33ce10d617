package catalog

// Option is one selectable entry within a category.
type Option struct {
	ID        string   `json:"id" toml:"id" yaml:"id"`
	Label     string   `json:"label" toml:"label" yaml:"label"`
	Tags      []string `json:"tags,omitempty" toml:"tags" yaml:"tags,omitempty"`
	Weight    float64  `json:"weight,omitempty" toml:"weight" yaml:"weight,omitempty"`
	Modifiers []string `json:"modifiers,omitempty" toml:"modifiers" yaml:"modifiers,omitempty"`
}

// CategoryFile is the on-disk shape of one category's option record.
// The option lists are pointers so an absent list can be told apart from an
// empty one.
type CategoryFile struct {
	CategoryName    string    `json:"category_name" toml:"category_name" yaml:"category_name"`
	SFWOptions      *[]Option `json:"sfw_options" toml:"sfw_options" yaml:"sfw_options"`
	NSFWOptions     *[]Option `json:"nsfw_options" toml:"nsfw_options" yaml:"nsfw_options"`
	CommonModifiers []string  `json:"common_modifiers" toml:"common_modifiers" yaml:"common_modifiers"`
}

// categoryData is the validated, immutable form of a CategoryFile.
type categoryData struct {
	options         map[Mode][]Option
	index           map[Mode]map[string]int
	commonModifiers []string
	source          string
}
