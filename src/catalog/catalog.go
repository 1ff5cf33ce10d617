package catalog

// Catalog is the read-only table of selectable options per category.
// It is safe to share once loaded; nothing mutates it after Load.
type Catalog struct {
	categories map[Category]*categoryData
}

// Options returns the options for category under mode, in file order.
// SFW and NSFW lists are disjoint: NSFW mode does not include SFW options.
func (c *Catalog) Options(category Category, mode Mode) []Option {
	data, ok := c.categories[category]
	if !ok {
		return nil
	}
	src := data.options[mode]
	out := make([]Option, len(src))
	for i, opt := range src {
		out[i] = opt
		out[i].Tags = cloneStrings(opt.Tags)
		out[i].Modifiers = cloneStrings(opt.Modifiers)
	}
	return out
}

// CommonModifiers returns the modifiers offered for category in every mode.
func (c *Catalog) CommonModifiers(category Category) []string {
	data, ok := c.categories[category]
	if !ok {
		return nil
	}
	return cloneStrings(data.commonModifiers)
}

// Lookup finds an option by id within the category's list for mode.
func (c *Catalog) Lookup(category Category, mode Mode, id string) (Option, bool) {
	data, ok := c.categories[category]
	if !ok {
		return Option{}, false
	}
	i, ok := data.index[mode][id]
	if !ok {
		return Option{}, false
	}
	opt := data.options[mode][i]
	opt.Tags = cloneStrings(opt.Tags)
	opt.Modifiers = cloneStrings(opt.Modifiers)
	return opt, true
}

// Modifiers returns every modifier a user may enable for the given option:
// the option's own modifiers followed by the category's common modifiers,
// without duplicates. An empty id yields only the common modifiers.
func (c *Catalog) Modifiers(category Category, mode Mode, id string) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(mods []string) {
		for _, m := range mods {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}

	if id != "" {
		if opt, ok := c.Lookup(category, mode, id); ok {
			add(opt.Modifiers)
		}
	}
	add(c.CommonModifiers(category))
	return out
}

// Source reports which file supplied the category's data.
func (c *Catalog) Source(category Category) string {
	if data, ok := c.categories[category]; ok {
		return data.source
	}
	return ""
}
