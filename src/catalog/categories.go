package catalog

import (
	"fmt"
	"strings"
)

// Category is one of the six fixed prompt slots.
type Category string

const (
	Subject     Category = "subject"
	Style       Category = "style"
	Composition Category = "composition"
	Environment Category = "environment"
	Lighting    Category = "lighting"
	Technical   Category = "technical"
)

// canonicalOrder is the order segments appear in a rendered prompt.
var canonicalOrder = []Category{Subject, Style, Composition, Environment, Lighting, Technical}

var descriptions = map[Category]string{
	Subject:     "Choose the main subject or focus of your image",
	Style:       "Select the artistic style and technique",
	Composition: "Define the framing and layout of your image",
	Environment: "Set the background and setting",
	Lighting:    "Choose the lighting mood and atmosphere",
	Technical:   "Specify camera and technical quality settings",
}

// Categories returns the six categories in canonical order.
func Categories() []Category {
	out := make([]Category, len(canonicalOrder))
	copy(out, canonicalOrder)
	return out
}

// Description returns the help text for a category.
func (c Category) Description() string {
	return descriptions[c]
}

func (c Category) Valid() bool {
	_, ok := descriptions[c]
	return ok
}

// ParseCategory accepts a category name case-insensitively, including the
// plural forms older data files used ("subjects", "styles").
func ParseCategory(s string) (Category, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	c := Category(name)
	if c.Valid() {
		return c, nil
	}
	if trimmed := Category(strings.TrimSuffix(name, "s")); trimmed.Valid() {
		return trimmed, nil
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// Mode gates which option list is resolvable.
type Mode string

const (
	SFW  Mode = "SFW"
	NSFW Mode = "NSFW"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToUpper(strings.TrimSpace(s))) {
	case SFW:
		return SFW, nil
	case NSFW:
		return NSFW, nil
	}
	return "", fmt.Errorf("unknown mode %q (want SFW or NSFW)", s)
}

func (m Mode) Valid() bool {
	return m == SFW || m == NSFW
}
