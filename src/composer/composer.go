package composer

import (
	"fmt"
	"strings"

	"promptforge/src/catalog"
	perrors "promptforge/src/errors"
)

// Separator joins modifiers within a segment and segments within a prompt.
const Separator = ", "

// Engine renders a SelectionSet into a prompt string using a Catalog.
// Render is a pure function of the set and the catalog.
type Engine struct {
	catalog   *catalog.Catalog
	maxLength int
}

// NewEngine creates an engine over c. maxLength only affects Stats; zero
// disables the check.
func NewEngine(c *catalog.Catalog, maxLength int) *Engine {
	return &Engine{catalog: c, maxLength: maxLength}
}

func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

// Segment is the rendered text of one category.
type Segment struct {
	Category catalog.Category
	Text     string
	Weight   float64
	Err      error
}

// Segments renders each category independently in canonical order. Skipped
// categories are omitted; a category that fails to resolve is returned with
// Err set so a preview can flag just that category.
func (e *Engine) Segments(set *SelectionSet) []Segment {
	if set == nil {
		return nil
	}
	var segments []Segment
	for _, category := range catalog.Categories() {
		sel, ok := set.selections[category]
		if !ok {
			continue
		}
		seg, skip := e.renderSegment(category, set.mode, sel)
		if skip {
			continue
		}
		segments = append(segments, seg)
	}
	return segments
}

// Render builds the final prompt. It fails with the first unresolved
// category in canonical order.
func (e *Engine) Render(set *SelectionSet) (string, error) {
	if set == nil {
		return "", &perrors.ValidationError{Field: "selection set", Message: "is nil"}
	}

	var layers []string
	for _, seg := range e.Segments(set) {
		if seg.Err != nil {
			return "", seg.Err
		}
		layers = append(layers, seg.Text)
	}
	return strings.Join(layers, Separator), nil
}

func (e *Engine) renderSegment(category catalog.Category, mode catalog.Mode, sel Selection) (Segment, bool) {
	seg := Segment{Category: category, Weight: 1.0}

	// Custom text wins over the option id; the option's default weight only
	// applies when the option itself is what gets rendered.
	var parts []string
	if text := strings.TrimSpace(sel.CustomText); text != "" {
		parts = append(parts, text)
	} else if sel.SelectionID != "" {
		opt, ok := e.catalog.Lookup(category, mode, sel.SelectionID)
		if !ok {
			seg.Err = &perrors.UnresolvedSelectionError{
				Category:    string(category),
				SelectionID: sel.SelectionID,
				Mode:        string(mode),
			}
			return seg, false
		}
		parts = append(parts, opt.Label)
		seg.Weight = opt.Weight
	} else {
		return seg, true
	}

	for _, m := range sel.ActiveModifiers {
		if m = strings.TrimSpace(m); m != "" {
			parts = append(parts, m)
		}
	}

	if sel.WeightOverride != nil {
		if !validWeight(*sel.WeightOverride) {
			seg.Err = invalidWeight(category, *sel.WeightOverride)
			return seg, false
		}
		seg.Weight = *sel.WeightOverride
	}

	seg.Text = annotate(strings.Join(parts, Separator), seg.Weight)
	return seg, false
}

// annotate wraps text as (text:W.WW) unless weight is exactly 1.
func annotate(text string, weight float64) string {
	if weight == 1.0 {
		return text
	}
	return fmt.Sprintf("(%s:%.2f)", text, weight)
}

// Stats describes a rendered prompt.
type Stats struct {
	Length         int          `json:"length"`
	WordCount      int          `json:"word_count"`
	CategoriesUsed int          `json:"categories_used"`
	Mode           catalog.Mode `json:"mode"`
	MaxLength      int          `json:"max_length,omitempty"`
	OverLimit      bool         `json:"over_limit"`
}

// Stats renders set and reports its size.
func (e *Engine) Stats(set *SelectionSet) (Stats, error) {
	prompt, err := e.Render(set)
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{
		Length:         len([]rune(prompt)),
		WordCount:      len(strings.Fields(prompt)),
		CategoriesUsed: len(e.Segments(set)),
		Mode:           set.Mode(),
		MaxLength:      e.maxLength,
	}
	stats.OverLimit = e.maxLength > 0 && stats.Length > e.maxLength
	return stats, nil
}
