package composer

import (
	"math"

	"promptforge/src/catalog"
	perrors "promptforge/src/errors"
)

// Selection is the user's choice for one category.
type Selection struct {
	SelectionID     string   `json:"selection_id" yaml:"selection_id"`
	CustomText      string   `json:"custom_text" yaml:"custom_text"`
	ActiveModifiers []string `json:"active_modifiers,omitempty" yaml:"active_modifiers,omitempty"`
	WeightOverride  *float64 `json:"weight_override,omitempty" yaml:"weight_override,omitempty"`
}

// IsZero reports whether the selection contributes nothing and carries no state.
func (s Selection) IsZero() bool {
	return s.SelectionID == "" && s.CustomText == "" &&
		len(s.ActiveModifiers) == 0 && s.WeightOverride == nil
}

func (s Selection) clone() Selection {
	out := s
	if s.ActiveModifiers != nil {
		out.ActiveModifiers = append([]string(nil), s.ActiveModifiers...)
	}
	if s.WeightOverride != nil {
		w := *s.WeightOverride
		out.WeightOverride = &w
	}
	return out
}

// ChangeKind names the mutation that produced a Change.
type ChangeKind string

const (
	ChangeSelect   ChangeKind = "select"
	ChangeCustom   ChangeKind = "custom_text"
	ChangeModifier ChangeKind = "modifier"
	ChangeWeight   ChangeKind = "weight"
	ChangeClear    ChangeKind = "clear"
	ChangeMode     ChangeKind = "mode"
)

// Change is delivered to subscribers after every mutation. Category is empty
// for set-wide changes (mode switch, clear all).
type Change struct {
	Category catalog.Category
	Kind     ChangeKind
}

// SelectionSet is the complete working state: a mode and at most one
// Selection per category. It is owned by a single caller and not safe for
// concurrent mutation.
type SelectionSet struct {
	mode        catalog.Mode
	selections  map[catalog.Category]Selection
	subscribers map[int]func(Change)
	nextSub     int
}

// NewSelectionSet returns an empty set in mode.
func NewSelectionSet(mode catalog.Mode) (*SelectionSet, error) {
	if !mode.Valid() {
		return nil, &perrors.ValidationError{Field: "mode", Value: mode, Message: "must be SFW or NSFW"}
	}
	return &SelectionSet{
		mode:       mode,
		selections: make(map[catalog.Category]Selection),
	}, nil
}

func (s *SelectionSet) Mode() catalog.Mode {
	return s.mode
}

// Get returns a copy of the selection for category.
func (s *SelectionSet) Get(category catalog.Category) Selection {
	return s.selections[category].clone()
}

// Selections returns a copy of every non-empty selection.
func (s *SelectionSet) Selections() map[catalog.Category]Selection {
	out := make(map[catalog.Category]Selection, len(s.selections))
	for c, sel := range s.selections {
		out[c] = sel.clone()
	}
	return out
}

// Subscribe registers fn to be called after each mutation and returns a
// function that removes it.
func (s *SelectionSet) Subscribe(fn func(Change)) (unsubscribe func()) {
	if s.subscribers == nil {
		s.subscribers = make(map[int]func(Change))
	}
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	return func() { delete(s.subscribers, id) }
}

func (s *SelectionSet) notify(c Change) {
	for i := 0; i < s.nextSub; i++ {
		if fn, ok := s.subscribers[i]; ok {
			fn(c)
		}
	}
}

func checkCategory(category catalog.Category) error {
	if !category.Valid() {
		return &perrors.ValidationError{Field: "category", Value: category, Message: "unknown category"}
	}
	return nil
}

func (s *SelectionSet) update(category catalog.Category, kind ChangeKind, fn func(*Selection)) error {
	if err := checkCategory(category); err != nil {
		return err
	}
	sel := s.selections[category].clone()
	fn(&sel)
	if sel.IsZero() {
		delete(s.selections, category)
	} else {
		s.selections[category] = sel
	}
	s.notify(Change{Category: category, Kind: kind})
	return nil
}

// Set replaces the whole selection for category.
func (s *SelectionSet) Set(category catalog.Category, sel Selection) error {
	if sel.WeightOverride != nil && !validWeight(*sel.WeightOverride) {
		return invalidWeight(category, *sel.WeightOverride)
	}
	return s.update(category, ChangeSelect, func(cur *Selection) { *cur = sel.clone() })
}

// Select points category at a catalog option id. Resolution happens at render
// time, so an id that is absent under the current mode is accepted here.
func (s *SelectionSet) Select(category catalog.Category, optionID string) error {
	return s.update(category, ChangeSelect, func(cur *Selection) { cur.SelectionID = optionID })
}

// SetCustomText sets free text that takes precedence over the option id.
func (s *SelectionSet) SetCustomText(category catalog.Category, text string) error {
	return s.update(category, ChangeCustom, func(cur *Selection) { cur.CustomText = text })
}

// ToggleModifier enables modifier (appending it after those already enabled)
// or disables it if already active. It returns the new state.
func (s *SelectionSet) ToggleModifier(category catalog.Category, modifier string) (bool, error) {
	enabled := false
	err := s.update(category, ChangeModifier, func(cur *Selection) {
		for i, m := range cur.ActiveModifiers {
			if m == modifier {
				cur.ActiveModifiers = append(cur.ActiveModifiers[:i], cur.ActiveModifiers[i+1:]...)
				if len(cur.ActiveModifiers) == 0 {
					cur.ActiveModifiers = nil
				}
				return
			}
		}
		cur.ActiveModifiers = append(cur.ActiveModifiers, modifier)
		enabled = true
	})
	return enabled, err
}

// SetWeight sets a weight override. Weights must be positive and finite.
func (s *SelectionSet) SetWeight(category catalog.Category, weight float64) error {
	if !validWeight(weight) {
		return invalidWeight(category, weight)
	}
	return s.update(category, ChangeWeight, func(cur *Selection) { cur.WeightOverride = &weight })
}

// ClearWeight removes the override so the option's default weight applies.
func (s *SelectionSet) ClearWeight(category catalog.Category) error {
	return s.update(category, ChangeWeight, func(cur *Selection) { cur.WeightOverride = nil })
}

// Clear empties one category.
func (s *SelectionSet) Clear(category catalog.Category) error {
	return s.update(category, ChangeClear, func(cur *Selection) { *cur = Selection{} })
}

// ClearAll empties every category, keeping the mode.
func (s *SelectionSet) ClearAll() {
	s.selections = make(map[catalog.Category]Selection)
	s.notify(Change{Kind: ChangeClear})
}

// SetMode switches the content mode. Selections are kept as-is; ids that do
// not exist under the new mode fail at render time.
func (s *SelectionSet) SetMode(mode catalog.Mode) error {
	if !mode.Valid() {
		return &perrors.ValidationError{Field: "mode", Value: mode, Message: "must be SFW or NSFW"}
	}
	if mode == s.mode {
		return nil
	}
	s.mode = mode
	s.notify(Change{Kind: ChangeMode})
	return nil
}

// Clone returns a deep copy without subscribers.
func (s *SelectionSet) Clone() *SelectionSet {
	out := &SelectionSet{mode: s.mode, selections: s.Selections()}
	return out
}

// validWeight rejects zero, negatives, NaN and infinities.
func validWeight(w float64) bool {
	return w > 0 && !math.IsInf(w, 0)
}

func invalidWeight(category catalog.Category, w float64) error {
	return &perrors.ValidationError{
		Field:   string(category) + ".weight_override",
		Value:   w,
		Message: "weight must be a finite number greater than 0",
	}
}
