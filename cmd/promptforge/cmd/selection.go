package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"promptforge/src/catalog"
	"promptforge/src/composer"
)

// selectionFlags collects the flags that describe a SelectionSet.
type selectionFlags struct {
	mode      string
	sets      []string
	customs   []string
	modifiers []string
	weights   []string
}

func (f *selectionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.mode, "mode", "m", "", "content mode: SFW or NSFW (default from prompt.default_mode)")
	cmd.Flags().StringArrayVarP(&f.sets, "set", "s", nil, "select a catalog option: category=option_id")
	cmd.Flags().StringArrayVarP(&f.customs, "custom", "c", nil, "free text for a category: category=text")
	cmd.Flags().StringArrayVar(&f.modifiers, "modifier", nil, "toggle a modifier: category=modifier")
	cmd.Flags().StringArrayVarP(&f.weights, "weight", "w", nil, "weight override: category=1.5")
}

// build applies the flags in a fixed order: selections, custom text,
// modifiers, then weights.
func (f *selectionFlags) build(a *app) (*composer.SelectionSet, error) {
	mode, err := a.defaultMode(f.mode)
	if err != nil {
		return nil, err
	}
	set, err := composer.NewSelectionSet(mode)
	if err != nil {
		return nil, err
	}

	for _, raw := range f.sets {
		category, value, err := splitAssignment("--set", raw)
		if err != nil {
			return nil, err
		}
		if err := set.Select(category, value); err != nil {
			return nil, err
		}
	}
	for _, raw := range f.customs {
		category, value, err := splitAssignment("--custom", raw)
		if err != nil {
			return nil, err
		}
		if err := set.SetCustomText(category, value); err != nil {
			return nil, err
		}
	}
	for _, raw := range f.modifiers {
		category, value, err := splitAssignment("--modifier", raw)
		if err != nil {
			return nil, err
		}
		if _, err := set.ToggleModifier(category, value); err != nil {
			return nil, err
		}
	}
	for _, raw := range f.weights {
		category, value, err := splitAssignment("--weight", raw)
		if err != nil {
			return nil, err
		}
		weight, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("--weight %s: %w", raw, err)
		}
		if err := set.SetWeight(category, weight); err != nil {
			return nil, err
		}
	}
	return set, nil
}

func splitAssignment(flag, raw string) (catalog.Category, string, error) {
	name, value, ok := strings.Cut(raw, "=")
	if !ok {
		return "", "", fmt.Errorf("%s %q: expected category=value", flag, raw)
	}
	category, err := catalog.ParseCategory(name)
	if err != nil {
		return "", "", fmt.Errorf("%s: %w", flag, err)
	}
	return category, strings.TrimSpace(value), nil
}
