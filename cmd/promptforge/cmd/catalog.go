package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"promptforge/src/catalog"
)

var catalogMode string

// catalogCmd represents the catalog command
var catalogCmd = &cobra.Command{
	Use:   "catalog [category]",
	Short: "List categories or the options of one category",
	Long: `List categories or the options of one category.

Examples:
  promptforge catalog
  promptforge catalog subject
  promptforge catalog lighting --mode NSFW`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		mode, err := a.defaultMode(catalogMode)
		if err != nil {
			return err
		}

		if len(args) == 0 {
			fmt.Printf("Categories (%s):\n", mode)
			for _, category := range catalog.Categories() {
				fmt.Printf("  %-12s %3d options  %s\n", category,
					len(a.catalog.Options(category, mode)), category.Description())
			}
			return nil
		}

		category, err := catalog.ParseCategory(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("%s (%s): %s\n", category, mode, category.Description())
		fmt.Printf("source: %s\n\n", a.catalog.Source(category))
		for _, opt := range a.catalog.Options(category, mode) {
			line := fmt.Sprintf("  %-24s %s", opt.ID, opt.Label)
			if opt.Weight != 1.0 {
				line += fmt.Sprintf(" (weight %.2f)", opt.Weight)
			}
			fmt.Println(line)
			if len(opt.Modifiers) > 0 {
				fmt.Printf("  %-24s modifiers: %s\n", "", strings.Join(opt.Modifiers, ", "))
			}
		}
		if common := a.catalog.CommonModifiers(category); len(common) > 0 {
			fmt.Printf("\nCommon modifiers: %s\n", strings.Join(common, ", "))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.Flags().StringVarP(&catalogMode, "mode", "m", "", "content mode: SFW or NSFW")
}
