package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"promptforge/src/composer"
)

var (
	renderFlags    selectionFlags
	renderStats    bool
	renderSegments bool
	renderJSON     bool
	renderOutput   string
)

// renderCmd represents the render command
var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a prompt from category selections",
	Long: `Render a prompt from category selections.

Examples:
  promptforge render --set subject=person_portrait --modifier subject=detailed
  promptforge render -s subject=landscape -s lighting=golden_hour -w subject=1.5
  promptforge render --custom environment="quiet library" --stats`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		set, err := renderFlags.build(a)
		if err != nil {
			return err
		}

		if renderSegments {
			for _, seg := range a.engine.Segments(set) {
				if seg.Err != nil {
					fmt.Printf("%-12s ! %v\n", seg.Category, seg.Err)
					continue
				}
				fmt.Printf("%-12s %s\n", seg.Category, seg.Text)
			}
			return nil
		}

		prompt, err := a.engine.Render(set)
		if err != nil {
			return err
		}
		stats, err := a.engine.Stats(set)
		if err != nil {
			return err
		}

		if renderJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				Prompt string         `json:"prompt"`
				Stats  composer.Stats `json:"stats"`
			}{prompt, stats})
		}

		if renderOutput != "" {
			if err := os.WriteFile(renderOutput, []byte(prompt+"\n"), 0644); err != nil {
				return fmt.Errorf("failed to write prompt: %w", err)
			}
			fmt.Fprintf(os.Stderr, "Prompt written to %s\n", renderOutput)
		} else {
			fmt.Println(prompt)
		}
		if renderStats {
			fmt.Fprintf(os.Stderr, "\n%d characters, %d words, %d categories (%s)\n",
				stats.Length, stats.WordCount, stats.CategoriesUsed, stats.Mode)
		}
		if stats.OverLimit {
			a.log.Warn("prompt exceeds configured max length", "length", stats.Length, "max_length", stats.MaxLength)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(renderCmd)
	renderFlags.register(renderCmd)
	renderCmd.Flags().BoolVar(&renderStats, "stats", false, "print length and word count to stderr")
	renderCmd.Flags().BoolVar(&renderSegments, "segments", false, "print each category's segment instead of the joined prompt")
	renderCmd.Flags().BoolVar(&renderJSON, "json", false, "print the prompt and stats as JSON")
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "", "write the prompt to a text file")
}
