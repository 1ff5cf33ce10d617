package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"promptforge/src/catalog"
	perrors "promptforge/src/errors"
	"promptforge/src/templates"
)

var (
	saveFlags       selectionFlags
	saveName        string
	saveDescription string
	saveTags        []string

	listMode string
	listTag  string

	updateName        string
	updateDescription string
	updateTags        []string

	exportFormat string
	exportOutput string
)

// templateCmd represents the template command
var templateCmd = &cobra.Command{
	Use:     "template",
	Aliases: []string{"templates", "t"},
	Short:   "Save, list and manage prompt templates",
	Long: `Save, list and manage prompt templates.

Examples:
  promptforge template save --name "Golden portrait" -s subject=person_portrait -s lighting=golden_hour
  promptforge template list --mode SFW --tag portrait
  promptforge template export <id> --format yaml -o portrait.yaml
  promptforge template import portrait.yaml`,
}

// withStore runs fn with an app whose template store is open.
func withStore(fn func(a *app) error) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.openStore(); err != nil {
		return err
	}
	return fn(a)
}

var templateSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Render selections and save them as a template",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(a *app) error {
			set, err := saveFlags.build(a)
			if err != nil {
				return err
			}
			t, err := a.store.Save(set, saveName, saveDescription, saveTags)
			if err != nil {
				return err
			}
			fmt.Printf("Saved template %s\n", t.TemplateID)
			fmt.Println(t.GeneratedPrompt)
			return nil
		})
	},
}

var templateShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a template and its selections",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(a *app) error {
			t, err := a.store.Load(args[0])
			if err != nil {
				return err
			}
			printTemplate(t)
			return nil
		})
	},
}

var templateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved templates, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(a *app) error {
			filter := templates.ListFilter{Tag: strings.TrimSpace(listTag)}
			if listMode != "" {
				mode, err := catalog.ParseMode(listMode)
				if err != nil {
					return err
				}
				filter.Mode = mode
			}

			all, err := a.store.List(filter)
			if err != nil {
				return err
			}
			if len(all) == 0 {
				fmt.Println("No templates found")
				return nil
			}
			for _, t := range all {
				fmt.Printf("%s  %-4s  %s  %s", t.TemplateID, t.Mode,
					t.CreatedDate.Local().Format("2006-01-02 15:04"), t.Name)
				if len(t.Tags) > 0 {
					fmt.Printf("  [%s]", strings.Join(t.Tags, ", "))
				}
				fmt.Println()
			}
			return nil
		})
	},
}

var templateDeleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a template",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(a *app) error {
			if err := a.store.Delete(args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted template %s\n", args[0])
			return nil
		})
	},
}

var templateUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Edit a template's name, description or tags",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var patch templates.Patch
		if cmd.Flags().Changed("name") {
			patch.Name = &updateName
		}
		if cmd.Flags().Changed("description") {
			patch.Description = &updateDescription
		}
		if cmd.Flags().Changed("tag") {
			patch.Tags = &updateTags
		}
		if patch.Name == nil && patch.Description == nil && patch.Tags == nil {
			return fmt.Errorf("nothing to update: pass --name, --description or --tag")
		}

		return withStore(func(a *app) error {
			t, err := a.store.Update(args[0], patch)
			if err != nil {
				return err
			}
			printTemplate(t)
			return nil
		})
	},
}

var templateExportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Write a template as JSON or YAML",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(a *app) error {
			var w io.Writer = os.Stdout
			if exportOutput != "" && exportOutput != "-" {
				f, err := os.Create(exportOutput)
				if err != nil {
					return perrors.WrapWithContext(err, "failed to create %s", exportOutput)
				}
				defer f.Close()
				w = f
			}
			return a.store.Export(args[0], w, exportFormat)
		})
	},
}

var templateImportCmd = &cobra.Command{
	Use:   "import <file|->",
	Short: "Import an exported template under a new id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(a *app) error {
			var r io.Reader = os.Stdin
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return perrors.WrapWithContext(err, "failed to open %s", args[0])
				}
				defer f.Close()
				r = f
			}
			t, err := a.store.Import(r)
			if err != nil {
				return err
			}
			fmt.Printf("Imported template %s (%s)\n", t.TemplateID, t.Name)
			return nil
		})
	},
}

func printTemplate(t *templates.Template) {
	fmt.Printf("ID:          %s\n", t.TemplateID)
	fmt.Printf("Name:        %s\n", t.Name)
	if t.Description != "" {
		fmt.Printf("Description: %s\n", t.Description)
	}
	fmt.Printf("Mode:        %s\n", t.Mode)
	fmt.Printf("Created:     %s\n", t.CreatedDate.Local().Format("2006-01-02 15:04:05"))
	if t.UpdatedDate != nil {
		fmt.Printf("Updated:     %s\n", t.UpdatedDate.Local().Format("2006-01-02 15:04:05"))
	}
	if len(t.Tags) > 0 {
		fmt.Printf("Tags:        %s\n", strings.Join(t.Tags, ", "))
	}

	fmt.Println("\nSelections:")
	for _, category := range catalog.Categories() {
		sel, ok := t.Categories[category]
		if !ok || sel.IsZero() {
			continue
		}
		value := sel.SelectionID
		if strings.TrimSpace(sel.CustomText) != "" {
			value = fmt.Sprintf("%q", sel.CustomText)
		}
		if len(sel.ActiveModifiers) > 0 {
			value += " +" + strings.Join(sel.ActiveModifiers, " +")
		}
		if sel.WeightOverride != nil {
			value += fmt.Sprintf(" @%.2f", *sel.WeightOverride)
		}
		fmt.Printf("  %-12s %s\n", category, value)
	}

	fmt.Printf("\nPrompt:\n%s\n", t.GeneratedPrompt)
}

func init() {
	rootCmd.AddCommand(templateCmd)
	templateCmd.AddCommand(templateSaveCmd)
	templateCmd.AddCommand(templateShowCmd)
	templateCmd.AddCommand(templateListCmd)
	templateCmd.AddCommand(templateDeleteCmd)
	templateCmd.AddCommand(templateUpdateCmd)
	templateCmd.AddCommand(templateExportCmd)
	templateCmd.AddCommand(templateImportCmd)

	saveFlags.register(templateSaveCmd)
	templateSaveCmd.Flags().StringVarP(&saveName, "name", "n", "", "template name (required)")
	templateSaveCmd.Flags().StringVarP(&saveDescription, "description", "d", "", "template description")
	templateSaveCmd.Flags().StringSliceVarP(&saveTags, "tag", "t", nil, "comma-separated tags")
	templateSaveCmd.MarkFlagRequired("name")

	templateListCmd.Flags().StringVarP(&listMode, "mode", "m", "", "only templates in this mode")
	templateListCmd.Flags().StringVarP(&listTag, "tag", "t", "", "only templates with this tag")

	templateUpdateCmd.Flags().StringVarP(&updateName, "name", "n", "", "new name")
	templateUpdateCmd.Flags().StringVarP(&updateDescription, "description", "d", "", "new description")
	templateUpdateCmd.Flags().StringSliceVarP(&updateTags, "tag", "t", nil, "replace tags (comma-separated)")

	templateExportCmd.Flags().StringVarP(&exportFormat, "format", "f", templates.FormatJSON, "json or yaml")
	templateExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default stdout)")
}
