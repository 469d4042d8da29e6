package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/valter-silva-au/supportbot/internal/core"
	"github.com/valter-silva-au/supportbot/internal/storage"
	"github.com/valter-silva-au/supportbot/pkg/models"
)

var (
	catalogCategory string
	catalogJSON     bool
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect and validate the FAQ catalog",
	Long: `Commands for the FAQ catalog the agent answers from.

The catalog is read from catalog.path in .supportbot.yaml, or from the catalog
built into the binary when no path is configured.`,
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog questions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Catalog == nil {
			return fmt.Errorf("catalog not loaded")
		}
		out := cmd.OutOrStdout()

		var items []models.KnowledgeItem
		for _, item := range Catalog {
			if catalogCategory != "" && item.Category != catalogCategory {
				continue
			}
			items = append(items, item)
		}

		if catalogJSON {
			data, err := json.MarshalIndent(items, "", "  ")
			if err != nil {
				return fmt.Errorf("formatting catalog as JSON: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		if len(items) == 0 {
			fmt.Fprintln(out, "No catalog items found.")
			return nil
		}
		for i, item := range Catalog {
			if catalogCategory != "" && item.Category != catalogCategory {
				continue
			}
			fmt.Fprintf(out, "%3d  %-26s %s\n", i+1, item.Category, item.Question)
		}
		fmt.Fprintf(out, "\n%d item(s) from %s\n", len(items), catalogSource())
		return nil
	},
}

var catalogShowCmd = &cobra.Command{
	Use:   "show <number|question>",
	Short: "Show one catalog item",
	Long: `Show a catalog item by its number in 'catalog list' or by its question
(matched case-insensitively, ignoring punctuation and a trailing "?").`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Catalog == nil {
			return fmt.Errorf("catalog not loaded")
		}
		item, err := findCatalogItem(Catalog, args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if catalogJSON {
			data, err := json.MarshalIndent(item, "", "  ")
			if err != nil {
				return fmt.Errorf("formatting item as JSON: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		rich := core.ToRichText(item.Answer)
		fmt.Fprintf(out, "Q: %s\n", item.Question)
		if item.Category != "" {
			fmt.Fprintf(out, "Category: %s\n", item.Category)
		}
		if len(item.AlternativeQuestions) > 0 {
			fmt.Fprintf(out, "Also asked as:\n")
			for _, alt := range item.AlternativeQuestions {
				fmt.Fprintf(out, "  - %s\n", alt)
			}
		}
		fmt.Fprintf(out, "\n%s\n", rich.Plain())
		return nil
	},
}

var catalogValidateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Check a catalog for empty, duplicate, or unsafe entries",
	Long: `Validate the configured catalog, or the YAML catalog file given as an
argument. Exits with an error if any problem is found.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store := CatalogStore
		if len(args) == 1 {
			store = storage.NewCatalogStore(BasePath, args[0])
		}
		if store == nil {
			return fmt.Errorf("catalog store not initialized")
		}

		items, err := store.Load()
		if err != nil {
			return err
		}
		issues, err := core.ValidateCatalog(items)
		if err != nil {
			return fmt.Errorf("validating %s: %w", store.Source(), err)
		}

		out := cmd.OutOrStdout()
		if len(issues) == 0 {
			fmt.Fprintf(out, "%s: %d item(s), no problems found.\n", store.Source(), len(items))
			return nil
		}
		fmt.Fprintf(out, "%s: %d problem(s):\n", store.Source(), len(issues))
		for _, issue := range issues {
			fmt.Fprintf(out, "  %s\n", issue)
		}
		return fmt.Errorf("catalog %s has %d problem(s)", store.Source(), len(issues))
	},
}

// findCatalogItem resolves ref as a 1-based item number or a question.
func findCatalogItem(items []models.KnowledgeItem, ref string) (*models.KnowledgeItem, error) {
	if n, err := strconv.Atoi(strings.TrimSpace(ref)); err == nil {
		if n < 1 || n > len(items) {
			return nil, fmt.Errorf("item %d out of range (catalog has %d items)", n, len(items))
		}
		return &items[n-1], nil
	}
	want := questionKey(ref)
	for i := range items {
		if questionKey(items[i].Question) == want {
			return &items[i], nil
		}
		for _, alt := range items[i].AlternativeQuestions {
			if questionKey(alt) == want {
				return &items[i], nil
			}
		}
	}
	return nil, fmt.Errorf("no catalog item matches %q", ref)
}

func questionKey(q string) string {
	return strings.TrimRight(core.Normalize(q), "? ")
}

func catalogSource() string {
	if CatalogStore == nil {
		return storage.DefaultCatalogSource
	}
	return CatalogStore.Source()
}

func init() {
	catalogListCmd.Flags().StringVar(&catalogCategory, "category", "", "Only list items in this category")
	catalogListCmd.Flags().BoolVar(&catalogJSON, "json", false, "Output as JSON")
	catalogShowCmd.Flags().BoolVar(&catalogJSON, "json", false, "Output as JSON")

	catalogCmd.AddCommand(catalogListCmd)
	catalogCmd.AddCommand(catalogShowCmd)
	catalogCmd.AddCommand(catalogValidateCmd)
	rootCmd.AddCommand(catalogCmd)
}
