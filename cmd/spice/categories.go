package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/spice-categorizer/internal/catalog"
	"github.com/Veraticus/spice-categorizer/internal/cli"
	"github.com/Veraticus/spice-categorizer/internal/model"
)

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Manage categories",
		Long:  `List, seed, and edit the category hierarchy and the keywords and merchant patterns attached to each category.`,
	}

	cmd.AddCommand(listCategoriesCmd())
	cmd.AddCommand(seedCategoriesCmd())
	cmd.AddCommand(importCategoriesCmd())
	cmd.AddCommand(addCategoryCmd())
	cmd.AddCommand(moveCategoryCmd())
	cmd.AddCommand(addKeywordsCmd())

	return cmd
}

func listCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the category tree",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			cat, err := loadCatalog(ctx, a.storage)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if cat.Len() == 0 {
				fmt.Fprintln(out, cli.InfoStyle.Render("No categories found. Use 'spice categories seed' to load the defaults."))
				return nil
			}

			table := cli.NewTable("ID", "Category", "Type", "Keywords", "Merchant patterns")
			for _, root := range cat.Tree() {
				root.Walk(func(node *model.CategoryTreeNode) {
					c := node.Category
					table.Row(
						c.ID,
						strings.Repeat("  ", c.Level)+c.Name,
						c.Type,
						strings.Join(c.Keywords, ", "),
						strings.Join(c.MerchantPatterns, ", "))
				})
			}
			fmt.Fprintln(out, table)
			return nil
		},
	}
}

func seedCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the built-in default categories",
		Long:  `Create any built-in category that does not exist yet. Existing categories are left alone.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return seedCategories(cmd, catalog.DefaultCategories())
		},
	}
}

func importCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.toml>",
		Short: "Load categories from a TOML seed file",
		Long: `Create any missing categories from a TOML seed file. Existing categories are left alone.

A seed file lists categories as TOML tables:

  [[category]]
  name = "Groceries"
  parent = "Food"
  keywords = ["carrefour", "lulu"]
  merchant_patterns = ["spinneys"]`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seeds, err := catalog.LoadSeedFile(args[0])
			if err != nil {
				return err
			}
			return seedCategories(cmd, seeds)
		},
	}
}

func seedCategories(cmd *cobra.Command, seeds []catalog.Seed) error {
	if err := catalog.ValidateSeeds(seeds); err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	created, err := a.storage.SeedCategories(ctx, seeds)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Created %d of %d categories", created, len(seeds))))
	return nil
}

func addCategoryCmd() *cobra.Command {
	var (
		parent    string
		catType   string
		keywords  []string
		patterns  []string
		sortOrder int
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			category := &model.Category{
				Name:             args[0],
				Type:             model.CategoryType(strings.ToLower(catType)),
				Keywords:         keywords,
				MerchantPatterns: patterns,
				SortOrder:        sortOrder,
				IsActive:         true,
			}
			if parent != "" {
				p, err := resolveCategory(ctx, a.storage, parent)
				if err != nil {
					return err
				}
				category.ParentID = &p.ID
			}

			if err := a.storage.CreateCategory(ctx, category); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Created category %q (id %d)", category.Name, category.ID)))
			return nil
		},
	}

	cmd.Flags().StringVar(&parent, "parent", "", "parent category id or name")
	cmd.Flags().StringVar(&catType, "type", string(model.CategoryTypeExpense), "category type (income, expense)")
	cmd.Flags().StringSliceVar(&keywords, "keywords", nil, "comma separated keywords")
	cmd.Flags().StringSliceVar(&patterns, "patterns", nil, "comma separated merchant patterns")
	cmd.Flags().IntVar(&sortOrder, "sort-order", 0, "position among siblings")
	return cmd
}

func moveCategoryCmd() *cobra.Command {
	var parent string

	cmd := &cobra.Command{
		Use:   "move <category>",
		Short: "Change a category's parent",
		Long:  `Move a category under a new parent, or to the top level when --parent is omitted. Moves that would create a cycle are refused.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			category, err := resolveCategory(ctx, a.storage, args[0])
			if err != nil {
				return err
			}
			var parentID *int
			if parent != "" {
				p, err := resolveCategory(ctx, a.storage, parent)
				if err != nil {
					return err
				}
				parentID = &p.ID
			}

			if err := a.storage.SetCategoryParent(ctx, category.ID, parentID); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Moved %q", category.Name)))
			return nil
		},
	}

	cmd.Flags().StringVar(&parent, "parent", "", "new parent category id or name")
	return cmd
}

func addKeywordsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keywords <category> <keyword>...",
		Short: "Add keywords to a category",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			category, err := resolveCategory(ctx, a.storage, args[0])
			if err != nil {
				return err
			}
			if err := a.storage.AddCategoryKeywords(ctx, category.ID, args[1:]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Updated keywords for %q", category.Name)))
			return nil
		},
	}
}
