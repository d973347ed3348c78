package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/spice-categorizer/internal/cli"
	"github.com/Veraticus/spice-categorizer/internal/model"
	"github.com/Veraticus/spice-categorizer/internal/service"
)

func transactionsCmd() *cobra.Command {
	var (
		status string
		limit  int
	)

	cmd := &cobra.Command{
		Use:     "transactions",
		Aliases: []string{"txns"},
		Short:   "List stored transactions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			txns, err := a.storage.GetTransactions(ctx, service.TransactionFilter{
				Status: model.CategorizationStatus(strings.ToUpper(status)),
				Limit:  limit,
			})
			if err != nil {
				return err
			}
			cat, err := loadCatalog(ctx, a.storage)
			if err != nil {
				return err
			}

			table := cli.NewTable("ID", "Date", "Amount", "Description", "Merchant", "Status", "Category")
			for _, txn := range txns {
				category := ""
				switch {
				case txn.CategoryID != nil:
					category = cat.Path(*txn.CategoryID)
				case txn.SuggestedCategoryID != nil:
					category = cli.SubtleStyle.Render(cat.Path(*txn.SuggestedCategoryID) + "?")
				}
				table.Row(
					txn.ID,
					txn.Date.Format("2006-01-02"),
					txn.Amount.StringFixed(2),
					txn.Description,
					txn.MerchantName,
					txn.Status,
					category)
			}
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "filter by status (uncategorized, suggested, categorized)")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum rows")
	return cmd
}
