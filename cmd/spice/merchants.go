package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/spice-categorizer/internal/cli"
)

func merchantsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merchants",
		Short: "Inspect learned merchant mappings",
		Long:  `Merchant mappings are learned from manual categorizations and rejected suggestions.`,
	}

	cmd.AddCommand(listMerchantsCmd())
	cmd.AddCommand(forgetMerchantCmd())

	return cmd
}

func listMerchantsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List learned merchants",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			mappings, err := a.storage.GetMerchantMappings(ctx)
			if err != nil {
				return err
			}
			cat, err := loadCatalog(ctx, a.storage)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(mappings) == 0 {
				fmt.Fprintln(out, cli.InfoStyle.Render("Nothing learned yet. Categorize a transaction with 'spice assign'."))
				return nil
			}

			table := cli.NewTable("Merchant", "Category", "Confidence", "Accepted", "Rejected", "Also seen as")
			for _, m := range mappings {
				name := m.MerchantName
				if !m.IsActive {
					name = cli.SubtleStyle.Render(name + " (forgotten)")
				}
				table.Row(
					name,
					cat.Path(m.CategoryID),
					cli.FormatConfidence(m.Confidence, a.cfg.Categorization.AutoApplyThreshold),
					m.SuccessfulMappings,
					m.FailedMappings,
					strings.Join(m.AlternativeNames, ", "))
			}
			fmt.Fprintln(out, table)
			return nil
		},
	}
}

func forgetMerchantCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "forget <merchant>",
		Aliases: []string{"deactivate"},
		Short:   "Stop using a learned merchant mapping",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.learning.Deactivate(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Forgot merchant %q", args[0])))
			return nil
		},
	}
}
