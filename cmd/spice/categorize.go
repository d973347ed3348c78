package main

import (
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/Veraticus/spice-categorizer/internal/cli"
	"github.com/Veraticus/spice-categorizer/internal/engine"
)

func categorizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categorize <transaction-id>",
		Short: "Categorize one transaction",
		Long: `Rank every candidate category for a transaction. The best candidate is
applied when it reaches the auto-apply threshold and recorded as a
suggestion otherwise. Transactions that already have a category keep it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			decision, err := a.categorizer.CategorizeByID(ctx, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if decision == nil {
				fmt.Fprintln(out, cli.FormatWarning("No category matched"))
				return nil
			}

			cat, err := loadCatalog(ctx, a.storage)
			if err != nil {
				return err
			}
			printMatches(out, decision.Matches, cat, a.cfg.Categorization.AutoApplyThreshold)

			top := cat.Path(decision.Match.Category.ID)
			switch decision.Outcome {
			case engine.OutcomeCommitted:
				fmt.Fprintln(out, cli.FormatSuccess("Categorized as "+top))
			case engine.OutcomeSuggested:
				fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("Suggested %s. Confirm with: spice assign %s %d", top, args[0], decision.Match.Category.ID)))
			case engine.OutcomeKept:
				fmt.Fprintln(out, cli.FormatInfo("Kept the existing category"))
			}
			return nil
		},
	}
}

func suggestCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "suggest <transaction-id>",
		Short: "Show ranked candidates without changing anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			txn, err := a.storage.GetTransactionByID(ctx, args[0])
			if err != nil {
				return err
			}
			matches, err := a.categorizer.Suggest(ctx, *txn, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(matches) == 0 {
				fmt.Fprintln(out, cli.FormatWarning("No category matched"))
				return nil
			}

			cat, err := loadCatalog(ctx, a.storage)
			if err != nil {
				return err
			}
			printMatches(out, matches, cat, a.cfg.Categorization.AutoApplyThreshold)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "number of candidates (default from config)")
	return cmd
}

func assignCmd() *cobra.Command {
	var (
		subcategory string
		confidence  int
	)

	cmd := &cobra.Command{
		Use:   "assign <transaction-id> <category>",
		Short: "Set a transaction's category and learn from it",
		Long: `Commit a category chosen by you. The transaction's merchant is remembered
so future transactions from it are categorized the same way.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			category, err := resolveCategory(ctx, a.storage, args[1])
			if err != nil {
				return err
			}
			outcome, err := a.categorizer.ManualCategorize(ctx, args[0], category.ID, subcategory, confidence)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Assigned %s to %s (merchant %s)", args[0], category.Name, outcome)))
			return nil
		},
	}

	cmd.Flags().StringVar(&subcategory, "subcategory", "", "free-form subcategory label")
	cmd.Flags().IntVar(&confidence, "confidence", engine.ManualConfidence, "confidence to record")
	return cmd
}

func rejectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reject <transaction-id> <category>",
		Short: "Mark a suggested category as wrong",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			category, err := resolveCategory(ctx, a.storage, args[1])
			if err != nil {
				return err
			}
			outcome, err := a.categorizer.RejectSuggestion(ctx, args[0], category.ID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Rejected %s for %s (merchant %s)", category.Name, args[0], outcome)))
			return nil
		},
	}
}

func bulkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bulk <category> <transaction-id>...",
		Short: "Assign one category to many transactions",
		Long:  `Assign a category to every listed transaction, or to none if any id is unknown. Bulk assignments are not learned.`,
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
			count, err := a.categorizer.BulkCategorize(ctx, args[1:], category.ID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Assigned %s to %d transactions", category.Name, count)))
			return nil
		},
	}
}

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Categorize every uncategorized transaction",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			return runSweep(cmd, a)
		},
	}
}

func runSweep(cmd *cobra.Command, a *app) error {
	handler := cli.NewInterruptHandler(cmd.ErrOrStderr())
	ctx, stop := handler.HandleInterrupts(cmd.Context(), "Applied categories are saved. Run 'spice sweep' again to continue.")
	defer stop()

	var bar *progressbar.ProgressBar
	sweeper := engine.NewWithConfig(a.storage, a.learning, engine.Config{
		AutoApplyThreshold: a.cfg.Categorization.AutoApplyThreshold,
		SuggestionLimit:    a.cfg.Categorization.SuggestionLimit,
		Workers:            a.cfg.Sweep.Workers,
		SeedKeywords:       a.cfg.Learning.SeedKeywords,
		Progress: func(done, total int) {
			if bar == nil {
				bar = progressbar.NewOptions(total,
					progressbar.OptionSetWriter(os.Stderr),
					progressbar.OptionSetDescription("Categorizing"),
					progressbar.OptionShowCount(),
					progressbar.OptionClearOnFinish())
			}
			_ = bar.Set(done)
		},
	})
	if a.metrics != nil {
		sweeper.SetRecorder(a.metrics)
	}

	summary, err := sweeper.AutoCategorizeUncategorized(ctx)
	if bar != nil {
		_ = bar.Finish()
	}
	if summary != nil {
		fmt.Fprintln(cmd.OutOrStdout(), cli.RenderBox("Sweep summary", formatSummary(summary)))
	}
	if err != nil && handler.WasInterrupted() {
		return nil
	}
	return err
}

func formatSummary(s *engine.SweepSummary) string {
	return fmt.Sprintf("Transactions: %d\nCommitted:    %d\nSuggested:    %d\nNo match:     %d\nKept:         %d\nFailed:       %d\nTime:         %s",
		s.TotalTransactions, s.Committed, s.Suggested, s.NoMatch, s.Kept, s.Failed, s.ProcessingTime.Round(time.Millisecond))
}
