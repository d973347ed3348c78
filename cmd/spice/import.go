package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Veraticus/spice-categorizer/internal/cli"
	"github.com/Veraticus/spice-categorizer/internal/model"
	"github.com/Veraticus/spice-categorizer/internal/ofx"
)

func importCmd() *cobra.Command {
	var (
		dryRun     bool
		categorize bool
	)

	cmd := &cobra.Command{
		Use:   "import [files...]",
		Short: "Import transactions from OFX/QFX files",
		Long: `Import transactions from OFX or QFX files exported from your bank.
Transactions already in the database are skipped.`,
		Example: `  spice import ~/Downloads/enbd_jan_2025.qfx
  spice import ~/Downloads/*.ofx --categorize`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			files, err := expandFiles(args)
			if err != nil {
				return err
			}

			parser := ofx.NewParser()
			var transactions []model.Transaction
			for _, path := range files {
				f, err := os.Open(path)
				if err != nil {
					return fmt.Errorf("failed to open %s: %w", path, err)
				}
				stmt, err := parser.Parse(ctx, f)
				_ = f.Close()
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				slog.Info("Read statement", "file", path, "accounts", stmt.Accounts, "transactions", len(stmt.Transactions))
				transactions = append(transactions, stmt.Transactions...)
			}

			if dryRun {
				fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("Dry run: %d transactions in %d files", len(transactions), len(files))))
				return nil
			}
			if len(transactions) == 0 {
				fmt.Fprintln(out, cli.FormatWarning("No transactions found"))
				return nil
			}

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			inserted, err := a.storage.SaveTransactions(ctx, transactions)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Imported %d new transactions (%d already present)",
				inserted, len(transactions)-inserted)))

			if categorize {
				return runSweep(cmd, a)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&dryRun, "dry-run", "d", false, "parse files without saving")
	cmd.Flags().BoolVar(&categorize, "categorize", false, "categorize uncategorized transactions after importing")
	return cmd
}

func expandFiles(patterns []string) ([]string, error) {
	var files []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if len(matches) == 0 {
			if _, err := os.Stat(pattern); err != nil {
				slog.Warn("No files found matching pattern", "pattern", pattern)
				continue
			}
			matches = []string{pattern}
		}
		files = append(files, matches...)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no files found to import")
	}
	return files, nil
}
