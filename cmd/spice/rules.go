package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/spice-categorizer/internal/cli"
	"github.com/Veraticus/spice-categorizer/internal/model"
	"github.com/Veraticus/spice-categorizer/internal/rules"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage categorization rules",
		Long: `Rules assign a category when every one of their conditions holds.
A matching rule proposes its category with confidence 80 plus its priority.

Conditions are written as kind=value:
  description_contains=SALIK
  merchant_equals=Careem
  merchant_contains=ADNOC
  amount_greater_than=500
  amount_less_than=20
  amount_equals=49.99

Amounts are compared against the absolute transaction amount.`,
	}

	cmd.AddCommand(addRuleCmd())
	cmd.AddCommand(listRulesCmd())
	cmd.AddCommand(deactivateRuleCmd())

	return cmd
}

func addRuleCmd() *cobra.Command {
	var (
		category   string
		conditions []string
		priority   int
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a rule",
		Example: `  spice rules add "ADNOC is fuel" --category Fuel --when merchant_contains=ADNOC --priority 10
  spice rules add "Big Noon orders" --category Shopping --when merchant_contains=noon --when amount_greater_than=500`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			rule := model.CategorizationRule{
				Name:     args[0],
				Priority: priority,
				IsActive: true,
			}
			for _, raw := range conditions {
				cond, err := parseCondition(raw)
				if err != nil {
					return err
				}
				rule.Conditions = append(rule.Conditions, cond)
			}
			if err := rules.Validate(rule); err != nil {
				return err
			}

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			target, err := resolveCategory(ctx, a.storage, category)
			if err != nil {
				return err
			}
			rule.CategoryID = target.ID

			if err := a.storage.CreateRule(ctx, &rule); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf(
				"Created rule %d: %s -> %s (confidence %d)",
				rule.ID, rule.Name, target.Name, model.ClampConfidence(rules.BaseConfidence+rule.Priority))))
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "target category id or name")
	cmd.Flags().StringArrayVar(&conditions, "when", nil, "condition as kind=value (repeatable)")
	cmd.Flags().IntVar(&priority, "priority", 0, "added to the base confidence of 80")
	_ = cmd.MarkFlagRequired("category")
	_ = cmd.MarkFlagRequired("when")
	return cmd
}

func listRulesCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List rules in evaluation order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			var list []model.CategorizationRule
			if all {
				list, err = a.storage.GetRules(ctx)
			} else {
				list, err = a.storage.GetActiveRules(ctx)
			}
			if err != nil {
				return err
			}
			cat, err := loadCatalog(ctx, a.storage)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, cli.InfoStyle.Render("No rules found. Use 'spice rules add' to create one."))
				return nil
			}

			engine := rules.NewEngine(list, cat)
			broken := make(map[int]error)
			for _, skipped := range engine.Skipped() {
				broken[skipped.Rule.ID] = skipped.Err
			}

			table := cli.NewTable("ID", "Name", "Category", "Priority", "Conditions", "State")
			for _, rule := range list {
				conds := make([]string, 0, len(rule.Conditions))
				for _, cond := range rule.Conditions {
					conds = append(conds, describeCondition(cond))
				}

				state := cli.SuccessStyle.Render("active")
				switch {
				case !rule.IsActive:
					state = cli.SubtleStyle.Render("inactive")
				case broken[rule.ID] != nil:
					state = cli.ErrorStyle.Render("skipped: " + broken[rule.ID].Error())
				}

				table.Row(rule.ID, rule.Name, cat.Path(rule.CategoryID), rule.Priority, strings.Join(conds, " AND "), state)
			}
			fmt.Fprintln(out, table)
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "include inactive rules")
	return cmd
}

func deactivateRuleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate <id>",
		Short: "Stop a rule from matching",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid rule id %q", args[0])
			}

			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.storage.DeactivateRule(ctx, id); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Deactivated rule %d", id)))
			return nil
		},
	}
}
