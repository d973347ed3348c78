// Package rules evaluates user-defined categorization rules against transactions.
package rules

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/spice-categorizer/internal/common"
	"github.com/Veraticus/spice-categorizer/internal/model"
)

// BaseConfidence is added to a rule's priority to give its match confidence.
const BaseConfidence = 80

// CategoryLookup resolves category ids against the current snapshot.
type CategoryLookup interface {
	Get(id int) (model.Category, bool)
}

// SkippedRule is a rule that cannot be applied, with the reason why.
type SkippedRule struct {
	Err  error
	Rule model.CategorizationRule
}

// Engine evaluates a fixed set of rules. It is safe for concurrent use.
type Engine struct {
	rules   []boundRule
	skipped []SkippedRule
}

type boundRule struct {
	category model.Category
	rule     model.CategorizationRule
}

// NewEngine prepares the active rules for evaluation. Rules are kept in
// creation order. Rules that can never be applied are logged and skipped.
func NewEngine(rules []model.CategorizationRule, categories CategoryLookup) *Engine {
	ordered := make([]model.CategorizationRule, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ID < ordered[j].ID
	})

	e := &Engine{}
	for _, rule := range ordered {
		if !rule.IsActive {
			continue
		}

		if err := Validate(rule); err != nil {
			e.skip(rule, err)
			continue
		}

		category, ok := categories.Get(rule.CategoryID)
		if !ok {
			e.skip(rule, fmt.Errorf("%w: rule targets category %d", common.ErrCategoryNotFound, rule.CategoryID))
			continue
		}

		e.rules = append(e.rules, boundRule{rule: rule, category: category})
	}

	return e
}

func (e *Engine) skip(rule model.CategorizationRule, err error) {
	slog.Warn("Skipping categorization rule",
		"rule_id", rule.ID,
		"rule", rule.Name,
		"error", err)
	e.skipped = append(e.skipped, SkippedRule{Rule: rule, Err: err})
}

// Skipped returns the rules left out of evaluation.
func (e *Engine) Skipped() []SkippedRule {
	return e.skipped
}

// Validate reports why a rule could never match.
func Validate(rule model.CategorizationRule) error {
	if len(rule.Conditions) == 0 {
		return fmt.Errorf("%w: rule %q has no conditions", common.ErrInvalidRule, rule.Name)
	}

	var errs []error
	for i, cond := range rule.Conditions {
		if cond == nil {
			errs = append(errs, fmt.Errorf("%w: condition %d of rule %q is empty", common.ErrInvalidRule, i, rule.Name))
			continue
		}
		if invalid, ok := cond.(model.InvalidCondition); ok {
			errs = append(errs, fmt.Errorf("%w: condition %d of rule %q: %s", common.ErrInvalidRule, i, rule.Name, invalid.Reason))
		}
	}
	return errors.Join(errs...)
}

// Evaluate returns one match per rule whose conditions all hold.
func (e *Engine) Evaluate(ctx context.Context, txn model.Transaction) (model.CategoryMatches, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var matches model.CategoryMatches
	for _, bound := range e.rules {
		if !Matches(bound.rule, txn) {
			continue
		}

		confidence := model.ClampConfidence(BaseConfidence + bound.rule.Priority)
		matches = append(matches, model.CategoryMatch{
			Category:   bound.category,
			Confidence: confidence,
			Source:     model.ReasonRuleBased,
			Reasons: []model.MatchReason{{
				Type:       model.ReasonRuleBased,
				Evidence:   bound.rule.Name,
				Confidence: confidence,
			}},
		})
	}

	return matches, nil
}

// Matches reports whether every condition of the rule holds for txn.
func Matches(rule model.CategorizationRule, txn model.Transaction) bool {
	if len(rule.Conditions) == 0 {
		return false
	}
	for _, cond := range rule.Conditions {
		if !conditionHolds(cond, txn) {
			return false
		}
	}
	return true
}

func conditionHolds(cond model.RuleCondition, txn model.Transaction) bool {
	switch c := cond.(type) {
	case model.DescriptionContains:
		return common.ContainsFold(txn.Description, c.Text)
	case model.MerchantEquals:
		want := common.NormalizeName(c.Text)
		return want != "" && common.NormalizeName(txn.MerchantName) == want
	case model.MerchantContains:
		return common.ContainsFold(txn.MerchantName, c.Text)
	case model.AmountGreaterThan:
		value, ok := parseAmount(c.Amount)
		return ok && txn.Amount.Abs().GreaterThan(value)
	case model.AmountLessThan:
		value, ok := parseAmount(c.Amount)
		return ok && txn.Amount.Abs().LessThan(value)
	case model.AmountEquals:
		value, ok := parseAmount(c.Amount)
		return ok && txn.Amount.Abs().Equal(value)
	case model.InvalidCondition:
		return false
	}
	return false
}

// parseAmount parses a condition amount. Missing or non-numeric values fail the condition.
func parseAmount(raw string) (decimal.Decimal, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, false
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false
	}
	return value, true
}
