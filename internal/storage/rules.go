package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Veraticus/spice-categorizer/internal/common"
	"github.com/Veraticus/spice-categorizer/internal/model"
)

// CreateRule stores a new active rule and sets its ID and timestamps.
func (s *SQLiteStorage) CreateRule(ctx context.Context, rule *model.CategorizationRule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRule(rule); err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return s.createRuleTx(ctx, tx, rule)
	})
}

func (s *SQLiteStorage) createRuleTx(ctx context.Context, q queryable, rule *model.CategorizationRule) error {
	if _, err := s.getCategoryByIDTx(ctx, q, rule.CategoryID); err != nil {
		return fmt.Errorf("rule %q: %w", rule.Name, err)
	}

	conditions, err := model.EncodeConditions(rule.Conditions)
	if err != nil {
		return err
	}

	now := time.Now()
	result, err := q.ExecContext(ctx, `
		INSERT INTO categorization_rules (name, conditions, category_id, priority, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, 1, ?, ?)
	`, rule.Name, string(conditions), rule.CategoryID, rule.Priority, now, now)
	if err != nil {
		return fmt.Errorf("failed to create rule: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get rule ID: %w", err)
	}

	rule.ID = int(id)
	rule.IsActive = true
	rule.CreatedAt = now
	rule.UpdatedAt = now
	return nil
}

// GetRules returns every rule, including deactivated ones, in creation order.
func (s *SQLiteStorage) GetRules(ctx context.Context) ([]model.CategorizationRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getRulesTx(ctx, s.db, false)
}

// GetActiveRules returns active rules in creation order.
func (s *SQLiteStorage) GetActiveRules(ctx context.Context) ([]model.CategorizationRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getRulesTx(ctx, s.db, true)
}

func (s *SQLiteStorage) getRulesTx(ctx context.Context, q queryable, activeOnly bool) ([]model.CategorizationRule, error) {
	query := `
		SELECT id, name, conditions, category_id, priority, is_active, created_at, updated_at
		FROM categorization_rules`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY id`

	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rules []model.CategorizationRule
	for rows.Next() {
		var (
			rule       model.CategorizationRule
			conditions string
		)
		if err := rows.Scan(&rule.ID, &rule.Name, &conditions, &rule.CategoryID, &rule.Priority,
			&rule.IsActive, &rule.CreatedAt, &rule.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		// Malformed conditions decode to InvalidCondition and are skipped at evaluation.
		rule.Conditions = model.DecodeConditions([]byte(conditions))
		rules = append(rules, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}
	return rules, nil
}

// DeactivateRule stops a rule from being applied. Rules are never deleted.
func (s *SQLiteStorage) DeactivateRule(ctx context.Context, id int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return s.deactivateRuleTx(ctx, s.db, id)
}

func (s *SQLiteStorage) deactivateRuleTx(ctx context.Context, q queryable, id int) error {
	result, err := q.ExecContext(ctx, `
		UPDATE categorization_rules SET is_active = 0, updated_at = ? WHERE id = ?
	`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to deactivate rule: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %d", common.ErrRuleNotFound, id)
	}
	return nil
}
