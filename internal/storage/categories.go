package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/spice-categorizer/internal/catalog"
	"github.com/Veraticus/spice-categorizer/internal/common"
	"github.com/Veraticus/spice-categorizer/internal/model"
)

const categoryColumns = `id, name, type, parent_id, keywords, merchant_patterns, sort_order, is_active, created_at`

// GetCategories returns all active categories ordered for display.
func (s *SQLiteStorage) GetCategories(ctx context.Context) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getCategoriesTx(ctx, s.db)
}

func (s *SQLiteStorage) getCategoriesTx(ctx context.Context, q queryable) ([]model.Category, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+categoryColumns+`
		FROM categories
		WHERE is_active = 1
		ORDER BY sort_order, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []model.Category
	for rows.Next() {
		cat, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, *cat)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	slog.Debug("retrieved categories", "count", len(categories))
	return categories, nil
}

// GetCategoryByID returns an active category by its id.
func (s *SQLiteStorage) GetCategoryByID(ctx context.Context, id int) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getCategoryByIDTx(ctx, s.db, id)
}

func (s *SQLiteStorage) getCategoryByIDTx(ctx context.Context, q queryable, id int) (*model.Category, error) {
	row := q.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = ? AND is_active = 1`, id)
	cat, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", common.ErrCategoryNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return cat, nil
}

// GetCategoryByName returns an active category by its name, ignoring case.
func (s *SQLiteStorage) GetCategoryByName(ctx context.Context, name string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}
	return s.getCategoryByNameTx(ctx, s.db, name)
}

func (s *SQLiteStorage) getCategoryByNameTx(ctx context.Context, q queryable, name string) (*model.Category, error) {
	row := q.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE name = ? AND is_active = 1`, strings.TrimSpace(name))
	cat, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", common.ErrCategoryNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return cat, nil
}

// CreateCategory inserts a category and sets its ID and CreatedAt.
func (s *SQLiteStorage) CreateCategory(ctx context.Context, category *model.Category) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCategory(category); err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return s.createCategoryTx(ctx, tx, category)
	})
}

func (s *SQLiteStorage) createCategoryTx(ctx context.Context, q queryable, category *model.Category) error {
	if category.ParentID != nil {
		if _, err := s.getCategoryByIDTx(ctx, q, *category.ParentID); err != nil {
			return fmt.Errorf("parent of %q: %w", category.Name, err)
		}
	}

	keywords, err := encodeStrings(category.Keywords)
	if err != nil {
		return err
	}
	patterns, err := encodeStrings(category.MerchantPatterns)
	if err != nil {
		return err
	}

	now := time.Now()
	result, err := q.ExecContext(ctx, `
		INSERT INTO categories (name, type, parent_id, keywords, merchant_patterns, sort_order, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, 1, ?)
	`, strings.TrimSpace(category.Name), category.Type, category.ParentID, keywords, patterns, category.SortOrder, now)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: category %q", common.ErrDuplicateEntry, category.Name)
	}
	if err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get category ID: %w", err)
	}

	category.ID = int(id)
	category.Name = strings.TrimSpace(category.Name)
	category.CreatedAt = now
	category.IsActive = true
	return nil
}

// SetCategoryParent moves a category under parentID, or to the root when
// parentID is nil. Moves that would create a cycle are rejected.
func (s *SQLiteStorage) SetCategoryParent(ctx context.Context, id int, parentID *int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return s.setCategoryParentTx(ctx, tx, id, parentID)
	})
}

func (s *SQLiteStorage) setCategoryParentTx(ctx context.Context, q queryable, id int, parentID *int) error {
	if _, err := s.getCategoryByIDTx(ctx, q, id); err != nil {
		return err
	}

	if parentID != nil {
		if _, err := s.getCategoryByIDTx(ctx, q, *parentID); err != nil {
			return fmt.Errorf("parent: %w", err)
		}
		all, err := s.getCategoriesTx(ctx, q)
		if err != nil {
			return err
		}
		if catalog.WouldCreateCycle(all, id, *parentID) {
			return fmt.Errorf("%w: moving %d under %d", common.ErrCyclicHierarchy, id, *parentID)
		}
	}

	if _, err := q.ExecContext(ctx, `UPDATE categories SET parent_id = ? WHERE id = ?`, parentID, id); err != nil {
		return fmt.Errorf("failed to set category parent: %w", err)
	}
	return nil
}

// AddCategoryKeywords merges keywords into a category's keyword list,
// ignoring ones already present in any case.
func (s *SQLiteStorage) AddCategoryKeywords(ctx context.Context, id int, keywords []string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return s.addCategoryKeywordsTx(ctx, tx, id, keywords)
	})
}

func (s *SQLiteStorage) addCategoryKeywordsTx(ctx context.Context, q queryable, id int, keywords []string) error {
	category, err := s.getCategoryByIDTx(ctx, q, id)
	if err != nil {
		return err
	}

	seen := make(map[string]bool, len(category.Keywords))
	for _, kw := range category.Keywords {
		seen[common.Fold(kw)] = true
	}

	merged := category.Keywords
	added := 0
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" || seen[common.Fold(kw)] {
			continue
		}
		seen[common.Fold(kw)] = true
		merged = append(merged, kw)
		added++
	}
	if added == 0 {
		return nil
	}

	encoded, err := encodeStrings(merged)
	if err != nil {
		return err
	}
	if _, err := q.ExecContext(ctx, `UPDATE categories SET keywords = ? WHERE id = ?`, encoded, id); err != nil {
		return fmt.Errorf("failed to update category keywords: %w", err)
	}

	slog.Debug("Added category keywords", "category_id", id, "added", added)
	return nil
}

func scanCategory(row rowScanner) (*model.Category, error) {
	var (
		cat      model.Category
		parentID sql.NullInt64
		keywords string
		patterns string
	)

	if err := row.Scan(&cat.ID, &cat.Name, &cat.Type, &parentID, &keywords, &patterns,
		&cat.SortOrder, &cat.IsActive, &cat.CreatedAt); err != nil {
		return nil, err
	}

	if parentID.Valid {
		id := int(parentID.Int64)
		cat.ParentID = &id
	}

	var err error
	if cat.Keywords, err = decodeStrings(keywords); err != nil {
		return nil, fmt.Errorf("category %d keywords: %w", cat.ID, err)
	}
	if cat.MerchantPatterns, err = decodeStrings(patterns); err != nil {
		return nil, fmt.Errorf("category %d merchant patterns: %w", cat.ID, err)
	}
	return &cat, nil
}
