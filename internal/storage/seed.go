package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Veraticus/spice-categorizer/internal/catalog"
	"github.com/Veraticus/spice-categorizer/internal/common"
	"github.com/Veraticus/spice-categorizer/internal/model"
)

// SeedCategories creates the seeds that do not exist yet, resolving parents
// by name. Existing categories are left untouched, so seeding is repeatable.
// It returns the number of categories created.
func (s *SQLiteStorage) SeedCategories(ctx context.Context, seeds []catalog.Seed) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := catalog.ValidateSeeds(seeds); err != nil {
		return 0, err
	}

	created := 0
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		created = 0
		for _, seed := range seeds {
			existing, err := s.getCategoryByNameTx(ctx, tx, seed.Name)
			if err == nil && existing != nil {
				slog.Debug("Category already exists, skipping seed", "name", seed.Name)
				continue
			}
			if !errors.Is(err, common.ErrCategoryNotFound) {
				return err
			}

			category := model.Category{
				Name:             seed.Name,
				Type:             seed.Type,
				Keywords:         seed.Keywords,
				MerchantPatterns: seed.MerchantPatterns,
				SortOrder:        seed.SortOrder,
			}
			if seed.Parent != "" {
				parent, err := s.getCategoryByNameTx(ctx, tx, seed.Parent)
				if err != nil {
					return fmt.Errorf("seed %q: parent %q: %w", seed.Name, seed.Parent, err)
				}
				category.ParentID = &parent.ID
			}

			if err := s.createCategoryTx(ctx, tx, &category); err != nil {
				return fmt.Errorf("seed %q: %w", seed.Name, err)
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	slog.Info("Seeded categories", "created", created, "total", len(seeds))
	return created, nil
}
