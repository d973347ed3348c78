package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Veraticus/spice-categorizer/internal/common"
	"github.com/Veraticus/spice-categorizer/internal/model"
)

const mappingColumns = `
	id, merchant_name, normalized_name, category_id, confidence, source,
	successful_mappings, failed_mappings, alternative_names, is_active, last_used_at, created_at`

// GetMerchantMapping returns the mapping for a normalized merchant name,
// active or not.
func (s *SQLiteStorage) GetMerchantMapping(ctx context.Context, normalizedName string) (*model.MerchantMapping, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(normalizedName, "normalizedName"); err != nil {
		return nil, err
	}
	return s.getMerchantMappingTx(ctx, s.db, normalizedName)
}

func (s *SQLiteStorage) getMerchantMappingTx(ctx context.Context, q queryable, normalizedName string) (*model.MerchantMapping, error) {
	row := q.QueryRowContext(ctx, `SELECT `+mappingColumns+` FROM merchant_mappings WHERE normalized_name = ?`, normalizedName)
	mapping, err := scanMapping(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: merchant %q", common.ErrNotFound, normalizedName)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get merchant mapping: %w", err)
	}
	return mapping, nil
}

// SaveMerchantMapping inserts or updates the mapping keyed by its normalized name.
func (s *SQLiteStorage) SaveMerchantMapping(ctx context.Context, mapping *model.MerchantMapping) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateMapping(mapping); err != nil {
		return err
	}
	return s.saveMerchantMappingTx(ctx, s.db, mapping)
}

func (s *SQLiteStorage) saveMerchantMappingTx(ctx context.Context, q queryable, mapping *model.MerchantMapping) error {
	alternatives, err := encodeStrings(mapping.AlternativeNames)
	if err != nil {
		return err
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO merchant_mappings (`+mappingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(normalized_name) DO UPDATE SET
			merchant_name = excluded.merchant_name,
			category_id = excluded.category_id,
			confidence = excluded.confidence,
			source = excluded.source,
			successful_mappings = excluded.successful_mappings,
			failed_mappings = excluded.failed_mappings,
			alternative_names = excluded.alternative_names,
			is_active = excluded.is_active,
			last_used_at = excluded.last_used_at
	`, mapping.ID, mapping.MerchantName, mapping.NormalizedName, mapping.CategoryID, mapping.Confidence,
		mapping.Source, mapping.SuccessfulMappings, mapping.FailedMappings, alternatives, mapping.IsActive,
		mapping.LastUsedAt, mapping.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save merchant mapping: %w", err)
	}
	return nil
}

// GetMerchantMappings returns all mappings ordered by normalized name.
func (s *SQLiteStorage) GetMerchantMappings(ctx context.Context) ([]model.MerchantMapping, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getMerchantMappingsTx(ctx, s.db)
}

func (s *SQLiteStorage) getMerchantMappingsTx(ctx context.Context, q queryable) ([]model.MerchantMapping, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+mappingColumns+` FROM merchant_mappings ORDER BY normalized_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query merchant mappings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var mappings []model.MerchantMapping
	for rows.Next() {
		mapping, err := scanMapping(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan merchant mapping: %w", err)
		}
		mappings = append(mappings, *mapping)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating merchant mappings: %w", err)
	}
	return mappings, nil
}

// DeactivateMerchantMapping hides a mapping from lookups without deleting it.
func (s *SQLiteStorage) DeactivateMerchantMapping(ctx context.Context, normalizedName string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(normalizedName, "normalizedName"); err != nil {
		return err
	}
	return s.deactivateMerchantMappingTx(ctx, s.db, normalizedName)
}

func (s *SQLiteStorage) deactivateMerchantMappingTx(ctx context.Context, q queryable, normalizedName string) error {
	result, err := q.ExecContext(ctx, `UPDATE merchant_mappings SET is_active = 0 WHERE normalized_name = ?`, normalizedName)
	if err != nil {
		return fmt.Errorf("failed to deactivate merchant mapping: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: merchant %q", common.ErrNotFound, normalizedName)
	}
	return nil
}

func scanMapping(row rowScanner) (*model.MerchantMapping, error) {
	var (
		mapping      model.MerchantMapping
		alternatives string
		lastUsedAt   sql.NullTime
		createdAt    sql.NullTime
	)

	if err := row.Scan(&mapping.ID, &mapping.MerchantName, &mapping.NormalizedName, &mapping.CategoryID,
		&mapping.Confidence, &mapping.Source, &mapping.SuccessfulMappings, &mapping.FailedMappings,
		&alternatives, &mapping.IsActive, &lastUsedAt, &createdAt); err != nil {
		return nil, err
	}

	var err error
	if mapping.AlternativeNames, err = decodeStrings(alternatives); err != nil {
		return nil, fmt.Errorf("merchant %q alternative names: %w", mapping.NormalizedName, err)
	}
	if lastUsedAt.Valid {
		mapping.LastUsedAt = lastUsedAt.Time
	}
	if createdAt.Valid {
		mapping.CreatedAt = createdAt.Time
	}
	return &mapping, nil
}
