package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/spice-categorizer/internal/common"
	"github.com/Veraticus/spice-categorizer/internal/model"
	"github.com/Veraticus/spice-categorizer/internal/service"
)

const transactionColumns = `
	id, hash, date, description, merchant_name, amount, account_id,
	status, category_id, category_name, subcategory_name, suggested_category_id,
	categorized_by, confidence, categorized_at`

// SaveTransactions stores new transactions. Transactions whose id or hash
// already exists are skipped. It returns the number inserted.
func (s *SQLiteStorage) SaveTransactions(ctx context.Context, transactions []model.Transaction) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateTransactions(transactions); err != nil {
		return 0, err
	}

	var inserted int
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var txErr error
		inserted, txErr = s.saveTransactionsTx(ctx, tx, transactions)
		return txErr
	})
	return inserted, err
}

func (s *SQLiteStorage) saveTransactionsTx(ctx context.Context, q queryable, transactions []model.Transaction) (int, error) {
	inserted := 0
	for _, txn := range transactions {
		if txn.Hash == "" {
			txn.Hash = txn.GenerateHash()
		}
		status := txn.Status
		if status == "" {
			status = model.StatusUncategorized
		}

		result, err := q.ExecContext(ctx, `
			INSERT OR IGNORE INTO transactions (
				id, hash, date, description, merchant_name, amount, account_id, status
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, txn.ID, txn.Hash, txn.Date, txn.Description, txn.MerchantName,
			txn.Amount.String(), txn.AccountID, status)
		if err != nil {
			return inserted, fmt.Errorf("failed to insert transaction %s: %w", txn.ID, err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return inserted, fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			slog.Debug("Skipping duplicate transaction", "id", txn.ID, "hash", txn.Hash)
		}
		inserted += int(rows)
	}
	return inserted, nil
}

// GetTransactionByID retrieves a single transaction.
func (s *SQLiteStorage) GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	return s.getTransactionByIDTx(ctx, s.db, id)
}

func (s *SQLiteStorage) getTransactionByIDTx(ctx context.Context, q queryable, id string) (*model.Transaction, error) {
	row := q.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", common.ErrTransactionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return txn, nil
}

// GetTransactions retrieves transactions matching the filter, oldest first.
func (s *SQLiteStorage) GetTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getTransactionsTx(ctx, s.db, filter)
}

func (s *SQLiteStorage) getTransactionsTx(ctx context.Context, q queryable, filter service.TransactionFilter) ([]model.Transaction, error) {
	var conditions []string
	var args []any

	if filter.StartDate != nil {
		conditions = append(conditions, "date >= ?")
		args = append(args, *filter.StartDate)
	}
	if filter.EndDate != nil {
		conditions = append(conditions, "date <= ?")
		args = append(args, *filter.EndDate)
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY date, id"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	return queryTransactions(ctx, q, query, args...)
}

// GetUncategorizedTransactions returns every transaction without a committed category.
func (s *SQLiteStorage) GetUncategorizedTransactions(ctx context.Context) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getUncategorizedTransactionsTx(ctx, s.db)
}

func (s *SQLiteStorage) getUncategorizedTransactionsTx(ctx context.Context, q queryable) ([]model.Transaction, error) {
	return queryTransactions(ctx, q, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE status != ?
		ORDER BY date, id
	`, model.StatusCategorized)
}

// CommitCategory writes a category onto a transaction.
func (s *SQLiteStorage) CommitCategory(ctx context.Context, transactionID string, commit service.CategoryCommit) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if err := validateString(transactionID, "transactionID"); err != nil {
		return false, err
	}
	if err := validateCommit(commit); err != nil {
		return false, err
	}

	var applied bool
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var txErr error
		applied, txErr = s.commitCategoryTx(ctx, tx, transactionID, commit)
		return txErr
	})
	return applied, err
}

func (s *SQLiteStorage) commitCategoryTx(ctx context.Context, q queryable, transactionID string, commit service.CategoryCommit) (bool, error) {
	if commit.At.IsZero() {
		commit.At = time.Now()
	}

	query := `
		UPDATE transactions SET
			status = ?,
			category_id = ?,
			category_name = ?,
			subcategory_name = ?,
			suggested_category_id = NULL,
			categorized_by = ?,
			confidence = ?,
			categorized_at = ?
		WHERE id = ?`
	args := []any{
		model.StatusCategorized, commit.CategoryID, commit.CategoryName, commit.SubcategoryName,
		commit.By, commit.Confidence, commit.At, transactionID,
	}
	// Automation never replaces a committed category.
	if commit.By == model.CategorizedByAuto {
		query += " AND status != ?"
		args = append(args, model.StatusCategorized)
	}

	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to commit category: %w", err)
	}
	return s.checkApplied(ctx, q, result, transactionID)
}

// checkApplied distinguishes a guarded no-op update from a missing transaction.
func (s *SQLiteStorage) checkApplied(ctx context.Context, q queryable, result sql.Result, transactionID string) (bool, error) {
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows > 0 {
		return true, nil
	}

	var exists bool
	if err := q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM transactions WHERE id = ?)`, transactionID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check transaction existence: %w", err)
	}
	if !exists {
		return false, fmt.Errorf("%w: %s", common.ErrTransactionNotFound, transactionID)
	}
	return false, nil
}

// CommitCategories applies one commit to all ids in a single transaction.
// If any id is unknown nothing is written.
func (s *SQLiteStorage) CommitCategories(ctx context.Context, transactionIDs []string, commit service.CategoryCommit) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if len(transactionIDs) == 0 {
		return fmt.Errorf("%w: transactionIDs", ErrEmptySlice)
	}
	if err := validateCommit(commit); err != nil {
		return err
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		return s.commitCategoriesTx(ctx, tx, transactionIDs, commit)
	})
}

func (s *SQLiteStorage) commitCategoriesTx(ctx context.Context, q queryable, transactionIDs []string, commit service.CategoryCommit) error {
	if commit.At.IsZero() {
		commit.At = time.Now()
	}
	for _, id := range transactionIDs {
		if _, err := s.commitCategoryTx(ctx, q, id, commit); err != nil {
			return err
		}
	}
	return nil
}

// MarkSuggested records a below-threshold candidate on an uncommitted transaction.
func (s *SQLiteStorage) MarkSuggested(ctx context.Context, transactionID string, categoryID, confidence int) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if err := validateString(transactionID, "transactionID"); err != nil {
		return false, err
	}
	return s.markSuggestedTx(ctx, s.db, transactionID, categoryID, confidence)
}

func (s *SQLiteStorage) markSuggestedTx(ctx context.Context, q queryable, transactionID string, categoryID, confidence int) (bool, error) {
	result, err := q.ExecContext(ctx, `
		UPDATE transactions SET
			status = ?,
			suggested_category_id = ?,
			confidence = ?
		WHERE id = ? AND status != ?
	`, model.StatusSuggested, categoryID, model.ClampConfidence(confidence), transactionID, model.StatusCategorized)
	if err != nil {
		return false, fmt.Errorf("failed to mark suggestion: %w", err)
	}
	return s.checkApplied(ctx, q, result, transactionID)
}

// ClearSuggestion returns a suggested transaction to uncategorized.
func (s *SQLiteStorage) ClearSuggestion(ctx context.Context, transactionID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(transactionID, "transactionID"); err != nil {
		return err
	}
	return s.clearSuggestionTx(ctx, s.db, transactionID)
}

func (s *SQLiteStorage) clearSuggestionTx(ctx context.Context, q queryable, transactionID string) error {
	result, err := q.ExecContext(ctx, `
		UPDATE transactions SET
			status = ?,
			suggested_category_id = NULL,
			confidence = 0
		WHERE id = ? AND status = ?
	`, model.StatusUncategorized, transactionID, model.StatusSuggested)
	if err != nil {
		return fmt.Errorf("failed to clear suggestion: %w", err)
	}
	_, err = s.checkApplied(ctx, q, result, transactionID)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var (
		txn           model.Transaction
		amount        string
		categoryID    sql.NullInt64
		suggestedID   sql.NullInt64
		categorizedAt sql.NullTime
	)

	err := row.Scan(
		&txn.ID, &txn.Hash, &txn.Date, &txn.Description, &txn.MerchantName, &amount, &txn.AccountID,
		&txn.Status, &categoryID, &txn.CategoryName, &txn.SubcategoryName, &suggestedID,
		&txn.CategorizedBy, &txn.Confidence, &categorizedAt,
	)
	if err != nil {
		return nil, err
	}

	txn.Amount, err = parseAmount(amount)
	if err != nil {
		return nil, fmt.Errorf("transaction %s: %w", txn.ID, err)
	}
	if categoryID.Valid {
		id := int(categoryID.Int64)
		txn.CategoryID = &id
	}
	if suggestedID.Valid {
		id := int(suggestedID.Int64)
		txn.SuggestedCategoryID = &id
	}
	if categorizedAt.Valid {
		txn.CategorizedAt = categorizedAt.Time
	}
	return &txn, nil
}

func queryTransactions(ctx context.Context, q queryable, query string, args ...any) ([]model.Transaction, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, *txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return transactions, nil
}
