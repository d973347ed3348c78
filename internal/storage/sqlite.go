package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/Veraticus/spice-categorizer/internal/common"
	"github.com/Veraticus/spice-categorizer/internal/model"
	"github.com/Veraticus/spice-categorizer/internal/service"
)

// Ensure SQLiteStorage implements service.Storage interface.
var _ service.Storage = (*SQLiteStorage)(nil)

// SQLiteStorage implements the Storage interface using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	dbPath string
	retry  common.RetryOptions
}

// queryable is satisfied by both *sql.DB and *sql.Tx.
type queryable interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// NewSQLiteStorage creates a new SQLite storage instance.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	// Validate input
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	dsn := ":memory:"
	if dbPath != ":memory:" {
		// Ensure directory exists
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = dbPath + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	// Open database
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite doesn't benefit from multiple connections
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Test connection
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStorage{
		db:     db,
		dbPath: dbPath,
		retry: common.RetryOptions{
			MaxAttempts:  5,
			InitialDelay: 25 * time.Millisecond,
			MaxDelay:     500 * time.Millisecond,
			Multiplier:   2,
			Retryable:    isBusy,
		},
	}, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// isBusy reports whether err is SQLite lock contention worth retrying.
func isBusy(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

// inTx runs fn inside a database transaction, retrying when the database is busy.
func (s *SQLiteStorage) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return common.WithRetry(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if err := fn(tx); err != nil {
			return err
		}
		return tx.Commit()
	}, s.retry)
}

// BeginTx starts a new database transaction.
func (s *SQLiteStorage) BeginTx(ctx context.Context) (service.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var tx *sql.Tx
	err := common.WithRetry(ctx, func() error {
		var beginErr error
		tx, beginErr = s.db.BeginTx(ctx, nil)
		return beginErr
	}, s.retry)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	return &sqliteTransaction{
		tx:      tx,
		storage: s,
	}, nil
}

// sqliteTransaction wraps sql.Tx to implement service.Transaction.
type sqliteTransaction struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTransaction) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTransaction) Rollback() error {
	return t.tx.Rollback()
}

// Transaction methods delegate to the main storage with the transaction.
func (t *sqliteTransaction) SaveTransactions(ctx context.Context, transactions []model.Transaction) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateTransactions(transactions); err != nil {
		return 0, err
	}
	return t.storage.saveTransactionsTx(ctx, t.tx, transactions)
}

func (t *sqliteTransaction) GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	return t.storage.getTransactionByIDTx(ctx, t.tx, id)
}

func (t *sqliteTransaction) GetTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.getTransactionsTx(ctx, t.tx, filter)
}

func (t *sqliteTransaction) GetUncategorizedTransactions(ctx context.Context) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.getUncategorizedTransactionsTx(ctx, t.tx)
}

func (t *sqliteTransaction) CommitCategory(ctx context.Context, transactionID string, commit service.CategoryCommit) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if err := validateString(transactionID, "transactionID"); err != nil {
		return false, err
	}
	if err := validateCommit(commit); err != nil {
		return false, err
	}
	return t.storage.commitCategoryTx(ctx, t.tx, transactionID, commit)
}

func (t *sqliteTransaction) CommitCategories(ctx context.Context, transactionIDs []string, commit service.CategoryCommit) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if len(transactionIDs) == 0 {
		return fmt.Errorf("%w: transactionIDs", ErrEmptySlice)
	}
	if err := validateCommit(commit); err != nil {
		return err
	}
	return t.storage.commitCategoriesTx(ctx, t.tx, transactionIDs, commit)
}

func (t *sqliteTransaction) MarkSuggested(ctx context.Context, transactionID string, categoryID, confidence int) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if err := validateString(transactionID, "transactionID"); err != nil {
		return false, err
	}
	return t.storage.markSuggestedTx(ctx, t.tx, transactionID, categoryID, confidence)
}

func (t *sqliteTransaction) ClearSuggestion(ctx context.Context, transactionID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(transactionID, "transactionID"); err != nil {
		return err
	}
	return t.storage.clearSuggestionTx(ctx, t.tx, transactionID)
}

func (t *sqliteTransaction) GetCategories(ctx context.Context) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.getCategoriesTx(ctx, t.tx)
}

func (t *sqliteTransaction) GetCategoryByID(ctx context.Context, id int) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.getCategoryByIDTx(ctx, t.tx, id)
}

func (t *sqliteTransaction) GetCategoryByName(ctx context.Context, name string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}
	return t.storage.getCategoryByNameTx(ctx, t.tx, name)
}

func (t *sqliteTransaction) CreateCategory(ctx context.Context, category *model.Category) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCategory(category); err != nil {
		return err
	}
	return t.storage.createCategoryTx(ctx, t.tx, category)
}

func (t *sqliteTransaction) SetCategoryParent(ctx context.Context, id int, parentID *int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return t.storage.setCategoryParentTx(ctx, t.tx, id, parentID)
}

func (t *sqliteTransaction) AddCategoryKeywords(ctx context.Context, id int, keywords []string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return t.storage.addCategoryKeywordsTx(ctx, t.tx, id, keywords)
}

func (t *sqliteTransaction) CreateRule(ctx context.Context, rule *model.CategorizationRule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRule(rule); err != nil {
		return err
	}
	return t.storage.createRuleTx(ctx, t.tx, rule)
}

func (t *sqliteTransaction) GetRules(ctx context.Context) ([]model.CategorizationRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.getRulesTx(ctx, t.tx, false)
}

func (t *sqliteTransaction) GetActiveRules(ctx context.Context) ([]model.CategorizationRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.getRulesTx(ctx, t.tx, true)
}

func (t *sqliteTransaction) DeactivateRule(ctx context.Context, id int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return t.storage.deactivateRuleTx(ctx, t.tx, id)
}

func (t *sqliteTransaction) GetMerchantMapping(ctx context.Context, normalizedName string) (*model.MerchantMapping, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(normalizedName, "normalizedName"); err != nil {
		return nil, err
	}
	return t.storage.getMerchantMappingTx(ctx, t.tx, normalizedName)
}

func (t *sqliteTransaction) SaveMerchantMapping(ctx context.Context, mapping *model.MerchantMapping) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateMapping(mapping); err != nil {
		return err
	}
	return t.storage.saveMerchantMappingTx(ctx, t.tx, mapping)
}

func (t *sqliteTransaction) GetMerchantMappings(ctx context.Context) ([]model.MerchantMapping, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.getMerchantMappingsTx(ctx, t.tx)
}

func (t *sqliteTransaction) DeactivateMerchantMapping(ctx context.Context, normalizedName string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(normalizedName, "normalizedName"); err != nil {
		return err
	}
	return t.storage.deactivateMerchantMappingTx(ctx, t.tx, normalizedName)
}
