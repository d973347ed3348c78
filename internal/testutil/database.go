// Package testutil provides test utilities for the spice categorizer: an
// in-memory database seeded with categories, rules and transactions.
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/spice-categorizer/internal/catalog"
	"github.com/Veraticus/spice-categorizer/internal/model"
	"github.com/Veraticus/spice-categorizer/internal/service"
	"github.com/Veraticus/spice-categorizer/internal/storage"
)

// TestDB represents a test database with associated test utilities.
type TestDB struct {
	Storage    *storage.SQLiteStorage
	t          *testing.T
	Categories map[string]model.Category
}

// SetupTestDB creates a new in-memory test database seeded with the given
// categories. It automatically handles migrations and cleanup.
//
// Example:
//
//	db := testutil.SetupTestDB(t,
//		catalog.Seed{Name: "Food", Keywords: []string{"danube"}},
//		catalog.Seed{Name: "Fuel", MerchantPatterns: []string{"adnoc"}},
//	)
func SetupTestDB(t *testing.T, seeds ...catalog.Seed) *TestDB {
	t.Helper()

	// Create in-memory SQLite storage
	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	// Run migrations
	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	// Register cleanup
	t.Cleanup(func() {
		_ = store.Close()
	})

	db := &TestDB{
		Storage:    store,
		Categories: make(map[string]model.Category),
		t:          t,
	}

	if len(seeds) > 0 {
		if _, err := store.SeedCategories(ctx, seeds); err != nil {
			t.Fatalf("failed to seed categories: %v", err)
		}
		db.ReloadCategories()
	}

	return db
}

// ReloadCategories refreshes db.Categories from storage.
func (db *TestDB) ReloadCategories() {
	db.t.Helper()
	cats, err := db.Storage.GetCategories(context.Background())
	if err != nil {
		db.t.Fatalf("failed to load categories: %v", err)
	}
	db.Categories = make(map[string]model.Category, len(cats))
	for _, cat := range cats {
		db.Categories[cat.Name] = cat
	}
}

// MustCategory returns the category with the given name or fails the test.
func (db *TestDB) MustCategory(name string) model.Category {
	db.t.Helper()
	cat, ok := db.Categories[name]
	if !ok {
		db.t.Fatalf("category %q not found in test data", name)
	}
	return cat
}

// AddRule creates an active rule targeting the named category.
func (db *TestDB) AddRule(name, categoryName string, priority int, conditions ...model.RuleCondition) model.CategorizationRule {
	db.t.Helper()
	rule := model.CategorizationRule{
		Name:       name,
		Conditions: conditions,
		CategoryID: db.MustCategory(categoryName).ID,
		Priority:   priority,
	}
	if err := db.Storage.CreateRule(context.Background(), &rule); err != nil {
		db.t.Fatalf("failed to create rule %q: %v", name, err)
	}
	return rule
}

// AddTransactions stores transactions, failing the test on error.
func (db *TestDB) AddTransactions(txns ...model.Transaction) {
	db.t.Helper()
	if _, err := db.Storage.SaveTransactions(context.Background(), txns); err != nil {
		db.t.Fatalf("failed to save transactions: %v", err)
	}
}

// MustTransaction loads a transaction by id or fails the test.
func (db *TestDB) MustTransaction(id string) *model.Transaction {
	db.t.Helper()
	txn, err := db.Storage.GetTransactionByID(context.Background(), id)
	if err != nil {
		db.t.Fatalf("failed to load transaction %s: %v", id, err)
	}
	return txn
}

// WithTransaction executes the given function within a database transaction.
// The transaction is automatically rolled back after the function completes.
func (db *TestDB) WithTransaction(fn func(tx service.Transaction) error) error {
	ctx := context.Background()
	tx, err := db.Storage.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() { _ = tx.Rollback() }()

	return fn(tx)
}

// NewTransaction builds a valid transaction for tests. The hash includes the
// id so identical test transactions are not treated as duplicates.
func NewTransaction(id, description, merchant, amount string) model.Transaction {
	txn := model.Transaction{
		ID:           id,
		AccountID:    "test-account",
		Date:         time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
		Description:  description,
		MerchantName: merchant,
		Amount:       decimal.RequireFromString(amount),
	}
	txn.Hash = id + ":" + txn.GenerateHash()
	return txn
}
