// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/spice-categorizer/internal/model"
)

// TransactionFilter defines filtering options for transaction queries.
type TransactionFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	Status    model.CategorizationStatus
	Limit     int
	Offset    int
}

// CategoryCommit is the category state written onto a transaction.
type CategoryCommit struct {
	At              time.Time
	CategoryName    string
	SubcategoryName string
	By              model.CategorizedBy
	CategoryID      int
	Confidence      int
}

// Repository holds the operations available both on Storage and inside a Transaction.
type Repository interface {
	// Transaction operations
	SaveTransactions(ctx context.Context, transactions []model.Transaction) (int, error)
	GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error)
	GetTransactions(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error)
	GetUncategorizedTransactions(ctx context.Context) ([]model.Transaction, error)
	// CommitCategory writes a category onto a transaction. Automatic commits
	// never replace an existing category and report false when skipped.
	CommitCategory(ctx context.Context, transactionID string, commit CategoryCommit) (bool, error)
	// CommitCategories applies one commit to every id or to none of them.
	CommitCategories(ctx context.Context, transactionIDs []string, commit CategoryCommit) error
	MarkSuggested(ctx context.Context, transactionID string, categoryID, confidence int) (bool, error)
	ClearSuggestion(ctx context.Context, transactionID string) error

	// Category operations
	GetCategories(ctx context.Context) ([]model.Category, error)
	GetCategoryByID(ctx context.Context, id int) (*model.Category, error)
	GetCategoryByName(ctx context.Context, name string) (*model.Category, error)
	CreateCategory(ctx context.Context, category *model.Category) error
	SetCategoryParent(ctx context.Context, id int, parentID *int) error
	AddCategoryKeywords(ctx context.Context, id int, keywords []string) error

	// Rule operations
	CreateRule(ctx context.Context, rule *model.CategorizationRule) error
	GetRules(ctx context.Context) ([]model.CategorizationRule, error)
	GetActiveRules(ctx context.Context) ([]model.CategorizationRule, error)
	DeactivateRule(ctx context.Context, id int) error

	// Merchant mapping operations
	GetMerchantMapping(ctx context.Context, normalizedName string) (*model.MerchantMapping, error)
	SaveMerchantMapping(ctx context.Context, mapping *model.MerchantMapping) error
	GetMerchantMappings(ctx context.Context) ([]model.MerchantMapping, error)
	DeactivateMerchantMapping(ctx context.Context, normalizedName string) error
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	Repository

	// Database management
	Migrate(ctx context.Context) error
	BeginTx(ctx context.Context) (Transaction, error)
	Close() error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit() error
	Rollback() error
	// Include all repository methods for use within transaction
	Repository
}
