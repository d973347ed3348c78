package model

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// CategorizationStatus tracks where a transaction is in the categorization flow.
type CategorizationStatus string

// Categorization status constants.
const (
	StatusUncategorized CategorizationStatus = "UNCATEGORIZED"
	StatusSuggested     CategorizationStatus = "SUGGESTED"
	StatusCategorized   CategorizationStatus = "CATEGORIZED"
)

// CategorizedBy records who committed a transaction's category.
type CategorizedBy string

// Commit origin constants.
const (
	CategorizedByAuto   CategorizedBy = "AUTO"
	CategorizedByManual CategorizedBy = "MANUAL"
	CategorizedByBulk   CategorizedBy = "BULK"
)

// Transaction represents a single financial transaction from any source.
type Transaction struct {
	Date                time.Time
	CategorizedAt       time.Time
	Amount              decimal.Decimal
	CategoryID          *int
	SuggestedCategoryID *int
	ID                  string
	AccountID           string
	Description         string // Raw transaction description
	MerchantName        string // Cleaned merchant name, may be empty
	Hash                string
	CategoryName        string
	SubcategoryName     string
	Status              CategorizationStatus
	CategorizedBy       CategorizedBy
	Confidence          int
}

// IsCategorized reports whether a category has been committed.
func (t *Transaction) IsCategorized() bool {
	return t.Status == StatusCategorized && t.CategoryID != nil
}

// GenerateHash creates a unique hash for duplicate detection.
func (t *Transaction) GenerateHash() string {
	data := fmt.Sprintf("%s:%s:%s:%s:%s",
		t.Date.Format("2006-01-02"),
		t.Amount.StringFixed(2),
		t.Description,
		t.MerchantName,
		t.AccountID)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}
