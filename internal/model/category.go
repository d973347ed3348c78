// Package model defines the core domain models used throughout the application.
package model

import "time"

// CategoryType indicates whether a category is for income or expense.
type CategoryType string

const (
	// CategoryTypeIncome represents categories for income transactions.
	CategoryTypeIncome CategoryType = "income"
	// CategoryTypeExpense represents categories for expense transactions.
	CategoryTypeExpense CategoryType = "expense"
)

// Valid reports whether t is a known category type.
func (t CategoryType) Valid() bool {
	return t == CategoryTypeIncome || t == CategoryTypeExpense
}

// Category is a spending or income category together with the text signals
// that point to it.
type Category struct {
	CreatedAt        time.Time
	ParentID         *int
	Name             string
	Type             CategoryType
	Keywords         []string
	MerchantPatterns []string
	ID               int
	SortOrder        int
	Level            int
	IsActive         bool
}

// IsRoot reports whether the category has no parent.
func (c *Category) IsRoot() bool {
	return c.ParentID == nil
}

// CategoryTreeNode is one node of the category forest.
type CategoryTreeNode struct {
	Category Category
	Children []*CategoryTreeNode
}

// Walk visits the node and its descendants depth-first.
func (n *CategoryTreeNode) Walk(fn func(node *CategoryTreeNode)) {
	fn(n)
	for _, child := range n.Children {
		child.Walk(fn)
	}
}
