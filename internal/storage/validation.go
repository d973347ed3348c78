// Package storage provides the data persistence layer for the spice application.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/spice-categorizer/internal/model"
	"github.com/Veraticus/spice-categorizer/internal/rules"
	"github.com/Veraticus/spice-categorizer/internal/service"
)

// Validation errors.
var (
	ErrNilContext         = errors.New("context cannot be nil")
	ErrEmptyString        = errors.New("string parameter cannot be empty")
	ErrNilParameter       = errors.New("parameter cannot be nil")
	ErrEmptySlice         = errors.New("slice cannot be empty")
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrInvalidCategory    = errors.New("invalid category")
	ErrInvalidMapping     = errors.New("invalid merchant mapping")
	ErrInvalidCommit      = errors.New("invalid category commit")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateTransactions validates a slice of transactions.
func validateTransactions(transactions []model.Transaction) error {
	if transactions == nil {
		return fmt.Errorf("%w: transactions", ErrNilParameter)
	}
	if len(transactions) == 0 {
		return fmt.Errorf("%w: transactions", ErrEmptySlice)
	}

	for i, txn := range transactions {
		if err := validateTransaction(&txn); err != nil {
			return fmt.Errorf("transaction at index %d: %w", i, err)
		}
	}
	return nil
}

// validateTransaction validates a single transaction.
func validateTransaction(txn *model.Transaction) error {
	if txn == nil {
		return fmt.Errorf("%w: transaction", ErrNilParameter)
	}
	if txn.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidTransaction)
	}
	if txn.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidTransaction)
	}
	if strings.TrimSpace(txn.Description) == "" {
		return fmt.Errorf("%w: missing description", ErrInvalidTransaction)
	}
	if txn.AccountID == "" {
		return fmt.Errorf("%w: missing account ID", ErrInvalidTransaction)
	}
	return nil
}

// validateCategory validates a category before it is created.
func validateCategory(cat *model.Category) error {
	if cat == nil {
		return fmt.Errorf("%w: category", ErrNilParameter)
	}
	if strings.TrimSpace(cat.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidCategory)
	}
	if !cat.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidCategory, cat.Type)
	}
	return nil
}

// validateRule validates a rule before it is created.
func validateRule(rule *model.CategorizationRule) error {
	if rule == nil {
		return fmt.Errorf("%w: rule", ErrNilParameter)
	}
	if strings.TrimSpace(rule.Name) == "" {
		return fmt.Errorf("%w: rule name", ErrEmptyString)
	}
	return rules.Validate(*rule)
}

// validateMapping validates a merchant mapping before it is saved.
func validateMapping(mapping *model.MerchantMapping) error {
	if mapping == nil {
		return fmt.Errorf("%w: mapping", ErrNilParameter)
	}
	if mapping.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidMapping)
	}
	if strings.TrimSpace(mapping.NormalizedName) == "" {
		return fmt.Errorf("%w: missing normalized name", ErrInvalidMapping)
	}
	if !mapping.Source.Valid() {
		return fmt.Errorf("%w: unknown source %q", ErrInvalidMapping, mapping.Source)
	}
	if mapping.Confidence < model.MinConfidence || mapping.Confidence > model.MaxConfidence {
		return fmt.Errorf("%w: confidence %d out of range", ErrInvalidMapping, mapping.Confidence)
	}
	return nil
}

// validateCommit validates a category commit.
func validateCommit(commit service.CategoryCommit) error {
	if commit.CategoryID <= 0 {
		return fmt.Errorf("%w: missing category", ErrInvalidCommit)
	}
	switch commit.By {
	case model.CategorizedByAuto, model.CategorizedByManual, model.CategorizedByBulk:
	default:
		return fmt.Errorf("%w: unknown origin %q", ErrInvalidCommit, commit.By)
	}
	if commit.Confidence < model.MinConfidence || commit.Confidence > model.MaxConfidence {
		return fmt.Errorf("%w: confidence %d out of range", ErrInvalidCommit, commit.Confidence)
	}
	return nil
}
