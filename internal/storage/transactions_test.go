package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-categorizer/internal/common"
	"github.com/Veraticus/spice-categorizer/internal/model"
	"github.com/Veraticus/spice-categorizer/internal/service"
)

func TestSQLiteStorage_SaveTransactions(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	txns := createTestTransactions(3)
	inserted, err := store.SaveTransactions(ctx, txns)
	require.NoError(t, err)
	assert.Equal(t, 3, inserted)

	// Duplicates are skipped.
	inserted, err = store.SaveTransactions(ctx, txns)
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)

	got, err := store.GetTransactionByID(ctx, "txn-2")
	require.NoError(t, err)
	assert.Equal(t, "Transaction #2", got.Description)
	assert.True(t, txns[1].Amount.Equal(got.Amount), "amount %s", got.Amount)
	assert.Equal(t, model.StatusUncategorized, got.Status)
	assert.Nil(t, got.CategoryID)
	assert.True(t, txns[1].Date.Equal(got.Date))

	_, err = store.SaveTransactions(ctx, []model.Transaction{{ID: "bad"}})
	assert.ErrorIs(t, err, ErrInvalidTransaction)
}

func TestSQLiteStorage_GetTransactionByID_NotFound(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	_, err := store.GetTransactionByID(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrTransactionNotFound)
}

func TestSQLiteStorage_CommitCategory(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	food := createTestCategory(t, store, "Food", nil)
	fuel := createTestCategory(t, store, "Fuel", nil)
	_, err := store.SaveTransactions(ctx, createTestTransactions(2))
	require.NoError(t, err)

	manual := service.CategoryCommit{
		CategoryID:      food.ID,
		CategoryName:    food.Name,
		SubcategoryName: "Lunch",
		By:              model.CategorizedByManual,
		Confidence:      100,
	}
	applied, err := store.CommitCategory(ctx, "txn-1", manual)
	require.NoError(t, err)
	assert.True(t, applied)

	got, err := store.GetTransactionByID(ctx, "txn-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCategorized, got.Status)
	require.NotNil(t, got.CategoryID)
	assert.Equal(t, food.ID, *got.CategoryID)
	assert.Equal(t, "Lunch", got.SubcategoryName)
	assert.Equal(t, model.CategorizedByManual, got.CategorizedBy)
	assert.False(t, got.CategorizedAt.IsZero())

	// Automatic commits never replace a committed category.
	auto := service.CategoryCommit{CategoryID: fuel.ID, CategoryName: fuel.Name, By: model.CategorizedByAuto, Confidence: 95}
	applied, err = store.CommitCategory(ctx, "txn-1", auto)
	require.NoError(t, err)
	assert.False(t, applied)
	got, _ = store.GetTransactionByID(ctx, "txn-1")
	assert.Equal(t, food.ID, *got.CategoryID)

	// Manual commits do.
	manual.CategoryID, manual.CategoryName = fuel.ID, fuel.Name
	applied, err = store.CommitCategory(ctx, "txn-1", manual)
	require.NoError(t, err)
	assert.True(t, applied)

	_, err = store.CommitCategory(ctx, "missing", auto)
	assert.ErrorIs(t, err, common.ErrTransactionNotFound)

	_, err = store.CommitCategory(ctx, "txn-2", service.CategoryCommit{CategoryID: fuel.ID, By: "ROBOT"})
	assert.ErrorIs(t, err, ErrInvalidCommit)
}

func TestSQLiteStorage_CommitCategories_AllOrNothing(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	food := createTestCategory(t, store, "Food", nil)
	_, err := store.SaveTransactions(ctx, createTestTransactions(4))
	require.NoError(t, err)

	commit := service.CategoryCommit{CategoryID: food.ID, CategoryName: food.Name, By: model.CategorizedByBulk, Confidence: 100}

	err = store.CommitCategories(ctx, []string{"txn-1", "txn-2", "nope"}, commit)
	require.ErrorIs(t, err, common.ErrTransactionNotFound)

	for _, id := range []string{"txn-1", "txn-2"} {
		got, err := store.GetTransactionByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, model.StatusUncategorized, got.Status, "%s must be untouched", id)
	}

	require.NoError(t, store.CommitCategories(ctx, []string{"txn-1", "txn-2", "txn-3"}, commit))

	uncategorized, err := store.GetUncategorizedTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, uncategorized, 1)
	assert.Equal(t, "txn-4", uncategorized[0].ID)

	err = store.CommitCategories(ctx, nil, commit)
	assert.ErrorIs(t, err, ErrEmptySlice)
}

func TestSQLiteStorage_Suggestions(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	food := createTestCategory(t, store, "Food", nil)
	_, err := store.SaveTransactions(ctx, createTestTransactions(2))
	require.NoError(t, err)

	applied, err := store.MarkSuggested(ctx, "txn-1", food.ID, 75)
	require.NoError(t, err)
	assert.True(t, applied)

	got, err := store.GetTransactionByID(ctx, "txn-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusSuggested, got.Status)
	require.NotNil(t, got.SuggestedCategoryID)
	assert.Equal(t, food.ID, *got.SuggestedCategoryID)
	assert.Equal(t, 75, got.Confidence)

	suggested, err := store.GetTransactions(ctx, service.TransactionFilter{Status: model.StatusSuggested})
	require.NoError(t, err)
	assert.Len(t, suggested, 1)

	require.NoError(t, store.ClearSuggestion(ctx, "txn-1"))
	got, _ = store.GetTransactionByID(ctx, "txn-1")
	assert.Equal(t, model.StatusUncategorized, got.Status)
	assert.Nil(t, got.SuggestedCategoryID)

	// A committed transaction is never downgraded to a suggestion.
	_, err = store.CommitCategory(ctx, "txn-2", service.CategoryCommit{CategoryID: food.ID, By: model.CategorizedByManual, Confidence: 100})
	require.NoError(t, err)
	applied, err = store.MarkSuggested(ctx, "txn-2", food.ID, 50)
	require.NoError(t, err)
	assert.False(t, applied)

	assert.ErrorIs(t, store.ClearSuggestion(ctx, "missing"), common.ErrTransactionNotFound)
}

func TestSQLiteStorage_GetTransactions_Filter(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	txns := createTestTransactions(5)
	_, err := store.SaveTransactions(ctx, txns)
	require.NoError(t, err)

	start := txns[1].Date
	end := txns[3].Date
	got, err := store.GetTransactions(ctx, service.TransactionFilter{StartDate: &start, EndDate: &end})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "txn-2", got[0].ID)

	got, err = store.GetTransactions(ctx, service.TransactionFilter{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "txn-2", got[0].ID)
}
