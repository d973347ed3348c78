package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-categorizer/internal/common"
	"github.com/Veraticus/spice-categorizer/internal/model"
)

func TestSQLiteStorage_CreateCategory(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	food := &model.Category{
		Name:             "Food",
		Type:             model.CategoryTypeExpense,
		Keywords:         []string{"danube", "restaurant"},
		MerchantPatterns: []string{"talabat"},
		SortOrder:        3,
	}
	require.NoError(t, store.CreateCategory(ctx, food))
	assert.NotZero(t, food.ID)
	assert.True(t, food.IsActive)

	got, err := store.GetCategoryByID(ctx, food.ID)
	require.NoError(t, err)
	assert.Equal(t, "Food", got.Name)
	assert.Equal(t, []string{"danube", "restaurant"}, got.Keywords)
	assert.Equal(t, []string{"talabat"}, got.MerchantPatterns)
	assert.Equal(t, 3, got.SortOrder)
	assert.Nil(t, got.ParentID)

	err = store.CreateCategory(ctx, &model.Category{Name: "FOOD", Type: model.CategoryTypeExpense})
	assert.ErrorIs(t, err, common.ErrDuplicateEntry)

	err = store.CreateCategory(ctx, &model.Category{Name: "Salary", Type: "wages"})
	assert.ErrorIs(t, err, ErrInvalidCategory)

	missing := 404
	err = store.CreateCategory(ctx, &model.Category{Name: "Child", Type: model.CategoryTypeExpense, ParentID: &missing})
	assert.ErrorIs(t, err, common.ErrCategoryNotFound)

	_, err = store.GetCategoryByID(ctx, 999)
	assert.ErrorIs(t, err, common.ErrCategoryNotFound)
	assert.True(t, common.IsNotFound(err))
}

func TestSQLiteStorage_GetCategories_Order(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	for i, name := range []string{"Zeta", "Alpha", "Mid"} {
		cat := &model.Category{Name: name, Type: model.CategoryTypeExpense, SortOrder: 10 - i}
		require.NoError(t, store.CreateCategory(ctx, cat))
	}

	cats, err := store.GetCategories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 3)
	assert.Equal(t, "Mid", cats[0].Name)
	assert.Equal(t, "Zeta", cats[2].Name)
}

func TestSQLiteStorage_SetCategoryParent(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	food := createTestCategory(t, store, "Food", nil)
	groceries := createTestCategory(t, store, "Groceries", &food.ID)
	produce := createTestCategory(t, store, "Produce", &groceries.ID)
	transport := createTestCategory(t, store, "Transport", nil)

	err := store.SetCategoryParent(ctx, food.ID, &produce.ID)
	assert.ErrorIs(t, err, common.ErrCyclicHierarchy)

	err = store.SetCategoryParent(ctx, food.ID, &food.ID)
	assert.ErrorIs(t, err, common.ErrCyclicHierarchy)

	require.NoError(t, store.SetCategoryParent(ctx, groceries.ID, &transport.ID))
	got, err := store.GetCategoryByID(ctx, groceries.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ParentID)
	assert.Equal(t, transport.ID, *got.ParentID)

	require.NoError(t, store.SetCategoryParent(ctx, groceries.ID, nil))
	got, _ = store.GetCategoryByID(ctx, groceries.ID)
	assert.Nil(t, got.ParentID)

	missing := 404
	assert.ErrorIs(t, store.SetCategoryParent(ctx, groceries.ID, &missing), common.ErrCategoryNotFound)
}

func TestSQLiteStorage_AddCategoryKeywords(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	food := &model.Category{Name: "Food", Type: model.CategoryTypeExpense, Keywords: []string{"Danube"}}
	require.NoError(t, store.CreateCategory(ctx, food))

	require.NoError(t, store.AddCategoryKeywords(ctx, food.ID, []string{"danube", "supermarket", " ", "Bakery", "supermarket"}))

	got, err := store.GetCategoryByID(ctx, food.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Danube", "supermarket", "Bakery"}, got.Keywords)

	assert.ErrorIs(t, store.AddCategoryKeywords(ctx, 999, []string{"x"}), common.ErrCategoryNotFound)
}
