package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-categorizer/internal/common"
	"github.com/Veraticus/spice-categorizer/internal/learning"
	"github.com/Veraticus/spice-categorizer/internal/model"
	"github.com/Veraticus/spice-categorizer/internal/service"
	"github.com/Veraticus/spice-categorizer/internal/testutil"
)

// mockStorage stubs the storage calls the categorizer makes. Anything else
// hits the nil embedded interface and panics.
type mockStorage struct {
	service.Storage
	mock.Mock
}

func (m *mockStorage) GetCategories(ctx context.Context) ([]model.Category, error) {
	args := m.Called(ctx)
	categories, _ := args.Get(0).([]model.Category)
	return categories, args.Error(1)
}

func (m *mockStorage) GetActiveRules(ctx context.Context) ([]model.CategorizationRule, error) {
	args := m.Called(ctx)
	rules, _ := args.Get(0).([]model.CategorizationRule)
	return rules, args.Error(1)
}

func (m *mockStorage) GetUncategorizedTransactions(ctx context.Context) ([]model.Transaction, error) {
	args := m.Called(ctx)
	txns, _ := args.Get(0).([]model.Transaction)
	return txns, args.Error(1)
}

func (m *mockStorage) GetMerchantMapping(ctx context.Context, normalizedName string) (*model.MerchantMapping, error) {
	args := m.Called(ctx, normalizedName)
	mapping, _ := args.Get(0).(*model.MerchantMapping)
	return mapping, args.Error(1)
}

func (m *mockStorage) CommitCategory(ctx context.Context, transactionID string, commit service.CategoryCommit) (bool, error) {
	args := m.Called(ctx, transactionID, commit)
	return args.Bool(0), args.Error(1)
}

func (m *mockStorage) GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error) {
	args := m.Called(ctx, id)
	txn, _ := args.Get(0).(*model.Transaction)
	return txn, args.Error(1)
}

var errDiskFull = errors.New("disk full")

func fuelCategories() []model.Category {
	return []model.Category{{
		ID:               7,
		Name:             "Fuel",
		Type:             model.CategoryTypeExpense,
		MerchantPatterns: []string{"adnoc"},
		IsActive:         true,
	}}
}

func TestCategorizer_StorageErrorsPropagate(t *testing.T) {
	store := &mockStorage{}
	store.On("GetCategories", mock.Anything).Return(nil, errDiskFull)

	c := New(store, learning.NewStore(store, learning.Options{}))

	_, err := c.Categorize(context.Background(), testutil.NewTransaction("t1", "Fuel", "ADNOC", "-1.00"))
	require.ErrorIs(t, err, errDiskFull)

	_, err = c.AutoCategorizeUncategorized(context.Background())
	require.ErrorIs(t, err, errDiskFull)
	store.AssertExpectations(t)
}

func TestCategorizer_SweepCountsPerTransactionFailures(t *testing.T) {
	store := &mockStorage{}
	store.On("GetCategories", mock.Anything).Return(fuelCategories(), nil)
	store.On("GetActiveRules", mock.Anything).Return(nil, nil)
	store.On("GetUncategorizedTransactions", mock.Anything).Return([]model.Transaction{
		testutil.NewTransaction("t1", "Fuel", "ADNOC Station 1", "-50.00"),
		testutil.NewTransaction("t2", "Fuel", "ADNOC Station 2", "-60.00"),
	}, nil)
	store.On("GetMerchantMapping", mock.Anything, mock.Anything).Return(nil, common.ErrNotFound)
	store.On("CommitCategory", mock.Anything, "t1", mock.Anything).Return(false, errDiskFull)
	store.On("CommitCategory", mock.Anything, "t2", mock.MatchedBy(func(commit service.CategoryCommit) bool {
		return commit.CategoryID == 7 && commit.By == model.CategorizedByAuto && commit.Confidence == 80
	})).Return(true, nil)

	c := New(store, learning.NewStore(store, learning.Options{}))

	summary, err := c.AutoCategorizeUncategorized(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Committed)
	store.AssertExpectations(t)
}

func TestCategorizer_SkippedCommitReportsStoredCategory(t *testing.T) {
	categorizedAs := func(id int) *model.Transaction {
		txn := testutil.NewTransaction("t1", "Fuel", "ADNOC", "-1.00")
		txn.CategoryID = &id
		txn.Status = model.StatusCategorized
		return &txn
	}

	tests := []struct {
		name   string
		stored *model.Transaction
		want   Outcome
	}{
		{name: "same category already stored", stored: categorizedAs(7), want: OutcomeCommitted},
		{name: "other category won the race", stored: categorizedAs(3), want: OutcomeKept},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockStorage{}
			store.On("GetCategories", mock.Anything).Return(fuelCategories(), nil)
			store.On("GetActiveRules", mock.Anything).Return(nil, nil)
			store.On("GetMerchantMapping", mock.Anything, mock.Anything).Return(nil, common.ErrNotFound)
			store.On("CommitCategory", mock.Anything, "t1", mock.Anything).Return(false, nil)
			store.On("GetTransactionByID", mock.Anything, "t1").Return(tt.stored, nil)

			c := New(store, learning.NewStore(store, learning.Options{}))

			decision, err := c.Categorize(context.Background(), testutil.NewTransaction("t1", "Fuel", "ADNOC", "-1.00"))
			require.NoError(t, err)
			require.NotNil(t, decision)
			assert.Equal(t, tt.want, decision.Outcome)
			store.AssertExpectations(t)
		})
	}
}
