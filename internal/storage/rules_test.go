package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-categorizer/internal/common"
	"github.com/Veraticus/spice-categorizer/internal/model"
)

func TestSQLiteStorage_Rules(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	fuel := createTestCategory(t, store, "Fuel", nil)

	rule := &model.CategorizationRule{
		Name: "ADNOC",
		Conditions: []model.RuleCondition{
			model.MerchantContains{Text: "ADNOC"},
			model.AmountLessThan{Amount: "500"},
		},
		CategoryID: fuel.ID,
		Priority:   10,
	}
	require.NoError(t, store.CreateRule(ctx, rule))
	assert.NotZero(t, rule.ID)
	assert.True(t, rule.IsActive)

	second := &model.CategorizationRule{
		Name:       "ENOC",
		Conditions: []model.RuleCondition{model.MerchantContains{Text: "ENOC"}},
		CategoryID: fuel.ID,
	}
	require.NoError(t, store.CreateRule(ctx, second))

	active, err := store.GetActiveRules(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "ADNOC", active[0].Name)
	assert.Equal(t, rule.Conditions, active[0].Conditions)
	assert.Equal(t, 10, active[0].Priority)

	require.NoError(t, store.DeactivateRule(ctx, rule.ID))
	active, err = store.GetActiveRules(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "ENOC", active[0].Name)

	all, err := store.GetRules(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2, "deactivated rules are kept")

	assert.ErrorIs(t, store.DeactivateRule(ctx, 999), common.ErrRuleNotFound)
}

func TestSQLiteStorage_CreateRule_Invalid(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	fuel := createTestCategory(t, store, "Fuel", nil)

	tests := []struct {
		rule    *model.CategorizationRule
		wantErr error
		name    string
	}{
		{name: "nil", rule: nil, wantErr: ErrNilParameter},
		{name: "no name", rule: &model.CategorizationRule{CategoryID: fuel.ID}, wantErr: ErrEmptyString},
		{name: "no conditions", rule: &model.CategorizationRule{Name: "x", CategoryID: fuel.ID}, wantErr: common.ErrInvalidRule},
		{
			name: "unknown category",
			rule: &model.CategorizationRule{
				Name:       "x",
				Conditions: []model.RuleCondition{model.DescriptionContains{Text: "x"}},
				CategoryID: 404,
			},
			wantErr: common.ErrCategoryNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, store.CreateRule(ctx, tt.rule), tt.wantErr)
		})
	}
}

func TestSQLiteStorage_MalformedStoredConditions(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	fuel := createTestCategory(t, store, "Fuel", nil)
	_, err := store.db.Exec(`
		INSERT INTO categorization_rules (name, conditions, category_id, priority)
		VALUES ('broken', '{not json', ?, 0)
	`, fuel.ID)
	require.NoError(t, err)

	rules, err := store.GetActiveRules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	require.Len(t, rules[0].Conditions, 1)
	_, ok := rules[0].Conditions[0].(model.InvalidCondition)
	assert.True(t, ok)
}
