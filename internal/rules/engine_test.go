package rules

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-categorizer/internal/common"
	"github.com/Veraticus/spice-categorizer/internal/model"
)

type lookup map[int]model.Category

func (l lookup) Get(id int) (model.Category, bool) {
	c, ok := l[id]
	return c, ok
}

var testCategories = lookup{
	1: {ID: 1, Name: "Food", IsActive: true},
	2: {ID: 2, Name: "Fuel", IsActive: true},
	3: {ID: 3, Name: "Rent", IsActive: true},
}

func TestEngine_ADNOCRule(t *testing.T) {
	engine := NewEngine([]model.CategorizationRule{{
		ID:         1,
		Name:       "ADNOC is fuel",
		Conditions: []model.RuleCondition{model.MerchantContains{Text: "ADNOC"}},
		CategoryID: 2,
		Priority:   10,
		IsActive:   true,
	}}, testCategories)

	matches, err := engine.Evaluate(context.Background(), model.Transaction{
		Description:  "Card purchase",
		MerchantName: "ADNOC Station",
	})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "Fuel", matches[0].Category.Name)
	assert.Equal(t, 90, matches[0].Confidence)
	assert.Equal(t, model.ReasonRuleBased, matches[0].Source)
	assert.Equal(t, "ADNOC is fuel", matches[0].Reasons[0].Evidence)
}

func TestMatches_Conditions(t *testing.T) {
	txn := model.Transaction{
		Description:  "MONTHLY RENT payment",
		MerchantName: "Emaar Properties",
		Amount:       decimal.RequireFromString("-5000.00"),
	}

	tests := []struct {
		name       string
		conditions []model.RuleCondition
		want       bool
	}{
		{name: "description contains", conditions: []model.RuleCondition{model.DescriptionContains{Text: "rent"}}, want: true},
		{name: "description missing", conditions: []model.RuleCondition{model.DescriptionContains{Text: "salary"}}, want: false},
		{name: "merchant equals folded", conditions: []model.RuleCondition{model.MerchantEquals{Text: " emaar properties "}}, want: true},
		{name: "merchant equals collapses whitespace", conditions: []model.RuleCondition{model.MerchantEquals{Text: "EMAAR   Properties"}}, want: true},
		{name: "merchant equals partial", conditions: []model.RuleCondition{model.MerchantEquals{Text: "emaar"}}, want: false},
		{name: "merchant contains", conditions: []model.RuleCondition{model.MerchantContains{Text: "EMAAR"}}, want: true},
		{name: "empty text never matches", conditions: []model.RuleCondition{model.MerchantContains{Text: ""}}, want: false},
		{name: "amount greater", conditions: []model.RuleCondition{model.AmountGreaterThan{Amount: "4999.99"}}, want: true},
		{name: "amount greater boundary", conditions: []model.RuleCondition{model.AmountGreaterThan{Amount: "5000"}}, want: false},
		{name: "amount less", conditions: []model.RuleCondition{model.AmountLessThan{Amount: "6000"}}, want: true},
		{name: "amount equals", conditions: []model.RuleCondition{model.AmountEquals{Amount: "5000.0"}}, want: true},
		{name: "non numeric amount fails", conditions: []model.RuleCondition{model.AmountGreaterThan{Amount: "lots"}}, want: false},
		{name: "missing amount fails", conditions: []model.RuleCondition{model.AmountLessThan{Amount: ""}}, want: false},
		{
			name: "all conditions must hold",
			conditions: []model.RuleCondition{
				model.DescriptionContains{Text: "rent"},
				model.AmountLessThan{Amount: "100"},
			},
			want: false,
		},
		{
			name: "conjunction holds",
			conditions: []model.RuleCondition{
				model.DescriptionContains{Text: "rent"},
				model.MerchantContains{Text: "emaar"},
				model.AmountGreaterThan{Amount: "1000"},
			},
			want: true,
		},
		{name: "no conditions", conditions: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := model.CategorizationRule{Name: tt.name, Conditions: tt.conditions, CategoryID: 3, IsActive: true}
			assert.Equal(t, tt.want, Matches(rule, txn))
		})
	}
}

func TestEngine_SkipsBrokenRules(t *testing.T) {
	rules := []model.CategorizationRule{
		{
			ID:         1,
			Name:       "malformed",
			Conditions: model.DecodeConditions([]byte(`[{"type":"MERCHANT_SOUNDS_LIKE","value":"adnoc"}]`)),
			CategoryID: 2,
			IsActive:   true,
		},
		{ID: 2, Name: "empty", CategoryID: 2, IsActive: true},
		{
			ID:         3,
			Name:       "unknown category",
			Conditions: []model.RuleCondition{model.MerchantContains{Text: "adnoc"}},
			CategoryID: 99,
			IsActive:   true,
		},
		{
			ID:         4,
			Name:       "inactive",
			Conditions: []model.RuleCondition{model.MerchantContains{Text: "adnoc"}},
			CategoryID: 2,
		},
		{
			ID:         5,
			Name:       "good",
			Conditions: []model.RuleCondition{model.MerchantContains{Text: "adnoc"}},
			CategoryID: 2,
			IsActive:   true,
		},
	}

	engine := NewEngine(rules, testCategories)
	require.Len(t, engine.Skipped(), 3)
	assert.ErrorIs(t, engine.Skipped()[0].Err, common.ErrInvalidRule)
	assert.ErrorIs(t, engine.Skipped()[1].Err, common.ErrInvalidRule)
	assert.ErrorIs(t, engine.Skipped()[2].Err, common.ErrCategoryNotFound)

	matches, err := engine.Evaluate(context.Background(), model.Transaction{MerchantName: "ADNOC"})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "good", matches[0].Reasons[0].Evidence)
	assert.Equal(t, 80, matches[0].Confidence)
}

func TestEngine_CreationOrderAndClamp(t *testing.T) {
	cond := []model.RuleCondition{model.DescriptionContains{Text: "coffee"}}
	engine := NewEngine([]model.CategorizationRule{
		{ID: 7, Name: "later", Conditions: cond, CategoryID: 3, Priority: 5, IsActive: true},
		{ID: 2, Name: "earlier", Conditions: cond, CategoryID: 1, Priority: 5, IsActive: true},
		{ID: 9, Name: "huge", Conditions: cond, CategoryID: 2, Priority: 500, IsActive: true},
		{ID: 10, Name: "negative", Conditions: cond, CategoryID: 2, Priority: -200, IsActive: true},
	}, testCategories)

	matches, err := engine.Evaluate(context.Background(), model.Transaction{Description: "Coffee"})
	require.NoError(t, err)
	require.Len(t, matches, 4)
	assert.Equal(t, "earlier", matches[0].Reasons[0].Evidence)
	assert.Equal(t, "later", matches[1].Reasons[0].Evidence)
	assert.Equal(t, 100, matches[2].Confidence)
	assert.Equal(t, 0, matches[3].Confidence)
}
