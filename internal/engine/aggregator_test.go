package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-categorizer/internal/model"
)

func candidate(id int, name string, source model.MatchReasonType, confidence int) model.CategoryMatch {
	return model.CategoryMatch{
		Category:   model.Category{ID: id, Name: name},
		Source:     source,
		Confidence: confidence,
		Reasons:    []model.MatchReason{{Type: source, Evidence: name, Confidence: confidence}},
	}
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name    string
		sources []model.CategoryMatches
		want    []int
		check   func(t *testing.T, got model.CategoryMatches)
	}{
		{
			name: "empty input",
			want: nil,
		},
		{
			name: "highest confidence first",
			sources: []model.CategoryMatches{
				{candidate(1, "Food", model.ReasonKeyword, 75)},
				{candidate(2, "Fuel", model.ReasonMerchantPattern, 80)},
			},
			want: []int{2, 1},
		},
		{
			name: "one entry per category keeps max confidence and all reasons",
			sources: []model.CategoryMatches{
				{candidate(1, "Fuel", model.ReasonRuleBased, 90)},
				{candidate(1, "Fuel", model.ReasonMerchantPattern, 80)},
				{candidate(1, "Fuel", model.ReasonKeyword, 95)},
			},
			want: []int{1},
			check: func(t *testing.T, got model.CategoryMatches) {
				t.Helper()
				assert.Equal(t, 95, got[0].Confidence)
				assert.Equal(t, model.ReasonKeyword, got[0].Source)
				assert.Len(t, got[0].Reasons, 3)
			},
		},
		{
			name: "equal confidence prefers the more specific signal",
			sources: []model.CategoryMatches{
				{candidate(1, "Food", model.ReasonKeyword, 80)},
				{candidate(2, "Shopping", model.ReasonLearnedMerchant, 80)},
				{candidate(3, "Fuel", model.ReasonRuleBased, 80)},
			},
			want: []int{3, 2, 1},
		},
		{
			name: "equal confidence on one category keeps the higher ranked source",
			sources: []model.CategoryMatches{
				{candidate(1, "Food", model.ReasonKeyword, 80)},
				{candidate(1, "Food", model.ReasonRuleBased, 80)},
			},
			want: []int{1},
			check: func(t *testing.T, got model.CategoryMatches) {
				t.Helper()
				assert.Equal(t, model.ReasonRuleBased, got[0].Source)
			},
		},
		{
			name: "full tie keeps input order",
			sources: []model.CategoryMatches{
				{
					candidate(4, "First rule", model.ReasonRuleBased, 85),
					candidate(2, "Second rule", model.ReasonRuleBased, 85),
				},
			},
			want: []int{4, 2},
		},
		{
			name: "confidence is clamped",
			sources: []model.CategoryMatches{
				{candidate(1, "Food", model.ReasonRuleBased, 130)},
			},
			want: []int{1},
			check: func(t *testing.T, got model.CategoryMatches) {
				t.Helper()
				assert.Equal(t, 100, got[0].Confidence)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Aggregate(tt.sources...)

			var ids []int
			for _, match := range got {
				ids = append(ids, match.Category.ID)
			}
			require.Equal(t, tt.want, ids)
			if tt.check != nil {
				tt.check(t, got)
			}
		})
	}
}

func TestAggregate_DoesNotAliasInputReasons(t *testing.T) {
	first := model.CategoryMatches{candidate(1, "Food", model.ReasonKeyword, 75)}
	second := model.CategoryMatches{candidate(1, "Food", model.ReasonRuleBased, 80)}

	got := Aggregate(first, second)

	require.Len(t, got, 1)
	assert.Len(t, got[0].Reasons, 2)
	assert.Len(t, first[0].Reasons, 1)
}
