package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-categorizer/internal/common"
	"github.com/Veraticus/spice-categorizer/internal/model"
)

func TestSQLiteStorage_MerchantMappings(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	food := createTestCategory(t, store, "Food", nil)
	now := time.Date(2025, 2, 1, 9, 30, 0, 0, time.UTC)

	mapping := &model.MerchantMapping{
		ID:                 "b3a4a6f2-6a43-4d8e-9a6e-2f1c1f0e8a11",
		MerchantName:       "Al Danube",
		NormalizedName:     "al danube",
		CategoryID:         food.ID,
		Confidence:         80,
		Source:             model.SourceUserConfirmed,
		SuccessfulMappings: 1,
		LastUsedAt:         now,
		CreatedAt:          now,
		IsActive:           true,
	}
	require.NoError(t, store.SaveMerchantMapping(ctx, mapping))

	got, err := store.GetMerchantMapping(ctx, "al danube")
	require.NoError(t, err)
	assert.Equal(t, "Al Danube", got.MerchantName)
	assert.Equal(t, 80, got.Confidence)
	assert.Empty(t, got.AlternativeNames)
	assert.True(t, got.LastUsedAt.Equal(now))

	// Upsert on the normalized name.
	mapping.Confidence = 85
	mapping.SuccessfulMappings = 2
	mapping.AlternativeNames = []string{"AL DANUBE"}
	require.NoError(t, store.SaveMerchantMapping(ctx, mapping))

	got, err = store.GetMerchantMapping(ctx, "al danube")
	require.NoError(t, err)
	assert.Equal(t, 85, got.Confidence)
	assert.Equal(t, 2, got.SuccessfulMappings)
	assert.Equal(t, []string{"AL DANUBE"}, got.AlternativeNames)

	all, err := store.GetMerchantMappings(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, store.DeactivateMerchantMapping(ctx, "al danube"))
	got, err = store.GetMerchantMapping(ctx, "al danube")
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	_, err = store.GetMerchantMapping(ctx, "nobody")
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.ErrorIs(t, store.DeactivateMerchantMapping(ctx, "nobody"), common.ErrNotFound)
}

func TestSQLiteStorage_SaveMerchantMapping_Invalid(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	valid := func() *model.MerchantMapping {
		return &model.MerchantMapping{
			ID:             "id-1",
			NormalizedName: "careem",
			CategoryID:     1,
			Confidence:     50,
			Source:         model.SourceAutoDetected,
		}
	}

	tests := []struct {
		mutate func(m *model.MerchantMapping)
		name   string
	}{
		{name: "missing id", mutate: func(m *model.MerchantMapping) { m.ID = "" }},
		{name: "missing key", mutate: func(m *model.MerchantMapping) { m.NormalizedName = " " }},
		{name: "bad source", mutate: func(m *model.MerchantMapping) { m.Source = "GUESS" }},
		{name: "confidence high", mutate: func(m *model.MerchantMapping) { m.Confidence = 101 }},
		{name: "confidence low", mutate: func(m *model.MerchantMapping) { m.Confidence = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := valid()
			tt.mutate(m)
			assert.ErrorIs(t, store.SaveMerchantMapping(ctx, m), ErrInvalidMapping)
		})
	}
}
