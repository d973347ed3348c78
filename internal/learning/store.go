package learning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/spice-categorizer/internal/common"
	"github.com/Veraticus/spice-categorizer/internal/model"
	"github.com/Veraticus/spice-categorizer/internal/service"
)

// Default learning parameters.
const (
	DefaultRate              = 0.25
	DefaultInitialConfidence = 80
)

// MappingRepository reads and writes merchant mappings.
type MappingRepository interface {
	GetMerchantMapping(ctx context.Context, normalizedName string) (*model.MerchantMapping, error)
	SaveMerchantMapping(ctx context.Context, mapping *model.MerchantMapping) error
	DeactivateMerchantMapping(ctx context.Context, normalizedName string) error
}

// Storage is the persistence the store needs: mapping access plus transactions.
type Storage interface {
	MappingRepository
	BeginTx(ctx context.Context) (service.Transaction, error)
}

// CategoryLookup resolves category ids against the current snapshot.
type CategoryLookup interface {
	Get(id int) (model.Category, bool)
}

// Outcome describes what a call to Learn did to the mapping.
type Outcome string

// Learning outcomes.
const (
	OutcomeCreated    Outcome = "created"
	OutcomeReinforced Outcome = "reinforced"
	OutcomeCorrected  Outcome = "corrected"
	OutcomeWeakened   Outcome = "weakened"
	OutcomeIgnored    Outcome = "ignored"
)

// Options configures a Store.
type Options struct {
	Now               func() time.Time
	Rate              float64
	InitialConfidence int
}

// Store is the merchant learning store. Learning for one merchant is
// serialized; unrelated merchants never contend.
type Store struct {
	storage Storage
	locks   *keyedMutex
	opts    Options
}

// NewStore creates a learning store. Zero options take their defaults.
func NewStore(storage Storage, opts Options) *Store {
	if opts.Rate <= 0 || opts.Rate > 1 {
		opts.Rate = DefaultRate
	}
	if opts.InitialConfidence <= 0 {
		opts.InitialConfidence = DefaultInitialConfidence
	}
	opts.InitialConfidence = model.ClampConfidence(opts.InitialConfidence)
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{
		storage: storage,
		locks:   newKeyedMutex(),
		opts:    opts,
	}
}

// Lookup returns the active mapping for a merchant name, or nil if none exists.
func (s *Store) Lookup(ctx context.Context, merchantName string) (*model.MerchantMapping, error) {
	key := Normalize(merchantName)
	if key == "" {
		return nil, nil
	}

	mapping, err := s.storage.GetMerchantMapping(ctx, key)
	if errors.Is(err, common.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up merchant %q: %w", key, err)
	}
	if !mapping.IsActive {
		return nil, nil
	}
	return mapping, nil
}

// Match turns the learned mapping for a transaction's merchant into a
// candidate. Mappings pointing outside the snapshot or with no remaining
// confidence produce nothing.
func (s *Store) Match(ctx context.Context, txn model.Transaction, categories CategoryLookup) (model.CategoryMatches, error) {
	mapping, err := s.Lookup(ctx, MerchantName(txn))
	if err != nil || mapping == nil {
		return nil, err
	}
	if mapping.Confidence <= model.MinConfidence {
		return nil, nil
	}

	category, ok := categories.Get(mapping.CategoryID)
	if !ok {
		slog.Debug("Learned merchant points to unavailable category",
			"merchant", mapping.NormalizedName,
			"category_id", mapping.CategoryID)
		return nil, nil
	}

	confidence := model.ClampConfidence(mapping.Confidence)
	return model.CategoryMatches{{
		Category:   category,
		Confidence: confidence,
		Source:     model.ReasonLearnedMerchant,
		Reasons: []model.MatchReason{{
			Type:       model.ReasonLearnedMerchant,
			Evidence:   mapping.MerchantName,
			Confidence: confidence,
		}},
	}}, nil
}

// WithMerchantLock runs fn while holding the learning lock for a merchant.
// Take it before beginning any storage transaction that calls LearnTx.
func (s *Store) WithMerchantLock(merchantName string, fn func() error) error {
	unlock := s.locks.Lock(Normalize(merchantName))
	defer unlock()
	return fn()
}

// Learn records that the user accepted or rejected categoryID for a merchant.
func (s *Store) Learn(ctx context.Context, merchantName string, categoryID int, accepted bool) (Outcome, error) {
	if Normalize(merchantName) == "" {
		return OutcomeIgnored, nil
	}

	var outcome Outcome
	err := s.WithMerchantLock(merchantName, func() error {
		tx, err := s.storage.BeginTx(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		outcome, err = s.LearnTx(ctx, tx, merchantName, categoryID, accepted)
		if err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit learning: %w", err)
		}
		return nil
	})
	return outcome, err
}

// LearnTx is Learn against a caller-provided repository, usually a storage
// transaction that also commits the category. The caller must hold the
// merchant lock (see WithMerchantLock).
func (s *Store) LearnTx(ctx context.Context, repo MappingRepository, merchantName string, categoryID int, accepted bool) (Outcome, error) {
	key := Normalize(merchantName)
	if key == "" {
		return OutcomeIgnored, nil
	}

	existing, err := repo.GetMerchantMapping(ctx, key)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return "", fmt.Errorf("failed to load merchant mapping %q: %w", key, err)
	}
	var retired *model.MerchantMapping
	if existing != nil && !existing.IsActive {
		retired, existing = existing, nil
	}

	mapping, outcome := s.apply(existing, merchantName, key, categoryID, accepted)
	if outcome == OutcomeIgnored {
		return outcome, nil
	}
	if retired != nil {
		// Revive the retired row rather than replacing it.
		mapping.ID = retired.ID
		mapping.CreatedAt = retired.CreatedAt
		mapping.AlternativeNames = append([]string(nil), retired.AlternativeNames...)
	}

	if err := repo.SaveMerchantMapping(ctx, mapping); err != nil {
		return "", fmt.Errorf("failed to save merchant mapping %q: %w", key, err)
	}

	slog.Debug("Learned merchant feedback",
		"merchant", key,
		"category_id", mapping.CategoryID,
		"outcome", outcome,
		"confidence", mapping.Confidence)
	return outcome, nil
}

// apply computes the next state of a mapping. It never mutates existing.
func (s *Store) apply(existing *model.MerchantMapping, merchantName, key string, categoryID int, accepted bool) (*model.MerchantMapping, Outcome) {
	now := s.opts.Now()

	if existing == nil {
		if !accepted {
			return nil, OutcomeIgnored
		}
		return &model.MerchantMapping{
			ID:                 uuid.NewString(),
			MerchantName:       merchantName,
			NormalizedName:     key,
			CategoryID:         categoryID,
			Confidence:         s.opts.InitialConfidence,
			Source:             model.SourceUserConfirmed,
			SuccessfulMappings: 1,
			LastUsedAt:         now,
			CreatedAt:          now,
			IsActive:           true,
		}, OutcomeCreated
	}

	next := *existing
	next.AlternativeNames = append([]string(nil), existing.AlternativeNames...)
	next.LastUsedAt = now

	switch {
	case accepted && existing.CategoryID == categoryID:
		next.SuccessfulMappings++
		next.Confidence = raise(existing.Confidence, s.opts.Rate)
		next.AddAlternativeName(merchantName)
		return &next, OutcomeReinforced

	case accepted:
		// A new category starts its own record.
		next.SuccessfulMappings = 1
		next.FailedMappings = 0
		next.CategoryID = categoryID
		next.Confidence = s.opts.InitialConfidence
		next.Source = model.SourceUserConfirmed
		next.AddAlternativeName(merchantName)
		return &next, OutcomeCorrected

	case existing.CategoryID == categoryID:
		next.FailedMappings++
		next.Confidence = lower(existing.Confidence, s.opts.Rate)
		return &next, OutcomeWeakened
	}

	return nil, OutcomeIgnored
}

// raise moves confidence part of the way toward the maximum.
func raise(confidence int, rate float64) int {
	confidence = model.ClampConfidence(confidence)
	step := int(math.Ceil(float64(model.MaxConfidence-confidence) * rate))
	return model.ClampConfidence(confidence + step)
}

// lower moves confidence part of the way toward the minimum.
func lower(confidence int, rate float64) int {
	confidence = model.ClampConfidence(confidence)
	step := int(math.Ceil(float64(confidence-model.MinConfidence) * rate))
	return model.ClampConfidence(confidence - step)
}

// Deactivate hides a merchant's mapping from lookups while keeping it for history.
func (s *Store) Deactivate(ctx context.Context, merchantName string) error {
	key := Normalize(merchantName)
	if key == "" {
		return fmt.Errorf("%w: merchant name is empty", common.ErrNotFound)
	}
	unlock := s.locks.Lock(key)
	defer unlock()

	if err := s.storage.DeactivateMerchantMapping(ctx, key); err != nil {
		return fmt.Errorf("failed to deactivate merchant %q: %w", key, err)
	}
	return nil
}
