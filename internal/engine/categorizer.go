package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/spice-categorizer/internal/catalog"
	"github.com/Veraticus/spice-categorizer/internal/common"
	"github.com/Veraticus/spice-categorizer/internal/learning"
	"github.com/Veraticus/spice-categorizer/internal/model"
	"github.com/Veraticus/spice-categorizer/internal/pattern"
	"github.com/Veraticus/spice-categorizer/internal/rules"
	"github.com/Veraticus/spice-categorizer/internal/service"
)

// ManualConfidence is recorded on manual and bulk commits.
const ManualConfidence = 100

// Config holds configuration for the categorizer.
type Config struct {
	// Progress is called after each transaction of a sweep.
	Progress func(done, total int)
	// AutoApplyThreshold is the confidence at or above which the best match
	// is committed without review.
	AutoApplyThreshold int
	// SuggestionLimit caps Suggest when the caller passes no limit.
	SuggestionLimit int
	// Workers bounds concurrent categorizations during a sweep.
	Workers int
	// SeedKeywords adds keywords from manually categorized descriptions to
	// the chosen category.
	SeedKeywords bool
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		AutoApplyThreshold: 80,
		SuggestionLimit:    5,
		Workers:            4,
		SeedKeywords:       true,
	}
}

// Outcome describes what Categorize did with its best match.
type Outcome string

// Categorization outcomes.
const (
	OutcomeCommitted Outcome = "committed"
	OutcomeSuggested Outcome = "suggested"
	// OutcomeKept means the transaction already carried a different category
	// and was left alone.
	OutcomeKept    Outcome = "kept"
	OutcomeNoMatch Outcome = "no_match"
)

// Decision is the result of categorizing one transaction.
type Decision struct {
	Match   model.CategoryMatch
	Matches model.CategoryMatches
	Outcome Outcome
}

// SweepSummary provides statistics about an uncategorized sweep.
type SweepSummary struct {
	TotalTransactions int
	Processed         int
	Committed         int
	Suggested         int
	NoMatch           int
	Kept              int
	Failed            int
	ProcessingTime    time.Duration
}

// Categorizer combines rules, learned merchants, and text patterns into
// category decisions and applies them to stored transactions.
type Categorizer struct {
	storage  service.Storage
	learning *learning.Store
	recorder Recorder
	config   Config
}

// New creates a categorizer with the default configuration.
func New(storage service.Storage, store *learning.Store) *Categorizer {
	return NewWithConfig(storage, store, DefaultConfig())
}

// NewWithConfig creates a categorizer. Zero-valued limits take their defaults.
func NewWithConfig(storage service.Storage, store *learning.Store, config Config) *Categorizer {
	defaults := DefaultConfig()
	if config.AutoApplyThreshold <= 0 {
		config.AutoApplyThreshold = defaults.AutoApplyThreshold
	}
	if config.SuggestionLimit <= 0 {
		config.SuggestionLimit = defaults.SuggestionLimit
	}
	if config.Workers <= 0 {
		config.Workers = defaults.Workers
	}
	config.AutoApplyThreshold = model.ClampConfidence(config.AutoApplyThreshold)

	slog.Info("Created categorizer",
		"auto_apply_threshold", config.AutoApplyThreshold,
		"suggestion_limit", config.SuggestionLimit,
		"workers", config.Workers)

	return &Categorizer{
		storage:  storage,
		learning: store,
		recorder: nopRecorder{},
		config:   config,
	}
}

// SetRecorder installs a recorder for categorization events.
func (c *Categorizer) SetRecorder(r Recorder) {
	if r == nil {
		r = nopRecorder{}
	}
	c.recorder = r
}

// snapshot is the catalog and rule set one operation works against.
type snapshot struct {
	catalog *catalog.Catalog
	rules   *rules.Engine
	matcher pattern.Matcher
}

func (c *Categorizer) loadSnapshot(ctx context.Context) (*snapshot, error) {
	categories, err := c.storage.GetCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	activeRules, err := c.storage.GetActiveRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}

	cat := catalog.New(categories)
	engine := rules.NewEngine(activeRules, cat)
	if skipped := engine.Skipped(); len(skipped) > 0 {
		c.recorder.RulesSkipped(len(skipped))
	}

	return &snapshot{
		catalog: cat,
		rules:   engine,
		matcher: pattern.NewMatcher(cat.Categories()),
	}, nil
}

// rank gathers every signal for txn and reconciles them.
func (c *Categorizer) rank(ctx context.Context, snap *snapshot, txn model.Transaction) (model.CategoryMatches, error) {
	var ruleMatches, learned, patterns model.CategoryMatches

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ruleMatches, err = snap.rules.Evaluate(gctx, txn)
		return err
	})
	g.Go(func() error {
		var err error
		learned, err = c.learning.Match(gctx, txn, snap.catalog)
		return err
	})
	g.Go(func() error {
		var err error
		patterns, err = snap.matcher.Match(gctx, txn)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return Aggregate(ruleMatches, learned, patterns), nil
}

// Categorize finds the best category for a stored transaction. A match at or
// above the auto-apply threshold is committed; a weaker one is recorded as a
// suggestion. It returns nil when nothing matches. A transaction that already
// has a category keeps it.
func (c *Categorizer) Categorize(ctx context.Context, txn model.Transaction) (*Decision, error) {
	snap, err := c.loadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	return c.categorize(ctx, snap, txn)
}

// CategorizeByID loads a transaction and categorizes it.
func (c *Categorizer) CategorizeByID(ctx context.Context, id string) (*Decision, error) {
	txn, err := c.storage.GetTransactionByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return c.Categorize(ctx, *txn)
}

func (c *Categorizer) categorize(ctx context.Context, snap *snapshot, txn model.Transaction) (*Decision, error) {
	matches, err := c.rank(ctx, snap, txn)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		c.recorder.Decision(OutcomeNoMatch)
		return nil, nil
	}

	decision := &Decision{Match: matches[0], Matches: matches}
	top := decision.Match

	switch {
	case txn.IsCategorized():
		decision.Outcome = OutcomeKept
		if *txn.CategoryID == top.Category.ID {
			decision.Outcome = OutcomeCommitted
		}

	case top.Confidence >= c.config.AutoApplyThreshold:
		applied, err := c.storage.CommitCategory(ctx, txn.ID, service.CategoryCommit{
			CategoryID:   top.Category.ID,
			CategoryName: top.Category.Name,
			By:           model.CategorizedByAuto,
			Confidence:   top.Confidence,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to commit category for %s: %w", txn.ID, err)
		}
		decision.Outcome = OutcomeCommitted
		if !applied {
			// The row was categorized after txn was read.
			stored, err := c.storage.GetTransactionByID(ctx, txn.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to reload %s: %w", txn.ID, err)
			}
			if stored.CategoryID == nil || *stored.CategoryID != top.Category.ID {
				decision.Outcome = OutcomeKept
			}
		}

	default:
		if _, err := c.storage.MarkSuggested(ctx, txn.ID, top.Category.ID, top.Confidence); err != nil {
			return nil, fmt.Errorf("failed to record suggestion for %s: %w", txn.ID, err)
		}
		decision.Outcome = OutcomeSuggested
	}

	slog.Debug("Categorized transaction",
		"transaction_id", txn.ID,
		"category", top.Category.Name,
		"confidence", top.Confidence,
		"source", top.Source,
		"outcome", decision.Outcome)
	c.recorder.Decision(decision.Outcome)
	return decision, nil
}

// Suggest returns up to limit ranked candidates without changing anything.
// A limit of zero or less uses the configured suggestion limit.
func (c *Categorizer) Suggest(ctx context.Context, txn model.Transaction, limit int) (model.CategoryMatches, error) {
	if limit <= 0 {
		limit = c.config.SuggestionLimit
	}

	snap, err := c.loadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	matches, err := c.rank(ctx, snap, txn)
	if err != nil {
		return nil, err
	}
	return matches.TopN(limit), nil
}

// ManualCategorize commits the user's choice and teaches the learning store
// in the same storage transaction. Confidence outside (0, 100] is recorded
// as ManualConfidence.
func (c *Categorizer) ManualCategorize(ctx context.Context, transactionID string, categoryID int, subcategory string, confidence int) (learning.Outcome, error) {
	txn, err := c.storage.GetTransactionByID(ctx, transactionID)
	if err != nil {
		return "", err
	}
	category, err := c.storage.GetCategoryByID(ctx, categoryID)
	if err != nil {
		return "", err
	}
	if confidence <= 0 || confidence > model.MaxConfidence {
		confidence = ManualConfidence
	}

	merchant := learning.MerchantName(*txn)
	var outcome learning.Outcome
	err = c.learning.WithMerchantLock(merchant, func() error {
		tx, err := c.storage.BeginTx(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.CommitCategory(ctx, transactionID, service.CategoryCommit{
			CategoryID:      category.ID,
			CategoryName:    category.Name,
			SubcategoryName: subcategory,
			By:              model.CategorizedByManual,
			Confidence:      confidence,
		}); err != nil {
			return err
		}

		outcome, err = c.learning.LearnTx(ctx, tx, merchant, category.ID, true)
		if err != nil {
			return err
		}

		if c.config.SeedKeywords {
			if keywords := learning.ExtractKeywords(txn.Description); len(keywords) > 0 {
				if err := tx.AddCategoryKeywords(ctx, category.ID, keywords); err != nil {
					return fmt.Errorf("failed to seed keywords: %w", err)
				}
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit manual categorization: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	slog.Info("Manually categorized transaction",
		"transaction_id", transactionID,
		"category", category.Name,
		"merchant", merchant,
		"learning", outcome)
	c.recorder.Learned(outcome)
	return outcome, nil
}

// RejectSuggestion records that categoryID is wrong for the transaction's
// merchant and clears a matching pending suggestion.
func (c *Categorizer) RejectSuggestion(ctx context.Context, transactionID string, categoryID int) (learning.Outcome, error) {
	txn, err := c.storage.GetTransactionByID(ctx, transactionID)
	if err != nil {
		return "", err
	}
	if _, err := c.storage.GetCategoryByID(ctx, categoryID); err != nil {
		return "", err
	}

	merchant := learning.MerchantName(*txn)
	var outcome learning.Outcome
	err = c.learning.WithMerchantLock(merchant, func() error {
		tx, err := c.storage.BeginTx(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		outcome, err = c.learning.LearnTx(ctx, tx, merchant, categoryID, false)
		if err != nil {
			return err
		}
		if txn.Status == model.StatusSuggested && txn.SuggestedCategoryID != nil && *txn.SuggestedCategoryID == categoryID {
			if err := tx.ClearSuggestion(ctx, transactionID); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return "", err
	}

	c.recorder.Learned(outcome)
	return outcome, nil
}

// BulkCategorize assigns one category to every listed transaction, or to none
// of them if any id is unknown. It does not train the learning store.
func (c *Categorizer) BulkCategorize(ctx context.Context, transactionIDs []string, categoryID int) (int, error) {
	ids := dedupe(transactionIDs)
	if len(ids) == 0 {
		return 0, common.ErrNoTransactions
	}

	category, err := c.storage.GetCategoryByID(ctx, categoryID)
	if err != nil {
		return 0, err
	}

	if err := c.storage.CommitCategories(ctx, ids, service.CategoryCommit{
		CategoryID:   category.ID,
		CategoryName: category.Name,
		By:           model.CategorizedByBulk,
		Confidence:   ManualConfidence,
	}); err != nil {
		return 0, err
	}

	slog.Info("Bulk categorized transactions", "count", len(ids), "category", category.Name)
	return len(ids), nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	result := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}

// AutoCategorizeUncategorized categorizes every transaction without a
// committed category using a bounded worker pool. Failures on individual
// transactions are counted and do not stop the sweep. On cancellation it
// returns the partial summary with the context error.
func (c *Categorizer) AutoCategorizeUncategorized(ctx context.Context) (*SweepSummary, error) {
	start := time.Now()

	snap, err := c.loadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	txns, err := c.storage.GetUncategorizedTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load uncategorized transactions: %w", err)
	}

	summary := &SweepSummary{TotalTransactions: len(txns)}
	slog.Info("Starting categorization sweep",
		"transactions", len(txns),
		"workers", c.config.Workers)

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(c.config.Workers)

	for _, txn := range txns {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			decision, err := c.categorize(ctx, snap, txn)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return nil
				}
				summary.Failed++
				slog.Warn("Failed to categorize transaction", "transaction_id", txn.ID, "error", err)
			case decision == nil:
				summary.NoMatch++
			case decision.Outcome == OutcomeCommitted:
				summary.Committed++
			case decision.Outcome == OutcomeSuggested:
				summary.Suggested++
			default:
				summary.Kept++
			}
			summary.Processed++
			if c.config.Progress != nil {
				c.config.Progress(summary.Processed, summary.TotalTransactions)
			}
			return nil
		})
	}
	_ = g.Wait()

	summary.ProcessingTime = time.Since(start)
	c.recorder.Sweep(*summary)

	slog.Info("Categorization sweep finished",
		"processed", summary.Processed,
		"committed", summary.Committed,
		"suggested", summary.Suggested,
		"no_match", summary.NoMatch,
		"failed", summary.Failed,
		"duration", summary.ProcessingTime)

	if err := ctx.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}
