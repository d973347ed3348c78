package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Veraticus/spice-categorizer/internal/catalog"
	"github.com/Veraticus/spice-categorizer/internal/cli"
	"github.com/Veraticus/spice-categorizer/internal/common"
	"github.com/Veraticus/spice-categorizer/internal/config"
	"github.com/Veraticus/spice-categorizer/internal/engine"
	"github.com/Veraticus/spice-categorizer/internal/learning"
	"github.com/Veraticus/spice-categorizer/internal/metrics"
	"github.com/Veraticus/spice-categorizer/internal/model"
	"github.com/Veraticus/spice-categorizer/internal/service"
	"github.com/Veraticus/spice-categorizer/internal/storage"
)

// app bundles the long-lived pieces a command needs.
type app struct {
	cfg         *config.Config
	storage     *storage.SQLiteStorage
	learning    *learning.Store
	categorizer *engine.Categorizer
	metrics     *metrics.Recorder
}

// initStorage opens the configured database and brings its schema up to date.
func initStorage(ctx context.Context, cfg *config.Config) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

func openApp(ctx context.Context) (*app, error) {
	cfg := appConfig
	if cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}

	store, err := initStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}

	learner := learning.NewStore(store, learning.Options{
		Rate:              cfg.Learning.Rate,
		InitialConfidence: cfg.Learning.InitialConfidence,
	})
	categorizer := engine.NewWithConfig(store, learner, engine.Config{
		AutoApplyThreshold: cfg.Categorization.AutoApplyThreshold,
		SuggestionLimit:    cfg.Categorization.SuggestionLimit,
		Workers:            cfg.Sweep.Workers,
		SeedKeywords:       cfg.Learning.SeedKeywords,
	})

	a := &app{
		cfg:         cfg,
		storage:     store,
		learning:    learner,
		categorizer: categorizer,
	}
	if cfg.Metrics.Textfile != "" {
		a.metrics = metrics.NewRecorder()
		categorizer.SetRecorder(a.metrics)
	}
	return a, nil
}

// Close flushes metrics and closes the database.
func (a *app) Close() {
	if a.metrics != nil {
		if err := a.metrics.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
			slog.Warn("Failed to export metrics", "error", err)
		}
	}
	if err := a.storage.Close(); err != nil {
		slog.Warn("Failed to close database", "error", err)
	}
}

// resolveCategory accepts a category id or name.
func resolveCategory(ctx context.Context, repo service.Repository, ref string) (*model.Category, error) {
	var (
		category *model.Category
		err      error
	)
	if id, convErr := strconv.Atoi(ref); convErr == nil {
		category, err = repo.GetCategoryByID(ctx, id)
	} else {
		category, err = repo.GetCategoryByName(ctx, ref)
	}
	if common.IsNotFound(err) {
		return nil, common.NewUserError(fmt.Sprintf("no active category %q; see 'spice categories list'", ref), err)
	}
	return category, err
}

// parseCondition reads a rule condition written as kind=operand, for example
// merchant_contains=ADNOC or amount_greater_than=500.
func parseCondition(raw string) (model.RuleCondition, error) {
	kind, operand, ok := strings.Cut(raw, "=")
	if !ok || strings.TrimSpace(operand) == "" {
		return nil, fmt.Errorf("condition %q must look like kind=value", raw)
	}
	return model.NewCondition(model.ConditionKind(strings.TrimSpace(kind)), strings.TrimSpace(operand))
}

func describeCondition(cond model.RuleCondition) string {
	return fmt.Sprintf("%s=%s", strings.ToLower(string(cond.Kind())), cond.Operand())
}

func printMatches(w io.Writer, matches model.CategoryMatches, cat *catalog.Catalog, threshold int) {
	table := cli.NewTable("Category", "Confidence", "Source", "Evidence")
	for _, match := range matches {
		name := match.Category.Name
		if cat != nil {
			if path := cat.Path(match.Category.ID); path != "" {
				name = path
			}
		}
		table.Row(
			name,
			cli.FormatConfidence(match.Confidence, threshold),
			match.Source,
			evidence(match.Reasons))
	}
	fmt.Fprintln(w, table)
}

func evidence(reasons []model.MatchReason) string {
	parts := make([]string, 0, len(reasons))
	for _, reason := range reasons {
		parts = append(parts, fmt.Sprintf("%s:%s", strings.ToLower(string(reason.Type)), reason.Evidence))
	}
	return strings.Join(parts, ", ")
}

func loadCatalog(ctx context.Context, repo service.Repository) (*catalog.Catalog, error) {
	categories, err := repo.GetCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	return catalog.New(categories), nil
}
