package pattern

import (
	"context"
	"strings"

	"github.com/Veraticus/spice-categorizer/internal/common"
	"github.com/Veraticus/spice-categorizer/internal/model"
)

// Ensure MatcherImpl implements Matcher interface.
var _ Matcher = (*MatcherImpl)(nil)

// MatcherImpl implements Matcher over a fixed set of categories.
type MatcherImpl struct {
	categories []compiledCategory
}

type compiledCategory struct {
	keywords []term
	patterns []term
	category model.Category
}

// term keeps the original spelling for evidence next to its folded form.
type term struct {
	raw    string
	folded string
}

// NewMatcher creates a matcher for the given categories.
func NewMatcher(categories []model.Category) *MatcherImpl {
	m := &MatcherImpl{
		categories: make([]compiledCategory, 0, len(categories)),
	}

	// Pre-fold keywords and patterns
	for _, cat := range categories {
		compiled := compiledCategory{
			category: cat,
			keywords: compileTerms(cat.Keywords),
			patterns: compileTerms(cat.MerchantPatterns),
		}
		if len(compiled.keywords) == 0 && len(compiled.patterns) == 0 {
			continue
		}
		m.categories = append(m.categories, compiled)
	}

	return m
}

func compileTerms(values []string) []term {
	terms := make([]term, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		folded := common.Fold(strings.TrimSpace(v))
		if folded == "" || seen[folded] {
			continue
		}
		seen[folded] = true
		terms = append(terms, term{raw: v, folded: folded})
	}
	return terms
}

// Match returns keyword and merchant-pattern matches for the transaction.
func (m *MatcherImpl) Match(ctx context.Context, txn model.Transaction) (model.CategoryMatches, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	text := common.Fold(txn.Description + " " + txn.MerchantName)
	merchant := common.Fold(txn.MerchantName)

	var matches model.CategoryMatches
	for _, cat := range m.categories {
		if match, ok := keywordMatch(cat, text); ok {
			matches = append(matches, match)
		}
		if match, ok := merchantPatternMatch(cat, merchant); ok {
			matches = append(matches, match)
		}
	}

	return matches, nil
}

// keywordMatch counts category keywords found in the folded description and merchant text.
func keywordMatch(cat compiledCategory, text string) (model.CategoryMatch, bool) {
	hits := findTerms(cat.keywords, text)
	if len(hits) == 0 {
		return model.CategoryMatch{}, false
	}
	return buildMatch(cat.category, model.ReasonKeyword, KeywordConfidence(len(hits)), hits), true
}

// merchantPatternMatch counts category merchant patterns found in the folded merchant name.
func merchantPatternMatch(cat compiledCategory, merchant string) (model.CategoryMatch, bool) {
	if merchant == "" {
		return model.CategoryMatch{}, false
	}
	hits := findTerms(cat.patterns, merchant)
	if len(hits) == 0 {
		return model.CategoryMatch{}, false
	}
	return buildMatch(cat.category, model.ReasonMerchantPattern, MerchantPatternConfidence(len(hits)), hits), true
}

func findTerms(terms []term, text string) []term {
	var hits []term
	for _, t := range terms {
		if strings.Contains(text, t.folded) {
			hits = append(hits, t)
		}
	}
	return hits
}

func buildMatch(cat model.Category, reason model.MatchReasonType, confidence int, hits []term) model.CategoryMatch {
	reasons := make([]model.MatchReason, 0, len(hits))
	for _, hit := range hits {
		reasons = append(reasons, model.MatchReason{
			Type:       reason,
			Evidence:   hit.raw,
			Confidence: confidence,
		})
	}
	return model.CategoryMatch{
		Category:   cat,
		Confidence: confidence,
		Source:     reason,
		Reasons:    reasons,
	}
}
