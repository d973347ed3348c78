// Package pattern produces keyword and merchant-pattern category matches.
package pattern

import (
	"context"

	"github.com/Veraticus/spice-categorizer/internal/model"
)

// Matcher evaluates transactions against the text signals of a category snapshot.
type Matcher interface {
	// Match returns every keyword and merchant-pattern match for the
	// transaction, unranked. A category may appear once per signal kind.
	Match(ctx context.Context, txn model.Transaction) (model.CategoryMatches, error)
}

// Confidence formula parameters.
const (
	keywordBase         = 60
	keywordStep         = 15
	keywordCap          = 95
	merchantPatternBase = 70
	merchantPatternStep = 10
	merchantPatternCap  = 90
)

// KeywordConfidence is the confidence of a keyword match on n keywords.
func KeywordConfidence(n int) int {
	return model.ClampConfidence(min(keywordCap, keywordBase+keywordStep*n))
}

// MerchantPatternConfidence is the confidence of a merchant-pattern match on n patterns.
func MerchantPatternConfidence(n int) int {
	return model.ClampConfidence(min(merchantPatternCap, merchantPatternBase+merchantPatternStep*n))
}
