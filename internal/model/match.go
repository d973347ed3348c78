package model

import (
	"fmt"
	"sort"
)

// MatchReasonType identifies which signal produced a match.
type MatchReasonType string

// Match reason types.
const (
	ReasonKeyword         MatchReasonType = "KEYWORD"
	ReasonMerchantPattern MatchReasonType = "MERCHANT_PATTERN"
	ReasonRuleBased       MatchReasonType = "RULE_BASED"
	ReasonLearnedMerchant MatchReasonType = "LEARNED_MERCHANT"
)

// Rank orders reason types by how specific the signal is. Higher wins ties.
func (t MatchReasonType) Rank() int {
	switch t {
	case ReasonRuleBased:
		return 4
	case ReasonLearnedMerchant:
		return 3
	case ReasonMerchantPattern:
		return 2
	case ReasonKeyword:
		return 1
	}
	return 0
}

// Confidence bounds.
const (
	MinConfidence = 0
	MaxConfidence = 100
)

// ClampConfidence forces c into [MinConfidence, MaxConfidence].
func ClampConfidence(c int) int {
	if c < MinConfidence {
		return MinConfidence
	}
	if c > MaxConfidence {
		return MaxConfidence
	}
	return c
}

// MatchReason is one piece of evidence for a category.
type MatchReason struct {
	Type       MatchReasonType
	Evidence   string
	Confidence int
}

// CategoryMatch is a candidate category for a transaction.
type CategoryMatch struct {
	Category   Category
	Source     MatchReasonType
	Reasons    []MatchReason
	Confidence int
}

// Validate ensures the match has usable data.
func (m *CategoryMatch) Validate() error {
	if m.Category.ID == 0 {
		return fmt.Errorf("category is required")
	}
	if m.Confidence < MinConfidence || m.Confidence > MaxConfidence {
		return fmt.Errorf("confidence must be between %d and %d, got %d", MinConfidence, MaxConfidence, m.Confidence)
	}
	if len(m.Reasons) == 0 {
		return fmt.Errorf("match for %q has no reasons", m.Category.Name)
	}
	return nil
}

// CategoryMatches is a slice of CategoryMatch ordered best-first when sorted.
type CategoryMatches []CategoryMatch

// Len implements sort.Interface.
func (m CategoryMatches) Len() int {
	return len(m)
}

// Less implements sort.Interface - higher confidence first, then the more
// specific signal.
func (m CategoryMatches) Less(i, j int) bool {
	if m[i].Confidence != m[j].Confidence {
		return m[i].Confidence > m[j].Confidence
	}
	return m[i].Source.Rank() > m[j].Source.Rank()
}

// Swap implements sort.Interface.
func (m CategoryMatches) Swap(i, j int) {
	m[i], m[j] = m[j], m[i]
}

// Sort orders the matches best-first. Equal elements keep their input order.
func (m CategoryMatches) Sort() {
	sort.Stable(m)
}

// Top returns the best match, or nil if empty.
func (m CategoryMatches) Top() *CategoryMatch {
	if len(m) == 0 {
		return nil
	}
	m.Sort()
	return &m[0]
}

// TopN returns the N best matches.
func (m CategoryMatches) TopN(n int) CategoryMatches {
	if n <= 0 {
		return CategoryMatches{}
	}

	m.Sort()

	if n > len(m) {
		n = len(m)
	}

	result := make(CategoryMatches, n)
	copy(result, m[:n])
	return result
}

// AboveThreshold returns all matches with confidence at or above threshold.
func (m CategoryMatches) AboveThreshold(threshold int) CategoryMatches {
	m.Sort()

	var result CategoryMatches
	for _, match := range m {
		if match.Confidence >= threshold {
			result = append(result, match)
		}
	}
	return result
}
