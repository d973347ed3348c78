// Package engine reconciles categorization signals into ranked decisions and
// applies them to transactions.
package engine

import "github.com/Veraticus/spice-categorizer/internal/model"

// Aggregate merges candidate lists into one ranked list with a single entry
// per category. An entry keeps the highest confidence any source gave the
// category and the reasons from every source. Equal confidences are broken by
// signal rank and then by input order, so callers pass rule matches first in
// rule creation order.
func Aggregate(sources ...model.CategoryMatches) model.CategoryMatches {
	var merged model.CategoryMatches
	index := make(map[int]int)

	for _, source := range sources {
		for _, match := range source {
			match.Confidence = model.ClampConfidence(match.Confidence)

			pos, seen := index[match.Category.ID]
			if !seen {
				match.Reasons = append([]model.MatchReason(nil), match.Reasons...)
				index[match.Category.ID] = len(merged)
				merged = append(merged, match)
				continue
			}

			current := &merged[pos]
			current.Reasons = append(current.Reasons, match.Reasons...)
			if match.Confidence > current.Confidence ||
				(match.Confidence == current.Confidence && match.Source.Rank() > current.Source.Rank()) {
				current.Confidence = match.Confidence
				current.Source = match.Source
			}
		}
	}

	merged.Sort()
	return merged
}
