// Package learning maintains merchant-name to category mappings whose
// confidence adapts to user feedback.
package learning

import (
	"strings"
	"unicode"

	"github.com/Veraticus/spice-categorizer/internal/common"
	"github.com/Veraticus/spice-categorizer/internal/model"
)

// Normalize produces the lookup key for a merchant name: trimmed,
// case-folded and with internal whitespace collapsed.
func Normalize(name string) string {
	return common.NormalizeName(name)
}

// MerchantName returns the name a transaction is learned under. When the
// merchant is unknown the description's keywords stand in, so reference
// numbers and card digits do not end up in the key. It is empty when the
// description has no usable keywords.
func MerchantName(txn model.Transaction) string {
	if strings.TrimSpace(txn.MerchantName) != "" {
		return txn.MerchantName
	}
	return strings.Join(ExtractKeywords(txn.Description), " ")
}

// MaxKeywords is the most tokens ExtractKeywords returns.
const MaxKeywords = 3

var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "from": true,
	"this": true, "that": true, "your": true, "payment": true, "purchase": true,
	"card": true, "debit": true, "credit": true, "transaction": true,
	"transfer": true, "online": true, "www": true, "com": true, "pos": true,
	"ref": true, "llc": true, "ltd": true, "inc": true, "fzco": true, "fze": true,
}

// ExtractKeywords picks up to MaxKeywords distinctive lowercase tokens from a
// description. Tokens of three characters or fewer, numbers and stop words
// are ignored.
func ExtractKeywords(description string) []string {
	tokens := strings.FieldsFunc(common.Fold(description), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	keywords := make([]string, 0, MaxKeywords)
	seen := make(map[string]bool)
	for _, token := range tokens {
		if len(keywords) == MaxKeywords {
			break
		}
		if len([]rune(token)) <= 3 || isNumeric(token) || stopWords[token] || seen[token] {
			continue
		}
		seen[token] = true
		keywords = append(keywords, token)
	}
	return keywords
}

func isNumeric(token string) bool {
	for _, r := range token {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
