package model

import "time"

// MappingSource indicates how a merchant mapping came to exist.
type MappingSource string

const (
	// SourceUserConfirmed marks mappings created or corrected by the user.
	SourceUserConfirmed MappingSource = "USER_CONFIRMED"
	// SourceAutoDetected marks mappings inferred from automatic categorization.
	SourceAutoDetected MappingSource = "AUTO_DETECTED"
	// SourceMachineLearning marks mappings produced by the frequency learner.
	SourceMachineLearning MappingSource = "MACHINE_LEARNING"
	// SourceImported marks mappings loaded from an external file.
	SourceImported MappingSource = "IMPORTED"
	// SourceRuleBased marks mappings derived from a categorization rule.
	SourceRuleBased MappingSource = "RULE_BASED"
)

// Valid reports whether s is a known mapping source.
func (s MappingSource) Valid() bool {
	switch s {
	case SourceUserConfirmed, SourceAutoDetected, SourceMachineLearning, SourceImported, SourceRuleBased:
		return true
	}
	return false
}

// MerchantMapping maps a normalized merchant name to a category with a
// confidence that moves with user feedback.
type MerchantMapping struct {
	LastUsedAt         time.Time
	CreatedAt          time.Time
	ID                 string
	MerchantName       string
	NormalizedName     string
	Source             MappingSource
	AlternativeNames   []string
	CategoryID         int
	Confidence         int
	SuccessfulMappings int
	FailedMappings     int
	IsActive           bool
}

// HasAlternativeName reports whether name was already recorded as an alias.
func (m *MerchantMapping) HasAlternativeName(name string) bool {
	for _, alt := range m.AlternativeNames {
		if alt == name {
			return true
		}
	}
	return false
}

// AddAlternativeName records name as an alias unless it is the primary name
// or already known.
func (m *MerchantMapping) AddAlternativeName(name string) {
	if name == "" || name == m.MerchantName || m.HasAlternativeName(name) {
		return
	}
	m.AlternativeNames = append(m.AlternativeNames, name)
}
