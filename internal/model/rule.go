package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// CategorizationRule assigns CategoryID to transactions satisfying every condition.
type CategorizationRule struct {
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Name       string
	Conditions []RuleCondition
	CategoryID int
	Priority   int
	ID         int
	IsActive   bool
}

// ConditionKind names a rule condition variant.
type ConditionKind string

// Condition kinds.
const (
	ConditionDescriptionContains ConditionKind = "DESCRIPTION_CONTAINS"
	ConditionMerchantEquals      ConditionKind = "MERCHANT_EQUALS"
	ConditionMerchantContains    ConditionKind = "MERCHANT_CONTAINS"
	ConditionAmountGreaterThan   ConditionKind = "AMOUNT_GREATER_THAN"
	ConditionAmountLessThan      ConditionKind = "AMOUNT_LESS_THAN"
	ConditionAmountEquals        ConditionKind = "AMOUNT_EQUALS"
)

// RuleCondition is a closed set of predicates over a transaction. The
// unexported marker keeps the set of variants inside this package.
type RuleCondition interface {
	Kind() ConditionKind
	Operand() string
	isRuleCondition()
}

// DescriptionContains holds when the description contains Text.
type DescriptionContains struct{ Text string }

// MerchantEquals holds when the merchant name equals Text.
type MerchantEquals struct{ Text string }

// MerchantContains holds when the merchant name contains Text.
type MerchantContains struct{ Text string }

// AmountGreaterThan holds when the amount is strictly above Amount.
type AmountGreaterThan struct{ Amount string }

// AmountLessThan holds when the amount is strictly below Amount.
type AmountLessThan struct{ Amount string }

// AmountEquals holds when the amount equals Amount.
type AmountEquals struct{ Amount string }

// InvalidCondition is what a stored condition that cannot be understood
// decodes to. Rules containing one are never applied.
type InvalidCondition struct {
	RawKind string
	Raw     string
	Reason  string
}

func (DescriptionContains) Kind() ConditionKind { return ConditionDescriptionContains }
func (MerchantEquals) Kind() ConditionKind      { return ConditionMerchantEquals }
func (MerchantContains) Kind() ConditionKind    { return ConditionMerchantContains }
func (AmountGreaterThan) Kind() ConditionKind   { return ConditionAmountGreaterThan }
func (AmountLessThan) Kind() ConditionKind      { return ConditionAmountLessThan }
func (AmountEquals) Kind() ConditionKind        { return ConditionAmountEquals }
func (c InvalidCondition) Kind() ConditionKind  { return ConditionKind(c.RawKind) }

func (c DescriptionContains) Operand() string { return c.Text }
func (c MerchantEquals) Operand() string      { return c.Text }
func (c MerchantContains) Operand() string    { return c.Text }
func (c AmountGreaterThan) Operand() string   { return c.Amount }
func (c AmountLessThan) Operand() string      { return c.Amount }
func (c AmountEquals) Operand() string        { return c.Amount }
func (c InvalidCondition) Operand() string    { return c.Raw }

func (DescriptionContains) isRuleCondition() {}
func (MerchantEquals) isRuleCondition()      {}
func (MerchantContains) isRuleCondition()    {}
func (AmountGreaterThan) isRuleCondition()   {}
func (AmountLessThan) isRuleCondition()      {}
func (AmountEquals) isRuleCondition()        {}
func (InvalidCondition) isRuleCondition()    {}

// NewCondition builds the condition variant for kind.
func NewCondition(kind ConditionKind, operand string) (RuleCondition, error) {
	switch ConditionKind(strings.ToUpper(string(kind))) {
	case ConditionDescriptionContains:
		return DescriptionContains{Text: operand}, nil
	case ConditionMerchantEquals:
		return MerchantEquals{Text: operand}, nil
	case ConditionMerchantContains:
		return MerchantContains{Text: operand}, nil
	case ConditionAmountGreaterThan:
		return AmountGreaterThan{Amount: operand}, nil
	case ConditionAmountLessThan:
		return AmountLessThan{Amount: operand}, nil
	case ConditionAmountEquals:
		return AmountEquals{Amount: operand}, nil
	}
	return nil, fmt.Errorf("unknown condition type %q", kind)
}

// storedCondition is the persisted JSON shape of a condition.
type storedCondition struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// EncodeConditions serializes conditions for storage.
func EncodeConditions(conditions []RuleCondition) ([]byte, error) {
	stored := make([]storedCondition, 0, len(conditions))
	for _, c := range conditions {
		stored = append(stored, storedCondition{Type: string(c.Kind()), Value: c.Operand()})
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rule conditions: %w", err)
	}
	return data, nil
}

// DecodeConditions parses stored conditions. It never fails: entries that
// cannot be understood come back as InvalidCondition so the rule engine can
// skip the owning rule while other rules keep working.
func DecodeConditions(data []byte) []RuleCondition {
	var stored []storedCondition
	if err := json.Unmarshal(data, &stored); err != nil {
		return []RuleCondition{InvalidCondition{Raw: string(data), Reason: err.Error()}}
	}

	conditions := make([]RuleCondition, 0, len(stored))
	for _, s := range stored {
		c, err := NewCondition(ConditionKind(s.Type), s.Value)
		if err != nil {
			conditions = append(conditions, InvalidCondition{RawKind: s.Type, Raw: s.Value, Reason: err.Error()})
			continue
		}
		conditions = append(conditions, c)
	}
	return conditions
}
