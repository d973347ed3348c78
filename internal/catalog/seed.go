package catalog

import (
	"fmt"
	"strings"

	"github.com/Veraticus/spice-categorizer/internal/common"
	"github.com/Veraticus/spice-categorizer/internal/model"
)

// Seed describes a category to create on bootstrap. Parent refers to
// another seed (or an existing category) by name.
type Seed struct {
	Name             string             `toml:"name"`
	Type             model.CategoryType `toml:"type"`
	Parent           string             `toml:"parent"`
	Keywords         []string           `toml:"keywords"`
	MerchantPatterns []string           `toml:"merchant_patterns"`
	SortOrder        int                `toml:"sort_order"`
}

// DefaultCategories returns the system categories installed by `spice categories seed`.
// Parents are listed before their children.
func DefaultCategories() []Seed {
	return []Seed{
		{Name: "Food", Type: model.CategoryTypeExpense, SortOrder: 10,
			Keywords:         []string{"restaurant", "cafe", "danube", "bakery"},
			MerchantPatterns: []string{"talabat", "deliveroo"}},
		{Name: "Groceries", Type: model.CategoryTypeExpense, Parent: "Food", SortOrder: 11,
			Keywords:         []string{"supermarket", "grocery", "hypermarket"},
			MerchantPatterns: []string{"carrefour", "lulu", "spinneys", "choithrams"}},
		{Name: "Transport", Type: model.CategoryTypeExpense, SortOrder: 20,
			Keywords:         []string{"taxi", "metro", "parking", "salik"},
			MerchantPatterns: []string{"careem", "uber", "rta"}},
		{Name: "Fuel", Type: model.CategoryTypeExpense, Parent: "Transport", SortOrder: 21,
			Keywords:         []string{"petrol", "fuel", "gasoline"},
			MerchantPatterns: []string{"adnoc", "enoc", "eppco", "emarat"}},
		{Name: "Shopping", Type: model.CategoryTypeExpense, SortOrder: 30,
			Keywords:         []string{"mall", "store", "fashion"},
			MerchantPatterns: []string{"amazon", "noon", "ikea"}},
		{Name: "Utilities", Type: model.CategoryTypeExpense, SortOrder: 40,
			Keywords:         []string{"electricity", "water", "internet", "mobile"},
			MerchantPatterns: []string{"dewa", "etisalat", "du telecom", "addc"}},
		{Name: "Entertainment", Type: model.CategoryTypeExpense, SortOrder: 50,
			Keywords:         []string{"cinema", "concert", "tickets"},
			MerchantPatterns: []string{"netflix", "spotify", "vox cinemas"}},
		{Name: "Health", Type: model.CategoryTypeExpense, SortOrder: 60,
			Keywords:         []string{"pharmacy", "clinic", "hospital", "dental"},
			MerchantPatterns: []string{"aster", "life pharmacy", "boots"}},
		{Name: "Travel", Type: model.CategoryTypeExpense, SortOrder: 70,
			Keywords:         []string{"hotel", "airline", "flight", "airport"},
			MerchantPatterns: []string{"emirates", "flydubai", "etihad", "booking.com"}},
		{Name: "Salary", Type: model.CategoryTypeIncome, SortOrder: 100,
			Keywords:         []string{"salary", "payroll", "wages"},
			MerchantPatterns: []string{}},
		{Name: "Refunds", Type: model.CategoryTypeIncome, SortOrder: 110,
			Keywords:         []string{"refund", "reversal", "cashback"},
			MerchantPatterns: []string{}},
	}
}

// ValidateSeeds checks seeds for missing names, duplicate names, unknown
// types and self-parenting. An empty Type defaults to expense.
func ValidateSeeds(seeds []Seed) error {
	seen := make(map[string]bool, len(seeds))
	for i := range seeds {
		seed := &seeds[i]
		name := strings.TrimSpace(seed.Name)
		if name == "" {
			return fmt.Errorf("%w: seed %d has no name", common.ErrInvalidConfig, i)
		}
		key := common.Fold(name)
		if seen[key] {
			return fmt.Errorf("%w: category %q defined twice", common.ErrDuplicateEntry, name)
		}
		seen[key] = true

		if seed.Type == "" {
			seed.Type = model.CategoryTypeExpense
		}
		if !seed.Type.Valid() {
			return fmt.Errorf("%w: category %q has unknown type %q", common.ErrInvalidConfig, name, seed.Type)
		}
		if seed.Parent != "" && common.Fold(strings.TrimSpace(seed.Parent)) == key {
			return fmt.Errorf("%w: category %q is its own parent", common.ErrCyclicHierarchy, name)
		}
		seed.Name = name
	}
	return nil
}
