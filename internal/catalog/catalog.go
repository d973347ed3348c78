package catalog

import (
	"log/slog"
	"strings"

	"github.com/Veraticus/spice-categorizer/internal/model"
)

// Catalog is an immutable snapshot of the active category hierarchy. It is
// safe for concurrent use.
type Catalog struct {
	byID    map[int]model.Category
	ordered []model.Category
	roots   []*model.CategoryTreeNode
}

// New builds a catalog from categories. Inactive categories are ignored.
// Branches that sit on a parent cycle are logged and left out.
func New(categories []model.Category) *Catalog {
	active := make([]model.Category, 0, len(categories))
	for _, cat := range categories {
		if cat.IsActive {
			active = append(active, cat)
		}
	}

	roots, err := BuildCategoryTree(active)
	if err != nil {
		slog.Warn("Category hierarchy has problems, affected categories are skipped", "error", err)
	}

	c := &Catalog{
		byID:  make(map[int]model.Category, len(active)),
		roots: roots,
	}
	for _, root := range roots {
		root.Walk(func(node *model.CategoryTreeNode) {
			c.byID[node.Category.ID] = node.Category
			c.ordered = append(c.ordered, node.Category)
		})
	}
	return c
}

// Get returns the category with id.
func (c *Catalog) Get(id int) (model.Category, bool) {
	cat, ok := c.byID[id]
	return cat, ok
}

// Categories returns the matchable categories in tree order.
func (c *Catalog) Categories() []model.Category {
	return c.ordered
}

// Tree returns the category forest.
func (c *Catalog) Tree() []*model.CategoryTreeNode {
	return c.roots
}

// Len returns the number of matchable categories.
func (c *Catalog) Len() int {
	return len(c.ordered)
}

// Path renders the ancestry of a category, e.g. "Food > Groceries".
func (c *Catalog) Path(id int) string {
	cat, ok := c.byID[id]
	if !ok {
		return ""
	}

	parts := []string{cat.Name}
	for steps := 0; cat.ParentID != nil && steps < len(c.ordered); steps++ {
		parent, ok := c.byID[*cat.ParentID]
		if !ok {
			break
		}
		parts = append([]string{parent.Name}, parts...)
		cat = parent
	}
	return strings.Join(parts, " > ")
}
