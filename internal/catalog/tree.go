// Package catalog builds the category hierarchy and provides seed categories.
package catalog

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/Veraticus/spice-categorizer/internal/common"
	"github.com/Veraticus/spice-categorizer/internal/model"
)

// BuildCategoryTree links categories into a forest ordered by SortOrder and
// assigns each node its Level. A category whose parent is unknown becomes a
// root. Categories that cannot be reached from any root sit on a parent cycle;
// they are left out of the forest and reported through ErrCyclicHierarchy,
// while the returned forest remains usable.
func BuildCategoryTree(categories []model.Category) ([]*model.CategoryTreeNode, error) {
	var errs []error

	nodes := make(map[int]*model.CategoryTreeNode, len(categories))
	order := make([]int, 0, len(categories))
	for _, cat := range categories {
		if _, exists := nodes[cat.ID]; exists {
			errs = append(errs, fmt.Errorf("%w: category id %d", common.ErrDuplicateEntry, cat.ID))
			continue
		}
		nodes[cat.ID] = &model.CategoryTreeNode{Category: cat}
		order = append(order, cat.ID)
	}

	var roots []*model.CategoryTreeNode
	children := make(map[int][]*model.CategoryTreeNode)
	for _, id := range order {
		node := nodes[id]
		parentID := node.Category.ParentID
		switch {
		case parentID == nil:
			roots = append(roots, node)
		case nodes[*parentID] == nil:
			slog.Warn("Category parent not found, treating as root",
				"category_id", id,
				"parent_id", *parentID)
			roots = append(roots, node)
		default:
			children[*parentID] = append(children[*parentID], node)
		}
	}

	sortNodes(roots)

	// Depth can never legitimately exceed the number of categories.
	maxDepth := len(nodes)
	visited := make(map[int]bool, len(nodes))

	var descend func(node *model.CategoryTreeNode, level int)
	descend = func(node *model.CategoryTreeNode, level int) {
		visited[node.Category.ID] = true
		node.Category.Level = level

		kids := children[node.Category.ID]
		sortNodes(kids)
		node.Children = make([]*model.CategoryTreeNode, 0, len(kids))
		for _, child := range kids {
			if visited[child.Category.ID] || level+1 >= maxDepth {
				continue
			}
			node.Children = append(node.Children, child)
			descend(child, level+1)
		}
	}

	for _, root := range roots {
		descend(root, 0)
	}

	var unreachable []int
	for _, id := range order {
		if !visited[id] {
			unreachable = append(unreachable, id)
		}
	}
	if len(unreachable) > 0 {
		sort.Ints(unreachable)
		errs = append(errs, fmt.Errorf("%w: categories %v are not reachable from any root", common.ErrCyclicHierarchy, unreachable))
	}

	return roots, errors.Join(errs...)
}

func sortNodes(nodes []*model.CategoryTreeNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].Category.SortOrder != nodes[j].Category.SortOrder {
			return nodes[i].Category.SortOrder < nodes[j].Category.SortOrder
		}
		return nodes[i].Category.ID < nodes[j].Category.ID
	})
}

// WouldCreateCycle reports whether giving category id the parent parentID
// would make it its own ancestor.
func WouldCreateCycle(categories []model.Category, id, parentID int) bool {
	parents := make(map[int]*int, len(categories))
	for _, cat := range categories {
		parents[cat.ID] = cat.ParentID
	}

	current := parentID
	for steps := 0; steps <= len(categories); steps++ {
		if current == id {
			return true
		}
		next, ok := parents[current]
		if !ok || next == nil {
			return false
		}
		current = *next
	}
	// Walked further than the number of categories: an existing loop.
	return true
}
