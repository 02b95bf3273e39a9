package catalog

import (
	"github.com/google/uuid"

	"github.com/vitrina-labs/vitrina/internal/model"
)

// FilterAgents applies the category filters to a fetched agent list and
// returns the subset satisfying both, ANDed:
//
//   - selectedCategory: All, or a category id; keeps agents linked to that
//     category.
//   - categoryType: All, "profession", or "need"; keeps agents linked to at
//     least one category of that type, resolved against the full category list.
//
// An agent with no category links is excluded whenever either filter is
// active. A categoryType matching zero categories yields an empty result,
// which is a valid outcome rather than an error. The function never mutates
// its inputs and is idempotent: filtering its own output with the same
// arguments returns the same set.
func FilterAgents(agents []model.CatalogAgent, categories []model.Category, selectedCategory string, categoryType string) []model.CatalogAgent {
	if selectedCategory == All && categoryType == All {
		return agents
	}

	var typeIDs map[uuid.UUID]bool
	if categoryType != All {
		typeIDs = make(map[uuid.UUID]bool)
		for _, c := range categories {
			if string(c.Type) == categoryType {
				typeIDs[c.ID] = true
			}
		}
	}

	filtered := make([]model.CatalogAgent, 0, len(agents))
	for _, a := range agents {
		if selectedCategory != All && !hasCategory(a, selectedCategory) {
			continue
		}
		if typeIDs != nil && !hasAnyCategory(a, typeIDs) {
			continue
		}
		filtered = append(filtered, a)
	}
	return filtered
}

func hasCategory(a model.CatalogAgent, categoryID string) bool {
	for _, id := range a.CategoryIDs {
		if id.String() == categoryID {
			return true
		}
	}
	return false
}

func hasAnyCategory(a model.CatalogAgent, ids map[uuid.UUID]bool) bool {
	for _, id := range a.CategoryIDs {
		if ids[id] {
			return true
		}
	}
	return false
}

// CategoriesOfType returns the categories whose type matches t, preserving
// input order. With t == All the full list is returned unchanged.
func CategoriesOfType(categories []model.Category, t string) []model.Category {
	if t == All {
		return categories
	}
	out := make([]model.Category, 0, len(categories))
	for _, c := range categories {
		if string(c.Type) == t {
			out = append(out, c)
		}
	}
	return out
}
