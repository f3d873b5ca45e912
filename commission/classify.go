package commission

import "strings"

// =============================================================================
// PRODUCT CLASSIFICATION - liv / skade / unknown
// =============================================================================

// Category is the commission bucket a sale counts toward.
type Category string

const (
	CategoryLiv     Category = "liv"     // life-insurance products
	CategorySkade   Category = "skade"   // non-life (property/casualty) products
	CategoryUnknown Category = "unknown" // counted in totals, in neither bucket
)

// Keyword sets matched case-insensitively as substrings of the free-text
// product-group tag. Liv takes precedence when a tag matches both sets.
var (
	livKeywords   = []string{"liv", "life", "pension"}
	skadeKeywords = []string{"skade", "damage", "property", "casualty"}
)

// Classify maps a product-group tag onto a commission category. Tags that
// match neither keyword set classify as CategoryUnknown; the aggregator
// counts those in the totals and records a data-quality warning.
func Classify(productGroup string) Category {
	tag := strings.ToLower(productGroup)
	for _, kw := range livKeywords {
		if strings.Contains(tag, kw) {
			return CategoryLiv
		}
	}
	for _, kw := range skadeKeywords {
		if strings.Contains(tag, kw) {
			return CategorySkade
		}
	}
	return CategoryUnknown
}
