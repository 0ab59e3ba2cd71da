// Package variant resolves a shopper's color/size selection against the
// variants of a product group.
//
// Every function is pure: the group and selection are inputs, nothing is
// cached, and no function fails. An impossible combination is reported as
// "no variant", which the page shows as unavailable.
package variant

import (
	"github.com/shopspring/decimal"

	"github.com/fjod/storefront/product-service/internal/domain"
)

// Selection is the in-progress color/size choice. A nil field matches
// variants that lack that dimension.
type Selection struct {
	Color *string `json:"color"`
	Size  *string `json:"size"`
}

// View is everything a product page renders for the current selection.
type View struct {
	Selection Selection       `json:"selection"`
	Variant   *domain.Variant `json:"variant"`
	Available bool            `json:"available"`
	Price     string          `json:"price"`
}

// Initialize seeds a selection from the variant with initialSKU, or from the
// first variant in list order when the SKU is empty or unknown. An empty group
// yields the zero Selection.
func Initialize(group domain.ProductGroup, initialSKU string) Selection {
	if initialSKU != "" {
		for _, v := range group.Variants {
			if v.SKU == initialSKU {
				return Selection{Color: v.Color, Size: v.Size}
			}
		}
	}
	if len(group.Variants) == 0 {
		return Selection{}
	}
	first := group.Variants[0]
	return Selection{Color: first.Color, Size: first.Size}
}

// Resolve returns the variant whose (color, size) equals the selection.
func Resolve(group domain.ProductGroup, sel Selection) (domain.Variant, bool) {
	for _, v := range group.Variants {
		if sameValue(v.Color, sel.Color) && sameValue(v.Size, sel.Size) {
			return v, true
		}
	}
	return domain.Variant{}, false
}

// SetColor switches the color. When the current size does not exist in the new
// color, the size of the first variant carrying that color is adopted. If no
// variant has the color the selection is returned unresolvable.
func SetColor(group domain.ProductGroup, sel Selection, color string) Selection {
	next := Selection{Color: &color, Size: sel.Size}
	if _, ok := Resolve(group, next); ok {
		return next
	}
	for _, v := range group.Variants {
		if sameValue(v.Color, next.Color) {
			next.Size = v.Size
			return next
		}
	}
	return next
}

// SetSize is SetColor with the dimensions swapped.
func SetSize(group domain.ProductGroup, sel Selection, size string) Selection {
	next := Selection{Color: sel.Color, Size: &size}
	if _, ok := Resolve(group, next); ok {
		return next
	}
	for _, v := range group.Variants {
		if sameValue(v.Size, next.Size) {
			next.Color = v.Color
			return next
		}
	}
	return next
}

// PriceDisplay renders the resolved variant's price, or "From <min>" across
// the group when nothing resolves, or "N/A" for a group without variants.
func PriceDisplay(group domain.ProductGroup, sel Selection) string {
	if v, ok := Resolve(group, sel); ok {
		return FormatPrice(v.Price)
	}
	return FromPrice(group)
}

// FromPrice is the listing price of a group: its cheapest variant.
func FromPrice(group domain.ProductGroup) string {
	if len(group.Variants) == 0 {
		return "N/A"
	}
	lowest := group.Variants[0].Price
	for _, v := range group.Variants[1:] {
		if v.Price < lowest {
			lowest = v.Price
		}
	}
	return "From " + FormatPrice(lowest)
}

func FormatPrice(price float64) string {
	return "$" + decimal.NewFromFloat(price).StringFixed(2)
}

func Describe(group domain.ProductGroup, sel Selection) View {
	view := View{
		Selection: sel,
		Price:     PriceDisplay(group, sel),
	}
	if v, ok := Resolve(group, sel); ok {
		view.Variant = &v
		view.Available = v.InStock
	}
	return view
}

func sameValue(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
