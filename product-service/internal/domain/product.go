package domain

// Image is one picture of a variant. At most one image per variant is primary.
type Image struct {
	URL     string `json:"url"`
	Alt     string `json:"alt,omitempty"`
	Primary bool   `json:"primary"`
}

// Variant is one purchasable SKU. Color and Size are nil when the product has
// no such dimension.
type Variant struct {
	SKU     string  `json:"sku"`
	Color   *string `json:"color"`
	Size    *string `json:"size"`
	Price   float64 `json:"price"`
	InStock bool    `json:"in_stock"`
	Images  []Image `json:"images"`
}

// PrimaryImage returns the image flagged primary, falling back to the first
// image. It returns nil when the variant has no images.
func (v Variant) PrimaryImage() *Image {
	for i := range v.Images {
		if v.Images[i].Primary {
			return &v.Images[i]
		}
	}
	if len(v.Images) > 0 {
		return &v.Images[0]
	}
	return nil
}

type FacetValue struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

type Facets struct {
	Colors []FacetValue `json:"colors"`
	Sizes  []FacetValue `json:"sizes"`
}

// ProductGroup is a named set of variants sharing a display identity.
//
// Within one group the (Color, Size) pair must be unique across Variants.
// Producers of groups own that invariant; nothing here checks it.
type ProductGroup struct {
	Name      string    `json:"name"`
	GroupSlug string    `json:"group_slug"`
	Variants  []Variant `json:"variants"`
	Facets    Facets    `json:"facets"`
}

// VariantRef is a variant together with the group it belongs to.
type VariantRef struct {
	GroupSlug string  `json:"group_slug"`
	GroupName string  `json:"group_name"`
	Variant   Variant `json:"variant"`
}
