package domain

// BuildFacets derives the distinct colors and sizes of variants with their
// occurrence counts, in first-seen order. Absent values are skipped.
func BuildFacets(variants []Variant) Facets {
	return Facets{
		Colors: countValues(variants, func(v Variant) *string { return v.Color }),
		Sizes:  countValues(variants, func(v Variant) *string { return v.Size }),
	}
}

func countValues(variants []Variant, value func(Variant) *string) []FacetValue {
	out := []FacetValue{}
	index := make(map[string]int)
	for _, v := range variants {
		val := value(v)
		if val == nil {
			continue
		}
		if i, ok := index[*val]; ok {
			out[i].Count++
			continue
		}
		index[*val] = len(out)
		out = append(out, FacetValue{Value: *val, Count: 1})
	}
	return out
}
