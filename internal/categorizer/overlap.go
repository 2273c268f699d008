package categorizer

import "strings"

// OverlapKind classifies a keyword overlap.
type OverlapKind string

const (
	// OverlapDuplicate means the same keyword appears in two categories.
	OverlapDuplicate OverlapKind = "duplicate"
	// OverlapShadowed means an earlier keyword is contained in a later one,
	// so text matching the later keyword is claimed by the earlier category.
	OverlapShadowed OverlapKind = "shadowed"
)

// Overlap describes a keyword in Category that wins over ShadowedKeyword in
// the later ShadowedCategory.
type Overlap struct {
	Kind             OverlapKind `json:"kind"`
	Keyword          string      `json:"keyword"`
	Category         string      `json:"category"`
	ShadowedKeyword  string      `json:"shadowed_keyword"`
	ShadowedCategory string      `json:"shadowed_category"`
}

// FindOverlaps scans cfg in matching order.
func FindOverlaps(cfg Config) []Overlap {
	var out []Overlap
	for i, earlier := range cfg {
		for _, later := range cfg[i+1:] {
			if later.Name == earlier.Name {
				continue
			}
			for _, k1 := range earlier.Keywords {
				k1 = strings.ToLower(strings.TrimSpace(k1))
				if k1 == "" {
					continue
				}
				for _, k2 := range later.Keywords {
					k2 = strings.ToLower(strings.TrimSpace(k2))
					switch {
					case k2 == "":
					case k1 == k2:
						out = append(out, Overlap{OverlapDuplicate, k1, earlier.Name, k2, later.Name})
					case strings.Contains(k2, k1):
						out = append(out, Overlap{OverlapShadowed, k1, earlier.Name, k2, later.Name})
					}
				}
			}
		}
	}
	return out
}
