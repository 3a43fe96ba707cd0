package cart

import (
	"strings"
	"unicode"

	"github.com/angelmondragon/gatewaysync/pkg/db/models"
)

// bestTitleMatch returns the product whose title has the highest token
// Jaccard similarity to name, provided it reaches threshold.
func bestTitleMatch(name string, products []models.CatalogProduct, threshold float64) *models.CatalogProduct {
	target := titleTokens(name)
	if len(target) == 0 {
		return nil
	}
	var best *models.CatalogProduct
	bestScore := 0.0
	for i := range products {
		score := jaccard(target, titleTokens(products[i].Title))
		if score > bestScore {
			bestScore = score
			best = &products[i]
		}
	}
	if best == nil || bestScore < threshold {
		return nil
	}
	return best
}

func titleTokens(s string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	out := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		out[f] = struct{}{}
	}
	return out
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
