package market

import "fmt"

// TokenColor returns the immutable display color of a token: hues
// evenly spaced around the color wheel over the collection size.
func TokenColor(id TokenId, total uint64) string {
	if total == 0 || id == 0 {
		return ""
	}
	hue := (uint64(id) - 1) * 360 / total
	return fmt.Sprintf("hsl(%d, 100%%, 50%%)", hue)
}

// RainbowColors returns the full color table for a collection of the
// given size, indexed by token id - 1.
func RainbowColors(total uint64) []string {
	colors := make([]string, total)
	for i := uint64(1); i <= total; i++ {
		colors[i-1] = TokenColor(TokenId(i), total)
	}
	return colors
}
