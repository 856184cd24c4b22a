package market

import (
	"fmt"
	"strconv"
	"strings"
)

// FilterDiagnostic records one rejected filter entry.
type FilterDiagnostic struct {
	Input  string `json:"input"`
	Reason string `json:"reason"`
}

// FilterResult is the outcome of parsing a free-text token filter.
// Cleared means the input was empty ("show everything"), which is
// distinct from a non-empty input that matched nothing.
type FilterResult struct {
	Tokens      []TokenId          `json:"tokens"`
	Diagnostics []FilterDiagnostic `json:"diagnostics,omitempty"`
	Cleared     bool               `json:"cleared"`
}

// ParseTokenFilter parses a comma separated identifier list against a
// universe of size max. Invalid entries are dropped with a diagnostic.
func ParseTokenFilter(raw string, max uint64) FilterResult {
	result := FilterResult{}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		result.Cleared = true
		return result
	}

	seen := map[TokenId]bool{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		num, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			result.Diagnostics = append(result.Diagnostics, FilterDiagnostic{
				Input:  part,
				Reason: "not a number",
			})
			continue
		}
		if num < 1 || num > max {
			result.Diagnostics = append(result.Diagnostics, FilterDiagnostic{
				Input:  part,
				Reason: fmt.Sprintf("out of range 1-%d", max),
			})
			continue
		}

		id := TokenId(num)
		if seen[id] {
			continue
		}
		seen[id] = true
		result.Tokens = append(result.Tokens, id)
	}

	return result
}

// HasMatches reports whether the filter selected at least one token.
func (fr *FilterResult) HasMatches() bool {
	return len(fr.Tokens) > 0
}
