package market

import (
	"reflect"
	"testing"
)

func TestParseTokenFilter(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		max         uint64
		expected    []TokenId
		diagnostics int
		cleared     bool
	}{
		{
			name:     "empty input clears the filter",
			raw:      "",
			max:      250,
			cleared:  true,
			expected: nil,
		},
		{
			name:     "whitespace only clears the filter",
			raw:      "   ",
			max:      250,
			cleared:  true,
			expected: nil,
		},
		{
			name:        "mixed valid and invalid entries",
			raw:         "3, 9, abc, 500",
			max:         250,
			expected:    []TokenId{3, 9},
			diagnostics: 2,
		},
		{
			name:        "zero is out of range",
			raw:         "0,1",
			max:         250,
			expected:    []TokenId{1},
			diagnostics: 1,
		},
		{
			name:        "negative numbers are rejected",
			raw:         "-5,5",
			max:         250,
			expected:    []TokenId{5},
			diagnostics: 1,
		},
		{
			name:     "duplicates collapse, order preserved",
			raw:      "9,3,9",
			max:      250,
			expected: []TokenId{9, 3},
		},
		{
			name:        "all invalid yields no matches, not cleared",
			raw:         "abc, 999",
			max:         250,
			expected:    nil,
			diagnostics: 2,
		},
		{
			name:     "dangling commas are ignored",
			raw:      ",7,,8,",
			max:      250,
			expected: []TokenId{7, 8},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseTokenFilter(tt.raw, tt.max)
			if result.Cleared != tt.cleared {
				t.Errorf("cleared = %v, want %v", result.Cleared, tt.cleared)
			}
			if !reflect.DeepEqual(result.Tokens, tt.expected) {
				t.Errorf("tokens = %v, want %v", result.Tokens, tt.expected)
			}
			if len(result.Diagnostics) != tt.diagnostics {
				t.Errorf("diagnostics = %v, want %v", result.Diagnostics, tt.diagnostics)
			}
			if tt.cleared && result.HasMatches() {
				t.Error("cleared filter must not report matches")
			}
		})
	}
}
