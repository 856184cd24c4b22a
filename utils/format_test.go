package utils

import (
	"fmt"
	"math/big"
	"testing"

	"github.com/rainbowsvgs/spectra/types"
)

func TestFormatWeiToEth(t *testing.T) {
	Config = &types.Config{}
	Config.Chain.Config.TokenSymbol = "ETH"

	tests := []struct {
		name     string
		wei      *big.Int
		expected string
	}{
		{"nil amount", nil, ""},
		{"zero amount", big.NewInt(0), ""},
		{"one eth", new(big.Int).Mul(big.NewInt(1), big.NewInt(1e18)), "1 ETH"},
		{"fractional", big.NewInt(1.5e18), "1.5 ETH"},
		{"small fraction", big.NewInt(1e15), "0.001 ETH"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FormatWeiToEth(tt.wei)
			if result != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestParseEthToWei(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		expected  string
		expectErr bool
	}{
		{"whole amount", "1", "1000000000000000000", false},
		{"fractional amount", "0.5", "500000000000000000", false},
		{"with whitespace", " 2 ", "2000000000000000000", false},
		{"negative amount", "-1", "", true},
		{"garbage", "abc", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseEthToWei(tt.input)
			if tt.expectErr {
				if err == nil {
					t.Errorf("expected error for input %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.String() != tt.expected {
				t.Errorf("expected %v wei, got %v", tt.expected, result)
			}
		})
	}
}

func TestFormatAddress(t *testing.T) {
	address := "0x1234567890abcdef1234567890abcdef12345678"
	formatted := FormatAddress(address)
	if formatted != "0x1234…5678" {
		t.Errorf("unexpected formatted address %q", formatted)
	}

	short := "0x1234"
	if FormatAddress(short) != short {
		t.Errorf("short input should pass through unchanged")
	}
}

func TestTruncateError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		maxLen   int
		expected string
	}{
		{"nil error", nil, 50, ""},
		{"plain message", fmt.Errorf("connection refused"), 50, "connection refused"},
		{"cut at parenthesis", fmt.Errorf("execution reverted (data: 0xdeadbeef)"), 50, "execution reverted"},
		{"length limit", fmt.Errorf("aaaaaaaaaa"), 5, "aaaaa…"},
		{"cut lands inside a rune", fmt.Errorf("aaaaäbbbb"), 5, "aaaa…"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := TruncateError(tt.err, tt.maxLen)
			if result != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result)
			}
		})
	}
}
