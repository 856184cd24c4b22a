package utils

import (
	"fmt"
	"html/template"
	"math"
	"math/big"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var weiPerEth = new(big.Float).SetFloat64(math.Pow10(18))

// FormatWeiToEth formats a wei amount as a trimmed decimal ETH string
// with the configured token symbol. A nil or zero amount yields an
// empty string, matching the market card behavior for unlisted tokens.
func FormatWeiToEth(wei *big.Int) string {
	if wei == nil || wei.Sign() == 0 {
		return ""
	}

	eth := new(big.Float).Quo(new(big.Float).SetInt(wei), weiPerEth)
	formatted := strings.TrimRight(strings.TrimRight(eth.Text('f', 18), "0"), ".")

	symbol := "ETH"
	if Config != nil && Config.Chain.Config.TokenSymbol != "" {
		symbol = Config.Chain.Config.TokenSymbol
	}
	return formatted + " " + symbol
}

// FormatEthFromString formats a wei amount given as decimal string.
func FormatEthFromString(wei string) string {
	val, ok := new(big.Int).SetString(wei, 10)
	if !ok {
		return ""
	}
	return FormatWeiToEth(val)
}

// ParseEthToWei parses a decimal ETH string into wei.
func ParseEthToWei(eth string) (*big.Int, error) {
	val, ok := new(big.Float).SetString(strings.TrimSpace(eth))
	if !ok {
		return nil, fmt.Errorf("invalid amount: %q", eth)
	}
	if val.Sign() < 0 {
		return nil, fmt.Errorf("negative amount: %q", eth)
	}

	wei, _ := new(big.Float).Mul(val, weiPerEth).Int(nil)
	return wei, nil
}

func FormatFloat(num float64, precision int) string {
	p := message.NewPrinter(language.English)
	f := fmt.Sprintf("%%.%vf", precision)
	s := strings.TrimRight(strings.TrimRight(p.Sprintf(f, num), "0"), ".")
	r := []rune(p.Sprintf(s, num))
	return string(r)
}

func FormatAddCommas(n uint64) template.HTML {
	p := message.NewPrinter(language.English)
	return template.HTML(p.Sprintf("%d", n))
}

// FormatAddress shortens an address for display (0x1234...abcd).
func FormatAddress(address string) string {
	if len(address) <= 11 {
		return address
	}
	return fmt.Sprintf("%v…%v", address[0:6], address[len(address)-4:])
}

func FormatRecentTimeShort(ts time.Time) template.HTML {
	duration := time.Since(ts)
	var timeStr string
	absDuraction := duration.Abs()
	if absDuraction < 1*time.Second {
		return template.HTML("now")
	} else if absDuraction < 60*time.Second {
		timeStr = fmt.Sprintf("%v sec.", uint(absDuraction.Seconds()))
	} else if absDuraction < 60*time.Minute {
		timeStr = fmt.Sprintf("%v min.", uint(absDuraction.Minutes()))
	} else if absDuraction < 24*time.Hour {
		timeStr = fmt.Sprintf("%v hr.", uint(absDuraction.Hours()))
	} else {
		timeStr = fmt.Sprintf("%v day.", uint(absDuraction.Hours()/24))
	}
	if duration < 0 {
		return template.HTML(fmt.Sprintf("in %v", timeStr))
	}
	return template.HTML(fmt.Sprintf("%v ago", timeStr))
}

// TruncateError shortens an error message for transient notifications,
// cutting at the first parenthesis the way the original market UI did.
func TruncateError(err error, maxLen int) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if idx := strings.Index(msg, "("); idx > 0 {
		msg = strings.TrimSpace(msg[:idx])
	}
	if len(msg) > maxLen {
		// cut on a rune boundary, error texts may contain multi-byte chars
		cut := maxLen
		for cut > 0 && !utf8.RuneStart(msg[cut]) {
			cut--
		}
		msg = msg[:cut] + "…"
	}
	return msg
}
