package utils

import (
	"encoding/json"
	"html/template"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/Masterminds/sprig/v3"
	logger "github.com/sirupsen/logrus"
)

// GetTemplateFuncs will get the template functions
func GetTemplateFuncs() template.FuncMap {
	fm := template.FuncMap{}

	for k, v := range sprig.FuncMap() {
		fm[k] = v
	}

	customFuncs := template.FuncMap{
		"includeJSON": IncludeJSON,
		"html":        func(x string) template.HTML { return template.HTML(x) },
		"bigIntCmp":   func(i *big.Int, j int) int { return i.Cmp(big.NewInt(int64(j))) },
		"mod":         func(i, j int) bool { return i%j == 0 },
		"sub":         func(i, j int) int { return i - j },
		"add":         func(i, j int) int { return i + j },
		"addUI64":     func(i, j uint64) uint64 { return i + j },
		"mul":         func(i, j float64) float64 { return i * j },
		"div":         func(i, j float64) float64 { return i / j },
		"round": func(i float64, n int) float64 {
			return math.Round(i*math.Pow10(n)) / math.Pow10(n)
		},
		"uint64ToTime":         func(i uint64) time.Time { return time.Unix(int64(i), 0).UTC() },
		"contains":             strings.Contains,
		"tokenSymbol":          tokenSymbol,
		"formatAddCommas":      FormatAddCommas,
		"formatFloat":          FormatFloat,
		"formatWeiToEth":       FormatWeiToEth,
		"formatAddress":        FormatAddress,
		"formatRecentTimeShort": FormatRecentTimeShort,
	}

	for k, v := range customFuncs {
		fm[k] = v
	}

	return fm
}

func IncludeJSON(data interface{}, indent bool) template.HTML {
	var b []byte
	var err error
	if indent {
		b, err = json.MarshalIndent(data, "", "  ")
	} else {
		b, err = json.Marshal(data)
	}
	if err != nil {
		logger.WithError(err).Error("error serializing template data to json")
		return ""
	}
	return template.HTML(b)
}

func tokenSymbol() string {
	if Config != nil && Config.Chain.Config.TokenSymbol != "" {
		return Config.Chain.Config.TokenSymbol
	}
	return "ETH"
}
