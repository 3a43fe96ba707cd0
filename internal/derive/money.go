package derive

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// MoneyEpsilon is the rounding tolerance applied to major-unit comparisons.
var MoneyEpsilon = decimal.New(1, -2)

var zeroDecimalCurrencies = map[string]struct{}{
	"BIF": {}, "CLP": {}, "DJF": {}, "GNF": {}, "JPY": {}, "KMF": {}, "KRW": {}, "MGA": {},
	"PYG": {}, "RWF": {}, "UGX": {}, "VND": {}, "VUV": {}, "XAF": {}, "XOF": {}, "XPF": {},
}

var threeDecimalCurrencies = map[string]struct{}{
	"BHD": {}, "JOD": {}, "KWD": {}, "OMR": {}, "TND": {},
}

var amountCleanupRe = regexp.MustCompile(`[^0-9.\-]`)

// NormalizeCurrency upper-cases an ISO code and defaults to USD.
func NormalizeCurrency(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return "USD"
	}
	return code
}

// CurrencyExponent returns the number of minor-unit digits for the currency.
func CurrencyExponent(code string) int32 {
	code = NormalizeCurrency(code)
	if _, ok := zeroDecimalCurrencies[code]; ok {
		return 0
	}
	if _, ok := threeDecimalCurrencies[code]; ok {
		return 3
	}
	return 2
}

// FromMinor converts a gateway minor-unit integer into the major unit.
func FromMinor(amount int64, currency string) decimal.Decimal {
	return decimal.NewFromInt(amount).Shift(-CurrencyExponent(currency))
}

// FromMinorPtr is FromMinor for optional amounts.
func FromMinorPtr(amount *int64, currency string) *decimal.Decimal {
	if amount == nil {
		return nil
	}
	value := FromMinor(*amount, currency)
	return &value
}

// ParseAmount reads a free-text major-unit amount such as "$1,234.50".
func ParseAmount(raw string) (decimal.Decimal, bool) {
	cleaned := amountCleanupRe.ReplaceAllString(strings.TrimSpace(raw), "")
	if cleaned == "" || cleaned == "-" || cleaned == "." {
		return decimal.Zero, false
	}
	value, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	return value, true
}

// RoundMoney rounds to cents.
func RoundMoney(value decimal.Decimal) decimal.Decimal {
	return value.Round(2)
}

// WithinEpsilon reports whether a and b differ by at most MoneyEpsilon.
func WithinEpsilon(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(MoneyEpsilon)
}
