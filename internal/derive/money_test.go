package derive

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestFromMinorRespectsCurrencyExponent(t *testing.T) {
	cases := []struct {
		amount   int64
		currency string
		want     string
	}{
		{amount: 5000, currency: "usd", want: "50"},
		{amount: 5999, currency: "USD", want: "59.99"},
		{amount: 1200, currency: "jpy", want: "1200"},
		{amount: 1500, currency: "kwd", want: "1.5"},
		{amount: 0, currency: "", want: "0"},
	}
	for _, tc := range cases {
		got := FromMinor(tc.amount, tc.currency)
		if !got.Equal(decimal.RequireFromString(tc.want)) {
			t.Fatalf("FromMinor(%d, %q) = %s, want %s", tc.amount, tc.currency, got, tc.want)
		}
	}
}

func TestFromMinorPtr(t *testing.T) {
	if FromMinorPtr(nil, "usd") != nil {
		t.Fatal("expected nil for missing amount")
	}
	amount := int64(400)
	got := FromMinorPtr(&amount, "usd")
	if got == nil || got.StringFixed(2) != "4.00" {
		t.Fatalf("unexpected value %v", got)
	}
}

func TestParseAmount(t *testing.T) {
	cases := map[string]string{
		"$1,234.50": "1234.5",
		" 5 ":       "5",
		"-2.25":     "-2.25",
		"USD 10.00": "10",
	}
	for raw, want := range cases {
		got, ok := ParseAmount(raw)
		if !ok {
			t.Fatalf("ParseAmount(%q) failed", raw)
		}
		if !got.Equal(decimal.RequireFromString(want)) {
			t.Fatalf("ParseAmount(%q) = %s, want %s", raw, got, want)
		}
	}
	for _, raw := range []string{"", "free", "-", "1.2.3"} {
		if _, ok := ParseAmount(raw); ok {
			t.Fatalf("expected ParseAmount(%q) to fail", raw)
		}
	}
}

func TestWithinEpsilon(t *testing.T) {
	a := decimal.RequireFromString("59.00")
	if !WithinEpsilon(a, decimal.RequireFromString("59.01")) {
		t.Fatal("one cent apart should be within epsilon")
	}
	if WithinEpsilon(a, decimal.RequireFromString("59.02")) {
		t.Fatal("two cents apart should exceed epsilon")
	}
}
