package derive

import "testing"

func TestLookupHonorsSynonymOrder(t *testing.T) {
	meta := map[string]string{
		"shipping_cost":     "7.50",
		"Shipping-Override": "4.00",
	}
	got, ok := Lookup(meta, FieldShipping)
	if !ok || got != "4.00" {
		t.Fatalf("expected override spelling to win, got %q %v", got, ok)
	}
}

func TestLookupIgnoresCaseAndSeparators(t *testing.T) {
	meta := map[string]string{"OrderNumber": " ORD-1 "}
	got, ok := Lookup(meta, FieldOrderNumber)
	if !ok || got != "ORD-1" {
		t.Fatalf("expected loose key match, got %q %v", got, ok)
	}
}

func TestLookupSkipsEmptyValues(t *testing.T) {
	meta := map[string]string{"order_id": "  ", "order_doc_id": "doc-9"}
	got, ok := Lookup(meta, FieldOrderID)
	if !ok || got != "doc-9" {
		t.Fatalf("expected blank value to be skipped, got %q %v", got, ok)
	}
	if _, ok := Lookup(nil, FieldOrderID); ok {
		t.Fatal("nil metadata should miss")
	}
	if _, ok := Lookup(map[string]string{"unrelated": "x"}, FieldTax); ok {
		t.Fatal("unrelated keys should miss")
	}
}

func TestLookupDecimal(t *testing.T) {
	meta := map[string]string{"tax_amount": "$4.00"}
	got, ok := LookupDecimal(meta, FieldTax)
	if !ok || got.StringFixed(2) != "4.00" {
		t.Fatalf("unexpected tax %s %v", got, ok)
	}
	if LookupDecimalPtr(map[string]string{"tax": "n/a"}, FieldTax) != nil {
		t.Fatal("unparseable amount should be treated as missing")
	}
}

func TestSynonymsReturnsCopy(t *testing.T) {
	list := Synonyms(FieldSKU)
	list[0] = "mutated"
	if Synonyms(FieldSKU)[0] != "sku" {
		t.Fatal("Synonyms must not expose the shared table")
	}
}
