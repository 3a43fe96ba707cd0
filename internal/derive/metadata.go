package derive

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// MetadataField is a logical field that may appear in gateway metadata under
// several historical spellings.
type MetadataField string

const (
	FieldOrderID        MetadataField = "order_id"
	FieldOrderNumber    MetadataField = "order_number"
	FieldInvoiceID      MetadataField = "invoice_id"
	FieldInvoiceNumber  MetadataField = "invoice_number"
	FieldCustomerID     MetadataField = "customer_id"
	FieldQuoteID        MetadataField = "quote_id"
	FieldCustomerEmail  MetadataField = "customer_email"
	FieldCustomerName   MetadataField = "customer_name"
	FieldCustomerPhone  MetadataField = "customer_phone"
	FieldCart           MetadataField = "cart"
	FieldSubtotal       MetadataField = "subtotal"
	FieldTax            MetadataField = "tax"
	FieldShipping       MetadataField = "shipping"
	FieldDiscount       MetadataField = "discount"
	FieldShippingRateID MetadataField = "shipping_rate_id"
	FieldSKU            MetadataField = "sku"
	FieldSlug           MetadataField = "slug"
	FieldListPrice      MetadataField = "list_price"
	FieldWeight         MetadataField = "weight"
	FieldLength         MetadataField = "length"
	FieldWidth          MetadataField = "width"
	FieldHeight         MetadataField = "height"
	FieldOptions        MetadataField = "options"
)

// metadataSynonyms lists accepted spellings per field, most specific first.
// Matching ignores case and separators.
var metadataSynonyms = map[MetadataField][]string{
	FieldOrderID:        {"order_id", "order_doc_id", "order_document_id", "app_order_id"},
	FieldOrderNumber:    {"order_number", "order_no", "order_num", "order_ref", "order"},
	FieldInvoiceID:      {"invoice_id", "invoice_doc_id", "invoice_document_id", "app_invoice_id"},
	FieldInvoiceNumber:  {"invoice_number", "invoice_no", "invoice_num", "invoice_ref"},
	FieldCustomerID:     {"customer_id", "customer_doc_id", "app_customer_id"},
	FieldQuoteID:        {"quote_id", "quote_doc_id", "app_quote_id"},
	FieldCustomerEmail:  {"customer_email", "email", "buyer_email", "contact_email"},
	FieldCustomerName:   {"customer_name", "name", "buyer_name", "full_name"},
	FieldCustomerPhone:  {"customer_phone", "phone", "phone_number"},
	FieldCart:           {"cart", "cart_items", "cart_json", "items", "line_items"},
	FieldSubtotal:       {"subtotal_override", "subtotal", "sub_total"},
	FieldTax:            {"tax_override", "tax", "tax_amount", "sales_tax"},
	FieldShipping:       {"shipping_override", "shipping", "shipping_amount", "shipping_cost", "shipping_fee"},
	FieldDiscount:       {"discount_override", "discount", "discount_amount", "coupon_amount"},
	FieldShippingRateID: {"shipping_rate_id", "rate_id", "shipping_rate"},
	FieldSKU:            {"sku", "product_sku", "item_sku"},
	FieldSlug:           {"slug", "product_slug", "handle"},
	FieldListPrice:      {"list_price", "compare_at_price", "regular_price", "msrp"},
	FieldWeight:         {"weight_oz", "weight", "shipping_weight"},
	FieldLength:         {"length_in", "length"},
	FieldWidth:          {"width_in", "width"},
	FieldHeight:         {"height_in", "height"},
	FieldOptions:        {"options", "upgrades", "selected_options", "variants"},
}

// Synonyms returns the accepted spellings for field.
func Synonyms(field MetadataField) []string {
	out := make([]string, len(metadataSynonyms[field]))
	copy(out, metadataSynonyms[field])
	return out
}

func normalizeMetadataKey(key string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(key) {
		switch r {
		case '_', '-', ' ', '.':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Lookup returns the first non-empty metadata value matching field's synonym
// list. Synonym order decides precedence; within one synonym an exact key
// beats a loosely spelled one.
func Lookup(meta map[string]string, field MetadataField) (string, bool) {
	if len(meta) == 0 {
		return "", false
	}
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, synonym := range metadataSynonyms[field] {
		if value := strings.TrimSpace(meta[synonym]); value != "" {
			return value, true
		}
		want := normalizeMetadataKey(synonym)
		for _, k := range keys {
			if normalizeMetadataKey(k) != want {
				continue
			}
			if value := strings.TrimSpace(meta[k]); value != "" {
				return value, true
			}
		}
	}
	return "", false
}

// LookupDecimal is Lookup followed by ParseAmount.
func LookupDecimal(meta map[string]string, field MetadataField) (decimal.Decimal, bool) {
	raw, ok := Lookup(meta, field)
	if !ok {
		return decimal.Zero, false
	}
	return ParseAmount(raw)
}

// LookupDecimalPtr is LookupDecimal returning nil on a miss.
func LookupDecimalPtr(meta map[string]string, field MetadataField) *decimal.Decimal {
	value, ok := LookupDecimal(meta, field)
	if !ok {
		return nil
	}
	return &value
}
