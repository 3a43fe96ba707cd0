package cart

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/gatewaysync/internal/derive"
	"github.com/angelmondragon/gatewaysync/pkg/types"
)

// legacyCartChunkPrefix names the keys storefronts used when the cart JSON
// exceeded the 500 character metadata value limit: cart_0, cart_1, ...
const legacyCartChunkPrefix = "cart_"

// legacyCartJSON returns the raw cart JSON from metadata, joining chunked keys
// in numeric order when no single key carries it.
func legacyCartJSON(meta map[string]string) string {
	if raw, ok := derive.Lookup(meta, derive.FieldCart); ok {
		return raw
	}

	type chunk struct {
		index int
		value string
	}
	var chunks []chunk
	for key, value := range meta {
		lower := strings.ToLower(strings.TrimSpace(key))
		if !strings.HasPrefix(lower, legacyCartChunkPrefix) {
			continue
		}
		idx, err := strconv.Atoi(strings.TrimPrefix(lower, legacyCartChunkPrefix))
		if err != nil {
			continue
		}
		chunks = append(chunks, chunk{index: idx, value: value})
	}
	if len(chunks) == 0 {
		return ""
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].index < chunks[j].index })
	var b strings.Builder
	for _, c := range chunks {
		b.WriteString(c.value)
	}
	return b.String()
}

// HasLegacyCart reports whether metadata carries a cart blob, whole or chunked.
func HasLegacyCart(meta map[string]string) bool {
	return strings.TrimSpace(legacyCartJSON(meta)) != ""
}

// parseLegacyCart decodes the metadata cart. It accepts a bare array or an
// object with an "items" array, and returns how many entries were dropped.
func parseLegacyCart(meta map[string]string) ([]types.CartItem, int) {
	raw := strings.TrimSpace(legacyCartJSON(meta))
	if raw == "" {
		return nil, 0
	}

	var entries []map[string]any
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		var wrapped struct {
			Items []map[string]any `json:"items"`
		}
		if err := json.Unmarshal([]byte(raw), &wrapped); err != nil {
			return nil, 1
		}
		entries = wrapped.Items
	}

	items := make([]types.CartItem, 0, len(entries))
	dropped := 0
	for _, entry := range entries {
		item, ok := legacyItem(entry)
		if !ok {
			dropped++
			continue
		}
		items = append(items, item)
	}
	return items, dropped
}

func legacyItem(entry map[string]any) (types.CartItem, bool) {
	if len(entry) == 0 {
		return types.CartItem{}, false
	}
	item := types.CartItem{
		Name:             firstString(entry, "name", "title", "product_name", "description"),
		SKU:              firstString(entry, "sku", "product_sku"),
		ProductSlug:      firstString(entry, "slug", "handle", "product_slug"),
		GatewayProductID: firstString(entry, "product_id", "gateway_product_id", "stripe_product_id"),
		GatewayPriceID:   firstString(entry, "price_id", "gateway_price_id"),
	}
	if item.Name == "" && item.SKU == "" && item.ProductSlug == "" {
		return types.CartItem{}, false
	}

	qty, _ := firstDecimal(entry, "quantity", "qty", "count")
	item.Quantity = clampQuantity(qty.IntPart())

	if unit, ok := firstDecimal(entry, "unit_price", "price", "amount"); ok {
		item.UnitPrice = derive.RoundMoney(unit)
	}
	var explicit *decimal.Decimal
	if total, ok := firstDecimal(entry, "line_total", "total", "subtotal"); ok {
		explicit = &total
	}
	reconcileLine(&item, explicit)

	for _, key := range []string{"options", "upgrades", "selected_options", "variants"} {
		if v, ok := entry[key]; ok {
			item.Options = NormalizeOptions(optionLabels(v))
			break
		}
	}
	return item, true
}

func firstString(entry map[string]any, keys ...string) string {
	for _, key := range keys {
		switch v := entry[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

func firstDecimal(entry map[string]any, keys ...string) (decimal.Decimal, bool) {
	for _, key := range keys {
		switch v := entry[key].(type) {
		case float64:
			return decimal.NewFromFloat(v), true
		case string:
			if d, ok := derive.ParseAmount(v); ok {
				return d, true
			}
		}
	}
	return decimal.Zero, false
}

// optionLabels flattens the shapes options have been stored in: a string
// list, a comma separated string, or objects with a label.
func optionLabels(v any) []string {
	switch val := v.(type) {
	case string:
		return splitOptions(val)
	case []any:
		out := make([]string, 0, len(val))
		for _, raw := range val {
			switch opt := raw.(type) {
			case string:
				out = append(out, opt)
			case map[string]any:
				label := firstString(opt, "label", "name", "title")
				value := firstString(opt, "value")
				switch {
				case label != "" && value != "":
					out = append(out, fmt.Sprintf("%s: %s", label, value))
				case label != "":
					out = append(out, label)
				case value != "":
					out = append(out, value)
				}
			}
		}
		return out
	}
	return nil
}

func splitOptions(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if strings.HasPrefix(raw, "[") {
		var decoded []any
		if err := json.Unmarshal([]byte(raw), &decoded); err == nil {
			return optionLabels(decoded)
		}
	}
	return strings.Split(raw, ",")
}

// NormalizeOptions trims, drops empty and "none" entries, and dedupes
// case-insensitively keeping the first spelling.
func NormalizeOptions(options []string) []string {
	if len(options) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(options))
	out := make([]string, 0, len(options))
	for _, opt := range options {
		opt = strings.TrimSpace(opt)
		key := strings.ToLower(opt)
		if key == "" || key == "none" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, opt)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
