// Package cart turns gateway line items, or the legacy cart JSON some
// storefronts embedded in metadata, into canonical cart items enriched from
// the catalog mirror.
package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/gatewaysync/internal/derive"
	"github.com/angelmondragon/gatewaysync/internal/gateway"
	"github.com/angelmondragon/gatewaysync/pkg/db/models"
	"github.com/angelmondragon/gatewaysync/pkg/logger"
	"github.com/angelmondragon/gatewaysync/pkg/types"
)

// Source records where the cart came from.
type Source string

const (
	SourceLineItems    Source = "line_items"
	SourceGatewayFetch Source = "gateway_fetch"
	SourceMetadata     Source = "metadata"
	SourceNone         Source = "none"
)

// ProductLookup is the read-only catalog surface the normalizer needs.
// Finders return gorm.ErrRecordNotFound on a miss.
type ProductLookup interface {
	FindProductBySKU(ctx context.Context, sku string) (*models.CatalogProduct, error)
	FindProductByGatewayID(ctx context.Context, gatewayProductID string) (*models.CatalogProduct, error)
	FindProductBySlug(ctx context.Context, slug string) (*models.CatalogProduct, error)
	ListActiveProducts(ctx context.Context, limit int) ([]models.CatalogProduct, error)
}

// LineItemFetcher loads line items from the gateway when the event omitted them.
type LineItemFetcher func(ctx context.Context) ([]gateway.LineItem, error)

// Input is everything an event can offer toward a cart.
type Input struct {
	LineItems []gateway.LineItem
	Fetch     LineItemFetcher
	Metadata  map[string]string
	Currency  string
}

// Result is the normalized cart plus its aggregates.
type Result struct {
	Items        []types.CartItem
	Source       Source
	Subtotal     decimal.Decimal
	SaleDiscount decimal.Decimal
	Package      *types.PackageDimensions
	// Dropped counts legacy entries that could not be parsed.
	Dropped int
}

// IsEmpty reports whether no item survived normalization.
func (r *Result) IsEmpty() bool {
	return r == nil || len(r.Items) == 0
}

const fuzzyCandidateLimit = 500

// Normalizer builds carts. A nil catalog disables enrichment.
type Normalizer struct {
	catalog        ProductLookup
	logg           *logger.Logger
	fuzzyThreshold float64
}

// Option customizes a Normalizer.
type Option func(*Normalizer)

// WithFuzzyThreshold sets the minimum title similarity (0..1) for a fuzzy match.
func WithFuzzyThreshold(threshold float64) Option {
	return func(n *Normalizer) {
		if threshold > 0 && threshold <= 1 {
			n.fuzzyThreshold = threshold
		}
	}
}

// NewNormalizer wires a cart normalizer.
func NewNormalizer(catalog ProductLookup, logg *logger.Logger, opts ...Option) *Normalizer {
	n := &Normalizer{
		catalog:        catalog,
		logg:           logg,
		fuzzyThreshold: 0.6,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Build prefers structured line items, then a gateway fetch, then the legacy
// metadata cart. Enrichment and fetch failures degrade to missing fields.
func (n *Normalizer) Build(ctx context.Context, in Input) (*Result, error) {
	currency := derive.NormalizeCurrency(in.Currency)
	result := &Result{Source: SourceNone}

	lineItems := in.LineItems
	source := SourceLineItems
	if len(lineItems) == 0 && in.Fetch != nil {
		fetched, err := in.Fetch(ctx)
		if err != nil {
			n.logg.Warn(ctx, fmt.Sprintf("line item fetch failed, falling back to metadata: %v", err))
		}
		lineItems = fetched
		source = SourceGatewayFetch
	}

	switch {
	case len(lineItems) > 0:
		result.Source = source
		for _, li := range lineItems {
			result.Items = append(result.Items, fromLineItem(li, currency))
		}
	default:
		items, dropped := parseLegacyCart(in.Metadata)
		if len(items) > 0 {
			result.Source = SourceMetadata
		}
		result.Items = items
		result.Dropped = dropped
		if dropped > 0 {
			n.logg.Warn(ctx, fmt.Sprintf("dropped %d malformed legacy cart entries", dropped))
		}
	}

	matcher := &catalogMatcher{lookup: n.catalog, threshold: n.fuzzyThreshold, logg: n.logg}
	pkg := types.PackageDimensions{}
	hasPackage := false
	for i := range result.Items {
		item := &result.Items[i]
		product := matcher.match(ctx, item)
		enrich(item, product)

		result.Subtotal = result.Subtotal.Add(item.LineTotal)
		if item.ListPrice != nil {
			result.SaleDiscount = result.SaleDiscount.Add(item.ListPrice.Sub(item.UnitPrice).Mul(decimal.NewFromInt(int64(item.Quantity))))
		}
		if product != nil && addToPackage(&pkg, product, item.Quantity) {
			hasPackage = true
		}
	}
	result.Subtotal = derive.RoundMoney(result.Subtotal)
	result.SaleDiscount = derive.RoundMoney(result.SaleDiscount)
	if hasPackage {
		result.Package = &pkg
	}
	return result, nil
}

// fromLineItem maps a gateway line item. An explicit gateway line total wins
// over unit price times quantity.
func fromLineItem(li gateway.LineItem, currency string) types.CartItem {
	if li.Currency != "" {
		currency = li.Currency
	}
	item := types.CartItem{
		Name:     li.Description,
		Quantity: clampQuantity(li.Quantity),
	}

	var explicit *decimal.Decimal
	switch {
	case li.AmountSubtotal != nil:
		explicit = derive.FromMinorPtr(li.AmountSubtotal, currency)
	case li.AmountTotal != nil:
		explicit = derive.FromMinorPtr(li.AmountTotal, currency)
	}

	if li.Price != nil {
		item.GatewayPriceID = li.Price.ID
		item.GatewayProductID = li.Price.Product.ID
		if li.Price.UnitAmount != nil {
			item.UnitPrice = derive.FromMinor(*li.Price.UnitAmount, currency)
		}
		if product, ok := li.ProductDetails(); ok {
			if item.Name == "" {
				item.Name = product.Name
			}
			if sku, ok := derive.Lookup(product.Metadata, derive.FieldSKU); ok {
				item.SKU = sku
			}
			if slug, ok := derive.Lookup(product.Metadata, derive.FieldSlug); ok {
				item.ProductSlug = slug
			}
			if raw, ok := derive.Lookup(product.Metadata, derive.FieldOptions); ok {
				item.Options = NormalizeOptions(splitOptions(raw))
			}
		}
	}

	reconcileLine(&item, explicit)
	return item
}

func reconcileLine(item *types.CartItem, explicit *decimal.Decimal) {
	qty := decimal.NewFromInt(int64(item.Quantity))
	computed := derive.RoundMoney(item.UnitPrice.Mul(qty))
	switch {
	case explicit != nil:
		item.LineTotal = derive.RoundMoney(*explicit)
		if item.UnitPrice.IsZero() && !item.LineTotal.IsZero() {
			item.UnitPrice = derive.RoundMoney(item.LineTotal.Div(qty))
		}
	default:
		item.LineTotal = computed
	}
}

func clampQuantity(q int64) int {
	if q < 1 {
		return 1
	}
	return int(q)
}

type catalogMatcher struct {
	lookup    ProductLookup
	threshold float64
	logg      *logger.Logger

	loaded     bool
	candidates []models.CatalogProduct
}

// match tries sku, gateway product id, slug, then fuzzy title.
func (m *catalogMatcher) match(ctx context.Context, item *types.CartItem) *models.CatalogProduct {
	if m.lookup == nil {
		return nil
	}
	attempts := []struct {
		by    string
		value string
		find  func(context.Context, string) (*models.CatalogProduct, error)
	}{
		{"sku", item.SKU, m.lookup.FindProductBySKU},
		{"product_id", item.GatewayProductID, m.lookup.FindProductByGatewayID},
		{"slug", item.ProductSlug, m.lookup.FindProductBySlug},
	}
	for _, a := range attempts {
		if a.value == "" {
			continue
		}
		product, err := a.find(ctx, a.value)
		if err == nil && product != nil {
			item.MatchedBy = a.by
			return product
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			m.logg.Warn(ctx, fmt.Sprintf("catalog lookup by %s failed: %v", a.by, err))
		}
	}

	if item.Name == "" {
		return nil
	}
	if !m.loaded {
		m.loaded = true
		products, err := m.lookup.ListActiveProducts(ctx, fuzzyCandidateLimit)
		if err != nil {
			m.logg.Warn(ctx, fmt.Sprintf("catalog listing failed: %v", err))
		}
		m.candidates = products
	}
	if product := bestTitleMatch(item.Name, m.candidates, m.threshold); product != nil {
		item.MatchedBy = "title"
		return product
	}
	return nil
}

// enrich copies catalog attributes the item lacks. Gateway-supplied name and
// price are kept.
func enrich(item *types.CartItem, product *models.CatalogProduct) {
	if product == nil {
		return
	}
	id := product.ID
	item.ProductID = &id
	if item.SKU == "" && product.SKU != nil {
		item.SKU = *product.SKU
	}
	if item.ProductSlug == "" && product.Slug != nil {
		item.ProductSlug = *product.Slug
	}
	if item.GatewayProductID == "" && product.GatewayProductID != nil {
		item.GatewayProductID = *product.GatewayProductID
	}
	if product.WeightOz != nil {
		item.WeightOz = *product.WeightOz
	}
	if product.Price != nil && product.Price.GreaterThan(item.UnitPrice) && item.UnitPrice.IsPositive() {
		list := *product.Price
		item.ListPrice = &list
	}
}

func addToPackage(pkg *types.PackageDimensions, product *models.CatalogProduct, qty int) bool {
	touched := false
	q := decimal.NewFromInt(int64(qty))
	if product.WeightOz != nil {
		pkg.WeightOz = pkg.WeightOz.Add(product.WeightOz.Mul(q))
		touched = true
	}
	if product.LengthIn != nil && product.LengthIn.GreaterThan(pkg.LengthIn) {
		pkg.LengthIn = *product.LengthIn
		touched = true
	}
	if product.WidthIn != nil && product.WidthIn.GreaterThan(pkg.WidthIn) {
		pkg.WidthIn = *product.WidthIn
		touched = true
	}
	if product.HeightIn != nil {
		pkg.HeightIn = pkg.HeightIn.Add(product.HeightIn.Mul(q))
		touched = true
	}
	return touched
}
