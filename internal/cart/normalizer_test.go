package cart

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/gatewaysync/internal/gateway"
	"github.com/angelmondragon/gatewaysync/pkg/db/models"
)

type stubCatalog struct {
	products []models.CatalogProduct
	listErr  error
	listed   int
}

func (s *stubCatalog) find(match func(models.CatalogProduct) bool) (*models.CatalogProduct, error) {
	for i := range s.products {
		if match(s.products[i]) {
			p := s.products[i]
			return &p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubCatalog) FindProductBySKU(_ context.Context, sku string) (*models.CatalogProduct, error) {
	return s.find(func(p models.CatalogProduct) bool { return p.SKU != nil && strings.EqualFold(*p.SKU, sku) })
}

func (s *stubCatalog) FindProductByGatewayID(_ context.Context, id string) (*models.CatalogProduct, error) {
	return s.find(func(p models.CatalogProduct) bool { return p.GatewayProductID != nil && *p.GatewayProductID == id })
}

func (s *stubCatalog) FindProductBySlug(_ context.Context, slug string) (*models.CatalogProduct, error) {
	return s.find(func(p models.CatalogProduct) bool { return p.Slug != nil && *p.Slug == slug })
}

func (s *stubCatalog) ListActiveProducts(context.Context, int) ([]models.CatalogProduct, error) {
	s.listed++
	return s.products, s.listErr
}

func strPtr(s string) *string { return &s }

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func int64Ptr(v int64) *int64 { return &v }

func TestBuildPrefersLineItems(t *testing.T) {
	n := NewNormalizer(nil, nil)
	fetched := false
	res, err := n.Build(context.Background(), Input{
		LineItems: []gateway.LineItem{{
			Description:    "Walnut Desk",
			Quantity:       2,
			AmountSubtotal: int64Ptr(45000),
			Price:          &gateway.Price{ID: "price_1", UnitAmount: int64Ptr(25000)},
		}},
		Fetch: func(context.Context) ([]gateway.LineItem, error) {
			fetched = true
			return nil, nil
		},
		Metadata: map[string]string{"cart": `[{"name":"ignored","qty":1,"price":1}]`},
		Currency: "usd",
	})
	require.NoError(t, err)
	require.False(t, fetched)
	require.Equal(t, SourceLineItems, res.Source)
	require.Len(t, res.Items, 1)

	item := res.Items[0]
	require.Equal(t, "Walnut Desk", item.Name)
	require.Equal(t, 2, item.Quantity)
	require.True(t, item.UnitPrice.Equal(decimal.RequireFromString("250")))
	// explicit gateway line total wins over 2 x 250
	require.True(t, item.LineTotal.Equal(decimal.RequireFromString("450")), item.LineTotal.String())
	require.True(t, res.Subtotal.Equal(decimal.RequireFromString("450")))
}

func TestBuildClampsZeroQuantity(t *testing.T) {
	n := NewNormalizer(nil, nil)
	res, err := n.Build(context.Background(), Input{
		LineItems: []gateway.LineItem{{
			Description: "Sticker",
			Quantity:    0,
			Price:       &gateway.Price{UnitAmount: int64Ptr(300)},
		}},
	})
	require.NoError(t, err)
	require.Equal(t, 1, res.Items[0].Quantity)
	require.True(t, res.Items[0].LineTotal.Equal(decimal.RequireFromString("3")))
}

func TestBuildFetchesWhenLineItemsMissing(t *testing.T) {
	n := NewNormalizer(nil, nil)
	res, err := n.Build(context.Background(), Input{
		Fetch: func(context.Context) ([]gateway.LineItem, error) {
			return []gateway.LineItem{{Description: "Lamp", Quantity: 1, AmountTotal: int64Ptr(1999)}}, nil
		},
	})
	require.NoError(t, err)
	require.Equal(t, SourceGatewayFetch, res.Source)
	require.True(t, res.Items[0].UnitPrice.Equal(decimal.RequireFromString("19.99")))
}

func TestBuildFallsBackToMetadataOnFetchError(t *testing.T) {
	n := NewNormalizer(nil, nil)
	res, err := n.Build(context.Background(), Input{
		Fetch: func(context.Context) ([]gateway.LineItem, error) {
			return nil, errors.New("gateway down")
		},
		Metadata: map[string]string{
			"cart_items": `{"items":[{"title":"Mug","qty":"3","price":"$12.00","upgrades":[{"label":"Color","value":"Red"},"none"]},{"qty":2}]}`,
		},
	})
	require.NoError(t, err)
	require.Equal(t, SourceMetadata, res.Source)
	require.Equal(t, 1, res.Dropped)
	require.Len(t, res.Items, 1)
	require.Equal(t, "Mug", res.Items[0].Name)
	require.Equal(t, 3, res.Items[0].Quantity)
	require.True(t, res.Items[0].LineTotal.Equal(decimal.RequireFromString("36")))
	require.Equal(t, []string{"Color: Red"}, res.Items[0].Options)
}

func TestBuildJoinsChunkedCart(t *testing.T) {
	n := NewNormalizer(nil, nil)
	res, err := n.Build(context.Background(), Input{
		Metadata: map[string]string{
			"cart_1": `"qty":1,"price":5}]`,
			"cart_0": `[{"name":"Pen",`,
		},
	})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	require.Equal(t, "Pen", res.Items[0].Name)
}

func TestBuildMalformedCartIsEmpty(t *testing.T) {
	n := NewNormalizer(nil, nil)
	res, err := n.Build(context.Background(), Input{Metadata: map[string]string{"cart": "{not json"}})
	require.NoError(t, err)
	require.True(t, res.IsEmpty())
	require.Equal(t, SourceNone, res.Source)
	require.Equal(t, 1, res.Dropped)
}

func TestBuildEnrichesFromCatalog(t *testing.T) {
	deskID := uuid.New()
	chairID := uuid.New()
	catalog := &stubCatalog{products: []models.CatalogProduct{
		{
			ID:               deskID,
			GatewayProductID: strPtr("prod_desk"),
			SKU:              strPtr("DESK-1"),
			Title:            "Walnut Standing Desk",
			Price:            decPtr("300"),
			WeightOz:         decPtr("800"),
			LengthIn:         decPtr("60"),
			WidthIn:          decPtr("30"),
			HeightIn:         decPtr("6"),
		},
		{
			ID:       chairID,
			Title:    "Ergonomic Office Chair",
			Price:    decPtr("150"),
			WeightOz: decPtr("400"),
			LengthIn: decPtr("28"),
			WidthIn:  decPtr("32"),
			HeightIn: decPtr("10"),
		},
	}}
	n := NewNormalizer(catalog, nil)

	res, err := n.Build(context.Background(), Input{
		LineItems: []gateway.LineItem{
			{
				Description: "Desk",
				Quantity:    1,
				Price: &gateway.Price{
					UnitAmount: int64Ptr(25000),
					Product:    gateway.ExpandableID{ID: "prod_desk"},
				},
			},
			{
				Description: "ergonomic office chair",
				Quantity:    2,
				Price:       &gateway.Price{UnitAmount: int64Ptr(15000)},
			},
		},
	})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)

	desk := res.Items[0]
	require.Equal(t, "product_id", desk.MatchedBy)
	require.Equal(t, deskID, *desk.ProductID)
	require.Equal(t, "DESK-1", desk.SKU)
	require.NotNil(t, desk.ListPrice)
	require.True(t, res.SaleDiscount.Equal(decimal.RequireFromString("50")), res.SaleDiscount.String())

	chair := res.Items[1]
	require.Equal(t, "title", chair.MatchedBy)
	require.Equal(t, chairID, *chair.ProductID)
	require.Nil(t, chair.ListPrice)

	require.NotNil(t, res.Package)
	require.True(t, res.Package.WeightOz.Equal(decimal.RequireFromString("1600")))
	require.True(t, res.Package.LengthIn.Equal(decimal.RequireFromString("60")))
	require.True(t, res.Package.WidthIn.Equal(decimal.RequireFromString("32")))
	require.True(t, res.Package.HeightIn.Equal(decimal.RequireFromString("26")))
	require.Equal(t, 1, catalog.listed)
}

func TestBuildCatalogListErrorIsMiss(t *testing.T) {
	catalog := &stubCatalog{listErr: errors.New("db gone")}
	n := NewNormalizer(catalog, nil)
	res, err := n.Build(context.Background(), Input{
		LineItems: []gateway.LineItem{{Description: "Thing", Quantity: 1, AmountTotal: int64Ptr(100)}},
	})
	require.NoError(t, err)
	require.Nil(t, res.Items[0].ProductID)
	require.Nil(t, res.Package)
}

func TestNormalizeOptions(t *testing.T) {
	got := NormalizeOptions([]string{" Gift Wrap ", "gift wrap", "", "None", "Engraving"})
	require.Equal(t, []string{"Gift Wrap", "Engraving"}, got)
	require.Nil(t, NormalizeOptions([]string{"none", " "}))
}

func TestBestTitleMatchThreshold(t *testing.T) {
	products := []models.CatalogProduct{{Title: "Blue Ceramic Mug"}}
	if bestTitleMatch("Red Wool Scarf", products, 0.6) != nil {
		t.Fatal("expected no match for unrelated title")
	}
	if bestTitleMatch("blue ceramic mug", products, 0.6) == nil {
		t.Fatal("expected match for same title")
	}
}
