package gateway

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/gatewaysync/pkg/enums"
)

func TestPaymentIntentDetailsPrefersDeclineCode(t *testing.T) {
	raw := `{"id":"pi_1","latest_charge":{"id":"ch_1","receipt_url":"https://r","payment_method_details":{"card":{"brand":"visa","last4":"4242"}}},
	  "last_payment_error":{"code":"card_declined","decline_code":"insufficient_funds","message":"Your card has insufficient funds."}}`
	payload, err := Decode(enums.EventPaymentIntentPaymentFailed, json.RawMessage(raw))
	require.NoError(t, err)

	details := payload.(*PaymentIntent).Details()
	assert.Equal(t, "ch_1", details.ChargeID)
	assert.Equal(t, "visa", details.CardBrand)
	assert.Equal(t, "4242", details.CardLast4)
	assert.Equal(t, "https://r", details.ReceiptURL)
	assert.Equal(t, "insufficient_funds", details.FailureCode)
	assert.Equal(t, "Your card has insufficient funds.", details.FailureMessage)
}

func TestPaymentIntentDetailsUnexpandedCharge(t *testing.T) {
	pi := &PaymentIntent{LatestCharge: ExpandableID{ID: "ch_9"}}
	details := pi.Details()
	assert.Equal(t, "ch_9", details.ChargeID)
	assert.Empty(t, details.CardBrand)
}

func TestLineItemsFromStripe(t *testing.T) {
	items := []*stripe.LineItem{
		{
			ID:          "li_1",
			Description: "Ceramic mug",
			Quantity:    2,
			AmountTotal: 3000,
			Price: &stripe.Price{
				ID:      "price_1",
				Product: &stripe.Product{ID: "prod_1", Name: "Ceramic mug", Metadata: map[string]string{"sku": "MUG-1"}},
			},
		},
		nil,
	}

	out, err := LineItemsFromStripe(items)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, int64(2), out[0].Quantity)
	require.NotNil(t, out[0].AmountTotal)
	assert.Equal(t, int64(3000), *out[0].AmountTotal)

	product, ok := out[0].ProductDetails()
	require.True(t, ok)
	assert.Equal(t, "MUG-1", product.Metadata["sku"])
}

func TestChargeFromStripe(t *testing.T) {
	ch, err := ChargeFromStripe(&stripe.Charge{ID: "ch_2", Amount: 500, AmountRefunded: 500, ReceiptURL: "https://receipt"})
	require.NoError(t, err)
	assert.True(t, ch.FullyRefunded())
	assert.Equal(t, "https://receipt", ch.Details().ReceiptURL)
}
