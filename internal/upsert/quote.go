package upsert

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/gatewaysync/internal/derive"
	"github.com/angelmondragon/gatewaysync/internal/financials"
	dbpkg "github.com/angelmondragon/gatewaysync/pkg/db"
	"github.com/angelmondragon/gatewaysync/pkg/db/models"
	"github.com/angelmondragon/gatewaysync/pkg/enums"
	"github.com/angelmondragon/gatewaysync/pkg/types"
)

// QuoteInput mirrors one gateway quote event.
type QuoteInput struct {
	GatewayQuoteID    string
	QuoteNumber       string
	Status            enums.QuoteStatus
	CustomerID        *uuid.UUID
	GatewayCustomerID string
	OrderID           *uuid.UUID
	Totals            *financials.Result
	LineItems         []types.CartItem
	ExpiresAt         *time.Time
	AcceptedAt        *time.Time
	Metadata          map[string]string
}

// quoteRank orders the quote lifecycle; accepted and canceled are final.
var quoteRank = map[enums.QuoteStatus]int{
	enums.QuoteStatusDraft:    0,
	enums.QuoteStatusOpen:     1,
	enums.QuoteStatusAccepted: 2,
	enums.QuoteStatusCanceled: 2,
}

// UpsertQuote creates or patches a mirrored quote. Quotes without a gateway
// id are ignored.
func (s *Store) UpsertQuote(ctx context.Context, in QuoteInput) (*models.Quote, error) {
	if s.quotes == nil || in.GatewayQuoteID == "" {
		return nil, nil
	}
	var quote *models.Quote
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		repo := s.quotes.WithTx(tx)
		current, err := repo.FindByGatewayQuoteID(ctx, in.GatewayQuoteID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			created := newQuote(in)
			err = tx.Transaction(func(inner *gorm.DB) error {
				return repo.WithTx(inner).Create(ctx, created)
			})
			if err == nil {
				quote = created
				return nil
			}
			if !dbpkg.IsUniqueViolation(err) {
				return fmt.Errorf("create quote: %w", err)
			}
			current, err = repo.FindByGatewayQuoteID(ctx, in.GatewayQuoteID)
		}
		if err != nil {
			return fmt.Errorf("find quote: %w", err)
		}

		updates, err := quoteUpdates(current, in)
		if err != nil {
			return err
		}
		if len(updates) == 0 {
			quote = current
			return nil
		}
		if err := repo.Update(ctx, current.ID, updates); err != nil {
			return fmt.Errorf("update quote: %w", err)
		}
		quote, err = repo.FindByID(ctx, current.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return quote, nil
}

func newQuote(in QuoteInput) *models.Quote {
	st := in.Status
	if !st.IsValid() {
		st = enums.QuoteStatusDraft
	}
	quote := &models.Quote{
		GatewayQuoteID:    in.GatewayQuoteID,
		QuoteNumber:       strPtr(in.QuoteNumber),
		Status:            st,
		CustomerID:        in.CustomerID,
		GatewayCustomerID: strPtr(in.GatewayCustomerID),
		OrderID:           in.OrderID,
		Currency:          derive.NormalizeCurrency(""),
		LineItems:         in.LineItems,
		ExpiresAt:         in.ExpiresAt,
		AcceptedAt:        in.AcceptedAt,
		Metadata:          in.Metadata,
	}
	if t := in.Totals; t != nil {
		quote.Currency = t.Currency
		quote.Subtotal = t.Subtotal
		quote.Total = t.Total
	}
	return quote
}

func quoteUpdates(current *models.Quote, in QuoteInput) (map[string]any, error) {
	updates := map[string]any{}
	advance := false
	if in.Status.IsValid() && in.Status != current.Status && quoteRank[current.Status] < 2 && quoteRank[in.Status] >= quoteRank[current.Status] {
		updates["status"] = in.Status
		advance = true
	}
	fill(updates, "quote_number", current.QuoteNumber, in.QuoteNumber)
	fill(updates, "gateway_customer_id", current.GatewayCustomerID, in.GatewayCustomerID)
	fillUUID(updates, "customer_id", current.CustomerID, in.CustomerID)
	fillUUID(updates, "order_id", current.OrderID, in.OrderID)
	if in.ExpiresAt != nil && current.ExpiresAt == nil {
		updates["expires_at"] = *in.ExpiresAt
	}
	if in.AcceptedAt != nil && current.AcceptedAt == nil {
		updates["accepted_at"] = *in.AcceptedAt
	}
	if t := in.Totals; t != nil && (advance || current.Total.IsZero()) {
		updates["currency"] = t.Currency
		updates["subtotal"] = t.Subtotal
		updates["total"] = t.Total
	}
	if len(in.LineItems) > 0 && (advance || len(current.LineItems) == 0) {
		items, err := jsonColumn(in.LineItems)
		if err != nil {
			return nil, fmt.Errorf("encode quote items: %w", err)
		}
		updates["line_items"] = items
	}
	if merged, changed := mergeMetadata(current.Metadata, in.Metadata); changed {
		meta, err := jsonColumn(merged)
		if err != nil {
			return nil, fmt.Errorf("encode metadata: %w", err)
		}
		updates["metadata"] = meta
	}
	return updates, nil
}
