package upsert

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/gatewaysync/internal/derive"
	dbpkg "github.com/angelmondragon/gatewaysync/pkg/db"
	"github.com/angelmondragon/gatewaysync/pkg/db/models"
)

// PaymentLinkInput mirrors one gateway payment link.
type PaymentLinkInput struct {
	GatewayID string
	URL       string
	Active    bool
	Currency  string
	QuoteID   *uuid.UUID
	Metadata  map[string]string
}

// UpsertPaymentLink mirrors a payment link keyed by its gateway id. The
// active flag always follows the latest event.
func (s *Store) UpsertPaymentLink(ctx context.Context, in PaymentLinkInput) (*models.PaymentLink, error) {
	if s.links == nil || in.GatewayID == "" {
		return nil, nil
	}
	var link *models.PaymentLink
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		repo := s.links.WithTx(tx)
		current, err := repo.FindByGatewayID(ctx, in.GatewayID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			created := &models.PaymentLink{
				GatewayPaymentLinkID: in.GatewayID,
				URL:                  in.URL,
				Active:               in.Active,
				QuoteID:              in.QuoteID,
				Metadata:             in.Metadata,
			}
			if in.Currency != "" {
				currency := derive.NormalizeCurrency(in.Currency)
				created.Currency = &currency
			}
			err = tx.Transaction(func(inner *gorm.DB) error {
				return repo.WithTx(inner).Create(ctx, created)
			})
			if err == nil {
				link = created
				return nil
			}
			if !dbpkg.IsUniqueViolation(err) {
				return fmt.Errorf("create payment link: %w", err)
			}
			current, err = repo.FindByGatewayID(ctx, in.GatewayID)
		}
		if err != nil {
			return fmt.Errorf("find payment link: %w", err)
		}

		updates := map[string]any{}
		if current.Active != in.Active {
			updates["active"] = in.Active
		}
		if in.URL != "" && current.URL == "" {
			updates["url"] = in.URL
		}
		if in.Currency != "" {
			fill(updates, "currency", current.Currency, derive.NormalizeCurrency(in.Currency))
		}
		fillUUID(updates, "quote_id", current.QuoteID, in.QuoteID)
		if merged, changed := mergeMetadata(current.Metadata, in.Metadata); changed {
			meta, err := jsonColumn(merged)
			if err != nil {
				return fmt.Errorf("encode metadata: %w", err)
			}
			updates["metadata"] = meta
		}
		if len(updates) == 0 {
			link = current
			return nil
		}
		if err := repo.Update(ctx, current.ID, updates); err != nil {
			return fmt.Errorf("update payment link: %w", err)
		}
		current, err = repo.FindByGatewayID(ctx, in.GatewayID)
		link = current
		return err
	})
	if err != nil {
		return nil, err
	}
	return link, nil
}
