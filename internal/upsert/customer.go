package upsert

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/gatewaysync/internal/customers"
	"github.com/angelmondragon/gatewaysync/internal/derive"
	dbpkg "github.com/angelmondragon/gatewaysync/pkg/db"
	"github.com/angelmondragon/gatewaysync/pkg/db/models"
	"github.com/angelmondragon/gatewaysync/pkg/types"
)

// CustomerInput carries buyer identity seen on an event.
type CustomerInput struct {
	ExistingID        *uuid.UUID
	Email             string
	GatewayCustomerID string
	Name              string
	Phone             string
	Shipping          *types.Address
	Billing           *types.Address
	Metadata          map[string]string
	SeenAt            time.Time
}

// UpsertCustomer finds a customer by id, gateway id or email and fills the
// fields it lacks. A customer is only created when an email or gateway id
// is known; otherwise nil is returned without error.
func (s *Store) UpsertCustomer(ctx context.Context, in CustomerInput) (*models.Customer, bool, error) {
	var (
		customer *models.Customer
		created  bool
	)
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		var err error
		customer, created, err = s.upsertCustomer(ctx, tx, in)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return customer, created, nil
}

func (s *Store) upsertCustomer(ctx context.Context, tx *gorm.DB, in CustomerInput) (*models.Customer, bool, error) {
	in.Email = derive.NormalizeEmail(in.Email)
	repo := s.customers.WithTx(tx)

	current, err := findCustomer(ctx, repo, in)
	if err != nil {
		return nil, false, err
	}
	if current == nil {
		if in.Email == "" && in.GatewayCustomerID == "" {
			return nil, false, nil
		}
		customer := &models.Customer{
			Email:             strPtr(in.Email),
			GatewayCustomerID: strPtr(in.GatewayCustomerID),
			Name:              strPtr(in.Name),
			Phone:             strPtr(in.Phone),
			Metadata:          in.Metadata,
		}
		if !in.Shipping.IsEmpty() {
			customer.ShippingAddress = types.MergeAddress(nil, in.Shipping)
		}
		if !in.Billing.IsEmpty() {
			customer.BillingAddress = types.MergeAddress(nil, in.Billing)
		}
		if !in.SeenAt.IsZero() {
			seen := in.SeenAt.UTC()
			customer.LastSeenAt = &seen
		}
		err := tx.Transaction(func(inner *gorm.DB) error {
			return repo.WithTx(inner).Create(ctx, customer)
		})
		if err == nil {
			return customer, true, nil
		}
		if !dbpkg.IsUniqueViolation(err) {
			return nil, false, fmt.Errorf("create customer: %w", err)
		}
		if current, err = findCustomer(ctx, repo, in); err != nil {
			return nil, false, err
		}
		if current == nil {
			return nil, false, errors.New("create customer: lost race and no row found")
		}
	}

	updates := map[string]any{}
	fill(updates, "email", current.Email, in.Email)
	fill(updates, "gateway_customer_id", current.GatewayCustomerID, in.GatewayCustomerID)
	fill(updates, "name", current.Name, in.Name)
	fill(updates, "phone", current.Phone, in.Phone)
	if err := addressUpdate(updates, "shipping_address", current.ShippingAddress, in.Shipping, false); err != nil {
		return nil, false, err
	}
	if err := addressUpdate(updates, "billing_address", current.BillingAddress, in.Billing, false); err != nil {
		return nil, false, err
	}
	if merged, changed := mergeMetadata(current.Metadata, in.Metadata); changed {
		meta, err := jsonColumn(merged)
		if err != nil {
			return nil, false, fmt.Errorf("encode metadata: %w", err)
		}
		updates["metadata"] = meta
	}
	if !in.SeenAt.IsZero() && (current.LastSeenAt == nil || in.SeenAt.After(*current.LastSeenAt)) {
		updates["last_seen_at"] = in.SeenAt.UTC()
	}
	if len(updates) == 0 {
		return current, false, nil
	}

	// another customer may already own the email or gateway id; keep the
	// existing link rather than fail the event.
	err = tx.Transaction(func(inner *gorm.DB) error {
		return repo.WithTx(inner).Update(ctx, current.ID, updates)
	})
	if dbpkg.IsUniqueViolation(err) {
		s.logg.Warn(s.logg.WithField(ctx, "customer_id", current.ID.String()), "customer identity already claimed by another record")
		return current, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("update customer: %w", err)
	}
	updated, err := repo.FindByID(ctx, current.ID)
	if err != nil {
		return nil, false, fmt.Errorf("reload customer: %w", err)
	}
	return updated, false, nil
}

func findCustomer(ctx context.Context, repo customers.Repository, in CustomerInput) (*models.Customer, error) {
	lookups := []func() (*models.Customer, error){}
	if in.ExistingID != nil {
		id := *in.ExistingID
		lookups = append(lookups, func() (*models.Customer, error) { return repo.FindByID(ctx, id) })
	}
	lookups = append(lookups,
		func() (*models.Customer, error) { return repo.FindByGatewayCustomerID(ctx, in.GatewayCustomerID) },
		func() (*models.Customer, error) { return repo.FindByEmail(ctx, in.Email) },
	)
	for _, lookup := range lookups {
		customer, err := lookup()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("find customer: %w", err)
		}
		return customer, nil
	}
	return nil, nil
}
