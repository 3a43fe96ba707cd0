package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/gatewaysync/api/middleware"
	"github.com/angelmondragon/gatewaysync/api/responses"
	"github.com/angelmondragon/gatewaysync/api/validators"
	"github.com/angelmondragon/gatewaysync/internal/webhooklog"
	stripewebhook "github.com/angelmondragon/gatewaysync/internal/webhooks/stripe"
	"github.com/angelmondragon/gatewaysync/pkg/enums"
	pkgerrors "github.com/angelmondragon/gatewaysync/pkg/errors"
	"github.com/angelmondragon/gatewaysync/pkg/logger"
	"github.com/angelmondragon/gatewaysync/pkg/pagination"
)

type webhookReplayer interface {
	Replay(ctx context.Context, eventID string) (stripewebhook.Result, error)
}

type webhookEventLister interface {
	List(ctx context.Context, filter webhooklog.ListFilter, params pagination.Params) (*webhooklog.Page, error)
}

type replayRequest struct {
	EventID string `json:"event_id" validate:"required,max=255,gateway_event_id"`
}

type replayResponse struct {
	EventID   string     `json:"event_id"`
	EventType string     `json:"event_type"`
	Status    string     `json:"status"`
	Message   string     `json:"message,omitempty"`
	Attempt   int        `json:"attempt"`
	OrderID   *uuid.UUID `json:"order_id,omitempty"`
	InvoiceID *uuid.UUID `json:"invoice_id,omitempty"`
}

// AdminReplayWebhook re-runs a stored gateway event through the router. It
// bypasses the delivery guard, so an admin can repeat a replay at will.
func AdminReplayWebhook(replayer webhookReplayer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if replayer == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook router unavailable"))
			return
		}

		var req replayRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		eventID := strings.TrimSpace(req.EventID)
		if eventID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "event_id is required"))
			return
		}

		ctx = logg.WithFields(ctx, map[string]any{
			"event_id":      eventID,
			"admin_subject": middleware.AdminSubjectFromContext(ctx),
		})
		logg.Info(ctx, "manual webhook replay requested")

		result, err := replayer.Replay(ctx, eventID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		resp := replayResponse{
			EventID:   result.EventID,
			EventType: string(result.EventType),
			Status:    string(result.Status),
			Message:   result.Message,
			Attempt:   result.Attempt,
			OrderID:   result.OrderID,
			InvoiceID: result.InvoiceID,
		}
		responses.WriteSuccess(w, resp)
	}
}

// AdminWebhookEvents lists the webhook log, newest first, optionally
// filtered by status and event type.
func AdminWebhookEvents(repo webhookEventLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if repo == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook log unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		query := r.URL.Query()
		filter := webhooklog.ListFilter{
			Status: enums.WebhookEventStatus(strings.TrimSpace(query.Get("status"))),
			Type:   validators.SanitizeString(query.Get("type"), 128),
		}
		if filter.Status != "" && !filter.Status.IsValid() {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter"))
			return
		}

		page, err := repo.List(ctx, filter, pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(query.Get("cursor")),
		})
		if err != nil {
			if typed := pkgerrors.As(err); typed != nil {
				responses.WriteError(ctx, logg, w, typed)
				return
			}
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list webhook events"))
			return
		}
		responses.WriteSuccess(w, page)
	}
}
