package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/angelmondragon/gatewaysync/api/responses"
	"github.com/angelmondragon/gatewaysync/internal/gateway"
	stripewebhook "github.com/angelmondragon/gatewaysync/internal/webhooks/stripe"
	"github.com/angelmondragon/gatewaysync/pkg/enums"
	pkgerrors "github.com/angelmondragon/gatewaysync/pkg/errors"
	"github.com/angelmondragon/gatewaysync/pkg/logger"
)

const (
	signatureHeader = "Stripe-Signature"
	maxPayloadBytes = int64(1 << 20)
)

type eventProcessor interface {
	Process(ctx context.Context, ev gateway.Event, opts stripewebhook.ProcessOptions) stripewebhook.Result
}

type deliveryGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

type signingSecretSource interface {
	SigningSecret() string
}

// Ack is the body returned to the gateway for every verified delivery.
type Ack struct {
	Received  bool   `json:"received"`
	Duplicate bool   `json:"duplicate,omitempty"`
	EventID   string `json:"event_id,omitempty"`
	Status    string `json:"status,omitempty"`
}

// StripeWebhook verifies and processes gateway deliveries. Once an event is
// verified the response is always 200, whatever happened while processing
// it; failures are in the webhook log for replay. guard may be nil.
func StripeWebhook(router eventProcessor, secrets signingSecretSource, guard deliveryGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		switch r.Method {
		case http.MethodPost:
		case http.MethodOptions:
			w.WriteHeader(http.StatusOK)
			return
		default:
			w.Header().Set("Allow", "POST, OPTIONS")
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		if router == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConfiguration, "webhook router unavailable"))
			return
		}
		secret := ""
		if secrets != nil {
			secret = secrets.SigningSecret()
		}
		if secret == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConfiguration, "webhook signing secret not configured"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}

		sigHeader := r.Header.Get(signatureHeader)
		if sigHeader == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "stripe signature missing"))
			return
		}

		evt, err := webhook.ConstructEventWithOptions(payload, sigHeader, secret, webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeSignature, err, "verify signature"))
			return
		}
		if evt.ID == "" || evt.Type == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "event id and type are required"))
			return
		}
		ev := gateway.FromStripe(evt, payload)
		ctx = logg.WithEvent(ctx, ev.ID, string(ev.Type))

		if guard != nil {
			seen, err := guard.CheckAndMark(ctx, ev.ID)
			if err != nil {
				// the webhook log still dedupes, so a guard outage only costs a lookup
				logg.Warn(ctx, "idempotency guard unavailable: "+err.Error())
			} else if seen {
				logg.Info(ctx, "duplicate delivery acknowledged")
				responses.WriteRaw(w, http.StatusOK, Ack{Received: true, Duplicate: true, EventID: ev.ID})
				return
			}
		}

		result := router.Process(ctx, ev, stripewebhook.ProcessOptions{})
		if result.Status == enums.WebhookEventStatusError && guard != nil {
			if err := guard.Release(ctx, ev.ID); err != nil {
				logg.Warn(ctx, "release idempotency guard: "+err.Error())
			}
		}

		responses.WriteRaw(w, http.StatusOK, Ack{Received: true, EventID: ev.ID, Status: string(result.Status)})
	}
}
