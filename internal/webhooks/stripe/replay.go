package stripewebhook

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/angelmondragon/gatewaysync/internal/gateway"
	"github.com/angelmondragon/gatewaysync/pkg/enums"
	pkgerrors "github.com/angelmondragon/gatewaysync/pkg/errors"
)

// ReplaySummary counts what a batch replay did.
type ReplaySummary struct {
	Attempted int
	Recovered int
	Failed    int
}

// Replay re-runs a stored event by id. The payload was verified when it was
// first received.
func (r *Router) Replay(ctx context.Context, eventID string) (Result, error) {
	stored, err := r.log.Get(ctx, eventID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Result{}, pkgerrors.New(pkgerrors.CodeNotFound, "webhook event not found")
	}
	if err != nil {
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load webhook event")
	}
	ev, err := gateway.Parse(stored.Payload)
	if err != nil {
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "stored payload unreadable")
	}
	return r.Process(ctx, ev, ProcessOptions{Replay: true}), nil
}

// ReplayFailed replays errored events that are still under maxAttempts,
// oldest first.
func (r *Router) ReplayFailed(ctx context.Context, maxAttempts, limit int) (ReplaySummary, error) {
	var summary ReplaySummary
	events, err := r.log.ListReplayable(ctx, maxAttempts, limit)
	if err != nil {
		return summary, fmt.Errorf("list replayable events: %w", err)
	}
	for _, stored := range events {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.Attempted++
		result, err := r.Replay(ctx, stored.EventID)
		if err != nil || result.Status == enums.WebhookEventStatusError {
			summary.Failed++
			continue
		}
		summary.Recovered++
	}
	return summary, nil
}
