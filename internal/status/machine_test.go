package status

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/angelmondragon/gatewaysync/pkg/enums"
)

var (
	t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	t1 = t0.Add(time.Minute)
	t2 = t0.Add(2 * time.Minute)
)

func TestDecide(t *testing.T) {
	cases := []struct {
		name string
		in   Transition
		want Outcome
	}{
		{
			name: "initial status",
			in:   Transition{Incoming: enums.PaymentStatusPaid, OccurredAt: t0},
			want: Outcome{DecisionApply, ReasonInitial, enums.PaymentStatusPaid},
		},
		{
			name: "pending to paid",
			in:   Transition{Current: enums.PaymentStatusPending, CurrentAt: &t0, Incoming: enums.PaymentStatusPaid, OccurredAt: t1},
			want: Outcome{DecisionApply, ReasonAdvance, enums.PaymentStatusPaid},
		},
		{
			name: "later success after failure wins",
			in:   Transition{Current: enums.PaymentStatusFailed, CurrentAt: &t1, Incoming: enums.PaymentStatusPaid, OccurredAt: t2},
			want: Outcome{DecisionApply, ReasonAdvance, enums.PaymentStatusPaid},
		},
		{
			name: "stale success after failure is held",
			in:   Transition{Current: enums.PaymentStatusFailed, CurrentAt: &t2, Incoming: enums.PaymentStatusPaid, OccurredAt: t1},
			want: Outcome{DecisionRestrict, ReasonStale, enums.PaymentStatusFailed},
		},
		{
			name: "paid cannot fall back to failed",
			in:   Transition{Current: enums.PaymentStatusPaid, CurrentAt: &t0, Incoming: enums.PaymentStatusFailed, OccurredAt: t2},
			want: Outcome{DecisionRestrict, ReasonNotReachable, enums.PaymentStatusPaid},
		},
		{
			name: "refund holds against stale paid",
			in:   Transition{Current: enums.PaymentStatusRefunded, CurrentAt: &t2, Incoming: enums.PaymentStatusPaid, OccurredAt: t0},
			want: Outcome{DecisionRestrict, ReasonTerminalCurrent, enums.PaymentStatusRefunded},
		},
		{
			name: "refund holds against newer paid",
			in:   Transition{Current: enums.PaymentStatusRefunded, CurrentAt: &t0, Incoming: enums.PaymentStatusPaid, OccurredAt: t2},
			want: Outcome{DecisionRestrict, ReasonTerminalCurrent, enums.PaymentStatusRefunded},
		},
		{
			name: "terminal incoming wins over arrival order",
			in:   Transition{Current: enums.PaymentStatusPaid, CurrentAt: &t2, Incoming: enums.PaymentStatusRefunded, OccurredAt: t1},
			want: Outcome{DecisionApply, ReasonTerminalIncoming, enums.PaymentStatusRefunded},
		},
		{
			name: "refund before paid event is reachable",
			in:   Transition{Current: enums.PaymentStatusPending, CurrentAt: &t0, Incoming: enums.PaymentStatusRefunded, OccurredAt: t1},
			want: Outcome{DecisionApply, ReasonTerminalIncoming, enums.PaymentStatusRefunded},
		},
		{
			name: "partial refund is not terminal",
			in:   Transition{Current: enums.PaymentStatusPartiallyRefunded, CurrentAt: &t0, Incoming: enums.PaymentStatusDisputed, OccurredAt: t1},
			want: Outcome{DecisionApply, ReasonAdvance, enums.PaymentStatusDisputed},
		},
		{
			name: "dispute won returns to paid",
			in:   Transition{Current: enums.PaymentStatusDisputed, CurrentAt: &t0, Incoming: enums.PaymentStatusPaid, OccurredAt: t1},
			want: Outcome{DecisionApply, ReasonAdvance, enums.PaymentStatusPaid},
		},
		{
			name: "funds reinstated overrides cancelled",
			in:   Transition{Current: enums.PaymentStatusCancelled, CurrentAt: &t1, Incoming: enums.PaymentStatusPaid, OccurredAt: t0, OverrideTerminal: true},
			want: Outcome{DecisionApply, ReasonOverride, enums.PaymentStatusPaid},
		},
		{
			name: "paid session cannot expire",
			in:   Transition{Current: enums.PaymentStatusPaid, CurrentAt: &t0, Incoming: enums.PaymentStatusExpired, OccurredAt: t2},
			want: Outcome{DecisionRestrict, ReasonNotReachable, enums.PaymentStatusPaid},
		},
		{
			name: "same status re-applies",
			in:   Transition{Current: enums.PaymentStatusRefunded, CurrentAt: &t1, Incoming: enums.PaymentStatusRefunded, OccurredAt: t1},
			want: Outcome{DecisionApply, ReasonUnchanged, enums.PaymentStatusRefunded},
		},
		{
			name: "unknown occurred at is never stale",
			in:   Transition{Current: enums.PaymentStatusFailed, CurrentAt: &t2, Incoming: enums.PaymentStatusPaid},
			want: Outcome{DecisionApply, ReasonAdvance, enums.PaymentStatusPaid},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Decide(tc.in))
		})
	}
}

func TestTerminalStatusNeverRegresses(t *testing.T) {
	all := []enums.PaymentStatus{
		enums.PaymentStatusPending,
		enums.PaymentStatusPaid,
		enums.PaymentStatusFailed,
		enums.PaymentStatusCancelled,
		enums.PaymentStatusExpired,
		enums.PaymentStatusRefunded,
		enums.PaymentStatusPartiallyRefunded,
		enums.PaymentStatusDisputed,
	}
	times := []time.Time{{}, t0, t1, t2}
	for _, current := range all {
		if !current.IsTerminal() {
			continue
		}
		for _, incoming := range all {
			for _, at := range times {
				got := Decide(Transition{Current: current, CurrentAt: &t1, Incoming: incoming, OccurredAt: at})
				if got.Status != current {
					t.Fatalf("%s moved to %s at %v without override", current, got.Status, at)
				}
			}
		}
	}
}

func TestFillString(t *testing.T) {
	existing := "card_declined"

	got, changed := FillString(nil, "expired_card", false)
	assert.True(t, changed)
	assert.Equal(t, "expired_card", *got)

	got, changed = FillString(&existing, "generic_decline", false)
	assert.False(t, changed)
	assert.Equal(t, "card_declined", *got)

	got, changed = FillString(&existing, "generic_decline", true)
	assert.True(t, changed)
	assert.Equal(t, "generic_decline", *got)

	got, changed = FillString(&existing, "  ", true)
	assert.False(t, changed)
	assert.Equal(t, "card_declined", *got)
}

func TestFillDiagnostics(t *testing.T) {
	code := "insufficient_funds"
	updates := FillDiagnostics(&code, nil, Diagnostics{Code: "card_declined", Message: "Your card was declined."}, false)
	assert.Equal(t, map[string]any{"failure_message": "Your card was declined."}, updates)

	updates = FillDiagnostics(&code, nil, Diagnostics{Code: "card_declined"}, true)
	assert.Equal(t, map[string]any{"failure_code": "card_declined"}, updates)
}

func TestAdvanceFulfillment(t *testing.T) {
	cases := []struct {
		current, incoming enums.FulfillmentStatus
		want              enums.FulfillmentStatus
		changed           bool
	}{
		{enums.FulfillmentStatusUnfulfilled, enums.FulfillmentStatusAwaitingCapture, enums.FulfillmentStatusAwaitingCapture, true},
		{enums.FulfillmentStatusShipped, enums.FulfillmentStatusAwaitingCapture, enums.FulfillmentStatusShipped, false},
		{enums.FulfillmentStatusShipped, enums.FulfillmentStatusDelivered, enums.FulfillmentStatusDelivered, true},
		{enums.FulfillmentStatusReadyToShip, enums.FulfillmentStatusCancelled, enums.FulfillmentStatusCancelled, true},
		{enums.FulfillmentStatusDelivered, enums.FulfillmentStatusCancelled, enums.FulfillmentStatusDelivered, false},
		{enums.FulfillmentStatusCancelled, enums.FulfillmentStatusShipped, enums.FulfillmentStatusCancelled, false},
		{"", enums.FulfillmentStatusUnfulfilled, enums.FulfillmentStatusUnfulfilled, true},
	}
	for _, tc := range cases {
		got, changed := AdvanceFulfillment(tc.current, tc.incoming)
		if got != tc.want || changed != tc.changed {
			t.Fatalf("AdvanceFulfillment(%s, %s) = %s, %v; want %s, %v", tc.current, tc.incoming, got, changed, tc.want, tc.changed)
		}
	}
}
