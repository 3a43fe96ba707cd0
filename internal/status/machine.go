// Package status holds the merge rules for payment status, failure
// diagnostics and fulfillment progress.
package status

import (
	"strings"
	"time"

	"github.com/angelmondragon/gatewaysync/pkg/enums"
)

// Decision tells the caller which fields an event may write.
type Decision string

const (
	// DecisionApply writes the status and every derived field.
	DecisionApply Decision = "apply"
	// DecisionRestrict keeps the current status; only fill-if-empty
	// informational fields may be written.
	DecisionRestrict Decision = "restrict"
)

// Reason explains a decision for logs and the journal.
type Reason string

const (
	ReasonInitial          Reason = "initial"
	ReasonUnchanged        Reason = "unchanged"
	ReasonAdvance          Reason = "advance"
	ReasonTerminalIncoming Reason = "terminal_incoming"
	ReasonOverride         Reason = "terminal_override"
	ReasonTerminalCurrent  Reason = "current_terminal"
	ReasonStale            Reason = "stale_event"
	ReasonNotReachable     Reason = "not_reachable"
)

// Transition describes one incoming status against the stored one.
type Transition struct {
	Current   enums.PaymentStatus
	CurrentAt *time.Time
	Incoming  enums.PaymentStatus
	// OccurredAt is when the gateway says the event happened. Zero means unknown
	// and never counts as stale.
	OccurredAt time.Time
	// OverrideTerminal lets a terminal status be left, e.g. dispute funds
	// reinstated after a lost dispute.
	OverrideTerminal bool
}

// Outcome is the result of Decide.
type Outcome struct {
	Decision Decision
	Reason   Reason
	Status   enums.PaymentStatus
}

// Changed reports whether the stored status moves.
func (o Outcome) Changed(current enums.PaymentStatus) bool {
	return o.Decision == DecisionApply && o.Status != current
}

var edges = map[enums.PaymentStatus][]enums.PaymentStatus{
	enums.PaymentStatusPending: {
		enums.PaymentStatusPaid,
		enums.PaymentStatusFailed,
		enums.PaymentStatusCancelled,
		enums.PaymentStatusExpired,
	},
	enums.PaymentStatusFailed: {
		enums.PaymentStatusPaid,
		enums.PaymentStatusCancelled,
		enums.PaymentStatusExpired,
		enums.PaymentStatusPending,
	},
	enums.PaymentStatusPaid: {
		enums.PaymentStatusRefunded,
		enums.PaymentStatusPartiallyRefunded,
		enums.PaymentStatusDisputed,
	},
	enums.PaymentStatusPartiallyRefunded: {
		enums.PaymentStatusRefunded,
		enums.PaymentStatusPartiallyRefunded,
		enums.PaymentStatusDisputed,
	},
	enums.PaymentStatusDisputed: {
		enums.PaymentStatusPaid,
		enums.PaymentStatusCancelled,
	},
}

// Reachable reports whether to can be reached from from by following the
// lifecycle graph. A refund that lands before the paid event is reachable
// from pending through paid.
func Reachable(from, to enums.PaymentStatus) bool {
	seen := map[enums.PaymentStatus]bool{from: true}
	queue := []enums.PaymentStatus{from}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		for _, candidate := range edges[next] {
			if candidate == to {
				return true
			}
			if !seen[candidate] {
				seen[candidate] = true
				queue = append(queue, candidate)
			}
		}
	}
	return false
}

// Decide applies the payment status rules in order:
//  1. a document without a status takes the incoming one
//  2. an unchanged status is applied so informational fields refresh
//  3. a terminal current status holds unless explicitly overridden
//  4. a status the lifecycle cannot reach is refused
//  5. a terminal incoming status wins regardless of arrival order
//  6. an event older than the current status cannot move it
func Decide(t Transition) Outcome {
	switch {
	case t.Incoming == "":
		return Outcome{Decision: DecisionRestrict, Reason: ReasonUnchanged, Status: t.Current}
	case t.Current == "":
		return Outcome{Decision: DecisionApply, Reason: ReasonInitial, Status: t.Incoming}
	case t.Current == t.Incoming:
		return Outcome{Decision: DecisionApply, Reason: ReasonUnchanged, Status: t.Current}
	case t.OverrideTerminal:
		return Outcome{Decision: DecisionApply, Reason: ReasonOverride, Status: t.Incoming}
	case t.Current.IsTerminal():
		return Outcome{Decision: DecisionRestrict, Reason: ReasonTerminalCurrent, Status: t.Current}
	case !Reachable(t.Current, t.Incoming):
		return Outcome{Decision: DecisionRestrict, Reason: ReasonNotReachable, Status: t.Current}
	case t.Incoming.IsTerminal():
		return Outcome{Decision: DecisionApply, Reason: ReasonTerminalIncoming, Status: t.Incoming}
	case isStale(t.CurrentAt, t.OccurredAt):
		return Outcome{Decision: DecisionRestrict, Reason: ReasonStale, Status: t.Current}
	}
	return Outcome{Decision: DecisionApply, Reason: ReasonAdvance, Status: t.Incoming}
}

func isStale(currentAt *time.Time, occurredAt time.Time) bool {
	if currentAt == nil || currentAt.IsZero() || occurredAt.IsZero() {
		return false
	}
	return occurredAt.Before(*currentAt)
}

// FillString returns the value to store for a fill-if-empty field. It keeps a
// non-empty current value unless force is set, and never stores an empty
// incoming value.
func FillString(current *string, incoming string, force bool) (*string, bool) {
	incoming = strings.TrimSpace(incoming)
	if incoming == "" {
		return current, false
	}
	if current != nil && strings.TrimSpace(*current) != "" && !force {
		return current, false
	}
	if current != nil && *current == incoming {
		return current, false
	}
	return &incoming, true
}

// Diagnostics is a failure code and message pair.
type Diagnostics struct {
	Code    string
	Message string
}

// IsEmpty reports whether neither field is set.
func (d Diagnostics) IsEmpty() bool {
	return strings.TrimSpace(d.Code) == "" && strings.TrimSpace(d.Message) == ""
}

// FillDiagnostics merges failure diagnostics under the fill-if-empty rule and
// returns the column updates to write.
func FillDiagnostics(currentCode, currentMessage *string, incoming Diagnostics, force bool) map[string]any {
	updates := map[string]any{}
	if code, changed := FillString(currentCode, incoming.Code, force); changed {
		updates["failure_code"] = *code
	}
	if msg, changed := FillString(currentMessage, incoming.Message, force); changed {
		updates["failure_message"] = *msg
	}
	return updates
}

// AdvanceFulfillment moves fulfillment forward along the ladder. Cancelled is
// reachable from anywhere except delivered and is never left.
func AdvanceFulfillment(current, incoming enums.FulfillmentStatus) (enums.FulfillmentStatus, bool) {
	if incoming == "" || incoming == current {
		return current, false
	}
	if current == "" {
		return incoming, true
	}
	if current == enums.FulfillmentStatusCancelled {
		return current, false
	}
	if incoming == enums.FulfillmentStatusCancelled {
		if current == enums.FulfillmentStatusDelivered {
			return current, false
		}
		return incoming, true
	}
	if incoming.Rank() > current.Rank() {
		return incoming, true
	}
	return current, false
}
