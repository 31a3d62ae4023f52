package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrReasonRequired    = errors.New("reason is required")
)

// Event is something that moves a submission between states
type Event string

const (
	EventApprove  Event = "approve"
	EventHold     Event = "hold"
	EventCancel   Event = "cancel"
	EventEscalate Event = "escalate"
	EventClaim    Event = "claim"
	EventSent     Event = "sent"
	EventRevert   Event = "revert"
)

// transitions maps each event to the states it may leave from and the state it enters
var transitions = map[Event]struct {
	from []Status
	to   Status
}{
	EventApprove:  {from: []Status{StatusPending, StatusUrgentFlagged}, to: StatusApproved},
	EventHold:     {from: []Status{StatusPending, StatusUrgentFlagged}, to: StatusHold},
	EventCancel:   {from: []Status{StatusPending, StatusUrgentFlagged}, to: StatusCancelled},
	EventEscalate: {from: []Status{StatusUrgentFlagged}, to: StatusEscalated},
	EventClaim:    {from: EligibleStatuses, to: StatusSending},
	EventSent:     {from: []Status{StatusSending}, to: StatusAutoSent},
	EventRevert:   {from: []Status{StatusSending}, to: StatusPending},
}

// SourceStatuses returns the states from which e may be applied
func SourceStatuses(e Event) []Status {
	t, ok := transitions[e]
	if !ok {
		return nil
	}
	out := make([]Status, len(t.from))
	copy(out, t.from)
	return out
}

// Transition returns the state reached by applying e to from
func Transition(from Status, e Event) (Status, error) {
	t, ok := transitions[e]
	if !ok {
		return "", fmt.Errorf("%w: unknown event %q", ErrInvalidTransition, e)
	}
	for _, s := range t.from {
		if s == from {
			return t.to, nil
		}
	}
	return "", fmt.Errorf("%w: cannot %s from %s", ErrInvalidTransition, e, from)
}

// RequiresReason reports whether an admin must supply a reason for e
func RequiresReason(e Event) bool {
	return e == EventHold || e == EventCancel
}
