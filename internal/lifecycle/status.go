package lifecycle

import (
	"errors"
	"fmt"
)

// Status is one stage of the post/news lifecycle. News items use the
// same vocabulary loosely: they only ever hold Pending or Approved.
type Status string

const (
	StatusScraping        Status = "scraping"
	StatusEditing         Status = "editing"
	StatusDesigning       Status = "designing"
	StatusPendingApproval Status = "pending_approval"
	StatusApproved        Status = "approved"
	StatusPublished       Status = "published"
	StatusFailed          Status = "failed"

	// News item statuses.
	StatusPending Status = "pending"
)

// ErrIllegalTransition is returned when a requested status change is
// not in the transition table.
var ErrIllegalTransition = errors.New("illegal status transition")

// transitions maps each status to the set of statuses it may advance
// to. Forward-only, except the explicit editing re-entry on a
// regenerate command, and failed reachable from any working stage.
var transitions = map[Status][]Status{
	StatusScraping:        {StatusDesigning, StatusFailed},
	StatusEditing:         {StatusDesigning, StatusFailed},
	StatusDesigning:       {StatusPendingApproval, StatusFailed},
	StatusPendingApproval: {StatusApproved, StatusEditing, StatusFailed},
	StatusApproved:        {StatusPublished, StatusEditing, StatusFailed},
	StatusPublished:       {},
	StatusFailed:          {},

	StatusPending: {StatusApproved},
}

// CanTransition reports whether from -> to is a legal advancement.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Validate returns ErrIllegalTransition (wrapped with both statuses)
// unless from -> to is legal.
func Validate(from, to Status) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
	}
	return nil
}

// Terminal reports whether no further advancement is possible.
func Terminal(s Status) bool {
	return len(transitions[s]) == 0
}

// Parse converts a raw string into a Status, rejecting unknown values.
func Parse(raw string) (Status, error) {
	s := Status(raw)
	if _, ok := transitions[s]; !ok {
		return "", fmt.Errorf("unknown status %q", raw)
	}
	return s, nil
}
