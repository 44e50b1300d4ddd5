package entity

import (
	"fmt"
	"strings"
)

// ReservationLine is one requested (product, quantity) pair.
type ReservationLine struct {
	ProductID string
	Quantity  int
	Currency  string
}

// ReservationRequest is the ephemeral input for a multi-item reservation.
// EventID is the idempotency key: the source event id when the request comes
// from the broker, a generated id otherwise.
type ReservationRequest struct {
	EventID string
	UserID  string
	Lines   []ReservationLine
}

// ReleaseLine is one (product, quantity) pair to credit back.
type ReleaseLine struct {
	ProductID string
	Quantity  int
	Reason    string
}

// ReleaseRequest is the ephemeral input for a multi-item release.
type ReleaseRequest struct {
	EventID string
	UserID  string
	Lines   []ReleaseLine
}

// FailureReason classifies why a single reservation line cannot be satisfied.
type FailureReason string

const (
	FailureNotFound     FailureReason = "not_found"
	FailureInsufficient FailureReason = "insufficient_quantity"
)

// ReservationFailure records one line that failed validation.
type ReservationFailure struct {
	ProductID string        `json:"productId"`
	Reason    FailureReason `json:"reason"`
	Requested int           `json:"requested"`
	Available int           `json:"available"`
}

func (f ReservationFailure) String() string {
	switch f.Reason {
	case FailureNotFound:
		return fmt.Sprintf("item %s not found", f.ProductID)
	default:
		return fmt.Sprintf("item %s has insufficient quantity: available %d, requested %d", f.ProductID, f.Available, f.Requested)
	}
}

// ReservationRejectedError aggregates every validation failure of a
// reservation; it is never partial.
type ReservationRejectedError struct {
	Failures []ReservationFailure
}

func (e *ReservationRejectedError) Error() string {
	msgs := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		msgs[i] = f.String()
	}
	return "cannot reserve items: " + strings.Join(msgs, "; ")
}

// Totals sums the requested and available quantities over the failing lines.
func (e *ReservationRejectedError) Totals() (requested, available int) {
	for _, f := range e.Failures {
		requested += f.Requested
		available += f.Available
	}
	return requested, available
}

// CoalesceReservationLines collapses duplicate product ids, keeping the last
// line for each product at the position of its first occurrence. Validation
// and application both run over the collapsed view, so duplicate lines that
// individually fit cannot jointly overdraw an item.
func CoalesceReservationLines(lines []ReservationLine) []ReservationLine {
	index := make(map[string]int, len(lines))
	out := make([]ReservationLine, 0, len(lines))
	for _, line := range lines {
		if i, seen := index[line.ProductID]; seen {
			out[i] = line
			continue
		}
		index[line.ProductID] = len(out)
		out = append(out, line)
	}
	return out
}

// CoalesceReleaseLines collapses duplicate product ids, last line wins.
func CoalesceReleaseLines(lines []ReleaseLine) []ReleaseLine {
	index := make(map[string]int, len(lines))
	out := make([]ReleaseLine, 0, len(lines))
	for _, line := range lines {
		if i, seen := index[line.ProductID]; seen {
			out[i] = line
			continue
		}
		index[line.ProductID] = len(out)
		out = append(out, line)
	}
	return out
}

// ValidateReservation checks every line against the item snapshot without
// mutating anything. It returns all failures, not just the first.
func ValidateReservation(items map[string]*InventoryItem, lines []ReservationLine) []ReservationFailure {
	var failures []ReservationFailure
	for _, line := range CoalesceReservationLines(lines) {
		item, ok := items[line.ProductID]
		if !ok {
			failures = append(failures, ReservationFailure{
				ProductID: line.ProductID,
				Reason:    FailureNotFound,
				Requested: line.Quantity,
			})
			continue
		}
		if !item.IsAvailable(line.Quantity) {
			failures = append(failures, ReservationFailure{
				ProductID: line.ProductID,
				Reason:    FailureInsufficient,
				Requested: line.Quantity,
				Available: item.Quantity(),
			})
		}
	}
	return failures
}

// ApplyReservation decrements every requested item, all or nothing. If any
// line fails validation no item is mutated and a ReservationRejectedError
// listing every failure is returned.
func ApplyReservation(items map[string]*InventoryItem, lines []ReservationLine) error {
	lines = CoalesceReservationLines(lines)
	if failures := ValidateReservation(items, lines); len(failures) > 0 {
		return &ReservationRejectedError{Failures: failures}
	}
	for _, line := range lines {
		if err := items[line.ProductID].Reserve(line.Quantity); err != nil {
			// Unreachable after validation; a bug here must not pass silently.
			return fmt.Errorf("reserve %s: %w", line.ProductID, err)
		}
	}
	return nil
}

// ApplyRelease credits quantity back to every item. Releases are compensations
// and always succeed as long as the items exist and amounts are positive.
func ApplyRelease(items map[string]*InventoryItem, lines []ReleaseLine) error {
	lines = CoalesceReleaseLines(lines)
	for _, line := range lines {
		if _, ok := items[line.ProductID]; !ok {
			return fmt.Errorf("release %s: item not found", line.ProductID)
		}
		if line.Quantity <= 0 {
			return fmt.Errorf("release %s: %w: release amount must be positive", line.ProductID, ErrInvalidSpec)
		}
	}
	for _, line := range lines {
		if err := items[line.ProductID].Release(line.Quantity); err != nil {
			return fmt.Errorf("release %s: %w", line.ProductID, err)
		}
	}
	return nil
}
