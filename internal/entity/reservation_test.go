package entity

import (
	"errors"
	"testing"
)

func snapshot(t *testing.T, quantities map[string]int) map[string]*InventoryItem {
	t.Helper()
	items := make(map[string]*InventoryItem, len(quantities))
	for id, qty := range quantities {
		item, err := NewInventoryItem(ItemSpec{Title: "Item " + id, Brand: "Acme", Quantity: qty})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		items[id] = Reconstitute(id, item.Title(), item.Brand(), "", nil, nil, qty, 0, item.CreatedAt(), item.UpdatedAt())
	}
	return items
}

func TestValidateReservation_CollectsAllFailures(t *testing.T) {
	items := snapshot(t, map[string]int{"a": 1, "b": 10})

	failures := ValidateReservation(items, []ReservationLine{
		{ProductID: "a", Quantity: 5},
		{ProductID: "b", Quantity: 2},
		{ProductID: "missing", Quantity: 1},
	})

	if len(failures) != 2 {
		t.Fatalf("expected 2 failures, got %d: %v", len(failures), failures)
	}
	if failures[0].Reason != FailureInsufficient || failures[0].Available != 1 || failures[0].Requested != 5 {
		t.Errorf("unexpected first failure: %+v", failures[0])
	}
	if failures[1].Reason != FailureNotFound || failures[1].ProductID != "missing" {
		t.Errorf("unexpected second failure: %+v", failures[1])
	}

	// Validation never mutates.
	if items["a"].Quantity() != 1 || items["b"].Quantity() != 10 {
		t.Error("validation mutated the snapshot")
	}
}

func TestApplyReservation_Success(t *testing.T) {
	items := snapshot(t, map[string]int{"x": 10, "y": 4})

	err := ApplyReservation(items, []ReservationLine{
		{ProductID: "x", Quantity: 4},
		{ProductID: "y", Quantity: 1},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if items["x"].Quantity() != 6 {
		t.Errorf("expected x=6, got %d", items["x"].Quantity())
	}
	if items["y"].Quantity() != 3 {
		t.Errorf("expected y=3, got %d", items["y"].Quantity())
	}
}

func TestApplyReservation_DuplicateLinesCollapseLastWins(t *testing.T) {
	items := snapshot(t, map[string]int{"x": 5})

	// Two lines for the same product are one reservation; the last quantity
	// wins, same as the restated item lists on the wire.
	err := ApplyReservation(items, []ReservationLine{
		{ProductID: "x", Quantity: 3},
		{ProductID: "x", Quantity: 3},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if items["x"].Quantity() != 2 {
		t.Errorf("expected x=2 after one collapsed reservation, got %d", items["x"].Quantity())
	}
}

func TestApplyReservation_DuplicateLinesRejectedWhole(t *testing.T) {
	items := snapshot(t, map[string]int{"x": 5})

	err := ApplyReservation(items, []ReservationLine{
		{ProductID: "x", Quantity: 2},
		{ProductID: "x", Quantity: 9},
	})

	var rejected *ReservationRejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("expected ReservationRejectedError, got %v", err)
	}
	if len(rejected.Failures) != 1 {
		t.Fatalf("expected 1 collapsed failure, got %d", len(rejected.Failures))
	}
	if rejected.Failures[0].Requested != 9 || rejected.Failures[0].Available != 5 {
		t.Errorf("unexpected failure: %+v", rejected.Failures[0])
	}
	if items["x"].Quantity() != 5 {
		t.Errorf("rejection mutated the snapshot: %d", items["x"].Quantity())
	}
}

func TestApplyReservation_AllOrNothing(t *testing.T) {
	// x could be satisfied but y cannot; neither may change.
	items := snapshot(t, map[string]int{"x": 5, "y": 2})

	err := ApplyReservation(items, []ReservationLine{
		{ProductID: "x", Quantity: 2},
		{ProductID: "y", Quantity: 3},
	})

	var rejected *ReservationRejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("expected ReservationRejectedError, got %v", err)
	}
	if len(rejected.Failures) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(rejected.Failures))
	}
	if items["x"].Quantity() != 5 {
		t.Errorf("x was partially decremented: %d", items["x"].Quantity())
	}
	if items["y"].Quantity() != 2 {
		t.Errorf("y changed: %d", items["y"].Quantity())
	}
}

func TestReservationRejectedError_Totals(t *testing.T) {
	err := &ReservationRejectedError{Failures: []ReservationFailure{
		{ProductID: "a", Reason: FailureInsufficient, Requested: 5, Available: 2},
		{ProductID: "b", Reason: FailureNotFound, Requested: 3},
	}}

	requested, available := err.Totals()
	if requested != 8 {
		t.Errorf("expected requested 8, got %d", requested)
	}
	if available != 2 {
		t.Errorf("expected available 2, got %d", available)
	}
}

func TestApplyRelease(t *testing.T) {
	items := snapshot(t, map[string]int{"a": 6})

	if err := ApplyRelease(items, []ReleaseLine{{ProductID: "a", Quantity: 3}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if items["a"].Quantity() != 9 {
		t.Errorf("expected 9, got %d", items["a"].Quantity())
	}
}

func TestApplyRelease_UnknownItem(t *testing.T) {
	items := snapshot(t, map[string]int{"a": 6})

	err := ApplyRelease(items, []ReleaseLine{
		{ProductID: "a", Quantity: 3},
		{ProductID: "ghost", Quantity: 1},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	// Validation runs before any mutation.
	if items["a"].Quantity() != 6 {
		t.Errorf("a changed on failed release: %d", items["a"].Quantity())
	}
}
