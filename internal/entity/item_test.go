package entity

import (
	"errors"
	"testing"
)

func newTestItem(t *testing.T, quantity int) *InventoryItem {
	t.Helper()
	item, err := NewInventoryItem(ItemSpec{
		Title:    "Mechanical Keyboard",
		Brand:    "Keychron",
		Quantity: quantity,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return item
}

func TestNewInventoryItem_Valid(t *testing.T) {
	item, err := NewInventoryItem(ItemSpec{
		Title:      "Desk Lamp",
		Brand:      "Lumina",
		Images:     []string{"a.jpg", "b.jpg"},
		Categories: []string{"Home"},
		Quantity:   5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.ID() == "" {
		t.Error("expected generated id")
	}
	if item.Quantity() != 5 {
		t.Errorf("expected quantity 5, got %d", item.Quantity())
	}
	if len(item.Images()) != 2 {
		t.Errorf("expected 2 images, got %d", len(item.Images()))
	}
}

func TestNewInventoryItem_Invalid(t *testing.T) {
	cases := []struct {
		name string
		spec ItemSpec
	}{
		{"empty title", ItemSpec{Brand: "Keychron", Quantity: 1}},
		{"blank title", ItemSpec{Title: "   ", Brand: "Keychron", Quantity: 1}},
		{"empty brand", ItemSpec{Title: "Keyboard", Quantity: 1}},
		{"negative quantity", ItemSpec{Title: "Keyboard", Brand: "Keychron", Quantity: -1}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewInventoryItem(tc.spec); !errors.Is(err, ErrInvalidSpec) {
				t.Errorf("expected ErrInvalidSpec, got %v", err)
			}
		})
	}
}

func TestReserve(t *testing.T) {
	item := newTestItem(t, 10)

	if err := item.Reserve(4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.Quantity() != 6 {
		t.Errorf("expected quantity 6, got %d", item.Quantity())
	}
}

func TestReserve_Insufficient(t *testing.T) {
	item := newTestItem(t, 2)

	if err := item.Reserve(5); err == nil {
		t.Fatal("expected error")
	}
	if item.Quantity() != 2 {
		t.Errorf("quantity changed on failed reserve: %d", item.Quantity())
	}
}

func TestReserve_NonPositive(t *testing.T) {
	item := newTestItem(t, 10)

	for _, amount := range []int{0, -3} {
		if err := item.Reserve(amount); !errors.Is(err, ErrInvalidSpec) {
			t.Errorf("Reserve(%d): expected ErrInvalidSpec, got %v", amount, err)
		}
	}
	if item.Quantity() != 10 {
		t.Errorf("quantity changed: %d", item.Quantity())
	}
}

func TestRelease(t *testing.T) {
	item := newTestItem(t, 6)

	if err := item.Release(3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.Quantity() != 9 {
		t.Errorf("expected quantity 9, got %d", item.Quantity())
	}
}

func TestRelease_RefreshesUpdatedAt(t *testing.T) {
	item := newTestItem(t, 6)
	before := item.UpdatedAt()

	if err := item.Release(1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.UpdatedAt().Before(before) {
		t.Error("expected updated timestamp to move forward")
	}
}

func TestQuantityNeverNegative(t *testing.T) {
	item := newTestItem(t, 3)

	// Random-ish walk of reserves and releases; the invariant must hold after
	// every step.
	steps := []struct {
		reserve bool
		amount  int
	}{
		{true, 2}, {true, 2}, {false, 4}, {true, 5}, {true, 1}, {false, 1}, {true, 3},
	}
	for i, step := range steps {
		if step.reserve {
			item.Reserve(step.amount)
		} else {
			item.Release(step.amount)
		}
		if item.Quantity() < 0 {
			t.Fatalf("step %d: quantity went negative: %d", i, item.Quantity())
		}
	}
}

func TestUpdateDetails(t *testing.T) {
	item := newTestItem(t, 1)

	title := "Updated Keyboard"
	if err := item.UpdateDetails(ItemChanges{Title: &title, Categories: []string{"Electronics"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.Title() != title {
		t.Errorf("expected title %q, got %q", title, item.Title())
	}
	if item.Brand() != "Keychron" {
		t.Errorf("brand changed unexpectedly: %q", item.Brand())
	}

	empty := " "
	if err := item.UpdateDetails(ItemChanges{Title: &empty}); !errors.Is(err, ErrInvalidSpec) {
		t.Errorf("expected ErrInvalidSpec, got %v", err)
	}
}

func TestNewPrice(t *testing.T) {
	price, err := NewPrice(12.50, USD)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := price.String(); got != "$12.50" {
		t.Errorf("expected $12.50, got %s", got)
	}

	if _, err := NewPrice(-1, USD); !errors.Is(err, ErrInvalidSpec) {
		t.Errorf("expected ErrInvalidSpec, got %v", err)
	}
}

func TestNewCurrency(t *testing.T) {
	c, err := NewCurrency("jpy", "Japanese Yen", "¥")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Code() != "JPY" {
		t.Errorf("expected upper-cased code, got %s", c.Code())
	}

	if _, err := NewCurrency("US", "", ""); !errors.Is(err, ErrInvalidSpec) {
		t.Errorf("expected ErrInvalidSpec, got %v", err)
	}
}
