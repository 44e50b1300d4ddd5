package entity

import (
	"fmt"
	"strings"
	"time"
)

// Currency is an immutable value identified by its 3-letter code.
type Currency struct {
	code   string
	name   string
	symbol string
}

// NewCurrency validates and constructs a currency value.
func NewCurrency(code, name, symbol string) (Currency, error) {
	if len(code) != 3 {
		return Currency{}, fmt.Errorf("%w: currency code must be 3 characters", ErrInvalidSpec)
	}
	return Currency{code: strings.ToUpper(code), name: name, symbol: symbol}, nil
}

// Well-known currencies.
var (
	USD = Currency{code: "USD", name: "US Dollar", symbol: "$"}
	EUR = Currency{code: "EUR", name: "Euro", symbol: "€"}
	GBP = Currency{code: "GBP", name: "British Pound", symbol: "£"}
)

func (c Currency) Code() string   { return c.code }
func (c Currency) Name() string   { return c.name }
func (c Currency) Symbol() string { return c.symbol }

func (c Currency) Equals(other Currency) bool { return c.code == other.code }

// Price is an immutable amount in a given currency. Price changes append a new
// record; an existing price is never edited.
type Price struct {
	amount      float64
	currency    Currency
	effectiveAt time.Time
}

// NewPrice constructs a price effective now.
func NewPrice(amount float64, currency Currency) (Price, error) {
	if amount < 0 {
		return Price{}, fmt.Errorf("%w: price amount cannot be negative", ErrInvalidSpec)
	}
	return Price{amount: amount, currency: currency, effectiveAt: time.Now().UTC()}, nil
}

// ReconstitutePrice rebuilds a price record from persisted state.
func ReconstitutePrice(amount float64, currency Currency, effectiveAt time.Time) Price {
	return Price{amount: amount, currency: currency, effectiveAt: effectiveAt}
}

func (p Price) Amount() float64        { return p.amount }
func (p Price) Currency() Currency     { return p.currency }
func (p Price) EffectiveAt() time.Time { return p.effectiveAt }

func (p Price) Equals(other Price) bool {
	return p.amount == other.amount && p.currency.Equals(other.currency)
}

func (p Price) String() string {
	return fmt.Sprintf("%s%.2f", p.currency.symbol, p.amount)
}
