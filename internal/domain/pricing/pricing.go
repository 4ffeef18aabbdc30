package pricing

import (
	"errors"
	"math"

	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
)

var (
	ErrInvalidPrice  = errors.New("pricing: nightly rate must be non-negative and nights positive")
	ErrCurrencyUnset = errors.New("pricing: currency must be defined")
)

// DefaultTaxRate is the occupancy tax applied to every stay.
const DefaultTaxRate = 0.18

// PriceBreakdown is the quoted price of a stay. Total always equals
// Subtotal + Taxes; RecalculateTotal restores the invariant.
type PriceBreakdown struct {
	Nights   int
	Nightly  money.Money
	TaxRate  float64
	Subtotal money.Money
	Taxes    money.Money
	Total    money.Money
}

// Quote prices a stay at the given nightly rate. Nights are counted with
// the half-open range's ceiling rule, taxes are rounded half away from
// zero to whole currency units. The same function backs both the booking
// path and the UI price preview so the two can never drift.
func Quote(nightly money.Money, dr daterange.DateRange, taxRate float64) (PriceBreakdown, error) {
	if nightly.Currency == "" {
		return PriceBreakdown{}, ErrCurrencyUnset
	}
	if nightly.IsNegative() || taxRate < 0 {
		return PriceBreakdown{}, ErrInvalidPrice
	}
	nights := dr.Nights()
	if nights <= 0 {
		return PriceBreakdown{}, ErrInvalidPrice
	}
	subtotal := nightly.Multiply(int64(nights))
	taxes := money.Money{
		Amount:   int64(math.Round(float64(subtotal.Amount) * taxRate)),
		Currency: subtotal.Currency,
	}
	total, err := subtotal.Add(taxes)
	if err != nil {
		return PriceBreakdown{}, err
	}
	return PriceBreakdown{
		Nights:   nights,
		Nightly:  nightly,
		TaxRate:  taxRate,
		Subtotal: subtotal,
		Taxes:    taxes,
		Total:    total,
	}, nil
}

// Validate checks structural invariants of an existing breakdown.
func (p *PriceBreakdown) Validate() error {
	if p.Nightly.Currency == "" {
		return ErrCurrencyUnset
	}
	if p.Nights <= 0 || p.Nightly.IsNegative() {
		return ErrInvalidPrice
	}
	return nil
}

// RecalculateTotal re-derives Total from Subtotal and Taxes so the stored
// value can never drift from the formula.
func (p *PriceBreakdown) RecalculateTotal() error {
	if err := p.Validate(); err != nil {
		return err
	}
	total, err := p.Subtotal.Add(p.Taxes)
	if err != nil {
		return err
	}
	p.Total = total
	return nil
}
