// Package money provides a currency-tagged amount type.
//
// The currency is a type parameter, so Money[USD] and Money[EUR] are distinct
// types: adding them together is a compile error, not a runtime check.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// Currency tags a Money value at the type level.
type Currency interface {
	Unit() currency.Unit
	Symbol() string
}

type USD struct{}

func (USD) Unit() currency.Unit { return currency.USD }
func (USD) Symbol() string { return "$" }

type EUR struct{}

func (EUR) Unit() currency.Unit { return currency.EUR }
func (EUR) Symbol() string { return "€" }

// Money is an immutable amount in currency C.
//
// The zero-size cur field makes the underlying struct type differ per currency,
// which prevents explicit conversions like Money[EUR](usd).
type Money[C Currency] struct {
	amount decimal.Decimal
	cur    C
}

// New builds a Money value from a plain number. The value is not range checked.
func New[C Currency](n float64) Money[C] {
	return Money[C]{amount: decimal.NewFromFloat(n)}
}

// FromCents builds a Money value from minor units.
func FromCents[C Currency](cents int64) Money[C] {
	return Money[C]{amount: decimal.New(cents, -2)}
}

// FromDecimal builds a Money value from an exact decimal.
func FromDecimal[C Currency](d decimal.Decimal) Money[C] {
	return Money[C]{amount: d}
}

// Parse builds a Money value from a decimal string such as "10.50".
func Parse[C Currency](s string) (Money[C], error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money[C]{}, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	return Money[C]{amount: d}, nil
}

// Zero returns a zero amount.
func Zero[C Currency]() Money[C] {
	return Money[C]{amount: decimal.Zero}
}

// Add returns a + b.
func Add[C Currency](a, b Money[C]) Money[C] {
	return Money[C]{amount: a.amount.Add(b.amount)}
}

// Sum adds all values starting from zero.
func Sum[C Currency](values ...Money[C]) Money[C] {
	total := Zero[C]()
	for _, v := range values {
		total = Add(total, v)
	}
	return total
}

// Format renders the amount with the currency symbol and exactly two decimals.
func Format[C Currency](m Money[C]) string {
	return m.cur.Symbol() + m.amount.StringFixed(2)
}

func (m Money[C]) Add(other Money[C]) Money[C] { return Add(m, other) }

func (m Money[C]) Sub(other Money[C]) Money[C] {
	return Money[C]{amount: m.amount.Sub(other.amount)}
}

// Mul multiplies the amount by a quantity.
func (m Money[C]) Mul(qty int) Money[C] {
	return Money[C]{amount: m.amount.Mul(decimal.NewFromInt(int64(qty)))}
}

// Percent returns p percent of the amount, keeping full decimal precision.
func (m Money[C]) Percent(p int64) Money[C] {
	return Money[C]{amount: m.amount.Mul(decimal.NewFromInt(p)).Div(decimal.NewFromInt(100))}
}

func (m Money[C]) Equal(other Money[C]) bool { return m.amount.Equal(other.amount) }

func (m Money[C]) Cmp(other Money[C]) int { return m.amount.Cmp(other.amount) }

func (m Money[C]) IsZero() bool { return m.amount.IsZero() }

func (m Money[C]) IsNegative() bool { return m.amount.IsNegative() }

// Decimal returns the exact amount.
func (m Money[C]) Decimal() decimal.Decimal { return m.amount }

// Cents returns the amount in minor units, rounded half away from zero.
func (m Money[C]) Cents() int64 { return m.amount.Shift(2).Round(0).IntPart() }

// Currency returns the ISO 4217 unit of C.
func (m Money[C]) Currency() currency.Unit { return m.cur.Unit() }

func (m Money[C]) String() string { return Format(m) }

// MarshalJSON encodes the exact amount as a JSON number. Use Format for
// two-decimal display.
func (m Money[C]) MarshalJSON() ([]byte, error) {
	return []byte(m.amount.String()), nil
}

// UnmarshalJSON accepts both JSON numbers and quoted decimal strings.
func (m *Money[C]) UnmarshalJSON(b []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return fmt.Errorf("decoding amount: %w", err)
	}
	m.amount = d
	return nil
}
