// Package money implements fixed-point monetary amounts in per-currency
// minor units. Arithmetic on amounts is exact integer math; exchange-rate
// and percentage math goes through shopspring/decimal and rounds back to
// minor units half-up.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/sahartak2025/Code-samples-sub000/pkg/errors"
)

// Currency represents an ISO 4217 (or crypto ticker) currency code.
type Currency string

const (
	USD  Currency = "USD"
	EUR  Currency = "EUR"
	GBP  Currency = "GBP"
	JPY  Currency = "JPY"
	BTC  Currency = "BTC"
	ETH  Currency = "ETH"
	USDT Currency = "USDT"
)

// exponents maps a currency to its minor-unit exponent.
var exponents = map[Currency]int32{
	USD:  2,
	EUR:  2,
	GBP:  2,
	JPY:  0,
	BTC:  8,
	ETH:  8,
	USDT: 6,
}

// Exponent returns the minor-unit exponent for a currency.
func Exponent(c Currency) (int32, error) {
	exp, ok := exponents[c]
	if !ok {
		return 0, errors.ErrInvalidCurrency
	}
	return exp, nil
}

// IsSupported reports whether the currency has a registered precision.
func IsSupported(c Currency) bool {
	_, ok := exponents[c]
	return ok
}

// Money is a fixed-point amount of a single currency. The zero value is
// zero units of the empty currency and is only useful as a placeholder.
type Money struct {
	// Units is the amount in minor units (cents, satoshi, ...).
	Units    int64    `json:"units"`
	Currency Currency `json:"currency"`
}

// New builds a Money from minor units.
func New(units int64, currency Currency) Money {
	return Money{Units: units, Currency: currency}
}

// FromDecimal converts a major-unit decimal amount into minor units,
// rounding half-up at the currency's precision.
func FromDecimal(d decimal.Decimal, currency Currency) (Money, error) {
	exp, err := Exponent(currency)
	if err != nil {
		return Money{}, err
	}
	units := d.Shift(exp).Round(0).IntPart()
	return Money{Units: units, Currency: currency}, nil
}

// Decimal returns the amount in major units as an exact decimal.
func (m Money) Decimal() decimal.Decimal {
	exp, ok := exponents[m.Currency]
	if !ok {
		return decimal.NewFromInt(m.Units)
	}
	return decimal.NewFromInt(m.Units).Shift(-exp)
}

func (m Money) IsZero() bool     { return m.Units == 0 }
func (m Money) IsPositive() bool { return m.Units > 0 }
func (m Money) IsNegative() bool { return m.Units < 0 }

// Add returns m + other. The currencies must match.
func (m Money) Add(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, errors.ErrCurrencyMismatch
	}
	return Money{Units: m.Units + other.Units, Currency: m.Currency}, nil
}

// Sub returns m - other. The currencies must match.
func (m Money) Sub(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, errors.ErrCurrencyMismatch
	}
	return Money{Units: m.Units - other.Units, Currency: m.Currency}, nil
}

// Cmp compares two amounts of the same currency: -1 if m < other,
// 0 if equal, +1 if m > other.
func (m Money) Cmp(other Money) (int, error) {
	if m.Currency != other.Currency {
		return 0, errors.ErrCurrencyMismatch
	}
	switch {
	case m.Units < other.Units:
		return -1, nil
	case m.Units > other.Units:
		return 1, nil
	default:
		return 0, nil
	}
}

// Convert applies an exchange rate and returns the equivalent amount in
// the target currency, rounded to the target's minor units.
func (m Money) Convert(rate decimal.Decimal, target Currency) (Money, error) {
	if target == m.Currency {
		return m, nil
	}
	return FromDecimal(m.Decimal().Mul(rate), target)
}

// Percent returns p percent of the amount, rounded to minor units.
func (m Money) Percent(p decimal.Decimal) Money {
	units := decimal.NewFromInt(m.Units).Mul(p).Div(decimal.NewFromInt(100)).Round(0).IntPart()
	return Money{Units: units, Currency: m.Currency}
}

// Clamp bounds the amount into [min, max]. A zero max means unbounded.
func (m Money) Clamp(min, max Money) Money {
	out := m
	if !min.IsZero() && out.Units < min.Units {
		out.Units = min.Units
	}
	if !max.IsZero() && out.Units > max.Units {
		out.Units = max.Units
	}
	return out
}

func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.Decimal().StringFixed(exponentOrZero(m.Currency)), m.Currency)
}

func exponentOrZero(c Currency) int32 {
	if exp, ok := exponents[c]; ok {
		return exp
	}
	return 0
}
