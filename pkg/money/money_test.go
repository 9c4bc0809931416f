package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/sahartak2025/Code-samples-sub000/pkg/errors"
)

func TestFromDecimal_RoundsHalfUp(t *testing.T) {
	m, err := FromDecimal(decimal.RequireFromString("10.005"), USD)
	assert.NoError(t, err)
	assert.Equal(t, int64(1001), m.Units)

	m, err = FromDecimal(decimal.RequireFromString("10.004"), USD)
	assert.NoError(t, err)
	assert.Equal(t, int64(1000), m.Units)
}

func TestFromDecimal_ZeroExponentCurrency(t *testing.T) {
	m, err := FromDecimal(decimal.RequireFromString("1500.4"), JPY)
	assert.NoError(t, err)
	assert.Equal(t, int64(1500), m.Units)
}

func TestFromDecimal_UnknownCurrency(t *testing.T) {
	_, err := FromDecimal(decimal.NewFromInt(1), Currency("XXX"))
	assert.ErrorIs(t, err, errors.ErrInvalidCurrency)
}

func TestAdd_CurrencyMismatch(t *testing.T) {
	_, err := New(100, USD).Add(New(100, EUR))
	assert.ErrorIs(t, err, errors.ErrCurrencyMismatch)
}

func TestAddSub(t *testing.T) {
	sum, err := New(150, USD).Add(New(50, USD))
	assert.NoError(t, err)
	assert.Equal(t, int64(200), sum.Units)

	diff, err := sum.Sub(New(75, USD))
	assert.NoError(t, err)
	assert.Equal(t, int64(125), diff.Units)
}

func TestConvert(t *testing.T) {
	// 100.00 USD at 0.92 -> 92.00 EUR
	m, err := New(10000, USD).Convert(decimal.RequireFromString("0.92"), EUR)
	assert.NoError(t, err)
	assert.Equal(t, int64(9200), m.Units)
	assert.Equal(t, EUR, m.Currency)
}

func TestConvert_SameCurrencyIsIdentity(t *testing.T) {
	m, err := New(10000, USD).Convert(decimal.RequireFromString("2"), USD)
	assert.NoError(t, err)
	assert.Equal(t, int64(10000), m.Units)
}

func TestConvert_CrossExponent(t *testing.T) {
	// 1.00 USD at 0.000017 BTC/USD -> 1700 satoshi
	m, err := New(100, USD).Convert(decimal.RequireFromString("0.000017"), BTC)
	assert.NoError(t, err)
	assert.Equal(t, int64(1700), m.Units)
}

func TestPercent(t *testing.T) {
	// 2% of 10.00 -> 0.20
	m := New(1000, USD).Percent(decimal.NewFromInt(2))
	assert.Equal(t, int64(20), m.Units)
}

func TestPercent_RoundsToMinorUnits(t *testing.T) {
	// 2.5% of 0.99 -> 0.02475 -> 2 minor units
	m := New(99, USD).Percent(decimal.RequireFromString("2.5"))
	assert.Equal(t, int64(2), m.Units)
}

func TestClamp(t *testing.T) {
	min := New(50, USD)
	max := New(500, USD)

	assert.Equal(t, int64(50), New(10, USD).Clamp(min, max).Units)
	assert.Equal(t, int64(500), New(9000, USD).Clamp(min, max).Units)
	assert.Equal(t, int64(200), New(200, USD).Clamp(min, max).Units)
}

func TestClamp_ZeroMaxIsUnbounded(t *testing.T) {
	m := New(9000, USD).Clamp(New(50, USD), Money{})
	assert.Equal(t, int64(9000), m.Units)
}

func TestString(t *testing.T) {
	assert.Equal(t, "12.34 USD", New(1234, USD).String())
	assert.Equal(t, "1500 JPY", New(1500, JPY).String())
}
