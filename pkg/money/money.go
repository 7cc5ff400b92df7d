package money

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var currencyCodeRe = regexp.MustCompile(`^[A-Z]{3}$`)

// minorUnitExponent lists ISO 4217 currencies whose minor unit is not 2 digits.
var minorUnitExponent = map[string]int32{
	"JPY": 0,
	"KRW": 0,
	"UGX": 0,
	"XAF": 0,
	"XOF": 0,
	"BHD": 3,
	"KWD": 3,
	"OMR": 3,
}

// Currency is an ISO 4217 currency code.
type Currency struct {
	code string
}

// NewCurrency creates a Currency after validating the code is exactly 3 uppercase letters.
// Lowercase input is normalised.
func NewCurrency(code string) (Currency, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !currencyCodeRe.MatchString(code) {
		return Currency{}, fmt.Errorf("invalid currency code %q: must be exactly 3 letters", code)
	}
	return Currency{code: code}, nil
}

// MustCurrency creates a Currency and panics on error. Intended for package-level variable
// initialization only.
func MustCurrency(code string) Currency {
	c, err := NewCurrency(code)
	if err != nil {
		panic(err)
	}
	return c
}

// Code returns the ISO 4217 currency code.
func (c Currency) Code() string {
	return c.code
}

// String returns the currency code.
func (c Currency) String() string {
	return c.code
}

// IsZero reports whether the currency is uninitialised.
func (c Currency) IsZero() bool {
	return c.code == ""
}

// Exponent returns the number of minor-unit digits for the currency.
func (c Currency) Exponent() int32 {
	if exp, ok := minorUnitExponent[c.code]; ok {
		return exp
	}
	return 2
}

// Common currencies.
var (
	USD = MustCurrency("USD")
	ZWG = MustCurrency("ZWG")
	ZAR = MustCurrency("ZAR")
)

// Money represents an immutable monetary amount with currency.
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// New creates a Money value from a decimal amount and currency.
func New(amount decimal.Decimal, currency Currency) Money {
	return Money{amount: amount, currency: currency}
}

// NewFromString parses an amount string and currency code into a Money value.
func NewFromString(amount string, currency string) (Money, error) {
	cur, err := NewCurrency(currency)
	if err != nil {
		return Money{}, fmt.Errorf("invalid currency: %w", err)
	}

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount %q: %w", amount, err)
	}

	return Money{amount: d, currency: cur}, nil
}

// FromMinorUnits builds a Money value from an integer count of minor units (e.g. cents).
func FromMinorUnits(units int64, currency Currency) Money {
	return Money{
		amount:   decimal.New(units, -currency.Exponent()),
		currency: currency,
	}
}

// Amount returns the decimal amount.
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

// Currency returns the currency.
func (m Money) Currency() Currency {
	return m.currency
}

// IsPositive returns true if the amount is strictly greater than zero.
func (m Money) IsPositive() bool {
	return m.amount.IsPositive()
}

// MinorUnits returns the amount rounded half away from zero to the currency's
// minor unit and expressed as an integer (25.00 USD -> 2500).
func (m Money) MinorUnits() int64 {
	exp := m.currency.Exponent()
	return m.amount.Round(exp).Shift(exp).IntPart()
}

// MinorUnitsString is MinorUnits formatted for processors that take amounts as strings.
func (m Money) MinorUnitsString() string {
	return fmt.Sprintf("%d", m.MinorUnits())
}

// Equal returns true if both the amount and currency of m and other are equal.
func (m Money) Equal(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

// String formats the Money value as "<amount> <currency>", for example "25.00 USD".
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.amount.StringFixed(m.currency.Exponent()), m.currency.Code())
}
