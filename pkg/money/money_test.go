package money

import (
	"testing"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Currency
// ---------------------------------------------------------------------------

func TestNewCurrency_Valid(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"USD", "USD"},
		{"ZWG", "ZWG"},
		{"zar", "ZAR"},
		{" usd ", "USD"},
	}
	for _, tt := range tests {
		c, err := NewCurrency(tt.in)
		if err != nil {
			t.Errorf("NewCurrency(%q) unexpected error: %v", tt.in, err)
			continue
		}
		if c.Code() != tt.want {
			t.Errorf("NewCurrency(%q).Code() = %q, want %q", tt.in, c.Code(), tt.want)
		}
	}
}

func TestNewCurrency_Invalid(t *testing.T) {
	tests := []struct {
		name string
		code string
	}{
		{"empty", ""},
		{"too short", "US"},
		{"too long", "USDD"},
		{"digits", "US1"},
		{"special chars", "U$D"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewCurrency(tt.code); err == nil {
				t.Errorf("NewCurrency(%q) expected error, got nil", tt.code)
			}
		})
	}
}

func TestMustCurrency_UpperCases(t *testing.T) {
	if got := MustCurrency(" zwg ").Code(); got != "ZWG" {
		t.Errorf("MustCurrency(\" zwg \").Code() = %q, want ZWG", got)
	}
}

func TestMustCurrency_Panics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("MustCurrency(\"12$\") did not panic")
		}
	}()
	MustCurrency("12$")
}

func TestCurrency_Exponent(t *testing.T) {
	if got := USD.Exponent(); got != 2 {
		t.Errorf("USD exponent = %d, want 2", got)
	}
	if got := MustCurrency("JPY").Exponent(); got != 0 {
		t.Errorf("JPY exponent = %d, want 0", got)
	}
	if got := MustCurrency("KWD").Exponent(); got != 3 {
		t.Errorf("KWD exponent = %d, want 3", got)
	}
}

// ---------------------------------------------------------------------------
// Minor units
// ---------------------------------------------------------------------------

func TestMinorUnits(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		currency Currency
		want     int64
	}{
		{"whole dollars", "25", USD, 2500},
		{"two decimals", "25.00", USD, 2500},
		{"cents", "10.99", USD, 1099},
		{"rounds half up", "10.005", USD, 1001},
		{"rounds down", "10.004", USD, 1000},
		{"zero exponent", "1500", MustCurrency("JPY"), 1500},
		{"three exponent", "1.2345", MustCurrency("KWD"), 1235},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(decimal.RequireFromString(tt.amount), tt.currency)
			if got := m.MinorUnits(); got != tt.want {
				t.Errorf("MinorUnits() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMinorUnitsString(t *testing.T) {
	m := New(decimal.NewFromFloat(25.00), USD)
	if got := m.MinorUnitsString(); got != "2500" {
		t.Errorf("MinorUnitsString() = %q, want %q", got, "2500")
	}
}

func TestFromMinorUnits(t *testing.T) {
	m := FromMinorUnits(1099, USD)
	if !m.Amount().Equal(decimal.RequireFromString("10.99")) {
		t.Errorf("FromMinorUnits(1099) = %s, want 10.99", m.Amount())
	}
	if m.MinorUnits() != 1099 {
		t.Errorf("round trip = %d, want 1099", m.MinorUnits())
	}
}

// ---------------------------------------------------------------------------
// Money
// ---------------------------------------------------------------------------

func TestNewFromString_Valid(t *testing.T) {
	m, err := NewFromString("12.50", "usd")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Currency() != USD {
		t.Errorf("currency = %s, want USD", m.Currency())
	}
	if !m.IsPositive() {
		t.Error("expected positive amount")
	}
}

func TestNewFromString_Invalid(t *testing.T) {
	if _, err := NewFromString("abc", "USD"); err == nil {
		t.Error("expected error for invalid amount")
	}
	if _, err := NewFromString("10", "US"); err == nil {
		t.Error("expected error for invalid currency")
	}
}

func TestEqual(t *testing.T) {
	a := New(decimal.RequireFromString("10.0"), USD)
	b := New(decimal.RequireFromString("10.00"), USD)
	c := New(decimal.RequireFromString("10.00"), ZAR)

	if !a.Equal(b) {
		t.Error("expected 10.0 USD == 10.00 USD")
	}
	if a.Equal(c) {
		t.Error("expected USD != ZAR")
	}
}

func TestString(t *testing.T) {
	m := New(decimal.NewFromInt(25), USD)
	if got := m.String(); got != "25.00 USD" {
		t.Errorf("String() = %q, want %q", got, "25.00 USD")
	}
}
