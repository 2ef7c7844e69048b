// Package money defines the exact decimal value types used for currency
// amounts and GTXip point amounts.
package money

import (
	"database/sql/driver"
	"fmt"

	gomoney "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Currency is the ISO code of the company currency.
const Currency = "BRL"

// QuotationPlaces is the number of decimal places a quotation is stored with.
const QuotationPlaces = 4

// Money is an amount in currency units (cash generated, quotation values).
type Money struct {
	d decimal.Decimal
}

// NewMoney wraps a decimal value.
func NewMoney(d decimal.Decimal) Money { return Money{d: d} }

// MoneyFromInt returns a whole currency amount.
func MoneyFromInt(v int64) Money { return Money{d: decimal.NewFromInt(v)} }

// MustMoney parses a canonical decimal string and panics on error.
// Intended for constants and tests.
func MustMoney(s string) Money { return Money{d: decimal.RequireFromString(s)} }

// One is the bootstrap quotation used when no earlier month exists.
var One = MoneyFromInt(1)

func (m Money) Decimal() decimal.Decimal     { return m.d }
func (m Money) Add(n Money) Money            { return Money{d: m.d.Add(n.d)} }
func (m Money) Sub(n Money) Money            { return Money{d: m.d.Sub(n.d)} }
func (m Money) Neg() Money                   { return Money{d: m.d.Neg()} }
func (m Money) Shift(exp int32) Money        { return Money{d: m.d.Shift(exp)} }
func (m Money) Round(places int32) Money     { return Money{d: m.d.Round(places)} }
func (m Money) Equal(n Money) bool           { return m.d.Equal(n.d) }
func (m Money) IsZero() bool                 { return m.d.IsZero() }
func (m Money) IsNegative() bool             { return m.d.IsNegative() }
func (m Money) GreaterThan(n Money) bool     { return m.d.GreaterThan(n.d) }
func (m Money) StringFixed(places int32) string { return m.d.StringFixed(places) }

// String returns the canonical decimal representation.
func (m Money) String() string { return m.d.String() }

// Quotation rounds m to the stored quotation precision.
func (m Money) Quotation() Money { return m.Round(QuotationPlaces) }

// Display formats m as a currency amount with two fraction digits, e.g. R$1.234,56.
func (m Money) Display() string {
	cents := m.d.Shift(2).Round(0).IntPart()
	return gomoney.New(cents, Currency).Display()
}

// Scan implements sql.Scanner.
func (m *Money) Scan(src any) error {
	if err := scanDecimal(&m.d, src); err != nil {
		return fmt.Errorf("scan money: %w", err)
	}
	return nil
}

// Value implements driver.Valuer. Amounts are persisted as canonical decimal
// text so that no binary float conversion happens on the way to disk.
func (m Money) Value() (driver.Value, error) { return m.d.String(), nil }

// Points is an amount of GTXips.
type Points struct {
	d decimal.Decimal
}

// NewPoints wraps a decimal value.
func NewPoints(d decimal.Decimal) Points { return Points{d: d} }

// PointsFromInt returns a whole point amount.
func PointsFromInt(v int64) Points { return Points{d: decimal.NewFromInt(v)} }

// MustPoints parses a canonical decimal string and panics on error.
func MustPoints(s string) Points { return Points{d: decimal.RequireFromString(s)} }

func (p Points) Decimal() decimal.Decimal { return p.d }
func (p Points) Add(q Points) Points      { return Points{d: p.d.Add(q.d)} }
func (p Points) Sub(q Points) Points      { return Points{d: p.d.Sub(q.d)} }
func (p Points) Neg() Points              { return Points{d: p.d.Neg()} }
func (p Points) Equal(q Points) bool      { return p.d.Equal(q.d) }
func (p Points) IsZero() bool             { return p.d.IsZero() }
func (p Points) IsPositive() bool         { return p.d.IsPositive() }
func (p Points) IsNegative() bool         { return p.d.IsNegative() }
func (p Points) String() string           { return p.d.String() }

// Times values p at the given per-point quotation.
func (p Points) Times(quotation Money) Money { return Money{d: p.d.Mul(quotation.d)} }

// Scan implements sql.Scanner.
func (p *Points) Scan(src any) error {
	if err := scanDecimal(&p.d, src); err != nil {
		return fmt.Errorf("scan points: %w", err)
	}
	return nil
}

// Value implements driver.Valuer.
func (p Points) Value() (driver.Value, error) { return p.d.String(), nil }

// SumPoints adds all amounts.
func SumPoints(amounts ...Points) Points {
	total := Points{}
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

func scanDecimal(dst *decimal.Decimal, src any) error {
	switch v := src.(type) {
	case nil:
		*dst = decimal.Zero
		return nil
	case int64:
		*dst = decimal.NewFromInt(v)
		return nil
	case float64:
		*dst = decimal.NewFromFloat(v)
		return nil
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return err
		}
		*dst = d
		return nil
	case []byte:
		d, err := decimal.NewFromString(string(v))
		if err != nil {
			return err
		}
		*dst = d
		return nil
	default:
		return fmt.Errorf("unsupported type %T", src)
	}
}
