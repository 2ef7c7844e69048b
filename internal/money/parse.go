package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned for numeric input that cannot be parsed or is
// out of range for its use.
var ErrInvalidAmount = errors.New("invalid amount")

// ParseMoney parses user input for a currency amount. Either '.' or ',' may be
// the decimal separator; when both appear the rightmost one is the decimal
// separator and the other groups thousands ("1.234,56" and "1,234.56").
func ParseMoney(s string) (Money, error) {
	d, err := parseDecimal(s)
	if err != nil {
		return Money{}, err
	}
	return Money{d: d}, nil
}

// ParseCash parses a cash-generation figure, which must not be negative.
func ParseCash(s string) (Money, error) {
	m, err := ParseMoney(s)
	if err != nil {
		return Money{}, err
	}
	if m.IsNegative() {
		return Money{}, fmt.Errorf("%w: cash generation cannot be negative: %s", ErrInvalidAmount, s)
	}
	return m, nil
}

// ParsePoints parses a ledger amount, which must be strictly positive. The
// direction of a movement is carried by the transaction type, never the sign.
func ParsePoints(s string) (Points, error) {
	d, err := parseDecimal(s)
	if err != nil {
		return Points{}, err
	}
	if !d.IsPositive() {
		return Points{}, fmt.Errorf("%w: points must be positive: %s", ErrInvalidAmount, s)
	}
	return Points{d: d}, nil
}

func parseDecimal(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "R$")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty input", ErrInvalidAmount)
	}

	normalized, ok := normalizeSeparators(s)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	for _, r := range normalized {
		if (r < '0' || r > '9') && r != '.' && r != '-' && r != '+' {
			return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
		}
	}

	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	return d, nil
}

// normalizeSeparators rewrites s so that '.' is the only separator and marks
// the decimal point.
func normalizeSeparators(s string) (string, bool) {
	dot := strings.LastIndex(s, ".")
	comma := strings.LastIndex(s, ",")

	switch {
	case dot >= 0 && comma >= 0:
		decimalSep, groupSep := ",", "."
		if dot > comma {
			decimalSep, groupSep = ".", ","
		}
		idx := strings.LastIndex(s, decimalSep)
		intPart, frac := s[:idx], s[idx+1:]
		if strings.Contains(frac, groupSep) || strings.Count(s, decimalSep) > 1 || !validGrouping(intPart, groupSep) {
			return "", false
		}
		return strings.ReplaceAll(intPart, groupSep, "") + "." + frac, true
	case comma >= 0:
		return singleKind(s, ",")
	case dot >= 0:
		return singleKind(s, ".")
	default:
		return s, true
	}
}

// singleKind handles input with only one kind of separator: one occurrence is
// a decimal separator, several are thousands grouping.
func singleKind(s, sep string) (string, bool) {
	if strings.Count(s, sep) == 1 {
		return strings.Replace(s, sep, ".", 1), true
	}
	if !validGrouping(s, sep) {
		return "", false
	}
	return strings.ReplaceAll(s, sep, ""), true
}

func validGrouping(s, sep string) bool {
	groups := strings.Split(strings.TrimLeft(s, "+-"), sep)
	if len(groups) == 1 {
		return true
	}
	if len(groups[0]) == 0 || len(groups[0]) > 3 {
		return false
	}
	for _, g := range groups[1:] {
		if len(g) != 3 {
			return false
		}
	}
	return true
}
