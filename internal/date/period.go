package date

import (
	"fmt"
	"strconv"
	"time"
)

// Period identifies a calendar month.
type Period struct {
	Year  int
	Month time.Month
}

// NewPeriod returns the period for the given year and month, normalizing
// out-of-range months (e.g. month 13 is January of the next year).
func NewPeriod(year int, month time.Month) Period {
	return New(year, month, 1).Period()
}

// ParsePeriod builds a period from the stored representation: a month text
// ("1".."12", zero padded or not) and a year.
func ParsePeriod(month string, year int) (Period, error) {
	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 {
		return Period{}, fmt.Errorf("%w: month %q", ErrInvalidDate, month)
	}
	return Period{Year: year, Month: time.Month(m)}, nil
}

func (p Period) FirstDay() Date { return New(p.Year, p.Month, 1) }
func (p Period) LastDay() Date  { return New(p.Year, p.Month+1, 0) }
func (p Period) Next() Period   { return NewPeriod(p.Year, p.Month+1) }
func (p Period) Prev() Period   { return NewPeriod(p.Year, p.Month-1) }

func (p Period) Before(q Period) bool {
	if p.Year != q.Year {
		return p.Year < q.Year
	}
	return p.Month < q.Month
}

func (p Period) After(q Period) bool { return q.Before(p) }

// MonthString returns the zero-padded month ("01".."12").
func (p Period) MonthString() string { return fmt.Sprintf("%02d", int(p.Month)) }

// String returns the period as MM/YYYY.
func (p Period) String() string { return fmt.Sprintf("%02d/%d", int(p.Month), p.Year) }

// Contains reports whether d falls in p.
func (p Period) Contains(d Date) bool { return d.Period() == p }

// Range returns every period from p through last, inclusive. It returns nil
// when last is before p.
func (p Period) Range(last Period) []Period {
	var out []Period
	for cur := p; !cur.After(last); cur = cur.Next() {
		out = append(out, cur)
	}
	return out
}
