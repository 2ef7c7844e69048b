package date

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Date
		wantErr bool
	}{
		{in: "2024-03-01", want: New(2024, time.March, 1)},
		{in: "2024-3-1", want: New(2024, time.March, 1)},
		{in: " 2024-12-31 ", want: New(2024, time.December, 31)},
		{in: "2024-02-30", wantErr: true},
		{in: "01/03/2024", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDate)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLenient(t *testing.T) {
	tests := []struct {
		in         string
		want       Date
		wantLegacy bool
	}{
		{in: "2024-03-15", want: New(2024, time.March, 15)},
		{in: "15/03/2024", want: New(2024, time.March, 15), wantLegacy: true},
		{in: "2024 03 15", want: New(2024, time.March, 15), wantLegacy: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, legacy, err := ParseLenient(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantLegacy, legacy)
		})
	}

	_, _, err := ParseLenient("15/2024")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestDateScanValue(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan("2024-05-07"))
	assert.Equal(t, "2024-05-07", d.String())

	require.NoError(t, d.Scan([]byte("2024-05-08T00:00:00Z")))
	assert.Equal(t, "2024-05-08", d.String())

	require.NoError(t, d.Scan(nil))
	assert.True(t, d.IsZero())

	v, err := New(2023, time.January, 2).Value()
	require.NoError(t, err)
	assert.Equal(t, "2023-01-02", v)

	assert.Error(t, d.Scan(42))
}

func TestPeriod(t *testing.T) {
	feb := Period{Year: 2024, Month: time.February}
	assert.Equal(t, New(2024, time.February, 29), feb.LastDay())
	assert.Equal(t, Period{Year: 2024, Month: time.March}, feb.Next())

	jan := Period{Year: 2024, Month: time.January}
	assert.Equal(t, Period{Year: 2023, Month: time.December}, jan.Prev())
	assert.Equal(t, "01", jan.MonthString())
	assert.Equal(t, "01/2024", jan.String())
	assert.True(t, jan.Before(feb))
	assert.True(t, feb.After(jan))
	assert.True(t, feb.Contains(New(2024, time.February, 10)))

	got := Period{Year: 2023, Month: time.November}.Range(feb)
	assert.Len(t, got, 4)
	assert.Equal(t, feb, got[3])
	assert.Nil(t, feb.Range(jan))
}

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod("03", 2024)
	require.NoError(t, err)
	assert.Equal(t, Period{Year: 2024, Month: time.March}, p)

	p, err = ParsePeriod("3", 2024)
	require.NoError(t, err)
	assert.Equal(t, time.March, p.Month)

	_, err = ParsePeriod("13", 2024)
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestMin(t *testing.T) {
	a := New(2024, time.March, 1)
	b := New(2024, time.January, 20)
	assert.Equal(t, b, Min(a, b))
	assert.Equal(t, b, Min(b, a))
}
