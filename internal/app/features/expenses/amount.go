// internal/app/features/expenses/amount.go
package expenses

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrBadAmount is recorded in Amount.Err for values that are not numbers.
var ErrBadAmount = errors.New("amount must be a number")

// Amount is a money value sent either as a JSON number or as a decimal
// string using "." or "," as the separator. Parse failures are kept in Err
// so the service can report them with the other field errors.
type Amount struct {
	Value float64
	Err   error
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			a.Err = ErrBadAmount
			return nil
		}
		a.Value, a.Err = ParseAmount(s)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		a.Err = ErrBadAmount
		return nil
	}
	a.Value = f
	return nil
}

// ParseAmount reads "12.5", "12,5" or " 12 ". Thousands separators are not accepted.
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrBadAmount
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, ErrBadAmount
	}
	return f, nil
}

const dateOnly = "2006-01-02"

// parseDate accepts a calendar date or an RFC 3339 timestamp. dayOnly
// reports whether s carried no time of day.
func parseDate(s string) (t time.Time, dayOnly bool, err error) {
	s = strings.TrimSpace(s)
	if t, err = time.Parse(dateOnly, s); err == nil {
		return t, true, nil
	}
	if t, err = time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), false, nil
	}
	return time.Time{}, false, err
}

// endOfDay is the last representable instant of t's UTC day at millisecond
// precision, which is what MongoDB stores.
func endOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), time.UTC)
}
