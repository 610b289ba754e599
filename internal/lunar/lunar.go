// Package lunar converts lunar calendar dates to Gregorian dates.
//
// Conversion is table driven: a Table holds, for each supported lunar year,
// the Gregorian date of the lunar New Year and the length of every month in
// that year. Dates outside the table are rejected, never approximated.
package lunar

import (
	"errors"
	"fmt"
)

// Conversion failures. They are returned wrapped with detail, use errors.Is
// to classify them.
var (
	// ErrUnsupportedYear is returned when the year has no table entry.
	ErrUnsupportedYear = errors.New("unsupported lunar year")

	// ErrInvalidLeapMonth is returned when a leap month is requested for a
	// year that has no leap month, or whose leap month is a different one.
	ErrInvalidLeapMonth = errors.New("invalid leap month")

	// ErrInvalidMonth is returned for a month ordinal outside 1-12.
	ErrInvalidMonth = errors.New("invalid lunar month")

	// ErrInvalidDay is returned when the day is not within the month.
	ErrInvalidDay = errors.New("invalid day for lunar month")
)

// LunarDate is a date in the lunar calendar. Month is the ordinal month
// (1-12); a leap month shares its ordinal with the month before it and is
// selected with IsLeapMonth.
type LunarDate struct {
	Year        int  `json:"year"`
	Month       int  `json:"month"`
	Day         int  `json:"day"`
	IsLeapMonth bool `json:"is_leap_month"`
}

func (d LunarDate) String() string {
	if d.IsLeapMonth {
		return fmt.Sprintf("%04d-L%02d-%02d", d.Year, d.Month, d.Day)
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// IsValidationError reports whether err is one of the conversion failures.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrUnsupportedYear) ||
		errors.Is(err, ErrInvalidLeapMonth) ||
		errors.Is(err, ErrInvalidMonth) ||
		errors.Is(err, ErrInvalidDay)
}
