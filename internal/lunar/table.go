package lunar

import (
	"errors"
	"fmt"
	"sort"
)

// Month is one entry in a lunar year's month sequence.
type Month struct {
	Ordinal int  `json:"ordinal"`
	Leap    bool `json:"leap"`
	Days    int  `json:"days"`

	// offset is the number of days from New Year to the first day of the month.
	offset int
}

// YearSpec is the raw description of one lunar year, as stored in a table
// file. Months lists month lengths in sequence order; in a leap year the
// leap month's length directly follows its ordinary sibling.
type YearSpec struct {
	Year      int   `yaml:"year"`
	NewYear   Day   `yaml:"new_year"`
	Months    []int `yaml:"months"`
	LeapMonth int   `yaml:"leap_month,omitempty"`
}

// Day is a Gregorian month and day without a year.
type Day struct {
	Month int `yaml:"month"`
	Day   int `yaml:"day"`
}

// YearStructure is the validated structure of one lunar year.
type YearStructure struct {
	Year      int
	NewYear   GregorianDate
	Months    []Month
	LeapMonth int // 0 when the year has no leap month
}

// TotalDays returns the length of the lunar year.
func (y *YearStructure) TotalDays() int {
	last := y.Months[len(y.Months)-1]
	return last.offset + last.Days
}

// HasLeapMonth reports whether the year contains a leap month.
func (y *YearStructure) HasLeapMonth() bool {
	return y.LeapMonth != 0
}

// month returns the month with the given ordinal and leap flag.
func (y *YearStructure) month(ordinal int, leap bool) (Month, bool) {
	for _, m := range y.Months {
		if m.Ordinal == ordinal && m.Leap == leap {
			return m, true
		}
	}
	return Month{}, false
}

func newYearStructure(spec YearSpec) (*YearStructure, error) {
	var errs []error

	if spec.NewYear.Month != 1 && spec.NewYear.Month != 2 {
		errs = append(errs, fmt.Errorf("new year month must be January or February, got %d", spec.NewYear.Month))
	}
	newYear := GregorianDate{Year: spec.Year, Month: spec.NewYear.Month, Day: spec.NewYear.Day}
	if !newYear.IsValid() {
		errs = append(errs, fmt.Errorf("new year %s is not a calendar date", newYear))
	}

	switch {
	case spec.LeapMonth == 0 && len(spec.Months) != 12:
		errs = append(errs, fmt.Errorf("common year needs 12 months, got %d", len(spec.Months)))
	case spec.LeapMonth != 0 && len(spec.Months) != 13:
		errs = append(errs, fmt.Errorf("leap year needs 13 months, got %d", len(spec.Months)))
	}
	if spec.LeapMonth < 0 || spec.LeapMonth > 12 {
		errs = append(errs, fmt.Errorf("leap month must be between 1 and 12, got %d", spec.LeapMonth))
	}
	for i, days := range spec.Months {
		if days != 29 && days != 30 {
			errs = append(errs, fmt.Errorf("month %d has %d days, want 29 or 30", i+1, days))
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("year %d: %w", spec.Year, errors.Join(errs...))
	}

	y := &YearStructure{
		Year:      spec.Year,
		NewYear:   newYear,
		Months:    make([]Month, 0, len(spec.Months)),
		LeapMonth: spec.LeapMonth,
	}
	offset, i := 0, 0
	for ordinal := 1; ordinal <= 12; ordinal++ {
		y.Months = append(y.Months, Month{Ordinal: ordinal, Days: spec.Months[i], offset: offset})
		offset += spec.Months[i]
		i++
		if ordinal == spec.LeapMonth {
			y.Months = append(y.Months, Month{Ordinal: ordinal, Leap: true, Days: spec.Months[i], offset: offset})
			offset += spec.Months[i]
			i++
		}
	}
	return y, nil
}

// Table is an immutable set of lunar year structures covering a contiguous
// range of years.
type Table struct {
	first int
	years []*YearStructure
}

// NewTable validates specs and builds a Table. The specs may be given in
// any order but must cover a contiguous, non-empty range of years.
func NewTable(specs []YearSpec) (*Table, error) {
	if len(specs) == 0 {
		return nil, errors.New("lunar table has no years")
	}
	sorted := make([]YearSpec, len(specs))
	copy(sorted, specs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Year < sorted[j].Year })

	var errs []error
	years := make([]*YearStructure, 0, len(sorted))
	for i, spec := range sorted {
		if i > 0 {
			prev := sorted[i-1].Year
			switch {
			case spec.Year == prev:
				errs = append(errs, fmt.Errorf("year %d: duplicate entry", spec.Year))
				continue
			case spec.Year != prev+1:
				errs = append(errs, fmt.Errorf("years %d to %d missing", prev+1, spec.Year-1))
			}
		}
		y, err := newYearStructure(spec)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		years = append(years, y)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid lunar table: %w", errors.Join(errs...))
	}
	return &Table{first: years[0].Year, years: years}, nil
}

// Range returns the first and last supported year.
func (t *Table) Range() (first, last int) {
	return t.first, t.first + len(t.years) - 1
}

// Contains reports whether year has an entry.
func (t *Table) Contains(year int) bool {
	first, last := t.Range()
	return year >= first && year <= last
}

// Year returns the structure for year.
func (t *Table) Year(year int) (*YearStructure, bool) {
	if !t.Contains(year) {
		return nil, false
	}
	return t.years[year-t.first], true
}

// Years returns every supported year in ascending order.
func (t *Table) Years() []int {
	out := make([]int, len(t.years))
	for i, y := range t.years {
		out[i] = y.Year
	}
	return out
}

// Drift describes a year whose months do not end exactly on the next
// year's New Year.
type Drift struct {
	Year int `json:"year"`
	// Days is the gap between the day after the year's last month and the
	// next New Year. Positive means the next New Year comes later.
	Days int `json:"days"`
}

// Audit compares each year's length with the distance to the following
// New Year anchor and returns the years where they disagree. The final year
// is never reported since it has no successor.
func (t *Table) Audit() []Drift {
	var out []Drift
	for i := 0; i+1 < len(t.years); i++ {
		y, next := t.years[i], t.years[i+1]
		end := y.NewYear.AddDays(y.TotalDays())
		if gap := end.DaysUntil(next.NewYear); gap != 0 {
			out = append(out, Drift{Year: y.Year, Days: gap})
		}
	}
	return out
}
