// Package age derives a chronological age from a date of birth.
//
// The borrow rules are calendar based: when the day-of-month difference is
// negative, the length of the month preceding the current month is borrowed.
// No second correction is applied after that borrow, so a birth day that is
// later than the borrowed month's length (for example a birth on the 31st
// evaluated on the 1st of March) yields a small negative day count.
package age

import "time"

// Age is an elapsed calendar duration broken into years, months and days.
type Age struct {
	Years  int `json:"years"`
	Months int `json:"months"`
	Days   int `json:"days"`
}

// IsZero reports whether all components are zero.
func (a Age) IsZero() bool {
	return a.Years == 0 && a.Months == 0 && a.Days == 0
}

// WholeYears returns the age truncated to whole years, never negative.
func (a Age) WholeYears() int {
	if a.Years < 0 {
		return 0
	}
	return a.Years
}

// Between returns the age at now of someone born on birth. Both dates are
// compared by their calendar fields in now's location.
func Between(birth, now time.Time) Age {
	birth = birth.In(now.Location())
	by, bm, bd := birth.Date()
	cy, cm, cd := now.Date()

	years := cy - by
	months := int(cm) - int(bm)
	days := cd - bd

	if months < 0 || (months == 0 && days < 0) {
		years--
		months += 12
	}

	if days < 0 {
		days += daysInMonth(cy, cm-1)
		months--
	}

	return Age{Years: years, Months: months, Days: days}
}

// daysInMonth returns the number of days in the given month. Month values
// outside 1..12 are normalised, so month 0 is December of the previous year.
func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Calculator computes ages against an injectable clock.
type Calculator struct {
	now func() time.Time
}

// NewCalculator returns a Calculator. A nil clock uses time.Now.
func NewCalculator(clock func() time.Time) *Calculator {
	if clock == nil {
		clock = time.Now
	}
	return &Calculator{now: clock}
}

// Compute returns the age of someone born on birth as of the calculator's now.
func (c *Calculator) Compute(birth time.Time) Age {
	return Between(birth, c.now())
}

// Now exposes the calculator's clock.
func (c *Calculator) Now() time.Time {
	return c.now()
}
