package adr

import (
	"fmt"
	"time"
)

// DefaultDateLayout renders dates as "Sunday, October 18, 2026".
const DefaultDateLayout = "Monday, January 2, 2006"

// Clock formats the dates written into records.
type Clock struct {
	Layout string
	Now    func() time.Time
}

// NewClock returns a Clock using layout, or DefaultDateLayout when layout is empty.
func NewClock(layout string) Clock {
	if layout == "" {
		layout = DefaultDateLayout
	}
	return Clock{Layout: layout, Now: time.Now}
}

// Today returns the current date in the clock's layout.
func (c Clock) Today() string {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	layout := c.Layout
	if layout == "" {
		layout = DefaultDateLayout
	}
	return now().Format(layout)
}

// CheckLayout rejects a date layout whose rendered dates would not survive a
// Status section rewrite, such as "2006-01-02".
func CheckLayout(layout string) error {
	sample := time.Date(2026, time.October, 18, 0, 0, 0, 0, time.UTC).Format(layout)
	if !StatusText.MatchString(sample) {
		return fmt.Errorf("%w: date layout %q renders %q", ErrStatusText, layout, sample)
	}
	return nil
}
