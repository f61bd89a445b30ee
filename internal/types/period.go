package types

import (
	"fmt"
	"strings"
	"time"
)

// Month identifies one calendar month, the unit of both backfill iteration
// and storage partitioning.
type Month struct {
	Year  int
	Month time.Month
}

// CurrentMonth returns the month containing the current UTC time.
func CurrentMonth() Month {
	now := time.Now().UTC()
	return Month{Year: now.Year(), Month: now.Month()}
}

// MonthOf parses a Month from a "YYYY-MM" or "YYYY-MM-DD" string.
func MonthOf(date string) (Month, error) {
	for _, layout := range []string{"2006-01-02", "2006-01"} {
		if t, err := time.Parse(layout, date); err == nil {
			return Month{Year: t.Year(), Month: t.Month()}, nil
		}
	}
	return Month{}, fmt.Errorf("invalid date %q: want YYYY-MM or YYYY-MM-DD", date)
}

// ParseMonthName parses human-readable month labels such as "January 2026",
// "Jan 2026" or "Jan 26", as they appear in upstream page titles and CSV
// column headers.
func ParseMonthName(label string) (Month, error) {
	label = strings.TrimSpace(label)
	for _, layout := range []string{"January 2006", "Jan 2006", "Jan 06"} {
		if t, err := time.Parse(layout, label); err == nil {
			return Month{Year: t.Year(), Month: t.Month()}, nil
		}
	}
	return Month{}, fmt.Errorf("unrecognized month label %q", label)
}

// Key returns the partition key, e.g. "2026-01".
func (m Month) Key() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// FirstDay returns the normalized point date, e.g. "2026-01-01".
func (m Month) FirstDay() string {
	return fmt.Sprintf("%04d-%02d-01", m.Year, int(m.Month))
}

// LastDay returns the last calendar day of the month, e.g. "2026-01-31".
func (m Month) LastDay() string {
	first := time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return last.Format("2006-01-02")
}

// Next returns the following calendar month.
func (m Month) Next() Month {
	if m.Month == time.December {
		return Month{Year: m.Year + 1, Month: time.January}
	}
	return Month{Year: m.Year, Month: m.Month + 1}
}

// After reports whether m is strictly later than other.
func (m Month) After(other Month) bool {
	if m.Year != other.Year {
		return m.Year > other.Year
	}
	return m.Month > other.Month
}

func (m Month) String() string {
	return m.Key()
}
