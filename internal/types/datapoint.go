// Package types provides type definitions for the normalized data shared by
// all source adapters and the storage layer.
package types

import (
	"math"

	"github.com/go-playground/validator/v10"
)

// DataPoint is one observation of OS usage share for one source at one
// point in time. Date is always the first day of the month the observation
// represents, regardless of the upstream granularity.
type DataPoint struct {
	Source        string         `json:"source" validate:"required"`
	Date          string         `json:"date" validate:"required,datetime=2006-01-02"`
	LinuxShare    float64        `json:"linux_share" validate:"gte=0"`
	WindowsShare  float64        `json:"windows_share,omitempty" validate:"gte=0"`
	MacShare      float64        `json:"mac_share,omitempty" validate:"gte=0"`
	ChromeOSShare float64        `json:"chromeos_share,omitempty" validate:"gte=0"`
	OtherShare    float64        `json:"other_share,omitempty" validate:"gte=0"`
	Details       map[string]any `json:"details,omitempty"`
}

var validate = validator.New()

// Validate checks structural invariants: a non-empty source and a real
// calendar date. Share magnitudes are not capped at 100 because
// multi-select survey questions can legitimately sum past it.
func (p *DataPoint) Validate() error {
	return validate.Struct(p)
}

// HasSignal reports whether the point carries any usable classification.
// Points where both the linux and windows buckets are zero are discarded
// by adapters rather than stored as zero rows.
func (p *DataPoint) HasSignal() bool {
	return p.LinuxShare != 0 || p.WindowsShare != 0
}

// Month returns the calendar month the point belongs to, which is also
// its storage partition key.
func (p *DataPoint) Month() (Month, error) {
	return MonthOf(p.Date)
}

// Round2 rounds a share value to two decimal places. All percentages are
// rounded at the point of computation.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
