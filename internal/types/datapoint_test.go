package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataPoint_Validate(t *testing.T) {
	p := DataPoint{
		Source:       "steam",
		Date:         "2026-01-01",
		LinuxShare:   3.4,
		WindowsShare: 92.1,
	}
	assert.NoError(t, p.Validate())
}

func TestDataPoint_Validate_RejectsBadDate(t *testing.T) {
	p := DataPoint{Source: "steam", Date: "January 2026", LinuxShare: 3.4}
	assert.Error(t, p.Validate())

	p.Date = ""
	assert.Error(t, p.Validate())
}

func TestDataPoint_Validate_RejectsMissingSource(t *testing.T) {
	p := DataPoint{Date: "2026-01-01", LinuxShare: 3.4}
	assert.Error(t, p.Validate())
}

func TestDataPoint_HasSignal(t *testing.T) {
	assert.False(t, (&DataPoint{}).HasSignal())
	assert.True(t, (&DataPoint{LinuxShare: 0.1}).HasSignal())
	assert.True(t, (&DataPoint{WindowsShare: 91.0}).HasSignal())
	// Mac-only parses carry no linux/windows signal and are discarded.
	assert.False(t, (&DataPoint{MacShare: 100}).HasSignal())
}

func TestDataPoint_Month(t *testing.T) {
	p := DataPoint{Source: "steam", Date: "2025-06-15"}
	m, err := p.Month()
	require.NoError(t, err)
	assert.Equal(t, "2025-06", m.Key())
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 3.38, Round2(3.3849))
	assert.Equal(t, 33.33, Round2(100.0/3))
	assert.Equal(t, 100.0, Round2(100.0))
}
