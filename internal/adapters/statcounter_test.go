package adapters

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const statCounterTimeseriesCSV = `"Date","Win11","Win10","OS X","macOS","Linux","Chrome OS","Unknown"
2025-01,26.36,43.38,15.02,0,3.72,1.92,9.60
2025-02,27.10,42.80,14.90,0,3.80,1.95,9.45`

const statCounterAggregateCSV = `"OS","Market Share Perc. (Jan 2026)"
"Win11",45.24
"Win10",21.57
"OS X",16.80
"Linux",3.59
"Chrome OS",1.90
"Unknown",10.90`

func TestStatCounter_ParseTimeseries(t *testing.T) {
	a := NewStatCounter(testDeps(newFakeStore()))
	points := a.parseCSV(statCounterTimeseriesCSV)
	require.Len(t, points, 2)

	p := points[0]
	assert.Equal(t, "statcounter", p.Source)
	assert.Equal(t, "2025-01-01", p.Date)
	assert.Equal(t, 3.72, p.LinuxShare)
	assert.Equal(t, 69.74, p.WindowsShare) // Win11 + Win10
	assert.Equal(t, 15.02, p.MacShare)     // OS X + macOS
	assert.Equal(t, 1.92, p.ChromeOSShare)
	assert.Equal(t, 9.6, p.OtherShare)

	assert.Equal(t, "2025-02-01", points[1].Date)
}

func TestStatCounter_ParseAggregate(t *testing.T) {
	a := NewStatCounter(testDeps(newFakeStore()))
	points := a.parseCSV(statCounterAggregateCSV)
	require.Len(t, points, 1)

	p := points[0]
	assert.Equal(t, "2026-01-01", p.Date)
	assert.Equal(t, 3.59, p.LinuxShare)
	assert.Equal(t, 66.81, p.WindowsShare)
	assert.Equal(t, 16.8, p.MacShare)
	assert.Equal(t, 1.9, p.ChromeOSShare)
	assert.Equal(t, 10.9, p.OtherShare)
}

func TestStatCounter_ParseCSV_UnknownHeader(t *testing.T) {
	a := NewStatCounter(testDeps(newFakeStore()))
	assert.Empty(t, a.parseCSV("\"Browser\",\"Share\"\nChrome,65.0"))
	assert.Empty(t, a.parseCSV(""))
}

func TestStatCounter_ZeroSignalRowsDropped(t *testing.T) {
	a := NewStatCounter(testDeps(newFakeStore()))
	csv := "\"Date\",\"Win10\",\"Linux\"\n2025-01,0,0\n2025-02,40.0,3.5"
	points := a.parseCSV(csv)
	require.Len(t, points, 1)
	assert.Equal(t, "2025-02-01", points[0].Date)
}

func TestStatCounter_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "202501", q.Get("fromInt"))
		assert.Equal(t, "202502", q.Get("toInt"))
		assert.Equal(t, "1", q.Get("csv"))
		assert.Equal(t, "https://gs.statcounter.com/", r.Header.Get("Referer"))
		_, _ = w.Write([]byte(statCounterTimeseriesCSV))
	}))
	defer srv.Close()

	a := NewStatCounter(testDeps(newFakeStore()))
	a.chartURL = srv.URL

	points, err := a.Fetch(context.Background(), "2025-01-01", "2025-02-28")
	require.NoError(t, err)
	assert.Len(t, points, 2)
}

func TestStatCounter_Fetch_UpstreamFailureIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	a := NewStatCounter(testDeps(newFakeStore()))
	a.chartURL = srv.URL

	points, err := a.Fetch(context.Background(), "2025-01-01", "2025-02-28")
	assert.NoError(t, err)
	assert.Empty(t, points)
}
