package adapters

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const steamSurveyHTML = `
<html>
<head><title>Steam Hardware &amp; Software Survey: January 2026</title></head>
<body>
<div id="osversion_details">
	<div class="stats_row">Windows 94.62% +0.39%</div>
	<div class="stats_col_mid data_row">Windows 11 64 bit</div>
	<div class="stats_col_right data_row">66.71%</div>
	<div class="stats_row">OSX 2.01% -0.17%</div>
	<div class="stats_col_mid data_row">macOS 15.2</div>
	<div class="stats_col_right data_row">1.20%</div>
	<div class="stats_row">Linux 3.38% -0.20%</div>
	<div class="stats_col_mid data_row">Arch Linux 64 bit</div>
	<div class="stats_col_right data_row">0.35%</div>
	<div class="stats_col_mid data_row">Ubuntu 24.04.1 LTS 64 bit</div>
	<div class="stats_col_right data_row">0.31%</div>
</div>
</body>
</html>`

func TestSteam_ParsePage(t *testing.T) {
	s := NewSteam(testDeps(newFakeStore()))
	point, ok := s.parsePage(steamSurveyHTML)
	require.True(t, ok)

	assert.Equal(t, "steam", point.Source)
	assert.Equal(t, "2026-01-01", point.Date)
	assert.Equal(t, 3.38, point.LinuxShare)
	assert.Equal(t, 94.62, point.WindowsShare)
	assert.Equal(t, 2.01, point.MacShare)
	// Remainder after the three aggregates.
	assert.InDelta(t, 100-94.62-2.01-3.38, point.OtherShare, 0.01)

	// Linux distro sub-entries are preserved; Windows sub-entries are not.
	assert.Equal(t, 0.35, point.Details["Arch Linux 64 bit"])
	assert.Equal(t, 0.31, point.Details["Ubuntu 24.04.1 LTS 64 bit"])
	assert.NotContains(t, point.Details, "Windows 11 64 bit")
	assert.NotContains(t, point.Details, "macOS 15.2")
}

func TestSteam_ParsePage_NoSurveySection(t *testing.T) {
	s := NewSteam(testDeps(newFakeStore()))
	_, ok := s.parsePage("<html><body>Please verify you are human</body></html>")
	assert.False(t, ok)
}

func TestSteam_ParsePage_ZeroInformationDiscarded(t *testing.T) {
	s := NewSteam(testDeps(newFakeStore()))
	html := `<div id="osversion_details"><div class="stats_row">FreeBSD 100.00%</div></div>`
	_, ok := s.parsePage(html)
	assert.False(t, ok)
}

func TestSteam_FetchLive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(steamSurveyHTML))
	}))
	defer srv.Close()

	s := NewSteam(testDeps(newFakeStore()))
	s.liveURL = srv.URL

	points, err := s.Fetch(context.Background(), "", "")
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, "2026-01-01", points[0].Date)
}

func TestSteam_Backfill_SkipsStoredMonths(t *testing.T) {
	var replayHits atomic.Int64
	replay := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		replayHits.Add(1)
		// Serve a snapshot whose survey month matches the request path month.
		month := "January 2026"
		if strings.Contains(r.URL.Path, "20260215") {
			month = "February 2026"
		}
		html := strings.Replace(steamSurveyHTML, "January 2026", month, 1)
		_, _ = w.Write([]byte(html))
	}))
	defer replay.Close()

	surveyURL := "https://store.steampowered.com/hwsurvey/"
	cdx := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprintf(w, `[
			["urlkey","timestamp","original","mimetype","statuscode","digest","length"],
			["k","20260115000000","%s","text/html","200","A","1"],
			["k","20260215000000","%s","text/html","200","B","1"],
			["k","20260315000000","%s","text/html","200","C","1"]
		]`, surveyURL, surveyURL, surveyURL)
	}))
	defer cdx.Close()

	// 2026-03 is already stored: no replay fetch may happen for it.
	store := newFakeStore("steam/2026-03")
	s := NewSteam(testDeps(store))
	s.archive.Endpoint = cdx.URL
	s.archive.ReplayBase = replay.URL
	s.archiveDelay = 0

	points, err := s.Fetch(context.Background(), "2026-01-01", "2026-03-31")
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, "2026-01-01", points[0].Date)
	assert.Equal(t, "2026-02-01", points[1].Date)
	assert.Equal(t, int64(2), replayHits.Load())
}

func TestSteam_Fetch_RejectsMalformedDates(t *testing.T) {
	s := NewSteam(testDeps(newFakeStore()))
	_, err := s.Fetch(context.Background(), "nonsense", "2026-01-01")
	assert.Error(t, err)
}

func TestSteam_SurveyDate_FallsBackToCurrentMonth(t *testing.T) {
	s := NewSteam(testDeps(newFakeStore()))
	date := s.surveyDate("<html>no survey heading here</html>")
	assert.Regexp(t, `^\d{4}-\d{2}-01$`, date)
}

func TestFirstPercent(t *testing.T) {
	assert.Equal(t, 94.62, firstPercent("Windows 94.62% +0.39%"))
	assert.Equal(t, 0.0, firstPercent("no numbers here"))
}
