package adapters

import (
	"context"
	"encoding/csv"
	"regexp"
	"strconv"
	"strings"

	"github.com/linuxgroove/market-trends/internal/fetch"
	"github.com/linuxgroove/market-trends/internal/types"
)

// statCounterChartURL is the monthly CSV export endpoint.
const statCounterChartURL = "https://gs.statcounter.com/os-market-share/desktop/worldwide/chart.php"

// StatCounter fetches desktop OS market share from StatCounter's CSV export
// API. One request covers the whole range; Windows version columns (Win10,
// Win11, Win7...) aggregate into windows_share, the macOS column aliases
// into mac_share.
type StatCounter struct {
	deps     Deps
	chartURL string
}

// Column-name keyword table. Windows versions share a "win" prefix; macOS
// has appeared under several aliases over the years.
var (
	statCounterWinPrefixes = []string{"win"}
	statCounterMacColumns  = map[string]bool{"os x": true, "macos": true, "mac os x": true, "osx": true}
	statCounterLinuxCols   = map[string]bool{"linux": true}
	statCounterChromeCols  = map[string]bool{"chrome os": true}
)

// NewStatCounter returns the StatCounter adapter.
func NewStatCounter(deps Deps) *StatCounter {
	return &StatCounter{deps: deps, chartURL: statCounterChartURL}
}

func (a *StatCounter) Name() string { return "statcounter" }

func (a *StatCounter) SupportsDateRanges() bool { return true }

// Fetch downloads and parses the CSV export for the requested month range.
func (a *StatCounter) Fetch(ctx context.Context, startDate, endDate string) ([]types.DataPoint, error) {
	from, to, err := monthRange(startDate, endDate)
	if err != nil {
		return nil, err
	}

	log := a.deps.Log.WithField("source", a.Name())
	log.WithFields(map[string]any{"from": from.Key(), "to": to.Key()}).Info("fetching CSV export")

	opts := fetch.DefaultOptions()
	opts.Headers = map[string]string{"Referer": "https://gs.statcounter.com/"}
	opts.Query = map[string][]string{
		"period":          {"monthly"},
		"statType_hidden": {"os"},
		"region_hidden":   {"ww"},
		"granularity":     {"monthly"},
		"statType":        {"Operating System"},
		"region":          {"Worldwide"},
		"fromInt":         {strings.ReplaceAll(from.Key(), "-", "")},
		"toInt":           {strings.ReplaceAll(to.Key(), "-", "")},
		"fromMonthYear":   {from.Key()},
		"toMonthYear":     {to.Key()},
		"csv":             {"1"},
		"chartWidth":      {"600"},
	}

	res, err := fetch.URL(ctx, a.chartURL, opts)
	if err != nil {
		log.WithError(err).Warn("CSV export fetch failed")
		return nil, nil
	}
	if len(strings.TrimSpace(string(res.Body))) == 0 {
		log.Warn("CSV export returned an empty body")
		return nil, nil
	}

	points := a.parseCSV(string(res.Body))
	if len(points) == 0 {
		log.Warn("CSV returned no usable rows")
		return nil, nil
	}
	log.WithField("months", len(points)).Info("parsed CSV export")
	return points, nil
}

// parseCSV handles the two formats StatCounter serves. Multi-month
// requests get a time series with one row per month:
//
//	"Date","Win11","Win10","OS X","macOS","Linux","Chrome OS","Unknown"
//	2025-01,26.36,43.38,15.02,0,3.72,1.92,...
//
// Single-month requests get an aggregate with one row per OS, the period
// encoded in the value column header:
//
//	"OS","Market Share Perc. (Jan 2026)"
//	"Win11",45.24
func (a *StatCounter) parseCSV(text string) []types.DataPoint {
	reader := csv.NewReader(strings.NewReader(strings.TrimSpace(text)))
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil || len(rows) == 0 {
		return nil
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}

	switch strings.ToLower(headers[0]) {
	case "date":
		return a.parseTimeseries(headers, rows[1:])
	case "os":
		header := ""
		if len(headers) > 1 {
			header = headers[1]
		}
		return a.parseAggregate(rows[1:], periodFromHeader(header))
	default:
		return nil
	}
}

func (a *StatCounter) parseTimeseries(headers []string, rows [][]string) []types.DataPoint {
	var points []types.DataPoint
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		month, err := parseStatCounterDate(strings.TrimSpace(row[0]))
		if err != nil {
			continue
		}

		var linux, win, mac, chrome, other float64
		for i, raw := range row[1:] {
			if i+1 >= len(headers) {
				break
			}
			a.addColumn(strings.ToLower(headers[i+1]), parseShare(raw), &linux, &win, &mac, &chrome, &other)
		}
		if linux == 0 && win == 0 {
			continue
		}
		points = append(points, a.makePoint(month, linux, win, mac, chrome, other))
	}
	return points
}

func (a *StatCounter) parseAggregate(rows [][]string, month *types.Month) []types.DataPoint {
	if month == nil {
		return nil
	}
	var linux, win, mac, chrome, other float64
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		a.addColumn(strings.ToLower(strings.TrimSpace(row[0])), parseShare(row[1]), &linux, &win, &mac, &chrome, &other)
	}
	if linux == 0 && win == 0 {
		return nil
	}
	return []types.DataPoint{a.makePoint(*month, linux, win, mac, chrome, other)}
}

// addColumn routes one OS column's value into the matching aggregate.
func (a *StatCounter) addColumn(col string, val float64, linux, win, mac, chrome, other *float64) {
	switch {
	case statCounterLinuxCols[col]:
		*linux += val
	case statCounterMacColumns[col]:
		*mac += val
	case statCounterChromeCols[col]:
		*chrome += val
	case hasAnyPrefix(col, statCounterWinPrefixes):
		*win += val
	default:
		*other += val
	}
}

func (a *StatCounter) makePoint(month types.Month, linux, win, mac, chrome, other float64) types.DataPoint {
	return types.DataPoint{
		Source:        a.Name(),
		Date:          month.FirstDay(),
		LinuxShare:    types.Round2(linux),
		WindowsShare:  types.Round2(win),
		MacShare:      types.Round2(mac),
		ChromeOSShare: types.Round2(chrome),
		OtherShare:    types.Round2(other),
		Details: map[string]any{
			"Linux":    types.Round2(linux),
			"Windows":  types.Round2(win),
			"macOS":    types.Round2(mac),
			"ChromeOS": types.Round2(chrome),
			"Other":    types.Round2(other),
		},
	}
}

// periodHeaderRe extracts "Jan 2026" from "Market Share Perc. (Jan 2026)".
var periodHeaderRe = regexp.MustCompile(`\(([A-Za-z]+ \d{4})\)`)

func periodFromHeader(header string) *types.Month {
	label := strings.TrimSpace(header)
	if m := periodHeaderRe.FindStringSubmatch(header); m != nil {
		label = m[1]
	}
	month, err := types.ParseMonthName(label)
	if err != nil {
		return nil
	}
	return &month
}

// parseStatCounterDate accepts the date spellings StatCounter has used in
// its time-series exports: "2025-01", "Jan 2025", "Jan 25".
func parseStatCounterDate(s string) (types.Month, error) {
	if m, err := types.MonthOf(s); err == nil {
		return m, nil
	}
	return types.ParseMonthName(s)
}

func parseShare(raw string) float64 {
	cleaned := strings.TrimSuffix(strings.TrimSpace(raw), "%")
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return v
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
