package adapters

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/linuxgroove/market-trends/internal/classify"
	"github.com/linuxgroove/market-trends/internal/fetch"
	"github.com/linuxgroove/market-trends/internal/types"
)

// stackOverflowZipURL is the annual survey dataset download, one ZIP per year.
const stackOverflowZipURL = "https://survey.stackoverflow.co/datasets/stack-overflow-developer-survey-%d.zip"

// stackOverflowFirstYear is the earliest survey with a usable OS question.
const stackOverflowFirstYear = 2017

// The OS question's column name changed across survey generations. Eras
// are tried newest-first; a fuzzy header scan is the last resort for
// years with renamed columns.
var stackOverflowColumnEras = []struct {
	fromYear int
	column   string
}{
	{2021, "OpSysPersonal use"},
	{2020, "OpSys"},
	{2017, "OperatingSystem"},
}

// StackOverflow downloads annual Developer Survey ZIPs and computes OS
// shares from the multi-select personal-use OS question. Respondents can
// select several OSes, so shares are independent fractions of total
// respondents. One point per year, dated June 1 (surveys publish mid-year).
type StackOverflow struct {
	deps         Deps
	zipURL       string // format string taking the year
	requestDelay time.Duration
	retryDelays  []time.Duration // 429 ladder; after the last, the year is skipped
}

// NewStackOverflow returns the Stack Overflow survey adapter.
func NewStackOverflow(deps Deps) *StackOverflow {
	return &StackOverflow{
		deps:         deps,
		zipURL:       stackOverflowZipURL,
		requestDelay: 2 * time.Second,
		retryDelays:  []time.Duration{10 * time.Second, 30 * time.Second, 60 * time.Second},
	}
}

func (a *StackOverflow) Name() string { return "stackoverflow" }

func (a *StackOverflow) SupportsDateRanges() bool { return true }

// surveyMonth is the partition month for a survey year.
func surveyMonth(year int) types.Month {
	return types.Month{Year: year, Month: time.June}
}

// Fetch returns one point per survey year intersecting the requested range.
func (a *StackOverflow) Fetch(ctx context.Context, startDate, endDate string) ([]types.DataPoint, error) {
	from, to, err := monthRange(startDate, endDate)
	if err != nil {
		return nil, err
	}
	fromYear := from.Year
	if fromYear < stackOverflowFirstYear {
		fromYear = stackOverflowFirstYear
	}

	log := a.deps.Log.WithField("source", a.Name())
	var points []types.DataPoint
	for year := fromYear; year <= to.Year; year++ {
		if a.deps.Store.HasPartition(a.Name(), surveyMonth(year)) {
			log.WithField("year", year).Debug("survey already stored, skipping")
			continue
		}
		sleep(ctx, a.requestDelay)

		point := a.fetchOneYear(ctx, year)
		if point == nil {
			log.WithField("year", year).Warn("no data for survey year")
			continue
		}
		points = append(points, *point)
		log.WithFields(map[string]any{
			"year":    year,
			"linux":   point.LinuxShare,
			"windows": point.WindowsShare,
		}).Info("parsed survey")
	}
	return points, nil
}

// fetchOneYear downloads and parses one survey ZIP, retrying 429s on an
// escalating delay ladder and giving up on the year afterwards.
func (a *StackOverflow) fetchOneYear(ctx context.Context, year int) *types.DataPoint {
	log := a.deps.Log.WithFields(map[string]any{"source": a.Name(), "year": year})
	url := fmt.Sprintf(a.zipURL, year)

	opts := fetch.DefaultOptions()
	opts.Timeout = 120 * time.Second

	delays := append([]time.Duration{0}, a.retryDelays...)
	for attempt, delay := range delays {
		if delay > 0 {
			log.Warnf("rate limited, waiting %s before retry", delay)
			sleep(ctx, delay)
		}

		res, err := fetch.URL(ctx, url, opts)
		if err != nil {
			var fe *fetch.Error
			switch {
			case errors.As(err, &fe) && fe.RateLimited():
				if attempt < len(delays)-1 {
					continue
				}
				log.Warn("still rate limited after retries, skipping year")
				return nil
			case errors.As(err, &fe) && fe.StatusCode == http.StatusNotFound:
				log.Info("survey ZIP not published for year")
				return nil
			default:
				log.WithError(err).Warn("survey download failed")
				return nil
			}
		}

		point, err := a.parseZip(res.Body, year)
		if err != nil {
			log.WithError(err).Warn("survey parse failed")
			return nil
		}
		return point
	}
	return nil
}

// parseZip extracts the main results CSV (not the schema or readme) from
// the survey ZIP.
func (a *StackOverflow) parseZip(zipBytes []byte, year int) (*types.DataPoint, error) {
	zr, err := zip.NewReader(bytes.NewReader(zipBytes), int64(len(zipBytes)))
	if err != nil {
		return nil, fmt.Errorf("unreadable survey ZIP: %w", err)
	}

	var candidates []*zip.File
	for _, f := range zr.File {
		lower := strings.ToLower(f.Name)
		if strings.HasSuffix(lower, ".csv") && !strings.Contains(lower, "schema") && !strings.Contains(lower, "readme") {
			candidates = append(candidates, f)
		}
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no results CSV in survey ZIP")
	}

	chosen := candidates[0]
	for _, f := range candidates {
		if strings.Contains(strings.ToLower(f.Name), "result") {
			chosen = f
			break
		}
	}

	rc, err := chosen.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", chosen.Name, err)
	}
	defer func() { _ = rc.Close() }()

	return a.parseCSV(rc, year)
}

func (a *StackOverflow) parseCSV(r io.Reader, year int) (*types.DataPoint, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read survey header: %w", err)
	}

	col := detectOSColumn(headers)
	if col < 0 {
		return nil, fmt.Errorf("no OS column among %d survey headers", len(headers))
	}

	var linuxCount, windowsCount, macCount, total int
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		if col >= len(row) {
			continue
		}
		value := strings.TrimSpace(row[col])
		if value == "" || value == "NA" {
			continue
		}
		total++

		// Multi-select answers are semicolon-delimited; a respondent counts
		// toward each OS family they selected.
		var hasLinux, hasWindows, hasMac bool
		for _, choice := range strings.Split(value, ";") {
			switch classify.Categorize(strings.TrimSpace(choice)) {
			case classify.Linux:
				hasLinux = true
			case classify.Windows:
				hasWindows = true
			case classify.Mac:
				hasMac = true
			}
		}
		if hasLinux {
			linuxCount++
		}
		if hasWindows {
			windowsCount++
		}
		if hasMac {
			macCount++
		}
	}

	if total == 0 {
		return nil, fmt.Errorf("survey CSV had no usable responses")
	}

	linux := types.Round2(float64(linuxCount) / float64(total) * 100)
	windows := types.Round2(float64(windowsCount) / float64(total) * 100)
	mac := types.Round2(float64(macCount) / float64(total) * 100)
	other := types.Round2(100 - linux - windows - mac)
	if other < 0 {
		other = 0
	}

	return &types.DataPoint{
		Source:       a.Name(),
		Date:         surveyMonth(year).FirstDay(),
		LinuxShare:   linux,
		WindowsShare: windows,
		MacShare:     mac,
		OtherShare:   other,
		Details: map[string]any{
			"Linux":             linux,
			"Windows":           windows,
			"macOS":             mac,
			"Other":             other,
			"total_respondents": total,
		},
	}, nil
}

// detectOSColumn finds the OS question's column index, trying the known era
// names first and falling back to a fuzzy header scan.
func detectOSColumn(headers []string) int {
	for _, era := range stackOverflowColumnEras {
		for i, h := range headers {
			if h == era.column {
				return i
			}
		}
	}
	for i, h := range headers {
		lower := strings.ToLower(h)
		if strings.Contains(lower, "operating") ||
			(strings.Contains(lower, "os") && (strings.Contains(lower, "personal") || strings.Contains(lower, "use"))) {
			return i
		}
	}
	return -1
}
