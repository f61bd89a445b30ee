package adapters

import (
	"context"
	"time"

	"github.com/linuxgroove/market-trends/internal/types"
)

// jetBrainsFirstYear is the first Developer Ecosystem survey with a usable
// OS question.
const jetBrainsFirstYear = 2019

// jetBrainsYear is one survey year's figures. The OS question is a
// multi-select checkbox ("On which operating systems are your development
// environments?"), so shares sum past 100%.
type jetBrainsYear struct {
	Linux, Windows, Mac float64
	Respondents         int
}

// JetBrains does not publish raw survey downloads for most years; figures
// are curated from the published interactive results at
// https://www.jetbrains.com/lp/devecosystem-{year}/ (2025 onward from the
// RawData.zip os_devenv one-hot columns). To add a year, append its entry
// here and run a collect over that year.
var jetBrainsKnownData = map[int]jetBrainsYear{
	2019: {Linux: 47.0, Windows: 56.0, Mac: 49.0, Respondents: 6000},
	2020: {Linux: 49.0, Windows: 59.0, Mac: 49.0, Respondents: 19696},
	2021: {Linux: 47.0, Windows: 61.0, Mac: 45.0, Respondents: 31743},
	2022: {Linux: 40.0, Windows: 62.0, Mac: 44.0, Respondents: 29000},
	2023: {Linux: 46.0, Windows: 62.0, Mac: 42.0, Respondents: 26348},
	2024: {Linux: 49.0, Windows: 58.0, Mac: 42.0, Respondents: 23000},
	2025: {Linux: 47.5, Windows: 59.9, Mac: 53.0, Respondents: 24534},
}

// JetBrains serves the Developer Ecosystem survey's OS figures from a
// curated in-source table, one point per survey year dated January 1.
type JetBrains struct {
	deps  Deps
	known map[int]jetBrainsYear
}

// NewJetBrains returns the JetBrains survey adapter.
func NewJetBrains(deps Deps) *JetBrains {
	return &JetBrains{deps: deps, known: jetBrainsKnownData}
}

func (a *JetBrains) Name() string { return "jetbrains" }

func (a *JetBrains) SupportsDateRanges() bool { return true }

// Fetch emits the curated figures for each known survey year in range,
// skipping years already stored.
func (a *JetBrains) Fetch(_ context.Context, startDate, endDate string) ([]types.DataPoint, error) {
	from, to, err := monthRange(startDate, endDate)
	if err != nil {
		return nil, err
	}
	fromYear := from.Year
	if fromYear < jetBrainsFirstYear {
		fromYear = jetBrainsFirstYear
	}

	log := a.deps.Log.WithField("source", a.Name())
	var points []types.DataPoint
	for year := fromYear; year <= to.Year; year++ {
		month := types.Month{Year: year, Month: time.January}
		if a.deps.Store.HasPartition(a.Name(), month) {
			log.WithField("year", year).Debug("survey already stored, skipping")
			continue
		}

		d, ok := a.known[year]
		if !ok {
			log.WithField("year", year).Infof(
				"no curated data; see https://www.jetbrains.com/lp/devecosystem-%d/ to add it", year)
			continue
		}

		points = append(points, types.DataPoint{
			Source:       a.Name(),
			Date:         month.FirstDay(),
			LinuxShare:   d.Linux,
			WindowsShare: d.Windows,
			MacShare:     d.Mac,
			Details: map[string]any{
				"Linux":             d.Linux,
				"Windows":           d.Windows,
				"macOS":             d.Mac,
				"total_respondents": d.Respondents,
				"note":              "Multi-select; shares can exceed 100%",
			},
		})
		log.WithFields(map[string]any{
			"year":  year,
			"linux": d.Linux,
		}).Info("emitted curated survey figures")
	}
	return points, nil
}
