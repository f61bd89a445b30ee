package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/linuxgroove/market-trends/internal/classify"
	"github.com/linuxgroove/market-trends/internal/config"
	"github.com/linuxgroove/market-trends/internal/fetch"
	"github.com/linuxgroove/market-trends/internal/types"
)

const (
	dapLiveURL = "https://analytics.usa.gov/data/live/os.json"
	dapAPIv1   = "https://api.gsa.gov/analytics/dap/v1.1/reports/os/data"
	dapAPIv2   = "https://api.gsa.gov/analytics/dap/v2/reports/os/data"
)

// dapEra describes one GSA Analytics API schema generation: which endpoint
// serves a month and how the key is passed. The eras table is consulted per
// period instead of scattering version branches through the parser.
type dapEra struct {
	from       types.Month
	endpoint   string
	headerAuth bool // v2 wants x-api-key; v1.1 takes an api_key query param
}

// DAP fetches OS distribution across US federal government websites from
// analytics.usa.gov (current period) and the GSA Analytics API (history).
// Traffic includes mobile devices; mobile share folds into other_share.
type DAP struct {
	deps    Deps
	liveURL string
	eras    []dapEra

	requestDelay  time.Duration // spacing between monthly API calls
	rateLimitWait time.Duration // single retry wait after a 429
}

// NewDAP returns the DAP adapter.
func NewDAP(deps Deps) *DAP {
	return &DAP{
		deps:    deps,
		liveURL: dapLiveURL,
		eras: []dapEra{
			{from: types.Month{Year: 2018, Month: time.January}, endpoint: dapAPIv1},
			{from: types.Month{Year: 2023, Month: time.August}, endpoint: dapAPIv2, headerAuth: true},
		},
		requestDelay:  500 * time.Millisecond,
		rateLimitWait: 30 * time.Second,
	}
}

func (a *DAP) Name() string { return "dap" }

func (a *DAP) SupportsDateRanges() bool { return true }

// eraFor returns the schema era covering month m: the last era whose
// effective date does not exceed m.
func (a *DAP) eraFor(m types.Month) dapEra {
	era := a.eras[0]
	for _, candidate := range a.eras[1:] {
		if m.After(candidate.from) || m == candidate.from {
			era = candidate
		}
	}
	return era
}

// Fetch returns the current period from the live endpoint, or one point per
// month from the GSA API when both bounds are given.
func (a *DAP) Fetch(ctx context.Context, startDate, endDate string) ([]types.DataPoint, error) {
	if startDate == "" || endDate == "" {
		return a.fetchCurrent(ctx), nil
	}
	from, to, err := monthRange(startDate, endDate)
	if err != nil {
		return nil, err
	}
	return a.fetchHistorical(ctx, from, to), nil
}

// dapLiveResponse is the live os.json shape: aggregate visit counts per OS.
type dapLiveResponse struct {
	Totals struct {
		TotalUsers float64            `json:"totalUsers"`
		ByOS       map[string]float64 `json:"by_os"`
	} `json:"totals"`
}

func (a *DAP) fetchCurrent(ctx context.Context) []types.DataPoint {
	log := a.deps.Log.WithField("source", a.Name())
	log.Info("fetching live OS data from analytics.usa.gov")

	res, err := fetch.URL(ctx, a.liveURL, fetch.DefaultOptions())
	if err != nil {
		log.WithError(err).Warn("live endpoint fetch failed")
		return nil
	}

	var payload dapLiveResponse
	if err := json.Unmarshal(res.Body, &payload); err != nil {
		log.WithError(err).Warn("malformed live payload")
		return nil
	}

	point, ok := a.buildPoint(types.CurrentMonth(), payload.Totals.ByOS, payload.Totals.TotalUsers)
	if !ok {
		log.Warn("live payload had no usable OS breakdown")
		return nil
	}
	return []types.DataPoint{*point}
}

func (a *DAP) fetchHistorical(ctx context.Context, from, to types.Month) []types.DataPoint {
	log := a.deps.Log.WithField("source", a.Name())
	apiKey, configured := config.DAPAPIKey()
	if !configured {
		log.Warnf("%s not set; using %s which has strict rate limits "+
			"(register free at https://api.data.gov/signup/)", config.EnvDAPAPIKey, config.DAPDemoKey)
	}

	var points []types.DataPoint
	for m := from; !m.After(to); m = m.Next() {
		if a.deps.Store.HasPartition(a.Name(), m) {
			log.WithField("month", m.Key()).Debug("already stored, skipping")
			continue
		}
		if point := a.fetchOneMonth(ctx, m, apiKey); point != nil {
			points = append(points, *point)
		}
		sleep(ctx, a.requestDelay)
	}
	return points
}

// dapRecord is one daily per-OS visit count row from the GSA API.
type dapRecord struct {
	OS     string  `json:"os"`
	Visits float64 `json:"visits"`
}

func (a *DAP) fetchOneMonth(ctx context.Context, m types.Month, apiKey string) *types.DataPoint {
	log := a.deps.Log.WithFields(map[string]any{"source": a.Name(), "month": m.Key()})
	era := a.eraFor(m)

	opts := fetch.DefaultOptions()
	opts.Timeout = 60 * time.Second
	opts.Query = map[string][]string{
		"after":  {m.FirstDay()},
		"before": {m.LastDay()},
		"limit":  {"10000"},
	}
	if era.headerAuth {
		opts.Headers = map[string]string{"x-api-key": apiKey}
	} else {
		opts.Query["api_key"] = []string{apiKey}
	}

	log.Info("querying GSA Analytics API")
	res, err := fetch.URL(ctx, era.endpoint, opts)
	if err != nil {
		var fe *fetch.Error
		if errors.As(err, &fe) && fe.RateLimited() {
			log.Warnf("rate limited, waiting %s before one retry", a.rateLimitWait)
			sleep(ctx, a.rateLimitWait)
			res, err = fetch.URL(ctx, era.endpoint, opts)
		}
		if err != nil {
			log.WithError(err).Warn("API request failed, skipping month")
			return nil
		}
	}

	var records []dapRecord
	if err := json.Unmarshal(res.Body, &records); err != nil || len(records) == 0 {
		log.Warn("empty or unexpected API response")
		return nil
	}

	// Aggregate daily visit counts per OS across the month.
	byOS := make(map[string]float64)
	var total float64
	for _, rec := range records {
		if rec.OS == "" || rec.OS == "(not set)" {
			continue
		}
		byOS[rec.OS] += rec.Visits
		total += rec.Visits
	}

	point, ok := a.buildPoint(m, byOS, total)
	if !ok {
		log.Warn("no usable visit data")
		return nil
	}
	log.WithField("linux", point.LinuxShare).Info("parsed month")
	return point
}

// buildPoint classifies per-OS counts into share buckets. Individual Linux
// distributions (any OS name matching the linux keywords) are preserved as
// details alongside the aggregates.
func (a *DAP) buildPoint(m types.Month, byOS map[string]float64, total float64) (*types.DataPoint, bool) {
	if len(byOS) == 0 || total == 0 {
		return nil, false
	}

	var totals classify.Totals
	linuxDetails := map[string]float64{}
	for osName, count := range byOS {
		pct := types.Round2(count / total * 100)
		if totals.Add(osName, pct) == classify.Linux {
			linuxDetails[osName] = pct
		}
	}
	if !totals.HasSignal() {
		return nil, false
	}

	details := map[string]any{
		"Linux":                types.Round2(totals.Linux),
		"Windows":              types.Round2(totals.Windows),
		"macOS":                types.Round2(totals.Mac),
		"ChromeOS":             types.Round2(totals.ChromeOS),
		"Mobile (Android/iOS)": types.Round2(totals.Mobile),
	}
	for name, pct := range linuxDetails {
		details[name] = pct
	}

	return &types.DataPoint{
		Source:        a.Name(),
		Date:          m.FirstDay(),
		LinuxShare:    types.Round2(totals.Linux),
		WindowsShare:  types.Round2(totals.Windows),
		MacShare:      types.Round2(totals.Mac),
		ChromeOSShare: types.Round2(totals.ChromeOS),
		OtherShare:    types.Round2(totals.Mobile + totals.Other),
		Details:       details,
	}, true
}
