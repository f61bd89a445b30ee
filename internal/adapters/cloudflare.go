package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/linuxgroove/market-trends/internal/config"
	"github.com/linuxgroove/market-trends/internal/fetch"
	"github.com/linuxgroove/market-trends/internal/types"
)

// cloudflareSummaryURL is the Radar OS share summary endpoint.
const cloudflareSummaryURL = "https://api.cloudflare.com/client/v4/radar/http/summary/OS"

// Cloudflare fetches OS share across all HTTP traffic observed by
// Cloudflare Radar. Requires a free API token in CLOUDFLARE_RADAR_API_KEY;
// without one the adapter warns and yields nothing. Radar history starts
// around 2022-09 and earlier months come back as HTTP 400, which is an
// expected absence rather than a retryable failure.
type Cloudflare struct {
	deps         Deps
	apiURL       string
	requestDelay time.Duration
}

// NewCloudflare returns the Cloudflare Radar adapter.
func NewCloudflare(deps Deps) *Cloudflare {
	return &Cloudflare{
		deps:         deps,
		apiURL:       cloudflareSummaryURL,
		requestDelay: 500 * time.Millisecond,
	}
}

func (a *Cloudflare) Name() string { return "cloudflare" }

func (a *Cloudflare) SupportsDateRanges() bool { return true }

// Fetch returns one point per month in the requested range, skipping months
// already stored.
func (a *Cloudflare) Fetch(ctx context.Context, startDate, endDate string) ([]types.DataPoint, error) {
	from, to, err := monthRange(startDate, endDate)
	if err != nil {
		return nil, err
	}

	log := a.deps.Log.WithField("source", a.Name())
	token := config.CloudflareAPIKey()
	if token == "" {
		log.Warnf("%s not set, skipping Cloudflare Radar "+
			"(get a free token at https://developers.cloudflare.com/radar/get-started/first-request/)",
			config.EnvCloudflareAPIKey)
		return nil, nil
	}

	var points []types.DataPoint
	for m := from; !m.After(to); m = m.Next() {
		if from != to && a.deps.Store.HasPartition(a.Name(), m) {
			log.WithField("month", m.Key()).Debug("already stored, skipping")
			continue
		}
		if point := a.fetchOneMonth(ctx, m, token); point != nil {
			points = append(points, *point)
		}
		if m != to {
			sleep(ctx, a.requestDelay)
		}
	}
	return points, nil
}

func (a *Cloudflare) fetchOneMonth(ctx context.Context, m types.Month, token string) *types.DataPoint {
	log := a.deps.Log.WithFields(map[string]any{"source": a.Name(), "month": m.Key()})

	opts := fetch.DefaultOptions()
	opts.Headers = map[string]string{
		"Authorization": "Bearer " + token,
		"Content-Type":  "application/json",
	}
	opts.Query = map[string][]string{
		"dateStart": {m.FirstDay() + "T00:00:00Z"},
		"dateEnd":   {m.LastDay() + "T23:59:59Z"},
		"format":    {"JSON"},
	}

	res, err := fetch.URL(ctx, a.apiURL, opts)
	if err != nil {
		var fe *fetch.Error
		if errors.As(err, &fe) && fe.StatusCode == http.StatusBadRequest {
			log.Info("no data for month (outside Radar history)")
			return nil
		}
		log.WithError(err).Warn("Radar request failed, skipping month")
		return nil
	}

	point, ok := a.parseSummary(res.Body, m)
	if !ok {
		log.Warn("Radar response had no usable summary")
		return nil
	}
	log.WithField("linux", point.LinuxShare).Info("parsed month")
	return point
}

// cloudflareResponse wraps the Radar summary; share values arrive as
// strings.
type cloudflareResponse struct {
	Result struct {
		Summary map[string]any `json:"summary_0"`
	} `json:"result"`
}

func (a *Cloudflare) parseSummary(body []byte, m types.Month) (*types.DataPoint, bool) {
	var payload cloudflareResponse
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Result.Summary) == 0 {
		return nil, false
	}

	pct := func(key string) float64 {
		switch v := payload.Result.Summary[key].(type) {
		case string:
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return 0
			}
			return f
		case float64:
			return v
		default:
			return 0
		}
	}

	linux := pct("LINUX")
	windows := pct("WINDOWS")
	mac := pct("MACOS")
	android := pct("ANDROID")
	ios := pct("IOS")
	other := pct("OTHER")

	if linux == 0 && windows == 0 {
		return nil, false
	}

	return &types.DataPoint{
		Source:       a.Name(),
		Date:         m.FirstDay(),
		LinuxShare:   types.Round2(linux),
		WindowsShare: types.Round2(windows),
		MacShare:     types.Round2(mac),
		// Radar covers all devices; mobile OSes fold into other_share.
		OtherShare: types.Round2(android + ios + other),
		Details: map[string]any{
			"Linux":   types.Round2(linux),
			"Windows": types.Round2(windows),
			"macOS":   types.Round2(mac),
			"Android": types.Round2(android),
			"iOS":     types.Round2(ios),
			"Other":   types.Round2(other),
		},
	}, true
}
