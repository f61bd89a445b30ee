package adapters

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/linuxgroove/market-trends/internal/fetch"
	"github.com/linuxgroove/market-trends/internal/types"
	"github.com/linuxgroove/market-trends/internal/wayback"
)

// steamLiveURL is the current survey page. Steam only ever publishes the
// most recent month here; history comes from archived snapshots.
const steamLiveURL = "https://store.steampowered.com/hwsurvey/Steam-Hardware-Software-Survey-?language=english"

// steamArchiveDelay is the minimum spacing between archive snapshot fetches.
const steamArchiveDelay = 2 * time.Second

// Steam scrapes OS shares from the Steam Hardware & Software Survey page.
// Ranged fetches are served from Internet Archive snapshots of the same
// page, parsed by the same parser.
type Steam struct {
	deps       Deps
	liveURL    string
	archiveURL string
	archive    *wayback.Client

	// UseBrowser enables a headless-browser retry when the plain HTTP
	// response lacks the survey markup (bot checks, scripted rendering).
	UseBrowser bool

	archiveDelay   time.Duration
	browserTimeout time.Duration
}

// NewSteam returns the Steam survey adapter.
func NewSteam(deps Deps) *Steam {
	return &Steam{
		deps:           deps,
		liveURL:        steamLiveURL,
		archiveURL:     "https://store.steampowered.com/hwsurvey/",
		archive:        wayback.NewClient(deps.Log),
		archiveDelay:   steamArchiveDelay,
		browserTimeout: 60 * time.Second,
	}
}

func (s *Steam) Name() string { return "steam" }

// SupportsDateRanges is true: historical months are reachable through
// archive snapshots even though the live page has no history.
func (s *Steam) SupportsDateRanges() bool { return true }

// Fetch returns the current survey period, or one point per archived month
// when a range is given.
func (s *Steam) Fetch(ctx context.Context, startDate, endDate string) ([]types.DataPoint, error) {
	if startDate == "" && endDate == "" {
		return s.fetchLive(ctx), nil
	}
	from, to, err := monthRange(startDate, endDate)
	if err != nil {
		return nil, err
	}
	return s.backfill(ctx, from, to), nil
}

func (s *Steam) fetchLive(ctx context.Context) []types.DataPoint {
	log := s.deps.Log.WithField("source", s.Name())
	log.Info("fetching current hardware survey page")

	opts := fetch.DefaultOptions()
	opts.Headers = map[string]string{"Accept-Language": "en-US,en;q=0.9"}

	var html string
	if res, err := fetch.URL(ctx, s.liveURL, opts); err != nil {
		log.WithError(err).Warn("survey page fetch failed")
	} else {
		html = string(res.Body)
	}

	point, ok := s.parsePage(html)
	if !ok && s.UseBrowser {
		log.Info("survey markup missing, retrying with headless browser")
		rendered, err := fetch.WithBrowser(ctx, s.liveURL, s.browserTimeout)
		if err != nil {
			log.WithError(err).Warn("browser rendering failed")
		} else {
			point, ok = s.parsePage(rendered)
		}
	}
	if !ok {
		log.Warn("could not parse OS data from survey page")
		return nil
	}

	log.WithFields(map[string]any{
		"month": point.Date[:7],
		"linux": point.LinuxShare,
	}).Info("parsed survey page")
	return []types.DataPoint{*point}
}

// backfill selects one archived snapshot per month in [from, to], skips
// months already stored, and parses each snapshot like the live page.
func (s *Steam) backfill(ctx context.Context, from, to types.Month) []types.DataPoint {
	log := s.deps.Log.WithField("source", s.Name())

	snapshots, err := s.archive.Snapshots(ctx, s.archiveURL, from, to)
	if err != nil {
		log.WithError(err).Warn("archive index query failed")
		return nil
	}
	selected := wayback.SelectPerMonth(snapshots)
	log.WithField("months", len(selected)).Info("selected archive snapshots")

	var points []types.DataPoint
	for _, month := range wayback.SortedMonths(selected) {
		if month.After(to) || from.After(month) {
			continue
		}
		if s.deps.Store.HasPartition(s.Name(), month) {
			log.WithField("month", month.Key()).Debug("already stored, skipping")
			continue
		}

		snapshot := selected[month.Key()]
		body, err := s.archive.FetchSnapshot(ctx, snapshot)
		if err != nil {
			log.WithField("month", month.Key()).WithError(err).Warn("snapshot fetch failed, skipping month")
			sleep(ctx, s.archiveDelay)
			continue
		}

		point, ok := s.parsePage(string(body))
		if !ok {
			log.WithField("month", month.Key()).Warn("snapshot had no usable survey data")
		} else {
			points = append(points, *point)
			log.WithFields(map[string]any{
				"month": point.Date[:7],
				"linux": point.LinuxShare,
			}).Info("parsed archived survey")
		}

		sleep(ctx, s.archiveDelay)
	}
	return points
}

var percentRe = regexp.MustCompile(`([\d.]+)\s*%`)

func firstPercent(text string) float64 {
	m := percentRe.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	return v
}

// surveyDateRe matches headings like "Steam Hardware & Software Survey:
// January 2026".
var surveyDateRe = regexp.MustCompile(`(?i)Survey[:\s]+([A-Za-z]+ \d{4})`)

func (s *Steam) surveyDate(html string) string {
	if m := surveyDateRe.FindStringSubmatch(html); m != nil {
		if month, err := types.ParseMonthName(m[1]); err == nil {
			return month.FirstDay()
		}
	}
	return types.CurrentMonth().FirstDay()
}

// parsePage extracts the top-level OS aggregates from #osversion_details.
// The page structure has category rows (div.stats_row) for Windows, OSX and
// Linux, with per-version sub-entries in stats_col_mid / stats_col_right
// pairs; Linux sub-entries (individual distros) are kept as details.
func (s *Steam) parsePage(html string) (*types.DataPoint, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, false
	}
	container := doc.Find("#osversion_details")
	if container.Length() == 0 {
		return nil, false
	}

	var linux, windows, mac float64
	details := map[string]any{}
	current := ""
	lastName := ""

	container.Children().Each(func(_ int, child *goquery.Selection) {
		switch {
		case child.HasClass("stats_row"):
			text := strings.TrimSpace(child.Text())
			pct := firstPercent(text)
			lower := strings.ToLower(text)
			switch {
			case strings.HasPrefix(lower, "windows"):
				windows = pct
				current = "windows"
			case strings.HasPrefix(lower, "osx") || strings.HasPrefix(lower, "mac"):
				mac = pct
				current = "mac"
			case strings.HasPrefix(lower, "linux"):
				linux = pct
				current = "linux"
			default:
				current = ""
			}
		case current == "linux" && child.HasClass("stats_col_mid"):
			lastName = strings.TrimSpace(child.Text())
		case current == "linux" && child.HasClass("stats_col_right") && !child.HasClass("stats_col_right2"):
			if lastName != "" {
				details[lastName] = types.Round2(firstPercent(child.Text()))
				lastName = ""
			}
		}
	})

	if linux == 0 && windows == 0 {
		return nil, false
	}

	other := types.Round2(100 - windows - mac - linux)
	if other < 0 {
		other = 0
	}

	return &types.DataPoint{
		Source:       s.Name(),
		Date:         s.surveyDate(html),
		LinuxShare:   types.Round2(linux),
		WindowsShare: types.Round2(windows),
		MacShare:     types.Round2(mac),
		OtherShare:   other,
		Details:      details,
	}, true
}
