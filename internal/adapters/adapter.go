// Package adapters implements one source adapter per upstream data source.
// Each adapter normalizes its source's format (JSON API, CSV export, HTML
// scrape, archived snapshots) into the common data-point schema and owns its
// own backfill strategy.
package adapters

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/linuxgroove/market-trends/internal/storage"
	"github.com/linuxgroove/market-trends/internal/types"
)

// Adapter is the capability contract every source implements.
//
// Fetch returns normalized points for the requested range. Sources without
// historical access ignore the range and return the most recent period.
// Upstream failures (network, rate limits, malformed payloads) for a single
// period are logged and skipped inside the adapter; Fetch returns an error
// only for malformed date arguments.
type Adapter interface {
	Name() string
	SupportsDateRanges() bool
	Fetch(ctx context.Context, startDate, endDate string) ([]types.DataPoint, error)
}

// Deps carries the collaborators every adapter needs: the store (for the
// skip-if-stored backfill check) and a logger.
type Deps struct {
	Store storage.Store
	Log   logrus.FieldLogger
}

// All returns every registered adapter in collection order.
func All(deps Deps) []Adapter {
	return []Adapter{
		NewSteam(deps),
		NewStatCounter(deps),
		NewDAP(deps),
		NewCloudflare(deps),
		NewStackOverflow(deps),
		NewJetBrains(deps),
	}
}

// monthRange resolves optional YYYY-MM-DD bounds into an inclusive month
// range, defaulting each missing bound to the current month. Malformed
// dates are the one error class that crosses the adapter boundary.
func monthRange(startDate, endDate string) (types.Month, types.Month, error) {
	from := types.CurrentMonth()
	to := types.CurrentMonth()

	if startDate != "" {
		m, err := types.MonthOf(startDate)
		if err != nil {
			return from, to, fmt.Errorf("invalid start date: %w", err)
		}
		from = m
	}
	if endDate != "" {
		m, err := types.MonthOf(endDate)
		if err != nil {
			return from, to, fmt.Errorf("invalid end date: %w", err)
		}
		to = m
	}
	if from.After(to) {
		return from, to, fmt.Errorf("start month %s is after end month %s", from, to)
	}
	return from, to, nil
}

// sleep waits for d, returning early when the context is cancelled.
func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
