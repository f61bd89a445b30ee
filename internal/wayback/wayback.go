// Package wayback discovers and retrieves historical page snapshots from the
// Internet Archive. Sources with no native history endpoint (the Steam
// survey page only ever shows the current month) are backfilled by selecting
// one archived snapshot per calendar month and running it through the same
// parser as the live page.
package wayback

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/linuxgroove/market-trends/internal/fetch"
	"github.com/linuxgroove/market-trends/internal/types"
)

// DefaultEndpoint is the CDX index search endpoint.
const DefaultEndpoint = "https://web.archive.org/cdx/search/cdx"

// DefaultReplayBase is the base URL for retrieving raw snapshot content.
// The "id_" flag asks for the original document without the archive's
// injected toolbar markup.
const DefaultReplayBase = "https://web.archive.org/web"

// fetchRetries bounds connection-level retries per snapshot fetch.
const fetchRetries = 3

// Snapshot is one archived capture of a page.
type Snapshot struct {
	Timestamp string // archive capture time, YYYYMMDDhhmmss
	Original  string // the captured URL
}

// Month returns the calendar month the capture falls in.
func (s Snapshot) Month() (types.Month, error) {
	if len(s.Timestamp) < 6 {
		return types.Month{}, fmt.Errorf("malformed snapshot timestamp %q", s.Timestamp)
	}
	return types.MonthOf(s.Timestamp[:4] + "-" + s.Timestamp[4:6])
}

// Client queries the archive index and fetches snapshot content.
type Client struct {
	Endpoint   string
	ReplayBase string

	opts *fetch.Options
	log  logrus.FieldLogger
}

// NewClient returns a Client using the public archive endpoints.
func NewClient(log logrus.FieldLogger) *Client {
	return &Client{
		Endpoint:   DefaultEndpoint,
		ReplayBase: DefaultReplayBase,
		opts:       fetch.DefaultOptions(),
		log:        log,
	}
}

// Snapshots queries the CDX index for captures of pageURL (including query
// variants) between from and to inclusive. Only successfully archived
// captures (HTTP 200 at capture time) are returned; filtering and per-month
// selection happen in SelectPerMonth.
func (c *Client) Snapshots(ctx context.Context, pageURL string, from, to types.Month) ([]Snapshot, error) {
	opts := *c.opts
	opts.Query = map[string][]string{
		"url":       {pageURL},
		"matchType": {"prefix"},
		"from":      {from.Key()[:4] + from.Key()[5:] + "01"},
		"to":        {to.Key()[:4] + to.Key()[5:] + "31"},
		"output":    {"json"},
		"filter":    {"statuscode:200"},
		"collapse":  {"timestamp:8"},
	}

	res, err := fetch.URLWithRetry(ctx, c.Endpoint, &opts, fetchRetries)
	if err != nil {
		return nil, fmt.Errorf("CDX query failed: %w", err)
	}

	return parseCDX(res.Body)
}

// FetchSnapshot retrieves the raw archived document for a snapshot, with
// connection-level retry and exponential backoff.
func (c *Client) FetchSnapshot(ctx context.Context, s Snapshot) ([]byte, error) {
	url := fmt.Sprintf("%s/%sid_/%s", c.ReplayBase, s.Timestamp, s.Original)
	res, err := fetch.URLWithRetry(ctx, url, c.opts, fetchRetries)
	if err != nil {
		return nil, err
	}
	return res.Body, nil
}

// parseCDX decodes the CDX JSON response: an array of rows, the first being
// the column header.
func parseCDX(body []byte) ([]Snapshot, error) {
	var rows [][]string
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("malformed CDX response: %w", err)
	}
	if len(rows) < 2 {
		return nil, nil
	}

	tsIdx, origIdx := -1, -1
	for i, col := range rows[0] {
		switch col {
		case "timestamp":
			tsIdx = i
		case "original":
			origIdx = i
		}
	}
	if tsIdx < 0 || origIdx < 0 {
		return nil, fmt.Errorf("CDX header missing timestamp/original columns: %v", rows[0])
	}

	snapshots := make([]Snapshot, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) <= tsIdx || len(row) <= origIdx {
			continue
		}
		snapshots = append(snapshots, Snapshot{Timestamp: row[tsIdx], Original: row[origIdx]})
	}
	return snapshots, nil
}
