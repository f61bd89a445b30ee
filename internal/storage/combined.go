package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/linuxgroove/market-trends/internal/types"
)

// CombinedFile is the combined dataset's file name under the data root.
const CombinedFile = "combined.json"

// BuildCombined flattens every partition of every source into one sorted,
// deduplicated dataset file and writes it. An empty store yields an empty
// data list with a null date range rather than an error.
func (s *JSONStore) BuildCombined() (*Combined, error) {
	points, err := s.Query("", "", "")
	if err != nil {
		return nil, err
	}

	sort.SliceStable(points, func(i, j int) bool {
		if points[i].Date != points[j].Date {
			return points[i].Date < points[j].Date
		}
		return points[i].Source < points[j].Source
	})

	sourceSet := make(map[string]struct{})
	for _, p := range points {
		sourceSet[p.Source] = struct{}{}
	}
	sources := make([]string, 0, len(sourceSet))
	for id := range sourceSet {
		sources = append(sources, id)
	}
	sort.Strings(sources)

	var dateRange NullableDateRange
	if len(points) > 0 {
		first, last := points[0].Date, points[len(points)-1].Date
		dateRange.From, dateRange.To = &first, &last
	}

	combined := &Combined{
		Metadata: CombinedMetadata{
			LastUpdated: s.now().UTC().Format(timestampLayout),
			Sources:     sources,
			DateRange:   dateRange,
			Fields:      CombinedFields,
		},
		Data: points,
	}
	if combined.Data == nil {
		combined.Data = []types.DataPoint{}
	}

	path := filepath.Join(s.root, CombinedFile)
	data, err := json.MarshalIndent(combined, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal combined dataset: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", path, err)
	}

	s.log.WithField("points", len(combined.Data)).Info("generated combined.json")
	return combined, nil
}
