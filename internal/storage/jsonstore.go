package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/linuxgroove/market-trends/internal/types"
)

// minPartitionBytes is the size below which a partition file is treated as
// trivially empty ("[]" plus whitespace) for the skip-if-stored check.
const minPartitionBytes = 20

// timestampLayout is the UTC format used for derived-artifact timestamps.
const timestampLayout = "2006-01-02T15:04:05Z"

// JSONStore persists data points as one JSON array per (source, month)
// under <root>/<source-id>/<YYYY-MM>.json. It is not safe for concurrent
// external writers to the same directory; the collector runs single-threaded.
type JSONStore struct {
	root string
	log  logrus.FieldLogger
	now  func() time.Time
}

// NewJSONStore creates a store rooted at dir, creating it if needed.
func NewJSONStore(dir string, log logrus.FieldLogger) (*JSONStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dir, err)
	}
	return &JSONStore{root: dir, log: log, now: time.Now}, nil
}

func (s *JSONStore) partitionPath(sourceID string, m types.Month) string {
	return filepath.Join(s.root, sourceID, m.Key()+".json")
}

// Upsert merges points into their monthly partitions, replacing same-date
// entries. Points are written one by one so a failing partition never loses
// points bound for other partitions; the first error is reported after all
// points have been attempted.
func (s *JSONStore) Upsert(points []types.DataPoint) error {
	var firstErr error
	for _, point := range points {
		if err := s.upsertOne(point); err != nil {
			s.log.WithFields(logrus.Fields{
				"source": point.Source,
				"date":   point.Date,
			}).WithError(err).Warn("failed to persist data point")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (s *JSONStore) upsertOne(point types.DataPoint) error {
	if err := point.Validate(); err != nil {
		return fmt.Errorf("invalid data point: %w", err)
	}
	month, err := point.Month()
	if err != nil {
		return err
	}

	path := s.partitionPath(point.Source, month)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create partition directory: %w", err)
	}

	// Corrupt or missing partitions read as empty and get overwritten by
	// this write.
	existing := s.readPartition(path)

	merged := make([]types.DataPoint, 0, len(existing)+1)
	for _, e := range existing {
		if e.Date != point.Date {
			merged = append(merged, e)
		}
	}
	merged = append(merged, point)

	data, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal partition %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write partition %s: %w", path, err)
	}
	return nil
}

// readPartition loads a partition file, treating missing or corrupt files
// as empty.
func (s *JSONStore) readPartition(path string) []types.DataPoint {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var points []types.DataPoint
	if err := json.Unmarshal(data, &points); err != nil {
		s.log.WithField("path", path).WithError(err).Warn("corrupt partition file, treating as empty")
		return nil
	}
	return points
}

// HasPartition reports whether a non-trivially-sized partition file exists.
func (s *JSONStore) HasPartition(sourceID string, m types.Month) bool {
	info, err := os.Stat(s.partitionPath(sourceID, m))
	return err == nil && info.Size() > minPartitionBytes
}

// Query returns stored points filtered by source and inclusive date range.
// A point whose date does not parse is retained rather than dropped when a
// range is given, so malformed-but-present data is never silently lost.
func (s *JSONStore) Query(sourceID, startDate, endDate string) ([]types.DataPoint, error) {
	sourceIDs, err := s.sourceDirs(sourceID)
	if err != nil {
		return nil, err
	}

	var points []types.DataPoint
	for _, id := range sourceIDs {
		for _, key := range s.partitionKeys(id) {
			m, err := types.MonthOf(key)
			if err != nil {
				continue
			}
			points = append(points, s.readPartition(s.partitionPath(id, m))...)
		}
	}

	if startDate == "" && endDate == "" {
		return points, nil
	}

	filtered := points[:0]
	for _, p := range points {
		t, err := time.Parse("2006-01-02", p.Date)
		if err != nil {
			filtered = append(filtered, p) // fails open
			continue
		}
		if startDate != "" {
			if start, err := time.Parse("2006-01-02", startDate); err == nil && t.Before(start) {
				continue
			}
		}
		if endDate != "" {
			if end, err := time.Parse("2006-01-02", endDate); err == nil && t.After(end) {
				continue
			}
		}
		filtered = append(filtered, p)
	}
	return filtered, nil
}

// sourceDirs lists source directories under the root, or just the filter.
func (s *JSONStore) sourceDirs(sourceID string) ([]string, error) {
	if sourceID != "" {
		return []string{strings.ToLower(sourceID)}, nil
	}
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("failed to read data directory %s: %w", s.root, err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// partitionKeys lists the "YYYY-MM" keys present for a source, sorted.
func (s *JSONStore) partitionKeys(sourceID string) []string {
	entries, err := os.ReadDir(filepath.Join(s.root, sourceID))
	if err != nil {
		return nil
	}
	var keys []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() && strings.HasSuffix(name, ".json") {
			keys = append(keys, strings.TrimSuffix(name, ".json"))
		}
	}
	sort.Strings(keys)
	return keys
}
