// Package storage persists normalized data points into monthly JSON
// partitions and derives the manifest and combined dataset from them.
package storage

import (
	"github.com/linuxgroove/market-trends/internal/types"
)

// CombinedFields is the fixed list of recognized numeric field names,
// published in the combined dataset's metadata for downstream consumers.
var CombinedFields = []string{
	"linux_share", "windows_share", "mac_share", "chromeos_share", "wsl_share", "other_share",
}

// Store is the single source of truth for what has been collected.
// Adapters consult it for the skip-if-stored backfill check instead of
// probing the filesystem themselves, so the backend can be swapped without
// touching adapter logic.
type Store interface {
	// Upsert merges points into their (source, month) partitions.
	// Within a partition an incoming point replaces any existing entry with
	// the same date. Each point is written independently: one partition's
	// write failure does not lose points bound for other partitions.
	Upsert(points []types.DataPoint) error

	// Query returns stored points, optionally filtered by source id and an
	// inclusive [startDate, endDate] range (empty strings mean unbounded).
	// Points with unparsable dates are retained when range-filtering.
	Query(sourceID, startDate, endDate string) ([]types.DataPoint, error)

	// HasPartition reports whether a non-trivially-sized partition file
	// already exists for the source and month. Backfill uses this to skip
	// periods without any network call.
	HasPartition(sourceID string, m types.Month) bool

	// BuildManifest regenerates the manifest index from current storage
	// state and persists it.
	BuildManifest() (*Manifest, error)

	// BuildCombined regenerates the flattened combined dataset from current
	// storage state and persists it.
	BuildCombined() (*Combined, error)
}

// DateRange is an inclusive range of partition keys or point dates.
type DateRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// ManifestSource is one source's entry in the manifest: its static
// metadata plus the partitions present on disk.
type ManifestSource struct {
	SourceMetadata
	Files     []string  `json:"files"`
	DateRange DateRange `json:"date_range"`
}

// Manifest is the derived index of available data. It is fully regenerable
// from the partition files plus the static metadata table and is never
// authoritative on its own.
type Manifest struct {
	LastUpdated string                    `json:"last_updated"`
	Sources     map[string]ManifestSource `json:"sources"`
}

// NullableDateRange is the combined dataset's overall date span; both ends
// are null when the store is empty.
type NullableDateRange struct {
	From *string `json:"from"`
	To   *string `json:"to"`
}

// CombinedMetadata describes the combined dataset.
type CombinedMetadata struct {
	LastUpdated string            `json:"last_updated"`
	Sources     []string          `json:"sources"`
	DateRange   NullableDateRange `json:"date_range"`
	Fields      []string          `json:"fields"`
}

// Combined is the derived, flattened view of all stored points, sorted by
// (date, source) for deterministic diff-friendly output.
type Combined struct {
	Metadata CombinedMetadata  `json:"metadata"`
	Data     []types.DataPoint `json:"data"`
}
