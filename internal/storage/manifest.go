package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ManifestFile is the manifest's file name under the data root.
const ManifestFile = "manifest.json"

// BuildManifest scans the partition files and writes the manifest index.
// Sources with no partitions on disk are omitted entirely. The result is a
// pure reduction over storage state; only the timestamp varies between
// rebuilds of an unchanged store.
func (s *JSONStore) BuildManifest() (*Manifest, error) {
	manifest := &Manifest{
		LastUpdated: s.now().UTC().Format(timestampLayout),
		Sources:     make(map[string]ManifestSource),
	}

	for sourceID, meta := range Sources {
		files := s.partitionKeys(sourceID)
		if len(files) == 0 {
			continue
		}
		manifest.Sources[sourceID] = ManifestSource{
			SourceMetadata: meta,
			Files:          files,
			DateRange: DateRange{
				From: files[0],
				To:   files[len(files)-1],
			},
		}
	}

	path := filepath.Join(s.root, ManifestFile)
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", path, err)
	}

	s.log.WithField("sources", len(manifest.Sources)).Info("generated manifest.json")
	return manifest, nil
}
