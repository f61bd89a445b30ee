package schemas

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxgroove/market-trends/internal/storage"
	"github.com/linuxgroove/market-trends/internal/types"
)

func schemaDir(t *testing.T) string {
	t.Helper()
	dir := DefaultDir()
	require.NotEmpty(t, dir, "schemas directory not found from test working dir")
	return dir
}

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestValidateFile_ValidPartition(t *testing.T) {
	doc := writeFile(t, t.TempDir(), "2026-01.json", `[
		{"source": "steam", "date": "2026-01-01", "linux_share": 3.38,
		 "windows_share": 94.62, "mac_share": 2.01,
		 "details": {"Ubuntu 24.04 LTS 64 bit": 0.72}}
	]`)

	err := ValidateFile(filepath.Join(schemaDir(t), PartitionSchema), doc)
	assert.NoError(t, err)
}

func TestValidateFile_ReportsEveryViolation(t *testing.T) {
	doc := writeFile(t, t.TempDir(), "2026-01.json", `[
		{"source": "", "date": "January 2026", "linux_share": -1, "bogus": true}
	]`)

	err := ValidateFile(filepath.Join(schemaDir(t), PartitionSchema), doc)
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.GreaterOrEqual(t, len(verr.Errors), 3)
	assert.Contains(t, err.Error(), "failed validation")
}

func TestValidateFile_MissingDocument(t *testing.T) {
	err := ValidateFile(filepath.Join(schemaDir(t), PartitionSchema), filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
	var verr *ValidationError
	assert.False(t, errors.As(err, &verr))
}

func TestValidateDataDir_AgainstRealStoreOutput(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)

	dataDir := t.TempDir()
	store, err := storage.NewJSONStore(dataDir, log)
	require.NoError(t, err)
	require.NoError(t, store.Upsert([]types.DataPoint{
		{Source: "steam", Date: "2026-01-01", LinuxShare: 3.38, WindowsShare: 94.62, MacShare: 2.01},
		{Source: "statcounter", Date: "2026-01-01", LinuxShare: 4.27, WindowsShare: 71.42, MacShare: 15.02, OtherShare: 9.29},
	}))
	_, err = store.BuildManifest()
	require.NoError(t, err)
	_, err = store.BuildCombined()
	require.NoError(t, err)

	results, err := ValidateDataDir(schemaDir(t), dataDir)
	require.NoError(t, err)
	// manifest.json + combined.json + two partitions.
	require.Len(t, results, 4)
	for _, r := range results {
		assert.NoError(t, r.Err, r.Path)
	}
	assert.True(t, Ok(results))
}

func TestValidateDataDir_FlagsCorruptPartition(t *testing.T) {
	dataDir := t.TempDir()
	writeFile(t, dataDir, filepath.Join("steam", "2026-01.json"),
		`[{"date": "2026-01-01", "linux_share": 3.38}]`)

	results, err := ValidateDataDir(schemaDir(t), dataDir)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Error(t, results[0].Err)
	assert.False(t, Ok(results))
}

func TestValidateDataDir_MissingDirIsEmpty(t *testing.T) {
	results, err := ValidateDataDir(schemaDir(t), filepath.Join(t.TempDir(), "nope"))
	assert.NoError(t, err)
	assert.Empty(t, results)
}
