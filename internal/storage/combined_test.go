package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxgroove/market-trends/internal/types"
)

func TestBuildCombined_EndToEnd(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Upsert([]types.DataPoint{steamPoint("2026-01-01", 3.4, 92.1)}))

	combined, err := store.BuildCombined()
	require.NoError(t, err)

	require.Len(t, combined.Data, 1)
	assert.Equal(t, "steam", combined.Data[0].Source)
	assert.Equal(t, 3.4, combined.Data[0].LinuxShare)
	assert.Equal(t, []string{"steam"}, combined.Metadata.Sources)
	require.NotNil(t, combined.Metadata.DateRange.From)
	assert.Equal(t, "2026-01-01", *combined.Metadata.DateRange.From)
	assert.Equal(t, CombinedFields, combined.Metadata.Fields)

	data, err := os.ReadFile(filepath.Join(store.root, CombinedFile))
	require.NoError(t, err)
	var onDisk Combined
	require.NoError(t, json.Unmarshal(data, &onDisk))
	assert.Equal(t, combined.Data, onDisk.Data)
}

func TestBuildCombined_SortedByDateThenSource(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Upsert([]types.DataPoint{
		{Source: "statcounter", Date: "2025-06-01", LinuxShare: 4.0, WindowsShare: 71.0},
		steamPoint("2025-06-01", 3.1, 92.9),
		steamPoint("2025-01-01", 2.9, 93.5),
	}))

	combined, err := store.BuildCombined()
	require.NoError(t, err)
	require.Len(t, combined.Data, 3)
	assert.Equal(t, "2025-01-01", combined.Data[0].Date)
	assert.Equal(t, "statcounter", combined.Data[1].Source)
	assert.Equal(t, "steam", combined.Data[2].Source)
	assert.Equal(t, []string{"statcounter", "steam"}, combined.Metadata.Sources)
	assert.Equal(t, "2025-01-01", *combined.Metadata.DateRange.From)
	assert.Equal(t, "2025-06-01", *combined.Metadata.DateRange.To)
}

func TestBuildCombined_EmptyStore(t *testing.T) {
	store := newTestStore(t)
	combined, err := store.BuildCombined()
	require.NoError(t, err)
	assert.Empty(t, combined.Data)
	assert.Nil(t, combined.Metadata.DateRange.From)
	assert.Nil(t, combined.Metadata.DateRange.To)
	assert.NotNil(t, combined.Data)

	// Serialized form keeps data as [] and date range as nulls.
	data, err := os.ReadFile(filepath.Join(store.root, CombinedFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"data": []`)
	assert.Contains(t, string(data), `"from": null`)
}

func TestBuildCombined_Deterministic(t *testing.T) {
	store := newTestStore(t)
	store.now = func() time.Time { return time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC) }
	require.NoError(t, store.Upsert([]types.DataPoint{
		steamPoint("2025-06-01", 3.1, 92.9),
		{Source: "dap", Date: "2025-06-01", LinuxShare: 2.2, WindowsShare: 45.0},
	}))

	first, err := store.BuildCombined()
	require.NoError(t, err)
	second, err := store.BuildCombined()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
