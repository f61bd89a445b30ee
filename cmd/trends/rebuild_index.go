package main

import (
	"github.com/spf13/cobra"

	"github.com/linuxgroove/market-trends/internal/engine"
)

var rebuildIndexCmd = &cobra.Command{
	Use:   "rebuild-index",
	Short: "Regenerate manifest.json and combined.json from the stored partitions",
	Long: "Regenerate the derived manifest and combined dataset from the partition " +
		"files already on disk, without contacting any source. Useful after " +
		"hand-editing or pruning partitions.",
	RunE: runRebuildIndex,
}

func init() {
	rootCmd.AddCommand(rebuildIndexCmd)
}

func runRebuildIndex(_ *cobra.Command, _ []string) error {
	log := newLogger()
	store, err := newStore(log)
	if err != nil {
		return err
	}
	return engine.New(store, nil, log).RebuildIndex()
}
