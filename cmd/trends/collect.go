package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/linuxgroove/market-trends/internal/adapters"
	"github.com/linuxgroove/market-trends/internal/engine"
	"github.com/linuxgroove/market-trends/internal/types"
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Fetch OS share data from the sources and rebuild the indexes",
	Long: "Fetch current or historical OS share data from every source (or one chosen " +
		"with --source), store it into monthly partitions, and rebuild manifest.json " +
		"and combined.json.",
	RunE: runCollect,
}

var (
	collectFrom       string
	collectTo         string
	collectMonth      string
	collectSource     string
	collectUseBrowser bool
)

func init() {
	collectCmd.Flags().StringVar(&collectFrom, "range-from", "", "Start date YYYY-MM-DD for historical collection")
	collectCmd.Flags().StringVar(&collectTo, "range-to", "", "End date YYYY-MM-DD for historical collection")
	collectCmd.Flags().StringVar(&collectMonth, "month", "", "Collect a single month YYYY-MM (shorthand for a one-month range)")
	collectCmd.Flags().StringVar(&collectSource, "source", "", "Collect from one source only (steam, statcounter, dap, cloudflare, stackoverflow, jetbrains)")
	collectCmd.Flags().BoolVar(&collectUseBrowser, "use-browser", false, "Render the Steam survey page in a headless browser when plain HTTP parsing fails")

	rootCmd.AddCommand(collectCmd)
}

// resolveRange turns the --month / --range-from / --range-to flags into a
// validated [from, to] date pair. All input errors surface here, before the
// engine touches anything.
func resolveRange(month, from, to string) (string, string, error) {
	if month != "" {
		if from != "" || to != "" {
			return "", "", fmt.Errorf("--month cannot be combined with --range-from/--range-to")
		}
		m, err := types.MonthOf(month)
		if err != nil {
			return "", "", fmt.Errorf("invalid --month: %w", err)
		}
		return m.FirstDay(), m.LastDay(), nil
	}

	for flag, value := range map[string]string{"--range-from": from, "--range-to": to} {
		if value == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02", value); err != nil {
			return "", "", fmt.Errorf("invalid %s %q: expected YYYY-MM-DD", flag, value)
		}
	}
	if from != "" && to != "" && from > to {
		return "", "", fmt.Errorf("--range-from %s is after --range-to %s", from, to)
	}
	return from, to, nil
}

func runCollect(cmd *cobra.Command, _ []string) error {
	from, to, err := resolveRange(collectMonth, collectFrom, collectTo)
	if err != nil {
		return err
	}

	log := newLogger()
	store, err := newStore(log)
	if err != nil {
		return err
	}

	list := adapters.All(adapters.Deps{Store: store, Log: log})
	if collectUseBrowser {
		for _, a := range list {
			if s, ok := a.(*adapters.Steam); ok {
				s.UseBrowser = true
			}
		}
	}

	return engine.New(store, list, log).Collect(cmd.Context(), from, to, collectSource)
}
