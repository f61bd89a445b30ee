// Package main provides the entry point for the OS market trends collector CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/linuxgroove/market-trends/internal/config"
	"github.com/linuxgroove/market-trends/internal/storage"
)

var rootCmd = &cobra.Command{
	Use:   "trends",
	Short: "Linux market share trends collector",
	Long: "Collects OS usage share from public sources (Steam, StatCounter, US DAP, " +
		"Cloudflare Radar, Stack Overflow, JetBrains) into monthly JSON partitions " +
		"with a derived manifest and combined dataset.",
}

var (
	dataDir string
	verbose bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", config.DefaultDataDir, "Directory holding the collected data")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

// newLogger builds the run logger honoring --verbose.
func newLogger() *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}

// newStore opens the JSON store under --data-dir.
func newStore(log logrus.FieldLogger) (*storage.JSONStore, error) {
	return storage.NewJSONStore(dataDir, log)
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
