// Package cmd wires configuration, storage, and providers into the
// lantern CLI commands.
package cmd

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/lanternedu/lantern/internal/log"
)

var rootCmd = &cobra.Command{
	Use:   "lantern",
	Short: "Lantern - retrieval-augmented chat over your documents",
	Long: `Lantern ingests plain-text documents, embeds them, and answers
questions about them over an HTTP chat API.

Run "lantern ingest" to load documents, then "lantern serve" to start
the API server.`,
	SilenceUsage: true,
}

var verbose bool

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	// A missing .env file is fine; the environment may be set elsewhere.
	_ = godotenv.Load()
	return rootCmd.Execute()
}

// newLogger builds the process logger honoring the --verbose flag.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return log.NewWithWriter(os.Stderr, log.Config{Level: level, JSON: false})
}
