// Package cmd wires the mailplane CLI: watch the inbox as a daemon,
// run one-shot triage passes, validate connectivity, and inspect the
// local triage history.
package cmd

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/nvkha/mailplane/internal/model"
)

var (
	configPath string
	verbose    bool
)

// rootCmd represents the base command for the mailplane application.
var rootCmd = &cobra.Command{
	Use:   "mailplane",
	Short: "Triages inbox email into Plane work items",
	Long: `mailplane watches an IMAP inbox and turns matching email into Plane
work items: replies thread onto the existing item as comments, new
conversations open a new item with detected priority, labels, and
dates.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		})))

		// Load .env if present (for local development).
		if err := godotenv.Load(); err != nil {
			slog.Debug("no .env file found, using environment variables")
		}
	},
}

// version will be set by main.
var version = "dev"

// SetVersion sets the version for the root command.
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "mailplane version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&configPath, "config", model.DefaultConfigPath(),
		"path to the configuration file",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&verbose, "verbose", "v", false, "enable debug logging",
	)

	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newProcessCmd())
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newConfigCmd())
}
