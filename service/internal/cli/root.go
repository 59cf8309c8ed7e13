// Package cli defines the Cobra commands of the avalon binary.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	envFile string
	version = "dev" // set via ldflags at build time
)

var rootCmd = &cobra.Command{
	Use:   "avalon",
	Short: "Avalon session backend",
	Long: `avalon hosts Avalon tables: players join by a four digit code, roles
are dealt when the table fills, and nominations, votes, mission cards and
the assassination are submitted over HTTP.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command. Called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Optional dotenv file loaded before reading the environment")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}
