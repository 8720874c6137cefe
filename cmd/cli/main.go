package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	dbPath        string
	migrationsDir string
)

var rootCmd = &cobra.Command{
	Use:   "teamsheet-cli",
	Short: "A CLI to administer the teamsheet engine",
	Long: `A command-line interface for balancing line-ups, ingesting match
results and inspecting the tables of the teamsheet engine.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "teamsheet.db", "Path to the sqlite database")
	rootCmd.PersistentFlags().StringVar(&migrationsDir, "migrations", "./migrations", "Path to the goose migrations")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Whoops. There was an error while executing your command '%s'", err)
		os.Exit(1)
	}
}

func main() {
	Execute()
}
