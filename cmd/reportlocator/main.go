package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var version = "dev"

var noColor bool

var rootCmd = &cobra.Command{
	Use:   "reportlocator",
	Short: "Find a case report across every database of a MongoDB cluster",
	Long: `reportlocator serves GET /find-report/{caseNumber}, which scans every
non-system database of the cluster for a matching case record.

Examples:
  reportlocator serve
  reportlocator find 2024-017
  reportlocator find 2024-017 --format pdf --out 2024-017.pdf`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			color.NoColor = true
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "reportlocator %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable coloured output")
	rootCmd.AddCommand(serveCmd, findCmd, databasesCmd, historyCmd, statusCmd, configCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}
