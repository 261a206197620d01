package main

import (
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var noColor bool

var rootCmd = &cobra.Command{
	Use:   "pursuit",
	Short: "Track a job search and a startup dealflow pipeline",
	Long: `pursuit tracks job applications and startup outreach, scrapes new
postings and companies, and keeps streaks and weekly goals.

Run "pursuit start" to launch the local server; every other command talks to it.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", os.Getenv("NO_COLOR") != "", "disable colored output")

	rootCmd.AddCommand(startCmd, stopCmd, statusCmd)
	rootCmd.AddCommand(dashboardCmd, appsCmd, dealflowCmd, jobsCmd, startupsCmd, scrapeCmd, goalsCmd, configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}
