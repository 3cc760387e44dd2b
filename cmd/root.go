// Package cmd defines and implements the CLI commands for the cmpscrape
// executable.
package cmd

import (
	"github.com/spf13/cobra"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cmpscrape",
		Short: "Scrapes CMP doctor registry data into Postgres.",
		Long: `cmpscrape looks up doctor records on the CMP "Conoce a tu médico"
portal for a list of CMP numbers, extracting the registration status and the
specialties of each one and persisting them. Failed identifiers are appended
to a ledger file for a later pass.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional)")

	cmd.AddCommand(newScrapeCmd())

	return cmd
}

// Execute is the main entry point. The returned error signals a non-zero
// process exit to main.
func Execute() error {
	return newRootCmd().Execute()
}
