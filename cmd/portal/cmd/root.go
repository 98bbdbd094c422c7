// Package cmd provides the portal CLI.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "portal",
	Short: "Portal session gateway",
	Long: `Portal sits in front of the portal application. It exchanges credentials
with the identity service, keeps the session in an encrypted cookie (or Redis)
and authorizes every request by path and role before it reaches the app.

Configuration is read from the environment, optionally seeded from a .env file
in the working directory.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
