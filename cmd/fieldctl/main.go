// Command fieldctl is the command line client for the field service CRM API
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	forceFresh bool
)

var rootCmd = &cobra.Command{
	Use:           "fieldctl",
	Short:         "Work with leads, work orders and warranty claims from the terminal",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ./fieldctl.yaml or the user config dir)")
	rootCmd.PersistentFlags().BoolVar(&forceFresh, "fresh", false, "Skip cached lists and fetch from the server")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: "+describeError(err)))
		os.Exit(1)
	}
}
