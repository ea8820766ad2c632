package main

import (
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cloudcheck",
	Short: "Periodic cloud validation check service",
	Long: `cloudcheck runs cloud validation checks (tempest and friends) on a cron
schedule, re-runs them when their configuration changes, and exposes an HTTP
API for schedule validation, manual triggers and run history.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.toml)")
}
