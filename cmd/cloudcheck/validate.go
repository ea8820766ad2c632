package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/sunbeam-ops/cloudcheck/internal/core/schedule"
)

// validateCmd checks a cron schedule without starting the service.
var validateCmd = &cobra.Command{
	Use:   "validate SCHEDULE",
	Short: "Validate a cron schedule expression",
	Long: `Validate a 5-column cron schedule the way the service does at startup.
An empty schedule is accepted and disables periodic runs. Exits non-zero
when the schedule is rejected.`,
	Args: cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		result := schedule.Validate(args[0])
		if !result.Valid {
			fmt.Fprintln(os.Stderr, result.Err)
			os.Exit(1)
		}
		if strings.TrimSpace(args[0]) == "" {
			fmt.Println("schedule is empty, periodic runs disabled")
			return
		}
		fmt.Printf("schedule is valid, runs every %ds to %ds\n",
			result.MinIntervalSeconds, result.MaxIntervalSeconds)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
