package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/sunbeam-ops/cloudcheck/internal/checkconf"
)

// diffCmd compares two INI check configuration files.
var diffCmd = &cobra.Command{
	Use:   "diff OLD NEW",
	Short: "Diff two INI check configuration files",
	Long: `Compare two check configuration files (tempest.conf style INI) and print
what was added, removed or changed, grouped by section.`,
	Args: cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		oldData, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		newData, err := os.ReadFile(args[1])
		if err != nil {
			return err
		}

		diff, err := checkconf.Compare(string(oldData), string(newData))
		if err != nil {
			return err
		}

		fmt.Print(diff.String())
		if !diff.Empty() {
			os.Exit(2)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(diffCmd)
}
