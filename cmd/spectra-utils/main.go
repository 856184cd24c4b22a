package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "spectra-utils",
	Short: "Spectra market explorer utilities",
	Long:  "Various utilities for the Spectra market explorer including database migration and API token generation",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
