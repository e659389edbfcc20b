package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sevigo/resizer/internal/resize"
)

var filtersCmd = &cobra.Command{
	Use:   "filters",
	Short: "List the resampling filters accepted by RESIZE_FILTER",
	Run: func(_ *cobra.Command, _ []string) {
		titleColor.Println("Supported resampling filters:")
		for _, name := range resize.FilterNames() {
			if name == "lanczos" {
				fmt.Printf("  - %s %s\n", boldColor.Sprint(name), dimColor.Sprint("(default)"))
				continue
			}
			fmt.Printf("  - %s\n", name)
		}
	},
}

func init() { //nolint:gochecknoinits // Cobra command registration
	rootCmd.AddCommand(filtersCmd)
}
