package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	resizeWidth  uint16
	resizeHeight uint16
	resizeOutput string
)

var resizeCmd = &cobra.Command{
	Use:   "resize [image]",
	Short: "Resize an image with the resize service",
	Long: `Resize an image with the resize service.

The image is sent as-is; the service detects its format and answers in the
same format. Dimensions that are not given are chosen by the server.

Examples:
  resizer-cli resize photo.jpg
  resizer-cli resize --width 50 --height 60 -o thumb.png logo.png`,
	Args: cobra.ExactArgs(1),
	RunE: runResize,
}

func init() { //nolint:gochecknoinits // Cobra command registration
	resizeCmd.Flags().Uint16VarP(&resizeWidth, "width", "W", 0, "Target width (server default when unset)")
	resizeCmd.Flags().Uint16VarP(&resizeHeight, "height", "H", 0, "Target height (server default when unset)")
	resizeCmd.Flags().StringVarP(&resizeOutput, "output", "o", "", "Output file (default: <name>_resized<ext>)")
	rootCmd.AddCommand(resizeCmd)
}

func runResize(cmd *cobra.Command, args []string) error {
	input := args[0]
	payload, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", input, err)
	}

	var width, height *uint16
	if cmd.Flags().Changed("width") {
		width = &resizeWidth
	}
	if cmd.Flags().Changed("height") {
		height = &resizeHeight
	}

	output := resizeOutput
	if output == "" {
		output = defaultOutputPath(input)
	}

	titleColor.Printf("Resizing %s\n", input)
	dimColor.Printf("  server: %s\n", serverAddress())

	start := time.Now()
	data, err := newClient().Resize(context.Background(), payload, width, height)
	if err != nil {
		errorColor.Printf("  failed: %v\n", err)
		return err
	}

	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}

	successColor.Printf("  wrote %s ", output)
	dimColor.Printf("(%s -> %s in %s)\n", humanBytes(len(payload)), humanBytes(len(data)), time.Since(start).Round(time.Millisecond))
	return nil
}

func defaultOutputPath(input string) string {
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + "_resized" + ext
}

func humanBytes(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
