package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sevigo/resizer/internal/client"
)

func tickCmd(interval time.Duration, gen int) tea.Cmd {
	return tea.Tick(interval, func(time.Time) tea.Msg { return tickMsg{gen: gen} })
}

func fetchStatsCmd(c *client.Client, gen int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		stats, err := c.Stats(ctx)
		if err != nil {
			return statsErrorMsg{gen: gen, err: err}
		}
		return statsMsg{gen: gen, stats: stats}
	}
}

func resizeCmd(c *client.Client, input string, width, height *uint16) tea.Cmd {
	return func() tea.Msg {
		payload, err := os.ReadFile(input)
		if err != nil {
			return resizeDoneMsg{input: input, err: fmt.Errorf("failed to read %s: %w", input, err)}
		}
		data, err := c.Resize(context.Background(), payload, width, height)
		if err != nil {
			return resizeDoneMsg{input: input, err: err}
		}
		ext := filepath.Ext(input)
		output := strings.TrimSuffix(input, ext) + "_resized" + ext
		if err := os.WriteFile(output, data, 0o600); err != nil {
			return resizeDoneMsg{input: input, err: fmt.Errorf("failed to write %s: %w", output, err)}
		}
		return resizeDoneMsg{input: input, output: output, size: len(data)}
	}
}

// parseResizeArgs reads "<file> [width] [height]". Omitted dimensions are left
// to the server defaults.
func parseResizeArgs(args []string) (string, *uint16, *uint16, error) {
	if len(args) < 1 || len(args) > 3 {
		return "", nil, nil, fmt.Errorf("USAGE: /resize [file] [width] [height]")
	}
	dims := make([]*uint16, 2)
	for i, raw := range args[1:] {
		v, err := strconv.ParseUint(raw, 10, 16)
		if err != nil {
			return "", nil, nil, fmt.Errorf("invalid dimension %q", raw)
		}
		d := uint16(v)
		dims[i] = &d
	}
	return args[0], dims[0], dims[1], nil
}
