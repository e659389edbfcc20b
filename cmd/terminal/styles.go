package main

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/sevigo/resizer/internal/core"
)

// Queue fill fractions at which the gauge switches colour.
const (
	fillWarn     = 0.5
	fillCritical = 1.0
)

// ThemeName selects one of the built-in palettes.
type ThemeName string

const (
	ThemeCyan    ThemeName = "cyan"
	ThemeMatrix  ThemeName = "matrix"
	ThemeAmber   ThemeName = "amber"
	ThemeDracula ThemeName = "dracula"
)

// palette names colours by what they signal on the monitor, not by hue.
type palette struct {
	frame   lipgloss.Color // borders, banner
	label   lipgloss.Color // stat labels, command echoes
	idle    lipgloss.Color // worker waiting for jobs, queue below fillWarn
	busy    lipgloss.Color // worker processing, queue at or above fillWarn
	stopped lipgloss.Color // worker stopped, queue full, errors
	muted   lipgloss.Color // secondary text
}

var palettes = map[ThemeName]palette{
	ThemeCyan:    {frame: "51", label: "33", idle: "46", busy: "226", stopped: "196", muted: "240"},
	ThemeMatrix:  {frame: "82", label: "46", idle: "82", busy: "190", stopped: "196", muted: "238"},
	ThemeAmber:   {frame: "220", label: "214", idle: "220", busy: "208", stopped: "160", muted: "240"},
	ThemeDracula: {frame: "141", label: "117", idle: "84", busy: "212", stopped: "203", muted: "60"},
}

type styles struct {
	app      lipgloss.Style
	header   lipgloss.Style
	viewport lipgloss.Style
	footer   lipgloss.Style
	banner   lipgloss.Style
	label    lipgloss.Style
	prompt   lipgloss.Style
	command  lipgloss.Style
	muted    lipgloss.Style
	ok       lipgloss.Style
	error    lipgloss.Style

	idle    lipgloss.Style
	busy    lipgloss.Style
	stopped lipgloss.Style
}

// ListThemes returns the theme names accepted by --theme.
func ListThemes() []ThemeName {
	return []ThemeName{ThemeCyan, ThemeMatrix, ThemeAmber, ThemeDracula}
}

// GetTheme returns the styles for theme, falling back to cyan.
func GetTheme(theme ThemeName) styles {
	p, ok := palettes[theme]
	if !ok {
		p = palettes[ThemeCyan]
	}
	return styles{
		app: lipgloss.NewStyle().Margin(0, 1),
		header: lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(p.frame).
			Padding(0, 2),
		viewport: lipgloss.NewStyle().PaddingLeft(1),
		footer: lipgloss.NewStyle().
			MarginTop(1).
			BorderTop(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(p.frame).
			PaddingTop(1),
		banner:  lipgloss.NewStyle().Foreground(p.frame).Bold(true),
		label:   lipgloss.NewStyle().Foreground(p.label).Bold(true),
		prompt:  lipgloss.NewStyle().Foreground(p.busy).Bold(true),
		command: lipgloss.NewStyle().Foreground(p.label).Italic(true),
		muted:   lipgloss.NewStyle().Foreground(p.muted),
		ok:      lipgloss.NewStyle().Foreground(p.idle).Bold(true),
		error:   lipgloss.NewStyle().Foreground(p.stopped).Bold(true),
		idle:    lipgloss.NewStyle().Foreground(p.idle),
		busy:    lipgloss.NewStyle().Foreground(p.busy).Bold(true),
		stopped: lipgloss.NewStyle().Foreground(p.stopped).Bold(true),
	}
}

// workerState renders the worker's state word in its signal colour.
func (s styles) workerState(stats core.Stats) string {
	switch {
	case !stats.Running:
		return s.stopped.Render("stopped")
	case stats.Busy:
		return s.busy.Render("busy")
	default:
		return s.idle.Render("idle")
	}
}

// queueFillStyle picks the colour of the queue counter for a fill fraction.
func (s styles) queueFillStyle(fill float64) lipgloss.Style {
	switch {
	case fill >= fillCritical:
		return s.stopped
	case fill >= fillWarn:
		return s.busy
	default:
		return s.idle
	}
}
