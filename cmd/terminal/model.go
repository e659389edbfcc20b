package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sevigo/resizer/internal/client"
	"github.com/sevigo/resizer/internal/core"
)

const banner = `
╔══════════════════════════════════════════╗
║          RESIZE MICROSERVICE             ║
║          worker lane monitor             ║
╚══════════════════════════════════════════╝
`

const maxHistory = 200

type model struct {
	styles   styles
	client   *client.Client
	server   string
	interval time.Duration

	// UI Components
	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model
	progress progress.Model

	// Monitor state
	stats     core.Stats
	connected bool
	lastErr   error
	lastPoll  time.Time
	paused    bool
	pollGen   int // bumped on /resume; ticks and polls of older generations are dropped
	resizing  int
	history   []string
}

func initialModel(theme ThemeName, c *client.Client, server string, interval time.Duration) *model {
	styles := GetTheme(theme)
	ta := textarea.New()
	ta.Placeholder = "Type /help for commands..."
	ta.Focus()
	ta.Prompt = styles.prompt.Render("► ")
	ta.CharLimit = 500
	ta.SetWidth(50)
	ta.SetHeight(1)
	ta.ShowLineNumbers = false

	sp := spinner.New()
	sp.Spinner = spinner.Points
	sp.Style = styles.ok
	pr := progress.New(progress.WithDefaultGradient(), progress.WithWidth(40))

	return &model{
		styles:   styles,
		client:   c,
		server:   server,
		interval: interval,
		textarea: ta,
		spinner:  sp,
		progress: pr,
		history:  []string{styles.banner.Render(banner), "", styles.command.Render("→ connecting to " + server)},
	}
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(fetchStatsCmd(m.client, m.pollGen), m.spinner.Tick, textarea.Blink)
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		spCmd tea.Cmd
	)

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)
	m.spinner, spCmd = m.spinner.Update(msg)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			input := strings.TrimSpace(m.textarea.Value())
			if input == "" {
				return m, nil
			}
			m.textarea.Reset()
			return m, m.processCommand(input)
		}

	case tickMsg:
		if m.paused || msg.gen != m.pollGen {
			return m, nil
		}
		return m, fetchStatsCmd(m.client, m.pollGen)

	case statsMsg:
		if !m.connected {
			m.appendHistory(m.styles.ok.Render("✓ CONNECTED to " + m.server))
		}
		m.connected = true
		m.lastErr = nil
		m.lastPoll = time.Now()
		m.stats = msg.stats
		return m, m.nextPoll(msg.gen)

	case statsErrorMsg:
		if m.connected || m.lastErr == nil {
			m.appendHistory(m.styles.error.Render("⚠ stats unavailable: " + msg.err.Error()))
		}
		m.connected = false
		m.lastErr = msg.err
		return m, m.nextPoll(msg.gen)

	case resizeDoneMsg:
		m.resizing--
		if msg.err != nil {
			m.appendHistory(m.styles.error.Render(fmt.Sprintf("✗ %s: %v", msg.input, msg.err)))
		} else {
			m.appendHistory(m.styles.ok.Render(fmt.Sprintf("✓ %s → %s (%d bytes)", msg.input, msg.output, msg.size)))
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.styles.header = m.styles.header.Width(msg.Width - 4)
		m.viewport.Width = msg.Width - 4
		m.viewport.Height = max(msg.Height-18, 3)
		m.textarea.SetWidth(msg.Width - 10)
		m.progress.Width = min(max(msg.Width-30, 10), 60)
		m.refresh()
	}

	return m, tea.Batch(tiCmd, vpCmd, spCmd)
}

func (m *model) View() string {
	var activity string
	if m.resizing > 0 {
		activity = " " + m.spinner.View() + " " + m.styles.ok.Render(fmt.Sprintf("RESIZING %d...", m.resizing))
	}

	status := []string{"SERVER: " + m.server}
	switch {
	case m.paused:
		status = append(status, m.styles.prompt.Render("❚❚ PAUSED"))
	case m.connected:
		status = append(status, m.styles.ok.Render("● ONLINE"))
	default:
		status = append(status, m.styles.error.Render("○ OFFLINE"))
	}
	if !m.lastPoll.IsZero() {
		status = append(status, "LAST POLL: "+m.lastPoll.Format(time.TimeOnly))
	}

	return m.styles.app.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.styles.header.Render(m.renderStats()),
			m.styles.viewport.Render(m.viewport.View()),
			m.styles.footer.Render(
				lipgloss.JoinHorizontal(lipgloss.Left,
					m.textarea.View(),
					activity,
				),
			),
			m.styles.muted.Render(strings.Join(status, " │ ")),
		),
	)
}

// renderStats draws the queue gauge and worker counters.
func (m *model) renderStats() string {
	s := m.stats
	fill := queueFill(s)
	queue := fmt.Sprintf("%s %s", m.progress.ViewAs(fill),
		m.styles.queueFillStyle(fill).Render(fmt.Sprintf("%d/%d", s.QueueLength, s.QueueCapacity)))

	lines := []string{
		fmt.Sprintf("%s %s", m.styles.label.Render("worker  "), m.styles.workerState(s)),
		fmt.Sprintf("%s %s", m.styles.label.Render("queue   "), queue),
		fmt.Sprintf("%s enqueued %d · waited %d · completed %d · failed %d · panics %d · abandoned %d",
			m.styles.label.Render("jobs    "),
			s.Enqueued, s.BackpressureWaits, s.Completed, s.Failed, s.Panics, s.Abandoned),
		fmt.Sprintf("%s last job %dms · waited %dms in queue",
			m.styles.label.Render("latency "), s.LastDurationMillis, s.LastWaitMillis),
	}
	return strings.Join(lines, "\n")
}

func queueFill(s core.Stats) float64 {
	if s.QueueCapacity <= 0 {
		return 0
	}
	return min(float64(s.QueueLength)/float64(s.QueueCapacity), 1)
}

// nextPoll schedules the next tick unless gen belongs to a loop replaced by /resume.
func (m *model) nextPoll(gen int) tea.Cmd {
	if gen != m.pollGen || m.paused {
		return nil
	}
	return tickCmd(m.interval, m.pollGen)
}

func (m *model) appendHistory(lines ...string) {
	m.history = append(m.history, lines...)
	if len(m.history) > maxHistory {
		m.history = m.history[len(m.history)-maxHistory:]
	}
	m.refresh()
}

func (m *model) refresh() {
	m.viewport.SetContent(strings.Join(m.history, "\n"))
	m.viewport.GotoBottom()
}

func (m *model) processCommand(input string) tea.Cmd {
	m.appendHistory(m.styles.prompt.Render("► ") + input)

	parts := strings.Fields(input)
	command := parts[0]
	args := parts[1:]

	switch command {
	case "/resize", "/r":
		file, width, height, err := parseResizeArgs(args)
		if err != nil {
			m.appendHistory(m.styles.error.Render(err.Error()))
			return nil
		}
		m.resizing++
		m.appendHistory(m.styles.command.Render("→ sending " + file))
		return tea.Batch(m.spinner.Tick, resizeCmd(m.client, file, width, height))

	case "/pause":
		m.paused = true
		m.appendHistory(m.styles.muted.Render("polling paused"))
		return nil

	case "/resume":
		if !m.paused {
			return nil
		}
		m.paused = false
		m.pollGen++
		m.appendHistory(m.styles.muted.Render("polling resumed"))
		return fetchStatsCmd(m.client, m.pollGen)

	case "/clear":
		m.history = nil
		m.refresh()
		return nil

	case "/help", "/h":
		helpText := m.styles.ok.Render("AVAILABLE COMMANDS:") + `

  /resize [file] [w] [h]   Resize a local file through the service.
  /pause, /resume          Stop or restart stats polling.
  /clear                   Clear the activity log.
  /help                    Show this help message.
  /exit, /quit             Exit the monitor.`
		m.appendHistory("", helpText)
		return nil

	case "/exit", "/quit":
		return tea.Quit

	default:
		m.appendHistory(m.styles.error.Render("UNKNOWN COMMAND: "+command), m.styles.muted.Render("Type /help for assistance."))
		return nil
	}
}
