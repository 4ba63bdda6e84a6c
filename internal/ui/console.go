package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/chatdock/chatdock/internal/supervisor"
)

// ConsoleModel is the bubbletea model for the chatdock console: one
// supervised chat application, its log stream, and its lifecycle keys.
type ConsoleModel struct {
	sup    *supervisor.Supervisor
	name   string
	noOpen bool

	// Logs
	logs     []string
	maxLines int

	// Resources
	resources ResourceStats

	// UI state
	width    int
	height   int
	viewport viewport.Model
	spin     spinner.Model
	status   string
	quitting bool

	// Channel for updates from outside the event loop
	updateChan chan tea.Msg

	// Key bindings
	keys keyMap

	// Styles
	styles *Styles
}

// keyMap defines the key bindings for the console
type keyMap struct {
	Quit     key.Binding
	OpenURL  key.Binding
	Relaunch key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "stop & quit"),
		),
		OpenURL: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "open in browser"),
		),
		Relaunch: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "relaunch"),
		),
	}
}

// Styles holds all lipgloss styles for the console
type Styles struct {
	App    lipgloss.Style
	Header lipgloss.Style
	Footer lipgloss.Style

	PhaseIdle     lipgloss.Style
	PhaseStarting lipgloss.Style
	PhaseRunning  lipgloss.Style
	PhaseStopping lipgloss.Style

	URL     lipgloss.Style
	Monitor lipgloss.Style

	LogViewport lipgloss.Style
	LogLine     lipgloss.Style

	HelpKey  lipgloss.Style
	HelpDesc lipgloss.Style
}

// DefaultStyles returns the default console styles
func DefaultStyles() *Styles {
	subtle := lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight := lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	success := lipgloss.AdaptiveColor{Light: "#00AA00", Dark: "#00FF00"}
	warning := lipgloss.AdaptiveColor{Light: "#CC6600", Dark: "#FFAA00"}
	info := lipgloss.AdaptiveColor{Light: "#0066CC", Dark: "#00AAFF"}

	return &Styles{
		App: lipgloss.NewStyle().
			Padding(1, 2),

		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(highlight).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(subtle).
			MarginBottom(1).
			Padding(0, 1),

		Footer: lipgloss.NewStyle().
			Foreground(subtle).
			BorderStyle(lipgloss.NormalBorder()).
			BorderTop(true).
			BorderForeground(subtle).
			MarginTop(1).
			Padding(0, 1),

		PhaseIdle: lipgloss.NewStyle().
			Foreground(subtle),

		PhaseStarting: lipgloss.NewStyle().
			Foreground(warning).
			Bold(true),

		PhaseRunning: lipgloss.NewStyle().
			Foreground(success).
			Bold(true),

		PhaseStopping: lipgloss.NewStyle().
			Foreground(warning),

		URL: lipgloss.NewStyle().
			Foreground(info).
			Underline(true),

		Monitor: lipgloss.NewStyle().
			Foreground(subtle),

		LogViewport: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(subtle).
			Padding(0, 1),

		LogLine: lipgloss.NewStyle().
			Foreground(subtle),

		HelpKey: lipgloss.NewStyle().
			Foreground(highlight).
			Bold(true),

		HelpDesc: lipgloss.NewStyle().
			Foreground(subtle),
	}
}

// Messages for bubbletea
type tickMsg time.Time
type logMsg string
type launchedMsg struct{ err error }
type openedMsg struct {
	inline bool
	err    error
}
type exitedMsg struct{}

// NewConsole creates a console model for the given supervisor.
func NewConsole(sup *supervisor.Supervisor, name string, noOpen bool) *ConsoleModel {
	vp := viewport.New(80, 20)
	vp.SetContent("")
	vp.MouseWheelEnabled = true

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := &ConsoleModel{
		sup:        sup,
		name:       name,
		noOpen:     noOpen,
		maxLines:   1000,
		viewport:   vp,
		spin:       sp,
		keys:       defaultKeyMap(),
		styles:     DefaultStyles(),
		updateChan: make(chan tea.Msg, 100),
	}

	// The subprocess exiting on its own ends the generation silently;
	// the console just reflects it.
	sup.OnExit = func() {
		select {
		case m.updateChan <- exitedMsg{}:
		default:
		}
	}

	return m
}

// AttachWriter routes a line writer's output into the console's log
// view. Lines written before the attach are flushed in order.
func (m *ConsoleModel) AttachWriter(w *LineWriter) {
	w.Attach(func(line string) {
		select {
		case m.updateChan <- logMsg(line):
		default: // drop rather than block the subprocess pipe
		}
	})
}

// Init implements tea.Model
func (m *ConsoleModel) Init() tea.Cmd {
	return tea.Batch(
		m.spin.Tick,
		tickCmd(),
		m.listenForUpdates(),
		m.launchCmd(),
	)
}

// tickCmd returns a command that ticks every second
func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// listenForUpdates listens for external updates
func (m *ConsoleModel) listenForUpdates() tea.Cmd {
	return func() tea.Msg {
		return <-m.updateChan
	}
}

// launchCmd starts the subprocess and reports how the launch resolved.
func (m *ConsoleModel) launchCmd() tea.Cmd {
	return func() tea.Msg {
		return launchedMsg{err: m.sup.Launch()}
	}
}

// openUICmd opens the chat UI in the viewer or the default browser.
func (m *ConsoleModel) openUICmd() tea.Cmd {
	return func() tea.Msg {
		inline, err := m.sup.OpenUI()
		return openedMsg{inline: inline, err: err}
	}
}

// Update implements tea.Model
func (m *ConsoleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	// Handle quit FIRST - the shutdown must run before the program exits
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if key.Matches(keyMsg, m.keys.Quit) {
			m.quitting = true
			m.sup.Shutdown()
			return m, tea.Quit
		}
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.OpenURL):
			cmds = append(cmds, m.openUICmd())
		case key.Matches(msg, m.keys.Relaunch):
			if !m.sup.IsRunning() {
				m.status = "relaunching..."
				cmds = append(cmds, m.launchCmd())
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeViewport()

	case logMsg:
		m.appendLog(string(msg))
		cmds = append(cmds, m.listenForUpdates())

	case exitedMsg:
		m.status = "application exited"
		cmds = append(cmds, m.listenForUpdates())

	case launchedMsg:
		res := supervisor.AsResult(msg.err, "ready at "+m.sup.URL())
		m.status = res.Message
		if res.OK && !m.noOpen {
			cmds = append(cmds, m.openUICmd())
		}

	case openedMsg:
		switch {
		case msg.err != nil:
			m.status = "could not open browser: " + msg.err.Error()
		case msg.inline:
			m.status = "opened in viewer"
		default:
			m.status = "opened in default browser"
		}

	case tickMsg:
		m.resources = GetResourceStats(m.sup.Pid())
		cmds = append(cmds, tickCmd())

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		cmds = append(cmds, cmd)
	}

	// Let the viewport handle scrolling keys and mouse wheel
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// appendLog adds a log line, keeping at most maxLines
func (m *ConsoleModel) appendLog(line string) {
	if len(m.logs) >= m.maxLines {
		m.logs = m.logs[1:]
	}
	m.logs = append(m.logs, line)

	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(strings.Join(m.logs, "\n"))
	if atBottom {
		m.viewport.GotoBottom()
	}
}

// resizeViewport fits the log viewport under the header and footer
func (m *ConsoleModel) resizeViewport() {
	headerHeight := 4
	footerHeight := 3
	h := m.height - headerHeight - footerHeight
	if h < 3 {
		h = 3
	}
	w := m.width - 4
	if w < 20 {
		w = 20
	}
	m.viewport.Width = w
	m.viewport.Height = h
}

// phaseView renders the current phase with its style
func (m *ConsoleModel) phaseView() string {
	phase := m.sup.Phase()
	switch phase {
	case supervisor.PhaseStarting:
		return m.styles.PhaseStarting.Render(m.spin.View() + string(phase))
	case supervisor.PhaseRunning:
		return m.styles.PhaseRunning.Render("● " + string(phase))
	case supervisor.PhaseStopping:
		return m.styles.PhaseStopping.Render(string(phase))
	default:
		return m.styles.PhaseIdle.Render(string(phase))
	}
}

// View implements tea.Model
func (m *ConsoleModel) View() string {
	if m.quitting {
		return "Stopped.\n"
	}

	var b strings.Builder

	// Header: name, phase, URL
	header := fmt.Sprintf("%s  %s  %s", m.name, m.phaseView(), m.styles.URL.Render(m.sup.URL()))
	b.WriteString(m.styles.Header.Render(header))
	b.WriteString("\n")

	// Monitor line: subprocess resources
	if m.resources.Alive {
		monitor := fmt.Sprintf("pid %d  cpu %.1f%%  mem %s  host mem %.0f%%",
			m.sup.Pid(), m.resources.CPUPercent, FormatBytes(m.resources.MemoryRSS), m.resources.HostMemPct)
		b.WriteString(m.styles.Monitor.Render(monitor))
	} else if m.status != "" {
		b.WriteString(m.styles.Monitor.Render(m.status))
	}
	b.WriteString("\n")

	// Logs
	b.WriteString(m.styles.LogViewport.Render(m.viewport.View()))
	b.WriteString("\n")

	// Footer: status + keys
	help := strings.Join([]string{
		m.styles.HelpKey.Render("q") + m.styles.HelpDesc.Render(" stop & quit"),
		m.styles.HelpKey.Render("o") + m.styles.HelpDesc.Render(" open browser"),
		m.styles.HelpKey.Render("r") + m.styles.HelpDesc.Render(" relaunch"),
	}, "  ")
	footer := m.status
	if footer != "" {
		footer += "  |  "
	}
	b.WriteString(m.styles.Footer.Render(footer + help))

	return m.styles.App.Render(b.String())
}
