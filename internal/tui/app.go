package tui

import (
	"fmt"
	"slices"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/evepreview/internal/ipc"
)

// snapshot is one poll of the daemon.
type snapshot struct {
	status  ipc.StatusData
	state   ipc.CycleStateData
	layout  ipc.LayoutData
	windows []ipc.WindowInfo
}

// snapshotMsg carries a finished poll.
type snapshotMsg struct {
	snap snapshot
	err  error
}

// tickMsg schedules the next poll.
type tickMsg time.Time

// statusMsg is sent after an IPC action completes.
type statusMsg struct {
	text string
}

// clearStatusMsg clears the status message after a delay.
type clearStatusMsg struct{}

const statusTimeout = 3 * time.Second

// model is the root bubbletea model for the watch view.
type model struct {
	daemon   Daemon
	interval time.Duration

	list list.Model
	snap snapshot

	connected  bool
	lastErr    string
	statusText string

	width  int
	height int
}

func newModel(daemon Daemon, interval time.Duration) model {
	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = false
	delegate.SetSpacing(0)

	l := list.New(nil, delegate, 0, 0)
	l.Title = "Characters"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()

	return model{
		daemon:   daemon,
		interval: interval,
		list:     l,
	}
}

func fetch(d Daemon) tea.Cmd {
	return func() tea.Msg {
		var snap snapshot
		status, err := d.GetStatus()
		if err != nil {
			return snapshotMsg{err: err}
		}
		snap.status = *status
		if snap.state, err = d.CycleState(); err != nil {
			return snapshotMsg{err: err}
		}
		if snap.layout, err = d.Layout(); err != nil {
			return snapshotMsg{err: err}
		}
		if snap.windows, err = d.Windows(); err != nil {
			return snapshotMsg{err: err}
		}
		return snapshotMsg{snap: snap}
	}
}

func (m model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func clearStatusLater() tea.Cmd {
	return tea.Tick(statusTimeout, func(time.Time) tea.Msg {
		return clearStatusMsg{}
	})
}

// act runs an IPC action off the update loop and reports its outcome.
func act(fn func() (string, error)) tea.Cmd {
	return func() tea.Msg {
		text, err := fn()
		if err != nil {
			return statusMsg{text: fmt.Sprintf("error: %v", err)}
		}
		return statusMsg{text: text}
	}
}

func describeFocus(f ipc.FocusData) string {
	if f.Focused {
		return "focused: " + f.Character
	}
	if f.Reason != "" {
		return f.Reason
	}
	return "focus unchanged"
}

// Init implements tea.Model.
func (m model) Init() tea.Cmd {
	return tea.Batch(fetch(m.daemon), m.tick())
}

// Update implements tea.Model.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateListSize()
		return m, nil

	case tickMsg:
		return m, tea.Batch(fetch(m.daemon), m.tick())

	case snapshotMsg:
		if msg.err != nil {
			m.connected = false
			m.lastErr = msg.err.Error()
			return m, nil
		}
		m.connected = true
		m.lastErr = ""
		m.snap = msg.snap
		m.rebuildItems()
		return m, nil

	case statusMsg:
		m.statusText = msg.text
		return m, tea.Batch(fetch(m.daemon), clearStatusLater())

	case clearStatusMsg:
		m.statusText = ""
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "enter":
			return m, m.jumpSelected()
		case "n":
			return m, act(func() (string, error) {
				f, err := m.daemon.CycleNext("")
				return describeFocus(f), err
			})
		case "p":
			return m, act(func() (string, error) {
				f, err := m.daemon.CyclePrev("")
				return describeFocus(f), err
			})
		case "t":
			on := !m.snap.status.ThumbnailsEnabled
			return m, act(func() (string, error) {
				return fmt.Sprintf("thumbnails: %s", onOff(on)), m.daemon.SetThumbnailsEnabled(on)
			})
		case "P":
			name := nextProfile(m.snap.status)
			if name == "" {
				return m, nil
			}
			return m, act(func() (string, error) {
				return "profile: " + name, m.daemon.SwitchProfile(name)
			})
		case "r":
			return m, act(func() (string, error) {
				return "config reloaded", m.daemon.Reload()
			})
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m model) jumpSelected() tea.Cmd {
	item, ok := m.list.SelectedItem().(characterItem)
	if !ok {
		return nil
	}
	return act(func() (string, error) {
		f, err := m.daemon.JumpTo(item.character)
		return describeFocus(f), err
	})
}

func (m *model) rebuildItems() {
	selected := ""
	if item, ok := m.list.SelectedItem().(characterItem); ok {
		selected = item.character
	}
	items := buildCharacterItems(m.snap.windows, m.snap.state)
	m.list.SetItems(items)
	for i, it := range items {
		if it.(characterItem).character == selected {
			m.list.Select(i)
			break
		}
	}
}

func (m *model) updateListSize() {
	// status bar, action line and help bar
	h := m.height - 3
	if h < 1 {
		h = 1
	}
	m.list.SetSize(m.sidebarWidth(), h)
}

func (m model) sidebarWidth() int {
	sw := m.width * 40 / 100
	if sw < 24 {
		sw = 24
	}
	if sw > 44 {
		sw = 44
	}
	return sw
}

// nextProfile picks the profile after the selected one, wrapping around.
func nextProfile(status ipc.StatusData) string {
	if len(status.Profiles) < 2 {
		return ""
	}
	i := slices.Index(status.Profiles, status.Profile)
	return status.Profiles[(i+1)%len(status.Profiles)]
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

// View implements tea.Model.
func (m model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	statusBar := renderStatusBar(m.connected, m.snap, m.lastErr, m.width)
	helpBar := renderHelpBar(m.width)
	contentHeight := m.height - lipgloss.Height(statusBar) - lipgloss.Height(helpBar) - 1
	if contentHeight < 1 {
		contentHeight = 1
	}

	sidebar := lipgloss.NewStyle().
		Width(m.sidebarWidth()).
		Height(contentHeight).
		Render(m.list.View())

	panelWidth := m.width - m.sidebarWidth() - 3
	if panelWidth < 10 {
		panelWidth = 10
	}
	panel := renderLayoutPanel(m.snap, panelWidth, contentHeight)

	sep := lipgloss.NewStyle().
		Foreground(lipgloss.Color("238")).
		Render(separator(contentHeight))

	columns := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, " "+sep, panel)
	return lipgloss.JoinVertical(lipgloss.Left,
		statusBar,
		columns,
		renderActionStatus(m.statusText, m.width),
		helpBar,
	)
}
