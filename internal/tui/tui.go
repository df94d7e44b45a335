package tui

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/1broseidon/evepreview/internal/ipc"
)

// DefaultRefreshInterval is how often the view polls the daemon.
const DefaultRefreshInterval = time.Second

// Daemon is what the watch view reads and drives. *ipc.Client satisfies it.
type Daemon interface {
	CycleNext(group string) (ipc.FocusData, error)
	CyclePrev(group string) (ipc.FocusData, error)
	JumpTo(character string) (ipc.FocusData, error)
	SwitchProfile(name string) error
	SetThumbnailsEnabled(on bool) error
	Windows() ([]ipc.WindowInfo, error)
	CycleState() (ipc.CycleStateData, error)
	Layout() (ipc.LayoutData, error)
	GetStatus() (*ipc.StatusData, error)
	Reload() error
}

var _ Daemon = (*ipc.Client)(nil)

// Run shows the live view until the user quits.
func Run(daemon Daemon, interval time.Duration) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("watch requires an interactive terminal (stdin/stdout must be TTYs)")
	}
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	p := tea.NewProgram(newModel(daemon, interval), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
