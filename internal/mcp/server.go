package mcp

import (
	"context"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/evepreview/internal/ipc"
)

const (
	ServerName    = "evepreview"
	ServerVersion = "0.1.0"
)

// Daemon is the control surface the tools drive. *ipc.Client satisfies it.
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

// Server is the MCP server exposing the running daemon as tools.
type Server struct {
	mcpServer *mcpsdk.Server
	daemon    Daemon
	logger    *slog.Logger
}

// NewServer creates an MCP server that forwards every tool call to daemon.
func NewServer(daemon Daemon, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		daemon: daemon,
		logger: logger,
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)

	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_windows",
		Description: "List the EVE client windows the preview daemon manages, with character name, status (live/stale/ghost), logged-off, minimized and focus flags.",
	}, s.handleListWindows)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_cycle_state",
		Description: "Report the focus cycle: selected profile, active cycle group, current character and index, live members in cycle order and skipped characters.",
	}, s.handleGetCycleState)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_layout",
		Description: "Report every thumbnail's rectangle, stacking order (z 0 is bottom-most), visibility and whether it shows the focused client.",
	}, s.handleGetLayout)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_status",
		Description: "Summarize the daemon: selected profile, available profiles, window count, hotkey backend and binding count.",
	}, s.handleGetStatus)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "cycle_next",
		Description: "Focus the next character in a cycle group, exactly like pressing the group's forward hotkey. An empty group with no live members reports a reason instead of failing.",
	}, s.handleCycleNext)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "cycle_prev",
		Description: "Focus the previous character in a cycle group, exactly like pressing the group's backward hotkey.",
	}, s.handleCyclePrev)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "jump_to",
		Description: "Focus one character's client window. Characters in the active cycle group also move the cycle position.",
	}, s.handleJumpTo)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "switch_profile",
		Description: "Select another profile: thumbnail style, positions, cycle groups and hotkeys all change, and the first live member of its default group is focused.",
	}, s.handleSwitchProfile)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "set_thumbnails_enabled",
		Description: "Show or hide every thumbnail. Hidden thumbnails also pause capture.",
	}, s.handleSetThumbnails)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "reload_config",
		Description: "Re-read the config file. An invalid file is rejected and the running config stays in force.",
	}, s.handleReloadConfig)
}
