package mcp

import (
	"context"
	"fmt"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/evepreview/internal/ipc"
)

func (s *Server) handleListWindows(_ context.Context, _ *mcpsdk.CallToolRequest, args ListWindowsInput) (*mcpsdk.CallToolResult, ListWindowsOutput, error) {
	windows, err := s.daemon.Windows()
	if err != nil {
		return nil, ListWindowsOutput{}, err
	}
	out := make([]ipc.WindowInfo, 0, len(windows))
	for _, w := range windows {
		if !args.IncludeStale && w.Status != "live" {
			continue
		}
		out = append(out, w)
	}
	return nil, ListWindowsOutput{Windows: out}, nil
}

func (s *Server) handleGetCycleState(_ context.Context, _ *mcpsdk.CallToolRequest, _ GetCycleStateInput) (*mcpsdk.CallToolResult, ipc.CycleStateData, error) {
	st, err := s.daemon.CycleState()
	if err != nil {
		return nil, ipc.CycleStateData{}, err
	}
	return nil, st, nil
}

func (s *Server) handleGetLayout(_ context.Context, _ *mcpsdk.CallToolRequest, _ GetLayoutInput) (*mcpsdk.CallToolResult, ipc.LayoutData, error) {
	layout, err := s.daemon.Layout()
	if err != nil {
		return nil, ipc.LayoutData{}, err
	}
	return nil, layout, nil
}

func (s *Server) handleGetStatus(_ context.Context, _ *mcpsdk.CallToolRequest, _ GetStatusInput) (*mcpsdk.CallToolResult, ipc.StatusData, error) {
	status, err := s.daemon.GetStatus()
	if err != nil {
		return nil, ipc.StatusData{}, err
	}
	return nil, *status, nil
}

func (s *Server) handleCycleNext(_ context.Context, _ *mcpsdk.CallToolRequest, args CycleInput) (*mcpsdk.CallToolResult, ipc.FocusData, error) {
	f, err := s.daemon.CycleNext(strings.TrimSpace(args.Group))
	s.logFocus("cycle_next", f, err)
	if err != nil {
		return nil, ipc.FocusData{}, err
	}
	return nil, f, nil
}

func (s *Server) handleCyclePrev(_ context.Context, _ *mcpsdk.CallToolRequest, args CycleInput) (*mcpsdk.CallToolResult, ipc.FocusData, error) {
	f, err := s.daemon.CyclePrev(strings.TrimSpace(args.Group))
	s.logFocus("cycle_prev", f, err)
	if err != nil {
		return nil, ipc.FocusData{}, err
	}
	return nil, f, nil
}

func (s *Server) handleJumpTo(_ context.Context, _ *mcpsdk.CallToolRequest, args JumpToInput) (*mcpsdk.CallToolResult, ipc.FocusData, error) {
	character := strings.TrimSpace(args.Character)
	if character == "" {
		return nil, ipc.FocusData{}, fmt.Errorf("character is required")
	}
	f, err := s.daemon.JumpTo(character)
	s.logFocus("jump_to", f, err)
	if err != nil {
		return nil, ipc.FocusData{}, err
	}
	return nil, f, nil
}

func (s *Server) handleSwitchProfile(_ context.Context, _ *mcpsdk.CallToolRequest, args SwitchProfileInput) (*mcpsdk.CallToolResult, SwitchProfileOutput, error) {
	name := strings.TrimSpace(args.Profile)
	if name == "" {
		return nil, SwitchProfileOutput{}, fmt.Errorf("profile is required")
	}
	if err := s.daemon.SwitchProfile(name); err != nil {
		return nil, SwitchProfileOutput{}, err
	}
	s.logger.Info("mcp: switched profile", "profile", name)
	return nil, SwitchProfileOutput{Profile: name}, nil
}

func (s *Server) handleSetThumbnails(_ context.Context, _ *mcpsdk.CallToolRequest, args SetThumbnailsInput) (*mcpsdk.CallToolResult, SetThumbnailsOutput, error) {
	if err := s.daemon.SetThumbnailsEnabled(args.Enabled); err != nil {
		return nil, SetThumbnailsOutput{}, err
	}
	return nil, SetThumbnailsOutput{Enabled: args.Enabled}, nil
}

func (s *Server) handleReloadConfig(_ context.Context, _ *mcpsdk.CallToolRequest, _ ReloadConfigInput) (*mcpsdk.CallToolResult, ReloadConfigOutput, error) {
	if err := s.daemon.Reload(); err != nil {
		return nil, ReloadConfigOutput{}, err
	}
	return nil, ReloadConfigOutput{Reloaded: true}, nil
}

func (s *Server) logFocus(tool string, f ipc.FocusData, err error) {
	if err != nil {
		s.logger.Warn("mcp: focus request failed", "tool", tool, "error", err)
		return
	}
	s.logger.Debug("mcp: focus request", "tool", tool, "focused", f.Focused, "character", f.Character, "reason", f.Reason)
}
