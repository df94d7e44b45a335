package ipc

import (
	"encoding/json"
	"fmt"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandCycleNext     CommandType = "CYCLE_NEXT"
	CommandCyclePrev     CommandType = "CYCLE_PREV"
	CommandJumpTo        CommandType = "JUMP_TO"
	CommandSwitchProfile CommandType = "SWITCH_PROFILE"
	CommandSetThumbnails CommandType = "SET_THUMBNAILS"
	CommandListWindows   CommandType = "LIST_WINDOWS"
	CommandGetCycleState CommandType = "GET_CYCLE_STATE"
	CommandGetLayout     CommandType = "GET_LAYOUT"
	CommandGetStatus     CommandType = "GET_STATUS"
	CommandReload        CommandType = "RELOAD"
)

const (
	StatusOK    = "OK"
	StatusError = "ERROR"
)

// Request represents an IPC request from client to server
type Request struct {
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response represents an IPC response from server to client
type Response struct {
	Status string          `json:"status"` // "OK" or "ERROR"
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// CyclePayload selects a cycle group; empty keeps the active one.
type CyclePayload struct {
	Group string `json:"group,omitempty"`
}

type JumpPayload struct {
	Character string `json:"character"`
}

type ProfilePayload struct {
	Name string `json:"name"`
}

type ThumbnailsPayload struct {
	Enabled bool `json:"enabled"`
}

// FocusData is the outcome of a cycle or jump command. Focused is false when
// nothing changed, for example when the group has no live members.
type FocusData struct {
	Focused   bool   `json:"focused"`
	Character string `json:"character,omitempty"`
	WindowID  uint32 `json:"window_id,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// WindowInfo describes one managed client window.
type WindowInfo struct {
	ID               uint32 `json:"id"`
	Character        string `json:"character"`
	Title            string `json:"title"`
	Status           string `json:"status"`
	LoggedOff        bool   `json:"logged_off"`
	Minimized        bool   `json:"minimized"`
	OnCurrentDesktop bool   `json:"on_current_desktop"`
	Active           bool   `json:"active"`
}

type WindowsData struct {
	Windows []WindowInfo `json:"windows"`
}

// CycleStateData is the cycle engine's state.
type CycleStateData struct {
	Profile string   `json:"profile"`
	Group   string   `json:"group"`
	Active  bool     `json:"active"`
	Index   int      `json:"index"`
	Current string   `json:"current,omitempty"`
	Members []string `json:"members"`
	Skipped []string `json:"skipped,omitempty"`
	Groups  []string `json:"groups"`
}

// ThumbnailInfo describes one thumbnail; Z is 0 for the bottom-most.
type ThumbnailInfo struct {
	ID        uint32 `json:"id"`
	Character string `json:"character"`
	X         int    `json:"x"`
	Y         int    `json:"y"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Z         int    `json:"z"`
	Visible   bool   `json:"visible"`
	Active    bool   `json:"active"`
}

type LayoutData struct {
	Enabled    bool            `json:"enabled"`
	Thumbnails []ThumbnailInfo `json:"thumbnails"`
}

// StatusData represents the data returned by GET_STATUS
type StatusData struct {
	Profile           string   `json:"profile"`
	Profiles          []string `json:"profiles"`
	ThumbnailsEnabled bool     `json:"thumbnails_enabled"`
	WindowCount       int      `json:"window_count"`
	HotkeyBackend     string   `json:"hotkey_backend"`
	BindingCount      int      `json:"binding_count"`
	DroppedActions    uint64   `json:"dropped_actions"`
	ConfigPath        string   `json:"config_path"`
	UptimeSeconds     int64    `json:"uptime_seconds"`
	DaemonRunning     bool     `json:"daemon_running"`
}

// NewOKResponse creates a successful response with optional data
func NewOKResponse(data interface{}) (*Response, error) {
	var dataBytes json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		dataBytes = bytes
	}

	return &Response{
		Status: StatusOK,
		Data:   dataBytes,
	}, nil
}

// NewErrorResponse creates an error response with a message
func NewErrorResponse(errMsg string) *Response {
	return &Response{
		Status: StatusError,
		Error:  errMsg,
	}
}

// ParseRequest parses a request from JSON bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return &req, nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}
