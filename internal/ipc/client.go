package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/1broseidon/evepreview/internal/runtimepath"
)

// Client handles IPC communication with the daemon
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a new IPC client
func NewClient() *Client {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		// Keep constructor non-failing; sendRequest surfaces connection errors.
		socketPath = ""
	}
	return NewClientAt(socketPath)
}

// NewClientAt creates a client for the daemon listening on socketPath.
func NewClientAt(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		timeout:    5 * time.Second,
	}
}

// sendRequest sends a request and waits for a response
func (c *Client) sendRequest(cmd CommandType, payload any) (*Response, error) {
	req := &Request{Command: cmd}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s payload: %w", cmd, err)
		}
		req.Payload = raw
	}

	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w (is the daemon running?)", err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(c.timeout))

	reqData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	reqData = append(reqData, '\n')
	if _, err := conn.Write(reqData); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	reader := bufio.NewReader(conn)
	respData, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.Status == StatusError {
		return nil, fmt.Errorf("daemon error: %s", resp.Error)
	}
	return &resp, nil
}

// call sends a request and decodes the response data into out.
func call[T any](c *Client, cmd CommandType, payload any) (T, error) {
	var out T
	resp, err := c.sendRequest(cmd, payload)
	if err != nil {
		return out, err
	}
	if len(resp.Data) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(resp.Data, &out); err != nil {
		return out, fmt.Errorf("failed to parse %s data: %w", cmd, err)
	}
	return out, nil
}

// CycleNext focuses the next member of group (or the active group).
func (c *Client) CycleNext(group string) (FocusData, error) {
	return call[FocusData](c, CommandCycleNext, CyclePayload{Group: group})
}

// CyclePrev focuses the previous member of group (or the active group).
func (c *Client) CyclePrev(group string) (FocusData, error) {
	return call[FocusData](c, CommandCyclePrev, CyclePayload{Group: group})
}

// JumpTo focuses a character.
func (c *Client) JumpTo(character string) (FocusData, error) {
	return call[FocusData](c, CommandJumpTo, JumpPayload{Character: character})
}

// SwitchProfile activates a profile.
func (c *Client) SwitchProfile(name string) error {
	_, err := c.sendRequest(CommandSwitchProfile, ProfilePayload{Name: name})
	return err
}

// SetThumbnailsEnabled shows or hides all thumbnails.
func (c *Client) SetThumbnailsEnabled(on bool) error {
	_, err := c.sendRequest(CommandSetThumbnails, ThumbnailsPayload{Enabled: on})
	return err
}

// Windows lists the managed client windows.
func (c *Client) Windows() ([]WindowInfo, error) {
	data, err := call[WindowsData](c, CommandListWindows, nil)
	return data.Windows, err
}

// CycleState returns the cycle engine state.
func (c *Client) CycleState() (CycleStateData, error) {
	return call[CycleStateData](c, CommandGetCycleState, nil)
}

// Layout returns the thumbnail layout.
func (c *Client) Layout() (LayoutData, error) {
	return call[LayoutData](c, CommandGetLayout, nil)
}

// GetStatus retrieves daemon status
func (c *Client) GetStatus() (*StatusData, error) {
	status, err := call[StatusData](c, CommandGetStatus, nil)
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// Reload asks the daemon to re-read its config file.
func (c *Client) Reload() error {
	_, err := c.sendRequest(CommandReload, nil)
	return err
}

// Ping checks if the daemon is responding
func (c *Client) Ping() error {
	_, err := c.GetStatus()
	return err
}
