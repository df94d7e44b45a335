package mcp

import "github.com/1broseidon/evepreview/internal/ipc"

// ListWindowsInput is the input for the list_windows tool.
type ListWindowsInput struct {
	IncludeStale bool `json:"include_stale,omitempty" jsonschema:"Also list stale and ghost entries kept for windows that went away (default: false)"`
}

// ListWindowsOutput is the output for the list_windows tool.
type ListWindowsOutput struct {
	Windows []ipc.WindowInfo `json:"windows"`
}

// GetCycleStateInput is the input for the get_cycle_state tool.
type GetCycleStateInput struct{}

// GetLayoutInput is the input for the get_layout tool.
type GetLayoutInput struct{}

// GetStatusInput is the input for the get_status tool.
type GetStatusInput struct{}

// CycleInput is the input for the cycle_next and cycle_prev tools.
type CycleInput struct {
	Group string `json:"group,omitempty" jsonschema:"Cycle group name in the current profile (default: the active group)"`
}

// JumpToInput is the input for the jump_to tool.
type JumpToInput struct {
	Character string `json:"character" jsonschema:"required,Character name whose client window should be focused"`
}

// SwitchProfileInput is the input for the switch_profile tool.
type SwitchProfileInput struct {
	Profile string `json:"profile" jsonschema:"required,Name of the profile to select"`
}

// SwitchProfileOutput is the output for the switch_profile tool.
type SwitchProfileOutput struct {
	Profile string `json:"profile"`
}

// SetThumbnailsInput is the input for the set_thumbnails_enabled tool.
type SetThumbnailsInput struct {
	Enabled bool `json:"enabled" jsonschema:"required,True shows thumbnails and false hides them"`
}

// SetThumbnailsOutput is the output for the set_thumbnails_enabled tool.
type SetThumbnailsOutput struct {
	Enabled bool `json:"enabled"`
}

// ReloadConfigInput is the input for the reload_config tool.
type ReloadConfigInput struct{}

// ReloadConfigOutput is the output for the reload_config tool.
type ReloadConfigOutput struct {
	Reloaded bool `json:"reloaded"`
}
