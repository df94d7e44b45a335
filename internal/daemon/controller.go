package daemon

import (
	"sort"
	"time"

	"github.com/1broseidon/evepreview/internal/cycle"
	"github.com/1broseidon/evepreview/internal/ipc"
)

// The daemon is the controller behind the IPC socket.
var _ ipc.Controller = (*Daemon)(nil)

func focusData(f Focus) ipc.FocusData {
	return ipc.FocusData{
		Focused:   f.Focused,
		Character: f.Character,
		WindowID:  uint32(f.ID),
		Reason:    f.Reason,
	}
}

// CycleNext focuses the next member of group.
func (d *Daemon) CycleNext(group string) (ipc.FocusData, error) {
	f, err := d.sync.Cycle(group, +1)
	return focusData(f), err
}

// CyclePrev focuses the previous member of group.
func (d *Daemon) CyclePrev(group string) (ipc.FocusData, error) {
	f, err := d.sync.Cycle(group, -1)
	return focusData(f), err
}

// JumpTo focuses a character.
func (d *Daemon) JumpTo(character string) (ipc.FocusData, error) {
	f, err := d.sync.JumpTo(character)
	return focusData(f), err
}

// SwitchProfile selects a profile.
func (d *Daemon) SwitchProfile(name string) error {
	_, err := d.sync.SwitchProfile(name)
	return err
}

// SetThumbnailsEnabled shows or hides all thumbnails.
func (d *Daemon) SetThumbnailsEnabled(on bool) error {
	d.sync.SetThumbnailsEnabled(on)
	return nil
}

// Windows lists every tracked window, stale and ghost entries included.
func (d *Daemon) Windows() []ipc.WindowInfo {
	snap := d.registry.Snapshot()
	out := make([]ipc.WindowInfo, 0, len(snap.Windows))
	for _, w := range snap.Windows {
		out = append(out, ipc.WindowInfo{
			ID:               uint32(w.ID),
			Character:        w.Character,
			Title:            w.Title,
			Status:           w.Status.String(),
			LoggedOff:        w.LoggedOff,
			Minimized:        w.Minimized,
			OnCurrentDesktop: w.OnCurrentDesktop,
			Active:           w.ID != 0 && w.ID == snap.Active,
		})
	}
	return out
}

// CycleState reports the cycle engine's position.
func (d *Daemon) CycleState() ipc.CycleStateData {
	st := d.cycle.State()
	prof := d.sync.Profile()

	groups := make([]string, 0, len(prof.CycleGroups))
	for _, g := range prof.CycleGroups {
		groups = append(groups, g.Name)
	}
	return ipc.CycleStateData{
		Profile: st.Profile,
		Group:   st.Group,
		Active:  st.Active,
		Index:   st.Index,
		Current: st.Current,
		Members: nonNil(d.cycle.Members()),
		Skipped: skippedNames(st),
		Groups:  groups,
	}
}

func skippedNames(st cycle.State) []string {
	var out []string
	for name, on := range st.Skipped {
		if on {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Layout reports every thumbnail bottom to top.
func (d *Daemon) Layout() ipc.LayoutData {
	placements := d.overlay.Layout()
	out := ipc.LayoutData{
		Enabled:    d.overlay.Enabled(),
		Thumbnails: make([]ipc.ThumbnailInfo, 0, len(placements)),
	}
	for _, p := range placements {
		out.Thumbnails = append(out.Thumbnails, ipc.ThumbnailInfo{
			ID:        uint32(p.ID),
			Character: p.Character,
			X:         p.Bounds.X,
			Y:         p.Bounds.Y,
			Width:     p.Bounds.Width,
			Height:    p.Bounds.Height,
			Z:         p.Z,
			Visible:   p.Visible,
			Active:    p.Active,
		})
	}
	return out
}

// Status summarizes the daemon.
func (d *Daemon) Status() ipc.StatusData {
	cfg := d.store.Config()
	backend := "none"
	if d.opts.Hotkeys != nil {
		backend = d.opts.Hotkeys.Name()
	}
	var uptime int64
	if !d.started.IsZero() {
		uptime = int64(time.Since(d.started).Seconds())
	}
	return ipc.StatusData{
		Profile:           cfg.Selected().Name,
		Profiles:          cfg.ProfileNames(),
		ThumbnailsEnabled: cfg.Global.ThumbnailsEnabled,
		WindowCount:       len(d.registry.Snapshot().Live()),
		HotkeyBackend:     backend,
		BindingCount:      d.dispatcher.Table().Len(),
		DroppedActions:    d.queue.Dropped(),
		ConfigPath:        d.opts.ConfigPath,
		UptimeSeconds:     uptime,
		DaemonRunning:     true,
	}
}
