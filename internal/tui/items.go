package tui

import (
	"slices"
	"sort"

	"github.com/charmbracelet/bubbles/list"

	"github.com/1broseidon/evepreview/internal/ipc"
)

// characterItem implements list.Item for the character sidebar.
type characterItem struct {
	character string
	windowID  uint32
	status    string
	focused   bool
	current   bool
	skipped   bool
	loggedOff bool
	minimized bool
}

func (i characterItem) Title() string {
	prefix := "  "
	switch {
	case i.focused:
		prefix = "* "
	case i.current:
		prefix = "> "
	}
	title := prefix + i.character
	if i.skipped {
		title += " (skipped)"
	}
	if i.loggedOff {
		title += " (logged off)"
	}
	if i.minimized {
		title += " (min)"
	}
	if i.status != "" && i.status != "live" {
		title += " [" + i.status + "]"
	}
	return title
}

func (i characterItem) Description() string { return "" }
func (i characterItem) FilterValue() string { return i.character }

// buildCharacterItems lists cycle members in cycle order first, then every
// other tracked character by name.
func buildCharacterItems(windows []ipc.WindowInfo, state ipc.CycleStateData) []list.Item {
	rank := func(name string) int {
		if i := slices.Index(state.Members, name); i >= 0 {
			return i
		}
		return len(state.Members)
	}

	sorted := make([]ipc.WindowInfo, 0, len(windows))
	for _, w := range windows {
		if w.Character != "" {
			sorted = append(sorted, w)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		ri, rj := rank(sorted[i].Character), rank(sorted[j].Character)
		if ri != rj {
			return ri < rj
		}
		if sorted[i].Character != sorted[j].Character {
			return sorted[i].Character < sorted[j].Character
		}
		return sorted[i].ID < sorted[j].ID
	})

	items := make([]list.Item, 0, len(sorted))
	for _, w := range sorted {
		items = append(items, characterItem{
			character: w.Character,
			windowID:  w.ID,
			status:    w.Status,
			focused:   w.Active,
			current:   state.Active && w.Character == state.Current,
			skipped:   slices.Contains(state.Skipped, w.Character),
			loggedOff: w.LoggedOff,
			minimized: w.Minimized,
		})
	}
	return items
}
