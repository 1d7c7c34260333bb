package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
)

// browseKeys are the memory browser bindings. Printable keys belong to the
// query input, so everything here is a control or navigation key.
type browseKeys struct {
	PrevMemory   key.Binding
	NextMemory   key.Binding
	Copy         key.Binding
	Quit         key.Binding
	HalfPageUp   key.Binding
	HalfPageDown key.Binding
	PageUp       key.Binding
	PageDown     key.Binding
}

var keys = browseKeys{
	PrevMemory: key.NewBinding(
		key.WithKeys("up", "ctrl+k", "ctrl+p"),
		key.WithHelp("up/C-k", "prev"),
	),
	NextMemory: key.NewBinding(
		key.WithKeys("down", "ctrl+j", "ctrl+n"),
		key.WithHelp("dn/C-j", "next"),
	),
	Copy: key.NewBinding(
		key.WithKeys("enter", "ctrl+y"),
		key.WithHelp("enter", "copy memory"),
	),
	Quit: key.NewBinding(
		key.WithKeys("esc", "ctrl+c"),
		key.WithHelp("esc", "quit"),
	),
	HalfPageUp: key.NewBinding(
		key.WithKeys("ctrl+u"),
		key.WithHelp("C-u", "scroll memory up"),
	),
	HalfPageDown: key.NewBinding(
		key.WithKeys("ctrl+d"),
		key.WithHelp("C-d", "scroll memory down"),
	),
	PageUp: key.NewBinding(
		key.WithKeys("pgup"),
		key.WithHelp("pgup", "memory page up"),
	),
	PageDown: key.NewBinding(
		key.WithKeys("pgdown"),
		key.WithHelp("pgdn", "memory page down"),
	),
}

// ShortHelp lists the bindings shown in the status bar.
func (k browseKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.NextMemory, k.PrevMemory, k.HalfPageDown, k.HalfPageUp, k.Copy, k.Quit}
}

func helpLine(bindings []key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		if !b.Enabled() {
			continue
		}
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, " | ")
}
