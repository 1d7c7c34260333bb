package tui

import (
	"fmt"
	"strings"

	"github.com/Zuo-Peng/memsync/internal/memstore"
	"github.com/Zuo-Peng/memsync/internal/render"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// linesPerItem is the number of terminal lines each result occupies.
const linesPerItem = 2

// renderList renders the left panel: search results list with scrolling.
func (m model) renderList(width, height int) string {
	if len(m.results) == 0 {
		msg := "No memories"
		if m.loading {
			msg = "Searching..."
		}
		return lipgloss.NewStyle().
			Foreground(colorDim).
			Width(width).
			Height(height).
			Align(lipgloss.Center, lipgloss.Center).
			Render(msg)
	}

	var lines []string
	for i, r := range m.results {
		if i < m.listOffset {
			continue
		}
		if len(lines)+linesPerItem > height {
			break
		}
		lines = append(lines, formatResultLine(r, m.query, width, i == m.cursor)...)
	}

	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

// formatResultLine formats a single memory as two lines:
//
//	line 1: [>] type  date  headline
//	line 2:    snippet (dimmed)
func formatResultLine(mem memstore.Memory, query string, width int, selected bool) []string {
	kind := styleMemoryType.Render(shortType(mem.MemoryType))

	// "2026-01-27T10:00:00Z" -> "01-27"
	date := mem.Timestamp
	if len(date) >= 10 {
		date = date[5:10]
	}

	headline := strings.ReplaceAll(render.Headline(mem), "\n", " ")
	headlineMax := max(width-2-8-6-2, 0) // prefix + type + date + padding
	if runewidth.StringWidth(headline) > headlineMax {
		headline = runewidth.Truncate(headline, headlineMax, "")
	}

	line1 := fmt.Sprintf("%s %s %s", kind, date, headline)
	if selected {
		line1 = styleListSelected.Render("> ") + line1
	} else {
		line1 = "  " + line1
	}

	body := mem.Episode
	if body == "" {
		body = mem.Content
	}
	snippet := render.Snippet(body, query, 40)
	snippet = strings.ReplaceAll(snippet, ">>>", "")
	snippet = strings.ReplaceAll(snippet, "<<<", "")
	snippetMax := max(width-4, 0)
	if runewidth.StringWidth(snippet) > snippetMax {
		snippet = runewidth.Truncate(snippet, snippetMax, "")
	}
	line2 := "    " + lipgloss.NewStyle().Foreground(colorDim).Render(snippet)

	return []string{line1, line2}
}

func shortType(t string) string {
	switch t {
	case "episodic_memory":
		return "episode"
	case "event_log":
		return "event"
	case "":
		return "memory"
	default:
		return t
	}
}

// adjustListScroll keeps the cursor visible within the list viewport.
func (m *model) adjustListScroll(listHeight int) {
	visibleItems := max(listHeight/linesPerItem, 1)
	if m.cursor < m.listOffset {
		m.listOffset = m.cursor
	}
	if m.cursor >= m.listOffset+visibleItems {
		m.listOffset = m.cursor - visibleItems + 1
	}
}
