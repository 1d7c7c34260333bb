package tui

import (
	"github.com/Zuo-Peng/memsync/internal/render"
	"github.com/charmbracelet/bubbles/viewport"
)

// showPreview renders the selected memory into the preview pane unless it
// is already showing.
func (m *model) showPreview() {
	if len(m.results) == 0 || m.cursor >= len(m.results) {
		m.preview.SetContent("")
		m.previewIdx = -1
		return
	}
	if m.previewIdx == m.cursor {
		return
	}
	m.preview.SetContent(render.Memory(m.results[m.cursor], render.Options{
		Width: m.previewWidth() - 2,
		Query: m.query,
	}))
	m.preview.GotoTop()
	m.previewIdx = m.cursor
}

// newViewport creates a new viewport model with the given dimensions.
func newViewport(width, height int) viewport.Model {
	vp := viewport.New(width, height)
	vp.Style = stylePanelBorder
	return vp
}
