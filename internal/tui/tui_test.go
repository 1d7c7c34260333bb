package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Zuo-Peng/memsync/internal/memstore"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	results []memstore.Memory
	err     error
	queries []string
}

func (f *fakeSource) Search(_ context.Context, query string) ([]memstore.Memory, error) {
	f.queries = append(f.queries, query)
	return f.results, f.err
}

func memories() []memstore.Memory {
	return []memstore.Memory{
		{MemoryType: "episodic_memory", Timestamp: "2026-01-02T00:00:00Z", Summary: "first", Episode: "about auth"},
		{MemoryType: "foresight", Summary: "second"},
		{Content: "third"},
	}
}

func update(t *testing.T, m model, msg tea.Msg) (model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(model)
	require.True(t, ok)
	return nm, cmd
}

func sized(t *testing.T, src Source) model {
	t.Helper()
	m, _ := update(t, initialModel(src, "auth"), tea.WindowSizeMsg{Width: 120, Height: 40})
	return m
}

func TestSearchCommandQueriesSource(t *testing.T) {
	src := &fakeSource{results: memories()}
	m := initialModel(src, "  auth ")

	msg := m.doSearch(m.query)()

	res, ok := msg.(searchResultMsg)
	require.True(t, ok)
	assert.Equal(t, []string{"auth"}, src.queries)
	assert.Equal(t, "  auth ", res.query)
	assert.Len(t, res.results, 3)
}

func TestSearchResultsPopulateListAndPreview(t *testing.T) {
	m := sized(t, &fakeSource{})

	m, _ = update(t, m, searchResultMsg{query: "auth", results: memories()})

	assert.Len(t, m.results, 3)
	assert.Equal(t, 0, m.cursor)
	assert.Equal(t, 0, m.previewIdx)
	assert.Contains(t, m.preview.View(), "first")
}

func TestStaleResultsAreDropped(t *testing.T) {
	m := sized(t, &fakeSource{})

	m, _ = update(t, m, searchResultMsg{query: "old", results: memories()})

	assert.Empty(t, m.results)
}

func TestSearchErrorClearsResults(t *testing.T) {
	m := sized(t, &fakeSource{})
	m, _ = update(t, m, searchResultMsg{query: "auth", results: memories()})

	m, _ = update(t, m, searchResultMsg{query: "auth", err: errors.New("store down")})

	assert.Empty(t, m.results)
	assert.Contains(t, m.preview.View(), "store down")
}

func TestNavigationAndSelect(t *testing.T) {
	m := sized(t, &fakeSource{})
	m, _ = update(t, m, searchResultMsg{query: "auth", results: memories()})

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 2, m.cursor)
	assert.Equal(t, 2, m.previewIdx)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 1, m.cursor)

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	require.NotNil(t, m.selected)
	assert.Equal(t, "second", m.selected.Summary)
	assert.True(t, m.quitting)
}

func TestDebounceFiresOnlyForCurrentQuery(t *testing.T) {
	m := sized(t, &fakeSource{})

	_, cmd := update(t, m, debounceTickMsg{query: "stale"})
	assert.Nil(t, cmd)

	m, cmd = update(t, m, debounceTickMsg{query: "auth"})
	assert.NotNil(t, cmd)
	assert.True(t, m.loading)
}

func TestTypingSchedulesSearch(t *testing.T) {
	m := sized(t, &fakeSource{})

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})

	assert.Equal(t, "authx", m.query)
	assert.NotNil(t, cmd)
}

func TestFormatResultLine(t *testing.T) {
	lines := formatResultLine(memories()[0], "auth", 60, true)
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "> ")
	assert.Contains(t, lines[0], "01-02")
	assert.Contains(t, lines[0], "first")
	assert.Contains(t, lines[1], "about auth")
	assert.NotContains(t, lines[1], ">>>")
}

func TestClipboardText(t *testing.T) {
	got := clipboardText(memstore.Memory{Subject: "s", Summary: "sum", Content: "c"})
	assert.Equal(t, "s\n\nsum\n\nc", got)
}

func TestCopyAlternateKey(t *testing.T) {
	m := sized(t, &fakeSource{})
	m, _ = update(t, m, searchResultMsg{query: "auth", results: memories()})

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlY})

	require.NotNil(t, cmd)
	require.NotNil(t, m.selected)
	assert.Equal(t, "first", m.selected.Summary)
	assert.Equal(t, "auth", m.query, "ctrl+y must not reach the query input")
}

func TestPagingScrollsMemoryNotList(t *testing.T) {
	long := memstore.Memory{Summary: "long", Content: strings.Repeat("line\n", 200)}
	m := sized(t, &fakeSource{})
	m, _ = update(t, m, searchResultMsg{query: "auth", results: []memstore.Memory{long, {Summary: "other"}}})

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyPgDown})
	assert.Equal(t, 0, m.cursor)
	assert.Positive(t, m.preview.YOffset)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyPgUp})
	assert.Zero(t, m.preview.YOffset)
}

func TestStatusBarShowsBrowserKeys(t *testing.T) {
	m := sized(t, &fakeSource{})
	m, _ = update(t, m, searchResultMsg{query: "auth", results: memories()})

	bar := m.statusBar()

	assert.Contains(t, bar, "3 memories")
	assert.Contains(t, bar, "enter copy memory")
	assert.Contains(t, bar, "C-d scroll memory down")
	assert.Contains(t, bar, "esc quit")
}

func TestHelpLineSkipsDisabledBindings(t *testing.T) {
	on := key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "alpha"))
	off := key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "beta"), key.WithDisabled())

	assert.Equal(t, "a alpha", helpLine([]key.Binding{on, off}))
}
