package render

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Zuo-Peng/memsync/internal/memstore"
	"github.com/mattn/go-runewidth"
)

const (
	colorReset   = "\033[0m"
	colorLabel   = "\033[1;34m" // bold blue
	colorScore   = "\033[1;32m" // bold green
	colorDim     = "\033[2m"
	colorBoldRed = "\033[1;31m" // bold red for keyword highlights
)

const truncatedMarker = "\n\n...(truncated)"

type Options struct {
	Width int    // wrap width (0 = no wrap)
	Query string // search query for keyword highlighting
}

// Headline is the one-line description of a memory used in lists and in
// the session context block.
func Headline(m memstore.Memory) string {
	for _, s := range []string{m.Summary, m.Episode, m.Subject, m.Content} {
		if s != "" {
			return s
		}
	}
	return ""
}

// ContextMarkdown builds the block injected at session start. Profiles
// contribute their content, past context its headline; entries with
// nothing to say are left out. It returns "" when there is nothing to
// inject. The result is cut to maxChars runes plus a truncation marker.
func ContextMarkdown(profiles, hits []memstore.Memory, maxChars int) string {
	var parts []string

	var profileLines []string
	for _, m := range profiles {
		content := m.Content
		if content == "" {
			content = m.Summary
		}
		if content != "" {
			profileLines = append(profileLines, "- "+content)
		}
	}
	if len(profileLines) > 0 {
		parts = append(parts, "## User Profile")
		parts = append(parts, profileLines...)
	}

	var hitLines []string
	for _, m := range hits {
		desc := m.Summary
		if desc == "" {
			desc = m.Episode
		}
		if desc == "" {
			desc = m.Subject
		}
		if desc != "" {
			hitLines = append(hitLines, fmt.Sprintf("- [%s] %s", m.Timestamp, desc))
		}
	}
	if len(hitLines) > 0 {
		parts = append(parts, "## Relevant Past Context")
		parts = append(parts, hitLines...)
	}

	if len(parts) == 0 {
		return ""
	}

	md := "# EverMemOS Memories\n\n" + strings.Join(parts, "\n")
	if maxChars > 0 && utf8.RuneCountInString(md) > maxChars {
		md = string([]rune(md)[:maxChars]) + truncatedMarker
	}
	return md
}

// Memory renders one memory for terminal display.
func Memory(m memstore.Memory, opts Options) string {
	var b strings.Builder
	writeLine := func(s string) {
		for _, wl := range wrapLine(s, opts.Width) {
			b.WriteString(wl)
			b.WriteString("\n")
		}
	}
	field := func(label, value string) {
		if value == "" {
			return
		}
		writeLine(colorLabel + label + colorReset)
		text := indentLines(highlightKeywords(value, opts.Query), "  ")
		for _, tl := range strings.Split(text, "\n") {
			writeLine(tl)
		}
		writeLine("")
	}

	var meta []string
	if m.MemoryType != "" {
		meta = append(meta, m.MemoryType)
	}
	if m.Timestamp != "" {
		meta = append(meta, m.Timestamp)
	}
	if m.GroupID != "" {
		meta = append(meta, m.GroupID)
	}
	if len(meta) > 0 {
		writeLine(fmt.Sprintf("%s--- %s ---%s", colorDim, strings.Join(meta, " | "), colorReset))
	}
	if m.Score != nil {
		writeLine(fmt.Sprintf("%sscore%s %.4f", colorScore, colorReset, *m.Score))
	}
	writeLine("")

	field("SUBJECT", m.Subject)
	field("SUMMARY", m.Summary)
	field("EPISODE", m.Episode)
	field("CONTENT", m.Content)

	return b.String()
}

// Snippet extracts a window of contextChars runes around the first
// occurrence of query in text, marking the match with >>> and <<<.
func Snippet(text, query string, contextChars int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	q := []rune(query)
	runePos := indexFold(runes, q)
	if runePos < 0 {
		if len(runes) > contextChars*2 {
			return string(runes[:contextChars*2]) + "..."
		}
		return text
	}
	qLen := len(q)
	start := max(runePos-contextChars, 0)
	end := min(runePos+qLen+contextChars, len(runes))

	prefix, suffix := "", ""
	if start > 0 {
		prefix = "..."
	}
	if end < len(runes) {
		suffix = "..."
	}
	return prefix + string(runes[start:runePos]) +
		">>>" + string(runes[runePos:runePos+qLen]) + "<<<" +
		string(runes[runePos+qLen:end]) + suffix
}

// indexFold returns the rune offset of the first case-insensitive match of
// q in s, or -1. Runes are lowered one at a time so offsets stay aligned with
// s even where lowering changes a rune's encoded width.
func indexFold(s, q []rune) int {
	if len(q) == 0 || len(q) > len(s) {
		return -1
	}
	lq := make([]rune, len(q))
	for i, r := range q {
		lq[i] = unicode.ToLower(r)
	}
outer:
	for i := 0; i+len(lq) <= len(s); i++ {
		for j, r := range lq {
			if unicode.ToLower(s[i+j]) != r {
				continue outer
			}
		}
		return i
	}
	return -1
}

// highlightKeywords wraps case-insensitive matches of query terms in bold red ANSI codes.
func highlightKeywords(text, query string) string {
	for _, term := range strings.Fields(query) {
		q := []rune(term)
		runes := []rune(text)
		var b strings.Builder
		for {
			idx := indexFold(runes, q)
			if idx < 0 {
				break
			}
			b.WriteString(string(runes[:idx]))
			b.WriteString(colorBoldRed + string(runes[idx:idx+len(q)]) + colorReset)
			runes = runes[idx+len(q):]
		}
		b.WriteString(string(runes))
		text = b.String()
	}
	return text
}

// indentLines prepends each line of text with the given prefix.
func indentLines(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

// wrapLine breaks a single line into multiple lines that fit within maxWidth
// visible columns, correctly skipping ANSI escape sequences when measuring width.
func wrapLine(line string, maxWidth int) []string {
	if maxWidth <= 0 {
		return []string{line}
	}

	var result []string
	var cur strings.Builder
	visW := 0

	i := 0
	for i < len(line) {
		// check for ANSI escape sequence: ESC[ ... m
		if i+1 < len(line) && line[i] == '\033' && line[i+1] == '[' {
			j := i + 2
			for j < len(line) && line[j] != 'm' {
				j++
			}
			if j < len(line) {
				j++ // include 'm'
			}
			cur.WriteString(line[i:j])
			i = j
			continue
		}

		r, size := utf8.DecodeRuneInString(line[i:])
		rw := runewidth.RuneWidth(r)

		if visW+rw > maxWidth {
			result = append(result, cur.String())
			cur.Reset()
			visW = 0
		}

		cur.WriteRune(r)
		visW += rw
		i += size
	}

	if cur.Len() > 0 {
		result = append(result, cur.String())
	}

	if len(result) == 0 {
		return []string{""}
	}
	return result
}
