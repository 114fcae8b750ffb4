package src

import (
	"fmt"
	"strings"

	"dfm/src/editor"
	"dfm/src/fsys"
	"dfm/src/panel"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

func (m Model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}
	v := m.app.Snapshot()
	title := titleStyle.Render(appName + " " + Version)
	status := lipgloss.NewStyle().MaxWidth(m.width).Render(m.statusMsg)
	fBar := fBarStyle.Width(m.width).MaxWidth(m.width).Render(fBarContent)
	help := m.helpView()

	if m.mode == editorMode && v.Editor != nil {
		return lipgloss.JoinVertical(lipgloss.Left, title, m.editorView(*v.Editor), status, help)
	}
	if m.mode == searchMode {
		results := listStyle.Width(m.width - 2).Render(m.results.View())
		return lipgloss.JoinVertical(lipgloss.Left, title, results, status, fBar, help)
	}

	half := m.width / 2
	left := m.panelView(v.Panels.Left, m.offsets[panel.Left], half)
	right := m.panelView(v.Panels.Right, m.offsets[panel.Right], m.width-half)
	parts := []string{title, lipgloss.JoinHorizontal(lipgloss.Top, left, right)}
	if m.showPreview {
		parts = append(parts, previewStyle.Width(m.width-2).Render(m.preview.View()))
	}
	parts = append(parts, m.bottomView(v.Busy), status, fBar, help)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// bottomView is the input box under the panels: the active prompt, the
// progress of a running operation or the command hint.
func (m Model) bottomView(busy bool) string {
	w := max(m.width-4, 10)
	box := inputStyle.Width(w + 2)
	switch m.mode {
	case promptMode:
		return box.Render(m.input.View())
	case progressMode:
		p := m.lastProgress
		pct := 0.0
		if p.Total > 0 {
			pct = float64(p.Done) / float64(p.Total)
		}
		label := fmt.Sprintf("%d/%d %s", p.Done, p.Total, p.Current)
		return box.Render(runewidth.Truncate(label, w, "…") + "\n" + m.progress.ViewAs(pct))
	case confirmMode:
		return box.Render(markedStyle.Render("confirm") + " y/n")
	}
	hint := dimStyle.Render(": command  ctrl+p find  F1 help")
	if busy {
		hint = dimStyle.Render("working...")
	}
	return box.Render(hint)
}

func (m Model) helpView() string {
	bindings := []key.Binding{m.keys.help, m.keys.tab, m.keys.selectIt, m.keys.copy, m.keys.move, m.keys.delete, m.keys.search, m.keys.quit}
	switch {
	case m.mode == editorMode:
		bindings = []key.Binding{m.keys.save, m.keys.close}
	case m.showHelp:
		bindings = []key.Binding{
			m.keys.quit, m.keys.execute, m.keys.back, m.keys.tab, m.keys.selectIt, m.keys.cancel,
			m.keys.refresh, m.keys.filter, m.keys.hidden, m.keys.sortNext, m.keys.sortFlip,
			m.keys.view, m.keys.edit, m.keys.newBuffer, m.keys.copy, m.keys.move, m.keys.rename,
			m.keys.mkdir, m.keys.touch, m.keys.delete, m.keys.search, m.keys.command, m.keys.yank,
			m.keys.subshell, m.keys.help,
		}
	}
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		parts = append(parts, helpString(b))
	}
	return subtitleStyle.Width(m.width).Render(strings.Join(parts, " • "))
}

func (m Model) panelView(pv panel.View, offset, width int) string {
	inner := max(width-4, 10)
	rows := m.panelRows()

	lines := make([]string, 0, rows+2)
	lines = append(lines, subtitleStyle.Render(truncateLeft(pv.Path, inner)))
	if len(pv.Rows) == 0 {
		lines = append(lines, dimStyle.Render("(empty)"))
	}
	for i := offset; i < len(pv.Rows) && i < offset+rows; i++ {
		lines = append(lines, renderRow(pv.Rows[i], inner, i == pv.Cursor, pv.Active))
	}
	for len(lines) < rows+1 {
		lines = append(lines, "")
	}
	lines = append(lines, dimStyle.Render(runewidth.Truncate(panelFooter(pv), inner, "…")))

	style := listStyle
	if pv.Active {
		style = activeListStyle
	}
	return style.Width(width - 2).Render(strings.Join(lines, "\n"))
}

func renderRow(r panel.Row, width int, cursor, active bool) string {
	mark := " "
	if r.Selected {
		mark = "*"
	}
	name := r.Name
	switch {
	case r.Parent:
	case r.IsDir:
		name += "/"
	case r.Kind == fsys.Symlink:
		name += "@"
	}
	var info string
	switch {
	case r.Parent:
		info = "UP--DIR"
	case r.IsDir:
		info = "<DIR>"
	default:
		info = fsys.HumanSize(r.Size)
	}
	date := ""
	if width >= 50 {
		date = strings.Repeat(" ", len(dateLayout)+1)
		if !r.Parent {
			date = " " + r.ModTime.Format(dateLayout)
		}
	}
	nameWidth := max(width-2-10-len(date), 1)
	line := mark + " " + runewidth.FillRight(runewidth.Truncate(name, nameWidth, "…"), nameWidth) +
		fmt.Sprintf(" %9s", info) + date
	line = runewidth.FillRight(line, width)

	switch {
	case cursor && active:
		return cursorStyle.Render(line)
	case cursor:
		return inactiveCursorStyle.Render(line)
	case r.Selected:
		return markedStyle.Render(line)
	case r.IsDir:
		return dirStyle.Render(line)
	case r.Kind == fsys.Symlink:
		return linkStyle.Render(line)
	}
	return line
}

func panelFooter(pv panel.View) string {
	s := "sort: " + pv.Sort.String()
	if pv.Filter != "" {
		s += " | filter: " + pv.Filter
	}
	if pv.SelectedCount > 0 {
		s += fmt.Sprintf(" | %d selected, %s", pv.SelectedCount, fsys.HumanSize(pv.SelectedBytes))
	}
	return s
}

// truncateLeft keeps the end of s, which for paths is the part that matters.
func truncateLeft(s string, width int) string {
	if runewidth.StringWidth(s) <= width {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && runewidth.StringWidth(string(r))+1 > width {
		r = r[1:]
	}
	return "…" + string(r)
}

func (m Model) editorView(ev editor.View) string {
	name := ev.Path
	if name == "" {
		name = "[No Name]"
	}
	if ev.Dirty {
		name += " [+]"
	}
	width := max(m.width-4, 10)
	const gutter = 5
	textWidth := max(width-gutter, 1)
	hscroll := max(0, ev.Col-textWidth+1)

	rows := m.editorRows()
	lines := make([]string, 0, rows)
	for i := m.editorTop; i < len(ev.Lines) && i < m.editorTop+rows; i++ {
		num := dimStyle.Render(fmt.Sprintf("%4d ", i+1))
		runes := []rune(ev.Lines[i])
		if hscroll < len(runes) {
			runes = runes[hscroll:]
		} else {
			runes = nil
		}
		if i != ev.Line {
			lines = append(lines, num+runewidth.Truncate(string(runes), textWidth, ""))
			continue
		}
		col := ev.Col - hscroll
		before, at, after := string(runes[:min(col, len(runes))]), " ", ""
		if col < len(runes) {
			at = string(runes[col])
			after = string(runes[col+1:])
		}
		lines = append(lines, num+before+cursorStyle.Render(at)+runewidth.Truncate(after, max(textWidth-runewidth.StringWidth(before)-1, 0), ""))
	}
	for len(lines) < rows {
		lines = append(lines, dimStyle.Render("   ~"))
	}

	mode := modeStyle.Render(ev.Mode.String())
	var msg string
	switch {
	case ev.Confirming:
		msg = errorStyle.Render("Save changes? (y)es (n)o (esc) cancel")
	case ev.Mode == editor.Command:
		msg = ":" + ev.Pending
	case ev.Message != "":
		msg = ev.Message
	}
	pos := dimStyle.Render(fmt.Sprintf("Ln %d, Col %d", ev.Line+1, ev.Col+1))
	modeLine := lipgloss.JoinHorizontal(lipgloss.Top, mode, " ", pos, " ", msg)

	return lipgloss.JoinVertical(lipgloss.Left,
		subtitleStyle.Render("Editing: "+name),
		editorStyle.Width(width+2).Render(strings.Join(lines, "\n")),
		modeLine,
	)
}
