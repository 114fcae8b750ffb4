package src

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"dfm/src/fsys"
	"dfm/src/search"

	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
)

// searchBatch is how many matches one search step collects before the
// results list is redrawn.
const searchBatch = 64

func (m *Model) resize() {
	w := max(m.width-4, 10)
	m.input.Width = w - len(m.input.Prompt)
	m.progress.Width = w
	m.preview.Width = w
	m.preview.Height = m.previewRows()
	m.results.SetSize(w, max(m.height-8, 3))
	m.previewPath = ""
}

// chrome is the number of lines around the panels: title, input box,
// status, function key bar and help.
const chrome = 1 + 3 + 1 + 1 + 1

func (m Model) previewRows() int {
	if !m.showPreview {
		return 0
	}
	return max((m.height-chrome)/3, 3)
}

// panelRows is the number of entries a panel shows at once.
func (m Model) panelRows() int {
	avail := m.height - chrome - 4
	if m.showPreview {
		avail -= m.previewRows() + 2
	}
	return max(avail, 1)
}

func (m Model) editorRows() int {
	return max(m.height-1-1-2-2-1, 1)
}

func (m *Model) updatePreview() {
	if !m.showPreview || m.mode != explorerMode {
		return
	}
	cur, ok := m.app.Controller().Active().Current()
	if !ok {
		m.preview.SetContent("")
		m.previewPath = ""
		return
	}
	id := cur.Path + "@" + cur.ModTime.String()
	if id == m.previewPath {
		return
	}
	m.previewPath = id
	m.preview.SetContent(renderPreview(m.app.Gateway(), cur, m.preview.Width, m.cfg.UI.PreviewStyle))
	m.preview.GotoTop()
}

// renderPreview shows a directory's entries, a markdown file through
// glamour, or other text highlighted with chroma.
func renderPreview(gw fsys.Gateway, e fsys.Entry, width int, style string) string {
	if e.IsDir() {
		entries, err := gw.List(e.Path)
		if err != nil {
			return errorStyle.Render(err.Error())
		}
		var sb strings.Builder
		fmt.Fprintf(&sb, "%d item(s)\n", len(entries))
		for i, c := range entries {
			if i == previewLines {
				sb.WriteString("...\n")
				break
			}
			sb.WriteString(c.Name)
			if c.IsDir() {
				sb.WriteString("/")
			}
			sb.WriteString("\n")
		}
		return sb.String()
	}
	if e.Size > maxPreviewBytes {
		return "File too large for preview (" + fsys.HumanSize(e.Size) + ")"
	}
	lines, err := gw.ReadText(e.Path)
	if err != nil {
		return errorStyle.Render(err.Error())
	}
	if len(lines) > previewLines {
		lines = append(lines[:previewLines], "...")
	}
	content := strings.Join(lines, "\n")
	if mime := http.DetectContentType([]byte(content)); strings.ContainsRune(content, 0) || !strings.HasPrefix(mime, "text/") {
		return "Non-text file: " + mime
	}
	if strings.EqualFold(filepath.Ext(e.Name), ".md") {
		if out, err := renderMarkdown(content, width); err == nil {
			return out
		}
	}
	lexer := lexers.Match(e.Name)
	if lexer == nil {
		lexer = lexers.Analyse(content)
	}
	if lexer == nil {
		return content
	}
	iterator, err := lexer.Tokenise(nil, content)
	if err != nil {
		return content
	}
	var sb strings.Builder
	if err := chromaFormatter.Format(&sb, chromaStyle(style), iterator); err != nil {
		return content
	}
	return sb.String()
}

var (
	markdownMu       sync.Mutex
	markdownRenderer *glamour.TermRenderer
	markdownWidth    int
)

func renderMarkdown(content string, width int) (string, error) {
	markdownMu.Lock()
	defer markdownMu.Unlock()
	if markdownRenderer == nil || markdownWidth != width {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return "", err
		}
		markdownRenderer, markdownWidth = r, width
	}
	return markdownRenderer.Render(content)
}

// parseQuery turns what was typed at the find prompt into a predicate:
// "content:text" searches file contents, "~abc" matches names fuzzily, a
// pattern with glob metacharacters is a glob and anything else is a
// case-insensitive substring of the name.
func parseQuery(gw fsys.Gateway, q string, maxSize int64) (search.Predicate, error) {
	switch {
	case q == "":
		return nil, fmt.Errorf("empty search")
	case strings.HasPrefix(q, "content:"):
		text := strings.TrimPrefix(q, "content:")
		if text == "" {
			return nil, fmt.Errorf("empty content search")
		}
		return search.And(search.FilesOnly, search.ContentContains(gw, text, maxSize)), nil
	case strings.HasPrefix(q, "~"):
		return search.NameFuzzy(strings.TrimPrefix(q, "~")), nil
	case strings.ContainsAny(q, "*?[{"):
		return search.NameGlob(q)
	}
	return search.NameContains(q), nil
}

func (m *Model) startSearch(query string) tea.Cmd {
	match, err := parseQuery(m.app.Gateway(), query, m.cfg.Editor.MaxFileSize)
	if err != nil {
		m.fail(err)
		return nil
	}
	m.stopSearch()
	ctx, cancel := context.WithCancel(context.Background())
	m.searchID++
	m.searchCancel = cancel
	m.searchRoot = m.app.Controller().Active().Path()
	m.searching = true
	m.skippedDirs = 0
	m.results.Title = "find " + query + " in " + m.searchRoot
	m.results.ResetSelected()
	m.mode = searchMode
	m.statusMsg = "Searching..."
	m.log.Debug("search started", "root", m.searchRoot, "query", query)
	return tea.Batch(m.results.SetItems(nil), nextMatches(ctx, m.app.Search(match), m.searchID))
}

// nextMatches pulls the next batch of events from it. The iterator is only
// ever advanced by one command at a time.
func nextMatches(ctx context.Context, it *search.Iterator, id int) tea.Cmd {
	return func() tea.Msg {
		msg := searchBatchMsg{id: id}
		for len(msg.matches) < searchBatch {
			if !it.Next(ctx) {
				msg.done = true
				msg.err = it.Err()
				return msg
			}
			ev := it.Event()
			if ev.Kind == search.Skipped {
				msg.skipped++
				continue
			}
			msg.matches = append(msg.matches, ev.Entry)
		}
		msg.more = nextMatches(ctx, it, id)
		return msg
	}
}

func (m *Model) addResults(msg searchBatchMsg) tea.Cmd {
	if msg.id != m.searchID {
		return nil
	}
	items := m.results.Items()
	for _, e := range msg.matches {
		items = append(items, newItem(m.searchRoot, e))
	}
	cmd := m.results.SetItems(items)
	m.skippedDirs += msg.skipped
	if !msg.done {
		return tea.Batch(cmd, msg.more)
	}
	m.searching = false
	m.searchCancel = nil
	status := fmt.Sprintf("%d match(es)", len(items))
	if m.skippedDirs > 0 {
		status += fmt.Sprintf(", %d director(ies) skipped", m.skippedDirs)
	}
	if msg.err != nil {
		m.statusMsg = errorStyle.Render(status + ": " + msg.err.Error())
	} else {
		m.statusMsg = successStyle.Render(status)
	}
	return cmd
}

func (m *Model) stopSearch() {
	if m.searchCancel != nil {
		m.searchCancel()
		m.searchCancel = nil
	}
	m.searching = false
}

func (m *Model) handleSearchKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.execute):
		sel, ok := m.results.SelectedItem().(item)
		if !ok {
			return nil
		}
		m.stopSearch()
		m.searchID++
		m.mode = explorerMode
		if err := m.app.Reveal(sel.path); err != nil {
			m.fail(err)
			return nil
		}
		m.statusMsg = successStyle.Render(sel.title)
		return nil
	case key.Matches(msg, m.keys.cancel), msg.Type == tea.KeyCtrlC:
		m.stopSearch()
		m.searchID++
		m.mode = explorerMode
		m.statusMsg = ""
		return nil
	}
	var cmd tea.Cmd
	m.results, cmd = m.results.Update(msg)
	return cmd
}

// openSubShell suspends the UI and runs the user's shell in the active
// panel's directory.
func (m *Model) openSubShell() tea.Cmd {
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}
	c := exec.Command(shell)
	c.Dir = m.app.Controller().Active().Path()
	return tea.ExecProcess(c, func(err error) tea.Msg { return shellDoneMsg{err} })
}
