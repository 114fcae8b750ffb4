package src

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"dfm/src/app"
	"dfm/src/editor"
	"dfm/src/fileop"
	"dfm/src/panel"
	"dfm/src/sorting"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
	case ProgressMsg:
		m.lastProgress = msg
		cmds = append(cmds, m.waitForProgress())
	case operationDoneMsg:
		m.finishOperation(msg)
	case searchBatchMsg:
		cmds = append(cmds, m.addResults(msg))
	case dirChangedMsg:
		m.dirChanged(msg)
		cmds = append(cmds, m.waitForChange())
	case CommandResult:
		m.commandFinished(msg)
	case shellDoneMsg:
		if msg.err != nil {
			m.fail(fmt.Errorf("sub-shell: %w", msg.err))
		}
		m.refresh()
	case tea.KeyMsg:
		cmds = append(cmds, m.handleKey(msg))
	default:
		if m.mode == promptMode {
			m.input, cmd = m.input.Update(msg)
			cmds = append(cmds, cmd)
		}
	}
	m.afterUpdate()
	return m, tea.Batch(cmds...)
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch m.mode {
	case progressMode:
		if key.Matches(msg, m.keys.cancel) || msg.Type == tea.KeyCtrlC {
			if m.cancel != nil {
				m.cancel()
				m.statusMsg = "Cancelling..."
			}
		}
		return nil
	case editorMode:
		return m.handleEditorKey(msg)
	case promptMode:
		return m.handlePromptKey(msg)
	case confirmMode:
		return m.handleConfirmKey(msg)
	case searchMode:
		return m.handleSearchKey(msg)
	}
	return m.handleExplorerKey(msg)
}

func (m *Model) handleExplorerKey(msg tea.KeyMsg) tea.Cmd {
	ctrl := m.app.Controller()
	switch {
	case key.Matches(msg, m.keys.quit):
		m.quitting = true
		m.stop()
		return tea.Quit
	case key.Matches(msg, m.keys.help):
		m.showHelp = !m.showHelp
	case key.Matches(msg, m.keys.tab):
		return m.do(app.Command{Kind: app.SwapSide})
	case key.Matches(msg, m.keys.down):
		return m.do(app.Command{Kind: app.MoveCursor, Delta: 1})
	case key.Matches(msg, m.keys.up):
		return m.do(app.Command{Kind: app.MoveCursor, Delta: -1})
	case key.Matches(msg, m.keys.pageDown):
		return m.do(app.Command{Kind: app.MoveCursor, Delta: m.panelRows()})
	case key.Matches(msg, m.keys.pageUp):
		return m.do(app.Command{Kind: app.MoveCursor, Delta: -m.panelRows()})
	case key.Matches(msg, m.keys.top):
		return m.do(app.Command{Kind: app.CursorTop})
	case key.Matches(msg, m.keys.bottom):
		return m.do(app.Command{Kind: app.CursorBottom})
	case key.Matches(msg, m.keys.execute), key.Matches(msg, m.keys.right):
		cur, ok := ctrl.Active().Current()
		if !ok {
			return nil
		}
		if cur.IsDir() {
			return m.do(app.Command{Kind: app.NavigateInto})
		}
		if key.Matches(msg, m.keys.execute) {
			return m.do(app.Command{Kind: app.OpenInEditor})
		}
	case key.Matches(msg, m.keys.back):
		return m.do(app.Command{Kind: app.NavigateUp})
	case key.Matches(msg, m.keys.selectIt):
		return m.do(app.Command{Kind: app.ToggleSelection})
	case key.Matches(msg, m.keys.cancel):
		if len(ctrl.Active().Selected()) == 0 && ctrl.Active().Filter() != "" {
			return m.do(app.Command{Kind: app.SetFilter})
		}
		return m.do(app.Command{Kind: app.ClearSelection})
	case key.Matches(msg, m.keys.refresh):
		return m.do(app.Command{Kind: app.Refresh})
	case key.Matches(msg, m.keys.filter):
		return m.openPrompt(promptFilter, "filter: ", "part of a name", ctrl.Active().Filter())
	case key.Matches(msg, m.keys.hidden):
		return m.do(app.Command{Kind: app.ToggleHidden})
	case key.Matches(msg, m.keys.sortNext):
		return m.do(app.Command{Kind: app.SetSort, Policy: nextSortKey(ctrl.Active().Policy())})
	case key.Matches(msg, m.keys.sortFlip):
		return m.do(app.Command{Kind: app.SetSort, Policy: ctrl.Active().Policy().Reversed()})
	case key.Matches(msg, m.keys.view):
		m.showPreview = !m.showPreview
		m.previewPath = ""
		m.resize()
	case key.Matches(msg, m.keys.edit):
		return m.do(app.Command{Kind: app.OpenInEditor})
	case key.Matches(msg, m.keys.newBuffer):
		return m.do(app.Command{Kind: app.NewBuffer})
	case key.Matches(msg, m.keys.copy):
		return m.do(app.Command{Kind: app.RequestCopy})
	case key.Matches(msg, m.keys.move):
		return m.do(app.Command{Kind: app.RequestMove})
	case key.Matches(msg, m.keys.rename):
		cur, ok := ctrl.Active().Current()
		if !ok || cur.Parent {
			m.fail(panel.ErrNothingSelected)
			return nil
		}
		return m.openPrompt(promptRename, "rename to: ", "new name", cur.Name)
	case key.Matches(msg, m.keys.mkdir):
		return m.openPrompt(promptMkdir, "mkdir: ", "directory name", "")
	case key.Matches(msg, m.keys.touch):
		return m.openPrompt(promptTouch, "touch: ", "file name", "")
	case key.Matches(msg, m.keys.delete):
		return m.do(app.Command{Kind: app.RequestDelete})
	case key.Matches(msg, m.keys.search):
		return m.openPrompt(promptSearch, "find: ", "name, glob, ~fuzzy or content:text", "")
	case key.Matches(msg, m.keys.command):
		return m.openPrompt(promptCommand, ":", "cd, mkdir, touch, mv, find, sort, filter, !shell", "")
	case key.Matches(msg, m.keys.yank):
		m.yankPath()
	case key.Matches(msg, m.keys.subshell):
		return m.openSubShell()
	}
	return nil
}

// do sends cmd to the application and reacts to its outcome.
func (m *Model) do(cmd app.Command) tea.Cmd {
	out, err := m.app.Handle(cmd)
	if err != nil {
		m.log.Debug("command failed", "cmd", cmd.Kind, "err", err)
		m.fail(err)
		return nil
	}
	switch {
	case out.Pending != nil:
		return m.confirmOrRun(*out.Pending)
	case out.EditorOpened:
		m.mode = editorMode
		m.editorTop = 0
		m.statusMsg = ""
	}
	return nil
}

func (m *Model) confirmOrRun(op fileop.PendingOperation) tea.Cmd {
	if op.Kind == fileop.Delete && m.cfg.UI.ConfirmDelete {
		m.ask(confirmDelete, op, fmt.Sprintf("Delete %d item(s)? (y/n)", len(op.Sources)))
		return nil
	}
	return m.startOperation(op)
}

func (m *Model) ask(kind confirmKind, op fileop.PendingOperation, question string) {
	m.mode = confirmMode
	m.confirm = kind
	m.pending = &op
	m.statusMsg = question
}

func (m *Model) handleConfirmKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.yes):
		op := *m.pending
		m.pending = nil
		m.mode = explorerMode
		return m.startOperation(op)
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.cancel), msg.Type == tea.KeyCtrlC:
		m.pending = nil
		m.mode = explorerMode
		m.statusMsg = "Cancelled"
	}
	return nil
}

// startOperation runs op off the UI goroutine. Progress is reported through
// ProgressChan, which is closed when the operation returns.
func (m *Model) startOperation(op fileop.PendingOperation) tea.Cmd {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan ProgressMsg, 64)
	m.mode = progressMode
	m.cancel = cancel
	m.ProgressChan = ch
	m.lastProgress = ProgressMsg{Total: len(op.Sources)}
	m.statusMsg = op.String()
	m.log.Info("operation started", "id", op.ID, "op", op.String())

	a := m.app
	run := func() tea.Msg {
		defer close(ch)
		defer cancel()
		res, err := a.ExecuteWithProgress(ctx, op, func(done, total int, current string) {
			select {
			case ch <- ProgressMsg{Done: done, Total: total, Current: current}:
			default:
			}
		})
		return operationDoneMsg{op: op, res: res, err: err}
	}
	return tea.Batch(run, m.waitForProgress())
}

func (m Model) waitForProgress() tea.Cmd {
	ch := m.ProgressChan
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		p, ok := <-ch
		if !ok {
			return nil
		}
		return p
	}
}

func (m *Model) finishOperation(msg operationDoneMsg) {
	m.mode = explorerMode
	m.cancel = nil
	if msg.err != nil {
		m.fail(msg.err)
		return
	}
	res := msg.res
	err := m.app.Complete(msg.op, res)
	m.log.Info("operation finished", "id", res.OperationID, "summary", res.Summary())
	switch {
	case err != nil:
		m.fail(err)
	case res.OK():
		m.statusMsg = successStyle.Render(res.Summary())
	case len(res.Failed) > 0:
		m.statusMsg = errorStyle.Render(fmt.Sprintf("%s: %v", res.Summary(), res.Failed[0].Err))
	default:
		m.statusMsg = errorStyle.Render(res.Summary())
	}
	if retry, ok := m.app.Retry(); ok {
		m.ask(confirmOverwrite, retry, fmt.Sprintf("%d item(s) already exist in %s. Overwrite? (y/n)", len(retry.Sources), retry.DestDir))
	}
}

func (m *Model) handlePromptKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.execute):
		return m.submitPrompt()
	case key.Matches(msg, m.keys.cancel), msg.Type == tea.KeyCtrlC:
		m.closePrompt()
		return nil
	case msg.Type == tea.KeyTab && m.prompt == promptCommand:
		m.input.SetValue(m.completeCommand(m.input.Value()))
		m.input.CursorEnd()
		return nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *Model) openPrompt(kind promptKind, label, placeholder, value string) tea.Cmd {
	m.mode = promptMode
	m.prompt = kind
	m.input.Prompt = label
	m.input.Placeholder = placeholder
	m.input.SetValue(value)
	m.input.CursorEnd()
	return m.input.Focus()
}

func (m *Model) closePrompt() {
	m.input.Reset()
	m.input.Blur()
	m.mode = explorerMode
}

func (m *Model) submitPrompt() tea.Cmd {
	value := m.input.Value()
	kind := m.prompt
	m.closePrompt()
	switch kind {
	case promptCommand:
		return m.executeCommand(value)
	case promptRename:
		return m.do(app.Command{Kind: app.RequestRename, Text: strings.TrimSpace(value)})
	case promptMkdir:
		return m.do(app.Command{Kind: app.CreateDir, Text: strings.TrimSpace(value)})
	case promptTouch:
		return m.do(app.Command{Kind: app.CreateFile, Text: strings.TrimSpace(value)})
	case promptFilter:
		return m.do(app.Command{Kind: app.SetFilter, Text: value})
	case promptSearch:
		return m.startSearch(strings.TrimSpace(value))
	}
	return nil
}

func (m *Model) handleEditorKey(msg tea.KeyMsg) tea.Cmd {
	ed := m.app.Editor()
	if ed == nil {
		m.mode = explorerMode
		return nil
	}
	if ed.Confirming() {
		switch {
		case key.Matches(msg, m.keys.yes):
			m.editorDo(app.Command{Kind: app.ResolveEditorClose, Decision: editor.Save})
		case key.Matches(msg, m.keys.no):
			m.editorDo(app.Command{Kind: app.ResolveEditorClose, Decision: editor.Discard})
		case key.Matches(msg, m.keys.cancel), msg.Type == tea.KeyCtrlC:
			m.editorDo(app.Command{Kind: app.ResolveEditorClose, Decision: editor.Cancel})
		}
		return nil
	}
	switch {
	case key.Matches(msg, m.keys.save):
		m.editorDo(app.Command{Kind: app.SaveEditor})
	case key.Matches(msg, m.keys.close), msg.Type == tea.KeyCtrlC:
		m.editorDo(app.Command{Kind: app.CloseEditor})
	default:
		for _, k := range editorKeys(msg) {
			m.editorDo(app.Command{Kind: app.EditorKey, Key: k})
			if m.mode != editorMode {
				break
			}
		}
	}
	return nil
}

// editorDo forwards cmd to the open editor. Editor errors are shown on the
// editor's own message line.
func (m *Model) editorDo(cmd app.Command) {
	out, err := m.app.Handle(cmd)
	if err != nil {
		m.log.Debug("editor command", "cmd", cmd.Kind, "err", err)
	}
	if out.EditorClosed {
		m.mode = explorerMode
		if err != nil {
			m.fail(err)
		} else {
			m.statusMsg = successStyle.Render("Editor closed")
		}
	}
}

func (m *Model) yankPath() {
	cur, ok := m.app.Controller().Active().Current()
	if !ok {
		m.fail(panel.ErrNothingSelected)
		return
	}
	if err := clipboard.WriteAll(cur.Path); err != nil {
		m.fail(fmt.Errorf("copy to clipboard: %w", err))
		return
	}
	m.statusMsg = successStyle.Render("Copied " + cur.Path)
}

func (m *Model) dirChanged(c dirChangedMsg) {
	// a running operation refreshes both panels when it completes
	if m.app.Busy() {
		return
	}
	if err := m.app.RefreshDir(c.Dir); err != nil {
		m.log.Warn("refresh after change", "dir", c.Dir, "err", err)
		m.fail(err)
	}
}

func (m *Model) refresh() {
	if err := m.app.Controller().RefreshAll(); err != nil {
		m.fail(err)
	}
}

func (m *Model) fail(err error) {
	m.statusMsg = errorStyle.Render(err.Error())
}

func (m *Model) stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.stopSearch()
	if m.watcher != nil {
		m.watcher.Stop()
	}
}

func (m *Model) syncWatch() {
	if m.watcher == nil {
		return
	}
	dirs := m.app.Controller().Directories()
	if slices.Equal(dirs, m.watched) {
		return
	}
	m.watched = dirs
	if err := m.watcher.Watch(dirs...); err != nil {
		m.log.Warn("watch directories", "dirs", dirs, "err", err)
	}
}

func (m Model) waitForChange() tea.Cmd {
	if m.watcher == nil {
		return nil
	}
	ch := m.watcher.Changes()
	return func() tea.Msg {
		c, ok := <-ch
		if !ok {
			return nil
		}
		return dirChangedMsg(c)
	}
}

func nextSortKey(p sorting.Policy) sorting.Policy {
	i := slices.Index(sorting.Keys, p.Key)
	p.Key = sorting.Keys[(i+1)%len(sorting.Keys)]
	return p
}

// afterUpdate keeps the derived view state in step with the application
// after every message.
func (m *Model) afterUpdate() {
	if m.mode == editorMode && m.app.Editor() == nil {
		m.mode = explorerMode
	}
	m.syncWatch()
	m.scroll()
	m.updatePreview()
}

func (m *Model) scroll() {
	rows := m.panelRows()
	ctrl := m.app.Controller()
	for _, s := range []panel.Side{panel.Left, panel.Right} {
		p := ctrl.Panel(s)
		m.offsets[s] = visibleFrom(m.offsets[s], p.Cursor(), len(p.Entries()), rows)
	}
	if ed := m.app.Editor(); ed != nil {
		v := ed.Snapshot()
		m.editorTop = visibleFrom(m.editorTop, v.Line, len(v.Lines), m.editorRows())
	}
}

// visibleFrom returns the first visible row of a window of size rows that
// keeps cursor in view and moves as little as possible from off.
func visibleFrom(off, cursor, total, rows int) int {
	if rows < 1 {
		return 0
	}
	if cursor < off {
		off = cursor
	}
	if cursor >= off+rows {
		off = cursor - rows + 1
	}
	return max(0, min(off, total-rows))
}
