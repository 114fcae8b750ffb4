// Package src is the terminal front end of dfm: it maps keys to app
// commands and renders app snapshots with bubbletea and lipgloss.
package src

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"dfm/src/app"
	"dfm/src/config"
	"dfm/src/fileop"
	"dfm/src/fsys"
	"dfm/src/watch"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// item is a search result in the results list.
type item struct {
	title, desc string
	path        string
}

func (i item) Title() string       { return i.title }
func (i item) Description() string { return i.desc }
func (i item) FilterValue() string { return i.title }

func newItem(root string, e fsys.Entry) item {
	rel, err := filepath.Rel(root, e.Path)
	if err != nil {
		rel = e.Path
	}
	desc := e.Kind.String()
	if !e.IsDir() {
		desc += " | " + fsys.HumanSize(e.Size)
	}
	return item{
		title: rel,
		desc:  fmt.Sprintf("%s | %s", desc, e.ModTime.Format(dateLayout)),
		path:  e.Path,
	}
}

// ProgressMsg reports how far a running file operation has got.
type ProgressMsg struct {
	Done, Total int
	Current     string
}

// operationDoneMsg carries the result of an operation back to Update.
type operationDoneMsg struct {
	op  fileop.PendingOperation
	res fileop.Result
	err error
}

// searchBatchMsg is one step of a running search. more fetches the next
// step and is nil once done is set.
type searchBatchMsg struct {
	id      int
	matches []fsys.Entry
	skipped int
	done    bool
	err     error
	more    tea.Cmd
}

type dirChangedMsg watch.Change

type shellDoneMsg struct{ err error }

type promptKind int

const (
	promptCommand promptKind = iota
	promptRename
	promptMkdir
	promptTouch
	promptFilter
	promptSearch
)

type confirmKind int

const (
	confirmDelete confirmKind = iota
	confirmOverwrite
)

type Model struct {
	app     *app.App
	cfg     config.Config
	log     *slog.Logger
	watcher *watch.Watcher
	watched []string

	keys      keyMap
	mode      mode
	statusMsg string
	showHelp  bool
	quitting  bool

	width, height int
	offsets       [2]int

	input   textinput.Model
	prompt  promptKind
	confirm confirmKind
	pending *fileop.PendingOperation

	progress     progress.Model
	ProgressChan chan ProgressMsg
	lastProgress ProgressMsg
	cancel       context.CancelFunc

	showPreview bool
	preview     viewport.Model
	previewPath string

	results      list.Model
	searchID     int
	searchRoot   string
	searching    bool
	searchCancel context.CancelFunc
	skippedDirs  int

	editorTop int
}

// InitialModel builds the UI around a. w may be nil when watching is off.
func InitialModel(a *app.App, cfg config.Config, w *watch.Watcher, log *slog.Logger) Model {
	if log == nil {
		log = slog.Default()
	}
	ti := textinput.New()
	ti.CharLimit = 4096

	results := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	results.SetFilteringEnabled(false)
	results.SetShowHelp(false)
	results.DisableQuitKeybindings()

	m := Model{
		app:         a,
		cfg:         cfg,
		log:         log,
		watcher:     w,
		keys:        newKeyMap(),
		mode:        explorerMode,
		input:       ti,
		progress:    progress.New(progress.WithDefaultGradient()),
		showPreview: cfg.UI.Preview,
		preview:     viewport.New(0, 0),
		results:     results,
		width:       80,
		height:      24,
	}
	m.syncWatch()
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForChange())
}
