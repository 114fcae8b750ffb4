// Package app routes normalized commands to the panel controller, the
// modal editor and the file operation engine, and exposes one render
// snapshot for the UI.
package app

import (
	"context"
	stderrors "errors"
	"log/slog"
	"path/filepath"
	"slices"
	"sync/atomic"

	"dfm/src/editor"
	"dfm/src/errors"
	"dfm/src/fileop"
	"dfm/src/fsys"
	"dfm/src/panel"
	"dfm/src/search"
)

var (
	ErrBusy       = stderrors.New("another file operation is in progress")
	ErrEditorOpen = stderrors.New("close the editor first")
)

// Outcome describes what a command did beyond mutating state.
type Outcome struct {
	// Pending is set for copy, move, delete, rename and create requests.
	// The caller confirms it if needed and passes it to Execute.
	Pending      *fileop.PendingOperation
	EditorOpened bool
	EditorClosed bool
}

type Option func(*App)

func WithLogger(l *slog.Logger) Option { return func(a *App) { a.log = l } }

// WithEditorOptions configures editors opened by OpenInEditor and NewBuffer.
func WithEditorOptions(opts ...editor.Option) Option {
	return func(a *App) { a.editorOpts = append(a.editorOpts, opts...) }
}

type App struct {
	gw         fsys.Gateway
	ctrl       *panel.Controller
	engine     *fileop.Engine
	log        *slog.Logger
	editorOpts []editor.Option

	editor *editor.Editor
	busy   atomic.Bool

	lastOp     fileop.PendingOperation
	lastResult fileop.Result
}

func New(gw fsys.Gateway, ctrl *panel.Controller, opts ...Option) *App {
	a := &App{gw: gw, ctrl: ctrl}
	for _, o := range opts {
		o(a)
	}
	if a.log == nil {
		a.log = slog.Default()
	}
	// caller options come later and may override the logger
	a.editorOpts = append([]editor.Option{editor.WithLogger(a.log)}, a.editorOpts...)
	a.engine = fileop.New(gw, a.log)
	return a
}

func (a *App) Controller() *panel.Controller { return a.ctrl }
func (a *App) Busy() bool                    { return a.busy.Load() }

func (a *App) Gateway() fsys.Gateway { return a.gw }

// Editor returns the open editor, or nil.
func (a *App) Editor() *editor.Editor { return a.editor }

// Handle applies cmd. While an editor is open only editor commands are
// accepted.
func (a *App) Handle(cmd Command) (Outcome, error) {
	if a.editor != nil {
		if !cmd.editorCommand() {
			return Outcome{}, ErrEditorOpen
		}
		return a.handleEditor(cmd)
	}

	c := a.ctrl
	switch cmd.Kind {
	case NavigateUp:
		return Outcome{}, c.NavigateUp()
	case NavigateInto:
		return Outcome{}, c.NavigateInto()
	case ChangeDir:
		return Outcome{}, c.Active().ChangeDir(cmd.Text)
	case MoveCursor:
		c.MoveCursor(cmd.Delta)
	case CursorTop:
		c.Active().CursorTop()
	case CursorBottom:
		c.Active().CursorBottom()
	case ToggleSelection:
		c.ToggleSelection()
	case ClearSelection:
		c.Active().ClearSelection()
	case SwapSide:
		c.SwapActiveSide()
	case Refresh:
		return Outcome{}, c.RefreshAll()
	case SetSort:
		c.SetSort(cmd.Policy)
	case SetFilter:
		return Outcome{}, c.SetFilter(cmd.Text)
	case ToggleHidden:
		return Outcome{}, c.Active().SetHidden(!c.Active().ShowsHidden())

	case RequestCopy:
		return a.request(func() (fileop.PendingOperation, error) { return c.RequestCopy(cmd.Force) })
	case RequestMove:
		return a.request(func() (fileop.PendingOperation, error) { return c.RequestMove(cmd.Force) })
	case RequestDelete:
		return a.request(c.RequestDelete)
	case RequestRename:
		return a.request(func() (fileop.PendingOperation, error) { return c.RequestRename(cmd.Text) })
	case CreateFile:
		return a.request(func() (fileop.PendingOperation, error) { return c.RequestCreateFile(cmd.Text) })
	case CreateDir:
		return a.request(func() (fileop.PendingOperation, error) { return c.RequestCreateDir(cmd.Text) })

	case OpenInEditor:
		return a.openEditor()
	case NewBuffer:
		a.editor = editor.New(a.gw, a.editorOptions()...)
		return Outcome{EditorOpened: true}, nil
	case EditorKey, SaveEditor, CloseEditor, ResolveEditorClose:
		// no editor open
	default:
		return Outcome{}, errors.Newf(errors.UnknownCommand, "", "%s", cmd.Kind)
	}
	return Outcome{}, nil
}

func (a *App) request(build func() (fileop.PendingOperation, error)) (Outcome, error) {
	if a.busy.Load() {
		return Outcome{}, ErrBusy
	}
	op, err := build()
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Pending: &op}, nil
}

func (a *App) openEditor() (Outcome, error) {
	e, ok := a.ctrl.Active().Current()
	if !ok || e.Parent {
		return Outcome{}, panel.ErrNothingSelected
	}
	ed, err := editor.Open(a.gw, e.Path, a.editorOptions()...)
	if err != nil {
		return Outcome{}, err
	}
	a.editor = ed
	return Outcome{EditorOpened: true}, nil
}

// editorOptions resolves relative ":w" names in the active panel's directory.
func (a *App) editorOptions() []editor.Option {
	return append(slices.Clone(a.editorOpts), editor.WithDir(a.ctrl.Active().Path()))
}

func (a *App) handleEditor(cmd Command) (Outcome, error) {
	var err error
	switch cmd.Kind {
	case EditorKey:
		err = a.editor.HandleKey(cmd.Key)
	case SaveEditor:
		err = a.editor.Save()
	case CloseEditor:
		err = a.editor.RequestClose()
	case ResolveEditorClose:
		err = a.editor.ResolveClose(cmd.Decision)
	}
	if !a.editor.Closed() {
		return Outcome{}, err
	}
	a.editor = nil
	// a save may have created or changed a listed file
	if rerr := a.ctrl.RefreshAll(); rerr != nil {
		a.log.Warn("refresh after editor close", "err", rerr)
	}
	return Outcome{EditorClosed: true}, err
}

// Execute runs op. It only touches the filesystem, so it may be called from
// a worker goroutine; the result must be handed back to Complete on the
// command sequence. A second concurrent call fails with ErrBusy.
func (a *App) Execute(ctx context.Context, op fileop.PendingOperation) (fileop.Result, error) {
	return a.ExecuteWithProgress(ctx, op, nil)
}

func (a *App) ExecuteWithProgress(ctx context.Context, op fileop.PendingOperation, progress fileop.ProgressFunc) (fileop.Result, error) {
	if !a.busy.CompareAndSwap(false, true) {
		return fileop.Result{}, ErrBusy
	}
	defer a.busy.Store(false)
	return a.engine.ExecuteWithProgress(ctx, op, progress), nil
}

// Complete applies the result of an executed operation: both panels are
// re-listed and, if every item succeeded, the active selection is cleared.
func (a *App) Complete(op fileop.PendingOperation, res fileop.Result) error {
	a.lastOp, a.lastResult = op, res
	if res.OK() {
		a.ctrl.Active().ClearSelection()
	}
	err := a.ctrl.RefreshAll()
	if res.OK() && len(res.Succeeded) == 1 {
		switch op.Kind {
		case fileop.Rename, fileop.CreateFile, fileop.CreateDir:
			a.ctrl.Active().Focus(op.NewName)
		}
	}
	return err
}

// Retry returns a forced operation for the conflicts of the last completed
// operation.
func (a *App) Retry() (fileop.PendingOperation, bool) {
	return fileop.Retry(a.lastOp, a.lastResult)
}

// Search starts a traversal of the active panel's directory.
func (a *App) Search(p search.Predicate) *search.Iterator {
	return search.Search(a.gw, a.ctrl.Active().Path(), p)
}

// Reveal shows path in the active panel with the cursor on it.
func (a *App) Reveal(path string) error {
	if err := a.ctrl.Active().ChangeDir(filepath.Dir(path)); err != nil {
		return err
	}
	a.ctrl.Active().Focus(filepath.Base(path))
	return nil
}

// RefreshDir re-lists every panel currently showing dir.
func (a *App) RefreshDir(dir string) error {
	var errs []error
	for _, s := range []panel.Side{panel.Left, panel.Right} {
		if p := a.ctrl.Panel(s); p.Path() == dir {
			if err := p.Refresh(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// View is everything the UI needs to draw one frame.
type View struct {
	Panels panel.DualView
	// Editor is nil when no editor is open.
	Editor *editor.View
	Busy   bool
}

func (a *App) Snapshot() View {
	v := View{Panels: a.ctrl.Snapshot(), Busy: a.busy.Load()}
	if a.editor != nil {
		ev := a.editor.Snapshot()
		v.Editor = &ev
	}
	return v
}
