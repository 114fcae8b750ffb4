// Package editor is a small modal text editor for files opened from a
// panel. Key handling is a pure state machine (see Transition); Editor adds
// the buffer, the file association and the save/close commands on top.
package editor

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"dfm/src/errors"
	"dfm/src/fsys"
)

const (
	DefaultPageSize = 20
	DefaultMaxSize  = 10 * 1024 * 1024
)

// CloseDecision answers the prompt raised by RequestClose on a dirty buffer.
type CloseDecision int

const (
	Discard CloseDecision = iota
	Save
	Cancel
)

type Option func(*Editor)

func WithLogger(l *slog.Logger) Option { return func(e *Editor) { e.log = l } }
func WithPageSize(n int) Option        { return func(e *Editor) { e.pageSize = n } }

// WithMaxSize limits the size of files Open accepts. Zero disables the check.
func WithMaxSize(n int64) Option { return func(e *Editor) { e.maxSize = n } }

// WithDir sets the directory relative ":w <path>" names are resolved in.
func WithDir(dir string) Option { return func(e *Editor) { e.dir = dir } }

type Editor struct {
	gw  fsys.Gateway
	log *slog.Logger

	pageSize int
	maxSize  int64
	dir      string

	path       string
	buf        *Buffer
	mode       Mode
	pending    string
	message    string
	confirming bool
	closed     bool
}

func newEditor(gw fsys.Gateway, opts []Option) *Editor {
	e := &Editor{gw: gw, pageSize: DefaultPageSize, maxSize: DefaultMaxSize}
	for _, o := range opts {
		o(e)
	}
	if e.log == nil {
		e.log = slog.Default()
	}
	return e
}

// Open loads path into a new editor in Normal mode.
func Open(gw fsys.Gateway, path string, opts ...Option) (*Editor, error) {
	e := newEditor(gw, opts)
	st, err := gw.Stat(path)
	if err != nil {
		return nil, err
	}
	if st.IsDir() {
		return nil, errors.Newf(errors.IOFailure, path, "cannot edit a directory")
	}
	if e.maxSize > 0 && st.Size > e.maxSize {
		return nil, errors.Newf(errors.IOFailure, path, "file is larger than %s", fsys.HumanSize(e.maxSize))
	}
	lines, err := gw.ReadText(path)
	if err != nil {
		return nil, err
	}
	e.path = path
	e.buf = NewBuffer(lines)
	e.log.Debug("editor opened", "path", path, "lines", len(lines))
	return e, nil
}

// New returns an empty editor with no file association. The first save
// needs ":w <path>".
func New(gw fsys.Gateway, opts ...Option) *Editor {
	e := newEditor(gw, opts)
	e.buf = NewBuffer(nil)
	return e
}

func (e *Editor) Path() string    { return e.path }
func (e *Editor) Mode() Mode      { return e.mode }
func (e *Editor) Dirty() bool     { return e.buf.Dirty() }
func (e *Editor) Closed() bool    { return e.closed }
func (e *Editor) Lines() []string { return e.buf.Lines() }

// Confirming reports whether a close request is waiting for ResolveClose.
func (e *Editor) Confirming() bool { return e.confirming }

// HandleKey feeds one key through the mode machine and applies the result.
// The returned error is also kept as the editor's status message.
func (e *Editor) HandleKey(k Key) error {
	if e.closed {
		return nil
	}
	mode, pending, act := Transition(e.mode, e.pending, k)
	e.mode, e.pending = mode, pending
	if act.Kind == RunCommand {
		return e.report(e.run(act.Command))
	}
	if act.Kind != NoAction {
		e.message = ""
		e.buf.Apply(act, e.pageSize)
	}
	return nil
}

func (e *Editor) report(err error) error {
	if err != nil {
		e.message = err.Error()
	}
	return err
}

func (e *Editor) run(cmd string) error {
	cmd = strings.TrimSpace(cmd)
	switch cmd {
	case "w":
		return e.save()
	case "q":
		if e.Dirty() {
			return errors.Newf(errors.UnsavedChanges, e.path, "use :q! to discard or :wq to save")
		}
		e.close()
		return nil
	case "wq":
		if err := e.save(); err != nil {
			return err
		}
		e.close()
		return nil
	case "x":
		if e.Dirty() || e.path == "" {
			if err := e.save(); err != nil {
				return err
			}
		}
		e.close()
		return nil
	case "q!":
		e.close()
		return nil
	}
	if name, ok := strings.CutPrefix(cmd, "w "); ok {
		if name = strings.TrimSpace(name); name != "" {
			if !filepath.IsAbs(name) && e.dir != "" {
				name = filepath.Join(e.dir, name)
			}
			return e.saveAs(name)
		}
	}
	return errors.Newf(errors.UnknownCommand, "", "%q", cmd)
}

// Save writes the buffer to its file. On failure the buffer stays dirty.
func (e *Editor) Save() error { return e.report(e.save()) }

func (e *Editor) save() error { return e.saveAs(e.path) }

// saveAs writes the buffer to path and, only once that succeeded, makes
// path the buffer's file.
func (e *Editor) saveAs(path string) error {
	if path == "" {
		return errors.New(errors.NoPathSet, "", nil)
	}
	lines := e.buf.Lines()
	if err := e.gw.WriteText(path, lines); err != nil {
		e.log.Warn("editor save failed", "path", path, "err", err)
		return err
	}
	e.path = path
	e.buf.MarkClean()
	e.message = fmt.Sprintf("%q %dL written", path, len(lines))
	e.log.Info("editor saved", "path", path, "lines", len(lines))
	return nil
}

func (e *Editor) close() {
	e.closed = true
	e.confirming = false
	e.mode = Normal
	e.pending = ""
}

// RequestClose closes a clean buffer. A dirty one stays open, returns an
// UnsavedChanges error and waits for ResolveClose.
func (e *Editor) RequestClose() error {
	if !e.Dirty() {
		e.close()
		return nil
	}
	e.confirming = true
	return e.report(errors.New(errors.UnsavedChanges, e.path, nil))
}

// ResolveClose answers a pending close request.
func (e *Editor) ResolveClose(d CloseDecision) error {
	switch d {
	case Discard:
		e.close()
	case Save:
		if err := e.save(); err != nil {
			e.confirming = false
			return e.report(err)
		}
		e.close()
	default:
		e.confirming = false
		e.message = ""
	}
	return nil
}

// View is the render state of an editor.
type View struct {
	Path       string
	Lines      []string
	Line       int
	Col        int
	Mode       Mode
	Pending    string
	Dirty      bool
	Message    string
	Confirming bool
	Closed     bool
}

func (e *Editor) Snapshot() View {
	line, col := e.buf.Cursor()
	return View{
		Path:       e.path,
		Lines:      e.buf.Lines(),
		Line:       line,
		Col:        col,
		Mode:       e.mode,
		Pending:    e.pending,
		Dirty:      e.buf.Dirty(),
		Message:    e.message,
		Confirming: e.confirming,
		Closed:     e.closed,
	}
}
