// Package panel holds the navigation state of the two directory views and
// turns user intent into file operations.
package panel

import (
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"dfm/src/errors"
	"dfm/src/fsys"
	"dfm/src/sorting"
)

// State is one directory view. The entry list is rebuilt from the gateway on
// every directory change or refresh and never patched incrementally.
type State struct {
	gw       fsys.Gateway
	log      *slog.Logger
	path     string
	entries  []fsys.Entry
	cursor   int
	selected map[string]bool
	policy   sorting.Policy
	filter   string
	hidden   bool
}

// Option configures a State.
type Option func(*State)

func WithLogger(l *slog.Logger) Option {
	return func(s *State) { s.log = l }
}

// WithHidden controls whether dot-files are listed.
func WithHidden(show bool) Option {
	return func(s *State) { s.hidden = show }
}

// New opens a panel at dir. When dir cannot be listed the panel starts at
// the nearest ancestor that can.
func New(gw fsys.Gateway, dir string, policy sorting.Policy, opts ...Option) (*State, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.FromFS(dir, err)
	}
	s := &State{
		gw:       gw,
		log:      slog.Default(),
		path:     abs,
		selected: map[string]bool{},
		policy:   policy,
		hidden:   true,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.Refresh(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *State) Path() string           { return s.path }
func (s *State) Cursor() int            { return s.cursor }
func (s *State) Policy() sorting.Policy { return s.policy }
func (s *State) Filter() string         { return s.filter }
func (s *State) Entries() []fsys.Entry  { return slices.Clone(s.entries) }

func (s *State) IsSelected(name string) bool { return s.selected[name] }

// Current returns the entry under the cursor.
func (s *State) Current() (fsys.Entry, bool) {
	if len(s.entries) == 0 {
		return fsys.Entry{}, false
	}
	return s.entries[s.cursor], true
}

// Selected returns the selected entries in listing order.
func (s *State) Selected() []fsys.Entry {
	var out []fsys.Entry
	for _, e := range s.entries {
		if s.selected[e.Name] {
			out = append(out, e)
		}
	}
	return out
}

// Targets returns what an operation on this panel acts on: the selection,
// or the entry under the cursor when nothing is selected. ".." is never a
// target.
func (s *State) Targets() []fsys.Entry {
	if sel := s.Selected(); len(sel) > 0 {
		return sel
	}
	if e, ok := s.Current(); ok && !e.Parent {
		return []fsys.Entry{e}
	}
	return nil
}

// NavigateInto enters a directory entry. On failure the panel is unchanged.
func (s *State) NavigateInto(e fsys.Entry) error {
	if e.Parent {
		return s.NavigateUp()
	}
	if !e.IsDir() {
		return errors.New(errors.NotADirectory, e.Path, nil)
	}
	entries, err := s.list(e.Path)
	if err != nil {
		return err
	}
	s.enter(e.Path, entries)
	return nil
}

// NavigateUp moves to the parent directory and puts the cursor on the
// directory that was left.
func (s *State) NavigateUp() error {
	if fsys.IsRoot(s.path) {
		return errors.New(errors.AtRoot, s.path, nil)
	}
	parent := filepath.Dir(s.path)
	entries, err := s.list(parent)
	if err != nil {
		return err
	}
	left := filepath.Base(s.path)
	s.enter(parent, entries)
	s.Focus(left)
	return nil
}

// ChangeDir jumps straight to dir.
func (s *State) ChangeDir(dir string) error {
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(s.path, dir)
	}
	dir = filepath.Clean(dir)
	entries, err := s.list(dir)
	if err != nil {
		return err
	}
	s.enter(dir, entries)
	return nil
}

// Refresh re-lists the current directory. If it no longer exists the panel
// climbs to the nearest ancestor that can be listed.
func (s *State) Refresh() error {
	entries, err := s.list(s.path)
	if err == nil {
		s.replace(entries)
		return nil
	}
	dir := s.path
	for !fsys.IsRoot(dir) {
		dir = filepath.Dir(dir)
		entries, lerr := s.list(dir)
		if lerr != nil {
			continue
		}
		s.log.Warn("panel directory vanished, moved to ancestor", "from", s.path, "to", dir, "err", err)
		s.enter(dir, entries)
		return nil
	}
	s.entries = nil
	s.cursor = 0
	clear(s.selected)
	return err
}

func (s *State) MoveCursor(delta int) {
	s.setCursor(s.cursor + delta)
}

func (s *State) CursorTop()    { s.setCursor(0) }
func (s *State) CursorBottom() { s.setCursor(len(s.entries) - 1) }

// ToggleSelection flips the selection of the entry under the cursor and
// moves the cursor down one row.
func (s *State) ToggleSelection() {
	e, ok := s.Current()
	if !ok || e.Parent {
		return
	}
	if s.selected[e.Name] {
		delete(s.selected, e.Name)
	} else {
		s.selected[e.Name] = true
	}
	s.MoveCursor(1)
}

func (s *State) ClearSelection() {
	clear(s.selected)
}

// SetSort re-sorts the listing, keeping the cursor on the same entry.
func (s *State) SetSort(p sorting.Policy) {
	s.policy = p
	name := s.currentName()
	p.Sort(s.entries)
	s.Focus(name)
}

// SetFilter narrows the listing to names containing text, case-insensitively.
func (s *State) SetFilter(text string) error {
	s.filter = text
	return s.Refresh()
}

// SetHidden toggles dot-file visibility.
func (s *State) SetHidden(show bool) error {
	s.hidden = show
	return s.Refresh()
}

func (s *State) ShowsHidden() bool { return s.hidden }

func (s *State) list(dir string) ([]fsys.Entry, error) {
	raw, err := s.gw.List(dir)
	if err != nil {
		return nil, errors.FromFS(dir, err)
	}
	return raw, nil
}

func (s *State) enter(dir string, raw []fsys.Entry) {
	s.path = dir
	s.filter = ""
	clear(s.selected)
	s.entries = s.build(raw)
	s.cursor = 0
}

func (s *State) replace(raw []fsys.Entry) {
	name := s.currentName()
	s.entries = s.build(raw)
	present := make(map[string]bool, len(s.entries))
	for _, e := range s.entries {
		present[e.Name] = true
	}
	for n := range s.selected {
		if !present[n] {
			delete(s.selected, n)
		}
	}
	if !s.Focus(name) {
		s.setCursor(s.cursor)
	}
}

func (s *State) build(raw []fsys.Entry) []fsys.Entry {
	entries := make([]fsys.Entry, 0, len(raw)+1)
	if !fsys.IsRoot(s.path) {
		entries = append(entries, fsys.ParentEntry(s.path))
	}
	needle := strings.ToLower(s.filter)
	for _, e := range raw {
		if !s.hidden && strings.HasPrefix(e.Name, ".") {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(e.Name), needle) {
			continue
		}
		entries = append(entries, e)
	}
	s.policy.Sort(entries)
	return entries
}

func (s *State) currentName() string {
	if e, ok := s.Current(); ok {
		return e.Name
	}
	return ""
}

// Focus moves the cursor to the entry called name, if it is listed.
func (s *State) Focus(name string) bool {
	if name == "" {
		return false
	}
	for i, e := range s.entries {
		if e.Name == name {
			s.cursor = i
			return true
		}
	}
	return false
}

func (s *State) setCursor(i int) {
	if len(s.entries) == 0 {
		s.cursor = 0
		return
	}
	s.cursor = max(0, min(i, len(s.entries)-1))
}
