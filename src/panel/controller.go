package panel

import (
	stderrors "errors"
	"fmt"
	"path/filepath"

	"dfm/src/errors"
	"dfm/src/fileop"
	"dfm/src/fsys"
	"dfm/src/sorting"
)

// ErrNothingSelected is returned when an operation is requested with no
// selection and no usable entry under the cursor.
var ErrNothingSelected = stderrors.New("nothing selected")

// Side names one of the two panels.
type Side int

const (
	Left Side = iota
	Right
)

func (s Side) Other() Side { return 1 - s }

func (s Side) String() string {
	if s == Right {
		return "right"
	}
	return "left"
}

// Controller owns both panels. Navigation goes to the active side; copy and
// move always flow from the active side into the inactive side's directory.
type Controller struct {
	panels [2]*State
	active Side
}

func NewController(left, right *State) *Controller {
	return &Controller{panels: [2]*State{left, right}, active: Left}
}

func (c *Controller) Active() *State       { return c.panels[c.active] }
func (c *Controller) Inactive() *State     { return c.panels[c.active.Other()] }
func (c *Controller) ActiveSide() Side     { return c.active }
func (c *Controller) Panel(s Side) *State  { return c.panels[s] }
func (c *Controller) SetActiveSide(s Side) { c.active = s }

func (c *Controller) SwapActiveSide() {
	c.active = c.active.Other()
}

// NavigateInto enters the entry under the active cursor.
func (c *Controller) NavigateInto() error {
	e, ok := c.Active().Current()
	if !ok {
		return nil
	}
	return c.Active().NavigateInto(e)
}

func (c *Controller) NavigateUp() error { return c.Active().NavigateUp() }

func (c *Controller) MoveCursor(delta int)        { c.Active().MoveCursor(delta) }
func (c *Controller) ToggleSelection()            { c.Active().ToggleSelection() }
func (c *Controller) SetSort(p sorting.Policy)    { c.Active().SetSort(p) }
func (c *Controller) SetFilter(text string) error { return c.Active().SetFilter(text) }

// RequestCopy builds a copy of the active side's targets into the inactive
// side's directory.
func (c *Controller) RequestCopy(force bool) (fileop.PendingOperation, error) {
	return c.transfer(fileop.Copy, force)
}

// RequestMove is RequestCopy for moves.
func (c *Controller) RequestMove(force bool) (fileop.PendingOperation, error) {
	return c.transfer(fileop.Move, force)
}

func (c *Controller) transfer(kind fileop.Kind, force bool) (fileop.PendingOperation, error) {
	sources := paths(c.Active().Targets())
	if len(sources) == 0 {
		return fileop.PendingOperation{}, ErrNothingSelected
	}
	op := fileop.NewOperation(kind, sources, c.Inactive().Path(), "")
	op.Force = force
	return op, nil
}

func (c *Controller) RequestDelete() (fileop.PendingOperation, error) {
	sources := paths(c.Active().Targets())
	if len(sources) == 0 {
		return fileop.PendingOperation{}, ErrNothingSelected
	}
	return fileop.NewOperation(fileop.Delete, sources, "", ""), nil
}

// RequestRename renames the entry under the active cursor. The selection
// is ignored: rename always acts on a single entry.
func (c *Controller) RequestRename(newName string) (fileop.PendingOperation, error) {
	e, ok := c.Active().Current()
	if !ok || e.Parent {
		return fileop.PendingOperation{}, ErrNothingSelected
	}
	return fileop.NewOperation(fileop.Rename, []string{e.Path}, filepath.Dir(e.Path), newName), nil
}

func (c *Controller) RequestCreateFile(name string) (fileop.PendingOperation, error) {
	return fileop.NewOperation(fileop.CreateFile, nil, c.Active().Path(), name), nil
}

func (c *Controller) RequestCreateDir(name string) (fileop.PendingOperation, error) {
	return fileop.NewOperation(fileop.CreateDir, nil, c.Active().Path(), name), nil
}

// RefreshAll re-lists both panels. Both are attempted even if the first
// fails.
func (c *Controller) RefreshAll() error {
	var errs []error
	for i, p := range c.panels {
		if err := p.Refresh(); err != nil {
			errs = append(errs, fmt.Errorf("%s panel: %w", Side(i), err))
		}
	}
	return errors.Join(errs...)
}

// Directories returns the paths shown by both panels.
func (c *Controller) Directories() []string {
	return []string{c.panels[Left].Path(), c.panels[Right].Path()}
}

func paths(entries []fsys.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Path)
	}
	return out
}
